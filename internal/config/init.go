package config

import (
	"fmt"
	"os"
)

const sampleConfig = `# presenced configuration
data_dir: ./presenced-data
tick_interval: 1m
label_max_width: 16

logging:
  level: info
  format: json

# Default priority per source. Higher wins; ties go to the newer entry.
priorities:
  scheduled: 10
  manual_override: 50
  tool_pushed: 100

# Default lifetime per source when a submission carries no expiry.
ttls:
  tool_pushed: 45m

presets:
  - name: online
    label: online
    duration: 10m
  - name: busy
    label: busy
    duration: 45m
  - name: sleeping
    label: sleeping
    silent: true

wake:
  preset: online
  priority: 200
  duration: 60s

generator:
  endpoint: ${PRESENCE_GENERATOR_URL}
  timeout: 90s
  retries: 3
  backoff: linear

nats:
  enabled: false
  url: nats://127.0.0.1:4222
  subject: presence.status

http:
  enabled: true
  listen: 127.0.0.1:8751

history:
  enabled: true
  path: ./presenced-data/history.db
`

// Init writes a commented sample configuration file. It refuses to
// overwrite an existing file unless force is set.
func Init(path string, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config file %s already exists (use --force to overwrite)", path)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write config %s: %w", path, err)
	}
	return nil
}
