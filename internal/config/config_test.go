package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "presenced.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadMinimalConfigAppliesDefaults(t *testing.T) {
	path := writeConfig(t, "data_dir: /tmp/presenced-test\n")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/tmp/presenced-test", cfg.DataDir)
	assert.Equal(t, time.Minute, cfg.TickInterval.Std())
	assert.Equal(t, 5*time.Second, cfg.PersistTimeout.Std())
	assert.Equal(t, DefaultScheduledPriority, cfg.Priorities.Scheduled)
	assert.Equal(t, DefaultManualOverridePriority, cfg.Priorities.ManualOverride)
	assert.Equal(t, DefaultToolPushedPriority, cfg.Priorities.ToolPushed)
	assert.Equal(t, DefaultWakePriority, cfg.Wake.Priority)
	assert.Equal(t, 60*time.Second, cfg.Wake.Duration.Std())
	assert.Equal(t, 45*time.Minute, cfg.TTLs.ToolPushed.Std())
	assert.Zero(t, cfg.TTLs.ManualOverride.Std())
	assert.Equal(t, "linear", cfg.Generator.Backoff)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "text", cfg.Logging.Format)
}

func TestLoadFullConfig(t *testing.T) {
	path := writeConfig(t, `
data_dir: ./data
tick_interval: 30s
persist_timeout: 2s
label_max_width: 8
logging:
  level: debug
  format: json
priorities:
  scheduled: 5
  manual_override: 40
  tool_pushed: 90
presets:
  - name: sleeping
    label: zzz
    silent: true
  - name: gaming
    label: playing
    duration: 2h
wake:
  preset: gaming
  priority: 150
  duration: 90s
generator:
  endpoint: http://localhost:9000/schedule
  timeout: 10s
  retries: 2
  backoff: exponential
nats:
  enabled: true
  url: nats://localhost:4222
  subject: presence.status
history:
  enabled: true
  path: ./data/history.db
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 30*time.Second, cfg.TickInterval.Std())
	assert.Equal(t, 8, cfg.LabelMaxWidth)
	assert.Equal(t, 5, cfg.Priorities.Scheduled)
	assert.Equal(t, 150, cfg.Wake.Priority)
	assert.Equal(t, 90*time.Second, cfg.Wake.Duration.Std())
	assert.Equal(t, "exponential", cfg.Generator.Backoff)
	assert.Equal(t, "presence.status", cfg.NATS.Subject)

	preset, ok := cfg.FindPreset("gaming")
	require.True(t, ok)
	assert.Equal(t, "playing", preset.Label)
	assert.Equal(t, 2*time.Hour, preset.Duration.Std())

	sleeping, ok := cfg.FindPreset("sleeping")
	require.True(t, ok)
	assert.True(t, sleeping.Silent)
}

func TestValidateRejectsUnknownWakePreset(t *testing.T) {
	path := writeConfig(t, `
wake:
  preset: missing
`)
	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "wake preset")
}

func TestValidateRejectsDuplicatePresets(t *testing.T) {
	path := writeConfig(t, `
presets:
  - name: x
    label: a
  - name: x
    label: b
`)
	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate preset")
}

func TestValidateRejectsBadBackoff(t *testing.T) {
	path := writeConfig(t, `
generator:
  backoff: quadratic
`)
	_, err := Load(path)
	require.Error(t, err)
}

func TestValidateNATSRequiresURL(t *testing.T) {
	path := writeConfig(t, `
nats:
  enabled: true
  subject: presence.status
`)
	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nats.url")
}

func TestExpandEnv(t *testing.T) {
	t.Setenv("GEN_HOST", "gen.internal")
	path := writeConfig(t, `
generator:
  endpoint: http://${GEN_HOST}/schedule
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "http://gen.internal/schedule", cfg.Generator.Endpoint)
}

func TestNormalizeLogLevelAndFormat(t *testing.T) {
	assert.Equal(t, LogLevelInfo, NormalizeLogLevel("bogus"))
	assert.Equal(t, LogLevelDebug, NormalizeLogLevel(" DEBUG "))
	assert.Equal(t, LogFormatText, NormalizeLogFormat(""))
	assert.Equal(t, LogFormatJSON, NormalizeLogFormat("JSON"))
}

func TestParseLogLevelRejectsUnknown(t *testing.T) {
	assert.True(t, ParseLogLevel("warn").IsOk())
	assert.Equal(t, LogLevelWarn, ParseLogLevel("warn").Unwrap())
	assert.True(t, ParseLogLevel("loud").IsErr())
	assert.True(t, ParseLogFormat("yaml").IsErr())
}
