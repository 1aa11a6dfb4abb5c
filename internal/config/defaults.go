package config

import "time"

// Default priority values per source. Higher integer wins; overrides and
// tool pushes outrank the schedule by convention, never by the arbitration
// algorithm itself.
const (
	DefaultScheduledPriority      = 10
	DefaultManualOverridePriority = 50
	DefaultToolPushedPriority     = 100
	DefaultWakePriority           = 200
)

const (
	defaultTickInterval   = time.Minute
	defaultPersistTimeout = 5 * time.Second
	defaultLabelMaxWidth  = 16
	defaultWakeDuration   = 60 * time.Second
	defaultToolPushedTTL  = 45 * time.Minute
	defaultGenTimeout     = 90 * time.Second
	defaultGenRetries     = 3
	defaultHTTPListen     = "127.0.0.1:8751"
)

// applyDefaults fills zero values with working defaults so a minimal config
// file still yields a runnable daemon.
func (c *Config) applyDefaults() {
	if c.DataDir == "" {
		c.DataDir = "./presenced-data"
	}
	if c.TickInterval <= 0 {
		c.TickInterval = Duration(defaultTickInterval)
	}
	if c.PersistTimeout <= 0 {
		c.PersistTimeout = Duration(defaultPersistTimeout)
	}
	if c.LabelMaxWidth <= 0 {
		c.LabelMaxWidth = defaultLabelMaxWidth
	}

	if c.Priorities.Scheduled == 0 {
		c.Priorities.Scheduled = DefaultScheduledPriority
	}
	if c.Priorities.ManualOverride == 0 {
		c.Priorities.ManualOverride = DefaultManualOverridePriority
	}
	if c.Priorities.ToolPushed == 0 {
		c.Priorities.ToolPushed = DefaultToolPushedPriority
	}

	// Tool pushes are meant to fade out on their own; scheduled and manual
	// entries default to holding until revoked.
	if c.TTLs.ToolPushed <= 0 {
		c.TTLs.ToolPushed = Duration(defaultToolPushedTTL)
	}

	if c.Wake.Priority == 0 {
		c.Wake.Priority = DefaultWakePriority
	}
	if c.Wake.Duration <= 0 {
		c.Wake.Duration = Duration(defaultWakeDuration)
	}

	if c.Generator.Timeout <= 0 {
		c.Generator.Timeout = Duration(defaultGenTimeout)
	}
	if c.Generator.Retries == 0 {
		c.Generator.Retries = defaultGenRetries
	}
	if c.Generator.Backoff == "" {
		c.Generator.Backoff = "linear"
	}

	if c.HTTP.Listen == "" {
		c.HTTP.Listen = defaultHTTPListen
	}

	c.Logging.Level = string(NormalizeLogLevel(c.Logging.Level))
	c.Logging.Format = string(NormalizeLogFormat(c.Logging.Format))
}
