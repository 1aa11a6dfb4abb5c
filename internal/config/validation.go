package config

import (
	"git.home.luguber.info/inful/presenced/internal/foundation"
)

// Validate checks cross-field invariants that defaults cannot repair.
func (c *Config) Validate() error {
	if c.Wake.Preset != "" {
		if _, ok := c.FindPreset(c.Wake.Preset); !ok {
			return foundation.ConfigurationError("wake preset is not defined in presets").
				WithContext(foundation.Fields{"preset": c.Wake.Preset}).
				Build()
		}
	}

	seen := make(map[string]struct{}, len(c.Presets))
	for _, p := range c.Presets {
		if p.Name == "" {
			return foundation.ConfigurationError("preset name cannot be empty").Build()
		}
		if p.Label == "" {
			return foundation.ConfigurationError("preset label cannot be empty").
				WithContext(foundation.Fields{"preset": p.Name}).
				Build()
		}
		if _, dup := seen[p.Name]; dup {
			return foundation.ConfigurationError("duplicate preset name").
				WithContext(foundation.Fields{"preset": p.Name}).
				Build()
		}
		seen[p.Name] = struct{}{}
	}

	switch c.Generator.Backoff {
	case "fixed", "linear", "exponential":
	default:
		return foundation.ConfigurationError("generator backoff must be fixed, linear or exponential").
			WithContext(foundation.Fields{"backoff": c.Generator.Backoff}).
			Build()
	}

	if c.NATS.Enabled && c.NATS.URL == "" {
		return foundation.ConfigurationError("nats.url is required when nats is enabled").Build()
	}
	if c.NATS.Enabled && c.NATS.Subject == "" {
		return foundation.ConfigurationError("nats.subject is required when nats is enabled").Build()
	}
	if c.History.Enabled && c.History.Path == "" {
		return foundation.ConfigurationError("history.path is required when history is enabled").Build()
	}

	return nil
}
