// Package schedule holds the current day's planned status windows and the
// client for the external generator that produces them.
package schedule

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"git.home.luguber.info/inful/presenced/internal/foundation"
)

// DayFormat is the calendar-day key used throughout: cache file names,
// snapshot fields and generator requests.
const DayFormat = "2006-01-02"

// PlannedSlot is one planned status window as produced by the generator.
// ValidFrom/ValidUntil are wall-clock "HH:MM" strings within the day; a
// window whose end is not after its start wraps past midnight.
type PlannedSlot struct {
	Label      string `json:"label"`
	ValidFrom  string `json:"validFrom"`
	ValidUntil string `json:"validUntil"`
	Priority   int    `json:"priority,omitempty"`
	Silent     bool   `json:"silent,omitempty"`
}

// labelAliases maps sloppy generator field names onto the canonical ones.
// LLM output drifts; accepting the common synonyms keeps whole batches from
// being thrown away over naming.
var slotAliases = map[string][]string{
	"label":      {"text", "description", "desc", "activity", "wording", "content", "status_text", "summary"},
	"validFrom":  {"valid_from", "start", "from", "begin"},
	"validUntil": {"valid_until", "end", "to", "until"},
	"silent":     {"is_silent", "mute", "quiet"},
}

// UnmarshalJSON normalizes aliases and combined "HH:MM-HH:MM" time fields
// before decoding into the canonical layout.
func (s *PlannedSlot) UnmarshalJSON(data []byte) error {
	raw := map[string]json.RawMessage{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	for canonical, aliases := range slotAliases {
		if _, ok := raw[canonical]; ok {
			continue
		}
		for _, alias := range aliases {
			if v, ok := raw[alias]; ok {
				raw[canonical] = v
				break
			}
		}
	}

	// A single "time": "08:00-12:00" field splits into the two bounds.
	if _, ok := raw["validFrom"]; !ok {
		if v, ok := raw["time"]; ok {
			var combined string
			if err := json.Unmarshal(v, &combined); err == nil {
				if from, until, ok := splitTimeRange(combined); ok {
					fromJSON, _ := json.Marshal(from)
					untilJSON, _ := json.Marshal(until)
					raw["validFrom"] = fromJSON
					raw["validUntil"] = untilJSON
				}
			}
		}
	}

	type plain PlannedSlot
	var decoded plain
	normalized, err := json.Marshal(raw)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(normalized, &decoded); err != nil {
		return err
	}

	decoded.ValidFrom = cleanClock(decoded.ValidFrom)
	decoded.ValidUntil = cleanClock(decoded.ValidUntil)
	*s = PlannedSlot(decoded)
	return nil
}

// Window resolves the slot's clock bounds against a calendar day. Windows
// that end at or before their start wrap into the next day.
func (s PlannedSlot) Window(day time.Time) (time.Time, time.Time, error) {
	from, err := clockOn(day, s.ValidFrom)
	if err != nil {
		return time.Time{}, time.Time{}, foundation.InvalidEntryError("slot validFrom is not a valid HH:MM time").
			WithComponent("schedule").
			WithContext(foundation.Fields{"validFrom": s.ValidFrom}).
			Build()
	}
	until, err := clockOn(day, s.ValidUntil)
	if err != nil {
		return time.Time{}, time.Time{}, foundation.InvalidEntryError("slot validUntil is not a valid HH:MM time").
			WithComponent("schedule").
			WithContext(foundation.Fields{"validUntil": s.ValidUntil}).
			Build()
	}
	if !until.After(from) {
		until = until.AddDate(0, 0, 1) // overnight window
	}
	return from, until, nil
}

func splitTimeRange(combined string) (string, string, bool) {
	combined = strings.ReplaceAll(combined, "：", ":")
	parts := strings.SplitN(combined, "-", 2)
	if len(parts) != 2 {
		return "", "", false
	}
	return strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1]), true
}

func cleanClock(raw string) string {
	return strings.TrimSpace(strings.ReplaceAll(raw, "：", ":"))
}

func clockOn(day time.Time, clock string) (time.Time, error) {
	parsed, err := time.Parse("15:04", clock)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse clock %q: %w", clock, err)
	}
	return time.Date(day.Year(), day.Month(), day.Day(),
		parsed.Hour(), parsed.Minute(), 0, 0, day.Location()), nil
}
