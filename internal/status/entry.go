// Package status implements the presence status arbitration core: the
// candidate entry model and the state machine that decides which entry is
// active at any instant.
package status

import (
	"time"

	"git.home.luguber.info/inful/presenced/internal/foundation"
)

// Source identifies where a candidate entry came from.
type Source string

const (
	SourceScheduled      Source = "scheduled"
	SourceManualOverride Source = "manual_override"
	SourceToolPushed     Source = "tool_pushed"
)

// Valid reports whether s is a known source.
func (s Source) Valid() bool {
	switch s {
	case SourceScheduled, SourceManualOverride, SourceToolPushed:
		return true
	}
	return false
}

// Entry is a candidate status. ValidUntil is nil for entries that hold
// until explicitly revoked or superseded.
type Entry struct {
	ID         string     `json:"id"`
	Label      string     `json:"label"`
	Source     Source     `json:"source"`
	Priority   int        `json:"priority"`
	ValidFrom  time.Time  `json:"valid_from"`
	ValidUntil *time.Time `json:"valid_until,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	Silent     bool       `json:"silent,omitempty"`
}

// Expired reports whether the entry's validity window has elapsed.
// Entries without ValidUntil never expire.
func (e Entry) Expired(now time.Time) bool {
	return e.ValidUntil != nil && e.ValidUntil.Before(now)
}

// Visible reports whether the entry's window has opened. Future-scheduled
// entries stay invisible until ValidFrom.
func (e Entry) Visible(now time.Time) bool {
	return !e.ValidFrom.After(now)
}

// Validate checks the entry invariants: a non-empty label and an ordered
// validity window.
func (e Entry) Validate() error {
	if e.Label == "" {
		return foundation.InvalidEntryError("entry label cannot be empty").
			WithComponent("status").
			Build()
	}
	if !e.Source.Valid() {
		return foundation.InvalidEntryError("unknown entry source").
			WithComponent("status").
			WithContext(foundation.Fields{"source": string(e.Source)}).
			Build()
	}
	if e.ValidUntil != nil && e.ValidUntil.Before(e.ValidFrom) {
		return foundation.InvalidEntryError("entry window is malformed: valid_from is after valid_until").
			WithComponent("status").
			WithContext(foundation.Fields{
				"valid_from":  e.ValidFrom,
				"valid_until": *e.ValidUntil,
			}).
			Build()
	}
	return nil
}

// ActiveChange describes a transition of the active status. From or To is
// nil when the corresponding side is "no status".
type ActiveChange struct {
	From *Entry    `json:"from,omitempty"`
	To   *Entry    `json:"to,omitempty"`
	At   time.Time `json:"at"`
}

// ToLabel returns the new active label, or empty for "no status".
func (c ActiveChange) ToLabel() string {
	if c.To == nil {
		return ""
	}
	return c.To.Label
}

// FromLabel returns the previous active label, or empty.
func (c ActiveChange) FromLabel() string {
	if c.From == nil {
		return ""
	}
	return c.From.Label
}
