package logfields

import "log/slog"

// Canonical log field name constants to avoid drift across packages.
const (
	KeyEntryID    = "entry_id"
	KeyLabel      = "label"
	KeySource     = "source"
	KeyPriority   = "priority"
	KeyDay        = "day"
	KeySubject    = "subject"
	KeyPath       = "path"
	KeyCount      = "count"
	KeyDurationMS = "duration_ms"
	KeyError      = "error"
)

// Simple helpers returning slog.Attr. Keeping each granular means callers can compose.
func EntryID(id string) slog.Attr      { return slog.String(KeyEntryID, id) }
func Label(l string) slog.Attr         { return slog.String(KeyLabel, l) }
func Source(s string) slog.Attr        { return slog.String(KeySource, s) }
func Priority(p int) slog.Attr         { return slog.Int(KeyPriority, p) }
func Day(d string) slog.Attr           { return slog.String(KeyDay, d) }
func Subject(s string) slog.Attr       { return slog.String(KeySubject, s) }
func Path(p string) slog.Attr          { return slog.String(KeyPath, p) }
func Count(n int) slog.Attr            { return slog.Int(KeyCount, n) }
func DurationMS(ms float64) slog.Attr  { return slog.Float64(KeyDurationMS, ms) }
func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}
