package schedule

import (
	"log/slog"
	"sync"
	"time"

	"git.home.luguber.info/inful/presenced/internal/logfields"
	"git.home.luguber.info/inful/presenced/internal/status"
)

// Arbiter is the narrow slice of the arbitrator the store needs.
type Arbiter interface {
	SubmitAt(now time.Time, entry status.Entry) (string, error)
	RevokeBySource(now time.Time, source status.Source) int
}

// EntryFactory builds scheduled entries with policy applied.
type EntryFactory interface {
	NewEntry(source status.Source, label string, priority int, validFrom time.Time, validUntil *time.Time) (status.Entry, error)
}

// ReplaceReport summarizes a schedule replacement.
type ReplaceReport struct {
	Day      string  `json:"day"`
	Revoked  int     `json:"revoked"`
	Accepted int     `json:"accepted"`
	Rejected []error `json:"-"`
}

// Store holds the current DailySchedule. Replacement is wholesale: all
// prior scheduled candidates are revoked before the new batch is submitted,
// so stale scheduled entries cannot survive a regeneration even when the
// new schedule has gaps. Override and tool entries are never touched.
type Store struct {
	mu      sync.Mutex
	day     string
	entries []status.Entry

	arb     Arbiter
	factory EntryFactory
}

// NewStore creates an empty schedule store bound to an arbitrator.
func NewStore(arb Arbiter, factory EntryFactory) *Store {
	return &Store{arb: arb, factory: factory}
}

// Replace swaps the schedule for the given day. Malformed slots are
// rejected individually; the rest of the batch still applies.
func (s *Store) Replace(now time.Time, day time.Time, slots []PlannedSlot) ReplaceReport {
	s.mu.Lock()
	defer s.mu.Unlock()

	dayKey := day.Format(DayFormat)
	report := ReplaceReport{Day: dayKey}

	report.Revoked = s.arb.RevokeBySource(now, status.SourceScheduled)

	accepted := make([]status.Entry, 0, len(slots))
	for _, slot := range slots {
		from, until, err := slot.Window(day)
		if err != nil {
			report.Rejected = append(report.Rejected, err)
			slog.Warn("Rejected malformed schedule slot",
				logfields.Day(dayKey),
				logfields.Label(slot.Label),
				logfields.Error(err))
			continue
		}
		entry, err := s.factory.NewEntry(status.SourceScheduled, slot.Label, slot.Priority, from, &until)
		if err != nil {
			report.Rejected = append(report.Rejected, err)
			slog.Warn("Rejected malformed schedule slot",
				logfields.Day(dayKey),
				logfields.Label(slot.Label),
				logfields.Error(err))
			continue
		}
		entry.Silent = slot.Silent

		id, err := s.arb.SubmitAt(now, entry)
		if err != nil {
			report.Rejected = append(report.Rejected, err)
			continue
		}
		entry.ID = id
		accepted = append(accepted, entry)
		report.Accepted++
	}

	s.day = dayKey
	s.entries = accepted

	slog.Info("Daily schedule replaced",
		logfields.Day(dayKey),
		logfields.Count(report.Accepted),
		slog.Int("revoked", report.Revoked),
		slog.Int("rejected", len(report.Rejected)))
	return report
}

// Day returns the calendar day the current schedule covers, or empty.
func (s *Store) Day() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.day
}

// EntriesAsOf returns the schedule entries when day matches the loaded
// schedule, else nil.
func (s *Store) EntriesAsOf(day string) []status.Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	if day != s.day {
		return nil
	}
	out := make([]status.Entry, len(s.entries))
	copy(out, s.entries)
	return out
}

// Entries returns a copy of the current schedule entries.
func (s *Store) Entries() []status.Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]status.Entry, len(s.entries))
	copy(out, s.entries)
	return out
}

// Restore reinstates the schedule view from a persisted snapshot. The
// entries themselves are restored into the arbitrator separately; this only
// rebuilds the read-mostly view.
func (s *Store) Restore(day string, entries []status.Entry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.day = day
	s.entries = entries
}
