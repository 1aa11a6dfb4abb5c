package status

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"git.home.luguber.info/inful/presenced/internal/foundation"
)

// State is a copyable view of the arbitrator's internals, used for
// persistence snapshots and restore.
type State struct {
	Candidates      []Entry   `json:"candidates"`
	ActiveID        string    `json:"active_id,omitempty"`
	LastEvaluatedAt time.Time `json:"last_evaluated_at"`
}

// MutateHook is invoked after every state-mutating operation with a copy of
// the resulting state. Hooks run while the arbitrator lock is held and must
// not call back into the Arbitrator.
type MutateHook func(State)

// ChangeHook is invoked whenever a mutation changes the active entry.
// Same locking caveat as MutateHook.
type ChangeHook func(ActiveChange)

// Arbitrator owns the single ArbitrationState and decides which candidate
// is active. All mutating operations are serialized under one mutex, so
// near-simultaneous commands, tool calls and timer ticks resolve in a
// consistent total order.
type Arbitrator struct {
	mu              sync.Mutex
	candidates      map[string]Entry
	activeID        string
	lastEvaluatedAt time.Time

	cmp      Comparator
	onMutate MutateHook
	onChange ChangeHook
}

// Option configures an Arbitrator.
type Option func(*Arbitrator)

// WithComparator swaps the selection policy.
func WithComparator(cmp Comparator) Option {
	return func(a *Arbitrator) { a.cmp = cmp }
}

// WithMutateHook registers the write-through persistence hook.
func WithMutateHook(h MutateHook) Option {
	return func(a *Arbitrator) { a.onMutate = h }
}

// WithChangeHook registers the active-change notification hook.
func WithChangeHook(h ChangeHook) Option {
	return func(a *Arbitrator) { a.onChange = h }
}

// New creates an empty arbitrator.
func New(opts ...Option) *Arbitrator {
	a := &Arbitrator{
		candidates: make(map[string]Entry),
		cmp:        DefaultComparator,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Submit validates the entry, assigns it a fresh id, inserts it and
// immediately re-evaluates. The assigned id is returned so the caller can
// revoke later.
func (a *Arbitrator) Submit(entry Entry) (string, error) {
	return a.SubmitAt(time.Now(), entry)
}

// SubmitAt is Submit with an explicit evaluation time.
func (a *Arbitrator) SubmitAt(now time.Time, entry Entry) (string, error) {
	if err := entry.Validate(); err != nil {
		return "", err
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	entry.ID = uuid.NewString()
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = now
	}
	a.candidates[entry.ID] = entry

	change := a.evaluateLocked(now)
	a.afterMutationLocked(change)
	return entry.ID, nil
}

// Revoke removes a candidate and re-evaluates. Revoking an unknown id is a
// no-op, not an error.
func (a *Arbitrator) Revoke(id string) {
	a.RevokeAt(time.Now(), id)
}

// RevokeAt is Revoke with an explicit evaluation time.
func (a *Arbitrator) RevokeAt(now time.Time, id string) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if _, ok := a.candidates[id]; !ok {
		return
	}
	delete(a.candidates, id)

	change := a.evaluateLocked(now)
	a.afterMutationLocked(change)
}

// RevokeBySource removes every candidate with the given source and
// re-evaluates once. Returns the number of entries removed. Used by
// schedule replacement, which must never touch override or tool entries.
func (a *Arbitrator) RevokeBySource(now time.Time, source Source) int {
	a.mu.Lock()
	defer a.mu.Unlock()

	removed := 0
	for id, e := range a.candidates {
		if e.Source == source {
			delete(a.candidates, id)
			removed++
		}
	}
	if removed == 0 {
		return 0
	}

	change := a.evaluateLocked(now)
	a.afterMutationLocked(change)
	return removed
}

// Evaluate sweeps expired candidates, selects the active entry for now and
// returns the transition, or nil when the active entry is unchanged.
// Repeated calls with the same now and candidate set are idempotent.
func (a *Arbitrator) Evaluate(now time.Time) *ActiveChange {
	a.mu.Lock()
	defer a.mu.Unlock()

	before := len(a.candidates)
	change := a.evaluateLocked(now)
	mutated := change != nil || len(a.candidates) != before
	if mutated {
		a.afterMutationLocked(change)
	}
	return change
}

// CurrentActive returns the currently selected entry without mutating state.
func (a *Arbitrator) CurrentActive() foundation.Option[Entry] {
	a.mu.Lock()
	defer a.mu.Unlock()

	if e, ok := a.candidates[a.activeID]; ok {
		return foundation.Some(e)
	}
	return foundation.None[Entry]()
}

// CandidateCount reports the number of live candidates; read-only, for
// introspection endpoints.
func (a *Arbitrator) CandidateCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.candidates)
}

// Snapshot returns a copy of the current state for persistence.
func (a *Arbitrator) Snapshot() State {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.snapshotLocked()
}

// Restore replaces the arbitrator's state with a persisted snapshot. Meant
// for process start, before any other operation runs.
func (a *Arbitrator) Restore(s State) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.candidates = make(map[string]Entry, len(s.Candidates))
	for _, e := range s.Candidates {
		if e.ID == "" {
			continue
		}
		a.candidates[e.ID] = e
	}
	a.activeID = s.ActiveID
	a.lastEvaluatedAt = s.LastEvaluatedAt
	if _, ok := a.candidates[a.activeID]; !ok {
		a.activeID = ""
	}
}

// evaluateLocked runs the core algorithm: sweep, filter, select.
func (a *Arbitrator) evaluateLocked(now time.Time) *ActiveChange {
	prevID := a.activeID
	var prev *Entry
	if e, ok := a.candidates[prevID]; ok {
		copied := e
		prev = &copied
	}

	// Sweep: expiration is permanent; expired entries are never reconsidered.
	for id, e := range a.candidates {
		if e.Expired(now) {
			delete(a.candidates, id)
		}
	}

	// Filter + select in one pass over the live set.
	var best *Entry
	for _, e := range a.candidates {
		if !e.Visible(now) {
			continue
		}
		if best == nil || a.cmp(e, *best) {
			copied := e
			best = &copied
		}
	}

	newID := ""
	if best != nil {
		newID = best.ID
	}
	if newID == prevID {
		return nil
	}

	a.activeID = newID
	a.lastEvaluatedAt = now
	return &ActiveChange{From: prev, To: best, At: now}
}

func (a *Arbitrator) snapshotLocked() State {
	candidates := make([]Entry, 0, len(a.candidates))
	for _, e := range a.candidates {
		candidates = append(candidates, e)
	}
	return State{
		Candidates:      candidates,
		ActiveID:        a.activeID,
		LastEvaluatedAt: a.lastEvaluatedAt,
	}
}

func (a *Arbitrator) afterMutationLocked(change *ActiveChange) {
	if a.onMutate != nil {
		a.onMutate(a.snapshotLocked())
	}
	if change != nil && a.onChange != nil {
		a.onChange(*change)
	}
}
