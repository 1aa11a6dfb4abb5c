package status

// Comparator reports whether a outranks b for active selection. The
// arbitrator only requires that the ordering is total; policy lives in the
// comparator so it can change without touching the state machine.
type Comparator func(a, b Entry) bool

// DefaultComparator orders by priority (higher wins), then by CreatedAt
// (most recent wins), then by lexicographically smallest ID. The final ID
// tie-break keeps selection deterministic even for otherwise identical
// entries.
func DefaultComparator(a, b Entry) bool {
	if a.Priority != b.Priority {
		return a.Priority > b.Priority
	}
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.After(b.CreatedAt)
	}
	return a.ID < b.ID
}
