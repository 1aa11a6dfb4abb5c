// Package snapshot persists arbitration state across restarts as a
// versioned JSON document, written atomically.
package snapshot

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"git.home.luguber.info/inful/presenced/internal/foundation"
	"git.home.luguber.info/inful/presenced/internal/status"
)

// FormatVersion gates forward-compatible reads. A reader that encounters a
// newer version refuses to guess and falls back to empty state.
const FormatVersion = 1

const snapshotFile = "snapshot.json"

// Document is the persisted snapshot layout.
type Document struct {
	Version         int            `json:"version"`
	ActiveEntry     *status.Entry  `json:"active_entry,omitempty"`
	Candidates      []status.Entry `json:"candidates"`
	DailySchedule   []status.Entry `json:"daily_schedule,omitempty"`
	ScheduleDay     string         `json:"schedule_day,omitempty"`
	LastEvaluatedAt time.Time      `json:"last_evaluated_at"`
}

// FromState builds a document from an arbitration state plus the current
// schedule view.
func FromState(st status.State, scheduleDay string, schedule []status.Entry) Document {
	doc := Document{
		Version:         FormatVersion,
		Candidates:      st.Candidates,
		DailySchedule:   schedule,
		ScheduleDay:     scheduleDay,
		LastEvaluatedAt: st.LastEvaluatedAt,
	}
	for i := range st.Candidates {
		if st.Candidates[i].ID == st.ActiveID {
			doc.ActiveEntry = &st.Candidates[i]
			break
		}
	}
	return doc
}

// State reconstructs the arbitration state from the document.
func (d Document) State() status.State {
	st := status.State{
		Candidates:      d.Candidates,
		LastEvaluatedAt: d.LastEvaluatedAt,
	}
	if d.ActiveEntry != nil {
		st.ActiveID = d.ActiveEntry.ID
	}
	return st
}

// Gateway writes and reads snapshot documents under a data directory.
// Saves are atomic (temp file + rename) and bounded by a timeout, so a
// stuck disk degrades durability without stalling the live decision.
type Gateway struct {
	path    string
	timeout time.Duration
}

// NewGateway creates the data directory if needed and returns a gateway.
func NewGateway(dataDir string, timeout time.Duration) (*Gateway, error) {
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, foundation.PersistenceError("failed to create data directory").
			WithComponent("snapshot").
			WithCause(err).
			WithContext(foundation.Fields{"data_dir": dataDir}).
			Build()
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Gateway{
		path:    filepath.Join(dataDir, snapshotFile),
		timeout: timeout,
	}, nil
}

// Path returns the snapshot file location.
func (g *Gateway) Path() string { return g.path }

// Save writes a complete snapshot. The write happens on a temporary file
// that atomically replaces the previous snapshot, so a crash mid-write
// never leaves a partial file observable by Load.
func (g *Gateway) Save(ctx context.Context, doc Document) error {
	doc.Version = FormatVersion

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return foundation.PersistenceError("failed to marshal snapshot").
			WithComponent("snapshot").
			WithOperation("save").
			WithCause(err).
			Build()
	}

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- g.writeAtomic(data)
	}()

	select {
	case err := <-done:
		if err != nil {
			return foundation.PersistenceError("failed to write snapshot").
				WithComponent("snapshot").
				WithOperation("save").
				WithCause(err).
				Build()
		}
		return nil
	case <-ctx.Done():
		return foundation.PersistenceError("snapshot write timed out").
			WithComponent("snapshot").
			WithOperation("save").
			WithCause(ctx.Err()).
			Build()
	}
}

func (g *Gateway) writeAtomic(data []byte) error {
	tmp := g.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("write temporary snapshot: %w", err)
	}
	if err := os.Rename(tmp, g.path); err != nil {
		return fmt.Errorf("replace snapshot: %w", err)
	}
	return nil
}

// Load returns the last good snapshot, or None when no snapshot exists.
// Corrupt data and unsupported future versions are reported as classified
// errors; callers fall back to an empty state rather than crashing.
func (g *Gateway) Load(ctx context.Context) (foundation.Option[Document], error) {
	data, err := os.ReadFile(g.path)
	if err != nil {
		if os.IsNotExist(err) {
			return foundation.None[Document](), nil
		}
		return foundation.None[Document](), foundation.CorruptStateError("failed to read snapshot").
			WithComponent("snapshot").
			WithOperation("load").
			WithCause(err).
			Build()
	}

	// Probe the version first so an unknown future format is distinguishable
	// from plain corruption.
	var probe struct {
		Version int `json:"version"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return foundation.None[Document](), foundation.CorruptStateError("snapshot is not valid JSON").
			WithComponent("snapshot").
			WithOperation("load").
			WithCause(err).
			WithContext(foundation.Fields{"path": g.path}).
			Build()
	}
	if probe.Version > FormatVersion {
		return foundation.None[Document](), foundation.UnsupportedVersionError("snapshot was written by a newer version").
			WithComponent("snapshot").
			WithOperation("load").
			WithContext(foundation.Fields{
				"snapshot_version":  probe.Version,
				"supported_version": FormatVersion,
			}).
			Build()
	}

	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return foundation.None[Document](), foundation.CorruptStateError("snapshot does not match the expected layout").
			WithComponent("snapshot").
			WithOperation("load").
			WithCause(err).
			Build()
	}
	return foundation.Some(doc), nil
}
