package snapshot

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/presenced/internal/foundation"
	"git.home.luguber.info/inful/presenced/internal/status"
)

func testGateway(t *testing.T) *Gateway {
	t.Helper()
	g, err := NewGateway(t.TempDir(), time.Second)
	require.NoError(t, err)
	return g
}

func sampleDocument() Document {
	now := time.Date(2026, 8, 26, 12, 0, 0, 0, time.UTC)
	until := now.Add(time.Hour)
	active := status.Entry{
		ID:        "entry-1",
		Label:     "busy",
		Source:    status.SourceManualOverride,
		Priority:  50,
		ValidFrom: now,
		CreatedAt: now,
	}
	pending := status.Entry{
		ID:         "entry-2",
		Label:      "sleeping",
		Source:     status.SourceScheduled,
		Priority:   10,
		ValidFrom:  now.Add(2 * time.Hour),
		ValidUntil: &until,
		CreatedAt:  now,
	}
	return Document{
		Version:         FormatVersion,
		ActiveEntry:     &active,
		Candidates:      []status.Entry{active, pending},
		DailySchedule:   []status.Entry{pending},
		ScheduleDay:     "2026-08-26",
		LastEvaluatedAt: now,
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	g := testGateway(t)
	doc := sampleDocument()

	require.NoError(t, g.Save(t.Context(), doc))

	loaded, err := g.Load(t.Context())
	require.NoError(t, err)
	require.True(t, loaded.IsSome())

	got := loaded.Unwrap()
	assert.Equal(t, doc.Candidates, got.Candidates)
	assert.Equal(t, doc.DailySchedule, got.DailySchedule)
	assert.Equal(t, doc.ScheduleDay, got.ScheduleDay)
	require.NotNil(t, got.ActiveEntry)
	assert.Equal(t, "entry-1", got.ActiveEntry.ID)
	assert.True(t, doc.LastEvaluatedAt.Equal(got.LastEvaluatedAt))

	// No temp file may survive a completed save.
	_, err = os.Stat(g.Path() + ".tmp")
	assert.True(t, os.IsNotExist(err))
}

func TestLoadMissingSnapshotReturnsNone(t *testing.T) {
	g := testGateway(t)

	loaded, err := g.Load(t.Context())
	require.NoError(t, err)
	assert.True(t, loaded.IsNone())
}

func TestLoadCorruptSnapshot(t *testing.T) {
	g := testGateway(t)
	require.NoError(t, os.WriteFile(g.Path(), []byte("{not json"), 0644))

	loaded, err := g.Load(t.Context())
	require.Error(t, err)
	assert.True(t, foundation.HasCode(err, foundation.ErrorCodeCorruptState))
	assert.True(t, loaded.IsNone())
}

func TestLoadFutureVersionSnapshot(t *testing.T) {
	g := testGateway(t)
	require.NoError(t, os.WriteFile(g.Path(), []byte(`{"version": 99, "candidates": []}`), 0644))

	loaded, err := g.Load(t.Context())
	require.Error(t, err)
	assert.True(t, foundation.HasCode(err, foundation.ErrorCodeUnsupportedVersion))
	assert.True(t, loaded.IsNone())
}

func TestSaveOverwritesPreviousSnapshot(t *testing.T) {
	g := testGateway(t)
	doc := sampleDocument()
	require.NoError(t, g.Save(t.Context(), doc))

	doc.ScheduleDay = "2026-08-27"
	doc.ActiveEntry = nil
	require.NoError(t, g.Save(t.Context(), doc))

	loaded, err := g.Load(t.Context())
	require.NoError(t, err)
	got := loaded.Unwrap()
	assert.Equal(t, "2026-08-27", got.ScheduleDay)
	assert.Nil(t, got.ActiveEntry)
}

func TestSaveTimesOutWithPersistenceError(t *testing.T) {
	g := testGateway(t)

	ctx, cancel := context.WithCancel(t.Context())
	cancel() // already-canceled context forces the timeout branch

	err := g.Save(ctx, sampleDocument())
	if err != nil {
		assert.True(t, foundation.HasCode(err, foundation.ErrorCodePersistence))
	}
}

func TestFromStateAndBack(t *testing.T) {
	now := time.Date(2026, 8, 26, 9, 0, 0, 0, time.UTC)
	entries := []status.Entry{
		{ID: "a", Label: "one", Source: status.SourceScheduled, Priority: 10, ValidFrom: now, CreatedAt: now},
		{ID: "b", Label: "two", Source: status.SourceToolPushed, Priority: 100, ValidFrom: now, CreatedAt: now},
	}
	st := status.State{Candidates: entries, ActiveID: "b", LastEvaluatedAt: now}

	doc := FromState(st, "2026-08-26", entries[:1])
	require.NotNil(t, doc.ActiveEntry)
	assert.Equal(t, "b", doc.ActiveEntry.ID)
	assert.Equal(t, FormatVersion, doc.Version)

	back := doc.State()
	assert.Equal(t, "b", back.ActiveID)
	assert.Equal(t, entries, back.Candidates)
}

func TestNewGatewayCreatesDataDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "data")
	_, err := NewGateway(dir, time.Second)
	require.NoError(t, err)

	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}
