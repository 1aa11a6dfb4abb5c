package status

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/presenced/internal/config"
)

func testFactory(t *testing.T) *Factory {
	t.Helper()
	cfg := &config.Config{
		LabelMaxWidth: 8,
		Priorities: config.PriorityConfig{
			Scheduled:      10,
			ManualOverride: 50,
			ToolPushed:     100,
		},
		Presets: []config.Preset{
			{Name: "sleeping", Label: "zzz", Silent: true},
			{Name: "gaming", Label: "playing", Duration: config.Duration(2 * time.Hour)},
		},
	}
	return NewFactory(cfg)
}

func TestFactoryAppliesSourcePriorities(t *testing.T) {
	f := testFactory(t)
	now := time.Now()

	scheduled, err := f.NewEntry(SourceScheduled, "a", 0, now, nil)
	require.NoError(t, err)
	assert.Equal(t, 10, scheduled.Priority)

	manual, err := f.NewEntry(SourceManualOverride, "b", 0, now, nil)
	require.NoError(t, err)
	assert.Equal(t, 50, manual.Priority)

	tool, err := f.NewEntry(SourceToolPushed, "c", 0, now, nil)
	require.NoError(t, err)
	assert.Equal(t, 100, tool.Priority)

	explicit, err := f.NewEntry(SourceScheduled, "d", 7, now, nil)
	require.NoError(t, err)
	assert.Equal(t, 7, explicit.Priority)
}

func TestFactoryAppliesDefaultTTL(t *testing.T) {
	cfg := &config.Config{
		LabelMaxWidth: 8,
		TTLs:          config.TTLConfig{ToolPushed: config.Duration(45 * time.Minute)},
	}
	f := NewFactory(cfg)
	now := time.Now()

	tool, err := f.NewEntry(SourceToolPushed, "llm pick", 0, now, nil)
	require.NoError(t, err)
	require.NotNil(t, tool.ValidUntil)
	assert.Equal(t, now.Add(45*time.Minute), *tool.ValidUntil)

	// An explicit expiry wins over the source default.
	until := now.Add(time.Minute)
	explicit, err := f.NewEntry(SourceToolPushed, "short", 0, now, &until)
	require.NoError(t, err)
	assert.Equal(t, until, *explicit.ValidUntil)

	// Sources without a configured default still hold until revoked.
	manual, err := f.NewEntry(SourceManualOverride, "afk", 0, now, nil)
	require.NoError(t, err)
	assert.Nil(t, manual.ValidUntil)
}

func TestFactoryTimedEntry(t *testing.T) {
	f := testFactory(t)
	now := time.Now()

	timed, err := f.NewTimedEntry(SourceToolPushed, "focus", 0, now, 45*time.Minute)
	require.NoError(t, err)
	require.NotNil(t, timed.ValidUntil)
	assert.Equal(t, now.Add(45*time.Minute), *timed.ValidUntil)

	open, err := f.NewTimedEntry(SourceToolPushed, "focus", 0, now, 0)
	require.NoError(t, err)
	assert.Nil(t, open.ValidUntil)
}

func TestFactoryFromPreset(t *testing.T) {
	f := testFactory(t)
	now := time.Now()

	sleeping, err := f.FromPreset("sleeping", SourceScheduled, 0, now, 0)
	require.NoError(t, err)
	assert.Equal(t, "zzz", sleeping.Label)
	assert.True(t, sleeping.Silent)
	assert.Nil(t, sleeping.ValidUntil)

	gaming, err := f.FromPreset("gaming", SourceManualOverride, 0, now, 0)
	require.NoError(t, err)
	require.NotNil(t, gaming.ValidUntil)
	assert.Equal(t, now.Add(2*time.Hour), *gaming.ValidUntil)

	_, err = f.FromPreset("unknown", SourceScheduled, 0, now, 0)
	require.Error(t, err)
}

func TestTruncateLabel(t *testing.T) {
	tests := []struct {
		name  string
		in    string
		width int
		want  string
	}{
		{"fits", "busy", 8, "busy"},
		{"ascii cut", "very long label", 8, "very lon"},
		{"wide runes count double", "睡觉中睡觉中", 4, "睡觉"},
		{"mixed", "at工作", 4, "at工"},
		{"fullwidth forms count double", "ＡＢＣ", 4, "ＡＢ"},
		{"halfwidth katakana counts single", "ｱｲｳｴｵ", 4, "ｱｲｳｴ"},
		{"emoji counts double", "😀😀😀", 4, "😀😀"},
		{"supplementary plane counts double", "𝐀𝐁𝐂", 4, "𝐀𝐁"},
		{"zero width passthrough", "anything", 0, "anything"},
		{"empty", "", 8, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, TruncateLabel(tt.in, tt.width))
		})
	}
}
