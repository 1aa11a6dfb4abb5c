package status

import (
	"time"

	"golang.org/x/text/width"

	"git.home.luguber.info/inful/presenced/internal/config"
	"git.home.luguber.info/inful/presenced/internal/foundation"
)

// Factory builds entries with policy applied: per-source default priority
// and lifetime, label truncation and preset lookup. The arbitrator stays
// purely numeric; everything source-specific happens here.
type Factory struct {
	priorities    config.PriorityConfig
	ttls          config.TTLConfig
	presets       map[string]config.Preset
	labelMaxWidth int
}

// NewFactory builds a factory from configuration.
func NewFactory(cfg *config.Config) *Factory {
	presets := make(map[string]config.Preset, len(cfg.Presets))
	for _, p := range cfg.Presets {
		presets[p.Name] = p
	}
	return &Factory{
		priorities:    cfg.Priorities,
		ttls:          cfg.TTLs,
		presets:       presets,
		labelMaxWidth: cfg.LabelMaxWidth,
	}
}

// DefaultPriority returns the configured priority for a source.
func (f *Factory) DefaultPriority(source Source) int {
	switch source {
	case SourceManualOverride:
		return f.priorities.ManualOverride
	case SourceToolPushed:
		return f.priorities.ToolPushed
	default:
		return f.priorities.Scheduled
	}
}

// DefaultTTL returns the configured default lifetime for a source. Zero
// means no default; such entries hold until revoked.
func (f *Factory) DefaultTTL(source Source) time.Duration {
	switch source {
	case SourceManualOverride:
		return f.ttls.ManualOverride.Std()
	case SourceToolPushed:
		return f.ttls.ToolPushed.Std()
	default:
		return f.ttls.Scheduled.Std()
	}
}

// NewEntry builds a validated entry. A zero priority takes the source
// default. A nil validUntil takes the source's default lifetime when one is
// configured, else the entry holds until revoked.
func (f *Factory) NewEntry(source Source, label string, priority int, validFrom time.Time, validUntil *time.Time) (Entry, error) {
	if priority == 0 {
		priority = f.DefaultPriority(source)
	}
	if validUntil == nil {
		if ttl := f.DefaultTTL(source); ttl > 0 {
			u := validFrom.Add(ttl)
			validUntil = &u
		}
	}
	entry := Entry{
		Label:      TruncateLabel(label, f.labelMaxWidth),
		Source:     source,
		Priority:   priority,
		ValidFrom:  validFrom,
		ValidUntil: validUntil,
	}
	if err := entry.Validate(); err != nil {
		return Entry{}, err
	}
	return entry, nil
}

// NewTimedEntry builds an entry valid from now for the given duration.
// A zero duration means no expiry.
func (f *Factory) NewTimedEntry(source Source, label string, priority int, now time.Time, ttl time.Duration) (Entry, error) {
	var until *time.Time
	if ttl > 0 {
		u := now.Add(ttl)
		until = &u
	}
	return f.NewEntry(source, label, priority, now, until)
}

// FromPreset builds an entry from a named preset. The preset's own duration
// applies unless ttl overrides it.
func (f *Factory) FromPreset(name string, source Source, priority int, now time.Time, ttl time.Duration) (Entry, error) {
	preset, ok := f.presets[name]
	if !ok {
		return Entry{}, foundation.NotFoundError("preset").
			WithComponent("status").
			WithContext(foundation.Fields{"preset": name}).
			Build()
	}
	if ttl <= 0 {
		ttl = preset.Duration.Std()
	}
	entry, err := f.NewTimedEntry(source, preset.Label, priority, now, ttl)
	if err != nil {
		return Entry{}, err
	}
	entry.Silent = preset.Silent
	return entry, nil
}

// TruncateLabel trims a label to the given display width, counting wide
// runes (CJK, emoji) as two cells so platform-side cutoffs never split a
// glyph mid-way.
func TruncateLabel(label string, maxWidth int) string {
	if maxWidth <= 0 || label == "" {
		return label
	}
	total := 0
	for i, r := range label {
		w := runeWidth(r)
		if total+w > maxWidth {
			return label[:i]
		}
		total += w
	}
	return label
}

// runeWidth counts East Asian wide and fullwidth runes as two cells.
// Supplementary-plane runes (emoji and friends) also count two: the width
// tables classify most of them neutral, but the platforms rendering these
// labels do not.
func runeWidth(r rune) int {
	switch width.LookupRune(r).Kind() {
	case width.EastAsianWide, width.EastAsianFullwidth:
		return 2
	}
	if r > 0xFFFF {
		return 2
	}
	return 1
}
