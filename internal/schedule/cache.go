package schedule

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"git.home.luguber.info/inful/presenced/internal/foundation"
)

// Cache persists each day's generated slots so a restart does not pay for
// another generation round-trip. One JSON file per day.
type Cache struct {
	dir string
}

// NewCache ensures the cache directory exists.
func NewCache(dir string) (*Cache, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, foundation.PersistenceError("failed to create schedule cache directory").
			WithComponent("schedule").
			WithCause(err).
			Build()
	}
	return &Cache{dir: dir}, nil
}

func (c *Cache) dayPath(day string) string {
	return filepath.Join(c.dir, fmt.Sprintf("schedule-%s.json", day))
}

// LoadDay returns the cached slots for a day, or None when absent. A
// corrupt cache file is treated as absent; the schedule regenerates.
func (c *Cache) LoadDay(day string) foundation.Option[[]PlannedSlot] {
	data, err := os.ReadFile(c.dayPath(day))
	if err != nil {
		return foundation.None[[]PlannedSlot]()
	}
	var slots []PlannedSlot
	if err := json.Unmarshal(data, &slots); err != nil || len(slots) == 0 {
		return foundation.None[[]PlannedSlot]()
	}
	return foundation.Some(slots)
}

// SaveDay writes the day's slots atomically.
func (c *Cache) SaveDay(day string, slots []PlannedSlot) error {
	data, err := json.MarshalIndent(slots, "", "  ")
	if err != nil {
		return foundation.PersistenceError("failed to marshal schedule cache").
			WithComponent("schedule").
			WithCause(err).
			Build()
	}
	path := c.dayPath(day)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return foundation.PersistenceError("failed to write schedule cache").
			WithComponent("schedule").
			WithCause(err).
			Build()
	}
	if err := os.Rename(tmp, path); err != nil {
		return foundation.PersistenceError("failed to replace schedule cache").
			WithComponent("schedule").
			WithCause(err).
			Build()
	}
	return nil
}
