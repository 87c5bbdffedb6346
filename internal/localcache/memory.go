package localcache

import (
	"errors"
	"fmt"

	"github.com/coocood/freecache"

	"github.com/makstermee/Gym-planner/internal/workout"
)

const (
	megabyte = 1024 * 1024
	// DefaultMemorySize is the freecache arena size used by NewMemory(0).
	// freecache rejects values larger than 1/1024 of the arena, so this caps a
	// cached document at 64 KiB.
	DefaultMemorySize = 64 * megabyte
)

// Memory is a process-local cache backed by freecache. Entries never expire.
type Memory struct {
	cache *freecache.Cache
}

var _ Cache = (*Memory)(nil)

// NewMemory allocates a cache of size bytes, or DefaultMemorySize when size
// is not positive.
func NewMemory(size int) *Memory {
	if size <= 0 {
		size = DefaultMemorySize
	}
	return &Memory{cache: freecache.NewCache(size)}
}

// Get implements Cache.
func (m *Memory) Get(key string) (workout.Document, bool, error) {
	data, err := m.cache.Get([]byte(key))
	if errors.Is(err, freecache.ErrNotFound) {
		return workout.Document{}, false, nil
	}
	if err != nil {
		return workout.Document{}, false, fmt.Errorf("read cache: %w", err)
	}
	doc, err := workout.Unmarshal(data)
	if err != nil {
		return workout.Document{}, false, fmt.Errorf("read cache: %w", err)
	}
	return doc, true, nil
}

// Set implements Cache.
func (m *Memory) Set(key string, doc workout.Document) error {
	data, err := workout.Marshal(doc)
	if err != nil {
		return err
	}
	if err := m.cache.Set([]byte(key), data, 0); err != nil {
		return fmt.Errorf("write cache: %w", err)
	}
	return nil
}

// Clear implements Cache.
func (m *Memory) Clear(key string) error {
	m.cache.Del([]byte(key))
	return nil
}
