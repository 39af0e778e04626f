package cache

import (
	"context"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/kjstillabower/weather-outfit-service/internal/models"
)

// Cache stores assembled snapshots per grid cell.
// Get returns a snapshot only while it is younger than the TTL it was stored with.
type Cache interface {
	Get(ctx context.Context, grid models.GridCoordinate) (models.Snapshot, bool, error)
	Set(ctx context.Context, grid models.GridCoordinate, snap models.Snapshot, ttl time.Duration) error
}

// InMemoryCache implements Cache with a map guarded by a RWMutex. Entries are
// never evicted except by a later Set or a Get after expiry.
type InMemoryCache struct {
	mu    sync.RWMutex
	clock clockwork.Clock
	data  map[string]cacheEntry
}

type cacheEntry struct {
	snap      models.Snapshot
	expiresAt time.Time
}

// NewInMemoryCache creates an in-memory cache reading time from clock.
func NewInMemoryCache(clock clockwork.Clock) *InMemoryCache {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &InMemoryCache{
		clock: clock,
		data:  make(map[string]cacheEntry),
	}
}

// Get returns (snap, true, nil) while now is strictly before created + ttl.
func (c *InMemoryCache) Get(ctx context.Context, grid models.GridCoordinate) (models.Snapshot, bool, error) {
	key := grid.Key()
	c.mu.RLock()
	entry, ok := c.data[key]
	c.mu.RUnlock()
	if !ok {
		return models.Snapshot{}, false, nil
	}

	if !c.clock.Now().Before(entry.expiresAt) {
		c.mu.Lock()
		if cur, still := c.data[key]; still && cur.expiresAt.Equal(entry.expiresAt) {
			delete(c.data, key)
		}
		c.mu.Unlock()
		return models.Snapshot{}, false, nil
	}

	return entry.snap, true, nil
}

// Set stores snap, replacing any previous entry for the grid.
func (c *InMemoryCache) Set(ctx context.Context, grid models.GridCoordinate, snap models.Snapshot, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[grid.Key()] = cacheEntry{
		snap:      snap,
		expiresAt: c.clock.Now().Add(ttl),
	}
	return nil
}

// Len returns the number of stored entries, expired ones included.
func (c *InMemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.data)
}
