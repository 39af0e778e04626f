package cache

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"strings"
	"time"

	"github.com/bradfitz/gomemcache/memcache"
	"github.com/jonboulle/clockwork"

	"github.com/kjstillabower/weather-outfit-service/internal/models"
)

const keyPrefix = "snapshot:"

// MemcachedCache implements Cache using memcached. Memcached expiry has
// second granularity, so the exact deadline travels with the value and is
// checked on read.
type MemcachedCache struct {
	client *memcache.Client
	clock  clockwork.Clock
}

type memcachedEntry struct {
	Snapshot  models.Snapshot `json:"snapshot"`
	ExpiresAt time.Time       `json:"expires_at"`
}

// NewMemcachedCache creates a MemcachedCache. addrs is a comma-separated list
// (e.g. "localhost:11211" or "host1:11211,host2:11211"). timeout and maxIdleConns
// configure the client; both use package defaults if zero.
func NewMemcachedCache(addrs string, timeout time.Duration, maxIdleConns int, clock clockwork.Clock) *MemcachedCache {
	servers := parseAddrs(addrs)
	if len(servers) == 0 {
		servers = []string{"localhost:11211"}
	}
	client := memcache.New(servers...)
	if timeout > 0 {
		client.Timeout = timeout
	}
	if maxIdleConns > 0 {
		client.MaxIdleConns = maxIdleConns
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &MemcachedCache{client: client, clock: clock}
}

func parseAddrs(s string) []string {
	var out []string
	for _, a := range strings.Split(s, ",") {
		a = strings.TrimSpace(a)
		if a != "" {
			out = append(out, a)
		}
	}
	return out
}

func memcachedKey(grid models.GridCoordinate) string {
	return keyPrefix + grid.Key()
}

// Get implements Cache.Get. Returns false, nil on cache miss; false, err on error.
func (c *MemcachedCache) Get(ctx context.Context, grid models.GridCoordinate) (models.Snapshot, bool, error) {
	if ctx.Err() != nil {
		return models.Snapshot{}, false, ctx.Err()
	}
	item, err := c.client.Get(memcachedKey(grid))
	if err != nil {
		if errors.Is(err, memcache.ErrCacheMiss) {
			return models.Snapshot{}, false, nil
		}
		return models.Snapshot{}, false, err
	}
	var entry memcachedEntry
	if err := json.Unmarshal(item.Value, &entry); err != nil {
		return models.Snapshot{}, false, err
	}
	if !c.clock.Now().Before(entry.ExpiresAt) {
		return models.Snapshot{}, false, nil
	}
	return entry.Snapshot, true, nil
}

// Set implements Cache.Set.
func (c *MemcachedCache) Set(ctx context.Context, grid models.GridCoordinate, snap models.Snapshot, ttl time.Duration) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	raw, err := json.Marshal(memcachedEntry{
		Snapshot:  snap,
		ExpiresAt: c.clock.Now().Add(ttl),
	})
	if err != nil {
		return err
	}
	return c.client.Set(&memcache.Item{
		Key:        memcachedKey(grid),
		Value:      raw,
		Expiration: expirationSeconds(ttl),
	})
}

// expirationSeconds rounds ttl up to whole seconds within memcached's
// relative-expiry range.
func expirationSeconds(ttl time.Duration) int32 {
	const maxRelativeExp = 30 * 24 * 60 * 60 // 30 days
	sec := math.Ceil(ttl.Seconds())
	if sec <= 0 {
		return 1
	}
	if sec > maxRelativeExp {
		return maxRelativeExp
	}
	return int32(sec)
}

// Ping checks if memcached is reachable. Used for health checks.
func (c *MemcachedCache) Ping() error {
	return c.client.Ping()
}

// Close closes the memcached client connections. Call during shutdown.
func (c *MemcachedCache) Close() error {
	return c.client.Close()
}
