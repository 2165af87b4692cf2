// Package cache is the redis-backed query result cache. Keys embed the
// index version, so a committed document addition makes every older
// entry unreachable and TTL reclaims it.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"time"

	"github.com/maryam-tariqq/DSA-Project/pkg/logger"
	"github.com/maryam-tariqq/DSA-Project/pkg/metrics"
	"github.com/maryam-tariqq/DSA-Project/pkg/redis"
)

const defaultTTL = 5 * time.Minute

// Cache wraps the redis client with TTL and hit/miss accounting. A nil
// *Cache is valid and behaves as a cache that never hits.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
	m      *metrics.Metrics
}

func New(client *redis.Client, ttl time.Duration, m *metrics.Metrics) *Cache {
	if client == nil {
		return nil
	}
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &Cache{
		client: client,
		ttl:    ttl,
		logger: logger.WithComponent("query_cache"),
		m:      m,
	}
}

// Key derives a stable cache key from the index version and the query
// shape. The query text is hashed so arbitrary user input never becomes
// a raw redis key.
func Key(version uint64, query, mode string, limit int) string {
	sum := sha256.Sum256([]byte(query))
	return fmt.Sprintf("search:v%d:%s:%d:%s", version, mode, limit, hex.EncodeToString(sum[:16]))
}

// Get returns the cached payload and whether it was present. Redis
// failures are logged and reported as misses so queries always fall
// through to the index.
func (c *Cache) Get(ctx context.Context, key string) ([]byte, bool) {
	if c == nil {
		return nil, false
	}
	val, err := c.client.Get(ctx, key)
	if err != nil {
		if !redis.IsNilError(err) {
			c.logger.Warn("cache get failed", "key", key, "error", err)
		}
		if c.m != nil {
			c.m.CacheMissesTotal.Inc()
		}
		return nil, false
	}
	if c.m != nil {
		c.m.CacheHitsTotal.Inc()
	}
	return val, true
}

// Set stores the payload best-effort; a write failure only costs the
// next query a recompute.
func (c *Cache) Set(ctx context.Context, key string, payload []byte) {
	if c == nil {
		return
	}
	if err := c.client.Set(ctx, key, payload, c.ttl); err != nil {
		c.logger.Warn("cache set failed", "key", key, "error", err)
	}
}
