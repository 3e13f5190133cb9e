// Package cache provides a Redis-backed result cache for retrieval queries.
// Keys are derived from the normalised query plus k, concurrent identical
// misses are collapsed with singleflight, and every cache failure degrades to
// a recompute rather than a query error.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/bet0x/bm25-retrieval-service/internal/retriever"
	"github.com/bet0x/bm25-retrieval-service/pkg/config"
	pkgredis "github.com/bet0x/bm25-retrieval-service/pkg/redis"
)

const keyPrefix = "retrieve:"

// QueryCache caches retrieval result lists keyed by query and k.
type QueryCache struct {
	client *pkgredis.Client
	ttl    time.Duration
	group  singleflight.Group
	logger *slog.Logger
	hits   atomic.Int64
	misses atomic.Int64
}

// New creates a QueryCache over an established Redis client.
func New(client *pkgredis.Client, cfg config.RedisConfig) *QueryCache {
	return &QueryCache{
		client: client,
		ttl:    cfg.CacheTTL,
		logger: slog.Default().With("component", "query-cache"),
	}
}

// Get returns the cached result list for the query, if present.
func (c *QueryCache) Get(ctx context.Context, query string, k int) ([]retriever.Result, bool) {
	key := c.buildKey(query, k)
	data, err := c.client.Get(ctx, key)
	if err != nil {
		if !pkgredis.IsNilError(err) {
			c.logger.Error("cache get failed", "key", key, "error", err)
		}
		c.misses.Add(1)
		return nil, false
	}
	var results []retriever.Result
	if err := json.Unmarshal([]byte(data), &results); err != nil {
		c.logger.Error("cache unmarshal failed", "key", key, "error", err)
		c.misses.Add(1)
		return nil, false
	}
	c.hits.Add(1)
	c.logger.Debug("cache hit", "query", query, "key", key)
	return results, true
}

// Set stores a result list with the configured TTL. Failures are logged only.
func (c *QueryCache) Set(ctx context.Context, query string, k int, results []retriever.Result) {
	key := c.buildKey(query, k)
	data, err := json.Marshal(results)
	if err != nil {
		c.logger.Error("cache marshal failed", "key", key, "error", err)
		return
	}
	if err := c.client.Set(ctx, key, data, c.ttl); err != nil {
		c.logger.Error("cache set failed", "key", key, "error", err)
	}
}

// GetOrCompute returns the cached result list or computes and stores it,
// collapsing concurrent identical misses into a single computation. The
// second return value reports whether the result came from cache.
func (c *QueryCache) GetOrCompute(
	ctx context.Context,
	query string,
	k int,
	computeFn func() ([]retriever.Result, error),
) ([]retriever.Result, bool, error) {
	if results, ok := c.Get(ctx, query, k); ok {
		return results, true, nil
	}
	key := c.buildKey(query, k)
	val, err, _ := c.group.Do(key, func() (interface{}, error) {
		if results, ok := c.Get(ctx, query, k); ok {
			return results, nil
		}
		results, err := computeFn()
		if err != nil {
			return nil, err
		}
		c.Set(ctx, query, k, results)
		return results, nil
	})
	if err != nil {
		return nil, false, err
	}
	return val.([]retriever.Result), false, nil
}

// Invalidate deletes every cached result list.
func (c *QueryCache) Invalidate(ctx context.Context) error {
	deleted, err := c.client.FlushByPattern(ctx, keyPrefix+"*")
	if err != nil {
		return fmt.Errorf("invalidating cache: %w", err)
	}
	c.logger.Info("cache invalidated", "keys_deleted", deleted)
	return nil
}

// Stats returns hit and miss counters since startup.
func (c *QueryCache) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}

func (c *QueryCache) buildKey(query string, k int) string {
	raw := fmt.Sprintf("%s:k=%d", NormalizeQuery(query), k)
	hash := sha256.Sum256([]byte(raw))
	return fmt.Sprintf("%s%x", keyPrefix, hash[:16])
}

// NormalizeQuery folds case, whitespace, and word order so trivially
// rephrased queries share a cache entry. BM25 scores are order-independent
// sums over query terms, so reordering is safe.
func NormalizeQuery(query string) string {
	words := strings.Fields(strings.ToLower(query))
	sort.Strings(words)
	return strings.Join(words, " ")
}
