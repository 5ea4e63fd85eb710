package analyses

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"skillgap-backend/internal/shared/storage/cache"
	"skillgap-backend/internal/shared/telemetry"
)

const (
	cacheKeyPrefix  = "analysis:"
	DefaultCacheTTL = 24 * time.Hour
)

// ResultCache stores completed results keyed by content hash. Cache faults
// never fail the caller: a broken cache degrades to the durable store.
type ResultCache struct {
	store cache.Store
	ttl   time.Duration
}

func NewResultCache(store cache.Store, ttl time.Duration) *ResultCache {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &ResultCache{store: store, ttl: ttl}
}

// Get returns the cached result for the content hash, or (nil, false) on a
// miss or fault.
func (c *ResultCache) Get(ctx context.Context, contentHash string) (*GapAnalysisResult, bool) {
	raw, err := c.store.Get(ctx, cacheKeyPrefix+contentHash)
	if errors.Is(err, cache.ErrMiss) {
		return nil, false
	}
	if err != nil {
		telemetry.Warn("cache.get.failed", map[string]any{
			"content_hash": contentHash,
			"error":        err.Error(),
		})
		return nil, false
	}

	var result GapAnalysisResult
	if err := json.Unmarshal([]byte(raw), &result); err != nil {
		telemetry.Warn("cache.decode.failed", map[string]any{
			"content_hash": contentHash,
			"error":        err.Error(),
		})
		// Drop the poisoned entry so it is rebuilt from the store.
		_ = c.store.Del(ctx, cacheKeyPrefix+contentHash)
		return nil, false
	}
	return &result, true
}

// Put writes a result under the content hash with the configured TTL.
func (c *ResultCache) Put(ctx context.Context, contentHash string, result GapAnalysisResult) {
	payload, err := json.Marshal(result)
	if err != nil {
		telemetry.Error("cache.encode.failed", map[string]any{
			"content_hash": contentHash,
			"error":        err.Error(),
		})
		return
	}
	if err := c.store.Set(ctx, cacheKeyPrefix+contentHash, string(payload), c.ttl); err != nil {
		telemetry.Warn("cache.set.failed", map[string]any{
			"content_hash": contentHash,
			"error":        err.Error(),
		})
	}
}

// Invalidate removes the cached entry for the content hash.
func (c *ResultCache) Invalidate(ctx context.Context, contentHash string) {
	if err := c.store.Del(ctx, cacheKeyPrefix+contentHash); err != nil {
		telemetry.Warn("cache.del.failed", map[string]any{
			"content_hash": contentHash,
			"error":        err.Error(),
		})
	}
}
