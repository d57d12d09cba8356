package search

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"research-workers/internal/common/database"
	"research-workers/internal/common/logger"
	"research-workers/internal/common/metrics"
	"research-workers/internal/models"

	"github.com/redis/go-redis/v9"
)

const cacheKeyPrefix = "search:"

// CachedProvider serves repeated queries from Redis. Cache failures fall
// through to the wrapped provider; only successful, non-empty result sets
// are stored.
type CachedProvider struct {
	next   Provider
	rdb    redis.Cmdable
	ttl    time.Duration
	logger logger.Logger
}

func NewCachedProvider(next Provider, rdb redis.Cmdable, ttl time.Duration, log logger.Logger) *CachedProvider {
	return &CachedProvider{next: next, rdb: rdb, ttl: ttl, logger: log}
}

func CacheKey(query string, limit int) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s|%d", strings.ToLower(strings.TrimSpace(query)), limit)))
	return cacheKeyPrefix + hex.EncodeToString(sum[:])
}

func (c *CachedProvider) Search(ctx context.Context, query string, limit int) ([]models.SearchResult, error) {
	key := CacheKey(query, limit)

	var cached []models.SearchResult
	found, err := database.GetJSON(ctx, c.rdb, key, &cached)
	switch {
	case err != nil:
		metrics.SearchCacheLookups.WithLabelValues("error").Inc()
		c.logger.Warn("search cache read failed", map[string]interface{}{
			"key":   key,
			"error": err.Error(),
		})
	case found:
		metrics.SearchCacheLookups.WithLabelValues("hit").Inc()
		return cached, nil
	default:
		metrics.SearchCacheLookups.WithLabelValues("miss").Inc()
	}

	results, err := c.next.Search(ctx, query, limit)
	if err != nil {
		return nil, err
	}

	if len(results) > 0 {
		if err := database.SetJSON(ctx, c.rdb, key, results, c.ttl); err != nil {
			c.logger.Warn("search cache write failed", map[string]interface{}{
				"key":   key,
				"error": err.Error(),
			})
		}
	}
	return results, nil
}
