package metadata

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/kdimtricp/popscan/internal/cache"
	"github.com/kdimtricp/popscan/internal/metrics"
	"github.com/kdimtricp/popscan/internal/models"
)

type limited struct {
	SubProvider
	limiter *rate.Limiter
}

// Limit delays calls to sub so they never exceed the limiter's rate.
func Limit(sub SubProvider, limiter *rate.Limiter) SubProvider {
	return &limited{SubProvider: sub, limiter: limiter}
}

func (l *limited) Lookup(ctx context.Context, query string) ([]models.MediaTitle, error) {
	if err := l.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%s rate limit: %w", l.Name(), err)
	}
	return l.SubProvider.Lookup(ctx, query)
}

type cached struct {
	SubProvider
	cache  cache.Cache
	ttl    time.Duration
	logger zerolog.Logger
}

// Cached stores successful answers of sub, empty ones included, for ttl.
// Failures are never cached.
func Cached(sub SubProvider, c cache.Cache, ttl time.Duration, logger zerolog.Logger) SubProvider {
	return &cached{SubProvider: sub, cache: c, ttl: ttl, logger: logger}
}

// CacheKey is the cache key for a sub-provider query.
func CacheKey(provider, query string) string {
	return "subprov:" + provider + ":" + strings.ToLower(strings.TrimSpace(query))
}

func (c *cached) Lookup(ctx context.Context, query string) ([]models.MediaTitle, error) {
	key := CacheKey(c.Name(), query)

	if data, ok := c.cache.Get(ctx, key); ok {
		var titles []models.MediaTitle
		if err := json.Unmarshal(data, &titles); err == nil {
			metrics.RecordCache(true)
			return titles, nil
		}
		c.logger.Warn().Str("key", key).Msg("discarding undecodable cache entry")
		c.cache.Delete(ctx, key)
	}
	metrics.RecordCache(false)

	titles, err := c.SubProvider.Lookup(ctx, query)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(titles); err == nil {
		c.cache.Set(ctx, key, data, c.ttl)
	}
	return titles, nil
}
