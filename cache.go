package main

import (
	"context"
	"errors"
	"time"

	"github.com/abel123code/lms-analytics/internal/cache"
	"github.com/abel123code/lms-analytics/internal/logging"
	"github.com/abel123code/lms-analytics/internal/metrics"
)

// How long each report may be served from the cache.
const (
	topBooksTTL      = 60 * time.Second
	recsTTL          = 60 * time.Second
	overdueStatsTTL  = 60 * time.Second
	trendTTL         = 120 * time.Second
	topCategoriesTTL = 300 * time.Second
)

// getFromCache returns the report stored under key if it is fresh enough
// and of the expected type
func getFromCache[T any](a *api, endpoint, key string, ttl time.Duration) (T, bool) {
	var zero T

	v, err := a.cache.Lookup(key, ttl)
	if errors.Is(err, cache.ErrCacheMiss) {
		metrics.RecordCacheLookup(endpoint, false)
		logging.Debug().Str("key", key).Msg("cache miss")
		return zero, false
	}

	report, ok := v.(T)
	if !ok {
		metrics.RecordCacheLookup(endpoint, false)
		logging.Warn().Str("key", key).Msgf("cached value has type %T", v)
		return zero, false
	}

	metrics.RecordCacheLookup(endpoint, true)
	return report, true
}

// setCache stores a report under key
func (a *api) setCache(key string, report any) {
	a.cache.Set(key, report)
	metrics.SetCacheKeys(a.cache.Len())
}

// cachedReport serves key from the cache or runs load and caches its result.
// Two concurrent misses both run load; the later Set wins.
func cachedReport[T any](ctx context.Context, a *api, endpoint, key string, ttl time.Duration, load func(context.Context) (T, error)) (T, error) {
	if report, ok := getFromCache[T](a, endpoint, key, ttl); ok {
		return report, nil
	}

	report, err := load(ctx)
	if err != nil {
		return report, err
	}

	a.setCache(key, report)
	return report, nil
}
