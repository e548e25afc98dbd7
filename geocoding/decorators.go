// Copyright 2025 The FoodMap Authors
// SPDX-License-Identifier: Apache-2.0

package geocoding

import (
	"context"
	"fmt"
	"time"

	"github.com/htlee1999/food-map/metrics"
	"github.com/htlee1999/food-map/utils/textutils"
	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"
)

// CachedProvider memoizes successful searches, including empty ones.
// Errors are never cached.
type CachedProvider struct {
	next  Provider
	cache *cache.Cache
}

// NewCachedProvider wraps next with a cache whose entries live for ttl.
func NewCachedProvider(next Provider, ttl time.Duration) *CachedProvider {
	return &CachedProvider{
		next:  next,
		cache: cache.New(ttl, ttl*2),
	}
}

// Name implements Provider.
func (c *CachedProvider) Name() string { return c.next.Name() }

// Search implements Provider.
func (c *CachedProvider) Search(ctx context.Context, query string) ([]Result, error) {
	key := c.next.Name() + "|" + textutils.Key(query)

	if v, found := c.cache.Get(key); found {
		if results, ok := v.([]Result); ok {
			return results, nil
		}
	}

	results, err := c.next.Search(ctx, query)
	if err != nil {
		return nil, err
	}

	c.cache.Set(key, results, cache.DefaultExpiration)

	return results, nil
}

// Len returns the number of cached queries.
func (c *CachedProvider) Len() int {
	return c.cache.ItemCount()
}

// RateLimitedProvider spaces out calls to next with a token bucket.
type RateLimitedProvider struct {
	next    Provider
	limiter *rate.Limiter
}

// NewRateLimitedProvider allows perSecond calls per second with a burst of one.
func NewRateLimitedProvider(next Provider, perSecond float64) *RateLimitedProvider {
	return &RateLimitedProvider{
		next:    next,
		limiter: rate.NewLimiter(rate.Limit(perSecond), 1),
	}
}

// Name implements Provider.
func (r *RateLimitedProvider) Name() string { return r.next.Name() }

// Search implements Provider.
func (r *RateLimitedProvider) Search(ctx context.Context, query string) ([]Result, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%s: waiting for rate limiter: %w", r.next.Name(), err)
	}

	return r.next.Search(ctx, query)
}

// InstrumentedProvider records every call of next in m.
type InstrumentedProvider struct {
	next Provider
	m    *metrics.Metrics
}

// NewInstrumentedProvider wraps next.
func NewInstrumentedProvider(next Provider, m *metrics.Metrics) *InstrumentedProvider {
	return &InstrumentedProvider{next: next, m: m}
}

// Name implements Provider.
func (i *InstrumentedProvider) Name() string { return i.next.Name() }

// Search implements Provider.
func (i *InstrumentedProvider) Search(ctx context.Context, query string) ([]Result, error) {
	start := time.Now()
	results, err := i.next.Search(ctx, query)

	status := "ok"

	switch {
	case err != nil:
		status = "error"
	case len(results) == 0:
		status = "empty"
	}

	i.m.ObserveGeocode(i.next.Name(), status, time.Since(start))

	return results, err
}
