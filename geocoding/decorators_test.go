// Copyright 2025 The FoodMap Authors
// SPDX-License-Identifier: Apache-2.0

package geocoding

import (
	"context"
	"testing"
	"time"

	"github.com/htlee1999/food-map/config"
	"github.com/htlee1999/food-map/metrics"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCachedProvider(t *testing.T) {
	p := newFakeProvider().
		on("Tiong Bahru Market", hit(1.2850, 103.8326)).
		on("flaky", fail(), hit(1.3, 103.8))
	c := NewCachedProvider(p, time.Minute)

	for range 3 {
		results, err := c.Search(context.Background(), "Tiong Bahru Market")
		require.NoError(t, err)
		require.Len(t, results, 1)
	}

	// case and spacing do not defeat the cache
	_, err := c.Search(context.Background(), "  tiong bahru  MARKET")
	require.NoError(t, err)

	assert.Equal(t, []string{"Tiong Bahru Market"}, p.calls())

	_, err = c.Search(context.Background(), "flaky")
	require.Error(t, err)

	results, err := c.Search(context.Background(), "flaky")
	require.NoError(t, err, "errors are not cached")
	assert.Len(t, results, 1)
	assert.Equal(t, 2, c.Len())
	assert.Equal(t, "fake", c.Name())
}

func TestRateLimitedProvider(t *testing.T) {
	p := newFakeProvider()
	r := NewRateLimitedProvider(p, 20) // one call every 50ms

	start := time.Now()

	for range 3 {
		_, err := r.Search(context.Background(), "q")
		require.NoError(t, err)
	}

	assert.GreaterOrEqual(t, time.Since(start), 90*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := r.Search(ctx, "q")
	assert.Error(t, err)
}

func TestInstrumentedProvider(t *testing.T) {
	m, err := metrics.New()
	require.NoError(t, err)

	p := newFakeProvider().on("found", hit(1.3, 103.8)).on("broken", fail())
	ip := NewInstrumentedProvider(p, m)

	_, _ = ip.Search(context.Background(), "found")
	_, _ = ip.Search(context.Background(), "missing")
	_, _ = ip.Search(context.Background(), "broken")

	assert.InDelta(t, 1, testutil.ToFloat64(m.GeocodeRequests.WithLabelValues("fake", "ok")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.GeocodeRequests.WithLabelValues("fake", "empty")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.GeocodeRequests.WithLabelValues("fake", "error")), 0)
}

func TestNewFromConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Geocoder.BaseDelay = 10 * time.Millisecond

	g, err := New(context.Background(), cfg, nil, nil)
	require.NoError(t, err)

	assert.Equal(t, "onemap", g.Provider().Name())
	assert.IsType(t, &CachedProvider{}, g.Provider())
	assert.Equal(t, cfg.Region.Bounds, g.Bounds())

	cfg.Geocoder.Provider = "nominatim"
	_, err = New(context.Background(), cfg, nil, nil)
	assert.Error(t, err)
}

func TestRegionCode(t *testing.T) {
	assert.Equal(t, "sg", RegionCode("Singapore"))
	assert.Empty(t, RegionCode("Atlantis"))
}
