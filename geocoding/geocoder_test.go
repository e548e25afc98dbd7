// Copyright 2025 The FoodMap Authors
// SPDX-License-Identifier: Apache-2.0

package geocoding

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/htlee1999/food-map/spatial"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeResponse struct {
	results []Result
	err     error
}

// fakeProvider answers from a per-query script; the last scripted response
// repeats. Unknown queries have no results.
type fakeProvider struct {
	mu      sync.Mutex
	script  map[string][]fakeResponse
	queries []string
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{script: map[string][]fakeResponse{}}
}

func (f *fakeProvider) on(query string, responses ...fakeResponse) *fakeProvider {
	f.script[query] = responses

	return f
}

func (f *fakeProvider) Name() string { return "fake" }

func (f *fakeProvider) Search(_ context.Context, query string) ([]Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	n := 0

	for _, q := range f.queries {
		if q == query {
			n++
		}
	}

	f.queries = append(f.queries, query)

	responses := f.script[query]
	if len(responses) == 0 {
		return nil, nil
	}

	r := responses[min(n, len(responses)-1)]

	return r.results, r.err
}

func (f *fakeProvider) calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()

	return append([]string(nil), f.queries...)
}

func hit(lat, lng float64) fakeResponse {
	return fakeResponse{results: []Result{{Point: spatial.Point{Lat: lat, Lng: lng}, Provider: "fake"}}}
}

func fail() fakeResponse {
	return fakeResponse{err: &GeocodingError{Type: ErrorTypeNetworkError, Message: "connection reset"}}
}

func newTestGeocoder(p Provider, delays *[]time.Duration) *AddressGeocoder {
	g := NewAddressGeocoder(p, WithBaseDelay(time.Second))
	g.sleep = func(ctx context.Context, d time.Duration) error {
		*delays = append(*delays, d)

		return ctx.Err()
	}

	return g
}

func TestGeocodeEmptyAddress(t *testing.T) {
	p := newFakeProvider()
	var delays []time.Duration
	g := newTestGeocoder(p, &delays)

	for _, addr := range []string{"", "   ", "\t\n"} {
		_, ok := g.Geocode(context.Background(), addr)
		assert.False(t, ok)
	}

	assert.Empty(t, p.calls(), "empty input must not reach the provider")
}

func TestGeocodeSuccess(t *testing.T) {
	p := newFakeProvider().on("1 Kadayanallur St", hit(1.2805, 103.8443))
	var delays []time.Duration
	g := newTestGeocoder(p, &delays)

	pt, ok := g.Geocode(context.Background(), "  1 Kadayanallur St ")
	require.True(t, ok)
	assert.Equal(t, spatial.Point{Lat: 1.2805, Lng: 103.8443}, pt)
	assert.Equal(t, []string{"1 Kadayanallur St"}, p.calls())
	assert.Empty(t, delays)
}

func TestGeocodeRetriesWithLinearBackoff(t *testing.T) {
	p := newFakeProvider().on("Maxwell Food Centre", fail(), fail(), hit(1.2803, 103.8446))
	var delays []time.Duration
	g := newTestGeocoder(p, &delays)

	pt, ok := g.GeocodeWithRetries(context.Background(), "Maxwell Food Centre", 3)
	require.True(t, ok)
	assert.InDelta(t, 1.2803, pt.Lat, 1e-9)
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second}, delays)
	assert.Len(t, p.calls(), 3)
}

func TestGeocodeNoWaitAfterFinalAttempt(t *testing.T) {
	p := newFakeProvider().on("Lau Pa Sat", fail())
	var delays []time.Duration
	g := newTestGeocoder(p, &delays)

	_, ok := g.Geocode(context.Background(), "Lau Pa Sat")
	assert.False(t, ok)
	assert.Len(t, p.calls(), 2)
	assert.Equal(t, []time.Duration{time.Second}, delays)
}

func TestGeocodeRejectsOutOfRegion(t *testing.T) {
	// A result in Kuala Lumpur is treated as no result; with no comma the
	// geocoder gives up without spending the second attempt.
	p := newFakeProvider().on("Jalan Alor", hit(3.1455, 101.7090))
	var delays []time.Duration
	g := newTestGeocoder(p, &delays)

	_, ok := g.Geocode(context.Background(), "Jalan Alor")
	assert.False(t, ok)
	assert.Equal(t, []string{"Jalan Alor"}, p.calls())
}

func TestGeocodeZeroResultsWithoutComma(t *testing.T) {
	p := newFakeProvider()
	var delays []time.Duration
	g := newTestGeocoder(p, &delays)

	_, ok := g.GeocodeWithRetries(context.Background(), "Ghost Kitchen", 3)
	assert.False(t, ok)
	assert.Equal(t, []string{"Ghost Kitchen"}, p.calls())
	assert.Empty(t, delays)
}

func TestGeocodeShortensAddress(t *testing.T) {
	p := newFakeProvider().
		on("Old Airport Road Food Centre, 51 Old Airport Rd", hit(0, 0)).
		on("Old Airport Road Food Centre", hit(1.3080, 103.8855))
	var delays []time.Duration
	g := newTestGeocoder(p, &delays)

	pt, ok := g.Geocode(context.Background(), "Old Airport Road Food Centre, 51 Old Airport Rd")
	require.True(t, ok)
	assert.InDelta(t, 103.8855, pt.Lng, 1e-9)
	assert.Equal(t, []string{
		"Old Airport Road Food Centre, 51 Old Airport Rd",
		"Old Airport Road Food Centre",
	}, p.calls())
}

func TestGeocodeShorteningConsumesBudget(t *testing.T) {
	p := newFakeProvider()
	var delays []time.Duration
	g := newTestGeocoder(p, &delays)

	_, ok := g.GeocodeWithRetries(context.Background(), "A, B, C, D", 2)
	assert.False(t, ok)
	assert.Equal(t, []string{"A, B, C, D", "A, B, C"}, p.calls())
}

func TestGeocodeCanceled(t *testing.T) {
	p := newFakeProvider().on("Tekka Centre", fail())
	g := NewAddressGeocoder(p, WithBaseDelay(time.Hour), WithRetries(5))

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	done := make(chan bool)
	go func() {
		_, ok := g.Geocode(ctx, "Tekka Centre")
		done <- ok
	}()

	select {
	case ok := <-done:
		assert.False(t, ok)
	case <-time.After(5 * time.Second):
		t.Fatal("geocoder did not honor cancellation")
	}
}

func TestDropLastSegment(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"a, b, c", "a, b", true},
		{"a,b", "a", true},
		{"a, , b", "a", true},
		{"a", "", false},
		{"a,", "", false},
	}

	for _, tt := range tests {
		got, ok := dropLastSegment(tt.in)
		assert.Equal(t, tt.ok, ok, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

func TestSleepContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, sleepContext(ctx, time.Hour), context.Canceled)
	assert.NoError(t, sleepContext(context.Background(), time.Millisecond))
	assert.True(t, errors.Is(sleepContext(ctx, 0), context.Canceled))
}
