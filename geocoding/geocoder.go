// Copyright 2025 The FoodMap Authors
// SPDX-License-Identifier: Apache-2.0

package geocoding

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/htlee1999/food-map/spatial"
)

// AddressGeocoder wraps a Provider with retries, linear backoff, address
// shortening and a bounding box check. It fails soft: every failure is
// reported as "not found".
type AddressGeocoder struct {
	provider   Provider
	bounds     spatial.BoundingBox
	maxRetries int
	baseDelay  time.Duration
	sleep      func(ctx context.Context, d time.Duration) error
}

// Option configures an AddressGeocoder.
type Option func(*AddressGeocoder)

// WithBounds sets the region results must fall in.
func WithBounds(b spatial.BoundingBox) Option {
	return func(g *AddressGeocoder) { g.bounds = b }
}

// WithRetries sets the default attempt budget used by Geocode.
func WithRetries(n int) Option {
	return func(g *AddressGeocoder) { g.maxRetries = n }
}

// WithBaseDelay sets the backoff unit: attempt n waits n*d before retrying.
func WithBaseDelay(d time.Duration) Option {
	return func(g *AddressGeocoder) { g.baseDelay = d }
}

// NewAddressGeocoder creates a geocoder over p. Defaults: Singapore bounds,
// two attempts, one second base delay.
func NewAddressGeocoder(p Provider, opts ...Option) *AddressGeocoder {
	g := &AddressGeocoder{
		provider:   p,
		bounds:     spatial.Singapore,
		maxRetries: 2,
		baseDelay:  time.Second,
		sleep:      sleepContext,
	}

	for _, opt := range opts {
		opt(g)
	}

	return g
}

// Provider returns the underlying provider.
func (g *AddressGeocoder) Provider() Provider {
	return g.provider
}

// Bounds returns the region results are checked against.
func (g *AddressGeocoder) Bounds() spatial.BoundingBox {
	return g.bounds
}

// Geocode resolves address with the default attempt budget.
func (g *AddressGeocoder) Geocode(ctx context.Context, address string) (spatial.Point, bool) {
	return g.GeocodeWithRetries(ctx, address, g.maxRetries)
}

// GeocodeWithRetries resolves address using at most maxRetries provider
// calls. When the provider has no usable candidate and the address has
// several comma separated segments, the last segment is dropped and the
// remaining budget is spent on the shorter address.
func (g *AddressGeocoder) GeocodeWithRetries(ctx context.Context, address string, maxRetries int) (spatial.Point, bool) {
	address = strings.TrimSpace(address)
	if address == "" {
		return spatial.Point{}, false
	}

	log := slog.With("address", address, "provider", g.provider.Name())

	for attempt := 1; attempt <= maxRetries; attempt++ {
		if ctx.Err() != nil {
			return spatial.Point{}, false
		}

		results, err := g.provider.Search(ctx, address)
		if err != nil {
			log.Debug("geocoding attempt failed", "attempt", attempt, "transient", IsTransient(err), "error", err)

			if attempt == maxRetries {
				break
			}

			if g.sleep(ctx, time.Duration(attempt)*g.baseDelay) != nil {
				return spatial.Point{}, false
			}

			continue
		}

		if len(results) > 0 {
			p := results[0].Point
			if g.bounds.Contains(p) {
				return p, true
			}

			log.Debug("discarding result outside region", "point", p.String())
		}

		// no usable candidate
		if shorter, ok := dropLastSegment(address); ok && maxRetries-attempt > 0 {
			log.Debug("retrying with shorter address", "shorter", shorter)

			return g.GeocodeWithRetries(ctx, shorter, maxRetries-attempt)
		}

		break
	}

	log.Debug("address not geocoded")

	return spatial.Point{}, false
}

// dropLastSegment returns address without its last comma separated segment.
func dropLastSegment(address string) (string, bool) {
	parts := strings.Split(address, ",")

	segments := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			segments = append(segments, p)
		}
	}

	if len(segments) < 2 {
		return "", false
	}

	return strings.Join(segments[:len(segments)-1], ", "), true
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
