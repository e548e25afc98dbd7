// Copyright 2025 The FoodMap Authors
// SPDX-License-Identifier: Apache-2.0

package geocoding

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/htlee1999/food-map/config"
	"github.com/htlee1999/food-map/metrics"
)

// NewProvider builds the provider selected by cfg wrapped, from the outside
// in, by the cache, the rate limiter and the metrics recorder.
func NewProvider(ctx context.Context, cfg config.GeocoderConfig, regionCode string, client *http.Client, m *metrics.Metrics) (Provider, error) {
	var p Provider

	switch cfg.Provider {
	case config.ProviderOneMap, "":
		p = NewOneMapProvider(cfg.BaseURL, client)
	case config.ProviderGoogle:
		apiKey := cfg.GoogleAPIKey
		if apiKey == "" {
			slog.Info("geocoder.google_api_key is not set, attempting to retrieve it via ADC")

			var err error

			apiKey, err = ResolveGoogleAPIKey(ctx)
			if err != nil {
				return nil, fmt.Errorf("google maps api key: %w", err)
			}
		}

		p = NewGoogleMapsProvider(apiKey, regionCode, cfg.BaseURL, client)
	default:
		return nil, fmt.Errorf("unknown geocoding provider %q", cfg.Provider)
	}

	p = NewInstrumentedProvider(p, m)

	if cfg.RateLimit > 0 {
		p = NewRateLimitedProvider(p, cfg.RateLimit)
	}

	if cfg.CacheTTL > 0 {
		p = NewCachedProvider(p, cfg.CacheTTL)
	}

	return p, nil
}

// New builds the full AddressGeocoder described by cfg.
func New(ctx context.Context, cfg *config.Config, client *http.Client, m *metrics.Metrics) (*AddressGeocoder, error) {
	p, err := NewProvider(ctx, cfg.Geocoder, RegionCode(cfg.Region.Name), client, m)
	if err != nil {
		return nil, err
	}

	return NewAddressGeocoder(p,
		WithBounds(cfg.Region.Bounds),
		WithRetries(cfg.Geocoder.MaxRetries),
		WithBaseDelay(cfg.Geocoder.BaseDelay),
	), nil
}

// RegionCode returns the ccTLD used to bias Google results for a region
// name, or "" when unknown.
func RegionCode(region string) string {
	switch region {
	case "Singapore":
		return "sg"
	case "Malaysia":
		return "my"
	default:
		return ""
	}
}
