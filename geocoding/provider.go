// Copyright 2025 The FoodMap Authors
// SPDX-License-Identifier: Apache-2.0

// Package geocoding turns free-text addresses into coordinates. Providers
// talk to a search service; AddressGeocoder adds retries, address
// shortening and the region sanity check on top of them.
package geocoding

import (
	"context"

	"github.com/htlee1999/food-map/spatial"
)

// Result is one candidate returned by a provider.
type Result struct {
	Point       spatial.Point `json:"point"`
	DisplayName string        `json:"display_name,omitempty"`
	Confidence  string        `json:"confidence,omitempty"` // high, medium, low
	Provider    string        `json:"provider"`
}

// Provider searches a free-text query. No candidates is not an error: it
// returns an empty slice and a nil error.
type Provider interface {
	Name() string
	Search(ctx context.Context, query string) ([]Result, error)
}
