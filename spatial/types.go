// Copyright 2025 The FoodMap Authors
// SPDX-License-Identifier: Apache-2.0

// Package spatial holds the geographic primitives shared by the resolvers,
// the stores and the REST API.
package spatial

import (
	"fmt"
	"math"

	"github.com/uber/h3-go/v4"
)

const earthRadius = 6371e3 // meters

// Point represents a geographical point with latitude and longitude.
type Point struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// String returns a "lat,lng" representation of the Point.
func (p Point) String() string {
	return fmt.Sprintf("%f,%f", p.Lat, p.Lng)
}

// IsZero reports whether the point is the zero value.
func (p Point) IsZero() bool {
	return p.Lat == 0 && p.Lng == 0
}

// Valid reports whether the point is inside the global latitude and
// longitude ranges.
func (p Point) Valid() bool {
	return !math.IsNaN(p.Lat) && !math.IsNaN(p.Lng) &&
		p.Lat >= -90 && p.Lat <= 90 &&
		p.Lng >= -180 && p.Lng <= 180
}

// HaversineDistance calculates the distance between two points on Earth in meters.
func (p Point) HaversineDistance(other Point) float64 {
	lat1 := p.Lat * math.Pi / 180
	lat2 := other.Lat * math.Pi / 180
	dLat := (other.Lat - p.Lat) * math.Pi / 180
	dLng := (other.Lng - p.Lng) * math.Pi / 180

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*
			math.Sin(dLng/2)*math.Sin(dLng/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadius * c
}

// Cell returns the H3 index containing the point at the given resolution.
func (p Point) Cell(res int) (int64, error) {
	cell, err := h3.LatLngToCell(h3.NewLatLng(p.Lat, p.Lng), res)
	if err != nil {
		return 0, fmt.Errorf("converting %s to h3 cell at res %d: %w", p, res, err)
	}

	return int64(cell), nil
}

// CellCenter returns the center of an H3 cell.
func CellCenter(cell int64) (Point, error) {
	ll, err := h3.Cell(cell).LatLng()
	if err != nil {
		return Point{}, fmt.Errorf("h3 cell %x center: %w", cell, err)
	}

	return Point{Lat: ll.Lat, Lng: ll.Lng}, nil
}

// ParentCell returns the ancestor of cell at a coarser resolution.
func ParentCell(cell int64, res int) (int64, error) {
	parent, err := h3.Cell(cell).Parent(res)
	if err != nil {
		return 0, fmt.Errorf("h3 parent of %x at res %d: %w", cell, res, err)
	}

	return int64(parent), nil
}

// BoundingBox is an axis-aligned latitude/longitude rectangle. Bounds are
// inclusive.
type BoundingBox struct {
	MinLat float64 `json:"min_lat" mapstructure:"min_lat"`
	MaxLat float64 `json:"max_lat" mapstructure:"max_lat"`
	MinLng float64 `json:"min_lng" mapstructure:"min_lng"`
	MaxLng float64 `json:"max_lng" mapstructure:"max_lng"`
}

// Contains reports whether p lies inside the box.
func (b BoundingBox) Contains(p Point) bool {
	return p.Lat >= b.MinLat && p.Lat <= b.MaxLat &&
		p.Lng >= b.MinLng && p.Lng <= b.MaxLng
}

// Validate rejects inverted or out of range boxes.
func (b BoundingBox) Validate() error {
	if b.MinLat > b.MaxLat {
		return fmt.Errorf("min_lat %f is greater than max_lat %f", b.MinLat, b.MaxLat)
	}

	if b.MinLng > b.MaxLng {
		return fmt.Errorf("min_lng %f is greater than max_lng %f", b.MinLng, b.MaxLng)
	}

	if !(Point{Lat: b.MinLat, Lng: b.MinLng}).Valid() || !(Point{Lat: b.MaxLat, Lng: b.MaxLng}).Valid() {
		return fmt.Errorf("bounding box %+v is outside the globe", b)
	}

	return nil
}

// Singapore is the default region the application works in.
var Singapore = BoundingBox{MinLat: 1.0, MaxLat: 2.0, MinLng: 103.0, MaxLng: 105.0}
