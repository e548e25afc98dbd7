// Copyright 2025 The FoodMap Authors
// SPDX-License-Identifier: Apache-2.0

package spatial

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uber/h3-go/v4"
)

func TestBoundingBoxContains(t *testing.T) {
	tests := []struct {
		name string
		p    Point
		want bool
	}{
		{"marina bay", Point{Lat: 1.2834, Lng: 103.8607}, true},
		{"lower corner inclusive", Point{Lat: 1.0, Lng: 103.0}, true},
		{"upper corner inclusive", Point{Lat: 2.0, Lng: 105.0}, true},
		{"kuala lumpur", Point{Lat: 3.139, Lng: 101.6869}, false},
		{"placeholder pixels", Point{Lat: 1024, Lng: 768}, false},
		{"origin", Point{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Singapore.Contains(tt.p))
		})
	}
}

func TestBoundingBoxValidate(t *testing.T) {
	require.NoError(t, Singapore.Validate())

	assert.Error(t, BoundingBox{MinLat: 2, MaxLat: 1, MinLng: 103, MaxLng: 105}.Validate())
	assert.Error(t, BoundingBox{MinLat: 1, MaxLat: 2, MinLng: 106, MaxLng: 105}.Validate())
	assert.Error(t, BoundingBox{MinLat: -100, MaxLat: 2, MinLng: 103, MaxLng: 105}.Validate())
}

func TestHaversineDistance(t *testing.T) {
	// Raffles Place MRT to Marina Bay Sands, roughly 1.1km.
	a := Point{Lat: 1.2840, Lng: 103.8514}
	b := Point{Lat: 1.2834, Lng: 103.8607}

	d := a.HaversineDistance(b)
	assert.InDelta(t, 1037, d, 20)
	assert.InDelta(t, d, b.HaversineDistance(a), 1e-9)
	assert.Zero(t, a.HaversineDistance(a))
}

func TestCellRoundTrip(t *testing.T) {
	p := Point{Lat: 1.3521, Lng: 103.8198}

	cell, err := p.Cell(9)
	require.NoError(t, err)
	assert.NotZero(t, cell)

	center, err := CellCenter(cell)
	require.NoError(t, err)
	assert.Less(t, p.HaversineDistance(center), 500.0)

	// H3 children do not nest exactly inside their parent, so the parent
	// is only guaranteed to be a nearby res 5 cell.
	parent, err := ParentCell(cell, 5)
	require.NoError(t, err)
	assert.Equal(t, 5, h3.Cell(parent).Resolution())

	parentCenter, err := CellCenter(parent)
	require.NoError(t, err)
	assert.Less(t, p.HaversineDistance(parentCenter), 2*res5EdgeMeters)
}

// res5EdgeMeters is the average edge length of an H3 res 5 cell.
const res5EdgeMeters = 8544.0

func TestPointValid(t *testing.T) {
	assert.True(t, Point{Lat: 1.3, Lng: 103.8}.Valid())
	assert.False(t, Point{Lat: 91, Lng: 0}.Valid())
	assert.False(t, Point{Lat: 0, Lng: 181}.Valid())
	assert.Equal(t, "1.300000,103.800000", Point{Lat: 1.3, Lng: 103.8}.String())
}
