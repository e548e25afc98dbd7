// Copyright 2025 The FoodMap Authors
// SPDX-License-Identifier: Apache-2.0

package places

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/htlee1999/food-map/spatial"
)

func TestClusterPlaces(t *testing.T) {
	a, m := laupasat(), maxwell()
	a.ID, m.ID = 1, 2
	m.Coords = spatial.Point{Lat: 1.28061, Lng: 103.85041}
	require.NoError(t, a.normalize())

	// far away, on its own
	jurong := &Place{ID: 3, Name: "Jurong Point", Address: "Jurong", Coords: spatial.Point{Lat: 1.3397, Lng: 103.7067}}

	clusters, err := ClusterPlaces([]*Place{a, jurong, m, {ID: 4}}, 7)
	require.NoError(t, err)
	require.Len(t, clusters, 2)

	assert.Equal(t, 2, clusters[0].Count)
	assert.ElementsMatch(t, []int64{1, 2}, clusters[0].PlaceIDs)
	assert.InDelta(t, (1.2806+1.28061)/2, clusters[0].Centroid.Lat, 1e-9)
	assert.InDelta(t, (103.8504+103.85041)/2, clusters[0].Centroid.Lng, 1e-9)
	assert.Equal(t, 7, clusters[0].Resolution)

	assert.Equal(t, []int64{3}, clusters[1].PlaceIDs)
	assert.NotEqual(t, clusters[0].Cell, clusters[1].Cell)

	_, err = ClusterPlaces(nil, H3Resolution+1)
	require.True(t, IsValidationError(err))
}
