// Copyright 2025 The FoodMap Authors
// SPDX-License-Identifier: Apache-2.0

package places

import (
	"fmt"
	"sort"

	"github.com/htlee1999/food-map/spatial"
)

// Cluster groups the places that share an H3 cell.
type Cluster struct {
	Cell       string        `json:"cell"`
	Resolution int           `json:"resolution"`
	Count      int           `json:"count"`
	Centroid   spatial.Point `json:"centroid"`
	PlaceIDs   []int64       `json:"place_ids"`
}

// ClusterPlaces groups places by their H3 cell at res, which must not be
// finer than H3Resolution. Clusters are sorted by size, largest first.
func ClusterPlaces(places []*Place, res int) ([]*Cluster, error) {
	if res < 0 || res > H3Resolution {
		return nil, &ValidationError{Field: "res", Message: fmt.Sprintf("must be between 0 and %d", H3Resolution)}
	}

	byCell := make(map[int64]*Cluster)

	var order []int64

	for _, p := range places {
		if p.Coords.IsZero() {
			continue
		}

		cell, err := clusterCell(p, res)
		if err != nil {
			return nil, err
		}

		c, ok := byCell[cell]
		if !ok {
			c = &Cluster{Cell: fmt.Sprintf("%x", cell), Resolution: res}
			byCell[cell] = c
			order = append(order, cell)
		}

		c.Count++
		c.Centroid.Lat += p.Coords.Lat
		c.Centroid.Lng += p.Coords.Lng
		c.PlaceIDs = append(c.PlaceIDs, p.ID)
	}

	clusters := make([]*Cluster, 0, len(order))

	for _, cell := range order {
		c := byCell[cell]
		c.Centroid.Lat /= float64(c.Count)
		c.Centroid.Lng /= float64(c.Count)
		clusters = append(clusters, c)
	}

	sort.SliceStable(clusters, func(i, j int) bool {
		return clusters[i].Count > clusters[j].Count
	})

	return clusters, nil
}

// clusterCell reuses the stored cell when there is one.
func clusterCell(p *Place, res int) (int64, error) {
	if p.H3Cell != 0 {
		return spatial.ParentCell(p.H3Cell, res)
	}

	return p.Coords.Cell(res)
}
