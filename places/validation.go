// Copyright 2025 The FoodMap Authors
// SPDX-License-Identifier: Apache-2.0

package places

import (
	"fmt"
	"strings"

	"github.com/htlee1999/food-map/spatial"
)

const (
	maxNameLen        = 200
	maxAddressLen     = 500
	maxDescriptionLen = 2000
	maxNotesLen       = 1000
)

// Validate checks p before it is stored. Coordinates must lie inside bounds.
func Validate(p *Place, bounds spatial.BoundingBox) error {
	if p == nil {
		return &ValidationError{Message: "place is required"}
	}

	if strings.TrimSpace(p.Name) == "" {
		return &ValidationError{Field: "name", Message: "is required"}
	}

	if len(p.Name) > maxNameLen {
		return &ValidationError{Field: "name", Message: fmt.Sprintf("is too long (max %d characters)", maxNameLen)}
	}

	if strings.TrimSpace(p.Address) == "" {
		return &ValidationError{Field: "address", Message: "is required"}
	}

	if len(p.Address) > maxAddressLen {
		return &ValidationError{Field: "address", Message: fmt.Sprintf("is too long (max %d characters)", maxAddressLen)}
	}

	if len(p.Description) > maxDescriptionLen {
		return &ValidationError{Field: "description", Message: fmt.Sprintf("is too long (max %d characters)", maxDescriptionLen)}
	}

	if err := ValidateCoordinates(p.Coords, bounds); err != nil {
		return err
	}

	if p.Rating != nil && (*p.Rating < 0 || *p.Rating > 5) {
		return &ValidationError{Field: "rating", Message: fmt.Sprintf("must be between 0 and 5 (got %g)", *p.Rating)}
	}

	return nil
}

// ValidateCoordinates checks that c is a real position inside bounds.
func ValidateCoordinates(c spatial.Point, bounds spatial.BoundingBox) error {
	if c.IsZero() {
		return &ValidationError{Field: "coords", Message: "are required"}
	}

	if !c.Valid() {
		return &ValidationError{Field: "coords", Message: fmt.Sprintf("%s is not a valid position", c)}
	}

	if !bounds.Contains(c) {
		return &ValidationError{
			Field: "coords",
			Message: fmt.Sprintf("%s is outside the region (lat %g to %g, lng %g to %g)",
				c, bounds.MinLat, bounds.MaxLat, bounds.MinLng, bounds.MaxLng),
		}
	}

	return nil
}

// ValidatePreference checks the notes length and that at most one status is
// set.
func ValidatePreference(pref *Preference) error {
	if pref.Visited && pref.WantToVisit {
		return &ValidationError{Field: "visited", Message: "a place cannot be both visited and wanted"}
	}

	if len(pref.Notes) > maxNotesLen {
		return &ValidationError{Field: "notes", Message: fmt.Sprintf("is too long (max %d characters)", maxNotesLen)}
	}

	return nil
}
