// Copyright 2025 The FoodMap Authors
// SPDX-License-Identifier: Apache-2.0

// Package places holds the place and preference model and the stores that
// persist them: a DuckDB repository, a JSON file used as a local cache and
// a client for a remote server.
package places

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/htlee1999/food-map/spatial"
	"github.com/htlee1999/food-map/utils/textutils"
)

// PlaceholderAddress is stored when a share link gave coordinates but no
// address.
const PlaceholderAddress = "Location from Google Maps"

// H3Resolution is the resolution of Place.H3Cell.
const H3Resolution = 9

// DefaultUser owns every preference; there is no authentication.
const DefaultUser = "default"

// Source tags record how a place got its coordinates.
const (
	SourceGoogleMapsCoordinates = "google_maps_coordinates"
	SourceGoogleMapsURL         = "google_maps_url"
	SourcePlaceNameFallback     = "place_name_fallback"
	SourceDirectAddress         = "direct_address"
	SourceURLExtraction         = "url_extraction"
	SourceAddressColumn         = "address_column"
	SourceManual                = "manual"
	SourceFixedCoordinates      = "fixed_coordinates"

	// FallbackSuffix is appended to the source of places resolved by a
	// fallback tier.
	FallbackSuffix = "_fallback"
)

// Place is a restaurant or venue worth remembering.
type Place struct {
	ID          int64         `json:"id"`
	Name        string        `json:"name"`
	Address     string        `json:"address"`
	Coords      spatial.Point `json:"coords"`
	Description string        `json:"description,omitempty"`
	CuisineType string        `json:"cuisine_type,omitempty"`
	PriceRange  string        `json:"price_range,omitempty"`
	Rating      *float64      `json:"rating,omitempty"`
	Source      string        `json:"source,omitempty"`
	H3Cell      int64         `json:"h3_cell,omitempty"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
}

// Key identifies a place for duplicate detection: name and address compared
// ignoring case, accents and extra whitespace.
func (p *Place) Key() string {
	return textutils.Key(p.Name) + "\x00" + textutils.Key(p.Address)
}

func (p *Place) String() string {
	return fmt.Sprintf("%q (%s) at %s", p.Name, p.Address, p.Coords)
}

// normalize trims the text fields, fills the default source and derives the
// H3 cell.
func (p *Place) normalize() error {
	p.Name = strings.TrimSpace(p.Name)
	p.Address = strings.TrimSpace(p.Address)
	p.Description = strings.TrimSpace(p.Description)
	p.CuisineType = strings.TrimSpace(p.CuisineType)
	p.PriceRange = strings.TrimSpace(p.PriceRange)

	if p.Source == "" {
		p.Source = SourceManual
	}

	if p.Coords.IsZero() {
		p.H3Cell = 0

		return nil
	}

	cell, err := p.Coords.Cell(H3Resolution)
	if err != nil {
		return err
	}

	p.H3Cell = cell

	return nil
}

// Preference is what the user thinks of a place. Visited and WantToVisit
// are exclusive by convention; Server enforces it, the stores do not.
type Preference struct {
	PlaceID     int64     `json:"place_id"`
	UserID      string    `json:"user_id"`
	Visited     bool      `json:"visited"`
	WantToVisit bool      `json:"want_to_visit"`
	Notes       string    `json:"notes,omitempty"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Filter narrows List.
type Filter struct {
	// Query matches name or address ignoring case and accents.
	Query  string
	Source string
	Limit  int
	Offset int
}

// BatchResult is the outcome of CreateMany.
type BatchResult struct {
	// Added holds the stored places, with their IDs.
	Added   []*Place
	Skipped int
	Total   int
}

// Store persists places.
type Store interface {
	List(ctx context.Context, f Filter) ([]*Place, error)
	Get(ctx context.Context, id int64) (*Place, error)
	// Create returns ErrConflict when a place with the same name and
	// address exists.
	Create(ctx context.Context, p *Place) (*Place, error)
	Update(ctx context.Context, id int64, p *Place) (*Place, error)
	Delete(ctx context.Context, id int64) error
	// CreateMany stores every place that is not a duplicate, of a stored
	// place or of an earlier one in ps, and counts the rest as skipped.
	CreateMany(ctx context.Context, ps []*Place) (*BatchResult, error)
}

// PreferenceStore persists preferences.
type PreferenceStore interface {
	Preferences(ctx context.Context, userID string) ([]*Preference, error)
	// SetPreference inserts or replaces the preference of pref.UserID for
	// pref.PlaceID. ErrNotFound if the place does not exist.
	SetPreference(ctx context.Context, pref *Preference) (*Preference, error)
	ClearPreference(ctx context.Context, placeID int64, userID string) error
	// ReplacePreferences drops every preference of userID and records the
	// given lists. Unknown place IDs are ignored.
	ReplacePreferences(ctx context.Context, userID string, visited, wantToVisit []int64) error
}

// Backend is everything the server and the CLI need from storage.
type Backend interface {
	Store
	PreferenceStore
	Ping(ctx context.Context) error
}

// matches reports whether p passes f, ignoring paging.
func (f Filter) matches(p *Place) bool {
	if f.Source != "" && p.Source != f.Source {
		return false
	}

	if q := textutils.Key(f.Query); q != "" {
		return strings.Contains(textutils.Key(p.Name), q) || strings.Contains(textutils.Key(p.Address), q)
	}

	return true
}

// page applies Offset and Limit.
func page[T any](items []T, offset, limit int) []T {
	if offset > 0 {
		if offset >= len(items) {
			return nil
		}

		items = items[offset:]
	}

	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}

	return items
}
