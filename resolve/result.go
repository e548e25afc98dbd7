// Copyright 2025 The FoodMap Authors
// SPDX-License-Identifier: Apache-2.0

// Package resolve recovers a location from a map-service share link, either
// from the link itself or from the page it points to.
package resolve

import (
	"encoding/json"
	"fmt"

	"github.com/htlee1999/food-map/spatial"
)

// Kind discriminates Result.
type Kind string

const (
	KindCoordinates Kind = "coordinates"
	KindAddress     Kind = "address"
)

// Result is what a share link resolved to: either coordinates or an address
// that still has to be geocoded. A link that resolves to nothing is a nil
// *Result.
type Result struct {
	Kind     Kind
	Coords   spatial.Point
	Address  string
	Strategy string // matcher that produced the result
}

// Coordinates builds a coordinates Result.
func Coordinates(p spatial.Point, strategy string) *Result {
	return &Result{Kind: KindCoordinates, Coords: p, Strategy: strategy}
}

// Address builds an address Result.
func Address(address, strategy string) *Result {
	return &Result{Kind: KindAddress, Address: address, Strategy: strategy}
}

func (r *Result) String() string {
	if r == nil {
		return "<nil>"
	}

	if r.Kind == KindCoordinates {
		return fmt.Sprintf("coordinates(%s) via %s", r.Coords, r.Strategy)
	}

	return fmt.Sprintf("address(%q) via %s", r.Address, r.Strategy)
}

type wireResult struct {
	Type     Kind            `json:"type"`
	Data     json.RawMessage `json:"data"`
	Strategy string          `json:"strategy,omitempty"`
}

// MarshalJSON encodes r as {"type": ..., "data": ...}.
func (r Result) MarshalJSON() ([]byte, error) {
	var (
		data []byte
		err  error
	)

	switch r.Kind {
	case KindCoordinates:
		data, err = json.Marshal(r.Coords)
	case KindAddress:
		data, err = json.Marshal(r.Address)
	default:
		return nil, fmt.Errorf("unknown result kind %q", r.Kind)
	}

	if err != nil {
		return nil, err
	}

	return json.Marshal(wireResult{Type: r.Kind, Data: data, Strategy: r.Strategy})
}

// UnmarshalJSON decodes the format written by MarshalJSON.
func (r *Result) UnmarshalJSON(b []byte) error {
	var w wireResult
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}

	*r = Result{Kind: w.Type, Strategy: w.Strategy}

	switch w.Type {
	case KindCoordinates:
		return json.Unmarshal(w.Data, &r.Coords)
	case KindAddress:
		return json.Unmarshal(w.Data, &r.Address)
	default:
		return fmt.Errorf("unknown result type %q", w.Type)
	}
}
