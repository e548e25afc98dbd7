// Copyright 2025 The FoodMap Authors
// SPDX-License-Identifier: Apache-2.0

package importer

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/htlee1999/food-map/metrics"
	"github.com/htlee1999/food-map/places"
	"github.com/htlee1999/food-map/resolve"
	"github.com/htlee1999/food-map/spatial"
)

// FixReport is the outcome of Fixer.Run.
type FixReport struct {
	Checked    int             `json:"checked"`
	Invalid    int             `json:"invalid"`
	Fixed      []*places.Place `json:"fixed"`
	Unresolved []*places.Place `json:"unresolved"`
}

// Fixer re-geocodes stored places whose coordinates are outside the region,
// e.g. places saved before coordinates were checked.
type Fixer struct {
	store    places.Store
	geocoder Geocoder
	cfg      Config
	metrics  *metrics.Metrics
	progress func(done, total int)
	sleep    func(ctx context.Context, d time.Duration) error
}

// NewFixer creates a Fixer. Config.BatchDelay is waited between places.
func NewFixer(store places.Store, geocoder Geocoder, cfg Config, opts ...FixerOption) *Fixer {
	f := &Fixer{
		store:    store,
		geocoder: geocoder,
		cfg:      cfg,
		progress: func(int, int) {},
		sleep:    sleepContext,
	}

	for _, opt := range opts {
		opt(f)
	}

	return f
}

// FixerOption configures a Fixer.
type FixerOption func(*Fixer)

// WithFixerMetrics records every strategy outcome.
func WithFixerMetrics(m *metrics.Metrics) FixerOption {
	return func(f *Fixer) { f.metrics = m }
}

// WithFixerProgress is called after every invalid place.
func WithFixerProgress(fn func(done, total int)) FixerOption {
	return func(f *Fixer) { f.progress = fn }
}

// Invalid returns the stored places whose coordinates are outside the
// region.
func (f *Fixer) Invalid(ctx context.Context) ([]*places.Place, int, error) {
	all, err := f.store.List(ctx, places.Filter{})
	if err != nil {
		return nil, 0, fmt.Errorf("listing places: %w", err)
	}

	var invalid []*places.Place

	for _, p := range all {
		if !f.cfg.Bounds.Contains(p.Coords) {
			invalid = append(invalid, p)
		}
	}

	return invalid, len(all), nil
}

// Run fixes every invalid place it can geocode: by name, then by address
// unless it is the placeholder, then by name in each subregion.
func (f *Fixer) Run(ctx context.Context) (*FixReport, error) {
	invalid, checked, err := f.Invalid(ctx)
	if err != nil {
		return nil, err
	}

	report := &FixReport{Checked: checked, Invalid: len(invalid)}

	slog.Info("fixing coordinates", "checked", checked, "invalid", len(invalid))

	for i, p := range invalid {
		if i > 0 {
			if err := f.sleep(ctx, f.cfg.BatchDelay); err != nil {
				return report, err
			}
		}

		out := resolve.Run(ctx, f.metrics, f.strategies(p)...)
		if !out.OK {
			slog.Info("could not fix place", "id", p.ID, "name", p.Name, "attempted", out.Attempted)

			report.Unresolved = append(report.Unresolved, p)
			f.progress(i+1, len(invalid))

			continue
		}

		fixed := *p
		fixed.Coords = out.Value
		fixed.Source = places.SourceFixedCoordinates

		updated, err := f.store.Update(ctx, p.ID, &fixed)
		if err != nil {
			return report, fmt.Errorf("updating place %d: %w", p.ID, err)
		}

		slog.Info("fixed place", "id", p.ID, "name", p.Name, "strategy", out.Strategy, "coords", out.Value)

		report.Fixed = append(report.Fixed, updated)
		f.progress(i+1, len(invalid))
	}

	return report, ctx.Err()
}

func (f *Fixer) strategies(p *places.Place) []resolve.Step[spatial.Point] {
	geocode := func(name, query string) resolve.Step[spatial.Point] {
		return resolve.Step[spatial.Point]{
			Name: name,
			Try: func(ctx context.Context) (spatial.Point, bool) {
				return f.geocoder.Geocode(ctx, query)
			},
		}
	}

	steps := []resolve.Step[spatial.Point]{geocode("fix_name", p.Name)}

	if p.Address != "" && p.Address != places.PlaceholderAddress {
		steps = append(steps, geocode("fix_address", p.Address))
	}

	for _, sub := range f.cfg.Subregions {
		steps = append(steps, geocode("fix_subregion:"+sub, qualify(p.Name+", "+sub, f.cfg.Region)))
	}

	return steps
}
