// Copyright 2025 The FoodMap Authors
// SPDX-License-Identifier: Apache-2.0

// Package importer turns CSV rows into stored places: it finds the name and
// the location of each row, geocodes it through a chain of fallbacks and
// stores every resolved place in one batch.
package importer

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/htlee1999/food-map/config"
	"github.com/htlee1999/food-map/metrics"
	"github.com/htlee1999/food-map/places"
	"github.com/htlee1999/food-map/resolve"
	"github.com/htlee1999/food-map/spatial"
)

// Failure reasons.
const (
	ReasonMissingNameOrAddress = "missing_name_or_address"
	ReasonProcessingError      = "processing_error"
)

// Geocoder resolves free text to a position inside the region.
type Geocoder interface {
	Geocode(ctx context.Context, address string) (spatial.Point, bool)
}

// Extractor finds a location in a share link.
type Extractor interface {
	Extract(ctx context.Context, rawURL string) *resolve.Result
}

// Config holds the region and pacing settings shared by Pipeline and Fixer.
type Config struct {
	Region     string
	Bounds     spatial.BoundingBox
	Subregions []string
	BatchSize  int
	BatchDelay time.Duration
}

// ConfigFrom extracts the importer settings from the application config.
func ConfigFrom(cfg *config.Config) Config {
	return Config{
		Region:     cfg.Region.Name,
		Bounds:     cfg.Region.Bounds,
		Subregions: cfg.Region.Subregions,
		BatchSize:  cfg.Import.BatchSize,
		BatchDelay: cfg.Import.BatchDelay,
	}
}

// FailedRow is a row that could not be turned into a place.
type FailedRow struct {
	Index  int    `json:"index"`
	Row    Row    `json:"row"`
	Reason string `json:"reason"`
	Error  string `json:"error,omitempty"`
}

// GeocodingFailure is a row whose location no strategy could resolve.
type GeocodingFailure struct {
	Index    int      `json:"index"`
	Name     string   `json:"name"`
	Address  string   `json:"address"`
	Source   string   `json:"source"`
	Attempts []string `json:"attempts"`
}

// Result summarizes a Run.
type Result struct {
	RunID uuid.UUID `json:"run_id"`
	Total int       `json:"total"`
	// Resolved counts rows that produced a place, stored or not.
	Resolved int `json:"resolved"`
	// Added holds the stored places. In a dry run, the resolved ones.
	Added             []*places.Place    `json:"added"`
	Skipped           int                `json:"skipped"`
	Failed            []FailedRow        `json:"failed"`
	GeocodingFailures []GeocodingFailure `json:"geocoding_failures"`
	DryRun            bool               `json:"dry_run,omitempty"`
}

// Pipeline imports rows.
type Pipeline struct {
	store     places.Store
	extractor Extractor
	geocoder  Geocoder
	cfg       Config
	metrics   *metrics.Metrics
	progress  func(done, total int)
	dryRun    bool
	sleep     func(ctx context.Context, d time.Duration) error
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithMetrics counts rows by outcome.
func WithMetrics(m *metrics.Metrics) Option {
	return func(p *Pipeline) { p.metrics = m }
}

// WithProgress is called after every batch with the rows done so far.
func WithProgress(fn func(done, total int)) Option {
	return func(p *Pipeline) { p.progress = fn }
}

// WithDryRun resolves rows without storing them.
func WithDryRun(dryRun bool) Option {
	return func(p *Pipeline) { p.dryRun = dryRun }
}

// New creates a Pipeline. A non-positive batch size processes rows one at a
// time.
func New(store places.Store, extractor Extractor, geocoder Geocoder, cfg Config, opts ...Option) *Pipeline {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 1
	}

	p := &Pipeline{
		store:     store,
		extractor: extractor,
		geocoder:  geocoder,
		cfg:       cfg,
		progress:  func(int, int) {},
		sleep:     sleepContext,
	}

	for _, opt := range opts {
		opt(p)
	}

	return p
}

// outcome of a single row; exactly one field is set.
type outcome struct {
	place      *places.Place
	failed     *FailedRow
	geoFailure *GeocodingFailure
}

type resolvedPlace struct {
	index int
	place *places.Place
}

// Run imports rows. Rows run concurrently in batches of Config.BatchSize,
// with Config.BatchDelay between batches. A row never fails the run; the
// error is for the final store call or a cancelled ctx, and comes with the
// partial Result. Places resolved before a cancellation are still stored.
func (p *Pipeline) Run(ctx context.Context, rows []Row) (*Result, error) {
	res := &Result{RunID: uuid.New(), Total: len(rows), DryRun: p.dryRun}
	log := slog.With("run_id", res.RunID)

	log.Info("import started", "rows", len(rows), "batch_size", p.cfg.BatchSize)

	var (
		mu       sync.Mutex
		resolved []resolvedPlace
	)

	record := func(index int, o outcome) {
		mu.Lock()
		defer mu.Unlock()

		switch {
		case o.place != nil:
			resolved = append(resolved, resolvedPlace{index: index, place: o.place})
		case o.failed != nil:
			res.Failed = append(res.Failed, *o.failed)
		case o.geoFailure != nil:
			res.GeocodingFailures = append(res.GeocodingFailures, *o.geoFailure)
		}
	}

	var runErr error

	for start := 0; start < len(rows); start += p.cfg.BatchSize {
		if start > 0 {
			if err := p.sleep(ctx, p.cfg.BatchDelay); err != nil {
				runErr = err

				break
			}
		}

		end := min(start+p.cfg.BatchSize, len(rows))

		log.Debug("processing batch", "from", start+1, "to", end)

		var g errgroup.Group

		for i := start; i < end; i++ {
			g.Go(func() error {
				record(i, p.processRow(ctx, i, rows[i]))

				return nil
			})
		}

		_ = g.Wait() // rows record their own failures

		p.progress(end, len(rows))

		if err := ctx.Err(); err != nil {
			runErr = err

			break
		}
	}

	sort.Slice(resolved, func(i, j int) bool { return resolved[i].index < resolved[j].index })
	sort.Slice(res.Failed, func(i, j int) bool { return res.Failed[i].Index < res.Failed[j].Index })
	sort.Slice(res.GeocodingFailures, func(i, j int) bool {
		return res.GeocodingFailures[i].Index < res.GeocodingFailures[j].Index
	})

	toStore := make([]*places.Place, 0, len(resolved))
	for _, r := range resolved {
		toStore = append(toStore, r.place)
	}

	res.Resolved = len(toStore)

	if err := p.flush(context.WithoutCancel(ctx), res, toStore); err != nil {
		return res, err
	}

	p.metrics.AddImportRows("resolved", res.Resolved)
	p.metrics.AddImportRows("added", len(res.Added))
	p.metrics.AddImportRows("skipped", res.Skipped)
	p.metrics.AddImportRows("failed", len(res.Failed))
	p.metrics.AddImportRows("unresolved", len(res.GeocodingFailures))

	log.Info("import finished",
		"added", len(res.Added),
		"skipped", res.Skipped,
		"failed", len(res.Failed),
		"geocoding_failures", len(res.GeocodingFailures),
	)

	return res, runErr
}

// flush stores every resolved place with a single CreateMany.
func (p *Pipeline) flush(ctx context.Context, res *Result, toStore []*places.Place) error {
	if p.dryRun {
		res.Added = toStore

		return nil
	}

	if len(toStore) == 0 {
		return nil
	}

	br, err := p.store.CreateMany(ctx, toStore)
	if err != nil {
		return fmt.Errorf("storing %d places: %w", len(toStore), err)
	}

	res.Added = br.Added
	res.Skipped = br.Skipped

	return nil
}

// processRow never panics; a panic becomes a processing_error.
func (p *Pipeline) processRow(ctx context.Context, index int, row Row) (o outcome) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("panic processing row", "index", index, "panic", r, "stack", string(debug.Stack()))

			o = outcome{failed: &FailedRow{Index: index, Row: row, Reason: ReasonProcessingError, Error: fmt.Sprint(r)}}
		}
	}()

	schema, f := detect(row)
	source := "unknown"

	switch schema {
	case SchemaSavedList:
		loc := p.extractor.Extract(ctx, f.url)

		switch {
		case loc == nil:
			f.address = f.name
			source = places.SourcePlaceNameFallback
		case loc.Kind == resolve.KindCoordinates:
			return outcome{place: p.coordinatesPlace(f.name, loc)}
		default:
			f.address = loc.Address
			source = places.SourceGoogleMapsURL
		}
	case SchemaLicensee:
		source = places.SourceDirectAddress
	case SchemaHeuristic:
		switch {
		case f.url != "" && f.address == "":
			loc := p.extractor.Extract(ctx, f.url)
			if loc != nil && loc.Kind == resolve.KindCoordinates && f.name != "" {
				return outcome{place: p.coordinatesPlace(f.name, loc)}
			}

			if loc != nil && loc.Kind == resolve.KindAddress {
				f.address = loc.Address
				source = places.SourceURLExtraction
			}
		case f.hasAddressColumn:
			source = places.SourceAddressColumn
		}
	}

	if f.name == "" || f.address == "" {
		slog.Debug("row without name or address", "index", index, "schema", schema, "row", row)

		return outcome{failed: &FailedRow{Index: index, Row: row, Reason: ReasonMissingNameOrAddress}}
	}

	if pt, ok := p.geocoder.Geocode(ctx, f.address); ok {
		return outcome{place: &places.Place{Name: f.name, Address: f.address, Coords: pt, Source: source}}
	}

	out := resolve.Run(ctx, p.metrics, p.fallbacks(f.name)...)
	if !out.OK {
		slog.Info("could not geocode row", "index", index, "name", f.name, "address", f.address, "attempted", out.Attempted)

		return outcome{geoFailure: &GeocodingFailure{
			Index:    index,
			Name:     f.name,
			Address:  f.address,
			Source:   source,
			Attempts: append([]string{"address"}, out.Attempted...),
		}}
	}

	slog.Debug("row resolved by fallback", "index", index, "name", f.name, "strategy", out.Strategy)

	return outcome{place: &places.Place{
		Name:    f.name,
		Address: f.address,
		Coords:  out.Value,
		Source:  source + places.FallbackSuffix,
	}}
}

func (p *Pipeline) coordinatesPlace(name string, loc *resolve.Result) *places.Place {
	return &places.Place{
		Name:    name,
		Address: places.PlaceholderAddress,
		Coords:  loc.Coords,
		Source:  places.SourceGoogleMapsCoordinates,
	}
}

func (p *Pipeline) geocodeStep(name, query string) resolve.Step[spatial.Point] {
	return resolve.Step[spatial.Point]{
		Name: name,
		Try: func(ctx context.Context) (spatial.Point, bool) {
			return p.geocoder.Geocode(ctx, query)
		},
	}
}

// fallbacks are tried in order once the address failed: the name alone,
// the name in the region, the location trailing the name, and the name in
// each subregion.
func (p *Pipeline) fallbacks(name string) []resolve.Step[spatial.Point] {
	steps := []resolve.Step[spatial.Point]{
		p.geocodeStep("fallback_name", name),
		p.geocodeStep("fallback_name_region", qualify(name, p.cfg.Region)),
	}

	if loc, ok := resolve.TrailingLocation(name); ok {
		steps = append(steps, p.geocodeStep("fallback_trailing_location", qualify(loc, p.cfg.Region)))
	}

	for _, sub := range p.cfg.Subregions {
		s := p.geocodeStep("fallback_subregion:"+sub, qualify(name+", "+sub, p.cfg.Region))
		s.Label = "fallback_subregion"
		steps = append(steps, s)
	}

	return steps
}

func qualify(s, region string) string {
	if region == "" {
		return s
	}

	return s + ", " + region
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
