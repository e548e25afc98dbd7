// Copyright 2025 The FoodMap Authors
// SPDX-License-Identifier: Apache-2.0

package resolve

import (
	"context"
	"log/slog"
	"net/url"
	"strings"

	"github.com/htlee1999/food-map/metrics"
	"github.com/htlee1999/food-map/spatial"
)

// Extractor finds a location in a map-service share link. It tries, in
// order: coordinates in the link, the q= parameter, coordinates embedded in
// the fetched page, the /place/ name and finally the page title.
type Extractor struct {
	bounds  spatial.BoundingBox
	region  string
	fetcher PageFetcher
	metrics *metrics.Metrics
}

// ExtractorOption configures an Extractor.
type ExtractorOption func(*Extractor)

// WithRegion sets the bounding box coordinates must fall in and the region
// name appended to bare place names.
func WithRegion(name string, bounds spatial.BoundingBox) ExtractorOption {
	return func(e *Extractor) {
		e.region = name
		e.bounds = bounds
	}
}

// WithFetcher enables the page based strategies.
func WithFetcher(f PageFetcher) ExtractorOption {
	return func(e *Extractor) { e.fetcher = f }
}

// WithMetrics records every strategy outcome.
func WithMetrics(m *metrics.Metrics) ExtractorOption {
	return func(e *Extractor) { e.metrics = m }
}

// NewExtractor creates an Extractor for Singapore without page fetching.
func NewExtractor(opts ...ExtractorOption) *Extractor {
	e := &Extractor{bounds: spatial.Singapore, region: "Singapore"}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// Region returns the name appended to bare place names.
func (e *Extractor) Region() string {
	return e.region
}

// Extract resolves rawURL. It never fails: links that are malformed or
// carry no usable location yield nil.
func (e *Extractor) Extract(ctx context.Context, rawURL string) *Result {
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return nil
	}

	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		slog.Debug("not a share link", "url", rawURL)

		return nil
	}

	// the page is fetched at most once, by whichever step needs it first
	var (
		page    *Page
		fetched bool
	)

	fetch := func(ctx context.Context) *Page {
		if !fetched {
			fetched = true

			p, err := e.fetcher.Fetch(ctx, rawURL)
			if err != nil {
				slog.Debug("fetching share link failed", "url", rawURL, "error", err)
			} else {
				page = p
			}
		}

		return page
	}

	steps := make([]Step[*Result], 0, len(urlCoordinateMatchers)+5)

	for _, m := range urlCoordinateMatchers {
		steps = append(steps, Step[*Result]{Name: m.name, Try: e.urlStep(m, u)})
	}

	steps = append(steps, Step[*Result]{Name: queryMatcher.name, Try: e.urlStep(queryMatcher, u)})

	if e.fetcher != nil {
		steps = append(steps, Step[*Result]{Name: "html_coordinates", Try: func(ctx context.Context) (*Result, bool) {
			p := fetch(ctx)
			if p == nil {
				return nil, false
			}

			r := e.pageCoordinates(ctx, u, p)

			return r, r != nil
		}})
	}

	steps = append(steps, Step[*Result]{Name: "url_place_name", Try: func(context.Context) (*Result, bool) {
		name := placeName(u)
		if name == "" {
			return nil, false
		}

		if loc, ok := TrailingLocation(name); ok {
			return Address(loc, "url_place_name"), true
		}

		return Address(e.qualify(name), "url_place_name"), true
	}})

	if e.fetcher != nil {
		steps = append(steps, Step[*Result]{Name: "html_title", Try: func(ctx context.Context) (*Result, bool) {
			p := fetch(ctx)
			if p == nil {
				return nil, false
			}

			title, ok := pageTitle(p)
			if !ok {
				return nil, false
			}

			return Address(e.qualify(title), "html_title"), true
		}})
	}

	out := Run(ctx, e.metrics, steps...)
	if !out.OK {
		slog.Debug("no location in share link", "url", rawURL, "attempted", out.Attempted)

		return nil
	}

	slog.Debug("resolved share link", "url", rawURL, "result", out.Value.String())

	return out.Value
}

func (e *Extractor) urlStep(m urlMatcher, u *url.URL) func(context.Context) (*Result, bool) {
	return func(context.Context) (*Result, bool) {
		r := m.match(u, e.bounds)

		return r, r != nil
	}
}

// pageCoordinates looks at the post-redirect URL first, then at the page.
func (e *Extractor) pageCoordinates(ctx context.Context, original *url.URL, p *Page) *Result {
	steps := make([]Step[*Result], 0, len(urlCoordinateMatchers)+len(htmlMatchers))

	if final, err := url.Parse(p.URL); err == nil && final.String() != original.String() {
		for _, m := range urlCoordinateMatchers {
			steps = append(steps, Step[*Result]{Name: "redirect_" + m.name, Try: e.urlStep(m, final)})
		}
	}

	for _, m := range htmlMatchers {
		steps = append(steps, Step[*Result]{Name: m.name, Try: func(context.Context) (*Result, bool) {
			pt, ok := m.find(p)
			if !ok || !e.bounds.Contains(pt) {
				return nil, false
			}

			return Coordinates(pt, m.name), true
		}})
	}

	return Run(ctx, e.metrics, steps...).Value
}

func (e *Extractor) qualify(name string) string {
	if e.region == "" {
		return name
	}

	return name + ", " + e.region
}
