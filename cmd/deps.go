// Copyright 2025 The FoodMap Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/schollz/progressbar/v3"

	"github.com/htlee1999/food-map/geocoding"
	"github.com/htlee1999/food-map/metrics"
	"github.com/htlee1999/food-map/places"
	"github.com/htlee1999/food-map/resolve"
	"github.com/htlee1999/food-map/utils/httputils"
)

const pageFetchTimeout = 30 * time.Second

func httpClient(timeout time.Duration, userAgent string) *http.Client {
	opts := httputils.ClientOptions{
		Timeout:   timeout,
		UserAgent: userAgent,
		CookieTTL: time.Hour,
	}

	if traceHTTP || traceHTTPBody {
		opts.Trace = os.Stderr
		opts.TraceBody = traceHTTPBody
	}

	return httputils.NewClient(opts)
}

func userAgent() string {
	if cfg.Fetch.UserAgent != "" {
		return cfg.Fetch.UserAgent
	}

	return fmt.Sprintf("foodmap/%s", Version)
}

// openBackend opens the DuckDB store, or the JSON cache when the database
// cannot be opened. The returned func releases the store.
func openBackend(ctx context.Context) (places.Backend, func(), error) {
	if dir := filepath.Dir(cfg.Database.Path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, nil, fmt.Errorf("creating db directory: %w", err)
		}
	}

	repo, err := places.Open(ctx, cfg.Database.Path)
	if err == nil {
		return repo, func() { _ = repo.Close() }, nil
	}

	slog.Warn("database unavailable, using the local cache", "db", cfg.Database.Path, "cache", cfg.Cache.Path, "error", err)

	cache, err := places.OpenFileStore(cfg.Cache.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("opening local cache: %w", err)
	}

	return cache, func() {}, nil
}

// syncCache refreshes the JSON cache after the database changed, so that it
// can stand in for it.
func syncCache(ctx context.Context, store places.Backend) {
	if _, ok := store.(*places.Repository); !ok {
		return
	}

	n, err := places.ExportToJSON(ctx, store, cfg.Cache.Path)
	if err != nil {
		slog.Warn("could not refresh the local cache", "path", cfg.Cache.Path, "error", err)

		return
	}

	slog.Debug("local cache refreshed", "path", cfg.Cache.Path, "places", n)
}

func newGeocoder(ctx context.Context, m *metrics.Metrics) (*geocoding.AddressGeocoder, error) {
	return geocoding.New(ctx, cfg, httpClient(cfg.Geocoder.Timeout, userAgent()), m)
}

// newFetcher fetches share links through the configured proxy, or directly.
func newFetcher() resolve.PageFetcher {
	if cfg.Fetch.ProxyURL != "" {
		return resolve.NewProxyFetcher(cfg.Fetch.ProxyURL, httpClient(pageFetchTimeout, userAgent()))
	}

	return directFetcher()
}

// directFetcher fetches pages with a browser User-Agent unless one is
// configured.
func directFetcher() *resolve.DirectFetcher {
	ua := cfg.Fetch.UserAgent
	if ua == "" {
		ua = httputils.BrowserUserAgent
	}

	return resolve.NewDirectFetcher(httpClient(pageFetchTimeout, ua))
}

func newExtractor(m *metrics.Metrics) *resolve.Extractor {
	return resolve.NewExtractor(
		resolve.WithRegion(cfg.Region.Name, cfg.Region.Bounds),
		resolve.WithFetcher(newFetcher()),
		resolve.WithMetrics(m),
	)
}

// progress reports long runs with a bar on terminals and log lines
// otherwise.
type progress struct {
	description string
	tty         bool
	bar         *progressbar.ProgressBar
}

func newProgress(description string) *progress {
	return &progress{description: description, tty: isatty.IsTerminal(os.Stderr.Fd())}
}

// Update matches the progress callbacks of the importer.
func (p *progress) Update(done, total int) {
	if !p.tty {
		slog.Info(p.description, "done", done, "total", total)

		return
	}

	if p.bar == nil {
		p.bar = progressbar.NewOptions(total,
			progressbar.OptionSetDescription(p.description),
			progressbar.OptionSetWriter(os.Stderr),
			progressbar.OptionShowCount(),
			progressbar.OptionClearOnFinish(),
		)
	}

	_ = p.bar.Set(done)
}

func (p *progress) Finish() {
	if p.bar != nil {
		_ = p.bar.Finish()
	}
}
