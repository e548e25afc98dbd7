// Copyright 2025 The FoodMap Authors
// SPDX-License-Identifier: Apache-2.0

// Package server exposes a places.Backend and the location resolution
// pipeline over a JSON REST API.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/htlee1999/food-map/importer"
	"github.com/htlee1999/food-map/metrics"
	"github.com/htlee1999/food-map/places"
	"github.com/htlee1999/food-map/resolve"
	"github.com/htlee1999/food-map/utils/httputils"
)

const shutdownTimeout = 5 * time.Second

// Server serves the REST API.
type Server struct {
	store     places.Backend
	cfg       importer.Config
	extractor importer.Extractor
	geocoder  importer.Geocoder
	fetcher   resolve.PageFetcher
	metrics   *metrics.Metrics
	now       func() time.Time
}

// Option configures a Server.
type Option func(*Server)

// WithExtractor sets the share link resolver behind /api/resolve and
// /api/import. By default URLs are resolved without fetching pages.
func WithExtractor(e importer.Extractor) Option {
	return func(s *Server) { s.extractor = e }
}

// WithGeocoder enables the endpoints that need geocoding.
func WithGeocoder(g importer.Geocoder) Option {
	return func(s *Server) { s.geocoder = g }
}

// WithFetcher sets how the proxy endpoint fetches pages.
func WithFetcher(f resolve.PageFetcher) Option {
	return func(s *Server) { s.fetcher = f }
}

// WithMetrics records request outcomes and serves /metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Server) { s.metrics = m }
}

// New creates a Server over store. cfg supplies the region and the import
// batching.
func New(store places.Backend, cfg importer.Config, opts ...Option) *Server {
	client := httputils.NewClient(httputils.ClientOptions{
		Timeout:   30 * time.Second,
		UserAgent: httputils.BrowserUserAgent,
	})

	s := &Server{
		store:   store,
		cfg:     cfg,
		fetcher: resolve.NewDirectFetcher(client),
		now:     time.Now,
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.extractor == nil {
		s.extractor = resolve.NewExtractor(resolve.WithRegion(cfg.Region, cfg.Bounds), resolve.WithMetrics(s.metrics))
	}

	return s
}

// Handler returns the gin engine with every route registered.
func (s *Server) Handler() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), logRequests(), cors())

	api := r.Group("/api")
	api.GET("/health", s.health)

	api.GET("/places", s.listPlaces)
	api.POST("/places", s.createPlace)
	api.POST("/places/batch", s.createPlaces)
	api.GET("/places/clusters", s.clusters)
	api.POST("/places/fix-coordinates", s.fixCoordinates)
	api.GET("/places/:id", s.getPlace)
	api.PUT("/places/:id", s.updatePlace)
	api.DELETE("/places/:id", s.deletePlace)
	api.PUT("/places/:id/preference", s.setPreference)
	api.DELETE("/places/:id/preference", s.clearPreference)

	api.GET("/preferences", s.preferences)
	api.POST("/preferences", s.replacePreferences)

	api.GET("/proxy/google-maps", s.proxy)
	api.GET("/resolve", s.resolveURL)
	api.GET("/geocode", s.geocode)
	api.POST("/import", s.importRows)

	if s.metrics != nil {
		r.GET("/metrics", gin.WrapH(s.metrics.Handler()))
	}

	return r
}

// Run serves on addr until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)

	go func() {
		slog.Info("server listening", "addr", addr, "url", fmt.Sprintf("http://%s", addr))
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down: %w", err)
	}

	if err := <-errc; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return nil
}

// logRequests logs one line per request once it is served.
func logRequests() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		level := slog.LevelInfo
		if c.Writer.Status() >= http.StatusInternalServerError {
			level = slog.LevelError
		}

		slog.Log(c.Request.Context(), level, "request completed",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration_ms", time.Since(start).Milliseconds(),
		)
	}
}

// cors allows any origin, the web client is served from elsewhere.
func cors() gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.Writer.Header()
		h.Set("Access-Control-Allow-Origin", "*")
		h.Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		h.Set("Access-Control-Allow-Headers", "Content-Type, Accept")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)

			return
		}

		c.Next()
	}
}

// writeError maps store errors to status codes.
func writeError(c *gin.Context, err error) {
	var ve *places.ValidationError

	switch {
	case errors.As(err, &ve):
		c.JSON(http.StatusBadRequest, places.ErrorResponse{Error: ve.Message, Field: ve.Field})
	case errors.Is(err, places.ErrNotFound):
		c.JSON(http.StatusNotFound, places.ErrorResponse{Error: err.Error()})
	case errors.Is(err, places.ErrConflict):
		c.JSON(http.StatusConflict, places.ErrorResponse{Error: err.Error()})
	default:
		slog.Error("request failed", "method", c.Request.Method, "path", c.Request.URL.Path, "error", err)
		c.JSON(http.StatusInternalServerError, places.ErrorResponse{Error: err.Error()})
	}
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, places.ErrorResponse{Error: msg})
}

func (s *Server) health(c *gin.Context) {
	resp := places.HealthResponse{
		Status:    "OK",
		Timestamp: s.now().UTC(),
		Database:  places.DatabaseHealth{Status: "connected"},
	}

	status := http.StatusOK

	if err := s.store.Ping(c.Request.Context()); err != nil {
		resp.Status = "degraded"
		resp.Database = places.DatabaseHealth{Status: "disconnected", Error: err.Error()}
		status = http.StatusServiceUnavailable
	}

	c.JSON(status, resp)
}
