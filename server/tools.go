// Copyright 2025 The FoodMap Authors
// SPDX-License-Identifier: Apache-2.0

package server

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/htlee1999/food-map/importer"
	"github.com/htlee1999/food-map/places"
	"github.com/htlee1999/food-map/resolve"
	"github.com/htlee1999/food-map/spatial"
)

const maxImportBytes = 10 << 20

// proxy fetches a page for clients that cannot reach it themselves.
func (s *Server) proxy(c *gin.Context) {
	raw := strings.TrimSpace(c.Query("url"))
	if raw == "" {
		c.JSON(http.StatusBadRequest, resolve.ProxyResponse{Error: "URL parameter is required"})

		return
	}

	if u, err := url.Parse(raw); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		c.JSON(http.StatusBadRequest, resolve.ProxyResponse{Error: "URL must be an absolute http(s) URL"})

		return
	}

	slog.Debug("proxying request", "url", raw)

	page, err := s.fetcher.Fetch(c.Request.Context(), raw)
	if err != nil {
		status := http.StatusInternalServerError

		var se *resolve.StatusError
		if errors.As(err, &se) && se.StatusCode >= http.StatusBadRequest {
			status = se.StatusCode
		}

		slog.Warn("proxy fetch failed", "url", raw, "status", status, "error", err)
		c.JSON(status, resolve.ProxyResponse{Error: "Failed to fetch URL: " + err.Error()})

		return
	}

	c.JSON(http.StatusOK, resolve.ProxyResponse{
		Success: true,
		HTML:    page.HTML,
		URL:     page.URL,
		Length:  len(page.HTML),
	})
}

func (s *Server) resolveURL(c *gin.Context) {
	raw := strings.TrimSpace(c.Query("url"))
	if raw == "" {
		badRequest(c, "url parameter is required")

		return
	}

	res := s.extractor.Extract(c.Request.Context(), raw)
	if res == nil {
		c.JSON(http.StatusNotFound, places.ErrorResponse{Error: "no location found in URL"})

		return
	}

	c.JSON(http.StatusOK, res)
}

// GeocodeResponse is the body of /api/geocode.
type GeocodeResponse struct {
	Address string        `json:"address"`
	Coords  spatial.Point `json:"coords"`
}

func (s *Server) geocode(c *gin.Context) {
	if s.geocoder == nil {
		c.JSON(http.StatusServiceUnavailable, places.ErrorResponse{Error: "geocoding is not configured"})

		return
	}

	address := strings.TrimSpace(c.Query("address"))
	if address == "" {
		badRequest(c, "address parameter is required")

		return
	}

	pt, ok := s.geocoder.Geocode(c.Request.Context(), address)
	if !ok {
		c.JSON(http.StatusNotFound, places.ErrorResponse{Error: "address not found"})

		return
	}

	c.JSON(http.StatusOK, GeocodeResponse{Address: address, Coords: pt})
}

// ImportRequest is the JSON alternative to uploading a CSV file.
type ImportRequest struct {
	Rows []importer.Row `json:"rows"`
}

// importRows runs the import pipeline on an uploaded CSV (multipart field
// "file") or on JSON rows. dry_run=true resolves without storing.
func (s *Server) importRows(c *gin.Context) {
	if s.geocoder == nil {
		c.JSON(http.StatusServiceUnavailable, places.ErrorResponse{Error: "geocoding is not configured"})

		return
	}

	rows, err := readImportRows(c)
	if err != nil {
		badRequest(c, err.Error())

		return
	}

	p := importer.New(s.store, s.extractor, s.geocoder, s.cfg,
		importer.WithMetrics(s.metrics),
		importer.WithDryRun(c.Query("dry_run") == "true"),
	)

	res, err := p.Run(c.Request.Context(), rows)
	if err != nil {
		writeError(c, err)

		return
	}

	c.JSON(http.StatusOK, res)
}

func readImportRows(c *gin.Context) ([]importer.Row, error) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxImportBytes)

	if strings.HasPrefix(c.ContentType(), "multipart/") {
		fh, err := c.FormFile("file")
		if err != nil {
			return nil, errors.New("file field is required")
		}

		f, err := fh.Open()
		if err != nil {
			return nil, err
		}
		defer f.Close()

		return importer.ReadCSV(f)
	}

	if c.ContentType() == "text/csv" {
		return importer.ReadCSV(c.Request.Body)
	}

	var req ImportRequest
	if err := json.NewDecoder(c.Request.Body).Decode(&req); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("request body is empty")
		}

		return nil, errors.New("invalid request body: " + err.Error())
	}

	return req.Rows, nil
}
