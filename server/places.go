// Copyright 2025 The FoodMap Authors
// SPDX-License-Identifier: Apache-2.0

package server

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/htlee1999/food-map/importer"
	"github.com/htlee1999/food-map/places"
)

const defaultClusterResolution = 7

func placeID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		badRequest(c, "invalid place id")

		return 0, false
	}

	return id, true
}

func intQuery(c *gin.Context, key string, def int) (int, bool) {
	raw := c.Query(key)
	if raw == "" {
		return def, true
	}

	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		badRequest(c, fmt.Sprintf("invalid %s parameter", key))

		return 0, false
	}

	return n, true
}

func (s *Server) listPlaces(c *gin.Context) {
	limit, ok := intQuery(c, "limit", 0)
	if !ok {
		return
	}

	offset, ok := intQuery(c, "offset", 0)
	if !ok {
		return
	}

	ps, err := s.store.List(c.Request.Context(), places.Filter{
		Query:  c.Query("q"),
		Source: c.Query("source"),
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		writeError(c, err)

		return
	}

	if ps == nil {
		ps = []*places.Place{}
	}

	c.JSON(http.StatusOK, ps)
}

func (s *Server) getPlace(c *gin.Context) {
	id, ok := placeID(c)
	if !ok {
		return
	}

	p, err := s.store.Get(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)

		return
	}

	c.JSON(http.StatusOK, p)
}

// bindPlace decodes and validates the request body.
func (s *Server) bindPlace(c *gin.Context) (*places.Place, bool) {
	var p places.Place
	if err := c.ShouldBindJSON(&p); err != nil {
		badRequest(c, "invalid request body: "+err.Error())

		return nil, false
	}

	if err := places.Validate(&p, s.cfg.Bounds); err != nil {
		writeError(c, err)

		return nil, false
	}

	p.ID = 0

	return &p, true
}

func (s *Server) createPlace(c *gin.Context) {
	p, ok := s.bindPlace(c)
	if !ok {
		return
	}

	created, err := s.store.Create(c.Request.Context(), p)
	if err != nil {
		writeError(c, err)

		return
	}

	c.JSON(http.StatusCreated, places.PlaceResponse{Message: "Place added successfully", Place: created})
}

func (s *Server) updatePlace(c *gin.Context) {
	id, ok := placeID(c)
	if !ok {
		return
	}

	p, ok := s.bindPlace(c)
	if !ok {
		return
	}

	updated, err := s.store.Update(c.Request.Context(), id, p)
	if err != nil {
		writeError(c, err)

		return
	}

	c.JSON(http.StatusOK, places.PlaceResponse{Message: "Place updated successfully", Place: updated})
}

func (s *Server) deletePlace(c *gin.Context) {
	id, ok := placeID(c)
	if !ok {
		return
	}

	if err := s.store.Delete(c.Request.Context(), id); err != nil {
		writeError(c, err)

		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Place deleted successfully"})
}

// createPlaces stores a batch. The whole batch is rejected when any entry
// is invalid; duplicates are skipped.
func (s *Server) createPlaces(c *gin.Context) {
	var req places.BatchRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Places == nil {
		badRequest(c, "places must be an array")

		return
	}

	for i, p := range req.Places {
		if err := places.Validate(p, s.cfg.Bounds); err != nil {
			var ve *places.ValidationError
			if !errors.As(err, &ve) {
				writeError(c, err)

				return
			}

			field := fmt.Sprintf("places[%d]", i)
			if ve.Field != "" {
				field += "." + ve.Field
			}

			c.JSON(http.StatusBadRequest, places.ErrorResponse{Error: ve.Message, Field: field})

			return
		}

		p.ID = 0
	}

	res, err := s.store.CreateMany(c.Request.Context(), req.Places)
	if err != nil {
		writeError(c, err)

		return
	}

	c.JSON(http.StatusOK, places.BatchResponse{
		Message: fmt.Sprintf("Added %d new places, skipped %d duplicates", len(res.Added), res.Skipped),
		Total:   res.Total,
		Added:   len(res.Added),
		Skipped: res.Skipped,
		Places:  res.Added,
	})
}

func (s *Server) clusters(c *gin.Context) {
	res, ok := intQuery(c, "res", defaultClusterResolution)
	if !ok {
		return
	}

	ps, err := s.store.List(c.Request.Context(), places.Filter{})
	if err != nil {
		writeError(c, err)

		return
	}

	clusters, err := places.ClusterPlaces(ps, res)
	if err != nil {
		writeError(c, err)

		return
	}

	if clusters == nil {
		clusters = []*places.Cluster{}
	}

	c.JSON(http.StatusOK, clusters)
}

func (s *Server) fixCoordinates(c *gin.Context) {
	if s.geocoder == nil {
		c.JSON(http.StatusServiceUnavailable, places.ErrorResponse{Error: "geocoding is not configured"})

		return
	}

	report, err := importer.NewFixer(s.store, s.geocoder, s.cfg, importer.WithFixerMetrics(s.metrics)).Run(c.Request.Context())
	if err != nil {
		writeError(c, err)

		return
	}

	c.JSON(http.StatusOK, report)
}
