// Copyright 2025 The FoodMap Authors
// SPDX-License-Identifier: Apache-2.0

package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/htlee1999/food-map/places"
)

// Preferences always belong to places.DefaultUser.

func (s *Server) preferences(c *gin.Context) {
	prefs, err := s.store.Preferences(c.Request.Context(), places.DefaultUser)
	if err != nil {
		writeError(c, err)

		return
	}

	c.JSON(http.StatusOK, places.NewPreferencesResponse(prefs))
}

// replacePreferences overwrites both lists. A place in both lists ends up
// visited.
func (s *Server) replacePreferences(c *gin.Context) {
	var req places.PreferencesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body: "+err.Error())

		return
	}

	ctx := c.Request.Context()

	if err := s.store.ReplacePreferences(ctx, places.DefaultUser, req.Visited, req.WantToVisit); err != nil {
		writeError(c, err)

		return
	}

	s.preferences(c)
}

func (s *Server) setPreference(c *gin.Context) {
	id, ok := placeID(c)
	if !ok {
		return
	}

	var req places.PreferenceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body: "+err.Error())

		return
	}

	pref := &places.Preference{
		PlaceID:     id,
		UserID:      places.DefaultUser,
		Visited:     req.Visited,
		WantToVisit: req.WantToVisit,
		Notes:       req.Notes,
	}

	if err := places.ValidatePreference(pref); err != nil {
		writeError(c, err)

		return
	}

	saved, err := s.store.SetPreference(c.Request.Context(), pref)
	if err != nil {
		writeError(c, err)

		return
	}

	c.JSON(http.StatusOK, saved)
}

func (s *Server) clearPreference(c *gin.Context) {
	id, ok := placeID(c)
	if !ok {
		return
	}

	if err := s.store.ClearPreference(c.Request.Context(), id, places.DefaultUser); err != nil {
		writeError(c, err)

		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Preference cleared"})
}
