// Copyright 2025 The FoodMap Authors
// SPDX-License-Identifier: Apache-2.0

package places

import "time"

// Request and response bodies of the REST API, shared by the server and
// Client.

type PlaceResponse struct {
	Message string `json:"message"`
	Place   *Place `json:"place"`
}

type BatchRequest struct {
	Places []*Place `json:"places"`
}

type BatchResponse struct {
	Message string   `json:"message"`
	Total   int      `json:"total"`
	Added   int      `json:"added"`
	Skipped int      `json:"skipped"`
	Places  []*Place `json:"places,omitempty"`
}

type PreferencesRequest struct {
	Visited     []int64 `json:"visited"`
	WantToVisit []int64 `json:"want_to_visit"`
}

type PreferencesResponse struct {
	Visited     []int64       `json:"visited"`
	WantToVisit []int64       `json:"want_to_visit"`
	Preferences []*Preference `json:"preferences"`
}

// NewPreferencesResponse splits prefs into the visited and wanted ID lists.
func NewPreferencesResponse(prefs []*Preference) PreferencesResponse {
	resp := PreferencesResponse{
		Visited:     []int64{},
		WantToVisit: []int64{},
		Preferences: prefs,
	}

	if resp.Preferences == nil {
		resp.Preferences = []*Preference{}
	}

	for _, p := range prefs {
		if p.Visited {
			resp.Visited = append(resp.Visited, p.PlaceID)
		}

		if p.WantToVisit {
			resp.WantToVisit = append(resp.WantToVisit, p.PlaceID)
		}
	}

	return resp
}

type PreferenceRequest struct {
	Visited     bool   `json:"visited"`
	WantToVisit bool   `json:"want_to_visit"`
	Notes       string `json:"notes"`
}

type ErrorResponse struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

type DatabaseHealth struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

type HealthResponse struct {
	Status    string         `json:"status"`
	Timestamp time.Time      `json:"timestamp"`
	Database  DatabaseHealth `json:"database"`
}
