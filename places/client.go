// Copyright 2025 The FoodMap Authors
// SPDX-License-Identifier: Apache-2.0

package places

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

// Client is a Backend talking to a remote server.
type Client struct {
	baseURL string
	http    *http.Client
}

var _ Backend = (*Client)(nil)

// NewClient creates a client for the server at baseURL, e.g.
// http://localhost:3001.
func NewClient(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	return &Client{baseURL: strings.TrimRight(baseURL, "/"), http: httpClient}
}

// BaseURL returns the server address.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// statusError maps an error response to the store errors.
func statusError(resp *http.Response) error {
	var body ErrorResponse

	data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err := json.Unmarshal(data, &body); err != nil || body.Error == "" {
		body.Error = strings.TrimSpace(string(data))
	}

	switch resp.StatusCode {
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusConflict:
		return ErrConflict
	case http.StatusBadRequest:
		return &ValidationError{Field: body.Field, Message: body.Error}
	}

	return fmt.Errorf("server returned %d: %s", resp.StatusCode, body.Error)
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader

	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encoding request: %w", err)
		}

		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}

	req.Header.Set("Accept", "application/json")

	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return statusError(resp)
	}

	if out == nil {
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding %s %s: %w", method, path, err)
	}

	return nil
}

// Ping implements Backend: the server must be up and report its database
// as connected.
func (c *Client) Ping(ctx context.Context) error {
	var health HealthResponse
	if err := c.do(ctx, http.MethodGet, "/api/health", nil, &health); err != nil {
		return err
	}

	if health.Database.Status != "connected" {
		return fmt.Errorf("server database is %s: %s", health.Database.Status, health.Database.Error)
	}

	return nil
}

// Healthy reports whether Ping succeeds.
func (c *Client) Healthy(ctx context.Context) bool {
	if err := c.Ping(ctx); err != nil {
		slog.Debug("remote server is not healthy", "url", c.baseURL, "error", err)

		return false
	}

	return true
}

// List implements Store.
func (c *Client) List(ctx context.Context, f Filter) ([]*Place, error) {
	q := url.Values{}
	if f.Query != "" {
		q.Set("q", f.Query)
	}

	if f.Source != "" {
		q.Set("source", f.Source)
	}

	if f.Limit > 0 {
		q.Set("limit", strconv.Itoa(f.Limit))
	}

	if f.Offset > 0 {
		q.Set("offset", strconv.Itoa(f.Offset))
	}

	path := "/api/places"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	var places []*Place
	if err := c.do(ctx, http.MethodGet, path, nil, &places); err != nil {
		return nil, err
	}

	return places, nil
}

func placePath(id int64) string {
	return "/api/places/" + strconv.FormatInt(id, 10)
}

// Get implements Store.
func (c *Client) Get(ctx context.Context, id int64) (*Place, error) {
	var p Place
	if err := c.do(ctx, http.MethodGet, placePath(id), nil, &p); err != nil {
		return nil, err
	}

	return &p, nil
}

// Create implements Store.
func (c *Client) Create(ctx context.Context, p *Place) (*Place, error) {
	var resp PlaceResponse
	if err := c.do(ctx, http.MethodPost, "/api/places", p, &resp); err != nil {
		return nil, err
	}

	return resp.Place, nil
}

// Update implements Store.
func (c *Client) Update(ctx context.Context, id int64, p *Place) (*Place, error) {
	var resp PlaceResponse
	if err := c.do(ctx, http.MethodPut, placePath(id), p, &resp); err != nil {
		return nil, err
	}

	return resp.Place, nil
}

// Delete implements Store.
func (c *Client) Delete(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, placePath(id), nil, nil)
}

// CreateMany implements Store.
func (c *Client) CreateMany(ctx context.Context, ps []*Place) (*BatchResult, error) {
	var resp BatchResponse
	if err := c.do(ctx, http.MethodPost, "/api/places/batch", BatchRequest{Places: ps}, &resp); err != nil {
		return nil, err
	}

	return &BatchResult{Added: resp.Places, Skipped: resp.Skipped, Total: resp.Total}, nil
}

// Preferences implements PreferenceStore. The server only knows
// DefaultUser.
func (c *Client) Preferences(ctx context.Context, userID string) ([]*Preference, error) {
	if userID != DefaultUser {
		return nil, errors.New("remote server only stores preferences of " + DefaultUser)
	}

	var resp PreferencesResponse
	if err := c.do(ctx, http.MethodGet, "/api/preferences", nil, &resp); err != nil {
		return nil, err
	}

	return resp.Preferences, nil
}

// SetPreference implements PreferenceStore.
func (c *Client) SetPreference(ctx context.Context, pref *Preference) (*Preference, error) {
	in := PreferenceRequest{Visited: pref.Visited, WantToVisit: pref.WantToVisit, Notes: pref.Notes}

	var out Preference
	if err := c.do(ctx, http.MethodPut, placePath(pref.PlaceID)+"/preference", in, &out); err != nil {
		return nil, err
	}

	return &out, nil
}

// ClearPreference implements PreferenceStore.
func (c *Client) ClearPreference(ctx context.Context, placeID int64, _ string) error {
	return c.do(ctx, http.MethodDelete, placePath(placeID)+"/preference", nil, nil)
}

// ReplacePreferences implements PreferenceStore.
func (c *Client) ReplacePreferences(ctx context.Context, _ string, visited, wantToVisit []int64) error {
	return c.do(ctx, http.MethodPost, "/api/preferences", PreferencesRequest{Visited: visited, WantToVisit: wantToVisit}, nil)
}

// WithFallback returns primary if it answers Ping and cache otherwise.
func WithFallback(ctx context.Context, primary, cache Backend) Backend {
	if err := primary.Ping(ctx); err != nil {
		slog.Warn("store unreachable, using the local cache", "error", err)

		return cache
	}

	return primary
}
