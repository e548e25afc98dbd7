// Copyright 2025 The FoodMap Authors
// SPDX-License-Identifier: Apache-2.0

package resolve

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/htlee1999/food-map/utils/htmlutils"
)

// MaxPageBytes caps how much of a page is read.
const MaxPageBytes = 4 << 20

// PageFetcher retrieves the HTML a share link points to.
type PageFetcher interface {
	Fetch(ctx context.Context, rawURL string) (*Page, error)
}

// DirectFetcher fetches pages with its own HTTP client. The client should
// send a browser User-Agent (see httputils.BrowserUserAgent).
type DirectFetcher struct {
	client *http.Client
}

// NewDirectFetcher creates a fetcher using client.
func NewDirectFetcher(client *http.Client) *DirectFetcher {
	if client == nil {
		client = http.DefaultClient
	}

	return &DirectFetcher{client: client}
}

// StatusError reports a non-200 upstream response.
type StatusError struct {
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("upstream status %d", e.StatusCode)
}

// Fetch implements PageFetcher.
func (f *DirectFetcher) Fetch(ctx context.Context, rawURL string) (*Page, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}

	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &StatusError{StatusCode: resp.StatusCode}
	}

	body, err := htmlutils.ReadString(resp, MaxPageBytes)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", rawURL, err)
	}

	final := rawURL
	if resp.Request != nil && resp.Request.URL != nil {
		final = resp.Request.URL.String()
	}

	return &Page{URL: final, HTML: body}, nil
}

// ProxyResponse is the body served by the proxy endpoint.
type ProxyResponse struct {
	Success bool   `json:"success"`
	HTML    string `json:"html,omitempty"`
	URL     string `json:"url,omitempty"`
	Length  int    `json:"length"`
	Error   string `json:"error,omitempty"`
}

// ProxyFetcher fetches pages through the server's proxy endpoint, for
// callers that cannot reach the map service themselves.
type ProxyFetcher struct {
	endpoint string
	client   *http.Client
}

// NewProxyFetcher creates a fetcher for the proxy at endpoint, e.g.
// http://localhost:3001/api/proxy/google-maps.
func NewProxyFetcher(endpoint string, client *http.Client) *ProxyFetcher {
	if client == nil {
		client = http.DefaultClient
	}

	return &ProxyFetcher{endpoint: endpoint, client: client}
}

// Fetch implements PageFetcher.
func (f *ProxyFetcher) Fetch(ctx context.Context, rawURL string) (*Page, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.endpoint+"?url="+url.QueryEscape(rawURL), nil)
	if err != nil {
		return nil, fmt.Errorf("building proxy request: %w", err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling proxy: %w", err)
	}
	defer resp.Body.Close()

	var pr ProxyResponse
	if err := json.NewDecoder(resp.Body).Decode(&pr); err != nil {
		return nil, fmt.Errorf("decoding proxy response (status %d): %w", resp.StatusCode, err)
	}

	if resp.StatusCode != http.StatusOK || !pr.Success {
		if pr.Error == "" {
			pr.Error = http.StatusText(resp.StatusCode)
		}

		return nil, errors.Join(&StatusError{StatusCode: resp.StatusCode}, errors.New("proxy: "+pr.Error))
	}

	final := pr.URL
	if final == "" {
		final = rawURL
	}

	return &Page{URL: final, HTML: pr.HTML}, nil
}
