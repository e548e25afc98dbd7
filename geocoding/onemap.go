// Copyright 2025 The FoodMap Authors
// SPDX-License-Identifier: Apache-2.0

package geocoding

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/htlee1999/food-map/spatial"
)

// OneMapBaseURL is the public OneMap endpoint.
const OneMapBaseURL = "https://www.onemap.gov.sg"

// OneMapProvider uses the OneMap elastic search API.
type OneMapProvider struct {
	baseURL    string
	httpClient *http.Client
}

// NewOneMapProvider creates a OneMap provider. An empty baseURL selects the
// public endpoint.
func NewOneMapProvider(baseURL string, httpClient *http.Client) *OneMapProvider {
	if baseURL == "" {
		baseURL = OneMapBaseURL
	}

	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	return &OneMapProvider{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: httpClient,
	}
}

type oneMapResponse struct {
	Found   int `json:"found"`
	Results []struct {
		SearchVal string `json:"SEARCHVAL"`
		Address   string `json:"ADDRESS"`
		Postal    string `json:"POSTAL"`
		Latitude  string `json:"LATITUDE"`
		Longitude string `json:"LONGITUDE"`
	} `json:"results"`
}

// Name implements Provider.
func (p *OneMapProvider) Name() string { return "onemap" }

// Search implements Provider.
func (p *OneMapProvider) Search(ctx context.Context, query string) ([]Result, error) {
	params := url.Values{}
	params.Set("searchVal", query)
	params.Set("returnGeom", "Y")
	params.Set("getAddrDetails", "Y")
	params.Set("pageNum", "1")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"/api/common/elastic/search?"+params.Encode(), nil)
	if err != nil {
		return nil, &GeocodingError{Type: ErrorTypeInvalidRequest, Message: "onemap: building request", Err: err}
	}

	req.Header.Set("Accept", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, classifyTransportError(p.Name(), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, ClassifyHTTPError(resp.StatusCode, p.Name())
	}

	var omResp oneMapResponse
	if err := json.NewDecoder(resp.Body).Decode(&omResp); err != nil {
		return nil, &GeocodingError{Type: ErrorTypeUnknown, Message: "onemap: decoding response", Err: err}
	}

	if omResp.Found == 0 {
		return nil, nil
	}

	results := make([]Result, 0, len(omResp.Results))

	for _, r := range omResp.Results {
		lat, latErr := strconv.ParseFloat(strings.TrimSpace(r.Latitude), 64)
		lng, lngErr := strconv.ParseFloat(strings.TrimSpace(r.Longitude), 64)

		if latErr != nil || lngErr != nil {
			slog.Debug("onemap candidate without coordinates", "query", query, "searchval", r.SearchVal)

			continue
		}

		name := r.Address
		if name == "" {
			name = r.SearchVal
		}

		results = append(results, Result{
			Point:       spatial.Point{Lat: lat, Lng: lng},
			DisplayName: name,
			Confidence:  oneMapConfidence(r.Postal),
			Provider:    p.Name(),
		})
	}

	if len(results) == 0 && len(omResp.Results) > 0 {
		return nil, &GeocodingError{
			Type:    ErrorTypeUnknown,
			Message: fmt.Sprintf("onemap: %d candidates for %q but none with coordinates", len(omResp.Results), query),
		}
	}

	return results, nil
}

// candidates with a postal code point to a building.
func oneMapConfidence(postal string) string {
	postal = strings.TrimSpace(postal)
	if postal == "" || strings.EqualFold(postal, "NIL") {
		return "medium"
	}

	return "high"
}
