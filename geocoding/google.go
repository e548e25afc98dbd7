// Copyright 2025 The FoodMap Authors
// SPDX-License-Identifier: Apache-2.0

package geocoding

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	apikeys "cloud.google.com/go/apikeys/apiv2"
	"cloud.google.com/go/apikeys/apiv2/apikeyspb"
	"github.com/htlee1999/food-map/spatial"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/iterator"
)

// GoogleMapsBaseURL is the public Geocoding API endpoint.
const GoogleMapsBaseURL = "https://maps.googleapis.com"

// GoogleKeyDisplayName is the display name of the API key looked up through
// Application Default Credentials.
const GoogleKeyDisplayName = "FoodMap Geocoding Key"

// GoogleMapsProvider uses Google Maps Geocoding API.
type GoogleMapsProvider struct {
	apiKey     string
	region     string
	baseURL    string
	httpClient *http.Client
}

// NewGoogleMapsProvider creates a Google Maps provider biased to the given
// ccTLD region code (e.g. "sg").
func NewGoogleMapsProvider(apiKey, region, baseURL string, httpClient *http.Client) *GoogleMapsProvider {
	if baseURL == "" {
		baseURL = GoogleMapsBaseURL
	}

	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	return &GoogleMapsProvider{
		apiKey:     apiKey,
		region:     region,
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: httpClient,
	}
}

type googleMapsResponse struct {
	Results []struct {
		Geometry struct {
			Location struct {
				Lat float64 `json:"lat"`
				Lng float64 `json:"lng"`
			} `json:"location"`
			LocationType string `json:"location_type"` // ROOFTOP, RANGE_INTERPOLATED, GEOMETRIC_CENTER, APPROXIMATE
		} `json:"geometry"`
		FormattedAddress string `json:"formatted_address"`
	} `json:"results"`
	Status       string `json:"status"` // OK, ZERO_RESULTS, etc.
	ErrorMessage string `json:"error_message"`
}

// Name implements Provider.
func (g *GoogleMapsProvider) Name() string { return "google_maps" }

// Search implements Provider.
func (g *GoogleMapsProvider) Search(ctx context.Context, query string) ([]Result, error) {
	params := url.Values{}
	params.Set("address", query)
	params.Set("key", g.apiKey)

	if g.region != "" {
		params.Set("region", g.region)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.baseURL+"/maps/api/geocode/json?"+params.Encode(), nil)
	if err != nil {
		return nil, &GeocodingError{Type: ErrorTypeInvalidRequest, Message: "google maps: building request", Err: err}
	}

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, classifyTransportError(g.Name(), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, ClassifyHTTPError(resp.StatusCode, g.Name())
	}

	var gmResp googleMapsResponse
	if err := json.NewDecoder(resp.Body).Decode(&gmResp); err != nil {
		return nil, &GeocodingError{Type: ErrorTypeUnknown, Message: "google maps: decoding response", Err: err}
	}

	switch gmResp.Status {
	case "OK":
	case "ZERO_RESULTS":
		return nil, nil
	case "OVER_QUERY_LIMIT":
		return nil, &GeocodingError{Type: ErrorTypeRateLimit, Message: "google maps: OVER_QUERY_LIMIT " + gmResp.ErrorMessage}
	case "OVER_DAILY_LIMIT", "REQUEST_DENIED":
		return nil, &GeocodingError{Type: ErrorTypeQuotaExceeded, Message: "google maps: " + gmResp.Status + " " + gmResp.ErrorMessage}
	case "INVALID_REQUEST":
		return nil, &GeocodingError{Type: ErrorTypeInvalidRequest, Message: "google maps: INVALID_REQUEST " + gmResp.ErrorMessage}
	default:
		return nil, &GeocodingError{Type: ErrorTypeNetworkError, Message: "google maps status: " + gmResp.Status}
	}

	results := make([]Result, 0, len(gmResp.Results))

	for _, r := range gmResp.Results {
		confidence := "low"

		switch r.Geometry.LocationType {
		case "ROOFTOP", "RANGE_INTERPOLATED":
			confidence = "high"
		case "GEOMETRIC_CENTER":
			confidence = "medium"
		}

		results = append(results, Result{
			Point:       spatial.Point{Lat: r.Geometry.Location.Lat, Lng: r.Geometry.Location.Lng},
			DisplayName: r.FormattedAddress,
			Confidence:  confidence,
			Provider:    g.Name(),
		})
	}

	return results, nil
}

// ResolveGoogleAPIKey finds the key named GoogleKeyDisplayName in the project
// of the Application Default Credentials and returns its secret.
func ResolveGoogleAPIKey(ctx context.Context) (string, error) {
	creds, err := google.FindDefaultCredentials(ctx, "https://www.googleapis.com/auth/cloud-platform")
	if err != nil {
		return "", fmt.Errorf("finding default credentials: %w", err)
	}

	if creds.ProjectID == "" {
		return "", errors.New("default credentials carry no project id")
	}

	client, err := apikeys.NewClient(ctx)
	if err != nil {
		return "", fmt.Errorf("creating apikeys client: %w", err)
	}
	defer client.Close()

	it := client.ListKeys(ctx, &apikeyspb.ListKeysRequest{
		Parent: fmt.Sprintf("projects/%s/locations/global", creds.ProjectID),
	})

	for {
		key, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}

		if err != nil {
			return "", fmt.Errorf("listing keys: %w", err)
		}

		if key.DisplayName != GoogleKeyDisplayName {
			continue
		}

		// ListKeys redacts the secret.
		slog.Info("found maps api key, retrieving secret", "key", key.Name)

		resp, err := client.GetKeyString(ctx, &apikeyspb.GetKeyStringRequest{Name: key.Name})
		if err != nil {
			return "", fmt.Errorf("getting key string: %w", err)
		}

		if resp.KeyString == "" {
			return "", fmt.Errorf("key %q has an empty key string", GoogleKeyDisplayName)
		}

		return resp.KeyString, nil
	}

	return "", fmt.Errorf("key with display name %q not found in project %s", GoogleKeyDisplayName, creds.ProjectID)
}
