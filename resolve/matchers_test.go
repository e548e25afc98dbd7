// Copyright 2025 The FoodMap Authors
// SPDX-License-Identifier: Apache-2.0

package resolve

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/htlee1999/food-map/spatial"
)

func htmlMatcherNamed(t *testing.T, name string) htmlMatcher {
	t.Helper()

	for _, m := range htmlMatchers {
		if m.name == name {
			return m
		}
	}

	t.Fatalf("no html matcher %q", name)

	return htmlMatcher{}
}

func TestHTMLMatchers(t *testing.T) {
	tests := []struct {
		matcher string
		html    string
		want    spatial.Point
	}{
		{"html_center", `<script>var s = {"center": [1.2834, 103.8607]};</script>`, spatial.Point{Lat: 1.2834, Lng: 103.8607}},
		{"html_lat_lng", `{"lat": 1.28, "lng": 103.85}`, spatial.Point{Lat: 1.28, Lng: 103.85}},
		{"html_data_attrs", `<div data-lat="1.3" class="pin" data-lng="103.8"></div>`, spatial.Point{Lat: 1.3, Lng: 103.8}},
		{"html_app_state", `window.APP_INITIALIZATION_STATE=[[[15000,103.8,1.3]],[1.31,103.81]]`, spatial.Point{Lat: 1.31, Lng: 103.81}},
		{"html_data_pair", `href="/maps/place/X/data=!4m2!3d1.29!4d103.85"`, spatial.Point{Lat: 1.29, Lng: 103.85}},
		{"html_zoom_pair", `[1.3, 103.8], "zoom": 15`, spatial.Point{Lat: 1.3, Lng: 103.8}},
		{"html_at_sign", `"@1.31,103.82,17z"`, spatial.Point{Lat: 1.31, Lng: 103.82}},
		{"html_meta_geo", `<html><head><meta name="geo.position" content="1.3;103.8"></head></html>`, spatial.Point{Lat: 1.3, Lng: 103.8}},
		{"html_meta_geo", `<html><head><meta name="ICBM" content="1.3, 103.8"></head></html>`, spatial.Point{Lat: 1.3, Lng: 103.8}},
		{"html_json_ld", `{"geo": {"@type": "GeoCoordinates", "latitude": "1.3", "longitude": "103.8"}}`, spatial.Point{Lat: 1.3, Lng: 103.8}},
		{"html_microdata", `<span itemprop="latitude" content="1.3"></span><span itemprop="longitude">103.8</span>`, spatial.Point{Lat: 1.3, Lng: 103.8}},
	}

	for _, tt := range tests {
		t.Run(tt.matcher, func(t *testing.T) {
			got, ok := htmlMatcherNamed(t, tt.matcher).find(&Page{HTML: tt.html})
			require.True(t, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestHTMLMatchersNoMatch(t *testing.T) {
	p := &Page{HTML: `<html><head><title>Nothing here</title></head><body>lat lng</body></html>`}

	for _, m := range htmlMatchers {
		_, ok := m.find(p)
		assert.False(t, ok, m.name)
	}
}

func TestTrailingLocation(t *testing.T) {
	tests := []struct {
		name   string
		want   string
		wantOK bool
	}{
		{"Burnt Ends — Dempsey", "Dempsey", true},
		{"Chicken Rice – Maxwell Food Centre", "Maxwell Food Centre", true},
		{"Tian Tian | Maxwell", "Maxwell", true},
		{"Hawker stall in Tiong Bahru", "Tiong Bahru", true},
		{"A — B | C", "C", true},
		{"Lau Pa Sat", "", false},
		{"| leading", "", false},
		{"trailing |", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := TrailingLocation(tt.name)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPageTitle(t *testing.T) {
	tests := []struct {
		html   string
		want   string
		wantOK bool
	}{
		{`<title>Lau Pa Sat - Google Maps</title>`, "Lau Pa Sat", true},
		{`<title>Google Maps</title>`, "", false},
		{`<title>Before you continue to Google Maps</title>`, "", false},
		{`<p>no title</p>`, "", false},
	}

	for _, tt := range tests {
		got, ok := pageTitle(&Page{HTML: tt.html})
		assert.Equal(t, tt.wantOK, ok, tt.html)
		assert.Equal(t, tt.want, got, tt.html)
	}
}
