// Copyright 2025 The FoodMap Authors
// SPDX-License-Identifier: Apache-2.0

package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserve(t *testing.T) {
	m, err := New()
	require.NoError(t, err)

	m.ObserveGeocode("onemap", "ok", 120*time.Millisecond)
	m.ObserveGeocode("onemap", "ok", 80*time.Millisecond)
	m.ObserveGeocode("onemap", "error", time.Second)
	m.ObserveResolution("url_at_sign", true)
	m.ObserveResolution("url_at_sign", false)
	m.AddImportRows("added", 3)
	m.AddImportRows("skipped", 0)

	assert.InDelta(t, 2, testutil.ToFloat64(m.GeocodeRequests.WithLabelValues("onemap", "ok")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.GeocodeRequests.WithLabelValues("onemap", "error")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.Resolutions.WithLabelValues("url_at_sign", "hit")), 0)
	assert.InDelta(t, 3, testutil.ToFloat64(m.ImportRows.WithLabelValues("added")), 0)
	assert.Equal(t, 1, testutil.CollectAndCount(m.GeocodeDuration))
}

func TestNilMetrics(t *testing.T) {
	var m *Metrics

	assert.NotPanics(t, func() {
		m.ObserveGeocode("onemap", "ok", time.Second)
		m.ObserveResolution("q", true)
		m.AddImportRows("added", 1)
	})

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandler(t *testing.T) {
	m, err := New()
	require.NoError(t, err)
	m.AddImportRows("failed", 2)

	srv := httptest.NewServer(m.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `foodmap_import_rows_total{outcome="failed"} 2`)
}
