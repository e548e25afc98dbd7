// Copyright 2025 The FoodMap Authors
// SPDX-License-Identifier: Apache-2.0

package resolve

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/htlee1999/food-map/metrics"
)

func step(name string, v int, ok bool) Step[int] {
	return Step[int]{Name: name, Try: func(context.Context) (int, bool) { return v, ok }}
}

func TestRunStopsAtFirstSuccess(t *testing.T) {
	called := false
	last := Step[int]{Name: "last", Try: func(context.Context) (int, bool) {
		called = true

		return 3, true
	}}

	out := Run(context.Background(), nil, step("a", 1, false), step("b", 2, true), last)

	assert.True(t, out.OK)
	assert.Equal(t, 2, out.Value)
	assert.Equal(t, "b", out.Strategy)
	assert.Equal(t, []string{"a", "b"}, out.Attempted)
	assert.False(t, called)
}

func TestRunNoSuccess(t *testing.T) {
	out := Run(context.Background(), nil, step("a", 1, false), step("b", 2, false))

	assert.False(t, out.OK)
	assert.Zero(t, out.Value)
	assert.Empty(t, out.Strategy)
	assert.Equal(t, []string{"a", "b"}, out.Attempted)

	assert.False(t, Run[int](context.Background(), nil).OK)
}

func TestRunHonorsContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	cancelling := Step[int]{Name: "cancel", Try: func(context.Context) (int, bool) {
		cancel()

		return 0, false
	}}

	out := Run(ctx, nil, cancelling, step("never", 1, true))

	assert.False(t, out.OK)
	assert.Equal(t, []string{"cancel"}, out.Attempted)
}

func TestRunRecordsMetrics(t *testing.T) {
	m, err := metrics.NewWithRegistry(prometheus.NewRegistry())
	require.NoError(t, err)

	Run(context.Background(), m, step("a", 1, false), step("b", 2, true))
	Run(context.Background(), m, step("a", 1, false), step("b", 2, true))

	assert.InDelta(t, 2, testutil.ToFloat64(m.Resolutions.WithLabelValues("a", "miss")), 0)
	assert.InDelta(t, 2, testutil.ToFloat64(m.Resolutions.WithLabelValues("b", "hit")), 0)
}

func TestRunLabelsMetrics(t *testing.T) {
	m, err := metrics.NewWithRegistry(prometheus.NewRegistry())
	require.NoError(t, err)

	subregion := func(name string, ok bool) Step[int] {
		s := step("fallback_subregion:"+name, 1, ok)
		s.Label = "fallback_subregion"

		return s
	}

	out := Run(context.Background(), m, subregion("Marina Bay", false), subregion("Orchard", true))
	assert.Equal(t, []string{"fallback_subregion:Marina Bay", "fallback_subregion:Orchard"}, out.Attempted)
	assert.Equal(t, "fallback_subregion:Orchard", out.Strategy)

	assert.InDelta(t, 1, testutil.ToFloat64(m.Resolutions.WithLabelValues("fallback_subregion", "miss")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.Resolutions.WithLabelValues("fallback_subregion", "hit")), 0)
	assert.Equal(t, 2, testutil.CollectAndCount(m.Resolutions))
}
