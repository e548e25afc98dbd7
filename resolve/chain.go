// Copyright 2025 The FoodMap Authors
// SPDX-License-Identifier: Apache-2.0

package resolve

import (
	"context"

	"github.com/htlee1999/food-map/metrics"
)

// Step is one named resolution strategy.
type Step[T any] struct {
	Name string
	// Label names the step in metrics when several steps share a strategy.
	// Name is used when empty.
	Label string
	Try   func(ctx context.Context) (T, bool)
}

func (s Step[T]) label() string {
	if s.Label != "" {
		return s.Label
	}

	return s.Name
}

// Outcome describes a Run: the value and name of the winning step, and the
// names of every step tried, in order.
type Outcome[T any] struct {
	Value     T
	Strategy  string
	Attempted []string
	OK        bool
}

// Run tries steps in order and stops at the first success or when ctx is
// done. m may be nil.
func Run[T any](ctx context.Context, m *metrics.Metrics, steps ...Step[T]) Outcome[T] {
	var out Outcome[T]

	for _, s := range steps {
		if ctx.Err() != nil {
			break
		}

		out.Attempted = append(out.Attempted, s.Name)

		v, ok := s.Try(ctx)
		m.ObserveResolution(s.label(), ok)

		if ok {
			out.Value, out.Strategy, out.OK = v, s.Name, true

			break
		}
	}

	return out
}
