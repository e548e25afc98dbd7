// Copyright 2025 The FoodMap Authors
// SPDX-License-Identifier: Apache-2.0

package resolve

import (
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/htlee1999/food-map/spatial"
)

func TestResultJSON(t *testing.T) {
	tests := []struct {
		name   string
		result *Result
		want   string
	}{
		{
			name:   "coordinates",
			result: Coordinates(spatial.Point{Lat: 1.29, Lng: 103.85}, "url_at_sign"),
			want:   `{"type":"coordinates","data":{"lat":1.29,"lng":103.85},"strategy":"url_at_sign"}`,
		},
		{
			name:   "address",
			result: Address("Some Cafe", "url_q_param"),
			want:   `{"type":"address","data":"Some Cafe","strategy":"url_q_param"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, err := json.Marshal(tt.result)
			require.NoError(t, err)
			assert.JSONEq(t, tt.want, string(b))

			var got Result
			require.NoError(t, json.Unmarshal(b, &got))

			if diff := cmp.Diff(*tt.result, got); diff != "" {
				t.Errorf("round trip mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestResultJSONRejectsUnknownKind(t *testing.T) {
	_, err := json.Marshal(Result{Kind: "polygon"})
	require.Error(t, err)

	var r Result
	require.Error(t, json.Unmarshal([]byte(`{"type":"polygon","data":1}`), &r))
}

func TestResultString(t *testing.T) {
	var r *Result
	assert.Equal(t, "<nil>", r.String())
	assert.Equal(t, `address("Bedok") via html_title`, Address("Bedok", "html_title").String())
}
