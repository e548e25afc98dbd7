// Copyright 2025 The FoodMap Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"bytes"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/htlee1999/food-map/importer"
	"github.com/htlee1999/food-map/places"
)

func TestPrintImportSummary(t *testing.T) {
	res := &importer.Result{
		RunID: uuid.MustParse("0b8e6a9c-4a3f-4d1e-9c55-7d1f5f0e2a11"),
		Total: 9,
		Added: []*places.Place{{Name: "Lau Pa Sat"}},
		GeocodingFailures: []importer.GeocodingFailure{
			{Index: 2, Name: "Tian Tian", Address: "Nowhere", Attempts: []string{"address", "fallback_name"}},
		},
	}

	for i := range 7 {
		res.Failed = append(res.Failed, importer.FailedRow{Index: i, Reason: importer.ReasonMissingNameOrAddress})
	}

	var buf bytes.Buffer
	printImportSummary(&buf, res)

	out := buf.String()
	assert.Contains(t, out, "Processed 9 rows (run 0b8e6a9c-4a3f-4d1e-9c55-7d1f5f0e2a11)")
	assert.Contains(t, out, fmt.Sprintf("  %-19s %d\n", "Added:", 1))
	assert.Contains(t, out, "… and 2 more failed rows")
	assert.Contains(t, out, `row 3: "Tian Tian" (Nowhere) tried address, fallback_name`)

	res.DryRun = true
	buf.Reset()
	printImportSummary(&buf, res)
	assert.Contains(t, buf.String(), "Would add:")
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "Lau Pa Sat", truncate("Lau Pa Sat", 30))
	assert.Equal(t, "Café …", truncate("Café Mélange", 6))
}
