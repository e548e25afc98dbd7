// Copyright 2025 The FoodMap Authors
// SPDX-License-Identifier: Apache-2.0

package importer

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/htlee1999/food-map/utils/textutils"
)

// ErrNoHeader is returned by ReadCSV for an empty input.
var ErrNoHeader = errors.New("csv has no header row")

// Row is one input record, column name to value.
type Row map[string]string

// ReadCSV reads a CSV document with a header row. Blank lines and rows
// with no value at all are skipped; short rows get empty values.
func ReadCSV(r io.Reader) ([]Row, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, ErrNoHeader
	}

	if err != nil {
		return nil, fmt.Errorf("reading header: %w", err)
	}

	for i, h := range header {
		header[i] = strings.TrimSpace(textutils.TrimBOM(h))
	}

	var rows []Row

	for {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}

		if err != nil {
			return rows, fmt.Errorf("reading record %d: %w", len(rows)+1, err)
		}

		row := make(Row, len(header))
		empty := true

		for i, h := range header {
			if h == "" {
				continue
			}

			var v string
			if i < len(record) {
				v = strings.TrimSpace(record[i])
			}

			row[h] = v
			empty = empty && v == ""
		}

		if !empty {
			rows = append(rows, row)
		}
	}

	return rows, nil
}
