// Copyright 2025 The FoodMap Authors
// SPDX-License-Identifier: Apache-2.0

package importer

import (
	"sort"
	"strings"
)

// Schema is the column layout of a row.
type Schema int

const (
	// SchemaHeuristic picks columns by name.
	SchemaHeuristic Schema = iota
	// SchemaSavedList is a saved-places export: Title, Note, URL.
	SchemaSavedList
	// SchemaLicensee is the food establishment licence dataset:
	// licensee_name, premises_address.
	SchemaLicensee
)

func (s Schema) String() string {
	switch s {
	case SchemaSavedList:
		return "saved_list"
	case SchemaLicensee:
		return "licensee"
	default:
		return "heuristic"
	}
}

// fields are the values of interest of a row.
type fields struct {
	name    string
	address string
	url     string
	// hasAddressColumn is set when the heuristic found an address column,
	// even an empty one.
	hasAddressColumn bool
}

var (
	nameTokens    = []string{"name", "title", "restaurant"}
	addressTokens = []string{"address", "location"}
	urlTokens     = []string{"url", "link"}
)

// detect recognizes the fixed layouts before guessing columns. Fixed
// layouts need their columns filled in, not just present.
func detect(row Row) (Schema, fields) {
	title, link := strings.TrimSpace(row["Title"]), strings.TrimSpace(row["URL"])
	if title != "" && link != "" {
		return SchemaSavedList, fields{name: title, url: link}
	}

	licensee, premises := strings.TrimSpace(row["licensee_name"]), strings.TrimSpace(row["premises_address"])
	if licensee != "" && premises != "" {
		return SchemaLicensee, fields{name: licensee, address: premises}
	}

	keys := make([]string, 0, len(row))
	for k := range row {
		keys = append(keys, k)
	}

	sort.Strings(keys)

	var f fields

	if k, ok := findColumn(keys, nameTokens); ok {
		f.name = strings.TrimSpace(row[k])
	}

	if k, ok := findColumn(keys, addressTokens); ok {
		f.address = strings.TrimSpace(row[k])
		f.hasAddressColumn = true
	}

	if k, ok := findColumn(keys, urlTokens); ok {
		f.url = strings.TrimSpace(row[k])
	}

	return SchemaHeuristic, f
}

// findColumn returns the first key containing a token, ignoring case.
// Tokens are tried in order, so "Restaurant Name" wins over
// "Restaurant Address" for the name tokens.
func findColumn(keys, tokens []string) (string, bool) {
	for _, t := range tokens {
		for _, k := range keys {
			if strings.Contains(strings.ToLower(k), t) {
				return k, true
			}
		}
	}

	return "", false
}
