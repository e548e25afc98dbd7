// Copyright 2025 The FoodMap Authors
// SPDX-License-Identifier: Apache-2.0

// Package textutils normalizes free text typed by users or found in imports.
package textutils

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// LowerASCIIFolding normalizes a string by removing accents, lowercasing, and trimming spaces.
func LowerASCIIFolding(s string) string {
	s, _, _ = transform.String(
		transform.Chain(
			norm.NFD,
			runes.Remove(runes.In(unicode.Mn)),
			norm.NFC,
		),
		strings.TrimSpace(strings.ToLower(s)),
	)

	return s
}

// Key is the identity used for duplicate detection: folded, with runs of
// whitespace collapsed into a single space.
func Key(s string) string {
	return strings.Join(strings.Fields(LowerASCIIFolding(s)), " ")
}

// ContainsFold reports whether needle appears in haystack ignoring case and
// accents.
func ContainsFold(haystack, needle string) bool {
	return strings.Contains(LowerASCIIFolding(haystack), LowerASCIIFolding(needle))
}

// TrimBOM removes a leading UTF-8 byte order mark.
func TrimBOM(s string) string {
	return strings.TrimPrefix(s, "\ufeff")
}
