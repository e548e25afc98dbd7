// Copyright 2025 The FoodMap Authors
// SPDX-License-Identifier: Apache-2.0

package textutils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLowerASCIIFolding(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"Hello World", "hello world"},
		{"  Spaces  ", "spaces"},
		{"Café Brûlée", "cafe brulee"},
		{"Ñandú", "nandu"},
		{"", ""},
	}

	for _, tc := range tests {
		t.Run(tc.input, func(t *testing.T) {
			assert.Equal(t, tc.expected, LowerASCIIFolding(tc.input))
		})
	}
}

func TestKey(t *testing.T) {
	assert.Equal(t, "tian tian chicken rice", Key("  Tian   Tian\tChicken Rice "))
	assert.Equal(t, Key("Café Nomad"), Key("CAFE  nomad"))
}

func TestContainsFold(t *testing.T) {
	assert.True(t, ContainsFold("Maxwell Food Centre", "FOOD"))
	assert.True(t, ContainsFold("Crème de la Crème", "creme"))
	assert.False(t, ContainsFold("Lau Pa Sat", "maxwell"))
}

func TestTrimBOM(t *testing.T) {
	assert.Equal(t, "Title", TrimBOM("\ufeffTitle"))
	assert.Equal(t, "Title", TrimBOM("Title"))
}
