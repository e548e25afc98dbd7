// Copyright 2025 The FoodMap Authors
// SPDX-License-Identifier: Apache-2.0

package places

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExportImportJSON(t *testing.T) {
	ctx := context.Background()
	src := setupTestDB(t)

	res, err := src.CreateMany(ctx, []*Place{laupasat(), maxwell()})
	require.NoError(t, err)

	_, err = src.SetPreference(ctx, &Preference{PlaceID: res.Added[1].ID, UserID: DefaultUser, Visited: true, Notes: "chicken rice"})
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "export.json")

	n, err := ExportToJSON(ctx, src, path)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	dst := setupFileStore(t)

	// shift the IDs so preferences have to be remapped
	_, err = dst.Create(ctx, &Place{Name: "Other", Address: "Elsewhere", Coords: laupasat().Coords})
	require.NoError(t, err)

	imported, err := ImportFromJSON(ctx, dst, path)
	require.NoError(t, err)
	require.Len(t, imported.Added, 2)

	prefs, err := dst.Preferences(ctx, DefaultUser)
	require.NoError(t, err)
	require.Len(t, prefs, 1)

	got, err := dst.Get(ctx, prefs[0].PlaceID)
	require.NoError(t, err)
	assert.Equal(t, "Maxwell Food Centre", got.Name)
	assert.Equal(t, "chicken rice", prefs[0].Notes)

	// a second import only skips
	again, err := ImportFromJSON(ctx, dst, path)
	require.NoError(t, err)
	assert.Empty(t, again.Added)
	assert.Equal(t, 2, again.Skipped)
}

func TestSeedIfEmpty(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "seed.json")

	repo := setupTestDB(t)

	seeded, n, err := SeedIfEmpty(ctx, repo, path)
	require.NoError(t, err)
	assert.False(t, seeded, "missing seed file")
	assert.Zero(t, n)

	src := setupFileStore(t)
	_, err = src.CreateMany(ctx, []*Place{laupasat(), maxwell()})
	require.NoError(t, err)

	_, err = ExportToJSON(ctx, src, path)
	require.NoError(t, err)

	seeded, n, err = SeedIfEmpty(ctx, repo, path)
	require.NoError(t, err)
	assert.True(t, seeded)
	assert.Equal(t, 2, n)

	seeded, _, err = SeedIfEmpty(ctx, repo, path)
	require.NoError(t, err)
	assert.False(t, seeded, "already has places")
}
