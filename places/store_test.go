// Copyright 2025 The FoodMap Authors
// SPDX-License-Identifier: Apache-2.0

package places

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/htlee1999/food-map/spatial"
)

func setupTestDB(t *testing.T) *Repository {
	t.Helper()

	repo, err := Open(context.Background(), "")
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })

	return repo
}

func setupFileStore(t *testing.T) *FileStore {
	t.Helper()

	s, err := OpenFileStore(filepath.Join(t.TempDir(), "cache", "places.json"))
	require.NoError(t, err)

	return s
}

// backends runs fn against every Backend that keeps its own data.
func backends(t *testing.T, fn func(t *testing.T, b Backend)) {
	t.Run("duckdb", func(t *testing.T) { fn(t, setupTestDB(t)) })
	t.Run("file", func(t *testing.T) { fn(t, setupFileStore(t)) })
}

func laupasat() *Place {
	rating := 4.5

	return &Place{
		Name:        "Lau Pa Sat",
		Address:     "18 Raffles Quay, Singapore 048582",
		Coords:      spatial.Point{Lat: 1.2806, Lng: 103.8504},
		CuisineType: "Hawker",
		Rating:      &rating,
	}
}

func maxwell() *Place {
	return &Place{
		Name:    "Maxwell Food Centre",
		Address: "1 Kadayanallur St, Singapore 069184",
		Coords:  spatial.Point{Lat: 1.2803, Lng: 103.8448},
		Source:  SourceDirectAddress,
	}
}

var ignoreTimes = cmpopts.IgnoreFields(Place{}, "CreatedAt", "UpdatedAt")

func TestCreateAndGet(t *testing.T) {
	backends(t, func(t *testing.T, b Backend) {
		ctx := context.Background()

		created, err := b.Create(ctx, laupasat())
		require.NoError(t, err)
		assert.NotZero(t, created.ID)
		assert.Equal(t, SourceManual, created.Source)
		assert.NotZero(t, created.H3Cell)
		assert.False(t, created.CreatedAt.IsZero())

		got, err := b.Get(ctx, created.ID)
		require.NoError(t, err)

		if diff := cmp.Diff(created, got, ignoreTimes); diff != "" {
			t.Errorf("Get mismatch (-created +got):\n%s", diff)
		}

		_, err = b.Get(ctx, created.ID+100)
		require.ErrorIs(t, err, ErrNotFound)
	})
}

func TestCreateDuplicateConflicts(t *testing.T) {
	backends(t, func(t *testing.T, b Backend) {
		ctx := context.Background()

		_, err := b.Create(ctx, laupasat())
		require.NoError(t, err)

		dup := laupasat()
		dup.Name = "  LAU PA SAT "
		dup.Address = "18 raffles quay,  singapore 048582"

		_, err = b.Create(ctx, dup)
		require.ErrorIs(t, err, ErrConflict)

		all, err := b.List(ctx, Filter{})
		require.NoError(t, err)
		assert.Len(t, all, 1)
	})
}

func TestCreateMany(t *testing.T) {
	backends(t, func(t *testing.T, b Backend) {
		ctx := context.Background()

		_, err := b.Create(ctx, laupasat())
		require.NoError(t, err)

		res, err := b.CreateMany(ctx, []*Place{laupasat(), maxwell(), maxwell()})
		require.NoError(t, err)

		assert.Equal(t, 3, res.Total)
		assert.Equal(t, 2, res.Skipped)
		require.Len(t, res.Added, 1)
		assert.Equal(t, "Maxwell Food Centre", res.Added[0].Name)
		assert.NotZero(t, res.Added[0].ID)

		all, err := b.List(ctx, Filter{})
		require.NoError(t, err)
		assert.Len(t, all, 2)
	})
}

func TestListFilter(t *testing.T) {
	backends(t, func(t *testing.T, b Backend) {
		ctx := context.Background()

		cafe := &Place{Name: "Café Kreams", Address: "Tiong Bahru", Coords: spatial.Point{Lat: 1.285, Lng: 103.83}}

		_, err := b.CreateMany(ctx, []*Place{laupasat(), maxwell(), cafe})
		require.NoError(t, err)

		names := func(f Filter) []string {
			ps, err := b.List(ctx, f)
			require.NoError(t, err)

			var out []string
			for _, p := range ps {
				out = append(out, p.Name)
			}

			return out
		}

		assert.Equal(t, []string{"Lau Pa Sat", "Maxwell Food Centre", "Café Kreams"}, names(Filter{}))
		assert.Equal(t, []string{"Café Kreams"}, names(Filter{Query: "CAFE"}))
		assert.Equal(t, []string{"Maxwell Food Centre"}, names(Filter{Query: "kadayanallur"}))
		assert.Equal(t, []string{"Maxwell Food Centre"}, names(Filter{Source: SourceDirectAddress}))
		assert.Equal(t, []string{"Maxwell Food Centre"}, names(Filter{Limit: 1, Offset: 1}))
		assert.Equal(t, []string{"Café Kreams"}, names(Filter{Offset: 2}))
		assert.Empty(t, names(Filter{Query: "sushi"}))
	})
}

func TestUpdate(t *testing.T) {
	backends(t, func(t *testing.T, b Backend) {
		ctx := context.Background()

		a, err := b.Create(ctx, laupasat())
		require.NoError(t, err)

		m, err := b.Create(ctx, maxwell())
		require.NoError(t, err)

		changed := *a
		changed.Description = "Victorian market"
		changed.Coords = spatial.Point{Lat: 1.2807, Lng: 103.8505}

		updated, err := b.Update(ctx, a.ID, &changed)
		require.NoError(t, err)
		assert.Equal(t, a.ID, updated.ID)
		assert.Equal(t, "Victorian market", updated.Description)
		assert.True(t, a.CreatedAt.Equal(updated.CreatedAt))
		assert.False(t, updated.UpdatedAt.Before(a.UpdatedAt))

		got, err := b.Get(ctx, a.ID)
		require.NoError(t, err)
		assert.Equal(t, changed.Coords, got.Coords)

		// renaming onto another place conflicts
		clash := *m
		clash.Name, clash.Address = a.Name, a.Address
		_, err = b.Update(ctx, m.ID, &clash)
		require.ErrorIs(t, err, ErrConflict)

		_, err = b.Update(ctx, 999, &changed)
		require.ErrorIs(t, err, ErrNotFound)
	})
}

func TestDelete(t *testing.T) {
	backends(t, func(t *testing.T, b Backend) {
		ctx := context.Background()

		p, err := b.Create(ctx, laupasat())
		require.NoError(t, err)

		_, err = b.SetPreference(ctx, &Preference{PlaceID: p.ID, UserID: DefaultUser, Visited: true})
		require.NoError(t, err)

		require.NoError(t, b.Delete(ctx, p.ID))
		require.ErrorIs(t, b.Delete(ctx, p.ID), ErrNotFound)

		_, err = b.Get(ctx, p.ID)
		require.ErrorIs(t, err, ErrNotFound)

		prefs, err := b.Preferences(ctx, DefaultUser)
		require.NoError(t, err)
		assert.Empty(t, prefs)
	})
}

func TestPreferences(t *testing.T) {
	backends(t, func(t *testing.T, b Backend) {
		ctx := context.Background()

		res, err := b.CreateMany(ctx, []*Place{laupasat(), maxwell()})
		require.NoError(t, err)
		require.Len(t, res.Added, 2)

		a, m := res.Added[0].ID, res.Added[1].ID

		_, err = b.SetPreference(ctx, &Preference{PlaceID: a, UserID: DefaultUser, WantToVisit: true, Notes: "satay"})
		require.NoError(t, err)

		// upsert
		saved, err := b.SetPreference(ctx, &Preference{PlaceID: a, Visited: true})
		require.NoError(t, err)
		assert.Equal(t, DefaultUser, saved.UserID)

		prefs, err := b.Preferences(ctx, DefaultUser)
		require.NoError(t, err)
		require.Len(t, prefs, 1)
		assert.True(t, prefs[0].Visited)
		assert.False(t, prefs[0].WantToVisit)
		assert.Empty(t, prefs[0].Notes)

		_, err = b.SetPreference(ctx, &Preference{PlaceID: 999, UserID: DefaultUser})
		require.ErrorIs(t, err, ErrNotFound)

		require.NoError(t, b.ReplacePreferences(ctx, DefaultUser, []int64{m}, []int64{a, m, 999}))

		prefs, err = b.Preferences(ctx, DefaultUser)
		require.NoError(t, err)

		resp := NewPreferencesResponse(prefs)
		assert.Equal(t, []int64{m}, resp.Visited)
		assert.Equal(t, []int64{a}, resp.WantToVisit)

		require.NoError(t, b.ClearPreference(ctx, a, DefaultUser))
		require.ErrorIs(t, b.ClearPreference(ctx, 999, DefaultUser), ErrNotFound)

		prefs, err = b.Preferences(ctx, DefaultUser)
		require.NoError(t, err)
		require.Len(t, prefs, 1)
		assert.Equal(t, m, prefs[0].PlaceID)

		other, err := b.Preferences(ctx, "someone-else")
		require.NoError(t, err)
		assert.Empty(t, other)
	})
}

func TestPing(t *testing.T) {
	backends(t, func(t *testing.T, b Backend) {
		require.NoError(t, b.Ping(context.Background()))
	})
}

func TestFileStorePersists(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "places.json")

	s, err := OpenFileStore(path)
	require.NoError(t, err)

	p, err := s.Create(ctx, laupasat())
	require.NoError(t, err)

	_, err = s.SetPreference(ctx, &Preference{PlaceID: p.ID, UserID: DefaultUser, WantToVisit: true})
	require.NoError(t, err)

	reopened, err := OpenFileStore(path)
	require.NoError(t, err)
	assert.Equal(t, path, reopened.Path())

	got, err := reopened.Get(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "Lau Pa Sat", got.Name)

	// IDs keep growing after a reload
	next, err := reopened.Create(ctx, maxwell())
	require.NoError(t, err)
	assert.Greater(t, next.ID, p.ID)

	prefs, err := reopened.Preferences(ctx, DefaultUser)
	require.NoError(t, err)
	assert.Len(t, prefs, 1)
}

func TestRepositorySchema(t *testing.T) {
	repo := setupTestDB(t)

	for _, table := range []string{"places", "preferences"} {
		var name string

		err := repo.DB().QueryRow("SELECT table_name FROM information_schema.tables WHERE table_name = ?", table).Scan(&name)
		require.NoError(t, err, table)
	}

	// idempotent
	require.NoError(t, repo.CreateSchema(context.Background()))
}

func TestWithFallback(t *testing.T) {
	ctx := context.Background()
	cache := setupFileStore(t)
	repo := setupTestDB(t)

	assert.Same(t, Backend(repo), WithFallback(ctx, repo, cache))

	down := NewClient("http://127.0.0.1:1", nil)
	assert.Same(t, Backend(cache), WithFallback(ctx, down, cache))
}
