// Copyright 2025 The FoodMap Authors
// SPDX-License-Identifier: Apache-2.0

package places

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// SnapshotVersion is written to every snapshot.
const SnapshotVersion = "1.0"

// Snapshot is the JSON file format shared by exports and the local cache.
type Snapshot struct {
	Version     string        `json:"version"`
	LastUpdated time.Time     `json:"last_updated"`
	Places      []*Place      `json:"places"`
	Preferences []*Preference `json:"preferences,omitempty"`
}

func readSnapshot(path string) (*Snapshot, error) {
	data, err := os.ReadFile(path) // #nosec G304 - path comes from configuration
	if err != nil {
		return nil, fmt.Errorf("reading file: %w", err)
	}

	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("parsing JSON %s: %w", path, err)
	}

	return &snap, nil
}

// writeSnapshot replaces path atomically.
func writeSnapshot(path string, snap *Snapshot) error {
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling JSON: %w", err)
	}

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return fmt.Errorf("creating %s: %w", dir, err)
		}
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("writing file: %w", err)
	}

	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("replacing %s: %w", path, err)
	}

	return nil
}

// ExportToJSON writes every place, and the preferences of DefaultUser, to
// path.
func ExportToJSON(ctx context.Context, store Backend, path string) (int, error) {
	places, err := store.List(ctx, Filter{})
	if err != nil {
		return 0, fmt.Errorf("listing places: %w", err)
	}

	prefs, err := store.Preferences(ctx, DefaultUser)
	if err != nil {
		return 0, fmt.Errorf("listing preferences: %w", err)
	}

	snap := &Snapshot{
		Version:     SnapshotVersion,
		LastUpdated: time.Now(),
		Places:      places,
		Preferences: prefs,
	}

	if err := writeSnapshot(path, snap); err != nil {
		return 0, err
	}

	return len(places), nil
}

// ImportFromJSON loads the places of a snapshot into store. Places that
// already exist are skipped. Preferences are carried over by matching the
// exported place IDs to the new ones.
func ImportFromJSON(ctx context.Context, store Backend, path string) (*BatchResult, error) {
	snap, err := readSnapshot(path)
	if err != nil {
		return nil, err
	}

	res, err := store.CreateMany(ctx, snap.Places)
	if err != nil {
		return nil, fmt.Errorf("storing places: %w", err)
	}

	if len(snap.Preferences) == 0 {
		return res, nil
	}

	newIDs := make(map[string]int64, len(res.Added))
	for _, p := range res.Added {
		newIDs[p.Key()] = p.ID
	}

	for _, old := range snap.Places {
		id, ok := newIDs[old.Key()]
		if !ok {
			continue
		}

		for _, pref := range snap.Preferences {
			if pref.PlaceID != old.ID {
				continue
			}

			moved := *pref
			moved.PlaceID = id

			if _, err := store.SetPreference(ctx, &moved); err != nil {
				return res, fmt.Errorf("storing preference of %s: %w", old, err)
			}
		}
	}

	return res, nil
}

// SeedIfEmpty loads path into store when store has no places. A missing
// file is not an error.
func SeedIfEmpty(ctx context.Context, store Backend, path string) (bool, int, error) {
	existing, err := store.List(ctx, Filter{Limit: 1})
	if err != nil {
		return false, 0, fmt.Errorf("counting places: %w", err)
	}

	if len(existing) > 0 {
		return false, 0, nil
	}

	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return false, 0, nil
	}

	res, err := ImportFromJSON(ctx, store, path)
	if err != nil {
		return false, 0, err
	}

	return true, len(res.Added), nil
}
