// Copyright 2025 The FoodMap Authors
// SPDX-License-Identifier: Apache-2.0

package places

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"sync"
	"time"
)

// FileStore is a Backend kept in a single JSON file. It is the local cache
// used when neither the database nor a remote server is reachable. Every
// change rewrites the file.
type FileStore struct {
	mu     sync.Mutex
	path   string
	snap   Snapshot
	nextID int64
}

var _ Backend = (*FileStore)(nil)

// OpenFileStore loads path, starting empty if it does not exist.
func OpenFileStore(path string) (*FileStore, error) {
	s := &FileStore{path: path, snap: Snapshot{Version: SnapshotVersion}, nextID: 1}

	snap, err := readSnapshot(path)
	if errors.Is(err, os.ErrNotExist) {
		slog.Debug("local cache does not exist yet", "path", path)

		return s, nil
	}

	if err != nil {
		return nil, fmt.Errorf("loading local cache: %w", err)
	}

	s.snap = *snap
	for _, p := range s.snap.Places {
		s.nextID = max(s.nextID, p.ID+1)
	}

	return s, nil
}

// Path returns the backing file.
func (s *FileStore) Path() string {
	return s.path
}

// Ping implements Backend.
func (s *FileStore) Ping(context.Context) error {
	return nil
}

func (s *FileStore) save() error {
	s.snap.Version = SnapshotVersion
	s.snap.LastUpdated = time.Now()

	return writeSnapshot(s.path, &s.snap)
}

func (s *FileStore) indexOf(id int64) int {
	for i, p := range s.snap.Places {
		if p.ID == id {
			return i
		}
	}

	return -1
}

func (s *FileStore) duplicateOf(p *Place) int64 {
	key := p.Key()
	for _, existing := range s.snap.Places {
		if existing.Key() == key {
			return existing.ID
		}
	}

	return 0
}

// List implements Store.
func (s *FileStore) List(_ context.Context, f Filter) ([]*Place, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*Place

	for _, p := range s.snap.Places {
		if f.matches(p) {
			c := *p
			out = append(out, &c)
		}
	}

	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })

	return page(out, f.Offset, f.Limit), nil
}

// Get implements Store.
func (s *FileStore) Get(_ context.Context, id int64) (*Place, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(id)
	if i < 0 {
		return nil, ErrNotFound
	}

	c := *s.snap.Places[i]

	return &c, nil
}

// Create implements Store.
func (s *FileStore) Create(ctx context.Context, p *Place) (*Place, error) {
	res, err := s.CreateMany(ctx, []*Place{p})
	if err != nil {
		return nil, err
	}

	if len(res.Added) == 0 {
		return nil, ErrConflict
	}

	return res.Added[0], nil
}

// CreateMany implements Store.
func (s *FileStore) CreateMany(_ context.Context, ps []*Place) (*BatchResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res := &BatchResult{Total: len(ps)}
	now := time.Now().UTC()
	before := len(s.snap.Places)

	for _, in := range ps {
		p := *in
		if err := p.normalize(); err != nil {
			s.snap.Places = s.snap.Places[:before]

			return nil, fmt.Errorf("place %s: %w", &p, err)
		}

		if s.duplicateOf(&p) != 0 {
			res.Skipped++

			continue
		}

		p.ID = s.nextID
		s.nextID++
		p.CreatedAt, p.UpdatedAt = now, now

		s.snap.Places = append(s.snap.Places, &p)

		c := p
		res.Added = append(res.Added, &c)
	}

	if len(res.Added) == 0 {
		return res, nil
	}

	if err := s.save(); err != nil {
		s.snap.Places = s.snap.Places[:before]

		return nil, err
	}

	return res, nil
}

// Update implements Store.
func (s *FileStore) Update(_ context.Context, id int64, in *Place) (*Place, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(id)
	if i < 0 {
		return nil, ErrNotFound
	}

	p := *in
	if err := p.normalize(); err != nil {
		return nil, fmt.Errorf("place %s: %w", &p, err)
	}

	if dup := s.duplicateOf(&p); dup != 0 && dup != id {
		return nil, ErrConflict
	}

	old := s.snap.Places[i]
	p.ID = id
	p.CreatedAt = old.CreatedAt
	p.UpdatedAt = time.Now().UTC()
	s.snap.Places[i] = &p

	if err := s.save(); err != nil {
		s.snap.Places[i] = old

		return nil, err
	}

	c := p

	return &c, nil
}

// Delete implements Store.
func (s *FileStore) Delete(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(id)
	if i < 0 {
		return ErrNotFound
	}

	s.snap.Places = append(s.snap.Places[:i], s.snap.Places[i+1:]...)

	prefs := s.snap.Preferences[:0]
	for _, pref := range s.snap.Preferences {
		if pref.PlaceID != id {
			prefs = append(prefs, pref)
		}
	}

	s.snap.Preferences = prefs

	return s.save()
}

// Preferences implements PreferenceStore.
func (s *FileStore) Preferences(_ context.Context, userID string) ([]*Preference, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*Preference

	for _, pref := range s.snap.Preferences {
		if pref.UserID == userID {
			c := *pref
			out = append(out, &c)
		}
	}

	sort.Slice(out, func(i, j int) bool { return out[i].PlaceID < out[j].PlaceID })

	return out, nil
}

// SetPreference implements PreferenceStore.
func (s *FileStore) SetPreference(_ context.Context, in *Preference) (*Preference, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.indexOf(in.PlaceID) < 0 {
		return nil, ErrNotFound
	}

	pref := *in
	if pref.UserID == "" {
		pref.UserID = DefaultUser
	}

	pref.UpdatedAt = time.Now().UTC()

	s.removePreference(pref.PlaceID, pref.UserID)
	s.snap.Preferences = append(s.snap.Preferences, &pref)

	if err := s.save(); err != nil {
		return nil, err
	}

	c := pref

	return &c, nil
}

func (s *FileStore) removePreference(placeID int64, userID string) {
	prefs := s.snap.Preferences[:0]
	for _, pref := range s.snap.Preferences {
		if pref.PlaceID != placeID || pref.UserID != userID {
			prefs = append(prefs, pref)
		}
	}

	s.snap.Preferences = prefs
}

// ClearPreference implements PreferenceStore.
func (s *FileStore) ClearPreference(_ context.Context, placeID int64, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.indexOf(placeID) < 0 {
		return ErrNotFound
	}

	s.removePreference(placeID, userID)

	return s.save()
}

// ReplacePreferences implements PreferenceStore.
func (s *FileStore) ReplacePreferences(_ context.Context, userID string, visited, wantToVisit []int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	prefs := s.snap.Preferences[:0]
	for _, pref := range s.snap.Preferences {
		if pref.UserID != userID {
			prefs = append(prefs, pref)
		}
	}

	now := time.Now().UTC()

	for _, pref := range mergeStatuses(userID, visited, wantToVisit) {
		if s.indexOf(pref.PlaceID) < 0 {
			continue
		}

		pref.UpdatedAt = now
		prefs = append(prefs, pref)
	}

	s.snap.Preferences = prefs

	return s.save()
}
