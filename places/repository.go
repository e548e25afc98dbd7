// Copyright 2025 The FoodMap Authors
// SPDX-License-Identifier: Apache-2.0

package places

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/duckdb/duckdb-go/v2"

	"github.com/htlee1999/food-map/utils/textutils"
)

// Repository is the DuckDB backed Backend.
type Repository struct {
	db *sql.DB
}

var _ Backend = (*Repository)(nil)

// NewRepository wraps db. Call CreateSchema before use.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// Open opens (creating if needed) the DuckDB database at path, "" meaning
// in-memory, and makes sure the schema exists.
func Open(ctx context.Context, path string) (*Repository, error) {
	db, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, fmt.Errorf("opening database %q: %w", path, err)
	}

	r := NewRepository(db)
	if err := r.CreateSchema(ctx); err != nil {
		db.Close()

		return nil, fmt.Errorf("creating schema in %q: %w", path, err)
	}

	return r, nil
}

// DB returns the underlying database connection.
func (r *Repository) DB() *sql.DB {
	return r.db
}

// Close closes the database.
func (r *Repository) Close() error {
	return r.db.Close()
}

// Ping checks the database is reachable.
func (r *Repository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// CreateSchema creates the places and preferences tables.
func (r *Repository) CreateSchema(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `
		CREATE SEQUENCE IF NOT EXISTS places_seq START 1;

		CREATE TABLE IF NOT EXISTS places (
			id BIGINT PRIMARY KEY DEFAULT nextval('places_seq'),
			name VARCHAR NOT NULL,
			address VARCHAR NOT NULL,
			name_key VARCHAR NOT NULL,
			address_key VARCHAR NOT NULL,
			lat DOUBLE NOT NULL,
			lng DOUBLE NOT NULL,
			description VARCHAR,
			cuisine_type VARCHAR,
			price_range VARCHAR,
			rating DOUBLE,
			source VARCHAR NOT NULL,
			h3_cell BIGINT,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			UNIQUE(name_key, address_key)
		);

		CREATE TABLE IF NOT EXISTS preferences (
			place_id BIGINT NOT NULL,
			user_id VARCHAR NOT NULL,
			visited BOOLEAN NOT NULL DEFAULT FALSE,
			want_to_visit BOOLEAN NOT NULL DEFAULT FALSE,
			notes VARCHAR,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (place_id, user_id)
		);
	`)

	return err
}

const baseSelect = `
	SELECT id, name, address, lat, lng, description, cuisine_type,
	       price_range, rating, source, h3_cell, created_at, updated_at
	FROM places
`

type scanner interface {
	Scan(dest ...any) error
}

func scanPlace(s scanner) (*Place, error) {
	var (
		p                                Place
		description, cuisine, priceRange sql.NullString
		rating                           sql.NullFloat64
		h3Cell                           sql.NullInt64
	)

	err := s.Scan(
		&p.ID, &p.Name, &p.Address, &p.Coords.Lat, &p.Coords.Lng,
		&description, &cuisine, &priceRange, &rating,
		&p.Source, &h3Cell, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	p.Description = description.String
	p.CuisineType = cuisine.String
	p.PriceRange = priceRange.String
	p.H3Cell = h3Cell.Int64

	if rating.Valid {
		p.Rating = &rating.Float64
	}

	return &p, nil
}

// List implements Store.
func (r *Repository) List(ctx context.Context, f Filter) ([]*Place, error) {
	var (
		where []string
		args  []any
	)

	if q := textutils.Key(f.Query); q != "" {
		where = append(where, "(contains(name_key, ?) OR contains(address_key, ?))")
		args = append(args, q, q)
	}

	if f.Source != "" {
		where = append(where, "source = ?")
		args = append(args, f.Source)
	}

	query := baseSelect
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}

	query += " ORDER BY id"

	if f.Limit > 0 {
		query += " LIMIT ? OFFSET ?"

		args = append(args, f.Limit, max(f.Offset, 0))
	} else if f.Offset > 0 {
		query += " OFFSET ?"

		args = append(args, f.Offset)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing places: %w", err)
	}
	defer rows.Close()

	var places []*Place

	for rows.Next() {
		p, err := scanPlace(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning place: %w", err)
		}

		places = append(places, p)
	}

	return places, rows.Err()
}

// Get implements Store.
func (r *Repository) Get(ctx context.Context, id int64) (*Place, error) {
	return r.get(ctx, r.db, id)
}

type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (r *Repository) get(ctx context.Context, q querier, id int64) (*Place, error) {
	p, err := scanPlace(q.QueryRowContext(ctx, baseSelect+" WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("getting place %d: %w", id, err)
	}

	return p, nil
}

// duplicateOf returns the ID of the stored place with p's name and
// address, 0 if there is none.
func duplicateOf(ctx context.Context, q querier, p *Place) (int64, error) {
	var id int64

	err := q.QueryRowContext(ctx,
		"SELECT id FROM places WHERE name_key = ? AND address_key = ?",
		textutils.Key(p.Name), textutils.Key(p.Address),
	).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}

	return id, err
}

// isConstraintError reports a UNIQUE violation that slipped past the
// duplicate check, e.g. a concurrent insert.
func isConstraintError(err error) bool {
	var derr *duckdb.Error
	if errors.As(err, &derr) {
		return derr.Type == duckdb.ErrorTypeConstraint
	}

	return false
}

// Create implements Store.
func (r *Repository) Create(ctx context.Context, p *Place) (*Place, error) {
	res, err := r.CreateMany(ctx, []*Place{p})
	if err != nil {
		return nil, err
	}

	if len(res.Added) == 0 {
		return nil, ErrConflict
	}

	return res.Added[0], nil
}

// CreateMany implements Store. The whole batch is inserted in one
// transaction.
func (r *Repository) CreateMany(ctx context.Context, ps []*Place) (*BatchResult, error) {
	res := &BatchResult{Total: len(ps)}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback() //nolint:errcheck // no-op after Commit

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO places(
			name, address, name_key, address_key, lat, lng,
			description, cuisine_type, price_range, rating,
			source, h3_cell, created_at, updated_at
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id
	`)
	if err != nil {
		return nil, fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	seen := make(map[string]bool, len(ps))
	now := time.Now().UTC().Truncate(time.Microsecond)

	for _, in := range ps {
		p := *in
		if err := p.normalize(); err != nil {
			return nil, fmt.Errorf("place %s: %w", &p, err)
		}

		key := p.Key()
		if seen[key] {
			res.Skipped++

			continue
		}

		seen[key] = true

		dup, err := duplicateOf(ctx, tx, &p)
		if err != nil {
			return nil, fmt.Errorf("checking duplicates of %s: %w", &p, err)
		}

		if dup != 0 {
			slog.Debug("skipping duplicate place", "name", p.Name, "address", p.Address, "existing_id", dup)

			res.Skipped++

			continue
		}

		p.CreatedAt, p.UpdatedAt = now, now

		err = stmt.QueryRowContext(ctx,
			p.Name, p.Address, textutils.Key(p.Name), textutils.Key(p.Address),
			p.Coords.Lat, p.Coords.Lng,
			nullString(p.Description), nullString(p.CuisineType), nullString(p.PriceRange), nullFloat(p.Rating),
			p.Source, p.H3Cell, p.CreatedAt, p.UpdatedAt,
		).Scan(&p.ID)
		if isConstraintError(err) {
			return nil, fmt.Errorf("inserting %s: %w", &p, ErrConflict)
		}

		if err != nil {
			return nil, fmt.Errorf("inserting %s: %w", &p, err)
		}

		res.Added = append(res.Added, &p)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing places: %w", err)
	}

	return res, nil
}

// Update implements Store. CreatedAt is preserved.
func (r *Repository) Update(ctx context.Context, id int64, in *Place) (*Place, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback() //nolint:errcheck // no-op after Commit

	existing, err := r.get(ctx, tx, id)
	if err != nil {
		return nil, err
	}

	p := *in
	if err := p.normalize(); err != nil {
		return nil, fmt.Errorf("place %s: %w", &p, err)
	}

	dup, err := duplicateOf(ctx, tx, &p)
	if err != nil {
		return nil, fmt.Errorf("checking duplicates of %s: %w", &p, err)
	}

	if dup != 0 && dup != id {
		return nil, ErrConflict
	}

	p.ID = id
	p.CreatedAt = existing.CreatedAt
	p.UpdatedAt = time.Now().UTC().Truncate(time.Microsecond)

	_, err = tx.ExecContext(ctx, `
		UPDATE places
		SET name = ?, address = ?, name_key = ?, address_key = ?, lat = ?, lng = ?,
		    description = ?, cuisine_type = ?, price_range = ?, rating = ?,
		    source = ?, h3_cell = ?, updated_at = ?
		WHERE id = ?
	`,
		p.Name, p.Address, textutils.Key(p.Name), textutils.Key(p.Address), p.Coords.Lat, p.Coords.Lng,
		nullString(p.Description), nullString(p.CuisineType), nullString(p.PriceRange), nullFloat(p.Rating),
		p.Source, p.H3Cell, p.UpdatedAt, id,
	)
	if isConstraintError(err) {
		return nil, ErrConflict
	}

	if err != nil {
		return nil, fmt.Errorf("updating place %d: %w", id, err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing place %d: %w", id, err)
	}

	return &p, nil
}

// Delete implements Store. The preferences of the place go with it.
func (r *Repository) Delete(ctx context.Context, id int64) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback() //nolint:errcheck // no-op after Commit

	if _, err := tx.ExecContext(ctx, "DELETE FROM preferences WHERE place_id = ?", id); err != nil {
		return fmt.Errorf("deleting preferences of place %d: %w", id, err)
	}

	res, err := tx.ExecContext(ctx, "DELETE FROM places WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting place %d: %w", id, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return err
	}

	if n == 0 {
		return ErrNotFound
	}

	return tx.Commit()
}

// Preferences implements PreferenceStore.
func (r *Repository) Preferences(ctx context.Context, userID string) ([]*Preference, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT place_id, user_id, visited, want_to_visit, notes, updated_at
		FROM preferences
		WHERE user_id = ?
		ORDER BY place_id
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("listing preferences: %w", err)
	}
	defer rows.Close()

	var prefs []*Preference

	for rows.Next() {
		var (
			pref  Preference
			notes sql.NullString
		)

		if err := rows.Scan(&pref.PlaceID, &pref.UserID, &pref.Visited, &pref.WantToVisit, &notes, &pref.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scanning preference: %w", err)
		}

		pref.Notes = notes.String
		prefs = append(prefs, &pref)
	}

	return prefs, rows.Err()
}

func placeExists(ctx context.Context, q querier, id int64) (bool, error) {
	var n int
	if err := q.QueryRowContext(ctx, "SELECT count(*) FROM places WHERE id = ?", id).Scan(&n); err != nil {
		return false, err
	}

	return n > 0, nil
}

const upsertPreference = `
	INSERT INTO preferences (place_id, user_id, visited, want_to_visit, notes, updated_at)
	VALUES (?, ?, ?, ?, ?, ?)
	ON CONFLICT (place_id, user_id) DO UPDATE SET
		visited = excluded.visited,
		want_to_visit = excluded.want_to_visit,
		notes = excluded.notes,
		updated_at = excluded.updated_at
`

// SetPreference implements PreferenceStore.
func (r *Repository) SetPreference(ctx context.Context, in *Preference) (*Preference, error) {
	ok, err := placeExists(ctx, r.db, in.PlaceID)
	if err != nil {
		return nil, fmt.Errorf("looking up place %d: %w", in.PlaceID, err)
	}

	if !ok {
		return nil, ErrNotFound
	}

	pref := *in
	if pref.UserID == "" {
		pref.UserID = DefaultUser
	}

	pref.UpdatedAt = time.Now().UTC().Truncate(time.Microsecond)

	_, err = r.db.ExecContext(ctx, upsertPreference,
		pref.PlaceID, pref.UserID, pref.Visited, pref.WantToVisit, nullString(pref.Notes), pref.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("saving preference for place %d: %w", pref.PlaceID, err)
	}

	return &pref, nil
}

// ClearPreference implements PreferenceStore.
func (r *Repository) ClearPreference(ctx context.Context, placeID int64, userID string) error {
	ok, err := placeExists(ctx, r.db, placeID)
	if err != nil {
		return fmt.Errorf("looking up place %d: %w", placeID, err)
	}

	if !ok {
		return ErrNotFound
	}

	_, err = r.db.ExecContext(ctx, "DELETE FROM preferences WHERE place_id = ? AND user_id = ?", placeID, userID)

	return err
}

// ReplacePreferences implements PreferenceStore. Notes of places that stay
// in a list are dropped too.
func (r *Repository) ReplacePreferences(ctx context.Context, userID string, visited, wantToVisit []int64) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback() //nolint:errcheck // no-op after Commit

	if _, err := tx.ExecContext(ctx, "DELETE FROM preferences WHERE user_id = ?", userID); err != nil {
		return fmt.Errorf("clearing preferences of %s: %w", userID, err)
	}

	now := time.Now().UTC().Truncate(time.Microsecond)

	for _, pref := range mergeStatuses(userID, visited, wantToVisit) {
		ok, err := placeExists(ctx, tx, pref.PlaceID)
		if err != nil {
			return fmt.Errorf("looking up place %d: %w", pref.PlaceID, err)
		}

		if !ok {
			slog.Debug("ignoring preference for unknown place", "place_id", pref.PlaceID)

			continue
		}

		_, err = tx.ExecContext(ctx, upsertPreference, pref.PlaceID, userID, pref.Visited, pref.WantToVisit, nil, now)
		if err != nil {
			return fmt.Errorf("saving preference for place %d: %w", pref.PlaceID, err)
		}
	}

	return tx.Commit()
}

// mergeStatuses turns the two ID lists into preferences. An ID in both
// lists counts as visited.
func mergeStatuses(userID string, visited, wantToVisit []int64) []*Preference {
	byID := make(map[int64]*Preference, len(visited)+len(wantToVisit))

	var out []*Preference

	for _, id := range wantToVisit {
		if byID[id] == nil {
			byID[id] = &Preference{PlaceID: id, UserID: userID, WantToVisit: true}
			out = append(out, byID[id])
		}
	}

	for _, id := range visited {
		if pref := byID[id]; pref != nil {
			pref.Visited, pref.WantToVisit = true, false

			continue
		}

		byID[id] = &Preference{PlaceID: id, UserID: userID, Visited: true}
		out = append(out, byID[id])
	}

	return out
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullFloat(f *float64) sql.NullFloat64 {
	if f == nil {
		return sql.NullFloat64{}
	}

	return sql.NullFloat64{Float64: *f, Valid: true}
}
