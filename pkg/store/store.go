// Package store persists fixture snapshots in SQLite.
package store

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/chazu/openings/pkg/catalog"
	"github.com/chazu/openings/pkg/fixture"
	"github.com/chazu/openings/pkg/material"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
)

// ErrNotFound is returned when no snapshot has the requested ID.
var ErrNotFound = errors.New("snapshot not found")

//go:embed schema.sql
var schema string

const columns = `id, type_id, kind, pos_x, pos_y, pos_z, rotation, orientation,
        wall_id, truss_id, trim_id, ref_height, ref_width, forbidden, hidden, color`

// Store is a snapshot repository.
type Store struct {
	db *sql.DB
}

// Open opens the database at path, creating it and its directory when
// missing, and applies the schema. ":memory:" opens a private in-memory
// database.
func Open(ctx context.Context, path string) (*Store, error) {
	dsn := path
	if path != ":memory:" && !strings.HasPrefix(path, "file:") {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("store: mkdir db dir: %w", err)
		}
		dsn = fmt.Sprintf("file:%s?mode=rwc&_pragma=busy_timeout=5000", path)
	}
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("store: open: %w", err)
	}
	// One connection keeps an in-memory database alive and serializes
	// writers.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: apply schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Save inserts or replaces the snapshot with the same ID.
func (s *Store) Save(ctx context.Context, snap fixture.Snapshot) error {
	return save(ctx, s.db, snap)
}

// execer is satisfied by *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func save(ctx context.Context, db execer, snap fixture.Snapshot) error {
	if snap.ID == "" {
		return errors.New("store: snapshot has no id")
	}
	var color sql.NullString
	if snap.Color != nil {
		data, err := json.Marshal(snap.Color)
		if err != nil {
			return fmt.Errorf("store: encode color: %w", err)
		}
		color = sql.NullString{String: string(data), Valid: true}
	}

	_, err := db.ExecContext(ctx, `
        INSERT INTO fixtures (`+columns+`)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
        ON CONFLICT(id) DO UPDATE SET
            type_id = excluded.type_id,
            kind = excluded.kind,
            pos_x = excluded.pos_x,
            pos_y = excluded.pos_y,
            pos_z = excluded.pos_z,
            rotation = excluded.rotation,
            orientation = excluded.orientation,
            wall_id = excluded.wall_id,
            truss_id = excluded.truss_id,
            trim_id = excluded.trim_id,
            ref_height = excluded.ref_height,
            ref_width = excluded.ref_width,
            forbidden = excluded.forbidden,
            hidden = excluded.hidden,
            color = excluded.color,
            updated_at = CURRENT_TIMESTAMP
    `,
		snap.ID, snap.TypeID, string(snap.Kind),
		snap.Position.X, snap.Position.Y, snap.Position.Z, snap.Rotation, snap.Orientation,
		snap.WallID, snap.TrussID, snap.TrimID, snap.RefHeight, snap.RefWidth,
		snap.Forbidden, snap.Hidden, color,
	)
	if err != nil {
		return fmt.Errorf("store: save %s: %w", snap.ID, err)
	}
	return nil
}

// Get returns the snapshot with the given ID.
func (s *Store) Get(ctx context.Context, id string) (fixture.Snapshot, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+columns+` FROM fixtures WHERE id = ?`, id)
	snap, err := scan(row)
	if errors.Is(err, sql.ErrNoRows) {
		return fixture.Snapshot{}, fmt.Errorf("store: %w: %q", ErrNotFound, id)
	}
	if err != nil {
		return fixture.Snapshot{}, fmt.Errorf("store: get %s: %w", id, err)
	}
	return snap, nil
}

// List returns every snapshot ordered by ID.
func (s *Store) List(ctx context.Context) ([]fixture.Snapshot, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+columns+` FROM fixtures ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("store: list: %w", err)
	}
	defer rows.Close()

	var out []fixture.Snapshot
	for rows.Next() {
		snap, err := scan(rows)
		if err != nil {
			return nil, fmt.Errorf("store: list: %w", err)
		}
		out = append(out, snap)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: list: %w", err)
	}
	return out, nil
}

// Delete removes the snapshot with the given ID.
func (s *Store) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM fixtures WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("store: delete %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("store: delete %s: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("store: %w: %q", ErrNotFound, id)
	}
	return nil
}

// ReplaceAll swaps the stored layout for snaps in one transaction.
func (s *Store) ReplaceAll(ctx context.Context, snaps []fixture.Snapshot) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("store: begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM fixtures`); err != nil {
		return fmt.Errorf("store: clear: %w", err)
	}
	for _, snap := range snaps {
		if err := save(ctx, tx, snap); err != nil {
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("store: commit: %w", err)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scan(r scanner) (fixture.Snapshot, error) {
	var (
		snap  fixture.Snapshot
		kind  string
		color sql.NullString
	)
	err := r.Scan(&snap.ID, &snap.TypeID, &kind,
		&snap.Position.X, &snap.Position.Y, &snap.Position.Z, &snap.Rotation, &snap.Orientation,
		&snap.WallID, &snap.TrussID, &snap.TrimID, &snap.RefHeight, &snap.RefWidth,
		&snap.Forbidden, &snap.Hidden, &color)
	if err != nil {
		return fixture.Snapshot{}, err
	}
	snap.Kind = catalog.Kind(kind)
	if color.Valid {
		var req material.ColorRequest
		if err := json.Unmarshal([]byte(color.String), &req); err != nil {
			return fixture.Snapshot{}, fmt.Errorf("decode color of %s: %w", snap.ID, err)
		}
		snap.Color = &req
	}
	return snap, nil
}
