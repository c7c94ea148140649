// Package archive is the SQLite-backed capture history. It implements the
// mirror Sink interface, so wiring it into an Engine records every capture;
// the viewer and CLI read the history back out.
//
// Import the driver in the binary:
//
//	import _ "modernc.org/sqlite"
package archive

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/hazyhaar/canvasmirror/snapshot"
)

const schema = `
CREATE TABLE IF NOT EXISTS captures (
	id            TEXT PRIMARY KEY,
	activation_id TEXT NOT NULL,
	page_url      TEXT NOT NULL DEFAULT '',
	surface       TEXT NOT NULL DEFAULT '',
	format        TEXT NOT NULL,
	data_url      TEXT NOT NULL,
	captured_at   INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_captures_activation
	ON captures(activation_id, captured_at DESC);
`

// Store records captures and serves them back.
type Store struct {
	db *sql.DB

	// keep bounds the history per activation; 0 retains everything.
	keep int
}

// Option customises Open behaviour.
type Option func(*Store)

// WithKeep prunes each activation's history down to n captures after every
// insert. 0 = keep all.
func WithKeep(n int) Option {
	return func(s *Store) { s.keep = n }
}

// Open opens (creating if needed) the archive at path with the WAL and
// busy-timeout pragmas applied, and ensures the schema exists.
func Open(path string, opts ...Option) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("archive: mkdir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("archive: open %s: %w", path, err)
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 10000",
		"PRAGMA synchronous = NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("archive: %s: %w", pragma, err)
		}
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("archive: init schema: %w", err)
	}

	s := &Store{db: db}
	for _, o := range opts {
		o(s)
	}
	return s, nil
}

// Send records one capture. Implements the mirror Sink interface.
func (s *Store) Send(ctx context.Context, snap snapshot.Snapshot) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO captures
			(id, activation_id, page_url, surface, format, data_url, captured_at)
		VALUES (?,?,?,?,?,?,?)`,
		snap.ID, snap.ActivationID, snap.PageURL, snap.Surface,
		string(snap.Format), snap.DataURL, snap.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("archive: insert capture: %w", err)
	}
	if s.keep > 0 {
		if err := s.prune(ctx, snap.ActivationID); err != nil {
			return err
		}
	}
	return nil
}

// Close releases the database.
func (s *Store) Close() error { return s.db.Close() }

// Latest returns the most recent capture for an activation, or nil.
func (s *Store) Latest(ctx context.Context, activationID string) (*snapshot.Snapshot, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, activation_id, page_url, surface, format, data_url, captured_at
		FROM captures WHERE activation_id = ?
		ORDER BY captured_at DESC, id DESC LIMIT 1`, activationID)
	return scanCapture(row)
}

// List returns up to limit captures for an activation, newest first.
func (s *Store) List(ctx context.Context, activationID string, limit int) ([]*snapshot.Snapshot, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, activation_id, page_url, surface, format, data_url, captured_at
		FROM captures WHERE activation_id = ?
		ORDER BY captured_at DESC, id DESC LIMIT ?`, activationID, limit)
	if err != nil {
		return nil, fmt.Errorf("archive: list captures: %w", err)
	}
	defer rows.Close()

	var out []*snapshot.Snapshot
	for rows.Next() {
		snap, err := scanCapture(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, snap)
	}
	return out, rows.Err()
}

// Count returns how many captures are stored for an activation.
func (s *Store) Count(ctx context.Context, activationID string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM captures WHERE activation_id = ?`, activationID).Scan(&n)
	return n, err
}

func (s *Store) prune(ctx context.Context, activationID string) error {
	_, err := s.db.ExecContext(ctx, `
		DELETE FROM captures
		WHERE activation_id = ? AND id NOT IN (
			SELECT id FROM captures WHERE activation_id = ?
			ORDER BY captured_at DESC, id DESC LIMIT ?
		)`, activationID, activationID, s.keep)
	if err != nil {
		return fmt.Errorf("archive: prune: %w", err)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanCapture(row scanner) (*snapshot.Snapshot, error) {
	var snap snapshot.Snapshot
	var format string
	err := row.Scan(&snap.ID, &snap.ActivationID, &snap.PageURL, &snap.Surface,
		&format, &snap.DataURL, &snap.Timestamp)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("archive: scan capture: %w", err)
	}
	snap.Format = snapshot.Format(format)
	return &snap, nil
}
