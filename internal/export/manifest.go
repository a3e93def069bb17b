package export

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// Manifest is a SQLite log of every file written by an exporter.
type Manifest struct {
	db *sql.DB
}

// Entry is one exported file.
type Entry struct {
	ID        string
	Prefix    string
	Path      string
	Bands     string
	Width     int
	Height    int
	Pixels    int
	CreatedAt time.Time
}

// OpenManifest opens or creates the manifest database at path.
func OpenManifest(path string) (*Manifest, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	m := &Manifest{db: db}
	if err := m.ensureSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("manifest %s: %w", path, err)
	}
	return m, nil
}

func (m *Manifest) ensureSchema() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS exports (
            id TEXT PRIMARY KEY,
            prefix TEXT NOT NULL,
            path TEXT NOT NULL,
            bands TEXT,
            width INTEGER,
            height INTEGER,
            pixels INTEGER,
            created_at TIMESTAMP NOT NULL
        );`,
		`CREATE INDEX IF NOT EXISTS idx_exports_prefix ON exports(prefix);`,
	}
	for _, stmt := range stmts {
		if _, err := m.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

func (m *Manifest) Close() error {
	if m == nil || m.db == nil {
		return nil
	}
	return m.db.Close()
}

// Record stores e. A nil Manifest records nothing.
func (m *Manifest) Record(ctx context.Context, e Entry) error {
	if m == nil {
		return nil
	}
	_, err := m.db.ExecContext(ctx,
		`INSERT INTO exports (id, prefix, path, bands, width, height, pixels, created_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.Prefix, e.Path, e.Bands, e.Width, e.Height, e.Pixels, e.CreatedAt.UTC())
	if err != nil {
		return fmt.Errorf("record export %s: %w", e.Path, err)
	}
	return nil
}

// List returns the entries for prefix, oldest first. An empty prefix lists
// everything.
func (m *Manifest) List(ctx context.Context, prefix string) ([]Entry, error) {
	query := `SELECT id, prefix, path, bands, width, height, pixels, created_at FROM exports`
	var args []any
	if prefix != "" {
		query += ` WHERE prefix = ?`
		args = append(args, prefix)
	}
	query += ` ORDER BY created_at, path`
	rows, err := m.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.Prefix, &e.Path, &e.Bands, &e.Width, &e.Height, &e.Pixels, &e.CreatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
