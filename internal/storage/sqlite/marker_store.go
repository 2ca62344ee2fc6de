// Package sqlite persists page markers in an embedded SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/JakeFAU/scrapper/internal/crawler"
)

var validTableName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// Config locates the database file.
type Config struct {
	// Path is the database file; parent directories are created.
	Path  string
	Table string
}

// MarkerStore stores one row per visited URI.
type MarkerStore struct {
	db    *sql.DB
	table string
}

// Open opens or creates the database and ensures the marker table exists.
func Open(ctx context.Context, cfg Config) (*MarkerStore, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("sqlite path is required")
	}
	table := cfg.Table
	if table == "" {
		table = "page_markers"
	}
	if !validTableName.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	if dir := filepath.Dir(cfg.Path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", cfg.Path+"?mode=rwc")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// SQLite only supports one writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}
	schema := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	uri TEXT PRIMARY KEY,
	marked_at DATETIME DEFAULT CURRENT_TIMESTAMP
)`, table)
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}
	return &MarkerStore{db: db, table: table}, nil
}

// Close closes the database connection.
func (s *MarkerStore) Close() error {
	return s.db.Close()
}

// Exists reports whether uri has been marked.
func (s *MarkerStore) Exists(ctx context.Context, uri string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx, fmt.Sprintf("SELECT 1 FROM %s WHERE uri = ?", s.table), uri).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("query marker: %w", err)
	}
	return true, nil
}

// Upsert inserts the marker; an existing row is left untouched.
func (s *MarkerStore) Upsert(ctx context.Context, marker crawler.PageMarker) error {
	query := fmt.Sprintf("INSERT INTO %s (uri) VALUES (?) ON CONFLICT(uri) DO NOTHING", s.table)
	if _, err := s.db.ExecContext(ctx, query, marker.URI); err != nil {
		return fmt.Errorf("insert marker: %w", err)
	}
	return nil
}

// List returns every marker ordered by URI.
func (s *MarkerStore) List(ctx context.Context) ([]crawler.PageMarker, error) {
	return s.query(ctx, fmt.Sprintf("SELECT uri FROM %s ORDER BY uri", s.table))
}

// Search returns markers whose URI matches the glob pattern. SQLite's GLOB
// operator is case sensitive and already speaks '*' and '?'.
func (s *MarkerStore) Search(ctx context.Context, pattern string) ([]crawler.PageMarker, error) {
	query := fmt.Sprintf("SELECT uri FROM %s WHERE uri GLOB ? ORDER BY uri", s.table)
	return s.query(ctx, query, escapeGlob(pattern))
}

// Delete removes markers matching the glob pattern.
func (s *MarkerStore) Delete(ctx context.Context, pattern string) (int, error) {
	query := fmt.Sprintf("DELETE FROM %s WHERE uri GLOB ?", s.table)
	res, err := s.db.ExecContext(ctx, query, escapeGlob(pattern))
	if err != nil {
		return 0, fmt.Errorf("delete markers: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return int(n), nil
}

// escapeGlob neutralizes character classes, which marker patterns do not support.
func escapeGlob(pattern string) string {
	return strings.ReplaceAll(pattern, "[", "[[]")
}

func (s *MarkerStore) query(ctx context.Context, query string, args ...any) ([]crawler.PageMarker, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query markers: %w", err)
	}
	defer rows.Close()

	var markers []crawler.PageMarker
	for rows.Next() {
		var m crawler.PageMarker
		if err := rows.Scan(&m.URI); err != nil {
			return nil, fmt.Errorf("scan marker: %w", err)
		}
		markers = append(markers, m)
	}
	return markers, rows.Err()
}
