// Package postgres provides Postgres-backed persistence implementations.
package postgres

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JakeFAU/scrapper/internal/crawler"
)

var validTableName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// MarkerStoreConfig controls the Postgres connection pool used for page markers.
type MarkerStoreConfig struct {
	DSN             string
	Table           string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
}

type pool interface {
	Exec(context.Context, string, ...any) (pgconn.CommandTag, error)
	Query(context.Context, string, ...any) (pgx.Rows, error)
	QueryRow(context.Context, string, ...any) pgx.Row
	Close()
}

// MarkerStore keeps one row per visited URI.
type MarkerStore struct {
	pool  pool
	table string
}

// NewMarkerStore connects to Postgres and ensures the marker table exists.
func NewMarkerStore(ctx context.Context, cfg MarkerStoreConfig) (*MarkerStore, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("markers.dsn is required")
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	p, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	store, err := NewMarkerStoreWithPool(p, cfg.Table)
	if err != nil {
		p.Close()
		return nil, err
	}
	if err := store.EnsureSchema(ctx); err != nil {
		p.Close()
		return nil, err
	}
	return store, nil
}

// NewMarkerStoreWithPool constructs a store from an existing pool (primarily for testing).
func NewMarkerStoreWithPool(p pool, table string) (*MarkerStore, error) {
	if p == nil {
		return nil, fmt.Errorf("pool is required")
	}
	if table == "" {
		table = "page_markers"
	}
	if !validTableName.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	return &MarkerStore{pool: p, table: table}, nil
}

// EnsureSchema creates the marker table when missing.
func (s *MarkerStore) EnsureSchema(ctx context.Context) error {
	query := fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %s (
	uri TEXT PRIMARY KEY,
	marked_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`, s.table)
	if _, err := s.pool.Exec(ctx, query); err != nil {
		return fmt.Errorf("create marker table: %w", err)
	}
	return nil
}

// Close releases the underlying pool resources.
func (s *MarkerStore) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

// Exists reports whether uri has been marked.
func (s *MarkerStore) Exists(ctx context.Context, uri string) (bool, error) {
	var exists bool
	query := fmt.Sprintf("SELECT EXISTS (SELECT 1 FROM %s WHERE uri = $1)", s.table)
	if err := s.pool.QueryRow(ctx, query, uri).Scan(&exists); err != nil {
		return false, fmt.Errorf("query marker: %w", err)
	}
	return exists, nil
}

// Upsert inserts the marker; an existing row is left untouched.
func (s *MarkerStore) Upsert(ctx context.Context, marker crawler.PageMarker) error {
	query := fmt.Sprintf(`
INSERT INTO %s (uri) VALUES ($1)
ON CONFLICT (uri) DO NOTHING`, s.table)
	if _, err := s.pool.Exec(ctx, query, marker.URI); err != nil {
		return fmt.Errorf("insert marker: %w", err)
	}
	return nil
}

// List returns every marker ordered by URI.
func (s *MarkerStore) List(ctx context.Context) ([]crawler.PageMarker, error) {
	return s.query(ctx, fmt.Sprintf("SELECT uri FROM %s ORDER BY uri", s.table))
}

// Search returns markers whose URI matches the glob pattern.
func (s *MarkerStore) Search(ctx context.Context, pattern string) ([]crawler.PageMarker, error) {
	query := fmt.Sprintf(`SELECT uri FROM %s WHERE uri LIKE $1 ESCAPE '\' ORDER BY uri`, s.table)
	return s.query(ctx, query, crawler.GlobToLike(pattern))
}

// Delete removes markers matching the glob pattern.
func (s *MarkerStore) Delete(ctx context.Context, pattern string) (int, error) {
	query := fmt.Sprintf(`DELETE FROM %s WHERE uri LIKE $1 ESCAPE '\'`, s.table)
	tag, err := s.pool.Exec(ctx, query, crawler.GlobToLike(pattern))
	if err != nil {
		return 0, fmt.Errorf("delete markers: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

func (s *MarkerStore) query(ctx context.Context, query string, args ...any) ([]crawler.PageMarker, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query markers: %w", err)
	}
	uris, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("scan markers: %w", err)
	}
	markers := make([]crawler.PageMarker, 0, len(uris))
	for _, uri := range uris {
		markers = append(markers, crawler.PageMarker{URI: uri})
	}
	return markers, nil
}
