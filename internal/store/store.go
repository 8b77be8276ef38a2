// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package store reads locality records (analyst reports, safety alerts and
// community posts) from a local SQLite database. The database is populated
// offline; Seed exists for fixtures and local development.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/civicqa/pkg/types"
)

// timeLayout is fixed-width UTC so stored timestamps compare lexically.
const timeLayout = "2006-01-02T15:04:05Z"

const defaultLimit = 10

// Record is one row of the records table.
type Record struct {
	Key         string           `json:"key" yaml:"key"`
	Kind        types.SourceKind `json:"kind" yaml:"kind"`
	Locality    string           `json:"locality" yaml:"locality"`
	Title       string           `json:"title" yaml:"title"`
	Body        string           `json:"body" yaml:"body"`
	Author      string           `json:"author,omitempty" yaml:"author,omitempty"`
	AuthorRole  string           `json:"author_role,omitempty" yaml:"author_role,omitempty"`
	URL         string           `json:"url,omitempty" yaml:"url,omitempty"`
	PublishedAt time.Time        `json:"published_at,omitzero" yaml:"published_at,omitempty"`
	ExpiresAt   time.Time        `json:"expires_at,omitzero" yaml:"expires_at,omitempty"`
}

// Store manages the record database.
type Store struct {
	db *sql.DB
}

// NewStore opens or creates the record database at cfg.Path and creates the
// schema if it does not exist.
func NewStore(cfg types.StoreConfig) (*Store, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("store path is empty")
	}
	if dir := filepath.Dir(cfg.Path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating store directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", cfg.Path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{db: db}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS records (
			kind TEXT NOT NULL,
			key TEXT NOT NULL,
			locality TEXT NOT NULL DEFAULT '',
			title TEXT NOT NULL,
			body TEXT NOT NULL DEFAULT '',
			author TEXT NOT NULL DEFAULT '',
			author_role TEXT NOT NULL DEFAULT '',
			url TEXT NOT NULL DEFAULT '',
			published_at TEXT NOT NULL DEFAULT '',
			expires_at TEXT NOT NULL DEFAULT '',
			PRIMARY KEY (kind, key)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_records_kind_locality ON records(kind, locality)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// Query selects records of one kind for a locality.
type Query struct {
	Kind types.SourceKind

	// Locality restricts results to that locality plus locality-agnostic
	// records. Empty matches every locality.
	Locality string

	// Text floats records whose title or body contains it to the top. It
	// does not filter.
	Text string

	// ActiveAt, when set, drops records whose expires_at is at or before it.
	ActiveAt time.Time

	// Limit caps the result count. Zero uses the default (10).
	Limit int
}

// Records returns records matching q, text matches first, then newest first.
func (s *Store) Records(ctx context.Context, q Query) ([]Record, error) {
	if !q.Kind.Valid() {
		return nil, fmt.Errorf("invalid record kind %q", q.Kind)
	}
	limit := q.Limit
	if limit <= 0 {
		limit = defaultLimit
	}

	var (
		qb   strings.Builder
		args []any
	)
	qb.WriteString(`SELECT key, kind, locality, title, body, author, author_role, url,
			published_at, expires_at
		FROM records WHERE kind = ?`)
	args = append(args, string(q.Kind))

	if q.Locality != "" {
		qb.WriteString(` AND (locality = ? OR locality = '')`)
		args = append(args, q.Locality)
	}
	if !q.ActiveAt.IsZero() {
		qb.WriteString(` AND (expires_at = '' OR expires_at > ?)`)
		args = append(args, formatTime(q.ActiveAt))
	}

	if q.Text != "" {
		pattern := likePattern(q.Text)
		qb.WriteString(` ORDER BY CASE WHEN title LIKE ? ESCAPE '\' OR body LIKE ? ESCAPE '\' THEN 0 ELSE 1 END,`)
		args = append(args, pattern, pattern)
	} else {
		qb.WriteString(` ORDER BY`)
	}
	qb.WriteString(` published_at DESC, key LIMIT ?`)
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, qb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("querying records: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var (
			r         Record
			kind      string
			published string
			expires   string
		)
		if err := rows.Scan(&r.Key, &kind, &r.Locality, &r.Title, &r.Body,
			&r.Author, &r.AuthorRole, &r.URL, &published, &expires); err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}
		r.Kind = types.SourceKind(kind)
		r.PublishedAt = parseTime(published)
		r.ExpiresAt = parseTime(expires)
		records = append(records, r)
	}
	return records, rows.Err()
}

// Upsert inserts or replaces one record.
func (s *Store) Upsert(ctx context.Context, r Record) error {
	if r.Key == "" || r.Title == "" {
		return fmt.Errorf("record needs key and title")
	}
	if !r.Kind.Valid() {
		return fmt.Errorf("record %s: invalid kind %q", r.Key, r.Kind)
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO records
			(kind, key, locality, title, body, author, author_role, url, published_at, expires_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		string(r.Kind), r.Key, r.Locality, r.Title, r.Body, r.Author, r.AuthorRole, r.URL,
		formatTime(r.PublishedAt), formatTime(r.ExpiresAt),
	)
	if err != nil {
		return fmt.Errorf("upserting record %s: %w", r.Key, err)
	}
	return nil
}

// Count returns the number of stored records of kind.
func (s *Store) Count(ctx context.Context, kind types.SourceKind) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT count(*) FROM records WHERE kind = ?`, string(kind)).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("counting records: %w", err)
	}
	return n, nil
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

// likePattern wraps text in % wildcards, escaping LIKE metacharacters.
func likePattern(text string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(text) + "%"
}
