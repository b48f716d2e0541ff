// Package glossary caches term explanations in SQLite so a term is only sent to the
// classifier once.
package glossary

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
	"golang.org/x/text/unicode/norm"
)

//go:embed schema.sql
var schemaSQL string

// InitDB creates the tables if they do not exist.
func InitDB(db *sql.DB) error {
	for _, s := range strings.Split(schemaSQL, ";") {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if _, err := db.Exec(s); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

// Store is a SQLite-backed explanation cache.
type Store struct {
	db  *sql.DB
	log *zap.Logger
}

// Open opens or creates the database at path. ":memory:" keeps it in memory.
func Open(path string, logger *zap.Logger) (*Store, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, err
		}
	}
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open glossary: %w", err)
	}
	// In-memory databases are per connection.
	db.SetMaxOpenConns(1)
	s, err := New(db, logger)
	if err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// New wraps an open database, running migrations.
func New(db *sql.DB, logger *zap.Logger) (*Store, error) {
	if err := InitDB(db); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{db: db, log: logger.Named("glossary")}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Key folds a term to its cache key: NFC, trimmed, lower case.
func Key(term string) string {
	return strings.ToLower(norm.NFC.String(strings.TrimSpace(term)))
}

// Lookup returns the cached explanation for term.
func (s *Store) Lookup(ctx context.Context, term string) (string, bool, error) {
	key := Key(term)
	if key == "" {
		return "", false, nil
	}
	var explanation string
	err := s.db.QueryRowContext(ctx, `SELECT explanation FROM explanations WHERE term = ?`, key).Scan(&explanation)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("lookup %q: %w", term, err)
	}
	if _, err := s.db.ExecContext(ctx, `UPDATE explanations SET hits = hits + 1 WHERE term = ?`, key); err != nil {
		s.log.Debug("hit count not updated", zap.String("term", key), zap.Error(err))
	}
	return explanation, true, nil
}

// Save stores or replaces the explanation for term. Blank terms or explanations are ignored.
func (s *Store) Save(ctx context.Context, term, explanation string) error {
	key := Key(term)
	explanation = strings.TrimSpace(explanation)
	if key == "" || explanation == "" {
		return nil
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO explanations (term, display, explanation) VALUES (?, ?, ?)
		 ON CONFLICT(term) DO UPDATE SET explanation = excluded.explanation, display = excluded.display`,
		key, strings.TrimSpace(term), explanation)
	if err != nil {
		return fmt.Errorf("save %q: %w", term, err)
	}
	return nil
}

// Entry is one cached explanation.
type Entry struct {
	Term        string `json:"term"`
	Explanation string `json:"explanation"`
	Hits        int    `json:"hits"`
}

// Recent lists up to limit entries, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT display, explanation, hits FROM explanations ORDER BY created_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.Term, &e.Explanation, &e.Hits); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
