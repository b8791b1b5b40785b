// Package store is an optional SQLite cache of model responses keyed by
// model, prompt and generation options. It only ever holds successful
// responses and carries no notion of row progress.
package store

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/text/unicode/norm"
	_ "modernc.org/sqlite"
)

type Store struct {
	db  *sql.DB
	now func() time.Time
}

func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	s := &Store{db: db, now: time.Now}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate: %w", err)
	}

	return s, nil
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS responses (
		id TEXT PRIMARY KEY,
		cache_key TEXT NOT NULL UNIQUE,
		model TEXT NOT NULL,
		prompt TEXT NOT NULL,
		options TEXT NOT NULL,
		response TEXT NOT NULL,
		hits INTEGER DEFAULT 0,
		last_used TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_responses_model ON responses(model);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Lookup returns the cached response for the exact request, bumping its hit
// count.
func (s *Store) Lookup(ctx context.Context, model, prompt string, options map[string]any) (string, bool, error) {
	key, _, err := cacheKey(model, prompt, options)
	if err != nil {
		return "", false, err
	}

	var response string
	err = s.db.QueryRowContext(ctx,
		`SELECT response FROM responses WHERE cache_key = ?`, key).Scan(&response)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}

	_, err = s.db.ExecContext(ctx,
		`UPDATE responses SET hits = hits + 1, last_used = ? WHERE cache_key = ?`,
		s.now(), key)
	return response, true, err
}

// Save stores or replaces the response for a request.
func (s *Store) Save(ctx context.Context, model, prompt string, options map[string]any, response string) error {
	key, opts, err := cacheKey(model, prompt, options)
	if err != nil {
		return err
	}
	now := s.now()
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO responses (id, cache_key, model, prompt, options, response, hits, last_used, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, 0, ?, ?)
		 ON CONFLICT(cache_key) DO UPDATE SET response = excluded.response, last_used = excluded.last_used`,
		uuid.NewString(), key, model, normalizeText(prompt), opts, response, now, now)
	return err
}

// Entry is a row from the responses table.
type Entry struct {
	ID       string
	Model    string
	Prompt   string
	Response string
	Hits     int
	LastUsed time.Time
}

// CacheStats summarises the cache.
type CacheStats struct {
	TotalEntries int
	TotalHits    int
	Models       int
}

// List returns entries ordered by most recently used. limit <= 0 returns all.
func (s *Store) List(ctx context.Context, limit int) ([]Entry, error) {
	query := `SELECT id, model, prompt, response, hits, last_used FROM responses ORDER BY last_used DESC`
	var args []any
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.Model, &e.Prompt, &e.Response, &e.Hits, &e.LastUsed); err != nil {
			return nil, err
		}
		results = append(results, e)
	}

	return results, rows.Err()
}

func (s *Store) Stats(ctx context.Context) (*CacheStats, error) {
	stats := &CacheStats{}
	err := s.db.QueryRowContext(ctx, `
		SELECT
			COUNT(*),
			COALESCE(SUM(hits), 0),
			COUNT(DISTINCT model)
		FROM responses`).Scan(
		&stats.TotalEntries,
		&stats.TotalHits,
		&stats.Models,
	)
	if err != nil {
		return nil, err
	}
	return stats, nil
}

// Delete removes an entry by ID and reports whether it existed.
func (s *Store) Delete(ctx context.Context, id string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM responses WHERE id = ?`, id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// Clear removes all entries.
func (s *Store) Clear(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM responses`)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (s *Store) Close() error {
	return s.db.Close()
}

// cacheKey hashes the model, the exact prompt bytes sent to the model and
// the options encoded as JSON (map keys sorted), and returns that JSON for
// display.
func cacheKey(model, prompt string, options map[string]any) (string, string, error) {
	if options == nil {
		options = map[string]any{}
	}
	opts, err := json.Marshal(options)
	if err != nil {
		return "", "", fmt.Errorf("encode options: %w", err)
	}
	h := sha256.New()
	h.Write([]byte(model))
	h.Write([]byte{0})
	h.Write([]byte(prompt))
	h.Write([]byte{0})
	h.Write(opts)
	return hex.EncodeToString(h.Sum(nil)), string(opts), nil
}

// normalizeText trims whitespace and applies Unicode NFC normalization to
// the prompt kept for display. It never feeds the cache key.
func normalizeText(text string) string {
	return norm.NFC.String(strings.TrimSpace(text))
}
