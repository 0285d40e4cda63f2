// Copyright (c) 2025 Thomas Phan
// SPDX-License-Identifier: AGPL-3.0-or-later

package telemetry

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"github.com/thomasmphan/inference-proxy/internal/util"
)

// =============================================================================
// SCHEMA
// =============================================================================

const schema = `
CREATE TABLE IF NOT EXISTS requests (
	id            TEXT PRIMARY KEY,
	ts            INTEGER NOT NULL,
	model         TEXT NOT NULL,
	prompt        TEXT NOT NULL,
	input_tokens  INTEGER NOT NULL,
	output_tokens INTEGER NOT NULL,
	cost_usd      REAL NOT NULL,
	cached        INTEGER NOT NULL,
	duration_ms   INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_requests_ts ON requests(ts);
CREATE INDEX IF NOT EXISTS idx_requests_model ON requests(model);
`

// =============================================================================
// STORE
// =============================================================================

// Record is one proxied request.
type Record struct {
	ID           string
	Timestamp    time.Time
	Model        string
	Prompt       string // First 100 chars only
	InputTokens  int
	OutputTokens int
	CostUSD      float64
	Cached       bool
	Duration     time.Duration
}

// Totals aggregates usage over a set of requests.
type Totals struct {
	Requests     int
	CacheHits    int
	InputTokens  int
	OutputTokens int
	CostUSD      float64
}

// Store is a SQLite-backed request log.
type Store struct {
	db *sql.DB
}

// promptPreviewRunes caps how much of the prompt is stored.
const promptPreviewRunes = 100

// Open opens (creating if needed) the usage database at path.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create telemetry directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open usage database: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to apply %q: %w", pragma, err)
		}
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Record writes one request row. A zero ID or Timestamp is filled in.
func (s *Store) Record(ctx context.Context, rec Record) error {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.Timestamp.IsZero() {
		rec.Timestamp = time.Now()
	}

	prompt := util.TruncateRunesNoEllipsis(rec.Prompt, promptPreviewRunes)

	cached := 0
	if rec.Cached {
		cached = 1
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO requests (id, ts, model, prompt, input_tokens, output_tokens, cost_usd, cached, duration_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.Timestamp.UnixMilli(), rec.Model, prompt,
		rec.InputTokens, rec.OutputTokens, rec.CostUSD, cached,
		rec.Duration.Milliseconds(),
	)
	if err != nil {
		return fmt.Errorf("failed to record request: %w", err)
	}
	return nil
}

// TotalsSince aggregates usage for requests at or after since.
func (s *Store) TotalsSince(ctx context.Context, since time.Time) (Totals, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*),
		       COALESCE(SUM(cached), 0),
		       COALESCE(SUM(input_tokens), 0),
		       COALESCE(SUM(output_tokens), 0),
		       COALESCE(SUM(cost_usd), 0)
		FROM requests WHERE ts >= ?`, since.UnixMilli())

	var t Totals
	if err := row.Scan(&t.Requests, &t.CacheHits, &t.InputTokens, &t.OutputTokens, &t.CostUSD); err != nil {
		return Totals{}, fmt.Errorf("failed to aggregate usage: %w", err)
	}
	return t, nil
}

// Recent returns the newest n requests, most recent first.
func (s *Store) Recent(ctx context.Context, n int) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, ts, model, prompt, input_tokens, output_tokens, cost_usd, cached, duration_ms
		FROM requests ORDER BY ts DESC LIMIT ?`, n)
	if err != nil {
		return nil, fmt.Errorf("failed to query requests: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var rec Record
		var ts, durationMs int64
		var cached int
		if err := rows.Scan(&rec.ID, &ts, &rec.Model, &rec.Prompt,
			&rec.InputTokens, &rec.OutputTokens, &rec.CostUSD, &cached, &durationMs); err != nil {
			return nil, fmt.Errorf("failed to scan request: %w", err)
		}
		rec.Timestamp = time.UnixMilli(ts)
		rec.Cached = cached != 0
		rec.Duration = time.Duration(durationMs) * time.Millisecond
		out = append(out, rec)
	}
	return out, rows.Err()
}
