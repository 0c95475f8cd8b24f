// Package db provides the optional clip ledger: connection helpers, schema
// migration, and small data access helpers for honored clips.
package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // pgx postgres driver registered as 'pgx'

	"github.com/onnwee/clipbot/clip"
)

// Connect opens a Postgres connection pool for dsn.
func Connect(dsn string) (*sql.DB, error) {
	if dsn == "" {
		return nil, fmt.Errorf("empty DB_DSN")
	}
	return sql.Open("pgx", dsn)
}

// Migrate applies idempotent schema changes without migration bookkeeping.
func Migrate(ctx context.Context, db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS clips (
			id SERIAL PRIMARY KEY,
			video_id TEXT NOT NULL,
			author TEXT NOT NULL,
			title TEXT NOT NULL,
			elapsed_seconds INTEGER NOT NULL,
			start_seconds INTEGER NOT NULL,
			end_seconds INTEGER NOT NULL,
			link TEXT NOT NULL,
			message_at TIMESTAMPTZ NOT NULL,
			created_at TIMESTAMPTZ DEFAULT NOW()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_clips_video_created ON clips(video_id, created_at)`,
	}
	for i, s := range stmts {
		if _, err := db.ExecContext(ctx, s); err != nil {
			return fmt.Errorf("postgres migrate step %d failed: %w", i, err)
		}
	}
	return nil
}

// ClipRow is a stored clip.
type ClipRow struct {
	ID        int64     `json:"id"`
	VideoID   string    `json:"video_id"`
	Author    string    `json:"author"`
	Title     string    `json:"title"`
	Elapsed   int       `json:"elapsed_seconds"`
	Start     int       `json:"start_seconds"`
	End       int       `json:"end_seconds"`
	Link      string    `json:"link"`
	MessageAt time.Time `json:"message_at"`
	CreatedAt time.Time `json:"created_at"`
}

// Store records clips. It does not hold any poll state.
type Store struct {
	db *sql.DB
}

// NewStore wraps an open database.
func NewStore(db *sql.DB) *Store { return &Store{db: db} }

// Ping checks connectivity.
func (s *Store) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

// SchemaVersion reports the applied migration version. Zero means none, or
// a ledger created by the Migrate fallback.
func (s *Store) SchemaVersion(ctx context.Context) (uint, bool, error) {
	return GetMigrationVersion(ctx, s.db)
}

// Close closes the underlying pool.
func (s *Store) Close() error { return s.db.Close() }

// RecordClip inserts one honored clip.
func (s *Store) RecordClip(ctx context.Context, c clip.Clip) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO clips (video_id, author, title, elapsed_seconds, start_seconds, end_seconds, link, message_at, created_at)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,NOW())`,
		c.VideoID, c.Author, c.Title, c.Elapsed, c.Start, c.End, c.Link, c.MessageAt)
	if err != nil {
		return fmt.Errorf("insert clip: %w", err)
	}
	return nil
}

// RecentClips returns up to limit clips, newest first.
func (s *Store) RecentClips(ctx context.Context, limit int) ([]ClipRow, error) {
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, video_id, author, title, elapsed_seconds, start_seconds, end_seconds, link, message_at, created_at
		 FROM clips ORDER BY created_at DESC, id DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("query clips: %w", err)
	}
	defer rows.Close()
	out := make([]ClipRow, 0, limit)
	for rows.Next() {
		var r ClipRow
		if err := rows.Scan(&r.ID, &r.VideoID, &r.Author, &r.Title, &r.Elapsed, &r.Start, &r.End, &r.Link, &r.MessageAt, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan clip: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
