// Package store persists election rounds, their results, and the round
// lifecycle event log in SQLite. It also provides the lease table backing
// single-instance leadership.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// ErrNotFound is returned when a round or result does not exist.
var ErrNotFound = errors.New("not found")

// Store manages the SQLite connection and schema.
type Store struct {
	db *sql.DB
}

// NewStore opens the SQLite database at dbPath, enabling WAL mode and
// foreign keys, and runs schema migration.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite db: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping sqlite db: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON;"); err != nil {
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("schema migration failed: %w", err)
	}

	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the tables if they don't exist. Ballot snapshots and
// results are stored as JSON payloads; the queryable fields are columns.
func (s *Store) migrate() error {
	query := `
	CREATE TABLE IF NOT EXISTS rounds (
		round_id TEXT PRIMARY KEY,
		status TEXT NOT NULL,
		created_at DATETIME NOT NULL,
		ballots JSON NOT NULL
	);

	CREATE TABLE IF NOT EXISTS results (
		round_id TEXT PRIMARY KEY REFERENCES rounds(round_id),
		computed_at DATETIME NOT NULL,
		edges_before INTEGER NOT NULL,
		edges_after INTEGER NOT NULL,
		payload JSON NOT NULL
	);

	CREATE TABLE IF NOT EXISTS events (
		event_id TEXT PRIMARY KEY,
		event_type TEXT NOT NULL,
		ts_event DATETIME NOT NULL,
		round_id TEXT NOT NULL,
		payload JSON
	);
	CREATE INDEX IF NOT EXISTS idx_events_round ON events(round_id);
	CREATE INDEX IF NOT EXISTS idx_events_ts ON events(ts_event);

	CREATE TABLE IF NOT EXISTS leases (
		name TEXT PRIMARY KEY,
		holder_id TEXT NOT NULL,
		expires_at DATETIME NOT NULL,
		version INTEGER NOT NULL
	);
	`

	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("failed to create tables: %w", err)
	}

	return nil
}

// CreateRound inserts a new round in pending state.
func (s *Store) CreateRound(ctx context.Context, round *Round) error {
	ballots, err := json.Marshal(round.Ballots)
	if err != nil {
		return fmt.Errorf("failed to marshal ballots: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO rounds (round_id, status, created_at, ballots)
		VALUES (?, ?, ?, ?)
	`, round.RoundID, round.Status, round.CreatedAt.UTC(), ballots)
	if err != nil {
		return fmt.Errorf("failed to insert round: %w", err)
	}

	return nil
}

// GetRound fetches one round by ID.
func (s *Store) GetRound(ctx context.Context, roundID string) (*Round, error) {
	var (
		r       Round
		ballots []byte
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT round_id, status, created_at, ballots
		FROM rounds WHERE round_id = ?
	`, roundID).Scan(&r.RoundID, &r.Status, &r.CreatedAt, &ballots)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get round: %w", err)
	}

	if err := json.Unmarshal(ballots, &r.Ballots); err != nil {
		return nil, fmt.Errorf("failed to unmarshal ballots: %w", err)
	}

	return &r, nil
}

// ListRounds returns the most recent rounds, newest first.
func (s *Store) ListRounds(ctx context.Context, limit int) ([]*Round, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT round_id, status, created_at, ballots
		FROM rounds ORDER BY created_at DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list rounds: %w", err)
	}
	defer rows.Close()

	var out []*Round
	for rows.Next() {
		var (
			r       Round
			ballots []byte
		)
		if err := rows.Scan(&r.RoundID, &r.Status, &r.CreatedAt, &ballots); err != nil {
			return nil, fmt.Errorf("failed to scan round: %w", err)
		}
		if err := json.Unmarshal(ballots, &r.Ballots); err != nil {
			return nil, fmt.Errorf("failed to unmarshal ballots: %w", err)
		}
		out = append(out, &r)
	}

	return out, rows.Err()
}

// UpdateRoundStatus moves a round to a new lifecycle state.
func (s *Store) UpdateRoundStatus(ctx context.Context, roundID string, status RoundStatus) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE rounds SET status = ? WHERE round_id = ?
	`, status, roundID)
	if err != nil {
		return fmt.Errorf("failed to update round status: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rows == 0 {
		return ErrNotFound
	}

	return nil
}

// SaveResult stores the solved outcome of a round, replacing any previous
// result for the same round.
func (s *Store) SaveResult(ctx context.Context, result *RoundResult) error {
	payload, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to marshal result: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO results (round_id, computed_at, edges_before, edges_after, payload)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(round_id) DO UPDATE SET
			computed_at = excluded.computed_at,
			edges_before = excluded.edges_before,
			edges_after = excluded.edges_after,
			payload = excluded.payload
	`, result.RoundID, result.ComputedAt.UTC(), result.EdgesBefore, result.EdgesAfter, payload)
	if err != nil {
		return fmt.Errorf("failed to save result: %w", err)
	}

	return nil
}

// GetResult fetches the stored result for a round.
func (s *Store) GetResult(ctx context.Context, roundID string) (*RoundResult, error) {
	var payload []byte
	err := s.db.QueryRowContext(ctx, `
		SELECT payload FROM results WHERE round_id = ?
	`, roundID).Scan(&payload)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get result: %w", err)
	}

	var result RoundResult
	if err := json.Unmarshal(payload, &result); err != nil {
		return nil, fmt.Errorf("failed to unmarshal result: %w", err)
	}

	return &result, nil
}

// AppendEvent writes one entry to the lifecycle log.
func (s *Store) AppendEvent(ctx context.Context, event *Event) error {
	if event.TsEvent.IsZero() {
		event.TsEvent = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO events (event_id, event_type, ts_event, round_id, payload)
		VALUES (?, ?, ?, ?, ?)
	`, event.EventID, event.EventType, event.TsEvent.UTC(), event.RoundID, []byte(event.Payload))
	if err != nil {
		return fmt.Errorf("failed to append event: %w", err)
	}

	return nil
}

// ReadRecentEvents returns the latest events, newest first.
func (s *Store) ReadRecentEvents(ctx context.Context, limit int) ([]*Event, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT event_id, event_type, ts_event, round_id, payload
		FROM events ORDER BY ts_event DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to read events: %w", err)
	}
	defer rows.Close()

	var out []*Event
	for rows.Next() {
		var (
			e       Event
			payload []byte
		)
		if err := rows.Scan(&e.EventID, &e.EventType, &e.TsEvent, &e.RoundID, &payload); err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		e.Payload = payload
		out = append(out, &e)
	}

	return out, rows.Err()
}
