// Package store persists the transcript of every processed utterance in
// PostgreSQL.
package store

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"crystal/internal/discourse"
)

//go:embed schema.sql
var schemaSQL string

// Store represents the database connection and operations.
type Store struct {
	db *sqlx.DB
}

// Turn is one processed utterance.
type Turn struct {
	TurnID         string         `db:"turn_id" json:"turn_id"`
	SessionID      string         `db:"session_id" json:"session_id"`
	Utterance      string         `db:"utterance" json:"utterance"`
	Tokens         pq.StringArray `db:"tokens" json:"tokens"`
	Outcome        string         `db:"outcome" json:"outcome"`
	Result         string         `db:"result" json:"result"`
	ContextSummary string         `db:"context_summary" json:"context_summary"`
	CreatedAt      time.Time      `db:"created_at" json:"created_at"`
}

// SessionSummary aggregates the turns of one session.
type SessionSummary struct {
	SessionID  string    `db:"session_id" json:"session_id"`
	Turns      int       `db:"turns" json:"turns"`
	StartedAt  time.Time `db:"started_at" json:"started_at"`
	LastTurnAt time.Time `db:"last_turn_at" json:"last_turn_at"`
}

// NewStore creates a new Store instance and opens a database connection.
func NewStore(connString string) (*Store, error) {
	db, err := sqlx.Connect("postgres", connString)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return &Store{db: db}, nil
}

// NewStoreFromDB constructs a Store from an existing *sql.DB. Useful for tests.
func NewStoreFromDB(db *sql.DB) *Store {
	return &Store{db: sqlx.NewDb(db, "postgres")}
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// InitDB creates the transcript schema if it does not exist.
func (s *Store) InitDB(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("failed to execute init SQL: %w", err)
	}
	return nil
}

// TurnFromOutcome builds the transcript row for an utterance of a session.
func TurnFromOutcome(sessionID, utterance string, out *discourse.Outcome) *Turn {
	turn := &Turn{
		SessionID: sessionID,
		Utterance: utterance,
		Tokens:    pq.StringArray(out.Tokens),
		Outcome:   string(out.Kind),
		Result:    out.Text,
	}
	if turn.Tokens == nil {
		turn.Tokens = pq.StringArray{}
	}
	if out.Context != nil {
		turn.ContextSummary = out.Context.Summary()
	}
	return turn
}

const insertTurnSQL = `INSERT INTO crystal.turns
         (turn_id, session_id, utterance, tokens, outcome, result, context_summary, created_at)
         VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

// InsertTurn stores turn, assigning its id and timestamp when unset.
func (s *Store) InsertTurn(ctx context.Context, turn *Turn) error {
	if turn.TurnID == "" {
		turn.TurnID = uuid.New().String()
	}
	if turn.CreatedAt.IsZero() {
		turn.CreatedAt = time.Now().UTC()
	}
	if turn.Tokens == nil {
		turn.Tokens = pq.StringArray{}
	}

	_, err := s.db.ExecContext(ctx, insertTurnSQL,
		turn.TurnID, turn.SessionID, turn.Utterance, turn.Tokens,
		turn.Outcome, turn.Result, turn.ContextSummary, turn.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert turn: %w", err)
	}
	return nil
}

const listTurnsSQL = `SELECT turn_id::text AS turn_id, session_id, utterance, tokens, outcome, result, context_summary, created_at
         FROM crystal.turns
         WHERE session_id = $1
         ORDER BY created_at ASC`

// ListTurns returns the turns of a session ordered by creation time.
func (s *Store) ListTurns(ctx context.Context, sessionID string) ([]Turn, error) {
	var turns []Turn
	if err := s.db.SelectContext(ctx, &turns, listTurnsSQL, sessionID); err != nil {
		return nil, fmt.Errorf("failed to list turns: %w", err)
	}
	return turns, nil
}

const listSessionsSQL = `SELECT session_id, COUNT(*) AS turns, MIN(created_at) AS started_at, MAX(created_at) AS last_turn_at
         FROM crystal.turns
         GROUP BY session_id
         ORDER BY last_turn_at DESC`

// ListSessions returns one summary per recorded session, most recent first.
func (s *Store) ListSessions(ctx context.Context) ([]SessionSummary, error) {
	var sessions []SessionSummary
	if err := s.db.SelectContext(ctx, &sessions, listSessionsSQL); err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	return sessions, nil
}

// DeleteSession removes every turn of a session and returns how many were
// deleted.
func (s *Store) DeleteSession(ctx context.Context, sessionID string) (int64, error) {
	result, err := s.db.ExecContext(ctx, `DELETE FROM crystal.turns WHERE session_id = $1`, sessionID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete session: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return n, nil
}
