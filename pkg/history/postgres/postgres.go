// Package postgres provides a PostgreSQL-backed history store.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // register the pgx PostgreSQL driver as "pgx"

	"github.com/parleylabs/parley/pkg/history"
)

const schema = `
CREATE TABLE IF NOT EXISTS sessions (
	id         TEXT PRIMARY KEY,
	title      TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS messages (
	id         BIGSERIAL PRIMARY KEY,
	session_id TEXT NOT NULL REFERENCES sessions(id),
	role       TEXT NOT NULL,
	content    TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_messages_session ON messages(session_id);
`

// Store implements history.Store using PostgreSQL via pgx.
type Store struct {
	db *sql.DB
}

// NewStore creates a new PostgreSQL-backed history store.
// The connStr is a PostgreSQL connection string, e.g.
// "host=localhost port=5432 user=parley dbname=parley sslmode=disable"
// or a connection URI like "postgres://parley@localhost:5432/parley?sslmode=disable".
func NewStore(ctx context.Context, connStr string) (*Store, error) {
	db, err := sql.Open("pgx", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Verify the connection is reachable
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &Store{db: db}, nil
}

// CreateSession persists a new session.
func (s *Store) CreateSession(ctx context.Context, session *history.Session) error {
	if session == nil {
		return errors.New("cannot store nil session")
	}
	if session.ID == "" {
		return errors.New("session ID is required")
	}

	_, err := s.db.ExecContext(ctx,
		"INSERT INTO sessions (id, title, created_at) VALUES ($1, $2, $3)",
		session.ID, session.Title, session.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("inserting session: %w", err)
	}

	return nil
}

// AppendMessage appends a message to its session.
func (s *Store) AppendMessage(ctx context.Context, msg *history.Message) error {
	if msg == nil {
		return errors.New("cannot store nil message")
	}

	if err := s.sessionExists(ctx, msg.SessionID); err != nil {
		return err
	}

	createdAt := msg.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	err := s.db.QueryRowContext(ctx,
		"INSERT INTO messages (session_id, role, content, created_at) VALUES ($1, $2, $3, $4) RETURNING id",
		msg.SessionID, msg.Role, msg.Content, createdAt.UTC(),
	).Scan(&msg.ID)
	if err != nil {
		return fmt.Errorf("inserting message: %w", err)
	}

	return nil
}

// Messages returns all messages of a session in append order.
func (s *Store) Messages(ctx context.Context, sessionID string) ([]*history.Message, error) {
	if err := s.sessionExists(ctx, sessionID); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT id, session_id, role, content, created_at FROM messages WHERE session_id = $1 ORDER BY id",
		sessionID,
	)
	if err != nil {
		return nil, fmt.Errorf("querying messages: %w", err)
	}
	defer rows.Close()

	var msgs []*history.Message
	for rows.Next() {
		msg := &history.Message{}
		if err := rows.Scan(&msg.ID, &msg.SessionID, &msg.Role, &msg.Content, &msg.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning message: %w", err)
		}
		msgs = append(msgs, msg)
	}

	return msgs, rows.Err()
}

// Sessions returns all sessions, newest first.
func (s *Store) Sessions(ctx context.Context) ([]*history.Session, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, title, created_at FROM sessions ORDER BY created_at DESC, id DESC",
	)
	if err != nil {
		return nil, fmt.Errorf("querying sessions: %w", err)
	}
	defer rows.Close()

	var sessions []*history.Session
	for rows.Next() {
		session := &history.Session{}
		if err := rows.Scan(&session.ID, &session.Title, &session.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning session: %w", err)
		}
		sessions = append(sessions, session)
	}

	return sessions, rows.Err()
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) sessionExists(ctx context.Context, sessionID string) error {
	var one int
	err := s.db.QueryRowContext(ctx, "SELECT 1 FROM sessions WHERE id = $1", sessionID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return history.NotFoundError{SessionID: sessionID}
	}
	if err != nil {
		return fmt.Errorf("checking session: %w", err)
	}

	return nil
}
