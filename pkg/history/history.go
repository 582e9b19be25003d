// Package history defines the conversation history model and the Store
// interface its drivers implement. A session groups the messages of one
// chat conversation; drivers persist them in memory, SQLite, or Postgres.
package history

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Session is one chat conversation.
type Session struct {
	// ID is the session's UUID.
	ID string

	// Title is a short human-readable label, usually derived from the
	// first prompt of the conversation.
	Title string

	// CreatedAt is when the session was started, in UTC.
	CreatedAt time.Time
}

// Message is a single turn inside a session.
type Message struct {
	// ID is assigned by the store on append.
	ID int64

	// SessionID is the UUID of the owning session.
	SessionID string

	// Role is "user" or "assistant".
	Role string

	// Content is the full text of the turn. For assistant turns that
	// failed mid-stream this holds the partial text plus the error
	// sentinel, exactly as it was shown to the user.
	Content string

	// CreatedAt is when the message was recorded, in UTC.
	CreatedAt time.Time
}

// NewSession creates a session with a fresh UUID.
func NewSession(title string) *Session {
	return &Session{
		ID:        uuid.NewString(),
		Title:     title,
		CreatedAt: time.Now().UTC(),
	}
}

// Store is the interface history drivers implement.
type Store interface {
	// CreateSession persists a new session. Creating a session that
	// already exists is an error.
	CreateSession(ctx context.Context, session *Session) error

	// AppendMessage appends a message to its session. The session must
	// already exist.
	AppendMessage(ctx context.Context, msg *Message) error

	// Messages returns all messages of a session in append order.
	Messages(ctx context.Context, sessionID string) ([]*Message, error)

	// Sessions returns all sessions, newest first.
	Sessions(ctx context.Context) ([]*Session, error)

	// Close closes the store and releases any resources.
	Close() error
}
