// Package inmemory provides a map-backed history store for tests and
// throwaway sessions. Nothing survives process exit.
package inmemory

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/parleylabs/parley/pkg/history"
)

// Store implements history.Store using in-memory maps.
type Store struct {
	// mu guards sessions and messages
	mu sync.RWMutex

	// sessions maps session ID to session
	sessions map[string]*history.Session

	// messages maps session ID to that session's messages in append order
	messages map[string][]*history.Message

	// nextID is the next message ID to assign
	nextID int64
}

// NewStore creates a new in-memory history store.
func NewStore() *Store {
	return &Store{
		sessions: make(map[string]*history.Session),
		messages: make(map[string][]*history.Message),
		nextID:   1,
	}
}

// CreateSession persists a new session.
func (s *Store) CreateSession(_ context.Context, session *history.Session) error {
	if session == nil {
		return errors.New("cannot store nil session")
	}
	if session.ID == "" {
		return errors.New("session ID is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[session.ID]; ok {
		return fmt.Errorf("session already exists: %s", session.ID)
	}

	copied := *session
	s.sessions[session.ID] = &copied
	return nil
}

// AppendMessage appends a message to its session.
func (s *Store) AppendMessage(_ context.Context, msg *history.Message) error {
	if msg == nil {
		return errors.New("cannot store nil message")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[msg.SessionID]; !ok {
		return history.NotFoundError{SessionID: msg.SessionID}
	}

	copied := *msg
	copied.ID = s.nextID
	s.nextID++
	if copied.CreatedAt.IsZero() {
		copied.CreatedAt = time.Now().UTC()
	}

	s.messages[msg.SessionID] = append(s.messages[msg.SessionID], &copied)
	msg.ID = copied.ID
	return nil
}

// Messages returns all messages of a session in append order.
func (s *Store) Messages(_ context.Context, sessionID string) ([]*history.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.sessions[sessionID]; !ok {
		return nil, history.NotFoundError{SessionID: sessionID}
	}

	msgs := s.messages[sessionID]
	result := make([]*history.Message, len(msgs))
	copy(result, msgs)
	return result, nil
}

// Sessions returns all sessions, newest first.
func (s *Store) Sessions(_ context.Context) ([]*history.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*history.Session, 0, len(s.sessions))
	for _, session := range s.sessions {
		result = append(result, session)
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].ID > result[j].ID
		}
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})

	return result, nil
}

// Count returns the number of sessions in the store.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Close is a no-op for the in-memory store.
func (s *Store) Close() error {
	return nil
}
