package chat

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/openorder-ai/erp-chatbot/internal/model/chat"
)

var ErrSessionNotFound = errors.New("session not found")

type sessionState struct {
	session  chat.Session
	messages []chat.Message
	lastItem string
}

// Service is the in-memory session store. Unknown session ids are created on
// first touch, matching the behavior the widget's backend always had; a
// background sweep evicts sessions idle past the configured timeout.
type Service struct {
	mu       sync.RWMutex
	sessions map[string]*sessionState
}

// NewService bootstraps the in-memory chat service.
func NewService() *Service {
	return &Service{
		sessions: make(map[string]*sessionState),
	}
}

// StartSession provisions a fresh anonymous session.
func (s *Service) StartSession(_ context.Context) (chat.Session, error) {
	now := time.Now().UTC()
	session := chat.Session{
		ID:           uuid.NewString(),
		CreatedAt:    now,
		LastActivity: now,
	}

	s.mu.Lock()
	s.sessions[session.ID] = &sessionState{
		session:  session,
		messages: make([]chat.Message, 0, 16),
	}
	s.mu.Unlock()

	return session, nil
}

// Touch returns the session for the id, creating it when absent, and bumps
// its activity timestamp. An empty id mints a new session.
func (s *Service) Touch(_ context.Context, sessionID string) chat.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.touchLocked(sessionID).session
}

func (s *Service) touchLocked(sessionID string) *sessionState {
	now := time.Now().UTC()

	if sessionID != "" {
		if state, ok := s.sessions[sessionID]; ok {
			state.session.LastActivity = now
			return state
		}
	}

	id := sessionID
	if id == "" {
		id = uuid.NewString()
	}

	state := &sessionState{
		session: chat.Session{
			ID:           id,
			CreatedAt:    now,
			LastActivity: now,
		},
		messages: make([]chat.Message, 0, 16),
	}
	s.sessions[id] = state
	return state
}

// GetSession retrieves a session by identifier without creating it.
func (s *Service) GetSession(_ context.Context, sessionID string) (chat.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	state, ok := s.sessions[sessionID]
	if !ok {
		return chat.Session{}, ErrSessionNotFound
	}
	return state.session, nil
}

// SaveMessage appends a message to the session transcript, creating the
// session if needed.
func (s *Service) SaveMessage(_ context.Context, message chat.Message) error {
	if message.SessionID == "" {
		return ErrSessionNotFound
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	state := s.touchLocked(message.SessionID)

	message.ID = uuid.NewString()
	if message.CreatedAt.IsZero() {
		message.CreatedAt = time.Now().UTC()
	}

	state.messages = append(state.messages, message)
	return nil
}

// LoadTranscript returns a copy of the stored messages for the session.
func (s *Service) LoadTranscript(_ context.Context, sessionID string) ([]chat.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	state, ok := s.sessions[sessionID]
	if !ok {
		return nil, ErrSessionNotFound
	}

	copied := make([]chat.Message, len(state.messages))
	copy(copied, state.messages)
	return copied, nil
}

// LastItem returns the item number most recently referenced in the session.
func (s *Service) LastItem(_ context.Context, sessionID string) string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if state, ok := s.sessions[sessionID]; ok {
		return state.lastItem
	}
	return ""
}

// SetLastItem records the item number the conversation is currently about.
func (s *Service) SetLastItem(_ context.Context, sessionID, item string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if state, ok := s.sessions[sessionID]; ok {
		state.lastItem = item
	}
}

// Cleanup removes sessions idle longer than timeout and returns the count.
func (s *Service) Cleanup(timeout time.Duration) int {
	cutoff := time.Now().UTC().Add(-timeout)

	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, state := range s.sessions {
		if state.session.LastActivity.Before(cutoff) {
			delete(s.sessions, id)
			removed++
		}
	}
	return removed
}

// RunCleanup sweeps expired sessions on the given interval until ctx ends.
func (s *Service) RunCleanup(ctx context.Context, interval, timeout time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if removed := s.Cleanup(timeout); removed > 0 {
				log.Printf("[cleanup] removed %d expired sessions", removed)
			}
		}
	}
}
