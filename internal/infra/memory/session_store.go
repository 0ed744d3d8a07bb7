package memory

import (
	"context"
	"sync"

	"quizhost-session-service/internal/domain"
	"quizhost-session-service/internal/engine"
)

// SessionStore is an in-memory implementation of engine.SessionStore, used
// when no Redis is configured and in tests.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[string]*engine.Session
	// activeByGame tracks the single active session per game; cleared by Save
	// once the session ends.
	activeByGame map[string]string
	// sessionByPlayer maps player ids to their session id.
	sessionByPlayer map[string]string
}

func NewSessionStore() *SessionStore {
	return &SessionStore{
		sessions:        make(map[string]*engine.Session),
		activeByGame:    make(map[string]string),
		sessionByPlayer: make(map[string]string),
	}
}

func (s *SessionStore) Create(_ context.Context, session *engine.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.sessions[session.ID()]; exists {
		return engine.ErrSessionIDExists
	}
	if _, active := s.activeByGame[session.GameID()]; active {
		return domain.ErrGameAlreadyActive
	}
	s.sessions[session.ID()] = session
	s.activeByGame[session.GameID()] = session.ID()
	return nil
}

func (s *SessionStore) Get(_ context.Context, sessionID string) (*engine.Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[sessionID]
	return session, ok
}

func (s *SessionStore) FindPlayer(_ context.Context, playerID string) (*engine.Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sessionID, ok := s.sessionByPlayer[playerID]
	if !ok {
		return nil, false
	}
	session, ok := s.sessions[sessionID]
	return session, ok
}

func (s *SessionStore) ActiveForGame(_ context.Context, gameID string) (*engine.Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sessionID, ok := s.activeByGame[gameID]
	if !ok {
		return nil, false
	}
	session, ok := s.sessions[sessionID]
	return session, ok
}

func (s *SessionStore) Save(_ context.Context, session *engine.Session) error {
	playerIDs := session.PlayerIDs()
	active := session.Active()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[session.ID()] = session
	for _, playerID := range playerIDs {
		s.sessionByPlayer[playerID] = session.ID()
	}
	if !active && s.activeByGame[session.GameID()] == session.ID() {
		delete(s.activeByGame, session.GameID())
	}
	return nil
}
