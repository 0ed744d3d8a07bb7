package redis

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"quizhost-session-service/internal/domain"
	"quizhost-session-service/internal/engine"
	"github.com/redis/go-redis/v9"
)

// SessionStore is a Redis-backed implementation of engine.SessionStore.
// Notes:
//   - Live sessions are kept in a local map so the per-session mutex keeps
//     working in-process; Redis holds full JSON snapshots so sessions survive
//     a process restart.
//   - The game-active marker is claimed with SETNX, which makes Create the
//     atomicity point for the one-active-session-per-game invariant.
//   - For true multi-instance operation you'd pair this with a shared lock or
//     route all traffic for one session to one instance.
type SessionStore struct {
	client *redis.Client
	ttl    time.Duration

	mu       sync.RWMutex
	sessions map[string]*engine.Session
}

func NewSessionStore(client *redis.Client, ttl time.Duration) *SessionStore {
	return &SessionStore{
		client:   client,
		ttl:      ttl,
		sessions: make(map[string]*engine.Session),
	}
}

func (s *SessionStore) Create(ctx context.Context, session *engine.Session) error {
	ok, err := s.client.SetNX(ctx, s.sessionKey(session.ID()), s.marshal(session), s.ttl).Result()
	if err != nil {
		return err
	}
	if !ok {
		return engine.ErrSessionIDExists
	}

	ok, err = s.client.SetNX(ctx, s.gameKey(session.GameID()), session.ID(), s.ttl).Result()
	if err != nil {
		return err
	}
	if !ok {
		_ = s.client.Del(ctx, s.sessionKey(session.ID())).Err()
		return domain.ErrGameAlreadyActive
	}

	s.mu.Lock()
	s.sessions[session.ID()] = session
	s.mu.Unlock()
	return nil
}

func (s *SessionStore) Get(ctx context.Context, sessionID string) (*engine.Session, bool) {
	s.mu.RLock()
	session, ok := s.sessions[sessionID]
	s.mu.RUnlock()
	if ok {
		return session, true
	}
	return s.restore(ctx, sessionID)
}

func (s *SessionStore) FindPlayer(ctx context.Context, playerID string) (*engine.Session, bool) {
	sessionID, err := s.client.Get(ctx, s.playerKey(playerID)).Result()
	if err != nil {
		return nil, false
	}
	return s.Get(ctx, sessionID)
}

func (s *SessionStore) ActiveForGame(ctx context.Context, gameID string) (*engine.Session, bool) {
	sessionID, err := s.client.Get(ctx, s.gameKey(gameID)).Result()
	if err != nil {
		return nil, false
	}
	return s.Get(ctx, sessionID)
}

func (s *SessionStore) Save(ctx context.Context, session *engine.Session) error {
	snap := session.Snapshot()
	data, err := json.Marshal(snap)
	if err != nil {
		return err
	}

	pipe := s.client.Pipeline()
	pipe.Set(ctx, s.sessionKey(snap.ID), data, s.ttl)
	for _, p := range snap.Players {
		pipe.Set(ctx, s.playerKey(p.ID), snap.ID, s.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return err
	}

	if snap.Ended {
		// Release the game for a fresh session, but only if the marker still
		// points at us.
		if current, err := s.client.Get(ctx, s.gameKey(snap.GameID)).Result(); err == nil && current == snap.ID {
			_ = s.client.Del(ctx, s.gameKey(snap.GameID)).Err()
		}
	}

	s.mu.Lock()
	s.sessions[snap.ID] = session
	s.mu.Unlock()
	return nil
}

// restore rebuilds a live session from its Redis snapshot after a cache miss
// (typically a process restart).
func (s *SessionStore) restore(ctx context.Context, sessionID string) (*engine.Session, bool) {
	data, err := s.client.Get(ctx, s.sessionKey(sessionID)).Bytes()
	if err != nil {
		return nil, false
	}
	var snap domain.SessionSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		log.Printf("corrupt session snapshot %s: %v", sessionID, err)
		return nil, false
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	// Another goroutine may have restored it while we were reading.
	if session, ok := s.sessions[sessionID]; ok {
		return session, true
	}
	session := engine.RestoreSession(snap)
	s.sessions[sessionID] = session
	return session, true
}

func (s *SessionStore) marshal(session *engine.Session) []byte {
	data, _ := json.Marshal(session.Snapshot())
	return data
}

func (s *SessionStore) sessionKey(sessionID string) string {
	return "session:" + sessionID
}

func (s *SessionStore) playerKey(playerID string) string {
	return "session:player:" + playerID
}

func (s *SessionStore) gameKey(gameID string) string {
	return "session:game:" + gameID + ":active"
}
