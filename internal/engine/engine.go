// Package engine implements the game session engine: session lifecycle,
// question progression, answer intake with speed-weighted scoring, and
// results aggregation. It is purely reactive; all time-sensitive behavior is
// discovered by clients re-polling, never by a server-side scheduler.
package engine

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"quizhost-session-service/internal/domain"
)

// ErrSessionIDExists is returned by SessionStore.Create on an id collision.
// The engine retries with a fresh id; callers never see it.
var ErrSessionIDExists = errors.New("session id already exists")

// SessionStore abstracts how sessions are persisted (in-memory, Redis, etc).
// Implementations must make Create atomic with respect to the
// one-active-session-per-game check, and must make Save durable before
// returning.
type SessionStore interface {
	// Create stores a new session. It fails with domain.ErrGameAlreadyActive
	// if the session's game already has an active session, or with
	// ErrSessionIDExists if the id is taken.
	Create(ctx context.Context, session *Session) error
	// Get returns the session with the given id.
	Get(ctx context.Context, sessionID string) (*Session, bool)
	// FindPlayer resolves a player id to its session.
	FindPlayer(ctx context.Context, playerID string) (*Session, bool)
	// ActiveForGame returns the game's active session, if any.
	ActiveForGame(ctx context.Context, gameID string) (*Session, bool)
	// Save persists the session's current state, including players and
	// answer records. Called after every mutation, before the response is
	// returned to the caller.
	Save(ctx context.Context, session *Session) error
}

// GameCatalog loads game content (from cache/backing store). Read-only.
type GameCatalog interface {
	GetGame(ctx context.Context, gameID string) (domain.Game, error)
}

// Engine contains the session engine use cases.
type Engine struct {
	store   SessionStore
	catalog GameCatalog
	now     func() time.Time

	rndMu sync.Mutex
	rnd   *rand.Rand
}

func New(store SessionStore, catalog GameCatalog) *Engine {
	return NewWithClock(store, catalog, time.Now)
}

// NewWithClock allows deterministic timestamps in tests.
func NewWithClock(store SessionStore, catalog GameCatalog, now func() time.Time) *Engine {
	return &Engine{
		store:   store,
		catalog: catalog,
		now:     now,
		rnd:     rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// newSessionID produces a short numeric join code.
func (e *Engine) newSessionID() string {
	e.rndMu.Lock()
	defer e.rndMu.Unlock()
	return fmt.Sprintf("%06d", e.rnd.Intn(900000)+100000)
}

// newPlayerID produces a player token, deliberately unlike a join code.
func (e *Engine) newPlayerID() string {
	e.rndMu.Lock()
	defer e.rndMu.Unlock()
	return fmt.Sprintf("p%08x%08x", e.rnd.Uint32(), e.rnd.Uint32())
}

func (e *Engine) session(ctx context.Context, sessionID string) (*Session, error) {
	session, ok := e.store.Get(ctx, sessionID)
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return session, nil
}

func (e *Engine) playerSession(ctx context.Context, playerID string) (*Session, error) {
	session, ok := e.store.FindPlayer(ctx, playerID)
	if !ok {
		return nil, domain.ErrPlayerNotFound
	}
	return session, nil
}

func (e *Engine) save(ctx context.Context, session *Session) error {
	if err := e.store.Save(ctx, session); err != nil {
		return fmt.Errorf("persist session %s: %w", session.ID(), err)
	}
	return nil
}
