package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"quizhost-session-service/internal/domain"
)

const createRetries = 5

// StartSession snapshots the game's question list and creates a new session
// at position −1. Only the game owner may start one, and a game can have at
// most one active session at a time; the store's Create enforces the latter
// atomically.
func (e *Engine) StartSession(ctx context.Context, gameID, requester string) (string, error) {
	game, err := e.catalog.GetGame(ctx, gameID)
	if err != nil {
		if domain.IsInputError(err) {
			return "", err
		}
		return "", fmt.Errorf("load game %s: %w", gameID, err)
	}
	if game.OwnerID != requester {
		return "", domain.ErrNotOwner
	}
	if len(game.Questions) == 0 {
		return "", domain.NewInputError("game has no questions")
	}
	for i, q := range game.Questions {
		if err := q.Validate(); err != nil {
			return "", domain.NewInputError(fmt.Sprintf("question %d: %v", i, err))
		}
	}

	now := e.now()
	for attempt := 0; attempt < createRetries; attempt++ {
		session := newSession(e.newSessionID(), game, now)
		err := e.store.Create(ctx, session)
		if err == nil {
			return session.ID(), nil
		}
		if errors.Is(err, ErrSessionIDExists) {
			continue
		}
		if domain.IsInputError(err) {
			return "", err
		}
		return "", fmt.Errorf("create session for game %s: %w", gameID, err)
	}
	return "", fmt.Errorf("could not allocate a session id for game %s", gameID)
}

// EndSession marks the session ended and finalizes scoring for every reached
// question. Ending is terminal and wins any race with an in-flight advance.
func (e *Engine) EndSession(ctx context.Context, sessionID, requester string) error {
	session, err := e.session(ctx, sessionID)
	if err != nil {
		return err
	}
	if err := session.end(requester); err != nil {
		return err
	}
	return e.save(ctx, session)
}

// JoinSession creates a player in a session that has not yet started its
// first question, and returns the generated player id.
func (e *Engine) JoinSession(ctx context.Context, sessionID, displayName string) (string, error) {
	session, err := e.session(ctx, sessionID)
	if err != nil {
		return "", err
	}
	displayName = strings.TrimSpace(displayName)
	if displayName == "" {
		return "", domain.NewInputError("display name must not be empty")
	}
	playerID := e.newPlayerID()
	if err := session.join(playerID, displayName, e.now()); err != nil {
		return "", err
	}
	if err := e.save(ctx, session); err != nil {
		return "", err
	}
	return playerID, nil
}

func (s *Session) end(requester string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ownerID != requester {
		return domain.ErrNotOwner
	}
	if s.ended {
		return domain.ErrSessionAlreadyEnded
	}
	s.ended = true
	// Freeze and score everything reached so far, current question included.
	for index := 0; index <= s.position && index < len(s.questions); index++ {
		s.finalizeQuestionLocked(index)
	}
	return nil
}

func (s *Session) join(playerID, displayName string, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ended {
		return domain.ErrSessionInactive
	}
	if s.position != -1 {
		return domain.ErrSessionAlreadyStarted
	}
	s.players[playerID] = &player{
		id:          playerID,
		displayName: displayName,
		joinedAt:    now,
		answers:     make([]*domain.AnswerRecord, len(s.questions)),
	}
	s.joinOrder = append(s.joinOrder, playerID)
	return nil
}
