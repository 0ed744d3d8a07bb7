package engine

import (
	"context"
	"time"

	"quizhost-session-service/internal/domain"
)

// AdvanceSession moves the session to its next question and opens that
// question's answer window. Advancing from position −1 opens question 0.
// Advance is a discrete state transition driven only by explicit calls; the
// passage of time alone never moves the pointer. Once the last question has
// been reached, further advances fail with domain.ErrNoMoreQuestions so the
// caller knows to end the session.
func (e *Engine) AdvanceSession(ctx context.Context, sessionID, requester string) (int, error) {
	session, err := e.session(ctx, sessionID)
	if err != nil {
		return 0, err
	}
	position, err := session.advance(requester, e.now())
	if err != nil {
		return 0, err
	}
	if err := e.save(ctx, session); err != nil {
		return 0, err
	}
	return position, nil
}

// CurrentQuestion returns the question at the session's current position for
// a joined player, without correctness flags. Remaining time is computed by
// the caller as max(0, duration − (now − startedAt)); the engine pushes no
// ticks.
func (e *Engine) CurrentQuestion(ctx context.Context, playerID string) (domain.QuestionView, error) {
	session, err := e.playerSession(ctx, playerID)
	if err != nil {
		return domain.QuestionView{}, err
	}
	return session.currentQuestion()
}

func (s *Session) advance(requester string, now time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ownerID != requester {
		return 0, domain.ErrNotOwner
	}
	if s.ended {
		return 0, domain.ErrSessionAlreadyEnded
	}
	if s.position >= len(s.questions)-1 {
		return 0, domain.ErrNoMoreQuestions
	}
	if s.position >= 0 {
		// Leaving a question closes its window regardless of the timer.
		s.finalizeQuestionLocked(s.position)
	}
	s.position++
	s.questionStartedAt = now
	return s.position, nil
}

func (s *Session) currentQuestion() (domain.QuestionView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ended {
		return domain.QuestionView{}, domain.ErrSessionInactive
	}
	if s.position == -1 {
		return domain.QuestionView{}, domain.ErrSessionNotStarted
	}
	question := s.questions[s.position]
	options := make([]string, len(question.Options))
	for i, opt := range question.Options {
		options[i] = opt.Text
	}
	return domain.QuestionView{
		Index:           s.position,
		Text:            question.Text,
		Kind:            question.Kind,
		DurationSeconds: question.DurationSeconds,
		Points:          question.Points,
		Options:         options,
		MediaURL:        question.MediaURL,
		StartedAt:       s.questionStartedAt,
	}, nil
}
