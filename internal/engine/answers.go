package engine

import (
	"context"
	"math"
	"time"

	"quizhost-session-service/internal/domain"
)

// SubmitAnswer records a player's answer set for the current question. The
// deadline is re-validated against the server clock at write time; client
// timers are never trusted. Re-submission before the deadline overwrites the
// previous set. For single and judgement questions only the last of the
// submitted texts is retained.
func (e *Engine) SubmitAnswer(ctx context.Context, playerID string, selectedTexts []string) error {
	session, err := e.playerSession(ctx, playerID)
	if err != nil {
		return err
	}
	if err := session.submit(playerID, selectedTexts, e.now()); err != nil {
		return err
	}
	return e.save(ctx, session)
}

// RevealAnswers returns the authoritative correct answer texts for the
// player's current question once its window has closed, finalizing scoring
// for that question as a side effect. While the window is open it fails with
// domain.ErrAnswersNotReady; players poll until it stops erroring.
func (e *Engine) RevealAnswers(ctx context.Context, playerID string) ([]string, error) {
	session, err := e.playerSession(ctx, playerID)
	if err != nil {
		return nil, err
	}
	texts, changed, err := session.reveal(e.now())
	if err != nil {
		return nil, err
	}
	if changed {
		if err := e.save(ctx, session); err != nil {
			return nil, err
		}
	}
	return texts, nil
}

func (s *Session) submit(playerID string, selectedTexts []string, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.players[playerID]
	if !ok {
		return domain.ErrPlayerNotFound
	}
	if s.ended {
		return domain.ErrSessionInactive
	}
	if s.position == -1 {
		return domain.ErrSessionNotStarted
	}
	if len(selectedTexts) == 0 {
		return domain.ErrEmptyAnswer
	}
	if s.windowClosedLocked(s.position, now) {
		return domain.ErrAnswerWindowClosed
	}

	question := s.questions[s.position]
	for _, text := range selectedTexts {
		if !question.HasOption(text) {
			return domain.ErrOptionNotFound
		}
	}
	if question.Kind != domain.KindMultiple {
		selectedTexts = selectedTexts[len(selectedTexts)-1:]
	}

	rec := s.recordLocked(p, s.position)
	rec.SelectedTexts = dedupe(selectedTexts)
	rec.AnsweredAt = now
	rec.Answered = true
	rec.ResponseSeconds = now.Sub(s.questionStartedAt).Seconds()
	return nil
}

func (s *Session) reveal(now time.Time) ([]string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.position == -1 {
		return nil, false, domain.ErrSessionNotStarted
	}
	if !s.windowClosedLocked(s.position, now) {
		return nil, false, domain.ErrAnswersNotReady
	}
	changed := s.finalizeQuestionLocked(s.position)
	return s.questions[s.position].CorrectTexts(), changed, nil
}

// speedMultiplier decreases linearly from 2.0 at an instant answer to 0.5 at
// the full duration, clamped to [0.5, 2.0] for late or out-of-range inputs.
func speedMultiplier(responseSeconds, durationSeconds float64) float64 {
	ratio := responseSeconds / durationSeconds
	if ratio > 1 {
		ratio = 1
	}
	if ratio < 0 {
		ratio = 0
	}
	m := 2 - 1.5*ratio
	if m < 0.5 {
		m = 0.5
	}
	if m > 2 {
		m = 2
	}
	return m
}

func scorePoints(basePoints int, responseSeconds, durationSeconds float64) int {
	return int(math.Round(float64(basePoints) * speedMultiplier(responseSeconds, durationSeconds)))
}

// sameAnswerSet compares two answer text sets ignoring order and duplicates.
func sameAnswerSet(selected, correct []string) bool {
	if len(selected) == 0 {
		return false
	}
	want := make(map[string]bool, len(correct))
	for _, text := range correct {
		want[text] = true
	}
	seen := make(map[string]bool, len(selected))
	for _, text := range selected {
		if !want[text] {
			return false
		}
		seen[text] = true
	}
	return len(seen) == len(want)
}

func dedupe(texts []string) []string {
	seen := make(map[string]bool, len(texts))
	out := texts[:0:0]
	for _, text := range texts {
		if !seen[text] {
			seen[text] = true
			out = append(out, text)
		}
	}
	return out
}
