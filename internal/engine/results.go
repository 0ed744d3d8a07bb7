package engine

import (
	"context"
	"sort"
	"time"

	"quizhost-session-service/internal/domain"
)

// SessionStatus is the admin-facing progression view. Owner-only.
func (e *Engine) SessionStatus(ctx context.Context, sessionID, requester string) (domain.SessionStatus, error) {
	session, err := e.session(ctx, sessionID)
	if err != nil {
		return domain.SessionStatus{}, err
	}
	return session.status(requester)
}

// SessionResults ranks players by total points, tie-broken by lower average
// response time. It is safe to call mid-session (outcomes cover only the
// questions whose windows have closed) and after ending (the frozen, complete
// view). Owner-only.
func (e *Engine) SessionResults(ctx context.Context, sessionID, requester string) (domain.SessionResults, error) {
	session, err := e.session(ctx, sessionID)
	if err != nil {
		return domain.SessionResults{}, err
	}
	results, changed, err := session.results(requester, e.now())
	if err != nil {
		return domain.SessionResults{}, err
	}
	if changed {
		if err := e.save(ctx, session); err != nil {
			return domain.SessionResults{}, err
		}
	}
	return results, nil
}

// PlayerResults returns one player's scored outcomes, in question order.
func (e *Engine) PlayerResults(ctx context.Context, playerID string) ([]domain.QuestionOutcome, error) {
	session, err := e.playerSession(ctx, playerID)
	if err != nil {
		return nil, err
	}
	outcomes, changed, err := session.playerOutcomes(playerID, e.now())
	if err != nil {
		return nil, err
	}
	if changed {
		if err := e.save(ctx, session); err != nil {
			return nil, err
		}
	}
	return outcomes, nil
}

func (s *Session) status(requester string) (domain.SessionStatus, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ownerID != requester {
		return domain.SessionStatus{}, domain.ErrNotOwner
	}
	status := domain.SessionStatus{
		SessionID:     s.id,
		GameID:        s.gameID,
		Active:        !s.ended,
		Position:      s.position,
		QuestionCount: len(s.questions),
		PlayerCount:   len(s.players),
	}
	if s.position >= 0 {
		startedAt := s.questionStartedAt
		status.QuestionStartedAt = &startedAt
	}
	return status, nil
}

func (s *Session) results(requester string, now time.Time) (domain.SessionResults, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ownerID != requester {
		return domain.SessionResults{}, false, domain.ErrNotOwner
	}
	changed := s.finalizeClosedLocked(now)

	standings := make([]domain.PlayerStanding, 0, len(s.joinOrder))
	for _, id := range s.joinOrder {
		p := s.players[id]
		standing := domain.PlayerStanding{
			PlayerID:    p.id,
			DisplayName: p.displayName,
			Outcomes:    s.outcomesLocked(p, now),
		}
		total := 0.0
		for _, outcome := range standing.Outcomes {
			standing.TotalPoints += outcome.Points
			total += outcome.ResponseSeconds
		}
		if len(standing.Outcomes) > 0 {
			standing.AvgResponseSeconds = total / float64(len(standing.Outcomes))
		}
		standings = append(standings, standing)
	}

	sort.Slice(standings, func(i, j int) bool {
		if standings[i].TotalPoints != standings[j].TotalPoints {
			return standings[i].TotalPoints > standings[j].TotalPoints
		}
		if standings[i].AvgResponseSeconds != standings[j].AvgResponseSeconds {
			return standings[i].AvgResponseSeconds < standings[j].AvgResponseSeconds
		}
		if standings[i].DisplayName != standings[j].DisplayName {
			return standings[i].DisplayName < standings[j].DisplayName
		}
		return standings[i].PlayerID < standings[j].PlayerID
	})

	return domain.SessionResults{
		SessionID:   s.id,
		Ended:       s.ended,
		Standings:   standings,
		GeneratedAt: now,
	}, changed, nil
}

func (s *Session) playerOutcomes(playerID string, now time.Time) ([]domain.QuestionOutcome, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.players[playerID]
	if !ok {
		return nil, false, domain.ErrPlayerNotFound
	}
	changed := s.finalizeClosedLocked(now)
	return s.outcomesLocked(p, now), changed, nil
}

// outcomesLocked projects the player's scored records for every reached
// question whose window has closed. The still-open current question is
// excluded so partial views never expose unscored state.
func (s *Session) outcomesLocked(p *player, now time.Time) []domain.QuestionOutcome {
	outcomes := make([]domain.QuestionOutcome, 0, s.position+1)
	for index := 0; index <= s.position && index < len(s.questions); index++ {
		if !s.windowClosedLocked(index, now) {
			break
		}
		rec := s.recordLocked(p, index)
		outcomes = append(outcomes, domain.QuestionOutcome{
			QuestionIndex:   index,
			Answered:        rec.Answered,
			Correct:         rec.Correct,
			Points:          rec.Points,
			ResponseSeconds: rec.ResponseSeconds,
		})
	}
	return outcomes
}
