package engine

import (
	"sync"
	"time"

	"quizhost-session-service/internal/domain"
)

// Session is the live state of one running game: the frozen question list,
// the progression pointer, and every player's answer records. All access goes
// through its mutex; the engine methods below it hold the lock for the whole
// read-validate-write step so deadline checks and scoring never interleave.
type Session struct {
	mu sync.Mutex

	id      string
	gameID  string
	ownerID string
	// questions is snapshotted at start time; later edits to the game do not
	// retroactively change a running session.
	questions         []domain.Question
	position          int
	questionStartedAt time.Time
	ended             bool
	createdAt         time.Time

	players   map[string]*player
	joinOrder []string
}

type player struct {
	id          string
	displayName string
	joinedAt    time.Time
	// answers has one slot per question, allocated lazily.
	answers []*domain.AnswerRecord
}

func newSession(id string, game domain.Game, now time.Time) *Session {
	questions := make([]domain.Question, len(game.Questions))
	copy(questions, game.Questions)
	return &Session{
		id:        id,
		gameID:    game.ID,
		ownerID:   game.OwnerID,
		questions: questions,
		position:  -1,
		createdAt: now,
		players:   make(map[string]*player),
	}
}

// ID returns the session's join code.
func (s *Session) ID() string { return s.id }

// GameID returns the id of the game this session was started from.
func (s *Session) GameID() string { return s.gameID }

// Active reports whether the session has not been ended yet.
func (s *Session) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.ended
}

// PlayerIDs returns the ids of all joined players, in join order.
func (s *Session) PlayerIDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]string, len(s.joinOrder))
	copy(ids, s.joinOrder)
	return ids
}

// Snapshot captures the full session state for persistence.
func (s *Session) Snapshot() domain.SessionSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := domain.SessionSnapshot{
		ID:                s.id,
		GameID:            s.gameID,
		OwnerID:           s.ownerID,
		Questions:         append([]domain.Question(nil), s.questions...),
		Position:          s.position,
		QuestionStartedAt: s.questionStartedAt,
		Ended:             s.ended,
		CreatedAt:         s.createdAt,
		Players:           make([]domain.PlayerSnapshot, 0, len(s.joinOrder)),
	}
	for _, id := range s.joinOrder {
		p := s.players[id]
		ps := domain.PlayerSnapshot{
			ID:          p.id,
			DisplayName: p.displayName,
			JoinedAt:    p.joinedAt,
			Answers:     make([]domain.AnswerRecord, len(p.answers)),
		}
		for i, rec := range p.answers {
			if rec != nil {
				ps.Answers[i] = *rec
				ps.Answers[i].SelectedTexts = append([]string(nil), rec.SelectedTexts...)
			}
		}
		snap.Players = append(snap.Players, ps)
	}
	return snap
}

// RestoreSession rebuilds a live session from a persisted snapshot.
func RestoreSession(snap domain.SessionSnapshot) *Session {
	s := &Session{
		id:                snap.ID,
		gameID:            snap.GameID,
		ownerID:           snap.OwnerID,
		questions:         append([]domain.Question(nil), snap.Questions...),
		position:          snap.Position,
		questionStartedAt: snap.QuestionStartedAt,
		ended:             snap.Ended,
		createdAt:         snap.CreatedAt,
		players:           make(map[string]*player, len(snap.Players)),
	}
	for _, ps := range snap.Players {
		p := &player{
			id:          ps.ID,
			displayName: ps.DisplayName,
			joinedAt:    ps.JoinedAt,
			answers:     make([]*domain.AnswerRecord, len(s.questions)),
		}
		for i := range ps.Answers {
			if i >= len(p.answers) {
				break
			}
			if ps.Answers[i].Answered || ps.Answers[i].Scored {
				rec := ps.Answers[i]
				rec.SelectedTexts = append([]string(nil), rec.SelectedTexts...)
				p.answers[i] = &rec
			}
		}
		s.players[ps.ID] = p
		s.joinOrder = append(s.joinOrder, ps.ID)
	}
	return s
}

// deadlineLocked returns the close time of the current question's window.
func (s *Session) deadlineLocked() time.Time {
	return s.questionStartedAt.Add(s.questions[s.position].Duration())
}

// windowClosedLocked reports whether the answer window for question index has
// closed: the session ended, the session moved past it, or its deadline
// elapsed on the server clock.
func (s *Session) windowClosedLocked(index int, now time.Time) bool {
	if s.ended {
		return true
	}
	if index < s.position {
		return true
	}
	if index > s.position {
		return false
	}
	return !now.Before(s.deadlineLocked())
}

// recordLocked returns the player's answer record for question index,
// allocating the slot on first touch.
func (s *Session) recordLocked(p *player, index int) *domain.AnswerRecord {
	if p.answers[index] == nil {
		p.answers[index] = &domain.AnswerRecord{}
	}
	return p.answers[index]
}

// finalizeQuestionLocked scores question index for every player. Safe to call
// repeatedly: already-scored records are left untouched, so concurrent reveal
// and results calls converge on the same numbers. Reports whether any record
// was newly scored.
func (s *Session) finalizeQuestionLocked(index int) bool {
	question := s.questions[index]
	correct := question.CorrectTexts()
	changed := false
	for _, id := range s.joinOrder {
		rec := s.recordLocked(s.players[id], index)
		if rec.Scored {
			continue
		}
		if rec.Answered {
			rec.Correct = sameAnswerSet(rec.SelectedTexts, correct)
		} else {
			rec.ResponseSeconds = float64(question.DurationSeconds)
			rec.Correct = false
		}
		if rec.Correct {
			rec.Points = scorePoints(question.Points, rec.ResponseSeconds, float64(question.DurationSeconds))
		} else {
			rec.Points = 0
		}
		rec.Scored = true
		changed = true
	}
	return changed
}

// finalizeClosedLocked scores every reached question whose window has closed.
func (s *Session) finalizeClosedLocked(now time.Time) bool {
	changed := false
	for index := 0; index <= s.position && index < len(s.questions); index++ {
		if s.windowClosedLocked(index, now) && s.finalizeQuestionLocked(index) {
			changed = true
		}
	}
	return changed
}
