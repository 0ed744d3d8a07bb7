package domain

import (
	"fmt"
	"time"
)

// QuestionKind distinguishes how many options a submission may select.
type QuestionKind string

const (
	KindSingle    QuestionKind = "single"
	KindMultiple  QuestionKind = "multiple"
	KindJudgement QuestionKind = "judgement"
)

// AnswerOption is one selectable answer for a question.
type AnswerOption struct {
	Text    string `json:"text"`
	Correct bool   `json:"correct"`
}

// Question models one timed question of a game.
type Question struct {
	Text            string         `json:"text"`
	Kind            QuestionKind   `json:"kind"`
	DurationSeconds int            `json:"durationSeconds"`
	Points          int            `json:"points"`
	Options         []AnswerOption `json:"options"`
	MediaURL        string         `json:"mediaUrl,omitempty"`
}

// Duration returns the answer window length.
func (q Question) Duration() time.Duration {
	return time.Duration(q.DurationSeconds) * time.Second
}

// CorrectTexts returns the authoritative set of correct answer texts.
func (q Question) CorrectTexts() []string {
	texts := make([]string, 0, len(q.Options))
	for _, opt := range q.Options {
		if opt.Correct {
			texts = append(texts, opt.Text)
		}
	}
	return texts
}

// HasOption reports whether text matches one of the question's options.
func (q Question) HasOption(text string) bool {
	for _, opt := range q.Options {
		if opt.Text == text {
			return true
		}
	}
	return false
}

// Validate checks the structural rules a playable question must satisfy.
func (q Question) Validate() error {
	switch q.Kind {
	case KindSingle, KindMultiple, KindJudgement:
	default:
		return NewInputError(fmt.Sprintf("unknown question kind %q", q.Kind))
	}
	if q.DurationSeconds <= 0 {
		return NewInputError("question duration must be positive")
	}
	if q.Points <= 0 {
		return NewInputError("question points must be positive")
	}
	if len(q.Options) == 0 {
		return NewInputError("question has no answer options")
	}
	if len(q.CorrectTexts()) == 0 {
		return NewInputError("question has no correct option")
	}
	return nil
}

// Game is a question set owned by one administrator. Read-only to the engine.
type Game struct {
	ID        string     `json:"id"`
	OwnerID   string     `json:"ownerId"`
	Name      string     `json:"name,omitempty"`
	Questions []Question `json:"questions"`
}

// AnswerRecord is the per-(player, question) submission slot. SelectedTexts
// and AnsweredAt are written while the window is open; the scored fields are
// filled exactly once after the window closes.
type AnswerRecord struct {
	SelectedTexts []string  `json:"selectedTexts,omitempty"`
	AnsweredAt    time.Time `json:"answeredAt,omitempty"`
	Answered      bool      `json:"answered"`
	// ResponseSeconds is stamped at submission time from the server clock,
	// or set to the full question duration when no submission was made.
	ResponseSeconds float64 `json:"responseSeconds"`
	Scored          bool    `json:"scored"`
	Correct         bool    `json:"correct"`
	Points          int     `json:"points"`
}

// PlayerSnapshot is the persisted form of a joined player.
type PlayerSnapshot struct {
	ID          string         `json:"id"`
	DisplayName string         `json:"displayName"`
	JoinedAt    time.Time      `json:"joinedAt"`
	Answers     []AnswerRecord `json:"answers"`
}

// SessionSnapshot is the persisted form of a session, including the frozen
// question list and all player/answer state. Stores round-trip it as JSON.
type SessionSnapshot struct {
	ID                string           `json:"id"`
	GameID            string           `json:"gameId"`
	OwnerID           string           `json:"ownerId"`
	Questions         []Question       `json:"questions"`
	Position          int              `json:"position"`
	QuestionStartedAt time.Time        `json:"questionStartedAt,omitempty"`
	Ended             bool             `json:"ended"`
	CreatedAt         time.Time        `json:"createdAt"`
	Players           []PlayerSnapshot `json:"players"`
}

// QuestionView is the player-facing projection of the current question.
// Correctness flags are deliberately absent.
type QuestionView struct {
	Index           int          `json:"index"`
	Text            string       `json:"text"`
	Kind            QuestionKind `json:"kind"`
	DurationSeconds int          `json:"durationSeconds"`
	Points          int          `json:"points"`
	Options         []string     `json:"options"`
	MediaURL        string       `json:"mediaUrl,omitempty"`
	StartedAt       time.Time    `json:"isoTimeLastQuestionStarted"`
}

// SessionStatus is what an admin panel polls while driving a session.
type SessionStatus struct {
	SessionID         string     `json:"sessionId"`
	GameID            string     `json:"gameId"`
	Active            bool       `json:"active"`
	Position          int        `json:"position"`
	QuestionCount     int        `json:"questionCount"`
	PlayerCount       int        `json:"playerCount"`
	QuestionStartedAt *time.Time `json:"isoTimeLastQuestionStarted,omitempty"`
}

// QuestionOutcome is the scored result of one question for one player.
type QuestionOutcome struct {
	QuestionIndex   int     `json:"questionIndex"`
	Answered        bool    `json:"answered"`
	Correct         bool    `json:"correct"`
	Points          int     `json:"points"`
	ResponseSeconds float64 `json:"responseSeconds"`
}

// PlayerStanding aggregates one player's outcomes across a session.
type PlayerStanding struct {
	PlayerID           string            `json:"playerId"`
	DisplayName        string            `json:"displayName"`
	TotalPoints        int               `json:"totalPoints"`
	AvgResponseSeconds float64           `json:"avgResponseSeconds"`
	Outcomes           []QuestionOutcome `json:"outcomes"`
}

// SessionResults is the ranked scoreboard for a session. Partial while the
// session is still running, frozen once it has ended.
type SessionResults struct {
	SessionID   string           `json:"sessionId"`
	Ended       bool             `json:"ended"`
	Standings   []PlayerStanding `json:"standings"`
	GeneratedAt time.Time        `json:"generatedAt"`
}
