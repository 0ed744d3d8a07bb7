package engine_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"quizhost-session-service/internal/domain"
	"quizhost-session-service/internal/engine"
	"quizhost-session-service/internal/infra/memory"
)

const owner = "admin-1"

// fakeClock lets tests move time past answer deadlines without sleeping.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 6, 18, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func testGame() domain.Game {
	return domain.Game{
		ID:      "game-1",
		OwnerID: owner,
		Questions: []domain.Question{
			{
				Text:            "Capital of France?",
				Kind:            domain.KindSingle,
				DurationSeconds: 30,
				Points:          10,
				Options: []domain.AnswerOption{
					{Text: "Paris", Correct: true},
					{Text: "Lyon", Correct: false},
					{Text: "Nice", Correct: false},
				},
			},
			{
				Text:            "Which are prime?",
				Kind:            domain.KindMultiple,
				DurationSeconds: 20,
				Points:          8,
				Options: []domain.AnswerOption{
					{Text: "2", Correct: true},
					{Text: "3", Correct: true},
					{Text: "4", Correct: false},
				},
			},
			{
				Text:            "Go has generics.",
				Kind:            domain.KindJudgement,
				DurationSeconds: 15,
				Points:          5,
				Options: []domain.AnswerOption{
					{Text: "True", Correct: true},
					{Text: "False", Correct: false},
				},
			},
		},
	}
}

func newTestEngine(t *testing.T) (*engine.Engine, *fakeClock) {
	t.Helper()
	clock := newFakeClock()
	catalog := memory.NewGameCatalog(memory.NewStaticGameLoader(map[string]domain.Game{
		"game-1": testGame(),
	}), 5*time.Minute)
	return engine.NewWithClock(memory.NewSessionStore(), catalog, clock.Now), clock
}

func startWithPlayers(t *testing.T, e *engine.Engine, names ...string) (string, []string) {
	t.Helper()
	ctx := context.Background()
	sessionID, err := e.StartSession(ctx, "game-1", owner)
	if err != nil {
		t.Fatalf("start session: %v", err)
	}
	playerIDs := make([]string, 0, len(names))
	for _, name := range names {
		playerID, err := e.JoinSession(ctx, sessionID, name)
		if err != nil {
			t.Fatalf("join %s: %v", name, err)
		}
		playerIDs = append(playerIDs, playerID)
	}
	return sessionID, playerIDs
}

func TestStartSessionChecksOwnership(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()

	if _, err := e.StartSession(ctx, "game-1", "someone-else"); !domain.IsAccessError(err) {
		t.Fatalf("expected access error, got %v", err)
	}
	if _, err := e.StartSession(ctx, "game-missing", owner); err != domain.ErrGameNotFound {
		t.Fatalf("expected game not found, got %v", err)
	}
}

func TestSingleActiveSessionPerGame(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()

	sessionID, err := e.StartSession(ctx, "game-1", owner)
	if err != nil {
		t.Fatalf("start session: %v", err)
	}
	if _, err := e.StartSession(ctx, "game-1", owner); err != domain.ErrGameAlreadyActive {
		t.Fatalf("expected game already active, got %v", err)
	}

	if err := e.EndSession(ctx, sessionID, owner); err != nil {
		t.Fatalf("end session: %v", err)
	}
	// Ending releases the game for a fresh session.
	if _, err := e.StartSession(ctx, "game-1", owner); err != nil {
		t.Fatalf("expected new session after end, got %v", err)
	}
}

func TestEndSessionIsTerminal(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()
	sessionID, _ := startWithPlayers(t, e)

	if err := e.EndSession(ctx, sessionID, "someone-else"); !domain.IsAccessError(err) {
		t.Fatalf("expected access error, got %v", err)
	}
	if err := e.EndSession(ctx, sessionID, owner); err != nil {
		t.Fatalf("end session: %v", err)
	}
	if err := e.EndSession(ctx, sessionID, owner); err != domain.ErrSessionAlreadyEnded {
		t.Fatalf("expected already ended, got %v", err)
	}
	if _, err := e.AdvanceSession(ctx, sessionID, owner); err != domain.ErrSessionAlreadyEnded {
		t.Fatalf("advance must not resurrect an ended session, got %v", err)
	}
}

func TestJoinOnlyBeforeFirstQuestion(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()
	sessionID, playerIDs := startWithPlayers(t, e, "Alice")

	if playerIDs[0] == sessionID {
		t.Fatalf("player id must differ from session id")
	}
	if _, err := e.JoinSession(ctx, sessionID, "   "); !domain.IsInputError(err) {
		t.Fatalf("expected input error for blank name, got %v", err)
	}

	if _, err := e.AdvanceSession(ctx, sessionID, owner); err != nil {
		t.Fatalf("advance: %v", err)
	}
	if _, err := e.JoinSession(ctx, sessionID, "Bob"); err != domain.ErrSessionAlreadyStarted {
		t.Fatalf("expected join-after-start rejection, got %v", err)
	}
}

func TestAdvanceIsMonotonicAndBounded(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()
	sessionID, playerIDs := startWithPlayers(t, e, "Alice")

	if _, err := e.CurrentQuestion(ctx, playerIDs[0]); err != domain.ErrSessionNotStarted {
		t.Fatalf("expected not-started before first advance, got %v", err)
	}

	for want := 0; want < 3; want++ {
		position, err := e.AdvanceSession(ctx, sessionID, owner)
		if err != nil {
			t.Fatalf("advance to %d: %v", want, err)
		}
		if position != want {
			t.Fatalf("expected position %d, got %d", want, position)
		}
	}

	// Past the last question the caller must end the session instead.
	if _, err := e.AdvanceSession(ctx, sessionID, owner); err != domain.ErrNoMoreQuestions {
		t.Fatalf("expected no-more-questions, got %v", err)
	}
	if _, err := e.AdvanceSession(ctx, sessionID, "someone-else"); !domain.IsAccessError(err) {
		t.Fatalf("expected access error, got %v", err)
	}
}

func TestCurrentQuestionHidesCorrectness(t *testing.T) {
	e, clock := newTestEngine(t)
	ctx := context.Background()
	sessionID, playerIDs := startWithPlayers(t, e, "Alice")

	if _, err := e.AdvanceSession(ctx, sessionID, owner); err != nil {
		t.Fatalf("advance: %v", err)
	}
	view, err := e.CurrentQuestion(ctx, playerIDs[0])
	if err != nil {
		t.Fatalf("current question: %v", err)
	}
	if view.Index != 0 || view.DurationSeconds != 30 || view.Points != 10 {
		t.Fatalf("unexpected view %+v", view)
	}
	if len(view.Options) != 3 {
		t.Fatalf("expected 3 option texts, got %v", view.Options)
	}
	if !view.StartedAt.Equal(clock.Now()) {
		t.Fatalf("expected start stamp %v, got %v", clock.Now(), view.StartedAt)
	}
}

func TestSubmitAnswerDeadline(t *testing.T) {
	e, clock := newTestEngine(t)
	ctx := context.Background()
	sessionID, playerIDs := startWithPlayers(t, e, "Alice")
	alice := playerIDs[0]

	if err := e.SubmitAnswer(ctx, alice, []string{"Paris"}); err != domain.ErrSessionNotStarted {
		t.Fatalf("expected not-started, got %v", err)
	}

	if _, err := e.AdvanceSession(ctx, sessionID, owner); err != nil {
		t.Fatalf("advance: %v", err)
	}
	if err := e.SubmitAnswer(ctx, alice, nil); err != domain.ErrEmptyAnswer {
		t.Fatalf("expected empty-answer error, got %v", err)
	}
	if err := e.SubmitAnswer(ctx, alice, []string{"Berlin"}); err != domain.ErrOptionNotFound {
		t.Fatalf("expected option-not-found, got %v", err)
	}
	if err := e.SubmitAnswer(ctx, alice, []string{"Paris"}); err != nil {
		t.Fatalf("submit inside window: %v", err)
	}

	// The server clock is authoritative: 100ms past the deadline loses, no
	// matter what the client's timer showed.
	clock.Advance(30*time.Second + 100*time.Millisecond)
	if err := e.SubmitAnswer(ctx, alice, []string{"Lyon"}); err != domain.ErrAnswerWindowClosed {
		t.Fatalf("expected window closed, got %v", err)
	}
}

func TestSingleChoiceKeepsLastText(t *testing.T) {
	e, clock := newTestEngine(t)
	ctx := context.Background()
	sessionID, playerIDs := startWithPlayers(t, e, "Alice")
	alice := playerIDs[0]

	if _, err := e.AdvanceSession(ctx, sessionID, owner); err != nil {
		t.Fatalf("advance: %v", err)
	}
	// Multiple texts on a single-choice question: the last one is retained.
	if err := e.SubmitAnswer(ctx, alice, []string{"Lyon", "Paris"}); err != nil {
		t.Fatalf("submit: %v", err)
	}

	clock.Advance(31 * time.Second)
	answers, err := e.RevealAnswers(ctx, alice)
	if err != nil {
		t.Fatalf("reveal: %v", err)
	}
	if len(answers) != 1 || answers[0] != "Paris" {
		t.Fatalf("unexpected correct set %v", answers)
	}
	outcomes, err := e.PlayerResults(ctx, alice)
	if err != nil {
		t.Fatalf("player results: %v", err)
	}
	if len(outcomes) != 1 || !outcomes[0].Correct {
		t.Fatalf("expected truncate-to-last to keep Paris, got %+v", outcomes)
	}
}

func TestResubmitOverwritesBeforeDeadline(t *testing.T) {
	e, clock := newTestEngine(t)
	ctx := context.Background()
	sessionID, playerIDs := startWithPlayers(t, e, "Alice")
	alice := playerIDs[0]

	if _, err := e.AdvanceSession(ctx, sessionID, owner); err != nil {
		t.Fatalf("advance: %v", err)
	}
	if err := e.SubmitAnswer(ctx, alice, []string{"Paris"}); err != nil {
		t.Fatalf("submit: %v", err)
	}
	clock.Advance(15 * time.Second)
	// Last write wins up to the deadline.
	if err := e.SubmitAnswer(ctx, alice, []string{"Lyon"}); err != nil {
		t.Fatalf("resubmit: %v", err)
	}

	clock.Advance(16 * time.Second)
	outcomes, err := e.PlayerResults(ctx, alice)
	if err != nil {
		t.Fatalf("player results: %v", err)
	}
	if outcomes[0].Correct || outcomes[0].Points != 0 {
		t.Fatalf("expected overwritten answer to score 0, got %+v", outcomes[0])
	}
	if outcomes[0].ResponseSeconds != 15 {
		t.Fatalf("expected response time of the last submission, got %v", outcomes[0].ResponseSeconds)
	}
}

func TestRevealAnswersWaitsForWindow(t *testing.T) {
	e, clock := newTestEngine(t)
	ctx := context.Background()
	sessionID, playerIDs := startWithPlayers(t, e, "Alice")
	alice := playerIDs[0]

	if _, err := e.RevealAnswers(ctx, alice); err != domain.ErrSessionNotStarted {
		t.Fatalf("expected not-started, got %v", err)
	}
	if _, err := e.AdvanceSession(ctx, sessionID, owner); err != nil {
		t.Fatalf("advance: %v", err)
	}
	if _, err := e.RevealAnswers(ctx, alice); err != domain.ErrAnswersNotReady {
		t.Fatalf("expected answers-not-ready, got %v", err)
	}

	clock.Advance(30 * time.Second)
	answers, err := e.RevealAnswers(ctx, alice)
	if err != nil {
		t.Fatalf("reveal after close: %v", err)
	}
	if len(answers) != 1 || answers[0] != "Paris" {
		t.Fatalf("unexpected answers %v", answers)
	}

	// Reveal succeeds for a player who never submitted; absence is not an error.
	outcomes, err := e.PlayerResults(ctx, alice)
	if err != nil {
		t.Fatalf("player results: %v", err)
	}
	if outcomes[0].Answered || outcomes[0].Points != 0 {
		t.Fatalf("expected unanswered zero outcome, got %+v", outcomes[0])
	}
	if outcomes[0].ResponseSeconds != 30 {
		t.Fatalf("expected full-duration response time, got %v", outcomes[0].ResponseSeconds)
	}
}

func TestScoringIsIdempotentAcrossReveals(t *testing.T) {
	e, clock := newTestEngine(t)
	ctx := context.Background()
	sessionID, playerIDs := startWithPlayers(t, e, "Alice")
	alice := playerIDs[0]

	if _, err := e.AdvanceSession(ctx, sessionID, owner); err != nil {
		t.Fatalf("advance: %v", err)
	}
	clock.Advance(15 * time.Second)
	if err := e.SubmitAnswer(ctx, alice, []string{"Paris"}); err != nil {
		t.Fatalf("submit: %v", err)
	}
	clock.Advance(16 * time.Second)

	var points []int
	for i := 0; i < 3; i++ {
		if _, err := e.RevealAnswers(ctx, alice); err != nil {
			t.Fatalf("reveal %d: %v", i, err)
		}
		outcomes, err := e.PlayerResults(ctx, alice)
		if err != nil {
			t.Fatalf("results %d: %v", i, err)
		}
		points = append(points, outcomes[0].Points)
	}
	// duration=30, points=10, answered at 15s → 10 × 1.25 → 13.
	for _, p := range points {
		if p != 13 {
			t.Fatalf("expected stable 13 points, got %v", points)
		}
	}
}

func TestMultipleChoiceExactSetMatch(t *testing.T) {
	e, clock := newTestEngine(t)
	ctx := context.Background()
	sessionID, playerIDs := startWithPlayers(t, e, "Alice", "Bob")
	alice, bob := playerIDs[0], playerIDs[1]

	// Skip to the multiple-choice question.
	if _, err := e.AdvanceSession(ctx, sessionID, owner); err != nil {
		t.Fatalf("advance: %v", err)
	}
	if _, err := e.AdvanceSession(ctx, sessionID, owner); err != nil {
		t.Fatalf("advance: %v", err)
	}

	if err := e.SubmitAnswer(ctx, alice, []string{"3", "2"}); err != nil {
		t.Fatalf("submit alice: %v", err)
	}
	if err := e.SubmitAnswer(ctx, bob, []string{"2"}); err != nil {
		t.Fatalf("submit bob: %v", err)
	}

	clock.Advance(21 * time.Second)
	aliceOutcomes, err := e.PlayerResults(ctx, alice)
	if err != nil {
		t.Fatalf("alice results: %v", err)
	}
	bobOutcomes, err := e.PlayerResults(ctx, bob)
	if err != nil {
		t.Fatalf("bob results: %v", err)
	}
	if !aliceOutcomes[1].Correct {
		t.Fatalf("exact set in any order must be correct, got %+v", aliceOutcomes[1])
	}
	if bobOutcomes[1].Correct {
		t.Fatalf("partial selection must not be correct, got %+v", bobOutcomes[1])
	}
}
