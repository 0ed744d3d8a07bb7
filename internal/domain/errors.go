package domain

import "errors"

// AccessError means the requester is not allowed to act on the referenced
// game or session. Mapped to 403 at the transport boundary.
type AccessError struct {
	msg string
}

func NewAccessError(msg string) *AccessError { return &AccessError{msg: msg} }

func (e *AccessError) Error() string { return e.msg }

// InputError covers malformed requests and business-rule violations
// ("session already ended", "answers not available yet", ...). Mapped to 400.
type InputError struct {
	msg string
}

func NewInputError(msg string) *InputError { return &InputError{msg: msg} }

func (e *InputError) Error() string { return e.msg }

// IsAccessError reports whether err is (or wraps) an AccessError.
func IsAccessError(err error) bool {
	var ae *AccessError
	return errors.As(err, &ae)
}

// IsInputError reports whether err is (or wraps) an InputError.
func IsInputError(err error) bool {
	var ie *InputError
	return errors.As(err, &ie)
}

var (
	// ErrGameNotFound indicates the game content could not be loaded.
	ErrGameNotFound = NewInputError("game not found")
	// ErrSessionNotFound is returned when a session id does not refer to a known session.
	ErrSessionNotFound = NewInputError("session id is not a valid session")
	// ErrPlayerNotFound is returned when a player id does not refer to a joined player.
	ErrPlayerNotFound = NewInputError("player id is not a valid player")
	// ErrGameAlreadyActive guards the one-active-session-per-game invariant.
	ErrGameAlreadyActive = NewInputError("game already has an active session")
	// ErrSessionAlreadyEnded is returned when ending a session twice.
	ErrSessionAlreadyEnded = NewInputError("session has already ended")
	// ErrSessionInactive is returned when a player acts on an ended session.
	ErrSessionInactive = NewInputError("session is not active")
	// ErrSessionNotStarted is returned before the first advance opens question 0.
	ErrSessionNotStarted = NewInputError("session has not started yet")
	// ErrSessionAlreadyStarted rejects joins once question 0 has opened.
	ErrSessionAlreadyStarted = NewInputError("session has already started")
	// ErrNoMoreQuestions signals the caller to end the session and show results.
	ErrNoMoreQuestions = NewInputError("no questions remain in this session")
	// ErrAnswerWindowClosed rejects submissions after the question deadline.
	ErrAnswerWindowClosed = NewInputError("the answer window for this question has closed")
	// ErrAnswersNotReady is polled by players until the window closes.
	ErrAnswersNotReady = NewInputError("answers are not available yet")
	// ErrOptionNotFound indicates a submitted answer text matches no option.
	ErrOptionNotFound = NewInputError("answer text does not match any option")
	// ErrEmptyAnswer rejects submissions with no selected texts.
	ErrEmptyAnswer = NewInputError("at least one answer must be selected")
	// ErrNotOwner is returned on admin operations against games the requester does not own.
	ErrNotOwner = NewAccessError("requester does not own this game")
)
