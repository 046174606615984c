package exam

import (
	"errors"
	"fmt"
)

// Kind classifies failures surfaced by the exam screen.
type Kind string

const (
	KindNotFound         Kind = "not_found"
	KindFetchFailed      Kind = "fetch_failed"
	KindMalformedOptions Kind = "malformed_options"
	KindAssistFailed     Kind = "assist_failed"
	KindInvalidState     Kind = "invalid_state"
)

var (
	// ErrInvalidState is returned when an operation does not fit the attempt phase.
	ErrInvalidState = errors.New("operation not valid in current attempt state")
	// ErrNotAnswered is returned by Advance before the current question has a result.
	ErrNotAnswered = errors.New("current question has not been answered")
	// ErrAlreadyAnswered is returned by SubmitAnswer for an index that already has a result.
	ErrAlreadyAnswered = errors.New("current question already answered")
	// ErrAssistBusy is returned when an assist request of the same kind is in flight.
	ErrAssistBusy = errors.New("assist request already in flight")
	// ErrStale is returned when an assist response arrives for a question that is no longer current.
	ErrStale = errors.New("assist response is stale")
)

// Error carries a Kind and a human-readable detail.
type Error struct {
	Kind   Kind
	Detail string
	Err    error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Detail, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Detail)
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf reports the Kind of err, or the empty string if err is not an *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	if errors.Is(err, ErrInvalidState) {
		return KindInvalidState
	}
	return ""
}
