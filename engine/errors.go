package engine

import (
	"errors"
	"fmt"
)

// Error kinds surfaced by the engine. Typed errors below unwrap to one of these,
// so callers test with errors.Is.
var (
	ErrInvalidCard                = errors.New("invalid card")
	ErrIllegalPlay                = errors.New("illegal play")
	ErrInconsistentInformationSet = errors.New("inconsistent information set")
	ErrInternalInvariant          = errors.New("internal invariant violation")
)

// PlayError describes a rejected play with its position in the deal.
type PlayError struct {
	Kind   error // ErrInvalidCard or ErrIllegalPlay
	Seat   Seat
	Card   Card
	Trick  int // 0-based trick index
	Reason string
}

func (e *PlayError) Error() string {
	return fmt.Sprintf("%v: %s plays %s in trick %d: %s", e.Kind, e.Seat, e.Card, e.Trick+1, e.Reason)
}

func (e *PlayError) Unwrap() error { return e.Kind }

func invalidCard(seat Seat, c Card, trick int, reason string) error {
	return &PlayError{Kind: ErrInvalidCard, Seat: seat, Card: c, Trick: trick, Reason: reason}
}

func illegalPlay(seat Seat, c Card, trick int, reason string) error {
	return &PlayError{Kind: ErrIllegalPlay, Seat: seat, Card: c, Trick: trick, Reason: reason}
}

// InvariantError reports a broken internal invariant. It is not recoverable;
// the current query is aborted.
type InvariantError struct {
	What    string
	Context string
}

func (e *InvariantError) Error() string {
	if e.Context == "" {
		return fmt.Sprintf("%v: %s", ErrInternalInvariant, e.What)
	}
	return fmt.Sprintf("%v: %s (%s)", ErrInternalInvariant, e.What, e.Context)
}

func (e *InvariantError) Unwrap() error { return ErrInternalInvariant }

func invariant(what, format string, args ...any) error {
	return &InvariantError{What: what, Context: fmt.Sprintf(format, args...)}
}
