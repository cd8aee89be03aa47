package game

import (
	"errors"
	"fmt"
)

// RejectReason is a machine-readable code explaining why an action was refused.
type RejectReason string

const (
	RejectNotYourTurn    RejectReason = "not_your_turn"
	RejectWrongPhase     RejectReason = "wrong_phase"
	RejectInvalidPayload RejectReason = "invalid_payload"
	RejectGameOver       RejectReason = "game_over"
)

// RejectionError reports a refused action. The duel is left exactly as it was.
type RejectionError struct {
	Reason RejectReason
	Detail string
}

func (e *RejectionError) Error() string {
	return fmt.Sprintf("action rejected (%s): %s", e.Reason, e.Detail)
}

// Is matches any RejectionError with the same reason, so errors.Is works against the sentinels below.
func (e *RejectionError) Is(target error) bool {
	var other *RejectionError
	if !errors.As(target, &other) {
		return false
	}
	return other.Reason == e.Reason
}

func reject(reason RejectReason, format string, args ...any) error {
	return &RejectionError{Reason: reason, Detail: fmt.Sprintf(format, args...)}
}

var (
	ErrNotYourTurn    = &RejectionError{Reason: RejectNotYourTurn}
	ErrWrongPhase     = &RejectionError{Reason: RejectWrongPhase}
	ErrInvalidPayload = &RejectionError{Reason: RejectInvalidPayload}
	ErrGameOver       = &RejectionError{Reason: RejectGameOver}
)

// ErrGameNotFound is returned by the manager for unknown game ids.
var ErrGameNotFound = errors.New("game not found")

// ErrGameExists is returned when starting a game under an id already in use.
var ErrGameExists = errors.New("game already exists")

// ReasonOf extracts the rejection reason from err, if it is a rejection.
func ReasonOf(err error) (RejectReason, bool) {
	var rej *RejectionError
	if errors.As(err, &rej) {
		return rej.Reason, true
	}
	return "", false
}
