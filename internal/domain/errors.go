package domain

import (
	"errors"
	"fmt"
)

var (
	ErrEmptyChoice       = errors.New("choice requires an option id or text")
	ErrInvalidSession    = errors.New("invalid session")
	ErrInvalidTransition = errors.New("invalid transition")
	ErrJobNotFound       = errors.New("job not found")
	ErrNoSession         = errors.New("no session in progress")
	ErrRequestRejected   = errors.New("request rejected by generation service")
	ErrSessionExpired    = errors.New("session expired")
	ErrUnknownArtStyle   = errors.New("unknown art style")
	ErrUnknownStage      = errors.New("unknown stage")
)

// TransitionError reports a controller operation called from a state that
// does not permit it. It matches ErrInvalidTransition with errors.Is.
type TransitionError struct {
	From  State
	Op    string
	Stage int
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("invalid transition: %s(stage %d) not allowed in state %s", e.Op, e.Stage, e.From)
}

func (e *TransitionError) Unwrap() error {
	return ErrInvalidTransition
}
