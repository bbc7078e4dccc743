package services

import "errors"

var (
	// ErrNotFound is returned when a deck, card, variant or row does not exist.
	ErrNotFound = errors.New("not found")
	// ErrNotOwned is returned when the caller does not own the deck or collection row.
	ErrNotOwned = errors.New("not owned by caller")
)

// ValidationError is a rule rejection whose message is meant for display.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func invalid(msg string) error {
	return &ValidationError{Message: msg}
}
