package panel

import (
	"errors"
	"fmt"

	"github.com/router-for-me/FRPPanel/internal/store"
)

// Error kinds returned by the service layer.
var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrInvalidInput = errors.New("invalid input")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
)

// Error is a service failure with a message safe to show to users.
type Error struct {
	Kind    error
	Message string
}

// Error implements error.
func (e *Error) Error() string {
	return e.Message
}

// Unwrap returns the error kind so errors.Is matches it.
func (e *Error) Unwrap() error {
	return e.Kind
}

func fail(kind error, format string, args ...any) error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// conflictOr converts a store uniqueness violation into a conflict with message,
// passing any other error through wrapped with op.
func conflictOr(err error, op, message string) error {
	if errors.Is(err, store.ErrValidation) {
		return fail(ErrConflict, "%s", message)
	}
	if errors.Is(err, store.ErrNotFound) {
		return fail(ErrNotFound, "user not found")
	}
	return fmt.Errorf("panel: %s: %w", op, err)
}
