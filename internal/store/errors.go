package store

import (
	"errors"
	"fmt"

	"github.com/router-for-me/FRPPanel/internal/models"
)

// ErrNotFound indicates a referenced record does not exist.
var ErrNotFound = errors.New("store: not found")

// ErrValidation is matched by every *ValidationError.
var ErrValidation = errors.New("store: validation failed")

// ValidationError reports a uniqueness invariant the store refused to break.
type ValidationError struct {
	Collection models.Collection // Collection the write targeted.
	Field      string            // Unique field that collided.
	Value      any               // Offending value.
}

// Error implements error.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("store: %s.%s %v already exists", e.Collection, e.Field, e.Value)
}

// Is lets errors.Is(err, ErrValidation) match.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}
