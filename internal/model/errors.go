package model

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrAmbiguous means no category or title could be inferred. Callers ask
	// for clarification instead of treating it as a failure.
	ErrAmbiguous = errors.New("model: ambiguous request")

	ErrInvalidInterval = errors.New("model: end must be after start")
	ErrOwnerMismatch   = errors.New("model: event belongs to another owner")
)

// ParseError is returned when no temporal pattern matches the input.
type ParseError struct {
	Input string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("temporal: no time expression recognized in %q", e.Input)
}

// FieldError is one failed validation rule.
type FieldError struct {
	Field   string
	Message string
}

// ValidationError rejects an input before any mutation happens.
type ValidationError struct {
	Fields []FieldError
	Err    error
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Field+": "+f.Message)
	}
	if len(parts) == 0 && e.Err != nil {
		return "validation: " + e.Err.Error()
	}
	return "validation: " + strings.Join(parts, "; ")
}

func (e *ValidationError) Unwrap() error { return e.Err }

// Conflict is an overlapping pair the resolver could not settle.
type Conflict struct {
	A      Event  `json:"a"`
	B      Event  `json:"b"`
	Reason string `json:"reason"`
}

// ImpossibleScheduleError reports pairs with no valid arrangement.
type ImpossibleScheduleError struct {
	Conflicts []Conflict
}

func (e *ImpossibleScheduleError) Error() string {
	if len(e.Conflicts) == 1 {
		c := e.Conflicts[0]
		return fmt.Sprintf("schedule: cannot resolve %q vs %q: %s", c.A.Title, c.B.Title, c.Reason)
	}
	return fmt.Sprintf("schedule: %d conflicts cannot be resolved", len(e.Conflicts))
}

// StoreFailure wraps an error raised by the persistence layer. The whole
// batch it belonged to has been rolled back.
type StoreFailure struct {
	Op  string
	Err error
}

func (e *StoreFailure) Error() string {
	return fmt.Sprintf("store: %s: %v", e.Op, e.Err)
}

func (e *StoreFailure) Unwrap() error { return e.Err }

func IsRecoverable(err error) bool {
	var pe *ParseError
	var ve *ValidationError
	var ie *ImpossibleScheduleError
	return errors.Is(err, ErrAmbiguous) || errors.As(err, &pe) || errors.As(err, &ve) || errors.As(err, &ie)
}
