package domain

import (
	"errors"
	"fmt"
)

// NotFoundError represents a missing resource.
type NotFoundError struct {
	Resource string
}

func (e NotFoundError) Error() string {
	if e.Resource == "" {
		return "not found"
	}
	return fmt.Sprintf("%s not found", e.Resource)
}

// Is enables errors.Is matching on NotFoundError.
func (e NotFoundError) Is(target error) bool {
	_, ok := target.(NotFoundError)
	if ok {
		return true
	}
	_, ok = target.(*NotFoundError)
	return ok
}

// ErrNotFound is the sentinel error for missing resources.
var ErrNotFound = NotFoundError{}

// FieldTooLongError is returned when a descriptive field exceeds its stored limit.
type FieldTooLongError struct {
	Field  string
	Max    int
	Actual int
}

func (e FieldTooLongError) Error() string {
	if e.Field == "" {
		return "field too long"
	}
	return fmt.Sprintf("%s too long: %d > %d", e.Field, e.Actual, e.Max)
}

func (e FieldTooLongError) Is(target error) bool {
	_, ok := target.(FieldTooLongError)
	if ok {
		return true
	}
	_, ok = target.(*FieldTooLongError)
	return ok
}

var ErrFieldTooLong = FieldTooLongError{}

type InvalidInputError struct {
	Reason string
}

func (e InvalidInputError) Error() string {
	if e.Reason == "" {
		return "invalid input"
	}
	return "invalid input: " + e.Reason
}

func (e InvalidInputError) Is(target error) bool {
	_, ok := target.(InvalidInputError)
	if ok {
		return true
	}
	_, ok = target.(*InvalidInputError)
	return ok
}

var ErrInvalidInput = InvalidInputError{}

var (
	ErrUnauthorized     = errors.New("caller is not authorized")
	ErrAlreadyCommitted = errors.New("document already committed")
)
