package analyses

import "errors"

var (
	// ErrNotFound is returned when no analysis matches the given id or hash.
	ErrNotFound = errors.New("analysis not found")
	// ErrInvalidInput is returned for submissions that fail validation.
	ErrInvalidInput = errors.New("invalid input")
)
