package model

import "errors"

var (
	// ErrNotFound is returned when a resource is not found.
	ErrNotFound = errors.New("not found")
	// ErrNotValid is returned when a resource is not valid.
	ErrNotValid = errors.New("not valid")
	// ErrCancelled is returned when an operation was aborted by the user or
	// the application before it could finish.
	ErrCancelled = errors.New("cancelled")
	// ErrTimeout is returned when an operation exceeded its deadline.
	ErrTimeout = errors.New("timed out")
	// ErrUnavailable is returned when a backend service can't be reached.
	ErrUnavailable = errors.New("not available")
)
