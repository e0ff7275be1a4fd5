package store

import "errors"

var (
	// ErrBadTimeFormat indicates the extracted time string does not match
	// models.TaskTimeLayout.
	ErrBadTimeFormat = errors.New("time does not match expected format")
	// ErrNotFuture indicates the extracted time is not strictly after now.
	ErrNotFuture = errors.New("time is not in the future")
)
