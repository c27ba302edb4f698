package repository

import "errors"

var (
	// ErrNotFound is returned when a lookup matches no row. For owner-scoped
	// lookups this also covers rows owned by someone else.
	ErrNotFound = errors.New("record not found")

	// ErrDuplicate is returned when an insert violates a unique constraint.
	ErrDuplicate = errors.New("duplicate record")
)
