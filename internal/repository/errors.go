package repository

import "errors"

var (
	ErrNotFound = errors.New("record not found")
	// ErrConflict is returned when a unique column (secret digest, email)
	// would collide with another row.
	ErrConflict = errors.New("record conflicts with an existing record")
)
