package repository

import "errors"

var (
	// ErrNotFound is returned when a requested row does not exist.
	ErrNotFound = errors.New("not found")

	// ErrConflict is returned when a project was modified after it was loaded.
	ErrConflict = errors.New("project was modified concurrently")
)
