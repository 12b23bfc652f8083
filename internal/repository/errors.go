package repository

import "errors"

// Common repository errors
var (
	// ErrTaskNotFound is returned when a task is absent or soft-deleted
	ErrTaskNotFound = errors.New("task not found")

	// ErrProjectNotFound is returned when a project is absent or soft-deleted
	ErrProjectNotFound = errors.New("project not found")

	// ErrUserNotFound is returned when a user is absent or soft-deleted
	ErrUserNotFound = errors.New("user not found")

	// ErrRatingNotFound is returned when no aggregate exists for the key
	ErrRatingNotFound = errors.New("rating aggregate not found")
)
