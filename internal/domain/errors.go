package domain

import "errors"

var (
	// ErrValidation marks caller input the ledger refuses to record.
	ErrValidation = errors.New("validation failed")
	// ErrUserNotFound is returned when the actor of an activity does not exist.
	ErrUserNotFound = errors.New("user not found")
	// ErrUserExists is returned when registering an id or email twice.
	ErrUserExists = errors.New("user already exists")
	// ErrDuplicate is returned when a collaborator event was already recorded.
	ErrDuplicate = errors.New("activity already recorded for source event")
	// ErrConflict is returned when the store aborted a write because of a
	// concurrent transaction. Callers may retry.
	ErrConflict = errors.New("concurrent update conflict")
	// ErrStorage wraps failures of the underlying persistence layer.
	ErrStorage = errors.New("storage failure")
)
