package store

import "errors"

var (
	// ErrNotFound is returned when a record does not exist.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateUsername is returned when the username is already taken.
	ErrDuplicateUsername = errors.New("username already exists")

	// ErrStorageUnavailable wraps failures of the backing database.
	ErrStorageUnavailable = errors.New("storage unavailable")

	// ErrHashingFailure is returned when a password could not be hashed.
	ErrHashingFailure = errors.New("password hashing failed")
)
