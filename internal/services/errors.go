package services

import (
	"errors"
	"fmt"
)

// MaxUsernameLen bounds usernames in bytes. Even when every byte is escaped
// in the token claims, a username of this length fits in a session cookie.
const MaxUsernameLen = 256

var (
	// ErrInvalidCredentials is returned for every failed login, whether the
	// user exists or not.
	ErrInvalidCredentials = errors.New("invalid username or password")

	// ErrInvalidInput is returned when a required field is empty.
	ErrInvalidInput = errors.New("username and password are required")

	// ErrUsernameTooLong is returned by Register for usernames over MaxUsernameLen bytes.
	ErrUsernameTooLong = fmt.Errorf("username must be at most %d bytes", MaxUsernameLen)
)
