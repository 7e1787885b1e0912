package shared

import "errors"

var (
	// ErrNotFound indicates resource not found.
	ErrNotFound = errors.New("not found")
	// ErrInvalidCredentials indicates login failure without revealing which field was wrong.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrDuplicateUsername occurs when a signup collides with an existing username.
	ErrDuplicateUsername = errors.New("username already exists")
	// ErrValidation indicates missing or malformed form input.
	ErrValidation = errors.New("validation failed")
)
