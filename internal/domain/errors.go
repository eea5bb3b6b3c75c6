package domain

import "errors"

// request validation
var (
	ErrMissingQuestion = errors.New("missing 'question' in request body")
	ErrInvalidUsername = errors.New("username must be 1-20 letters, digits or underscores")
	ErrInvalidPassword = errors.New("invalid username or password")
	ErrMissingCreds    = errors.New("missing username or password")
)

// users
var (
	ErrUserAlreadyExists = errors.New("username already exists")
	ErrUserNotFound      = errors.New("user not found")
)

// tokens
var (
	ErrInvalidToken        = errors.New("invalid token")
	ErrTokenGenerateFailed = errors.New("generate token failed")
)

// collaborators
var (
	// ErrUpstream marks completion-capability failures. Retryable; history
	// is never mutated when it is returned.
	ErrUpstream = errors.New("completion upstream failure")

	// ErrCorruptSnapshot marks an unreadable persisted snapshot. Callers log
	// it and start from an empty store rather than crashing.
	ErrCorruptSnapshot = errors.New("corrupt history snapshot")
)
