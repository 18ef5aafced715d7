package services

import "errors"

var (
	// ErrUserExists is returned when registering a taken username or email.
	ErrUserExists = errors.New("user already exists")
	// ErrInvalidCredentials is returned for a wrong username/password pair.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrUserNotFound is returned when no account matches the lookup.
	ErrUserNotFound = errors.New("user not found")
)
