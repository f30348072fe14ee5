package models

import "errors"

var (
	// ErrNotFound is returned when a record does not exist.
	ErrNotFound = errors.New("not found")
	// ErrInvalidInput is returned when a request payload fails validation.
	ErrInvalidInput = errors.New("invalid input")
	// ErrNoSession is returned when an operation needs an editor session and none is known.
	ErrNoSession = errors.New("no editor session")
	// ErrNoValidPosts is returned when a post fetch produced nothing usable.
	ErrNoValidPosts = errors.New("no valid posts")
	// ErrNoActiveSite is returned when no WordPress site is configured as active.
	ErrNoActiveSite = errors.New("no active WordPress site")
	// ErrInvalidCredentials is returned on a failed login or password check.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrTokenExpired is returned for expired or revoked tokens.
	ErrTokenExpired = errors.New("token expired")
	// ErrUnauthorized is returned when no valid token accompanies a request.
	ErrUnauthorized = errors.New("unauthorized")
)
