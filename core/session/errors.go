package session

import "errors"

var (
	// ErrExpired is returned when a session has expired and is no longer valid.
	ErrExpired = errors.New("session has expired")
	// ErrNotFound is returned when a session cannot be found in the store.
	ErrNotFound = errors.New("session not found")
	// ErrNotAuthenticated is returned when a deleted session is stored.
	ErrNotAuthenticated = errors.New("session is not authenticated")
	// ErrTokenGeneration is returned when token generation fails.
	ErrTokenGeneration = errors.New("failed to generate token")
	// ErrSaveSession is returned when saving a session to the store fails.
	ErrSaveSession = errors.New("failed to save session")
	// ErrDeleteSession is returned when deleting a session from the store fails.
	ErrDeleteSession = errors.New("failed to delete session")
	// ErrSessionChanged is returned by Store.Save when the record was deleted
	// or its token rotated after the session was loaded. The write is dropped.
	ErrSessionChanged = errors.New("session changed since it was loaded")
	// ErrInvalidUser is returned when authenticating with a non-positive user ID.
	ErrInvalidUser = errors.New("invalid user id")
)
