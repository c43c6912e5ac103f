package session

import "errors"

var (
	// ErrSessionNotFound is returned for any operation on an unknown or
	// already destroyed session id.
	ErrSessionNotFound = errors.New("session not found")

	// ErrQueueFull is returned when a bounded session queue rejects a
	// message; SendMessage never blocks on processing.
	ErrQueueFull = errors.New("session queue is full")

	// ErrSessionNotActive is returned when a message is sent to a session
	// whose lifecycle no longer accepts input.
	ErrSessionNotActive = errors.New("session is not active")

	// ErrManagerClosed is returned after the manager has shut down.
	ErrManagerClosed = errors.New("session manager is closed")
)
