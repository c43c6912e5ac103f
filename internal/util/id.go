package util

import "github.com/google/uuid"

// NewID returns a new random identifier for sessions, messages and threads.
func NewID() string { return uuid.NewString() }
