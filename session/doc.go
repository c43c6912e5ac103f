// Package session implements the conversation runtime: isolated long-lived
// sessions with bounded message queues and a lifecycle state machine, owned
// by a Manager that enforces capacity, sweeps expired sessions and serializes
// structural operations.
//
// Each session runs one loop goroutine draining its input queue in strict
// FIFO order and invoking the orchestration processor per user message.
// Sessions progress independently; nothing outside a session touches its
// queues or internal state except through the public API.
package session
