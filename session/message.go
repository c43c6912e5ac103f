package session

import "time"

// MessageType classifies queue messages.
type MessageType string

const (
	MessageTypeUser      MessageType = "user"
	MessageTypeAssistant MessageType = "assistant"
	MessageTypeSystem    MessageType = "system"
)

// Message is one entry in a session's input or output queue.
type Message struct {
	ID        string         `json:"id"`
	Type      MessageType    `json:"type"`
	Content   string         `json:"content"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

// Status is the session lifecycle state machine:
//
//	Initializing -> Active <-> Paused -> CleaningUp -> Expired
//
// Any state may transition to Error on an unrecoverable fault.
type Status string

const (
	StatusInitializing Status = "initializing"
	StatusActive       Status = "active"
	StatusPaused       Status = "paused"
	StatusCleaningUp   Status = "cleaning_up"
	StatusExpired      Status = "expired"
	StatusError        Status = "error"
)

// terminal reports whether the status accepts no further transitions.
func (s Status) terminal() bool {
	return s == StatusExpired || s == StatusError
}

// TaskInfo tracks one unit of work attached to a session.
type TaskInfo struct {
	ID          string    `json:"id"`
	Description string    `json:"description"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
}

// Task statuses.
const (
	TaskStatusPending   = "pending"
	TaskStatusRunning   = "running"
	TaskStatusCompleted = "completed"
	TaskStatusFailed    = "failed"
)

// Info is a point-in-time snapshot of a session for listing and stats.
type Info struct {
	ID           string    `json:"id"`
	UserID       string    `json:"user_id"`
	ProjectID    string    `json:"project_id,omitempty"`
	Status       Status    `json:"status"`
	CreatedAt    time.Time `json:"created_at"`
	LastActivity time.Time `json:"last_activity"`
	ExpiresAt    time.Time `json:"expires_at"`
	QueuedInput  int       `json:"queued_input"`
	QueuedOutput int       `json:"queued_output"`
	Tasks        int       `json:"tasks"`
}
