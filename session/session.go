package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/puntini/puntini/core"
	"github.com/puntini/puntini/internal/util"
	"github.com/puntini/puntini/logging"
)

// Processor is the orchestration collaborator a session hands user goals to.
// The engine's Process method satisfies it; tests substitute stubs.
type Processor interface {
	Process(ctx context.Context, goal, threadID string) (*core.FinalResult, error)
}

// Session binds one conversation to bounded input/output queues, an expiry
// window and a single loop goroutine. All mutable fields are guarded by mu;
// the queues are owned by the session and reached only through its API.
type Session struct {
	ID        string
	UserID    string
	ProjectID string

	mu             sync.RWMutex
	status         Status
	createdAt      time.Time
	lastActivity   time.Time
	expiresAt      time.Time
	metadata       map[string]any
	projectContext map[string]any
	tasks          []TaskInfo

	input  chan Message
	output chan Message
	resume chan struct{}

	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	processor Processor
	timeout   time.Duration
	logger    logging.Logger
}

func newSession(parent context.Context, userID, projectID string, metadata map[string]any, processor Processor, timeout time.Duration, queueSize int, logger logging.Logger) *Session {
	ctx, cancel := context.WithCancel(parent)
	now := time.Now()
	s := &Session{
		ID:             util.NewID(),
		UserID:         userID,
		ProjectID:      projectID,
		status:         StatusInitializing,
		createdAt:      now,
		lastActivity:   now,
		expiresAt:      now.Add(timeout),
		metadata:       metadata,
		projectContext: map[string]any{},
		input:          make(chan Message, queueSize),
		output:         make(chan Message, queueSize),
		resume:         make(chan struct{}, 1),
		ctx:            ctx,
		cancel:         cancel,
		processor:      processor,
		timeout:        timeout,
		logger:         logger,
	}
	s.wg.Add(1)
	go s.loop()
	s.setStatus(StatusActive)
	return s
}

// loop drains the input queue in strict FIFO arrival order. It parks on the
// channel select; there is no polling interval.
func (s *Session) loop() {
	defer s.wg.Done()
	for {
		select {
		case <-s.ctx.Done():
			return
		case msg := <-s.input:
			if !s.waitWhilePaused() {
				return
			}
			s.handle(msg)
		}
	}
}

// waitWhilePaused parks until the session resumes. Returns false when the
// session was cancelled while paused.
func (s *Session) waitWhilePaused() bool {
	for s.Status() == StatusPaused {
		select {
		case <-s.ctx.Done():
			return false
		case <-s.resume:
		}
	}
	return true
}

func (s *Session) handle(msg Message) {
	s.touch()
	if msg.Type != MessageTypeUser || s.processor == nil {
		return
	}

	result, err := s.processor.Process(s.ctx, msg.Content, s.ID)
	if err != nil {
		// Context cancellation during destroy; anything else still yields a
		// response so the conversation is never left hanging.
		if s.ctx.Err() != nil {
			return
		}
		s.logger.Error("session %s: processing failed: %v", s.ID, err)
		result = &core.FinalResult{
			Response: fmt.Sprintf("Processing failed: %v", err),
			Success:  false,
		}
	}

	reply := Message{
		ID:        util.NewID(),
		Type:      MessageTypeAssistant,
		Content:   result.Response,
		CreatedAt: time.Now(),
		Metadata: map[string]any{
			"success":     result.Success,
			"in_reply_to": msg.ID,
		},
	}
	select {
	case s.output <- reply:
	case <-s.ctx.Done():
	}
	s.touch()
}

// SendMessage enqueues a message and returns its id immediately; it never
// blocks on processing. A full input queue is reported as ErrQueueFull.
func (s *Session) SendMessage(content string, msgType MessageType, metadata map[string]any) (string, error) {
	status := s.Status()
	if status != StatusActive && status != StatusPaused {
		return "", fmt.Errorf("%w: session %s is %s", ErrSessionNotActive, s.ID, status)
	}

	msg := Message{
		ID:        util.NewID(),
		Type:      msgType,
		Content:   content,
		Metadata:  metadata,
		CreatedAt: time.Now(),
	}
	select {
	case s.input <- msg:
		s.touch()
		return msg.ID, nil
	default:
		return "", fmt.Errorf("%w: session %s input queue", ErrQueueFull, s.ID)
	}
}

// ReceiveMessage blocks up to timeout for the next output message and returns
// nil when none arrives in time. The nil sentinel is not an error.
func (s *Session) ReceiveMessage(timeout time.Duration) *Message {
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case msg := <-s.output:
		s.touch()
		return &msg
	case <-timer.C:
		return nil
	case <-s.ctx.Done():
		return nil
	}
}

// Pause suspends message processing; queued input is retained.
func (s *Session) Pause() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status == StatusActive {
		s.status = StatusPaused
	}
}

// Resume reactivates a paused session and wakes its loop.
func (s *Session) Resume() {
	s.mu.Lock()
	if s.status == StatusPaused {
		s.status = StatusActive
	}
	s.mu.Unlock()
	select {
	case s.resume <- struct{}{}:
	default:
	}
}

// destroy cancels the loop, waits for it, drains both queues and marks the
// session Expired. Any fault leaves the terminal status Error, never a stale
// Active.
func (s *Session) destroy() (err error) {
	defer func() {
		if r := recover(); r != nil {
			s.setStatus(StatusError)
			err = fmt.Errorf("session %s: destroy panicked: %v", s.ID, r)
		}
	}()

	s.setStatus(StatusCleaningUp)
	s.cancel()
	s.wg.Wait()

	for drained := false; !drained; {
		select {
		case <-s.input:
		case <-s.output:
		default:
			drained = true
		}
	}

	s.setStatus(StatusExpired)
	return nil
}

// Status returns the current lifecycle state.
func (s *Session) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status
}

func (s *Session) setStatus(status Status) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status.terminal() {
		return
	}
	s.status = status
}

// touch records activity and pushes the expiry window forward.
func (s *Session) touch() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastActivity = time.Now()
	s.expiresAt = s.lastActivity.Add(s.timeout)
}

// expired reports whether the expiry deadline has passed.
func (s *Session) expired(now time.Time) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return now.After(s.expiresAt)
}

// UpdateProjectContext merges the given entries into the session's project
// context map.
func (s *Session) UpdateProjectContext(entries map[string]any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k, v := range entries {
		s.projectContext[k] = v
	}
	s.lastActivity = time.Now()
	s.expiresAt = s.lastActivity.Add(s.timeout)
}

// ProjectContext returns a copy of the session's project context map.
func (s *Session) ProjectContext() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]any, len(s.projectContext))
	for k, v := range s.projectContext {
		out[k] = v
	}
	return out
}

// AddTask attaches a pending task to the session and returns it.
func (s *Session) AddTask(description string) TaskInfo {
	task := TaskInfo{
		ID:          util.NewID(),
		Description: description,
		Status:      TaskStatusPending,
		CreatedAt:   time.Now(),
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tasks = append(s.tasks, task)
	return task
}

// Tasks returns a copy of the session's task list.
func (s *Session) Tasks() []TaskInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]TaskInfo{}, s.tasks...)
}

// Snapshot returns a point-in-time Info view of the session.
func (s *Session) Snapshot() Info {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Info{
		ID:           s.ID,
		UserID:       s.UserID,
		ProjectID:    s.ProjectID,
		Status:       s.status,
		CreatedAt:    s.createdAt,
		LastActivity: s.lastActivity,
		ExpiresAt:    s.expiresAt,
		QueuedInput:  len(s.input),
		QueuedOutput: len(s.output),
		Tasks:        len(s.tasks),
	}
}
