package session

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/puntini/puntini/core"
)

// echoProcessor replies deterministically and records the goals it saw.
type echoProcessor struct {
	mu    sync.Mutex
	goals []string
	delay time.Duration
	fail  error
}

func (p *echoProcessor) Process(ctx context.Context, goal, threadID string) (*core.FinalResult, error) {
	if p.delay > 0 {
		select {
		case <-time.After(p.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	p.mu.Lock()
	p.goals = append(p.goals, goal)
	p.mu.Unlock()
	if p.fail != nil {
		return nil, p.fail
	}
	return &core.FinalResult{Response: "echo: " + goal, Success: true}, nil
}

func (p *echoProcessor) seen() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string{}, p.goals...)
}

func newTestManager(t *testing.T, processor Processor, optFns ...func(o *ManagerOptions)) *Manager {
	t.Helper()
	all := append([]func(o *ManagerOptions){func(o *ManagerOptions) {
		o.Timeout = time.Minute
		o.SweepInterval = time.Hour // keep the sweep out of deterministic tests
		o.MaxSessions = 4
		o.QueueSize = 4
	}}, optFns...)
	m := NewManager(processor, all...)
	t.Cleanup(func() { _ = m.Close() })
	return m
}

func TestSession_SendAndReceive(t *testing.T) {
	m := newTestManager(t, &echoProcessor{})
	sess, err := m.CreateSession("user-1", "proj-1", nil)
	require.NoError(t, err)
	assert.Equal(t, StatusActive, sess.Status())

	id, err := sess.SendMessage("create project Alpha", MessageTypeUser, nil)
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	reply := sess.ReceiveMessage(2 * time.Second)
	require.NotNil(t, reply)
	assert.Equal(t, MessageTypeAssistant, reply.Type)
	assert.Equal(t, "echo: create project Alpha", reply.Content)
	assert.Equal(t, id, reply.Metadata["in_reply_to"])
	assert.Equal(t, true, reply.Metadata["success"])
}

func TestSession_FIFOOrdering(t *testing.T) {
	processor := &echoProcessor{}
	m := newTestManager(t, processor)
	sess, err := m.CreateSession("user-1", "", nil)
	require.NoError(t, err)

	want := []string{"first", "second", "third"}
	for _, goal := range want {
		_, err := sess.SendMessage(goal, MessageTypeUser, nil)
		require.NoError(t, err)
	}
	for range want {
		require.NotNil(t, sess.ReceiveMessage(2*time.Second))
	}
	assert.Equal(t, want, processor.seen(), "input messages are handled in arrival order")
}

func TestSession_ReceiveTimeoutReturnsSentinel(t *testing.T) {
	m := newTestManager(t, &echoProcessor{})
	sess, err := m.CreateSession("user-1", "", nil)
	require.NoError(t, err)

	start := time.Now()
	msg := sess.ReceiveMessage(100 * time.Millisecond)
	assert.Nil(t, msg, "timeout yields the no-message sentinel, not an error")
	assert.Less(t, time.Since(start), time.Second)
}

func TestSession_QueueFull(t *testing.T) {
	// A slow processor lets the bounded input queue fill up.
	m := newTestManager(t, &echoProcessor{delay: time.Minute}, func(o *ManagerOptions) {
		o.QueueSize = 1
	})
	sess, err := m.CreateSession("user-1", "", nil)
	require.NoError(t, err)

	// First message is picked up by the loop; the second occupies the queue
	// slot; eventually one more must be rejected without blocking.
	deadline := time.Now().Add(2 * time.Second)
	var lastErr error
	for time.Now().Before(deadline) {
		if _, lastErr = sess.SendMessage("goal", MessageTypeUser, nil); lastErr != nil {
			break
		}
	}
	require.Error(t, lastErr)
	assert.ErrorIs(t, lastErr, ErrQueueFull)
}

func TestSession_ProcessorFailureStillReplies(t *testing.T) {
	m := newTestManager(t, &echoProcessor{fail: fmt.Errorf("engine down")})
	sess, err := m.CreateSession("user-1", "", nil)
	require.NoError(t, err)

	_, err = sess.SendMessage("goal", MessageTypeUser, nil)
	require.NoError(t, err)

	reply := sess.ReceiveMessage(2 * time.Second)
	require.NotNil(t, reply, "a processing failure still produces a reply")
	assert.Equal(t, false, reply.Metadata["success"])
	assert.Contains(t, reply.Content, "engine down")
}

func TestSession_PauseAndResume(t *testing.T) {
	processor := &echoProcessor{}
	m := newTestManager(t, processor)
	sess, err := m.CreateSession("user-1", "", nil)
	require.NoError(t, err)

	sess.Pause()
	assert.Equal(t, StatusPaused, sess.Status())

	_, err = sess.SendMessage("held", MessageTypeUser, nil)
	require.NoError(t, err, "paused sessions still accept input")
	assert.Nil(t, sess.ReceiveMessage(150*time.Millisecond), "no processing while paused")

	sess.Resume()
	assert.Equal(t, StatusActive, sess.Status())
	reply := sess.ReceiveMessage(2 * time.Second)
	require.NotNil(t, reply)
	assert.Equal(t, "echo: held", reply.Content)
}

func TestSession_ProjectContextAndTasks(t *testing.T) {
	m := newTestManager(t, &echoProcessor{})
	sess, err := m.CreateSession("user-1", "proj-1", nil)
	require.NoError(t, err)

	sess.UpdateProjectContext(map[string]any{"key": "TEST"})
	sess.UpdateProjectContext(map[string]any{"phase": "alpha"})
	got := sess.ProjectContext()
	assert.Equal(t, "TEST", got["key"])
	assert.Equal(t, "alpha", got["phase"])

	// Returned copies never alias internal state.
	got["key"] = "mutated"
	assert.Equal(t, "TEST", sess.ProjectContext()["key"])

	task := sess.AddTask("verify the graph")
	assert.Equal(t, TaskStatusPending, task.Status)
	require.Len(t, sess.Tasks(), 1)

	info := sess.Snapshot()
	assert.Equal(t, 1, info.Tasks)
	assert.Equal(t, "proj-1", info.ProjectID)
}
