package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/puntini/puntini/logging"
)

// ManagerOptions configures a Manager.
type ManagerOptions struct {
	// Timeout is the per-session inactivity window before the sweep destroys
	// the session.
	Timeout time.Duration

	// SweepInterval is how often the background sweep scans for expired
	// sessions.
	SweepInterval time.Duration

	// MaxSessions caps concurrently live sessions. Creating one past the cap
	// evicts the single oldest-by-creation session first.
	MaxSessions int

	// QueueSize bounds each session's input and output queues.
	QueueSize int

	Logger logging.Logger
}

// ManagerStats summarizes the live session table.
type ManagerStats struct {
	Total       int            `json:"total"`
	ByStatus    map[Status]int `json:"by_status"`
	MaxSessions int            `json:"max_sessions"`
}

// Manager owns the session table. The table lock guards the maps; each
// session additionally has a structural lock serializing create/destroy
// against concurrent structural calls for the same id.
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	locks    map[string]*sync.Mutex
	closed   bool

	processor Processor
	opts      ManagerOptions

	done chan struct{}
	wg   sync.WaitGroup
}

// NewManager constructs a Manager and starts its background expiry sweep.
func NewManager(processor Processor, optFns ...func(o *ManagerOptions)) *Manager {
	opts := ManagerOptions{
		Timeout:       30 * time.Minute,
		SweepInterval: time.Minute,
		MaxSessions:   100,
		QueueSize:     32,
		Logger:        logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	m := &Manager{
		sessions:  make(map[string]*Session),
		locks:     make(map[string]*sync.Mutex),
		processor: processor,
		opts:      opts,
		done:      make(chan struct{}),
	}
	m.wg.Add(1)
	go m.sweepLoop()
	return m
}

// CreateSession creates and registers a new session for the user. At
// capacity, the oldest-by-creation session is evicted to make room.
func (m *Manager) CreateSession(userID, projectID string, metadata map[string]any) (*Session, error) {
	if userID == "" {
		return nil, fmt.Errorf("user id is required")
	}

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil, ErrManagerClosed
	}
	evict := ""
	if len(m.sessions) >= m.opts.MaxSessions {
		evict = m.oldestLocked()
	}
	m.mu.Unlock()

	if evict != "" {
		m.opts.Logger.Warn("session capacity reached, evicting oldest session %s", evict)
		if err := m.DestroySession(evict); err != nil {
			return nil, fmt.Errorf("failed to evict session %s: %w", evict, err)
		}
	}

	s := newSession(context.Background(), userID, projectID, metadata, m.processor, m.opts.Timeout, m.opts.QueueSize, m.opts.Logger)

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		_ = s.destroy()
		return nil, ErrManagerClosed
	}
	m.sessions[s.ID] = s
	m.locks[s.ID] = &sync.Mutex{}
	m.opts.Logger.Info("created session %s for user %s", s.ID, userID)
	return s, nil
}

// GetSession returns the live session for id.
func (m *Manager) GetSession(id string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	return s, nil
}

// DestroySession cancels the session's loop and workers, drains its queues
// and removes it from the table. Failures are reported, never swallowed, and
// the record is removed regardless so a broken session cannot leak.
func (m *Manager) DestroySession(id string) error {
	m.mu.Lock()
	s, ok := m.sessions[id]
	lock := m.locks[id]
	m.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}

	lock.Lock()
	defer lock.Unlock()

	err := s.destroy()

	m.mu.Lock()
	delete(m.sessions, id)
	delete(m.locks, id)
	m.mu.Unlock()

	if err != nil {
		m.opts.Logger.Error("failed to destroy session %s: %v", id, err)
		return err
	}
	m.opts.Logger.Info("destroyed session %s", id)
	return nil
}

// ListSessions returns snapshots of all live sessions.
func (m *Manager) ListSessions() []Info {
	m.mu.RLock()
	sessions := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		sessions = append(sessions, s)
	}
	m.mu.RUnlock()

	infos := make([]Info, 0, len(sessions))
	for _, s := range sessions {
		infos = append(infos, s.Snapshot())
	}
	return infos
}

// Stats summarizes the session table.
func (m *Manager) Stats() ManagerStats {
	stats := ManagerStats{
		ByStatus:    map[Status]int{},
		MaxSessions: m.opts.MaxSessions,
	}
	for _, info := range m.ListSessions() {
		stats.Total++
		stats.ByStatus[info.Status]++
	}
	return stats
}

// Close stops the sweep and destroys every live session.
func (m *Manager) Close() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	ids := make([]string, 0, len(m.sessions))
	for id := range m.sessions {
		ids = append(ids, id)
	}
	m.mu.Unlock()

	close(m.done)
	m.wg.Wait()

	var firstErr error
	for _, id := range ids {
		if err := m.DestroySession(id); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// oldestLocked returns the id of the oldest-by-creation session. Caller holds
// the table lock.
func (m *Manager) oldestLocked() string {
	oldestID := ""
	var oldestAt time.Time
	for id, s := range m.sessions {
		s.mu.RLock()
		createdAt := s.createdAt
		s.mu.RUnlock()
		if oldestID == "" || createdAt.Before(oldestAt) {
			oldestID = id
			oldestAt = createdAt
		}
	}
	return oldestID
}

// sweepLoop periodically destroys sessions whose expiry deadline has passed.
func (m *Manager) sweepLoop() {
	defer m.wg.Done()
	ticker := time.NewTicker(m.opts.SweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-m.done:
			return
		case now := <-ticker.C:
			m.sweep(now)
		}
	}
}

func (m *Manager) sweep(now time.Time) {
	m.mu.RLock()
	var expired []string
	for id, s := range m.sessions {
		if s.expired(now) {
			expired = append(expired, id)
		}
	}
	m.mu.RUnlock()

	for _, id := range expired {
		m.opts.Logger.Info("sweeping expired session %s", id)
		if err := m.DestroySession(id); err != nil {
			m.opts.Logger.Error("sweep failed to destroy session %s: %v", id, err)
		}
	}
}
