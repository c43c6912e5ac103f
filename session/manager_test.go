package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManager_DestroyedSessionIsGone(t *testing.T) {
	m := newTestManager(t, &echoProcessor{})
	sess, err := m.CreateSession("user-1", "", nil)
	require.NoError(t, err)

	got, err := m.GetSession(sess.ID)
	require.NoError(t, err)
	assert.Same(t, sess, got)

	require.NoError(t, m.DestroySession(sess.ID))
	assert.Equal(t, StatusExpired, sess.Status())

	_, err = m.GetSession(sess.ID)
	assert.ErrorIs(t, err, ErrSessionNotFound)

	err = m.DestroySession(sess.ID)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestManager_CapacityEvictsOldest(t *testing.T) {
	m := newTestManager(t, &echoProcessor{}, func(o *ManagerOptions) {
		o.MaxSessions = 2
	})

	first, err := m.CreateSession("user-1", "", nil)
	require.NoError(t, err)
	second, err := m.CreateSession("user-2", "", nil)
	require.NoError(t, err)

	third, err := m.CreateSession("user-3", "", nil)
	require.NoError(t, err)

	_, err = m.GetSession(first.ID)
	assert.ErrorIs(t, err, ErrSessionNotFound, "oldest-by-creation session is evicted")
	_, err = m.GetSession(second.ID)
	assert.NoError(t, err)
	_, err = m.GetSession(third.ID)
	assert.NoError(t, err)
	assert.Equal(t, StatusExpired, first.Status())
}

func TestManager_SweepDestroysExpired(t *testing.T) {
	m := newTestManager(t, &echoProcessor{}, func(o *ManagerOptions) {
		o.Timeout = time.Millisecond
	})
	sess, err := m.CreateSession("user-1", "", nil)
	require.NoError(t, err)

	time.Sleep(5 * time.Millisecond)
	m.sweep(time.Now())

	_, err = m.GetSession(sess.ID)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestManager_ActivityExtendsExpiry(t *testing.T) {
	m := newTestManager(t, &echoProcessor{}, func(o *ManagerOptions) {
		o.Timeout = 200 * time.Millisecond
	})
	sess, err := m.CreateSession("user-1", "", nil)
	require.NoError(t, err)
	before := sess.Snapshot().ExpiresAt

	time.Sleep(20 * time.Millisecond)
	_, err = sess.SendMessage("keepalive", MessageTypeUser, nil)
	require.NoError(t, err)
	require.NotNil(t, sess.ReceiveMessage(2*time.Second))

	after := sess.Snapshot().ExpiresAt
	assert.True(t, after.After(before), "activity pushes the expiry forward")

	// A sweep just before the refreshed deadline leaves the session alive; one
	// past it does not.
	m.sweep(after.Add(-10 * time.Millisecond))
	_, err = m.GetSession(sess.ID)
	require.NoError(t, err)

	m.sweep(after.Add(time.Millisecond))
	_, err = m.GetSession(sess.ID)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestManager_ListAndStats(t *testing.T) {
	m := newTestManager(t, &echoProcessor{})
	_, err := m.CreateSession("user-1", "", nil)
	require.NoError(t, err)
	sess, err := m.CreateSession("user-2", "", nil)
	require.NoError(t, err)
	sess.Pause()

	infos := m.ListSessions()
	assert.Len(t, infos, 2)

	stats := m.Stats()
	assert.Equal(t, 2, stats.Total)
	assert.Equal(t, 1, stats.ByStatus[StatusActive])
	assert.Equal(t, 1, stats.ByStatus[StatusPaused])
	assert.Equal(t, 4, stats.MaxSessions)
}

func TestManager_CreateRequiresUser(t *testing.T) {
	m := newTestManager(t, &echoProcessor{})
	_, err := m.CreateSession("", "", nil)
	assert.Error(t, err)
}

func TestManager_CloseRejectsFurtherCreates(t *testing.T) {
	m := NewManager(&echoProcessor{}, func(o *ManagerOptions) {
		o.SweepInterval = time.Hour
	})
	sess, err := m.CreateSession("user-1", "", nil)
	require.NoError(t, err)

	require.NoError(t, m.Close())
	assert.Equal(t, StatusExpired, sess.Status())

	_, err = m.CreateSession("user-2", "", nil)
	assert.ErrorIs(t, err, ErrManagerClosed)

	assert.NoError(t, m.Close(), "closing twice is a no-op")
}
