package puntini

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/puntini/puntini/config"
	"github.com/puntini/puntini/model"
	"github.com/puntini/puntini/session"
)

func TestNew_WiresDefaultRuntime(t *testing.T) {
	ctx := context.Background()
	rt, err := New(ctx, config.Default())
	require.NoError(t, err)
	defer rt.Close()

	status, err := rt.Health(ctx)
	require.NoError(t, err)
	assert.Equal(t, "healthy", status.Status)

	result, err := rt.Process(ctx, "say hello", "t-wire")
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.NotEmpty(t, result.Response)
}

func TestRuntime_SessionRoundTrip(t *testing.T) {
	m := model.NewMockModel()
	m.AddResponse("Create an execution plan", `["Extract entities", "Apply changes"]`)
	m.AddResponse("Goal:\ncreate project", `[{"key": "TEST", "name": "Test Project"}]`)

	rt, err := New(context.Background(), config.Default(), func(o *Options) {
		o.Model = m
	})
	require.NoError(t, err)
	defer rt.Close()

	sess, err := rt.Sessions.CreateSession("user-1", "TEST", nil)
	require.NoError(t, err)

	_, err = sess.SendMessage("create project with key 'TEST' and name 'Test Project'", session.MessageTypeUser, nil)
	require.NoError(t, err)

	reply := sess.ReceiveMessage(5 * time.Second)
	require.NotNil(t, reply)
	assert.Equal(t, true, reply.Metadata["success"])

	rows, err := rt.Store.Query(context.Background(), "Project:", "keys")
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestNew_RejectsUnknownTool(t *testing.T) {
	cfg := config.Default()
	cfg.Tools.Enabled = []string{"extract_spaceship"}
	_, err := New(context.Background(), cfg)
	assert.Error(t, err)
}
