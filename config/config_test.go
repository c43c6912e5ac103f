package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_MissingPathYieldsDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "mock", cfg.LLM.Provider)
	assert.Equal(t, "memory", cfg.Graph.Backend)
	assert.Equal(t, time.Hour, cfg.Session.Timeout)
}

func TestLoad_YAMLOverlay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
llm:
  provider: anthropic
  model: claude-3-5-sonnet-20241022
graph:
  backend: redis
redis:
  url: redis://localhost:6379/0
session:
  max_sessions: 5
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "anthropic", cfg.LLM.Provider)
	assert.Equal(t, "redis", cfg.Graph.Backend)
	assert.Equal(t, 5, cfg.Session.MaxSessions)
	assert.Equal(t, 100, cfg.Session.QueueSize, "unset fields keep defaults")
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("LLM_PROVIDER", "openai")
	t.Setenv("GRAPH_BACKEND", "memory")
	t.Setenv("SESSION_TIMEOUT_SECONDS", "90")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "openai", cfg.LLM.Provider)
	assert.Equal(t, 90*time.Second, cfg.Session.Timeout)
}

func TestValidate(t *testing.T) {
	cfg := Default()
	assert.NoError(t, cfg.Validate())

	cfg = Default()
	cfg.LLM.Provider = "oracle"
	assert.Error(t, cfg.Validate())

	cfg = Default()
	cfg.Graph.Backend = "redis" // no redis url configured
	assert.Error(t, cfg.Validate())

	cfg = Default()
	cfg.Session.QueueSize = 0
	assert.Error(t, cfg.Validate())
}
