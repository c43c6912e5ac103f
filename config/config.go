// Package config loads the explicit configuration value handed down through
// constructors. There is no process-wide mutable configuration: callers load
// a Config once and pass it to the wiring layer.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// LLMConfig selects and tunes the model provider.
type LLMConfig struct {
	// Provider is one of "anthropic", "openai" or "mock".
	Provider    string  `yaml:"provider"`
	Model       string  `yaml:"model"`
	APIKey      string  `yaml:"api_key"`
	Temperature float64 `yaml:"temperature"`
	MaxTokens   int64   `yaml:"max_tokens"`
}

// RedisConfig configures the shared Redis connection used by the persistent
// graph backend and checkpointer.
type RedisConfig struct {
	// URL is a redis:// connection string; the REDIS_URL environment
	// variable overrides it.
	URL string `yaml:"url"`
}

// GraphConfig selects the graph store backend.
type GraphConfig struct {
	// Backend is "memory" (volatile, non-transactional) or "redis"
	// (persistent, transactional).
	Backend string `yaml:"backend"`
}

// CheckpointConfig selects the workflow checkpoint backend.
type CheckpointConfig struct {
	Backend string        `yaml:"backend"` // "memory" or "redis"
	TTL     time.Duration `yaml:"ttl"`
}

// SessionConfig tunes the session runtime.
type SessionConfig struct {
	Timeout       time.Duration `yaml:"timeout"`
	SweepInterval time.Duration `yaml:"sweep_interval"`
	MaxSessions   int           `yaml:"max_sessions"`
	QueueSize     int           `yaml:"queue_size"`
}

// LoggingConfig tunes the structured logger.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json or text
}

// ToolsConfig lists the enabled extraction tools. An empty list enables the
// full default registry.
type ToolsConfig struct {
	Enabled []string `yaml:"enabled"`
}

// Config is the root configuration value.
type Config struct {
	LLM        LLMConfig        `yaml:"llm"`
	Redis      RedisConfig      `yaml:"redis"`
	Graph      GraphConfig      `yaml:"graph"`
	Checkpoint CheckpointConfig `yaml:"checkpoint"`
	Session    SessionConfig    `yaml:"session"`
	Logging    LoggingConfig    `yaml:"logging"`
	Tools      ToolsConfig      `yaml:"tools"`
}

// Default returns the baseline configuration: in-memory stores, mock model,
// one-hour sessions swept every five minutes.
func Default() *Config {
	return &Config{
		LLM:        LLMConfig{Provider: "mock", Temperature: 0.1, MaxTokens: 4000},
		Graph:      GraphConfig{Backend: "memory"},
		Checkpoint: CheckpointConfig{Backend: "memory", TTL: time.Hour},
		Session: SessionConfig{
			Timeout:       time.Hour,
			SweepInterval: 5 * time.Minute,
			MaxSessions:   1000,
			QueueSize:     100,
		},
		Logging: LoggingConfig{Level: "info", Format: "json"},
	}
}

// Load reads the YAML file at path (optional), overlays a .env file when one
// exists in the working directory, and applies environment overrides. A
// missing path yields defaults.
func Load(path string) (*Config, error) {
	// Best-effort: a missing .env is not an error.
	_ = godotenv.Load()

	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}
	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("REDIS_URL"); v != "" {
		c.Redis.URL = v
	}
	if v := os.Getenv("LLM_PROVIDER"); v != "" {
		c.LLM.Provider = v
	}
	if v := os.Getenv("LLM_MODEL"); v != "" {
		c.LLM.Model = v
	}
	if v := os.Getenv("LLM_API_KEY"); v != "" {
		c.LLM.APIKey = v
	}
	if v := os.Getenv("GRAPH_BACKEND"); v != "" {
		c.Graph.Backend = v
	}
	if v := os.Getenv("SESSION_TIMEOUT_SECONDS"); v != "" {
		if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
			c.Session.Timeout = time.Duration(secs) * time.Second
		}
	}
}

// Validate rejects configurations the wiring layer cannot honor.
func (c *Config) Validate() error {
	switch c.LLM.Provider {
	case "anthropic", "openai", "mock":
	default:
		return fmt.Errorf("unsupported llm provider: %q", c.LLM.Provider)
	}
	switch c.Graph.Backend {
	case "memory", "redis":
	default:
		return fmt.Errorf("unsupported graph backend: %q", c.Graph.Backend)
	}
	switch c.Checkpoint.Backend {
	case "memory", "redis":
	default:
		return fmt.Errorf("unsupported checkpoint backend: %q", c.Checkpoint.Backend)
	}
	if (c.Graph.Backend == "redis" || c.Checkpoint.Backend == "redis") && c.Redis.URL == "" {
		return fmt.Errorf("redis backend selected but no redis url configured")
	}
	if c.Session.MaxSessions <= 0 {
		return fmt.Errorf("session max_sessions must be positive")
	}
	if c.Session.QueueSize <= 0 {
		return fmt.Errorf("session queue_size must be positive")
	}
	return nil
}
