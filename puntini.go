// Package puntini wires the configured components into a ready-to-use
// runtime: model provider, extraction tools, validation pipeline, graph
// store, checkpointer, escalation engine, orchestration engine and session
// manager. Everything is constructed explicitly from one Config value; there
// is no hidden process-wide state.
package puntini

import (
	"context"
	"fmt"

	anthropicsdk "github.com/anthropics/anthropic-sdk-go"

	"github.com/puntini/puntini/checkpoint"
	checkpointredis "github.com/puntini/puntini/checkpoint/redis"
	"github.com/puntini/puntini/config"
	"github.com/puntini/puntini/core"
	"github.com/puntini/puntini/engine"
	"github.com/puntini/puntini/escalation"
	"github.com/puntini/puntini/graphstore"
	graphredis "github.com/puntini/puntini/graphstore/redis"
	"github.com/puntini/puntini/logging"
	"github.com/puntini/puntini/model"
	"github.com/puntini/puntini/model/anthropic"
	"github.com/puntini/puntini/model/openai"
	"github.com/puntini/puntini/session"
	"github.com/puntini/puntini/tool"
	"github.com/puntini/puntini/validation"
)

// Runtime bundles the wired components. Construct one with New, use it, then
// Close it.
type Runtime struct {
	Config       *config.Config
	Logger       *logging.GraphAgentLogger
	Model        model.Model
	Store        core.GraphStore
	Checkpointer core.Checkpointer
	Engine       *engine.Engine
	Sessions     *session.Manager
}

// Options customizes wiring beyond what Config covers.
type Options struct {
	// Registry supplies the extractor constructors; nil uses the built-ins.
	Registry *tool.Registry

	// Model overrides the provider selected by Config; nil wires from config.
	Model model.Model
}

// New wires a Runtime from the configuration.
func New(ctx context.Context, cfg *config.Config, optFns ...func(o *Options)) (*Runtime, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	opts := Options{Registry: tool.DefaultRegistry()}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Registry == nil {
		opts.Registry = tool.DefaultRegistry()
	}

	logger := logging.NewLogger(&logging.LoggerConfig{
		Level:  logLevel(cfg.Logging.Level),
		Format: cfg.Logging.Format,
	})

	m := opts.Model
	if m == nil {
		var err error
		m, err = buildModel(cfg)
		if err != nil {
			return nil, err
		}
	}

	store, err := buildStore(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	checkpointer, err := buildCheckpointer(ctx, cfg)
	if err != nil {
		return nil, err
	}

	enabled := cfg.Tools.Enabled
	if len(enabled) == 0 {
		enabled = opts.Registry.Names()
	}
	extractors, err := opts.Registry.Build(enabled, tool.Dependencies{
		Model:  m,
		Logger: logger.WithComponent("tool"),
	})
	if err != nil {
		return nil, err
	}

	eng := engine.New(
		m,
		extractors,
		validation.New(func(o *validation.Options) {
			o.Logger = logger.WithComponent("validation")
		}),
		store,
		escalation.New(func(o *escalation.Options) {
			o.Logger = logger.WithComponent("escalation")
		}),
		func(o *engine.Options) {
			o.Logger = logger.WithComponent("engine")
			o.Checkpointer = checkpointer
		},
	)

	sessions := session.NewManager(eng, func(o *session.ManagerOptions) {
		o.Timeout = cfg.Session.Timeout
		o.SweepInterval = cfg.Session.SweepInterval
		o.MaxSessions = cfg.Session.MaxSessions
		o.QueueSize = cfg.Session.QueueSize
		o.Logger = logger.WithComponent("session")
	})

	return &Runtime{
		Config:       cfg,
		Logger:       logger,
		Model:        m,
		Store:        store,
		Checkpointer: checkpointer,
		Engine:       eng,
		Sessions:     sessions,
	}, nil
}

// Process runs one goal outside any session.
func (r *Runtime) Process(ctx context.Context, goal, threadID string) (*core.FinalResult, error) {
	return r.Engine.Process(ctx, goal, threadID)
}

// Health reports the graph store's health.
func (r *Runtime) Health(ctx context.Context) (*core.HealthStatus, error) {
	return r.Store.Health(ctx)
}

// Close shuts down the session manager and its sessions.
func (r *Runtime) Close() error {
	return r.Sessions.Close()
}

func buildModel(cfg *config.Config) (model.Model, error) {
	switch cfg.LLM.Provider {
	case "anthropic":
		return anthropic.NewModel(func(o *anthropic.Options) {
			if cfg.LLM.Model != "" {
				o.Model = anthropicsdk.Model(cfg.LLM.Model)
			}
			o.Temperature = cfg.LLM.Temperature
			if cfg.LLM.MaxTokens > 0 {
				o.MaxTokens = cfg.LLM.MaxTokens
			}
			o.APIKey = cfg.LLM.APIKey
		}), nil
	case "openai":
		return openai.NewModel(func(o *openai.Options) {
			if cfg.LLM.Model != "" {
				o.Model = cfg.LLM.Model
			}
			o.Temperature = cfg.LLM.Temperature
			if cfg.LLM.MaxTokens > 0 {
				o.MaxCompletionTokens = cfg.LLM.MaxTokens
			}
			o.APIKey = cfg.LLM.APIKey
		}), nil
	case "mock":
		return model.NewMockModel(), nil
	default:
		return nil, fmt.Errorf("unsupported llm provider: %q", cfg.LLM.Provider)
	}
}

func buildStore(ctx context.Context, cfg *config.Config, logger *logging.GraphAgentLogger) (core.GraphStore, error) {
	switch cfg.Graph.Backend {
	case "redis":
		return graphredis.New(ctx, cfg.Redis.URL, func(o *graphredis.Options) {
			o.Logger = logger.WithComponent("graphstore")
		})
	default:
		return graphstore.NewMemoryStore(func(o *graphstore.MemoryStoreOptions) {
			o.Logger = logger.WithComponent("graphstore")
		}), nil
	}
}

func buildCheckpointer(ctx context.Context, cfg *config.Config) (core.Checkpointer, error) {
	switch cfg.Checkpoint.Backend {
	case "redis":
		return checkpointredis.New(ctx, cfg.Redis.URL, func(o *checkpointredis.Options) {
			o.TTL = cfg.Checkpoint.TTL
		})
	default:
		return checkpoint.NewInMemoryCheckpointer(func(o *checkpoint.InMemoryCheckpointerOptions) {
			o.TTL = cfg.Checkpoint.TTL
		}), nil
	}
}

func logLevel(level string) logging.LogLevel {
	switch level {
	case "debug":
		return logging.LogLevelDebug
	case "warn":
		return logging.LogLevelWarn
	case "error":
		return logging.LogLevelError
	default:
		return logging.LogLevelInfo
	}
}
