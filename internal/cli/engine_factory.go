package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/aretw0/flowengine"
	"github.com/aretw0/flowengine/internal/config"
	"github.com/aretw0/flowengine/pkg/adapters/memory"
	"github.com/aretw0/flowengine/pkg/adapters/process"
	"github.com/aretw0/flowengine/pkg/adapters/redis"
	"github.com/aretw0/flowengine/pkg/domain"
	"github.com/aretw0/flowengine/pkg/persistence/middleware"
	"github.com/aretw0/flowengine/pkg/ports"
)

// NewEngine initializes an engine from the configuration: store backend,
// iteration cap, step timeout, worker count and command handlers. The redis
// backend is pinged before the engine is returned.
func NewEngine(ctx context.Context, cfg config.Config, logger *slog.Logger, extra ...flowengine.Option) (*flowengine.Engine, error) {
	var tools []process.Tool
	if cfg.Engine.ToolsFile != "" {
		var err error
		if tools, err = process.LoadTools(cfg.Engine.ToolsFile); err != nil {
			return nil, err
		}
	}

	store, err := newStore(ctx, cfg.Store)
	if err != nil {
		return nil, err
	}

	opts := []flowengine.Option{
		flowengine.WithLogger(logger),
		flowengine.WithStore(store),
		flowengine.WithMaxIterations(cfg.Engine.MaxIterations),
		flowengine.WithStepTimeout(cfg.Engine.StepTimeout),
		flowengine.WithWorkers(cfg.Engine.Workers),
	}
	if logger.Enabled(ctx, slog.LevelDebug) {
		opts = append(opts, flowengine.WithLifecycleHooks(createDebugHooks(logger)))
	}
	eng := flowengine.New(append(opts, extra...)...)

	if len(tools) > 0 {
		process.Register(eng.Registry(), tools, process.WithBaseDir(filepath.Dir(cfg.Engine.ToolsFile)))
		logger.Info("registered command handlers", "count", len(tools), "file", cfg.Engine.ToolsFile)
	}
	return eng, nil
}

func newStore(ctx context.Context, cfg config.StoreConfig) (ports.Store, error) {
	base, err := newBackend(ctx, cfg)
	if err != nil {
		return nil, err
	}
	mws, err := storeMiddlewares(cfg)
	if err != nil {
		if c, ok := base.(io.Closer); ok {
			_ = c.Close()
		}
		return nil, err
	}
	return middleware.Chain(base, mws...), nil
}

// storeMiddlewares masks before sealing, so decrypted runs stay masked.
func storeMiddlewares(cfg config.StoreConfig) ([]middleware.Middleware, error) {
	var mws []middleware.Middleware
	if len(cfg.RedactKeys) > 0 {
		pii, err := middleware.NewPIIMiddleware(cfg.RedactKeys)
		if err != nil {
			return nil, err
		}
		mws = append(mws, pii)
	}
	active, fallback, err := cfg.EncryptionKeys()
	if err != nil {
		return nil, err
	}
	if active != nil {
		enc, err := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{
			ActiveKey:    active,
			FallbackKeys: fallback,
		})
		if err != nil {
			return nil, err
		}
		mws = append(mws, enc)
	}
	return mws, nil
}

func newBackend(ctx context.Context, cfg config.StoreConfig) (ports.Store, error) {
	switch cfg.Backend {
	case "", config.BackendMemory:
		return memory.NewStore(), nil
	case config.BackendRedis:
		store := redis.New(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB,
			redis.WithPrefix(cfg.Redis.Prefix),
			redis.WithTTL(cfg.Redis.TTL),
		)
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := store.Ping(pingCtx); err != nil {
			store.Close()
			return nil, fmt.Errorf("redis store unavailable at %s: %w", cfg.Redis.Addr, err)
		}
		return store, nil
	}
	return nil, fmt.Errorf("unknown store backend %q", cfg.Backend)
}

func createDebugHooks(logger *slog.Logger) domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnRunStart: func(ctx context.Context, e *domain.RunEvent) {
			logger.Debug("Run Start", "run_id", e.RunID)
		},
		OnStepStart: func(ctx context.Context, e *domain.StepEvent) {
			logger.Debug("Enter Node", "run_id", e.RunID, "node_id", e.NodeID, "handler", e.Handler)
		},
		OnStepEnd: func(ctx context.Context, e *domain.StepEvent) {
			if e.Err != nil {
				logger.Debug("Leave Node (Error)", "node_id", e.NodeID, "status", e.Status, "err", e.Err)
				return
			}
			logger.Debug("Leave Node", "node_id", e.NodeID, "status", e.Status, "duration", e.Duration)
		},
		OnRunEnd: func(ctx context.Context, e *domain.RunEvent) {
			logger.Debug("Run End", "run_id", e.RunID, "iterations", e.Iterations, "failed", e.Failed, "exhausted", e.Exhausted)
		},
	}
}
