package cli

import (
	"context"
	"fmt"

	"bear-monitor/internal/common/logger"
	"bear-monitor/internal/common/redis"
	"bear-monitor/internal/config"
	"bear-monitor/internal/store"

	"go.uber.org/zap"
)

// app 各命令共享的依赖
type app struct {
	cfg      *config.Config
	logger   *zap.Logger
	redis    *redis.Client
	auth     *store.AuthSession
	settings *store.SettingsStore
}

func newApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	log, err := logger.NewLogger(cfg.Log.Level, cfg.Log.Format, "bear-monitor")
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	a := &app{cfg: cfg, logger: log}
	if cfg.NeedsRedis() {
		client, err := redis.Connect(ctx, &cfg.Redis)
		if err != nil {
			return nil, err
		}
		a.redis = client
	}

	var kv store.KV
	if cfg.State.Backend == "redis" {
		kv = store.NewRedisKV(a.redis, cfg.State.Prefix)
	} else {
		kv = store.NewFileKV(cfg.State.File)
	}
	a.auth = store.NewAuthSession(kv)
	a.settings = store.NewSettingsStore(kv)

	if err := a.auth.Load(ctx); err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to load auth state: %w", err)
	}
	if err := a.settings.Load(ctx); err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to load settings: %w", err)
	}
	return a, nil
}

func (a *app) Close() {
	if a.redis != nil {
		_ = a.redis.Close()
	}
	_ = a.logger.Sync()
}
