package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"bear-monitor/internal/common/config"

	_ "github.com/lib/pq"
	"go.uber.org/zap"
)

// pingTimeout 单次探活的超时
const pingTimeout = 3 * time.Second

// NewPostgresDB 打开 bear-relay 的 PostgreSQL 连接池并等待数据库就绪
func NewPostgresDB(ctx context.Context, cfg *config.DatabaseConfig, logger *zap.Logger) (*sql.DB, error) {
	db, err := sql.Open("postgres", cfg.GetDSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	ConfigurePool(db, cfg)

	if err := WaitReady(ctx, db, cfg, logger); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// ConfigurePool 按配置设置连接池，未配置（0）的项保持 database/sql 默认值
func ConfigurePool(db *sql.DB, cfg *config.DatabaseConfig) {
	if cfg.MaxConns > 0 {
		db.SetMaxOpenConns(cfg.MaxConns)
	}
	if cfg.MaxIdle > 0 {
		idle := cfg.MaxIdle
		if cfg.MaxConns > 0 && idle > cfg.MaxConns {
			idle = cfg.MaxConns
		}
		db.SetMaxIdleConns(idle)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}
	if cfg.ConnMaxIdleTime > 0 {
		db.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)
	}
}

// WaitReady 探活直到成功，最多 PingAttempts 次（至少一次），间隔 PingInterval
func WaitReady(ctx context.Context, db *sql.DB, cfg *config.DatabaseConfig, logger *zap.Logger) error {
	attempts := cfg.PingAttempts
	if attempts < 1 {
		attempts = 1
	}

	var err error
	for i := 1; i <= attempts; i++ {
		pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
		err = db.PingContext(pingCtx)
		cancel()
		if err == nil {
			return nil
		}
		if i == attempts {
			break
		}
		logger.Warn("Database not ready, retrying",
			zap.String("host", cfg.Host),
			zap.Int("attempt", i),
			zap.Error(err),
		)
		select {
		case <-ctx.Done():
			return fmt.Errorf("failed to ping database: %w", ctx.Err())
		case <-time.After(cfg.PingInterval):
		}
	}
	return fmt.Errorf("failed to ping database after %d attempts: %w", attempts, err)
}
