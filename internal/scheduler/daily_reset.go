package scheduler

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// MinInterval 检查间隔下限
const MinInterval = time.Minute

// Roller 跨天检查目标（由 session.Session 实现）
type Roller interface {
	CheckRollover(ctx context.Context, now time.Time) bool
}

// DailyReset 每日零点重置调度器
type DailyReset struct {
	target   Roller
	interval time.Duration
	now      func() time.Time
	logger   *zap.Logger
}

// NewDailyReset 创建调度器，interval 小于一分钟时按一分钟处理
func NewDailyReset(target Roller, interval time.Duration, now func() time.Time, logger *zap.Logger) *DailyReset {
	if interval < MinInterval {
		interval = MinInterval
	}
	if now == nil {
		now = time.Now
	}
	return &DailyReset{
		target:   target,
		interval: interval,
		now:      now,
		logger:   logger,
	}
}

// Interval 实际检查间隔
func (d *DailyReset) Interval() time.Duration { return d.interval }

// Start 启动调度（阻塞直到 ctx 取消）
func (d *DailyReset) Start(ctx context.Context) error {
	d.logger.Info("Daily reset scheduler started",
		zap.Duration("interval", d.interval),
	)

	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	// 立即执行一次
	d.Check(ctx)

	for {
		select {
		case <-ctx.Done():
			d.logger.Info("Daily reset scheduler stopped")
			return nil
		case <-ticker.C:
			d.Check(ctx)
		}
	}
}

// Check 执行一次跨天检查
func (d *DailyReset) Check(ctx context.Context) bool {
	now := d.now()
	rolled := d.target.CheckRollover(ctx, now)
	if rolled {
		d.logger.Info("Day rolled over", zap.Time("now", now))
	}
	return rolled
}
