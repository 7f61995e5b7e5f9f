package cooldown

import (
	"context"
	"sync"
	"time"

	"bear-monitor/internal/models"
)

const (
	// CriticalWarningWindow 同类 critical 报警的最小间隔
	CriticalWarningWindow = 60 * time.Second
	// WarningWarningWindow 同类 warning 报警的最小间隔
	WarningWarningWindow = 300 * time.Second
	// AlertWindow 同类外发告警邮件的最小间隔
	AlertWindow = 300 * time.Second
)

// WarningWindow 按级别返回本地报警冷却时长
func WarningWindow(sev models.Severity) time.Duration {
	if sev == models.SeverityCritical {
		return CriticalWarningWindow
	}
	return WarningWarningWindow
}

// Store 冷却记录
// Acquire 是原子的检查并设置：距上次放行不足 window 时返回 false，否则记录 now 并返回 true。
// 窗口按调用方传入的 now 计算，不依赖存储端时钟。
type Store interface {
	Acquire(ctx context.Context, key string, window time.Duration, now time.Time) (bool, error)
	Reset(ctx context.Context) error
}

// MemoryStore 进程内冷却记录
type MemoryStore struct {
	mu   sync.Mutex
	last map[string]time.Time
}

// NewMemoryStore 创建内存冷却记录
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{last: make(map[string]time.Time)}
}

// Acquire 实现 Store
func (m *MemoryStore) Acquire(_ context.Context, key string, window time.Duration, now time.Time) (bool, error) {
	return m.Allow(key, window, now), nil
}

// Allow 同 Acquire，供不需要 context 的同步路径使用
func (m *MemoryStore) Allow(key string, window time.Duration, now time.Time) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if last, ok := m.last[key]; ok && now.Sub(last) < window {
		return false
	}
	m.last[key] = now
	return true
}

// Last 最近一次放行时间
func (m *MemoryStore) Last(key string) (time.Time, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.last[key]
	return t, ok
}

// Reset 清空所有记录
func (m *MemoryStore) Reset(_ context.Context) error {
	m.Clear()
	return nil
}

// Clear 同 Reset
func (m *MemoryStore) Clear() {
	m.mu.Lock()
	m.last = make(map[string]time.Time)
	m.mu.Unlock()
}
