package alert

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"bear-monitor/internal/cooldown"
	"bear-monitor/internal/models"

	"go.uber.org/zap"
)

const (
	// DefaultTimeout 单次中继调用超时
	DefaultTimeout = 10 * time.Second
	// DefaultQueueSize 待发送队列长度
	DefaultQueueSize = 32
)

// TokenSource 提供当前的 bearer token，未登录时返回 false
type TokenSource interface {
	Token() (string, bool)
}

// Options 分发器参数
type Options struct {
	QueueSize int
	Timeout   time.Duration
	Window    time.Duration // 同类告警最小间隔，默认 cooldown.AlertWindow
	// Enabled 为 nil 时始终发送；返回 false 时跳过（用户关闭了健康告警）
	Enabled func() bool
}

type job struct {
	event  models.WarningEvent
	sample models.Sample
	epoch  uint64 // 入队时的冷却重置序号
}

// Dispatcher 告警分发器
// Submit 只入队不阻塞；单个 worker 按 FIFO 顺序处理冷却检查和中继调用。
type Dispatcher struct {
	relay   Relay
	tokens  TokenSource
	store   cooldown.Store
	logger  *zap.Logger
	timeout time.Duration
	window  time.Duration
	enabled func() bool

	jobs   chan job
	epoch  atomic.Uint64
	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

// NewDispatcher 创建分发器，store 为 nil 时使用内存冷却记录
func NewDispatcher(relay Relay, tokens TokenSource, store cooldown.Store, opts Options, logger *zap.Logger) *Dispatcher {
	if store == nil {
		store = cooldown.NewMemoryStore()
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = DefaultQueueSize
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.Window <= 0 {
		opts.Window = cooldown.AlertWindow
	}
	return &Dispatcher{
		relay:   relay,
		tokens:  tokens,
		store:   store,
		logger:  logger,
		timeout: opts.Timeout,
		window:  opts.Window,
		enabled: opts.Enabled,
		jobs:    make(chan job, opts.QueueSize),
	}
}

// Start 启动 worker
func (d *Dispatcher) Start(ctx context.Context) {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		var applied uint64
		for j := range d.jobs {
			if j.epoch != applied {
				applied = j.epoch
				if err := d.ResetCooldowns(ctx); err != nil {
					d.logger.Error("Failed to reset alert cooldowns", zap.Error(err))
				}
			}
			d.process(ctx, j)
		}
	}()
}

// Stop 停止接收新告警，处理完队列中剩余的任务后返回
func (d *Dispatcher) Stop() {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.jobs)
	}
	d.mu.Unlock()
	d.wg.Wait()
}

// Submit 提交一个 critical 报警事件，返回是否入队
func (d *Dispatcher) Submit(event models.WarningEvent, sample models.Sample) bool {
	if event.Severity != models.SeverityCritical {
		return false
	}

	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return false
	}

	select {
	case d.jobs <- job{event: event, sample: sample, epoch: d.epoch.Load()}:
		return true
	default:
		d.logger.Warn("Alert queue full, dropping alert",
			zap.String("event_id", event.ID),
			zap.String("category_key", event.Category().Key()),
		)
		return false
	}
}

// QueueReset 在队列中插入一次冷却重置
// 之后提交的任务被处理前，worker 先清空冷却记录；已入队的任务不受影响。
func (d *Dispatcher) QueueReset() {
	d.epoch.Add(1)
}

// ResetCooldowns 立即清空告警冷却记录
func (d *Dispatcher) ResetCooldowns(ctx context.Context) error {
	return d.store.Reset(ctx)
}

func (d *Dispatcher) process(ctx context.Context, j job) {
	key := j.event.Category().Key()

	if d.enabled != nil && !d.enabled() {
		d.logger.Debug("Health alerts disabled, skipping alert",
			zap.String("category_key", key),
		)
		return
	}

	token, ok := d.tokens.Token()
	if !ok || token == "" {
		d.logger.Warn("No bearer token, skipping alert",
			zap.String("category_key", key),
		)
		return
	}

	allowed, err := d.store.Acquire(ctx, key, d.window, j.event.Time)
	if err != nil {
		// 冷却存储不可用时照常发送
		d.logger.Error("Failed to check alert cooldown",
			zap.String("category_key", key),
			zap.Error(err),
		)
		allowed = true
	}
	if !allowed {
		d.logger.Debug("Alert suppressed by cooldown",
			zap.String("category_key", key),
		)
		return
	}

	req := Build(j.event, j.sample)

	callCtx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	resp, err := d.relay.SendAlert(callCtx, token, req)
	if err != nil {
		d.logger.Error("Failed to send alert",
			zap.String("alert_type", req.AlertType),
			zap.String("event_id", j.event.ID),
			zap.Error(err),
		)
		return
	}
	if resp == nil {
		resp = &models.AlertResponse{}
	}

	d.logger.Info("Alert sent",
		zap.String("alert_type", req.AlertType),
		zap.String("event_id", j.event.ID),
		zap.Int("sent", resp.Sent),
		zap.Int("total", resp.Total),
		zap.Strings("failed", resp.Failed),
	)
}
