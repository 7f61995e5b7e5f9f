package session

import (
	"context"
	"sync"
	"time"

	"bear-monitor/internal/cooldown"
	"bear-monitor/internal/evaluator"
	"bear-monitor/internal/history"
	"bear-monitor/internal/models"
	"bear-monitor/internal/parser"
	"bear-monitor/internal/transport"

	"go.uber.org/zap"
)

const dayLayout = "2006-01-02"

// AlertSubmitter 告警分发（由 alert.Dispatcher 实现）
type AlertSubmitter interface {
	Submit(event models.WarningEvent, sample models.Sample) bool
	QueueReset()
}

// Options 会话参数
type Options struct {
	HistoryCapacity int
	Location        *time.Location
	Thresholds      *evaluator.Thresholds
	Now             func() time.Time
	// ResetCooldownsAtMidnight 跨天时同时清空报警和告警冷却记录
	ResetCooldownsAtMidnight bool
}

// Session 一个设备连接会话及其遥测状态
// 传输回调、定时器和 API 调用都通过 mu 串行化。
type Session struct {
	provider   transport.Provider
	dispatcher AlertSubmitter
	eval       *evaluator.Evaluator
	loc        *time.Location
	now        func() time.Time
	logger     *zap.Logger

	resetCooldowns bool

	mu           sync.Mutex
	state        models.SessionState
	generation   uint64
	conn         transport.Conn
	sub          transport.Subscription
	deviceLabel  string
	battery      *float64
	latest       *models.Sample
	history      *history.Buffer
	warnings     []models.WarningEvent
	warnCooldown *cooldown.MemoryStore
	day          string
}

// New 创建会话，dispatcher 可以为 nil（不外发告警）
func New(provider transport.Provider, dispatcher AlertSubmitter, opts Options, logger *zap.Logger) *Session {
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	th := evaluator.DefaultThresholds()
	if opts.Thresholds != nil {
		th = *opts.Thresholds
	}

	s := &Session{
		provider:       provider,
		dispatcher:     dispatcher,
		eval:           evaluator.New(th),
		loc:            opts.Location,
		now:            opts.Now,
		logger:         logger,
		resetCooldowns: opts.ResetCooldownsAtMidnight,
		state:          models.StateDisconnected,
		history:        history.NewBuffer(opts.HistoryCapacity),
		warnCooldown:   cooldown.NewMemoryStore(),
	}
	s.day = s.dayOf(opts.Now())
	return s
}

func (s *Session) dayOf(t time.Time) string {
	return t.In(s.loc).Format(dayLayout)
}

// Connect 连接设备，失败时返回 false
// 已经在连接中或已连接时直接返回 false。
func (s *Session) Connect(ctx context.Context, target transport.Target) bool {
	s.mu.Lock()
	if s.state != models.StateDisconnected {
		state := s.state
		s.mu.Unlock()
		s.logger.Warn("Connect ignored", zap.String("state", state.String()))
		return false
	}
	s.state = models.StateConnecting
	s.generation++
	gen := s.generation
	s.mu.Unlock()

	fail := func(msg string, fields ...zap.Field) bool {
		s.mu.Lock()
		if s.generation == gen && s.state == models.StateConnecting {
			s.state = models.StateDisconnected
		}
		s.mu.Unlock()
		s.logger.Warn(msg, fields...)
		return false
	}

	if s.provider == nil {
		return fail("Bluetooth transport not configured")
	}
	t, ok := s.provider()
	if !ok || t == nil {
		return fail("Bluetooth transport unavailable")
	}

	if pr, ok := t.(transport.PermissionRequester); ok {
		if err := pr.RequestPermissions(ctx); err != nil {
			return fail("Bluetooth permission denied", zap.Error(err))
		}
	}

	devices, err := t.BondedDevices(ctx)
	if err != nil {
		return fail("Failed to list bonded devices", zap.Error(err))
	}
	device, err := transport.SelectDevice(devices, target)
	if err != nil {
		return fail("No bonded device found", zap.Error(err))
	}

	conn, err := t.Connect(ctx, device.Address)
	if err != nil {
		return fail("Failed to connect device",
			zap.String("address", device.Address),
			zap.Error(err),
		)
	}

	s.mu.Lock()
	if s.generation != gen || s.state != models.StateConnecting {
		// 连接过程中被 Disconnect
		s.mu.Unlock()
		_ = conn.Disconnect()
		return false
	}
	s.conn = conn
	s.state = models.StateConnected
	s.deviceLabel = device.Label()
	s.mu.Unlock()

	go s.watchConn(gen, conn)

	sub, err := conn.Subscribe(func(line string) { s.handleLine(gen, line) })
	if err != nil {
		s.mu.Lock()
		if s.generation == gen {
			s.resetConnectionLocked()
		}
		s.mu.Unlock()
		_ = conn.Disconnect()
		s.logger.Warn("Failed to subscribe to device", zap.Error(err))
		return false
	}

	s.mu.Lock()
	if s.generation != gen {
		s.mu.Unlock()
		sub.Remove()
		return false
	}
	s.sub = sub
	s.mu.Unlock()

	s.logger.Info("Device connected",
		zap.String("device_label", device.Label()),
		zap.String("address", device.Address),
	)
	return true
}

// Disconnect 断开连接，任何时候调用都是安全的
// 保留当天的历史和报警记录。
func (s *Session) Disconnect() {
	s.mu.Lock()
	conn, sub := s.conn, s.sub
	label := s.deviceLabel
	wasActive := s.state != models.StateDisconnected
	s.generation++
	s.resetConnectionLocked()
	s.mu.Unlock()

	if sub != nil {
		sub.Remove()
	}
	if conn != nil {
		if err := conn.Disconnect(); err != nil {
			s.logger.Warn("Failed to disconnect device", zap.Error(err))
		}
	}
	if wasActive {
		s.logger.Info("Device disconnected", zap.String("device_label", label))
	}
}

// watchConn 连接被传输层关闭时（设备断开、读错误、broker 掉线）重置会话
func (s *Session) watchConn(gen uint64, conn transport.Conn) {
	<-conn.Done()

	s.mu.Lock()
	if s.generation != gen || s.state == models.StateDisconnected {
		s.mu.Unlock()
		return
	}
	sub, label := s.sub, s.deviceLabel
	s.generation++
	s.resetConnectionLocked()
	s.mu.Unlock()

	if sub != nil {
		sub.Remove()
	}
	_ = conn.Disconnect()
	s.logger.Warn("Device connection lost", zap.String("device_label", label))
}

func (s *Session) resetConnectionLocked() {
	s.state = models.StateDisconnected
	s.conn = nil
	s.sub = nil
	s.deviceLabel = ""
	s.battery = nil
}

func (s *Session) handleLine(gen uint64, line string) {
	sample := parser.Parse(line, s.now())
	if sample == nil {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.generation != gen || s.state != models.StateConnected {
		return
	}
	s.ingestLocked(sample)
}

// Ingest 直接处理一行遥测（不要求已连接），返回本次产生并展示的报警
func (s *Session) Ingest(line string) *models.WarningEvent {
	sample := parser.Parse(line, s.now())
	if sample == nil {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ingestLocked(sample)
}

func (s *Session) ingestLocked(sample *models.Sample) *models.WarningEvent {
	s.rolloverLocked(sample.Timestamp)

	var surfaced *models.WarningEvent
	if event := s.eval.Classify(*sample); event != nil {
		key := event.Category().Key()
		if s.warnCooldown.Allow(key, cooldown.WarningWindow(event.Severity), sample.Timestamp) {
			s.warnings = append(s.warnings, *event)
			surfaced = event
			if event.Severity == models.SeverityCritical && s.dispatcher != nil {
				s.dispatcher.Submit(*event, *sample)
			}
		} else {
			s.logger.Debug("Warning suppressed by cooldown", zap.String("category_key", key))
		}
	}

	s.history.Append(*sample)
	s.latest = sample
	if sample.BatteryPercent != nil {
		s.battery = models.Float64Ptr(*sample.BatteryPercent)
	}
	return surfaced
}

// rolloverLocked 本地日期变化时清空当天状态，返回是否发生跨天
func (s *Session) rolloverLocked(now time.Time) bool {
	day := s.dayOf(now)
	if day == s.day {
		return false
	}

	s.logger.Info("Daily reset",
		zap.String("previous_day", s.day),
		zap.String("day", day),
		zap.Int("history_cleared", s.history.Len()),
		zap.Int("warnings_cleared", len(s.warnings)),
	)
	s.day = day
	s.history.Clear()
	s.warnings = nil
	s.latest = nil
	if s.resetCooldowns {
		s.warnCooldown.Clear()
		if s.dispatcher != nil {
			// 与 Submit 同在锁内，保证新一天的第一条告警在重置之后处理
			s.dispatcher.QueueReset()
		}
	}
	return true
}

// CheckRollover 定时检查跨天，返回是否发生跨天
func (s *Session) CheckRollover(_ context.Context, now time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rolloverLocked(now)
}

// RemoveWarning 删除一条报警，返回是否存在
func (s *Session) RemoveWarning(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, w := range s.warnings {
		if w.ID == id {
			s.warnings = append(s.warnings[:i], s.warnings[i+1:]...)
			return true
		}
	}
	return false
}

// State 当前连接状态
func (s *Session) State() models.SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Warnings 当天报警副本
func (s *Session) Warnings() []models.WarningEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.copyWarningsLocked()
}

// History 当天样本副本
func (s *Session) History() []models.Sample {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.history.Snapshot()
}

// Latest 最新样本
func (s *Session) Latest() *models.Sample {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.copyLatestLocked()
}

// DayStart 当前日期锚点的零点
func (s *Session) DayStart() time.Time {
	s.mu.Lock()
	day := s.day
	s.mu.Unlock()
	t, err := time.ParseInLocation(dayLayout, day, s.loc)
	if err != nil {
		return history.DayStart(s.now(), s.loc)
	}
	return t
}

// Snapshot 会话状态只读快照
func (s *Session) Snapshot() models.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := models.Snapshot{
		State:       s.state,
		Connected:   s.state == models.StateConnected,
		DeviceLabel: s.deviceLabel,
		Latest:      s.copyLatestLocked(),
		History:     s.history.Snapshot(),
		Warnings:    s.copyWarningsLocked(),
		Day:         s.day,
	}
	if s.battery != nil {
		snap.Battery = models.Float64Ptr(*s.battery)
	}
	return snap
}

func (s *Session) copyWarningsLocked() []models.WarningEvent {
	out := make([]models.WarningEvent, len(s.warnings))
	copy(out, s.warnings)
	return out
}

func (s *Session) copyLatestLocked() *models.Sample {
	if s.latest == nil {
		return nil
	}
	l := *s.latest
	return &l
}
