package mqtt

import (
	"context"
	"fmt"
	"strings"
	"sync"

	mqttclient "bear-monitor/internal/common/mqtt"
	"bear-monitor/internal/transport"

	"go.uber.org/zap"
)

// DefaultTopicPrefix 默认主题前缀
const DefaultTopicPrefix = "bear/devices"

// Subscriber MQTT 订阅能力（由 common/mqtt.Client 实现）
type Subscriber interface {
	Subscribe(topic string, qos byte, handler mqttclient.MessageHandler) error
	Unsubscribe(topics ...string) error
	IsConnected() bool
}

// Gateway 通过 MQTT 网关桥接的蓝牙串口
// 网关把手环每行输出发布到 <prefix>/<address>/telemetry。
type Gateway struct {
	client  Subscriber
	prefix  string
	qos     byte
	devices []transport.Device
	logger  *zap.Logger

	mu    sync.Mutex
	conns map[*conn]struct{}
}

// NewGateway 创建网关传输
func NewGateway(client Subscriber, prefix string, qos byte, devices []transport.Device, logger *zap.Logger) *Gateway {
	if prefix == "" {
		prefix = DefaultTopicPrefix
	}
	return &Gateway{
		client:  client,
		prefix:  strings.TrimSuffix(prefix, "/"),
		qos:     qos,
		devices: devices,
		logger:  logger,
		conns:   make(map[*conn]struct{}),
	}
}

// TelemetryTopic 设备遥测主题
func (g *Gateway) TelemetryTopic(address string) string {
	return fmt.Sprintf("%s/%s/telemetry", g.prefix, address)
}

// Provider broker 已连接时可用
func (g *Gateway) Provider() transport.Provider {
	return func() (transport.Transport, bool) {
		return g, g.client != nil && g.client.IsConnected()
	}
}

// BondedDevices 返回配置的设备
func (g *Gateway) BondedDevices(_ context.Context) ([]transport.Device, error) {
	out := make([]transport.Device, len(g.devices))
	copy(out, g.devices)
	return out, nil
}

// Connect 订阅设备遥测主题
func (g *Gateway) Connect(_ context.Context, address string) (transport.Conn, error) {
	known := false
	for _, d := range g.devices {
		if strings.EqualFold(d.Address, address) {
			known = true
			break
		}
	}
	if !known {
		return nil, fmt.Errorf("%w: %s", transport.ErrNoDevice, address)
	}

	c := &conn{
		gw:       g,
		client:   g.client,
		topic:    g.TelemetryTopic(address),
		handlers: make(map[int]transport.LineHandler),
		done:     make(chan struct{}),
		logger:   g.logger.With(zap.String("address", address)),
	}
	if err := g.client.Subscribe(c.topic, g.qos, c.onMessage); err != nil {
		return nil, err
	}
	g.mu.Lock()
	g.conns[c] = struct{}{}
	g.mu.Unlock()

	g.logger.Info("Subscribed to gateway telemetry", zap.String("topic", c.topic))
	return c, nil
}

// ConnectionLost broker 掉线时结束所有设备连接（注册到 common/mqtt.Client.OnConnectionLost）
func (g *Gateway) ConnectionLost(err error) {
	g.mu.Lock()
	conns := make([]*conn, 0, len(g.conns))
	for c := range g.conns {
		conns = append(conns, c)
	}
	g.mu.Unlock()

	for _, c := range conns {
		c.logger.Warn("Gateway connection lost", zap.String("topic", c.topic), zap.Error(err))
		_ = c.Disconnect()
	}
}

func (g *Gateway) forget(c *conn) {
	g.mu.Lock()
	delete(g.conns, c)
	g.mu.Unlock()
}

type conn struct {
	gw     *Gateway
	client Subscriber
	topic  string
	lines  transport.LineSplitter
	logger *zap.Logger

	mu       sync.Mutex
	handlers map[int]transport.LineHandler
	nextID   int
	closed   bool
	done     chan struct{}
}

func (c *conn) onMessage(_ string, payload []byte) error {
	text := string(payload)
	if !strings.HasSuffix(text, "\n") {
		// 网关按消息发布整行，缺少换行时补齐
		text += "\n"
	}

	for _, line := range c.lines.Feed(text) {
		c.mu.Lock()
		if c.closed {
			c.mu.Unlock()
			return nil
		}
		handlers := make([]transport.LineHandler, 0, len(c.handlers))
		for _, h := range c.handlers {
			handlers = append(handlers, h)
		}
		c.mu.Unlock()

		for _, h := range handlers {
			h(line)
		}
	}
	return nil
}

func (c *conn) Subscribe(handler transport.LineHandler) (transport.Subscription, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil, fmt.Errorf("connection closed")
	}
	id := c.nextID
	c.nextID++
	c.handlers[id] = handler
	return &subscription{conn: c, id: id}, nil
}

func (c *conn) Disconnect() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.handlers = make(map[int]transport.LineHandler)
	close(c.done)
	c.mu.Unlock()
	c.gw.forget(c)

	if err := c.client.Unsubscribe(c.topic); err != nil {
		return err
	}
	c.logger.Info("Unsubscribed from gateway telemetry", zap.String("topic", c.topic))
	return nil
}

func (c *conn) Done() <-chan struct{} { return c.done }

type subscription struct {
	conn *conn
	id   int
}

func (s *subscription) Remove() {
	s.conn.mu.Lock()
	delete(s.conn.handlers, s.id)
	s.conn.mu.Unlock()
}
