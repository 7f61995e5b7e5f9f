package rfcomm

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"bear-monitor/internal/transport"

	"go.uber.org/zap"
)

// DeviceConfig 已绑定到 tty 节点的蓝牙串口设备
type DeviceConfig struct {
	transport.Device `yaml:",inline"`
	Path             string `json:"path" yaml:"path"` // 如 /dev/rfcomm0
}

// ParseDevices 解析 "address,name,path;address,name,path"
func ParseDevices(raw string) ([]DeviceConfig, error) {
	var out []DeviceConfig
	for _, item := range strings.Split(raw, ";") {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		parts := strings.Split(item, ",")
		if len(parts) != 3 {
			return nil, fmt.Errorf("invalid rfcomm device %q: want address,name,path", item)
		}
		d := DeviceConfig{
			Device: transport.Device{
				Address: strings.TrimSpace(parts[0]),
				Name:    strings.TrimSpace(parts[1]),
			},
			Path: strings.TrimSpace(parts[2]),
		}
		if d.Address == "" || d.Path == "" {
			return nil, fmt.Errorf("invalid rfcomm device %q: address and path are required", item)
		}
		out = append(out, d)
	}
	return out, nil
}

// Opener 打开设备节点
type Opener func(path string) (io.ReadCloser, error)

func openFile(path string) (io.ReadCloser, error) {
	return os.OpenFile(path, os.O_RDONLY, 0)
}

// Transport 基于 rfcomm tty 节点的蓝牙串口
type Transport struct {
	devices []DeviceConfig
	open    Opener
	logger  *zap.Logger
}

// New 创建传输，open 为 nil 时直接打开设备文件
func New(devices []DeviceConfig, open Opener, logger *zap.Logger) *Transport {
	if open == nil {
		open = openFile
	}
	return &Transport{devices: devices, open: open, logger: logger}
}

// Available 任一设备节点存在即可用
func (t *Transport) Available() bool {
	for _, d := range t.devices {
		if _, err := os.Stat(d.Path); err == nil {
			return true
		}
	}
	return false
}

// Provider 能力检测
func (t *Transport) Provider() transport.Provider {
	return func() (transport.Transport, bool) {
		return t, t.Available()
	}
}

// BondedDevices 返回配置的设备
func (t *Transport) BondedDevices(_ context.Context) ([]transport.Device, error) {
	out := make([]transport.Device, 0, len(t.devices))
	for _, d := range t.devices {
		out = append(out, d.Device)
	}
	return out, nil
}

// Connect 打开设备节点
func (t *Transport) Connect(_ context.Context, address string) (transport.Conn, error) {
	for _, d := range t.devices {
		if !strings.EqualFold(d.Address, address) {
			continue
		}
		rc, err := t.open(d.Path)
		if err != nil {
			return nil, fmt.Errorf("failed to open %s: %w", d.Path, err)
		}
		t.logger.Info("Opened rfcomm device",
			zap.String("address", d.Address),
			zap.String("path", d.Path),
		)
		return newConn(rc, t.logger.With(zap.String("address", d.Address))), nil
	}
	return nil, fmt.Errorf("%w: %s", transport.ErrNoDevice, address)
}

// conn 一条 rfcomm 连接，首次订阅时启动读循环
type conn struct {
	rc     io.ReadCloser
	logger *zap.Logger

	mu       sync.Mutex
	handlers map[int]transport.LineHandler
	nextID   int

	startOnce sync.Once
	closeOnce sync.Once
	endOnce   sync.Once
	done      chan struct{} // Disconnect 已调用
	ended     chan struct{} // 连接已结束
}

func newConn(rc io.ReadCloser, logger *zap.Logger) *conn {
	return &conn{
		rc:       rc,
		logger:   logger,
		handlers: make(map[int]transport.LineHandler),
		done:     make(chan struct{}),
		ended:    make(chan struct{}),
	}
}

func (c *conn) Subscribe(handler transport.LineHandler) (transport.Subscription, error) {
	select {
	case <-c.done:
		return nil, fmt.Errorf("connection closed")
	default:
	}

	c.mu.Lock()
	id := c.nextID
	c.nextID++
	c.handlers[id] = handler
	c.mu.Unlock()

	c.startOnce.Do(func() { go c.readLoop() })
	return &subscription{conn: c, id: id}, nil
}

func (c *conn) readLoop() {
	defer c.end()

	scanner := bufio.NewScanner(c.rc)
	scanner.Buffer(make([]byte, 0, 1024), transport.MaxLineLength)
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		c.mu.Lock()
		handlers := make([]transport.LineHandler, 0, len(c.handlers))
		for _, h := range c.handlers {
			handlers = append(handlers, h)
		}
		c.mu.Unlock()
		for _, h := range handlers {
			h(line)
		}
	}

	select {
	case <-c.done:
	default:
		if err := scanner.Err(); err != nil {
			c.logger.Warn("rfcomm read stopped", zap.Error(err))
		} else {
			c.logger.Info("rfcomm device closed the stream")
		}
	}
}

func (c *conn) Disconnect() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.done)
		err = c.rc.Close()
		c.end()
	})
	return err
}

func (c *conn) Done() <-chan struct{} { return c.ended }

func (c *conn) end() {
	c.endOnce.Do(func() { close(c.ended) })
}

type subscription struct {
	conn *conn
	id   int
	once sync.Once
}

func (s *subscription) Remove() {
	s.once.Do(func() {
		s.conn.mu.Lock()
		delete(s.conn.handlers, s.id)
		s.conn.mu.Unlock()
	})
}
