package transport

import (
	"context"
	"errors"
	"strings"
)

var (
	// ErrNoDevice 没有匹配的已配对设备
	ErrNoDevice = errors.New("no bonded device matches")
	// ErrUnavailable 蓝牙不可用
	ErrUnavailable = errors.New("bluetooth transport unavailable")
)

// Device 已配对设备
type Device struct {
	Address string `json:"address" yaml:"address"`
	Name    string `json:"name" yaml:"name"`
}

// Label 设备显示名，无名称时使用地址
func (d Device) Label() string {
	if d.Name != "" {
		return d.Name
	}
	return d.Address
}

// LineHandler 每收到一行完整文本调用一次
type LineHandler func(line string)

// Subscription 一个行事件订阅
type Subscription interface {
	Remove()
}

// Conn 一条已建立的连接
// Done 在连接结束时关闭，包括主动 Disconnect 和对端断开。
type Conn interface {
	Subscribe(handler LineHandler) (Subscription, error)
	Disconnect() error
	Done() <-chan struct{}
}

// Transport 蓝牙串口能力
type Transport interface {
	BondedDevices(ctx context.Context) ([]Device, error)
	Connect(ctx context.Context, address string) (Conn, error)
}

// PermissionRequester 需要运行时授权的传输实现
type PermissionRequester interface {
	RequestPermissions(ctx context.Context) error
}

// Provider 能力检测：返回 false 表示当前环境没有可用的传输
type Provider func() (Transport, bool)

// Static 总是可用的 Provider
func Static(t Transport) Provider {
	return func() (Transport, bool) { return t, t != nil }
}

// Target 连接目标，全部为空时选择第一个已配对设备
type Target struct {
	Address    string `json:"address,omitempty"`
	NamePrefix string `json:"namePrefix,omitempty"`
}

// SelectDevice 选择设备：指定地址时精确匹配，否则按名称前缀匹配；未命中时回退到第一个已配对设备
func SelectDevice(devices []Device, target Target) (Device, error) {
	if len(devices) == 0 {
		return Device{}, ErrNoDevice
	}

	switch {
	case target.Address != "":
		for _, d := range devices {
			if strings.EqualFold(d.Address, target.Address) {
				return d, nil
			}
		}
	case target.NamePrefix != "":
		for _, d := range devices {
			if strings.HasPrefix(d.Name, target.NamePrefix) {
				return d, nil
			}
		}
	}
	return devices[0], nil
}
