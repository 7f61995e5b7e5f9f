package models

// SessionState 连接会话状态
type SessionState int

const (
	StateDisconnected SessionState = iota
	StateConnecting
	StateConnected
)

func (s SessionState) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	default:
		return "disconnected"
	}
}

// MarshalText 以字符串形式输出
func (s SessionState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Snapshot 会话状态快照（只读副本）
type Snapshot struct {
	State       SessionState   `json:"state"`
	Connected   bool           `json:"connected"`
	DeviceLabel string         `json:"deviceName,omitempty"`
	Battery     *float64       `json:"battery,omitempty"`
	Latest      *Sample        `json:"latest,omitempty"`
	History     []Sample       `json:"history"`
	Warnings    []WarningEvent `json:"warnings"`
	Day         string         `json:"day"` // 当前日期锚点 YYYY-MM-DD
}
