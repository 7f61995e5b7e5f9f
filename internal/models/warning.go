package models

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Severity 报警级别
type Severity int

const (
	SeverityWarning Severity = iota + 1
	SeverityCritical
)

func (s Severity) String() string {
	switch s {
	case SeverityWarning:
		return "warning"
	case SeverityCritical:
		return "critical"
	default:
		return "unknown"
	}
}

// MarshalJSON 以字符串形式输出
func (s Severity) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// UnmarshalJSON 解析 "warning" / "critical"
func (s *Severity) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return err
	}
	switch str {
	case "warning":
		*s = SeverityWarning
	case "critical":
		*s = SeverityCritical
	default:
		return fmt.Errorf("unknown severity: %q", str)
	}
	return nil
}

// Trigger 触发条件位集合
type Trigger uint8

const (
	TriggerFall Trigger = 1 << iota
	TriggerHeartRate
	TriggerSpO2
)

// Has 是否包含指定触发条件
func (t Trigger) Has(flag Trigger) bool {
	return t&flag != 0
}

func (t Trigger) String() string {
	var parts []string
	if t.Has(TriggerFall) {
		parts = append(parts, "fall")
	}
	if t.Has(TriggerHeartRate) {
		parts = append(parts, "heart_rate")
	}
	if t.Has(TriggerSpO2) {
		parts = append(parts, "spo2")
	}
	if len(parts) == 0 {
		return "none"
	}
	return strings.Join(parts, "+")
}

// Kind 报警类别（用于文案）
type Kind int

const (
	KindFall Kind = iota + 1
	KindHeartRate
	KindSpO2
	KindCombined // 心率 + 血氧同时异常
)

func (k Kind) String() string {
	switch k {
	case KindFall:
		return "fall"
	case KindHeartRate:
		return "heart_rate"
	case KindSpO2:
		return "spo2"
	case KindCombined:
		return "combined"
	default:
		return "none"
	}
}

// Category 冷却分组：级别 + 触发组合，与数值大小无关
type Category struct {
	Severity Severity
	Triggers Trigger
}

// Key 冷却键，如 "critical:fall+heart_rate"
func (c Category) Key() string {
	return c.Severity.String() + ":" + c.Triggers.String()
}

// Less 全序：先比较级别，再比较触发位
func (c Category) Less(other Category) bool {
	if c.Severity != other.Severity {
		return c.Severity < other.Severity
	}
	return c.Triggers < other.Triggers
}

// Kind 跌倒优先，其次心率+血氧组合，最后单项
func (c Category) Kind() Kind {
	switch {
	case c.Triggers.Has(TriggerFall):
		return KindFall
	case c.Triggers.Has(TriggerHeartRate) && c.Triggers.Has(TriggerSpO2):
		return KindCombined
	case c.Triggers.Has(TriggerHeartRate):
		return KindHeartRate
	case c.Triggers.Has(TriggerSpO2):
		return KindSpO2
	default:
		return 0
	}
}

// WarningEvent 分类后的异常事件
type WarningEvent struct {
	ID                string    `json:"id"`
	Time              time.Time `json:"time"`
	Severity          Severity  `json:"severity"`
	Fall              bool      `json:"fall,omitempty"`
	HeartRateAbnormal *float64  `json:"hrAbnormal,omitempty"`
	SpO2Abnormal      *float64  `json:"spo2Abnormal,omitempty"`
}

// Triggers 事件的触发位
func (e WarningEvent) Triggers() Trigger {
	var t Trigger
	if e.Fall {
		t |= TriggerFall
	}
	if e.HeartRateAbnormal != nil {
		t |= TriggerHeartRate
	}
	if e.SpO2Abnormal != nil {
		t |= TriggerSpO2
	}
	return t
}

// Category 事件的冷却分组
func (e WarningEvent) Category() Category {
	return Category{Severity: e.Severity, Triggers: e.Triggers()}
}

// Valid 至少设置了一个触发条件
func (e WarningEvent) Valid() bool {
	return e.Triggers() != 0
}

// EventID 由接收时间生成事件ID（Unix 毫秒）
func EventID(ts time.Time) string {
	return strconv.FormatInt(ts.UnixMilli(), 10)
}
