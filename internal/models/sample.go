package models

import (
	"time"
)

// Sample 一条解码后的遥测读数
// Timestamp 为本地接收时间（非设备内部时钟），其余字段缺失时为 nil
type Sample struct {
	Timestamp         time.Time `json:"ts"`
	HeartRate         *float64  `json:"hr,omitempty"`      // BPM
	SpO2              *float64  `json:"spo2,omitempty"`    // 血氧百分比 0-100
	Steps             *float64  `json:"steps,omitempty"`   // 设备上报的累计步数
	BatteryPercent    *float64  `json:"battery,omitempty"` // 电量百分比 0-100
	TotalAcceleration *float64  `json:"totalG,omitempty"`  // 三轴合加速度（g）
}

// Empty 除时间戳外没有任何字段
func (s Sample) Empty() bool {
	return s.HeartRate == nil &&
		s.SpO2 == nil &&
		s.Steps == nil &&
		s.BatteryPercent == nil &&
		s.TotalAcceleration == nil
}

// Metric 可聚合的体征指标
type Metric string

const (
	MetricHeartRate Metric = "hr"
	MetricSpO2      Metric = "spo2"
	MetricSteps     Metric = "steps"
)

// Value 读取指定指标
func (s Sample) Value(m Metric) (float64, bool) {
	var p *float64
	switch m {
	case MetricHeartRate:
		p = s.HeartRate
	case MetricSpO2:
		p = s.SpO2
	case MetricSteps:
		p = s.Steps
	}
	if p == nil {
		return 0, false
	}
	return *p, true
}

// Float64Ptr 辅助函数
func Float64Ptr(v float64) *float64 {
	return &v
}
