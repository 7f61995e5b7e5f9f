package evaluator

import (
	"bear-monitor/internal/models"
)

// Thresholds 报警阈值（严格比较，无迟滞）
type Thresholds struct {
	FallG float64 // 合加速度 > FallG → 跌倒（critical）

	HeartRateCriticalLow  float64 // HR < 40 → critical
	HeartRateCriticalHigh float64 // HR > 150 → critical
	HeartRateWarningLow   float64 // HR < 50 → warning
	HeartRateWarningHigh  float64 // HR > 120 → warning

	SpO2Critical float64 // SpO2 < 88 → critical
	SpO2Warning  float64 // SpO2 < 92 → warning
}

// DefaultThresholds 默认阈值
func DefaultThresholds() Thresholds {
	return Thresholds{
		FallG:                 15,
		HeartRateCriticalLow:  40,
		HeartRateCriticalHigh: 150,
		HeartRateWarningLow:   50,
		HeartRateWarningHigh:  120,
		SpO2Critical:          88,
		SpO2Warning:           92,
	}
}

// Evaluator 阈值分类器
type Evaluator struct {
	th Thresholds
}

// New 创建分类器
func New(th Thresholds) *Evaluator {
	return &Evaluator{th: th}
}

var defaultEvaluator = New(DefaultThresholds())

// Classify 使用默认阈值分类
func Classify(s models.Sample) *models.WarningEvent {
	return defaultEvaluator.Classify(s)
}

// Classify 评估一条样本，返回 nil 或一个报警事件
// 各规则独立评估，级别取最大值；血氧 < 92 且心率越过 warning 区间时整体升级为 critical。
func (e *Evaluator) Classify(s models.Sample) *models.WarningEvent {
	var severity models.Severity
	raise := func(sev models.Severity) {
		if sev > severity {
			severity = sev
		}
	}

	event := &models.WarningEvent{
		ID:   models.EventID(s.Timestamp),
		Time: s.Timestamp,
	}

	// 跌倒检测
	if s.TotalAcceleration != nil && *s.TotalAcceleration > e.th.FallG {
		event.Fall = true
		raise(models.SeverityCritical)
	}

	// 心率
	hrOutOfWarningBand := false
	if s.HeartRate != nil {
		hr := *s.HeartRate
		switch {
		case hr < e.th.HeartRateCriticalLow || hr > e.th.HeartRateCriticalHigh:
			event.HeartRateAbnormal = models.Float64Ptr(hr)
			raise(models.SeverityCritical)
			hrOutOfWarningBand = true
		case hr < e.th.HeartRateWarningLow || hr > e.th.HeartRateWarningHigh:
			event.HeartRateAbnormal = models.Float64Ptr(hr)
			raise(models.SeverityWarning)
			hrOutOfWarningBand = true
		}
	}

	// 血氧
	spo2Low := false
	if s.SpO2 != nil {
		spo2 := *s.SpO2
		switch {
		case spo2 < e.th.SpO2Critical:
			event.SpO2Abnormal = models.Float64Ptr(spo2)
			raise(models.SeverityCritical)
			spo2Low = true
		case spo2 < e.th.SpO2Warning:
			event.SpO2Abnormal = models.Float64Ptr(spo2)
			raise(models.SeverityWarning)
			spo2Low = true
		}
	}

	// 组合规则：低血氧 + 心率异常
	if spo2Low && hrOutOfWarningBand {
		raise(models.SeverityCritical)
	}

	if !event.Valid() {
		return nil
	}
	event.Severity = severity
	return event
}
