package alert

import (
	"fmt"

	"bear-monitor/internal/models"
)

// 告警类型文案
const (
	TypeFall      = "Fall Detected"
	TypeCombined  = "Critical: Abnormal Heart Rate and Low SpO2"
	TypeHeartRate = "Critical: Abnormal Heart Rate"
	TypeSpO2      = "Critical: Low SpO2"
)

// Build 根据报警事件和触发样本构建告警请求
// 心率和血氧取样本的实际读数（不论是否触发）。
func Build(event models.WarningEvent, sample models.Sample) models.AlertRequest {
	req := models.AlertRequest{
		HeartRate: copyFloat(sample.HeartRate),
		SpO2:      copyFloat(sample.SpO2),
	}

	switch event.Category().Kind() {
	case models.KindFall:
		req.AlertType = TypeFall
		if sample.TotalAcceleration != nil {
			req.Message = fmt.Sprintf("A possible fall was detected (impact %.1f g). Please check on the wearer immediately.", *sample.TotalAcceleration)
		} else {
			req.Message = "A possible fall was detected. Please check on the wearer immediately."
		}
	case models.KindCombined:
		req.AlertType = TypeCombined
		req.Message = fmt.Sprintf("Heart rate is %.0f BPM and blood oxygen is %.0f%%. Both are outside the safe range.",
			*event.HeartRateAbnormal, *event.SpO2Abnormal)
	case models.KindHeartRate:
		req.AlertType = TypeHeartRate
		req.Message = fmt.Sprintf("Heart rate is %.0f BPM, outside the safe range.", *event.HeartRateAbnormal)
	case models.KindSpO2:
		req.AlertType = TypeSpO2
		req.Message = fmt.Sprintf("Blood oxygen is %.0f%%, below the safe level.", *event.SpO2Abnormal)
	default:
		req.AlertType = "Critical Health Alert"
		req.Message = "Abnormal vital signs detected."
	}
	return req
}

func copyFloat(p *float64) *float64 {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
