package evaluator

import (
	"testing"
	"time"

	"bear-monitor/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var ts = time.Date(2026, 10, 14, 10, 0, 0, 0, time.UTC)

func sample(hr, spo2, g *float64) models.Sample {
	return models.Sample{Timestamp: ts, HeartRate: hr, SpO2: spo2, TotalAcceleration: g}
}

func f(v float64) *float64 { return models.Float64Ptr(v) }

func TestClassify_Boundaries(t *testing.T) {
	tests := []struct {
		name     string
		s        models.Sample
		wantNil  bool
		severity models.Severity
		fall     bool
		hr       *float64
		spo2     *float64
	}{
		{name: "normal vitals", s: sample(f(75), f(97), f(1.02)), wantNil: true},
		{name: "hr 40 is not critical low", s: sample(f(40), nil, nil), severity: models.SeverityWarning, hr: f(40)},
		{name: "hr 39.9 critical low", s: sample(f(39.9), nil, nil), severity: models.SeverityCritical, hr: f(39.9)},
		{name: "hr 50 normal", s: sample(f(50), nil, nil), wantNil: true},
		{name: "hr 49 warning low", s: sample(f(49), nil, nil), severity: models.SeverityWarning, hr: f(49)},
		{name: "hr 120 normal", s: sample(f(120), nil, nil), wantNil: true},
		{name: "hr 121 warning high", s: sample(f(121), nil, nil), severity: models.SeverityWarning, hr: f(121)},
		{name: "hr 150 warning high", s: sample(f(150), nil, nil), severity: models.SeverityWarning, hr: f(150)},
		{name: "hr 151 critical high", s: sample(f(151), nil, nil), severity: models.SeverityCritical, hr: f(151)},
		{name: "spo2 92 normal", s: sample(nil, f(92), nil), wantNil: true},
		{name: "spo2 91.9 warning", s: sample(nil, f(91.9), nil), severity: models.SeverityWarning, spo2: f(91.9)},
		{name: "spo2 88 warning", s: sample(nil, f(88), nil), severity: models.SeverityWarning, spo2: f(88)},
		{name: "spo2 87 critical", s: sample(nil, f(87), nil), severity: models.SeverityCritical, spo2: f(87)},
		{name: "g 15 no fall", s: sample(nil, nil, f(15)), wantNil: true},
		{name: "g 15.1 fall", s: sample(nil, nil, f(15.1)), severity: models.SeverityCritical, fall: true},
		{name: "fall with warning hr stays critical", s: sample(f(130), nil, f(20)), severity: models.SeverityCritical, fall: true, hr: f(130)},
		{name: "escalation spo2 90 hr 130", s: sample(f(130), f(90), nil), severity: models.SeverityCritical, hr: f(130), spo2: f(90)},
		{name: "escalation spo2 91 hr 45", s: sample(f(45), f(91), nil), severity: models.SeverityCritical, hr: f(45), spo2: f(91)},
		{name: "spo2 90 with normal hr stays warning", s: sample(f(80), f(90), nil), severity: models.SeverityWarning, spo2: f(90)},
		{name: "hr 130 with normal spo2 stays warning", s: sample(f(130), f(95), nil), severity: models.SeverityWarning, hr: f(130)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(tt.s)
			if tt.wantNil {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.Equal(t, tt.severity, got.Severity)
			assert.Equal(t, tt.fall, got.Fall)
			assert.Equal(t, tt.hr, got.HeartRateAbnormal)
			assert.Equal(t, tt.spo2, got.SpO2Abnormal)
			assert.True(t, got.Valid())
		})
	}
}

func TestClassify_FirmwareExample(t *testing.T) {
	got := Classify(models.Sample{
		Timestamp:         ts,
		HeartRate:         f(158),
		SpO2:              f(97),
		Steps:             f(12),
		BatteryPercent:    f(81),
		TotalAcceleration: f(1.02),
	})
	require.NotNil(t, got)
	assert.Equal(t, models.SeverityCritical, got.Severity)
	assert.Equal(t, f(158), got.HeartRateAbnormal)
	assert.False(t, got.Fall)
	assert.Nil(t, got.SpO2Abnormal)
	assert.Equal(t, models.EventID(ts), got.ID)
	assert.Equal(t, ts, got.Time)
}

func TestClassify_NoVitalFields(t *testing.T) {
	assert.Nil(t, Classify(models.Sample{Timestamp: ts, Steps: f(100), BatteryPercent: f(20)}))
}

func TestClassify_Deterministic(t *testing.T) {
	s := sample(f(35), f(85), f(16))
	assert.Equal(t, Classify(s), Classify(s))
}

func TestEvaluator_CustomThresholds(t *testing.T) {
	th := DefaultThresholds()
	th.FallG = 3
	e := New(th)

	got := e.Classify(sample(nil, nil, f(3.5)))
	require.NotNil(t, got)
	assert.True(t, got.Fall)
	assert.Nil(t, Classify(sample(nil, nil, f(3.5))))
}
