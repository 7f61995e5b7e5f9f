package history

import (
	"testing"
	"time"

	"bear-monitor/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var day = time.Date(2026, 10, 14, 0, 0, 0, 0, time.UTC)

func at(h, m, s int) time.Time {
	return day.Add(time.Duration(h)*time.Hour + time.Duration(m)*time.Minute + time.Duration(s)*time.Second)
}

func hr(ts time.Time, v float64) models.Sample {
	return models.Sample{Timestamp: ts, HeartRate: models.Float64Ptr(v)}
}

func steps(ts time.Time, v float64) models.Sample {
	return models.Sample{Timestamp: ts, Steps: models.Float64Ptr(v)}
}

func TestBuffer_AppendAndEvict(t *testing.T) {
	b := NewBuffer(3)
	for i := 0; i < 5; i++ {
		b.Append(hr(at(10, 0, i), float64(60+i)))
	}

	require.Equal(t, 3, b.Len())
	got := b.Snapshot()
	assert.Equal(t, models.Float64Ptr(62), got[0].HeartRate)
	assert.Equal(t, models.Float64Ptr(64), got[2].HeartRate)

	latest, ok := b.Latest()
	require.True(t, ok)
	assert.Equal(t, at(10, 0, 4), latest.Timestamp)
}

func TestBuffer_DefaultCapacity(t *testing.T) {
	b := NewBuffer(0)
	assert.Equal(t, DefaultCapacity, b.Cap())

	for i := 0; i < DefaultCapacity+10; i++ {
		b.Append(hr(day.Add(time.Duration(i)*time.Second), 70))
	}
	assert.Equal(t, DefaultCapacity, b.Len())
	assert.Equal(t, day.Add(10*time.Second), b.Snapshot()[0].Timestamp)
}

func TestBuffer_SnapshotIsCopy(t *testing.T) {
	b := NewBuffer(10)
	b.Append(hr(at(1, 0, 0), 70))

	snap := b.Snapshot()
	snap[0].Timestamp = time.Time{}

	latest, _ := b.Latest()
	assert.Equal(t, at(1, 0, 0), latest.Timestamp)
}

func TestBuffer_Clear(t *testing.T) {
	b := NewBuffer(10)
	b.Append(hr(at(1, 0, 0), 70))
	b.Clear()

	assert.Equal(t, 0, b.Len())
	_, ok := b.Latest()
	assert.False(t, ok)
	assert.Empty(t, b.Snapshot())
}

func TestDayStart(t *testing.T) {
	loc := time.FixedZone("UTC+8", 8*3600)
	ts := time.Date(2026, 10, 14, 20, 30, 0, 0, time.UTC) // 当地 10-15 04:30
	got := DayStart(ts, loc)
	assert.Equal(t, time.Date(2026, 10, 15, 0, 0, 0, 0, loc), got)
}

func TestPerMinuteAverage(t *testing.T) {
	samples := []models.Sample{
		hr(at(8, 30, 1), 70),
		hr(at(8, 30, 20), 73),
		hr(at(8, 31, 0), 80),
		{Timestamp: at(8, 31, 5), SpO2: models.Float64Ptr(97)},
		hr(at(23, 59, 59), 90),
		hr(day.Add(-time.Second), 100), // 前一天
		hr(day.AddDate(0, 0, 1), 100),  // 次日零点
	}

	got := PerMinuteAverage(samples, models.MetricHeartRate, day)

	require.Len(t, got, 3)
	assert.Equal(t, Point{Hour: 8.5, Value: 72}, got[0]) // 71.5 → 72
	assert.InDelta(t, 8+31.0/60, got[1].Hour, 1e-9)
	assert.Equal(t, float64(80), got[1].Value)
	assert.InDelta(t, 23+59.0/60, got[2].Hour, 1e-9)
}

func TestPerMinuteAverage_NoData(t *testing.T) {
	got := PerMinuteAverage(nil, models.MetricSpO2, day)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestPerMinuteSteps(t *testing.T) {
	samples := []models.Sample{
		steps(at(9, 0, 0), 100),
		steps(at(9, 0, 30), 112),
		steps(at(9, 0, 59), 120),
		steps(at(9, 1, 10), 125),
		hr(at(9, 2, 0), 70),
	}

	got := PerMinuteSteps(samples, day)

	require.Len(t, got, MinutesPerDay)
	assert.Equal(t, float64(20), got[9*60])
	assert.Equal(t, float64(0), got[9*60+1]) // 单个样本
	assert.Equal(t, float64(0), got[9*60+2])
}

func TestPerMinuteSteps_SpanIgnoresOrder(t *testing.T) {
	samples := []models.Sample{
		steps(at(9, 0, 0), 500),
		steps(at(9, 0, 30), 3),
	}
	got := PerMinuteSteps(samples, day)
	assert.Equal(t, float64(497), got[9*60])
}

func TestMetricNow_PrefersLatest(t *testing.T) {
	latest := hr(at(10, 0, 0), 71.6)
	v, ok := MetricNow(&latest, nil, models.MetricHeartRate, at(10, 0, 1))
	require.True(t, ok)
	assert.Equal(t, float64(72), v)
}

func TestMetricNow_FallsBackToLastMinute(t *testing.T) {
	now := at(10, 0, 0)
	samples := []models.Sample{
		hr(now.Add(-2*time.Minute), 200),
		hr(now.Add(-30*time.Second), 70),
		hr(now.Add(-10*time.Second), 75),
		steps(now.Add(-20*time.Second), 300),
		steps(now.Add(-5*time.Second), 310),
	}
	latest := models.Sample{Timestamp: now, BatteryPercent: models.Float64Ptr(50)}

	v, ok := MetricNow(&latest, samples, models.MetricHeartRate, now)
	require.True(t, ok)
	assert.Equal(t, float64(73), v) // 72.5 → 73

	v, ok = MetricNow(nil, samples, models.MetricSteps, now)
	require.True(t, ok)
	assert.Equal(t, float64(310), v)

	_, ok = MetricNow(nil, samples, models.MetricSpO2, now)
	assert.False(t, ok)
}
