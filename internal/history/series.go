package history

import (
	"math"
	"time"

	"bear-monitor/internal/models"
)

// MinutesPerDay 每天的分钟桶数
const MinutesPerDay = 24 * 60

// Point 曲线上的一个点
type Point struct {
	Hour  float64 `json:"x"` // 当日小时（分钟/60）
	Value float64 `json:"y"`
}

// DayStart 返回 t 所在本地日期的零点
func DayStart(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.Local
	}
	lt := t.In(loc)
	return time.Date(lt.Year(), lt.Month(), lt.Day(), 0, 0, 0, 0, loc)
}

// minuteIndex 样本落在 dayStart 所在日期的第几分钟，不在当天返回 -1
func minuteIndex(ts, dayStart time.Time) int {
	dayEnd := dayStart.AddDate(0, 0, 1)
	if ts.Before(dayStart) || !ts.Before(dayEnd) {
		return -1
	}
	lt := ts.In(dayStart.Location())
	return lt.Hour()*60 + lt.Minute()
}

// PerMinuteAverage 当日每分钟的平均值（四舍五入），只输出有数据的分钟
func PerMinuteAverage(samples []models.Sample, metric models.Metric, dayStart time.Time) []Point {
	var sums [MinutesPerDay]float64
	var counts [MinutesPerDay]int

	for _, s := range samples {
		v, ok := s.Value(metric)
		if !ok {
			continue
		}
		idx := minuteIndex(s.Timestamp, dayStart)
		if idx < 0 {
			continue
		}
		sums[idx] += v
		counts[idx]++
	}

	series := make([]Point, 0)
	for i := 0; i < MinutesPerDay; i++ {
		if counts[i] == 0 {
			continue
		}
		series = append(series, Point{
			Hour:  float64(i) / 60,
			Value: math.Round(sums[i] / float64(counts[i])),
		})
	}
	return series
}

// PerMinuteSteps 由累计步数计算每分钟步数（桶内 max - min），固定 1440 个桶
func PerMinuteSteps(samples []models.Sample, dayStart time.Time) []float64 {
	mins := make([]float64, MinutesPerDay)
	maxs := make([]float64, MinutesPerDay)
	seen := make([]bool, MinutesPerDay)

	for _, s := range samples {
		if s.Steps == nil {
			continue
		}
		idx := minuteIndex(s.Timestamp, dayStart)
		if idx < 0 {
			continue
		}
		v := *s.Steps
		if !seen[idx] {
			seen[idx] = true
			mins[idx], maxs[idx] = v, v
			continue
		}
		mins[idx] = math.Min(mins[idx], v)
		maxs[idx] = math.Max(maxs[idx], v)
	}

	out := make([]float64, MinutesPerDay)
	for i := range out {
		if seen[i] {
			out[i] = math.Max(0, maxs[i]-mins[i])
		}
	}
	return out
}

// MetricNow 仪表盘当前值：优先最新样本，否则取最近一分钟的平均值（步数取最大值）
func MetricNow(latest *models.Sample, samples []models.Sample, metric models.Metric, now time.Time) (float64, bool) {
	if latest != nil {
		if v, ok := latest.Value(metric); ok {
			return math.Round(v), true
		}
	}

	since := now.Add(-time.Minute)
	var sum, peak float64
	n := 0
	for _, s := range samples {
		if s.Timestamp.Before(since) {
			continue
		}
		v, ok := s.Value(metric)
		if !ok {
			continue
		}
		if n == 0 || v > peak {
			peak = v
		}
		sum += v
		n++
	}
	if n == 0 {
		return 0, false
	}
	if metric == models.MetricSteps {
		return peak, true
	}
	return math.Round(sum / float64(n)), true
}
