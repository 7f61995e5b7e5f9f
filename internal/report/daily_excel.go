package report

import (
	"bytes"
	"fmt"
	"math"
	"time"

	"bear-monitor/internal/history"
	"bear-monitor/internal/models"

	"github.com/xuri/excelize/v2"
)

const (
	SheetWarnings  = "Warnings"
	SheetPerMinute = "Per Minute"
)

// WarningsHeader 报警表表头
var WarningsHeader = []string{"Time", "Severity", "Fall", "Heart Rate (BPM)", "SpO2 (%)"}

// PerMinuteHeader 每分钟汇总表表头
var PerMinuteHeader = []string{"Minute", "Heart Rate Avg", "SpO2 Avg", "Steps"}

// GenerateDailyReport 生成当日报告 Excel 文件
// dayStart 为当地零点，只统计当天的样本。
func GenerateDailyReport(dayStart time.Time, samples []models.Sample, warnings []models.WarningEvent) ([]byte, error) {
	f := excelize.NewFile()

	index, err := f.NewSheet(SheetWarnings)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create sheet: %w", err)
	}
	if _, err := f.NewSheet(SheetPerMinute); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create sheet: %w", err)
	}

	// 删除默认的 Sheet1
	f.DeleteSheet("Sheet1")
	f.SetActiveSheet(index)

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{
			Type:    "pattern",
			Color:   []string{"#E6F3FF"},
			Pattern: 1,
		},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}

	if err := writeHeader(f, SheetWarnings, WarningsHeader, headerStyle, []float64{20, 12, 8, 18, 12}); err != nil {
		f.Close()
		return nil, err
	}
	loc := dayStart.Location()
	for i, w := range warnings {
		row := i + 2
		values := []interface{}{
			w.Time.In(loc).Format("2006-01-02 15:04:05"),
			w.Severity.String(),
			yesNo(w.Fall),
			optional(w.HeartRateAbnormal),
			optional(w.SpO2Abnormal),
		}
		if err := writeRow(f, SheetWarnings, row, values); err != nil {
			f.Close()
			return nil, err
		}
	}

	if err := writeHeader(f, SheetPerMinute, PerMinuteHeader, headerStyle, []float64{10, 16, 12, 10}); err != nil {
		f.Close()
		return nil, err
	}
	for i, r := range perMinuteRows(dayStart, samples) {
		if err := writeRow(f, SheetPerMinute, i+2, r); err != nil {
			f.Close()
			return nil, err
		}
	}

	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to write to buffer: %w", err)
	}
	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("failed to close file: %w", err)
	}
	return buf.Bytes(), nil
}

// perMinuteRows 有数据的分钟，每行：分钟、心率均值、血氧均值、步数
func perMinuteRows(dayStart time.Time, samples []models.Sample) [][]interface{} {
	hr := indexByMinute(history.PerMinuteAverage(samples, models.MetricHeartRate, dayStart))
	spo2 := indexByMinute(history.PerMinuteAverage(samples, models.MetricSpO2, dayStart))
	steps := history.PerMinuteSteps(samples, dayStart)

	seen := make([]bool, history.MinutesPerDay)
	for _, s := range samples {
		if s.Steps == nil {
			continue
		}
		lt := s.Timestamp.In(dayStart.Location())
		if s.Timestamp.Before(dayStart) || !s.Timestamp.Before(dayStart.AddDate(0, 0, 1)) {
			continue
		}
		seen[lt.Hour()*60+lt.Minute()] = true
	}

	var rows [][]interface{}
	for m := 0; m < history.MinutesPerDay; m++ {
		h, hasHR := hr[m]
		o, hasSpO2 := spo2[m]
		if !hasHR && !hasSpO2 && !seen[m] {
			continue
		}
		row := []interface{}{fmt.Sprintf("%02d:%02d", m/60, m%60), "", "", ""}
		if hasHR {
			row[1] = h
		}
		if hasSpO2 {
			row[2] = o
		}
		if seen[m] {
			row[3] = steps[m]
		}
		rows = append(rows, row)
	}
	return rows
}

func indexByMinute(points []history.Point) map[int]float64 {
	out := make(map[int]float64, len(points))
	for _, p := range points {
		out[int(math.Round(p.Hour*60))] = p.Value
	}
	return out
}

func writeHeader(f *excelize.File, sheet string, headers []string, style int, widths []float64) error {
	for col, header := range headers {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return fmt.Errorf("failed to convert coordinates: %w", err)
		}
		if err := f.SetCellValue(sheet, cell, header); err != nil {
			return fmt.Errorf("failed to set header cell %s: %w", cell, err)
		}
		if err := f.SetCellStyle(sheet, cell, cell, style); err != nil {
			return fmt.Errorf("failed to set header style: %w", err)
		}
		if col < len(widths) {
			name, err := excelize.ColumnNumberToName(col + 1)
			if err != nil {
				return fmt.Errorf("failed to convert column number: %w", err)
			}
			if err := f.SetColWidth(sheet, name, name, widths[col]); err != nil {
				return fmt.Errorf("failed to set column width: %w", err)
			}
		}
	}
	return nil
}

func writeRow(f *excelize.File, sheet string, row int, values []interface{}) error {
	for col, v := range values {
		if v == nil || v == "" {
			continue
		}
		cell, err := excelize.CoordinatesToCellName(col+1, row)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sheet, cell, v); err != nil {
			return fmt.Errorf("failed to set cell %s: %w", cell, err)
		}
	}
	return nil
}

func yesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}

func optional(p *float64) interface{} {
	if p == nil {
		return nil
	}
	return *p
}
