package report

import (
	"bytes"
	"testing"
	"time"

	"bear-monitor/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestGenerateDailyReport(t *testing.T) {
	day := time.Date(2026, 10, 14, 0, 0, 0, 0, time.UTC)
	at := func(h, m, s int) time.Time {
		return day.Add(time.Duration(h)*time.Hour + time.Duration(m)*time.Minute + time.Duration(s)*time.Second)
	}

	samples := []models.Sample{
		{Timestamp: at(8, 30, 0), HeartRate: models.Float64Ptr(70), SpO2: models.Float64Ptr(97), Steps: models.Float64Ptr(100)},
		{Timestamp: at(8, 30, 30), HeartRate: models.Float64Ptr(74), Steps: models.Float64Ptr(130)},
		{Timestamp: at(8, 32, 0), SpO2: models.Float64Ptr(95)},
		{Timestamp: day.Add(-time.Minute), HeartRate: models.Float64Ptr(60)},
	}
	warnings := []models.WarningEvent{
		{ID: "1", Time: at(8, 31, 0), Severity: models.SeverityCritical, HeartRateAbnormal: models.Float64Ptr(158)},
		{ID: "2", Time: at(9, 0, 0), Severity: models.SeverityCritical, Fall: true},
	}

	data, err := GenerateDailyReport(day, samples, warnings)
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{SheetWarnings, SheetPerMinute}, f.GetSheetList())

	rows, err := f.GetRows(SheetWarnings)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, WarningsHeader, rows[0])
	assert.Equal(t, []string{"2026-10-14 08:31:00", "critical", "No", "158"}, rows[1])
	assert.Equal(t, []string{"2026-10-14 09:00:00", "critical", "Yes"}, rows[2])

	rows, err = f.GetRows(SheetPerMinute)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, PerMinuteHeader, rows[0])
	assert.Equal(t, []string{"08:30", "72", "97", "30"}, rows[1])
	assert.Equal(t, []string{"08:32", "", "95"}, rows[2])
}

func TestGenerateDailyReport_Empty(t *testing.T) {
	data, err := GenerateDailyReport(time.Date(2026, 10, 14, 0, 0, 0, 0, time.UTC), nil, nil)
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(SheetPerMinute)
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}
