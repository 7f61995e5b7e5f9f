package parser

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"bear-monitor/internal/models"
)

// ESP32 固件输出格式示例：
// x: 0.01 | y: 0.02 | z: 0.98 | G: 1.02 | Steps: 12 | BPM: 75.0 | SpO2: 97.0% | Battery: 81%
var (
	heartRatePattern = regexp.MustCompile(`(?i)\bBPM:\s*([\d.]+)`)
	spo2Pattern      = regexp.MustCompile(`(?i)\bSpO2:\s*([\d.]+)\s*%?`)
	stepsPattern     = regexp.MustCompile(`(?i)\bSteps:\s*(\d+)`)
	batteryPattern   = regexp.MustCompile(`(?i)\bBattery:\s*(\d+)\s*%?`)
	gPattern         = regexp.MustCompile(`(?i)\bG:\s*([\d.]+)`)
)

// ParseLine 解析一行遥测文本
// 空行或不含任何可识别字段时返回 nil；数值解析失败的字段视为缺失。
// 返回的 Sample 不带时间戳，由调用方填入接收时间。
func ParseLine(line string) *models.Sample {
	str := strings.TrimSpace(line)
	if str == "" {
		return nil
	}

	s := models.Sample{
		HeartRate:         match(heartRatePattern, str),
		SpO2:              match(spo2Pattern, str),
		Steps:             match(stepsPattern, str),
		BatteryPercent:    match(batteryPattern, str),
		TotalAcceleration: match(gPattern, str),
	}
	if s.Empty() {
		return nil
	}
	return &s
}

// Parse 解析并填入接收时间
func Parse(line string, receivedAt time.Time) *models.Sample {
	s := ParseLine(line)
	if s == nil {
		return nil
	}
	s.Timestamp = receivedAt
	return s
}

func match(re *regexp.Regexp, s string) *float64 {
	m := re.FindStringSubmatch(s)
	if m == nil {
		return nil
	}
	v, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return nil
	}
	return &v
}
