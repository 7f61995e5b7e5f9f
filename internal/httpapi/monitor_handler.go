package httpapi

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"bear-monitor/internal/history"
	"bear-monitor/internal/models"
	"bear-monitor/internal/report"
	"bear-monitor/internal/transport"

	"go.uber.org/zap"
)

// Monitor 会话对外暴露的操作
type Monitor interface {
	Connect(ctx context.Context, target transport.Target) bool
	Disconnect()
	RemoveWarning(id string) bool
	Warnings() []models.WarningEvent
	History() []models.Sample
	Latest() *models.Sample
	DayStart() time.Time
	Snapshot() models.Snapshot
}

// Settings 本地偏好设置
type Settings interface {
	Get() models.Settings
	Save(ctx context.Context, settings models.Settings) error
}

// MonitorHandler 监护会话 HTTP 接口
type MonitorHandler struct {
	monitor  Monitor
	settings Settings
	target   transport.Target
	now      func() time.Time
	logger   *zap.Logger
}

// NewMonitorHandler target 为请求体未指定设备时的默认连接目标
func NewMonitorHandler(monitor Monitor, settings Settings, target transport.Target, logger *zap.Logger) *MonitorHandler {
	return &MonitorHandler{
		monitor:  monitor,
		settings: settings,
		target:   target,
		now:      time.Now,
		logger:   logger,
	}
}

// sessionView 会话概要（不含历史样本）
type sessionView struct {
	State       models.SessionState `json:"state"`
	Connected   bool                `json:"connected"`
	DeviceName  string              `json:"deviceName,omitempty"`
	Battery     *float64            `json:"battery,omitempty"`
	Latest      *models.Sample      `json:"latest,omitempty"`
	Day         string              `json:"day"`
	Samples     int                 `json:"samples"`
	Warnings    int                 `json:"warnings"`
	HeartRate   *float64            `json:"hr,omitempty"`
	SpO2        *float64            `json:"spo2,omitempty"`
	Steps       *float64            `json:"steps,omitempty"`
	GeneratedAt time.Time           `json:"generatedAt"`
}

// GetSession GET /api/v1/session
func (h *MonitorHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	now := h.now()
	snap := h.monitor.Snapshot()
	view := sessionView{
		State:       snap.State,
		Connected:   snap.Connected,
		DeviceName:  snap.DeviceLabel,
		Battery:     snap.Battery,
		Latest:      snap.Latest,
		Day:         snap.Day,
		Samples:     len(snap.History),
		Warnings:    len(snap.Warnings),
		GeneratedAt: now,
	}
	metric := func(m models.Metric) *float64 {
		if v, ok := history.MetricNow(snap.Latest, snap.History, m, now); ok {
			return models.Float64Ptr(v)
		}
		return nil
	}
	view.HeartRate = metric(models.MetricHeartRate)
	view.SpO2 = metric(models.MetricSpO2)
	view.Steps = metric(models.MetricSteps)
	writeJSON(w, http.StatusOK, Ok(view))
}

// Connect POST /api/v1/session/connect
// 请求体可选：{"address": "...", "namePrefix": "..."}
func (h *MonitorHandler) Connect(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	var body struct {
		Address    string `json:"address"`
		NamePrefix string `json:"namePrefix"`
	}
	if err := readBodyJSON(r, maxBodyBytes, &body); err != nil {
		writeFail(w, ResultInvalidRequest, "invalid body")
		return
	}
	target := h.target
	if body.Address != "" || body.NamePrefix != "" {
		target = transport.Target{Address: body.Address, NamePrefix: body.NamePrefix}
	}

	if !h.monitor.Connect(r.Context(), target) {
		snap := h.monitor.Snapshot()
		if snap.State != models.StateDisconnected {
			writeFail(w, ResultSessionBusy, fmt.Sprintf("session is %s", snap.State))
			return
		}
		writeFail(w, ResultDeviceUnreachable, "failed to connect to device")
		return
	}
	snap := h.monitor.Snapshot()
	h.logger.Info("Device connected via API", zap.String("device", snap.DeviceLabel))
	writeJSON(w, http.StatusOK, Ok(map[string]any{
		"connected":  true,
		"deviceName": snap.DeviceLabel,
	}))
}

// Disconnect POST /api/v1/session/disconnect
func (h *MonitorHandler) Disconnect(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	h.monitor.Disconnect()
	writeJSON(w, http.StatusOK, Ok(map[string]any{"connected": false}))
}

// Warnings GET /api/v1/warnings
func (h *MonitorHandler) Warnings(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	writeJSON(w, http.StatusOK, Ok(h.monitor.Warnings()))
}

// RemoveWarning DELETE /api/v1/warnings/{id}
func (h *MonitorHandler) RemoveWarning(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		methodNotAllowed(w)
		return
	}
	id := strings.TrimPrefix(r.URL.Path, "/api/v1/warnings/")
	if id == "" || strings.Contains(id, "/") {
		writeFail(w, ResultInvalidRequest, "warning id is required")
		return
	}
	if !h.monitor.RemoveWarning(id) {
		writeFail(w, ResultNotFound, "warning not found")
		return
	}
	writeJSON(w, http.StatusOK, Ok(map[string]any{"id": id}))
}

// History GET /api/v1/history
func (h *MonitorHandler) History(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	writeJSON(w, http.StatusOK, Ok(h.monitor.History()))
}

// Series GET /api/v1/history/series?metric=hr|spo2|steps
// hr/spo2 返回每分钟均值点，steps 返回 1440 个分钟桶
func (h *MonitorHandler) Series(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	metric := models.Metric(strings.ToLower(r.URL.Query().Get("metric")))
	if metric == "" {
		metric = models.MetricHeartRate
	}

	samples := h.monitor.History()
	dayStart := h.monitor.DayStart()
	out := map[string]any{
		"metric":   metric,
		"dayStart": dayStart,
	}
	switch metric {
	case models.MetricHeartRate, models.MetricSpO2:
		out["points"] = history.PerMinuteAverage(samples, metric, dayStart)
	case models.MetricSteps:
		out["buckets"] = history.PerMinuteSteps(samples, dayStart)
	default:
		writeFail(w, ResultInvalidRequest, "metric must be one of hr, spo2, steps")
		return
	}
	if v, ok := history.MetricNow(h.monitor.Latest(), samples, metric, h.now()); ok {
		out["current"] = v
	}
	writeJSON(w, http.StatusOK, Ok(out))
}

// Report GET /api/v1/report.xlsx
func (h *MonitorHandler) Report(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	dayStart := h.monitor.DayStart()
	data, err := report.GenerateDailyReport(dayStart, h.monitor.History(), h.monitor.Warnings())
	if err != nil {
		h.logger.Error("Failed to generate daily report", zap.Error(err))
		writeFail(w, ResultInternal, "failed to generate report")
		return
	}
	filename := fmt.Sprintf("bear-%s.xlsx", dayStart.Format("2006-01-02"))
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// Settings GET/PUT /api/v1/settings
func (h *MonitorHandler) Settings(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, Ok(h.settings.Get()))
	case http.MethodPut:
		// 未出现的字段保持当前值
		next := h.settings.Get()
		if err := readBodyJSON(r, maxBodyBytes, &next); err != nil {
			writeFail(w, ResultInvalidRequest, "invalid body")
			return
		}
		if err := h.settings.Save(r.Context(), next); err != nil {
			h.logger.Error("Failed to save settings", zap.Error(err))
			writeFail(w, ResultInternal, "failed to save settings")
			return
		}
		writeJSON(w, http.StatusOK, Ok(h.settings.Get()))
	default:
		methodNotAllowed(w)
	}
}
