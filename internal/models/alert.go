package models

// AlertRequest POST /api/health/alert 请求体
type AlertRequest struct {
	AlertType   string   `json:"alertType"`
	Message     string   `json:"message"`
	HeartRate   *float64 `json:"heartRate,omitempty"`
	SpO2        *float64 `json:"spo2,omitempty"`
	Temperature *float64 `json:"temperature,omitempty"`
}

// AlertResponse POST /api/health/alert 响应体
type AlertResponse struct {
	Message string   `json:"message"`
	Sent    int      `json:"sent"`
	Total   int      `json:"total"`
	Failed  []string `json:"failed,omitempty"`
}
