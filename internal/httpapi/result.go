package httpapi

import "net/http"

// Result 监控 API 的响应包
// code 为 2000 时成功，其余为 ResultXxx 错误码，前端据此区分会话忙、设备不可达等情况。
type Result[T any] struct {
	Code    int    `json:"code"`
	Type    string `json:"type"`
	Message string `json:"message"`
	Result  T      `json:"result"`
}

const (
	ResultSuccess = 2000

	ResultInvalidRequest   = 4000
	ResultNotFound         = 4004
	ResultMethodNotAllowed = 4005
	// ResultSessionBusy 会话不在 Disconnected，不能再次连接
	ResultSessionBusy = 4009
	ResultInternal    = 5000
	// ResultDeviceUnreachable 扫描或 RFCOMM/网关连接失败
	ResultDeviceUnreachable = 5020
)

// resultStatus 错误码对应的 HTTP 状态
var resultStatus = map[int]int{
	ResultInvalidRequest:    http.StatusBadRequest,
	ResultNotFound:          http.StatusNotFound,
	ResultMethodNotAllowed:  http.StatusMethodNotAllowed,
	ResultSessionBusy:       http.StatusConflict,
	ResultInternal:          http.StatusInternalServerError,
	ResultDeviceUnreachable: http.StatusBadGateway,
}

func Ok[T any](result T) Result[T] {
	return Result[T]{Code: ResultSuccess, Type: "success", Message: "ok", Result: result}
}

func Fail(code int, message string) Result[any] {
	return Result[any]{Code: code, Type: "error", Message: message, Result: nil}
}

// writeFail 按错误码写出失败响应，未知码按 500 处理
func writeFail(w http.ResponseWriter, code int, message string) {
	status, ok := resultStatus[code]
	if !ok {
		status = http.StatusInternalServerError
	}
	writeJSON(w, status, Fail(code, message))
}
