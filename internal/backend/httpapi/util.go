package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"bear-monitor/internal/backend/service"

	"go.uber.org/zap"
)

const maxBodyBytes = 1 << 20

// messageBody 错误响应 {"message": "..."}
type messageBody struct {
	Message string `json:"message"`
}

// validationBody 校验错误响应 {"errors": [...]}
type validationBody struct {
	Errors []service.FieldError `json:"errors"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, messageBody{Message: msg})
}

func readBodyJSON(r *http.Request, out any) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		return err
	}
	if len(body) == 0 {
		return nil
	}
	return json.Unmarshal(body, out)
}

// writeServiceError 服务层错误映射为状态码，500 不回传内部错误信息
func writeServiceError(w http.ResponseWriter, err error, logger *zap.Logger) {
	var verr *service.ValidationError
	switch {
	case errors.As(err, &verr):
		writeJSON(w, http.StatusBadRequest, validationBody{Errors: verr.Fields})
	case errors.Is(err, service.ErrUserExists):
		writeMessage(w, http.StatusConflict, "Username or email already in use")
	case errors.Is(err, service.ErrInvalidCredentials):
		writeMessage(w, http.StatusUnauthorized, "Invalid credentials")
	case errors.Is(err, service.ErrInvalidCode):
		writeMessage(w, http.StatusBadRequest, "Invalid or expired OTP")
	case errors.Is(err, service.ErrInvalidToken):
		writeMessage(w, http.StatusBadRequest, "Invalid or expired reset token")
	case errors.Is(err, service.ErrUserNotFound):
		writeMessage(w, http.StatusNotFound, "User not found")
	case errors.Is(err, service.ErrContactNotFound):
		writeMessage(w, http.StatusNotFound, "Contact not found")
	case errors.Is(err, service.ErrContactExists):
		writeMessage(w, http.StatusConflict, "Contact already exists")
	default:
		logger.Error("Request failed", zap.Error(err))
		writeMessage(w, http.StatusInternalServerError, "Internal server error")
	}
}

func methodNotAllowed(w http.ResponseWriter) {
	writeMessage(w, http.StatusMethodNotAllowed, "Method not allowed")
}
