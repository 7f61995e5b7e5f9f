package httpapi

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"bear-monitor/internal/backend/repository"
	"bear-monitor/internal/backend/service"
	"bear-monitor/internal/models"

	"go.uber.org/zap"
)

// AuthAPI 认证相关操作
type AuthAPI interface {
	Authenticator
	SignUp(ctx context.Context, in service.SignUpInput) (string, error)
	SignIn(ctx context.Context, identifier, password string) (*models.SignInResponse, error)
	ForgotPassword(ctx context.Context, email string) error
	VerifyOTP(ctx context.Context, email, code string) (string, error)
	ResetPassword(ctx context.Context, in service.ResetPasswordInput) error
}

// ContactAPI 紧急联系人操作
type ContactAPI interface {
	List(ctx context.Context, userID string) ([]repository.Contact, error)
	Add(ctx context.Context, userID string, in service.ContactInput) (*repository.Contact, error)
	Delete(ctx context.Context, userID, contactID string) error
	SetPrimary(ctx context.Context, userID, email string) error
	Status(ctx context.Context, userID string) (int, error)
}

// AlertAPI 告警转发
type AlertAPI interface {
	SendAlert(ctx context.Context, userID string, req models.AlertRequest) (*models.AlertResponse, error)
}

// Handler bear-relay HTTP 接口
type Handler struct {
	auth     AuthAPI
	contacts ContactAPI
	alerts   AlertAPI
	logger   *zap.Logger
}

func NewHandler(auth AuthAPI, contacts ContactAPI, alerts AlertAPI, logger *zap.Logger) *Handler {
	return &Handler{auth: auth, contacts: contacts, alerts: alerts, logger: logger}
}

// Health GET /api/health
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "service": "bear-backend"})
}

// SignUp POST /api/auth/signup
func (h *Handler) SignUp(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	var in service.SignUpInput
	if err := readBodyJSON(r, &in); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	userID, err := h.auth.SignUp(r.Context(), in)
	if err != nil {
		writeServiceError(w, err, h.logger)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"message": "Sign up successful.", "userId": userID})
}

// SignIn POST /api/auth/signin
func (h *Handler) SignIn(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	var in models.SignInRequest
	if err := readBodyJSON(r, &in); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	resp, err := h.auth.SignIn(r.Context(), in.Identifier, in.Password)
	if err != nil {
		writeServiceError(w, err, h.logger)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// ForgotPassword POST /api/auth/forgot-password
func (h *Handler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	var in struct {
		Email string `json:"email"`
	}
	if err := readBodyJSON(r, &in); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := h.auth.ForgotPassword(r.Context(), in.Email); err != nil {
		writeServiceError(w, err, h.logger)
		return
	}
	writeMessage(w, http.StatusOK, "If an account exists for this email, an OTP has been sent.")
}

// VerifyOTP POST /api/auth/verify-otp
// 验证码字段兼容 code 和 otp
func (h *Handler) VerifyOTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	var in struct {
		Email string `json:"email"`
		Code  string `json:"code"`
		OTP   string `json:"otp"`
	}
	if err := readBodyJSON(r, &in); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	code := in.Code
	if code == "" {
		code = in.OTP
	}
	token, err := h.auth.VerifyOTP(r.Context(), in.Email, code)
	if err != nil {
		writeServiceError(w, err, h.logger)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "OTP verified", "resetToken": token})
}

// ResetPassword POST /api/auth/reset-password
func (h *Handler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	var in service.ResetPasswordInput
	if err := readBodyJSON(r, &in); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := h.auth.ResetPassword(r.Context(), in); err != nil {
		writeServiceError(w, err, h.logger)
		return
	}
	writeMessage(w, http.StatusOK, "Password has been reset successfully.")
}

// Contacts GET/POST /api/auth/emergency-contacts
func (h *Handler) Contacts(w http.ResponseWriter, r *http.Request) {
	userID := UserID(r.Context())
	switch r.Method {
	case http.MethodGet:
		list, err := h.contacts.List(r.Context(), userID)
		if err != nil {
			writeServiceError(w, err, h.logger)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"contacts": list})
	case http.MethodPost:
		var in service.ContactInput
		if err := readBodyJSON(r, &in); err != nil {
			writeMessage(w, http.StatusBadRequest, "Invalid request body")
			return
		}
		c, err := h.contacts.Add(r.Context(), userID, in)
		if err != nil {
			writeServiceError(w, err, h.logger)
			return
		}
		writeJSON(w, http.StatusCreated, c)
	default:
		methodNotAllowed(w)
	}
}

// DeleteContact DELETE /api/auth/emergency-contacts/{id}
func (h *Handler) DeleteContact(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		methodNotAllowed(w)
		return
	}
	id := strings.TrimPrefix(r.URL.Path, "/api/auth/emergency-contacts/")
	if id == "" || strings.Contains(id, "/") {
		writeMessage(w, http.StatusBadRequest, "Contact id is required")
		return
	}
	if err := h.contacts.Delete(r.Context(), UserID(r.Context()), id); err != nil {
		writeServiceError(w, err, h.logger)
		return
	}
	writeMessage(w, http.StatusOK, "Contact deleted")
}

// UpdateEmergencyContact PUT /api/auth/update-emergency-contact
func (h *Handler) UpdateEmergencyContact(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPut {
		methodNotAllowed(w)
		return
	}
	var in struct {
		Email *string `json:"emergencyContactEmail"`
	}
	if err := readBodyJSON(r, &in); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	email := ""
	if in.Email != nil {
		email = *in.Email
	}
	if err := h.contacts.SetPrimary(r.Context(), UserID(r.Context()), email); err != nil {
		writeServiceError(w, err, h.logger)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"message": "Emergency contact updated", "emergencyContactEmail": in.Email})
}

// SendAlert POST /api/health/alert
func (h *Handler) SendAlert(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	var req models.AlertRequest
	if err := readBodyJSON(r, &req); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	resp, err := h.alerts.SendAlert(r.Context(), UserID(r.Context()), req)
	if err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			writeServiceError(w, err, h.logger)
			return
		}
		h.logger.Error("Failed to send alert", zap.Error(err))
		writeMessage(w, http.StatusInternalServerError, "Failed to send alert")
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// Status GET /api/health/status
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	n, err := h.contacts.Status(r.Context(), UserID(r.Context()))
	if err != nil {
		writeServiceError(w, err, h.logger)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"emergencyContactsCount": n,
		"hasEmergencyContacts":   n > 0,
	})
}
