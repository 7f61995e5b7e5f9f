package alert

import (
	"context"
	"errors"
	"fmt"
	"time"

	"bear-monitor/internal/models"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// ErrUnauthorized 中继返回 401
var ErrUnauthorized = errors.New("relay rejected credentials")

// Relay 告警中继
type Relay interface {
	SendAlert(ctx context.Context, token string, req models.AlertRequest) (*models.AlertResponse, error)
}

// errorBody 中继的错误响应 {"message": "..."}
type errorBody struct {
	Message string `json:"message"`
}

// HTTPRelay 告警中继后端的 HTTP 客户端
type HTTPRelay struct {
	client *resty.Client
	logger *zap.Logger
}

// NewHTTPRelay 创建客户端，单次请求超时由 ctx 控制，timeout 为兜底
func NewHTTPRelay(baseURL string, timeout time.Duration, logger *zap.Logger) *HTTPRelay {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")

	return &HTTPRelay{
		client: client,
		logger: logger,
	}
}

// SendAlert POST /api/health/alert
func (r *HTTPRelay) SendAlert(ctx context.Context, token string, req models.AlertRequest) (*models.AlertResponse, error) {
	var result models.AlertResponse
	var failure errorBody
	resp, err := r.client.R().
		SetContext(ctx).
		SetAuthToken(token).
		SetBody(req).
		SetResult(&result).
		SetError(&failure).
		Post("/api/health/alert")
	if err != nil {
		return nil, fmt.Errorf("failed to call alert relay: %w", err)
	}
	if resp.StatusCode() == 401 {
		return nil, ErrUnauthorized
	}
	if resp.IsError() {
		return nil, fmt.Errorf("alert relay error: %s (status: %d)", failure.Message, resp.StatusCode())
	}
	return &result, nil
}

// SignIn POST /api/auth/signin，返回 token 和用户信息
func (r *HTTPRelay) SignIn(ctx context.Context, identifier, password string) (*models.SignInResponse, error) {
	var result models.SignInResponse
	var failure errorBody
	resp, err := r.client.R().
		SetContext(ctx).
		SetBody(models.SignInRequest{Identifier: identifier, Password: password}).
		SetResult(&result).
		SetError(&failure).
		Post("/api/auth/signin")
	if err != nil {
		return nil, fmt.Errorf("failed to call signin: %w", err)
	}
	if resp.StatusCode() == 401 {
		return nil, ErrUnauthorized
	}
	if resp.IsError() {
		return nil, fmt.Errorf("signin error: %s (status: %d)", failure.Message, resp.StatusCode())
	}

	r.logger.Info("Signed in to relay",
		zap.String("user_id", result.User.ID),
		zap.String("username", result.User.Username),
	)
	return &result, nil
}
