package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"bear-monitor/internal/backend/mailer"
	"bear-monitor/internal/backend/repository"
	"bear-monitor/internal/models"

	"go.uber.org/zap"
)

// DefaultAlertMessage 请求未携带文案时使用
const DefaultAlertMessage = "Critical health alert detected."

// HealthService 向紧急联系人转发危急告警
type HealthService struct {
	users    repository.UserRepository
	contacts repository.ContactRepository
	mailer   mailer.Mailer
	now      func() time.Time
	logger   *zap.Logger
}

func NewHealthService(users repository.UserRepository, contacts repository.ContactRepository, m mailer.Mailer, logger *zap.Logger) *HealthService {
	return &HealthService{users: users, contacts: contacts, mailer: m, now: time.Now, logger: logger}
}

// SendAlert 每个联系人发送一封邮件，单个失败不影响其余联系人
func (s *HealthService) SendAlert(ctx context.Context, userID string, req models.AlertRequest) (*models.AlertResponse, error) {
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	contacts, err := s.contacts.List(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(contacts) == 0 {
		s.logger.Info("No emergency contacts to notify", zap.String("username", u.Username))
		return &models.AlertResponse{Message: "Alert logged but no emergency contacts to notify", Sent: 0}, nil
	}

	name := u.DisplayName
	if name == "" {
		name = u.Username
	}
	alertType := req.AlertType
	if alertType == "" {
		alertType = "Critical Health Alert"
	}
	body := AlertBody(req)
	at := s.now()

	resp := &models.AlertResponse{Total: len(contacts)}
	for _, c := range contacts {
		msg, err := mailer.CriticalAlert(c.Email, name, alertType, body, at)
		if err == nil {
			err = s.mailer.Send(ctx, msg)
		}
		if err != nil {
			resp.Failed = append(resp.Failed, c.Email)
			s.logger.Error("Failed to send alert",
				zap.String("user_id", userID),
				zap.String("contact", c.Email),
				zap.Error(err),
			)
			continue
		}
		resp.Sent++
	}
	resp.Message = fmt.Sprintf("Alert sent to %d of %d contacts", resp.Sent, resp.Total)
	s.logger.Info("Critical alert relayed",
		zap.String("user_id", userID),
		zap.String("alert_type", alertType),
		zap.Int("sent", resp.Sent),
		zap.Int("total", resp.Total),
	)
	return resp, nil
}

// AlertBody 告警正文，附带 "Vital Signs:" 读数
func AlertBody(req models.AlertRequest) string {
	var b strings.Builder
	if req.Message != "" {
		b.WriteString(req.Message)
	} else {
		b.WriteString(DefaultAlertMessage)
	}

	hr, spo2, temp := present(req.HeartRate), present(req.SpO2), present(req.Temperature)
	if hr || spo2 || temp {
		b.WriteString("\n\nVital Signs:")
		if hr {
			b.WriteString("\n- Heart Rate: " + formatNumber(*req.HeartRate) + " BPM")
		}
		if spo2 {
			b.WriteString("\n- SpO2: " + formatNumber(*req.SpO2) + "%")
		}
		if temp {
			b.WriteString("\n- Temperature: " + formatNumber(*req.Temperature) + "°C")
		}
	}
	return b.String()
}

// present 0 视为未上报
func present(p *float64) bool {
	return p != nil && *p != 0
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
