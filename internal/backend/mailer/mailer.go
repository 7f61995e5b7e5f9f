package mailer

import (
	"context"
	"fmt"

	"bear-monitor/internal/common/config"

	"go.uber.org/zap"
	"gopkg.in/gomail.v2"
)

// Message 一封邮件
type Message struct {
	To      string
	Subject string
	Text    string
	HTML    string
}

// Mailer 邮件发送
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// New SMTP 已完整配置时返回 SMTPMailer，否则返回只写日志的 LogMailer
func New(cfg config.SMTPConfig, logger *zap.Logger) Mailer {
	if cfg.Enabled() {
		return NewSMTPMailer(cfg, logger)
	}
	logger.Warn("SMTP not configured, emails will be logged only")
	return NewLogMailer(logger)
}

// SMTPMailer 基于 gomail 的 SMTP 发送
type SMTPMailer struct {
	dialer   *gomail.Dialer
	from     string
	fromName string
	logger   *zap.Logger
}

func NewSMTPMailer(cfg config.SMTPConfig, logger *zap.Logger) *SMTPMailer {
	port := cfg.Port
	if port == 0 {
		port = 587
	}
	d := gomail.NewDialer(cfg.Host, port, cfg.User, cfg.Password)
	if cfg.Secure {
		d.SSL = true
	}
	return &SMTPMailer{
		dialer:   d,
		from:     cfg.From,
		fromName: "BEAR Health",
		logger:   logger,
	}
}

func (m *SMTPMailer) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	gm := gomail.NewMessage()
	m.compose(gm, msg)

	if err := m.dialer.DialAndSend(gm); err != nil {
		return fmt.Errorf("failed to send email to %s: %w", msg.To, err)
	}
	m.logger.Info("Email sent", zap.String("to", msg.To), zap.String("subject", msg.Subject))
	return nil
}

func (m *SMTPMailer) compose(gm *gomail.Message, msg Message) {
	gm.SetHeader("From", gm.FormatAddress(m.from, m.fromName))
	gm.SetHeader("To", msg.To)
	gm.SetHeader("Subject", msg.Subject)
	gm.SetBody("text/plain", msg.Text)
	if msg.HTML != "" {
		gm.AddAlternative("text/html", msg.HTML)
	}
}

// LogMailer 开发模式：只记录日志
type LogMailer struct {
	logger *zap.Logger
}

func NewLogMailer(logger *zap.Logger) *LogMailer {
	return &LogMailer{logger: logger}
}

func (m *LogMailer) Send(_ context.Context, msg Message) error {
	m.logger.Info("[DEV] Email not sent",
		zap.String("to", msg.To),
		zap.String("subject", msg.Subject),
		zap.String("text", msg.Text),
	)
	return nil
}
