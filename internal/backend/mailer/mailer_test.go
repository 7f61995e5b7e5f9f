package mailer

import (
	"bytes"
	"context"
	"testing"
	"time"

	"bear-monitor/internal/common/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	"gopkg.in/gomail.v2"
)

func TestNew_SelectsImplementation(t *testing.T) {
	logger := zap.NewNop()

	_, ok := New(config.SMTPConfig{Host: "smtp.example.com"}, logger).(*LogMailer)
	assert.True(t, ok)

	m, ok := New(config.SMTPConfig{Host: "smtp.example.com", User: "u", Password: "p", From: "alerts@example.com"}, logger).(*SMTPMailer)
	require.True(t, ok)
	assert.Equal(t, 587, m.dialer.Port)
	assert.Equal(t, "smtp.example.com", m.dialer.Host)
}

func TestLogMailer_Send(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	m := NewLogMailer(zap.New(core))

	require.NoError(t, m.Send(context.Background(), Message{To: "mom@example.com", Subject: "hi", Text: "body"}))
	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, "mom@example.com", entry.ContextMap()["to"])
	assert.Equal(t, "hi", entry.ContextMap()["subject"])
}

func TestSMTPMailer_CanceledContext(t *testing.T) {
	m := NewSMTPMailer(config.SMTPConfig{Host: "127.0.0.1", Port: 1, User: "u", Password: "p", From: "a@example.com"}, zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, m.Send(ctx, Message{To: "b@example.com"}), context.Canceled)
}

func TestSMTPMailer_Compose(t *testing.T) {
	m := NewSMTPMailer(config.SMTPConfig{Host: "smtp.example.com", User: "u", Password: "p", From: "alerts@example.com"}, zap.NewNop())
	gm := gomail.NewMessage()
	m.compose(gm, Message{To: "mom@example.com", Subject: "CRITICAL HEALTH ALERT - Bear", Text: "plain", HTML: "<p>html</p>"})

	assert.Equal(t, []string{"mom@example.com"}, gm.GetHeader("To"))
	assert.Equal(t, []string{"CRITICAL HEALTH ALERT - Bear"}, gm.GetHeader("Subject"))
	assert.Contains(t, gm.GetHeader("From")[0], "alerts@example.com")

	var buf bytes.Buffer
	_, err := gm.WriteTo(&buf)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "text/plain")
	assert.Contains(t, buf.String(), "text/html")
}

func TestCriticalAlert(t *testing.T) {
	at := time.Date(2026, 10, 14, 8, 30, 0, 0, time.UTC)
	msg, err := CriticalAlert("mom@example.com", "Bear <Cub>", "Fall Detected", "Fall detected!\n\nVital Signs:\n- Heart Rate: 158 BPM", at)
	require.NoError(t, err)

	assert.Equal(t, "mom@example.com", msg.To)
	assert.Equal(t, "CRITICAL HEALTH ALERT - Bear <Cub>", msg.Subject)
	assert.Contains(t, msg.Text, "User: Bear <Cub>")
	assert.Contains(t, msg.Text, "Alert Type: Fall Detected")
	assert.Contains(t, msg.Text, "Time: 2026-10-14 08:30:00 UTC")
	assert.Contains(t, msg.Text, "- Heart Rate: 158 BPM")

	assert.Contains(t, msg.HTML, "Bear &lt;Cub&gt;")
	assert.NotContains(t, msg.HTML, "<Cub>")
	assert.Contains(t, msg.HTML, "Vital Signs:")
}

func TestPasswordResetOTP(t *testing.T) {
	msg, err := PasswordResetOTP("bear@example.com", "123456", 10*time.Minute)
	require.NoError(t, err)
	assert.Equal(t, "BEAR - Password Reset OTP", msg.Subject)
	assert.Contains(t, msg.Text, "123456")
	assert.Contains(t, msg.Text, "10 minutes")
	assert.Contains(t, msg.HTML, "123456")
}
