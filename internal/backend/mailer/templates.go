package mailer

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"
	"time"
)

// TimeLayout 邮件中的时间格式
const TimeLayout = "2006-01-02 15:04:05 MST"

var criticalHTML = template.Must(template.New("critical").Parse(`<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto; padding: 20px; background-color: #f9f9f9;">
  <div style="background-color: #B31B1B; padding: 20px; text-align: center; border-radius: 10px 10px 0 0;">
    <h1 style="color: white; margin: 0;">BEAR Health Alert</h1>
  </div>
  <div style="background-color: white; padding: 30px; border-radius: 0 0 10px 10px;">
    <h2 style="color: #B31B1B; margin-top: 0;">CRITICAL HEALTH ALERT</h2>
    <div style="background-color: #fff3cd; border-left: 4px solid #B31B1B; padding: 15px; margin: 20px 0;">
      <p style="margin: 0; color: #333; font-weight: bold;">Immediate attention required</p>
    </div>
    <table style="width: 100%; border-collapse: collapse; margin: 20px 0;">
      <tr><td style="padding: 10px; font-weight: bold; color: #666;">User:</td><td style="padding: 10px; color: #333;">{{.User}}</td></tr>
      <tr><td style="padding: 10px; font-weight: bold; color: #666;">Alert Type:</td><td style="padding: 10px; color: #B31B1B; font-weight: bold;">{{.AlertType}}</td></tr>
      <tr><td style="padding: 10px; font-weight: bold; color: #666;">Time:</td><td style="padding: 10px; color: #333;">{{.Time}}</td></tr>
    </table>
    <div style="background-color: #f5f5f5; padding: 20px; border-radius: 8px; margin: 20px 0;">
      {{range .Lines}}<p style="color: #333; font-size: 16px; line-height: 1.6; margin: 0;">{{.}}</p>{{end}}
    </div>
    <p style="color: #666; font-size: 14px; line-height: 1.6; margin-top: 30px;">
      This is an automated alert from BEAR Health monitoring system.
      Please check on <strong>{{.User}}</strong> immediately.
    </p>
  </div>
</div>`))

var otpHTML = template.Must(template.New("otp").Parse(`<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto; padding: 20px; background-color: #f9f9f9;">
  <div style="background-color: #B31B1B; padding: 20px; text-align: center; border-radius: 10px 10px 0 0;">
    <h1 style="color: white; margin: 0;">BEAR Health</h1>
  </div>
  <div style="background-color: white; padding: 30px; border-radius: 0 0 10px 10px;">
    <h2 style="color: #B31B1B; margin-top: 0;">Password Reset Request</h2>
    <p style="color: #333; font-size: 16px; line-height: 1.6;">You requested to reset your password. Please use the following OTP code:</p>
    <div style="background-color: #f5f5f5; padding: 20px; text-align: center; margin: 30px 0; border-radius: 8px;">
      <h1 style="color: #B31B1B; font-size: 36px; letter-spacing: 8px; margin: 0; font-family: 'Courier New', monospace;">{{.Code}}</h1>
    </div>
    <p style="color: #666; font-size: 14px; line-height: 1.6;">This code will expire in <strong>{{.Minutes}} minutes</strong>.</p>
    <p style="color: #999; font-size: 12px; margin-top: 30px;">If you didn't request this, please ignore this email.</p>
  </div>
</div>`))

// CriticalAlert 紧急联系人收到的危急告警邮件
func CriticalAlert(to, userName, alertType, message string, at time.Time) (Message, error) {
	when := at.Format(TimeLayout)
	text := fmt.Sprintf(`CRITICAL HEALTH ALERT

User: %s
Alert Type: %s
Time: %s

%s

This is an automated alert from BEAR Health monitoring system.
Please check on %s immediately.`, userName, alertType, when, message, userName)

	var buf bytes.Buffer
	err := criticalHTML.Execute(&buf, map[string]any{
		"User":      userName,
		"AlertType": alertType,
		"Time":      when,
		"Lines":     strings.Split(message, "\n"),
	})
	if err != nil {
		return Message{}, fmt.Errorf("failed to render alert email: %w", err)
	}

	return Message{
		To:      to,
		Subject: "CRITICAL HEALTH ALERT - " + userName,
		Text:    text,
		HTML:    buf.String(),
	}, nil
}

// PasswordResetOTP 密码重置验证码邮件
func PasswordResetOTP(to, code string, ttl time.Duration) (Message, error) {
	minutes := int(ttl.Minutes())
	var buf bytes.Buffer
	if err := otpHTML.Execute(&buf, map[string]any{"Code": code, "Minutes": minutes}); err != nil {
		return Message{}, fmt.Errorf("failed to render otp email: %w", err)
	}
	return Message{
		To:      to,
		Subject: "BEAR - Password Reset OTP",
		Text:    fmt.Sprintf("Your 6-digit verification code is: %s. It expires in %d minutes.", code, minutes),
		HTML:    buf.String(),
	}, nil
}
