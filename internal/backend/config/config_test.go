package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_RequiresSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	_, err := Load()
	assert.Error(t, err)
}

func TestLoad_Env(t *testing.T) {
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("PORT", "4100")
	t.Setenv("DB_HOST", "db")
	t.Setenv("DB_NAME", "bear_test")
	t.Setenv("SMTP_HOST", "smtp.example.com")
	t.Setenv("SMTP_USER", "bear")
	t.Setenv("SMTP_PASS", "pw")
	t.Setenv("FROM_EMAIL", "alerts@example.com")
	t.Setenv("OTP_TTL", "5m")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":4100", cfg.HTTPAddr)
	assert.Equal(t, "db", cfg.Database.Host)
	assert.Equal(t, "bear_test", cfg.Database.Database)
	assert.Equal(t, "host=db port=5432 user=postgres password= dbname=bear_test sslmode=disable", cfg.Database.GetDSN())
	assert.True(t, cfg.SMTP.Enabled())
	assert.Equal(t, "alerts@example.com", cfg.SMTP.From)
	assert.Equal(t, 5*time.Minute, cfg.OTP.CodeTTL)
	assert.Equal(t, 15*time.Minute, cfg.OTP.ResetTokenTTL)
	assert.Equal(t, 7*24*time.Hour, cfg.JWT.TTL)
}

func TestLoad_HTTPAddrWinsOverPort(t *testing.T) {
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("PORT", "4100")
	t.Setenv("HTTP_ADDR", "127.0.0.1:4200")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:4200", cfg.HTTPAddr)
	assert.False(t, cfg.SMTP.Enabled())
}
