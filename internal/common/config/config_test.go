package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDatabaseConfig_LoadFromEnv(t *testing.T) {
	t.Setenv("DB_HOST", "pg.local")
	t.Setenv("DB_PORT", "6543")
	t.Setenv("DB_NAME", "bear")
	t.Setenv("DB_CONN_MAX_LIFETIME", "10m")
	t.Setenv("DB_PING_ATTEMPTS", "7")

	cfg := DatabaseConfig{Host: "localhost", Port: 5432, User: "postgres", SSLMode: "disable"}
	cfg.LoadFromEnv("DB")

	assert.Equal(t, "pg.local", cfg.Host)
	assert.Equal(t, 6543, cfg.Port)
	assert.Equal(t, "bear", cfg.Database)
	assert.Equal(t, "postgres", cfg.User)
	assert.Equal(t, 10*time.Minute, cfg.ConnMaxLifetime)
	assert.Equal(t, 7, cfg.PingAttempts)
	assert.Equal(t, "host=pg.local port=6543 user=postgres password= dbname=bear sslmode=disable", cfg.GetDSN())
}

func TestSMTPConfig_Enabled(t *testing.T) {
	cfg := SMTPConfig{Host: "smtp.local", User: "u", Password: "p"}
	assert.False(t, cfg.Enabled())

	cfg.From = "alerts@bear.local"
	assert.True(t, cfg.Enabled())
}

func TestMQTTConfig_LoadFromEnv_RejectsInvalidQoS(t *testing.T) {
	t.Setenv("MQTT_QOS", "7")
	cfg := MQTTConfig{QoS: 1}
	cfg.LoadFromEnv("MQTT")
	assert.Equal(t, byte(1), cfg.QoS)
}

func TestEnvHelpers(t *testing.T) {
	t.Setenv("TEST_INT", "abc")
	t.Setenv("TEST_BOOL", "true")
	t.Setenv("TEST_DURATION", "90s")

	assert.Equal(t, 3, EnvInt("TEST_INT", 3))
	assert.True(t, EnvBool("TEST_BOOL", false))
	assert.Equal(t, 90*time.Second, EnvDuration("TEST_DURATION", time.Minute))
	assert.Equal(t, time.Minute, EnvDuration("TEST_DURATION_MISSING", time.Minute))
	assert.Equal(t, "fallback", GetEnv("TEST_STRING_MISSING", "fallback"))
}
