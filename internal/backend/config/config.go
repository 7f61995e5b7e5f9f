package config

import (
	"fmt"
	"os"
	"time"

	"bear-monitor/internal/common/config"

	"gopkg.in/yaml.v3"
)

// Config bear-relay 配置
type Config struct {
	HTTPAddr string `yaml:"http_addr"`

	Database config.DatabaseConfig `yaml:"database"`
	Redis    config.RedisConfig    `yaml:"redis"`
	SMTP     config.SMTPConfig     `yaml:"smtp"`

	JWT struct {
		Secret string        `yaml:"secret"`
		TTL    time.Duration `yaml:"ttl"`
	} `yaml:"jwt"`

	OTP struct {
		CodeTTL       time.Duration `yaml:"code_ttl"`
		ResetTokenTTL time.Duration `yaml:"reset_token_ttl"`
		Prefix        string        `yaml:"prefix"`
	} `yaml:"otp"`

	Migrate bool `yaml:"migrate"` // 启动时执行建表语句

	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"log"`
}

// Default 默认配置
func Default() *Config {
	cfg := &Config{}
	cfg.HTTPAddr = ":4000"

	cfg.Database = config.DatabaseConfig{
		Host:     "localhost",
		Port:     5432,
		User:     "postgres",
		Database: "bear",
		SSLMode:  "disable",
		MaxConns: 10,
		MaxIdle:  5,

		ConnMaxLifetime: 30 * time.Minute,
		ConnMaxIdleTime: 5 * time.Minute,
		PingAttempts:    5,
		PingInterval:    2 * time.Second,
	}
	cfg.Redis.Addr = "localhost:6379"
	cfg.SMTP.Port = 587

	cfg.JWT.TTL = 7 * 24 * time.Hour
	cfg.OTP.CodeTTL = 10 * time.Minute
	cfg.OTP.ResetTokenTTL = 15 * time.Minute
	cfg.OTP.Prefix = "bear:otp:"
	cfg.Migrate = true

	cfg.Log.Level = "info"
	cfg.Log.Format = "json"
	return cfg
}

// Load 加载配置：默认值 → BEAR_CONFIG_FILE（可选）→ 环境变量
func Load() (*Config, error) {
	cfg := Default()

	if path := os.Getenv("BEAR_CONFIG_FILE"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	// PORT 与原 Node 服务保持兼容
	if port := os.Getenv("PORT"); port != "" {
		cfg.HTTPAddr = ":" + port
	}
	cfg.HTTPAddr = config.GetEnv("HTTP_ADDR", cfg.HTTPAddr)

	cfg.Database.LoadFromEnv("DB")
	cfg.Redis.LoadFromEnv("REDIS")
	cfg.SMTP.LoadFromEnv("SMTP")
	if from := os.Getenv("FROM_EMAIL"); from != "" && cfg.SMTP.From == "" {
		cfg.SMTP.From = from
	}

	cfg.JWT.Secret = config.GetEnv("JWT_SECRET", cfg.JWT.Secret)
	cfg.JWT.TTL = config.EnvDuration("JWT_TTL", cfg.JWT.TTL)
	cfg.OTP.CodeTTL = config.EnvDuration("OTP_TTL", cfg.OTP.CodeTTL)
	cfg.OTP.ResetTokenTTL = config.EnvDuration("RESET_TOKEN_TTL", cfg.OTP.ResetTokenTTL)
	cfg.Migrate = config.EnvBool("DB_MIGRATE", cfg.Migrate)

	cfg.Log.Level = config.GetEnv("LOG_LEVEL", cfg.Log.Level)
	cfg.Log.Format = config.GetEnv("LOG_FORMAT", cfg.Log.Format)

	if cfg.JWT.Secret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}
	return cfg, nil
}
