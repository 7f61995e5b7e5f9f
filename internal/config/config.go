package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"bear-monitor/internal/common/config"
	"bear-monitor/internal/transport"
	"bear-monitor/internal/transport/rfcomm"

	"gopkg.in/yaml.v3"
)

// Config bear-monitor 配置
type Config struct {
	Transport string `yaml:"transport"` // rfcomm | mqtt

	RFCOMMDevices []rfcomm.DeviceConfig `yaml:"rfcomm_devices"`

	MQTT            config.MQTTConfig  `yaml:"mqtt"`
	MQTTTopicPrefix string             `yaml:"mqtt_topic_prefix"`
	GatewayDevices  []transport.Device `yaml:"gateway_devices"`

	Target transport.Target `yaml:"target"`

	Session struct {
		HistoryCapacity          int           `yaml:"history_capacity"`
		Timezone                 string        `yaml:"timezone"`
		ResetCheckInterval       time.Duration `yaml:"reset_check_interval"`
		ResetCooldownsAtMidnight bool          `yaml:"reset_cooldowns_at_midnight"`
	} `yaml:"session"`

	Alert struct {
		RelayURL        string        `yaml:"relay_url"`
		Timeout         time.Duration `yaml:"timeout"`
		QueueSize       int           `yaml:"queue_size"`
		CooldownBackend string        `yaml:"cooldown_backend"` // memory | redis
		CooldownPrefix  string        `yaml:"cooldown_prefix"`
	} `yaml:"alert"`

	Redis config.RedisConfig `yaml:"redis"`

	State struct {
		Backend string `yaml:"backend"` // file | redis
		File    string `yaml:"file"`
		Prefix  string `yaml:"prefix"`
	} `yaml:"state"`

	HTTPAddr string `yaml:"http_addr"`

	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"log"`
}

// Default 默认配置
func Default() *Config {
	cfg := &Config{}
	cfg.Transport = "rfcomm"
	cfg.MQTT.Broker = "tcp://localhost:1883"
	cfg.MQTT.ClientID = "bear-monitor"
	cfg.MQTTTopicPrefix = "bear/devices"

	cfg.Session.HistoryCapacity = 1500
	cfg.Session.Timezone = "Local"
	cfg.Session.ResetCheckInterval = time.Minute

	cfg.Alert.RelayURL = "http://localhost:4000"
	cfg.Alert.Timeout = 10 * time.Second
	cfg.Alert.QueueSize = 32
	cfg.Alert.CooldownBackend = "memory"
	cfg.Alert.CooldownPrefix = "bear:cooldown:"

	cfg.Redis.Addr = "localhost:6379"

	cfg.State.Backend = "file"
	cfg.State.File = defaultStateFile()
	cfg.State.Prefix = "bear:state:"

	cfg.HTTPAddr = ":8090"
	cfg.Log.Level = "info"
	cfg.Log.Format = "json"
	return cfg
}

func defaultStateFile() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return dir + "/bear-monitor/state.json"
	}
	return "bear-state.json"
}

// Load 加载配置：默认值 → BEAR_CONFIG_FILE（可选）→ 环境变量
func Load() (*Config, error) {
	cfg := Default()

	if path := os.Getenv("BEAR_CONFIG_FILE"); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	if err := cfg.loadEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) loadEnv() error {
	c.Transport = config.GetEnv("TRANSPORT", c.Transport)

	if v := os.Getenv("RFCOMM_DEVICES"); v != "" {
		devices, err := rfcomm.ParseDevices(v)
		if err != nil {
			return err
		}
		c.RFCOMMDevices = devices
	}

	c.MQTT.LoadFromEnv("MQTT")
	c.MQTTTopicPrefix = config.GetEnv("MQTT_TOPIC_PREFIX", c.MQTTTopicPrefix)
	if v := os.Getenv("MQTT_DEVICES"); v != "" {
		devices, err := ParseGatewayDevices(v)
		if err != nil {
			return err
		}
		c.GatewayDevices = devices
	}

	c.Target.Address = config.GetEnv("DEVICE_ADDRESS", c.Target.Address)
	c.Target.NamePrefix = config.GetEnv("DEVICE_NAME_PREFIX", c.Target.NamePrefix)

	c.Session.HistoryCapacity = config.EnvInt("HISTORY_CAPACITY", c.Session.HistoryCapacity)
	c.Session.Timezone = config.GetEnv("TIMEZONE", c.Session.Timezone)
	c.Session.ResetCheckInterval = config.EnvDuration("RESET_CHECK_INTERVAL", c.Session.ResetCheckInterval)
	c.Session.ResetCooldownsAtMidnight = config.EnvBool("RESET_COOLDOWNS_AT_MIDNIGHT", c.Session.ResetCooldownsAtMidnight)

	c.Alert.RelayURL = config.GetEnv("ALERT_RELAY_URL", c.Alert.RelayURL)
	c.Alert.Timeout = config.EnvDuration("ALERT_TIMEOUT", c.Alert.Timeout)
	c.Alert.QueueSize = config.EnvInt("ALERT_QUEUE_SIZE", c.Alert.QueueSize)
	c.Alert.CooldownBackend = config.GetEnv("ALERT_COOLDOWN_BACKEND", c.Alert.CooldownBackend)

	c.Redis.LoadFromEnv("REDIS")

	c.State.Backend = config.GetEnv("STATE_BACKEND", c.State.Backend)
	c.State.File = config.GetEnv("STATE_FILE", c.State.File)

	c.HTTPAddr = config.GetEnv("HTTP_ADDR", c.HTTPAddr)
	c.Log.Level = config.GetEnv("LOG_LEVEL", c.Log.Level)
	c.Log.Format = config.GetEnv("LOG_FORMAT", c.Log.Format)
	return nil
}

// Validate 校验枚举字段
func (c *Config) Validate() error {
	switch c.Transport {
	case "rfcomm", "mqtt":
	default:
		return fmt.Errorf("invalid TRANSPORT %q: want rfcomm or mqtt", c.Transport)
	}
	switch c.Alert.CooldownBackend {
	case "memory", "redis":
	default:
		return fmt.Errorf("invalid ALERT_COOLDOWN_BACKEND %q: want memory or redis", c.Alert.CooldownBackend)
	}
	switch c.State.Backend {
	case "file", "redis":
	default:
		return fmt.Errorf("invalid STATE_BACKEND %q: want file or redis", c.State.Backend)
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	return nil
}

// NeedsRedis 是否有组件使用 Redis
func (c *Config) NeedsRedis() bool {
	return c.Alert.CooldownBackend == "redis" || c.State.Backend == "redis"
}

// Location 日期边界使用的时区
func (c *Config) Location() (*time.Location, error) {
	if c.Session.Timezone == "" || strings.EqualFold(c.Session.Timezone, "local") {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Session.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid TIMEZONE %q: %w", c.Session.Timezone, err)
	}
	return loc, nil
}

// ParseGatewayDevices 解析 "address,name;address,name"
func ParseGatewayDevices(raw string) ([]transport.Device, error) {
	var out []transport.Device
	for _, item := range strings.Split(raw, ";") {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		parts := strings.SplitN(item, ",", 2)
		d := transport.Device{Address: strings.TrimSpace(parts[0])}
		if len(parts) == 2 {
			d.Name = strings.TrimSpace(parts[1])
		}
		if d.Address == "" {
			return nil, fmt.Errorf("invalid gateway device %q: address is required", item)
		}
		out = append(out, d)
	}
	return out, nil
}
