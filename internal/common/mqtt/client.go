package mqtt

import (
	"fmt"
	"sync"
	"time"

	"bear-monitor/internal/common/config"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"
)

// MessageHandler 消息处理函数类型
type MessageHandler func(topic string, payload []byte) error

// connectTimeout 连接 broker 的最长等待时间
const connectTimeout = 10 * time.Second

type subscription struct {
	qos     byte
	handler MessageHandler
}

// Client MQTT客户端封装
// CleanSession 下 broker 重连后不保留订阅，OnConnect 时重新订阅 subs 中的主题。
type Client struct {
	client mqtt.Client
	broker string
	logger *zap.Logger

	mu   sync.Mutex
	subs map[string]subscription
	lost []func(error)
}

// NewClient 创建MQTT客户端并连接 broker
func NewClient(cfg *config.MQTTConfig, logger *zap.Logger) (*Client, error) {
	c := &Client{
		broker: cfg.Broker,
		logger: logger,
		subs:   make(map[string]subscription),
	}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(cfg.Broker)
	opts.SetClientID(cfg.ClientID)
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
	}
	if cfg.Password != "" {
		opts.SetPassword(cfg.Password)
	}
	opts.SetAutoReconnect(true)
	opts.SetCleanSession(true)
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		logger.Warn("MQTT connection lost", zap.String("broker", cfg.Broker), zap.Error(err))
		c.mu.Lock()
		listeners := append([]func(error){}, c.lost...)
		c.mu.Unlock()
		for _, fn := range listeners {
			fn(err)
		}
	})
	opts.SetOnConnectHandler(func(mqtt.Client) {
		c.resubscribe()
	})

	c.client = mqtt.NewClient(opts)
	token := c.client.Connect()
	if !token.WaitTimeout(connectTimeout) {
		return nil, fmt.Errorf("timed out connecting to MQTT broker %s", cfg.Broker)
	}
	if token.Error() != nil {
		return nil, fmt.Errorf("failed to connect to MQTT broker: %w", token.Error())
	}
	logger.Info("Connected to MQTT broker", zap.String("broker", cfg.Broker))
	return c, nil
}

// OnConnectionLost 注册掉线回调，在 paho 的回调 goroutine 中执行
func (c *Client) OnConnectionLost(fn func(err error)) {
	c.mu.Lock()
	c.lost = append(c.lost, fn)
	c.mu.Unlock()
}

func (c *Client) callback(handler MessageHandler) mqtt.MessageHandler {
	return func(_ mqtt.Client, msg mqtt.Message) {
		if err := handler(msg.Topic(), msg.Payload()); err != nil {
			// 记录错误，但不中断处理
			c.logger.Error("Error handling MQTT message",
				zap.String("topic", msg.Topic()),
				zap.Error(err),
			)
		}
	}
}

// Subscribe 订阅主题，重连后自动恢复
func (c *Client) Subscribe(topic string, qos byte, handler MessageHandler) error {
	token := c.client.Subscribe(topic, qos, c.callback(handler))
	if token.Wait() && token.Error() != nil {
		return fmt.Errorf("failed to subscribe to topic %s: %w", topic, token.Error())
	}
	c.mu.Lock()
	c.subs[topic] = subscription{qos: qos, handler: handler}
	c.mu.Unlock()
	return nil
}

// Unsubscribe 取消订阅
func (c *Client) Unsubscribe(topics ...string) error {
	c.mu.Lock()
	for _, t := range topics {
		delete(c.subs, t)
	}
	c.mu.Unlock()

	token := c.client.Unsubscribe(topics...)
	if token.Wait() && token.Error() != nil {
		return fmt.Errorf("failed to unsubscribe: %w", token.Error())
	}
	return nil
}

func (c *Client) resubscribe() {
	c.mu.Lock()
	filters := make(map[string]byte, len(c.subs))
	handlers := make(map[string]MessageHandler, len(c.subs))
	for topic, s := range c.subs {
		filters[topic] = s.qos
		handlers[topic] = s.handler
	}
	c.mu.Unlock()
	if len(filters) == 0 {
		return
	}

	for topic, qos := range filters {
		token := c.client.Subscribe(topic, qos, c.callback(handlers[topic]))
		if token.Wait() && token.Error() != nil {
			c.logger.Error("Failed to restore MQTT subscription",
				zap.String("topic", topic),
				zap.Error(token.Error()),
			)
		}
	}
	c.logger.Info("Restored MQTT subscriptions", zap.Int("count", len(filters)))
}

// Disconnect 断开连接
func (c *Client) Disconnect() {
	c.client.Disconnect(250) // 250ms等待时间
	c.logger.Info("Disconnected from MQTT broker", zap.String("broker", c.broker))
}

// IsConnected 检查连接状态
func (c *Client) IsConnected() bool {
	return c.client.IsConnected()
}
