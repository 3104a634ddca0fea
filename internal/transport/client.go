package transport

import (
	"fmt"
	"sync"

	"github.com/fhstp/meeteux-odwww/internal/config"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"
)

// MessageHandler 消息处理函数类型
type MessageHandler func(topic string, payload []byte) error

type subscription struct {
	qos     byte
	handler MessageHandler
}

// Client MQTT客户端封装（自动重连，重连后恢复订阅）
type Client struct {
	client mqtt.Client
	config *config.MQTTConfig
	logger *zap.Logger

	mu            sync.Mutex
	subs          map[string]subscription
	everConnected bool
	onLost        []func(error)
	onReconnect   []func()
}

// NewClient 创建MQTT客户端并连接
func NewClient(cfg *config.MQTTConfig, logger *zap.Logger) (*Client, error) {
	c := &Client{
		config: cfg,
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
	if cfg.ConnectTimeout > 0 {
		opts.SetConnectTimeout(cfg.ConnectTimeout)
	}

	opts.SetAutoReconnect(true)
	opts.SetCleanSession(true)
	// 回调只负责投递到事件循环，不需要 paho 保证顺序
	opts.SetOrderMatters(false)
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		c.handleConnectionLost(err)
	})
	opts.SetOnConnectHandler(func(_ mqtt.Client) {
		c.handleConnect()
	})

	c.client = mqtt.NewClient(opts)

	if token := c.client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("failed to connect to MQTT broker: %w", token.Error())
	}

	return c, nil
}

// Subscribe 订阅主题
func (c *Client) Subscribe(topic string, qos byte, handler MessageHandler) error {
	if err := c.subscribe(topic, qos, handler); err != nil {
		return err
	}

	c.mu.Lock()
	c.subs[topic] = subscription{qos: qos, handler: handler}
	c.mu.Unlock()
	return nil
}

// Publish 发布消息
func (c *Client) Publish(topic string, qos byte, retained bool, payload []byte) error {
	token := c.client.Publish(topic, qos, retained, payload)
	if c.config.PublishTimeout > 0 {
		if !token.WaitTimeout(c.config.PublishTimeout) {
			return fmt.Errorf("timed out publishing to topic %s", topic)
		}
	} else {
		token.Wait()
	}

	if token.Error() != nil {
		return fmt.Errorf("failed to publish to topic %s: %w", topic, token.Error())
	}

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
	token.Wait()

	if token.Error() != nil {
		return fmt.Errorf("failed to unsubscribe: %w", token.Error())
	}

	return nil
}

// OnConnectionLost 注册断线回调
func (c *Client) OnConnectionLost(fn func(error)) {
	c.mu.Lock()
	c.onLost = append(c.onLost, fn)
	c.mu.Unlock()
}

// OnReconnect 注册重连回调（首次连接不触发）
func (c *Client) OnReconnect(fn func()) {
	c.mu.Lock()
	c.onReconnect = append(c.onReconnect, fn)
	c.mu.Unlock()
}

// Disconnect 断开连接
func (c *Client) Disconnect() {
	c.client.Disconnect(250) // 250ms等待时间
}

// IsConnected 检查连接状态
func (c *Client) IsConnected() bool {
	return c.client.IsConnected()
}

func (c *Client) subscribe(topic string, qos byte, handler MessageHandler) error {
	if token := c.client.Subscribe(topic, qos, func(_ mqtt.Client, msg mqtt.Message) {
		if err := handler(msg.Topic(), msg.Payload()); err != nil {
			// 记录错误，但不中断处理
			c.logger.Warn("Error handling MQTT message",
				zap.String("topic", msg.Topic()),
				zap.Error(err),
			)
		}
	}); token.Wait() && token.Error() != nil {
		return fmt.Errorf("failed to subscribe to topic %s: %w", topic, token.Error())
	}
	return nil
}

func (c *Client) handleConnectionLost(err error) {
	c.logger.Error("MQTT connection lost", zap.String("broker", c.config.Broker), zap.Error(err))

	c.mu.Lock()
	callbacks := append([]func(error){}, c.onLost...)
	c.mu.Unlock()

	for _, fn := range callbacks {
		fn(err)
	}
}

func (c *Client) handleConnect() {
	c.mu.Lock()
	first := !c.everConnected
	c.everConnected = true
	subs := make(map[string]subscription, len(c.subs))
	for t, s := range c.subs {
		subs[t] = s
	}
	callbacks := append([]func(){}, c.onReconnect...)
	c.mu.Unlock()

	if first {
		c.logger.Info("MQTT connected", zap.String("broker", c.config.Broker))
		return
	}

	// clean session：重连后需要重新订阅
	for topic, s := range subs {
		if err := c.subscribe(topic, s.qos, s.handler); err != nil {
			c.logger.Error("Failed to restore MQTT subscription", zap.String("topic", topic), zap.Error(err))
		}
	}

	c.logger.Info("MQTT reconnected",
		zap.String("broker", c.config.Broker),
		zap.Int("restored_subscriptions", len(subs)),
	)

	for _, fn := range callbacks {
		fn()
	}
}
