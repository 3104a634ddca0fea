package transport

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"
)

// 连接状态的保留事件名
const (
	EventDisconnect = "disconnect"
	EventReconnect  = "reconnect"
)

// Broker Channel 依赖的发布/订阅能力（*Client 实现）
type Broker interface {
	Subscribe(topic string, qos byte, handler MessageHandler) error
	Unsubscribe(topics ...string) error
	Publish(topic string, qos byte, retained bool, payload []byte) error
	OnConnectionLost(fn func(error))
	OnReconnect(fn func())
}

// Dispatcher 把回调投递到事件循环执行
type Dispatcher func(fn func()) bool

// Channel 基于主题的命名事件双工通道
// 发送：<up>/<event>；接收：<down>/<event>。
// 每个事件名同一时刻只有一个本地监听者，后注册的替换先注册的。
type Channel struct {
	broker   Broker
	up       string
	down     string
	qos      byte
	dispatch Dispatcher
	logger   *zap.Logger

	mu       sync.Mutex
	handlers map[string]func(payload []byte)
}

// NewChannel 创建通道；dispatch 为 nil 时在传输回调中直接执行
func NewChannel(broker Broker, up, down string, qos byte, dispatch Dispatcher, logger *zap.Logger) *Channel {
	if dispatch == nil {
		dispatch = func(fn func()) bool {
			fn()
			return true
		}
	}
	return &Channel{
		broker:   broker,
		up:       strings.TrimSuffix(up, "/"),
		down:     strings.TrimSuffix(down, "/"),
		qos:      qos,
		dispatch: dispatch,
		logger:   logger,
		handlers: make(map[string]func(payload []byte)),
	}
}

// Open 订阅下行主题并挂接连接状态事件
func (c *Channel) Open() error {
	if err := c.broker.Subscribe(c.down+"/#", c.qos, c.route); err != nil {
		return fmt.Errorf("failed to open channel %s: %w", c.down, err)
	}

	c.broker.OnConnectionLost(func(err error) {
		payload, _ := json.Marshal(map[string]string{"error": err.Error()})
		c.fire(EventDisconnect, payload)
	})
	c.broker.OnReconnect(func() {
		c.fire(EventReconnect, nil)
	})

	c.logger.Info("Channel opened",
		zap.String("up", c.up),
		zap.String("down", c.down),
	)
	return nil
}

// Close 取消下行订阅
func (c *Channel) Close() error {
	return c.broker.Unsubscribe(c.down + "/#")
}

// Emit 发送命名事件（JSON 编码）
func (c *Channel) Emit(event string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", event, err)
	}
	return c.broker.Publish(c.up+"/"+event, c.qos, false, body)
}

// On 注册事件监听（替换已有监听）
func (c *Channel) On(event string, handler func(payload []byte)) {
	c.mu.Lock()
	if _, exists := c.handlers[event]; exists {
		c.logger.Debug("Replacing channel listener", zap.String("event", event))
	}
	c.handlers[event] = handler
	c.mu.Unlock()
}

// Off 移除事件的所有监听
func (c *Channel) Off(event string) {
	c.mu.Lock()
	delete(c.handlers, event)
	c.mu.Unlock()
}

func (c *Channel) route(topic string, payload []byte) error {
	event := strings.TrimPrefix(topic, c.down+"/")
	if event == topic || event == "" {
		return fmt.Errorf("topic %s outside channel %s", topic, c.down)
	}
	c.fire(event, payload)
	return nil
}

// fire 在事件循环内查找监听者，这样投递前被 Off 的监听不会再收到消息
func (c *Channel) fire(event string, payload []byte) {
	ok := c.dispatch(func() {
		c.mu.Lock()
		handler := c.handlers[event]
		c.mu.Unlock()

		if handler == nil {
			c.logger.Debug("No listener for event", zap.String("event", event))
			return
		}
		handler(payload)
	})
	if !ok {
		c.logger.Warn("Event dropped, loop stopped", zap.String("event", event))
	}
}
