// Package alert 面向界面的提示消息总线。
package alert

import (
	"encoding/json"
	"sync"

	"go.uber.org/zap"
)

// Kind 提示类型
type Kind int

const (
	KindLocationID Kind = iota + 1
	KindScrollToCurrentLocation
	KindWrongLoginCheck
	KindCredentialsChanged
	KindUserOrEmailCheck
)

// Alert 提示消息
type Alert struct {
	Kind       Kind
	LocationID int
	Flag       bool
	Payload    json.RawMessage
}

// Bus 提示消息总线（订阅者缓冲满时丢弃）
type Bus struct {
	mu     sync.Mutex
	subs   map[int]chan Alert
	nextID int
	logger *zap.Logger
}

// NewBus 创建总线
func NewBus(logger *zap.Logger) *Bus {
	return &Bus{
		subs:   make(map[int]chan Alert),
		logger: logger,
	}
}

// Subscribe 订阅提示，返回只读通道与取消函数
func (b *Bus) Subscribe(buffer int) (<-chan Alert, func()) {
	if buffer <= 0 {
		buffer = 16
	}
	ch := make(chan Alert, buffer)

	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.subs[id] = ch
	b.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, id)
			b.mu.Unlock()
			close(ch)
		})
	}
}

// Publish 广播提示
func (b *Bus) Publish(a Alert) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for id, ch := range b.subs {
		select {
		case ch <- a:
		default:
			b.logger.Warn("Alert dropped, subscriber is full", zap.Int("subscriber", id), zap.Int("kind", int(a.Kind)))
		}
	}
}

func (b *Bus) SendLocationID(id int) {
	b.Publish(Alert{Kind: KindLocationID, LocationID: id})
}

func (b *Bus) TriggerScrollToCurrentLocation() {
	b.Publish(Alert{Kind: KindScrollToCurrentLocation})
}

func (b *Bus) SetWrongLoginCheck(wrong bool) {
	b.Publish(Alert{Kind: KindWrongLoginCheck, Flag: wrong})
}

func (b *Bus) SendCredentialsChanged(changed bool) {
	b.Publish(Alert{Kind: KindCredentialsChanged, Flag: changed})
}

func (b *Bus) SendUserOrEmailCheck(result json.RawMessage) {
	b.Publish(Alert{Kind: KindUserOrEmailCheck, Payload: result})
}
