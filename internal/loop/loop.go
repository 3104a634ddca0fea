// Package loop 单线程事件循环：传输回调、定时器和原生消息都投递到这里按顺序执行。
package loop

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Loop 事件循环
type Loop struct {
	events chan func()
	done   chan struct{}
	once   sync.Once
	logger *zap.Logger
}

// New 创建事件循环
func New(buffer int, logger *zap.Logger) *Loop {
	if buffer <= 0 {
		buffer = 64
	}
	return &Loop{
		events: make(chan func(), buffer),
		done:   make(chan struct{}),
		logger: logger,
	}
}

// Post 投递任务，循环停止后返回 false
func (l *Loop) Post(fn func()) bool {
	select {
	case <-l.done:
		return false
	default:
	}

	select {
	case l.events <- fn:
		return true
	case <-l.done:
		return false
	}
}

// Run 处理任务直到 ctx 取消
func (l *Loop) Run(ctx context.Context) error {
	defer l.once.Do(func() { close(l.done) })

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case fn := <-l.events:
			l.run(fn)
		}
	}
}

// Every 首次在 delay 后触发，之后每 interval 触发一次，回调在循环内执行
func (l *Loop) Every(delay, interval time.Duration, fn func()) (stop func()) {
	quit := make(chan struct{})
	var stopOnce sync.Once

	go func() {
		timer := time.NewTimer(delay)
		defer timer.Stop()

		select {
		case <-timer.C:
			l.Post(fn)
		case <-quit:
			return
		case <-l.done:
			return
		}

		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				l.Post(fn)
			case <-quit:
				return
			case <-l.done:
				return
			}
		}
	}()

	return func() { stopOnce.Do(func() { close(quit) }) }
}

func (l *Loop) run(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			l.logger.Error("Recovered from panic in event handler", zap.Any("panic", r))
		}
	}()
	fn()
}
