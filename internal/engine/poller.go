package engine

import (
	"sync"
	"time"

	"github.com/fhstp/meeteux-odwww/internal/location"
	"github.com/fhstp/meeteux-odwww/internal/store"

	"go.uber.org/zap"
)

// Scheduler 周期任务调度（loop.Loop 实现）
type Scheduler interface {
	Every(delay, interval time.Duration, fn func()) (stop func())
}

// StatusPoller 定时查询当前位置的占用状态
type StatusPoller struct {
	scheduler Scheduler
	store     *store.Store
	tracker   *location.Tracker
	god       Protocol
	delay     time.Duration
	interval  time.Duration
	logger    *zap.Logger

	mu   sync.Mutex
	stop func()
}

// NewStatusPoller 创建轮询器
func NewStatusPoller(scheduler Scheduler, st *store.Store, tracker *location.Tracker, god Protocol, delay, interval time.Duration, logger *zap.Logger) *StatusPoller {
	return &StatusPoller{
		scheduler: scheduler,
		store:     st,
		tracker:   tracker,
		god:       god,
		delay:     delay,
		interval:  interval,
		logger:    logger,
	}
}

// Start 启动轮询（重复调用无效果）
func (p *StatusPoller) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.stop != nil {
		return
	}
	p.stop = p.scheduler.Every(p.delay, p.interval, p.Poll)
	p.logger.Info("Location status poller started",
		zap.Duration("delay", p.delay),
		zap.Duration("interval", p.interval),
	)
}

// Stop 停止轮询
func (p *StatusPoller) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.stop != nil {
		p.stop()
		p.stop = nil
	}
}

// Poll 查询一次当前位置状态
func (p *StatusPoller) Poll() {
	if !p.store.GetState().IsLoggedIn {
		return
	}
	cur := p.tracker.Current()
	if cur == nil {
		return
	}
	p.god.CheckLocationStatus(cur.ID, nil)
}
