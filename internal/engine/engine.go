// Package engine 位置切换判定：决定检测到的 beacon 是否触发服务器登记。
package engine

import (
	"sync"

	"github.com/fhstp/meeteux-odwww/internal/location"
	"github.com/fhstp/meeteux-odwww/internal/native"
	"github.com/fhstp/meeteux-odwww/internal/store"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Protocol 引擎使用的 GoD 操作（god.Client 实现）
type Protocol interface {
	RegisterLocation(id int, dismissed bool)
	CheckLocationStatus(id int, cont func(status string))
	RegisterTimelineUpdate(id int)
	DisconnectedFromExhibit(parentID, locationID int)
}

// Config 引擎配置
type Config struct {
	// BeaconRate 同一 beacon 每秒允许进入判定的次数，<=0 表示不限
	BeaconRate  float64
	BeaconBurst int
}

// Engine 位置切换引擎
type Engine struct {
	store    *store.Store
	tracker  *location.Tracker
	god      Protocol
	native   native.Notifier
	cfg      Config
	logger   *zap.Logger
	mu       sync.Mutex
	limiters map[int]*rate.Limiter
}

// New 创建引擎
func New(st *store.Store, tracker *location.Tracker, god Protocol, notifier native.Notifier, cfg Config, logger *zap.Logger) *Engine {
	if cfg.BeaconBurst <= 0 {
		cfg.BeaconBurst = 1
	}
	return &Engine{
		store:    st,
		tracker:  tracker,
		god:      god,
		native:   notifier,
		cfg:      cfg,
		logger:   logger,
		limiters: make(map[int]*rate.Limiter),
	}
}

// EvaluateCandidate 判定 beacon 是否为新的有效位置切换
func (e *Engine) EvaluateCandidate(minor int) {
	candidate, ok := e.tracker.FindLocation(minor)
	if !ok {
		e.logger.Debug("Beacon not in lookup table", zap.Int("minor", minor))
		e.native.Notify("this is not a valid location", native.ActionPrint)
		return
	}

	if e.tracker.SameAsCurrentLocation(candidate.ID) {
		return
	}

	if cur := e.tracker.Current(); cur != nil && cur.IsSubLocation() {
		e.logger.Debug("Seated at sub-location, candidate ignored",
			zap.Int("current", cur.ID),
			zap.Int("candidate", candidate.ID),
		)
		e.native.Notify("this is not a valid location - type 2", native.ActionPrint)
		return
	}

	state := e.store.GetState()
	admitted := (!candidate.IsSubLocation() && !state.OnExhibit) ||
		(candidate.IsSubLocation() && state.AtExhibitParentID == candidate.ParentID)
	if !admitted {
		e.logger.Debug("Candidate rejected by admission guard",
			zap.Int("candidate", candidate.ID),
			zap.Int("location_type_id", candidate.LocationTypeID),
			zap.Int("parent_id", candidate.ParentID),
			zap.Int("at_exhibit_parent_id", state.AtExhibitParentID),
			zap.Bool("on_exhibit", state.OnExhibit),
		)
		return
	}

	e.native.Notify("new valid location found - check and registerLocation at GoD", native.ActionPrint)

	if !candidate.IsSubLocation() {
		e.god.RegisterLocation(candidate.ID, false)
		return
	}

	id := candidate.ID
	e.god.CheckLocationStatus(id, func(status string) {
		if status == store.StatusFree {
			e.god.RegisterLocation(id, false)
		}
		e.store.Dispatch(store.ChangeLocationSocketStatus{Status: status})
	})
}

// HandleBeacon 原生壳上报的 beacon；记录最近展项并限流后进入判定
func (e *Engine) HandleBeacon(b native.Beacon) {
	if _, ok := e.tracker.FindLocation(b.Minor); ok && e.store.GetState().ClosestExhibit != b.Minor {
		e.store.Dispatch(store.ChangeClosestExhibit{LocationID: b.Minor})
	}

	if !e.allow(b.Minor) {
		e.logger.Debug("Beacon throttled", zap.Int("minor", b.Minor), zap.Int("major", b.Major))
		return
	}
	e.EvaluateCandidate(b.Minor)
}

// HandleTimelineUpdate 时间线 beacon 直接登记，不经过位置判定
func (e *Engine) HandleTimelineUpdate(b native.Beacon) {
	if !e.store.GetState().IsLoggedIn {
		e.logger.Debug("Timeline update ignored, not logged in", zap.Int("minor", b.Minor))
		return
	}
	e.god.RegisterTimelineUpdate(b.Minor)
}

// JoinExhibit 访客在当前展项开始寻找座位
// 只有最近的 beacon 属于当前展项或其座位时才允许加入。
func (e *Engine) JoinExhibit() bool {
	cur := e.tracker.Current()
	if cur == nil || cur.IsSubLocation() {
		return false
	}
	closest := e.store.GetState().ClosestExhibit
	if !e.tracker.IsActiveLocationInRange(closest) {
		e.logger.Debug("Join rejected, exhibit out of range",
			zap.Int("current", cur.ID),
			zap.Int("closest_exhibit", closest),
		)
		return false
	}
	e.store.Dispatch(store.ChangeAtExhibitParentID{ParentID: cur.ID})
	return true
}

// SetOnExhibit 标记是否已加入展项协作
func (e *Engine) SetOnExhibit(on bool) {
	e.store.Dispatch(store.ChangeOnExhibit{OnExhibit: on})
}

// LeaveExhibit 离开座位并清空展项上下文
func (e *Engine) LeaveExhibit() {
	if cur := e.tracker.Current(); cur != nil && cur.IsSubLocation() {
		e.god.DisconnectedFromExhibit(cur.ParentID, cur.ID)
	}
	e.store.Dispatch(store.ChangeOnExhibit{OnExhibit: false})
	e.store.Dispatch(store.ChangeAtExhibitParentID{ParentID: 0})
}

func (e *Engine) allow(minor int) bool {
	if e.cfg.BeaconRate <= 0 {
		return true
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	limiter, exists := e.limiters[minor]
	if !exists {
		limiter = rate.NewLimiter(rate.Limit(e.cfg.BeaconRate), e.cfg.BeaconBurst)
		e.limiters[minor] = limiter
	}
	return limiter.Allow()
}
