package location

import (
	"github.com/fhstp/meeteux-odwww/internal/models"
	"github.com/fhstp/meeteux-odwww/internal/store"

	"go.uber.org/zap"
)

// Tracker 当前位置跟踪（当前位置只通过这里写入 store）
type Tracker struct {
	store           *store.Store
	startLocationID int
	logger          *zap.Logger
}

// NewTracker 创建位置跟踪器；startLocationID 为 0 表示起点为未设置
func NewTracker(st *store.Store, startLocationID int, logger *zap.Logger) *Tracker {
	return &Tracker{
		store:           st,
		startLocationID: startLocationID,
		logger:          logger,
	}
}

// FindLocation 在查找表中解析位置
func (t *Tracker) FindLocation(id int) (models.Location, bool) {
	return t.store.GetState().LookupTable.Find(id)
}

// Current 当前位置，未设置返回 nil
func (t *Tracker) Current() *models.Location {
	return t.store.GetState().CurrentLocation
}

// SameAsCurrentLocation 是否与当前位置相同
func (t *Tracker) SameAsCurrentLocation(id int) bool {
	cur := t.Current()
	return cur != nil && cur.ID == id
}

// UpdateCurrentLocation 从查找表刷新当前位置
func (t *Tracker) UpdateCurrentLocation(id int) bool {
	loc, ok := t.FindLocation(id)
	if !ok {
		t.logger.Warn("Cannot update current location, not in lookup table", zap.Int("location_id", id))
		return false
	}
	t.store.Dispatch(store.ChangeCurrentLocation{Location: &loc})
	return true
}

// SetToStartPoint 当前位置回到起点
func (t *Tracker) SetToStartPoint() {
	if t.startLocationID != 0 {
		if loc, ok := t.FindLocation(t.startLocationID); ok {
			t.store.Dispatch(store.ChangeCurrentLocation{Location: &loc})
			return
		}
		t.logger.Debug("Start location not in lookup table, resetting to unset",
			zap.Int("start_location_id", t.startLocationID),
		)
	}
	t.store.Dispatch(store.ChangeCurrentLocation{Location: nil})
}

// IsActiveLocationInRange 最近的 beacon 是否为当前展项或其子位置
func (t *Tracker) IsActiveLocationInRange(id int) bool {
	cur := t.Current()
	if cur == nil {
		return false
	}
	if cur.ID == id {
		return true
	}
	for _, child := range t.store.GetState().LookupTable.Children(cur.ID) {
		if child.ID == id {
			return true
		}
	}
	return false
}
