package store

import (
	"github.com/fhstp/meeteux-odwww/internal/models"
	"github.com/fhstp/meeteux-odwww/internal/platform"
)

// 位置占用状态（checkLocationStatus 返回值）
const (
	StatusFree     = "FREE"
	StatusOccupied = "OCCUPIED"
	StatusOffline  = "OFFLINE"
)

// State 进程内共享状态
// LookupTable 只会被整体替换，读方不得修改其内容。
type State struct {
	Platform    platform.Platform
	User        *models.User
	LookupTable models.LookupTable
	Token       string
	IsLoggedIn  bool
	Language    int

	CurrentLocation *models.Location

	// LocationStatus 展项级占用状态；LocationSocketStatus 子位置（座位）状态
	LocationStatus       string
	LocationSocketStatus string

	AtExhibitParentID int
	OnExhibit         bool
	ClosestExhibit    int

	ErrorMessage   *models.Message
	SuccessMessage *models.Message
}

// Reduce 根据动作计算新状态
func Reduce(s State, action Action) (State, bool) {
	switch a := action.(type) {
	case ChangePlatform:
		s.Platform = a.Platform
	case ChangeUser:
		s.User = a.User
	case ChangeLookupTable:
		s.LookupTable = a.Table
	case ChangeToken:
		s.Token = a.Token
	case ChangeLoggedIn:
		s.IsLoggedIn = a.LoggedIn
	case ChangeLanguage:
		s.Language = a.Language
	case ChangeCurrentLocation:
		s.CurrentLocation = a.Location
	case ChangeLocationStatus:
		s.LocationStatus = a.Status
	case ChangeLocationSocketStatus:
		s.LocationSocketStatus = a.Status
	case ChangeAtExhibitParentID:
		s.AtExhibitParentID = a.ParentID
	case ChangeOnExhibit:
		s.OnExhibit = a.OnExhibit
	case ChangeClosestExhibit:
		s.ClosestExhibit = a.LocationID
	case ChangeErrorMessage:
		msg := a.Message
		s.ErrorMessage = &msg
	case ChangeSuccessMessage:
		msg := a.Message
		s.SuccessMessage = &msg
	default:
		return s, false
	}
	return s, true
}

// UserID 当前用户 id，未登录返回 0
func (s State) UserID() int {
	if s.User == nil {
		return 0
	}
	return s.User.ID
}
