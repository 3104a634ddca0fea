package store

import (
	"github.com/fhstp/meeteux-odwww/internal/models"
	"github.com/fhstp/meeteux-odwww/internal/platform"
)

// Action 状态变更动作。只有 Reduce 认识的动作类型才能修改状态。
type Action interface {
	Type() string
}

type (
	ChangePlatform             struct{ Platform platform.Platform }
	ChangeUser                 struct{ User *models.User }
	ChangeLookupTable          struct{ Table models.LookupTable }
	ChangeToken                struct{ Token string }
	ChangeLoggedIn             struct{ LoggedIn bool }
	ChangeLanguage             struct{ Language int }
	ChangeCurrentLocation      struct{ Location *models.Location }
	ChangeLocationStatus       struct{ Status string }
	ChangeLocationSocketStatus struct{ Status string }
	ChangeAtExhibitParentID    struct{ ParentID int }
	ChangeOnExhibit            struct{ OnExhibit bool }
	ChangeClosestExhibit       struct{ LocationID int }
	ChangeErrorMessage         struct{ Message models.Message }
	ChangeSuccessMessage       struct{ Message models.Message }
)

func (ChangePlatform) Type() string             { return "CHANGE_PLATFORM" }
func (ChangeUser) Type() string                 { return "CHANGE_USER" }
func (ChangeLookupTable) Type() string          { return "CHANGE_LOOKUP_TABLE" }
func (ChangeToken) Type() string                { return "CHANGE_TOKEN" }
func (ChangeLoggedIn) Type() string             { return "CHANGE_LOGGED_IN" }
func (ChangeLanguage) Type() string             { return "CHANGE_LANGUAGE" }
func (ChangeCurrentLocation) Type() string      { return "CHANGE_CURRENT_LOCATION" }
func (ChangeLocationStatus) Type() string       { return "CHANGE_LOCATION_STATUS" }
func (ChangeLocationSocketStatus) Type() string { return "CHANGE_LOCATION_SOCKET_STATUS" }
func (ChangeAtExhibitParentID) Type() string    { return "CHANGE_AT_EXHIBIT_PARENT_ID" }
func (ChangeOnExhibit) Type() string            { return "CHANGE_ON_EXHIBIT" }
func (ChangeClosestExhibit) Type() string       { return "CHANGE_CLOSEST_EXHIBIT" }
func (ChangeErrorMessage) Type() string         { return "CHANGE_ERROR_MESSAGE" }
func (ChangeSuccessMessage) Type() string       { return "CHANGE_SUCCESS_MESSAGE" }
