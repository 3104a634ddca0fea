// Package god GoD 服务器的请求/响应协议层。
// 所有操作立即返回，结果通过 store 变更或回调异步体现。
package god

import (
	"encoding/json"
	"fmt"

	"github.com/fhstp/meeteux-odwww/internal/location"
	"github.com/fhstp/meeteux-odwww/internal/models"
	"github.com/fhstp/meeteux-odwww/internal/native"
	"github.com/fhstp/meeteux-odwww/internal/store"
	"github.com/fhstp/meeteux-odwww/internal/transport"

	"go.uber.org/zap"
)

// 线上事件名
const (
	EventRegisterOD              = "registerOD"
	EventRegisterODGuest         = "registerODGuest"
	EventMakeToRealUser          = "makeToRealUser"
	EventRegisterLocation        = "registerLocation"
	EventRegisterTimelineUpdate  = "registerTimelineUpdate"
	EventRegisterLocationLike    = "registerLocationLike"
	EventCheckLocationStatus     = "checkLocationStatus"
	EventDisconnectedFromExhibit = "disconnectedFromExhibit"
	EventAutoLoginOD             = "autoLoginOD"
	EventLoginOD                 = "loginOD"
	EventUpdateUserLanguage      = "updateUserLanguage"
	EventCheckNameOrEmailExists  = "checkNameOrEmailExists"
	EventChangeODCredentials     = "changeODCredentials"
	EventDeleteOD                = "deleteOD"

	EventNews = "news"
)

// MainView 登录后的主视图路由
const MainView = "/mainview"

// Navigator 客户端路由
type Navigator interface {
	Navigate(route string)
}

// Alerts 面向界面的提示（alert.Bus 实现）
type Alerts interface {
	SendLocationID(id int)
	TriggerScrollToCurrentLocation()
	SetWrongLoginCheck(wrong bool)
	SendCredentialsChanged(changed bool)
	SendUserOrEmailCheck(result json.RawMessage)
}

// Client GoD 协议客户端
type Client struct {
	calls     *correlator
	transport Transport
	store     *store.Store
	tracker   *location.Tracker
	navigator Navigator
	native    native.Notifier
	alerts    Alerts
	logger    *zap.Logger
}

// NewClient 创建协议客户端
func NewClient(
	tr Transport,
	st *store.Store,
	tracker *location.Tracker,
	navigator Navigator,
	notifier native.Notifier,
	alerts Alerts,
	logger *zap.Logger,
) *Client {
	return &Client{
		calls:     newCorrelator(tr, logger),
		transport: tr,
		store:     st,
		tracker:   tracker,
		navigator: navigator,
		native:    notifier,
		alerts:    alerts,
		logger:    logger,
	}
}

// Attach 注册常驻的 socket 事件：news、断线与重连
func (c *Client) Attach() {
	c.transport.On(EventNews, func(payload []byte) {
		c.native.Notify(string(payload), native.ActionPrint)
	})

	c.transport.On(transport.EventDisconnect, func([]byte) {
		dropped := c.calls.reset()
		c.logger.Error("Lost connection to GoD", zap.Int("dropped_requests", len(dropped)))
		c.store.Dispatch(store.ChangeErrorMessage{Message: models.Message{
			Code: CodeLostConnection,
			Text: "Lost connection to Server",
		}})
	})

	c.transport.On(transport.EventReconnect, func([]byte) {
		c.logger.Info("Reconnected to GoD")
		c.store.Dispatch(store.ChangeSuccessMessage{Message: models.Message{
			Code: CodeReconnected,
			Text: "Reconnected to Server",
		}})
	})
}

// InFlight 某请求挂起的调用数
func (c *Client) InFlight(name string) int {
	return c.calls.inFlight(name)
}

// Pending 全部挂起的调用数
func (c *Client) Pending() int {
	return c.calls.pendingTotal()
}

// call 发出请求；失败响应只写入错误通知，onFailure 用于额外的提示
func (c *Client) call(name string, data any, onSuccess func(Envelope), onFailure func(models.Message)) {
	handle := func(env Envelope) {
		if err := env.Err(); err != nil {
			c.logger.Warn("GoD request failed",
				zap.String("event", name),
				zap.Int("code", env.Message.Code),
				zap.String("text", env.Message.Text),
			)
			c.store.Dispatch(store.ChangeErrorMessage{Message: env.Message})
			if onFailure != nil {
				onFailure(env.Message)
			}
			return
		}
		if onSuccess != nil {
			onSuccess(env)
		}
	}

	if _, err := c.calls.call(name, data, handle); err != nil {
		c.logger.Error("Failed to send GoD request", zap.String("event", name), zap.Error(err))
		c.store.Dispatch(store.ChangeErrorMessage{Message: models.Message{
			Code: CodeLostConnection,
			Text: err.Error(),
		}})
	}
}

// userID 需要登录用户的操作在没有用户时不发送
func (c *Client) userID(op string) (int, bool) {
	user := c.store.GetState().User
	if user == nil {
		c.logger.Warn("No user in state, request skipped", zap.String("event", op))
		return 0, false
	}
	return user.ID, true
}

func (c *Client) decode(env Envelope, name string, v any) bool {
	if err := env.Decode(v); err != nil {
		c.logger.Warn("Unexpected response data", zap.String("event", name), zap.Error(err))
		return false
	}
	return true
}

// applyLogin 写入登录结果并回到起点
func (c *Client) applyLogin(d authData, withLanguage bool) {
	c.store.Dispatch(store.ChangeUser{User: d.User})
	c.store.Dispatch(store.ChangeLookupTable{Table: d.Locations})
	c.store.Dispatch(store.ChangeToken{Token: d.Token})
	c.store.Dispatch(store.ChangeLoggedIn{LoggedIn: true})
	if withLanguage && d.User != nil {
		c.store.Dispatch(store.ChangeLanguage{Language: d.User.ContentLanguageID})
	}

	c.tracker.SetToStartPoint()
	c.navigator.Navigate(MainView)
	c.native.Notify("success", native.ActionRegisterOD)
}

// RegisterOD 以设备信息注册访客
func (c *Client) RegisterOD(data any) {
	c.call(EventRegisterOD, data, func(env Envelope) {
		c.native.Notify(string(env.Raw()), native.ActionPrint)
		var d authData
		if c.decode(env, EventRegisterOD, &d) {
			c.applyLogin(d, false)
		}
	}, nil)
}

// RegisterODGuest 注册游客
func (c *Client) RegisterODGuest(data any) {
	c.call(EventRegisterODGuest, data, func(env Envelope) {
		var d authData
		if c.decode(env, EventRegisterODGuest, &d) {
			c.applyLogin(d, false)
		}
	}, nil)
}

// RegisterODGuestToReal 游客转正式用户
func (c *Client) RegisterODGuestToReal(data any) {
	c.call(EventMakeToRealUser, data, func(env Envelope) {
		var d authData
		if !c.decode(env, EventMakeToRealUser, &d) {
			return
		}
		c.store.Dispatch(store.ChangeUser{User: d.User})
		c.store.Dispatch(store.ChangeToken{Token: d.Token})
		c.navigator.Navigate(MainView)
	}, nil)
}

// RegisterLocation 登记位置；dismissed 为 true 时服务器登记但客户端不切换
func (c *Client) RegisterLocation(id int, dismissed bool) {
	userID, ok := c.userID(EventRegisterLocation)
	if !ok {
		return
	}

	payload := map[string]any{"location": id, "user": userID, "dismissed": dismissed}
	c.call(EventRegisterLocation, payload, func(env Envelope) {
		var d registerLocationData
		if !c.decode(env, EventRegisterLocation, &d) || d.Dismissed {
			return
		}
		if !c.tracker.UpdateCurrentLocation(d.Location) {
			return
		}
		cur := c.tracker.Current()
		c.native.Notify(fmt.Sprintf("New Location is %d", cur.ID), native.ActionPrint)
		c.navigator.Navigate(cur.ContentURL)
	}, func(models.Message) {
		c.native.Notify("RegisterLocation: FAILED", native.ActionPrint)
	})
}

// RegisterTimelineUpdate 登记时间线更新
func (c *Client) RegisterTimelineUpdate(id int) {
	userID, ok := c.userID(EventRegisterTimelineUpdate)
	if !ok {
		return
	}

	payload := map[string]any{"location": id, "user": userID}
	c.call(EventRegisterTimelineUpdate, payload, func(env Envelope) {
		var d locationsData
		if !c.decode(env, EventRegisterTimelineUpdate, &d) {
			return
		}
		c.alerts.SendLocationID(id)
		c.alerts.TriggerScrollToCurrentLocation()
		c.native.Notify("success", native.ActionTriggerSignal)
		c.store.Dispatch(store.ChangeLookupTable{Table: d.Locations})
	}, func(models.Message) {
		c.native.Notify("RegisterTimelineUpdate: FAILED", native.ActionPrint)
	})
}

// RegisterLocationLike 收藏/取消收藏位置
func (c *Client) RegisterLocationLike(loc models.Location, like bool) {
	userID, ok := c.userID(EventRegisterLocationLike)
	if !ok {
		return
	}

	payload := map[string]any{"location": loc.ID, "like": like, "user": userID}
	c.call(EventRegisterLocationLike, payload, func(env Envelope) {
		var d locationsData
		if !c.decode(env, EventRegisterLocationLike, &d) {
			return
		}
		c.store.Dispatch(store.ChangeLookupTable{Table: d.Locations})
		if cur := c.tracker.Current(); cur != nil {
			c.tracker.UpdateCurrentLocation(cur.ID)
		}
	}, nil)
}

// CheckLocationStatus 查询位置占用状态
// 只有展项级状态写入共享状态；座位级状态只交给 cont。
func (c *Client) CheckLocationStatus(id int, cont func(status string)) {
	payload := map[string]any{"location": id}
	c.call(EventCheckLocationStatus, payload, func(env Envelope) {
		var d statusData
		if !c.decode(env, EventCheckLocationStatus, &d) {
			return
		}
		loc, ok := c.tracker.FindLocation(d.Location)
		switch {
		case !ok:
			c.logger.Debug("Status for location outside lookup table", zap.Int("location_id", d.Location))
		case !loc.IsSubLocation():
			c.store.Dispatch(store.ChangeLocationStatus{Status: d.Status})
		}
		if cont != nil {
			cont(d.Status)
		}
	}, nil)
}

// DisconnectedFromExhibit 离开展项协作；仍登录时重新登记父展项
func (c *Client) DisconnectedFromExhibit(parentID, locationID int) {
	payload := map[string]any{"parentLocation": parentID, "location": locationID}
	c.call(EventDisconnectedFromExhibit, payload, func(env Envelope) {
		c.native.Notify(fmt.Sprintf("Disconnected from Exhibit-%d", parentID), native.ActionPrint)

		parent := parentID
		var d disconnectData
		if err := env.Decode(&d); err == nil && d.Parent != 0 {
			parent = d.Parent
		}
		if c.store.GetState().IsLoggedIn {
			c.RegisterLocation(parent, false)
		}
	}, func(models.Message) {
		c.native.Notify(fmt.Sprintf("Disconnected from Exhibit-%d: FAILED", parentID), native.ActionPrint)
	})
}

// AutoLogin 使用保存的 token 自动登录
func (c *Client) AutoLogin(token string) {
	c.call(EventAutoLoginOD, token, func(env Envelope) {
		var d authData
		if c.decode(env, EventAutoLoginOD, &d) {
			c.applyLogin(d, true)
		}
	}, nil)
}

// LoginOD 用户名/密码登录
func (c *Client) LoginOD(data any) {
	c.call(EventLoginOD, data, func(env Envelope) {
		var d authData
		if !c.decode(env, EventLoginOD, &d) {
			return
		}
		c.alerts.SetWrongLoginCheck(false)
		c.applyLogin(d, true)
	}, func(models.Message) {
		c.alerts.SetWrongLoginCheck(true)
	})
}

// UpdateUserLanguage 切换内容语言
func (c *Client) UpdateUserLanguage(language int) {
	userID, ok := c.userID(EventUpdateUserLanguage)
	if !ok {
		return
	}

	payload := map[string]any{"language": language, "user": userID}
	c.call(EventUpdateUserLanguage, payload, func(env Envelope) {
		var d locationsData
		if !c.decode(env, EventUpdateUserLanguage, &d) {
			return
		}
		c.store.Dispatch(store.ChangeLanguage{Language: d.Language})
		c.store.Dispatch(store.ChangeLookupTable{Table: d.Locations})
	}, nil)
}

// CheckNameOrEmailExists 注册前检查用户名或邮箱是否已存在
func (c *Client) CheckNameOrEmailExists(data any) {
	c.call(EventCheckNameOrEmailExists, data, func(env Envelope) {
		c.alerts.SendUserOrEmailCheck(env.Raw())
	}, nil)
}

// UpdateUserCredentials 修改登录凭据
func (c *Client) UpdateUserCredentials(data any) {
	c.call(EventChangeODCredentials, data, func(env Envelope) {
		var d authData
		if !c.decode(env, EventChangeODCredentials, &d) {
			return
		}
		c.alerts.SendCredentialsChanged(true)
		c.store.Dispatch(store.ChangeUser{User: d.User})
		c.store.Dispatch(store.ChangeToken{Token: d.Token})
	}, func(models.Message) {
		c.alerts.SendCredentialsChanged(false)
	})
}

// DeleteUserAccount 删除账户（服务器不回复）
func (c *Client) DeleteUserAccount(data any) {
	if err := c.transport.Emit(EventDeleteOD, Request{RequestID: c.calls.newID(), Data: data}); err != nil {
		c.logger.Error("Failed to send GoD request", zap.String("event", EventDeleteOD), zap.Error(err))
	}
}
