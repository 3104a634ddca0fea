package native

import (
	"encoding/json"
	"fmt"
)

// 原生壳上行事件名
const (
	EventBeacon         = "beacon"
	EventTimelineUpdate = "timelineUpdate"
	EventDeviceInfos    = "deviceInfos"
	EventToken          = "token"
)

// Beacon 检测到的 beacon
type Beacon struct {
	Minor int `json:"minor"`
	Major int `json:"major"`
}

// DeviceInfos 原生壳上报的设备信息
type DeviceInfos struct {
	DeviceAddress string `json:"deviceAddress"`
	DeviceOS      string `json:"deviceOS"`
	DeviceVersion string `json:"deviceVersion"`
	DeviceModel   string `json:"deviceModel"`
}

// Inbound 原生壳上行消息处理器，未设置的回调忽略对应事件
type Inbound struct {
	Beacon         func(Beacon)
	TimelineUpdate func(Beacon)
	DeviceInfos    func(DeviceInfos)
	Token          func(token string)
}

// Listener 注册监听的通道（transport.Channel 实现）
type Listener interface {
	On(event string, handler func(payload []byte))
}

// Attach 把处理器挂到通道上；解码失败通过 onError 报告
func (in Inbound) Attach(l Listener, onError func(event string, err error)) {
	for _, event := range []string{EventBeacon, EventTimelineUpdate, EventDeviceInfos, EventToken} {
		event := event
		l.On(event, func(payload []byte) {
			if err := in.Handle(event, payload); err != nil && onError != nil {
				onError(event, err)
			}
		})
	}
}

// Handle 解码并分发一条上行消息
func (in Inbound) Handle(event string, payload []byte) error {
	switch event {
	case EventBeacon, EventTimelineUpdate:
		var b Beacon
		if err := json.Unmarshal(payload, &b); err != nil {
			return fmt.Errorf("failed to decode %s: %w", event, err)
		}
		if event == EventBeacon && in.Beacon != nil {
			in.Beacon(b)
		}
		if event == EventTimelineUpdate && in.TimelineUpdate != nil {
			in.TimelineUpdate(b)
		}
	case EventDeviceInfos:
		var d DeviceInfos
		if err := json.Unmarshal(payload, &d); err != nil {
			return fmt.Errorf("failed to decode %s: %w", event, err)
		}
		if in.DeviceInfos != nil {
			in.DeviceInfos(d)
		}
	case EventToken:
		token, err := decodeToken(payload)
		if err != nil {
			return err
		}
		if in.Token != nil && token != "" {
			in.Token(token)
		}
	default:
		return fmt.Errorf("unknown native event %q", event)
	}
	return nil
}

// decodeToken 兼容 "tok" 与 {"token":"tok"} 两种格式
func decodeToken(payload []byte) (string, error) {
	var s string
	if err := json.Unmarshal(payload, &s); err == nil {
		return s, nil
	}
	var obj struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(payload, &obj); err != nil {
		return "", fmt.Errorf("failed to decode token: %w", err)
	}
	return obj.Token, nil
}
