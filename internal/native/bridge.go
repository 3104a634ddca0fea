// Package native 与宿主原生壳的单向通知通道，以及原生壳上行消息的解码。
package native

import (
	"errors"
	"fmt"

	"github.com/fhstp/meeteux-odwww/internal/platform"

	"go.uber.org/zap"
)

// ErrUnknownAction 未知的原生动作名
var ErrUnknownAction = errors.New("unknown native action")

// Action 原生动作
type Action int

const (
	ActionPrint Action = iota + 1
	ActionGetDeviceInfos
	ActionRegisterOD
	ActionTriggerSignal
)

// String 原生壳中的 handler 名称
func (a Action) String() string {
	switch a {
	case ActionPrint:
		return "print"
	case ActionGetDeviceInfos:
		return "getDeviceInfos"
	case ActionRegisterOD:
		return "registerOD"
	case ActionTriggerSignal:
		return "triggerSignal"
	default:
		return fmt.Sprintf("action(%d)", int(a))
	}
}

// Valid 是否为已知动作
func (a Action) Valid() bool {
	return a >= ActionPrint && a <= ActionTriggerSignal
}

// ParseAction 解析动作名
func ParseAction(name string) (Action, error) {
	for _, a := range []Action{ActionPrint, ActionGetDeviceInfos, ActionRegisterOD, ActionTriggerSignal} {
		if a.String() == name {
			return a, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownAction, name)
}

// Notifier 原生通知
type Notifier interface {
	Notify(body any, action Action)
}

// Emitter 原生通道发送端（transport.Channel 实现）
type Emitter interface {
	Emit(event string, payload any) error
}

// Bridge 原生桥
type Bridge struct {
	detection platform.Detection
	emitter   Emitter
	logger    *zap.Logger
}

// NewBridge 创建原生桥
func NewBridge(detection platform.Detection, emitter Emitter, logger *zap.Logger) *Bridge {
	if detection.Fallback {
		logger.Warn("Platform not recognised, falling back to IOS delivery")
	}
	return &Bridge{
		detection: detection,
		emitter:   emitter,
		logger:    logger,
	}
}

// Detection 当前平台识别结果
func (b *Bridge) Detection() platform.Detection {
	return b.detection
}

// Notify 发送单向通知，失败只记录日志
func (b *Bridge) Notify(body any, action Action) {
	if !action.Valid() {
		b.logger.Warn("Dropping native message with unknown action", zap.Stringer("action", action))
		return
	}

	switch b.detection.Platform {
	case platform.Web:
		// Web 上没有原生壳，写本地诊断日志
		b.logger.Info("native", zap.Stringer("action", action), zap.Any("body", body))
	case platform.IOS:
		// webkit.messageHandlers.<action>.postMessage(body)
		b.post("ios/"+action.String(), body, action)
	case platform.Android:
		// MEETeUXAndroidAppRoot.<action>()，只有 print 带参数
		if action == ActionPrint {
			b.post("android/"+action.String(), body, action)
		} else {
			b.post("android/"+action.String(), nil, action)
		}
	default:
		b.logger.Warn("Dropping native message, no platform", zap.Stringer("action", action))
	}
}

func (b *Bridge) post(event string, body any, action Action) {
	if b.emitter == nil {
		return
	}
	if err := b.emitter.Emit(event, body); err != nil {
		b.logger.Error("Failed to deliver native message",
			zap.String("event", event),
			zap.Stringer("action", action),
			zap.Error(err),
		)
	}
}
