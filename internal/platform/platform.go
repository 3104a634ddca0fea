// Package platform 根据运行环境标识（User-Agent）判断宿主平台。
package platform

import "strings"

// Platform 宿主平台
type Platform int

const (
	Unknown Platform = iota
	IOS
	Android
	Web
)

// String 平台名称（与原生壳约定一致）
func (p Platform) String() string {
	switch p {
	case IOS:
		return "IOS"
	case Android:
		return "Android"
	case Web:
		return "Web"
	default:
		return "Unknown"
	}
}

// Detection 平台识别结果
// Fallback 为 true 表示没有识别出任何标记，按 IOS 处理。
type Detection struct {
	Platform Platform
	Fallback bool
}

func (d Detection) IsIOS() bool     { return d.Platform == IOS }
func (d Detection) IsAndroid() bool { return d.Platform == Android }
func (d Detection) IsWeb() bool     { return d.Platform == Web }

// IsNative 是否运行在原生壳内
func (d Detection) IsNative() bool { return d.Platform == IOS || d.Platform == Android }

// Classify 识别平台
// Android 标记优先；Safari/Chrome 标记视为 Web；其余按 IOS 处理（WKWebView 不带 Safari 标记）。
func Classify(userAgent string) Detection {
	if strings.Contains(userAgent, "Android") {
		return Detection{Platform: Android}
	}
	if strings.Contains(userAgent, "Safari") || strings.Contains(userAgent, "Chrome") {
		return Detection{Platform: Web}
	}
	return Detection{Platform: IOS, Fallback: true}
}
