package models

import "encoding/json"

// User 访客（OD）
type User struct {
	ID                int    `json:"id"`
	Name              string `json:"name"`
	Email             string `json:"email,omitempty"`
	IsGuest           bool   `json:"isGuest"`
	ContentLanguageID int    `json:"contentLanguageId"`
}

// Message 通知消息（错误/成功），与响应信封中的 message 一致
type Message struct {
	Code int    `json:"code"`
	Text string `json:"text"`
}

// UnmarshalJSON 兼容旧服务器使用 "message" 字段承载文本
func (m *Message) UnmarshalJSON(data []byte) error {
	var raw struct {
		Code    int     `json:"code"`
		Text    *string `json:"text"`
		Message *string `json:"message"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	m.Code = raw.Code
	m.Text = ""
	switch {
	case raw.Text != nil:
		m.Text = *raw.Text
	case raw.Message != nil:
		m.Text = *raw.Message
	}
	return nil
}
