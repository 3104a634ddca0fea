package god

import (
	"encoding/json"
	"fmt"

	"github.com/fhstp/meeteux-odwww/internal/models"
)

// Request 请求信封
type Request struct {
	RequestID string `json:"requestId"`
	Data      any    `json:"data"`
}

// Envelope 响应信封
// 旧服务器不回传 requestId，此时 RequestID 为空。
type Envelope struct {
	RequestID string          `json:"requestId,omitempty"`
	Data      json.RawMessage `json:"data"`
	Message   models.Message  `json:"message"`

	raw []byte
}

// DecodeEnvelope 解析响应信封
func DecodeEnvelope(payload []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return Envelope{}, fmt.Errorf("failed to decode envelope: %w", err)
	}
	env.raw = payload
	return env, nil
}

// Err 业务失败时返回 *Error
func (e Envelope) Err() error {
	if !IsDomainFailure(e.Message.Code) {
		return nil
	}
	return &Error{Code: e.Message.Code, Text: e.Message.Text}
}

// Decode 解析 data 字段
func (e Envelope) Decode(v any) error {
	if len(e.Data) == 0 || string(e.Data) == "null" {
		return fmt.Errorf("response has no data")
	}
	if err := json.Unmarshal(e.Data, v); err != nil {
		return fmt.Errorf("failed to decode response data: %w", err)
	}
	return nil
}

// Raw 原始响应
func (e Envelope) Raw() json.RawMessage {
	return json.RawMessage(e.raw)
}

// 各操作的响应数据
type (
	authData struct {
		User      *models.User       `json:"user"`
		Locations models.LookupTable `json:"locations"`
		Token     string             `json:"token"`
	}

	registerLocationData struct {
		Location  int  `json:"location"`
		Dismissed bool `json:"dismissed"`
	}

	locationsData struct {
		Locations models.LookupTable `json:"locations"`
		Language  int                `json:"language"`
	}

	statusData struct {
		Location int    `json:"location"`
		Status   string `json:"status"`
	}

	disconnectData struct {
		Parent int `json:"parent"`
	}
)
