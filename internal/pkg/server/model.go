package server

import "github.com/anicoll/yandex-mqtt-bridge/internal/pkg/model"

type ErrorCode string

func (c ErrorCode) String() string {
	return string(c)
}

const (
	DeviceNotFound  ErrorCode = "DEVICE_NOT_FOUND"
	InvalidRequest  ErrorCode = "INVALID_REQUEST"
	Unauthorized    ErrorCode = "UNAUTHORIZED"
	InternalFailure ErrorCode = "INTERNAL_ERROR"
)

type ErrorResponse struct {
	RequestID    string    `json:"request_id"`
	ErrorCode    ErrorCode `json:"error_code"`
	ErrorMessage string    `json:"error_message,omitempty"`
}

type DevicesResponse struct {
	RequestID string         `json:"request_id"`
	Payload   DevicesPayload `json:"payload"`
}

type DevicesPayload struct {
	UserID  string                 `json:"user_id"`
	Devices []model.DeviceSnapshot `json:"devices"`
}

type QueryRequest struct {
	Devices []QueryDevice `json:"devices"`
}

type QueryDevice struct {
	ID         string         `json:"id"`
	CustomData map[string]any `json:"custom_data,omitempty"`
}

type QueryResponse struct {
	RequestID string       `json:"request_id"`
	Payload   QueryPayload `json:"payload"`
}

type QueryPayload struct {
	Devices []model.DeviceState `json:"devices"`
}

type UnlinkResponse struct {
	RequestID string `json:"request_id"`
}
