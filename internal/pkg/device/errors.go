package device

import "errors"

var (
	ErrMissingID      = errors.New("device: id is required")
	ErrDeviceNotFound = errors.New("device: not found")
)
