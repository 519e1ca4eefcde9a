package influx

import "errors"

var (
	ErrDisabled         = errors.New("influx: disabled")
	ErrConnectionFailed = errors.New("influx: connection failed")
)
