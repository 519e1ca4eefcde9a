package config

import "errors"

var (
	ErrInvalidConfig    = errors.New("config: invalid configuration")
	ErrInvalidDevice    = errors.New("config: invalid device")
	ErrDuplicateDevice  = errors.New("config: duplicate device id")
	ErrDuplicateBinding = errors.New("config: duplicate binding")
)
