package yandex

import (
	"errors"
	"fmt"
)

var ErrUnexpectedStatus = errors.New("yandex: unexpected callback status")

// StatusError is returned for a callback answered with a non-2xx status.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: %d %s", ErrUnexpectedStatus, e.Code, e.Body)
}

func (e *StatusError) Unwrap() error {
	return ErrUnexpectedStatus
}

func (e *StatusError) StatusCode() int {
	return e.Code
}
