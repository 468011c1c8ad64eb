// Package availability carries the typed errors drivers report when a
// device cannot be opened, so callers can branch on the failure class.
package availability

import (
	"errors"
)

var (
	ErrUnimplemented = NewError("not implemented")
	ErrBusy          = NewError("device or resource busy")
	ErrNoDevice      = NewError("no such device")
	// ErrDenied means the platform refused access to the device, the
	// capture equivalent of a declined consent prompt.
	ErrDenied = NewError("permission denied")
)

type errorString struct {
	s string
}

func NewError(text string) error {
	return &errorString{text}
}

// IsError reports whether err is an availability error of any class.
func IsError(err error) bool {
	var target *errorString
	return errors.As(err, &target)
}

func (e *errorString) Error() string {
	return e.s
}
