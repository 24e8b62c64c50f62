package wall

import (
	"errors"
	"fmt"
)

// Error represents a pool error with a stable code.
type Error struct {
	Code    string
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Error codes
const (
	ErrCodeInvalidGrid = "INVALID_GRID"
	ErrCodeNoDecoder   = "NO_DECODER"
	ErrCodeOpenFailed  = "OPEN_FAILED"
	ErrCodePoolClosed  = "POOL_CLOSED"
	ErrCodeSlotsBusy   = "SLOTS_BUSY"
)

// NewError creates a new pool error
func NewError(code, message string, cause error) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// IsCode reports whether err is a pool error with the given code.
func IsCode(err error, code string) bool {
	var e *Error
	return errors.As(err, &e) && e.Code == code
}
