package common

import (
	"errors"
	"fmt"
)

// Error kinds the handler layer maps onto status codes. Checks run before any
// mutation, so a rejected request never leaves partial writes behind.
var (
	ErrNotFound           = errors.New("not found")
	ErrPermissionDenied   = errors.New("permission denied")
	ErrValidation         = errors.New("validation failed")
	ErrConversationLocked = fmt.Errorf("%w: conversation is locked", ErrPermissionDenied)
	ErrNotPrioritized     = fmt.Errorf("%w: conversation is not prioritized", ErrValidation)
)

func NotFoundf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrNotFound, fmt.Sprintf(format, args...))
}

func PermissionDeniedf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrPermissionDenied, fmt.Sprintf(format, args...))
}

func Validationf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}
