package account

import (
	"errors"
	"fmt"
)

var (
	ErrUserNotFound       = errors.New("user not found")
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid email or password")

	ErrInviteInvalid    = errors.New("invite code is invalid")
	ErrInviteExhausted  = errors.New("invite code has no uses left")
	ErrInviteCodeExists = errors.New("invite code already exists")
	ErrInviteNotFound   = errors.New("invite code not found")
)

// ValidationError reports missing or malformed account input.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

func invalid(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}
