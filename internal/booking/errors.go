package booking

import (
	"errors"
	"fmt"
)

var (
	ErrServiceNotFound     = errors.New("service not found")
	ErrSlotNotFound        = errors.New("slot not found")
	ErrReservationNotFound = errors.New("reservation not found")
	ErrUnknownReference    = errors.New("referenced user or service does not exist")

	ErrSlotAlreadyReserved     = errors.New("slot already reserved")
	ErrSlotExists              = errors.New("slot already exists for this date")
	ErrInvalidStatusTransition = errors.New("invalid status transition")
)

// ValidationError reports missing or malformed input.
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
