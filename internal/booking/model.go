package booking

import (
	"time"

	"github.com/google/uuid"
)

type ReservationStatus string

const (
	StatusConfirmed ReservationStatus = "confirmed"
	StatusCancelled ReservationStatus = "cancelled"
	StatusCompleted ReservationStatus = "completed"
)

// Blocks reports whether a reservation in this status occupies its time range.
func (s ReservationStatus) Blocks() bool {
	return s == StatusConfirmed || s == StatusCompleted
}

// Service is a bookable offering with a fixed duration and price.
type Service struct {
	ID              uuid.UUID
	Name            string
	Price           float64
	DurationMinutes int
	Active          bool
	CreatedAt       time.Time
}

// Slot is a bookable window on one calendar date.
type Slot struct {
	ID        uuid.UUID
	Date      time.Time
	Start     TimeOfDay
	End       TimeOfDay
	Location  *string
	Active    bool
	CreatedAt time.Time
}

type Reservation struct {
	ID         uuid.UUID
	UserID     uuid.UUID
	ServiceID  uuid.UUID
	Date       time.Time
	Start      TimeOfDay
	End        TimeOfDay
	Status     ReservationStatus
	Notes      *string
	RemindedAt *time.Time
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// ReservationDetail is a reservation with the display data of its user,
// service and slot.
type ReservationDetail struct {
	Reservation
	ServiceName     string
	ServicePrice    float64
	ServiceDuration int
	UserEmail       string
	UserPhone       *string
	Location        *string
}

type SlotAvailability struct {
	Slot
	Taken bool
}
