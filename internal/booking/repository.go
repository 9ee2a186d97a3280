package booking

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// ServiceStore reads and writes the service catalog.
type ServiceStore interface {
	GetService(ctx context.Context, id uuid.UUID) (*Service, error)
	ListServices(ctx context.Context, activeOnly bool) ([]Service, error)
	CreateService(ctx context.Context, svc Service) (*Service, error)
	UpdateService(ctx context.Context, svc Service) (*Service, error)
}

// SlotStore reads and writes the per-date slot catalog.
type SlotStore interface {
	ListActiveSlotsByDate(ctx context.Context, date time.Time) ([]Slot, error)
	ListSlots(ctx context.Context, from, to *time.Time) ([]Slot, error)
	CreateSlot(ctx context.Context, slot Slot) (*Slot, error)
	SetSlotActive(ctx context.Context, id uuid.UUID, active bool) (*Slot, error)
	DeleteSlot(ctx context.Context, id uuid.UUID) error
	CountSlotsBetween(ctx context.Context, from, to time.Time) (int, error)
}

// ReservationStore holds every reservation query. Methods called inside
// WithTx run on the transaction carried by ctx.
type ReservationStore interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error

	// Availability
	ListBlockingReservationsByDate(ctx context.Context, date time.Time) ([]Reservation, error)

	// Writer
	LockUserReservations(ctx context.Context, userID uuid.UUID) error
	CancelFutureReservations(ctx context.Context, userID uuid.UUID, today time.Time, now TimeOfDay) (int64, error)
	FindReservationAt(ctx context.Context, date time.Time, start TimeOfDay) (*Reservation, error)
	DeleteCancelledAt(ctx context.Context, date time.Time, start TimeOfDay) (int64, error)
	InsertReservation(ctx context.Context, res Reservation) (*Reservation, error)

	// Lifecycle
	GetReservation(ctx context.Context, id uuid.UUID) (*Reservation, error)
	UpdateReservationStatus(ctx context.Context, id uuid.UUID, from, to ReservationStatus) (*Reservation, error)
	DeleteReservation(ctx context.Context, id uuid.UUID) error

	// Listings and notification data
	GetReservationDetail(ctx context.Context, id uuid.UUID) (*ReservationDetail, error)
	ListReservationsByUser(ctx context.Context, userID uuid.UUID) ([]ReservationDetail, error)
	ListReservations(ctx context.Context, date *time.Time) ([]ReservationDetail, error)
	ListDueReminders(ctx context.Context, date time.Time) ([]ReservationDetail, error)
	MarkReminded(ctx context.Context, id uuid.UUID, at time.Time) error
}

// Repository contains all DB interactions needed by the booking services.
type Repository interface {
	ServiceStore
	SlotStore
	ReservationStore
}
