package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// AvailabilityResolver answers which slots of a date are free. It only reads.
type AvailabilityResolver struct {
	services *ServiceCache
	slots    SlotStore
	res      ReservationStore
}

func NewAvailabilityResolver(services *ServiceCache, slots SlotStore, res ReservationStore) *AvailabilityResolver {
	return &AvailabilityResolver{
		services: services,
		slots:    slots,
		res:      res,
	}
}

// GetAvailability returns every active slot of date, each marked taken when it
// overlaps a confirmed or completed reservation. The service's duration is not
// applied; callers pick slots whose width matches it.
func (r *AvailabilityResolver) GetAvailability(ctx context.Context, date time.Time, serviceID uuid.UUID) ([]SlotAvailability, error) {
	if _, err := r.services.GetActive(ctx, serviceID); err != nil {
		if errors.Is(err, ErrServiceNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("load service: %w", err)
	}

	slots, err := r.slots.ListActiveSlotsByDate(ctx, date)
	if err != nil {
		return nil, fmt.Errorf("load slots: %w", err)
	}

	reservations, err := r.res.ListBlockingReservationsByDate(ctx, date)
	if err != nil {
		return nil, fmt.Errorf("load reservations: %w", err)
	}

	return markTaken(slots, reservations), nil
}

func markTaken(slots []Slot, reservations []Reservation) []SlotAvailability {
	result := make([]SlotAvailability, 0, len(slots))
	for _, slot := range slots {
		taken := false
		for _, res := range reservations {
			if !res.Status.Blocks() {
				continue
			}
			if overlaps(slot.Start, slot.End, res.Start, res.End) {
				taken = true
				break
			}
		}
		result = append(result, SlotAvailability{Slot: slot, Taken: taken})
	}
	return result
}
