package booking

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Opening hours enforced on admin-created slots.
const (
	OpeningHour = 8
	ClosingHour = 20
)

// CatalogService manages services and slots on behalf of the admin.
type CatalogService struct {
	repo     Repository
	services *ServiceCache
	logger   *zap.Logger
}

func NewCatalogService(repo Repository, services *ServiceCache, logger *zap.Logger) *CatalogService {
	return &CatalogService{
		repo:     repo,
		services: services,
		logger:   logger.Named("catalog"),
	}
}

type ServiceInput struct {
	Name            string
	Price           float64
	DurationMinutes int
	Active          *bool
}

func (in ServiceInput) validate() error {
	if strings.TrimSpace(in.Name) == "" {
		return invalid("name", "is required")
	}
	if in.Price < 0 {
		return invalid("price", "must not be negative")
	}
	if in.DurationMinutes <= 0 {
		return invalid("durationMinutes", "must be positive")
	}
	return nil
}

func (c *CatalogService) ListServices(ctx context.Context, activeOnly bool) ([]Service, error) {
	list, err := c.repo.ListServices(ctx, activeOnly)
	if err != nil {
		return nil, fmt.Errorf("list services: %w", err)
	}
	return list, nil
}

func (c *CatalogService) CreateService(ctx context.Context, in ServiceInput) (*Service, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	active := true
	if in.Active != nil {
		active = *in.Active
	}

	svc, err := c.repo.CreateService(ctx, Service{
		ID:              uuid.New(),
		Name:            strings.TrimSpace(in.Name),
		Price:           in.Price,
		DurationMinutes: in.DurationMinutes,
		Active:          active,
	})
	if err != nil {
		return nil, fmt.Errorf("create service: %w", err)
	}
	return svc, nil
}

// UpdateService replaces every field of the service. Active defaults to the
// stored value when omitted.
func (c *CatalogService) UpdateService(ctx context.Context, id uuid.UUID, in ServiceInput) (*Service, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	current, err := c.repo.GetService(ctx, id)
	if err != nil {
		return nil, err
	}

	active := current.Active
	if in.Active != nil {
		active = *in.Active
	}

	updated, err := c.repo.UpdateService(ctx, Service{
		ID:              id,
		Name:            strings.TrimSpace(in.Name),
		Price:           in.Price,
		DurationMinutes: in.DurationMinutes,
		Active:          active,
	})
	c.services.Invalidate(id)
	if err != nil {
		return nil, err
	}
	return updated, nil
}

type SlotInput struct {
	Date     string
	Start    string
	End      string
	Location string
}

func (in SlotInput) parse() (Slot, error) {
	var slot Slot

	if strings.TrimSpace(in.Date) == "" || strings.TrimSpace(in.Start) == "" || strings.TrimSpace(in.End) == "" {
		return slot, invalid("", "date, start and end are required")
	}

	var err error
	if slot.Date, err = ParseDate(in.Date); err != nil {
		return slot, invalid("date", "must be YYYY-MM-DD")
	}
	if slot.Start, err = ParseTimeOfDay(in.Start); err != nil {
		return slot, invalid("start", "must be HH:MM")
	}
	if slot.End, err = ParseTimeOfDay(in.End); err != nil {
		return slot, invalid("end", "must be HH:MM")
	}

	if slot.Start.Hour() < OpeningHour || slot.Start.Hour() >= ClosingHour {
		return slot, invalid("start", fmt.Sprintf("must be between %02d:00 and %02d:00", OpeningHour, ClosingHour))
	}
	if slot.End > TimeOfDay(ClosingHour*60) {
		return slot, invalid("end", fmt.Sprintf("must not be after %02d:00", ClosingHour))
	}
	if slot.Start >= slot.End {
		return slot, invalid("end", "must be after start")
	}

	if loc := strings.TrimSpace(in.Location); loc != "" {
		slot.Location = &loc
	}
	return slot, nil
}

func (c *CatalogService) ListSlots(ctx context.Context, from, to *time.Time) ([]Slot, error) {
	list, err := c.repo.ListSlots(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("list slots: %w", err)
	}
	return list, nil
}

// CreateSlot adds an active slot. A slot with the same date, start and end
// yields ErrSlotExists.
func (c *CatalogService) CreateSlot(ctx context.Context, in SlotInput) (*Slot, error) {
	slot, err := in.parse()
	if err != nil {
		return nil, err
	}

	slot.ID = uuid.New()
	slot.Active = true

	created, err := c.repo.CreateSlot(ctx, slot)
	if err != nil {
		return nil, err
	}

	c.logger.Info("slot created",
		zap.String("date", FormatDate(created.Date)),
		zap.String("start", created.Start.String()),
		zap.String("end", created.End.String()),
	)
	return created, nil
}

func (c *CatalogService) SetSlotActive(ctx context.Context, id uuid.UUID, active bool) (*Slot, error) {
	return c.repo.SetSlotActive(ctx, id, active)
}

// DeleteSlot removes the window. Reservations already made on it are kept.
func (c *CatalogService) DeleteSlot(ctx context.Context, id uuid.UUID) error {
	return c.repo.DeleteSlot(ctx, id)
}

// CountSlotsBetween counts slots dated in [from, to], active or not.
func (c *CatalogService) CountSlotsBetween(ctx context.Context, from, to time.Time) (int, error) {
	return c.repo.CountSlotsBetween(ctx, from, to)
}
