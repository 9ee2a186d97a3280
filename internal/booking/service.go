package booking

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hackgods/appointment-booking/internal/auth"
	"github.com/hackgods/appointment-booking/internal/clock"
	"github.com/hackgods/appointment-booking/internal/notify"
	redisclient "github.com/hackgods/appointment-booking/internal/redis"
)

// defaultLockRetryDelay is how long a caller that found the slot lock busy
// waits before looking again.
const defaultLockRetryDelay = 50 * time.Millisecond

type ReservationService struct {
	repo     Repository
	services *ServiceCache
	locker   redisclient.Locker
	notifier notify.Dispatcher
	clock    clock.Clock
	logger   *zap.Logger

	lockRetryDelay time.Duration
}

func NewReservationService(
	repo Repository,
	services *ServiceCache,
	locker redisclient.Locker,
	notifier notify.Dispatcher,
	clk clock.Clock,
	logger *zap.Logger,
) *ReservationService {
	return &ReservationService{
		repo:     repo,
		services: services,
		locker:   locker,
		notifier: notifier,
		clock:    clk,
		logger:   logger.Named("reservations"),

		lockRetryDelay: defaultLockRetryDelay,
	}
}

type CreateReservationInput struct {
	ServiceID string
	Date      string // YYYY-MM-DD
	Start     string // HH:MM
	End       string // HH:MM
	Notes     string
}

type reservationRequest struct {
	serviceID uuid.UUID
	date      time.Time
	start     TimeOfDay
	end       TimeOfDay
	notes     *string
}

func (in CreateReservationInput) parse() (reservationRequest, error) {
	var req reservationRequest

	if strings.TrimSpace(in.ServiceID) == "" || strings.TrimSpace(in.Date) == "" ||
		strings.TrimSpace(in.Start) == "" || strings.TrimSpace(in.End) == "" {
		return req, invalid("", "serviceId, date, start and end are required")
	}

	var err error
	if req.serviceID, err = uuid.Parse(in.ServiceID); err != nil {
		return req, invalid("serviceId", "must be a valid UUID")
	}
	if req.date, err = ParseDate(in.Date); err != nil {
		return req, invalid("date", "must be YYYY-MM-DD")
	}
	if req.start, err = ParseTimeOfDay(in.Start); err != nil {
		return req, invalid("start", "must be HH:MM")
	}
	if req.end, err = ParseTimeOfDay(in.End); err != nil {
		return req, invalid("end", "must be HH:MM")
	}
	if req.start >= req.end {
		return req, invalid("end", "must be after start")
	}
	if notes := strings.TrimSpace(in.Notes); notes != "" {
		req.notes = &notes
	}
	return req, nil
}

func slotKey(date time.Time, start TimeOfDay) string {
	return FormatDate(date) + "T" + start.String()
}

// CreateReservation books (date, start, end) for the caller. Inside one
// transaction, serialized per user, it cancels the caller's other upcoming
// confirmed reservations,
// reclaims a cancelled row at the same (date, start) and inserts the new
// reservation. The unique index on live (date, start) rows is the final word
// on conflicts; a Conflict rolls the whole transaction back.
func (s *ReservationService) CreateReservation(ctx context.Context, p auth.Principal, in CreateReservationInput) (*Reservation, error) {
	req, err := in.parse()
	if err != nil {
		return nil, err
	}

	if _, err := s.services.GetActive(ctx, req.serviceID); err != nil {
		if errors.Is(err, ErrServiceNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("load service: %w", err)
	}

	now := s.clock.Now()
	today, nowTime := DateOf(now), TimeOfDayOf(now)

	var created *Reservation
	err = s.withSlotLock(ctx, slotKey(req.date, req.start), func(lockCtx context.Context) error {
		return s.repo.WithTx(lockCtx, func(txCtx context.Context) error {
			// Two bookings by the same user for different slots must not both
			// miss each other's insert in the supersede step.
			if err := s.repo.LockUserReservations(txCtx, p.UserID); err != nil {
				return err
			}

			superseded, err := s.repo.CancelFutureReservations(txCtx, p.UserID, today, nowTime)
			if err != nil {
				return err
			}

			existing, err := s.repo.FindReservationAt(txCtx, req.date, req.start)
			if err != nil && !errors.Is(err, ErrReservationNotFound) {
				return fmt.Errorf("check existing reservation: %w", err)
			}
			if existing != nil {
				if existing.Status.Blocks() {
					return ErrSlotAlreadyReserved
				}
				if _, err := s.repo.DeleteCancelledAt(txCtx, req.date, req.start); err != nil {
					return err
				}
			}

			res, err := s.repo.InsertReservation(txCtx, Reservation{
				ID:        uuid.New(),
				UserID:    p.UserID,
				ServiceID: req.serviceID,
				Date:      req.date,
				Start:     req.start,
				End:       req.end,
				Status:    StatusConfirmed,
				Notes:     req.notes,
			})
			if err != nil {
				return err
			}

			if superseded > 0 {
				s.logger.Info("superseded upcoming reservations",
					zap.String("user_id", p.UserID.String()),
					zap.Int64("count", superseded),
				)
			}
			created = res
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	s.notify(ctx, created.ID, notify.KindConfirmation)
	return created, nil
}

// withSlotLock takes the advisory Redis lock when it can. A lock that is still
// busy after one retry is a conflict; an unreachable Redis is not, the
// database still guards the slot.
func (s *ReservationService) withSlotLock(ctx context.Context, key string, fn func(ctx context.Context) error) error {
	err := s.locker.WithSlotLock(ctx, key, fn)
	if errors.Is(err, redisclient.ErrLockNotAcquired) {
		// The holder may fail and leave the slot free.
		timer := time.NewTimer(s.lockRetryDelay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
		err = s.locker.WithSlotLock(ctx, key, fn)
	}

	switch {
	case err == nil:
		return nil
	case errors.Is(err, redisclient.ErrLockNotAcquired):
		return ErrSlotAlreadyReserved
	case errors.Is(err, redisclient.ErrLockUnavailable):
		s.logger.Warn("slot lock unavailable, relying on database constraint", zap.String("slot", key), zap.Error(err))
		return fn(ctx)
	default:
		return err
	}
}

// CancelReservation cancels a confirmed reservation owned by the caller, or any
// reservation when the caller is an admin. Cancelling twice is a no-op and
// sends nothing; completed reservations cannot be cancelled.
func (s *ReservationService) CancelReservation(ctx context.Context, p auth.Principal, id uuid.UUID) (*Reservation, error) {
	res, err := s.repo.GetReservation(ctx, id)
	if err != nil {
		if errors.Is(err, ErrReservationNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("load reservation: %w", err)
	}
	if !p.IsAdmin() && res.UserID != p.UserID {
		return nil, ErrReservationNotFound
	}

	switch res.Status {
	case StatusCancelled:
		return res, nil
	case StatusCompleted:
		return nil, ErrInvalidStatusTransition
	}

	updated, err := s.repo.UpdateReservationStatus(ctx, id, StatusConfirmed, StatusCancelled)
	if err != nil {
		if !errors.Is(err, ErrReservationNotFound) {
			return nil, fmt.Errorf("cancel reservation: %w", err)
		}
		// Lost a race with another transition.
		current, getErr := s.repo.GetReservation(ctx, id)
		if getErr != nil {
			return nil, getErr
		}
		if current.Status == StatusCancelled {
			return current, nil
		}
		return nil, ErrInvalidStatusTransition
	}

	s.notify(ctx, updated.ID, notify.KindCancellation)
	return updated, nil
}

// CompleteReservation marks a confirmed reservation as completed.
func (s *ReservationService) CompleteReservation(ctx context.Context, id uuid.UUID) (*Reservation, error) {
	updated, err := s.repo.UpdateReservationStatus(ctx, id, StatusConfirmed, StatusCompleted)
	if err == nil {
		return updated, nil
	}
	if !errors.Is(err, ErrReservationNotFound) {
		return nil, fmt.Errorf("complete reservation: %w", err)
	}

	current, getErr := s.repo.GetReservation(ctx, id)
	if getErr != nil {
		return nil, getErr
	}
	if current.Status == StatusCompleted {
		return current, nil
	}
	return nil, ErrInvalidStatusTransition
}

// DeleteReservation removes the row for good. Admin only.
func (s *ReservationService) DeleteReservation(ctx context.Context, id uuid.UUID) error {
	return s.repo.DeleteReservation(ctx, id)
}

func (s *ReservationService) ListForUser(ctx context.Context, userID uuid.UUID) ([]ReservationDetail, error) {
	list, err := s.repo.ListReservationsByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list reservations for user: %w", err)
	}
	return list, nil
}

func (s *ReservationService) ListAll(ctx context.Context, date *time.Time) ([]ReservationDetail, error) {
	list, err := s.repo.ListReservations(ctx, date)
	if err != nil {
		return nil, fmt.Errorf("list reservations: %w", err)
	}
	return list, nil
}

// SendReminders dispatches a reminder for every confirmed reservation of
// tomorrow that has not been reminded yet, and returns how many were queued.
func (s *ReservationService) SendReminders(ctx context.Context) (int, error) {
	now := s.clock.Now()
	tomorrow := DateOf(now).AddDate(0, 0, 1)

	due, err := s.repo.ListDueReminders(ctx, tomorrow)
	if err != nil {
		return 0, fmt.Errorf("list due reminders: %w", err)
	}

	sent := 0
	for _, d := range due {
		if !s.notifier.Dispatch(messageFor(notify.KindReminder, d)) {
			continue
		}
		if err := s.repo.MarkReminded(ctx, d.ID, now); err != nil {
			s.logger.Error("failed to mark reminder sent", zap.String("reservation_id", d.ID.String()), zap.Error(err))
			continue
		}
		sent++
	}
	return sent, nil
}

// notify looks up display data and hands the message to the dispatcher. Every
// failure here is logged and swallowed: the state change already committed.
func (s *ReservationService) notify(ctx context.Context, reservationID uuid.UUID, kind notify.Kind) {
	detail, err := s.repo.GetReservationDetail(context.WithoutCancel(ctx), reservationID)
	if err != nil {
		s.logger.Warn("skipping notification, details unavailable",
			zap.String("kind", string(kind)),
			zap.String("reservation_id", reservationID.String()),
			zap.Error(err),
		)
		return
	}

	s.notifier.Dispatch(messageFor(kind, *detail))
}

func messageFor(kind notify.Kind, d ReservationDetail) notify.Message {
	msg := notify.Message{
		Kind:        kind,
		To:          d.UserEmail,
		ServiceName: d.ServiceName,
		Date:        d.Date,
		StartTime:   d.Start.String(),
		EndTime:     d.End.String(),
		Price:       d.ServicePrice,
	}
	if d.UserPhone != nil {
		msg.Phone = *d.UserPhone
	}
	if d.Location != nil {
		msg.Location = *d.Location
	}
	return msg
}
