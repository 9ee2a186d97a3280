package booking_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hackgods/appointment-booking/internal/auth"
	"github.com/hackgods/appointment-booking/internal/booking"
	"github.com/hackgods/appointment-booking/internal/clock"
	"github.com/hackgods/appointment-booking/internal/notify"
	redisclient "github.com/hackgods/appointment-booking/internal/redis"
	"github.com/hackgods/appointment-booking/internal/testutil"
)

type nopDispatcher struct{}

func (nopDispatcher) Dispatch(notify.Message) bool { return true }

func date(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := booking.ParseDate(s)
	if err != nil {
		t.Fatalf("parse date: %v", err)
	}
	return d
}

func tod(t *testing.T, s string) booking.TimeOfDay {
	t.Helper()
	v, err := booking.ParseTimeOfDay(s)
	if err != nil {
		t.Fatalf("parse time: %v", err)
	}
	return v
}

func TestPgRepository(t *testing.T) {
	pool := testutil.NewTestPool(t)
	ctx := context.Background()
	testutil.ApplyMigrations(t, ctx, pool)
	repo := booking.NewPgRepository(pool)

	t.Run("unique index allows history but not two live rows", func(t *testing.T) {
		testutil.TruncateAll(t, ctx, pool)
		userID := testutil.InsertUser(t, ctx, pool, "alice@example.com", "client")
		serviceID := testutil.InsertService(t, ctx, pool, "Haircut", "25.00", 30)

		base := booking.Reservation{
			UserID: userID, ServiceID: serviceID, Date: date(t, "2024-06-10"),
			Start: tod(t, "14:00"), End: tod(t, "14:30"),
		}

		cancelled := base
		cancelled.ID, cancelled.Status = uuid.New(), booking.StatusCancelled
		if _, err := repo.InsertReservation(ctx, cancelled); err != nil {
			t.Fatalf("insert cancelled: %v", err)
		}

		live := base
		live.ID, live.Status = uuid.New(), booking.StatusConfirmed
		if _, err := repo.InsertReservation(ctx, live); err != nil {
			t.Fatalf("insert confirmed: %v", err)
		}

		dup := base
		dup.ID, dup.Status = uuid.New(), booking.StatusConfirmed
		if _, err := repo.InsertReservation(ctx, dup); !errors.Is(err, booking.ErrSlotAlreadyReserved) {
			t.Fatalf("expected ErrSlotAlreadyReserved, got %v", err)
		}

		err := repo.WithTx(ctx, func(txCtx context.Context) error {
			found, err := repo.FindReservationAt(txCtx, base.Date, base.Start)
			if err != nil {
				return err
			}
			if found.ID != live.ID {
				t.Fatalf("expected live row preferred, got %s", found.Status)
			}
			return nil
		})
		if err != nil {
			t.Fatalf("tx failed: %v", err)
		}

		bad := base
		bad.ID, bad.Status, bad.ServiceID = uuid.New(), booking.StatusConfirmed, uuid.New()
		bad.Start, bad.End = tod(t, "15:00"), tod(t, "15:30")
		if _, err := repo.InsertReservation(ctx, bad); !errors.Is(err, booking.ErrUnknownReference) {
			t.Fatalf("expected ErrUnknownReference, got %v", err)
		}
	})

	t.Run("cancel future reservations respects today and now", func(t *testing.T) {
		testutil.TruncateAll(t, ctx, pool)
		userID := testutil.InsertUser(t, ctx, pool, "alice@example.com", "client")
		serviceID := testutil.InsertService(t, ctx, pool, "Haircut", "25.00", 30)
		today := date(t, "2024-06-10")

		insert := func(d time.Time, start string) uuid.UUID {
			res, err := repo.InsertReservation(ctx, booking.Reservation{
				ID: uuid.New(), UserID: userID, ServiceID: serviceID, Date: d,
				Start: tod(t, start), End: tod(t, start) + 30, Status: booking.StatusConfirmed,
			})
			if err != nil {
				t.Fatalf("insert: %v", err)
			}
			return res.ID
		}
		earlier := insert(today, "09:00")
		later := insert(today, "15:00")
		tomorrow := insert(today.AddDate(0, 0, 1), "09:00")

		n, err := repo.CancelFutureReservations(ctx, userID, today, tod(t, "12:00"))
		if err != nil {
			t.Fatalf("cancel: %v", err)
		}
		if n != 2 {
			t.Fatalf("expected 2 cancelled, got %d", n)
		}

		for id, want := range map[uuid.UUID]booking.ReservationStatus{
			earlier:  booking.StatusConfirmed,
			later:    booking.StatusCancelled,
			tomorrow: booking.StatusCancelled,
		} {
			got, err := repo.GetReservation(ctx, id)
			if err != nil {
				t.Fatalf("get: %v", err)
			}
			if got.Status != want {
				t.Fatalf("expected %s, got %s", want, got.Status)
			}
		}
	})

	t.Run("detail joins service, user and slot location", func(t *testing.T) {
		testutil.TruncateAll(t, ctx, pool)
		userID := testutil.InsertUser(t, ctx, pool, "alice@example.com", "client")
		serviceID := testutil.InsertService(t, ctx, pool, "Haircut", "25.00", 30)
		testutil.InsertSlot(t, ctx, pool, "2024-06-10", "14:00", "14:30", "Salon A")

		res, err := repo.InsertReservation(ctx, booking.Reservation{
			ID: uuid.New(), UserID: userID, ServiceID: serviceID, Date: date(t, "2024-06-10"),
			Start: tod(t, "14:00"), End: tod(t, "14:30"), Status: booking.StatusConfirmed,
		})
		if err != nil {
			t.Fatalf("insert: %v", err)
		}

		d, err := repo.GetReservationDetail(ctx, res.ID)
		if err != nil {
			t.Fatalf("detail: %v", err)
		}
		if d.ServiceName != "Haircut" || d.ServicePrice != 25 || d.UserEmail != "alice@example.com" {
			t.Fatalf("unexpected detail %+v", d)
		}
		if d.Location == nil || *d.Location != "Salon A" {
			t.Fatalf("expected location Salon A, got %v", d.Location)
		}
		if d.Start.String() != "14:00" || booking.FormatDate(d.Date) != "2024-06-10" {
			t.Fatalf("unexpected time fields %s %s", booking.FormatDate(d.Date), d.Start)
		}

		if _, err := repo.GetReservationDetail(ctx, uuid.New()); !errors.Is(err, booking.ErrReservationNotFound) {
			t.Fatalf("expected ErrReservationNotFound, got %v", err)
		}
	})

	t.Run("slots are unique per date and range", func(t *testing.T) {
		testutil.TruncateAll(t, ctx, pool)
		slot := booking.Slot{ID: uuid.New(), Date: date(t, "2024-06-10"), Start: tod(t, "09:00"), End: tod(t, "09:30"), Active: true}
		if _, err := repo.CreateSlot(ctx, slot); err != nil {
			t.Fatalf("create: %v", err)
		}
		slot.ID = uuid.New()
		if _, err := repo.CreateSlot(ctx, slot); !errors.Is(err, booking.ErrSlotExists) {
			t.Fatalf("expected ErrSlotExists, got %v", err)
		}

		n, err := repo.CountSlotsBetween(ctx, date(t, "2024-06-10"), date(t, "2024-06-16"))
		if err != nil || n != 1 {
			t.Fatalf("expected 1 slot, got %d (%v)", n, err)
		}
	})
}

func TestReservationService_ConcurrentBookingsPostgres(t *testing.T) {
	pool := testutil.NewTestPool(t)
	ctx := context.Background()
	testutil.ApplyMigrations(t, ctx, pool)
	testutil.TruncateAll(t, ctx, pool)

	repo := booking.NewPgRepository(pool)
	serviceID := testutil.InsertService(t, ctx, pool, "Haircut", "25.00", 30)
	testutil.InsertSlot(t, ctx, pool, "2024-06-10", "14:00", "14:30", "")

	svc := booking.NewReservationService(
		repo,
		booking.NewServiceCache(repo, 8, time.Minute),
		redisclient.NewNoopLocker(),
		nopDispatcher{},
		clock.NewFixed(time.Date(2024, 6, 9, 12, 0, 0, 0, time.UTC)),
		zap.NewNop(),
	)

	const attempts = 6
	users := make([]uuid.UUID, attempts)
	for i := range users {
		users[i] = testutil.InsertUser(t, ctx, pool, fmt.Sprintf("client%d@example.com", i), "client")
	}

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
	)
	for _, id := range users {
		wg.Add(1)
		go func(id uuid.UUID) {
			defer wg.Done()
			_, err := svc.CreateReservation(ctx, auth.Principal{UserID: id, Role: auth.RoleClient}, booking.CreateReservationInput{
				ServiceID: serviceID.String(), Date: "2024-06-10", Start: "14:00", End: "14:30",
			})
			if err != nil && !errors.Is(err, booking.ErrSlotAlreadyReserved) {
				t.Errorf("unexpected error: %v", err)
				return
			}
			if err == nil {
				mu.Lock()
				successes++
				mu.Unlock()
			}
		}(id)
	}
	wg.Wait()

	if successes != 1 {
		t.Fatalf("expected exactly 1 success, got %d", successes)
	}

	var live int
	if err := pool.QueryRow(ctx, `SELECT COUNT(*) FROM reservations WHERE status = 'confirmed'`).Scan(&live); err != nil {
		t.Fatalf("count: %v", err)
	}
	if live != 1 {
		t.Fatalf("expected 1 confirmed row, got %d", live)
	}
}

func TestReservationService_ConcurrentBookingsSameUserPostgres(t *testing.T) {
	pool := testutil.NewTestPool(t)
	ctx := context.Background()
	testutil.ApplyMigrations(t, ctx, pool)
	testutil.TruncateAll(t, ctx, pool)

	repo := booking.NewPgRepository(pool)
	serviceID := testutil.InsertService(t, ctx, pool, "Haircut", "25.00", 30)
	userID := testutil.InsertUser(t, ctx, pool, "alice@example.com", "client")

	starts := []string{"09:00", "10:00", "11:00", "12:00", "13:00", "14:00"}
	for _, s := range starts {
		testutil.InsertSlot(t, ctx, pool, "2024-06-11", s, s[:2]+":30", "")
	}

	svc := booking.NewReservationService(
		repo,
		booking.NewServiceCache(repo, 8, time.Minute),
		redisclient.NewNoopLocker(),
		nopDispatcher{},
		clock.NewFixed(time.Date(2024, 6, 9, 12, 0, 0, 0, time.UTC)),
		zap.NewNop(),
	)
	alice := auth.Principal{UserID: userID, Role: auth.RoleClient}

	var wg sync.WaitGroup
	begin := make(chan struct{})
	for _, s := range starts {
		wg.Add(1)
		go func(start string) {
			defer wg.Done()
			<-begin
			_, err := svc.CreateReservation(ctx, alice, booking.CreateReservationInput{
				ServiceID: serviceID.String(), Date: "2024-06-11", Start: start, End: start[:2] + ":30",
			})
			if err != nil {
				t.Errorf("book %s: %v", start, err)
			}
		}(s)
	}
	close(begin)
	wg.Wait()

	var live int
	if err := pool.QueryRow(ctx, `SELECT COUNT(*) FROM reservations WHERE user_id = $1 AND status = 'confirmed'`, userID).Scan(&live); err != nil {
		t.Fatalf("count: %v", err)
	}
	if live != 1 {
		t.Fatalf("expected exactly 1 upcoming confirmed reservation, got %d", live)
	}
}
