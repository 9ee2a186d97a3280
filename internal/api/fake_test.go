package api

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hackgods/appointment-booking/internal/account"
	"github.com/hackgods/appointment-booking/internal/auth"
	"github.com/hackgods/appointment-booking/internal/booking"
	redisclient "github.com/hackgods/appointment-booking/internal/redis"
)

type fakeSessions struct {
	mu       sync.Mutex
	sessions map[uuid.UUID]uuid.UUID
	err      error
}

func newFakeSessions() *fakeSessions {
	return &fakeSessions{sessions: make(map[uuid.UUID]uuid.UUID)}
}

func (f *fakeSessions) Lookup(_ context.Context, id uuid.UUID) (uuid.UUID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return uuid.Nil, f.err
	}
	userID, ok := f.sessions[id]
	if !ok {
		return uuid.Nil, redisclient.ErrSessionNotFound
	}
	return userID, nil
}

func (f *fakeSessions) add(sessionID, userID uuid.UUID) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sessions[sessionID] = userID
}

type fakeAccounts struct {
	session      *account.Session
	user         *account.User
	err          error
	loggedOut    []auth.Principal
	lastPhone    string
	lastRegister account.RegisterInput
}

func (f *fakeAccounts) Register(_ context.Context, in account.RegisterInput) (*account.Session, error) {
	f.lastRegister = in
	if f.err != nil {
		return nil, f.err
	}
	return f.session, nil
}

func (f *fakeAccounts) Login(_ context.Context, _, _ string) (*account.Session, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.session, nil
}

func (f *fakeAccounts) Logout(_ context.Context, p auth.Principal) error {
	f.loggedOut = append(f.loggedOut, p)
	return f.err
}

func (f *fakeAccounts) Me(_ context.Context, userID uuid.UUID) (*account.User, error) {
	if f.err != nil {
		return nil, f.err
	}
	u := *f.user
	u.ID = userID
	return &u, nil
}

func (f *fakeAccounts) UpdatePhone(ctx context.Context, userID uuid.UUID, phone string) (*account.User, error) {
	f.lastPhone = phone
	return f.Me(ctx, userID)
}

func (f *fakeAccounts) ChangePassword(_ context.Context, _ uuid.UUID, _, _ string) error {
	return f.err
}

type fakeReservations struct {
	mu        sync.Mutex
	created   *booking.Reservation
	details   []booking.ReservationDetail
	err       error
	principal auth.Principal
	input     booking.CreateReservationInput
	listDate  *time.Time
	deleted   []uuid.UUID
}

func (f *fakeReservations) CreateReservation(_ context.Context, p auth.Principal, in booking.CreateReservationInput) (*booking.Reservation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.principal = p
	f.input = in
	if f.err != nil {
		return nil, f.err
	}
	res := *f.created
	res.UserID = p.UserID
	return &res, nil
}

func (f *fakeReservations) CancelReservation(_ context.Context, p auth.Principal, id uuid.UUID) (*booking.Reservation, error) {
	f.principal = p
	if f.err != nil {
		return nil, f.err
	}
	res := *f.created
	res.ID = id
	res.Status = booking.StatusCancelled
	return &res, nil
}

func (f *fakeReservations) CompleteReservation(_ context.Context, id uuid.UUID) (*booking.Reservation, error) {
	if f.err != nil {
		return nil, f.err
	}
	res := *f.created
	res.ID = id
	res.Status = booking.StatusCompleted
	return &res, nil
}

func (f *fakeReservations) DeleteReservation(_ context.Context, id uuid.UUID) error {
	f.deleted = append(f.deleted, id)
	return f.err
}

func (f *fakeReservations) ListForUser(_ context.Context, _ uuid.UUID) ([]booking.ReservationDetail, error) {
	return f.details, f.err
}

func (f *fakeReservations) ListAll(_ context.Context, date *time.Time) ([]booking.ReservationDetail, error) {
	f.listDate = date
	return f.details, f.err
}

type fakeCatalog struct {
	services   []booking.Service
	slots      []booking.Slot
	err        error
	activeOnly *bool
	from, to   *time.Time
	slotInput  booking.SlotInput
	svcInput   booking.ServiceInput
	active     *bool
}

func (f *fakeCatalog) ListServices(_ context.Context, activeOnly bool) ([]booking.Service, error) {
	f.activeOnly = &activeOnly
	return f.services, f.err
}

func (f *fakeCatalog) CreateService(_ context.Context, in booking.ServiceInput) (*booking.Service, error) {
	f.svcInput = in
	if f.err != nil {
		return nil, f.err
	}
	return &booking.Service{ID: uuid.New(), Name: in.Name, Price: in.Price, DurationMinutes: in.DurationMinutes, Active: true}, nil
}

func (f *fakeCatalog) UpdateService(_ context.Context, id uuid.UUID, in booking.ServiceInput) (*booking.Service, error) {
	f.svcInput = in
	if f.err != nil {
		return nil, f.err
	}
	return &booking.Service{ID: id, Name: in.Name, Price: in.Price, DurationMinutes: in.DurationMinutes}, nil
}

func (f *fakeCatalog) ListSlots(_ context.Context, from, to *time.Time) ([]booking.Slot, error) {
	f.from, f.to = from, to
	return f.slots, f.err
}

func (f *fakeCatalog) CreateSlot(_ context.Context, in booking.SlotInput) (*booking.Slot, error) {
	f.slotInput = in
	if f.err != nil {
		return nil, f.err
	}
	return &f.slots[0], nil
}

func (f *fakeCatalog) SetSlotActive(_ context.Context, id uuid.UUID, active bool) (*booking.Slot, error) {
	f.active = &active
	if f.err != nil {
		return nil, f.err
	}
	slot := f.slots[0]
	slot.ID = id
	slot.Active = active
	return &slot, nil
}

func (f *fakeCatalog) DeleteSlot(_ context.Context, _ uuid.UUID) error {
	return f.err
}

type fakeInvites struct {
	codes []account.InviteCode
	input account.GenerateInviteInput
	err   error
}

func (f *fakeInvites) Generate(_ context.Context, in account.GenerateInviteInput) (*account.InviteCode, error) {
	f.input = in
	if f.err != nil {
		return nil, f.err
	}
	return &account.InviteCode{ID: uuid.New(), Code: in.Prefix + "-ABC123", MaxUses: in.MaxUses}, nil
}

func (f *fakeInvites) List(_ context.Context) ([]account.InviteCode, error) {
	return f.codes, f.err
}

func (f *fakeInvites) Delete(_ context.Context, _ uuid.UUID) error {
	return f.err
}

type fakeAvailability struct {
	slots     []booking.SlotAvailability
	serviceID uuid.UUID
	date      time.Time
	err       error
}

func (f *fakeAvailability) GetAvailability(_ context.Context, date time.Time, serviceID uuid.UUID) ([]booking.SlotAvailability, error) {
	f.date, f.serviceID = date, serviceID
	return f.slots, f.err
}

var errBoom = errors.New("connection refused")
