package booking

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hackgods/appointment-booking/internal/notify"
	redisclient "github.com/hackgods/appointment-booking/internal/redis"
)

type fakeTxKey struct{}

// fakeRepo is an in-memory Repository. WithTx serializes transactions on one
// mutex and restores the previous state when fn fails.
type fakeRepo struct {
	mu           sync.Mutex
	services     map[uuid.UUID]Service
	slots        map[uuid.UUID]Slot
	reservations map[uuid.UUID]Reservation
	users        map[uuid.UUID]fakeUser

	getServiceCalls int
	detailErr       error
	lockedUsers     []uuid.UUID
}

type fakeUser struct {
	email string
	phone *string
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		services:     map[uuid.UUID]Service{},
		slots:        map[uuid.UUID]Slot{},
		reservations: map[uuid.UUID]Reservation{},
		users:        map[uuid.UUID]fakeUser{},
	}
}

func (f *fakeRepo) lock(ctx context.Context) func() {
	if ctx.Value(fakeTxKey{}) != nil {
		return func() {}
	}
	f.mu.Lock()
	return f.mu.Unlock
}

func (f *fakeRepo) addUser(email string) uuid.UUID {
	id := uuid.New()
	f.users[id] = fakeUser{email: email}
	return id
}

func (f *fakeRepo) addService(name string, price float64, minutes int, active bool) uuid.UUID {
	id := uuid.New()
	f.services[id] = Service{ID: id, Name: name, Price: price, DurationMinutes: minutes, Active: active}
	return id
}

func (f *fakeRepo) addSlot(date time.Time, start, end TimeOfDay, active bool) uuid.UUID {
	id := uuid.New()
	f.slots[id] = Slot{ID: id, Date: date, Start: start, End: end, Active: active}
	return id
}

func (f *fakeRepo) addReservation(res Reservation) uuid.UUID {
	if res.ID == uuid.Nil {
		res.ID = uuid.New()
	}
	f.reservations[res.ID] = res
	return res.ID
}

func (f *fakeRepo) reservation(id uuid.UUID) Reservation {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.reservations[id]
}

func (f *fakeRepo) confirmedAt(date time.Time, start TimeOfDay) []Reservation {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []Reservation
	for _, r := range f.reservations {
		if r.Date.Equal(date) && r.Start == start && r.Status == StatusConfirmed {
			out = append(out, r)
		}
	}
	return out
}

func (f *fakeRepo) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if ctx.Value(fakeTxKey{}) != nil {
		return fn(ctx)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	snapshot := make(map[uuid.UUID]Reservation, len(f.reservations))
	for k, v := range f.reservations {
		snapshot[k] = v
	}

	if err := fn(context.WithValue(ctx, fakeTxKey{}, true)); err != nil {
		f.reservations = snapshot
		return err
	}
	return nil
}

// ServiceStore

func (f *fakeRepo) GetService(ctx context.Context, id uuid.UUID) (*Service, error) {
	defer f.lock(ctx)()
	f.getServiceCalls++
	svc, ok := f.services[id]
	if !ok {
		return nil, ErrServiceNotFound
	}
	return &svc, nil
}

func (f *fakeRepo) ListServices(ctx context.Context, activeOnly bool) ([]Service, error) {
	defer f.lock(ctx)()
	var out []Service
	for _, s := range f.services {
		if activeOnly && !s.Active {
			continue
		}
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (f *fakeRepo) CreateService(ctx context.Context, svc Service) (*Service, error) {
	defer f.lock(ctx)()
	f.services[svc.ID] = svc
	return &svc, nil
}

func (f *fakeRepo) UpdateService(ctx context.Context, svc Service) (*Service, error) {
	defer f.lock(ctx)()
	if _, ok := f.services[svc.ID]; !ok {
		return nil, ErrServiceNotFound
	}
	f.services[svc.ID] = svc
	return &svc, nil
}

// SlotStore

func (f *fakeRepo) ListActiveSlotsByDate(ctx context.Context, date time.Time) ([]Slot, error) {
	defer f.lock(ctx)()
	var out []Slot
	for _, s := range f.slots {
		if s.Active && s.Date.Equal(date) {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Start < out[j].Start })
	return out, nil
}

func (f *fakeRepo) ListSlots(ctx context.Context, from, to *time.Time) ([]Slot, error) {
	defer f.lock(ctx)()
	var out []Slot
	for _, s := range f.slots {
		if from != nil && s.Date.Before(*from) {
			continue
		}
		if to != nil && s.Date.After(*to) {
			continue
		}
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.Before(out[j].Date)
		}
		return out[i].Start < out[j].Start
	})
	return out, nil
}

func (f *fakeRepo) CreateSlot(ctx context.Context, slot Slot) (*Slot, error) {
	defer f.lock(ctx)()
	for _, s := range f.slots {
		if s.Date.Equal(slot.Date) && s.Start == slot.Start && s.End == slot.End {
			return nil, ErrSlotExists
		}
	}
	f.slots[slot.ID] = slot
	return &slot, nil
}

func (f *fakeRepo) SetSlotActive(ctx context.Context, id uuid.UUID, active bool) (*Slot, error) {
	defer f.lock(ctx)()
	s, ok := f.slots[id]
	if !ok {
		return nil, ErrSlotNotFound
	}
	s.Active = active
	f.slots[id] = s
	return &s, nil
}

func (f *fakeRepo) DeleteSlot(ctx context.Context, id uuid.UUID) error {
	defer f.lock(ctx)()
	if _, ok := f.slots[id]; !ok {
		return ErrSlotNotFound
	}
	delete(f.slots, id)
	return nil
}

func (f *fakeRepo) CountSlotsBetween(ctx context.Context, from, to time.Time) (int, error) {
	defer f.lock(ctx)()
	n := 0
	for _, s := range f.slots {
		if !s.Date.Before(from) && !s.Date.After(to) {
			n++
		}
	}
	return n, nil
}

// ReservationStore

func (f *fakeRepo) ListBlockingReservationsByDate(ctx context.Context, date time.Time) ([]Reservation, error) {
	defer f.lock(ctx)()
	var out []Reservation
	for _, r := range f.reservations {
		if r.Date.Equal(date) && r.Status.Blocks() {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeRepo) LockUserReservations(ctx context.Context, userID uuid.UUID) error {
	defer f.lock(ctx)()
	f.lockedUsers = append(f.lockedUsers, userID)
	return nil
}

func (f *fakeRepo) CancelFutureReservations(ctx context.Context, userID uuid.UUID, today time.Time, now TimeOfDay) (int64, error) {
	defer f.lock(ctx)()
	var n int64
	for id, r := range f.reservations {
		if r.UserID != userID || r.Status != StatusConfirmed {
			continue
		}
		if r.Date.After(today) || (r.Date.Equal(today) && r.Start > now) {
			r.Status = StatusCancelled
			f.reservations[id] = r
			n++
		}
	}
	return n, nil
}

func (f *fakeRepo) FindReservationAt(ctx context.Context, date time.Time, start TimeOfDay) (*Reservation, error) {
	defer f.lock(ctx)()
	var found *Reservation
	for _, r := range f.reservations {
		if !r.Date.Equal(date) || r.Start != start {
			continue
		}
		if r.Status.Blocks() {
			return &r, nil
		}
		found = &r
	}
	if found == nil {
		return nil, ErrReservationNotFound
	}
	return found, nil
}

func (f *fakeRepo) DeleteCancelledAt(ctx context.Context, date time.Time, start TimeOfDay) (int64, error) {
	defer f.lock(ctx)()
	var n int64
	for id, r := range f.reservations {
		if r.Date.Equal(date) && r.Start == start && r.Status == StatusCancelled {
			delete(f.reservations, id)
			n++
		}
	}
	return n, nil
}

func (f *fakeRepo) InsertReservation(ctx context.Context, res Reservation) (*Reservation, error) {
	defer f.lock(ctx)()
	if _, ok := f.services[res.ServiceID]; !ok {
		return nil, ErrUnknownReference
	}
	for _, r := range f.reservations {
		if r.Date.Equal(res.Date) && r.Start == res.Start && r.Status.Blocks() {
			return nil, ErrSlotAlreadyReserved
		}
	}
	res.CreatedAt = time.Now()
	res.UpdatedAt = res.CreatedAt
	f.reservations[res.ID] = res
	return &res, nil
}

func (f *fakeRepo) GetReservation(ctx context.Context, id uuid.UUID) (*Reservation, error) {
	defer f.lock(ctx)()
	r, ok := f.reservations[id]
	if !ok {
		return nil, ErrReservationNotFound
	}
	return &r, nil
}

func (f *fakeRepo) UpdateReservationStatus(ctx context.Context, id uuid.UUID, from, to ReservationStatus) (*Reservation, error) {
	defer f.lock(ctx)()
	r, ok := f.reservations[id]
	if !ok || r.Status != from {
		return nil, ErrReservationNotFound
	}
	r.Status = to
	f.reservations[id] = r
	return &r, nil
}

func (f *fakeRepo) DeleteReservation(ctx context.Context, id uuid.UUID) error {
	defer f.lock(ctx)()
	if _, ok := f.reservations[id]; !ok {
		return ErrReservationNotFound
	}
	delete(f.reservations, id)
	return nil
}

func (f *fakeRepo) detail(r Reservation) (*ReservationDetail, error) {
	svc, ok := f.services[r.ServiceID]
	if !ok {
		return nil, ErrReservationNotFound
	}
	user, ok := f.users[r.UserID]
	if !ok {
		return nil, ErrReservationNotFound
	}
	d := &ReservationDetail{
		Reservation:     r,
		ServiceName:     svc.Name,
		ServicePrice:    svc.Price,
		ServiceDuration: svc.DurationMinutes,
		UserEmail:       user.email,
		UserPhone:       user.phone,
	}
	for _, s := range f.slots {
		if s.Date.Equal(r.Date) && s.Start == r.Start && s.End == r.End {
			d.Location = s.Location
		}
	}
	return d, nil
}

func (f *fakeRepo) GetReservationDetail(ctx context.Context, id uuid.UUID) (*ReservationDetail, error) {
	defer f.lock(ctx)()
	if f.detailErr != nil {
		return nil, f.detailErr
	}
	r, ok := f.reservations[id]
	if !ok {
		return nil, ErrReservationNotFound
	}
	return f.detail(r)
}

func (f *fakeRepo) listDetails(match func(Reservation) bool) []ReservationDetail {
	var out []ReservationDetail
	for _, r := range f.reservations {
		if !match(r) {
			continue
		}
		if d, err := f.detail(r); err == nil {
			out = append(out, *d)
		}
	}
	return out
}

func (f *fakeRepo) ListReservationsByUser(ctx context.Context, userID uuid.UUID) ([]ReservationDetail, error) {
	defer f.lock(ctx)()
	return f.listDetails(func(r Reservation) bool { return r.UserID == userID }), nil
}

func (f *fakeRepo) ListReservations(ctx context.Context, date *time.Time) ([]ReservationDetail, error) {
	defer f.lock(ctx)()
	return f.listDetails(func(r Reservation) bool { return date == nil || r.Date.Equal(*date) }), nil
}

func (f *fakeRepo) ListDueReminders(ctx context.Context, date time.Time) ([]ReservationDetail, error) {
	defer f.lock(ctx)()
	return f.listDetails(func(r Reservation) bool {
		return r.Date.Equal(date) && r.Status == StatusConfirmed && r.RemindedAt == nil
	}), nil
}

func (f *fakeRepo) MarkReminded(ctx context.Context, id uuid.UUID, at time.Time) error {
	defer f.lock(ctx)()
	r, ok := f.reservations[id]
	if !ok {
		return ErrReservationNotFound
	}
	r.RemindedAt = &at
	f.reservations[id] = r
	return nil
}

// recordingDispatcher keeps every accepted message.
type recordingDispatcher struct {
	mu     sync.Mutex
	msgs   []notify.Message
	reject bool
}

func (d *recordingDispatcher) Dispatch(msg notify.Message) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.reject {
		return false
	}
	d.msgs = append(d.msgs, msg)
	return true
}

func (d *recordingDispatcher) messages() []notify.Message {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]notify.Message(nil), d.msgs...)
}

func (d *recordingDispatcher) count(kind notify.Kind) int {
	n := 0
	for _, m := range d.messages() {
		if m.Kind == kind {
			n++
		}
	}
	return n
}

// stubLocker returns the queued errors first, then err, without running fn;
// it runs fn when the returned error is nil.
type stubLocker struct {
	mu    sync.Mutex
	queue []error
	err   error
	calls int
}

func (l *stubLocker) WithSlotLock(ctx context.Context, _ string, fn func(ctx context.Context) error) error {
	l.mu.Lock()
	l.calls++
	err := l.err
	if len(l.queue) > 0 {
		err, l.queue = l.queue[0], l.queue[1:]
	}
	l.mu.Unlock()

	if err != nil {
		return err
	}
	return fn(ctx)
}

var errRedisDown = errors.New("dial tcp: connection refused")

var _ redisclient.Locker = (*stubLocker)(nil)
var _ Repository = (*fakeRepo)(nil)
