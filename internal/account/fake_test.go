package account

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
)

type fakeTxKey struct{}

type fakeRepo struct {
	mu      sync.Mutex
	users   map[uuid.UUID]User
	invites map[string]InviteCode
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		users:   map[uuid.UUID]User{},
		invites: map[string]InviteCode{},
	}
}

func (f *fakeRepo) lock(ctx context.Context) func() {
	if ctx.Value(fakeTxKey{}) != nil {
		return func() {}
	}
	f.mu.Lock()
	return f.mu.Unlock
}

func (f *fakeRepo) addInvite(code string, maxUses, used int) {
	f.invites[code] = InviteCode{ID: uuid.New(), Code: code, MaxUses: maxUses, UsedCount: used}
}

func (f *fakeRepo) invite(code string) InviteCode {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.invites[code]
}

func (f *fakeRepo) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if ctx.Value(fakeTxKey{}) != nil {
		return fn(ctx)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	users := make(map[uuid.UUID]User, len(f.users))
	for k, v := range f.users {
		users[k] = v
	}
	invites := make(map[string]InviteCode, len(f.invites))
	for k, v := range f.invites {
		invites[k] = v
	}

	if err := fn(context.WithValue(ctx, fakeTxKey{}, true)); err != nil {
		f.users, f.invites = users, invites
		return err
	}
	return nil
}

func (f *fakeRepo) CreateUser(ctx context.Context, u User) (*User, error) {
	defer f.lock(ctx)()
	for _, existing := range f.users {
		if strings.EqualFold(existing.Email, u.Email) {
			return nil, ErrEmailTaken
		}
	}
	f.users[u.ID] = u
	return &u, nil
}

func (f *fakeRepo) GetUserByID(ctx context.Context, id uuid.UUID) (*User, error) {
	defer f.lock(ctx)()
	u, ok := f.users[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	return &u, nil
}

func (f *fakeRepo) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	defer f.lock(ctx)()
	for _, u := range f.users {
		if strings.EqualFold(u.Email, email) {
			return &u, nil
		}
	}
	return nil, ErrUserNotFound
}

func (f *fakeRepo) UpdatePhone(ctx context.Context, id uuid.UUID, phone *string) (*User, error) {
	defer f.lock(ctx)()
	u, ok := f.users[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	u.Phone = phone
	f.users[id] = u
	return &u, nil
}

func (f *fakeRepo) UpdatePasswordHash(ctx context.Context, id uuid.UUID, hash string) error {
	defer f.lock(ctx)()
	u, ok := f.users[id]
	if !ok {
		return ErrUserNotFound
	}
	u.PasswordHash = hash
	f.users[id] = u
	return nil
}

func (f *fakeRepo) RedeemInvite(ctx context.Context, code string) (*InviteCode, error) {
	defer f.lock(ctx)()
	c, ok := f.invites[code]
	if !ok {
		return nil, ErrInviteInvalid
	}
	if c.Exhausted() {
		return nil, ErrInviteExhausted
	}
	c.UsedCount++
	f.invites[code] = c
	return &c, nil
}

func (f *fakeRepo) GetInviteByCode(ctx context.Context, code string) (*InviteCode, error) {
	defer f.lock(ctx)()
	c, ok := f.invites[code]
	if !ok {
		return nil, ErrInviteNotFound
	}
	return &c, nil
}

func (f *fakeRepo) CreateInvite(ctx context.Context, c InviteCode) (*InviteCode, error) {
	defer f.lock(ctx)()
	if _, ok := f.invites[c.Code]; ok {
		return nil, ErrInviteCodeExists
	}
	f.invites[c.Code] = c
	return &c, nil
}

func (f *fakeRepo) ListInvites(ctx context.Context) ([]InviteCode, error) {
	defer f.lock(ctx)()
	out := make([]InviteCode, 0, len(f.invites))
	for _, c := range f.invites {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, nil
}

func (f *fakeRepo) DeleteInvite(ctx context.Context, id uuid.UUID) error {
	defer f.lock(ctx)()
	for code, c := range f.invites {
		if c.ID == id {
			delete(f.invites, code)
			return nil
		}
	}
	return ErrInviteNotFound
}

type fakeSessions struct {
	mu   sync.Mutex
	live map[uuid.UUID]uuid.UUID
	err  error
}

func newFakeSessions() *fakeSessions {
	return &fakeSessions{live: map[uuid.UUID]uuid.UUID{}}
}

func (s *fakeSessions) Create(_ context.Context, userID uuid.UUID) (uuid.UUID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return uuid.Nil, s.err
	}
	id := uuid.New()
	s.live[id] = userID
	return id, nil
}

func (s *fakeSessions) Delete(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.live, id)
	return nil
}

var _ Repository = (*fakeRepo)(nil)
var _ Sessions = (*fakeSessions)(nil)
