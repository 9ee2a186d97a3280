package account

import (
	"context"

	"github.com/google/uuid"
)

// Repository contains all DB interactions needed by accounts and invites.
type Repository interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error

	CreateUser(ctx context.Context, u User) (*User, error)
	GetUserByID(ctx context.Context, id uuid.UUID) (*User, error)
	GetUserByEmail(ctx context.Context, email string) (*User, error)
	UpdatePhone(ctx context.Context, id uuid.UUID, phone *string) (*User, error)
	UpdatePasswordHash(ctx context.Context, id uuid.UUID, hash string) error

	// RedeemInvite consumes one use of code atomically.
	RedeemInvite(ctx context.Context, code string) (*InviteCode, error)
	GetInviteByCode(ctx context.Context, code string) (*InviteCode, error)
	CreateInvite(ctx context.Context, c InviteCode) (*InviteCode, error)
	ListInvites(ctx context.Context) ([]InviteCode, error)
	DeleteInvite(ctx context.Context, id uuid.UUID) error
}
