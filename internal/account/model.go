package account

import (
	"time"

	"github.com/google/uuid"

	"github.com/hackgods/appointment-booking/internal/auth"
)

type User struct {
	ID           uuid.UUID
	Email        string
	PasswordHash string
	Phone        *string
	Role         auth.Role
	CreatedAt    time.Time
}

// InviteCode gates registration. UsedCount never exceeds MaxUses.
type InviteCode struct {
	ID        uuid.UUID
	Code      string
	MaxUses   int
	UsedCount int
	CreatedAt time.Time
}

func (c InviteCode) Exhausted() bool {
	return c.UsedCount >= c.MaxUses
}
