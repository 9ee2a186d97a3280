package account

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hackgods/appointment-booking/internal/db"
)

type PgRepository struct {
	pool *pgxpool.Pool
}

func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

func (r *PgRepository) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return db.WithTx(ctx, r.pool, fn)
}

func (r *PgRepository) conn(ctx context.Context) db.Querier {
	return db.Conn(ctx, r.pool)
}

const userColumns = `id, email, password_hash, phone, role, created_at`

func scanUser(row pgx.Row) (*User, error) {
	var u User
	err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Phone, &u.Role, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &u, nil
}

const inviteColumns = `id, code, max_uses, used_count, created_at`

func scanInvite(row pgx.Row) (*InviteCode, error) {
	var c InviteCode
	err := row.Scan(&c.ID, &c.Code, &c.MaxUses, &c.UsedCount, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrInviteNotFound
		}
		return nil, err
	}
	return &c, nil
}

// Users

func (r *PgRepository) CreateUser(ctx context.Context, u User) (*User, error) {
	row := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO users (id, email, password_hash, phone, role, created_at)
		VALUES ($1, $2, $3, $4, $5, now())
		RETURNING `+userColumns,
		u.ID, u.Email, u.PasswordHash, u.Phone, u.Role)

	created, err := scanUser(row)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("create user: %w", err)
	}
	return created, nil
}

func (r *PgRepository) GetUserByID(ctx context.Context, id uuid.UUID) (*User, error) {
	row := r.conn(ctx).QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	return scanUser(row)
}

func (r *PgRepository) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	row := r.conn(ctx).QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE lower(email) = lower($1)`, email)
	return scanUser(row)
}

func (r *PgRepository) UpdatePhone(ctx context.Context, id uuid.UUID, phone *string) (*User, error) {
	row := r.conn(ctx).QueryRow(ctx, `
		UPDATE users SET phone = $2 WHERE id = $1
		RETURNING `+userColumns, id, phone)
	return scanUser(row)
}

func (r *PgRepository) UpdatePasswordHash(ctx context.Context, id uuid.UUID, hash string) error {
	tag, err := r.conn(ctx).Exec(ctx, `UPDATE users SET password_hash = $2 WHERE id = $1`, id, hash)
	if err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

// Invite codes

// RedeemInvite increments used_count only while uses remain, so concurrent
// redemptions can never push the code past max_uses. When nothing is updated
// the code is looked up to tell Invalid from Exhausted.
func (r *PgRepository) RedeemInvite(ctx context.Context, code string) (*InviteCode, error) {
	row := r.conn(ctx).QueryRow(ctx, `
		UPDATE invite_codes
		SET used_count = used_count + 1
		WHERE code = $1 AND used_count < max_uses
		RETURNING `+inviteColumns, code)

	redeemed, err := scanInvite(row)
	if err == nil {
		return redeemed, nil
	}
	if !errors.Is(err, ErrInviteNotFound) {
		return nil, fmt.Errorf("redeem invite: %w", err)
	}

	if _, err := r.GetInviteByCode(ctx, code); err != nil {
		if errors.Is(err, ErrInviteNotFound) {
			return nil, ErrInviteInvalid
		}
		return nil, err
	}
	return nil, ErrInviteExhausted
}

func (r *PgRepository) GetInviteByCode(ctx context.Context, code string) (*InviteCode, error) {
	row := r.conn(ctx).QueryRow(ctx, `SELECT `+inviteColumns+` FROM invite_codes WHERE code = $1`, code)
	return scanInvite(row)
}

func (r *PgRepository) CreateInvite(ctx context.Context, c InviteCode) (*InviteCode, error) {
	row := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO invite_codes (id, code, max_uses, used_count, created_at)
		VALUES ($1, $2, $3, 0, now())
		RETURNING `+inviteColumns,
		c.ID, c.Code, c.MaxUses)

	created, err := scanInvite(row)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return nil, ErrInviteCodeExists
		}
		return nil, fmt.Errorf("create invite: %w", err)
	}
	return created, nil
}

func (r *PgRepository) ListInvites(ctx context.Context) ([]InviteCode, error) {
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+inviteColumns+` FROM invite_codes ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list invites: %w", err)
	}
	defer rows.Close()

	var result []InviteCode
	for rows.Next() {
		c, err := scanInvite(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *PgRepository) DeleteInvite(ctx context.Context, id uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM invite_codes WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete invite: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrInviteNotFound
	}
	return nil
}
