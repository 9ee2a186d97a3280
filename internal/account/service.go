package account

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hackgods/appointment-booking/internal/auth"
)

// Sessions tracks live logins so that logout revokes the token.
type Sessions interface {
	Create(ctx context.Context, userID uuid.UUID) (uuid.UUID, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type Service struct {
	repo     Repository
	invites  *InviteGate
	sessions Sessions
	tokens   *auth.TokenIssuer
	logger   *zap.Logger
	now      func() time.Time
}

func NewService(repo Repository, invites *InviteGate, sessions Sessions, tokens *auth.TokenIssuer, logger *zap.Logger) *Service {
	return &Service{
		repo:     repo,
		invites:  invites,
		sessions: sessions,
		tokens:   tokens,
		logger:   logger.Named("accounts"),
		now:      time.Now,
	}
}

// Session is what a successful login hands back to the client.
type Session struct {
	Token     string
	ExpiresAt time.Time
	User      User
}

type RegisterInput struct {
	Email      string
	Password   string
	Phone      string
	InviteCode string
}

func normalizeEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return "", invalid("email", "is required")
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", invalid("email", "is not a valid address")
	}
	return email, nil
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

// Register redeems the invite code, creates a client account and opens its
// session in one transaction: a rejected email or an unreachable session
// store gives the use back.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*Session, error) {
	email, err := normalizeEmail(in.Email)
	if err != nil {
		return nil, err
	}
	if err := validatePassword("password", in.Password); err != nil {
		return nil, err
	}
	if strings.TrimSpace(in.InviteCode) == "" {
		return nil, invalid("inviteCode", "is required")
	}

	hash, err := HashPassword(in.Password)
	if err != nil {
		return nil, err
	}

	var sess *Session
	err = s.repo.WithTx(ctx, func(txCtx context.Context) error {
		if _, err := s.invites.Redeem(txCtx, in.InviteCode); err != nil {
			return err
		}

		created, err := s.repo.CreateUser(txCtx, User{
			ID:           uuid.New(),
			Email:        email,
			PasswordHash: hash,
			Phone:        optional(in.Phone),
			Role:         auth.RoleClient,
		})
		if err != nil {
			return err
		}

		// A session key left behind by a rollback expires with its TTL.
		sess, err = s.startSession(txCtx, created)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("user registered", zap.String("user_id", sess.User.ID.String()))
	return sess, nil
}

func (s *Service) Login(ctx context.Context, email, password string) (*Session, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return nil, ErrInvalidCredentials
	}

	user, err := s.repo.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("load user: %w", err)
	}

	ok, err := CheckPassword(user.PasswordHash, password)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrInvalidCredentials
	}

	return s.startSession(ctx, user)
}

func (s *Service) startSession(ctx context.Context, user *User) (*Session, error) {
	sessionID, err := s.sessions.Create(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	token, err := s.tokens.Issue(auth.Principal{UserID: user.ID, Role: user.Role, SessionID: sessionID})
	if err != nil {
		return nil, err
	}

	return &Session{
		Token:     token,
		ExpiresAt: s.now().Add(s.tokens.TTL()),
		User:      *user,
	}, nil
}

func (s *Service) Logout(ctx context.Context, p auth.Principal) error {
	return s.sessions.Delete(ctx, p.SessionID)
}

func (s *Service) Me(ctx context.Context, userID uuid.UUID) (*User, error) {
	return s.repo.GetUserByID(ctx, userID)
}

// UpdatePhone sets or, with an empty value, clears the phone number.
func (s *Service) UpdatePhone(ctx context.Context, userID uuid.UUID, phone string) (*User, error) {
	p := optional(phone)
	if p != nil && len(*p) > 32 {
		return nil, invalid("phone", "is too long")
	}
	return s.repo.UpdatePhone(ctx, userID, p)
}

func (s *Service) ChangePassword(ctx context.Context, userID uuid.UUID, current, next string) error {
	if current == "" || next == "" {
		return invalid("", "currentPassword and newPassword are required")
	}
	if err := validatePassword("newPassword", next); err != nil {
		return err
	}

	user, err := s.repo.GetUserByID(ctx, userID)
	if err != nil {
		return err
	}

	ok, err := CheckPassword(user.PasswordHash, current)
	if err != nil {
		return err
	}
	if !ok {
		return ErrInvalidCredentials
	}

	hash, err := HashPassword(next)
	if err != nil {
		return err
	}
	return s.repo.UpdatePasswordHash(ctx, userID, hash)
}
