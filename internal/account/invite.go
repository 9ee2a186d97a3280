package account

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	defaultInvitePrefix = "CODE"
	inviteRandomLength  = 6
	inviteAlphabet      = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	generateAttempts    = 5
)

var prefixPattern = regexp.MustCompile(`^[A-Z0-9]{1,16}$`)

// InviteGate issues and redeems invite codes.
type InviteGate struct {
	repo   Repository
	logger *zap.Logger
	random func(n int) (string, error)
}

func NewInviteGate(repo Repository, logger *zap.Logger) *InviteGate {
	return &InviteGate{
		repo:   repo,
		logger: logger.Named("invites"),
		random: randomCode,
	}
}

// Redeem consumes one use of code. It fails with ErrInviteInvalid when the
// code does not exist and ErrInviteExhausted when no uses are left.
func (g *InviteGate) Redeem(ctx context.Context, code string) (*InviteCode, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, ErrInviteInvalid
	}
	return g.repo.RedeemInvite(ctx, code)
}

type GenerateInviteInput struct {
	Prefix  string
	MaxUses int
}

// Generate creates PREFIX-XXXXXX with six random base36 characters. A random
// collision is retried a few times before giving up with ErrInviteCodeExists.
func (g *InviteGate) Generate(ctx context.Context, in GenerateInviteInput) (*InviteCode, error) {
	prefix := strings.ToUpper(strings.TrimSpace(in.Prefix))
	if prefix == "" {
		prefix = defaultInvitePrefix
	}
	if !prefixPattern.MatchString(prefix) {
		return nil, invalid("prefix", "must be 1 to 16 letters or digits")
	}

	maxUses := in.MaxUses
	if maxUses == 0 {
		maxUses = 1
	}
	if maxUses < 0 {
		return nil, invalid("maxUses", "must be positive")
	}

	for attempt := 0; attempt < generateAttempts; attempt++ {
		suffix, err := g.random(inviteRandomLength)
		if err != nil {
			return nil, err
		}

		created, err := g.repo.CreateInvite(ctx, InviteCode{
			ID:      uuid.New(),
			Code:    prefix + "-" + suffix,
			MaxUses: maxUses,
		})
		if errors.Is(err, ErrInviteCodeExists) {
			g.logger.Debug("invite code collision, retrying", zap.Int("attempt", attempt+1))
			continue
		}
		if err != nil {
			return nil, err
		}

		g.logger.Info("invite code generated", zap.String("code", created.Code), zap.Int("max_uses", created.MaxUses))
		return created, nil
	}
	return nil, ErrInviteCodeExists
}

func (g *InviteGate) List(ctx context.Context) ([]InviteCode, error) {
	return g.repo.ListInvites(ctx)
}

func (g *InviteGate) Delete(ctx context.Context, id uuid.UUID) error {
	return g.repo.DeleteInvite(ctx, id)
}

func randomCode(n int) (string, error) {
	max := big.NewInt(int64(len(inviteAlphabet)))
	var b strings.Builder
	b.Grow(n)
	for i := 0; i < n; i++ {
		idx, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("generate invite code: %w", err)
		}
		b.WriteByte(inviteAlphabet[idx.Int64()])
	}
	return b.String(), nil
}
