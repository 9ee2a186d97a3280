package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/caarlos0/env/v6"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hackgods/appointment-booking/internal/account"
	"github.com/hackgods/appointment-booking/internal/auth"
	"github.com/hackgods/appointment-booking/internal/booking"
	"github.com/hackgods/appointment-booking/internal/config"
	"github.com/hackgods/appointment-booking/internal/db"
	"github.com/hackgods/appointment-booking/internal/db/migrations"
	"github.com/hackgods/appointment-booking/internal/logging"
)

type seedConfig struct {
	AdminEmail     string `env:"SEED_ADMIN_EMAIL" envDefault:"admin@example.com"`
	AdminPassword  string `env:"SEED_ADMIN_PASSWORD" envDefault:"admin123"`
	ClientPassword string `env:"SEED_CLIENT_PASSWORD" envDefault:"client123"`
	Clients        int    `env:"SEED_CLIENTS" envDefault:"50"`
	Days           int    `env:"SEED_DAYS" envDefault:"14"`
	InviteCodes    int    `env:"SEED_INVITE_CODES" envDefault:"5"`
	Location       string `env:"SEED_LOCATION" envDefault:"Main salon"`
}

var defaultServices = []booking.Service{
	{Name: "Haircut", Price: 25, DurationMinutes: 30},
	{Name: "Beard trim", Price: 15, DurationMinutes: 20},
	{Name: "Haircut and beard", Price: 35, DurationMinutes: 50},
	{Name: "Colouring", Price: 60, DurationMinutes: 60},
}

type seeder struct {
	cfg      seedConfig
	accounts *account.PgRepository
	invites  *account.InviteGate
	catalog  *booking.CatalogService
	loc      *time.Location
	logger   *zap.Logger
}

func main() {
	base, err := config.Load()
	if err != nil {
		log.Fatalf("config load error: %v", err)
	}

	var cfg seedConfig
	if err := env.Parse(&cfg); err != nil {
		log.Fatalf("seed config error: %v", err)
	}

	logger, err := logging.New(base.Env, "seed")
	if err != nil {
		log.Fatalf("logger init error: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	pool, err := db.ConnectPostgres(ctx, base.PostgresDSN, db.PoolOptions{})
	if err != nil {
		logger.Fatal("connect postgres", zap.Error(err))
	}
	defer pool.Close()

	if err := migrations.Apply(ctx, pool); err != nil {
		logger.Fatal("apply migrations", zap.Error(err))
	}

	bookingRepo := booking.NewPgRepository(pool)
	accountRepo := account.NewPgRepository(pool)
	services := booking.NewServiceCache(bookingRepo, base.ServiceCacheSize, base.ServiceCacheTTL)

	s := &seeder{
		cfg:      cfg,
		accounts: accountRepo,
		invites:  account.NewInviteGate(accountRepo, logger),
		catalog:  booking.NewCatalogService(bookingRepo, services, logger),
		loc:      base.Location,
		logger:   logger,
	}

	steps := []struct {
		name string
		run  func(context.Context) error
	}{
		{"services", s.seedServices},
		{"admin", s.seedAdmin},
		{"invite codes", s.seedInvites},
		{"slots", s.seedSlots},
		{"clients", s.seedClients},
	}
	for _, step := range steps {
		if err := step.run(ctx); err != nil {
			logger.Fatal("seed failed", zap.String("step", step.name), zap.Error(err))
		}
	}

	logger.Info("seed complete")
}

func (s *seeder) seedServices(ctx context.Context) error {
	existing, err := s.catalog.ListServices(ctx, false)
	if err != nil {
		return err
	}
	have := make(map[string]bool, len(existing))
	for _, svc := range existing {
		have[strings.ToLower(svc.Name)] = true
	}

	created := 0
	for _, svc := range defaultServices {
		if have[strings.ToLower(svc.Name)] {
			continue
		}
		if _, err := s.catalog.CreateService(ctx, booking.ServiceInput{
			Name:            svc.Name,
			Price:           svc.Price,
			DurationMinutes: svc.DurationMinutes,
		}); err != nil {
			return fmt.Errorf("create service %q: %w", svc.Name, err)
		}
		created++
	}

	s.logger.Info("services seeded", zap.Int("created", created), zap.Int("existing", len(existing)))
	return nil
}

func (s *seeder) seedAdmin(ctx context.Context) error {
	hash, err := account.HashPassword(s.cfg.AdminPassword)
	if err != nil {
		return err
	}

	_, err = s.accounts.CreateUser(ctx, account.User{
		ID:           uuid.New(),
		Email:        strings.ToLower(s.cfg.AdminEmail),
		PasswordHash: hash,
		Role:         auth.RoleAdmin,
	})
	if errors.Is(err, account.ErrEmailTaken) {
		s.logger.Info("admin already exists", zap.String("email", s.cfg.AdminEmail))
		return nil
	}
	if err != nil {
		return err
	}

	s.logger.Info("admin created", zap.String("email", s.cfg.AdminEmail))
	return nil
}

func (s *seeder) seedInvites(ctx context.Context) error {
	for i := 0; i < s.cfg.InviteCodes; i++ {
		code, err := s.invites.Generate(ctx, account.GenerateInviteInput{Prefix: "SEED", MaxUses: 10})
		if err != nil {
			return err
		}
		s.logger.Info("invite code", zap.String("code", code.Code), zap.Int("max_uses", code.MaxUses))
	}
	return nil
}

// seedSlots opens hourly slots from 09:00 to 18:00, Monday to Saturday, for
// the next cfg.Days days. Slots that already exist are left alone.
func (s *seeder) seedSlots(ctx context.Context) error {
	tomorrow := booking.DateOf(time.Now().In(s.loc)).AddDate(0, 0, 1)

	created, skipped := 0, 0
	for d := 0; d < s.cfg.Days; d++ {
		date := tomorrow.AddDate(0, 0, d)
		if date.Weekday() == time.Sunday {
			continue
		}

		for hour := 9; hour < 18; hour++ {
			_, err := s.catalog.CreateSlot(ctx, booking.SlotInput{
				Date:     booking.FormatDate(date),
				Start:    fmt.Sprintf("%02d:00", hour),
				End:      fmt.Sprintf("%02d:00", hour+1),
				Location: s.cfg.Location,
			})
			if errors.Is(err, booking.ErrSlotExists) {
				skipped++
				continue
			}
			if err != nil {
				return fmt.Errorf("create slot %s %02d:00: %w", booking.FormatDate(date), hour, err)
			}
			created++
		}
	}

	s.logger.Info("slots seeded", zap.Int("created", created), zap.Int("skipped", skipped))
	return nil
}

// seedClients creates fake clients sharing one password so the simulator
// can log in as any of them.
func (s *seeder) seedClients(ctx context.Context) error {
	hash, err := account.HashPassword(s.cfg.ClientPassword)
	if err != nil {
		return err
	}

	created := 0
	err = s.accounts.WithTx(ctx, func(ctx context.Context) error {
		for i := 0; i < s.cfg.Clients; i++ {
			phone := "+1" + gofakeit.Phone()
			email := strings.ToLower(fmt.Sprintf("%s.%d@example.com", gofakeit.FirstName(), gofakeit.Number(10000, 99999)))

			_, err := s.accounts.CreateUser(ctx, account.User{
				ID:           uuid.New(),
				Email:        email,
				PasswordHash: hash,
				Phone:        &phone,
				Role:         auth.RoleClient,
			})
			if err != nil {
				return fmt.Errorf("create client %s: %w", email, err)
			}
			created++
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.Info("clients seeded", zap.Int("count", created))
	return nil
}
