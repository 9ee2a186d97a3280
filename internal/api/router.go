package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

type RouterConfig struct {
	Accounts      Accounts
	Invites       Invites
	Catalog       Catalog
	Availability  Availability
	Reservations  Reservations
	Authenticator *Authenticator
	Health        *HealthHandler
	Logger        *zap.Logger
	SecureCookies bool
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()
	logger := cfg.Logger

	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware(logger))
	r.Use(middleware.Recoverer)

	r.Get("/health/live", cfg.Health.Liveness)
	r.Get("/health/ready", cfg.Health.Readiness)

	r.Route("/api", func(r chi.Router) {
		r.Post("/register", registerHandler(cfg.Accounts, logger, cfg.SecureCookies))
		r.Post("/login", loginHandler(cfg.Accounts, logger, cfg.SecureCookies))
		r.Get("/services", listServicesHandler(cfg.Catalog, logger))
		r.Get("/slots/{date}", availabilityHandler(cfg.Availability, logger))

		r.Group(func(r chi.Router) {
			r.Use(cfg.Authenticator.RequireAuth)

			r.Post("/logout", logoutHandler(cfg.Accounts, logger))
			r.Post("/reservations", createReservationHandler(cfg.Reservations, logger))

			r.Route("/user", func(r chi.Router) {
				r.Get("/me", meHandler(cfg.Accounts, logger))
				r.Put("/profile", updateProfileHandler(cfg.Accounts, logger))
				r.Put("/password", changePasswordHandler(cfg.Accounts, logger))
				r.Get("/reservations", listMyReservationsHandler(cfg.Reservations, logger))
				r.Delete("/reservations/{id}", cancelReservationHandler(cfg.Reservations, logger))
			})

			r.Route("/admin", func(r chi.Router) {
				r.Use(RequireAdmin)

				r.Get("/reservations", adminListReservationsHandler(cfg.Reservations, logger))
				r.Put("/reservations/{id}/cancel", cancelReservationHandler(cfg.Reservations, logger))
				r.Put("/reservations/{id}/complete", adminCompleteReservationHandler(cfg.Reservations, logger))
				r.Delete("/reservations/{id}", adminDeleteReservationHandler(cfg.Reservations, logger))

				r.Get("/slots", adminListSlotsHandler(cfg.Catalog, logger))
				r.Post("/slots", adminCreateSlotHandler(cfg.Catalog, logger))
				r.Put("/slots/{id}", adminUpdateSlotHandler(cfg.Catalog, logger))
				r.Delete("/slots/{id}", adminDeleteSlotHandler(cfg.Catalog, logger))

				r.Get("/invite-codes", adminListInvitesHandler(cfg.Invites, logger))
				r.Post("/invite-codes", adminCreateInviteHandler(cfg.Invites, logger))
				r.Delete("/invite-codes/{id}", adminDeleteInviteHandler(cfg.Invites, logger))

				r.Get("/services", adminListServicesHandler(cfg.Catalog, logger))
				r.Post("/services", adminCreateServiceHandler(cfg.Catalog, logger))
				r.Put("/services/{id}", adminUpdateServiceHandler(cfg.Catalog, logger))
			})
		})
	})

	return r
}
