package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hackgods/appointment-booking/internal/account"
	"github.com/hackgods/appointment-booking/internal/auth"
	"github.com/hackgods/appointment-booking/internal/booking"
)

type Accounts interface {
	Register(ctx context.Context, in account.RegisterInput) (*account.Session, error)
	Login(ctx context.Context, email, password string) (*account.Session, error)
	Logout(ctx context.Context, p auth.Principal) error
	Me(ctx context.Context, userID uuid.UUID) (*account.User, error)
	UpdatePhone(ctx context.Context, userID uuid.UUID, phone string) (*account.User, error)
	ChangePassword(ctx context.Context, userID uuid.UUID, current, next string) error
}

type Availability interface {
	GetAvailability(ctx context.Context, date time.Time, serviceID uuid.UUID) ([]booking.SlotAvailability, error)
}

type Reservations interface {
	CreateReservation(ctx context.Context, p auth.Principal, in booking.CreateReservationInput) (*booking.Reservation, error)
	CancelReservation(ctx context.Context, p auth.Principal, id uuid.UUID) (*booking.Reservation, error)
	CompleteReservation(ctx context.Context, id uuid.UUID) (*booking.Reservation, error)
	DeleteReservation(ctx context.Context, id uuid.UUID) error
	ListForUser(ctx context.Context, userID uuid.UUID) ([]booking.ReservationDetail, error)
	ListAll(ctx context.Context, date *time.Time) ([]booking.ReservationDetail, error)
}

// Auth

func setSessionCookie(w http.ResponseWriter, s *account.Session, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    s.Token,
		Path:     "/",
		Expires:  s.ExpiresAt,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func registerHandler(svc Accounts, logger *zap.Logger, secureCookie bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req RegisterRequest
		if !decodeJSON(w, r, &req) {
			return
		}

		sess, err := svc.Register(r.Context(), account.RegisterInput{
			Email:      req.Email,
			Password:   req.Password,
			Phone:      req.Phone,
			InviteCode: req.InviteCode,
		})
		if err != nil {
			writeServiceError(w, r, logger, err)
			return
		}

		setSessionCookie(w, sess, secureCookie)
		writeJSON(w, http.StatusCreated, toSessionResponse(sess))
	}
}

func loginHandler(svc Accounts, logger *zap.Logger, secureCookie bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req LoginRequest
		if !decodeJSON(w, r, &req) {
			return
		}

		sess, err := svc.Login(r.Context(), req.Email, req.Password)
		if err != nil {
			writeServiceError(w, r, logger, err)
			return
		}

		setSessionCookie(w, sess, secureCookie)
		writeJSON(w, http.StatusOK, toSessionResponse(sess))
	}
}

func logoutHandler(svc Accounts, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := svc.Logout(r.Context(), principal(r)); err != nil {
			writeServiceError(w, r, logger, err)
			return
		}

		http.SetCookie(w, &http.Cookie{Name: sessionCookie, Value: "", Path: "/", MaxAge: -1, HttpOnly: true})
		w.WriteHeader(http.StatusNoContent)
	}
}

func meHandler(svc Accounts, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, err := svc.Me(r.Context(), principal(r).UserID)
		if err != nil {
			writeServiceError(w, r, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, toUserResponse(*user))
	}
}

func updateProfileHandler(svc Accounts, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req ProfileRequest
		if !decodeJSON(w, r, &req) {
			return
		}

		user, err := svc.UpdatePhone(r.Context(), principal(r).UserID, req.Phone)
		if err != nil {
			writeServiceError(w, r, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, toUserResponse(*user))
	}
}

func changePasswordHandler(svc Accounts, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req PasswordRequest
		if !decodeJSON(w, r, &req) {
			return
		}

		if err := svc.ChangePassword(r.Context(), principal(r).UserID, req.CurrentPassword, req.NewPassword); err != nil {
			writeServiceError(w, r, logger, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// Catalog and booking

func listServicesHandler(svc Catalog, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := svc.ListServices(r.Context(), true)
		if err != nil {
			writeServiceError(w, r, logger, err)
			return
		}

		resp := make([]ServiceResponse, 0, len(list))
		for _, s := range list {
			resp = append(resp, toServiceResponse(s))
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func availabilityHandler(svc Availability, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		date, err := booking.ParseDate(chi.URLParam(r, "date"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_date", "date must be YYYY-MM-DD")
			return
		}

		serviceID, err := uuid.Parse(r.URL.Query().Get("serviceId"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_service_id", "serviceId must be a valid UUID")
			return
		}

		slots, err := svc.GetAvailability(r.Context(), date, serviceID)
		if err != nil {
			writeServiceError(w, r, logger, err)
			return
		}

		resp := make([]AvailabilityResponse, 0, len(slots))
		for _, s := range slots {
			resp = append(resp, AvailabilityResponse{SlotResponse: toSlotResponse(s.Slot), Taken: s.Taken})
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func createReservationHandler(svc Reservations, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CreateReservationRequest
		if !decodeJSON(w, r, &req) {
			return
		}

		res, err := svc.CreateReservation(r.Context(), principal(r), booking.CreateReservationInput{
			ServiceID: req.ServiceID,
			Date:      req.Date,
			Start:     req.Start,
			End:       req.End,
			Notes:     req.Notes,
		})
		if err != nil {
			writeServiceError(w, r, logger, err)
			return
		}
		writeJSON(w, http.StatusCreated, toReservationResponse(*res))
	}
}

func listMyReservationsHandler(svc Reservations, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := svc.ListForUser(r.Context(), principal(r).UserID)
		if err != nil {
			writeServiceError(w, r, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, toDetailResponses(list, false))
	}
}

// cancelReservationHandler serves both the owner route and the admin route;
// the principal decides what may be cancelled.
func cancelReservationHandler(svc Reservations, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := uuidParam(w, r, "id")
		if !ok {
			return
		}

		res, err := svc.CancelReservation(r.Context(), principal(r), id)
		if err != nil {
			writeServiceError(w, r, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, toReservationResponse(*res))
	}
}
