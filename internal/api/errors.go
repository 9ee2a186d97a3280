package api

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/hackgods/appointment-booking/internal/account"
	"github.com/hackgods/appointment-booking/internal/booking"
)

// writeServiceError maps domain errors to HTTP responses. Anything unknown is
// an infrastructure failure: logged in full, reported generically.
func writeServiceError(w http.ResponseWriter, r *http.Request, logger *zap.Logger, err error) {
	var bookingValidation *booking.ValidationError
	var accountValidation *account.ValidationError

	switch {
	case errors.As(err, &bookingValidation), errors.As(err, &accountValidation):
		writeError(w, http.StatusBadRequest, "validation_error", err.Error())

	case errors.Is(err, account.ErrInviteInvalid):
		writeError(w, http.StatusBadRequest, "invite_invalid", err.Error())
	case errors.Is(err, account.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, "invalid_credentials", err.Error())

	case errors.Is(err, booking.ErrServiceNotFound):
		writeError(w, http.StatusNotFound, "service_not_found", err.Error())
	case errors.Is(err, booking.ErrSlotNotFound):
		writeError(w, http.StatusNotFound, "slot_not_found", err.Error())
	case errors.Is(err, booking.ErrReservationNotFound):
		writeError(w, http.StatusNotFound, "reservation_not_found", err.Error())
	case errors.Is(err, booking.ErrUnknownReference):
		writeError(w, http.StatusNotFound, "unknown_reference", err.Error())
	case errors.Is(err, account.ErrUserNotFound):
		writeError(w, http.StatusNotFound, "user_not_found", err.Error())
	case errors.Is(err, account.ErrInviteNotFound):
		writeError(w, http.StatusNotFound, "invite_not_found", err.Error())

	case errors.Is(err, booking.ErrSlotAlreadyReserved):
		writeError(w, http.StatusConflict, "slot_already_reserved", err.Error())
	case errors.Is(err, booking.ErrSlotExists):
		writeError(w, http.StatusConflict, "slot_exists", err.Error())
	case errors.Is(err, booking.ErrInvalidStatusTransition):
		writeError(w, http.StatusConflict, "invalid_status_transition", err.Error())
	case errors.Is(err, account.ErrEmailTaken):
		writeError(w, http.StatusConflict, "email_taken", err.Error())
	case errors.Is(err, account.ErrInviteExhausted):
		writeError(w, http.StatusConflict, "invite_exhausted", err.Error())
	case errors.Is(err, account.ErrInviteCodeExists):
		writeError(w, http.StatusConflict, "invite_code_exists", err.Error())

	default:
		logger.Error("request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.String("request_id", GetRequestID(r.Context())),
			zap.Error(err),
		)
		writeError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}
