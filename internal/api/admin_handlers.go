package api

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hackgods/appointment-booking/internal/account"
	"github.com/hackgods/appointment-booking/internal/booking"
)

type Catalog interface {
	ListServices(ctx context.Context, activeOnly bool) ([]booking.Service, error)
	CreateService(ctx context.Context, in booking.ServiceInput) (*booking.Service, error)
	UpdateService(ctx context.Context, id uuid.UUID, in booking.ServiceInput) (*booking.Service, error)
	ListSlots(ctx context.Context, from, to *time.Time) ([]booking.Slot, error)
	CreateSlot(ctx context.Context, in booking.SlotInput) (*booking.Slot, error)
	SetSlotActive(ctx context.Context, id uuid.UUID, active bool) (*booking.Slot, error)
	DeleteSlot(ctx context.Context, id uuid.UUID) error
}

type Invites interface {
	Generate(ctx context.Context, in account.GenerateInviteInput) (*account.InviteCode, error)
	List(ctx context.Context) ([]account.InviteCode, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// optionalDate reads a YYYY-MM-DD query parameter. ok is false when a
// response has already been written.
func optionalDate(w http.ResponseWriter, r *http.Request, name string) (*time.Time, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, true
	}
	d, err := booking.ParseDate(raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_"+name, name+" must be YYYY-MM-DD")
		return nil, false
	}
	return &d, true
}

// Reservations

func adminListReservationsHandler(svc Reservations, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		date, ok := optionalDate(w, r, "date")
		if !ok {
			return
		}

		list, err := svc.ListAll(r.Context(), date)
		if err != nil {
			writeServiceError(w, r, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, toDetailResponses(list, true))
	}
}

func adminCompleteReservationHandler(svc Reservations, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := uuidParam(w, r, "id")
		if !ok {
			return
		}

		res, err := svc.CompleteReservation(r.Context(), id)
		if err != nil {
			writeServiceError(w, r, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, toReservationResponse(*res))
	}
}

func adminDeleteReservationHandler(svc Reservations, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := uuidParam(w, r, "id")
		if !ok {
			return
		}

		if err := svc.DeleteReservation(r.Context(), id); err != nil {
			writeServiceError(w, r, logger, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// Slots

func adminListSlotsHandler(svc Catalog, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		from, ok := optionalDate(w, r, "startDate")
		if !ok {
			return
		}
		to, ok := optionalDate(w, r, "endDate")
		if !ok {
			return
		}

		slots, err := svc.ListSlots(r.Context(), from, to)
		if err != nil {
			writeServiceError(w, r, logger, err)
			return
		}

		resp := make([]SlotResponse, 0, len(slots))
		for _, s := range slots {
			resp = append(resp, toSlotResponse(s))
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func adminCreateSlotHandler(svc Catalog, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req SlotRequest
		if !decodeJSON(w, r, &req) {
			return
		}

		slot, err := svc.CreateSlot(r.Context(), booking.SlotInput{
			Date:     req.Date,
			Start:    req.Start,
			End:      req.End,
			Location: req.Location,
		})
		if err != nil {
			writeServiceError(w, r, logger, err)
			return
		}
		writeJSON(w, http.StatusCreated, toSlotResponse(*slot))
	}
}

func adminUpdateSlotHandler(svc Catalog, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := uuidParam(w, r, "id")
		if !ok {
			return
		}

		var req SlotUpdateRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		if req.Active == nil {
			writeError(w, http.StatusBadRequest, "validation_error", "active is required")
			return
		}

		slot, err := svc.SetSlotActive(r.Context(), id, *req.Active)
		if err != nil {
			writeServiceError(w, r, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, toSlotResponse(*slot))
	}
}

func adminDeleteSlotHandler(svc Catalog, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := uuidParam(w, r, "id")
		if !ok {
			return
		}

		if err := svc.DeleteSlot(r.Context(), id); err != nil {
			writeServiceError(w, r, logger, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// Invite codes

func adminListInvitesHandler(svc Invites, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		codes, err := svc.List(r.Context())
		if err != nil {
			writeServiceError(w, r, logger, err)
			return
		}

		resp := make([]InviteCodeResponse, 0, len(codes))
		for _, c := range codes {
			resp = append(resp, toInviteResponse(c))
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func adminCreateInviteHandler(svc Invites, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req InviteCodeRequest
		if !decodeJSON(w, r, &req) {
			return
		}

		code, err := svc.Generate(r.Context(), account.GenerateInviteInput{Prefix: req.Prefix, MaxUses: req.MaxUses})
		if err != nil {
			writeServiceError(w, r, logger, err)
			return
		}
		writeJSON(w, http.StatusCreated, toInviteResponse(*code))
	}
}

func adminDeleteInviteHandler(svc Invites, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := uuidParam(w, r, "id")
		if !ok {
			return
		}

		if err := svc.Delete(r.Context(), id); err != nil {
			writeServiceError(w, r, logger, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// Services

func serviceInput(req ServiceRequest) booking.ServiceInput {
	return booking.ServiceInput{
		Name:            req.Name,
		Price:           req.Price,
		DurationMinutes: req.DurationMinutes,
		Active:          req.Active,
	}
}

func adminCreateServiceHandler(svc Catalog, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req ServiceRequest
		if !decodeJSON(w, r, &req) {
			return
		}

		created, err := svc.CreateService(r.Context(), serviceInput(req))
		if err != nil {
			writeServiceError(w, r, logger, err)
			return
		}
		writeJSON(w, http.StatusCreated, toServiceResponse(*created))
	}
}

func adminUpdateServiceHandler(svc Catalog, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := uuidParam(w, r, "id")
		if !ok {
			return
		}

		var req ServiceRequest
		if !decodeJSON(w, r, &req) {
			return
		}

		updated, err := svc.UpdateService(r.Context(), id, serviceInput(req))
		if err != nil {
			writeServiceError(w, r, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, toServiceResponse(*updated))
	}
}

func adminListServicesHandler(svc Catalog, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := svc.ListServices(r.Context(), false)
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
