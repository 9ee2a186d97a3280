package api

import (
	"time"

	"github.com/google/uuid"

	"github.com/hackgods/appointment-booking/internal/account"
	"github.com/hackgods/appointment-booking/internal/booking"
)

// Requests

type RegisterRequest struct {
	Email      string `json:"email"`
	Password   string `json:"password"`
	Phone      string `json:"phone"`
	InviteCode string `json:"inviteCode"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type ProfileRequest struct {
	Phone string `json:"phone"`
}

type PasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

type CreateReservationRequest struct {
	ServiceID string `json:"serviceId"`
	Date      string `json:"date"`
	Start     string `json:"start"`
	End       string `json:"end"`
	Notes     string `json:"notes"`
}

type SlotRequest struct {
	Date     string `json:"date"`
	Start    string `json:"start"`
	End      string `json:"end"`
	Location string `json:"location"`
}

type SlotUpdateRequest struct {
	Active *bool `json:"active"`
}

type InviteCodeRequest struct {
	Prefix  string `json:"prefix"`
	MaxUses int    `json:"maxUses"`
}

type ServiceRequest struct {
	Name            string  `json:"name"`
	Price           float64 `json:"price"`
	DurationMinutes int     `json:"durationMinutes"`
	Active          *bool   `json:"active"`
}

// Responses

type UserResponse struct {
	ID        uuid.UUID `json:"id"`
	Email     string    `json:"email"`
	Phone     *string   `json:"phone,omitempty"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"createdAt"`
}

type SessionResponse struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expiresAt"`
	User      UserResponse `json:"user"`
}

type ServiceResponse struct {
	ID              uuid.UUID `json:"id"`
	Name            string    `json:"name"`
	Price           float64   `json:"price"`
	DurationMinutes int       `json:"durationMinutes"`
	Active          bool      `json:"active"`
}

type SlotResponse struct {
	ID       uuid.UUID `json:"id"`
	Date     string    `json:"date"`
	Start    string    `json:"start"`
	End      string    `json:"end"`
	Location *string   `json:"location,omitempty"`
	Active   bool      `json:"active"`
}

type AvailabilityResponse struct {
	SlotResponse
	Taken bool `json:"taken"`
}

type ReservationResponse struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"userId"`
	ServiceID uuid.UUID `json:"serviceId"`
	Date      string    `json:"date"`
	Start     string    `json:"start"`
	End       string    `json:"end"`
	Status    string    `json:"status"`
	Notes     *string   `json:"notes,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

type ReservationDetailResponse struct {
	ReservationResponse
	ServiceName  string  `json:"serviceName"`
	ServicePrice float64 `json:"servicePrice"`
	UserEmail    string  `json:"userEmail,omitempty"`
	UserPhone    *string `json:"userPhone,omitempty"`
	Location     *string `json:"location,omitempty"`
}

type InviteCodeResponse struct {
	ID        uuid.UUID `json:"id"`
	Code      string    `json:"code"`
	MaxUses   int       `json:"maxUses"`
	UsedCount int       `json:"usedCount"`
	CreatedAt time.Time `json:"createdAt"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// Mapping

func toUserResponse(u account.User) UserResponse {
	return UserResponse{
		ID:        u.ID,
		Email:     u.Email,
		Phone:     u.Phone,
		Role:      string(u.Role),
		CreatedAt: u.CreatedAt,
	}
}

func toSessionResponse(s *account.Session) SessionResponse {
	return SessionResponse{
		Token:     s.Token,
		ExpiresAt: s.ExpiresAt,
		User:      toUserResponse(s.User),
	}
}

func toServiceResponse(s booking.Service) ServiceResponse {
	return ServiceResponse{
		ID:              s.ID,
		Name:            s.Name,
		Price:           s.Price,
		DurationMinutes: s.DurationMinutes,
		Active:          s.Active,
	}
}

func toSlotResponse(s booking.Slot) SlotResponse {
	return SlotResponse{
		ID:       s.ID,
		Date:     booking.FormatDate(s.Date),
		Start:    s.Start.String(),
		End:      s.End.String(),
		Location: s.Location,
		Active:   s.Active,
	}
}

func toReservationResponse(r booking.Reservation) ReservationResponse {
	return ReservationResponse{
		ID:        r.ID,
		UserID:    r.UserID,
		ServiceID: r.ServiceID,
		Date:      booking.FormatDate(r.Date),
		Start:     r.Start.String(),
		End:       r.End.String(),
		Status:    string(r.Status),
		Notes:     r.Notes,
		CreatedAt: r.CreatedAt,
	}
}

func toDetailResponses(list []booking.ReservationDetail, withUser bool) []ReservationDetailResponse {
	out := make([]ReservationDetailResponse, 0, len(list))
	for _, d := range list {
		resp := ReservationDetailResponse{
			ReservationResponse: toReservationResponse(d.Reservation),
			ServiceName:         d.ServiceName,
			ServicePrice:        d.ServicePrice,
			Location:            d.Location,
		}
		if withUser {
			resp.UserEmail = d.UserEmail
			resp.UserPhone = d.UserPhone
		}
		out = append(out, resp)
	}
	return out
}

func toInviteResponse(c account.InviteCode) InviteCodeResponse {
	return InviteCodeResponse{
		ID:        c.ID,
		Code:      c.Code,
		MaxUses:   c.MaxUses,
		UsedCount: c.UsedCount,
		CreatedAt: c.CreatedAt,
	}
}
