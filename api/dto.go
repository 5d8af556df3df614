package api

import (
	"time"

	"consulat-booking/internal/models"
)

type CreateSlotRequest struct {
	ActorID   string  `json:"actor_id"`
	OrgID     string  `json:"org_id"`
	ServiceID *string `json:"service_id,omitempty"`
	Date      string  `json:"date"`
	StartTime string  `json:"start_time"`
	EndTime   string  `json:"end_time"`
	Capacity  int     `json:"capacity"`
}

type CreateSlotsBulkRequest struct {
	ActorID string      `json:"actor_id"`
	OrgID   string      `json:"org_id"`
	Slots   []SlotInput `json:"slots"`
}

type SlotInput struct {
	ServiceID *string `json:"service_id,omitempty"`
	Date      string  `json:"date"`
	StartTime string  `json:"start_time"`
	EndTime   string  `json:"end_time"`
	Capacity  int     `json:"capacity"`
}

type GenerateSlotsRequest struct {
	ActorID         string   `json:"actor_id"`
	OrgID           string   `json:"org_id"`
	ServiceID       *string  `json:"service_id,omitempty"`
	Dates           []string `json:"dates"`
	StartTime       string   `json:"start_time"`
	EndTime         string   `json:"end_time"`
	DurationMinutes int      `json:"duration_minutes"`
	BreakMinutes    int      `json:"break_minutes"`
	Capacity        int      `json:"capacity"`
}

type BlockSlotRequest struct {
	ActorID string  `json:"actor_id"`
	Reason  *string `json:"reason,omitempty"`
}

type UnblockSlotRequest struct {
	ActorID string `json:"actor_id"`
}

type SlotResponse struct {
	ID             string  `json:"id"`
	OrgID          string  `json:"org_id"`
	ServiceID      *string `json:"service_id,omitempty"`
	Date           string  `json:"date"`
	StartTime      string  `json:"start_time"`
	EndTime        string  `json:"end_time"`
	Capacity       int     `json:"capacity"`
	BookedCount    int     `json:"booked_count"`
	RemainingSeats int     `json:"remaining_seats"`
	IsBlocked      bool    `json:"is_blocked"`
	BlockReason    *string `json:"block_reason,omitempty"`
}

func SlotFromModel(s *models.Slot) SlotResponse {
	remaining := s.Capacity - s.BookedCount
	if remaining < 0 {
		remaining = 0
	}

	return SlotResponse{
		ID:             s.ID,
		OrgID:          s.OrgID,
		ServiceID:      s.ServiceID,
		Date:           s.Date,
		StartTime:      s.StartTime,
		EndTime:        s.EndTime,
		Capacity:       s.Capacity,
		BookedCount:    s.BookedCount,
		RemainingSeats: remaining,
		IsBlocked:      s.IsBlocked,
		BlockReason:    s.BlockReason,
	}
}

func SlotsFromModels(slots []*models.Slot) []SlotResponse {
	out := make([]SlotResponse, len(slots))
	for i, s := range slots {
		out[i] = SlotFromModel(s)
	}
	return out
}

type BookAppointmentRequest struct {
	OrgID     string  `json:"org_id"`
	UserID    string  `json:"user_id"`
	SlotID    string  `json:"slot_id"`
	Notes     *string `json:"notes,omitempty"`
	RequestID *string `json:"request_id,omitempty"`
}

type BookRangeRequest struct {
	OrgID     string  `json:"org_id"`
	UserID    string  `json:"user_id"`
	Date      string  `json:"date"`
	StartTime string  `json:"start_time"`
	EndTime   string  `json:"end_time"`
	ServiceID *string `json:"service_id,omitempty"`
	Notes     *string `json:"notes,omitempty"`
	RequestID *string `json:"request_id,omitempty"`
}

type CancelAppointmentRequest struct {
	ActorID string  `json:"actor_id"`
	Reason  *string `json:"reason,omitempty"`
}

type ConfirmAppointmentRequest struct {
	ActorID string `json:"actor_id"`
}

type CompleteAppointmentRequest struct {
	ActorID string  `json:"actor_id"`
	Notes   *string `json:"notes,omitempty"`
}

type NoShowAppointmentRequest struct {
	ActorID string `json:"actor_id"`
}

type RescheduleAppointmentRequest struct {
	ActorID       string  `json:"actor_id"`
	AppointmentID string  `json:"appointment_id"`
	NewSlotID     *string `json:"new_slot_id,omitempty"`
	NewDate       string  `json:"new_date,omitempty"`
	NewStartTime  string  `json:"new_start_time,omitempty"`
	NewEndTime    string  `json:"new_end_time,omitempty"`
}

type AppointmentResponse struct {
	ID                 string     `json:"id"`
	OrgID              string     `json:"org_id"`
	UserID             string     `json:"user_id"`
	SlotID             *string    `json:"slot_id,omitempty"`
	ServiceID          *string    `json:"service_id,omitempty"`
	RequestID          *string    `json:"request_id,omitempty"`
	Date               string     `json:"date"`
	StartTime          string     `json:"start_time"`
	EndTime            string     `json:"end_time"`
	Status             string     `json:"status"`
	Notes              *string    `json:"notes,omitempty"`
	ConfirmedAt        *time.Time `json:"confirmed_at,omitempty"`
	CancelledAt        *time.Time `json:"cancelled_at,omitempty"`
	CancellationReason *string    `json:"cancellation_reason,omitempty"`
	CompletedAt        *time.Time `json:"completed_at,omitempty"`
	CreatedAt          time.Time  `json:"created_at"`
}

func AppointmentFromModel(a *models.Appointment) AppointmentResponse {
	return AppointmentResponse{
		ID:                 a.ID,
		OrgID:              a.OrgID,
		UserID:             a.UserID,
		SlotID:             a.SlotID,
		ServiceID:          a.ServiceID,
		RequestID:          a.RequestID,
		Date:               a.Date,
		StartTime:          a.StartTime,
		EndTime:            a.EndTime,
		Status:             string(a.Status),
		Notes:              a.Notes,
		ConfirmedAt:        a.ConfirmedAt,
		CancelledAt:        a.CancelledAt,
		CancellationReason: a.CancellationReason,
		CompletedAt:        a.CompletedAt,
		CreatedAt:          a.CreatedAt,
	}
}

func AppointmentsFromModels(appts []*models.Appointment) []AppointmentResponse {
	out := make([]AppointmentResponse, len(appts))
	for i, a := range appts {
		out[i] = AppointmentFromModel(a)
	}
	return out
}

type RangeWindowResponse struct {
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
}
