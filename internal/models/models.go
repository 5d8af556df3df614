package models

import "time"

type AppointmentStatus string

const (
	AppointmentScheduled AppointmentStatus = "scheduled"
	AppointmentConfirmed AppointmentStatus = "confirmed"
	AppointmentCancelled AppointmentStatus = "cancelled"
	AppointmentCompleted AppointmentStatus = "completed"
	AppointmentNoShow    AppointmentStatus = "no_show"
)

// Active reports whether the status still holds a seat.
func (s AppointmentStatus) Active() bool {
	return s != AppointmentCancelled
}

// Terminal statuses never transition further; a cancelled appointment may only
// be revived through an explicit reschedule.
func (s AppointmentStatus) Terminal() bool {
	return s == AppointmentCancelled || s == AppointmentCompleted || s == AppointmentNoShow
}

type Slot struct {
	ID          string     `db:"id"`
	OrgID       string     `db:"org_id"`
	ServiceID   *string    `db:"service_id"`
	Date        string     `db:"slot_date"`
	StartTime   string     `db:"start_time"`
	EndTime     string     `db:"end_time"`
	Capacity    int        `db:"capacity"`
	BookedCount int        `db:"booked_count"`
	IsBlocked   bool       `db:"is_blocked"`
	BlockReason *string    `db:"block_reason"`
	CreatedAt   time.Time  `db:"created_at"`
	UpdatedAt   time.Time  `db:"updated_at"`
}

type Appointment struct {
	ID                 string            `db:"id"`
	OrgID              string            `db:"org_id"`
	UserID             string            `db:"user_id"`
	SlotID             *string           `db:"slot_id"`
	ServiceID          *string           `db:"service_id"`
	RequestID          *string           `db:"request_id"`
	Date               string            `db:"appt_date"`
	StartTime          string            `db:"start_time"`
	EndTime            string            `db:"end_time"`
	Status             AppointmentStatus `db:"status"`
	Notes              *string           `db:"notes"`
	ConfirmedAt        *time.Time        `db:"confirmed_at"`
	CancelledAt        *time.Time        `db:"cancelled_at"`
	CancellationReason *string           `db:"cancellation_reason"`
	CompletedAt        *time.Time        `db:"completed_at"`
	CreatedAt          time.Time         `db:"created_at"`
	UpdatedAt          time.Time         `db:"updated_at"`
}
