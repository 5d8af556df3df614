package service

import (
	"context"
	"database/sql"
	"fmt"

	"consulat-booking/internal/models"
	"consulat-booking/pkg/hhmm"
	"consulat-booking/pkg/response"
)

// bookingTarget names where an appointment lands. Capacity bookings carry a
// SlotID and inherit the slot's date and times during reserve; range bookings
// arrive with the times already set.
type bookingTarget struct {
	SlotID    *string
	ServiceID *string
	Date      string
	StartTime string
	EndTime   string
}

// conflictStrategy decides whether a target can take one more appointment and
// holds the seat inside the booking transaction. reserve may mutate the
// target (capacity mode fills it from the slot row). release undoes the
// reservation for cancel and reschedule.
type conflictStrategy interface {
	lockKey(orgID string, t bookingTarget) string
	initialStatus() models.AppointmentStatus
	reserve(ctx context.Context, tx *sql.Tx, s *Service, orgID, userID string, t *bookingTarget, excludeID *string) error
	release(ctx context.Context, tx *sql.Tx, s *Service, a *models.Appointment) error
}

// capacityStrategy books a seat in a fixed slot: blocked and full slots
// reject, each user holds at most one live seat per slot.
type capacityStrategy struct{}

func (capacityStrategy) lockKey(_ string, t bookingTarget) string {
	return fmt.Sprintf("slot:%s", *t.SlotID)
}

// Seats in a published slot are confirmed on booking; staff only step in for
// range bookings.
func (capacityStrategy) initialStatus() models.AppointmentStatus {
	return models.AppointmentConfirmed
}

func (capacityStrategy) reserve(ctx context.Context, tx *sql.Tx, s *Service, orgID, userID string, t *bookingTarget, excludeID *string) error {
	const op = "service.capacityStrategy.reserve"

	slot, err := s.store.GetSlotForUpdate(ctx, tx, *t.SlotID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if slot.OrgID != orgID {
		return fmt.Errorf("%s: %w", op, response.ErrNotFound)
	}
	if slot.IsBlocked {
		return fmt.Errorf("%s: %w", op, response.ErrSlotNotAvailable)
	}
	if slot.BookedCount >= slot.Capacity {
		return fmt.Errorf("%s: %w", op, response.ErrSlotFullyBooked)
	}

	dup, err := s.store.HasActiveForSlotUser(ctx, tx, slot.ID, userID, excludeID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if dup {
		return fmt.Errorf("%s: %w", op, response.ErrAppointmentExists)
	}

	ok, err := s.store.IncrementBooked(ctx, tx, slot.ID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if !ok {
		return fmt.Errorf("%s: %w", op, response.ErrSlotFullyBooked)
	}

	t.Date = slot.Date
	t.StartTime = slot.StartTime
	t.EndTime = slot.EndTime
	if t.ServiceID == nil {
		t.ServiceID = slot.ServiceID
	}

	return nil
}

func (capacityStrategy) release(ctx context.Context, tx *sql.Tx, s *Service, a *models.Appointment) error {
	const op = "service.capacityStrategy.release"

	if a.SlotID == nil {
		return nil
	}

	if err := s.store.DecrementBooked(ctx, tx, *a.SlotID); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// intervalOverlapStrategy is the legacy range mode: the org's day is one
// shared resource, and a booking takes any interval that does not intersect
// an existing non-cancelled one.
type intervalOverlapStrategy struct{}

func (intervalOverlapStrategy) lockKey(orgID string, t bookingTarget) string {
	return fmt.Sprintf("range:%s:%s", orgID, t.Date)
}

func (intervalOverlapStrategy) initialStatus() models.AppointmentStatus {
	return models.AppointmentScheduled
}

func (intervalOverlapStrategy) reserve(ctx context.Context, tx *sql.Tx, s *Service, orgID, _ string, t *bookingTarget, excludeID *string) error {
	const op = "service.intervalOverlapStrategy.reserve"

	if _, _, err := hhmm.Range(t.StartTime, t.EndTime); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	taken, err := s.store.HasOverlap(ctx, tx, orgID, t.Date, t.StartTime, t.EndTime, excludeID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if taken {
		return fmt.Errorf("%s: %w", op, response.ErrSlotNotAvailable)
	}

	return nil
}

func (intervalOverlapStrategy) release(context.Context, *sql.Tx, *Service, *models.Appointment) error {
	return nil
}

// strategyFor picks the mode an existing appointment was booked under.
func (s *Service) strategyFor(a *models.Appointment) conflictStrategy {
	if a.SlotID != nil {
		return s.capacity
	}
	return s.interval
}
