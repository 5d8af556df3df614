package service

import (
	"context"
	"database/sql"
	"fmt"
	"sort"

	"consulat-booking/internal/events"
	"consulat-booking/internal/models"
	"consulat-booking/internal/storage/postgres"
	"consulat-booking/pkg/response"
)

type BookSlotParams struct {
	OrgID          string
	UserID         string
	SlotID         string
	Notes          *string
	RequestID      *string
	IdempotencyKey string
}

// BookAppointment takes one seat in a capacity slot.
func (s *Service) BookAppointment(ctx context.Context, p BookSlotParams) (*models.Appointment, error) {
	const op = "service.BookAppointment"

	if p.OrgID == "" || p.UserID == "" || p.SlotID == "" {
		return nil, fmt.Errorf("%s: %w", op, response.ErrBadRequest)
	}

	target := bookingTarget{SlotID: &p.SlotID}

	appt, err := s.book(ctx, s.capacity, p.OrgID, p.UserID, target, p.Notes, p.RequestID, p.IdempotencyKey)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return appt, nil
}

// book is the shared engine behind both booking modes: idempotency replay,
// then a distributed lock around a retried transaction that reserves the
// target and writes the appointment.
func (s *Service) book(ctx context.Context, strat conflictStrategy, orgID, userID string, target bookingTarget, notes, requestID *string, idemKey string) (*models.Appointment, error) {
	if idemKey != "" {
		id, err := s.idem.Get(ctx, idemKey)
		if err != nil {
			return nil, err
		}
		if id != "" {
			prior, err := s.store.GetAppointment(ctx, id)
			if err != nil {
				return nil, err
			}
			// A replay must come from the same citizen booking the same
			// target; a reused key from anyone else is a conflict, not a
			// window into another appointment.
			if prior.UserID != userID || prior.OrgID != orgID || !sameTarget(prior, target) {
				return nil, response.ErrConflict
			}
			return prior, nil
		}
	}

	key := strat.lockKey(orgID, target)
	acquired, err := s.locker.Lock(ctx, key, s.cfg.LockTTL)
	if err != nil {
		return nil, err
	}
	if !acquired {
		return nil, response.ErrLocked
	}
	defer func() {
		if err := s.locker.Unlock(ctx, key); err != nil {
			s.log.Warn("failed to release lock", "key", key)
		}
	}()

	var appt *models.Appointment
	err = s.withTxRetry(ctx, func(tx *sql.Tx) error {
		if err := strat.reserve(ctx, tx, s, orgID, userID, &target, nil); err != nil {
			return err
		}

		now := s.clk.Now()
		appt = &models.Appointment{
			OrgID:     orgID,
			UserID:    userID,
			SlotID:    target.SlotID,
			ServiceID: target.ServiceID,
			RequestID: requestID,
			Date:      target.Date,
			StartTime: target.StartTime,
			EndTime:   target.EndTime,
			Status:    strat.initialStatus(),
			Notes:     notes,
			CreatedAt: now,
			UpdatedAt: now,
		}

		_, err := s.store.CreateAppointment(ctx, tx, appt)
		return err
	})
	if err != nil {
		return nil, err
	}

	if idemKey != "" {
		if err := s.idem.Set(ctx, idemKey, appt.ID, s.cfg.IdempotencyTTL); err != nil {
			s.log.Warn("failed to store idempotency key", "key", idemKey)
		}
	}

	s.publish(ctx, events.Event{
		Type:          events.TypeBooked,
		AppointmentID: appt.ID,
		OrgID:         appt.OrgID,
		UserID:        appt.UserID,
		SlotID:        appt.SlotID,
		Date:          appt.Date,
		StartTime:     appt.StartTime,
	})

	return appt, nil
}

// sameTarget reports whether an existing appointment sits on the requested
// booking target: the same slot in capacity mode, the same date and times in
// range mode.
func sameTarget(a *models.Appointment, t bookingTarget) bool {
	if t.SlotID != nil {
		return a.SlotID != nil && *a.SlotID == *t.SlotID
	}
	return a.SlotID == nil && a.Date == t.Date && a.StartTime == t.StartTime && a.EndTime == t.EndTime
}

// canActOn allows the appointment owner or an org agent.
func (s *Service) canActOn(ctx context.Context, actorID string, a *models.Appointment) error {
	if a.UserID == actorID {
		return nil
	}
	return s.requireCalendar(ctx, actorID, a.OrgID)
}

// CancelAppointment releases the seat exactly once: cancelling an already
// cancelled appointment reports a conflict instead of draining the counter
// again.
func (s *Service) CancelAppointment(ctx context.Context, actorID, apptID string, reason *string) (*models.Appointment, error) {
	const op = "service.CancelAppointment"

	appt, err := s.store.GetAppointment(ctx, apptID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := s.canActOn(ctx, actorID, appt); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	err = s.withTxRetry(ctx, func(tx *sql.Tx) error {
		current, err := s.store.GetAppointmentForUpdate(ctx, tx, apptID)
		if err != nil {
			return err
		}

		switch current.Status {
		case models.AppointmentCancelled:
			return response.ErrAppointmentCancelled
		case models.AppointmentCompleted, models.AppointmentNoShow:
			// A no-show seat stays consumed; cancelling it would hand the
			// spent capacity back.
			return response.ErrConflict
		}

		changed, err := s.store.SetCancelled(ctx, tx, apptID, reason, s.clk.Now())
		if err != nil {
			return err
		}
		if !changed {
			return response.ErrAppointmentCancelled
		}

		return s.strategyFor(current).release(ctx, tx, s, current)
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	s.publish(ctx, events.Event{
		Type:          events.TypeCancelled,
		AppointmentID: appt.ID,
		OrgID:         appt.OrgID,
		UserID:        appt.UserID,
		SlotID:        appt.SlotID,
		Date:          appt.Date,
		StartTime:     appt.StartTime,
	})

	return s.store.GetAppointment(ctx, apptID)
}

// ConfirmAppointment moves a scheduled appointment to confirmed. Staff only.
func (s *Service) ConfirmAppointment(ctx context.Context, actorID, apptID string) (*models.Appointment, error) {
	const op = "service.ConfirmAppointment"

	return s.transition(ctx, op, actorID, apptID, events.TypeConfirmed, func(ctx context.Context) (bool, error) {
		return s.store.SetConfirmed(ctx, apptID, s.clk.Now())
	})
}

// CompleteAppointment closes out a confirmed appointment after the visit.
func (s *Service) CompleteAppointment(ctx context.Context, actorID, apptID string, notes *string) (*models.Appointment, error) {
	const op = "service.CompleteAppointment"

	return s.transition(ctx, op, actorID, apptID, events.TypeCompleted, func(ctx context.Context) (bool, error) {
		return s.store.SetCompleted(ctx, apptID, notes, s.clk.Now())
	})
}

// MarkNoShow records that the citizen never turned up. The seat is not
// released; the slot has passed.
func (s *Service) MarkNoShow(ctx context.Context, actorID, apptID string) (*models.Appointment, error) {
	const op = "service.MarkNoShow"

	return s.transition(ctx, op, actorID, apptID, events.TypeNoShow, func(ctx context.Context) (bool, error) {
		return s.store.SetNoShow(ctx, apptID, s.clk.Now())
	})
}

// transition runs a staff-only guarded status update. A guard that matches no
// row means the appointment is in the wrong state for the move.
func (s *Service) transition(ctx context.Context, op, actorID, apptID, eventType string, apply func(ctx context.Context) (bool, error)) (*models.Appointment, error) {
	appt, err := s.store.GetAppointment(ctx, apptID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := s.requireCalendar(ctx, actorID, appt.OrgID); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	changed, err := apply(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if !changed {
		if appt.Status == models.AppointmentCancelled {
			return nil, fmt.Errorf("%s: %w", op, response.ErrAppointmentCancelled)
		}
		return nil, fmt.Errorf("%s: %w", op, response.ErrConflict)
	}

	s.publish(ctx, events.Event{
		Type:          eventType,
		AppointmentID: appt.ID,
		OrgID:         appt.OrgID,
		UserID:        appt.UserID,
		SlotID:        appt.SlotID,
		Date:          appt.Date,
		StartTime:     appt.StartTime,
	})

	return s.store.GetAppointment(ctx, apptID)
}

type RescheduleParams struct {
	AppointmentID string
	// NewSlotID moves the appointment into a capacity slot.
	NewSlotID *string
	// NewDate/NewStartTime/NewEndTime move it to a legacy range target.
	NewDate      string
	NewStartTime string
	NewEndTime   string
}

// RescheduleAppointment moves a live appointment to a new target. The new
// seat is reserved before the old one is released, so a failed move leaves
// the original booking untouched.
func (s *Service) RescheduleAppointment(ctx context.Context, actorID string, p RescheduleParams) (*models.Appointment, error) {
	const op = "service.RescheduleAppointment"

	appt, err := s.store.GetAppointment(ctx, p.AppointmentID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := s.canActOn(ctx, actorID, appt); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if appt.Status == models.AppointmentCancelled || appt.Status == models.AppointmentCompleted {
		return nil, fmt.Errorf("%s: %w", op, response.ErrCannotReschedule)
	}

	var newStrat conflictStrategy
	target := bookingTarget{}
	if p.NewSlotID != nil {
		newStrat = s.capacity
		target.SlotID = p.NewSlotID
	} else {
		if p.NewDate == "" {
			return nil, fmt.Errorf("%s: %w", op, response.ErrBadRequest)
		}
		if err := s.checkServiceDay(p.NewStartTime, p.NewEndTime); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		newStrat = s.interval
		target.Date = p.NewDate
		target.StartTime = p.NewStartTime
		target.EndTime = p.NewEndTime
		target.ServiceID = appt.ServiceID
	}

	oldStrat := s.strategyFor(appt)

	// Both targets lock in a fixed order so two crossing reschedules cannot
	// deadlock on each other's keys.
	keys := []string{newStrat.lockKey(appt.OrgID, target), oldStrat.lockKey(appt.OrgID, bookingTarget{
		SlotID: appt.SlotID,
		Date:   appt.Date,
	})}
	sort.Strings(keys)
	if keys[0] == keys[1] {
		keys = keys[:1]
	}

	for i, key := range keys {
		acquired, err := s.locker.Lock(ctx, key, s.cfg.LockTTL)
		if err != nil {
			s.unlockAll(ctx, keys[:i])
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		if !acquired {
			s.unlockAll(ctx, keys[:i])
			return nil, fmt.Errorf("%s: %w", op, response.ErrLocked)
		}
	}
	defer s.unlockAll(ctx, keys)

	err = s.withTxRetry(ctx, func(tx *sql.Tx) error {
		current, err := s.store.GetAppointmentForUpdate(ctx, tx, p.AppointmentID)
		if err != nil {
			return err
		}
		if current.Status == models.AppointmentCancelled || current.Status == models.AppointmentCompleted {
			return response.ErrCannotReschedule
		}

		t := target
		if err := newStrat.reserve(ctx, tx, s, current.OrgID, current.UserID, &t, &current.ID); err != nil {
			return err
		}

		if current.Status.Active() {
			if err := oldStrat.release(ctx, tx, s, current); err != nil {
				return err
			}
		}

		return s.store.Reschedule(ctx, tx, current.ID, t.SlotID, t.Date, t.StartTime, t.EndTime, s.clk.Now())
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	moved, err := s.store.GetAppointment(ctx, p.AppointmentID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	s.publish(ctx, events.Event{
		Type:          events.TypeRescheduled,
		AppointmentID: moved.ID,
		OrgID:         moved.OrgID,
		UserID:        moved.UserID,
		SlotID:        moved.SlotID,
		Date:          moved.Date,
		StartTime:     moved.StartTime,
	})

	return moved, nil
}

func (s *Service) unlockAll(ctx context.Context, keys []string) {
	for _, key := range keys {
		if err := s.locker.Unlock(ctx, key); err != nil {
			s.log.Warn("failed to release lock", "key", key)
		}
	}
}

// GetAppointment returns one appointment to its owner or an org agent.
func (s *Service) GetAppointment(ctx context.Context, actorID, apptID string) (*models.Appointment, error) {
	const op = "service.GetAppointment"

	appt, err := s.store.GetAppointment(ctx, apptID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := s.canActOn(ctx, actorID, appt); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return appt, nil
}

func (s *Service) ListMyAppointments(ctx context.Context, userID string, status *models.AppointmentStatus) ([]*models.Appointment, error) {
	const op = "service.ListMyAppointments"

	appts, err := s.store.ListAppointments(ctx, postgres.AppointmentQuery{
		UserID: &userID,
		Status: status,
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return appts, nil
}

type OrgAppointmentFilter struct {
	OrgID  string
	Status *models.AppointmentStatus
	Date   *string
	Month  *string
}

// ListOrgAppointments is the staff backlog, newest first. An unscoped query
// is capped so one org cannot pull its whole history in a single call.
func (s *Service) ListOrgAppointments(ctx context.Context, actorID string, f OrgAppointmentFilter) ([]*models.Appointment, error) {
	const op = "service.ListOrgAppointments"

	if f.OrgID == "" {
		return nil, fmt.Errorf("%s: %w", op, response.ErrBadRequest)
	}
	if err := s.requireCalendar(ctx, actorID, f.OrgID); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	q := postgres.AppointmentQuery{
		OrgID:  &f.OrgID,
		Status: f.Status,
		Date:   f.Date,
		Month:  f.Month,
	}
	if f.Date == nil && f.Month == nil {
		q.Limit = maxUnscopedListing
	}

	appts, err := s.store.ListAppointments(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return appts, nil
}

// ListDaySchedule is the front-desk view: the org's appointments for one day
// in visit order.
func (s *Service) ListDaySchedule(ctx context.Context, actorID, orgID, date string) ([]*models.Appointment, error) {
	const op = "service.ListDaySchedule"

	if orgID == "" || date == "" {
		return nil, fmt.Errorf("%s: %w", op, response.ErrBadRequest)
	}
	if err := s.requireCalendar(ctx, actorID, orgID); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	appts, err := s.store.ListAppointments(ctx, postgres.AppointmentQuery{
		OrgID:     &orgID,
		Date:      &date,
		Ascending: true,
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return appts, nil
}
