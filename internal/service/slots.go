package service

import (
	"context"
	"fmt"
	"time"

	"consulat-booking/internal/models"
	"consulat-booking/internal/storage/postgres"
	"consulat-booking/pkg/hhmm"
	"consulat-booking/pkg/response"
)

type CreateSlotParams struct {
	OrgID     string
	ServiceID *string
	Date      string
	StartTime string
	EndTime   string
	Capacity  int
}

func validateSlotParams(p CreateSlotParams) error {
	if p.OrgID == "" || p.Date == "" {
		return response.ErrBadRequest
	}
	if p.Capacity < 1 {
		return fmt.Errorf("capacity must be at least 1: %w", response.ErrBadRequest)
	}
	if _, _, err := hhmm.Range(p.StartTime, p.EndTime); err != nil {
		return err
	}

	return nil
}

func (s *Service) CreateSlot(ctx context.Context, actorID string, p CreateSlotParams) (*models.Slot, error) {
	const op = "service.CreateSlot"

	if err := validateSlotParams(p); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := s.requireCalendar(ctx, actorID, p.OrgID); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	slot := &models.Slot{
		OrgID:     p.OrgID,
		ServiceID: p.ServiceID,
		Date:      p.Date,
		StartTime: p.StartTime,
		EndTime:   p.EndTime,
		Capacity:  p.Capacity,
		CreatedAt: s.clk.Now(),
	}
	slot.UpdatedAt = slot.CreatedAt

	if _, err := s.store.CreateSlot(ctx, slot); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return slot, nil
}

// CreateSlotsBulk validates the whole batch up front, then inserts one by
// one. On a mid-batch storage failure the slots already created are returned
// alongside the error.
func (s *Service) CreateSlotsBulk(ctx context.Context, actorID, orgID string, batch []CreateSlotParams) ([]*models.Slot, error) {
	const op = "service.CreateSlotsBulk"

	if len(batch) == 0 {
		return nil, fmt.Errorf("%s: empty batch: %w", op, response.ErrBadRequest)
	}
	for _, p := range batch {
		if p.OrgID != orgID {
			return nil, fmt.Errorf("%s: org mismatch in batch: %w", op, response.ErrBadRequest)
		}
		if err := validateSlotParams(p); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
	}
	if err := s.requireCalendar(ctx, actorID, orgID); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	created := make([]*models.Slot, 0, len(batch))
	for _, p := range batch {
		slot := &models.Slot{
			OrgID:     p.OrgID,
			ServiceID: p.ServiceID,
			Date:      p.Date,
			StartTime: p.StartTime,
			EndTime:   p.EndTime,
			Capacity:  p.Capacity,
			CreatedAt: s.clk.Now(),
		}
		slot.UpdatedAt = slot.CreatedAt

		if _, err := s.store.CreateSlot(ctx, slot); err != nil {
			return created, fmt.Errorf("%s: %w", op, err)
		}
		created = append(created, slot)
	}

	return created, nil
}

type GenerateParams struct {
	OrgID           string
	ServiceID       *string
	Dates           []string
	StartTime       string
	EndTime         string
	DurationMinutes int
	BreakMinutes    int
	Capacity        int
}

var allowedDurations = map[int]bool{15: true, 30: true, 45: true, 60: true}

// GenerateSlots lays a slot grid over each requested date: slots of the given
// duration, separated by the break, packed from the day start for as long as
// a whole slot still fits before the day end.
func (s *Service) GenerateSlots(ctx context.Context, actorID string, p GenerateParams) ([]*models.Slot, error) {
	const op = "service.GenerateSlots"

	if p.OrgID == "" || len(p.Dates) == 0 {
		return nil, fmt.Errorf("%s: %w", op, response.ErrBadRequest)
	}
	if !allowedDurations[p.DurationMinutes] {
		return nil, fmt.Errorf("%s: duration must be 15, 30, 45 or 60 minutes: %w", op, response.ErrBadRequest)
	}
	if p.BreakMinutes < 0 {
		return nil, fmt.Errorf("%s: %w", op, response.ErrBadRequest)
	}
	if p.Capacity < 1 {
		return nil, fmt.Errorf("%s: %w", op, response.ErrBadRequest)
	}

	dayStart, dayEnd, err := hhmm.Range(p.StartTime, p.EndTime)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if err := s.requireCalendar(ctx, actorID, p.OrgID); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	var created []*models.Slot
	for _, date := range p.Dates {
		for cursor := dayStart; cursor+p.DurationMinutes <= dayEnd; cursor += p.DurationMinutes + p.BreakMinutes {
			slot := &models.Slot{
				OrgID:     p.OrgID,
				ServiceID: p.ServiceID,
				Date:      date,
				StartTime: hhmm.ToHHMM(cursor),
				EndTime:   hhmm.ToHHMM(cursor + p.DurationMinutes),
				Capacity:  p.Capacity,
				CreatedAt: s.clk.Now(),
			}
			slot.UpdatedAt = slot.CreatedAt

			if _, err := s.store.CreateSlot(ctx, slot); err != nil {
				return created, fmt.Errorf("%s: %w", op, err)
			}
			created = append(created, slot)
		}
	}

	return created, nil
}

type SlotFilter struct {
	OrgID     string
	ServiceID *string
	Date      *string
	Month     *string
}

// ListSlots is the staff calendar view: every slot, blocked and full ones
// included.
func (s *Service) ListSlots(ctx context.Context, actorID string, f SlotFilter) ([]*models.Slot, error) {
	const op = "service.ListSlots"

	if f.OrgID == "" {
		return nil, fmt.Errorf("%s: %w", op, response.ErrBadRequest)
	}
	if err := s.requireCalendar(ctx, actorID, f.OrgID); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	q := postgres.SlotQuery{
		OrgID:     f.OrgID,
		ServiceID: f.ServiceID,
		Date:      f.Date,
		Month:     f.Month,
	}
	if f.Date == nil && f.Month == nil {
		q.Limit = maxUnscopedListing
	}

	slots, err := s.store.ListSlots(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return slots, nil
}

// ListAvailableSlots is the public availability query. Without a date or
// month scope it falls back to a rolling window starting today.
func (s *Service) ListAvailableSlots(ctx context.Context, f SlotFilter) ([]*models.Slot, error) {
	const op = "service.ListAvailableSlots"

	if f.OrgID == "" {
		return nil, fmt.Errorf("%s: %w", op, response.ErrBadRequest)
	}

	q := postgres.SlotQuery{
		OrgID:         f.OrgID,
		ServiceID:     f.ServiceID,
		Date:          f.Date,
		Month:         f.Month,
		AvailableOnly: true,
	}
	if f.Date == nil && f.Month == nil {
		from := s.clk.Now().Format(time.DateOnly)
		to := s.clk.Now().AddDate(0, 0, s.cfg.AvailabilityWindowDays).Format(time.DateOnly)
		q.FromDate = &from
		q.ToDate = &to
	}

	slots, err := s.store.ListSlots(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return slots, nil
}

// ListAvailableDates collapses the availability query to the distinct dates
// that still have an open seat. Month is required so the calendar widget asks
// for one page at a time.
func (s *Service) ListAvailableDates(ctx context.Context, orgID string, serviceID *string, month string) ([]string, error) {
	const op = "service.ListAvailableDates"

	if orgID == "" || month == "" {
		return nil, fmt.Errorf("%s: %w", op, response.ErrBadRequest)
	}

	slots, err := s.store.ListSlots(ctx, postgres.SlotQuery{
		OrgID:         orgID,
		ServiceID:     serviceID,
		Month:         &month,
		AvailableOnly: true,
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	dates := make([]string, 0, len(slots))
	seen := make(map[string]bool, len(slots))
	for _, slot := range slots {
		if !seen[slot.Date] {
			seen[slot.Date] = true
			dates = append(dates, slot.Date)
		}
	}

	return dates, nil
}

// BlockSlot takes a slot out of the availability feed. Existing appointments
// keep their seats; only new bookings are turned away.
func (s *Service) BlockSlot(ctx context.Context, actorID, slotID string, reason *string) error {
	const op = "service.BlockSlot"

	slot, err := s.store.GetSlot(ctx, slotID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := s.requireCalendar(ctx, actorID, slot.OrgID); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := s.store.SetSlotBlocked(ctx, slotID, true, reason); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (s *Service) UnblockSlot(ctx context.Context, actorID, slotID string) error {
	const op = "service.UnblockSlot"

	slot, err := s.store.GetSlot(ctx, slotID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := s.requireCalendar(ctx, actorID, slot.OrgID); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := s.store.SetSlotBlocked(ctx, slotID, false, nil); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// DeleteSlot removes an empty slot. A slot with live bookings refuses; cancel
// or reschedule the appointments first.
func (s *Service) DeleteSlot(ctx context.Context, actorID, slotID string) error {
	const op = "service.DeleteSlot"

	slot, err := s.store.GetSlot(ctx, slotID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := s.requireCalendar(ctx, actorID, slot.OrgID); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := s.store.DeleteSlot(ctx, slotID); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}
