package service

import (
	"context"
	"fmt"

	"consulat-booking/internal/models"
	"consulat-booking/internal/storage/postgres"
	"consulat-booking/pkg/hhmm"
	"consulat-booking/pkg/response"
)

type BookRangeParams struct {
	OrgID          string
	UserID         string
	Date           string
	StartTime      string
	EndTime        string
	ServiceID      *string
	Notes          *string
	RequestID      *string
	IdempotencyKey string
}

// BookRange books a free time range directly, legacy mode for orgs that do
// not publish slots. The interval must fall inside the configured service
// day.
func (s *Service) BookRange(ctx context.Context, p BookRangeParams) (*models.Appointment, error) {
	const op = "service.BookRange"

	if p.OrgID == "" || p.UserID == "" || p.Date == "" {
		return nil, fmt.Errorf("%s: %w", op, response.ErrBadRequest)
	}
	if err := s.checkServiceDay(p.StartTime, p.EndTime); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	target := bookingTarget{
		ServiceID: p.ServiceID,
		Date:      p.Date,
		StartTime: p.StartTime,
		EndTime:   p.EndTime,
	}

	appt, err := s.book(ctx, s.interval, p.OrgID, p.UserID, target, p.Notes, p.RequestID, p.IdempotencyKey)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return appt, nil
}

func (s *Service) checkServiceDay(start, end string) error {
	sMin, eMin, err := hhmm.Range(start, end)
	if err != nil {
		return err
	}

	dayStart, dayEnd, err := hhmm.Range(s.cfg.RangeDayStart, s.cfg.RangeDayEnd)
	if err != nil {
		return err
	}

	if sMin < dayStart || eMin > dayEnd {
		return response.ErrInvalidRange
	}

	return nil
}

// RangeWindow is one free interval offered by the legacy availability grid.
type RangeWindow struct {
	StartTime string
	EndTime   string
}

// ListAvailableRanges walks the configured day in fixed steps and returns
// every window of the requested duration that no live appointment intersects.
// A zero duration falls back to the configured step.
func (s *Service) ListAvailableRanges(ctx context.Context, orgID, date string, durationMinutes int) ([]RangeWindow, error) {
	const op = "service.ListAvailableRanges"

	if orgID == "" || date == "" || durationMinutes < 0 {
		return nil, fmt.Errorf("%s: %w", op, response.ErrBadRequest)
	}

	dayStart, dayEnd, err := hhmm.Range(s.cfg.RangeDayStart, s.cfg.RangeDayEnd)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	step := s.cfg.RangeStepMinutes
	if step <= 0 {
		return nil, fmt.Errorf("%s: %w", op, response.ErrBadRequest)
	}
	if durationMinutes == 0 {
		durationMinutes = step
	}

	appts, err := s.store.ListAppointments(ctx, postgres.AppointmentQuery{
		OrgID:     &orgID,
		Date:      &date,
		Ascending: true,
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	type taken struct{ start, end int }
	var busy []taken
	for _, a := range appts {
		if !a.Status.Active() {
			continue
		}
		aStart, aEnd, err := hhmm.Range(a.StartTime, a.EndTime)
		if err != nil {
			continue
		}
		busy = append(busy, taken{aStart, aEnd})
	}

	var free []RangeWindow
	for cursor := dayStart; cursor+durationMinutes <= dayEnd; cursor += step {
		open := true
		for _, b := range busy {
			if hhmm.Overlaps(cursor, cursor+durationMinutes, b.start, b.end) {
				open = false
				break
			}
		}
		if open {
			free = append(free, RangeWindow{
				StartTime: hhmm.ToHHMM(cursor),
				EndTime:   hhmm.ToHHMM(cursor + durationMinutes),
			})
		}
	}

	return free, nil
}
