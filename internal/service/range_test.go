package service

import (
	"context"
	"errors"
	"testing"

	"consulat-booking/internal/models"
	"consulat-booking/pkg/response"
)

func TestBookRange(t *testing.T) {
	env := newTestEnv()

	appt, err := env.svc.BookRange(context.Background(), BookRangeParams{
		OrgID:     "org-1",
		UserID:    "user-1",
		Date:      "2026-09-10",
		StartTime: "10:00",
		EndTime:   "10:30",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if appt.Status != models.AppointmentScheduled {
		t.Errorf("status = %q, want scheduled", appt.Status)
	}
	if appt.SlotID != nil {
		t.Errorf("range booking should carry no slot_id, got %v", *appt.SlotID)
	}
}

func TestBookRange_OverlapRejected(t *testing.T) {
	env := newTestEnv()

	if _, err := env.svc.BookRange(context.Background(), BookRangeParams{
		OrgID: "org-1", UserID: "user-1", Date: "2026-09-10",
		StartTime: "10:30", EndTime: "11:00",
	}); err != nil {
		t.Fatal(err)
	}

	_, err := env.svc.BookRange(context.Background(), BookRangeParams{
		OrgID: "org-1", UserID: "user-2", Date: "2026-09-10",
		StartTime: "10:15", EndTime: "10:45",
	})
	if !errors.Is(err, response.ErrSlotNotAvailable) {
		t.Fatalf("error = %v, want ErrSlotNotAvailable", err)
	}
}

func TestBookRange_TouchingEndpointsAllowed(t *testing.T) {
	env := newTestEnv()

	if _, err := env.svc.BookRange(context.Background(), BookRangeParams{
		OrgID: "org-1", UserID: "user-1", Date: "2026-09-10",
		StartTime: "10:00", EndTime: "10:30",
	}); err != nil {
		t.Fatal(err)
	}

	// [10:00, 10:30) and [10:30, 11:00) share an endpoint but not a minute.
	if _, err := env.svc.BookRange(context.Background(), BookRangeParams{
		OrgID: "org-1", UserID: "user-2", Date: "2026-09-10",
		StartTime: "10:30", EndTime: "11:00",
	}); err != nil {
		t.Fatalf("back-to-back booking rejected: %v", err)
	}
}

func TestBookRange_OtherDayAndOrgUnaffected(t *testing.T) {
	env := newTestEnv()

	if _, err := env.svc.BookRange(context.Background(), BookRangeParams{
		OrgID: "org-1", UserID: "user-1", Date: "2026-09-10",
		StartTime: "10:00", EndTime: "10:30",
	}); err != nil {
		t.Fatal(err)
	}

	if _, err := env.svc.BookRange(context.Background(), BookRangeParams{
		OrgID: "org-1", UserID: "user-2", Date: "2026-09-11",
		StartTime: "10:00", EndTime: "10:30",
	}); err != nil {
		t.Errorf("other day rejected: %v", err)
	}

	if _, err := env.svc.BookRange(context.Background(), BookRangeParams{
		OrgID: "org-2", UserID: "user-3", Date: "2026-09-10",
		StartTime: "10:00", EndTime: "10:30",
	}); err != nil {
		t.Errorf("other org rejected: %v", err)
	}
}

func TestBookRange_OutsideServiceDayRejected(t *testing.T) {
	env := newTestEnv()

	_, err := env.svc.BookRange(context.Background(), BookRangeParams{
		OrgID: "org-1", UserID: "user-1", Date: "2026-09-10",
		StartTime: "08:00", EndTime: "08:30",
	})
	if !errors.Is(err, response.ErrInvalidRange) {
		t.Fatalf("error = %v, want ErrInvalidRange", err)
	}
}

func TestBookRange_CancelFreesWindow(t *testing.T) {
	env := newTestEnv()

	appt, err := env.svc.BookRange(context.Background(), BookRangeParams{
		OrgID: "org-1", UserID: "user-1", Date: "2026-09-10",
		StartTime: "10:00", EndTime: "10:30",
	})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := env.svc.CancelAppointment(context.Background(), "user-1", appt.ID, nil); err != nil {
		t.Fatal(err)
	}

	if _, err := env.svc.BookRange(context.Background(), BookRangeParams{
		OrgID: "org-1", UserID: "user-2", Date: "2026-09-10",
		StartTime: "10:00", EndTime: "10:30",
	}); err != nil {
		t.Errorf("rebooking cancelled window failed: %v", err)
	}
}

func TestListAvailableRanges(t *testing.T) {
	env := newTestEnv()

	if _, err := env.svc.BookRange(context.Background(), BookRangeParams{
		OrgID: "org-1", UserID: "user-1", Date: "2026-09-10",
		StartTime: "09:00", EndTime: "09:30",
	}); err != nil {
		t.Fatal(err)
	}

	windows, err := env.svc.ListAvailableRanges(context.Background(), "org-1", "2026-09-10", 0)
	if err != nil {
		t.Fatal(err)
	}

	// 09:00-17:00 in 30-minute steps is 16 windows; one is taken.
	if len(windows) != 15 {
		t.Fatalf("free windows = %d, want 15", len(windows))
	}
	if windows[0].StartTime != "09:30" {
		t.Errorf("first free window starts %s, want 09:30", windows[0].StartTime)
	}
	if last := windows[len(windows)-1]; last.StartTime != "16:30" || last.EndTime != "17:00" {
		t.Errorf("last window = %s-%s, want 16:30-17:00", last.StartTime, last.EndTime)
	}
}

func TestListAvailableRanges_CustomDuration(t *testing.T) {
	env := newTestEnv()

	if _, err := env.svc.BookRange(context.Background(), BookRangeParams{
		OrgID: "org-1", UserID: "user-1", Date: "2026-09-10",
		StartTime: "09:00", EndTime: "09:30",
	}); err != nil {
		t.Fatal(err)
	}

	windows, err := env.svc.ListAvailableRanges(context.Background(), "org-1", "2026-09-10", 60)
	if err != nil {
		t.Fatal(err)
	}

	if len(windows) == 0 {
		t.Fatal("no windows returned")
	}
	if windows[0].StartTime != "09:30" || windows[0].EndTime != "10:30" {
		t.Errorf("first window = %s-%s, want 09:30-10:30", windows[0].StartTime, windows[0].EndTime)
	}
	if last := windows[len(windows)-1]; last.EndTime != "17:00" {
		t.Errorf("last window ends %s, want 17:00", last.EndTime)
	}
}

func TestRescheduleRangeBooking(t *testing.T) {
	env := newTestEnv()

	if _, err := env.svc.BookRange(context.Background(), BookRangeParams{
		OrgID: "org-1", UserID: "user-1", Date: "2026-09-10",
		StartTime: "11:00", EndTime: "11:30",
	}); err != nil {
		t.Fatal(err)
	}

	appt, err := env.svc.BookRange(context.Background(), BookRangeParams{
		OrgID: "org-1", UserID: "user-2", Date: "2026-09-10",
		StartTime: "10:00", EndTime: "10:30",
	})
	if err != nil {
		t.Fatal(err)
	}

	// Moving onto the occupied window is rejected and nothing changes.
	_, err = env.svc.RescheduleAppointment(context.Background(), "user-2", RescheduleParams{
		AppointmentID: appt.ID,
		NewDate:       "2026-09-10",
		NewStartTime:  "11:00",
		NewEndTime:    "11:30",
	})
	if !errors.Is(err, response.ErrSlotNotAvailable) {
		t.Fatalf("error = %v, want ErrSlotNotAvailable", err)
	}

	kept, _ := env.store.GetAppointment(context.Background(), appt.ID)
	if kept.StartTime != "10:00" {
		t.Errorf("start_time = %s, want 10:00 after failed move", kept.StartTime)
	}

	// A free window works, and the old window opens up.
	moved, err := env.svc.RescheduleAppointment(context.Background(), "user-2", RescheduleParams{
		AppointmentID: appt.ID,
		NewDate:       "2026-09-10",
		NewStartTime:  "12:00",
		NewEndTime:    "12:30",
	})
	if err != nil {
		t.Fatalf("reschedule failed: %v", err)
	}
	if moved.StartTime != "12:00" || moved.EndTime != "12:30" {
		t.Errorf("moved to %s-%s, want 12:00-12:30", moved.StartTime, moved.EndTime)
	}

	if _, err := env.svc.BookRange(context.Background(), BookRangeParams{
		OrgID: "org-1", UserID: "user-3", Date: "2026-09-10",
		StartTime: "10:00", EndTime: "10:30",
	}); err != nil {
		t.Errorf("vacated window not bookable: %v", err)
	}
}

// A booking may move onto a window that only conflicts with itself: the
// overlap check must exclude the appointment being moved.
func TestRescheduleRange_SelfOverlapAllowed(t *testing.T) {
	env := newTestEnv()

	appt, err := env.svc.BookRange(context.Background(), BookRangeParams{
		OrgID: "org-1", UserID: "user-1", Date: "2026-09-10",
		StartTime: "10:00", EndTime: "10:30",
	})
	if err != nil {
		t.Fatal(err)
	}

	moved, err := env.svc.RescheduleAppointment(context.Background(), "user-1", RescheduleParams{
		AppointmentID: appt.ID,
		NewDate:       "2026-09-10",
		NewStartTime:  "10:15",
		NewEndTime:    "10:45",
	})
	if err != nil {
		t.Fatalf("self-overlapping move rejected: %v", err)
	}
	if moved.StartTime != "10:15" {
		t.Errorf("start_time = %s, want 10:15", moved.StartTime)
	}
}
