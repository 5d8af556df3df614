package service

import (
	"context"
	"errors"
	"testing"

	"consulat-booking/pkg/response"
)

func TestGenerateSlots_PacksDay(t *testing.T) {
	env := newTestEnv()
	env.store.addAgent("agent-1", "org-1")

	slots, err := env.svc.GenerateSlots(context.Background(), "agent-1", GenerateParams{
		OrgID:           "org-1",
		Dates:           []string{"2026-09-10"},
		StartTime:       "10:00",
		EndTime:         "11:00",
		DurationMinutes: 30,
		Capacity:        2,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(slots) != 2 {
		t.Fatalf("generated %d slots, want 2", len(slots))
	}
	if slots[0].StartTime != "10:00" || slots[0].EndTime != "10:30" {
		t.Errorf("first slot = %s-%s, want 10:00-10:30", slots[0].StartTime, slots[0].EndTime)
	}
	if slots[1].StartTime != "10:30" || slots[1].EndTime != "11:00" {
		t.Errorf("second slot = %s-%s, want 10:30-11:00", slots[1].StartTime, slots[1].EndTime)
	}
}

func TestGenerateSlots_BreakLeavesNoRoom(t *testing.T) {
	env := newTestEnv()
	env.store.addAgent("agent-1", "org-1")

	slots, err := env.svc.GenerateSlots(context.Background(), "agent-1", GenerateParams{
		OrgID:           "org-1",
		Dates:           []string{"2026-09-10"},
		StartTime:       "10:00",
		EndTime:         "11:00",
		DurationMinutes: 30,
		BreakMinutes:    15,
		Capacity:        1,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// 10:00-10:30, then the break pushes the next start to 10:45 and a whole
	// slot no longer fits before 11:00.
	if len(slots) != 1 {
		t.Fatalf("generated %d slots, want 1", len(slots))
	}
}

func TestGenerateSlots_MultipleDates(t *testing.T) {
	env := newTestEnv()
	env.store.addAgent("agent-1", "org-1")

	slots, err := env.svc.GenerateSlots(context.Background(), "agent-1", GenerateParams{
		OrgID:           "org-1",
		Dates:           []string{"2026-09-10", "2026-09-11"},
		StartTime:       "09:00",
		EndTime:         "10:00",
		DurationMinutes: 15,
		Capacity:        1,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(slots) != 8 {
		t.Fatalf("generated %d slots, want 8", len(slots))
	}
}

func TestGenerateSlots_RejectsOddDuration(t *testing.T) {
	env := newTestEnv()
	env.store.addAgent("agent-1", "org-1")

	_, err := env.svc.GenerateSlots(context.Background(), "agent-1", GenerateParams{
		OrgID:           "org-1",
		Dates:           []string{"2026-09-10"},
		StartTime:       "10:00",
		EndTime:         "11:00",
		DurationMinutes: 20,
		Capacity:        1,
	})
	if !errors.Is(err, response.ErrBadRequest) {
		t.Fatalf("error = %v, want ErrBadRequest", err)
	}
}

func TestCreateSlot_NonAgentForbidden(t *testing.T) {
	env := newTestEnv()

	_, err := env.svc.CreateSlot(context.Background(), "user-1", CreateSlotParams{
		OrgID:     "org-1",
		Date:      "2026-09-10",
		StartTime: "10:00",
		EndTime:   "10:30",
		Capacity:  1,
	})
	if !errors.Is(err, response.ErrUnauthorized) {
		t.Fatalf("error = %v, want ErrUnauthorized", err)
	}
}

func TestCreateSlot_InvalidRange(t *testing.T) {
	env := newTestEnv()
	env.store.addAgent("agent-1", "org-1")

	_, err := env.svc.CreateSlot(context.Background(), "agent-1", CreateSlotParams{
		OrgID:     "org-1",
		Date:      "2026-09-10",
		StartTime: "10:30",
		EndTime:   "10:30",
		Capacity:  1,
	})
	if !errors.Is(err, response.ErrInvalidRange) {
		t.Fatalf("error = %v, want ErrInvalidRange", err)
	}

	_, err = env.svc.CreateSlot(context.Background(), "agent-1", CreateSlotParams{
		OrgID:     "org-1",
		Date:      "2026-09-10",
		StartTime: "25:00",
		EndTime:   "26:00",
		Capacity:  1,
	})
	if !errors.Is(err, response.ErrInvalidTimeFormat) {
		t.Fatalf("error = %v, want ErrInvalidTimeFormat", err)
	}
}

func TestDeleteSlot_WithBookingRefuses(t *testing.T) {
	env := newTestEnv()
	env.store.addAgent("agent-1", "org-1")
	slot := env.mustSlot("org-1", "2026-09-10", "10:00", "10:30", 1)

	appt, err := env.svc.BookAppointment(context.Background(), BookSlotParams{
		OrgID: "org-1", UserID: "user-1", SlotID: slot.ID,
	})
	if err != nil {
		t.Fatal(err)
	}

	if err := env.svc.DeleteSlot(context.Background(), "agent-1", slot.ID); !errors.Is(err, response.ErrSlotHasBookings) {
		t.Fatalf("error = %v, want ErrSlotHasBookings", err)
	}

	// Once the booking is cancelled the slot can go.
	if _, err := env.svc.CancelAppointment(context.Background(), "user-1", appt.ID, nil); err != nil {
		t.Fatal(err)
	}
	if err := env.svc.DeleteSlot(context.Background(), "agent-1", slot.ID); err != nil {
		t.Fatalf("delete after cancel failed: %v", err)
	}
}

func TestBlockSlot_HidesFromAvailability(t *testing.T) {
	env := newTestEnv()
	env.store.addAgent("agent-1", "org-1")
	slot := env.mustSlot("org-1", "2026-09-10", "10:00", "10:30", 1)

	reason := "staff training"
	if err := env.svc.BlockSlot(context.Background(), "agent-1", slot.ID, &reason); err != nil {
		t.Fatal(err)
	}

	date := "2026-09-10"
	available, err := env.svc.ListAvailableSlots(context.Background(), SlotFilter{OrgID: "org-1", Date: &date})
	if err != nil {
		t.Fatal(err)
	}
	if len(available) != 0 {
		t.Errorf("blocked slot still listed as available")
	}

	// The staff view keeps it visible.
	all, err := env.svc.ListSlots(context.Background(), "agent-1", SlotFilter{OrgID: "org-1", Date: &date})
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 1 || !all[0].IsBlocked {
		t.Errorf("staff view = %+v, want one blocked slot", all)
	}

	if err := env.svc.UnblockSlot(context.Background(), "agent-1", slot.ID); err != nil {
		t.Fatal(err)
	}
	available, _ = env.svc.ListAvailableSlots(context.Background(), SlotFilter{OrgID: "org-1", Date: &date})
	if len(available) != 1 {
		t.Errorf("unblocked slot missing from availability")
	}
}

func TestListAvailableSlots_FullSlotExcluded(t *testing.T) {
	env := newTestEnv()
	slot := env.mustSlot("org-1", "2026-09-10", "10:00", "10:30", 1)
	env.mustSlot("org-1", "2026-09-10", "10:30", "11:00", 1)

	if _, err := env.svc.BookAppointment(context.Background(), BookSlotParams{
		OrgID: "org-1", UserID: "user-1", SlotID: slot.ID,
	}); err != nil {
		t.Fatal(err)
	}

	date := "2026-09-10"
	available, err := env.svc.ListAvailableSlots(context.Background(), SlotFilter{OrgID: "org-1", Date: &date})
	if err != nil {
		t.Fatal(err)
	}
	if len(available) != 1 || available[0].StartTime != "10:30" {
		t.Errorf("available = %+v, want only the 10:30 slot", available)
	}
}

func TestListAvailableDates_Deduplicates(t *testing.T) {
	env := newTestEnv()
	env.mustSlot("org-1", "2026-09-10", "10:00", "10:30", 1)
	env.mustSlot("org-1", "2026-09-10", "10:30", "11:00", 1)
	env.mustSlot("org-1", "2026-09-12", "10:00", "10:30", 1)
	env.mustSlot("org-1", "2026-10-01", "10:00", "10:30", 1)

	dates, err := env.svc.ListAvailableDates(context.Background(), "org-1", nil, "2026-09")
	if err != nil {
		t.Fatal(err)
	}

	want := []string{"2026-09-10", "2026-09-12"}
	if len(dates) != len(want) {
		t.Fatalf("dates = %v, want %v", dates, want)
	}
	for i := range want {
		if dates[i] != want[i] {
			t.Fatalf("dates = %v, want %v", dates, want)
		}
	}
}

func TestListAvailableSlots_DefaultWindow(t *testing.T) {
	env := newTestEnv()
	env.mustSlot("org-1", "2026-09-10", "10:00", "10:30", 1)
	// Outside the 30-day window from the fixed clock (2026-09-01).
	env.mustSlot("org-1", "2026-10-15", "10:00", "10:30", 1)

	available, err := env.svc.ListAvailableSlots(context.Background(), SlotFilter{OrgID: "org-1"})
	if err != nil {
		t.Fatal(err)
	}
	if len(available) != 1 || available[0].Date != "2026-09-10" {
		t.Errorf("available = %+v, want only the in-window slot", available)
	}
}
