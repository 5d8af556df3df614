package service

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"consulat-booking/internal/clock"
	"consulat-booking/internal/config"
	"consulat-booking/internal/events"
	"consulat-booking/internal/models"
	"consulat-booking/internal/storage/postgres"
	"consulat-booking/pkg/response"
)

// fakeStore is an in-memory Store. The tx argument is ignored; every method
// takes the store mutex, so guarded updates stay atomic under concurrency.
type fakeStore struct {
	mu     sync.Mutex
	nextID int
	slots  map[string]*models.Slot
	appts  map[string]*models.Appointment
	agents map[string]bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		slots:  make(map[string]*models.Slot),
		appts:  make(map[string]*models.Appointment),
		agents: make(map[string]bool),
	}
}

func (f *fakeStore) addAgent(actorID, orgID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.agents[orgID+"|"+actorID] = true
}

func (f *fakeStore) IsOrgAgent(_ context.Context, actorID, orgID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.agents[orgID+"|"+actorID], nil
}

func (f *fakeStore) WithTx(_ context.Context, fn func(tx *sql.Tx) error) error {
	return fn(nil)
}

func (f *fakeStore) genID(prefix string) string {
	f.nextID++
	return fmt.Sprintf("%s-%d", prefix, f.nextID)
}

func (f *fakeStore) CreateSlot(_ context.Context, slot *models.Slot) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if slot.ID == "" {
		slot.ID = f.genID("slot")
	}
	cp := *slot
	f.slots[slot.ID] = &cp

	return slot.ID, nil
}

func (f *fakeStore) GetSlot(_ context.Context, id string) (*models.Slot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	slot, ok := f.slots[id]
	if !ok {
		return nil, response.ErrNotFound
	}
	cp := *slot
	return &cp, nil
}

func (f *fakeStore) GetSlotForUpdate(ctx context.Context, _ *sql.Tx, id string) (*models.Slot, error) {
	return f.GetSlot(ctx, id)
}

func matchesScope(date string, q postgres.SlotQuery) bool {
	switch {
	case q.Date != nil:
		return date == *q.Date
	case q.Month != nil:
		return strings.HasPrefix(date, *q.Month+"-")
	case q.FromDate != nil && q.ToDate != nil:
		return date >= *q.FromDate && date < *q.ToDate
	}
	return true
}

func (f *fakeStore) ListSlots(_ context.Context, q postgres.SlotQuery) ([]*models.Slot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []*models.Slot
	for _, slot := range f.slots {
		if slot.OrgID != q.OrgID || !matchesScope(slot.Date, q) {
			continue
		}
		if q.ServiceID != nil && slot.ServiceID != nil && *slot.ServiceID != *q.ServiceID {
			continue
		}
		if q.AvailableOnly && (slot.IsBlocked || slot.BookedCount >= slot.Capacity) {
			continue
		}
		cp := *slot
		out = append(out, &cp)
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Date != out[j].Date {
			return out[i].Date < out[j].Date
		}
		return out[i].StartTime < out[j].StartTime
	})

	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}

	return out, nil
}

func (f *fakeStore) IncrementBooked(_ context.Context, _ *sql.Tx, slotID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	slot, ok := f.slots[slotID]
	if !ok {
		return false, nil
	}
	if slot.IsBlocked || slot.BookedCount >= slot.Capacity {
		return false, nil
	}
	slot.BookedCount++
	return true, nil
}

func (f *fakeStore) DecrementBooked(_ context.Context, _ *sql.Tx, slotID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if slot, ok := f.slots[slotID]; ok && slot.BookedCount > 0 {
		slot.BookedCount--
	}
	return nil
}

func (f *fakeStore) SetSlotBlocked(_ context.Context, slotID string, blocked bool, reason *string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	slot, ok := f.slots[slotID]
	if !ok {
		return response.ErrNotFound
	}
	slot.IsBlocked = blocked
	slot.BlockReason = reason
	return nil
}

func (f *fakeStore) DeleteSlot(_ context.Context, slotID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	slot, ok := f.slots[slotID]
	if !ok {
		return response.ErrNotFound
	}
	if slot.BookedCount > 0 {
		return response.ErrSlotHasBookings
	}
	delete(f.slots, slotID)
	return nil
}

func (f *fakeStore) CreateAppointment(_ context.Context, _ *sql.Tx, a *models.Appointment) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if a.ID == "" {
		a.ID = f.genID("appt")
	}
	cp := *a
	f.appts[a.ID] = &cp

	return a.ID, nil
}

func (f *fakeStore) GetAppointment(_ context.Context, id string) (*models.Appointment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	a, ok := f.appts[id]
	if !ok {
		return nil, response.ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (f *fakeStore) GetAppointmentForUpdate(ctx context.Context, _ *sql.Tx, id string) (*models.Appointment, error) {
	return f.GetAppointment(ctx, id)
}

func (f *fakeStore) ListAppointments(_ context.Context, q postgres.AppointmentQuery) ([]*models.Appointment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []*models.Appointment
	for _, a := range f.appts {
		if q.OrgID != nil && a.OrgID != *q.OrgID {
			continue
		}
		if q.UserID != nil && a.UserID != *q.UserID {
			continue
		}
		if q.Status != nil && a.Status != *q.Status {
			continue
		}
		if q.Date != nil && a.Date != *q.Date {
			continue
		}
		if q.Month != nil && !strings.HasPrefix(a.Date, *q.Month+"-") {
			continue
		}
		cp := *a
		out = append(out, &cp)
	}

	sort.Slice(out, func(i, j int) bool {
		less := out[i].Date+out[i].StartTime < out[j].Date+out[j].StartTime
		if q.Ascending {
			return less
		}
		return !less
	})

	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}

	return out, nil
}

func (f *fakeStore) HasActiveForSlotUser(_ context.Context, _ *sql.Tx, slotID, userID string, excludeID *string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, a := range f.appts {
		if excludeID != nil && a.ID == *excludeID {
			continue
		}
		if a.SlotID != nil && *a.SlotID == slotID && a.UserID == userID && a.Status.Active() {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeStore) HasOverlap(_ context.Context, _ *sql.Tx, orgID, date, start, end string, excludeID *string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, a := range f.appts {
		if excludeID != nil && a.ID == *excludeID {
			continue
		}
		if a.OrgID != orgID || a.Date != date || !a.Status.Active() {
			continue
		}
		if a.StartTime < end && start < a.EndTime {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeStore) SetCancelled(_ context.Context, _ *sql.Tx, id string, reason *string, at time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	a, ok := f.appts[id]
	if !ok || a.Status == models.AppointmentCancelled {
		return false, nil
	}
	a.Status = models.AppointmentCancelled
	a.CancelledAt = &at
	a.CancellationReason = reason
	return true, nil
}

func (f *fakeStore) SetConfirmed(_ context.Context, id string, at time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	a, ok := f.appts[id]
	if !ok || a.Status != models.AppointmentScheduled {
		return false, nil
	}
	a.Status = models.AppointmentConfirmed
	a.ConfirmedAt = &at
	return true, nil
}

func (f *fakeStore) SetCompleted(_ context.Context, id string, notes *string, at time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	a, ok := f.appts[id]
	if !ok || a.Status != models.AppointmentConfirmed {
		return false, nil
	}
	a.Status = models.AppointmentCompleted
	a.CompletedAt = &at
	if notes != nil {
		a.Notes = notes
	}
	return true, nil
}

func (f *fakeStore) SetNoShow(_ context.Context, id string, _ time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	a, ok := f.appts[id]
	if !ok {
		return false, nil
	}
	if a.Status != models.AppointmentScheduled && a.Status != models.AppointmentConfirmed {
		return false, nil
	}
	a.Status = models.AppointmentNoShow
	return true, nil
}

func (f *fakeStore) Reschedule(_ context.Context, _ *sql.Tx, id string, slotID *string, date, start, end string, _ time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	a, ok := f.appts[id]
	if !ok {
		return response.ErrNotFound
	}
	a.SlotID = slotID
	a.Date = date
	a.StartTime = start
	a.EndTime = end
	a.Status = models.AppointmentScheduled
	a.ConfirmedAt = nil
	return nil
}

// blockingLocker serializes per key the way a retried SETNX would, so
// concurrent booking tests exercise the reservation path instead of lock
// contention.
type blockingLocker struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newBlockingLocker() *blockingLocker {
	return &blockingLocker{locks: make(map[string]*sync.Mutex)}
}

func (l *blockingLocker) Lock(_ context.Context, key string, _ time.Duration) (bool, error) {
	l.mu.Lock()
	m, ok := l.locks[key]
	if !ok {
		m = &sync.Mutex{}
		l.locks[key] = m
	}
	l.mu.Unlock()

	m.Lock()
	return true, nil
}

func (l *blockingLocker) Unlock(_ context.Context, key string) error {
	l.mu.Lock()
	m := l.locks[key]
	l.mu.Unlock()

	if m != nil {
		m.Unlock()
	}
	return nil
}

// eventRecorder captures published events for assertions.
type eventRecorder struct {
	mu     sync.Mutex
	events []events.Event
}

func (r *eventRecorder) Publish(_ context.Context, ev events.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return nil
}

func (r *eventRecorder) types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.events))
	for i, ev := range r.events {
		out[i] = ev.Type
	}
	return out
}

type fakeIdem struct {
	mu   sync.Mutex
	keys map[string]string
}

func newFakeIdem() *fakeIdem {
	return &fakeIdem{keys: make(map[string]string)}
}

func (f *fakeIdem) Get(_ context.Context, key string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.keys[key], nil
}

func (f *fakeIdem) Set(_ context.Context, key, appointmentID string, _ time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.keys[key] = appointmentID
	return nil
}

var testNow = time.Date(2026, 9, 1, 10, 0, 0, 0, time.UTC)

func testConfig() config.Booking {
	return config.Booking{
		LockTTL:                time.Second,
		TxRetries:              3,
		AvailabilityWindowDays: 30,
		IdempotencyTTL:         time.Hour,
		RangeDayStart:          "09:00",
		RangeDayEnd:            "17:00",
		RangeStepMinutes:       30,
	}
}

type testEnv struct {
	svc    *Service
	store  *fakeStore
	events *eventRecorder
}

func newTestEnv() *testEnv {
	store := newFakeStore()
	rec := &eventRecorder{}

	svc := New(
		slog.New(slog.NewTextHandler(io.Discard, nil)),
		store,
		newBlockingLocker(),
		AgentCapability{Agents: store},
		rec,
		newFakeIdem(),
		clock.Fixed{T: testNow},
		testConfig(),
	)

	return &testEnv{svc: svc, store: store, events: rec}
}

func (e *testEnv) mustSlot(orgID, date, start, end string, capacity int) *models.Slot {
	slot := &models.Slot{
		OrgID:     orgID,
		Date:      date,
		StartTime: start,
		EndTime:   end,
		Capacity:  capacity,
		CreatedAt: testNow,
		UpdatedAt: testNow,
	}
	if _, err := e.store.CreateSlot(context.Background(), slot); err != nil {
		panic(err)
	}
	return slot
}
