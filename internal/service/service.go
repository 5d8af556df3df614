package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"consulat-booking/internal/clock"
	"consulat-booking/internal/config"
	"consulat-booking/internal/events"
	"consulat-booking/internal/idempotency"
	"consulat-booking/internal/lock"
	"consulat-booking/internal/models"
	"consulat-booking/internal/storage/postgres"
	"consulat-booking/pkg/response"
)

// Store is the persistence surface the engine needs. *postgres.Storage
// satisfies it; tests swap in an in-memory fake.
type Store interface {
	WithTx(ctx context.Context, fn func(tx *sql.Tx) error) error

	CreateSlot(ctx context.Context, slot *models.Slot) (string, error)
	GetSlot(ctx context.Context, id string) (*models.Slot, error)
	GetSlotForUpdate(ctx context.Context, tx *sql.Tx, id string) (*models.Slot, error)
	ListSlots(ctx context.Context, q postgres.SlotQuery) ([]*models.Slot, error)
	IncrementBooked(ctx context.Context, tx *sql.Tx, slotID string) (bool, error)
	DecrementBooked(ctx context.Context, tx *sql.Tx, slotID string) error
	SetSlotBlocked(ctx context.Context, slotID string, blocked bool, reason *string) error
	DeleteSlot(ctx context.Context, slotID string) error

	CreateAppointment(ctx context.Context, tx *sql.Tx, a *models.Appointment) (string, error)
	GetAppointment(ctx context.Context, id string) (*models.Appointment, error)
	GetAppointmentForUpdate(ctx context.Context, tx *sql.Tx, id string) (*models.Appointment, error)
	ListAppointments(ctx context.Context, q postgres.AppointmentQuery) ([]*models.Appointment, error)
	HasActiveForSlotUser(ctx context.Context, tx *sql.Tx, slotID, userID string, excludeID *string) (bool, error)
	HasOverlap(ctx context.Context, tx *sql.Tx, orgID, date, start, end string, excludeID *string) (bool, error)
	SetCancelled(ctx context.Context, tx *sql.Tx, id string, reason *string, at time.Time) (bool, error)
	SetConfirmed(ctx context.Context, id string, at time.Time) (bool, error)
	SetCompleted(ctx context.Context, id string, notes *string, at time.Time) (bool, error)
	SetNoShow(ctx context.Context, id string, at time.Time) (bool, error)
	Reschedule(ctx context.Context, tx *sql.Tx, id string, slotID *string, date, start, end string, at time.Time) error
}

// Capability answers whether an actor may manage an org's calendar.
type Capability interface {
	CanManageCalendar(ctx context.Context, actorID, orgID string) (bool, error)
}

// AgentCapability grants calendar management to registered org agents.
type AgentCapability struct {
	Agents interface {
		IsOrgAgent(ctx context.Context, actorID, orgID string) (bool, error)
	}
}

func (c AgentCapability) CanManageCalendar(ctx context.Context, actorID, orgID string) (bool, error) {
	return c.Agents.IsOrgAgent(ctx, actorID, orgID)
}

const maxUnscopedListing = 200

type Service struct {
	log    *slog.Logger
	store  Store
	locker lock.Locker
	caps   Capability
	events events.Publisher
	idem   idempotency.Store
	clk    clock.Clock
	cfg    config.Booking

	capacity conflictStrategy
	interval conflictStrategy
}

func New(
	log *slog.Logger,
	store Store,
	locker lock.Locker,
	caps Capability,
	pub events.Publisher,
	idem idempotency.Store,
	clk clock.Clock,
	cfg config.Booking,
) *Service {
	return &Service{
		log:      log,
		store:    store,
		locker:   locker,
		caps:     caps,
		events:   pub,
		idem:     idem,
		clk:      clk,
		cfg:      cfg,
		capacity: capacityStrategy{},
		interval: intervalOverlapStrategy{},
	}
}

func (s *Service) requireCalendar(ctx context.Context, actorID, orgID string) error {
	const op = "service.requireCalendar"

	ok, err := s.caps.CanManageCalendar(ctx, actorID, orgID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if !ok {
		return fmt.Errorf("%s: %w", op, response.ErrUnauthorized)
	}

	return nil
}

// withTxRetry reruns fn on serialization conflicts, up to the configured
// number of attempts.
func (s *Service) withTxRetry(ctx context.Context, fn func(tx *sql.Tx) error) error {
	attempts := s.cfg.TxRetries
	if attempts < 1 {
		attempts = 1
	}

	var err error
	for i := 0; i < attempts; i++ {
		err = s.store.WithTx(ctx, fn)
		if err == nil || !errors.Is(err, response.ErrTxConflict) {
			return err
		}
	}

	return err
}

func (s *Service) publish(ctx context.Context, ev events.Event) {
	ev.OccurredAt = s.clk.Now()
	if err := s.events.Publish(ctx, ev); err != nil {
		s.log.Warn("failed to publish event",
			slog.String("type", ev.Type),
			slog.String("appointment_id", ev.AppointmentID),
		)
	}
}
