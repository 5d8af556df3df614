package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"consulat-booking/pkg/response"
)

type Storage struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS slots (
	id            TEXT PRIMARY KEY,
	org_id        TEXT NOT NULL,
	service_id    TEXT,
	slot_date     TEXT NOT NULL,
	start_time    TEXT NOT NULL,
	end_time      TEXT NOT NULL,
	capacity      INT  NOT NULL CHECK (capacity >= 1),
	booked_count  INT  NOT NULL DEFAULT 0 CHECK (booked_count >= 0),
	is_blocked    BOOLEAN NOT NULL DEFAULT FALSE,
	block_reason  TEXT,
	created_at    TIMESTAMPTZ NOT NULL,
	updated_at    TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_slots_org_date ON slots (org_id, slot_date);

CREATE TABLE IF NOT EXISTS appointments (
	id                  TEXT PRIMARY KEY,
	org_id              TEXT NOT NULL,
	user_id             TEXT NOT NULL,
	slot_id             TEXT,
	service_id          TEXT,
	request_id          TEXT,
	appt_date           TEXT NOT NULL,
	start_time          TEXT NOT NULL,
	end_time            TEXT NOT NULL,
	status              TEXT NOT NULL,
	notes               TEXT,
	confirmed_at        TIMESTAMPTZ,
	cancelled_at        TIMESTAMPTZ,
	cancellation_reason TEXT,
	completed_at        TIMESTAMPTZ,
	created_at          TIMESTAMPTZ NOT NULL,
	updated_at          TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_appointments_org_date ON appointments (org_id, appt_date);
CREATE INDEX IF NOT EXISTS idx_appointments_user ON appointments (user_id);

CREATE UNIQUE INDEX IF NOT EXISTS uq_appointments_active_slot_user
	ON appointments (user_id, slot_id)
	WHERE status <> 'cancelled' AND slot_id IS NOT NULL;

CREATE TABLE IF NOT EXISTS org_agents (
	org_id  TEXT NOT NULL,
	user_id TEXT NOT NULL,
	PRIMARY KEY (org_id, user_id)
);
`

func New(storagePath string) (*Storage, error) {
	const op = "storage.postgres.New"

	db, err := sql.Open("postgres", storagePath)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("%s: ensure schema: %w", op, err)
	}

	return &Storage{db: db}, nil
}

func (s *Storage) Close() error {
	if s == nil || s.db == nil {
		return nil
	}

	return s.db.Close()
}

// WithTx runs fn inside a transaction, rolling back on error. Commit errors
// go through classify so serialization failures surface as retryable.
func (s *Storage) WithTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	const op = "storage.postgres.WithTx"

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}

	if err := tx.Commit(); err != nil {
		return classify(op, err)
	}

	return nil
}

// IsOrgAgent backs the calendar-management capability check. Membership and
// role resolution live outside this service; org_agents is the projection it
// feeds us.
func (s *Storage) IsOrgAgent(ctx context.Context, actorID, orgID string) (bool, error) {
	const op = "storage.postgres.IsOrgAgent"

	var exists bool
	err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM org_agents WHERE org_id=$1 AND user_id=$2)`,
		orgID, actorID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}

	return exists, nil
}

// classify maps driver errors onto the sentinel errors the service layer
// matches with errors.Is.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s: %w", op, response.ErrNotFound)
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case "23505":
			return fmt.Errorf("%s: %w", op, response.ErrAppointmentExists)
		case "40001", "40P01":
			return fmt.Errorf("%s: %w", op, response.ErrTxConflict)
		}
	}

	return fmt.Errorf("%s: %w", op, err)
}
