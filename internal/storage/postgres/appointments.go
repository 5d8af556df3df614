package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"consulat-booking/internal/models"
	"consulat-booking/pkg/response"
)

const apptColumns = `id, org_id, user_id, slot_id, service_id, request_id,
	appt_date, start_time, end_time, status, notes,
	confirmed_at, cancelled_at, cancellation_reason, completed_at,
	created_at, updated_at`

func scanAppointment(row interface{ Scan(...any) error }) (*models.Appointment, error) {
	var a models.Appointment
	err := row.Scan(
		&a.ID,
		&a.OrgID,
		&a.UserID,
		&a.SlotID,
		&a.ServiceID,
		&a.RequestID,
		&a.Date,
		&a.StartTime,
		&a.EndTime,
		&a.Status,
		&a.Notes,
		&a.ConfirmedAt,
		&a.CancelledAt,
		&a.CancellationReason,
		&a.CompletedAt,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	return &a, nil
}

func (s *Storage) CreateAppointment(ctx context.Context, tx *sql.Tx, a *models.Appointment) (string, error) {
	const op = "storage.postgres.CreateAppointment"

	if a.ID == "" {
		a.ID = uuid.New().String()
	}

	_, err := tx.ExecContext(ctx,
		`INSERT INTO appointments
		(id, org_id, user_id, slot_id, service_id, request_id,
		 appt_date, start_time, end_time, status, notes, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $12)`,
		a.ID,
		a.OrgID,
		a.UserID,
		a.SlotID,
		a.ServiceID,
		a.RequestID,
		a.Date,
		a.StartTime,
		a.EndTime,
		a.Status,
		a.Notes,
		a.CreatedAt,
	)
	if err != nil {
		return "", classify(op, err)
	}

	return a.ID, nil
}

func (s *Storage) GetAppointment(ctx context.Context, id string) (*models.Appointment, error) {
	const op = "storage.postgres.GetAppointment"

	a, err := scanAppointment(s.db.QueryRowContext(ctx,
		`SELECT `+apptColumns+` FROM appointments WHERE id=$1`, id))
	if err != nil {
		return nil, classify(op, err)
	}

	return a, nil
}

func (s *Storage) GetAppointmentForUpdate(ctx context.Context, tx *sql.Tx, id string) (*models.Appointment, error) {
	const op = "storage.postgres.GetAppointmentForUpdate"

	a, err := scanAppointment(tx.QueryRowContext(ctx,
		`SELECT `+apptColumns+` FROM appointments WHERE id=$1 FOR UPDATE`, id))
	if err != nil {
		return nil, classify(op, err)
	}

	return a, nil
}

type AppointmentQuery struct {
	OrgID  *string
	UserID *string
	Status *models.AppointmentStatus
	Date   *string
	Month  *string
	Limit  int
	// Ascending orders by date and start time; the default is newest first.
	Ascending bool
}

func (s *Storage) ListAppointments(ctx context.Context, q AppointmentQuery) ([]*models.Appointment, error) {
	const op = "storage.postgres.ListAppointments"

	query := `SELECT ` + apptColumns + ` FROM appointments WHERE 1=1`
	var args []any

	next := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if q.OrgID != nil {
		query += ` AND org_id=` + next(*q.OrgID)
	}
	if q.UserID != nil {
		query += ` AND user_id=` + next(*q.UserID)
	}
	if q.Status != nil {
		query += ` AND status=` + next(*q.Status)
	}

	switch {
	case q.Date != nil:
		query += ` AND appt_date=` + next(*q.Date)
	case q.Month != nil:
		query += ` AND appt_date LIKE ` + next(*q.Month+"-%")
	}

	if q.Ascending {
		query += ` ORDER BY appt_date, start_time`
	} else {
		query += ` ORDER BY appt_date DESC, start_time DESC`
	}

	if q.Limit > 0 {
		query += ` LIMIT ` + next(q.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, classify(op, err)
	}
	defer rows.Close()

	var appts []*models.Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, classify(op, err)
		}
		appts = append(appts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, classify(op, err)
	}

	return appts, nil
}

// HasActiveForSlotUser reports whether the user already holds a live booking
// on the slot. The partial unique index backstops this check; reading it here
// gives the caller a typed error instead of a constraint violation.
func (s *Storage) HasActiveForSlotUser(ctx context.Context, tx *sql.Tx, slotID, userID string, excludeID *string) (bool, error) {
	const op = "storage.postgres.HasActiveForSlotUser"

	query := `SELECT EXISTS (
		SELECT 1 FROM appointments
		WHERE slot_id=$1 AND user_id=$2 AND status <> 'cancelled'`
	args := []any{slotID, userID}

	if excludeID != nil {
		args = append(args, *excludeID)
		query += fmt.Sprintf(` AND id <> $%d`, len(args))
	}
	query += `)`

	var exists bool
	if err := tx.QueryRowContext(ctx, query, args...).Scan(&exists); err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}

	return exists, nil
}

// HasOverlap reports whether any non-cancelled appointment in the org on the
// given date intersects [start, end). Touching endpoints do not overlap.
func (s *Storage) HasOverlap(ctx context.Context, tx *sql.Tx, orgID, date, start, end string, excludeID *string) (bool, error) {
	const op = "storage.postgres.HasOverlap"

	query := `SELECT EXISTS (
		SELECT 1 FROM appointments
		WHERE org_id=$1 AND appt_date=$2
		  AND status <> 'cancelled'
		  AND start_time < $4 AND $3 < end_time`
	args := []any{orgID, date, start, end}

	if excludeID != nil {
		args = append(args, *excludeID)
		query += fmt.Sprintf(` AND id <> $%d`, len(args))
	}
	query += `)`

	var exists bool
	if err := tx.QueryRowContext(ctx, query, args...).Scan(&exists); err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}

	return exists, nil
}

// SetCancelled flips the appointment to cancelled. The guard makes repeated
// cancels report "already cancelled" without touching the row twice, which
// keeps the seat release exactly-once.
func (s *Storage) SetCancelled(ctx context.Context, tx *sql.Tx, id string, reason *string, at time.Time) (bool, error) {
	const op = "storage.postgres.SetCancelled"

	res, err := tx.ExecContext(ctx,
		`UPDATE appointments
		 SET status='cancelled', cancelled_at=$2, cancellation_reason=$3, updated_at=$2
		 WHERE id=$1 AND status <> 'cancelled'`,
		id, at, reason,
	)
	if err != nil {
		return false, classify(op, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}

	return n > 0, nil
}

func (s *Storage) SetConfirmed(ctx context.Context, id string, at time.Time) (bool, error) {
	const op = "storage.postgres.SetConfirmed"

	res, err := s.db.ExecContext(ctx,
		`UPDATE appointments
		 SET status='confirmed', confirmed_at=$2, updated_at=$2
		 WHERE id=$1 AND status='scheduled'`,
		id, at,
	)
	if err != nil {
		return false, classify(op, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}

	return n > 0, nil
}

func (s *Storage) SetCompleted(ctx context.Context, id string, notes *string, at time.Time) (bool, error) {
	const op = "storage.postgres.SetCompleted"

	res, err := s.db.ExecContext(ctx,
		`UPDATE appointments
		 SET status='completed', completed_at=$2, updated_at=$2,
		     notes=COALESCE($3, notes)
		 WHERE id=$1 AND status='confirmed'`,
		id, at, notes,
	)
	if err != nil {
		return false, classify(op, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}

	return n > 0, nil
}

func (s *Storage) SetNoShow(ctx context.Context, id string, at time.Time) (bool, error) {
	const op = "storage.postgres.SetNoShow"

	res, err := s.db.ExecContext(ctx,
		`UPDATE appointments
		 SET status='no_show', updated_at=$2
		 WHERE id=$1 AND status IN ('scheduled', 'confirmed')`,
		id, at,
	)
	if err != nil {
		return false, classify(op, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}

	return n > 0, nil
}

// Reschedule moves the appointment onto a new target. slotID is nil for a
// range booking. Confirmation state is reset so staff re-confirm the new time.
func (s *Storage) Reschedule(ctx context.Context, tx *sql.Tx, id string, slotID *string, date, start, end string, at time.Time) error {
	const op = "storage.postgres.Reschedule"

	res, err := tx.ExecContext(ctx,
		`UPDATE appointments
		 SET slot_id=$2, appt_date=$3, start_time=$4, end_time=$5,
		     status='scheduled', confirmed_at=NULL, updated_at=$6
		 WHERE id=$1`,
		id, slotID, date, start, end, at,
	)
	if err != nil {
		return classify(op, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", op, response.ErrNotFound)
	}

	return nil
}
