package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"consulat-booking/internal/models"
	"consulat-booking/pkg/response"
)

const slotColumns = `id, org_id, service_id, slot_date, start_time, end_time,
	capacity, booked_count, is_blocked, block_reason, created_at, updated_at`

func scanSlot(row interface{ Scan(...any) error }) (*models.Slot, error) {
	var slot models.Slot
	err := row.Scan(
		&slot.ID,
		&slot.OrgID,
		&slot.ServiceID,
		&slot.Date,
		&slot.StartTime,
		&slot.EndTime,
		&slot.Capacity,
		&slot.BookedCount,
		&slot.IsBlocked,
		&slot.BlockReason,
		&slot.CreatedAt,
		&slot.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	return &slot, nil
}

func (s *Storage) CreateSlot(ctx context.Context, slot *models.Slot) (string, error) {
	const op = "storage.postgres.CreateSlot"

	if slot.ID == "" {
		slot.ID = uuid.New().String()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO slots
		(id, org_id, service_id, slot_date, start_time, end_time,
		 capacity, booked_count, is_blocked, block_reason, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, 0, FALSE, NULL, $8, $8)`,
		slot.ID,
		slot.OrgID,
		slot.ServiceID,
		slot.Date,
		slot.StartTime,
		slot.EndTime,
		slot.Capacity,
		slot.CreatedAt,
	)
	if err != nil {
		return "", classify(op, err)
	}

	return slot.ID, nil
}

func (s *Storage) GetSlot(ctx context.Context, id string) (*models.Slot, error) {
	const op = "storage.postgres.GetSlot"

	slot, err := scanSlot(s.db.QueryRowContext(ctx,
		`SELECT `+slotColumns+` FROM slots WHERE id=$1`, id))
	if err != nil {
		return nil, classify(op, err)
	}

	return slot, nil
}

// GetSlotForUpdate pins the slot row for the rest of the transaction so the
// availability check and the counter change cannot interleave with another
// booker.
func (s *Storage) GetSlotForUpdate(ctx context.Context, tx *sql.Tx, id string) (*models.Slot, error) {
	const op = "storage.postgres.GetSlotForUpdate"

	slot, err := scanSlot(tx.QueryRowContext(ctx,
		`SELECT `+slotColumns+` FROM slots WHERE id=$1 FOR UPDATE`, id))
	if err != nil {
		return nil, classify(op, err)
	}

	return slot, nil
}

type SlotQuery struct {
	OrgID         string
	ServiceID     *string
	Date          *string
	Month         *string
	FromDate      *string
	ToDate        *string
	AvailableOnly bool
	Limit         int
}

func (s *Storage) ListSlots(ctx context.Context, q SlotQuery) ([]*models.Slot, error) {
	const op = "storage.postgres.ListSlots"

	query := `SELECT ` + slotColumns + ` FROM slots WHERE org_id=$1`
	args := []any{q.OrgID}

	next := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	switch {
	case q.Date != nil:
		query += ` AND slot_date=` + next(*q.Date)
	case q.Month != nil:
		query += ` AND slot_date LIKE ` + next(*q.Month+"-%")
	case q.FromDate != nil && q.ToDate != nil:
		query += ` AND slot_date >= ` + next(*q.FromDate) + ` AND slot_date < ` + next(*q.ToDate)
	}

	if q.ServiceID != nil {
		query += ` AND (service_id IS NULL OR service_id=` + next(*q.ServiceID) + `)`
	}

	if q.AvailableOnly {
		query += ` AND NOT is_blocked AND booked_count < capacity`
	}

	query += ` ORDER BY slot_date, start_time`

	if q.Limit > 0 {
		query += ` LIMIT ` + next(q.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, classify(op, err)
	}
	defer rows.Close()

	var slots []*models.Slot
	for rows.Next() {
		slot, err := scanSlot(rows)
		if err != nil {
			return nil, classify(op, err)
		}
		slots = append(slots, slot)
	}
	if err := rows.Err(); err != nil {
		return nil, classify(op, err)
	}

	return slots, nil
}

// IncrementBooked reserves one seat. The WHERE clause re-checks capacity and
// the blocked flag so the counter stays correct even if the advisory lock was
// lost.
func (s *Storage) IncrementBooked(ctx context.Context, tx *sql.Tx, slotID string) (bool, error) {
	const op = "storage.postgres.IncrementBooked"

	res, err := tx.ExecContext(ctx,
		`UPDATE slots
		 SET booked_count = booked_count + 1, updated_at = NOW()
		 WHERE id=$1 AND NOT is_blocked AND booked_count < capacity`,
		slotID,
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

// DecrementBooked releases one seat, floored at zero.
func (s *Storage) DecrementBooked(ctx context.Context, tx *sql.Tx, slotID string) error {
	const op = "storage.postgres.DecrementBooked"

	_, err := tx.ExecContext(ctx,
		`UPDATE slots
		 SET booked_count = GREATEST(booked_count - 1, 0), updated_at = NOW()
		 WHERE id=$1`,
		slotID,
	)
	if err != nil {
		return classify(op, err)
	}

	return nil
}

func (s *Storage) SetSlotBlocked(ctx context.Context, slotID string, blocked bool, reason *string) error {
	const op = "storage.postgres.SetSlotBlocked"

	res, err := s.db.ExecContext(ctx,
		`UPDATE slots SET is_blocked=$1, block_reason=$2, updated_at=NOW() WHERE id=$3`,
		blocked, reason, slotID,
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

func (s *Storage) DeleteSlot(ctx context.Context, slotID string) error {
	const op = "storage.postgres.DeleteSlot"

	res, err := s.db.ExecContext(ctx,
		`DELETE FROM slots WHERE id=$1 AND booked_count = 0`, slotID)
	if err != nil {
		return classify(op, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n > 0 {
		return nil
	}

	var exists bool
	if err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM slots WHERE id=$1)`, slotID).Scan(&exists); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if exists {
		return fmt.Errorf("%s: %w", op, response.ErrSlotHasBookings)
	}

	return fmt.Errorf("%s: %w", op, response.ErrNotFound)
}
