package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/kkayomi/class-reservation/internal/model"
)

// ScheduleRepo provides CRUD operations for class schedule slots and the
// capacity queries used by the booking pipeline. A slot is the unique
// triple (class_id, schedule_date, start_time); its effective capacity is
// the per-slot override when present, otherwise the class default.
type ScheduleRepo struct{ DB *sql.DB }

func NewScheduleRepo(db *sql.DB) *ScheduleRepo { return &ScheduleRepo{DB: db} }

const scheduleCols = "id, class_id, DATE_FORMAT(schedule_date, '%Y-%m-%d'), TIME_FORMAT(start_time, '%H:%i'), max_participants, is_active, created_at, updated_at"

func scanSchedule(row interface{ Scan(...interface{}) error }) (model.Schedule, error) {
	var (
		s   model.Schedule
		cap sql.NullInt64
	)
	err := row.Scan(&s.ID, &s.ClassID, &s.ScheduleDate, &s.StartTime, &cap, &s.IsActive, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return s, err
	}
	if cap.Valid {
		v := uint32(cap.Int64)
		s.MaxParticipants = &v
	}
	return s, nil
}

// CreateBulk inserts multiple slots for one class in a single statement.
// Any slot colliding with an existing (class, date, time) triple fails
// the whole batch with ErrConflict. Passing an empty slice has no effect.
func (r *ScheduleRepo) CreateBulk(ctx context.Context, classID uint64, slots []model.Schedule) error {
	if len(slots) == 0 {
		return nil
	}
	query := "INSERT INTO class_schedules (class_id, schedule_date, start_time, max_participants) VALUES "
	args := make([]interface{}, 0, len(slots)*4)
	for i, s := range slots {
		if i > 0 {
			query += ","
		}
		query += "(?, ?, ?, ?)"
		args = append(args, classID, s.ScheduleDate, s.StartTime, s.MaxParticipants)
	}
	_, err := r.DB.ExecContext(ctx, query, args...)
	if err != nil && strings.Contains(err.Error(), "1062") {
		return ErrConflict
	}
	return err
}

// GetByID fetches one slot.
func (r *ScheduleRepo) GetByID(ctx context.Context, id uint64) (model.Schedule, error) {
	row := r.DB.QueryRowContext(ctx, "SELECT "+scheduleCols+" FROM class_schedules WHERE id=? LIMIT 1", id)
	s, err := scanSchedule(row)
	if errors.Is(err, sql.ErrNoRows) {
		return s, ErrNotFound
	}
	return s, err
}

// Update rewrites a slot's date, time, capacity override and active flag.
func (r *ScheduleRepo) Update(ctx context.Context, s *model.Schedule) error {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE class_schedules SET schedule_date=?, start_time=?, max_participants=?, is_active=? WHERE id=?",
		s.ScheduleDate, s.StartTime, s.MaxParticipants, s.IsActive, s.ID)
	if err != nil {
		if strings.Contains(err.Error(), "1062") {
			return ErrConflict
		}
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		if _, err := r.GetByID(ctx, s.ID); err != nil {
			return err
		}
	}
	return nil
}

// Delete removes a slot. Slots that still hold pending or confirmed
// reservations cannot be removed and yield ErrConflict; past reservations
// keep their booked date/time because schedule_id is nulled on delete.
func (r *ScheduleRepo) Delete(ctx context.Context, id uint64) error {
	var active uint32
	err := r.DB.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM reservations WHERE schedule_id=? AND status IN ('pending','confirmed')",
		id).Scan(&active)
	if err != nil {
		return err
	}
	if active > 0 {
		return ErrConflict
	}
	res, err := r.DB.ExecContext(ctx, "DELETE FROM class_schedules WHERE id=?", id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// ListMonth returns the public browse view of a class's slots for one
// calendar month: each active slot with its effective capacity and the
// live count of seats held by pending and confirmed reservations.
func (r *ScheduleRepo) ListMonth(ctx context.Context, classID uint64, year, month int) ([]model.ScheduleSlot, error) {
	const q = `SELECT cs.id,
       DATE_FORMAT(cs.schedule_date, '%Y-%m-%d'),
       TIME_FORMAT(cs.start_time, '%H:%i'),
       COALESCE(cs.max_participants, c.max_participants) AS max_seats,
       COALESCE(SUM(CASE WHEN r.status IN ('pending','confirmed') THEN r.num_people ELSE 0 END), 0)
FROM class_schedules cs
JOIN classes c ON c.id = cs.class_id
LEFT JOIN reservations r ON r.schedule_id = cs.id
WHERE cs.class_id = ? AND cs.is_active = 1
  AND YEAR(cs.schedule_date) = ? AND MONTH(cs.schedule_date) = ?
GROUP BY cs.id, cs.schedule_date, cs.start_time, max_seats
ORDER BY cs.schedule_date, cs.start_time`
	rows, err := r.DB.QueryContext(ctx, q, classID, year, month)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.ScheduleSlot
	for rows.Next() {
		var s model.ScheduleSlot
		if err := rows.Scan(&s.ScheduleID, &s.ScheduleDate, &s.StartTime, &s.MaxSeats, &s.ReservedCount); err != nil {
			return nil, err
		}
		s.RemainingSeats = model.RemainingSeats(s.MaxSeats, s.ReservedCount)
		out = append(out, s)
	}
	return out, rows.Err()
}

// CheckCapacity reports whether a slot can take numPeople more seats.
// It is advisory only: the authoritative check happens inside the booking
// transaction with the slot row locked. Returns ErrNotFound for missing
// or inactive slots and ErrCapacityExceeded when the seats do not fit.
func (r *ScheduleRepo) CheckCapacity(ctx context.Context, scheduleID uint64, numPeople uint32) error {
	cap, booked, err := slotCapacity(ctx, r.DB, scheduleID, false)
	if err != nil {
		return err
	}
	if booked+numPeople > cap {
		return ErrCapacityExceeded
	}
	return nil
}

// queryer abstracts *sql.DB and *sql.Tx for the capacity helpers.
type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// slotCapacity returns a slot's effective capacity and the seats already
// held by active reservations. With forUpdate set (inside a transaction)
// the slot row is locked so concurrent bookings serialize on it.
func slotCapacity(ctx context.Context, q queryer, scheduleID uint64, forUpdate bool) (cap, booked uint32, err error) {
	sel := `SELECT COALESCE(cs.max_participants, c.max_participants)
FROM class_schedules cs
JOIN classes c ON c.id = cs.class_id
WHERE cs.id = ? AND cs.is_active = 1`
	if forUpdate {
		sel += " FOR UPDATE"
	}
	if err = q.QueryRowContext(ctx, sel, scheduleID).Scan(&cap); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, 0, ErrNotFound
		}
		return 0, 0, err
	}
	err = q.QueryRowContext(ctx,
		"SELECT COALESCE(SUM(num_people),0) FROM reservations WHERE schedule_id=? AND status IN ('pending','confirmed')",
		scheduleID).Scan(&booked)
	if err != nil {
		return 0, 0, err
	}
	return cap, booked, nil
}
