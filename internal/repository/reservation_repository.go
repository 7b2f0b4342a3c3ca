package repository

import (
    "context"
    "database/sql"
    "errors"

    "github.com/kkayomi/class-reservation/internal/model"
)

// ReservationRepo provides CRUD and lifecycle operations for reservations.
// Status transitions are enforced with conditional UPDATE statements so
// that two admins racing on the same row cannot both win: the statement
// carries the expected current status in its WHERE clause and a zero
// rows-affected result is diagnosed by re-reading the row. All timestamp
// columns are stored in UTC.
type ReservationRepo struct {
    db *sql.DB
}

// NewReservationRepo returns a new ReservationRepo bound to the given database.
func NewReservationRepo(db *sql.DB) *ReservationRepo { return &ReservationRepo{db: db} }

const reservationCols = `id, user_id, class_id, schedule_id, customer_name, customer_phone,
depositor_name, DATE_FORMAT(desired_date, '%Y-%m-%d'), TIME_FORMAT(desired_time, '%H:%i'),
num_people, customer_memo, status, admin_memo, reject_reason, cancel_reason, change_token,
calendar_event_id, sheet_row, confirmed_at, rejected_at, cancelled_at, created_at, updated_at`

func scanReservation(row interface{ Scan(...interface{}) error }) (*model.Reservation, error) {
    var (
        r          model.Reservation
        userID     sql.NullInt64
        scheduleID sql.NullInt64
        custMemo   sql.NullString
        adminMemo  sql.NullString
        rejectRsn  sql.NullString
        cancelRsn  sql.NullString
        calEvent   sql.NullString
        sheetRow   sql.NullInt64
        confirmed  sql.NullTime
        rejected   sql.NullTime
        cancelled  sql.NullTime
    )
    err := row.Scan(
        &r.ID, &userID, &r.ClassID, &scheduleID, &r.CustomerName, &r.CustomerPhone,
        &r.DepositorName, &r.DesiredDate, &r.DesiredTime,
        &r.NumPeople, &custMemo, &r.Status, &adminMemo, &rejectRsn, &cancelRsn, &r.ChangeToken,
        &calEvent, &sheetRow, &confirmed, &rejected, &cancelled, &r.CreatedAt, &r.UpdatedAt,
    )
    if err != nil {
        return nil, err
    }
    if userID.Valid {
        v := uint64(userID.Int64)
        r.UserID = &v
    }
    if scheduleID.Valid {
        v := uint64(scheduleID.Int64)
        r.ScheduleID = &v
    }
    if custMemo.Valid {
        v := custMemo.String
        r.CustomerMemo = &v
    }
    if adminMemo.Valid {
        v := adminMemo.String
        r.AdminMemo = &v
    }
    if rejectRsn.Valid {
        v := rejectRsn.String
        r.RejectReason = &v
    }
    if cancelRsn.Valid {
        v := cancelRsn.String
        r.CancelReason = &v
    }
    if calEvent.Valid {
        v := calEvent.String
        r.CalendarEventID = &v
    }
    if sheetRow.Valid {
        v := uint32(sheetRow.Int64)
        r.SheetRow = &v
    }
    if confirmed.Valid {
        t := confirmed.Time
        r.ConfirmedAt = &t
    }
    if rejected.Valid {
        t := rejected.Time
        r.RejectedAt = &t
    }
    if cancelled.Valid {
        t := cancelled.Time
        r.CancelledAt = &t
    }
    return &r, nil
}

// Create inserts a new pending reservation. When the reservation targets
// a schedule slot the insert runs in a transaction that first locks the
// slot row and verifies that the party fits into the remaining seats, so
// two concurrent bookings cannot oversell the slot. Returns ErrNotFound
// for a missing or inactive slot and ErrCapacityExceeded when the seats
// do not fit. The populated row (including generated ID and timestamps)
// is written back into res.
func (r *ReservationRepo) Create(ctx context.Context, res *model.Reservation) error {
    tx, err := r.db.BeginTx(ctx, nil)
    if err != nil {
        return err
    }
    committed := false
    defer func() {
        if !committed {
            _ = tx.Rollback()
        }
    }()

    if res.ScheduleID != nil {
        cap, booked, err := slotCapacity(ctx, tx, *res.ScheduleID, true)
        if err != nil {
            return err
        }
        if booked+res.NumPeople > cap {
            return ErrCapacityExceeded
        }
    }

    const ins = `INSERT INTO reservations
(user_id, class_id, schedule_id, customer_name, customer_phone, depositor_name,
 desired_date, desired_time, num_people, customer_memo, status, change_token)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 'pending', ?)`
    result, err := tx.ExecContext(ctx, ins,
        res.UserID, res.ClassID, res.ScheduleID, res.CustomerName, res.CustomerPhone,
        res.DepositorName, res.DesiredDate, res.DesiredTime, res.NumPeople,
        res.CustomerMemo, res.ChangeToken)
    if err != nil {
        return err
    }
    id, err := result.LastInsertId()
    if err != nil {
        return err
    }

    // Query back the full row to populate timestamps and defaults.
    row, err := getReservation(ctx, tx, uint64(id))
    if err != nil {
        return err
    }
    if err := tx.Commit(); err != nil {
        return err
    }
    committed = true
    *res = *row
    return nil
}

func getReservation(ctx context.Context, q queryer, id uint64) (*model.Reservation, error) {
    row := q.QueryRowContext(ctx, "SELECT "+reservationCols+" FROM reservations WHERE id=? LIMIT 1", id)
    res, err := scanReservation(row)
    if errors.Is(err, sql.ErrNoRows) {
        return nil, ErrNotFound
    }
    return res, err
}

// GetByID fetches one reservation.
func (r *ReservationRepo) GetByID(ctx context.Context, id uint64) (*model.Reservation, error) {
    return getReservation(ctx, r.db, id)
}

// GetByChangeToken fetches a reservation by its opaque change token.
func (r *ReservationRepo) GetByChangeToken(ctx context.Context, token string) (*model.Reservation, error) {
    row := r.db.QueryRowContext(ctx, "SELECT "+reservationCols+" FROM reservations WHERE change_token=? LIMIT 1", token)
    res, err := scanReservation(row)
    if errors.Is(err, sql.ErrNoRows) {
        return nil, ErrNotFound
    }
    return res, err
}

// ListByUser returns a customer's reservations, newest first.
func (r *ReservationRepo) ListByUser(ctx context.Context, userID uint64) ([]*model.Reservation, error) {
    return r.list(ctx, "WHERE user_id=?", userID)
}

// List returns reservations for the admin dashboard, newest first.
// An empty status returns every reservation.
func (r *ReservationRepo) List(ctx context.Context, status model.ReservationStatus) ([]*model.Reservation, error) {
    if status == "" {
        return r.list(ctx, "")
    }
    return r.list(ctx, "WHERE status=?", status)
}

func (r *ReservationRepo) list(ctx context.Context, cond string, args ...interface{}) ([]*model.Reservation, error) {
    q := "SELECT " + reservationCols + " FROM reservations " + cond + " ORDER BY created_at DESC, id DESC"
    rows, err := r.db.QueryContext(ctx, q, args...)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    var out []*model.Reservation
    for rows.Next() {
        res, err := scanReservation(rows)
        if err != nil {
            return nil, err
        }
        out = append(out, res)
    }
    return out, rows.Err()
}

// Confirm moves a pending reservation to confirmed and stamps
// confirmed_at. Racing updates lose: if the row is no longer pending the
// re-read yields a TransitionError naming the actual status.
func (r *ReservationRepo) Confirm(ctx context.Context, id uint64) (*model.Reservation, error) {
    return r.transition(ctx, id, model.StatusConfirmed,
        "UPDATE reservations SET status='confirmed', confirmed_at=NOW() WHERE id=? AND status='pending'", id)
}

// Reject moves a pending reservation to rejected and records the reason.
func (r *ReservationRepo) Reject(ctx context.Context, id uint64, reason string) (*model.Reservation, error) {
    return r.transition(ctx, id, model.StatusRejected,
        "UPDATE reservations SET status='rejected', reject_reason=?, rejected_at=NOW() WHERE id=? AND status='pending'",
        reason, id)
}

// transition runs a conditional status UPDATE and diagnoses a zero
// rows-affected result by re-reading the row. A zero result is always an
// error, even when the row already carries the target status: a repeated
// confirm or reject is a no-op transition and must not hand the caller a
// fresh success to re-run side effects on.
func (r *ReservationRepo) transition(ctx context.Context, id uint64, to model.ReservationStatus, query string, args ...interface{}) (*model.Reservation, error) {
    result, err := r.db.ExecContext(ctx, query, args...)
    if err != nil {
        return nil, err
    }
    n, err := result.RowsAffected()
    if err != nil {
        return nil, err
    }
    cur, err := getReservation(ctx, r.db, id)
    if err != nil {
        return nil, err
    }
    if n == 0 {
        return nil, &model.TransitionError{From: cur.Status, To: to}
    }
    return cur, nil
}

// Cancel moves a pending or confirmed reservation to cancelled, stamps
// cancelled_at, clears any stale reject_reason from an earlier declined
// cancellation request, and force-rejects the reservation's pending
// change requests in the same transaction. It returns the updated row
// and the number of change requests that were cascaded.
func (r *ReservationRepo) Cancel(ctx context.Context, id uint64) (*model.Reservation, int64, error) {
    tx, err := r.db.BeginTx(ctx, nil)
    if err != nil {
        return nil, 0, err
    }
    committed := false
    defer func() {
        if !committed {
            _ = tx.Rollback()
        }
    }()

    result, err := tx.ExecContext(ctx,
        "UPDATE reservations SET status='cancelled', cancelled_at=NOW(), reject_reason=NULL WHERE id=? AND status IN ('pending','confirmed')",
        id)
    if err != nil {
        return nil, 0, err
    }
    n, err := result.RowsAffected()
    if err != nil {
        return nil, 0, err
    }
    cur, err := getReservation(ctx, tx, id)
    if err != nil {
        return nil, 0, err
    }
    if n == 0 {
        return nil, 0, &model.TransitionError{From: cur.Status, To: model.StatusCancelled}
    }

    cascade, err := tx.ExecContext(ctx,
        "UPDATE change_requests SET status='rejected', reject_reason=?, processed_at=NOW() WHERE reservation_id=? AND status='pending'",
        model.CancelCascadeReason, id)
    if err != nil {
        return nil, 0, err
    }
    cascaded, err := cascade.RowsAffected()
    if err != nil {
        return nil, 0, err
    }
    if err := tx.Commit(); err != nil {
        return nil, 0, err
    }
    committed = true
    return cur, cascaded, nil
}

// SetCancelRequest records a customer's cancellation request on a
// confirmed reservation by storing the reason (the empty string is a
// valid "no reason given" request) and clearing the reject reason left
// by any earlier declined request. The reservation stays confirmed
// until an admin decides.
func (r *ReservationRepo) SetCancelRequest(ctx context.Context, id uint64, reason string) (*model.Reservation, error) {
    result, err := r.db.ExecContext(ctx,
        "UPDATE reservations SET cancel_reason=?, reject_reason=NULL WHERE id=? AND status='confirmed'",
        reason, id)
    if err != nil {
        return nil, err
    }
    n, err := result.RowsAffected()
    if err != nil {
        return nil, err
    }
    cur, err := getReservation(ctx, r.db, id)
    if err != nil {
        return nil, err
    }
    if n == 0 && cur.Status != model.StatusConfirmed {
        return nil, &model.TransitionError{From: cur.Status, To: model.StatusCancelled}
    }
    return cur, nil
}

// RejectCancelRequest declines a pending cancellation request: the
// reservation stays confirmed, cancel_reason is cleared and the admin's
// reason is recorded. Returns ErrValidation when no request is pending.
func (r *ReservationRepo) RejectCancelRequest(ctx context.Context, id uint64, reason string) (*model.Reservation, error) {
    result, err := r.db.ExecContext(ctx,
        "UPDATE reservations SET cancel_reason=NULL, reject_reason=? WHERE id=? AND status='confirmed' AND cancel_reason IS NOT NULL",
        reason, id)
    if err != nil {
        return nil, err
    }
    n, err := result.RowsAffected()
    if err != nil {
        return nil, err
    }
    if n == 0 {
        if _, err := getReservation(ctx, r.db, id); err != nil {
            return nil, err
        }
        return nil, ErrValidation
    }
    return getReservation(ctx, r.db, id)
}

// UpdateAdminMemo sets or clears the admin memo.
func (r *ReservationRepo) UpdateAdminMemo(ctx context.Context, id uint64, memo *string) error {
    result, err := r.db.ExecContext(ctx, "UPDATE reservations SET admin_memo=? WHERE id=?", memo, id)
    if err != nil {
        return err
    }
    n, err := result.RowsAffected()
    if err != nil {
        return err
    }
    if n == 0 {
        if _, err := getReservation(ctx, r.db, id); err != nil {
            return err
        }
    }
    return nil
}

// SetCalendarEvent stores the external calendar event ID after a
// successful sync.
func (r *ReservationRepo) SetCalendarEvent(ctx context.Context, id uint64, eventID string) error {
    _, err := r.db.ExecContext(ctx, "UPDATE reservations SET calendar_event_id=? WHERE id=?", eventID, id)
    return err
}

// SetSheetRow stores the external spreadsheet row number after a
// successful sync.
func (r *ReservationRepo) SetSheetRow(ctx context.Context, id uint64, row uint32) error {
    _, err := r.db.ExecContext(ctx, "UPDATE reservations SET sheet_row=? WHERE id=?", row, id)
    return err
}

// ClearSheetRow removes a reservation's spreadsheet row number and
// renumbers every reservation that pointed below the deleted row, so the
// stored row numbers keep matching the spreadsheet after the external
// delete shifts its rows up.
func (r *ReservationRepo) ClearSheetRow(ctx context.Context, id uint64, row uint32) error {
    tx, err := r.db.BeginTx(ctx, nil)
    if err != nil {
        return err
    }
    committed := false
    defer func() {
        if !committed {
            _ = tx.Rollback()
        }
    }()
    if _, err := tx.ExecContext(ctx, "UPDATE reservations SET sheet_row=NULL WHERE id=?", id); err != nil {
        return err
    }
    if _, err := tx.ExecContext(ctx, "UPDATE reservations SET sheet_row=sheet_row-1 WHERE sheet_row > ?", row); err != nil {
        return err
    }
    if err := tx.Commit(); err != nil {
        return err
    }
    committed = true
    return nil
}
