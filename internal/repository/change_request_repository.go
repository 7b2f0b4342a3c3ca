package repository

import (
    "context"
    "database/sql"
    "errors"

    "github.com/kkayomi/class-reservation/internal/model"
)

// ChangeRequestRepo manages date-change requests against confirmed
// reservations. Creation and approval both run multi-statement
// transactions with the parent reservation row locked: creation so the
// one-pending-per-reservation rule cannot be raced, approval so the
// reservation's date, time and slot migrate atomically with the request
// settling.
type ChangeRequestRepo struct {
    db *sql.DB
}

// NewChangeRequestRepo returns a new ChangeRequestRepo bound to the given database.
func NewChangeRequestRepo(db *sql.DB) *ChangeRequestRepo { return &ChangeRequestRepo{db: db} }

const changeRequestCols = `id, reservation_id, schedule_id,
DATE_FORMAT(original_date, '%Y-%m-%d'), TIME_FORMAT(original_time, '%H:%i'),
DATE_FORMAT(requested_date, '%Y-%m-%d'), TIME_FORMAT(requested_time, '%H:%i'),
reason, status, reject_reason, processed_at, created_at, updated_at`

func scanChangeRequest(row interface{ Scan(...interface{}) error }) (*model.ChangeRequest, error) {
    var (
        cr         model.ChangeRequest
        scheduleID sql.NullInt64
        origDate   sql.NullString
        origTime   sql.NullString
        reason     sql.NullString
        rejectRsn  sql.NullString
        processed  sql.NullTime
    )
    err := row.Scan(
        &cr.ID, &cr.ReservationID, &scheduleID,
        &origDate, &origTime, &cr.RequestedDate, &cr.RequestedTime,
        &reason, &cr.Status, &rejectRsn, &processed, &cr.CreatedAt, &cr.UpdatedAt,
    )
    if err != nil {
        return nil, err
    }
    if scheduleID.Valid {
        v := uint64(scheduleID.Int64)
        cr.ScheduleID = &v
    }
    if origDate.Valid {
        v := origDate.String
        cr.OriginalDate = &v
    }
    if origTime.Valid {
        v := origTime.String
        cr.OriginalTime = &v
    }
    if reason.Valid {
        v := reason.String
        cr.Reason = &v
    }
    if rejectRsn.Valid {
        v := rejectRsn.String
        cr.RejectReason = &v
    }
    if processed.Valid {
        t := processed.Time
        cr.ProcessedAt = &t
    }
    return &cr, nil
}

// Create opens a change request for a confirmed reservation. Within one
// transaction it locks the reservation row, verifies the reservation is
// still confirmed, enforces the single-pending rule, optionally verifies
// the target slot has room for the party, captures the reservation's
// current date/time for the audit trail and inserts the request.
//
// Returns ErrNotFound for a missing reservation, a TransitionError when
// the reservation is not confirmed, ErrDuplicatePending when an open
// request already exists and ErrCapacityExceeded when the target slot
// cannot take the party.
func (r *ChangeRequestRepo) Create(ctx context.Context, cr *model.ChangeRequest) error {
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

    var (
        status    model.ReservationStatus
        curDate   string
        curTime   string
        numPeople uint32
    )
    err = tx.QueryRowContext(ctx,
        `SELECT status, DATE_FORMAT(desired_date, '%Y-%m-%d'), TIME_FORMAT(desired_time, '%H:%i'), num_people
FROM reservations WHERE id=? FOR UPDATE`,
        cr.ReservationID).Scan(&status, &curDate, &curTime, &numPeople)
    if errors.Is(err, sql.ErrNoRows) {
        return ErrNotFound
    }
    if err != nil {
        return err
    }
    if status != model.StatusConfirmed {
        return &model.TransitionError{From: status, To: model.StatusConfirmed}
    }

    var pending uint32
    err = tx.QueryRowContext(ctx,
        "SELECT COUNT(*) FROM change_requests WHERE reservation_id=? AND status='pending'",
        cr.ReservationID).Scan(&pending)
    if err != nil {
        return err
    }
    if pending > 0 {
        return ErrDuplicatePending
    }

    if cr.ScheduleID != nil {
        cap, booked, err := slotCapacity(ctx, tx, *cr.ScheduleID, true)
        if err != nil {
            return err
        }
        if booked+numPeople > cap {
            return ErrCapacityExceeded
        }
    }

    cr.OriginalDate = &curDate
    cr.OriginalTime = &curTime

    const ins = `INSERT INTO change_requests
(reservation_id, schedule_id, original_date, original_time, requested_date, requested_time, reason, status)
VALUES (?, ?, ?, ?, ?, ?, ?, 'pending')`
    result, err := tx.ExecContext(ctx, ins,
        cr.ReservationID, cr.ScheduleID, cr.OriginalDate, cr.OriginalTime,
        cr.RequestedDate, cr.RequestedTime, cr.Reason)
    if err != nil {
        return err
    }
    id, err := result.LastInsertId()
    if err != nil {
        return err
    }
    row, err := getChangeRequest(ctx, tx, uint64(id))
    if err != nil {
        return err
    }
    if err := tx.Commit(); err != nil {
        return err
    }
    committed = true
    *cr = *row
    return nil
}

func getChangeRequest(ctx context.Context, q queryer, id uint64) (*model.ChangeRequest, error) {
    row := q.QueryRowContext(ctx, "SELECT "+changeRequestCols+" FROM change_requests WHERE id=? LIMIT 1", id)
    cr, err := scanChangeRequest(row)
    if errors.Is(err, sql.ErrNoRows) {
        return nil, ErrNotFound
    }
    return cr, err
}

// GetByID fetches one change request.
func (r *ChangeRequestRepo) GetByID(ctx context.Context, id uint64) (*model.ChangeRequest, error) {
    return getChangeRequest(ctx, r.db, id)
}

// List returns change requests for the admin dashboard, newest first.
// An empty status returns every request.
func (r *ChangeRequestRepo) List(ctx context.Context, status model.ChangeRequestStatus) ([]*model.ChangeRequest, error) {
    q := "SELECT " + changeRequestCols + " FROM change_requests"
    var args []interface{}
    if status != "" {
        q += " WHERE status=?"
        args = append(args, status)
    }
    q += " ORDER BY created_at DESC, id DESC"
    rows, err := r.db.QueryContext(ctx, q, args...)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    var out []*model.ChangeRequest
    for rows.Next() {
        cr, err := scanChangeRequest(rows)
        if err != nil {
            return nil, err
        }
        out = append(out, cr)
    }
    return out, rows.Err()
}

// ListByReservation returns a reservation's change requests, newest first.
func (r *ChangeRequestRepo) ListByReservation(ctx context.Context, reservationID uint64) ([]*model.ChangeRequest, error) {
    rows, err := r.db.QueryContext(ctx,
        "SELECT "+changeRequestCols+" FROM change_requests WHERE reservation_id=? ORDER BY created_at DESC, id DESC",
        reservationID)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    var out []*model.ChangeRequest
    for rows.Next() {
        cr, err := scanChangeRequest(rows)
        if err != nil {
            return nil, err
        }
        out = append(out, cr)
    }
    return out, rows.Err()
}

// Approve settles a pending request and migrates the reservation in one
// transaction: the request row is locked and must still be pending, the
// reservation row is locked and must still be confirmed, the target slot
// (when the request names one) must have room for the party, then the
// reservation's desired_date, desired_time and schedule_id are rewritten
// and the request is marked approved. Returns the settled request and
// the migrated reservation.
//
// Returns ErrAlreadyProcessed when the request was settled by a racing
// admin (or the cancel cascade) and ErrCapacityExceeded when the target
// slot filled up since the request was made.
func (r *ChangeRequestRepo) Approve(ctx context.Context, id uint64) (*model.ChangeRequest, *model.Reservation, error) {
    tx, err := r.db.BeginTx(ctx, nil)
    if err != nil {
        return nil, nil, err
    }
    committed := false
    defer func() {
        if !committed {
            _ = tx.Rollback()
        }
    }()

    row := tx.QueryRowContext(ctx, "SELECT "+changeRequestCols+" FROM change_requests WHERE id=? LIMIT 1 FOR UPDATE", id)
    cr, err := scanChangeRequest(row)
    if errors.Is(err, sql.ErrNoRows) {
        return nil, nil, ErrNotFound
    }
    if err != nil {
        return nil, nil, err
    }
    if cr.Status != model.ChangePending {
        return nil, nil, ErrAlreadyProcessed
    }

    var (
        status    model.ReservationStatus
        numPeople uint32
    )
    err = tx.QueryRowContext(ctx,
        "SELECT status, num_people FROM reservations WHERE id=? FOR UPDATE",
        cr.ReservationID).Scan(&status, &numPeople)
    if errors.Is(err, sql.ErrNoRows) {
        return nil, nil, ErrNotFound
    }
    if err != nil {
        return nil, nil, err
    }
    if status != model.StatusConfirmed {
        return nil, nil, &model.TransitionError{From: status, To: model.StatusConfirmed}
    }

    if cr.ScheduleID != nil {
        cap, booked, err := slotCapacity(ctx, tx, *cr.ScheduleID, true)
        if err != nil {
            return nil, nil, err
        }
        if booked+numPeople > cap {
            return nil, nil, ErrCapacityExceeded
        }
    }

    // A request without a target slot changes the date and time only;
    // the reservation keeps whatever slot it is already bound to.
    if cr.ScheduleID != nil {
        _, err = tx.ExecContext(ctx,
            "UPDATE reservations SET desired_date=?, desired_time=?, schedule_id=? WHERE id=?",
            cr.RequestedDate, cr.RequestedTime, cr.ScheduleID, cr.ReservationID)
    } else {
        _, err = tx.ExecContext(ctx,
            "UPDATE reservations SET desired_date=?, desired_time=? WHERE id=?",
            cr.RequestedDate, cr.RequestedTime, cr.ReservationID)
    }
    if err != nil {
        return nil, nil, err
    }
    _, err = tx.ExecContext(ctx,
        "UPDATE change_requests SET status='approved', processed_at=NOW() WHERE id=?", id)
    if err != nil {
        return nil, nil, err
    }

    settled, err := getChangeRequest(ctx, tx, id)
    if err != nil {
        return nil, nil, err
    }
    res, err := getReservation(ctx, tx, cr.ReservationID)
    if err != nil {
        return nil, nil, err
    }
    if err := tx.Commit(); err != nil {
        return nil, nil, err
    }
    committed = true
    return settled, res, nil
}

// Reject settles a pending request without touching the reservation.
// The conditional UPDATE loses to a racing settle, which is diagnosed as
// ErrAlreadyProcessed.
func (r *ChangeRequestRepo) Reject(ctx context.Context, id uint64, reason string) (*model.ChangeRequest, error) {
    result, err := r.db.ExecContext(ctx,
        "UPDATE change_requests SET status='rejected', reject_reason=?, processed_at=NOW() WHERE id=? AND status='pending'",
        reason, id)
    if err != nil {
        return nil, err
    }
    n, err := result.RowsAffected()
    if err != nil {
        return nil, err
    }
    cr, err := getChangeRequest(ctx, r.db, id)
    if err != nil {
        return nil, err
    }
    if n == 0 {
        return nil, ErrAlreadyProcessed
    }
    return cr, nil
}
