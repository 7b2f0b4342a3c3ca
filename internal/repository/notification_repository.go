package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/kkayomi/class-reservation/internal/model"
)

// NotificationRepo stores the audit trail of dispatched messages.
type NotificationRepo struct{ DB *sql.DB }

func NewNotificationRepo(db *sql.DB) *NotificationRepo { return &NotificationRepo{DB: db} }

const notificationCols = "id, reservation_id, type, channel, recipient_phone, message, status, sent_at, error_message, created_at"

func scanNotification(row interface{ Scan(...interface{}) error }) (model.Notification, error) {
	var (
		n      model.Notification
		sentAt sql.NullTime
		errMsg sql.NullString
	)
	err := row.Scan(&n.ID, &n.ReservationID, &n.Type, &n.Channel, &n.RecipientPhone,
		&n.Message, &n.Status, &sentAt, &errMsg, &n.CreatedAt)
	if err != nil {
		return n, err
	}
	if sentAt.Valid {
		t := sentAt.Time
		n.SentAt = &t
	}
	if errMsg.Valid {
		m := errMsg.String
		n.ErrorMessage = &m
	}
	return n, nil
}

// Insert records one dispatch attempt and populates the generated ID.
func (r *NotificationRepo) Insert(ctx context.Context, n *model.Notification) error {
	var sentAt interface{}
	if n.SentAt != nil {
		sentAt = *n.SentAt
	}
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO notifications (reservation_id, type, channel, recipient_phone, message, status, sent_at, error_message) VALUES (?,?,?,?,?,?,?,?)",
		n.ReservationID, n.Type, n.Channel, n.RecipientPhone, n.Message, n.Status, sentAt, n.ErrorMessage)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	n.ID = uint64(id)
	return nil
}

// GetByID fetches one audit row.
func (r *NotificationRepo) GetByID(ctx context.Context, id uint64) (model.Notification, error) {
	row := r.DB.QueryRowContext(ctx, "SELECT "+notificationCols+" FROM notifications WHERE id=? LIMIT 1", id)
	n, err := scanNotification(row)
	if errors.Is(err, sql.ErrNoRows) {
		return n, ErrNotFound
	}
	return n, err
}

// List returns dispatch attempts, newest first. A non-zero reservationID
// limits the result to one reservation's messages.
func (r *NotificationRepo) List(ctx context.Context, reservationID uint64, limit int) ([]model.Notification, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	q := "SELECT " + notificationCols + " FROM notifications"
	var args []interface{}
	if reservationID != 0 {
		q += " WHERE reservation_id=?"
		args = append(args, reservationID)
	}
	q += " ORDER BY id DESC LIMIT ?"
	args = append(args, limit)
	rows, err := r.DB.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Notification
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}
