package service

import (
	"context"

	"github.com/kkayomi/class-reservation/internal/model"
	"github.com/kkayomi/class-reservation/internal/service/ports"
)

// NotificationAdminService exposes the dispatch audit trail to admins
// and lets them replay a failed message verbatim.
type NotificationAdminService struct {
	notifications ports.NotificationStore
	raw           ports.RawNotifier
}

func NewNotificationAdminService(notifications ports.NotificationStore, raw ports.RawNotifier) *NotificationAdminService {
	return &NotificationAdminService{notifications: notifications, raw: raw}
}

// List returns dispatch attempts, optionally scoped to one reservation.
func (s *NotificationAdminService) List(ctx context.Context, reservationID uint64, limit int) ([]model.Notification, error) {
	return s.notifications.List(ctx, reservationID, limit)
}

// Resend replays a stored message through the channel chain. A fresh
// audit row is written for the new attempt; the result reports the
// channel that accepted it.
func (s *NotificationAdminService) Resend(ctx context.Context, id uint64) (model.NotificationResult, error) {
	row, err := s.notifications.GetByID(ctx, id)
	if err != nil {
		return model.NotificationResult{}, err
	}
	return s.raw.Deliver(ctx, row.ReservationID, row.Type, row.RecipientPhone, row.Message), nil
}
