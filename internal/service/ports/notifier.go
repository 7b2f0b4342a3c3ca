package ports

import (
	"context"

	"github.com/kkayomi/class-reservation/internal/model"
)

// Notifier delivers one lifecycle message to a customer. The result is
// informational; implementations never make the caller fail.
type Notifier interface {
	Send(ctx context.Context, req model.NotificationRequest) model.NotificationResult
}

// RawNotifier replays an already-rendered message through the channel
// chain. Admin resends use it so the customer gets the original text.
type RawNotifier interface {
	Deliver(ctx context.Context, reservationID uint64, typ model.NotificationType, phone, message string) model.NotificationResult
}
