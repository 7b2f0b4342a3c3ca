// Package notification renders and delivers lifecycle messages to
// customers. Kakao Alimtalk is the primary channel; plain SMS is the
// fallback when Kakao is unconfigured or rejects the message. Every
// attempt is recorded in the notifications table so admins can audit and
// manually resend. Delivery failure never fails the operation that
// triggered the message.
package notification

import (
	"context"
	"log"
	"time"

	"github.com/kkayomi/class-reservation/internal/model"
)

// Channel is one delivery transport.
type Channel interface {
	Send(ctx context.Context, phone, message string) error
}

// AuditStore records dispatch attempts.
type AuditStore interface {
	Insert(ctx context.Context, n *model.Notification) error
}

// Dispatcher fans a notification request out to the first channel that
// accepts it.
type Dispatcher struct {
	Kakao     Channel
	SMS       Channel
	Store     AuditStore
	Templates TemplateConfig
}

func NewDispatcher(kakao, sms Channel, store AuditStore, tpl TemplateConfig) *Dispatcher {
	return &Dispatcher{Kakao: kakao, SMS: sms, Store: store, Templates: tpl}
}

// Send renders the message for req and tries Kakao first, then SMS.
// One audit row is written per attempt. The result reports which
// channel succeeded; it is informational only and callers must not fail
// their own operation on it.
func (d *Dispatcher) Send(ctx context.Context, req model.NotificationRequest) model.NotificationResult {
	return d.Deliver(ctx, req.ReservationID, req.Type, req.RecipientPhone, Render(d.Templates, req))
}

// Deliver sends an already-rendered message through the channel chain.
// Admin resends use it to replay a stored message verbatim.
func (d *Dispatcher) Deliver(ctx context.Context, reservationID uint64, typ model.NotificationType, phone, message string) model.NotificationResult {
	if err := d.attempt(ctx, d.Kakao, model.ChannelKakao, reservationID, typ, phone, message); err == nil {
		return model.NotificationResult{Success: true, Channel: model.ChannelKakao}
	} else {
		log.Printf("notify: kakao send failed for reservation %d: %v", reservationID, err)
	}

	if err := d.attempt(ctx, d.SMS, model.ChannelSMS, reservationID, typ, phone, message); err == nil {
		return model.NotificationResult{Success: true, Channel: model.ChannelSMS}
	} else {
		log.Printf("notify: sms send failed for reservation %d: %v", reservationID, err)
		return model.NotificationResult{Success: false, Channel: model.ChannelSMS, Err: err.Error()}
	}
}

func (d *Dispatcher) attempt(ctx context.Context, ch Channel, channel model.NotificationChannel, reservationID uint64, typ model.NotificationType, phone, message string) error {
	err := ch.Send(ctx, phone, message)

	row := model.Notification{
		ReservationID:  reservationID,
		Type:           typ,
		Channel:        channel,
		RecipientPhone: phone,
		Message:        message,
		Status:         model.NotificationSent,
	}
	if err != nil {
		row.Status = model.NotificationFailed
		msg := err.Error()
		row.ErrorMessage = &msg
	} else {
		now := time.Now().UTC()
		row.SentAt = &now
	}
	if d.Store != nil {
		if ierr := d.Store.Insert(ctx, &row); ierr != nil {
			log.Printf("notify: audit insert failed for reservation %d: %v", reservationID, ierr)
		}
	}
	return err
}
