// Package service implements the booking rules on top of the ports
// interfaces. Services own the orchestration that spans storage, the
// external mirrors and the notification dispatcher; repositories own
// the transactional invariants.
package service

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kkayomi/class-reservation/internal/model"
	"github.com/kkayomi/class-reservation/internal/queue"
	"github.com/kkayomi/class-reservation/internal/repository"
	"github.com/kkayomi/class-reservation/internal/service/ports"
)

// ReservationService drives the reservation lifecycle. External sync and
// notification failures are logged and never fail the operation; the
// database is the source of truth.
type ReservationService struct {
	reservations ports.ReservationStore
	classes      ports.ClassStore
	schedules    ports.ScheduleStore
	notifier     ports.Notifier
	calendar     ports.Calendar
	sheets       ports.Sheets
	publisher    ports.EventPublisher
}

func NewReservationService(
	reservations ports.ReservationStore,
	classes ports.ClassStore,
	schedules ports.ScheduleStore,
	notifier ports.Notifier,
	calendar ports.Calendar,
	sheets ports.Sheets,
	publisher ports.EventPublisher,
) *ReservationService {
	return &ReservationService{
		reservations: reservations,
		classes:      classes,
		schedules:    schedules,
		notifier:     notifier,
		calendar:     calendar,
		sheets:       sheets,
		publisher:    publisher,
	}
}

// BookInput carries a new booking. ScheduleID is optional; when set the
// desired date and time are taken from the slot and seat capacity is
// enforced inside the insert transaction.
type BookInput struct {
	UserID        *uint64
	ClassID       uint64
	ScheduleID    *uint64
	DesiredDate   string
	DesiredTime   string
	CustomerName  string
	CustomerPhone string
	DepositorName string
	NumPeople     uint32
	CustomerMemo  *string
}

// Book creates a pending reservation, sends the approval message with
// the deposit instructions and publishes a created event.
func (s *ReservationService) Book(ctx context.Context, in BookInput) (*model.Reservation, error) {
	cls, err := s.classes.GetByID(ctx, in.ClassID)
	if err != nil {
		return nil, fmt.Errorf("get class: %w", err)
	}
	if !cls.IsActive {
		return nil, fmt.Errorf("%w: class is not open for booking", repository.ErrValidation)
	}

	if in.ScheduleID != nil {
		sched, err := s.schedules.GetByID(ctx, *in.ScheduleID)
		if err != nil {
			return nil, fmt.Errorf("get schedule: %w", err)
		}
		if sched.ClassID != in.ClassID {
			return nil, fmt.Errorf("%w: schedule does not belong to class", repository.ErrValidation)
		}
		if !sched.IsActive {
			return nil, fmt.Errorf("%w: schedule is closed", repository.ErrValidation)
		}
		in.DesiredDate = sched.ScheduleDate
		in.DesiredTime = sched.StartTime
	}

	res := &model.Reservation{
		UserID:        in.UserID,
		ClassID:       in.ClassID,
		ScheduleID:    in.ScheduleID,
		CustomerName:  in.CustomerName,
		CustomerPhone: in.CustomerPhone,
		DepositorName: in.DepositorName,
		DesiredDate:   in.DesiredDate,
		DesiredTime:   in.DesiredTime,
		NumPeople:     in.NumPeople,
		CustomerMemo:  in.CustomerMemo,
		ChangeToken:   uuid.NewString(),
	}
	if err := s.reservations.Create(ctx, res); err != nil {
		return nil, fmt.Errorf("create reservation: %w", err)
	}

	go s.notifier.Send(context.WithoutCancel(ctx), s.notifyReq(res, cls, model.NotifyApproval))
	s.publish(ctx, res, "created")
	return res, nil
}

// ApprovePayment confirms a pending reservation after the deposit
// arrives, mirrors it into the calendar and the spreadsheet ledger, and
// sends the confirmation message carrying the change-request link.
func (s *ReservationService) ApprovePayment(ctx context.Context, id uint64) (*model.Reservation, error) {
	res, err := s.reservations.Confirm(ctx, id)
	if err != nil {
		return nil, err
	}
	cls, err := s.classes.GetByID(ctx, res.ClassID)
	if err != nil {
		return nil, fmt.Errorf("get class: %w", err)
	}

	// Mirror into calendar and sheets concurrently; both are best-effort
	// and must finish before the response so the stored pointers are
	// visible to the admin who just clicked approve.
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		eventID, err := s.calendar.CreateEvent(ctx, s.calendarEvent(res, cls))
		if err != nil {
			log.Printf("reservation %d: calendar create failed: %v", res.ID, err)
			return
		}
		if err := s.reservations.SetCalendarEvent(ctx, res.ID, eventID); err != nil {
			log.Printf("reservation %d: store calendar event id failed: %v", res.ID, err)
			return
		}
		res.CalendarEventID = &eventID
	}()
	go func() {
		defer wg.Done()
		rowNum, err := s.sheets.AppendRow(ctx, s.sheetRow(res, cls))
		if err != nil {
			log.Printf("reservation %d: sheet append failed: %v", res.ID, err)
			return
		}
		if err := s.reservations.SetSheetRow(ctx, res.ID, rowNum); err != nil {
			log.Printf("reservation %d: store sheet row failed: %v", res.ID, err)
			return
		}
		res.SheetRow = &rowNum
	}()
	wg.Wait()

	req := s.notifyReq(res, cls, model.NotifyConfirmation)
	token := res.ChangeToken
	req.ChangeToken = &token
	go s.notifier.Send(context.WithoutCancel(ctx), req)
	s.publish(ctx, res, "confirmed")
	return res, nil
}

// RejectBooking declines a pending reservation. A reason is required so
// the customer message never goes out empty.
func (s *ReservationService) RejectBooking(ctx context.Context, id uint64, reason string) (*model.Reservation, error) {
	if reason == "" {
		return nil, fmt.Errorf("%w: reject_reason is required", repository.ErrValidation)
	}
	res, err := s.reservations.Reject(ctx, id, reason)
	if err != nil {
		return nil, err
	}
	cls, err := s.classes.GetByID(ctx, res.ClassID)
	if err != nil {
		return nil, fmt.Errorf("get class: %w", err)
	}
	go s.notifier.Send(context.WithoutCancel(ctx), s.notifyReq(res, cls, model.NotifyRejection))
	s.publish(ctx, res, "rejected")
	return res, nil
}

// Cancel moves a pending or confirmed reservation to cancelled. Pending
// change requests are force-rejected in the same transaction, the
// external calendar event and spreadsheet row are removed best-effort,
// and the cancellation message is sent. Admin cancellation and the
// approval of a customer's cancellation request both land here.
func (s *ReservationService) Cancel(ctx context.Context, id uint64) (*model.Reservation, int64, error) {
	res, cascaded, err := s.reservations.Cancel(ctx, id)
	if err != nil {
		return nil, 0, err
	}

	if res.CalendarEventID != nil {
		if err := s.calendar.DeleteEvent(ctx, *res.CalendarEventID); err != nil {
			log.Printf("reservation %d: calendar delete failed: %v", res.ID, err)
		}
	}
	if res.SheetRow != nil {
		row := *res.SheetRow
		if err := s.sheets.DeleteRow(ctx, row); err != nil {
			// Leave the stored row numbers untouched: the sheet did not
			// shift, so they still line up.
			log.Printf("reservation %d: sheet delete failed: %v", res.ID, err)
		} else if err := s.reservations.ClearSheetRow(ctx, res.ID, row); err != nil {
			log.Printf("reservation %d: sheet row renumber failed: %v", res.ID, err)
		}
	}

	if cls, err := s.classes.GetByID(ctx, res.ClassID); err == nil {
		go s.notifier.Send(context.WithoutCancel(ctx), s.notifyReq(res, cls, model.NotifyCancellation))
	} else {
		log.Printf("reservation %d: get class for cancel notification failed: %v", res.ID, err)
	}
	s.publish(ctx, res, "cancelled")
	return res, cascaded, nil
}

// SelfCancel handles a customer cancelling their own reservation. A
// pending reservation is cancelled outright; a confirmed one only gets
// a cancellation request recorded (the empty reason is valid) and waits
// for an admin decision.
func (s *ReservationService) SelfCancel(ctx context.Context, userID, id uint64, reason string) (*model.Reservation, error) {
	res, err := s.reservations.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if res.UserID == nil || *res.UserID != userID {
		return nil, repository.ErrForbidden
	}

	switch res.Status {
	case model.StatusPending:
		cancelled, _, err := s.Cancel(ctx, id)
		return cancelled, err
	case model.StatusConfirmed:
		updated, err := s.reservations.SetCancelRequest(ctx, id, reason)
		if err != nil {
			return nil, err
		}
		s.publish(ctx, updated, "cancel_requested")
		return updated, nil
	default:
		return nil, &model.TransitionError{From: res.Status, To: model.StatusCancelled}
	}
}

// defaultCancelRejectReason is used when an admin declines a
// cancellation request without giving a reason.
const defaultCancelRejectReason = "your cancellation request could not be accepted"

// RejectCancellation declines a customer's cancellation request. The
// reservation stays confirmed, the request is cleared and the reason is
// recorded and messaged to the customer.
func (s *ReservationService) RejectCancellation(ctx context.Context, id uint64, reason string) (*model.Reservation, error) {
	if reason == "" {
		reason = defaultCancelRejectReason
	}
	res, err := s.reservations.RejectCancelRequest(ctx, id, reason)
	if err != nil {
		return nil, err
	}
	if cls, err := s.classes.GetByID(ctx, res.ClassID); err == nil {
		go s.notifier.Send(context.WithoutCancel(ctx), s.notifyReq(res, cls, model.NotifyRejection))
	}
	s.publish(ctx, res, "cancel_rejected")
	return res, nil
}

// UpdateAdminMemo sets or clears the admin memo.
func (s *ReservationService) UpdateAdminMemo(ctx context.Context, id uint64, memo *string) error {
	return s.reservations.UpdateAdminMemo(ctx, id, memo)
}

// Get fetches one reservation without an ownership check (admin use).
func (s *ReservationService) Get(ctx context.Context, id uint64) (*model.Reservation, error) {
	return s.reservations.GetByID(ctx, id)
}

// GetForUser fetches one reservation and enforces ownership.
func (s *ReservationService) GetForUser(ctx context.Context, userID, id uint64) (*model.Reservation, error) {
	res, err := s.reservations.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if res.UserID == nil || *res.UserID != userID {
		return nil, repository.ErrForbidden
	}
	return res, nil
}

// ListByUser returns a customer's reservations, newest first.
func (s *ReservationService) ListByUser(ctx context.Context, userID uint64) ([]*model.Reservation, error) {
	return s.reservations.ListByUser(ctx, userID)
}

// List returns reservations for the admin dashboard, optionally
// filtered by status.
func (s *ReservationService) List(ctx context.Context, status model.ReservationStatus) ([]*model.Reservation, error) {
	return s.reservations.List(ctx, status)
}

func (s *ReservationService) notifyReq(res *model.Reservation, cls model.Class, typ model.NotificationType) model.NotificationRequest {
	return model.NotificationRequest{
		ReservationID:  res.ID,
		Type:           typ,
		RecipientPhone: res.CustomerPhone,
		CustomerName:   res.CustomerName,
		ClassName:      cls.Name,
		Date:           res.DesiredDate,
		Time:           res.DesiredTime,
		Price:          cls.Price * res.NumPeople,
		RejectReason:   res.RejectReason,
	}
}

func (s *ReservationService) calendarEvent(res *model.Reservation, cls model.Class) model.CalendarEvent {
	return model.CalendarEvent{
		ReservationID:   res.ID,
		ClassName:       cls.Name,
		CustomerName:    res.CustomerName,
		CustomerPhone:   res.CustomerPhone,
		Date:            res.DesiredDate,
		Time:            res.DesiredTime,
		DurationMinutes: cls.DurationMinutes,
		NumPeople:       res.NumPeople,
		Memo:            res.CustomerMemo,
	}
}

func (s *ReservationService) sheetRow(res *model.Reservation, cls model.Class) model.SheetRow {
	confirmed := ""
	if res.ConfirmedAt != nil {
		confirmed = res.ConfirmedAt.UTC().Format("2006-01-02 15:04")
	}
	return model.SheetRow{
		CreatedAt:     res.CreatedAt.UTC().Format("2006-01-02 15:04"),
		ConfirmedAt:   confirmed,
		ClassName:     cls.Name,
		CustomerName:  res.CustomerName,
		CustomerPhone: res.CustomerPhone,
		NumPeople:     res.NumPeople,
		Date:          res.DesiredDate,
		Time:          res.DesiredTime,
		Price:         cls.Price * res.NumPeople,
		Memo:          res.CustomerMemo,
	}
}

func (s *ReservationService) publish(ctx context.Context, res *model.Reservation, changeType string) {
	ev := queue.ChangeEvent{
		Entity:     "reservation",
		ID:         res.ID,
		ChangeType: changeType,
		Status:     string(res.Status),
		Customer:   res.CustomerName,
		Date:       res.DesiredDate,
		Time:       res.DesiredTime,
		OccurredAt: time.Now().UTC().Format(time.RFC3339),
	}
	if err := s.publisher.PublishChange(ctx, ev); err != nil {
		log.Printf("reservation %d: publish %s event failed: %v", res.ID, changeType, err)
	}
}
