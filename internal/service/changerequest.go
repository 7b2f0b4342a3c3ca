package service

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/kkayomi/class-reservation/internal/model"
	"github.com/kkayomi/class-reservation/internal/queue"
	"github.com/kkayomi/class-reservation/internal/repository"
	"github.com/kkayomi/class-reservation/internal/service/ports"
)

// ChangeRequestService drives the date-change workflow for confirmed
// reservations. Customers reach it either authenticated (by reservation
// ID) or through the opaque change token from their confirmation
// message; both paths converge on the same creation rules.
type ChangeRequestService struct {
	changes      ports.ChangeRequestStore
	reservations ports.ReservationStore
	classes      ports.ClassStore
	schedules    ports.ScheduleStore
	notifier     ports.Notifier
	calendar     ports.Calendar
	sheets       ports.Sheets
	publisher    ports.EventPublisher
}

func NewChangeRequestService(
	changes ports.ChangeRequestStore,
	reservations ports.ReservationStore,
	classes ports.ClassStore,
	schedules ports.ScheduleStore,
	notifier ports.Notifier,
	calendar ports.Calendar,
	sheets ports.Sheets,
	publisher ports.EventPublisher,
) *ChangeRequestService {
	return &ChangeRequestService{
		changes:      changes,
		reservations: reservations,
		classes:      classes,
		schedules:    schedules,
		notifier:     notifier,
		calendar:     calendar,
		sheets:       sheets,
		publisher:    publisher,
	}
}

// CreateInput identifies the reservation either by ID (authenticated
// customer, UserID set for the ownership check) or by change token.
type CreateInput struct {
	ReservationID *uint64
	UserID        *uint64
	Token         string
	ScheduleID    *uint64
	RequestedDate string
	RequestedTime string
	Reason        *string
}

// Create opens a change request. The reservation must be confirmed,
// must not already have a pending request, and the requested slot must
// differ from the current one. When a target schedule slot is named its
// date and time win and its capacity is checked inside the insert
// transaction.
func (s *ChangeRequestService) Create(ctx context.Context, in CreateInput) (*model.ChangeRequest, error) {
	res, err := s.resolve(ctx, in)
	if err != nil {
		return nil, err
	}

	if in.ScheduleID != nil {
		sched, err := s.schedules.GetByID(ctx, *in.ScheduleID)
		if err != nil {
			return nil, fmt.Errorf("get schedule: %w", err)
		}
		if sched.ClassID != res.ClassID {
			return nil, fmt.Errorf("%w: schedule does not belong to class", repository.ErrValidation)
		}
		if !sched.IsActive {
			return nil, fmt.Errorf("%w: schedule is closed", repository.ErrValidation)
		}
		in.RequestedDate = sched.ScheduleDate
		in.RequestedTime = sched.StartTime
	}
	if in.RequestedDate == res.DesiredDate && in.RequestedTime == res.DesiredTime {
		return nil, fmt.Errorf("%w: requested slot equals the current one", repository.ErrValidation)
	}

	cr := &model.ChangeRequest{
		ReservationID: res.ID,
		ScheduleID:    in.ScheduleID,
		RequestedDate: in.RequestedDate,
		RequestedTime: in.RequestedTime,
		Reason:        in.Reason,
	}
	if err := s.changes.Create(ctx, cr); err != nil {
		return nil, err
	}
	s.publish(ctx, cr, res, "created")
	return cr, nil
}

func (s *ChangeRequestService) resolve(ctx context.Context, in CreateInput) (*model.Reservation, error) {
	if in.Token != "" {
		return s.reservations.GetByChangeToken(ctx, in.Token)
	}
	if in.ReservationID == nil {
		return nil, fmt.Errorf("%w: reservation_id or token is required", repository.ErrValidation)
	}
	res, err := s.reservations.GetByID(ctx, *in.ReservationID)
	if err != nil {
		return nil, err
	}
	if in.UserID != nil && (res.UserID == nil || *res.UserID != *in.UserID) {
		return nil, repository.ErrForbidden
	}
	return res, nil
}

// TokenView is what the unauthenticated change-token page shows: the
// reservation and its change-request history.
type TokenView struct {
	Reservation *model.Reservation
	Requests    []*model.ChangeRequest
}

// ViewByToken resolves a change token into the reservation and its
// change requests.
func (s *ChangeRequestService) ViewByToken(ctx context.Context, token string) (*TokenView, error) {
	res, err := s.reservations.GetByChangeToken(ctx, token)
	if err != nil {
		return nil, err
	}
	reqs, err := s.changes.ListByReservation(ctx, res.ID)
	if err != nil {
		return nil, err
	}
	return &TokenView{Reservation: res, Requests: reqs}, nil
}

// Approve settles a pending request: the reservation migrates to the
// requested date, time and slot atomically with the request, the
// external mirrors are rewritten best-effort, and the customer is told
// about the new slot.
func (s *ChangeRequestService) Approve(ctx context.Context, id uint64) (*model.ChangeRequest, *model.Reservation, error) {
	cr, res, err := s.changes.Approve(ctx, id)
	if err != nil {
		return nil, nil, err
	}

	cls, err := s.classes.GetByID(ctx, res.ClassID)
	if err != nil {
		return nil, nil, fmt.Errorf("get class: %w", err)
	}

	if res.CalendarEventID != nil {
		ev := model.CalendarEvent{
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
		if err := s.calendar.UpdateEvent(ctx, *res.CalendarEventID, ev); err != nil {
			log.Printf("change request %d: calendar update failed: %v", cr.ID, err)
		}
	}
	if res.SheetRow != nil {
		confirmed := ""
		if res.ConfirmedAt != nil {
			confirmed = res.ConfirmedAt.UTC().Format("2006-01-02 15:04")
		}
		row := model.SheetRow{
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
		if err := s.sheets.UpdateRow(ctx, *res.SheetRow, row); err != nil {
			log.Printf("change request %d: sheet update failed: %v", cr.ID, err)
		}
	}

	req := model.NotificationRequest{
		ReservationID:  res.ID,
		Type:           model.NotifyChangeApproved,
		RecipientPhone: res.CustomerPhone,
		CustomerName:   res.CustomerName,
		ClassName:      cls.Name,
		Date:           stringOr(cr.OriginalDate, res.DesiredDate),
		Time:           stringOr(cr.OriginalTime, res.DesiredTime),
		RequestedDate:  &cr.RequestedDate,
		RequestedTime:  &cr.RequestedTime,
	}
	go s.notifier.Send(context.WithoutCancel(ctx), req)
	s.publish(ctx, cr, res, "approved")
	return cr, res, nil
}

// defaultChangeRejectReason is used when an admin declines a change
// request without giving a reason.
const defaultChangeRejectReason = "your requested change could not be accommodated"

// Reject settles a pending request without touching the reservation and
// tells the customer their booking keeps its current slot.
func (s *ChangeRequestService) Reject(ctx context.Context, id uint64, reason string) (*model.ChangeRequest, error) {
	if reason == "" {
		reason = defaultChangeRejectReason
	}
	cr, err := s.changes.Reject(ctx, id, reason)
	if err != nil {
		return nil, err
	}
	res, err := s.reservations.GetByID(ctx, cr.ReservationID)
	if err != nil {
		return nil, err
	}
	if cls, err := s.classes.GetByID(ctx, res.ClassID); err == nil {
		req := model.NotificationRequest{
			ReservationID:  res.ID,
			Type:           model.NotifyChangeRejected,
			RecipientPhone: res.CustomerPhone,
			CustomerName:   res.CustomerName,
			ClassName:      cls.Name,
			Date:           res.DesiredDate,
			Time:           res.DesiredTime,
			RejectReason:   cr.RejectReason,
		}
		go s.notifier.Send(context.WithoutCancel(ctx), req)
	}
	s.publish(ctx, cr, res, "rejected")
	return cr, nil
}

// Get fetches one change request.
func (s *ChangeRequestService) Get(ctx context.Context, id uint64) (*model.ChangeRequest, error) {
	return s.changes.GetByID(ctx, id)
}

// List returns change requests for the admin dashboard, optionally
// filtered by status.
func (s *ChangeRequestService) List(ctx context.Context, status model.ChangeRequestStatus) ([]*model.ChangeRequest, error) {
	return s.changes.List(ctx, status)
}

// ListByReservation returns a reservation's change requests.
func (s *ChangeRequestService) ListByReservation(ctx context.Context, reservationID uint64) ([]*model.ChangeRequest, error) {
	return s.changes.ListByReservation(ctx, reservationID)
}

func stringOr(p *string, fallback string) string {
	if p != nil {
		return *p
	}
	return fallback
}

func (s *ChangeRequestService) publish(ctx context.Context, cr *model.ChangeRequest, res *model.Reservation, changeType string) {
	ev := queue.ChangeEvent{
		Entity:     "change_request",
		ID:         cr.ID,
		ChangeType: changeType,
		Status:     string(cr.Status),
		Customer:   res.CustomerName,
		Date:       cr.RequestedDate,
		Time:       cr.RequestedTime,
		OccurredAt: time.Now().UTC().Format(time.RFC3339),
	}
	if err := s.publisher.PublishChange(ctx, ev); err != nil {
		log.Printf("change request %d: publish %s event failed: %v", cr.ID, changeType, err)
	}
}
