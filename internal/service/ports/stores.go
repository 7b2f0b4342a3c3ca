// Package ports declares the narrow interfaces the services depend on.
// The repository and adapter packages satisfy them; tests substitute
// mocks so the booking rules can be exercised without a database or the
// external APIs.
package ports

import (
	"context"

	"github.com/kkayomi/class-reservation/internal/model"
)

type ReservationStore interface {
	Create(ctx context.Context, res *model.Reservation) error
	GetByID(ctx context.Context, id uint64) (*model.Reservation, error)
	GetByChangeToken(ctx context.Context, token string) (*model.Reservation, error)
	ListByUser(ctx context.Context, userID uint64) ([]*model.Reservation, error)
	List(ctx context.Context, status model.ReservationStatus) ([]*model.Reservation, error)
	Confirm(ctx context.Context, id uint64) (*model.Reservation, error)
	Reject(ctx context.Context, id uint64, reason string) (*model.Reservation, error)
	Cancel(ctx context.Context, id uint64) (*model.Reservation, int64, error)
	SetCancelRequest(ctx context.Context, id uint64, reason string) (*model.Reservation, error)
	RejectCancelRequest(ctx context.Context, id uint64, reason string) (*model.Reservation, error)
	UpdateAdminMemo(ctx context.Context, id uint64, memo *string) error
	SetCalendarEvent(ctx context.Context, id uint64, eventID string) error
	SetSheetRow(ctx context.Context, id uint64, row uint32) error
	ClearSheetRow(ctx context.Context, id uint64, row uint32) error
}

type ChangeRequestStore interface {
	Create(ctx context.Context, cr *model.ChangeRequest) error
	GetByID(ctx context.Context, id uint64) (*model.ChangeRequest, error)
	List(ctx context.Context, status model.ChangeRequestStatus) ([]*model.ChangeRequest, error)
	ListByReservation(ctx context.Context, reservationID uint64) ([]*model.ChangeRequest, error)
	Approve(ctx context.Context, id uint64) (*model.ChangeRequest, *model.Reservation, error)
	Reject(ctx context.Context, id uint64, reason string) (*model.ChangeRequest, error)
}

type ScheduleStore interface {
	GetByID(ctx context.Context, id uint64) (model.Schedule, error)
	CheckCapacity(ctx context.Context, scheduleID uint64, numPeople uint32) error
}

type ClassStore interface {
	GetByID(ctx context.Context, id uint64) (model.Class, error)
}

type NotificationStore interface {
	GetByID(ctx context.Context, id uint64) (model.Notification, error)
	List(ctx context.Context, reservationID uint64, limit int) ([]model.Notification, error)
}
