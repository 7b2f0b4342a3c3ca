package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kkayomi/class-reservation/internal/model"
	"github.com/kkayomi/class-reservation/internal/repository"
)

func ptrU64(v uint64) *uint64 { return &v }
func ptrStr(v string) *string { return &v }

func seedClass(f *fixture) model.Class {
	cls := model.Class{
		ID:              1,
		Name:            "Pottery Basics",
		DurationMinutes: 90,
		Price:           30000,
		MaxParticipants: 8,
		IsActive:        true,
	}
	f.classes.byID[cls.ID] = cls
	return cls
}

func TestReservationService_Book_FromSchedule(t *testing.T) {
	f := newFixture()
	seedClass(f)
	f.schedules.byID[5] = model.Schedule{
		ID: 5, ClassID: 1, ScheduleDate: "2026-09-10", StartTime: "14:00", IsActive: true,
	}

	res, err := f.svc.Book(context.Background(), BookInput{
		UserID:        ptrU64(7),
		ClassID:       1,
		ScheduleID:    ptrU64(5),
		CustomerName:  "Alice",
		CustomerPhone: "010-1234-5678",
		DepositorName: "Alice",
		NumPeople:     2,
	})

	require.NoError(t, err)
	assert.Equal(t, model.StatusPending, res.Status)
	assert.Equal(t, "2026-09-10", res.DesiredDate)
	assert.Equal(t, "14:00", res.DesiredTime)
	assert.NotEmpty(t, res.ChangeToken)
	assert.Equal(t, []string{"created"}, f.publisher.changeTypes())

	reqs := f.notifier.await(t, 1)
	require.Len(t, reqs, 1)
	assert.Equal(t, model.NotifyApproval, reqs[0].Type)
	assert.Equal(t, uint32(60000), reqs[0].Price) // 30000 x 2 people
}

func TestReservationService_Book_InactiveClass(t *testing.T) {
	f := newFixture()
	cls := seedClass(f)
	cls.IsActive = false
	f.classes.byID[cls.ID] = cls

	_, err := f.svc.Book(context.Background(), BookInput{
		ClassID:       1,
		DesiredDate:   "2026-09-10",
		DesiredTime:   "14:00",
		CustomerName:  "Alice",
		CustomerPhone: "010-1234-5678",
		NumPeople:     1,
	})
	require.ErrorIs(t, err, repository.ErrValidation)
}

func TestReservationService_Book_ScheduleClassMismatch(t *testing.T) {
	f := newFixture()
	seedClass(f)
	f.schedules.byID[5] = model.Schedule{
		ID: 5, ClassID: 99, ScheduleDate: "2026-09-10", StartTime: "14:00", IsActive: true,
	}

	_, err := f.svc.Book(context.Background(), BookInput{
		ClassID:       1,
		ScheduleID:    ptrU64(5),
		CustomerName:  "Alice",
		CustomerPhone: "010-1234-5678",
		NumPeople:     1,
	})
	require.ErrorIs(t, err, repository.ErrValidation)
}

func TestReservationService_Book_CapacityExceeded(t *testing.T) {
	f := newFixture()
	seedClass(f)
	f.schedules.byID[5] = model.Schedule{
		ID: 5, ClassID: 1, ScheduleDate: "2026-09-10", StartTime: "14:00", IsActive: true,
	}
	f.reservations.createErr = repository.ErrCapacityExceeded

	_, err := f.svc.Book(context.Background(), BookInput{
		ClassID:       1,
		ScheduleID:    ptrU64(5),
		CustomerName:  "Alice",
		CustomerPhone: "010-1234-5678",
		NumPeople:     8,
	})
	require.ErrorIs(t, err, repository.ErrCapacityExceeded)
	assert.Empty(t, f.publisher.changeTypes())
}

func TestReservationService_ApprovePayment(t *testing.T) {
	f := newFixture()
	seedClass(f)
	seeded := f.reservations.seed(model.Reservation{
		ClassID:       1,
		CustomerName:  "Alice",
		CustomerPhone: "010-1234-5678",
		DesiredDate:   "2026-09-10",
		DesiredTime:   "14:00",
		NumPeople:     2,
		Status:        model.StatusPending,
		ChangeToken:   "tok-abc",
	})
	f.sheets.nextRow = 7

	res, err := f.svc.ApprovePayment(context.Background(), seeded.ID)

	require.NoError(t, err)
	assert.Equal(t, model.StatusConfirmed, res.Status)
	require.NotNil(t, res.ConfirmedAt)
	require.NotNil(t, res.CalendarEventID)
	assert.Equal(t, "evt-1", *res.CalendarEventID)
	require.NotNil(t, res.SheetRow)
	assert.Equal(t, uint32(7), *res.SheetRow)
	require.Len(t, f.calendar.created, 1)
	assert.Equal(t, "Pottery Basics", f.calendar.created[0].ClassName)
	require.Len(t, f.sheets.appended, 1)
	assert.Equal(t, []string{"confirmed"}, f.publisher.changeTypes())

	reqs := f.notifier.await(t, 1)
	require.Len(t, reqs, 1)
	assert.Equal(t, model.NotifyConfirmation, reqs[0].Type)
	require.NotNil(t, reqs[0].ChangeToken)
	assert.Equal(t, "tok-abc", *reqs[0].ChangeToken)
}

func TestReservationService_ApprovePayment_SyncFailureIsNonFatal(t *testing.T) {
	f := newFixture()
	seedClass(f)
	seeded := f.reservations.seed(model.Reservation{
		ClassID: 1, CustomerName: "Alice", CustomerPhone: "010-1234-5678",
		DesiredDate: "2026-09-10", DesiredTime: "14:00", NumPeople: 1,
		Status: model.StatusPending, ChangeToken: "tok",
	})
	f.calendar.createErr = errors.New("google is down")
	f.sheets.appendErr = errors.New("google is down")

	res, err := f.svc.ApprovePayment(context.Background(), seeded.ID)

	require.NoError(t, err)
	assert.Equal(t, model.StatusConfirmed, res.Status)
	assert.Nil(t, res.CalendarEventID)
	assert.Nil(t, res.SheetRow)
}

func TestReservationService_ApprovePayment_NotPending(t *testing.T) {
	f := newFixture()
	seedClass(f)
	seeded := f.reservations.seed(model.Reservation{
		ClassID: 1, Status: model.StatusCancelled, ChangeToken: "tok",
	})

	_, err := f.svc.ApprovePayment(context.Background(), seeded.ID)

	var te *model.TransitionError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, model.StatusCancelled, te.From)
}

func TestReservationService_ApprovePayment_RepeatedConfirm(t *testing.T) {
	f := newFixture()
	seedClass(f)
	seeded := f.reservations.seed(model.Reservation{
		ClassID: 1, CustomerName: "Alice", CustomerPhone: "010-1234-5678",
		DesiredDate: "2026-09-10", DesiredTime: "14:00", NumPeople: 1,
		Status: model.StatusPending, ChangeToken: "tok",
	})

	_, err := f.svc.ApprovePayment(context.Background(), seeded.ID)
	require.NoError(t, err)
	f.notifier.await(t, 1)

	_, err = f.svc.ApprovePayment(context.Background(), seeded.ID)

	var te *model.TransitionError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, model.StatusConfirmed, te.From)
	// The second call must not re-run the confirmation fan-out.
	assert.Len(t, f.calendar.created, 1)
	assert.Len(t, f.sheets.appended, 1)
	assert.Len(t, f.notifier.requests(), 1)
	assert.Equal(t, []string{"confirmed"}, f.publisher.changeTypes())
}

func TestReservationService_RejectBooking_RequiresReason(t *testing.T) {
	f := newFixture()
	_, err := f.svc.RejectBooking(context.Background(), 1, "")
	require.ErrorIs(t, err, repository.ErrValidation)
}

func TestReservationService_RejectBooking(t *testing.T) {
	f := newFixture()
	seedClass(f)
	seeded := f.reservations.seed(model.Reservation{
		ClassID: 1, CustomerName: "Alice", CustomerPhone: "010-1234-5678",
		DesiredDate: "2026-09-10", DesiredTime: "14:00", NumPeople: 1,
		Status: model.StatusPending, ChangeToken: "tok",
	})

	res, err := f.svc.RejectBooking(context.Background(), seeded.ID, "slot no longer offered")

	require.NoError(t, err)
	assert.Equal(t, model.StatusRejected, res.Status)
	require.NotNil(t, res.RejectReason)
	assert.Equal(t, "slot no longer offered", *res.RejectReason)

	reqs := f.notifier.await(t, 1)
	require.Len(t, reqs, 1)
	assert.Equal(t, model.NotifyRejection, reqs[0].Type)
}

func TestReservationService_Cancel_CleansUpMirrors(t *testing.T) {
	f := newFixture()
	seedClass(f)
	row := uint32(4)
	seeded := f.reservations.seed(model.Reservation{
		ClassID: 1, CustomerName: "Alice", CustomerPhone: "010-1234-5678",
		DesiredDate: "2026-09-10", DesiredTime: "14:00", NumPeople: 1,
		Status: model.StatusConfirmed, ChangeToken: "tok",
		CalendarEventID: ptrStr("evt-9"), SheetRow: &row,
	})
	f.reservations.cascade = 2

	res, cascaded, err := f.svc.Cancel(context.Background(), seeded.ID)

	require.NoError(t, err)
	assert.Equal(t, model.StatusCancelled, res.Status)
	assert.Equal(t, int64(2), cascaded)
	assert.Equal(t, []string{"evt-9"}, f.calendar.deleted)
	assert.Equal(t, []uint32{4}, f.sheets.deleted)
	assert.Equal(t, []uint32{4}, f.reservations.clearedRows)
	assert.Equal(t, []string{"cancelled"}, f.publisher.changeTypes())

	reqs := f.notifier.await(t, 1)
	require.Len(t, reqs, 1)
	assert.Equal(t, model.NotifyCancellation, reqs[0].Type)
}

func TestReservationService_Cancel_SheetDeleteFailureKeepsRowNumbers(t *testing.T) {
	f := newFixture()
	seedClass(f)
	row := uint32(4)
	seeded := f.reservations.seed(model.Reservation{
		ClassID: 1, CustomerName: "Alice", CustomerPhone: "010-1234-5678",
		DesiredDate: "2026-09-10", DesiredTime: "14:00", NumPeople: 1,
		Status: model.StatusConfirmed, ChangeToken: "tok", SheetRow: &row,
	})
	f.sheets.deleteErr = errors.New("google is down")

	_, _, err := f.svc.Cancel(context.Background(), seeded.ID)

	require.NoError(t, err)
	// The sheet did not shift, so the stored numbering must not either.
	assert.Empty(t, f.reservations.clearedRows)
}

func TestReservationService_SelfCancel_Forbidden(t *testing.T) {
	f := newFixture()
	seedClass(f)
	seeded := f.reservations.seed(model.Reservation{
		ClassID: 1, UserID: ptrU64(7), Status: model.StatusPending, ChangeToken: "tok",
	})

	_, err := f.svc.SelfCancel(context.Background(), 8, seeded.ID, "")
	require.ErrorIs(t, err, repository.ErrForbidden)
}

func TestReservationService_SelfCancel_PendingCancelsOutright(t *testing.T) {
	f := newFixture()
	seedClass(f)
	seeded := f.reservations.seed(model.Reservation{
		ClassID: 1, UserID: ptrU64(7), CustomerName: "Alice",
		CustomerPhone: "010-1234-5678", DesiredDate: "2026-09-10", DesiredTime: "14:00",
		NumPeople: 1, Status: model.StatusPending, ChangeToken: "tok",
	})

	res, err := f.svc.SelfCancel(context.Background(), 7, seeded.ID, "changed my mind")

	require.NoError(t, err)
	assert.Equal(t, model.StatusCancelled, res.Status)
	assert.Equal(t, []string{"cancelled"}, f.publisher.changeTypes())
}

func TestReservationService_SelfCancel_ConfirmedRecordsRequest(t *testing.T) {
	f := newFixture()
	seedClass(f)
	seeded := f.reservations.seed(model.Reservation{
		ClassID: 1, UserID: ptrU64(7), Status: model.StatusConfirmed, ChangeToken: "tok",
	})

	res, err := f.svc.SelfCancel(context.Background(), 7, seeded.ID, "")

	require.NoError(t, err)
	assert.Equal(t, model.StatusConfirmed, res.Status)
	assert.True(t, res.CancelRequested())
	// Empty string is a valid "no reason given" request.
	require.NotNil(t, res.CancelReason)
	assert.Equal(t, "", *res.CancelReason)
	assert.Equal(t, []string{"cancel_requested"}, f.publisher.changeTypes())
}

func TestReservationService_SelfCancel_ClearsPriorRejectReason(t *testing.T) {
	f := newFixture()
	seedClass(f)
	seeded := f.reservations.seed(model.Reservation{
		ClassID: 1, UserID: ptrU64(7), Status: model.StatusConfirmed,
		RejectReason: ptrStr("too close to the class date"), ChangeToken: "tok",
	})

	res, err := f.svc.SelfCancel(context.Background(), 7, seeded.ID, "schedule conflict")

	require.NoError(t, err)
	assert.True(t, res.CancelRequested())
	// A fresh request must not carry the verdict from an earlier one.
	assert.Nil(t, res.RejectReason)
}

func TestReservationService_SelfCancel_TerminalRejected(t *testing.T) {
	f := newFixture()
	seedClass(f)
	seeded := f.reservations.seed(model.Reservation{
		ClassID: 1, UserID: ptrU64(7), Status: model.StatusRejected, ChangeToken: "tok",
	})

	_, err := f.svc.SelfCancel(context.Background(), 7, seeded.ID, "")

	var te *model.TransitionError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, model.StatusRejected, te.From)
	assert.Equal(t, model.StatusCancelled, te.To)
}

func TestReservationService_RejectCancellation_DefaultReason(t *testing.T) {
	f := newFixture()
	seedClass(f)
	seeded := f.reservations.seed(model.Reservation{
		ClassID: 1, CustomerName: "Alice", CustomerPhone: "010-1234-5678",
		DesiredDate: "2026-09-10", DesiredTime: "14:00", NumPeople: 1,
		Status: model.StatusConfirmed, CancelReason: ptrStr(""), ChangeToken: "tok",
	})

	res, err := f.svc.RejectCancellation(context.Background(), seeded.ID, "")

	require.NoError(t, err)
	assert.Equal(t, model.StatusConfirmed, res.Status)
	assert.False(t, res.CancelRequested())
	require.NotNil(t, res.RejectReason)
	assert.Equal(t, defaultCancelRejectReason, *res.RejectReason)
	assert.Equal(t, []string{"cancel_rejected"}, f.publisher.changeTypes())
}

func TestReservationService_GetForUser(t *testing.T) {
	f := newFixture()
	seeded := f.reservations.seed(model.Reservation{
		ClassID: 1, UserID: ptrU64(7), Status: model.StatusPending, ChangeToken: "tok",
	})

	_, err := f.svc.GetForUser(context.Background(), 8, seeded.ID)
	require.ErrorIs(t, err, repository.ErrForbidden)

	res, err := f.svc.GetForUser(context.Background(), 7, seeded.ID)
	require.NoError(t, err)
	assert.Equal(t, seeded.ID, res.ID)
}
