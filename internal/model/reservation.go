package model

import (
    "fmt"
    "time"
)

// ReservationStatus enumerates the lifecycle states of a reservation.
// pending is the initial state; rejected and cancelled are terminal.
type ReservationStatus string

const (
    StatusPending   ReservationStatus = "pending"
    StatusConfirmed ReservationStatus = "confirmed"
    StatusRejected  ReservationStatus = "rejected"
    StatusCancelled ReservationStatus = "cancelled"
)

// ActiveStatuses are the statuses that still occupy seats in a schedule
// slot.  Rejected and cancelled reservations release their seats.
var ActiveStatuses = []ReservationStatus{StatusPending, StatusConfirmed}

// validTransitions is the authoritative transition table for reservation
// statuses.  pending may move to confirmed (admin approval), rejected
// (admin rejection) or cancelled (customer self-service cancel); confirmed
// may only move to cancelled.  Terminal states have no outgoing edges.
var validTransitions = map[ReservationStatus][]ReservationStatus{
    StatusPending:   {StatusConfirmed, StatusRejected, StatusCancelled},
    StatusConfirmed: {StatusCancelled},
}

// CanTransition reports whether moving a reservation from one status to
// another is permitted by the transition table.
func CanTransition(from, to ReservationStatus) bool {
    for _, t := range validTransitions[from] {
        if t == to {
            return true
        }
    }
    return false
}

// Terminal reports whether the status permits no further transitions.
func (s ReservationStatus) Terminal() bool {
    return s == StatusRejected || s == StatusCancelled
}

// TransitionError describes a rejected status transition.  The error
// message names the illegal source/target pair so handlers can surface
// it verbatim.
type TransitionError struct {
    From ReservationStatus
    To   ReservationStatus
}

func (e *TransitionError) Error() string {
    return fmt.Sprintf("cannot transition reservation from %q to %q", e.From, e.To)
}

// Reservation records a customer's booking of one class slot.
//
// Fields:
//  ID              – primary key identifier.
//  UserID          – owning customer; nil until the booking is claimed.
//  ClassID         – class being booked.
//  ScheduleID      – schedule slot; nil after the slot is deleted.
//  CustomerName    – name supplied at booking time.
//  CustomerPhone   – phone number used for notifications.
//  DepositorName   – bank-transfer depositor name.
//  DesiredDate     – booked date (YYYY-MM-DD).
//  DesiredTime     – booked start time (HH:MM).
//  NumPeople       – party size, always >= 1.
//  CustomerMemo    – free-text memo from the customer.
//  Status          – lifecycle state, see ReservationStatus.
//  AdminMemo       – free-text memo from the admin.
//  RejectReason    – why the booking (or a cancellation request) was declined.
//  CancelReason    – cancellation reason; while the reservation is still
//                    confirmed a non-nil value means a cancellation request
//                    is awaiting an admin decision.
//  ChangeToken     – opaque capability token for the unauthenticated
//                    change-request flow.
//  CalendarEventID – external calendar event, set after a successful sync.
//  SheetRow        – external spreadsheet row number, set after a
//                    successful sync.
type Reservation struct {
    ID              uint64            // reservations.id
    UserID          *uint64           // reservations.user_id (nullable)
    ClassID         uint64            // reservations.class_id
    ScheduleID      *uint64           // reservations.schedule_id (nullable)
    CustomerName    string            // reservations.customer_name
    CustomerPhone   string            // reservations.customer_phone
    DepositorName   string            // reservations.depositor_name
    DesiredDate     string            // reservations.desired_date
    DesiredTime     string            // reservations.desired_time
    NumPeople       uint32            // reservations.num_people
    CustomerMemo    *string           // reservations.customer_memo (nullable)
    Status          ReservationStatus // reservations.status
    AdminMemo       *string           // reservations.admin_memo (nullable)
    RejectReason    *string           // reservations.reject_reason (nullable)
    CancelReason    *string           // reservations.cancel_reason (nullable)
    ChangeToken     string            // reservations.change_token
    CalendarEventID *string           // reservations.calendar_event_id (nullable)
    SheetRow        *uint32           // reservations.sheet_row (nullable)
    ConfirmedAt     *time.Time        // reservations.confirmed_at (nullable)
    RejectedAt      *time.Time        // reservations.rejected_at (nullable)
    CancelledAt     *time.Time        // reservations.cancelled_at (nullable)
    CreatedAt       time.Time         // reservations.created_at
    UpdatedAt       time.Time         // reservations.updated_at
}

// CancelRequested reports whether a confirmed reservation carries a
// pending cancellation request.  The empty string is a valid "no reason
// given" request, so only nil means no request.
func (r *Reservation) CancelRequested() bool {
    return r.Status == StatusConfirmed && r.CancelReason != nil
}

// RemainingSeats computes how many seats a slot still offers given its
// effective capacity and the live sum of num_people across active
// reservations.  A negative remainder is clamped to zero.
func RemainingSeats(capacity, booked uint32) uint32 {
    if booked >= capacity {
        return 0
    }
    return capacity - booked
}
