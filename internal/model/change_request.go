package model

import "time"

// ChangeRequestStatus enumerates change-request states.  approved and
// rejected are terminal.
type ChangeRequestStatus string

const (
    ChangePending  ChangeRequestStatus = "pending"
    ChangeApproved ChangeRequestStatus = "approved"
    ChangeRejected ChangeRequestStatus = "rejected"
)

// CancelCascadeReason is stored on a pending change request that is
// force-rejected because its reservation was cancelled.
const CancelCascadeReason = "reservation was cancelled"

// ChangeRequest proposes moving a confirmed reservation to a different
// date/time.  At most one pending request may exist per reservation.
//
// Fields:
//  ID            – primary key identifier.
//  ReservationID – reservation being changed.
//  ScheduleID    – optional target schedule slot.
//  OriginalDate  – reservation date captured at creation, for audit.
//  OriginalTime  – reservation time captured at creation, for audit.
//  RequestedDate – proposed new date (YYYY-MM-DD).
//  RequestedTime – proposed new time (HH:MM).
//  Reason        – free-text customer reason.
//  Status        – pending, approved or rejected.
//  RejectReason  – admin-supplied reason when rejected.
//  ProcessedAt   – when an admin (or the cancel cascade) settled it.
type ChangeRequest struct {
    ID            uint64              // change_requests.id
    ReservationID uint64              // change_requests.reservation_id
    ScheduleID    *uint64             // change_requests.schedule_id (nullable)
    OriginalDate  *string             // change_requests.original_date (nullable)
    OriginalTime  *string             // change_requests.original_time (nullable)
    RequestedDate string              // change_requests.requested_date
    RequestedTime string              // change_requests.requested_time
    Reason        *string             // change_requests.reason (nullable)
    Status        ChangeRequestStatus // change_requests.status
    RejectReason  *string             // change_requests.reject_reason (nullable)
    ProcessedAt   *time.Time          // change_requests.processed_at (nullable)
    CreatedAt     time.Time           // change_requests.created_at
    UpdatedAt     time.Time           // change_requests.updated_at
}
