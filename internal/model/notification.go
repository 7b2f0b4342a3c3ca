package model

import "time"

// NotificationType identifies which lifecycle event a message describes.
type NotificationType string

const (
    NotifyApproval       NotificationType = "approval"
    NotifyConfirmation   NotificationType = "confirmation"
    NotifyRejection      NotificationType = "rejection"
    NotifyCancellation   NotificationType = "cancellation"
    NotifyChangeApproved NotificationType = "change_approved"
    NotifyChangeRejected NotificationType = "change_rejected"
)

// NotificationChannel is the delivery channel actually used.
type NotificationChannel string

const (
    ChannelKakao NotificationChannel = "kakao"
    ChannelSMS   NotificationChannel = "sms"
)

// NotificationStatus tracks the outcome of one dispatch attempt.
type NotificationStatus string

const (
    NotificationPending NotificationStatus = "pending"
    NotificationSent    NotificationStatus = "sent"
    NotificationFailed  NotificationStatus = "failed"
)

// Notification is the audit record of one dispatch attempt.
type Notification struct {
    ID             uint64              // notifications.id
    ReservationID  uint64              // notifications.reservation_id
    Type           NotificationType    // notifications.type
    Channel        NotificationChannel // notifications.channel
    RecipientPhone string              // notifications.recipient_phone
    Message        string              // notifications.message
    Status         NotificationStatus  // notifications.status
    SentAt         *time.Time          // notifications.sent_at (nullable)
    ErrorMessage   *string             // notifications.error_message (nullable)
    CreatedAt      time.Time           // notifications.created_at
}

// NotificationRequest carries everything the dispatcher needs to render
// and deliver one lifecycle message.  Optional fields are nil when the
// notification type does not use them.
type NotificationRequest struct {
    ReservationID  uint64
    Type           NotificationType
    RecipientPhone string
    CustomerName   string
    ClassName      string
    Date           string
    Time           string
    Price          uint32
    RejectReason   *string
    RequestedDate  *string
    RequestedTime  *string
    ChangeToken    *string
}

// NotificationResult reports how a dispatch attempt ended.  The core only
// logs it; delivery failure never fails the parent request.
type NotificationResult struct {
    Success bool
    Channel NotificationChannel
    Err     string
}

// CalendarEvent is the payload for creating an external calendar entry.
type CalendarEvent struct {
    ReservationID   uint64
    ClassName       string
    CustomerName    string
    CustomerPhone   string
    Date            string
    Time            string
    DurationMinutes uint32
    NumPeople       uint32
    Memo            *string
}

// SheetRow is the payload appended to the external spreadsheet when a
// reservation is confirmed.
type SheetRow struct {
    CreatedAt     string
    ConfirmedAt   string
    ClassName     string
    CustomerName  string
    CustomerPhone string
    NumPeople     uint32
    Date          string
    Time          string
    Price         uint32
    Memo          *string
}
