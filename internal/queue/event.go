// Package queue defines message payloads exchanged over the message broker
// and the background consumer that turns them into an append-only log.
package queue

// ChangeEvent is published whenever a reservation or change request moves
// through its lifecycle. It carries enough information for downstream
// consumers to log or trigger analytics without querying the primary
// database.
type ChangeEvent struct {
    Entity     string `json:"entity"`      // "reservation" or "change_request"
    ID         uint64 `json:"id"`          // primary key of the row that changed
    ChangeType string `json:"change_type"` // created, confirmed, rejected, cancelled, approved...
    Status     string `json:"status"`      // status after the change
    Customer   string `json:"customer"`    // customer name for the log line
    Date       string `json:"date"`        // reservation date after the change
    Time       string `json:"time"`        // reservation time after the change
    OccurredAt string `json:"occurred_at"` // RFC3339 UTC timestamp
}
