package ports

import (
	"context"

	"github.com/kkayomi/class-reservation/internal/model"
)

// Calendar mirrors confirmed reservations into an external calendar.
// Implementations must be safe to call with a disabled configuration;
// the services log failures and continue.
type Calendar interface {
	CreateEvent(ctx context.Context, ev model.CalendarEvent) (string, error)
	UpdateEvent(ctx context.Context, eventID string, ev model.CalendarEvent) error
	DeleteEvent(ctx context.Context, eventID string) error
}

// Sheets keeps the external spreadsheet ledger of confirmed
// reservations.
type Sheets interface {
	AppendRow(ctx context.Context, row model.SheetRow) (uint32, error)
	UpdateRow(ctx context.Context, rowNum uint32, row model.SheetRow) error
	DeleteRow(ctx context.Context, rowNum uint32) error
}
