package ports

import (
	"context"

	"github.com/kkayomi/class-reservation/internal/queue"
)

// EventPublisher emits lifecycle events to the message broker. Errors
// are logged by the implementation; callers treat publishing as
// best-effort.
type EventPublisher interface {
	PublishChange(ctx context.Context, event queue.ChangeEvent) error
}
