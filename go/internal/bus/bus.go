// Package bus moves team events from the authoritative service to the
// gateway fan-out. Two implementations: NATS for multi-process
// deployments, and an in-process bus for tests and single-host runs.
package bus

import (
	"context"

	"github.com/squadlink-dev/squadlink/go/internal/team/events"
)

// Handler consumes one event. Handlers must not block.
type Handler func(ctx context.Context, e *events.Event)

// Bus is a fire-and-forget event channel. Delivery failures are the
// subscriber's problem; the periodic full sync repairs missed deltas.
type Bus interface {
	Publish(ctx context.Context, e *events.Event) error
	Subscribe(ctx context.Context, h Handler) error
	Close() error
}
