package ports

import (
	"context"

	"flowcanvas/domain/events"
)

// EventPublisher defines the interface for publishing domain events
// drained from the canvas after each mutation. Publishing is
// best-effort observability fan-out; it never vetoes a mutation.
type EventPublisher interface {
	// Publish sends a single event
	Publish(ctx context.Context, event events.DomainEvent) error

	// PublishBatch sends multiple events
	PublishBatch(ctx context.Context, events []events.DomainEvent) error
}
