// Package events relays drained canvas events to the process-local
// observability surfaces. The bridge has no message broker; events exist
// for metrics, logging and hook extensions, never for consistency.
package events

import (
	"context"

	"go.uber.org/zap"

	"flowcanvas/application/ports"
	"flowcanvas/domain/events"
	"flowcanvas/pkg/observability"
)

// FanoutPublisher implements ports.EventPublisher over the metrics
// collector and the debug log. Publishing never fails: a mutation that
// already happened cannot be vetoed by its own telemetry.
type FanoutPublisher struct {
	metrics *observability.Collector
	logger  *zap.Logger
}

var _ ports.EventPublisher = (*FanoutPublisher)(nil)

// NewFanoutPublisher creates a publisher over the given sinks.
func NewFanoutPublisher(metrics *observability.Collector, logger *zap.Logger) *FanoutPublisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FanoutPublisher{
		metrics: metrics,
		logger:  logger,
	}
}

// Publish records one event.
func (p *FanoutPublisher) Publish(_ context.Context, event events.DomainEvent) error {
	p.record(event)
	return nil
}

// PublishBatch records the events in order.
func (p *FanoutPublisher) PublishBatch(_ context.Context, drained []events.DomainEvent) error {
	for _, event := range drained {
		p.record(event)
	}
	return nil
}

func (p *FanoutPublisher) record(event events.DomainEvent) {
	p.logger.Debug("canvas event",
		zap.String("type", event.GetEventType()),
		zap.String("aggregate_id", event.GetAggregateID()),
		zap.Time("at", event.GetTimestamp()),
	)

	if p.metrics == nil {
		return
	}
	p.metrics.EventObserved(event.GetEventType())

	// Keep the document size gauges in step with the mutation stream.
	switch e := event.(type) {
	case events.NodeAdded:
		p.metrics.AdjustDocumentSize(1, 0)
	case events.NodeRemoved:
		p.metrics.AdjustDocumentSize(-1, -e.RemovedEdges)
	case events.EdgeAdded:
		p.metrics.AdjustDocumentSize(0, 1)
	case events.EdgeRemoved:
		p.metrics.AdjustDocumentSize(0, -1)
	case events.SubgraphRestored:
		p.metrics.AdjustDocumentSize(1, e.RestoredEdges)
	case events.CanvasImported:
		p.metrics.SetDocumentSize(e.NodeCount, e.EdgeCount)
	case events.CanvasCleared:
		p.metrics.SetDocumentSize(0, 0)
	}
}
