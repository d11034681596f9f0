package events_test

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"flowcanvas/domain/core/valueobjects"
	domainevents "flowcanvas/domain/events"
	"flowcanvas/infrastructure/events"
	"flowcanvas/pkg/observability"
)

func TestFanoutPublisher_TracksDocumentSize(t *testing.T) {
	// Arrange
	metrics := observability.NewCollector("test")
	publisher := events.NewFanoutPublisher(metrics, zap.NewNop())
	now := time.Now()
	nodeA := valueobjects.NewNodeID()
	nodeB := valueobjects.NewNodeID()
	edge := valueobjects.NewEdgeID()

	// Act
	err := publisher.PublishBatch(context.Background(), []domainevents.DomainEvent{
		domainevents.NewNodeAdded("canvas", nodeA, valueobjects.NodeTypeAgent, now),
		domainevents.NewNodeAdded("canvas", nodeB, valueobjects.NodeTypeTools, now),
		domainevents.NewEdgeAdded("canvas", edge, nodeA, nodeB, now),
		domainevents.NewNodeRemoved("canvas", nodeB, valueobjects.NodeTypeTools, 1, now),
	})

	// Assert: two nodes added, one removed; the removal took its edge
	require.NoError(t, err)
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.DocumentNodes))
	assert.Equal(t, float64(0), testutil.ToFloat64(metrics.DocumentEdges))
}

func TestFanoutPublisher_ImportAndClearSetAbsoluteSize(t *testing.T) {
	// Arrange
	metrics := observability.NewCollector("test")
	publisher := events.NewFanoutPublisher(metrics, zap.NewNop())
	ctx := context.Background()
	now := time.Now()

	// Act / Assert: an import replaces whatever the gauges held
	require.NoError(t, publisher.Publish(ctx, domainevents.NewCanvasImported("canvas", 7, 9, now)))
	assert.Equal(t, float64(7), testutil.ToFloat64(metrics.DocumentNodes))
	assert.Equal(t, float64(9), testutil.ToFloat64(metrics.DocumentEdges))

	// Clearing resets to zero regardless of the cleared counts
	require.NoError(t, publisher.Publish(ctx, domainevents.NewCanvasCleared("canvas", 7, 9, now)))
	assert.Equal(t, float64(0), testutil.ToFloat64(metrics.DocumentNodes))
	assert.Equal(t, float64(0), testutil.ToFloat64(metrics.DocumentEdges))
}

func TestFanoutPublisher_RestoreReinsertsSubgraph(t *testing.T) {
	// Arrange
	metrics := observability.NewCollector("test")
	publisher := events.NewFanoutPublisher(metrics, zap.NewNop())
	ctx := context.Background()
	now := time.Now()

	// Act: a restore brings back the node and two of its three edges
	require.NoError(t, publisher.Publish(ctx, domainevents.NewSubgraphRestored("canvas", valueobjects.NewNodeID(), 2, 1, now)))

	// Assert
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.DocumentNodes))
	assert.Equal(t, float64(2), testutil.ToFloat64(metrics.DocumentEdges))
}

func TestFanoutPublisher_CountsEventsByType(t *testing.T) {
	// Arrange
	metrics := observability.NewCollector("test")
	publisher := events.NewFanoutPublisher(metrics, zap.NewNop())
	ctx := context.Background()
	now := time.Now()
	node := valueobjects.NewNodeID()

	// Act
	require.NoError(t, publisher.Publish(ctx, domainevents.NewNodeFieldUpdated(node, "prompt", now)))
	require.NoError(t, publisher.Publish(ctx, domainevents.NewNodeFieldUpdated(node, "name", now)))

	// Assert: field updates are counted but do not move the size gauges
	counter := metrics.CanvasEvents.WithLabelValues("canvas.node_field_updated")
	assert.Equal(t, float64(2), testutil.ToFloat64(counter))
	assert.Equal(t, float64(0), testutil.ToFloat64(metrics.DocumentNodes))
}

func TestFanoutPublisher_NilMetricsOnlyLogs(t *testing.T) {
	// Arrange
	publisher := events.NewFanoutPublisher(nil, nil)

	// Act
	err := publisher.Publish(context.Background(), domainevents.NewCanvasImported("canvas", 1, 0, time.Now()))

	// Assert
	assert.NoError(t, err)
}
