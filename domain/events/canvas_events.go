package events

import (
	"time"

	"flowcanvas/domain/core/valueobjects"
)

// Node events

// NodeAdded is raised when a node is placed on the canvas
type NodeAdded struct {
	BaseEvent
	NodeID   valueobjects.NodeID   `json:"node_id"`
	NodeType valueobjects.NodeType `json:"node_type"`
}

// NewNodeAdded creates a NodeAdded event
func NewNodeAdded(canvasID string, nodeID valueobjects.NodeID, nodeType valueobjects.NodeType, timestamp time.Time) NodeAdded {
	return NodeAdded{
		BaseEvent: BaseEvent{
			AggregateID: canvasID,
			EventType:   "canvas.node_added",
			Timestamp:   timestamp,
			Version:     1,
		},
		NodeID:   nodeID,
		NodeType: nodeType,
	}
}

// NodeRemoved is raised when a node is cascade-deleted with its edges
type NodeRemoved struct {
	BaseEvent
	NodeID       valueobjects.NodeID   `json:"node_id"`
	NodeType     valueobjects.NodeType `json:"node_type"`
	RemovedEdges int                   `json:"removed_edges"`
}

// NewNodeRemoved creates a NodeRemoved event
func NewNodeRemoved(canvasID string, nodeID valueobjects.NodeID, nodeType valueobjects.NodeType, removedEdges int, timestamp time.Time) NodeRemoved {
	return NodeRemoved{
		BaseEvent: BaseEvent{
			AggregateID: canvasID,
			EventType:   "canvas.node_removed",
			Timestamp:   timestamp,
			Version:     1,
		},
		NodeID:       nodeID,
		NodeType:     nodeType,
		RemovedEdges: removedEdges,
	}
}

// NodeMoved is raised when a node is moved to a new position
type NodeMoved struct {
	BaseEvent
	NodeID      valueobjects.NodeID   `json:"node_id"`
	OldPosition valueobjects.Position `json:"old_position"`
	NewPosition valueobjects.Position `json:"new_position"`
}

// NewNodeMoved creates a NodeMoved event
func NewNodeMoved(nodeID valueobjects.NodeID, oldPos, newPos valueobjects.Position, timestamp time.Time) NodeMoved {
	return NodeMoved{
		BaseEvent: BaseEvent{
			AggregateID: nodeID.String(),
			EventType:   "canvas.node_moved",
			Timestamp:   timestamp,
			Version:     1,
		},
		NodeID:      nodeID,
		OldPosition: oldPos,
		NewPosition: newPos,
	}
}

// NodeFieldUpdated is raised when a payload field is patched
type NodeFieldUpdated struct {
	BaseEvent
	NodeID valueobjects.NodeID `json:"node_id"`
	Field  string              `json:"field"`
}

// NewNodeFieldUpdated creates a NodeFieldUpdated event
func NewNodeFieldUpdated(nodeID valueobjects.NodeID, field string, timestamp time.Time) NodeFieldUpdated {
	return NodeFieldUpdated{
		BaseEvent: BaseEvent{
			AggregateID: nodeID.String(),
			EventType:   "canvas.node_field_updated",
			Timestamp:   timestamp,
			Version:     1,
		},
		NodeID: nodeID,
		Field:  field,
	}
}

// Edge events

// EdgeAdded is raised when two nodes are connected
type EdgeAdded struct {
	BaseEvent
	EdgeID   valueobjects.EdgeID `json:"edge_id"`
	SourceID valueobjects.NodeID `json:"source_id"`
	TargetID valueobjects.NodeID `json:"target_id"`
}

// NewEdgeAdded creates an EdgeAdded event
func NewEdgeAdded(canvasID string, edgeID valueobjects.EdgeID, sourceID, targetID valueobjects.NodeID, timestamp time.Time) EdgeAdded {
	return EdgeAdded{
		BaseEvent: BaseEvent{
			AggregateID: canvasID,
			EventType:   "canvas.edge_added",
			Timestamp:   timestamp,
			Version:     1,
		},
		EdgeID:   edgeID,
		SourceID: sourceID,
		TargetID: targetID,
	}
}

// EdgeRemoved is raised when an edge is removed
type EdgeRemoved struct {
	BaseEvent
	EdgeID   valueobjects.EdgeID `json:"edge_id"`
	SourceID valueobjects.NodeID `json:"source_id"`
	TargetID valueobjects.NodeID `json:"target_id"`
}

// NewEdgeRemoved creates an EdgeRemoved event
func NewEdgeRemoved(canvasID string, edgeID valueobjects.EdgeID, sourceID, targetID valueobjects.NodeID, timestamp time.Time) EdgeRemoved {
	return EdgeRemoved{
		BaseEvent: BaseEvent{
			AggregateID: canvasID,
			EventType:   "canvas.edge_removed",
			Timestamp:   timestamp,
			Version:     1,
		},
		EdgeID:   edgeID,
		SourceID: sourceID,
		TargetID: targetID,
	}
}

// EdgeRewired is raised when an edge endpoint is moved to another node
type EdgeRewired struct {
	BaseEvent
	EdgeID    valueobjects.EdgeID `json:"edge_id"`
	Endpoint  string              `json:"endpoint"`
	OldNodeID valueobjects.NodeID `json:"old_node_id"`
	NewNodeID valueobjects.NodeID `json:"new_node_id"`
}

// NewEdgeRewired creates an EdgeRewired event
func NewEdgeRewired(canvasID string, edgeID valueobjects.EdgeID, endpoint string, oldNodeID, newNodeID valueobjects.NodeID, timestamp time.Time) EdgeRewired {
	return EdgeRewired{
		BaseEvent: BaseEvent{
			AggregateID: canvasID,
			EventType:   "canvas.edge_rewired",
			Timestamp:   timestamp,
			Version:     1,
		},
		EdgeID:    edgeID,
		Endpoint:  endpoint,
		OldNodeID: oldNodeID,
		NewNodeID: newNodeID,
	}
}

// Document events

// SubgraphRestored is raised when a timed-undo restore re-inserts a
// deleted node and its edges
type SubgraphRestored struct {
	BaseEvent
	NodeID        valueobjects.NodeID `json:"node_id"`
	RestoredEdges int                 `json:"restored_edges"`
	SkippedEdges  int                 `json:"skipped_edges"`
}

// NewSubgraphRestored creates a SubgraphRestored event
func NewSubgraphRestored(canvasID string, nodeID valueobjects.NodeID, restoredEdges, skippedEdges int, timestamp time.Time) SubgraphRestored {
	return SubgraphRestored{
		BaseEvent: BaseEvent{
			AggregateID: canvasID,
			EventType:   "canvas.subgraph_restored",
			Timestamp:   timestamp,
			Version:     1,
		},
		NodeID:        nodeID,
		RestoredEdges: restoredEdges,
		SkippedEdges:  skippedEdges,
	}
}

// CanvasImported is raised when a loaded snapshot replaces the document
type CanvasImported struct {
	BaseEvent
	NodeCount int `json:"node_count"`
	EdgeCount int `json:"edge_count"`
}

// NewCanvasImported creates a CanvasImported event
func NewCanvasImported(canvasID string, nodeCount, edgeCount int, timestamp time.Time) CanvasImported {
	return CanvasImported{
		BaseEvent: BaseEvent{
			AggregateID: canvasID,
			EventType:   "canvas.imported",
			Timestamp:   timestamp,
			Version:     1,
		},
		NodeCount: nodeCount,
		EdgeCount: edgeCount,
	}
}

// CanvasCleared is raised when the document is reset
type CanvasCleared struct {
	BaseEvent
	NodeCount int `json:"node_count"`
	EdgeCount int `json:"edge_count"`
}

// NewCanvasCleared creates a CanvasCleared event
func NewCanvasCleared(canvasID string, nodeCount, edgeCount int, timestamp time.Time) CanvasCleared {
	return CanvasCleared{
		BaseEvent: BaseEvent{
			AggregateID: canvasID,
			EventType:   "canvas.cleared",
			Timestamp:   timestamp,
			Version:     1,
		},
		NodeCount: nodeCount,
		EdgeCount: edgeCount,
	}
}
