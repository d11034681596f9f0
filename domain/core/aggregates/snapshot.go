package aggregates

import (
	"encoding/json"

	"flowcanvas/domain/core/entities"
	"flowcanvas/domain/core/valueobjects"
)

// Snapshot is the serialized document form shared by the bridge API,
// the upstream backend client, and the crash-recovery draft store.
// Export is deterministic: nodes and edges appear in insertion order.
type Snapshot struct {
	Nodes []NodeSnapshot `json:"nodes" msgpack:"nodes"`
	Edges []EdgeSnapshot `json:"edges" msgpack:"edges"`
}

// NodeSnapshot is the wire form of a node
type NodeSnapshot struct {
	ID       string          `json:"id" msgpack:"id"`
	Type     string          `json:"type" msgpack:"type"`
	Position PointSnapshot   `json:"position" msgpack:"position"`
	Data     json.RawMessage `json:"data" msgpack:"data"`
}

// PointSnapshot is the wire form of a canvas position
type PointSnapshot struct {
	X float64 `json:"x" msgpack:"x"`
	Y float64 `json:"y" msgpack:"y"`
}

// EdgeSnapshot is the wire form of an edge
type EdgeSnapshot struct {
	ID           string `json:"id" msgpack:"id"`
	Source       string `json:"source" msgpack:"source"`
	Target       string `json:"target" msgpack:"target"`
	SourceHandle string `json:"sourceHandle" msgpack:"sourceHandle"`
	TargetHandle string `json:"targetHandle" msgpack:"targetHandle"`
}

// IsEmpty reports whether the snapshot carries no document content
func (s Snapshot) IsEmpty() bool {
	return len(s.Nodes) == 0 && len(s.Edges) == 0
}

// SnapshotNode exports a single node in its wire form
func SnapshotNode(node *entities.Node) (NodeSnapshot, error) {
	data, err := valueobjects.EncodePayload(node.Payload())
	if err != nil {
		return NodeSnapshot{}, err
	}
	return NodeSnapshot{
		ID:   node.ID().String(),
		Type: node.Type().String(),
		Position: PointSnapshot{
			X: node.Position().X(),
			Y: node.Position().Y(),
		},
		Data: data,
	}, nil
}

// SnapshotEdge exports a single edge in its wire form
func SnapshotEdge(edge *entities.Edge) EdgeSnapshot {
	return EdgeSnapshot{
		ID:           edge.ID().String(),
		Source:       edge.Source().String(),
		Target:       edge.Target().String(),
		SourceHandle: edge.SourceHandle().String(),
		TargetHandle: edge.TargetHandle().String(),
	}
}
