package entities

import (
	"time"

	"flowcanvas/domain/core/valueobjects"
	pkgerrors "flowcanvas/pkg/errors"
)

// Endpoint names the edge end affected by a rewire
type Endpoint string

const (
	EndpointSource Endpoint = "source"
	EndpointTarget Endpoint = "target"
)

// ParseEndpoint validates an endpoint string
func ParseEndpoint(s string) (Endpoint, error) {
	switch Endpoint(s) {
	case EndpointSource, EndpointTarget:
		return Endpoint(s), nil
	default:
		return "", pkgerrors.NewDomainError(
			pkgerrors.DomainValidationError,
			"INVALID_ENDPOINT",
			"Endpoint must be source or target",
		).WithDetail("endpoint", s)
	}
}

// Edge is the entity representing a directed connection between two
// nodes. Structural legality (no self-loops, no duplicates, port
// direction) is the canvas aggregate's concern; the entity only keeps
// its own fields coherent.
type Edge struct {
	id           valueobjects.EdgeID
	source       valueobjects.NodeID
	target       valueobjects.NodeID
	sourceHandle valueobjects.Handle
	targetHandle valueobjects.Handle
	createdAt    time.Time
}

// NewEdge creates a new edge between two nodes
func NewEdge(source, target valueobjects.NodeID, sourceHandle, targetHandle valueobjects.Handle) (*Edge, error) {
	if source.IsZero() || target.IsZero() {
		return nil, pkgerrors.ErrEdgeEndpointMissing
	}

	return &Edge{
		id:           valueobjects.NewEdgeID(),
		source:       source,
		target:       target,
		sourceHandle: sourceHandle,
		targetHandle: targetHandle,
		createdAt:    time.Now(),
	}, nil
}

// ReconstructEdge rebuilds an edge from persisted data with preserved
// identity
func ReconstructEdge(
	id valueobjects.EdgeID,
	source, target valueobjects.NodeID,
	sourceHandle, targetHandle valueobjects.Handle,
	createdAt time.Time,
) (*Edge, error) {
	if id.IsZero() {
		return nil, pkgerrors.NewDomainError(
			pkgerrors.DomainValidationError,
			"EDGE_ID_REQUIRED",
			"Edge ID is required for reconstruction",
		)
	}
	if source.IsZero() || target.IsZero() {
		return nil, pkgerrors.ErrEdgeEndpointMissing.WithDetail("edge_id", id.String())
	}

	return &Edge{
		id:           id,
		source:       source,
		target:       target,
		sourceHandle: sourceHandle,
		targetHandle: targetHandle,
		createdAt:    createdAt,
	}, nil
}

// ID returns the edge's unique identifier
func (e *Edge) ID() valueobjects.EdgeID {
	return e.id
}

// Source returns the source node's identifier
func (e *Edge) Source() valueobjects.NodeID {
	return e.source
}

// Target returns the target node's identifier
func (e *Edge) Target() valueobjects.NodeID {
	return e.target
}

// SourceHandle returns the port the edge leaves from
func (e *Edge) SourceHandle() valueobjects.Handle {
	return e.sourceHandle
}

// TargetHandle returns the port the edge arrives at
func (e *Edge) TargetHandle() valueobjects.Handle {
	return e.targetHandle
}

// CreatedAt returns when the edge was created
func (e *Edge) CreatedAt() time.Time {
	return e.createdAt
}

// Touches reports whether the edge references the node at either end
func (e *Edge) Touches(nodeID valueobjects.NodeID) bool {
	return e.source.Equals(nodeID) || e.target.Equals(nodeID)
}

// Rewire moves one endpoint of the edge to another node. Only the
// canvas aggregate calls this, after re-checking the graph invariants
// that would hold once the endpoint moves.
func (e *Edge) Rewire(endpoint Endpoint, newNodeID valueobjects.NodeID) error {
	if newNodeID.IsZero() {
		return pkgerrors.ErrEdgeEndpointMissing.WithDetail("edge_id", e.id.String())
	}

	switch endpoint {
	case EndpointSource:
		e.source = newNodeID
	case EndpointTarget:
		e.target = newNodeID
	default:
		_, err := ParseEndpoint(string(endpoint))
		return err
	}

	return nil
}
