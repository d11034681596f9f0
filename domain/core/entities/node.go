package entities

import (
	"encoding/json"
	"time"

	"flowcanvas/domain/core/valueobjects"
	"flowcanvas/domain/events"
	pkgerrors "flowcanvas/pkg/errors"
)

// Node is the entity representing a workflow step on the canvas
// This is a rich domain model with encapsulated business logic
type Node struct {
	// Private fields ensure encapsulation
	id        valueobjects.NodeID
	nodeType  valueobjects.NodeType
	position  valueobjects.Position
	payload   valueobjects.Payload
	createdAt time.Time
	updatedAt time.Time
	version   int

	// Domain events that occurred during this entity's lifetime
	events []events.DomainEvent
}

// NewNode creates a new node, enforcing agreement between the declared
// type and the payload variant
func NewNode(nodeType valueobjects.NodeType, position valueobjects.Position, payload valueobjects.Payload) (*Node, error) {
	if _, err := valueobjects.ParseNodeType(string(nodeType)); err != nil {
		return nil, err
	}
	if payload == nil {
		return nil, pkgerrors.ErrInvalidPayload.WithDetail("type", string(nodeType))
	}
	if payload.Kind() != nodeType {
		return nil, pkgerrors.ErrInvalidPayload.
			WithDetail("type", string(nodeType)).
			WithDetail("payload_kind", string(payload.Kind()))
	}

	now := time.Now()
	return &Node{
		id:        valueobjects.NewNodeID(),
		nodeType:  nodeType,
		position:  position,
		payload:   payload,
		createdAt: now,
		updatedAt: now,
		version:   1,
		events:    []events.DomainEvent{},
	}, nil
}

// ReconstructNode rebuilds a node from persisted data with preserved
// identity and timestamps
func ReconstructNode(
	id valueobjects.NodeID,
	nodeType valueobjects.NodeType,
	position valueobjects.Position,
	payload valueobjects.Payload,
	createdAt, updatedAt time.Time,
) (*Node, error) {
	if id.IsZero() {
		return nil, pkgerrors.NewDomainError(
			pkgerrors.DomainValidationError,
			"NODE_ID_REQUIRED",
			"Node ID is required for reconstruction",
		)
	}
	if payload == nil || payload.Kind() != nodeType {
		return nil, pkgerrors.ErrInvalidPayload.WithDetail("type", string(nodeType))
	}

	return &Node{
		id:        id,
		nodeType:  nodeType,
		position:  position,
		payload:   payload,
		createdAt: createdAt,
		updatedAt: updatedAt,
		version:   1,
		events:    []events.DomainEvent{},
	}, nil
}

// ID returns the node's unique identifier
func (n *Node) ID() valueobjects.NodeID {
	return n.id
}

// Type returns the node's declared type
func (n *Node) Type() valueobjects.NodeType {
	return n.nodeType
}

// Position returns the node's canvas position
func (n *Node) Position() valueobjects.Position {
	return n.position
}

// Payload returns the node's typed data
func (n *Node) Payload() valueobjects.Payload {
	return n.payload
}

// Version returns the node's version for change detection
func (n *Node) Version() int {
	return n.version
}

// CreatedAt returns when the node was created
func (n *Node) CreatedAt() time.Time {
	return n.createdAt
}

// UpdatedAt returns when the node was last updated
func (n *Node) UpdatedAt() time.Time {
	return n.updatedAt
}

// MoveTo moves the node to a new position. Returns false when the
// position is unchanged and no mutation occurred.
func (n *Node) MoveTo(position valueobjects.Position) bool {
	if position.Equals(n.position) {
		return false // No movement needed
	}

	oldPosition := n.position
	n.position = position
	n.updatedAt = time.Now()

	n.addEvent(events.NewNodeMoved(n.id, oldPosition, position, n.updatedAt))

	return true
}

// ApplyFieldPatch merges a single-field update into the node's payload.
// Cross-field constraints are deferred until the document is explicitly
// validated, so a node may pass through locally inconsistent states
// while the user is editing.
func (n *Node) ApplyFieldPatch(field string, value json.RawMessage) error {
	patched, err := valueobjects.PatchPayload(n.payload, field, value)
	if err != nil {
		return err
	}

	n.payload = patched
	n.updatedAt = time.Now()
	n.version++

	n.addEvent(events.NewNodeFieldUpdated(n.id, field, n.updatedAt))

	return nil
}

// GetUncommittedEvents returns all uncommitted domain events
func (n *Node) GetUncommittedEvents() []events.DomainEvent {
	return n.events
}

// MarkEventsAsCommitted clears the uncommitted events
func (n *Node) MarkEventsAsCommitted() {
	n.events = []events.DomainEvent{}
}

// addEvent adds a domain event to the uncommitted list
func (n *Node) addEvent(event events.DomainEvent) {
	n.events = append(n.events, event)
}
