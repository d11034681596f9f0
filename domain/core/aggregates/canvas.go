package aggregates

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"flowcanvas/domain/config"
	"flowcanvas/domain/core/entities"
	"flowcanvas/domain/core/validators"
	"flowcanvas/domain/core/valueobjects"
	"flowcanvas/domain/events"
	pkgerrors "flowcanvas/pkg/errors"
)

// CanvasID represents a unique canvas identifier
type CanvasID string

// NewCanvasID creates a new random CanvasID
func NewCanvasID() CanvasID {
	return CanvasID(uuid.New().String())
}

// String returns the string representation
func (id CanvasID) String() string {
	return string(id)
}

// NodeSpec describes a node to be created on the canvas
type NodeSpec struct {
	Type     valueobjects.NodeType
	Position valueobjects.Position
	Payload  valueobjects.Payload
}

// Connection describes an edge to be created between two nodes
type Connection struct {
	Source       valueobjects.NodeID
	Target       valueobjects.NodeID
	SourceHandle valueobjects.Handle
	TargetHandle valueobjects.Handle
}

// RemovedSubgraph is the result of a cascade delete: the removed node
// together with every edge that referenced it, in insertion order. It
// is handed to the undo store and must be re-insertable as-is.
type RemovedSubgraph struct {
	Node  *entities.Node
	Edges []*entities.Edge
}

// Canvas is the aggregate root for the workflow document. It owns the
// canonical node and edge collections and enforces the structural
// invariants: unique ids, no dangling edge endpoints, no self-loops, at
// most one edge per ordered (source, target) pair, and port-direction
// correctness. Cross-node consistency (single start node, reachability)
// is delegated to the backend validate call, never checked locally; a
// workflow may legally contain cycles.
type Canvas struct {
	id        CanvasID
	name      string
	nodes     map[valueobjects.NodeID]*entities.Node
	nodeOrder []valueobjects.NodeID
	edges     map[valueobjects.EdgeID]*entities.Edge
	edgeOrder []valueobjects.EdgeID
	pairs     map[string]valueobjects.EdgeID
	selection map[valueobjects.NodeID]struct{}
	revision  int64
	createdAt time.Time
	updatedAt time.Time

	cfg         *config.DomainConfig
	payloads    *validators.PayloadValidator
	connections *validators.ConnectionValidator

	events []events.DomainEvent
}

// NewCanvas creates an empty canvas aggregate
func NewCanvas(name string, cfg *config.DomainConfig) *Canvas {
	if cfg == nil {
		cfg = config.DefaultDomainConfig()
	}
	if name == "" {
		name = cfg.DefaultGraphName
	}

	now := time.Now()
	return &Canvas{
		id:          NewCanvasID(),
		name:        name,
		nodes:       make(map[valueobjects.NodeID]*entities.Node),
		nodeOrder:   []valueobjects.NodeID{},
		edges:       make(map[valueobjects.EdgeID]*entities.Edge),
		edgeOrder:   []valueobjects.EdgeID{},
		pairs:       make(map[string]valueobjects.EdgeID),
		selection:   make(map[valueobjects.NodeID]struct{}),
		revision:    0,
		createdAt:   now,
		updatedAt:   now,
		cfg:         cfg,
		payloads:    validators.NewPayloadValidator(cfg),
		connections: validators.NewConnectionValidator(),
		events:      []events.DomainEvent{},
	}
}

// ID returns the canvas's unique identifier
func (c *Canvas) ID() CanvasID {
	return c.id
}

// Name returns the canvas's name
func (c *Canvas) Name() string {
	return c.name
}

// Revision returns the monotonic mutation counter. Every successful
// mutation bumps it exactly once.
func (c *Canvas) Revision() int64 {
	return c.revision
}

// CreatedAt returns when the canvas was created
func (c *Canvas) CreatedAt() time.Time {
	return c.createdAt
}

// UpdatedAt returns when the canvas was last mutated
func (c *Canvas) UpdatedAt() time.Time {
	return c.updatedAt
}

// NodeCount returns the number of nodes on the canvas
func (c *Canvas) NodeCount() int {
	return len(c.nodes)
}

// EdgeCount returns the number of edges on the canvas
func (c *Canvas) EdgeCount() int {
	return len(c.edges)
}

// AddNode creates a node from spec and places it on the canvas.
// The payload is validated against the declared type's required fields
// before anything is inserted.
func (c *Canvas) AddNode(spec NodeSpec) (*entities.Node, error) {
	if len(c.nodes) >= c.cfg.MaxNodesPerCanvas {
		return nil, pkgerrors.ErrCanvasNodeLimit.
			WithDetail("limit", c.cfg.MaxNodesPerCanvas)
	}

	if err := c.payloads.Validate(spec.Payload); err != nil {
		return nil, err
	}

	node, err := entities.NewNode(spec.Type, spec.Position, spec.Payload)
	if err != nil {
		return nil, err
	}

	c.insertNode(node)
	c.touch()

	c.addEvent(events.NewNodeAdded(c.id.String(), node.ID(), node.Type(), c.updatedAt))

	return node, nil
}

// GetNode retrieves a node by ID
func (c *Canvas) GetNode(nodeID valueobjects.NodeID) (*entities.Node, error) {
	node, exists := c.nodes[nodeID]
	if !exists {
		return nil, pkgerrors.ErrNodeNotFound.WithDetail("node_id", nodeID.String())
	}
	return node, nil
}

// HasNode checks if a node exists on the canvas without error
func (c *Canvas) HasNode(nodeID valueobjects.NodeID) bool {
	_, exists := c.nodes[nodeID]
	return exists
}

// GetEdge retrieves an edge by ID
func (c *Canvas) GetEdge(edgeID valueobjects.EdgeID) (*entities.Edge, error) {
	edge, exists := c.edges[edgeID]
	if !exists {
		return nil, pkgerrors.ErrEdgeNotFound.WithDetail("edge_id", edgeID.String())
	}
	return edge, nil
}

// Nodes returns all nodes in insertion order
func (c *Canvas) Nodes() []*entities.Node {
	nodes := make([]*entities.Node, 0, len(c.nodeOrder))
	for _, id := range c.nodeOrder {
		nodes = append(nodes, c.nodes[id])
	}
	return nodes
}

// Edges returns all edges in insertion order
func (c *Canvas) Edges() []*entities.Edge {
	edges := make([]*entities.Edge, 0, len(c.edgeOrder))
	for _, id := range c.edgeOrder {
		edges = append(edges, c.edges[id])
	}
	return edges
}

// RemoveNode removes a node and every edge whose source or target
// references it (cascade delete). Any selection entry for the node is
// cleared. The removed set is returned so the caller can hand it to
// the undo store.
func (c *Canvas) RemoveNode(nodeID valueobjects.NodeID) (*RemovedSubgraph, error) {
	node, exists := c.nodes[nodeID]
	if !exists {
		return nil, pkgerrors.ErrNodeNotFound.WithDetail("node_id", nodeID.String())
	}

	removed := []*entities.Edge{}
	for _, edgeID := range c.edgeOrder {
		if edge := c.edges[edgeID]; edge.Touches(nodeID) {
			removed = append(removed, edge)
		}
	}

	for _, edge := range removed {
		c.deleteEdge(edge)
	}

	delete(c.nodes, nodeID)
	c.nodeOrder = removeNodeID(c.nodeOrder, nodeID)
	delete(c.selection, nodeID)
	c.touch()

	c.addEvent(events.NewNodeRemoved(c.id.String(), nodeID, node.Type(), len(removed), c.updatedAt))

	return &RemovedSubgraph{Node: node, Edges: removed}, nil
}

// Connect creates an edge between two nodes. The connection is rejected
// with a typed error, leaving the graph unchanged, when an endpoint is
// missing, the edge would loop a node onto itself, the ordered
// (source, target) pair already exists, or the handles violate port
// direction.
func (c *Canvas) Connect(conn Connection) (*entities.Edge, error) {
	source, sourceExists := c.nodes[conn.Source]
	target, targetExists := c.nodes[conn.Target]
	if !sourceExists || !targetExists {
		return nil, pkgerrors.ErrEdgeEndpointMissing.
			WithDetail("source", conn.Source.String()).
			WithDetail("target", conn.Target.String())
	}

	if conn.Source.Equals(conn.Target) {
		return nil, pkgerrors.ErrSelfReferentialEdge.
			WithDetail("node_id", conn.Source.String())
	}

	if _, exists := c.pairs[pairKey(conn.Source, conn.Target)]; exists {
		return nil, pkgerrors.ErrDuplicateEdge.
			WithDetail("source", conn.Source.String()).
			WithDetail("target", conn.Target.String())
	}

	if err := c.connections.ValidatePorts(
		source.Type(), conn.SourceHandle,
		target.Type(), conn.TargetHandle,
	); err != nil {
		return nil, err
	}

	if len(c.edges) >= c.cfg.MaxEdgesPerCanvas {
		return nil, pkgerrors.ErrCanvasEdgeLimit.
			WithDetail("limit", c.cfg.MaxEdgesPerCanvas)
	}

	edge, err := entities.NewEdge(conn.Source, conn.Target, conn.SourceHandle, conn.TargetHandle)
	if err != nil {
		return nil, err
	}

	c.insertEdge(edge)
	c.touch()

	c.addEvent(events.NewEdgeAdded(c.id.String(), edge.ID(), edge.Source(), edge.Target(), c.updatedAt))

	return edge, nil
}

// RemoveEdge removes an edge unconditionally. Removing an absent edge
// is a no-op; the return value reports whether anything was removed.
func (c *Canvas) RemoveEdge(edgeID valueobjects.EdgeID) bool {
	edge, exists := c.edges[edgeID]
	if !exists {
		return false
	}

	c.deleteEdge(edge)
	c.touch()

	c.addEvent(events.NewEdgeRemoved(c.id.String(), edge.ID(), edge.Source(), edge.Target(), c.updatedAt))

	return true
}

// UpdateNodeField merges a single-field update into a node's payload.
// Cross-field constraints are not re-checked until the document is
// explicitly validated.
func (c *Canvas) UpdateNodeField(nodeID valueobjects.NodeID, field string, value json.RawMessage) error {
	node, exists := c.nodes[nodeID]
	if !exists {
		return pkgerrors.ErrNodeNotFound.WithDetail("node_id", nodeID.String())
	}

	if err := node.ApplyFieldPatch(field, value); err != nil {
		return err
	}

	c.touch()
	return nil
}

// RewireEdge moves one endpoint of an existing edge to another node.
// The rewire is rejected when it would create a self-loop, duplicate an
// existing (source, target) pair, dangle an endpoint, or land on a node
// that does not expose the required port. The graph invariants hold
// both before and after.
func (c *Canvas) RewireEdge(edgeID valueobjects.EdgeID, endpoint entities.Endpoint, newNodeID valueobjects.NodeID) error {
	edge, exists := c.edges[edgeID]
	if !exists {
		return pkgerrors.ErrEdgeNotFound.WithDetail("edge_id", edgeID.String())
	}

	if _, err := entities.ParseEndpoint(string(endpoint)); err != nil {
		return err
	}

	if _, exists := c.nodes[newNodeID]; !exists {
		return pkgerrors.ErrEdgeEndpointMissing.WithDetail("node_id", newNodeID.String())
	}

	newSource, newTarget := edge.Source(), edge.Target()
	var oldNodeID valueobjects.NodeID
	switch endpoint {
	case entities.EndpointSource:
		oldNodeID, newSource = edge.Source(), newNodeID
	case entities.EndpointTarget:
		oldNodeID, newTarget = edge.Target(), newNodeID
	}

	if oldNodeID.Equals(newNodeID) {
		return nil // Nothing to rewire
	}

	if newSource.Equals(newTarget) {
		return pkgerrors.ErrSelfReferentialEdge.
			WithDetail("node_id", newSource.String())
	}

	if existing, exists := c.pairs[pairKey(newSource, newTarget)]; exists && !existing.Equals(edgeID) {
		return pkgerrors.ErrDuplicateEdge.
			WithDetail("source", newSource.String()).
			WithDetail("target", newTarget.String())
	}

	if err := c.connections.ValidatePorts(
		c.nodes[newSource].Type(), edge.SourceHandle(),
		c.nodes[newTarget].Type(), edge.TargetHandle(),
	); err != nil {
		return err
	}

	delete(c.pairs, pairKey(edge.Source(), edge.Target()))
	if err := edge.Rewire(endpoint, newNodeID); err != nil {
		c.pairs[pairKey(edge.Source(), edge.Target())] = edge.ID()
		return err
	}
	c.pairs[pairKey(edge.Source(), edge.Target())] = edge.ID()
	c.touch()

	c.addEvent(events.NewEdgeRewired(c.id.String(), edgeID, string(endpoint), oldNodeID, newNodeID, c.updatedAt))

	return nil
}

// MoveNode updates a node's canvas position. Moving a node to the
// position it already occupies is a no-op and does not bump the
// revision.
func (c *Canvas) MoveNode(nodeID valueobjects.NodeID, position valueobjects.Position) error {
	node, exists := c.nodes[nodeID]
	if !exists {
		return pkgerrors.ErrNodeNotFound.WithDetail("node_id", nodeID.String())
	}

	if !node.MoveTo(position) {
		return nil
	}

	c.touch()
	return nil
}

// MoveNodes applies a batch of position changes as one mutation: all
// targets are checked first, and however many nodes actually move, the
// revision advances at most once. This is how automatic layout lands on
// the canvas.
func (c *Canvas) MoveNodes(positions map[valueobjects.NodeID]valueobjects.Position) (int, error) {
	for nodeID := range positions {
		if _, exists := c.nodes[nodeID]; !exists {
			return 0, pkgerrors.ErrNodeNotFound.WithDetail("node_id", nodeID.String())
		}
	}

	moved := 0
	for _, nodeID := range c.nodeOrder {
		position, ok := positions[nodeID]
		if !ok {
			continue
		}
		if c.nodes[nodeID].MoveTo(position) {
			moved++
		}
	}

	if moved > 0 {
		c.touch()
	}
	return moved, nil
}

// Select marks a node as selected. Selection is view bookkeeping, not
// document content: it never bumps the revision or dirties the save
// state.
func (c *Canvas) Select(nodeID valueobjects.NodeID) error {
	if _, exists := c.nodes[nodeID]; !exists {
		return pkgerrors.ErrNodeNotFound.WithDetail("node_id", nodeID.String())
	}
	c.selection[nodeID] = struct{}{}
	return nil
}

// Deselect removes a node from the selection
func (c *Canvas) Deselect(nodeID valueobjects.NodeID) {
	delete(c.selection, nodeID)
}

// ClearSelection empties the selection
func (c *Canvas) ClearSelection() {
	c.selection = make(map[valueobjects.NodeID]struct{})
}

// IsSelected reports whether the node is currently selected
func (c *Canvas) IsSelected(nodeID valueobjects.NodeID) bool {
	_, selected := c.selection[nodeID]
	return selected
}

// Selection returns the selected node ids in insertion order
func (c *Canvas) Selection() []valueobjects.NodeID {
	selected := make([]valueobjects.NodeID, 0, len(c.selection))
	for _, id := range c.nodeOrder {
		if _, ok := c.selection[id]; ok {
			selected = append(selected, id)
		}
	}
	return selected
}

// RestoreSubgraph re-inserts a previously removed node and its edges
// with their original identities. Edges whose opposite endpoint no
// longer exists, or whose (source, target) pair has been re-created in
// the meantime, are skipped so the structural invariants keep holding.
func (c *Canvas) RestoreSubgraph(rec *RemovedSubgraph) error {
	if rec == nil || rec.Node == nil {
		return pkgerrors.NewDomainError(
			pkgerrors.DomainValidationError,
			"EMPTY_DELETION_RECORD",
			"There is no removed subgraph to restore",
		)
	}

	nodeID := rec.Node.ID()
	if _, exists := c.nodes[nodeID]; exists {
		return pkgerrors.NewDomainError(
			pkgerrors.DomainConflictError,
			"NODE_ALREADY_EXISTS",
			"A node with this ID is already on the canvas",
		).WithDetail("node_id", nodeID.String())
	}

	c.insertNode(rec.Node)

	restored, skipped := 0, 0
	for _, edge := range rec.Edges {
		if !c.HasNode(edge.Source()) || !c.HasNode(edge.Target()) {
			skipped++
			continue
		}
		if _, exists := c.pairs[pairKey(edge.Source(), edge.Target())]; exists {
			skipped++
			continue
		}
		if _, exists := c.edges[edge.ID()]; exists {
			skipped++
			continue
		}
		c.insertEdge(edge)
		restored++
	}

	c.touch()

	c.addEvent(events.NewSubgraphRestored(c.id.String(), nodeID, restored, skipped, c.updatedAt))

	return nil
}

// ImportSnapshot replaces the whole document with the snapshot's
// contents. The snapshot is parsed and checked in full before anything
// is swapped in, so a malformed snapshot leaves the canvas untouched.
func (c *Canvas) ImportSnapshot(snap Snapshot) error {
	nodes := make(map[valueobjects.NodeID]*entities.Node, len(snap.Nodes))
	nodeOrder := make([]valueobjects.NodeID, 0, len(snap.Nodes))
	edges := make(map[valueobjects.EdgeID]*entities.Edge, len(snap.Edges))
	edgeOrder := make([]valueobjects.EdgeID, 0, len(snap.Edges))
	pairs := make(map[string]valueobjects.EdgeID, len(snap.Edges))

	now := time.Now()
	for _, ns := range snap.Nodes {
		node, err := nodeFromSnapshot(ns, now)
		if err != nil {
			return err
		}
		if _, exists := nodes[node.ID()]; exists {
			return pkgerrors.NewDomainError(
				pkgerrors.DomainValidationError,
				"DUPLICATE_NODE_ID",
				"Snapshot contains a duplicate node ID",
			).WithDetail("node_id", ns.ID)
		}
		nodes[node.ID()] = node
		nodeOrder = append(nodeOrder, node.ID())
	}

	for _, es := range snap.Edges {
		edge, err := edgeFromSnapshot(es, now)
		if err != nil {
			return err
		}

		source, sourceExists := nodes[edge.Source()]
		target, targetExists := nodes[edge.Target()]
		if !sourceExists || !targetExists {
			return pkgerrors.ErrEdgeEndpointMissing.
				WithDetail("edge_id", es.ID)
		}
		if edge.Source().Equals(edge.Target()) {
			return pkgerrors.ErrSelfReferentialEdge.
				WithDetail("edge_id", es.ID)
		}
		key := pairKey(edge.Source(), edge.Target())
		if _, exists := pairs[key]; exists {
			return pkgerrors.ErrDuplicateEdge.
				WithDetail("edge_id", es.ID)
		}
		if _, exists := edges[edge.ID()]; exists {
			return pkgerrors.NewDomainError(
				pkgerrors.DomainValidationError,
				"DUPLICATE_EDGE_ID",
				"Snapshot contains a duplicate edge ID",
			).WithDetail("edge_id", es.ID)
		}
		if err := c.connections.ValidatePorts(
			source.Type(), edge.SourceHandle(),
			target.Type(), edge.TargetHandle(),
		); err != nil {
			return err
		}

		edges[edge.ID()] = edge
		edgeOrder = append(edgeOrder, edge.ID())
		pairs[key] = edge.ID()
	}

	c.nodes = nodes
	c.nodeOrder = nodeOrder
	c.edges = edges
	c.edgeOrder = edgeOrder
	c.pairs = pairs
	c.selection = make(map[valueobjects.NodeID]struct{})
	c.touch()

	c.addEvent(events.NewCanvasImported(c.id.String(), len(nodes), len(edges), c.updatedAt))

	return nil
}

// Reset clears the whole document. Resetting an already empty canvas is
// a no-op.
func (c *Canvas) Reset() {
	if len(c.nodes) == 0 && len(c.edges) == 0 {
		return
	}

	nodeCount, edgeCount := len(c.nodes), len(c.edges)

	c.nodes = make(map[valueobjects.NodeID]*entities.Node)
	c.nodeOrder = []valueobjects.NodeID{}
	c.edges = make(map[valueobjects.EdgeID]*entities.Edge)
	c.edgeOrder = []valueobjects.EdgeID{}
	c.pairs = make(map[string]valueobjects.EdgeID)
	c.selection = make(map[valueobjects.NodeID]struct{})
	c.touch()

	c.addEvent(events.NewCanvasCleared(c.id.String(), nodeCount, edgeCount, c.updatedAt))
}

// Snapshot exports the document in its deterministic wire form
func (c *Canvas) Snapshot() (Snapshot, error) {
	snap := Snapshot{
		Nodes: make([]NodeSnapshot, 0, len(c.nodeOrder)),
		Edges: make([]EdgeSnapshot, 0, len(c.edgeOrder)),
	}

	for _, id := range c.nodeOrder {
		ns, err := SnapshotNode(c.nodes[id])
		if err != nil {
			return Snapshot{}, err
		}
		snap.Nodes = append(snap.Nodes, ns)
	}

	for _, id := range c.edgeOrder {
		snap.Edges = append(snap.Edges, SnapshotEdge(c.edges[id]))
	}

	return snap, nil
}

// Validate ensures the canvas's own structural invariants. Cross-node
// consistency is the backend's job.
func (c *Canvas) Validate() error {
	for _, edge := range c.edges {
		if _, sourceExists := c.nodes[edge.Source()]; !sourceExists {
			return pkgerrors.ErrEdgeEndpointMissing.
				WithDetail("edge_id", edge.ID().String()).
				WithDetail("source", edge.Source().String())
		}
		if _, targetExists := c.nodes[edge.Target()]; !targetExists {
			return pkgerrors.ErrEdgeEndpointMissing.
				WithDetail("edge_id", edge.ID().String()).
				WithDetail("target", edge.Target().String())
		}
		if edge.Source().Equals(edge.Target()) {
			return pkgerrors.ErrSelfReferentialEdge.
				WithDetail("edge_id", edge.ID().String())
		}
	}

	if len(c.nodeOrder) != len(c.nodes) || len(c.edgeOrder) != len(c.edges) {
		return pkgerrors.NewDomainError(
			pkgerrors.DomainInfrastructureError,
			"ORDER_INDEX_MISMATCH",
			"Canvas order index diverged from its collections",
		)
	}
	if len(c.pairs) != len(c.edges) {
		return pkgerrors.NewDomainError(
			pkgerrors.DomainInfrastructureError,
			"PAIR_INDEX_MISMATCH",
			"Canvas pair index diverged from its edges",
		)
	}

	return nil
}

// GetUncommittedEvents returns all uncommitted domain events, including
// those raised by the member nodes
func (c *Canvas) GetUncommittedEvents() []events.DomainEvent {
	allEvents := make([]events.DomainEvent, len(c.events))
	copy(allEvents, c.events)

	for _, id := range c.nodeOrder {
		allEvents = append(allEvents, c.nodes[id].GetUncommittedEvents()...)
	}

	return allEvents
}

// MarkEventsAsCommitted clears all uncommitted events
func (c *Canvas) MarkEventsAsCommitted() {
	c.events = []events.DomainEvent{}

	for _, node := range c.nodes {
		node.MarkEventsAsCommitted()
	}
}

// Private helper methods

func (c *Canvas) addEvent(event events.DomainEvent) {
	c.events = append(c.events, event)
}

func (c *Canvas) touch() {
	c.updatedAt = time.Now()
	c.revision++
}

func (c *Canvas) insertNode(node *entities.Node) {
	c.nodes[node.ID()] = node
	c.nodeOrder = append(c.nodeOrder, node.ID())
}

func (c *Canvas) insertEdge(edge *entities.Edge) {
	c.edges[edge.ID()] = edge
	c.edgeOrder = append(c.edgeOrder, edge.ID())
	c.pairs[pairKey(edge.Source(), edge.Target())] = edge.ID()
}

func (c *Canvas) deleteEdge(edge *entities.Edge) {
	delete(c.edges, edge.ID())
	delete(c.pairs, pairKey(edge.Source(), edge.Target()))
	c.edgeOrder = removeEdgeID(c.edgeOrder, edge.ID())
}

func pairKey(source, target valueobjects.NodeID) string {
	return source.String() + "->" + target.String()
}

func removeNodeID(ids []valueobjects.NodeID, id valueobjects.NodeID) []valueobjects.NodeID {
	out := ids[:0]
	for _, v := range ids {
		if !v.Equals(id) {
			out = append(out, v)
		}
	}
	return out
}

func removeEdgeID(ids []valueobjects.EdgeID, id valueobjects.EdgeID) []valueobjects.EdgeID {
	out := ids[:0]
	for _, v := range ids {
		if !v.Equals(id) {
			out = append(out, v)
		}
	}
	return out
}

func nodeFromSnapshot(ns NodeSnapshot, now time.Time) (*entities.Node, error) {
	id, err := valueobjects.ParseNodeID(ns.ID)
	if err != nil {
		return nil, pkgerrors.NewDomainError(
			pkgerrors.DomainValidationError,
			"INVALID_NODE_ID",
			"Snapshot node ID is not a valid UUID",
		).WithDetail("node_id", ns.ID).WithCause(err)
	}

	nodeType, err := valueobjects.ParseNodeType(ns.Type)
	if err != nil {
		return nil, err
	}

	position, err := valueobjects.NewPosition(ns.Position.X, ns.Position.Y)
	if err != nil {
		return nil, pkgerrors.NewDomainError(
			pkgerrors.DomainValidationError,
			"INVALID_POSITION",
			"Snapshot node position is not finite",
		).WithDetail("node_id", ns.ID).WithCause(err)
	}

	payload, err := valueobjects.DecodePayload(nodeType, ns.Data)
	if err != nil {
		return nil, err
	}

	return entities.ReconstructNode(id, nodeType, position, payload, now, now)
}

func edgeFromSnapshot(es EdgeSnapshot, now time.Time) (*entities.Edge, error) {
	id, err := valueobjects.ParseEdgeID(es.ID)
	if err != nil {
		return nil, pkgerrors.NewDomainError(
			pkgerrors.DomainValidationError,
			"INVALID_EDGE_ID",
			"Snapshot edge ID is not a valid UUID",
		).WithDetail("edge_id", es.ID).WithCause(err)
	}

	source, err := valueobjects.ParseNodeID(es.Source)
	if err != nil {
		return nil, pkgerrors.ErrEdgeEndpointMissing.
			WithDetail("edge_id", es.ID).WithCause(err)
	}
	target, err := valueobjects.ParseNodeID(es.Target)
	if err != nil {
		return nil, pkgerrors.ErrEdgeEndpointMissing.
			WithDetail("edge_id", es.ID).WithCause(err)
	}

	sourceHandle, err := valueobjects.ParseHandle(es.SourceHandle)
	if err != nil {
		return nil, err
	}
	targetHandle, err := valueobjects.ParseHandle(es.TargetHandle)
	if err != nil {
		return nil, err
	}

	return entities.ReconstructEdge(id, source, target, sourceHandle, targetHandle, now)
}
