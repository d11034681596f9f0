package aggregates_test

import (
	"encoding/json"
	"testing"

	domainconfig "flowcanvas/domain/config"
	"flowcanvas/domain/core/aggregates"
	"flowcanvas/domain/core/entities"
	"flowcanvas/domain/core/valueobjects"
	pkgerrors "flowcanvas/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanvas_AddNode(t *testing.T) {
	// Arrange
	canvas := aggregates.NewCanvas("default", nil)

	// Act
	node, err := canvas.AddNode(agentSpec(t, "Researcher"))

	// Assert
	require.NoError(t, err)
	assert.True(t, canvas.HasNode(node.ID()))
	assert.Equal(t, 1, canvas.NodeCount())
	assert.Equal(t, int64(1), canvas.Revision())

	events := canvas.GetUncommittedEvents()
	require.Len(t, events, 1)
	assert.Equal(t, "canvas.node_added", events[0].GetEventType())
}

func TestCanvas_AddNodeRejectsIncompletePayload(t *testing.T) {
	canvas := aggregates.NewCanvas("default", nil)

	cases := []struct {
		name string
		spec aggregates.NodeSpec
	}{
		{
			"agent without prompt",
			aggregates.NodeSpec{
				Type:     valueobjects.NodeTypeAgent,
				Position: origin(t),
				Payload:  valueobjects.AgentPayload{Name: "A"},
			},
		},
		{
			"tools without selection",
			aggregates.NodeSpec{
				Type:     valueobjects.NodeTypeTools,
				Position: origin(t),
				Payload:  valueobjects.ToolsPayload{Name: "T"},
			},
		},
		{
			"rag without data source",
			aggregates.NodeSpec{
				Type:     valueobjects.NodeTypeTools,
				Position: origin(t),
				Payload: valueobjects.ToolsPayload{
					Name:          "T",
					SelectedTools: []valueobjects.ToolID{valueobjects.ToolRAG},
				},
			},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := canvas.AddNode(tc.spec)
			assert.Error(t, err)
			assert.Equal(t, 0, canvas.NodeCount())
		})
	}
}

func TestCanvas_RemoveNodeCascadesEdges(t *testing.T) {
	// Arrange: start -> agent -> end, agent -> tools
	canvas := aggregates.NewCanvas("default", nil)
	start := addNode(t, canvas, valueobjects.NodeTypeStart)
	agent := addNode(t, canvas, valueobjects.NodeTypeAgent)
	tools := addNode(t, canvas, valueobjects.NodeTypeTools)
	end := addNode(t, canvas, valueobjects.NodeTypeEnd)

	connect(t, canvas, start, agent)
	connect(t, canvas, agent, end)
	connect(t, canvas, agent, tools)
	connect(t, canvas, tools, end)

	// Act
	removed, err := canvas.RemoveNode(agent.ID())

	// Assert
	require.NoError(t, err)
	assert.True(t, removed.Node.ID().Equals(agent.ID()))
	assert.Len(t, removed.Edges, 3)

	// No surviving edge may reference the removed node
	for _, edge := range canvas.Edges() {
		assert.False(t, edge.Touches(agent.ID()))
	}
	assert.Equal(t, 1, canvas.EdgeCount())
	assert.False(t, canvas.HasNode(agent.ID()))
}

func TestCanvas_RemoveNodeClearsSelection(t *testing.T) {
	// Arrange
	canvas := aggregates.NewCanvas("default", nil)
	agent := addNode(t, canvas, valueobjects.NodeTypeAgent)
	require.NoError(t, canvas.Select(agent.ID()))
	require.True(t, canvas.IsSelected(agent.ID()))

	// Act
	_, err := canvas.RemoveNode(agent.ID())

	// Assert
	require.NoError(t, err)
	assert.Empty(t, canvas.Selection())
}

func TestCanvas_RemoveNodeNotFound(t *testing.T) {
	canvas := aggregates.NewCanvas("default", nil)

	_, err := canvas.RemoveNode(valueobjects.NewNodeID())

	require.Error(t, err)
	assert.ErrorIs(t, err, pkgerrors.ErrNodeNotFound)
}

func TestCanvas_ConnectRejections(t *testing.T) {
	// Arrange
	canvas := aggregates.NewCanvas("default", nil)
	start := addNode(t, canvas, valueobjects.NodeTypeStart)
	agent := addNode(t, canvas, valueobjects.NodeTypeAgent)
	end := addNode(t, canvas, valueobjects.NodeTypeEnd)
	connect(t, canvas, start, agent)

	revisionBefore := canvas.Revision()
	edgesBefore := canvas.EdgeCount()

	cases := []struct {
		name     string
		conn     aggregates.Connection
		sentinel error
	}{
		{
			"self loop",
			aggregates.Connection{
				Source: agent.ID(), Target: agent.ID(),
				SourceHandle: valueobjects.HandleOut, TargetHandle: valueobjects.HandleIn,
			},
			pkgerrors.ErrSelfReferentialEdge,
		},
		{
			"duplicate ordered pair",
			aggregates.Connection{
				Source: start.ID(), Target: agent.ID(),
				SourceHandle: valueobjects.HandleOut, TargetHandle: valueobjects.HandleIn,
			},
			pkgerrors.ErrDuplicateEdge,
		},
		{
			"missing endpoint",
			aggregates.Connection{
				Source: agent.ID(), Target: valueobjects.NewNodeID(),
				SourceHandle: valueobjects.HandleOut, TargetHandle: valueobjects.HandleIn,
			},
			pkgerrors.ErrEdgeEndpointMissing,
		},
		{
			"input port used as source",
			aggregates.Connection{
				Source: agent.ID(), Target: end.ID(),
				SourceHandle: valueobjects.HandleIn, TargetHandle: valueobjects.HandleIn,
			},
			pkgerrors.ErrIllegalPortDirection,
		},
		{
			"output port used as target",
			aggregates.Connection{
				Source: agent.ID(), Target: end.ID(),
				SourceHandle: valueobjects.HandleOut, TargetHandle: valueobjects.HandleOut,
			},
			pkgerrors.ErrIllegalPortDirection,
		},
		{
			"edge out of an end node",
			aggregates.Connection{
				Source: end.ID(), Target: agent.ID(),
				SourceHandle: valueobjects.HandleOut, TargetHandle: valueobjects.HandleIn,
			},
			pkgerrors.ErrIllegalPortDirection,
		},
		{
			"edge into a start node",
			aggregates.Connection{
				Source: agent.ID(), Target: start.ID(),
				SourceHandle: valueobjects.HandleOut, TargetHandle: valueobjects.HandleIn,
			},
			pkgerrors.ErrIllegalPortDirection,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			// Act
			_, err := canvas.Connect(tc.conn)

			// Assert: typed rejection, graph unchanged
			require.Error(t, err)
			assert.ErrorIs(t, err, tc.sentinel)
			assert.Equal(t, edgesBefore, canvas.EdgeCount())
			assert.Equal(t, revisionBefore, canvas.Revision())
		})
	}
}

func TestCanvas_WorkflowCyclesAreLegal(t *testing.T) {
	// Arrange: agent <-> tools loops are a legitimate workflow shape
	canvas := aggregates.NewCanvas("default", nil)
	agent := addNode(t, canvas, valueobjects.NodeTypeAgent)
	tools := addNode(t, canvas, valueobjects.NodeTypeTools)

	// Act
	connect(t, canvas, agent, tools)
	connect(t, canvas, tools, agent)

	// Assert
	assert.Equal(t, 2, canvas.EdgeCount())
}

func TestCanvas_RemoveEdgeIsIdempotent(t *testing.T) {
	// Arrange
	canvas := aggregates.NewCanvas("default", nil)
	agent := addNode(t, canvas, valueobjects.NodeTypeAgent)
	tools := addNode(t, canvas, valueobjects.NodeTypeTools)
	edge := connect(t, canvas, agent, tools)

	// Act & Assert
	assert.True(t, canvas.RemoveEdge(edge.ID()))
	revisionAfterRemove := canvas.Revision()

	assert.False(t, canvas.RemoveEdge(edge.ID()))
	assert.Equal(t, revisionAfterRemove, canvas.Revision())

	// The pair is free again after removal
	recreated, err := canvas.Connect(aggregates.Connection{
		Source: agent.ID(), Target: tools.ID(),
		SourceHandle: valueobjects.HandleOut, TargetHandle: valueobjects.HandleIn,
	})
	require.NoError(t, err)
	assert.False(t, recreated.ID().Equals(edge.ID()))
}

func TestCanvas_UpdateNodeFieldDefersCrossFieldChecks(t *testing.T) {
	// Arrange: a valid tools node
	canvas := aggregates.NewCanvas("default", nil)
	tools := addNode(t, canvas, valueobjects.NodeTypeTools)

	// Act: clearing the selection leaves the node locally inconsistent,
	// which is allowed while editing
	err := canvas.UpdateNodeField(tools.ID(), "selectedTools", json.RawMessage(`[]`))

	// Assert
	require.NoError(t, err)
	payload, ok := tools.Payload().(valueobjects.ToolsPayload)
	require.True(t, ok)
	assert.Empty(t, payload.SelectedTools)

	// Unknown field for the tag is still rejected immediately
	err = canvas.UpdateNodeField(tools.ID(), "prompt", json.RawMessage(`"p"`))
	require.Error(t, err)
	assert.ErrorIs(t, err, pkgerrors.ErrUnknownPayloadField)
}

func TestCanvas_RewireEdge(t *testing.T) {
	// Arrange: start -> agent, plus a spare tools node
	canvas := aggregates.NewCanvas("default", nil)
	start := addNode(t, canvas, valueobjects.NodeTypeStart)
	agent := addNode(t, canvas, valueobjects.NodeTypeAgent)
	tools := addNode(t, canvas, valueobjects.NodeTypeTools)
	edge := connect(t, canvas, start, agent)

	// Act: retarget the edge onto the tools node
	err := canvas.RewireEdge(edge.ID(), entities.EndpointTarget, tools.ID())

	// Assert
	require.NoError(t, err)
	assert.True(t, edge.Target().Equals(tools.ID()))
	assert.NoError(t, canvas.Validate())

	// The old pair is free again
	_, err = canvas.Connect(aggregates.Connection{
		Source: start.ID(), Target: agent.ID(),
		SourceHandle: valueobjects.HandleOut, TargetHandle: valueobjects.HandleIn,
	})
	assert.NoError(t, err)
}

func TestCanvas_RewireEdgeRejections(t *testing.T) {
	// Arrange: start -> agent -> end with agent -> tools
	canvas := aggregates.NewCanvas("default", nil)
	start := addNode(t, canvas, valueobjects.NodeTypeStart)
	agent := addNode(t, canvas, valueobjects.NodeTypeAgent)
	tools := addNode(t, canvas, valueobjects.NodeTypeTools)
	end := addNode(t, canvas, valueobjects.NodeTypeEnd)
	startAgent := connect(t, canvas, start, agent)
	agentTools := connect(t, canvas, agent, tools)
	connect(t, canvas, agent, end)

	cases := []struct {
		name      string
		edgeID    valueobjects.EdgeID
		endpoint  entities.Endpoint
		newNodeID valueobjects.NodeID
		sentinel  error
	}{
		{"unknown edge", valueobjects.NewEdgeID(), entities.EndpointTarget, tools.ID(), pkgerrors.ErrEdgeNotFound},
		{"unknown node", startAgent.ID(), entities.EndpointTarget, valueobjects.NewNodeID(), pkgerrors.ErrEdgeEndpointMissing},
		{"self loop", agentTools.ID(), entities.EndpointTarget, agent.ID(), pkgerrors.ErrSelfReferentialEdge},
		{"duplicate pair", agentTools.ID(), entities.EndpointTarget, end.ID(), pkgerrors.ErrDuplicateEdge},
		{"source moved to end node", agentTools.ID(), entities.EndpointSource, end.ID(), pkgerrors.ErrIllegalPortDirection},
		{"target moved to start node", agentTools.ID(), entities.EndpointTarget, start.ID(), pkgerrors.ErrIllegalPortDirection},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := canvas.RewireEdge(tc.edgeID, tc.endpoint, tc.newNodeID)
			require.Error(t, err)
			assert.ErrorIs(t, err, tc.sentinel)
			assert.NoError(t, canvas.Validate())
		})
	}
}

func TestCanvas_MoveNode(t *testing.T) {
	// Arrange
	canvas := aggregates.NewCanvas("default", nil)
	agent := addNode(t, canvas, valueobjects.NodeTypeAgent)
	revisionBefore := canvas.Revision()

	target, err := valueobjects.NewPosition(300, 120)
	require.NoError(t, err)

	// Act & Assert: a real move bumps the revision once
	require.NoError(t, canvas.MoveNode(agent.ID(), target))
	assert.Equal(t, revisionBefore+1, canvas.Revision())

	// Moving to the same position is a no-op
	require.NoError(t, canvas.MoveNode(agent.ID(), target))
	assert.Equal(t, revisionBefore+1, canvas.Revision())
}

func TestCanvas_SelectionDoesNotBumpRevision(t *testing.T) {
	// Arrange
	canvas := aggregates.NewCanvas("default", nil)
	agent := addNode(t, canvas, valueobjects.NodeTypeAgent)
	revisionBefore := canvas.Revision()

	// Act
	require.NoError(t, canvas.Select(agent.ID()))
	canvas.Deselect(agent.ID())
	require.NoError(t, canvas.Select(agent.ID()))
	canvas.ClearSelection()

	// Assert
	assert.Equal(t, revisionBefore, canvas.Revision())
}

func TestCanvas_RestoreSubgraphReproducesStructure(t *testing.T) {
	// Arrange: start -> agent -> end
	canvas := aggregates.NewCanvas("default", nil)
	start := addNode(t, canvas, valueobjects.NodeTypeStart)
	agent := addNode(t, canvas, valueobjects.NodeTypeAgent)
	end := addNode(t, canvas, valueobjects.NodeTypeEnd)
	in := connect(t, canvas, start, agent)
	out := connect(t, canvas, agent, end)

	removed, err := canvas.RemoveNode(agent.ID())
	require.NoError(t, err)

	// Act
	err = canvas.RestoreSubgraph(removed)

	// Assert: same node id, same edge ids, same endpoints
	require.NoError(t, err)
	assert.True(t, canvas.HasNode(agent.ID()))

	restoredIn, err := canvas.GetEdge(in.ID())
	require.NoError(t, err)
	assert.True(t, restoredIn.Source().Equals(start.ID()))
	assert.True(t, restoredIn.Target().Equals(agent.ID()))

	restoredOut, err := canvas.GetEdge(out.ID())
	require.NoError(t, err)
	assert.True(t, restoredOut.Source().Equals(agent.ID()))
	assert.True(t, restoredOut.Target().Equals(end.ID()))

	assert.NoError(t, canvas.Validate())
}

func TestCanvas_RestoreSubgraphSkipsVanishedEndpoints(t *testing.T) {
	// Arrange: start -> agent -> end, then delete agent AND end
	canvas := aggregates.NewCanvas("default", nil)
	start := addNode(t, canvas, valueobjects.NodeTypeStart)
	agent := addNode(t, canvas, valueobjects.NodeTypeAgent)
	end := addNode(t, canvas, valueobjects.NodeTypeEnd)
	connect(t, canvas, start, agent)
	agentEnd := connect(t, canvas, agent, end)

	removed, err := canvas.RemoveNode(agent.ID())
	require.NoError(t, err)
	_, err = canvas.RemoveNode(end.ID())
	require.NoError(t, err)

	// Act: restoring the agent can no longer reattach the edge to end
	err = canvas.RestoreSubgraph(removed)

	// Assert
	require.NoError(t, err)
	assert.True(t, canvas.HasNode(agent.ID()))
	_, err = canvas.GetEdge(agentEnd.ID())
	assert.Error(t, err)
	assert.NoError(t, canvas.Validate())
}

func TestCanvas_RestoreSubgraphRejectsRecreatedNode(t *testing.T) {
	// Arrange
	canvas := aggregates.NewCanvas("default", nil)
	agent := addNode(t, canvas, valueobjects.NodeTypeAgent)
	removed, err := canvas.RemoveNode(agent.ID())
	require.NoError(t, err)

	require.NoError(t, canvas.RestoreSubgraph(removed))

	// Act: restoring the same record twice conflicts
	err = canvas.RestoreSubgraph(removed)

	// Assert
	assert.Error(t, err)
}

func TestCanvas_SnapshotRoundTrip(t *testing.T) {
	// Arrange
	canvas := aggregates.NewCanvas("default", nil)
	start := addNode(t, canvas, valueobjects.NodeTypeStart)
	agent := addNode(t, canvas, valueobjects.NodeTypeAgent)
	connect(t, canvas, start, agent)

	snap, err := canvas.Snapshot()
	require.NoError(t, err)
	require.Len(t, snap.Nodes, 2)
	require.Len(t, snap.Edges, 1)

	// Act: import into a fresh canvas
	other := aggregates.NewCanvas("default", nil)
	err = other.ImportSnapshot(snap)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, 2, other.NodeCount())
	assert.Equal(t, 1, other.EdgeCount())
	assert.True(t, other.HasNode(start.ID()))
	assert.True(t, other.HasNode(agent.ID()))
	assert.NoError(t, other.Validate())

	reexported, err := other.Snapshot()
	require.NoError(t, err)
	assert.Equal(t, snap, reexported)
}

func TestCanvas_ImportSnapshotRejectsMalformedDocument(t *testing.T) {
	canvas := aggregates.NewCanvas("default", nil)
	agent := addNode(t, canvas, valueobjects.NodeTypeAgent)
	revisionBefore := canvas.Revision()

	id1, id2 := valueobjects.NewNodeID().String(), valueobjects.NewNodeID().String()
	cases := []struct {
		name string
		snap aggregates.Snapshot
	}{
		{
			"dangling edge",
			aggregates.Snapshot{
				Nodes: []aggregates.NodeSnapshot{agentSnapshot(id1)},
				Edges: []aggregates.EdgeSnapshot{{
					ID: valueobjects.NewEdgeID().String(), Source: id1, Target: id2,
					SourceHandle: "out", TargetHandle: "in",
				}},
			},
		},
		{
			"duplicate node id",
			aggregates.Snapshot{
				Nodes: []aggregates.NodeSnapshot{agentSnapshot(id1), agentSnapshot(id1)},
			},
		},
		{
			"undeclared payload field",
			aggregates.Snapshot{
				Nodes: []aggregates.NodeSnapshot{{
					ID: id1, Type: "start",
					Data: json.RawMessage(`{"name":"S","prompt":"x"}`),
				}},
			},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			// Act
			err := canvas.ImportSnapshot(tc.snap)

			// Assert: canvas untouched
			require.Error(t, err)
			assert.Equal(t, revisionBefore, canvas.Revision())
			assert.True(t, canvas.HasNode(agent.ID()))
		})
	}
}

func TestCanvas_Reset(t *testing.T) {
	// Arrange
	canvas := aggregates.NewCanvas("default", nil)
	addNode(t, canvas, valueobjects.NodeTypeAgent)
	revisionBefore := canvas.Revision()

	// Act
	canvas.Reset()

	// Assert
	assert.Equal(t, 0, canvas.NodeCount())
	assert.Equal(t, revisionBefore+1, canvas.Revision())

	// Resetting an empty canvas is a no-op
	canvas.Reset()
	assert.Equal(t, revisionBefore+1, canvas.Revision())
}

func TestCanvas_NodeLimit(t *testing.T) {
	// Arrange: a canvas that only fits two nodes
	cfg := testDomainConfig()
	cfg.MaxNodesPerCanvas = 2
	canvas := aggregates.NewCanvas("default", cfg)
	addNode(t, canvas, valueobjects.NodeTypeStart)
	addNode(t, canvas, valueobjects.NodeTypeEnd)

	// Act
	_, err := canvas.AddNode(agentSpec(t, "Overflow"))

	// Assert
	require.Error(t, err)
	assert.ErrorIs(t, err, pkgerrors.ErrCanvasNodeLimit)
}

func TestCanvas_EveryMutationBumpsRevisionOnce(t *testing.T) {
	// Arrange
	canvas := aggregates.NewCanvas("default", nil)

	// Act / Assert step by step
	agent := addNode(t, canvas, valueobjects.NodeTypeAgent)
	assert.Equal(t, int64(1), canvas.Revision())

	tools := addNode(t, canvas, valueobjects.NodeTypeTools)
	assert.Equal(t, int64(2), canvas.Revision())

	edge := connect(t, canvas, agent, tools)
	assert.Equal(t, int64(3), canvas.Revision())

	require.NoError(t, canvas.UpdateNodeField(agent.ID(), "name", json.RawMessage(`"Renamed"`)))
	assert.Equal(t, int64(4), canvas.Revision())

	canvas.RemoveEdge(edge.ID())
	assert.Equal(t, int64(5), canvas.Revision())

	removed, err := canvas.RemoveNode(tools.ID())
	require.NoError(t, err)
	assert.Equal(t, int64(6), canvas.Revision())

	require.NoError(t, canvas.RestoreSubgraph(removed))
	assert.Equal(t, int64(7), canvas.Revision())
}

// Test helpers

func origin(t *testing.T) valueobjects.Position {
	t.Helper()
	position, err := valueobjects.NewPosition(0, 0)
	require.NoError(t, err)
	return position
}

func agentSpec(t *testing.T, name string) aggregates.NodeSpec {
	t.Helper()
	return aggregates.NodeSpec{
		Type:     valueobjects.NodeTypeAgent,
		Position: origin(t),
		Payload:  valueobjects.AgentPayload{Name: name, Prompt: "You are " + name + "."},
	}
}

func addNode(t *testing.T, canvas *aggregates.Canvas, nodeType valueobjects.NodeType) *entities.Node {
	t.Helper()

	var payload valueobjects.Payload
	switch nodeType {
	case valueobjects.NodeTypeAgent:
		payload = valueobjects.AgentPayload{Name: "Agent", Prompt: "Do the work."}
	case valueobjects.NodeTypeTools:
		payload = valueobjects.ToolsPayload{Name: "Tools", SelectedTools: []valueobjects.ToolID{"web"}}
	default:
		terminal, err := valueobjects.NewTerminalPayload(nodeType, "Terminal", "")
		require.NoError(t, err)
		payload = terminal
	}

	node, err := canvas.AddNode(aggregates.NodeSpec{
		Type:     nodeType,
		Position: origin(t),
		Payload:  payload,
	})
	require.NoError(t, err)
	return node
}

func connect(t *testing.T, canvas *aggregates.Canvas, source, target *entities.Node) *entities.Edge {
	t.Helper()

	edge, err := canvas.Connect(aggregates.Connection{
		Source:       source.ID(),
		Target:       target.ID(),
		SourceHandle: valueobjects.HandleOut,
		TargetHandle: valueobjects.HandleIn,
	})
	require.NoError(t, err)
	return edge
}

func agentSnapshot(id string) aggregates.NodeSnapshot {
	return aggregates.NodeSnapshot{
		ID:   id,
		Type: "agent",
		Data: json.RawMessage(`{"name":"A","prompt":"p"}`),
	}
}

func testDomainConfig() *domainconfig.DomainConfig {
	return domainconfig.DefaultDomainConfig()
}
