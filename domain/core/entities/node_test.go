package entities_test

import (
	"encoding/json"
	"testing"

	"flowcanvas/domain/core/entities"
	"flowcanvas/domain/core/valueobjects"
	pkgerrors "flowcanvas/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNode_Creation(t *testing.T) {
	// Arrange
	position, err := valueobjects.NewPosition(10.5, 20.5)
	require.NoError(t, err)

	payload := valueobjects.AgentPayload{Name: "Researcher", Prompt: "You research."}

	// Act
	node, err := entities.NewNode(valueobjects.NodeTypeAgent, position, payload)

	// Assert
	assert.NoError(t, err)
	assert.NotNil(t, node)
	assert.False(t, node.ID().IsZero())
	assert.Equal(t, valueobjects.NodeTypeAgent, node.Type())
	assert.Equal(t, 1, node.Version())
	assert.True(t, node.Position().Equals(position))
}

func TestNode_RejectsMismatchedPayload(t *testing.T) {
	// Arrange
	position, err := valueobjects.NewPosition(0, 0)
	require.NoError(t, err)

	// Act - agent type declared, tools payload supplied
	_, err = entities.NewNode(
		valueobjects.NodeTypeAgent,
		position,
		valueobjects.ToolsPayload{Name: "T", SelectedTools: []valueobjects.ToolID{"web"}},
	)

	// Assert
	require.Error(t, err)
	assert.ErrorIs(t, err, pkgerrors.ErrInvalidPayload)
}

func TestNode_RejectsNilPayload(t *testing.T) {
	position, err := valueobjects.NewPosition(0, 0)
	require.NoError(t, err)

	_, err = entities.NewNode(valueobjects.NodeTypeAgent, position, nil)

	require.Error(t, err)
	assert.ErrorIs(t, err, pkgerrors.ErrInvalidPayload)
}

func TestNode_MoveTo(t *testing.T) {
	// Arrange
	node := createTestNode(t)
	target, err := valueobjects.NewPosition(100, 200)
	require.NoError(t, err)

	// Act
	moved := node.MoveTo(target)

	// Assert
	assert.True(t, moved)
	assert.True(t, node.Position().Equals(target))

	events := node.GetUncommittedEvents()
	require.Len(t, events, 1)
	assert.Equal(t, "canvas.node_moved", events[0].GetEventType())
}

func TestNode_MoveToSamePositionIsNoOp(t *testing.T) {
	// Arrange
	node := createTestNode(t)

	// Act
	moved := node.MoveTo(node.Position())

	// Assert
	assert.False(t, moved)
	assert.Empty(t, node.GetUncommittedEvents())
}

func TestNode_ApplyFieldPatch(t *testing.T) {
	// Arrange
	node := createTestNode(t)

	// Act
	err := node.ApplyFieldPatch("prompt", json.RawMessage(`"New prompt"`))

	// Assert
	require.NoError(t, err)
	agent, ok := node.Payload().(valueobjects.AgentPayload)
	require.True(t, ok)
	assert.Equal(t, "New prompt", agent.Prompt)
	assert.Equal(t, 2, node.Version())

	events := node.GetUncommittedEvents()
	require.Len(t, events, 1)
	assert.Equal(t, "canvas.node_field_updated", events[0].GetEventType())
}

func TestNode_ApplyFieldPatchRejectsForeignField(t *testing.T) {
	// Arrange
	node := createTestNode(t)

	// Act
	err := node.ApplyFieldPatch("selectedTools", json.RawMessage(`["rag"]`))

	// Assert
	require.Error(t, err)
	assert.ErrorIs(t, err, pkgerrors.ErrUnknownPayloadField)
	assert.Equal(t, 1, node.Version())
}

func TestReconstructNode_PreservesIdentity(t *testing.T) {
	// Arrange
	original := createTestNode(t)
	position, err := valueobjects.NewPosition(5, 5)
	require.NoError(t, err)

	// Act
	rebuilt, err := entities.ReconstructNode(
		original.ID(),
		original.Type(),
		position,
		original.Payload(),
		original.CreatedAt(),
		original.UpdatedAt(),
	)

	// Assert
	require.NoError(t, err)
	assert.True(t, rebuilt.ID().Equals(original.ID()))
	assert.Equal(t, original.CreatedAt(), rebuilt.CreatedAt())
	assert.Empty(t, rebuilt.GetUncommittedEvents())
}

func TestEdge_RewireEndpoints(t *testing.T) {
	// Arrange
	source, target, other := valueobjects.NewNodeID(), valueobjects.NewNodeID(), valueobjects.NewNodeID()
	edge, err := entities.NewEdge(source, target, valueobjects.HandleOut, valueobjects.HandleIn)
	require.NoError(t, err)

	// Act
	err = edge.Rewire(entities.EndpointTarget, other)

	// Assert
	require.NoError(t, err)
	assert.True(t, edge.Target().Equals(other))
	assert.True(t, edge.Source().Equals(source))

	// Act - move the source too
	err = edge.Rewire(entities.EndpointSource, target)
	require.NoError(t, err)
	assert.True(t, edge.Source().Equals(target))
}

func TestEdge_Touches(t *testing.T) {
	source, target := valueobjects.NewNodeID(), valueobjects.NewNodeID()
	edge, err := entities.NewEdge(source, target, valueobjects.HandleOut, valueobjects.HandleIn)
	require.NoError(t, err)

	assert.True(t, edge.Touches(source))
	assert.True(t, edge.Touches(target))
	assert.False(t, edge.Touches(valueobjects.NewNodeID()))
}

func TestParseEndpoint(t *testing.T) {
	for _, valid := range []string{"source", "target"} {
		endpoint, err := entities.ParseEndpoint(valid)
		assert.NoError(t, err)
		assert.Equal(t, valid, string(endpoint))
	}

	_, err := entities.ParseEndpoint("middle")
	assert.Error(t, err)
}

// Helper function to create a test node
func createTestNode(t *testing.T) *entities.Node {
	t.Helper()

	position, err := valueobjects.NewPosition(0, 0)
	require.NoError(t, err)

	node, err := entities.NewNode(
		valueobjects.NodeTypeAgent,
		position,
		valueobjects.AgentPayload{Name: "Test Agent", Prompt: "Test prompt"},
	)
	require.NoError(t, err)

	return node
}
