package valueobjects_test

import (
	"encoding/json"
	"math"
	"testing"

	"flowcanvas/domain/core/valueobjects"
	pkgerrors "flowcanvas/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseNodeType(t *testing.T) {
	for _, valid := range []string{"agent", "tools", "start", "end"} {
		nodeType, err := valueobjects.ParseNodeType(valid)
		assert.NoError(t, err)
		assert.Equal(t, valid, nodeType.String())
	}

	_, err := valueobjects.ParseNodeType("decision")
	require.Error(t, err)
	assert.ErrorIs(t, err, pkgerrors.ErrInvalidNodeType)
}

func TestDecodePayload_Agent(t *testing.T) {
	// Act
	payload, err := valueobjects.DecodePayload(
		valueobjects.NodeTypeAgent,
		json.RawMessage(`{"name":"Researcher","description":"Finds sources","prompt":"You research topics."}`),
	)

	// Assert
	require.NoError(t, err)
	agent, ok := payload.(valueobjects.AgentPayload)
	require.True(t, ok)
	assert.Equal(t, valueobjects.NodeTypeAgent, payload.Kind())
	assert.Equal(t, "Researcher", agent.Name)
	assert.Equal(t, "You research topics.", agent.Prompt)
}

func TestDecodePayload_Tools(t *testing.T) {
	// Act
	payload, err := valueobjects.DecodePayload(
		valueobjects.NodeTypeTools,
		json.RawMessage(`{"name":"Search","selectedTools":["rag","web"],"ragDataSource":"docs"}`),
	)

	// Assert
	require.NoError(t, err)
	tools, ok := payload.(valueobjects.ToolsPayload)
	require.True(t, ok)
	assert.True(t, tools.HasTool(valueobjects.ToolRAG))
	assert.True(t, tools.HasTool(valueobjects.ToolID("web")))
	assert.False(t, tools.HasTool(valueobjects.ToolID("calc")))
	assert.Equal(t, "docs", tools.RAGDataSource)
}

func TestDecodePayload_Terminal(t *testing.T) {
	for _, nodeType := range []valueobjects.NodeType{valueobjects.NodeTypeStart, valueobjects.NodeTypeEnd} {
		payload, err := valueobjects.DecodePayload(nodeType, json.RawMessage(`{"name":"Terminal"}`))
		require.NoError(t, err)
		assert.Equal(t, nodeType, payload.Kind())
	}
}

func TestDecodePayload_RejectsUnknownFields(t *testing.T) {
	cases := []struct {
		name     string
		nodeType valueobjects.NodeType
		data     string
	}{
		{"agent with tools field", valueobjects.NodeTypeAgent, `{"name":"A","prompt":"p","selectedTools":["rag"]}`},
		{"tools with prompt field", valueobjects.NodeTypeTools, `{"name":"T","selectedTools":["web"],"prompt":"p"}`},
		{"terminal with prompt field", valueobjects.NodeTypeStart, `{"name":"S","prompt":"p"}`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := valueobjects.DecodePayload(tc.nodeType, json.RawMessage(tc.data))
			require.Error(t, err)
			assert.ErrorIs(t, err, pkgerrors.ErrInvalidPayload)
		})
	}
}

func TestDecodePayload_EmptyDataDecodesZeroPayload(t *testing.T) {
	payload, err := valueobjects.DecodePayload(valueobjects.NodeTypeAgent, nil)
	require.NoError(t, err)
	agent, ok := payload.(valueobjects.AgentPayload)
	require.True(t, ok)
	assert.Empty(t, agent.Name)
}

func TestDecodePayload_UnknownType(t *testing.T) {
	_, err := valueobjects.DecodePayload(valueobjects.NodeType("decision"), json.RawMessage(`{}`))
	require.Error(t, err)
	assert.ErrorIs(t, err, pkgerrors.ErrInvalidNodeType)
}

func TestEncodePayload_RoundTrip(t *testing.T) {
	// Arrange
	original := valueobjects.ToolsPayload{
		Name:          "Search",
		SelectedTools: []valueobjects.ToolID{"rag"},
		RAGDataSource: "kb",
	}

	// Act
	data, err := valueobjects.EncodePayload(original)
	require.NoError(t, err)
	decoded, err := valueobjects.DecodePayload(valueobjects.NodeTypeTools, data)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, original, decoded)
}

func TestPatchPayload_UpdatesSingleField(t *testing.T) {
	// Arrange
	payload := valueobjects.AgentPayload{Name: "Old", Prompt: "p"}

	// Act
	patched, err := valueobjects.PatchPayload(payload, "name", json.RawMessage(`"New"`))

	// Assert
	require.NoError(t, err)
	agent, ok := patched.(valueobjects.AgentPayload)
	require.True(t, ok)
	assert.Equal(t, "New", agent.Name)
	assert.Equal(t, "p", agent.Prompt)
}

func TestPatchPayload_SelectedTools(t *testing.T) {
	// Arrange
	payload := valueobjects.ToolsPayload{Name: "T", SelectedTools: []valueobjects.ToolID{"web"}}

	// Act
	patched, err := valueobjects.PatchPayload(payload, "selectedTools", json.RawMessage(`["rag","calc"]`))

	// Assert
	require.NoError(t, err)
	tools, ok := patched.(valueobjects.ToolsPayload)
	require.True(t, ok)
	assert.Equal(t, []valueobjects.ToolID{"rag", "calc"}, tools.SelectedTools)
}

func TestPatchPayload_RejectsUnknownField(t *testing.T) {
	payload := valueobjects.AgentPayload{Name: "A", Prompt: "p"}

	_, err := valueobjects.PatchPayload(payload, "selectedTools", json.RawMessage(`["rag"]`))

	require.Error(t, err)
	assert.ErrorIs(t, err, pkgerrors.ErrUnknownPayloadField)
}

func TestPatchPayload_RejectsMistypedValue(t *testing.T) {
	payload := valueobjects.AgentPayload{Name: "A", Prompt: "p"}

	_, err := valueobjects.PatchPayload(payload, "name", json.RawMessage(`42`))

	require.Error(t, err)
	assert.ErrorIs(t, err, pkgerrors.ErrInvalidPayload)
}

func TestNewTerminalPayload_RejectsNonTerminalKinds(t *testing.T) {
	_, err := valueobjects.NewTerminalPayload(valueobjects.NodeTypeAgent, "A", "")
	require.Error(t, err)

	payload, err := valueobjects.NewTerminalPayload(valueobjects.NodeTypeStart, "Start", "")
	require.NoError(t, err)
	assert.Equal(t, valueobjects.NodeTypeStart, payload.Kind())
}

func TestHandlePortRules(t *testing.T) {
	assert.True(t, valueobjects.HandleOut.IsOutput())
	assert.True(t, valueobjects.HandleIn.IsInput())
	assert.False(t, valueobjects.HandleIn.IsOutput())

	// Start nodes only emit; end nodes only receive
	assert.False(t, valueobjects.HasInputPort(valueobjects.NodeTypeStart))
	assert.True(t, valueobjects.HasOutputPort(valueobjects.NodeTypeStart))
	assert.True(t, valueobjects.HasInputPort(valueobjects.NodeTypeEnd))
	assert.False(t, valueobjects.HasOutputPort(valueobjects.NodeTypeEnd))
	assert.True(t, valueobjects.HasInputPort(valueobjects.NodeTypeAgent))
	assert.True(t, valueobjects.HasOutputPort(valueobjects.NodeTypeTools))

	_, err := valueobjects.ParseHandle("sideways")
	assert.Error(t, err)
}

func TestNewPosition_RejectsNonFiniteCoordinates(t *testing.T) {
	_, err := valueobjects.NewPosition(0, 0)
	assert.NoError(t, err)

	_, err = valueobjects.NewPosition(math.Inf(1), 0)
	assert.Error(t, err)

	_, err = valueobjects.NewPosition(0, math.NaN())
	assert.Error(t, err)
}

func TestPosition_JSONRoundTrip(t *testing.T) {
	pos, err := valueobjects.NewPosition(12.5, -3)
	require.NoError(t, err)

	data, err := json.Marshal(pos)
	require.NoError(t, err)
	assert.JSONEq(t, `{"x":12.5,"y":-3}`, string(data))

	var decoded valueobjects.Position
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.True(t, decoded.Equals(pos))
}

func TestNodeID_ParseAndEquality(t *testing.T) {
	id := valueobjects.NewNodeID()
	assert.False(t, id.IsZero())

	parsed, err := valueobjects.ParseNodeID(id.String())
	require.NoError(t, err)
	assert.True(t, parsed.Equals(id))

	_, err = valueobjects.ParseNodeID("")
	assert.Error(t, err)
	_, err = valueobjects.ParseNodeID("not-a-uuid")
	assert.Error(t, err)
}

func TestEdgeID_ParseAndEquality(t *testing.T) {
	id := valueobjects.NewEdgeID()
	assert.False(t, id.IsZero())

	parsed, err := valueobjects.ParseEdgeID(id.String())
	require.NoError(t, err)
	assert.True(t, parsed.Equals(id))

	_, err = valueobjects.ParseEdgeID("not-a-uuid")
	assert.Error(t, err)
}
