package validators_test

import (
	"strings"
	"testing"

	domainconfig "flowcanvas/domain/config"
	"flowcanvas/domain/core/validators"
	"flowcanvas/domain/core/valueobjects"
	pkgerrors "flowcanvas/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPayloadValidator_AgentRules(t *testing.T) {
	validator := validators.NewPayloadValidator(nil)

	cases := []struct {
		name     string
		payload  valueobjects.Payload
		sentinel error
	}{
		{
			"valid agent",
			valueobjects.AgentPayload{Name: "Researcher", Prompt: "Find sources."},
			nil,
		},
		{
			"missing name",
			valueobjects.AgentPayload{Prompt: "Find sources."},
			pkgerrors.ErrNodeNameRequired,
		},
		{
			"whitespace name",
			valueobjects.AgentPayload{Name: "   ", Prompt: "Find sources."},
			pkgerrors.ErrNodeNameRequired,
		},
		{
			"missing prompt",
			valueobjects.AgentPayload{Name: "Researcher"},
			pkgerrors.ErrPromptRequired,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := validator.Validate(tc.payload)
			if tc.sentinel == nil {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.ErrorIs(t, err, tc.sentinel)
		})
	}
}

func TestPayloadValidator_ToolsRules(t *testing.T) {
	validator := validators.NewPayloadValidator(nil)

	cases := []struct {
		name     string
		payload  valueobjects.Payload
		sentinel error
	}{
		{
			"valid tools",
			valueobjects.ToolsPayload{Name: "Search", SelectedTools: []valueobjects.ToolID{"web"}},
			nil,
		},
		{
			"no tools selected",
			valueobjects.ToolsPayload{Name: "Search"},
			pkgerrors.ErrNoToolsSelected,
		},
		{
			"rag without data source",
			valueobjects.ToolsPayload{
				Name:          "Knowledge",
				SelectedTools: []valueobjects.ToolID{valueobjects.ToolRAG},
			},
			pkgerrors.ErrRAGSourceRequired,
		},
		{
			"rag with data source",
			valueobjects.ToolsPayload{
				Name:          "Knowledge",
				SelectedTools: []valueobjects.ToolID{valueobjects.ToolRAG},
				RAGDataSource: "handbook",
			},
			nil,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := validator.Validate(tc.payload)
			if tc.sentinel == nil {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.ErrorIs(t, err, tc.sentinel)
		})
	}
}

func TestPayloadValidator_AccumulatesViolations(t *testing.T) {
	// Arrange: two independent violations in one payload
	validator := validators.NewPayloadValidator(nil)
	payload := valueobjects.ToolsPayload{
		SelectedTools: nil, // missing name AND missing tool selection
	}

	// Act
	err := validator.Validate(payload)

	// Assert
	require.Error(t, err)
	validationErrors, ok := err.(*pkgerrors.ValidationErrors)
	require.True(t, ok)
	assert.Len(t, validationErrors.Errors, 2)
	assert.ErrorIs(t, err, pkgerrors.ErrNodeNameRequired)
	assert.ErrorIs(t, err, pkgerrors.ErrNoToolsSelected)
}

func TestPayloadValidator_LengthLimits(t *testing.T) {
	// Arrange
	cfg := domainconfig.DefaultDomainConfig()
	cfg.MaxNameLength = 8
	cfg.MaxPromptLength = 16
	validator := validators.NewPayloadValidator(cfg)

	// Act
	err := validator.Validate(valueobjects.AgentPayload{
		Name:   strings.Repeat("n", 9),
		Prompt: strings.Repeat("p", 17),
	})

	// Assert
	require.Error(t, err)
	validationErrors, ok := err.(*pkgerrors.ValidationErrors)
	require.True(t, ok)
	assert.Len(t, validationErrors.Errors, 2)
}

func TestPayloadValidator_TerminalRules(t *testing.T) {
	validator := validators.NewPayloadValidator(nil)

	start, err := valueobjects.NewTerminalPayload(valueobjects.NodeTypeStart, "Start", "")
	require.NoError(t, err)
	assert.NoError(t, validator.Validate(start))

	unnamed, err := valueobjects.NewTerminalPayload(valueobjects.NodeTypeEnd, "", "")
	require.NoError(t, err)
	err = validator.Validate(unnamed)
	require.Error(t, err)
	assert.ErrorIs(t, err, pkgerrors.ErrNodeNameRequired)
}

func TestConnectionValidator_PortRules(t *testing.T) {
	validator := validators.NewConnectionValidator()

	cases := []struct {
		name         string
		sourceType   valueobjects.NodeType
		sourceHandle valueobjects.Handle
		targetType   valueobjects.NodeType
		targetHandle valueobjects.Handle
		wantErr      bool
	}{
		{"agent out to tools in", valueobjects.NodeTypeAgent, valueobjects.HandleOut, valueobjects.NodeTypeTools, valueobjects.HandleIn, false},
		{"start out to agent in", valueobjects.NodeTypeStart, valueobjects.HandleOut, valueobjects.NodeTypeAgent, valueobjects.HandleIn, false},
		{"input handle as source", valueobjects.NodeTypeAgent, valueobjects.HandleIn, valueobjects.NodeTypeTools, valueobjects.HandleIn, true},
		{"output handle as target", valueobjects.NodeTypeAgent, valueobjects.HandleOut, valueobjects.NodeTypeTools, valueobjects.HandleOut, true},
		{"end node as source", valueobjects.NodeTypeEnd, valueobjects.HandleOut, valueobjects.NodeTypeAgent, valueobjects.HandleIn, true},
		{"start node as target", valueobjects.NodeTypeAgent, valueobjects.HandleOut, valueobjects.NodeTypeStart, valueobjects.HandleIn, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := validator.ValidatePorts(tc.sourceType, tc.sourceHandle, tc.targetType, tc.targetHandle)
			if tc.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, pkgerrors.ErrIllegalPortDirection)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
