package validators

import (
	"strings"
	"unicode/utf8"

	"flowcanvas/domain/config"
	"flowcanvas/domain/core/valueobjects"
	"flowcanvas/pkg/errors"
)

// PayloadValidator validates node payload domain rules
type PayloadValidator struct {
	maxNameLength        int
	maxDescriptionLength int
	maxPromptLength      int
}

// NewPayloadValidator creates a payload validator with limits taken
// from the domain configuration
func NewPayloadValidator(cfg *config.DomainConfig) *PayloadValidator {
	if cfg == nil {
		cfg = config.DefaultDomainConfig()
	}
	return &PayloadValidator{
		maxNameLength:        cfg.MaxNameLength,
		maxDescriptionLength: cfg.MaxDescriptionLength,
		maxPromptLength:      cfg.MaxPromptLength,
	}
}

// Validate checks the payload variant against the rules of its tag.
// All violations are accumulated rather than reported one at a time.
func (v *PayloadValidator) Validate(payload valueobjects.Payload) error {
	if payload == nil {
		return errors.ErrInvalidPayload
	}

	validationErrors := errors.NewValidationErrors()

	switch p := payload.(type) {
	case valueobjects.AgentPayload:
		v.validateName(p.Name, validationErrors)
		v.validateDescription(p.Description, validationErrors)
		v.validatePrompt(p.Prompt, validationErrors)
	case valueobjects.ToolsPayload:
		v.validateName(p.Name, validationErrors)
		v.validateDescription(p.Description, validationErrors)
		v.validateToolSelection(p, validationErrors)
	case valueobjects.TerminalPayload:
		v.validateName(p.Name, validationErrors)
		v.validateDescription(p.Description, validationErrors)
	default:
		return errors.ErrInvalidPayload.WithDetail("reason", "unrecognized payload variant")
	}

	if validationErrors.HasErrors() {
		return validationErrors
	}

	return nil
}

// validateName checks the shared name field
func (v *PayloadValidator) validateName(name string, acc *errors.ValidationErrors) {
	name = strings.TrimSpace(name)

	if name == "" {
		acc.AddError(errors.ErrNodeNameRequired)
		return
	}

	if utf8.RuneCountInString(name) > v.maxNameLength {
		acc.AddError(errors.NewDomainError(
			errors.DomainValidationError,
			"NODE_NAME_TOO_LONG",
			"Node name exceeds maximum length",
		).WithDetail("field", "name").WithDetail("max_length", v.maxNameLength))
	}
}

// validateDescription checks the optional description field
func (v *PayloadValidator) validateDescription(description string, acc *errors.ValidationErrors) {
	if utf8.RuneCountInString(description) > v.maxDescriptionLength {
		acc.AddError(errors.NewDomainError(
			errors.DomainValidationError,
			"NODE_DESCRIPTION_TOO_LONG",
			"Node description exceeds maximum length",
		).WithDetail("field", "description").WithDetail("max_length", v.maxDescriptionLength))
	}
}

// validatePrompt checks the agent prompt field
func (v *PayloadValidator) validatePrompt(prompt string, acc *errors.ValidationErrors) {
	if strings.TrimSpace(prompt) == "" {
		acc.AddError(errors.ErrPromptRequired)
		return
	}

	if utf8.RuneCountInString(prompt) > v.maxPromptLength {
		acc.AddError(errors.NewDomainError(
			errors.DomainValidationError,
			"PROMPT_TOO_LONG",
			"Agent prompt exceeds maximum length",
		).WithDetail("field", "prompt").WithDetail("max_length", v.maxPromptLength))
	}
}

// validateToolSelection checks the tools node selection rules: at least
// one tool, and a data source whenever the rag tool is selected
func (v *PayloadValidator) validateToolSelection(p valueobjects.ToolsPayload, acc *errors.ValidationErrors) {
	if len(p.SelectedTools) == 0 {
		acc.AddError(errors.ErrNoToolsSelected)
		return
	}

	for _, tool := range p.SelectedTools {
		if strings.TrimSpace(string(tool)) == "" {
			acc.AddError(errors.NewDomainError(
				errors.DomainValidationError,
				"EMPTY_TOOL_ID",
				"Tool identifiers cannot be empty",
			).WithDetail("field", "selectedTools"))
			break
		}
	}

	if p.HasTool(valueobjects.ToolRAG) && strings.TrimSpace(p.RAGDataSource) == "" {
		acc.AddError(errors.ErrRAGSourceRequired)
	}
}

// ConnectionValidator validates edge port rules
type ConnectionValidator struct{}

// NewConnectionValidator creates a new connection validator
func NewConnectionValidator() *ConnectionValidator {
	return &ConnectionValidator{}
}

// ValidatePorts checks that an edge leaves an output port its source
// node actually exposes and arrives at an input port its target node
// actually exposes. This is what prevents input-to-input and
// output-to-output wiring, edges out of an end node, and edges into a
// start node.
func (v *ConnectionValidator) ValidatePorts(
	sourceType valueobjects.NodeType, sourceHandle valueobjects.Handle,
	targetType valueobjects.NodeType, targetHandle valueobjects.Handle,
) error {
	if !sourceHandle.IsOutput() {
		return errors.ErrIllegalPortDirection.
			WithDetail("source_handle", sourceHandle.String())
	}
	if !targetHandle.IsInput() {
		return errors.ErrIllegalPortDirection.
			WithDetail("target_handle", targetHandle.String())
	}
	if !valueobjects.HasOutputPort(sourceType) {
		return errors.ErrIllegalPortDirection.
			WithDetail("source_type", sourceType.String()).
			WithDetail("reason", "node type exposes no output port")
	}
	if !valueobjects.HasInputPort(targetType) {
		return errors.ErrIllegalPortDirection.
			WithDetail("target_type", targetType.String()).
			WithDetail("reason", "node type exposes no input port")
	}
	return nil
}
