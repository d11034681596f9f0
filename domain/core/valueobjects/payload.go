package valueobjects

import (
	"bytes"
	"encoding/json"

	pkgerrors "flowcanvas/pkg/errors"
)

// NodeType tags the payload variant a node carries
type NodeType string

const (
	NodeTypeAgent NodeType = "agent"
	NodeTypeTools NodeType = "tools"
	NodeTypeStart NodeType = "start"
	NodeTypeEnd   NodeType = "end"
)

// ParseNodeType validates a node type string
func ParseNodeType(s string) (NodeType, error) {
	switch NodeType(s) {
	case NodeTypeAgent, NodeTypeTools, NodeTypeStart, NodeTypeEnd:
		return NodeType(s), nil
	default:
		return "", pkgerrors.ErrInvalidNodeType.WithDetail("type", s)
	}
}

// String returns the string representation of the NodeType
func (t NodeType) String() string {
	return string(t)
}

// ToolID identifies a tool selectable on a tools node
type ToolID string

// ToolRAG is the retrieval tool; selecting it requires a data source
const ToolRAG ToolID = "rag"

// Payload is the tagged union of node data variants. Exactly the fields
// declared for a tag may be present; read sites switch exhaustively on
// the concrete type.
type Payload interface {
	Kind() NodeType
}

// AgentPayload is the data carried by agent nodes
type AgentPayload struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Prompt      string `json:"prompt"`
}

// Kind implements Payload
func (AgentPayload) Kind() NodeType {
	return NodeTypeAgent
}

// ToolsPayload is the data carried by tools nodes
type ToolsPayload struct {
	Name          string   `json:"name"`
	Description   string   `json:"description,omitempty"`
	SelectedTools []ToolID `json:"selectedTools"`
	RAGDataSource string   `json:"ragDataSource,omitempty"`
}

// Kind implements Payload
func (ToolsPayload) Kind() NodeType {
	return NodeTypeTools
}

// HasTool reports whether the given tool is selected
func (p ToolsPayload) HasTool(id ToolID) bool {
	for _, t := range p.SelectedTools {
		if t == id {
			return true
		}
	}
	return false
}

// TerminalPayload is the data carried by start and end nodes
type TerminalPayload struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`

	kind NodeType
}

// NewTerminalPayload creates a terminal payload tagged start or end
func NewTerminalPayload(kind NodeType, name, description string) (TerminalPayload, error) {
	if kind != NodeTypeStart && kind != NodeTypeEnd {
		return TerminalPayload{}, pkgerrors.ErrInvalidNodeType.WithDetail("type", string(kind))
	}
	return TerminalPayload{Name: name, Description: description, kind: kind}, nil
}

// Kind implements Payload
func (p TerminalPayload) Kind() NodeType {
	return p.kind
}

// DecodePayload decodes the payload variant declared by the node type.
// Fields outside the declared tag are rejected, never silently dropped.
func DecodePayload(nodeType NodeType, data json.RawMessage) (Payload, error) {
	if len(data) == 0 {
		data = json.RawMessage("{}")
	}

	switch nodeType {
	case NodeTypeAgent:
		var p AgentPayload
		if err := decodeStrict(data, &p); err != nil {
			return nil, pkgerrors.ErrInvalidPayload.
				WithDetail("type", string(nodeType)).
				WithCause(err)
		}
		return p, nil
	case NodeTypeTools:
		var p ToolsPayload
		if err := decodeStrict(data, &p); err != nil {
			return nil, pkgerrors.ErrInvalidPayload.
				WithDetail("type", string(nodeType)).
				WithCause(err)
		}
		return p, nil
	case NodeTypeStart, NodeTypeEnd:
		var p TerminalPayload
		if err := decodeStrict(data, &p); err != nil {
			return nil, pkgerrors.ErrInvalidPayload.
				WithDetail("type", string(nodeType)).
				WithCause(err)
		}
		p.kind = nodeType
		return p, nil
	default:
		return nil, pkgerrors.ErrInvalidNodeType.WithDetail("type", string(nodeType))
	}
}

// EncodePayload renders a payload in its wire form
func EncodePayload(p Payload) (json.RawMessage, error) {
	if p == nil {
		return nil, pkgerrors.ErrInvalidPayload.WithDetail("reason", "nil payload")
	}
	data, err := json.Marshal(p)
	if err != nil {
		return nil, pkgerrors.ErrInvalidPayload.
			WithDetail("type", string(p.Kind())).
			WithCause(err)
	}
	return data, nil
}

// PatchPayload merges a single-field update into a payload and returns
// the updated value. Cross-field constraints are not re-checked here;
// they are deferred until the document is explicitly validated. A field
// that is not part of the payload's tag is rejected.
func PatchPayload(p Payload, field string, value json.RawMessage) (Payload, error) {
	switch v := p.(type) {
	case AgentPayload:
		switch field {
		case "name":
			return patchString(v, field, value, func(s string) Payload { v.Name = s; return v })
		case "description":
			return patchString(v, field, value, func(s string) Payload { v.Description = s; return v })
		case "prompt":
			return patchString(v, field, value, func(s string) Payload { v.Prompt = s; return v })
		}
	case ToolsPayload:
		switch field {
		case "name":
			return patchString(v, field, value, func(s string) Payload { v.Name = s; return v })
		case "description":
			return patchString(v, field, value, func(s string) Payload { v.Description = s; return v })
		case "ragDataSource":
			return patchString(v, field, value, func(s string) Payload { v.RAGDataSource = s; return v })
		case "selectedTools":
			var tools []ToolID
			if err := json.Unmarshal(value, &tools); err != nil {
				return nil, invalidFieldValue(v.Kind(), field, err)
			}
			v.SelectedTools = tools
			return v, nil
		}
	case TerminalPayload:
		switch field {
		case "name":
			return patchString(v, field, value, func(s string) Payload { v.Name = s; return v })
		case "description":
			return patchString(v, field, value, func(s string) Payload { v.Description = s; return v })
		}
	default:
		return nil, pkgerrors.ErrInvalidPayload.WithDetail("reason", "unrecognized payload variant")
	}

	return nil, pkgerrors.ErrUnknownPayloadField.
		WithDetail("field", field).
		WithDetail("type", string(p.Kind()))
}

// decodeStrict unmarshals JSON rejecting unknown fields
func decodeStrict(data []byte, target interface{}) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	return dec.Decode(target)
}

func patchString(p Payload, field string, value json.RawMessage, apply func(string) Payload) (Payload, error) {
	var s string
	if err := json.Unmarshal(value, &s); err != nil {
		return nil, invalidFieldValue(p.Kind(), field, err)
	}
	return apply(s), nil
}

func invalidFieldValue(kind NodeType, field string, cause error) error {
	return pkgerrors.ErrInvalidPayload.
		WithDetail("type", string(kind)).
		WithDetail("field", field).
		WithCause(cause)
}
