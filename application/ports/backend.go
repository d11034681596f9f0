package ports

import (
	"context"

	"flowcanvas/domain/core/aggregates"
)

// Execution status values reported by the workflow backend. A "failed"
// status is a business-level outcome carried inside a successful
// round-trip, never a transport error.
const (
	ExecutionCompleted = "completed"
	ExecutionFailed    = "failed"
)

// ChatMessage is one conversational turn exchanged with the workflow
// backend during execution.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// SaveResult reports the backend's acknowledgement of a persisted graph.
type SaveResult struct {
	Message string `json:"message"`
}

// ValidationReport is the backend's judgement of the current graph.
type ValidationReport struct {
	IsValid  bool     `json:"is_valid"`
	Errors   []string `json:"errors"`
	Warnings []string `json:"warnings"`
}

// ExecutionRequest carries one user message into the workflow backend,
// together with the session routing fields and the recent conversation
// context the session manager projected for this turn.
type ExecutionRequest struct {
	Message   string        `json:"message"`
	SessionID string        `json:"session_id"`
	ChatID    string        `json:"chat_id,omitempty"`
	GraphName string        `json:"graph_name"`
	Context   []ChatMessage `json:"context,omitempty"`
}

// ExecutionResult is the backend's answer to an execution request.
// Status distinguishes completed from failed runs; Error carries the
// business-level failure reason when Status is failed.
type ExecutionResult struct {
	ExecutionID string        `json:"execution_id"`
	SessionID   string        `json:"session_id"`
	Messages    []ChatMessage `json:"messages"`
	Status      string        `json:"status"`
	Attempts    int           `json:"attempts"`
	Error       string        `json:"error,omitempty"`
}

// GraphBackend defines the interface to the upstream workflow backend.
// This is a port in hexagonal architecture - the application doesn't know
// about the transport behind it. Implementations return typed AppErrors:
// transport failures never surface as raw errors, and a failed execution
// status is data, not an error.
type GraphBackend interface {
	// SaveGraph persists the snapshot as the backend's current graph
	SaveGraph(ctx context.Context, snap aggregates.Snapshot) (*SaveResult, error)

	// LoadGraph retrieves the backend's current graph
	LoadGraph(ctx context.Context) (aggregates.Snapshot, error)

	// ClearGraph removes the backend's current graph
	ClearGraph(ctx context.Context) error

	// ValidateGraph asks the backend to validate the snapshot
	ValidateGraph(ctx context.Context, snap aggregates.Snapshot) (*ValidationReport, error)

	// Execute runs one conversational turn through the workflow engine
	Execute(ctx context.Context, req ExecutionRequest) (*ExecutionResult, error)
}
