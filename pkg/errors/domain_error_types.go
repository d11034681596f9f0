package errors

import (
	"fmt"
	"strings"
)

// DomainErrorType represents the category of domain error
type DomainErrorType string

const (
	// DomainValidationError indicates input validation failure
	DomainValidationError DomainErrorType = "VALIDATION_ERROR"

	// DomainBusinessRuleError indicates a business rule violation
	DomainBusinessRuleError DomainErrorType = "BUSINESS_RULE_ERROR"

	// DomainNotFoundError indicates a resource was not found
	DomainNotFoundError DomainErrorType = "NOT_FOUND"

	// DomainConflictError indicates a conflict with existing state
	DomainConflictError DomainErrorType = "CONFLICT"

	// DomainInfrastructureError indicates an infrastructure-level failure
	DomainInfrastructureError DomainErrorType = "INFRASTRUCTURE_ERROR"

	// DomainRateLimitError indicates rate limit exceeded
	DomainRateLimitError DomainErrorType = "RATE_LIMIT_ERROR"

	// DomainTimeoutError indicates operation timeout
	DomainTimeoutError DomainErrorType = "TIMEOUT_ERROR"
)

// DomainError represents a domain-specific error with rich context
type DomainError struct {
	Type       DomainErrorType        `json:"type"`
	Code       string                 `json:"code"`
	Message    string                 `json:"message"`
	Details    map[string]interface{} `json:"details,omitempty"`
	Cause      error                  `json:"-"`
	Retryable  bool                   `json:"retryable"`
	StatusCode int                    `json:"status_code"`
}

// NewDomainError creates a new domain error
func NewDomainError(errorType DomainErrorType, code string, message string) *DomainError {
	return &DomainError{
		Type:       errorType,
		Code:       code,
		Message:    message,
		Details:    make(map[string]interface{}),
		Retryable:  false,
		StatusCode: domainErrorTypeToStatusCode(errorType),
	}
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s:%s] %s: %v", e.Type, e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s:%s] %s", e.Type, e.Code, e.Message)
}

// WithCause adds a cause to the error
func (e *DomainError) WithCause(cause error) *DomainError {
	e.Cause = cause
	return e
}

// WithDetail adds a detail to the error.
// The receiver is copied so the predefined sentinel errors stay immutable.
func (e *DomainError) WithDetail(key string, value interface{}) *DomainError {
	clone := e.clone()
	clone.Details[key] = value
	return clone
}

// WithDetails adds multiple details to the error
func (e *DomainError) WithDetails(details map[string]interface{}) *DomainError {
	clone := e.clone()
	for k, v := range details {
		clone.Details[k] = v
	}
	return clone
}

// WithRetryable sets whether the error is retryable
func (e *DomainError) WithRetryable(retryable bool) *DomainError {
	e.Retryable = retryable
	return e
}

// WithStatusCode sets a custom HTTP status code
func (e *DomainError) WithStatusCode(code int) *DomainError {
	e.StatusCode = code
	return e
}

func (e *DomainError) clone() *DomainError {
	details := make(map[string]interface{}, len(e.Details)+1)
	for k, v := range e.Details {
		details[k] = v
	}
	return &DomainError{
		Type:       e.Type,
		Code:       e.Code,
		Message:    e.Message,
		Details:    details,
		Cause:      e.Cause,
		Retryable:  e.Retryable,
		StatusCode: e.StatusCode,
	}
}

// Is checks if the error is of a specific type
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Type == t.Type && e.Code == t.Code
}

// Unwrap returns the underlying cause
func (e *DomainError) Unwrap() error {
	return e.Cause
}

// domainErrorTypeToStatusCode maps error types to HTTP status codes
func domainErrorTypeToStatusCode(errorType DomainErrorType) int {
	switch errorType {
	case DomainValidationError:
		return 400
	case DomainBusinessRuleError:
		return 422
	case DomainNotFoundError:
		return 404
	case DomainConflictError:
		return 409
	case DomainRateLimitError:
		return 429
	case DomainTimeoutError:
		return 504
	case DomainInfrastructureError:
		return 500
	default:
		return 500
	}
}

// Common domain errors - these are pre-defined errors that can be reused

var (
	// Node errors
	ErrNodeNotFound = NewDomainError(
		DomainNotFoundError,
		"NODE_NOT_FOUND",
		"The requested node does not exist",
	)

	ErrInvalidNodeType = NewDomainError(
		DomainValidationError,
		"INVALID_NODE_TYPE",
		"Node type must be one of agent, tools, start, end",
	)

	ErrInvalidPayload = NewDomainError(
		DomainValidationError,
		"INVALID_PAYLOAD",
		"Node data does not match the declared node type",
	)

	ErrNodeNameRequired = NewDomainError(
		DomainValidationError,
		"NODE_NAME_REQUIRED",
		"Node name is required",
	)

	ErrPromptRequired = NewDomainError(
		DomainValidationError,
		"PROMPT_REQUIRED",
		"Agent nodes require a prompt",
	)

	ErrNoToolsSelected = NewDomainError(
		DomainValidationError,
		"NO_TOOLS_SELECTED",
		"Tool nodes require at least one selected tool",
	)

	ErrRAGSourceRequired = NewDomainError(
		DomainValidationError,
		"RAG_SOURCE_REQUIRED",
		"A RAG data source is required when the rag tool is selected",
	)

	ErrUnknownPayloadField = NewDomainError(
		DomainValidationError,
		"UNKNOWN_PAYLOAD_FIELD",
		"Field is not part of this node type's data",
	)

	// Canvas errors
	ErrCanvasNodeLimit = NewDomainError(
		DomainBusinessRuleError,
		"CANVAS_NODE_LIMIT",
		"Maximum number of nodes on the canvas exceeded",
	)

	ErrCanvasEdgeLimit = NewDomainError(
		DomainBusinessRuleError,
		"CANVAS_EDGE_LIMIT",
		"Maximum number of edges on the canvas exceeded",
	)

	// Edge errors
	ErrEdgeNotFound = NewDomainError(
		DomainNotFoundError,
		"EDGE_NOT_FOUND",
		"The requested edge does not exist",
	)

	ErrSelfReferentialEdge = NewDomainError(
		DomainBusinessRuleError,
		"SELF_REFERENTIAL_EDGE",
		"Cannot create an edge from a node to itself",
	)

	ErrDuplicateEdge = NewDomainError(
		DomainConflictError,
		"DUPLICATE_EDGE",
		"An edge between these nodes already exists",
	)

	ErrEdgeEndpointMissing = NewDomainError(
		DomainValidationError,
		"EDGE_ENDPOINT_MISSING",
		"Both edge endpoints must reference existing nodes",
	)

	ErrIllegalPortDirection = NewDomainError(
		DomainBusinessRuleError,
		"ILLEGAL_PORT_DIRECTION",
		"Edges must run from an output port to an input port",
	)

	// Session errors
	ErrSessionNotFound = NewDomainError(
		DomainNotFoundError,
		"SESSION_NOT_FOUND",
		"The requested session does not exist",
	)

	ErrSessionIDRequired = NewDomainError(
		DomainValidationError,
		"SESSION_ID_REQUIRED",
		"session_id is required for existing chats.",
	)

	ErrInvalidNewChatFlag = NewDomainError(
		DomainValidationError,
		"INVALID_NEW_CHAT_FLAG",
		"Invalid is_new_chat value. Use True or False.",
	)

	// Rate limiting errors
	ErrRateLimitExceeded = NewDomainError(
		DomainRateLimitError,
		"RATE_LIMIT_EXCEEDED",
		"Too many requests, please try again later",
	).WithRetryable(true)
)

// ValidationErrors aggregates multiple validation errors
type ValidationErrors struct {
	Errors []*DomainError `json:"errors"`
}

// NewValidationErrors creates a new validation errors collection
func NewValidationErrors() *ValidationErrors {
	return &ValidationErrors{
		Errors: make([]*DomainError, 0),
	}
}

// Add adds a validation error
func (v *ValidationErrors) Add(field string, message string) {
	err := NewDomainError(DomainValidationError, "FIELD_VALIDATION_ERROR", message).
		WithDetail("field", field)
	v.Errors = append(v.Errors, err)
}

// AddError adds a pre-existing domain error
func (v *ValidationErrors) AddError(err *DomainError) {
	v.Errors = append(v.Errors, err)
}

// HasErrors returns true if there are validation errors
func (v *ValidationErrors) HasErrors() bool {
	return len(v.Errors) > 0
}

// Error implements the error interface
func (v *ValidationErrors) Error() string {
	if len(v.Errors) == 0 {
		return ""
	}

	messages := make([]string, len(v.Errors))
	for i, err := range v.Errors {
		messages[i] = err.Message
	}
	return fmt.Sprintf("Validation failed: %s", strings.Join(messages, "; "))
}

// Unwrap exposes the collected errors to errors.Is and errors.As
func (v *ValidationErrors) Unwrap() []error {
	errs := make([]error, len(v.Errors))
	for i, err := range v.Errors {
		errs[i] = err
	}
	return errs
}

// ToMap converts validation errors to a map for JSON serialization
func (v *ValidationErrors) ToMap() map[string][]string {
	result := make(map[string][]string)

	for _, err := range v.Errors {
		field, ok := err.Details["field"].(string)
		if !ok {
			field = "general"
		}

		if _, exists := result[field]; !exists {
			result[field] = make([]string, 0)
		}
		result[field] = append(result[field], err.Message)
	}

	return result
}

// GetDomainError extracts a DomainError from an error chain. For a
// ValidationErrors collection the first collected error is returned.
func GetDomainError(err error) *DomainError {
	for err != nil {
		if domainErr, ok := err.(*DomainError); ok {
			return domainErr
		}
		if collection, ok := err.(*ValidationErrors); ok {
			if len(collection.Errors) > 0 {
				return collection.Errors[0]
			}
			return nil
		}
		unwrapper, ok := err.(interface{ Unwrap() error })
		if !ok {
			return nil
		}
		err = unwrapper.Unwrap()
	}
	return nil
}
