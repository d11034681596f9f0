package handlers

import (
	"net/http"

	"flowcanvas/application/session"
	"flowcanvas/pkg/common"
	pkgerrors "flowcanvas/pkg/errors"

	"go.uber.org/zap"
)

// ExecutionHandler drives conversational turns through the upstream
// workflow backend. A business-level failure from the backend is a
// successful bridge response with status "failed" in the data; only
// transport and session-resolution problems become HTTP errors.
type ExecutionHandler struct {
	sessions *session.Manager
	errors   *pkgerrors.ErrorHandler
	logger   *zap.Logger
}

// NewExecutionHandler creates a new execution handler
func NewExecutionHandler(sessions *session.Manager, errorHandler *pkgerrors.ErrorHandler, logger *zap.Logger) *ExecutionHandler {
	return &ExecutionHandler{
		sessions: sessions,
		errors:   errorHandler,
		logger:   logger,
	}
}

// Execute handles POST /executions
func (h *ExecutionHandler) Execute(w http.ResponseWriter, r *http.Request) {
	var params session.ExecuteParams
	if err := decodeBody(r, &params); err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	result, err := h.sessions.Execute(r.Context(), params)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	common.RespondJSON(w, http.StatusOK, result)
}
