package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"flowcanvas/application/editor"
	"flowcanvas/application/ports"
	"flowcanvas/domain/core/aggregates"
	"flowcanvas/domain/core/entities"
	"flowcanvas/domain/core/valueobjects"
	"flowcanvas/pkg/common"
	pkgerrors "flowcanvas/pkg/errors"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// CanvasHandler serves the document surface of the bridge API: the
// graph itself, structural edits, undo, layout, persistence and the
// crash-recovery draft.
type CanvasHandler struct {
	editor *editor.EditorService
	errors *pkgerrors.ErrorHandler
	logger *zap.Logger
}

// NewCanvasHandler creates a new canvas handler
func NewCanvasHandler(editorSvc *editor.EditorService, errorHandler *pkgerrors.ErrorHandler, logger *zap.Logger) *CanvasHandler {
	return &CanvasHandler{
		editor: editorSvc,
		errors: errorHandler,
		logger: logger,
	}
}

// PositionRequest is a canvas coordinate in a request body
type PositionRequest struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// AddNodeRequest represents the request body for adding a node
type AddNodeRequest struct {
	Type     string          `json:"type" validate:"required"`
	Position PositionRequest `json:"position"`
	Data     json.RawMessage `json:"data,omitempty"`
}

// UpdateNodeRequest patches either one payload field or the position,
// never both in one call.
type UpdateNodeRequest struct {
	Field    string           `json:"field,omitempty"`
	Value    json.RawMessage  `json:"value,omitempty"`
	Position *PositionRequest `json:"position,omitempty"`
}

// AddEdgeRequest mirrors the canvas connection gesture. Handles may be
// omitted; the only legal direction is output to input, so omission
// defaults to it. Explicit garbage is still rejected.
type AddEdgeRequest struct {
	Source       string `json:"source" validate:"required"`
	Target       string `json:"target" validate:"required"`
	SourceHandle string `json:"sourceHandle,omitempty"`
	TargetHandle string `json:"targetHandle,omitempty"`
}

// RewireEdgeRequest moves one endpoint of an existing edge to another node
type RewireEdgeRequest struct {
	Endpoint string `json:"endpoint" validate:"required,oneof=source target"`
	NodeID   string `json:"node_id" validate:"required"`
}

// LayoutRequest picks the direction for automatic arrangement. An
// empty direction means left-to-right.
type LayoutRequest struct {
	Direction string `json:"direction,omitempty"`
}

// GetCanvas handles GET /canvas
func (h *CanvasHandler) GetCanvas(w http.ResponseWriter, r *http.Request) {
	view, err := h.editor.Document()
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, view)
}

// AddNode handles POST /canvas/nodes
func (h *CanvasHandler) AddNode(w http.ResponseWriter, r *http.Request) {
	var req AddNodeRequest
	if err := decodeBody(r, &req); err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	nodeType, err := valueobjects.ParseNodeType(req.Type)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	position, err := valueobjects.NewPosition(req.Position.X, req.Position.Y)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	node, err := h.editor.AddNode(r.Context(), nodeType, position, req.Data)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	common.RespondJSON(w, http.StatusCreated, node)
}

// UpdateNode handles PATCH /canvas/nodes/{nodeID}
func (h *CanvasHandler) UpdateNode(w http.ResponseWriter, r *http.Request) {
	nodeID, err := valueobjects.ParseNodeID(chi.URLParam(r, "nodeID"))
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	var req UpdateNodeRequest
	if err := decodeBody(r, &req); err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	switch {
	case req.Position != nil && req.Field != "":
		h.errors.Handle(w, r, pkgerrors.NewValidationError("field and position updates are mutually exclusive"))

	case req.Position != nil:
		position, err := valueobjects.NewPosition(req.Position.X, req.Position.Y)
		if err != nil {
			h.errors.Handle(w, r, err)
			return
		}
		if err := h.editor.MoveNode(r.Context(), nodeID, position); err != nil {
			h.errors.Handle(w, r, err)
			return
		}
		common.RespondJSON(w, http.StatusOK, map[string]interface{}{
			"node_id":  nodeID.String(),
			"position": aggregates.PointSnapshot{X: position.X(), Y: position.Y()},
		})

	case req.Field != "":
		node, err := h.editor.UpdateNodeField(r.Context(), nodeID, req.Field, req.Value)
		if err != nil {
			h.errors.Handle(w, r, err)
			return
		}
		common.RespondJSON(w, http.StatusOK, node)

	default:
		h.errors.Handle(w, r, pkgerrors.NewValidationError("either field or position is required"))
	}
}

// DeleteNode handles DELETE /canvas/nodes/{nodeID}. The response
// carries the removed subgraph and the undo deadline.
func (h *CanvasHandler) DeleteNode(w http.ResponseWriter, r *http.Request) {
	nodeID, err := valueobjects.ParseNodeID(chi.URLParam(r, "nodeID"))
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	deletion, err := h.editor.RemoveNode(r.Context(), nodeID)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	common.RespondJSON(w, http.StatusOK, deletion)
}

// AddEdge handles POST /canvas/edges
func (h *CanvasHandler) AddEdge(w http.ResponseWriter, r *http.Request) {
	var req AddEdgeRequest
	if err := decodeBody(r, &req); err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	conn, err := h.buildConnection(req)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	edge, err := h.editor.AddEdge(r.Context(), conn)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	common.RespondJSON(w, http.StatusCreated, edge)
}

func (h *CanvasHandler) buildConnection(req AddEdgeRequest) (aggregates.Connection, error) {
	source, err := valueobjects.ParseNodeID(req.Source)
	if err != nil {
		return aggregates.Connection{}, err
	}
	target, err := valueobjects.ParseNodeID(req.Target)
	if err != nil {
		return aggregates.Connection{}, err
	}

	sourceHandle := valueobjects.HandleOut
	if req.SourceHandle != "" {
		if sourceHandle, err = valueobjects.ParseHandle(req.SourceHandle); err != nil {
			return aggregates.Connection{}, err
		}
	}
	targetHandle := valueobjects.HandleIn
	if req.TargetHandle != "" {
		if targetHandle, err = valueobjects.ParseHandle(req.TargetHandle); err != nil {
			return aggregates.Connection{}, err
		}
	}

	return aggregates.Connection{
		Source:       source,
		Target:       target,
		SourceHandle: sourceHandle,
		TargetHandle: targetHandle,
	}, nil
}

// UpdateEdge handles PATCH /canvas/edges/{edgeID}
func (h *CanvasHandler) UpdateEdge(w http.ResponseWriter, r *http.Request) {
	edgeID, err := valueobjects.ParseEdgeID(chi.URLParam(r, "edgeID"))
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	var req RewireEdgeRequest
	if err := decodeBody(r, &req); err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	endpoint, err := entities.ParseEndpoint(req.Endpoint)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	nodeID, err := valueobjects.ParseNodeID(req.NodeID)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	edge, err := h.editor.RewireEdge(r.Context(), edgeID, endpoint, nodeID)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	common.RespondJSON(w, http.StatusOK, edge)
}

// DeleteEdge handles DELETE /canvas/edges/{edgeID}. Removing an absent
// edge is a no-op and reports removed=false.
func (h *CanvasHandler) DeleteEdge(w http.ResponseWriter, r *http.Request) {
	edgeID, err := valueobjects.ParseEdgeID(chi.URLParam(r, "edgeID"))
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	removed, err := h.editor.RemoveEdge(r.Context(), edgeID)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	common.RespondJSON(w, http.StatusOK, map[string]bool{"removed": removed})
}

// GetUndo handles GET /canvas/undo
func (h *CanvasHandler) GetUndo(w http.ResponseWriter, r *http.Request) {
	common.RespondJSON(w, http.StatusOK, h.editor.PendingDeletion())
}

// Undo handles POST /canvas/undo
func (h *CanvasHandler) Undo(w http.ResponseWriter, r *http.Request) {
	restored, err := h.editor.RestoreDeletion(r.Context())
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	common.RespondJSON(w, http.StatusOK, restored)
}

// ApplyLayout handles POST /canvas/layout. The body is optional; an
// absent direction lays out left-to-right.
func (h *CanvasHandler) ApplyLayout(w http.ResponseWriter, r *http.Request) {
	var req LayoutRequest
	if err := common.ParseJSONBody(r, &req, maxRequestBody); err != nil && !errors.Is(err, io.EOF) {
		h.errors.Handle(w, r, pkgerrors.NewValidationError("invalid request body: "+err.Error()))
		return
	}

	direction, ok := ports.ParseLayoutDirection(req.Direction)
	if !ok {
		h.errors.Handle(w, r, pkgerrors.NewValidationError("direction must be LR or TB"))
		return
	}

	view, err := h.editor.ApplyLayout(r.Context(), direction)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	common.RespondJSON(w, http.StatusOK, view)
}

// Save handles POST /canvas/save. A manual save cancels any pending
// autosave and runs synchronously.
func (h *CanvasHandler) Save(w http.ResponseWriter, r *http.Request) {
	state, err := h.editor.SaveNow(r.Context())
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	common.RespondJSON(w, http.StatusOK, state)
}

// Load handles POST /canvas/load. The backend copy replaces the local
// document.
func (h *CanvasHandler) Load(w http.ResponseWriter, r *http.Request) {
	view, err := h.editor.Load(r.Context())
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	common.RespondJSON(w, http.StatusOK, view)
}

// Validate handles POST /canvas/validate
func (h *CanvasHandler) Validate(w http.ResponseWriter, r *http.Request) {
	report, err := h.editor.Validate(r.Context())
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	common.RespondJSON(w, http.StatusOK, report)
}

// ClearCanvas handles DELETE /canvas. The emptied document is returned
// so the UI can render the fresh state directly.
func (h *CanvasHandler) ClearCanvas(w http.ResponseWriter, r *http.Request) {
	if err := h.editor.ClearAll(r.Context()); err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	view, err := h.editor.Document()
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	common.RespondJSON(w, http.StatusOK, view)
}

// GetDraft handles GET /canvas/draft
func (h *CanvasHandler) GetDraft(w http.ResponseWriter, r *http.Request) {
	info, err := h.editor.DraftInfo(r.Context())
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	common.RespondJSON(w, http.StatusOK, info)
}

// RestoreDraft handles POST /canvas/draft/restore
func (h *CanvasHandler) RestoreDraft(w http.ResponseWriter, r *http.Request) {
	view, err := h.editor.RestoreDraft(r.Context())
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	common.RespondJSON(w, http.StatusOK, view)
}

// DiscardDraft handles DELETE /canvas/draft
func (h *CanvasHandler) DiscardDraft(w http.ResponseWriter, r *http.Request) {
	if err := h.editor.DiscardDraft(r.Context()); err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	common.RespondJSON(w, http.StatusOK, map[string]bool{"discarded": true})
}
