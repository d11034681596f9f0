package handlers

import (
	"net/http"
	"strconv"

	"flowcanvas/application/session"
	"flowcanvas/pkg/common"
	pkgerrors "flowcanvas/pkg/errors"
	"flowcanvas/pkg/utils"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// SessionHandler serves the conversation read models: listing,
// detail, paginated history and the live context projection.
type SessionHandler struct {
	sessions *session.Manager
	errors   *pkgerrors.ErrorHandler
	logger   *zap.Logger
}

// NewSessionHandler creates a new session handler
func NewSessionHandler(sessions *session.Manager, errorHandler *pkgerrors.ErrorHandler, logger *zap.Logger) *SessionHandler {
	return &SessionHandler{
		sessions: sessions,
		errors:   errorHandler,
		logger:   logger,
	}
}

// ListSessions handles GET /sessions
func (h *SessionHandler) ListSessions(w http.ResponseWriter, r *http.Request) {
	common.RespondJSON(w, http.StatusOK, h.sessions.List())
}

// GetSession handles GET /sessions/{sessionID}
func (h *SessionHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	sess, err := h.sessions.Get(chi.URLParam(r, "sessionID"))
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	common.RespondJSON(w, http.StatusOK, sess.View())
}

// GetMessages handles GET /sessions/{sessionID}/messages. Omitted
// pagination parameters fall back to the configured page size; the
// page size is capped so a single request cannot dump an unbounded
// history.
func (h *SessionHandler) GetMessages(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	query := r.URL.Query()
	page, _ := strconv.Atoi(query.Get("page"))
	pageSize, _ := strconv.Atoi(query.Get("page_size"))
	if pageSize > common.MaxPageSize {
		pageSize = common.MaxPageSize
	}

	history, err := h.sessions.History(sessionID, page, pageSize)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	common.RespondWithMeta(w, http.StatusOK, history, &common.MetaInfo{
		RequestID:  common.ExtractRequestID(r),
		Timestamp:  utils.NowRFC3339(),
		Pagination: common.BuildPaginationMeta(history.Page, history.PageSize, history.Total),
	})
}

// GetContext handles GET /sessions/{sessionID}/context. This is the
// exact window the next execution would send upstream.
func (h *SessionHandler) GetContext(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	messages, err := h.sessions.Context(sessionID)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	common.RespondJSON(w, http.StatusOK, map[string]interface{}{
		"session_id": sessionID,
		"messages":   messages,
	})
}
