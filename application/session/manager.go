package session

import (
	"context"
	"strings"
	"sync"

	"flowcanvas/application/ports"
	domainconfig "flowcanvas/domain/config"
	"flowcanvas/pkg/common"
	pkgerrors "flowcanvas/pkg/errors"
	"flowcanvas/pkg/extensions"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ExecuteParams is one execution request as the bridge API receives it.
type ExecuteParams struct {
	Message   string   `json:"message" validate:"required"`
	IsNewChat FlexBool `json:"is_new_chat"`
	SessionID string   `json:"session_id,omitempty"`
	ChatID    string   `json:"chat_id,omitempty"`
	GraphName string   `json:"graph_name,omitempty"`
}

// Resolution binds an execution request to a session.
type Resolution struct {
	Session *Session
	IsNew   bool
}

// HistoryPage is one page of a session's message history.
type HistoryPage struct {
	SessionID string    `json:"session_id"`
	Page      int       `json:"page"`
	PageSize  int       `json:"page_size"`
	Total     int       `json:"total"`
	Messages  []Message `json:"messages"`
}

// Manager resolves execution requests onto sessions, projects the
// conversation context for each turn, and records the round-trips.
type Manager struct {
	mu            sync.RWMutex
	contextWindow int
	pageSize      int

	registry     *Registry
	backend      ports.GraphBackend
	defaultGraph string
	hooks        *extensions.HookManager
	logger       *zap.Logger
}

// NewManager creates a session manager over the given backend.
func NewManager(backend ports.GraphBackend, cfg *domainconfig.DomainConfig, hooks *extensions.HookManager, logger *zap.Logger) *Manager {
	if cfg == nil {
		cfg = domainconfig.DefaultDomainConfig()
	}
	if hooks == nil {
		hooks = extensions.NewHookManager()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		contextWindow: cfg.ContextWindow,
		pageSize:      cfg.HistoryPageSize,
		registry:      NewRegistry(),
		backend:       backend,
		defaultGraph:  cfg.DefaultGraphName,
		hooks:         hooks,
		logger:        logger,
	}
}

// Resolve binds the request to a session before any network traffic.
// A new chat gets a generated session id when none was supplied; a
// continuation without a session id is rejected locally. A session id
// that is not a UUID is logged and forwarded anyway: the backend
// answers such requests with a business-level failure, not a transport
// error.
func (m *Manager) Resolve(params ExecuteParams) (*Resolution, error) {
	graphName := strings.TrimSpace(params.GraphName)
	if graphName == "" {
		graphName = m.defaultGraph
	}
	sessionID := strings.TrimSpace(params.SessionID)

	if params.IsNewChat.Bool() {
		if sessionID == "" {
			sessionID = uuid.New().String()
		}
		sess, created := m.registry.GetOrCreate(sessionID, params.ChatID, graphName)
		if created {
			m.hooks.ExecuteAsync(context.Background(), extensions.HookSessionCreated, extensions.HookData{
				Subject:   sessionID,
				Operation: "session_created",
			})
		}
		return &Resolution{Session: sess, IsNew: created}, nil
	}

	if sessionID == "" {
		return nil, pkgerrors.ErrSessionIDRequired
	}
	if _, err := uuid.Parse(sessionID); err != nil {
		m.logger.Warn("session id is not a UUID, forwarding as-is",
			zap.String("session_id", sessionID),
		)
	}

	sess, created := m.registry.GetOrCreate(sessionID, params.ChatID, graphName)
	if created {
		m.hooks.ExecuteAsync(context.Background(), extensions.HookSessionCreated, extensions.HookData{
			Subject:   sessionID,
			Operation: "session_created",
		})
	}
	return &Resolution{Session: sess, IsNew: false}, nil
}

// Execute runs one conversational turn: resolve the session, project
// its recent context, call the backend, and record the round-trip. A
// transport failure leaves the history untouched; completed and failed
// outcomes alike are recorded, since both are answers.
func (m *Manager) Execute(ctx context.Context, params ExecuteParams) (*ports.ExecutionResult, error) {
	resolution, err := m.Resolve(params)
	if err != nil {
		return nil, err
	}
	sess := resolution.Session

	projected := sess.Context(m.window())
	chatContext := make([]ports.ChatMessage, len(projected))
	for i, msg := range projected {
		chatContext[i] = ports.ChatMessage{Role: msg.Role, Content: msg.Content}
	}

	ctx = common.WithSessionID(ctx, sess.ID())
	result, err := m.backend.Execute(ctx, ports.ExecutionRequest{
		Message:   params.Message,
		SessionID: sess.ID(),
		ChatID:    sess.ChatID(),
		GraphName: sess.GraphName(),
		Context:   chatContext,
	})
	if err != nil {
		m.hooks.ExecuteAsync(context.Background(), extensions.HookExecutionFailed, extensions.HookData{
			Subject:   sess.ID(),
			Operation: "execute",
		})
		return nil, err
	}

	recorded := make([]Message, 0, len(result.Messages)+1)
	recorded = append(recorded, NewMessage(RoleHuman, params.Message))
	for _, msg := range result.Messages {
		recorded = append(recorded, NewMessage(msg.Role, msg.Content))
	}
	sess.Append(recorded...)

	point := extensions.HookExecutionCompleted
	if result.Status == ports.ExecutionFailed {
		point = extensions.HookExecutionFailed
	}
	m.hooks.ExecuteAsync(context.Background(), point, extensions.HookData{
		Subject:   sess.ID(),
		Operation: "execute",
		Detail:    map[string]interface{}{"status": result.Status},
	})

	return result, nil
}

// Get returns the session with the given id.
func (m *Manager) Get(id string) (*Session, error) {
	sess, ok := m.registry.Get(id)
	if !ok {
		return nil, pkgerrors.ErrSessionNotFound.WithDetail("session_id", id)
	}
	return sess, nil
}

// List returns all session read models, most recently active first.
func (m *Manager) List() []View {
	sessions := m.registry.List()
	views := make([]View, len(sessions))
	for i, sess := range sessions {
		views[i] = sess.View()
	}
	return views
}

// History returns one page of a session's messages.
func (m *Manager) History(id string, page, pageSize int) (*HistoryPage, error) {
	sess, err := m.Get(id)
	if err != nil {
		return nil, err
	}

	if pageSize < 1 {
		pageSize = m.defaultPageSize()
	}
	if page < 1 {
		page = 1
	}

	messages, total := sess.History(page, pageSize)
	return &HistoryPage{
		SessionID: id,
		Page:      page,
		PageSize:  pageSize,
		Total:     total,
		Messages:  messages,
	}, nil
}

// Context returns the live context projection for a session.
func (m *Manager) Context(id string) ([]Message, error) {
	sess, err := m.Get(id)
	if err != nil {
		return nil, err
	}
	return sess.Context(m.window()), nil
}

// SetContextWindow changes the projection size for subsequent turns.
func (m *Manager) SetContextWindow(window int) {
	if window < 1 {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.contextWindow = window
}

func (m *Manager) window() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.contextWindow
}

func (m *Manager) defaultPageSize() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.pageSize
}
