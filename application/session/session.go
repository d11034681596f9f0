package session

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Message roles follow the workflow backend's conversation model.
// Roles outside this set pass through untouched.
const (
	RoleSystem = "system"
	RoleHuman  = "human"
	RoleAI     = "ai"
)

// Message is one conversational turn stored in a session.
type Message struct {
	ID        string    `json:"id"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// NewMessage creates a message with a fresh identity.
func NewMessage(role, content string) Message {
	return Message{
		ID:        uuid.New().String(),
		Role:      role,
		Content:   content,
		CreatedAt: time.Now(),
	}
}

// View is the session read model handed to the API.
type View struct {
	SessionID    string    `json:"session_id"`
	ChatID       string    `json:"chat_id,omitempty"`
	GraphName    string    `json:"graph_name"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
	MessageCount int       `json:"message_count"`
}

// Session is one conversation's identity and message history. Each
// session guards its own history, so sessions never contend with each
// other.
type Session struct {
	mu        sync.RWMutex
	id        string
	chatID    string
	graphName string
	createdAt time.Time
	updatedAt time.Time
	messages  []Message
}

func newSession(id, chatID, graphName string) *Session {
	now := time.Now()
	return &Session{
		id:        id,
		chatID:    chatID,
		graphName: graphName,
		createdAt: now,
		updatedAt: now,
	}
}

// ID returns the session identifier.
func (s *Session) ID() string {
	return s.id
}

// ChatID returns the storage linkage identifier, possibly empty.
func (s *Session) ChatID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.chatID
}

// GraphName returns the workflow graph this session runs against.
func (s *Session) GraphName() string {
	return s.graphName
}

// Append adds messages to the history.
func (s *Session) Append(messages ...Message) {
	if len(messages) == 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = append(s.messages, messages...)
	s.updatedAt = time.Now()
}

// History returns one chronological page of messages and the total
// message count. Pages are 1-based.
func (s *Session) History(page, pageSize int) ([]Message, int) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 1
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	total := len(s.messages)
	start := (page - 1) * pageSize
	if start >= total {
		return []Message{}, total
	}
	end := start + pageSize
	if end > total {
		end = total
	}

	pageMessages := make([]Message, end-start)
	copy(pageMessages, s.messages[start:end])
	return pageMessages, total
}

// Context projects the most recent window of messages. The projection
// is read-time only; the stored history is untouched.
func (s *Session) Context(window int) []Message {
	if window < 1 {
		return []Message{}
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	start := len(s.messages) - window
	if start < 0 {
		start = 0
	}
	projected := make([]Message, len(s.messages)-start)
	copy(projected, s.messages[start:])
	return projected
}

// View returns the session's read model.
func (s *Session) View() View {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return View{
		SessionID:    s.id,
		ChatID:       s.chatID,
		GraphName:    s.graphName,
		CreatedAt:    s.createdAt,
		UpdatedAt:    s.updatedAt,
		MessageCount: len(s.messages),
	}
}

func (s *Session) updatedAtSnapshot() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.updatedAt
}

// Registry holds the known sessions. The registry lock only guards the
// map; message traffic takes the per-session locks.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewRegistry creates an empty session registry.
func NewRegistry() *Registry {
	return &Registry{
		sessions: make(map[string]*Session),
	}
}

// GetOrCreate returns the session with the given id, creating it when
// absent. It reports whether a new session was created.
func (r *Registry) GetOrCreate(id, chatID, graphName string) (*Session, bool) {
	r.mu.RLock()
	existing, ok := r.sessions[id]
	r.mu.RUnlock()
	if ok {
		return existing, false
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.sessions[id]; ok {
		return existing, false
	}
	created := newSession(id, chatID, graphName)
	r.sessions[id] = created
	return created, true
}

// Get returns the session with the given id.
func (r *Registry) Get(id string) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	sess, ok := r.sessions[id]
	return sess, ok
}

// List returns all sessions, most recently active first.
func (r *Registry) List() []*Session {
	r.mu.RLock()
	sessions := make([]*Session, 0, len(r.sessions))
	for _, sess := range r.sessions {
		sessions = append(sessions, sess)
	}
	r.mu.RUnlock()

	sort.Slice(sessions, func(i, j int) bool {
		ti, tj := sessions[i].updatedAtSnapshot(), sessions[j].updatedAtSnapshot()
		if ti.Equal(tj) {
			return sessions[i].ID() < sessions[j].ID()
		}
		return ti.After(tj)
	})
	return sessions
}

// Len returns the number of known sessions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}
