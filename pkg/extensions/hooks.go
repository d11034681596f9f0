package extensions

import (
	"context"
	"fmt"
	"sync"
)

// HookPoint represents a point in the editor lifecycle where hooks can
// be registered
type HookPoint string

const (
	// Document lifecycle hooks
	HookDocumentMutated HookPoint = "document_mutated"
	HookDocumentSaved   HookPoint = "document_saved"
	HookSaveFailed      HookPoint = "save_failed"
	HookDocumentLoaded  HookPoint = "document_loaded"
	HookDocumentCleared HookPoint = "document_cleared"

	// Undo lifecycle hooks
	HookUndoArmed    HookPoint = "undo_armed"
	HookUndoRestored HookPoint = "undo_restored"
	HookUndoExpired  HookPoint = "undo_expired"

	// Draft lifecycle hooks
	HookDraftWritten   HookPoint = "draft_written"
	HookDraftRestored  HookPoint = "draft_restored"
	HookDraftDiscarded HookPoint = "draft_discarded"

	// Session lifecycle hooks
	HookSessionCreated     HookPoint = "session_created"
	HookExecutionCompleted HookPoint = "execution_completed"
	HookExecutionFailed    HookPoint = "execution_failed"

	// Cache hooks
	HookCacheHit  HookPoint = "cache_hit"
	HookCacheMiss HookPoint = "cache_miss"

	// Config hooks
	HookConfigReloaded HookPoint = "config_reloaded"
)

// HookData represents data passed to hooks
type HookData struct {
	Subject   string                 `json:"subject,omitempty"`
	Operation string                 `json:"operation,omitempty"`
	Detail    map[string]interface{} `json:"detail,omitempty"`
}

// Hook represents a function that can be executed at a hook point
type Hook func(ctx context.Context, data HookData) error

// HookManager manages hooks for extension points
type HookManager struct {
	hooks map[HookPoint][]Hook
	mu    sync.RWMutex
}

// NewHookManager creates a new hook manager
func NewHookManager() *HookManager {
	return &HookManager{
		hooks: make(map[HookPoint][]Hook),
	}
}

// Register registers a hook for a specific hook point
func (m *HookManager) Register(point HookPoint, hook Hook) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.hooks[point] = append(m.hooks[point], hook)
}

// Execute executes all hooks for a specific hook point, stopping at the
// first failure
func (m *HookManager) Execute(ctx context.Context, point HookPoint, data HookData) error {
	m.mu.RLock()
	hooks := m.hooks[point]
	m.mu.RUnlock()

	for i, hook := range hooks {
		if err := hook(ctx, data); err != nil {
			return fmt.Errorf("hook %d at %s failed: %w", i, point, err)
		}
	}

	return nil
}

// ExecuteAsync executes hooks asynchronously. Hook errors are ignored:
// lifecycle observation never vetoes the operation that fired it.
func (m *HookManager) ExecuteAsync(ctx context.Context, point HookPoint, data HookData) {
	m.mu.RLock()
	hooks := m.hooks[point]
	m.mu.RUnlock()

	for _, hook := range hooks {
		go func(h Hook) {
			_ = h(ctx, data)
		}(hook)
	}
}

// Clear removes all hooks for a specific hook point
func (m *HookManager) Clear(point HookPoint) {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.hooks, point)
}

// ClearAll removes all registered hooks
func (m *HookManager) ClearAll() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.hooks = make(map[HookPoint][]Hook)
}
