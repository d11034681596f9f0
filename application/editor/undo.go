package editor

import (
	"sync"
	"time"

	"flowcanvas/domain/core/aggregates"

	"go.uber.org/zap"
)

// DefaultUndoTTL is how long a deleted subgraph stays restorable.
const DefaultUndoTTL = 10 * time.Second

// DeletionRecord captures one cascade deletion so it can be undone.
type DeletionRecord struct {
	Subgraph  *aggregates.RemovedSubgraph
	DeletedAt time.Time
}

// PendingDeletion describes the restorable deletion, if any.
type PendingDeletion struct {
	Exists    bool      `json:"exists"`
	NodeID    string    `json:"node_id,omitempty"`
	EdgeCount int       `json:"edge_count,omitempty"`
	ExpiresAt time.Time `json:"expires_at,omitempty"`
}

// UndoStore holds at most one pending deletion. Arming a new deletion
// replaces the previous one; records are never stacked. A record that
// is neither restored nor replaced expires after the TTL and becomes
// unrecoverable.
type UndoStore struct {
	mu         sync.Mutex
	ttl        time.Duration
	timer      *TaskTimer
	record     *DeletionRecord
	expiresAt  time.Time
	generation uint64
	expiryHook func(*DeletionRecord)
	logger     *zap.Logger
	closed     bool
}

// NewUndoStore creates an empty undo store with the given TTL.
func NewUndoStore(ttl time.Duration, logger *zap.Logger) *UndoStore {
	if ttl <= 0 {
		ttl = DefaultUndoTTL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UndoStore{
		ttl:    ttl,
		timer:  NewTaskTimer(),
		logger: logger,
	}
}

// OnExpire registers a callback fired when a pending deletion expires
// without being restored. The callback runs outside the store's lock.
func (s *UndoStore) OnExpire(fn func(*DeletionRecord)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.expiryHook = fn
}

// Arm stores the deletion record and starts its expiry countdown,
// replacing any record already pending. It returns the moment the
// record will expire.
func (s *UndoStore) Arm(rec *DeletionRecord) time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed || rec == nil {
		return time.Time{}
	}

	if s.record != nil {
		s.logger.Debug("replacing pending deletion",
			zap.String("node_id", s.record.Subgraph.Node.ID().String()),
		)
	}

	s.generation++
	gen := s.generation
	s.record = rec
	s.expiresAt = time.Now().Add(s.ttl)
	s.timer.Schedule(s.ttl, func() { s.expire(gen) })

	return s.expiresAt
}

// Restore takes the pending record out of the store for re-insertion
// into the document. It reports false when nothing is pending.
func (s *UndoStore) Restore() (*DeletionRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.record == nil {
		return nil, false
	}

	s.generation++
	rec := s.record
	s.record = nil
	s.expiresAt = time.Time{}
	s.timer.Cancel()

	return rec, true
}

// Pending describes the restorable deletion without consuming it.
func (s *UndoStore) Pending() PendingDeletion {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.record == nil {
		return PendingDeletion{}
	}
	return PendingDeletion{
		Exists:    true,
		NodeID:    s.record.Subgraph.Node.ID().String(),
		EdgeCount: len(s.record.Subgraph.Edges),
		ExpiresAt: s.expiresAt,
	}
}

// Disarm drops the pending record without restoring it. Used when the
// document it refers to has been replaced wholesale.
func (s *UndoStore) Disarm() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.record == nil {
		return
	}
	s.generation++
	s.record = nil
	s.expiresAt = time.Time{}
	s.timer.Cancel()
}

// SetTTL changes the expiry window for subsequently armed deletions.
func (s *UndoStore) SetTTL(ttl time.Duration) {
	if ttl <= 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ttl = ttl
}

// Close drops any pending record and renders late timer callbacks inert.
func (s *UndoStore) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true
	s.generation++
	s.record = nil
	s.expiresAt = time.Time{}
	s.timer.Cancel()
}

// expire drops the record armed under gen. A stale generation means the
// record was restored, replaced, or the store was closed after this
// callback was scheduled; such callbacks do nothing.
func (s *UndoStore) expire(gen uint64) {
	s.mu.Lock()
	if gen != s.generation || s.record == nil {
		s.mu.Unlock()
		return
	}

	rec := s.record
	s.record = nil
	s.expiresAt = time.Time{}
	hook := s.expiryHook
	s.mu.Unlock()

	s.logger.Debug("pending deletion expired",
		zap.String("node_id", rec.Subgraph.Node.ID().String()),
		zap.Int("edge_count", len(rec.Subgraph.Edges)),
	)

	if hook != nil {
		hook(rec)
	}
}
