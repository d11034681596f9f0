package versioning

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"flowcanvas/domain/core/aggregates"
)

// SaveState tracks how the local document relates to the last state the
// backend acknowledged. The document is dirty exactly when its revision
// has moved past the synced revision.
type SaveState struct {
	Dirty          bool       `json:"dirty"`
	LastSyncedAt   *time.Time `json:"last_synced_at"`
	Revision       int64      `json:"revision"`
	SyncedRevision int64      `json:"synced_revision"`
}

// Tracker maintains the SaveState across concurrent readers. Mutations
// report the document revision they produced; successful saves report
// the revision that was persisted.
type Tracker struct {
	mu             sync.RWMutex
	revision       int64
	syncedRevision int64
	lastSyncedAt   *time.Time
}

// NewTracker creates a tracker for a document at the given revision,
// treating that revision as already synced
func NewTracker(revision int64) *Tracker {
	return &Tracker{
		revision:       revision,
		syncedRevision: revision,
	}
}

// Advance records that the document has mutated to the given revision
func (t *Tracker) Advance(revision int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if revision > t.revision {
		t.revision = revision
	}
}

// MarkSynced records that the given revision was persisted at the given
// time. A later local revision keeps the state dirty.
func (t *Tracker) MarkSynced(revision int64, at time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if revision > t.syncedRevision {
		t.syncedRevision = revision
	}
	t.lastSyncedAt = &at
}

// Reset aligns the tracker with a freshly loaded document: the given
// revision is both current and synced
func (t *Tracker) Reset(revision int64, at time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.revision = revision
	t.syncedRevision = revision
	t.lastSyncedAt = &at
}

// State returns the current save state
func (t *Tracker) State() SaveState {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return SaveState{
		Dirty:          t.revision != t.syncedRevision,
		LastSyncedAt:   t.lastSyncedAt,
		Revision:       t.revision,
		SyncedRevision: t.syncedRevision,
	}
}

// Dirty reports whether the document has unsaved changes
func (t *Tracker) Dirty() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.revision != t.syncedRevision
}

// Checksum calculates a stable content hash over a document snapshot.
// Snapshots export in insertion order, so the same document state
// always hashes to the same value.
func Checksum(snap aggregates.Snapshot) (string, error) {
	data, err := json.Marshal(snap)
	if err != nil {
		return "", fmt.Errorf("failed to marshal snapshot for checksum: %w", err)
	}

	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:]), nil
}

// VerifyChecksum reports whether the snapshot still hashes to the
// recorded value
func VerifyChecksum(snap aggregates.Snapshot, expected string) (bool, error) {
	actual, err := Checksum(snap)
	if err != nil {
		return false, err
	}
	return actual == expected, nil
}
