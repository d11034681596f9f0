package editor_test

import (
	"sync/atomic"
	"testing"
	"time"

	"flowcanvas/application/editor"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUndoStore_ArmThenPending(t *testing.T) {
	// Arrange
	store := editor.NewUndoStore(time.Minute, nil)
	removed := removedSubgraph(t)

	// Act
	expiresAt := store.Arm(&editor.DeletionRecord{Subgraph: removed, DeletedAt: time.Now()})

	// Assert
	pending := store.Pending()
	assert.True(t, pending.Exists)
	assert.Equal(t, removed.Node.ID().String(), pending.NodeID)
	assert.Equal(t, len(removed.Edges), pending.EdgeCount)
	assert.Equal(t, expiresAt, pending.ExpiresAt)
	assert.WithinDuration(t, time.Now().Add(time.Minute), expiresAt, time.Second)
}

func TestUndoStore_RestoreConsumesRecord(t *testing.T) {
	// Arrange
	store := editor.NewUndoStore(time.Minute, nil)
	removed := removedSubgraph(t)
	store.Arm(&editor.DeletionRecord{Subgraph: removed, DeletedAt: time.Now()})

	// Act
	rec, ok := store.Restore()
	_, again := store.Restore()

	// Assert
	require.True(t, ok)
	assert.Same(t, removed, rec.Subgraph)
	assert.False(t, again, "the record is single-use")
	assert.False(t, store.Pending().Exists)
}

func TestUndoStore_RestoreWithoutRecord(t *testing.T) {
	// Arrange
	store := editor.NewUndoStore(time.Minute, nil)

	// Act
	rec, ok := store.Restore()

	// Assert
	assert.False(t, ok)
	assert.Nil(t, rec)
}

func TestUndoStore_ExpiryFiresHookAndDropsRecord(t *testing.T) {
	// Arrange
	store := editor.NewUndoStore(20*time.Millisecond, nil)
	expired := make(chan *editor.DeletionRecord, 1)
	store.OnExpire(func(rec *editor.DeletionRecord) { expired <- rec })
	removed := removedSubgraph(t)

	// Act
	store.Arm(&editor.DeletionRecord{Subgraph: removed, DeletedAt: time.Now()})

	// Assert
	select {
	case rec := <-expired:
		assert.Same(t, removed, rec.Subgraph)
	case <-time.After(2 * time.Second):
		t.Fatal("expiry hook never fired")
	}
	assert.False(t, store.Pending().Exists)
	_, ok := store.Restore()
	assert.False(t, ok, "an expired deletion is unrecoverable")
}

func TestUndoStore_ArmReplacesPending(t *testing.T) {
	// Arrange
	store := editor.NewUndoStore(30*time.Millisecond, nil)
	var expiries atomic.Int32
	expired := make(chan struct{}, 2)
	store.OnExpire(func(*editor.DeletionRecord) {
		expiries.Add(1)
		expired <- struct{}{}
	})
	first := removedSubgraph(t)
	second := removedSubgraph(t)

	// Act: the second deletion replaces the first
	store.Arm(&editor.DeletionRecord{Subgraph: first, DeletedAt: time.Now()})
	store.Arm(&editor.DeletionRecord{Subgraph: second, DeletedAt: time.Now()})

	// Assert: only the live record is restorable, only it can expire
	assert.Equal(t, second.Node.ID().String(), store.Pending().NodeID)

	select {
	case <-expired:
	case <-time.After(2 * time.Second):
		t.Fatal("replacement record never expired")
	}
	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, int32(1), expiries.Load(), "the replaced record must not also expire")
}

func TestUndoStore_RestoreBeatsExpiry(t *testing.T) {
	// Arrange
	store := editor.NewUndoStore(30*time.Millisecond, nil)
	var expiries atomic.Int32
	store.OnExpire(func(*editor.DeletionRecord) { expiries.Add(1) })
	store.Arm(&editor.DeletionRecord{Subgraph: removedSubgraph(t), DeletedAt: time.Now()})

	// Act
	_, ok := store.Restore()

	// Assert
	require.True(t, ok)
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, int32(0), expiries.Load(), "a restored record must not expire")
}

func TestUndoStore_DisarmDropsRecordSilently(t *testing.T) {
	// Arrange
	store := editor.NewUndoStore(30*time.Millisecond, nil)
	var expiries atomic.Int32
	store.OnExpire(func(*editor.DeletionRecord) { expiries.Add(1) })
	store.Arm(&editor.DeletionRecord{Subgraph: removedSubgraph(t), DeletedAt: time.Now()})

	// Act
	store.Disarm()

	// Assert
	assert.False(t, store.Pending().Exists)
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, int32(0), expiries.Load())
}

func TestUndoStore_SetTTLAppliesToNextArm(t *testing.T) {
	// Arrange
	store := editor.NewUndoStore(time.Minute, nil)

	// Act
	store.SetTTL(time.Hour)
	expiresAt := store.Arm(&editor.DeletionRecord{Subgraph: removedSubgraph(t), DeletedAt: time.Now()})

	// Assert
	assert.WithinDuration(t, time.Now().Add(time.Hour), expiresAt, time.Second)
}

func TestUndoStore_CloseDropsEverything(t *testing.T) {
	// Arrange
	store := editor.NewUndoStore(20*time.Millisecond, nil)
	var expiries atomic.Int32
	store.OnExpire(func(*editor.DeletionRecord) { expiries.Add(1) })
	store.Arm(&editor.DeletionRecord{Subgraph: removedSubgraph(t), DeletedAt: time.Now()})

	// Act
	store.Close()
	armed := store.Arm(&editor.DeletionRecord{Subgraph: removedSubgraph(t), DeletedAt: time.Now()})

	// Assert
	assert.True(t, armed.IsZero(), "a closed store arms nothing")
	assert.False(t, store.Pending().Exists)
	time.Sleep(80 * time.Millisecond)
	assert.Equal(t, int32(0), expiries.Load())
}
