package editor

import (
	"context"
	"sync"
	"time"

	"flowcanvas/application/ports"
	"flowcanvas/domain/core/aggregates"
	"flowcanvas/domain/versioning"
	pkgerrors "flowcanvas/pkg/errors"

	"go.uber.org/zap"
)

// DefaultAutosaveDelay is the debounce window between the last edit and
// the automatic save it triggers.
const DefaultAutosaveDelay = 2 * time.Second

// SnapshotProvider captures the document at the moment a save actually
// runs. The provider is expected to take the editor lock itself, so the
// document is never held locked across the network call.
type SnapshotProvider func() (aggregates.Snapshot, int64, error)

// AutosavePipeline debounces edits into backend saves. It keeps a
// single timer: every schedule call replaces the previous one, so a
// burst of edits produces one save after the last edit settles. Failed
// saves leave the document dirty and write a crash-recovery draft; no
// retry is scheduled.
type AutosavePipeline struct {
	mu         sync.Mutex
	delay      time.Duration
	timer      *TaskTimer
	generation uint64
	closed     bool

	saveMu sync.Mutex

	provider ports.GraphBackend
	snapshot SnapshotProvider
	drafts   ports.DraftStore
	tracker  *versioning.Tracker
	logger   *zap.Logger
	onSave   func(err error)
	onDraft  func(revision int64)
}

// NewAutosavePipeline creates a pipeline around the given backend,
// snapshot provider and draft store.
func NewAutosavePipeline(
	backend ports.GraphBackend,
	snapshot SnapshotProvider,
	drafts ports.DraftStore,
	tracker *versioning.Tracker,
	delay time.Duration,
	logger *zap.Logger,
) *AutosavePipeline {
	if delay <= 0 {
		delay = DefaultAutosaveDelay
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AutosavePipeline{
		delay:    delay,
		timer:    NewTaskTimer(),
		provider: backend,
		snapshot: snapshot,
		drafts:   drafts,
		tracker:  tracker,
		logger:   logger,
	}
}

// OnSaveComplete registers a callback observing every save outcome,
// autosave and manual alike. The callback runs on the saving goroutine.
func (p *AutosavePipeline) OnSaveComplete(fn func(err error)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.onSave = fn
}

// OnDraftWritten registers a callback observing crash-recovery draft
// writes. The callback runs on the saving goroutine.
func (p *AutosavePipeline) OnDraftWritten(fn func(revision int64)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.onDraft = fn
}

// MarkDirty records that the document has mutated to the given
// revision. It never schedules a save by itself.
func (p *AutosavePipeline) MarkDirty(revision int64) {
	p.tracker.Advance(revision)
}

// Schedule (re)starts the debounce timer. When it fires, the snapshot
// is taken at fire time, so the save always persists the newest state.
func (p *AutosavePipeline) Schedule() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return
	}

	p.generation++
	gen := p.generation
	p.timer.Schedule(p.delay, func() { p.fire(gen) })
}

// SaveNow cancels any pending debounce and persists immediately.
func (p *AutosavePipeline) SaveNow(ctx context.Context) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return pkgerrors.NewUnavailableError("editor")
	}
	p.generation++
	p.timer.Cancel()
	p.mu.Unlock()

	return p.persist(ctx)
}

// State reports the document's save state.
func (p *AutosavePipeline) State() versioning.SaveState {
	return p.tracker.State()
}

// SetDelay changes the debounce window for subsequent schedules.
func (p *AutosavePipeline) SetDelay(delay time.Duration) {
	if delay <= 0 {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.delay = delay
}

// Close cancels the pending timer and renders late fires inert. An
// in-flight save is not interrupted; its outcome still lands in the
// tracker.
func (p *AutosavePipeline) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.closed = true
	p.generation++
	p.timer.Cancel()
}

// fire runs a scheduled save. A stale generation means the schedule was
// replaced, preempted by a manual save, or the pipeline was closed.
func (p *AutosavePipeline) fire(gen uint64) {
	p.mu.Lock()
	if gen != p.generation || p.closed {
		p.mu.Unlock()
		return
	}
	p.mu.Unlock()

	if err := p.persist(context.Background()); err != nil {
		p.logger.Warn("autosave failed, document stays dirty", zap.Error(err))
	}
}

// persist captures the document and pushes it to the backend. Saves are
// serialized among themselves so completions cannot interleave, but the
// document itself is only locked for the snapshot.
func (p *AutosavePipeline) persist(ctx context.Context) error {
	p.saveMu.Lock()
	defer p.saveMu.Unlock()

	snap, revision, err := p.snapshot()
	if err != nil {
		return pkgerrors.Wrap(err, "snapshot document")
	}

	start := time.Now()
	_, err = p.provider.SaveGraph(ctx, snap)
	if err != nil {
		p.writeDraft(ctx, snap, revision)
		p.notify(err)
		return err
	}

	p.tracker.MarkSynced(revision, time.Now())
	p.discardDraft(ctx)
	p.logger.Debug("graph saved",
		zap.Int64("revision", revision),
		zap.Duration("took", time.Since(start)),
	)
	p.notify(nil)
	return nil
}

// writeDraft keeps a local copy of the state that failed to save. Draft
// write failures are logged and swallowed; the save error matters more.
func (p *AutosavePipeline) writeDraft(ctx context.Context, snap aggregates.Snapshot, revision int64) {
	if p.drafts == nil {
		return
	}
	draft := &ports.Draft{
		Snapshot: snap,
		Revision: revision,
		SavedAt:  time.Now(),
	}
	if err := p.drafts.Save(ctx, draft); err != nil {
		p.logger.Error("draft write failed", zap.Error(err))
		return
	}
	p.logger.Info("draft written after failed save", zap.Int64("revision", revision))

	p.mu.Lock()
	fn := p.onDraft
	p.mu.Unlock()
	if fn != nil {
		fn(revision)
	}
}

// discardDraft drops the crash-recovery draft after a successful save.
func (p *AutosavePipeline) discardDraft(ctx context.Context) {
	if p.drafts == nil {
		return
	}
	if err := p.drafts.Discard(ctx); err != nil {
		p.logger.Warn("draft discard failed", zap.Error(err))
	}
}

func (p *AutosavePipeline) notify(err error) {
	p.mu.Lock()
	fn := p.onSave
	p.mu.Unlock()
	if fn != nil {
		fn(err)
	}
}
