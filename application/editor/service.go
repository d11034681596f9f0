package editor

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"flowcanvas/application/ports"
	"flowcanvas/application/sagas"
	"flowcanvas/domain/core/aggregates"
	"flowcanvas/domain/core/entities"
	"flowcanvas/domain/core/valueobjects"
	"flowcanvas/domain/events"
	"flowcanvas/domain/versioning"
	pkgerrors "flowcanvas/pkg/errors"
	"flowcanvas/pkg/extensions"

	"go.uber.org/zap"
)

// validationCacheTTL bounds how long a validation report may be served
// from cache, in seconds. Reports are keyed by document revision, so a
// stale entry can only be hit for a revision that no longer changes.
const validationCacheTTL = 600

// Options tunes the editor's timers.
type Options struct {
	AutosaveDelay time.Duration
	UndoTTL       time.Duration
}

// DocumentView is the full read model of the open document.
type DocumentView struct {
	Name      string               `json:"name"`
	Graph     aggregates.Snapshot  `json:"graph"`
	SaveState versioning.SaveState `json:"save_state"`
	Selection []string             `json:"selection"`
}

// DeletionView reports a cascade deletion and its undo window.
type DeletionView struct {
	RemovedNode   aggregates.NodeSnapshot   `json:"removed_node"`
	RemovedEdges  []aggregates.EdgeSnapshot `json:"removed_edges"`
	UndoExpiresAt time.Time                 `json:"undo_expires_at"`
}

// RestoreView reports the outcome of an undo.
type RestoreView struct {
	RestoredNode  aggregates.NodeSnapshot `json:"restored_node"`
	RestoredEdges int                     `json:"restored_edges"`
	SkippedEdges  int                     `json:"skipped_edges"`
}

// LayoutView reports how many nodes an automatic layout actually moved.
type LayoutView struct {
	Direction  string `json:"direction"`
	MovedNodes int    `json:"moved_nodes"`
}

// EditorService owns the open document. Every document operation is
// serialized behind one mutex; network calls never run under it. The
// service glues the canvas to the undo store, the autosave pipeline,
// the draft store and the lifecycle hooks.
type EditorService struct {
	mu     sync.Mutex
	canvas *aggregates.Canvas
	closed bool

	undo     *UndoStore
	pipeline *AutosavePipeline
	tracker  *versioning.Tracker

	backend   ports.GraphBackend
	drafts    ports.DraftStore
	cache     ports.Cache
	publisher ports.EventPublisher
	layout    ports.LayoutFunc
	hooks     *extensions.HookManager
	logger    *zap.Logger
}

// NewEditorService wires the editor around an existing canvas.
func NewEditorService(
	canvas *aggregates.Canvas,
	backend ports.GraphBackend,
	drafts ports.DraftStore,
	cache ports.Cache,
	publisher ports.EventPublisher,
	layout ports.LayoutFunc,
	hooks *extensions.HookManager,
	opts Options,
	logger *zap.Logger,
) *EditorService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if hooks == nil {
		hooks = extensions.NewHookManager()
	}

	s := &EditorService{
		canvas:    canvas,
		backend:   backend,
		drafts:    drafts,
		cache:     cache,
		publisher: publisher,
		layout:    layout,
		hooks:     hooks,
		logger:    logger,
	}

	s.tracker = versioning.NewTracker(canvas.Revision())
	s.undo = NewUndoStore(opts.UndoTTL, logger)
	s.pipeline = NewAutosavePipeline(backend, s.captureSnapshot, drafts, s.tracker, opts.AutosaveDelay, logger)

	s.undo.OnExpire(func(rec *DeletionRecord) {
		s.fireHook(extensions.HookUndoExpired, extensions.HookData{
			Subject:   rec.Subgraph.Node.ID().String(),
			Operation: "undo_expired",
		})
	})
	s.pipeline.OnSaveComplete(func(err error) {
		if err != nil {
			s.fireHook(extensions.HookSaveFailed, extensions.HookData{Operation: "save"})
			return
		}
		s.fireHook(extensions.HookDocumentSaved, extensions.HookData{Operation: "save"})
	})
	s.pipeline.OnDraftWritten(func(revision int64) {
		s.fireHook(extensions.HookDraftWritten, extensions.HookData{
			Operation: "draft_write",
			Detail:    map[string]interface{}{"revision": revision},
		})
	})

	return s
}

// Document returns the full read model of the document.
func (s *EditorService) Document() (*DocumentView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap, err := s.canvas.Snapshot()
	if err != nil {
		return nil, err
	}

	selection := s.canvas.Selection()
	selected := make([]string, len(selection))
	for i, id := range selection {
		selected[i] = id.String()
	}

	return &DocumentView{
		Name:      s.canvas.Name(),
		Graph:     snap,
		SaveState: s.tracker.State(),
		Selection: selected,
	}, nil
}

// AddNode adds a node to the document.
func (s *EditorService) AddNode(ctx context.Context, nodeType valueobjects.NodeType, position valueobjects.Position, data json.RawMessage) (*aggregates.NodeSnapshot, error) {
	payload, err := valueobjects.DecodePayload(nodeType, data)
	if err != nil {
		return nil, err
	}

	var view aggregates.NodeSnapshot
	err = s.mutate(ctx, func(c *aggregates.Canvas) error {
		node, err := c.AddNode(aggregates.NodeSpec{
			Type:     nodeType,
			Position: position,
			Payload:  payload,
		})
		if err != nil {
			return err
		}
		view, err = aggregates.SnapshotNode(node)
		return err
	})
	if err != nil {
		return nil, err
	}
	return &view, nil
}

// RemoveNode cascade-deletes a node and arms the undo window.
func (s *EditorService) RemoveNode(ctx context.Context, nodeID valueobjects.NodeID) (*DeletionView, error) {
	var removed *aggregates.RemovedSubgraph
	var view DeletionView

	err := s.mutate(ctx, func(c *aggregates.Canvas) error {
		rec, err := c.RemoveNode(nodeID)
		if err != nil {
			return err
		}
		removed = rec

		view.RemovedNode, err = aggregates.SnapshotNode(rec.Node)
		if err != nil {
			return err
		}
		view.RemovedEdges = make([]aggregates.EdgeSnapshot, len(rec.Edges))
		for i, edge := range rec.Edges {
			view.RemovedEdges[i] = aggregates.SnapshotEdge(edge)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	view.UndoExpiresAt = s.undo.Arm(&DeletionRecord{
		Subgraph:  removed,
		DeletedAt: time.Now(),
	})
	s.fireHook(extensions.HookUndoArmed, extensions.HookData{
		Subject:   nodeID.String(),
		Operation: "undo_armed",
	})
	return &view, nil
}

// RestoreDeletion re-inserts the pending deletion. The record is
// consumed by the attempt: a conflicting document state surfaces as an
// error and does not re-arm the window.
func (s *EditorService) RestoreDeletion(ctx context.Context) (*RestoreView, error) {
	rec, ok := s.undo.Restore()
	if !ok {
		return nil, pkgerrors.NewNotFoundError("pending deletion")
	}

	var view RestoreView
	err := s.mutate(ctx, func(c *aggregates.Canvas) error {
		if err := c.RestoreSubgraph(rec.Subgraph); err != nil {
			return err
		}

		view.RestoredNode, _ = aggregates.SnapshotNode(rec.Subgraph.Node)
		for _, edge := range rec.Subgraph.Edges {
			if _, err := c.GetEdge(edge.ID()); err == nil {
				view.RestoredEdges++
			} else {
				view.SkippedEdges++
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.fireHook(extensions.HookUndoRestored, extensions.HookData{
		Subject:   rec.Subgraph.Node.ID().String(),
		Operation: "undo_restored",
	})
	return &view, nil
}

// PendingDeletion describes the restorable deletion, if any.
func (s *EditorService) PendingDeletion() PendingDeletion {
	return s.undo.Pending()
}

// AddEdge connects two nodes.
func (s *EditorService) AddEdge(ctx context.Context, conn aggregates.Connection) (*aggregates.EdgeSnapshot, error) {
	var view aggregates.EdgeSnapshot
	err := s.mutate(ctx, func(c *aggregates.Canvas) error {
		edge, err := c.Connect(conn)
		if err != nil {
			return err
		}
		view = aggregates.SnapshotEdge(edge)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &view, nil
}

// RemoveEdge removes an edge; removing an absent edge is a no-op.
func (s *EditorService) RemoveEdge(ctx context.Context, edgeID valueobjects.EdgeID) (bool, error) {
	removed := false
	err := s.mutate(ctx, func(c *aggregates.Canvas) error {
		removed = c.RemoveEdge(edgeID)
		return nil
	})
	return removed, err
}

// RewireEdge moves one endpoint of an existing edge to another node.
func (s *EditorService) RewireEdge(ctx context.Context, edgeID valueobjects.EdgeID, endpoint entities.Endpoint, newNodeID valueobjects.NodeID) (*aggregates.EdgeSnapshot, error) {
	var view aggregates.EdgeSnapshot
	err := s.mutate(ctx, func(c *aggregates.Canvas) error {
		if err := c.RewireEdge(edgeID, endpoint, newNodeID); err != nil {
			return err
		}
		edge, err := c.GetEdge(edgeID)
		if err != nil {
			return err
		}
		view = aggregates.SnapshotEdge(edge)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &view, nil
}

// UpdateNodeField patches a single payload field on a node.
func (s *EditorService) UpdateNodeField(ctx context.Context, nodeID valueobjects.NodeID, field string, value json.RawMessage) (*aggregates.NodeSnapshot, error) {
	var view aggregates.NodeSnapshot
	err := s.mutate(ctx, func(c *aggregates.Canvas) error {
		if err := c.UpdateNodeField(nodeID, field, value); err != nil {
			return err
		}
		node, err := c.GetNode(nodeID)
		if err != nil {
			return err
		}
		view, err = aggregates.SnapshotNode(node)
		return err
	})
	if err != nil {
		return nil, err
	}
	return &view, nil
}

// MoveNode repositions a node. Moving a node onto its current position
// changes nothing and schedules nothing.
func (s *EditorService) MoveNode(ctx context.Context, nodeID valueobjects.NodeID, position valueobjects.Position) error {
	return s.mutate(ctx, func(c *aggregates.Canvas) error {
		return c.MoveNode(nodeID, position)
	})
}

// ApplyLayout runs the configured layout function and applies the
// positions it returns as a single document mutation.
func (s *EditorService) ApplyLayout(ctx context.Context, direction ports.LayoutDirection) (*LayoutView, error) {
	if s.layout == nil {
		return nil, pkgerrors.NewValidationError("no layout function is configured").
			WithCode("LAYOUT_UNAVAILABLE")
	}

	view := LayoutView{Direction: string(direction)}
	err := s.mutate(ctx, func(c *aggregates.Canvas) error {
		nodes := c.Nodes()
		layoutNodes := make([]ports.LayoutNode, len(nodes))
		for i, node := range nodes {
			layoutNodes[i] = ports.LayoutNode{
				ID:       node.ID(),
				Type:     node.Type(),
				Position: node.Position(),
			}
		}
		edges := c.Edges()
		layoutEdges := make([]ports.LayoutEdge, len(edges))
		for i, edge := range edges {
			layoutEdges[i] = ports.LayoutEdge{Source: edge.Source(), Target: edge.Target()}
		}

		positions, err := s.layout(layoutNodes, layoutEdges, direction)
		if err != nil {
			return pkgerrors.Wrap(err, "compute layout")
		}

		moved, err := c.MoveNodes(positions)
		if err != nil {
			return err
		}
		view.MovedNodes = moved
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &view, nil
}

// Select marks a node as selected. Selection is view bookkeeping: it
// does not dirty the document or schedule a save.
func (s *EditorService) Select(nodeID valueobjects.NodeID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return errEditorClosed()
	}
	return s.canvas.Select(nodeID)
}

// Deselect removes a node from the selection.
func (s *EditorService) Deselect(nodeID valueobjects.NodeID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.canvas.Deselect(nodeID)
}

// ClearSelection empties the selection.
func (s *EditorService) ClearSelection() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.canvas.ClearSelection()
}

// SaveNow persists the document immediately, preempting any pending
// autosave.
func (s *EditorService) SaveNow(ctx context.Context) (versioning.SaveState, error) {
	err := s.pipeline.SaveNow(ctx)
	return s.tracker.State(), err
}

// SaveState reports how the document relates to the backend's copy.
func (s *EditorService) SaveState() versioning.SaveState {
	return s.tracker.State()
}

// Load replaces the document with the backend's copy. The previous
// in-memory state is restored if the flow fails after fetching.
func (s *EditorService) Load(ctx context.Context) (*DocumentView, error) {
	type loadFlow struct {
		previous aggregates.Snapshot
		remote   aggregates.Snapshot
	}

	saga := sagas.NewSaga("load_document", s.logger)
	saga.AddStep(sagas.SagaStep{
		Name: "capture_local_document",
		Execute: func(ctx context.Context, data interface{}) (interface{}, error) {
			flow := data.(*loadFlow)
			snap, _, err := s.captureSnapshot()
			if err != nil {
				return nil, err
			}
			flow.previous = snap
			return flow, nil
		},
		Compensate: func(ctx context.Context, data interface{}) error {
			flow := data.(*loadFlow)
			return s.importSnapshot(ctx, flow.previous)
		},
	})
	saga.AddStep(sagas.SagaStep{
		Name: "fetch_remote_graph",
		Execute: func(ctx context.Context, data interface{}) (interface{}, error) {
			flow := data.(*loadFlow)
			snap, err := s.backend.LoadGraph(ctx)
			if err != nil {
				return nil, err
			}
			flow.remote = snap
			return flow, nil
		},
	})
	saga.AddStep(sagas.SagaStep{
		Name: "import_document",
		Execute: func(ctx context.Context, data interface{}) (interface{}, error) {
			flow := data.(*loadFlow)
			if err := s.importSnapshot(ctx, flow.remote); err != nil {
				return nil, err
			}
			s.alignAfterReplace(ctx)
			return flow, nil
		},
	})

	if _, err := saga.Execute(ctx, &loadFlow{}); err != nil {
		return nil, err
	}

	s.fireHook(extensions.HookDocumentLoaded, extensions.HookData{Operation: "load"})
	return s.Document()
}

// Validate asks the backend to validate the current document. Reports
// are cached by document revision; any mutation moves the revision and
// so misses the cache.
func (s *EditorService) Validate(ctx context.Context) (*ports.ValidationReport, error) {
	snap, revision, err := s.captureSnapshot()
	if err != nil {
		return nil, err
	}

	key := fmt.Sprintf("validation:revision:%d", revision)
	if s.cache != nil {
		if cached, ok := s.cache.Get(ctx, key); ok {
			if report, ok := cached.(*ports.ValidationReport); ok {
				s.logger.Debug("validation report served from cache", zap.Int64("revision", revision))
				s.fireHook(extensions.HookCacheHit, extensions.HookData{Subject: key})
				return report, nil
			}
		}
		s.fireHook(extensions.HookCacheMiss, extensions.HookData{Subject: key})
	}

	report, err := s.backend.ValidateGraph(ctx, snap)
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		if err := s.cache.Set(ctx, key, report, validationCacheTTL); err != nil {
			s.logger.Warn("validation report not cached", zap.Error(err))
		}
	}
	return report, nil
}

// ClearAll clears the document locally and on the backend. If the
// remote clear succeeds but a later step fails, the compensation
// re-saves the captured document.
func (s *EditorService) ClearAll(ctx context.Context) error {
	type clearFlow struct {
		previous aggregates.Snapshot
	}

	saga := sagas.NewSaga("clear_document", s.logger)
	saga.AddStep(sagas.SagaStep{
		Name: "capture_local_document",
		Execute: func(ctx context.Context, data interface{}) (interface{}, error) {
			flow := data.(*clearFlow)
			snap, _, err := s.captureSnapshot()
			if err != nil {
				return nil, err
			}
			flow.previous = snap
			return flow, nil
		},
	})
	saga.AddStep(sagas.SagaStep{
		Name: "clear_remote_graph",
		Execute: func(ctx context.Context, data interface{}) (interface{}, error) {
			if err := s.backend.ClearGraph(ctx); err != nil {
				return nil, err
			}
			return data, nil
		},
		Compensate: func(ctx context.Context, data interface{}) error {
			flow := data.(*clearFlow)
			_, err := s.backend.SaveGraph(ctx, flow.previous)
			return err
		},
	})
	saga.AddStep(sagas.SagaStep{
		Name: "reset_local_document",
		Execute: func(ctx context.Context, data interface{}) (interface{}, error) {
			s.resetLocal(ctx)
			s.alignAfterReplace(ctx)
			return data, nil
		},
	})

	if _, err := saga.Execute(ctx, &clearFlow{}); err != nil {
		return err
	}

	s.fireHook(extensions.HookDocumentCleared, extensions.HookData{Operation: "clear"})
	return nil
}

// DraftInfo describes the crash-recovery draft, if one exists.
func (s *EditorService) DraftInfo(ctx context.Context) (*ports.DraftInfo, error) {
	if s.drafts == nil {
		return &ports.DraftInfo{}, nil
	}
	return s.drafts.Info(ctx)
}

// RestoreDraft replaces the document with the stored draft. The
// restored state is dirty by definition: the draft only exists because
// a save failed.
func (s *EditorService) RestoreDraft(ctx context.Context) (*DocumentView, error) {
	if s.drafts == nil {
		return nil, pkgerrors.NewNotFoundError("draft")
	}

	draft, err := s.drafts.Load(ctx)
	if err != nil {
		return nil, err
	}

	if err := s.importSnapshot(ctx, draft.Snapshot); err != nil {
		return nil, err
	}

	s.mu.Lock()
	revision := s.canvas.Revision()
	s.mu.Unlock()

	s.pipeline.MarkDirty(revision)
	s.pipeline.Schedule()
	s.fireHook(extensions.HookDraftRestored, extensions.HookData{Operation: "draft_restore"})

	return s.Document()
}

// DiscardDraft drops the crash-recovery draft.
func (s *EditorService) DiscardDraft(ctx context.Context) error {
	if s.drafts == nil {
		return nil
	}
	if err := s.drafts.Discard(ctx); err != nil {
		return err
	}
	s.fireHook(extensions.HookDraftDiscarded, extensions.HookData{Operation: "draft_discard"})
	return nil
}

// SetAutosaveDelay changes the debounce window for subsequent edits.
func (s *EditorService) SetAutosaveDelay(delay time.Duration) {
	s.pipeline.SetDelay(delay)
}

// SetUndoTTL changes the expiry window for subsequent deletions.
func (s *EditorService) SetUndoTTL(ttl time.Duration) {
	s.undo.SetTTL(ttl)
}

// Close shuts the editor down: timers are cancelled and late callbacks
// become inert. In-flight backend calls are not aborted; their
// completions are dropped by the closed pipeline.
func (s *EditorService) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.mu.Unlock()

	s.undo.Close()
	s.pipeline.Close()
	s.logger.Debug("editor closed")
}

// mutate runs one document operation under the editor lock. When the
// operation moved the revision, the drained events are published and an
// autosave is scheduled.
func (s *EditorService) mutate(ctx context.Context, op func(*aggregates.Canvas) error) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return errEditorClosed()
	}

	before := s.canvas.Revision()
	if err := op(s.canvas); err != nil {
		s.mu.Unlock()
		return err
	}

	revision := s.canvas.Revision()
	drained := s.drainEventsLocked()
	s.mu.Unlock()

	if revision != before {
		s.pipeline.MarkDirty(revision)
		s.pipeline.Schedule()
		s.publish(ctx, drained)
		s.fireHook(extensions.HookDocumentMutated, extensions.HookData{
			Operation: "mutate",
			Detail:    map[string]interface{}{"revision": revision},
		})
	}
	return nil
}

// captureSnapshot exports the document under the editor lock. It backs
// the autosave pipeline's snapshot-at-fire-time contract.
func (s *EditorService) captureSnapshot() (aggregates.Snapshot, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap, err := s.canvas.Snapshot()
	if err != nil {
		return aggregates.Snapshot{}, 0, err
	}
	return snap, s.canvas.Revision(), nil
}

// importSnapshot swaps the snapshot in as the whole document and
// publishes the resulting events.
func (s *EditorService) importSnapshot(ctx context.Context, snap aggregates.Snapshot) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return errEditorClosed()
	}
	if err := s.canvas.ImportSnapshot(snap); err != nil {
		s.mu.Unlock()
		return err
	}
	drained := s.drainEventsLocked()
	s.mu.Unlock()

	s.publish(ctx, drained)
	return nil
}

// resetLocal clears the canvas and publishes the resulting events.
func (s *EditorService) resetLocal(ctx context.Context) {
	s.mu.Lock()
	s.canvas.Reset()
	drained := s.drainEventsLocked()
	s.mu.Unlock()

	s.publish(ctx, drained)
}

// alignAfterReplace re-anchors the save state after the document was
// replaced wholesale: the new state counts as synced, the pending
// deletion no longer refers to this document, and the draft is stale.
func (s *EditorService) alignAfterReplace(ctx context.Context) {
	s.mu.Lock()
	revision := s.canvas.Revision()
	s.mu.Unlock()

	s.tracker.Reset(revision, time.Now())
	s.undo.Disarm()
	if s.drafts != nil {
		if err := s.drafts.Discard(ctx); err != nil {
			s.logger.Warn("stale draft not discarded", zap.Error(err))
		}
	}
}

func (s *EditorService) drainEventsLocked() []events.DomainEvent {
	drained := s.canvas.GetUncommittedEvents()
	s.canvas.MarkEventsAsCommitted()
	return drained
}

func (s *EditorService) publish(ctx context.Context, drained []events.DomainEvent) {
	if s.publisher == nil || len(drained) == 0 {
		return
	}
	if err := s.publisher.PublishBatch(ctx, drained); err != nil {
		s.logger.Warn("event publish failed", zap.Error(err))
	}
}

func (s *EditorService) fireHook(point extensions.HookPoint, data extensions.HookData) {
	s.hooks.ExecuteAsync(context.Background(), point, data)
}

func errEditorClosed() error {
	return pkgerrors.NewUnavailableError("editor").WithCode("EDITOR_CLOSED")
}
