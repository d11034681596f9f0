package editor_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"flowcanvas/application/editor"
	"flowcanvas/application/ports"
	"flowcanvas/domain/core/aggregates"
	"flowcanvas/domain/core/valueobjects"
	pkgerrors "flowcanvas/pkg/errors"
	"flowcanvas/pkg/extensions"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// memBackend is an in-memory GraphBackend with scriptable failures.
type memBackend struct {
	mu          sync.Mutex
	saved       []aggregates.Snapshot
	saveErr     error
	loadSnap    aggregates.Snapshot
	loadErr     error
	clears      int
	clearErr    error
	validations int
	report      *ports.ValidationReport
	validateErr error
}

func (b *memBackend) SaveGraph(ctx context.Context, snap aggregates.Snapshot) (*ports.SaveResult, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.saveErr != nil {
		return nil, b.saveErr
	}
	b.saved = append(b.saved, snap)
	return &ports.SaveResult{Message: "Graph updated successfully"}, nil
}

func (b *memBackend) LoadGraph(ctx context.Context) (aggregates.Snapshot, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.loadErr != nil {
		return aggregates.Snapshot{}, b.loadErr
	}
	return b.loadSnap, nil
}

func (b *memBackend) ClearGraph(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.clearErr != nil {
		return b.clearErr
	}
	b.clears++
	return nil
}

func (b *memBackend) ValidateGraph(ctx context.Context, snap aggregates.Snapshot) (*ports.ValidationReport, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.validations++
	if b.validateErr != nil {
		return nil, b.validateErr
	}
	if b.report != nil {
		return b.report, nil
	}
	return &ports.ValidationReport{IsValid: true}, nil
}

func (b *memBackend) Execute(ctx context.Context, req ports.ExecutionRequest) (*ports.ExecutionResult, error) {
	return &ports.ExecutionResult{Status: ports.ExecutionCompleted}, nil
}

func (b *memBackend) failSaves(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.saveErr = err
}

func (b *memBackend) saveCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.saved)
}

func (b *memBackend) lastSaved(t *testing.T) aggregates.Snapshot {
	t.Helper()
	b.mu.Lock()
	defer b.mu.Unlock()
	require.NotEmpty(t, b.saved)
	return b.saved[len(b.saved)-1]
}

func (b *memBackend) validationCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.validations
}

// memDrafts is an in-memory DraftStore.
type memDrafts struct {
	mu      sync.Mutex
	draft   *ports.Draft
	saveErr error
}

func (d *memDrafts) Save(ctx context.Context, draft *ports.Draft) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.saveErr != nil {
		return d.saveErr
	}
	stored := *draft
	d.draft = &stored
	return nil
}

func (d *memDrafts) Load(ctx context.Context) (*ports.Draft, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.draft == nil {
		return nil, pkgerrors.NewNotFoundError("draft")
	}
	loaded := *d.draft
	return &loaded, nil
}

func (d *memDrafts) Discard(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.draft = nil
	return nil
}

func (d *memDrafts) Info(ctx context.Context) (*ports.DraftInfo, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.draft == nil {
		return &ports.DraftInfo{}, nil
	}
	return &ports.DraftInfo{
		Exists:   true,
		Revision: d.draft.Revision,
		SavedAt:  d.draft.SavedAt,
	}, nil
}

func (d *memDrafts) stored() *ports.Draft {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.draft
}

// memCache is a scripted ports.Cache that counts traffic.
type memCache struct {
	mu      sync.Mutex
	entries map[string]interface{}
	hits    int
	sets    int
}

func newMemCache() *memCache {
	return &memCache{entries: make(map[string]interface{})}
}

func (c *memCache) Get(ctx context.Context, key string) (interface{}, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	value, ok := c.entries[key]
	if ok {
		c.hits++
	}
	return value, ok
}

func (c *memCache) Set(ctx context.Context, key string, value interface{}, ttl int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = value
	c.sets++
	return nil
}

func (c *memCache) Delete(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
	return nil
}

func (c *memCache) Clear(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]interface{})
	return nil
}

// gridLayout stacks nodes along the requested axis, spaced evenly.
func gridLayout(nodes []ports.LayoutNode, edges []ports.LayoutEdge, direction ports.LayoutDirection) (map[valueobjects.NodeID]valueobjects.Position, error) {
	out := make(map[valueobjects.NodeID]valueobjects.Position, len(nodes))
	for i, node := range nodes {
		x, y := float64(i*200), 0.0
		if direction == ports.LayoutTopToBottom {
			x, y = 0.0, float64(i*200)
		}
		position, err := valueobjects.NewPosition(x, y)
		if err != nil {
			return nil, err
		}
		out[node.ID] = position
	}
	return out, nil
}

// fixture wires an editor over in-memory collaborators.
type fixture struct {
	svc     *editor.EditorService
	backend *memBackend
	drafts  *memDrafts
	cache   *memCache
	hooks   *extensions.HookManager
}

func newFixture(t *testing.T, opts editor.Options) *fixture {
	t.Helper()

	f := &fixture{
		backend: &memBackend{},
		drafts:  &memDrafts{},
		cache:   newMemCache(),
		hooks:   extensions.NewHookManager(),
	}
	canvas := aggregates.NewCanvas("default", nil)
	f.svc = editor.NewEditorService(
		canvas, f.backend, f.drafts, f.cache, nil, gridLayout, f.hooks,
		opts, zap.NewNop(),
	)
	t.Cleanup(f.svc.Close)
	return f
}

// observe registers a hook feeding a buffered channel, so tests can
// wait on lifecycle notifications that run on their own goroutines.
func (f *fixture) observe(point extensions.HookPoint) <-chan extensions.HookData {
	ch := make(chan extensions.HookData, 8)
	f.hooks.Register(point, func(ctx context.Context, data extensions.HookData) error {
		ch <- data
		return nil
	})
	return ch
}

func waitHook(t *testing.T, ch <-chan extensions.HookData) extensions.HookData {
	t.Helper()
	select {
	case data := <-ch:
		return data
	case <-time.After(2 * time.Second):
		t.Fatal("hook never fired")
		return extensions.HookData{}
	}
}

func (f *fixture) addNode(t *testing.T, nodeType valueobjects.NodeType, data string) aggregates.NodeSnapshot {
	t.Helper()
	view, err := f.svc.AddNode(context.Background(), nodeType, testPosition(t, 0, 0), []byte(data))
	require.NoError(t, err)
	return *view
}

func (f *fixture) addAgent(t *testing.T, name string) aggregates.NodeSnapshot {
	t.Helper()
	return f.addNode(t, valueobjects.NodeTypeAgent, `{"name":"`+name+`","prompt":"Do the work."}`)
}

func (f *fixture) addTools(t *testing.T, name string) aggregates.NodeSnapshot {
	t.Helper()
	return f.addNode(t, valueobjects.NodeTypeTools, `{"name":"`+name+`","selectedTools":["web"]}`)
}

func (f *fixture) connect(t *testing.T, source, target aggregates.NodeSnapshot) aggregates.EdgeSnapshot {
	t.Helper()
	view, err := f.svc.AddEdge(context.Background(), aggregates.Connection{
		Source:       nodeID(t, source.ID),
		Target:       nodeID(t, target.ID),
		SourceHandle: valueobjects.HandleOut,
		TargetHandle: valueobjects.HandleIn,
	})
	require.NoError(t, err)
	return *view
}

func testPosition(t *testing.T, x, y float64) valueobjects.Position {
	t.Helper()
	position, err := valueobjects.NewPosition(x, y)
	require.NoError(t, err)
	return position
}

func nodeID(t *testing.T, raw string) valueobjects.NodeID {
	t.Helper()
	id, err := valueobjects.ParseNodeID(raw)
	require.NoError(t, err)
	return id
}

func edgeID(t *testing.T, raw string) valueobjects.EdgeID {
	t.Helper()
	id, err := valueobjects.ParseEdgeID(raw)
	require.NoError(t, err)
	return id
}

// removedSubgraph builds a real deletion record for undo store tests.
func removedSubgraph(t *testing.T) *aggregates.RemovedSubgraph {
	t.Helper()

	canvas := aggregates.NewCanvas("scratch", nil)
	agent, err := canvas.AddNode(aggregates.NodeSpec{
		Type:     valueobjects.NodeTypeAgent,
		Position: testPosition(t, 0, 0),
		Payload:  valueobjects.AgentPayload{Name: "Agent", Prompt: "Do the work."},
	})
	require.NoError(t, err)
	tools, err := canvas.AddNode(aggregates.NodeSpec{
		Type:     valueobjects.NodeTypeTools,
		Position: testPosition(t, 200, 0),
		Payload:  valueobjects.ToolsPayload{Name: "Tools", SelectedTools: []valueobjects.ToolID{"web"}},
	})
	require.NoError(t, err)
	_, err = canvas.Connect(aggregates.Connection{
		Source:       agent.ID(),
		Target:       tools.ID(),
		SourceHandle: valueobjects.HandleOut,
		TargetHandle: valueobjects.HandleIn,
	})
	require.NoError(t, err)

	removed, err := canvas.RemoveNode(agent.ID())
	require.NoError(t, err)
	return removed
}
