package testutil

import (
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"sync"

	"github.com/starford/svgview/internal/event"
	"github.com/starford/svgview/internal/host"
	"github.com/starford/svgview/internal/resource"
)

// FakeWorkspace is an in-memory host.Workspace. Fire* helpers must be
// called on the view loop, like real host events.
type FakeWorkspace struct {
	mu        sync.Mutex
	docs      map[string]string
	fails     map[string]error
	gates     map[string]chan struct{}
	loads     []string
	completed int
	active    resource.Resource

	changed       event.Emitter[host.Document]
	activeChanged event.Emitter[host.Document]
}

var _ host.Workspace = (*FakeWorkspace)(nil)

// NewFakeWorkspace returns an empty workspace.
func NewFakeWorkspace() *FakeWorkspace {
	return &FakeWorkspace{
		docs:  make(map[string]string),
		fails: make(map[string]error),
		gates: make(map[string]chan struct{}),
	}
}

// Put stores text for r.
func (w *FakeWorkspace) Put(r resource.Resource, text string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.docs[r.Path()] = text
}

// Remove deletes r.
func (w *FakeWorkspace) Remove(r resource.Resource) {
	w.mu.Lock()
	defer w.mu.Unlock()
	delete(w.docs, r.Path())
}

// Fail makes loads of r return err.
func (w *FakeWorkspace) Fail(r resource.Resource, err error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.fails[r.Path()] = err
}

// Gate blocks the next load of r until the returned release func is
// called. The document is read when the load starts.
func (w *FakeWorkspace) Gate(r resource.Resource) (release func()) {
	ch := make(chan struct{})
	w.mu.Lock()
	w.gates[r.Path()] = ch
	w.mu.Unlock()
	var once sync.Once
	return func() { once.Do(func() { close(ch) }) }
}

// Loads returns the path of every load started, in order.
func (w *FakeWorkspace) Loads() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]string, len(w.loads))
	copy(out, w.loads)
	return out
}

// LoadCount returns how many loads of r were started.
func (w *FakeWorkspace) LoadCount(r resource.Resource) int {
	n := 0
	for _, p := range w.Loads() {
		if p == r.Path() {
			n++
		}
	}
	return n
}

// Completed returns how many loads have returned.
func (w *FakeWorkspace) Completed() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.completed
}

// OpenTextDocument implements host.Workspace.
func (w *FakeWorkspace) OpenTextDocument(ctx context.Context, r resource.Resource) (host.Document, error) {
	w.mu.Lock()
	w.loads = append(w.loads, r.Path())
	gate := w.gates[r.Path()]
	delete(w.gates, r.Path())
	doc, err := w.document(r)
	w.mu.Unlock()

	defer func() {
		w.mu.Lock()
		w.completed++
		w.mu.Unlock()
	}()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return host.Document{}, ctx.Err()
		}
	}
	return doc, err
}

func (w *FakeWorkspace) document(r resource.Resource) (host.Document, error) {
	if err := w.fails[r.Path()]; err != nil {
		return host.Document{}, err
	}
	text, ok := w.docs[r.Path()]
	if !ok {
		return host.Document{}, fmt.Errorf("open %s: %w", r.Path(), fs.ErrNotExist)
	}
	return host.Document{Resource: r, Text: text}, nil
}

// ActiveEditor implements host.Workspace.
func (w *FakeWorkspace) ActiveEditor() (resource.Resource, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.active, !w.active.IsZero()
}

// OnDidChangeTextDocument implements host.Workspace.
func (w *FakeWorkspace) OnDidChangeTextDocument(fn func(host.Document)) event.Disposable {
	return w.changed.Subscribe(fn)
}

// OnDidChangeActiveEditor implements host.Workspace.
func (w *FakeWorkspace) OnDidChangeActiveEditor(fn func(host.Document)) event.Disposable {
	return w.activeChanged.Subscribe(fn)
}

// FireChange reports an edit of r with its current text.
func (w *FakeWorkspace) FireChange(r resource.Resource) {
	w.mu.Lock()
	text := w.docs[r.Path()]
	w.mu.Unlock()
	w.changed.Fire(host.Document{Resource: r, Text: text, Dirty: true})
}

// FireActive makes r the active editor.
func (w *FakeWorkspace) FireActive(r resource.Resource) {
	w.mu.Lock()
	w.active = r
	text := w.docs[r.Path()]
	w.mu.Unlock()
	w.activeChanged.Fire(host.Document{Resource: r, Text: text})
}

// SetActive changes the active editor without firing an event.
func (w *FakeWorkspace) SetActive(r resource.Resource) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.active = r
}

// FakePanelHost creates FakePanels.
type FakePanelHost struct {
	mu     sync.Mutex
	panels []*FakePanel
}

var _ host.PanelHost = (*FakePanelHost)(nil)

// CreatePanel implements host.PanelHost.
func (h *FakePanelHost) CreatePanel(viewType, title string, col host.ViewColumn) host.Panel {
	h.mu.Lock()
	defer h.mu.Unlock()
	p := NewFakePanel(fmt.Sprintf("panel-%d", len(h.panels)+1), viewType, title, col)
	h.panels = append(h.panels, p)
	return p
}

// Panels returns every panel created so far.
func (h *FakePanelHost) Panels() []*FakePanel {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]*FakePanel, len(h.panels))
	copy(out, h.panels)
	return out
}

// FakePanel is an in-memory host.Panel that records what it was sent.
type FakePanel struct {
	id       string
	viewType string

	mu        sync.Mutex
	title     string
	html      string
	htmlSets  int
	state     json.RawMessage
	column    host.ViewColumn
	reveals   int
	active    bool
	disposed  bool
	onDispose event.Emitter[struct{}]
	onState   event.Emitter[bool]
	onMessage event.Emitter[host.Message]
}

var _ host.Panel = (*FakePanel)(nil)

// NewFakePanel returns a live panel.
func NewFakePanel(id, viewType, title string, col host.ViewColumn) *FakePanel {
	return &FakePanel{id: id, viewType: viewType, title: title, column: col}
}

func (p *FakePanel) ID() string       { return p.id }
func (p *FakePanel) ViewType() string { return p.viewType }

func (p *FakePanel) Title() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.title
}

func (p *FakePanel) SetTitle(title string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.title = title
}

func (p *FakePanel) HTML() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.html
}

func (p *FakePanel) SetHTML(html string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.html = html
	p.htmlSets++
}

// HTMLCount returns how many times content was set.
func (p *FakePanel) HTMLCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.htmlSets
}

func (p *FakePanel) SetState(state json.RawMessage) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.state = append(json.RawMessage(nil), state...)
}

// SavedState returns the last state recorded by the view.
func (p *FakePanel) SavedState() json.RawMessage {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

func (p *FakePanel) Column() host.ViewColumn {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.column
}

func (p *FakePanel) Reveal(col host.ViewColumn) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.column = col
	p.reveals++
}

// RevealCount returns how many times the panel was revealed.
func (p *FakePanel) RevealCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.reveals
}

func (p *FakePanel) Active() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.active
}

// Dispose closes the panel and fires OnDidDispose once.
func (p *FakePanel) Dispose() {
	p.mu.Lock()
	if p.disposed {
		p.mu.Unlock()
		return
	}
	p.disposed = true
	p.mu.Unlock()
	p.onDispose.Fire(struct{}{})
}

// Disposed reports whether the panel was closed.
func (p *FakePanel) Disposed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.disposed
}

func (p *FakePanel) OnDidDispose(fn func()) event.Disposable {
	return p.onDispose.Subscribe(func(struct{}) { fn() })
}

func (p *FakePanel) OnDidChangeViewState(fn func(bool)) event.Disposable {
	return p.onState.Subscribe(fn)
}

func (p *FakePanel) OnDidReceiveMessage(fn func(host.Message)) event.Disposable {
	return p.onMessage.Subscribe(fn)
}

// Focus simulates the user focusing (or leaving) the panel.
func (p *FakePanel) Focus(active bool) {
	p.mu.Lock()
	p.active = active
	p.mu.Unlock()
	p.onState.Fire(active)
}

// Send simulates a message posted by the page.
func (p *FakePanel) Send(command string, body any) error {
	raw, err := json.Marshal(body)
	if err != nil {
		return err
	}
	p.onMessage.Fire(host.Message{Command: command, Body: raw})
	return nil
}
