package webview

import (
	"encoding/json"
	"sync"

	"github.com/starford/svgview/internal/event"
	"github.com/starford/svgview/internal/host"
	"github.com/starford/svgview/internal/sse"
)

// Panel is a host.Panel shown in a browser tab. Content changes are pushed
// to the tab over the panel's SSE topic.
type Panel struct {
	h        *Host
	id       string
	viewType string

	mu       sync.Mutex
	title    string
	html     string
	state    json.RawMessage
	column   host.ViewColumn
	active   bool
	disposed bool

	onDispose   event.Emitter[struct{}]
	onViewState event.Emitter[bool]
	onMessage   event.Emitter[host.Message]
}

var _ host.Panel = (*Panel)(nil)

// Update is the payload of an "update" event.
type Update struct {
	Title string `json:"title"`
	HTML  string `json:"html"`
}

// Info describes a live panel.
type Info struct {
	ID       string          `json:"id"`
	ViewType string          `json:"view_type"`
	Title    string          `json:"title"`
	Column   host.ViewColumn `json:"column"`
	Active   bool            `json:"active"`
	URL      string          `json:"url"`
	Clients  int             `json:"clients"`
}

func (p *Panel) ID() string       { return p.id }
func (p *Panel) ViewType() string { return p.viewType }

func (p *Panel) Title() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.title
}

// SetTitle changes the tab title.
func (p *Panel) SetTitle(title string) {
	p.mu.Lock()
	if p.disposed || p.title == title {
		p.mu.Unlock()
		return
	}
	p.title = title
	u := Update{Title: p.title, HTML: p.html}
	p.mu.Unlock()
	p.h.publish(p.id, "update", u)
}

func (p *Panel) HTML() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.html
}

// SetHTML replaces the page content.
func (p *Panel) SetHTML(html string) {
	p.mu.Lock()
	if p.disposed {
		p.mu.Unlock()
		return
	}
	p.html = html
	u := Update{Title: p.title, HTML: p.html}
	p.mu.Unlock()
	p.h.publish(p.id, "update", u)
}

// SetState records the view state and persists the panel.
func (p *Panel) SetState(state json.RawMessage) {
	p.mu.Lock()
	if p.disposed {
		p.mu.Unlock()
		return
	}
	p.state = append(json.RawMessage(nil), state...)
	p.mu.Unlock()
	p.h.persist(p)
}

// State returns the last recorded view state.
func (p *Panel) State() json.RawMessage {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

func (p *Panel) Column() host.ViewColumn {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.column
}

// Reveal asks the tab to take focus.
func (p *Panel) Reveal(col host.ViewColumn) {
	p.mu.Lock()
	if p.disposed {
		p.mu.Unlock()
		return
	}
	p.column = col
	p.mu.Unlock()
	p.h.publish(p.id, "reveal", map[string]host.ViewColumn{"column": col})
}

func (p *Panel) Active() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.active
}

// Dispose closes the panel. Its record is deleted unless the host is
// shutting down, so the panel revives on the next start.
func (p *Panel) Dispose() {
	p.mu.Lock()
	if p.disposed {
		p.mu.Unlock()
		return
	}
	p.disposed = true
	p.mu.Unlock()

	p.h.remove(p)
	p.onDispose.Fire(struct{}{})
	p.onDispose.Close()
	p.onViewState.Close()
	p.onMessage.Close()
}

// Disposed reports whether the panel was closed.
func (p *Panel) Disposed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.disposed
}

func (p *Panel) OnDidDispose(fn func()) event.Disposable {
	return p.onDispose.Subscribe(func(struct{}) { fn() })
}

func (p *Panel) OnDidChangeViewState(fn func(bool)) event.Disposable {
	return p.onViewState.Subscribe(fn)
}

func (p *Panel) OnDidReceiveMessage(fn func(host.Message)) event.Disposable {
	return p.onMessage.Subscribe(fn)
}

func (p *Panel) setActive(active bool) {
	p.mu.Lock()
	if p.disposed || p.active == active {
		p.mu.Unlock()
		return
	}
	p.active = active
	p.mu.Unlock()
	p.onViewState.Fire(active)
}

func (p *Panel) snapshot() Update {
	p.mu.Lock()
	defer p.mu.Unlock()
	return Update{Title: p.title, HTML: p.html}
}

func (p *Panel) info() Info {
	p.mu.Lock()
	defer p.mu.Unlock()
	return Info{
		ID:       p.id,
		ViewType: p.viewType,
		Title:    p.title,
		Column:   p.column,
		Active:   p.active,
		URL:      PanelPath(p.id),
	}
}

func (p *Panel) initialEvent() sse.Event {
	return sse.Event{Type: "update", Data: p.snapshot()}
}
