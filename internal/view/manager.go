package view

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/starford/svgview/internal/event"
	"github.com/starford/svgview/internal/host"
	"github.com/starford/svgview/internal/resource"
)

// Manager is the registry of views of one kind.
type Manager[V View] struct {
	deps     Deps
	viewType string
	create   func(r resource.Resource, col host.ViewColumn) V
	revive   func(panel host.Panel, st State) V

	views     []V
	active    V
	hasActive bool
	subs      event.Stack
}

func newManager[V View](deps Deps, viewType string,
	create func(resource.Resource, host.ViewColumn) V,
	revive func(host.Panel, State) V,
) *Manager[V] {
	return &Manager[V]{
		deps:     deps.withDefaults(),
		viewType: viewType,
		create:   create,
		revive:   revive,
	}
}

// ViewType returns the panel view type this manager owns.
func (m *Manager[V]) ViewType() string { return m.viewType }

// View reveals and updates the view bound to r, or creates one in col.
func (m *Manager[V]) View(r resource.Resource, col host.ViewColumn) V {
	if v, ok := m.find(r); ok {
		v.Reveal(col)
		v.Update(r)
		return v
	}
	v := m.create(r, col)
	m.setActive(v)
	return m.register(v)
}

// DeserializeWebviewPanel rebuilds a view for a panel restored by the host.
// A state whose resource no longer exists still yields a live view.
func (m *Manager[V]) DeserializeWebviewPanel(panel host.Panel, raw json.RawMessage) error {
	st, err := ParseState(raw)
	if err != nil {
		panel.Dispose()
		return fmt.Errorf("view: revive %s panel %s: %w", m.viewType, panel.ID(), err)
	}
	v := m.revive(panel, st)
	m.register(v)
	m.deps.Logger.Info("view: revived panel",
		slog.String("view_type", m.viewType),
		slog.String("panel", panel.ID()),
		slog.String("resource", st.Resource.Path()))
	return nil
}

// Refresh re-renders every view, e.g. after a settings change.
func (m *Manager[V]) Refresh() {
	for _, v := range m.Views() {
		v.Refresh()
	}
}

// Views returns a snapshot of the registry in insertion order.
func (m *Manager[V]) Views() []V {
	out := make([]V, len(m.views))
	copy(out, m.views)
	return out
}

// Len returns the number of registered views.
func (m *Manager[V]) Len() int { return len(m.views) }

// Active returns the view whose panel last reported focus.
func (m *Manager[V]) Active() (V, bool) {
	return m.active, m.hasActive
}

// Dispose disposes every view and empties the registry.
func (m *Manager[V]) Dispose() {
	m.subs.DisposeAll()
	for _, v := range m.Views() {
		v.Dispose()
	}
	m.views = nil
	m.clearActive()
}

func (m *Manager[V]) find(r resource.Resource) (V, bool) {
	for _, v := range m.views {
		if v.MatchesResource(r) {
			return v, true
		}
	}
	var zero V
	return zero, false
}

func (m *Manager[V]) register(v V) V {
	m.views = append(m.views, v)

	v.OnDispose(func() {
		idx := m.indexOf(v)
		if idx == -1 {
			return
		}
		m.views = append(m.views[:idx:idx], m.views[idx+1:]...)
		if m.hasActive && same(m.active, v) {
			m.clearActive()
		}
	})

	v.OnDidChangeViewState(func(active bool) {
		if !active {
			if m.hasActive && same(m.active, v) {
				m.clearActive()
			}
			return
		}
		for _, other := range m.Views() {
			if !same(other, v) && other.MatchesResource(v.Resource()) {
				other.Dispose()
			}
		}
		m.setActive(v)
	})

	return v
}

func (m *Manager[V]) indexOf(v V) int {
	for i, x := range m.views {
		if same(x, v) {
			return i
		}
	}
	return -1
}

func (m *Manager[V]) setActive(v V) {
	m.active = v
	m.hasActive = true
}

func (m *Manager[V]) clearActive() {
	var zero V
	m.active = zero
	m.hasActive = false
}

func same[V View](a, b V) bool {
	return View(a) == View(b)
}
