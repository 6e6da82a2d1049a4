// Package view implements live panels bound to SVG documents and the
// managers that track them.
//
// Every method of View and Manager must run on the view loop. Document
// loads run on their own goroutines and post their results back.
package view

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"time"

	"github.com/starford/svgview/internal/apperr"
	"github.com/starford/svgview/internal/clock"
	"github.com/starford/svgview/internal/event"
	"github.com/starford/svgview/internal/host"
	"github.com/starford/svgview/internal/loop"
	"github.com/starford/svgview/internal/render"
	"github.com/starford/svgview/internal/resource"
	"github.com/starford/svgview/internal/settings"
	"github.com/starford/svgview/internal/svgdoc"
)

// DebounceWindow is how long same-resource refreshes are coalesced.
const DebounceWindow = 300 * time.Millisecond

const loadTimeout = 30 * time.Second

// Panel view types.
const (
	PreviewViewType = "svg.preview"
	ExportViewType  = "svg.export"
)

// Deps are the collaborators shared by views and managers.
type Deps struct {
	Workspace host.Workspace
	Panels    host.PanelHost
	Settings  settings.Source
	Notifier  host.Notifier
	Clock     clock.Clock
	Loop      loop.Dispatcher
	Logger    *slog.Logger
}

func (d Deps) withDefaults() Deps {
	if d.Clock == nil {
		d.Clock = clock.Real{}
	}
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	return d
}

// View is one live panel bound to one resource.
type View interface {
	ViewType() string
	Panel() host.Panel
	Resource() resource.Resource
	State() State
	Update(r resource.Resource)
	Refresh()
	Reveal(col host.ViewColumn)
	MatchesResource(r resource.Resource) bool
	Disposed() bool
	Dispose()
	OnDispose(fn func()) event.Disposable
	OnDidChangeViewState(fn func(active bool)) event.Disposable
}

type contentFunc func(text string, st State, opts settings.Viewer) (string, error)

// base carries the refresh state machine shared by previews and exports.
type base struct {
	deps     Deps
	viewType string
	panel    host.Panel
	content  contentFunc
	titleFmt string

	resource    resource.Resource
	zoom        float64
	timer       clock.Timer
	firstUpdate bool
	disposed    bool

	// seq numbers refreshes; applied is the newest one shown.
	seq     uint64
	applied uint64

	subs        event.Stack
	onDispose   event.Emitter[struct{}]
	onViewState event.Emitter[bool]
}

func newBase(deps Deps, viewType string, panel host.Panel, r resource.Resource, zoom float64, titleFmt string, content contentFunc) *base {
	b := &base{
		deps:        deps.withDefaults(),
		viewType:    viewType,
		panel:       panel,
		content:     content,
		titleFmt:    titleFmt,
		resource:    r,
		zoom:        zoom,
		firstUpdate: true,
	}

	b.subs.Push(panel.OnDidDispose(b.Dispose))
	b.subs.Push(panel.OnDidChangeViewState(func(active bool) {
		b.onViewState.Fire(active)
	}))
	b.subs.Push(b.deps.Workspace.OnDidChangeTextDocument(func(doc host.Document) {
		if !b.MatchesResource(doc.Resource) || !svgdoc.IsSVG(doc.Text) {
			return
		}
		b.Refresh()
	}))
	return b
}

func (b *base) ViewType() string { return b.viewType }

func (b *base) Panel() host.Panel { return b.panel }

func (b *base) Resource() resource.Resource { return b.resource }

func (b *base) State() State {
	return State{Resource: b.resource, Zoom: b.zoom}
}

func (b *base) Disposed() bool { return b.disposed }

func (b *base) OnDispose(fn func()) event.Disposable {
	return b.onDispose.Subscribe(func(struct{}) { fn() })
}

func (b *base) OnDidChangeViewState(fn func(active bool)) event.Disposable {
	return b.onViewState.Subscribe(fn)
}

// Update binds the view to r and refreshes it. A resource change refreshes
// immediately; a repeat of the current resource is debounced, and only one
// debounced refresh is ever pending.
func (b *base) Update(r resource.Resource) {
	if b.disposed || r.IsZero() {
		return
	}
	changed := !r.Equal(b.resource)
	if changed {
		b.stopTimer()
	}
	b.resource = r

	if b.timer == nil {
		if changed || b.firstUpdate {
			b.doUpdate()
		} else {
			b.schedule()
		}
	}
	b.firstUpdate = false
}

// Refresh re-renders the current resource.
func (b *base) Refresh() {
	b.Update(b.resource)
}

// Reveal brings the panel to the foreground.
func (b *base) Reveal(col host.ViewColumn) {
	if b.disposed {
		return
	}
	b.panel.Reveal(col)
}

// MatchesResource compares by normalized path.
func (b *base) MatchesResource(r resource.Resource) bool {
	return b.resource.Equal(r)
}

// Dispose tears the view down. It is safe to call more than once.
func (b *base) Dispose() {
	if b.disposed {
		return
	}
	b.disposed = true
	b.stopTimer()
	b.subs.DisposeAll()
	b.panel.Dispose()
	b.onDispose.Fire(struct{}{})
	b.onDispose.Close()
	b.onViewState.Close()
}

func (b *base) schedule() {
	var t clock.Timer
	t = b.deps.Clock.AfterFunc(DebounceWindow, func() {
		b.deps.Loop.Post(func() {
			if b.timer != t || b.disposed {
				return
			}
			b.timer = nil
			b.doUpdate()
		})
	})
	b.timer = t
}

func (b *base) stopTimer() {
	if b.timer != nil {
		b.timer.Stop()
		b.timer = nil
	}
}

func (b *base) doUpdate() {
	b.stopTimer()
	if b.disposed {
		return
	}

	r := b.resource
	st := b.State()
	opts := b.deps.Settings.Viewer()
	b.seq++
	seq := b.seq

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), loadTimeout)
		defer cancel()

		var html string
		doc, err := b.deps.Workspace.OpenTextDocument(ctx, r)
		if err == nil {
			html, err = b.content(doc.Text, st, opts)
		}
		b.deps.Loop.Post(func() {
			b.finishUpdate(r, seq, html, err)
		})
	}()
}

func (b *base) finishUpdate(r resource.Resource, seq uint64, html string, err error) {
	if b.disposed {
		return
	}
	if !r.Equal(b.resource) || seq < b.applied {
		b.deps.Logger.Debug("view: dropping stale refresh",
			slog.String("view_type", b.viewType),
			slog.String("resource", r.Path()))
		return
	}
	b.applied = seq
	b.panel.SetTitle(fmt.Sprintf(b.titleFmt, r.Base()))

	if err != nil {
		b.panel.SetHTML(render.Error(err.Error()))
		if errors.Is(err, fs.ErrNotExist) || errors.Is(err, apperr.ErrNotFound) {
			b.deps.Logger.Warn("view: resource unavailable",
				slog.String("resource", r.Path()),
				slog.String("error", err.Error()))
			return
		}
		b.deps.Logger.Error("view: refresh failed",
			slog.String("resource", r.Path()),
			slog.String("error", err.Error()))
		if b.deps.Notifier != nil {
			b.deps.Notifier.Error(fmt.Sprintf("Could not load %s: %v", r.Base(), err))
		}
		return
	}

	b.panel.SetHTML(html)
	b.persist()
}

func (b *base) persist() {
	raw, err := json.Marshal(b.State())
	if err != nil {
		b.deps.Logger.Error("view: encode state", slog.String("error", err.Error()))
		return
	}
	b.panel.SetState(raw)
}
