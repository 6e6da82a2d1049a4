// Package webview hosts panels as browser tabs. Each panel has a shell page
// at /panels/{id} that renders the panel HTML in a sandboxed frame, streams
// updates over SSE and posts page messages back to the server.
//
// Panel records are persisted so a restart revives the open panels through
// the serializer registered for their view type.
package webview

import (
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/starford/svgview/internal/apperr"
	"github.com/starford/svgview/internal/host"
	"github.com/starford/svgview/internal/loop"
	"github.com/starford/svgview/internal/sse"
	"github.com/starford/svgview/internal/statestore"
)

// PanelPath returns the URL path of a panel's shell page.
func PanelPath(id string) string { return "/panels/" + id }

// Host creates and tracks web panels. CreatePanel and Revive must run on the
// view loop; the HTTP-facing methods post their effects onto it.
type Host struct {
	broker *sse.Broker
	store  statestore.Store
	loop   loop.Dispatcher
	logger *slog.Logger

	mu          sync.Mutex
	panels      map[string]*Panel
	order       []string
	serializers map[string]host.Serializer

	shuttingDown atomic.Bool
}

var _ host.PanelHost = (*Host)(nil)

// New returns a host publishing on broker. store may be nil, in which case
// panels are not persisted.
func New(broker *sse.Broker, store statestore.Store, d loop.Dispatcher, logger *slog.Logger) *Host {
	if logger == nil {
		logger = slog.Default()
	}
	return &Host{
		broker:      broker,
		store:       store,
		loop:        d,
		logger:      logger,
		panels:      make(map[string]*Panel),
		serializers: make(map[string]host.Serializer),
	}
}

// RegisterSerializer installs the reviver for viewType.
func (h *Host) RegisterSerializer(viewType string, s host.Serializer) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.serializers[viewType] = s
}

// CreatePanel opens a new panel.
func (h *Host) CreatePanel(viewType, title string, col host.ViewColumn) host.Panel {
	p := h.add(uuid.NewString(), viewType, title, col)
	h.persist(p)
	h.logger.Info("webview: panel created",
		slog.String("id", p.id),
		slog.String("view_type", viewType),
		slog.String("url", PanelPath(p.id)))
	h.broker.Publish(sse.GlobalTopic, sse.Event{Type: "panel", Data: p.info()})
	return p
}

func (h *Host) add(id, viewType, title string, col host.ViewColumn) *Panel {
	p := &Panel{h: h, id: id, viewType: viewType, title: title, column: col}
	h.mu.Lock()
	h.panels[id] = p
	h.order = append(h.order, id)
	h.mu.Unlock()
	return p
}

// Revive restores every persisted panel through its serializer and returns
// how many came back. Records without a serializer or with unusable state
// are deleted.
func (h *Host) Revive() (int, error) {
	if h.store == nil {
		return 0, nil
	}
	recs, err := h.store.List()
	if err != nil {
		return 0, fmt.Errorf("webview: revive: %w", err)
	}

	n := 0
	for _, rec := range recs {
		h.mu.Lock()
		s, ok := h.serializers[rec.ViewType]
		h.mu.Unlock()
		if !ok {
			h.logger.Warn("webview: no serializer for panel",
				slog.String("id", rec.ID),
				slog.String("view_type", rec.ViewType))
			h.deleteRecord(rec.ID)
			continue
		}

		p := h.add(rec.ID, rec.ViewType, rec.Title, host.ParseViewColumn(rec.Column))
		p.state = rec.State
		if err := s.DeserializeWebviewPanel(p, rec.State); err != nil {
			h.logger.Warn("webview: revive failed",
				slog.String("id", rec.ID),
				slog.String("error", err.Error()))
			// A failed serializer disposes the panel, which deletes the record.
			p.Dispose()
			continue
		}
		n++
	}
	return n, nil
}

// Panel returns a live panel.
func (h *Host) Panel(id string) (*Panel, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	p, ok := h.panels[id]
	return p, ok
}

// Panels lists live panels in creation order.
func (h *Host) Panels() []Info {
	h.mu.Lock()
	ps := make([]*Panel, 0, len(h.order))
	for _, id := range h.order {
		ps = append(ps, h.panels[id])
	}
	h.mu.Unlock()

	out := make([]Info, 0, len(ps))
	for _, p := range ps {
		info := p.info()
		info.Clients = h.broker.ClientCount(p.id)
		out = append(out, info)
	}
	return out
}

// Deliver hands a page message to the panel's listeners.
func (h *Host) Deliver(id string, msg host.Message) error {
	p, err := h.lookup(id)
	if err != nil {
		return err
	}
	h.loop.Post(func() {
		if !p.Disposed() {
			p.onMessage.Fire(msg)
		}
	})
	return nil
}

// SetFocus records that the panel's tab gained or lost focus.
func (h *Host) SetFocus(id string, active bool) error {
	p, err := h.lookup(id)
	if err != nil {
		return err
	}
	h.loop.Post(func() { p.setActive(active) })
	return nil
}

// Close disposes the panel as if the user closed it.
func (h *Host) Close(id string) error {
	p, err := h.lookup(id)
	if err != nil {
		return err
	}
	h.loop.Post(p.Dispose)
	return nil
}

// ServeEvents streams the panel's events, starting with its current content.
func (h *Host) ServeEvents(w http.ResponseWriter, r *http.Request, id string) error {
	p, err := h.lookup(id)
	if err != nil {
		return err
	}
	h.broker.ServeTopic(w, r, id, p.initialEvent())
	return nil
}

// Shutdown marks the host as stopping: panels disposed from now on keep
// their records.
func (h *Host) Shutdown() {
	h.shuttingDown.Store(true)
}

func (h *Host) lookup(id string) (*Panel, error) {
	p, ok := h.Panel(id)
	if !ok {
		return nil, fmt.Errorf("webview: panel %s: %w", id, apperr.ErrNotFound)
	}
	return p, nil
}

func (h *Host) publish(id, typ string, data any) {
	h.broker.Publish(id, sse.Event{Type: typ, Data: data})
}

func (h *Host) persist(p *Panel) {
	if h.store == nil || h.shuttingDown.Load() {
		return
	}
	p.mu.Lock()
	rec := statestore.Record{
		ID:        p.id,
		ViewType:  p.viewType,
		Column:    string(p.column),
		Title:     p.title,
		State:     p.state,
		UpdatedAt: time.Now().UTC(),
	}
	p.mu.Unlock()
	if err := h.store.Save(rec); err != nil {
		h.logger.Error("webview: persist panel failed",
			slog.String("id", p.id),
			slog.String("error", err.Error()))
	}
}

func (h *Host) remove(p *Panel) {
	h.mu.Lock()
	delete(h.panels, p.id)
	for i, id := range h.order {
		if id == p.id {
			h.order = append(h.order[:i:i], h.order[i+1:]...)
			break
		}
	}
	h.mu.Unlock()

	h.publish(p.id, "dispose", map[string]string{"id": p.id})
	if !h.shuttingDown.Load() {
		h.deleteRecord(p.id)
	}
	h.logger.Info("webview: panel closed", slog.String("id", p.id))
}

func (h *Host) deleteRecord(id string) {
	if h.store == nil {
		return
	}
	if err := h.store.Delete(id); err != nil {
		h.logger.Error("webview: delete panel record failed",
			slog.String("id", id),
			slog.String("error", err.Error()))
	}
}
