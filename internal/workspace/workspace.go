// Package workspace implements host.Workspace on top of a directory: files
// on disk, an overlay of unsaved editor buffers, and the active editor
// reported by editor integrations.
package workspace

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"sync"

	"github.com/starford/svgview/internal/apperr"
	"github.com/starford/svgview/internal/checksum"
	"github.com/starford/svgview/internal/event"
	"github.com/starford/svgview/internal/host"
	"github.com/starford/svgview/internal/loop"
	"github.com/starford/svgview/internal/resource"
	"github.com/starford/svgview/internal/storage"
)

// Workspace is a directory-backed host.Workspace. Events are fired on the
// dispatcher passed to New.
type Workspace struct {
	store  *storage.FS
	loop   loop.Dispatcher
	logger *slog.Logger

	mu       sync.Mutex
	buffers  map[string]string // unsaved editor text by absolute path
	versions map[string]string // last on-disk checksum seen by the watcher
	active   resource.Resource

	changed       event.Emitter[host.Document]
	activeChanged event.Emitter[host.Document]
}

var _ host.Workspace = (*Workspace)(nil)

// New returns a workspace over store.
func New(store *storage.FS, d loop.Dispatcher, logger *slog.Logger) *Workspace {
	if logger == nil {
		logger = slog.Default()
	}
	return &Workspace{
		store:    store,
		loop:     d,
		logger:   logger,
		buffers:  make(map[string]string),
		versions: make(map[string]string),
	}
}

// Root returns the workspace directory.
func (w *Workspace) Root() string { return w.store.Root() }

// Store returns the underlying file storage.
func (w *Workspace) Store() *storage.FS { return w.store }

// Resolve maps a workspace-relative or absolute path to a resource inside
// the workspace.
func (w *Workspace) Resolve(path string) (resource.Resource, error) {
	abs, err := w.store.Resolve(path)
	if err != nil {
		return resource.Resource{}, err
	}
	return resource.FromPath(abs), nil
}

// Contains reports whether r lies inside the workspace.
func (w *Workspace) Contains(r resource.Resource) bool {
	return !r.IsZero() && w.store.Contains(r.Path())
}

// OpenTextDocument returns the unsaved buffer for r if one exists, else the
// file content.
func (w *Workspace) OpenTextDocument(ctx context.Context, r resource.Resource) (host.Document, error) {
	if err := ctx.Err(); err != nil {
		return host.Document{}, err
	}
	if !w.Contains(r) {
		return host.Document{}, fmt.Errorf("workspace: %s: %w", r.Path(), apperr.ErrOutsideWorkspace)
	}

	w.mu.Lock()
	text, dirty := w.buffers[r.Path()]
	w.mu.Unlock()
	if dirty {
		return host.Document{Resource: r, Text: text, Version: checksum.Text(text), Dirty: true}, nil
	}

	data, err := w.store.Read(r.Path())
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return host.Document{}, fmt.Errorf("workspace: %s: %w", r.Base(), apperr.ErrNotFound)
		}
		return host.Document{}, err
	}
	return host.Document{Resource: r, Text: string(data), Version: checksum.Sum(data)}, nil
}

// ActiveEditor returns the document last reported as active.
func (w *Workspace) ActiveEditor() (resource.Resource, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.active, !w.active.IsZero()
}

// OnDidChangeTextDocument subscribes to content changes.
func (w *Workspace) OnDidChangeTextDocument(fn func(host.Document)) event.Disposable {
	return w.changed.Subscribe(fn)
}

// OnDidChangeActiveEditor subscribes to active editor changes.
func (w *Workspace) OnDidChangeActiveEditor(fn func(host.Document)) event.Disposable {
	return w.activeChanged.Subscribe(fn)
}

// SetActiveEditor records r as the active editor and fires the event with
// its current text.
func (w *Workspace) SetActiveEditor(ctx context.Context, r resource.Resource) error {
	doc, err := w.OpenTextDocument(ctx, r)
	if err != nil {
		return err
	}
	w.mu.Lock()
	w.active = r
	w.mu.Unlock()

	w.logger.Debug("workspace: active editor", slog.String("path", r.Path()))
	w.loop.Post(func() { w.activeChanged.Fire(doc) })
	return nil
}

// UpdateDocument records unsaved editor text for r. It takes precedence
// over the file until CloseDocument.
func (w *Workspace) UpdateDocument(r resource.Resource, text string) error {
	if !w.Contains(r) {
		return fmt.Errorf("workspace: %s: %w", r.Path(), apperr.ErrOutsideWorkspace)
	}
	w.mu.Lock()
	w.buffers[r.Path()] = text
	w.mu.Unlock()

	doc := host.Document{Resource: r, Text: text, Version: checksum.Text(text), Dirty: true}
	w.loop.Post(func() { w.changed.Fire(doc) })
	return nil
}

// CloseDocument drops the unsaved buffer for r. Views fall back to the
// file content, so a change is fired when the file still exists.
func (w *Workspace) CloseDocument(ctx context.Context, r resource.Resource) error {
	w.mu.Lock()
	_, ok := w.buffers[r.Path()]
	delete(w.buffers, r.Path())
	w.mu.Unlock()
	if !ok {
		return nil
	}

	doc, err := w.OpenTextDocument(ctx, r)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return nil
		}
		return err
	}
	w.loop.Post(func() { w.changed.Fire(doc) })
	return nil
}

// List returns every SVG file in the workspace.
func (w *Workspace) List() ([]storage.File, error) {
	return w.store.List("")
}

// fileChanged fires a change for abs when its content differs from the
// last version seen. Files with an open buffer are skipped.
func (w *Workspace) fileChanged(abs string) bool {
	data, err := w.store.Read(abs)
	if err != nil {
		w.logger.Warn("workspace: read failed",
			slog.String("path", abs),
			slog.String("error", err.Error()))
		return false
	}
	sum := checksum.Sum(data)

	w.mu.Lock()
	if w.versions[abs] == sum {
		w.mu.Unlock()
		return false
	}
	w.versions[abs] = sum
	_, buffered := w.buffers[abs]
	w.mu.Unlock()

	if buffered {
		return false
	}
	doc := host.Document{Resource: resource.FromPath(abs), Text: string(data), Version: sum}
	w.loop.Post(func() { w.changed.Fire(doc) })
	return true
}

func (w *Workspace) forget(abs string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	_, ok := w.versions[abs]
	delete(w.versions, abs)
	return ok
}

func (w *Workspace) knownVersions() map[string]string {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make(map[string]string, len(w.versions))
	for k, v := range w.versions {
		out[k] = v
	}
	return out
}
