// Package settings holds the viewer options and hands out snapshots of
// them. Options are swapped atomically on configuration reload.
package settings

import (
	"sync/atomic"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/svgview/internal/event"
	"github.com/starford/svgview/internal/host"
	"github.com/starford/svgview/internal/render"
)

// Viewer holds the user-facing viewer options.
type Viewer struct {
	PreviewColumn     host.ViewColumn `yaml:"previewcolumn"`
	TransparencyGrid  bool            `yaml:"transparencygrid"`
	TransparencyColor string          `yaml:"transparencycolor"`
	ShowZoomInOut     bool            `yaml:"showzoominout"`
	EnableAutoPreview bool            `yaml:"enableautopreview"`
}

// Default returns the viewer defaults.
func Default() Viewer {
	return Viewer{
		PreviewColumn:    host.ColumnBeside,
		TransparencyGrid: true,
		ShowZoomInOut:    true,
	}
}

// Validate validates the viewer options.
func (v *Viewer) Validate() error {
	if v.PreviewColumn == "" {
		v.PreviewColumn = host.ColumnBeside
	}
	cols := make([]any, 0, 11)
	for _, c := range host.ViewColumns() {
		cols = append(cols, c)
	}
	return validation.ValidateStruct(v,
		validation.Field(&v.PreviewColumn, validation.In(cols...)),
		validation.Field(&v.TransparencyColor, validation.Length(0, 64)),
	)
}

// RenderOptions returns the subset of options the renderer needs.
func (v Viewer) RenderOptions() render.Options {
	return render.Options{
		TransparencyGrid:  v.TransparencyGrid,
		TransparencyColor: v.TransparencyColor,
		ShowZoomButtons:   v.ShowZoomInOut,
	}
}

// Source hands out the current options.
type Source interface {
	Viewer() Viewer
}

// Store is a Source whose value can be replaced at runtime.
type Store struct {
	cur     atomic.Pointer[Viewer]
	changed event.Emitter[Viewer]
}

// NewStore returns a store holding v.
func NewStore(v Viewer) *Store {
	s := &Store{}
	s.cur.Store(&v)
	return s
}

// Viewer returns a copy of the current options.
func (s *Store) Viewer() Viewer {
	return *s.cur.Load()
}

// Set replaces the options and notifies subscribers.
func (s *Store) Set(v Viewer) {
	s.cur.Store(&v)
	s.changed.Fire(v)
}

// OnDidChange subscribes to replacements.
func (s *Store) OnDidChange(fn func(Viewer)) event.Disposable {
	return s.changed.Subscribe(fn)
}

// Static is a fixed Source.
type Static Viewer

// Viewer returns the fixed options.
func (s Static) Viewer() Viewer { return Viewer(s) }
