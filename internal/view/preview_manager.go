package view

import (
	"github.com/starford/svgview/internal/host"
	"github.com/starford/svgview/internal/resource"
	"github.com/starford/svgview/internal/svgdoc"
)

// PreviewManager owns the preview panels.
type PreviewManager struct {
	*Manager[*Preview]
}

// NewPreviewManager returns an empty preview registry. When auto-preview is
// enabled it opens a preview as soon as an SVG document becomes active and
// no preview exists.
func NewPreviewManager(deps Deps) *PreviewManager {
	deps = deps.withDefaults()
	m := &PreviewManager{}
	m.Manager = newManager(deps, PreviewViewType,
		func(r resource.Resource, col host.ViewColumn) *Preview {
			panel := deps.Panels.CreatePanel(PreviewViewType, "Preview "+r.Base(), col)
			return newPreview(deps, panel, r, DefaultZoom)
		},
		func(panel host.Panel, st State) *Preview {
			return newPreview(deps, panel, st.Resource, st.Zoom)
		},
	)

	m.subs.Push(deps.Workspace.OnDidChangeActiveEditor(func(doc host.Document) {
		opts := deps.Settings.Viewer()
		if !opts.EnableAutoPreview || m.Len() > 0 || !svgdoc.IsSVG(doc.Text) {
			return
		}
		m.View(doc.Resource, opts.PreviewColumn)
	}))
	return m
}

// ActiveResource returns the resource of the focused preview.
func (m *PreviewManager) ActiveResource() (resource.Resource, bool) {
	v, ok := m.Active()
	if !ok {
		return resource.Resource{}, false
	}
	return v.Resource(), true
}
