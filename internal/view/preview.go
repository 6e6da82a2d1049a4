package view

import (
	"encoding/json"
	"log/slog"

	"github.com/starford/svgview/internal/host"
	"github.com/starford/svgview/internal/render"
	"github.com/starford/svgview/internal/resource"
	"github.com/starford/svgview/internal/settings"
	"github.com/starford/svgview/internal/svgdoc"
)

// Preview shows a zoomable rendering of a document. It follows the active
// editor whenever that editor shows an SVG document.
type Preview struct {
	*base
}

type setStateBody struct {
	Resource string          `json:"resource"`
	Zoom     json.RawMessage `json:"zoom"`
}

func newPreview(deps Deps, panel host.Panel, r resource.Resource, zoom float64) *Preview {
	if !validZoom(zoom) {
		zoom = DefaultZoom
	}
	p := &Preview{}
	p.base = newBase(deps, PreviewViewType, panel, r, zoom, "Preview %s", previewContent)

	p.subs.Push(p.deps.Workspace.OnDidChangeActiveEditor(func(doc host.Document) {
		if !svgdoc.IsSVG(doc.Text) {
			return
		}
		p.Update(doc.Resource)
	}))
	p.subs.Push(panel.OnDidReceiveMessage(p.handleMessage))

	p.Update(r)
	return p
}

func previewContent(text string, st State, opts settings.Viewer) (string, error) {
	return render.Preview(text, render.PreviewData{
		Resource: st.Resource.String(),
		Zoom:     st.Zoom,
	}, opts.RenderOptions())
}

// Zoom returns the current zoom level.
func (p *Preview) Zoom() float64 { return p.zoom }

func (p *Preview) handleMessage(msg host.Message) {
	if p.disposed || msg.Command != "setState" {
		return
	}
	var body setStateBody
	if err := json.Unmarshal(msg.Body, &body); err != nil {
		p.deps.Logger.Debug("preview: malformed setState", slog.String("error", err.Error()))
		return
	}
	r, err := resource.Parse(body.Resource)
	if err != nil || !p.MatchesResource(r) {
		return
	}
	zoom, ok := parseZoom(body.Zoom)
	if !ok {
		return
	}
	p.zoom = zoom
	p.persist()
}
