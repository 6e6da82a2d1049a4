package view

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/starford/svgview/internal/host"
	"github.com/starford/svgview/internal/render"
	"github.com/starford/svgview/internal/resource"
	"github.com/starford/svgview/internal/settings"
)

// SaveFunc writes a base64 data URL to output. It is responsible for
// notifying the user.
type SaveFunc func(ctx context.Context, dataURL, output string) error

const saveTimeout = time.Minute

// Export shows the raster export controls for a document.
type Export struct {
	*base
	save SaveFunc
}

// ExportDataMessage is the body of an exportData panel message.
type ExportDataMessage struct {
	DataURL  string `json:"dataUrl"`
	Output   string `json:"output"`
	Resource string `json:"resource"`
}

func newExport(deps Deps, panel host.Panel, r resource.Resource, save SaveFunc) *Export {
	e := &Export{save: save}
	e.base = newBase(deps, ExportViewType, panel, r, 0, "Export %s", exportContent)
	e.subs.Push(panel.OnDidReceiveMessage(e.handleMessage))
	e.Update(r)
	return e
}

func exportContent(text string, st State, opts settings.Viewer) (string, error) {
	return render.Export(text, render.ExportData{
		Resource: st.Resource.String(),
		Output:   st.Resource.WithExt(".png"),
	}, opts.RenderOptions())
}

func (e *Export) handleMessage(msg host.Message) {
	if e.disposed || msg.Command != "exportData" {
		return
	}
	var body ExportDataMessage
	if err := json.Unmarshal(msg.Body, &body); err != nil {
		e.deps.Logger.Debug("export: malformed exportData", slog.String("error", err.Error()))
		return
	}
	r, err := resource.Parse(body.Resource)
	if err != nil || !e.MatchesResource(r) {
		e.deps.Logger.Debug("export: ignoring message for another resource",
			slog.String("resource", body.Resource))
		return
	}
	if e.save == nil {
		return
	}

	save, logger := e.save, e.deps.Logger
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), saveTimeout)
		defer cancel()
		if err := save(ctx, body.DataURL, body.Output); err != nil {
			logger.Warn("export: save failed",
				slog.String("output", body.Output),
				slog.String("error", err.Error()))
		}
	}()
}
