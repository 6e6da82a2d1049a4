package view

import (
	"github.com/starford/svgview/internal/host"
	"github.com/starford/svgview/internal/resource"
)

// ExportManager owns the export panels.
type ExportManager struct {
	*Manager[*Export]
}

// NewExportManager returns an empty export registry. save handles the
// exportData messages of its panels.
func NewExportManager(deps Deps, save SaveFunc) *ExportManager {
	deps = deps.withDefaults()
	m := &ExportManager{}
	m.Manager = newManager(deps, ExportViewType,
		func(r resource.Resource, col host.ViewColumn) *Export {
			panel := deps.Panels.CreatePanel(ExportViewType, "Export "+r.Base(), col)
			return newExport(deps, panel, r, save)
		},
		func(panel host.Panel, st State) *Export {
			return newExport(deps, panel, st.Resource, save)
		},
	)
	return m
}
