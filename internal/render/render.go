// Package render turns document text and view data into panel HTML.
//
// Rendering is a pure function of its inputs. Options is a settings
// snapshot taken by the caller.
package render

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"html/template"
	"regexp"
	"strings"

	"github.com/starford/svgview/internal/svgdoc"
)

//go:embed assets/host.js
var hostJS string

//go:embed assets/preview.js
var previewJS string

//go:embed assets/export.js
var exportJS string

// Options are the user settings that affect rendering.
type Options struct {
	TransparencyGrid  bool
	TransparencyColor string
	ShowZoomButtons   bool
}

// PreviewData is the preview view state visible to the page.
type PreviewData struct {
	Resource string  `json:"resource"`
	Zoom     float64 `json:"zoom"`
}

// ExportData is the export view state visible to the page.
type ExportData struct {
	Resource string `json:"resource"`
	Output   string `json:"-"`
}

var safeColor = regexp.MustCompile(`^[#a-zA-Z0-9(),.%\s-]{1,64}$`)

// background returns the CSS declarations for the area behind the image.
// An explicit colour wins over the checkerboard.
func background(opts Options) template.CSS {
	color := strings.TrimSpace(opts.TransparencyColor)
	if color != "" && safeColor.MatchString(color) {
		return template.CSS("background: " + color + ";")
	}
	if opts.TransparencyGrid {
		return template.CSS(checkerboard)
	}
	return ""
}

const checkerboard = `background-color: #fff;
background-image:
	linear-gradient(45deg, #ccc 25%, transparent 25%),
	linear-gradient(-45deg, #ccc 25%, transparent 25%),
	linear-gradient(45deg, transparent 75%, #ccc 75%),
	linear-gradient(-45deg, transparent 75%, #ccc 75%);
background-size: 20px 20px;
background-position: 0 0, 0 10px, 10px -10px, -10px 0;`

var previewTmpl = template.Must(template.New("preview").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<style>
body { margin: 0; padding: 0; }
.zoom { position: fixed; top: 8px; right: 8px; z-index: 10; }
.zoom button { width: 28px; height: 28px; font-size: 16px; }
.svgbg { display: inline-block; }
.svgbg img { transform-origin: 0 0; {{.Background}} }
</style>
</head>
<body>
<div id="svg-preview-data" data-state="{{.State}}"></div>
{{- if .ShowZoomButtons}}
<div class="zoom"><button id="zoom_in" title="Zoom in">+</button><button id="zoom_out" title="Zoom out">-</button></div>
{{- end}}
<div class="svgbg"><img id="svgimg" src="{{.Image}}" alt="svg image"></div>
<script>{{.HostJS}}</script>
<script>{{.Script}}</script>
</body>
</html>
`))

var exportTmpl = template.Must(template.New("export").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<style>
body { font-family: sans-serif; margin: 16px; }
.form { display: flex; gap: 12px; align-items: center; flex-wrap: wrap; }
.wrapper { border-bottom: 1px solid #888; padding: 4px; }
.wrapper.active { border-bottom-color: #0a84ff; }
.label-name { margin-right: 6px; }
.button { padding: 6px 12px; border: 1px solid #0a84ff; border-radius: 4px; text-decoration: none; }
.source img { display: none; }
#canvas { {{.Background}} }
</style>
</head>
<body>
<div id="svg-export-data" data-state="{{.State}}"></div>
<h1>Options</h1>
<div class="form">
<div class="wrapper"><label for="width" class="label-name">Width</label><input id="width" type="number" min="1" placeholder="width"><label for="width"> px</label></div>
<div class="wrapper"><label for="height" class="label-name">Height</label><input id="height" type="number" min="1" placeholder="height"><label for="height"> px</label></div>
<a id="export" data-output="{{.Output}}" href="#" class="button">Export PNG</a>
</div>
<h1>Preview</h1>
<div class="source">{{.SVG}}<img id="image" src="{{.Image}}" alt="svg image"></div>
<canvas id="canvas" data-showtransgrid="{{.ShowGrid}}"></canvas>
<script>{{.HostJS}}</script>
<script>{{.Script}}</script>
</body>
</html>
`))

type previewPage struct {
	State           string
	ShowZoomButtons bool
	Image           template.URL
	Background      template.CSS
	HostJS          template.JS
	Script          template.JS
}

type exportPage struct {
	State      string
	Output     string
	SVG        template.HTML
	Image      template.URL
	ShowGrid   bool
	Background template.CSS
	HostJS     template.JS
	Script     template.JS
}

// Preview renders the preview page for text.
func Preview(text string, data PreviewData, opts Options) (string, error) {
	if data.Zoom <= 0 {
		data.Zoom = 1.0
	}
	state, err := json.Marshal(data)
	if err != nil {
		return "", fmt.Errorf("render: marshal preview state: %w", err)
	}
	page := previewPage{
		State:           string(state),
		ShowZoomButtons: opts.ShowZoomButtons,
		Image:           template.URL(svgdoc.DataURI(text)),
		Background:      background(opts),
		HostJS:          template.JS(hostJS),
		Script:          template.JS(previewJS),
	}
	return execute(previewTmpl, page)
}

// Export renders the export page for text.
func Export(text string, data ExportData, opts Options) (string, error) {
	state, err := json.Marshal(data)
	if err != nil {
		return "", fmt.Errorf("render: marshal export state: %w", err)
	}
	page := exportPage{
		State:      string(state),
		Output:     data.Output,
		SVG:        template.HTML(text),
		Image:      template.URL(svgdoc.DataURI(text)),
		ShowGrid:   opts.TransparencyGrid,
		Background: background(opts),
		HostJS:     template.JS(hostJS),
		Script:     template.JS(exportJS),
	}
	return execute(exportTmpl, page)
}

// Error renders a minimal page describing why content is unavailable.
func Error(msg string) string {
	var buf bytes.Buffer
	buf.WriteString("<!DOCTYPE html><html><head><meta charset=\"utf-8\"></head><body><p>")
	template.HTMLEscape(&buf, []byte(msg))
	buf.WriteString("</p></body></html>")
	return buf.String()
}

func execute(t *template.Template, data any) (string, error) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render: execute %s: %w", t.Name(), err)
	}
	return buf.String(), nil
}
