package webview

import (
	_ "embed"
	"fmt"
	"html/template"
	"net/http"
)

//go:embed assets/shell.html
var shellHTML string

var shellTmpl = template.Must(template.New("shell").Parse(shellHTML))

type shellPage struct {
	ID    string
	Title string
}

// ServeShell writes the shell page of a panel.
func (h *Host) ServeShell(w http.ResponseWriter, _ *http.Request, id string) error {
	p, err := h.lookup(id)
	if err != nil {
		return err
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	if err := shellTmpl.Execute(w, shellPage{ID: p.id, Title: p.Title()}); err != nil {
		return fmt.Errorf("webview: render shell: %w", err)
	}
	return nil
}
