// Package host defines the editor-side collaborators the view layer talks
// to: the workspace that owns documents, the panel host that owns panels,
// and the user-visible notifier.
//
// Implementations must invoke event listeners on the view loop.
package host

import (
	"context"
	"encoding/json"

	"github.com/starford/svgview/internal/event"
	"github.com/starford/svgview/internal/resource"
)

// Document is a snapshot of a text document.
type Document struct {
	Resource resource.Resource
	Text     string
	// Version is a content checksum.
	Version string
	// Dirty is set when Text comes from an unsaved editor buffer.
	Dirty bool
}

// Workspace loads documents and reports editor activity.
type Workspace interface {
	OpenTextDocument(ctx context.Context, r resource.Resource) (Document, error)
	ActiveEditor() (resource.Resource, bool)
	OnDidChangeTextDocument(fn func(Document)) event.Disposable
	OnDidChangeActiveEditor(fn func(Document)) event.Disposable
}

// Message is a panel-to-server message.
type Message struct {
	Command string          `json:"command"`
	Body    json.RawMessage `json:"body"`
}

// Panel is a live view surface. Disposing it closes it for the user.
type Panel interface {
	ID() string
	ViewType() string
	Title() string
	SetTitle(title string)
	HTML() string
	SetHTML(html string)
	// SetState records the serialized view state used to revive the panel.
	SetState(state json.RawMessage)
	Column() ViewColumn
	Reveal(col ViewColumn)
	Active() bool
	Dispose()
	OnDidDispose(fn func()) event.Disposable
	OnDidChangeViewState(fn func(active bool)) event.Disposable
	OnDidReceiveMessage(fn func(Message)) event.Disposable
}

// PanelHost creates panels and revives persisted ones through serializers.
type PanelHost interface {
	CreatePanel(viewType, title string, col ViewColumn) Panel
}

// Serializer rebuilds a view for a panel restored after a restart.
type Serializer interface {
	DeserializeWebviewPanel(panel Panel, state json.RawMessage) error
}

// Notifier shows messages to the user.
type Notifier interface {
	Info(msg string)
	Warn(msg string)
	Error(msg string)
}
