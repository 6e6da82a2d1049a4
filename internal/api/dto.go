package api

import (
	"github.com/starford/svgview/internal/commands"
	"github.com/starford/svgview/internal/storage"
	"github.com/starford/svgview/internal/webview"
)

// CommandRequest is the request body for running a command.
type CommandRequest = commands.Args

// CommandResponse reports what a command did.
type CommandResponse = commands.Result

// PathRequest names a workspace file.
type PathRequest struct {
	Path string `json:"path" example:"icons/logo.svg" validate:"required"`
}

// DocumentRequest carries the unsaved text of an editor buffer.
type DocumentRequest struct {
	Path string `json:"path" example:"icons/logo.svg" validate:"required"`
	Text string `json:"text" example:"<svg></svg>" validate:"required"`
}

// DocumentListResponse lists the SVG files of the workspace.
type DocumentListResponse struct {
	Documents []storage.File `json:"documents" validate:"required"`
	Total     int            `json:"total" example:"3" validate:"required"`
}

// PanelListResponse lists live panels.
type PanelListResponse struct {
	Panels []webview.Info `json:"panels" validate:"required"`
}

// FocusRequest reports a panel tab's focus change.
type FocusRequest struct {
	Active bool `json:"active" example:"true"`
}
