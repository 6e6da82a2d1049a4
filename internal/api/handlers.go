package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/svgview/internal/commands"
	"github.com/starford/svgview/internal/sse"
	"github.com/starford/svgview/internal/webview"
	"github.com/starford/svgview/internal/workspace"
)

// Handler holds API route handlers.
type Handler struct {
	commands  *commands.Service
	workspace *workspace.Workspace
	panels    *webview.Host
	broker    *sse.Broker
}

// NewHandler creates a new Handler.
func NewHandler(cmds *commands.Service, ws *workspace.Workspace, panels *webview.Host, broker *sse.Broker) *Handler {
	return &Handler{commands: cmds, workspace: ws, panels: panels, broker: broker}
}

// RunCommand handles POST /api/commands/{id}.
//
//	@Summary		Run an svgviewer command
//	@Tags			commands
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string			true	"Command id"	example(svgviewer.open)
//	@Param			body	body		CommandRequest	false	"Command arguments"
//	@Success		200		{object}	CommandResponse
//	@Failure		400		{object}	errResponse
//	@Failure		403		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Failure		422		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/commands/{id} [post]
func (h *Handler) RunCommand(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req CommandRequest
	if r.ContentLength != 0 {
		if !decodeBody(w, r, &req) {
			return
		}
	}
	res, err := h.commands.Execute(r.Context(), id, req, nil)
	if err != nil {
		if !commands.IsUserError(err) {
			slog.Warn("command failed", slog.String("command", id), slog.String("error", err.Error()))
		}
		writeError(w, "command "+id, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// ListCommands handles GET /api/commands.
//
//	@Summary		List command ids
//	@Tags			commands
//	@Produce		json
//	@Success		200	{array}	string
//	@Security		BearerAuth
//	@Router			/commands [get]
func (h *Handler) ListCommands(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, commands.IDs())
}

// SetActiveEditor handles POST /api/editor/active.
//
//	@Summary		Report the active editor
//	@Tags			editor
//	@Accept			json
//	@Param			body	body	PathRequest	true	"Active document"
//	@Success		204
//	@Failure		403	{object}	errResponse
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/editor/active [post]
func (h *Handler) SetActiveEditor(w http.ResponseWriter, r *http.Request) {
	var req PathRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Path == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return
	}
	res, err := h.workspace.Resolve(req.Path)
	if err == nil {
		err = h.workspace.SetActiveEditor(r.Context(), res)
	}
	if err != nil {
		writeError(w, "set active editor", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListDocuments handles GET /api/documents.
//
//	@Summary		List SVG files in the workspace
//	@Tags			documents
//	@Produce		json
//	@Success		200	{object}	DocumentListResponse
//	@Security		BearerAuth
//	@Router			/documents [get]
func (h *Handler) ListDocuments(w http.ResponseWriter, _ *http.Request) {
	files, err := h.workspace.List()
	if err != nil {
		writeError(w, "list documents", err)
		return
	}
	writeJSON(w, http.StatusOK, DocumentListResponse{Documents: files, Total: len(files)})
}

// UpdateDocument handles PUT /api/documents.
//
//	@Summary		Push unsaved editor text
//	@Tags			documents
//	@Accept			json
//	@Param			body	body	DocumentRequest	true	"Buffer text"
//	@Success		204
//	@Failure		400	{object}	errResponse
//	@Failure		403	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/documents [put]
func (h *Handler) UpdateDocument(w http.ResponseWriter, r *http.Request) {
	var req DocumentRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Path == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return
	}
	res, err := h.workspace.Resolve(req.Path)
	if err == nil {
		err = h.workspace.UpdateDocument(res, req.Text)
	}
	if err != nil {
		writeError(w, "update document", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// CloseDocument handles DELETE /api/documents.
//
//	@Summary		Drop an editor buffer and fall back to the file
//	@Tags			documents
//	@Accept			json
//	@Param			body	body	PathRequest	true	"Document"
//	@Success		204
//	@Failure		403	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/documents [delete]
func (h *Handler) CloseDocument(w http.ResponseWriter, r *http.Request) {
	var req PathRequest
	if !decodeBody(w, r, &req) {
		return
	}
	res, err := h.workspace.Resolve(req.Path)
	if err == nil {
		err = h.workspace.CloseDocument(r.Context(), res)
	}
	if err != nil {
		writeError(w, "close document", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
