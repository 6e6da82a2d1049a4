package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/svgview/internal/host"
)

// ListPanels handles GET /api/panels.
//
//	@Summary		List live panels
//	@Tags			panels
//	@Produce		json
//	@Success		200	{object}	PanelListResponse
//	@Security		BearerAuth
//	@Router			/panels [get]
func (h *Handler) ListPanels(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, PanelListResponse{Panels: h.panels.Panels()})
}

// PanelShell handles GET /panels/{id}, the page a browser tab opens.
func (h *Handler) PanelShell(w http.ResponseWriter, r *http.Request) {
	if err := h.panels.ServeShell(w, r, chi.URLParam(r, "id")); err != nil {
		writeError(w, "panel shell", err)
	}
}

// PanelEvents handles GET /api/panels/{id}/events.
//
//	@Summary		Stream a panel's update, reveal and dispose events
//	@Tags			panels
//	@Produce		text/event-stream
//	@Param			id	path	string	true	"Panel id"
//	@Success		200
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/panels/{id}/events [get]
func (h *Handler) PanelEvents(w http.ResponseWriter, r *http.Request) {
	if err := h.panels.ServeEvents(w, r, chi.URLParam(r, "id")); err != nil {
		writeError(w, "panel events", err)
	}
}

// PanelMessage handles POST /api/panels/{id}/messages.
//
//	@Summary		Deliver a page message to a panel
//	@Tags			panels
//	@Accept			json
//	@Param			id		path	string			true	"Panel id"
//	@Param			body	body	host.Message	true	"Message"
//	@Success		202
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/panels/{id}/messages [post]
func (h *Handler) PanelMessage(w http.ResponseWriter, r *http.Request) {
	var msg host.Message
	if !decodeBody(w, r, &msg) {
		return
	}
	if msg.Command == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("command is required"))
		return
	}
	if err := h.panels.Deliver(chi.URLParam(r, "id"), msg); err != nil {
		writeError(w, "panel message", err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

// PanelFocus handles POST /api/panels/{id}/focus.
//
//	@Summary		Report a panel tab's focus change
//	@Tags			panels
//	@Accept			json
//	@Param			id		path	string			true	"Panel id"
//	@Param			body	body	FocusRequest	true	"Focus"
//	@Success		204
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/panels/{id}/focus [post]
func (h *Handler) PanelFocus(w http.ResponseWriter, r *http.Request) {
	var req FocusRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if err := h.panels.SetFocus(chi.URLParam(r, "id"), req.Active); err != nil {
		writeError(w, "panel focus", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ClosePanel handles DELETE /api/panels/{id}.
//
//	@Summary		Close a panel
//	@Tags			panels
//	@Param			id	path	string	true	"Panel id"
//	@Success		204
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/panels/{id} [delete]
func (h *Handler) ClosePanel(w http.ResponseWriter, r *http.Request) {
	if err := h.panels.Close(chi.URLParam(r, "id")); err != nil {
		writeError(w, "close panel", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
