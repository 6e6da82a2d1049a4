package api

import (
	"github.com/go-chi/chi/v5"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// The global notification stream is served at GET /events.
func NewRouter(h *Handler, authEnabled bool, token string) chi.Router {
	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	// Commands.
	r.Get("/commands", h.ListCommands)
	r.Post("/commands/{id}", h.RunCommand)

	// Editor state.
	r.Post("/editor/active", h.SetActiveEditor)
	r.Get("/documents", h.ListDocuments)
	r.Put("/documents", h.UpdateDocument)
	r.Delete("/documents", h.CloseDocument)

	// Panels.
	r.Get("/panels", h.ListPanels)
	r.Get("/panels/{id}/events", h.PanelEvents)
	r.Post("/panels/{id}/messages", h.PanelMessage)
	r.Post("/panels/{id}/focus", h.PanelFocus)
	r.Delete("/panels/{id}", h.ClosePanel)

	// SSE endpoint (protected by same auth middleware).
	if h.broker != nil {
		r.Get("/events", h.broker.ServeHTTP)
	}

	return r
}

// MountShell registers the panel shell pages on root behind the same auth.
func MountShell(root chi.Router, h *Handler, authEnabled bool, token string) {
	root.With(AuthMiddleware(authEnabled, token)).Get("/panels/{id}", h.PanelShell)
}
