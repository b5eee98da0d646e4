package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/vaultgraph/internal/graphservice"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(svc *graphservice.Service, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(svc)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	// Graph.
	r.Get("/graph", h.Graph)
	r.Get("/graph/stats", h.Stats)
	r.Get("/graph.svg", h.Image)
	r.Get("/graph.png", h.Image)
	r.Post("/rebuild", h.Rebuild)

	// Nodes.
	r.Get("/nodes", h.FindNodes)
	r.Get("/nodes/{label}/neighbors", h.Neighbors)

	// Content search.
	r.Get("/search", h.Search)

	// Settings.
	r.Get("/settings", h.Settings)
	r.Put("/settings/filters", h.SetFilters)
	r.Put("/settings/forces", h.SetForces)
	r.Put("/settings/display", h.SetDisplay)

	// Pointer input for remote clients.
	r.Post("/pointer", h.Pointer)

	// SSE endpoint (protected by same auth middleware).
	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
