package api

import (
	"log/slog"
	"net/http"
	"net/url"
	"path"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/starford/vaultgraph/internal/classify"
	"github.com/starford/vaultgraph/internal/graphservice"
	"github.com/starford/vaultgraph/internal/index"
	"github.com/starford/vaultgraph/internal/interaction"
	"github.com/starford/vaultgraph/internal/physics"
	"github.com/starford/vaultgraph/internal/render"
)

// Image size bounds for /graph.svg and /graph.png.
const (
	defaultImageWidth  = 1280
	defaultImageHeight = 800
	maxImageSide       = 4096
)

// Handler holds API route handlers.
type Handler struct {
	svc *graphservice.Service
}

// NewHandler creates a new Handler.
func NewHandler(svc *graphservice.Service) *Handler {
	return &Handler{svc: svc}
}

// Graph handles GET /api/graph.
//
//	@Summary		Get the current graph snapshot
//	@Tags			graph
//	@Produce		json
//	@Success		200	{object}	GraphResponse
//	@Security		BearerAuth
//	@Router			/graph [get]
func (h *Handler) Graph(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.Snapshot(r.Context()))
}

// Stats handles GET /api/graph/stats.
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.Stats(r.Context()))
}

// Image handles GET /api/graph.svg and GET /api/graph.png.
//
//	@Summary		Render the current layout
//	@Tags			graph
//	@Produce		image/svg+xml,image/png
//	@Param			width	query	int	false	"Image width in pixels"
//	@Param			height	query	int	false	"Image height in pixels"
//	@Success		200
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/graph.svg [get]
func (h *Handler) Image(w http.ResponseWriter, r *http.Request) {
	f, err := render.ParseFormat(strings.TrimPrefix(path.Ext(r.URL.Path), "."))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}
	width, ok := sizeParam(r, "width", defaultImageWidth)
	if !ok {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid width"))
		return
	}
	height, ok := sizeParam(r, "height", defaultImageHeight)
	if !ok {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid height"))
		return
	}

	data, err := h.svc.Render(r.Context(), f, width, height)
	if err != nil {
		writeError(w, "render", err)
		return
	}
	w.Header().Set("Content-Type", f.ContentType())
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		slog.Debug("image write failed", slog.String("error", err.Error()))
	}
}

func sizeParam(r *http.Request, name string, def int) (int, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 || n > maxImageSide {
		return 0, false
	}
	return n, true
}

// Rebuild handles POST /api/rebuild.
//
//	@Summary		Rescan the vault
//	@Tags			graph
//	@Produce		json
//	@Success		202	{object}	RebuildResponse
//	@Security		BearerAuth
//	@Router			/rebuild [post]
func (h *Handler) Rebuild(w http.ResponseWriter, r *http.Request) {
	h.svc.Rebuild(r.Context())
	writeJSON(w, http.StatusAccepted, RebuildResponse{
		Status:  "scheduled",
		Version: h.svc.Snapshot(r.Context()).Version,
	})
}

// FindNodes handles GET /api/nodes?q=.
//
//	@Summary		Find nodes by label substring
//	@Tags			nodes
//	@Produce		json
//	@Param			q	query		string	false	"Label substring"
//	@Success		200	{object}	NodesResponse
//	@Security		BearerAuth
//	@Router			/nodes [get]
func (h *Handler) FindNodes(w http.ResponseWriter, r *http.Request) {
	nodes, err := h.svc.Find(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		writeError(w, "find nodes", err)
		return
	}
	if nodes == nil {
		nodes = []NodeView{}
	}
	writeJSON(w, http.StatusOK, NodesResponse{Nodes: nodes})
}

// Neighbors handles GET /api/nodes/{label}/neighbors.
//
//	@Summary		Get a node and its neighbors
//	@Tags			nodes
//	@Produce		json
//	@Param			label	path		string	true	"Node label"
//	@Success		200		{object}	NeighborsResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/nodes/{label}/neighbors [get]
func (h *Handler) Neighbors(w http.ResponseWriter, r *http.Request) {
	label := chi.URLParam(r, "label")
	if decoded, err := url.PathUnescape(label); err == nil {
		label = decoded
	}
	node, nbrs, err := h.svc.Neighbors(r.Context(), label)
	if err != nil {
		writeError(w, "neighbors", err)
		return
	}
	if nbrs == nil {
		nbrs = []NodeView{}
	}
	writeJSON(w, http.StatusOK, NeighborsResponse{Node: node, Neighbors: nbrs})
}

// Search handles GET /api/search.
//
//	@Summary		Full-text search across document contents
//	@Tags			search
//	@Produce		json
//	@Param			q		query		string	true	"Search query"
//	@Param			limit	query		int		false	"Max results"
//	@Success		200		{object}	SearchResponse
//	@Failure		400		{object}	errResponse
//	@Failure		503		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/search [get]
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'q' is required"))
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	results, err := h.svc.Search(r.Context(), q, limit)
	if err != nil {
		writeError(w, "search", err)
		return
	}
	if results == nil {
		results = []index.SearchResult{}
	}
	writeJSON(w, http.StatusOK, SearchResponse{Results: results})
}

// Settings handles GET /api/settings.
func (h *Handler) Settings(w http.ResponseWriter, r *http.Request) {
	s, err := h.svc.Settings(r.Context())
	if err != nil {
		writeError(w, "settings", err)
		return
	}
	writeJSON(w, http.StatusOK, s)
}

// SetFilters handles PUT /api/settings/filters.
//
//	@Summary		Replace the node filters
//	@Tags			settings
//	@Accept			json
//	@Produce		json
//	@Param			body	body		classify.Filters	true	"Filters"
//	@Success		200		{object}	SettingsResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/settings/filters [put]
func (h *Handler) SetFilters(w http.ResponseWriter, r *http.Request) {
	var f classify.Filters
	if !decodeJSON(w, r, &f) {
		return
	}
	if err := h.svc.SetFilters(r.Context(), f); err != nil {
		writeError(w, "set filters", err)
		return
	}
	h.Settings(w, r)
}

// SetForces handles PUT /api/settings/forces.
//
//	@Summary		Replace the physics parameters
//	@Tags			settings
//	@Accept			json
//	@Produce		json
//	@Param			body	body		physics.Params	true	"Force parameters"
//	@Success		200		{object}	SettingsResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/settings/forces [put]
func (h *Handler) SetForces(w http.ResponseWriter, r *http.Request) {
	var p physics.Params
	if !decodeJSON(w, r, &p) {
		return
	}
	if err := p.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}
	if err := h.svc.SetForces(r.Context(), p); err != nil {
		writeError(w, "set forces", err)
		return
	}
	h.Settings(w, r)
}

// SetDisplay handles PUT /api/settings/display.
func (h *Handler) SetDisplay(w http.ResponseWriter, r *http.Request) {
	var d graphservice.Display
	if !decodeJSON(w, r, &d) {
		return
	}
	if err := h.svc.SetDisplay(r.Context(), d); err != nil {
		writeError(w, "set display", err)
		return
	}
	h.Settings(w, r)
}

// Pointer handles POST /api/pointer. Coordinates are in view pixels.
func (h *Handler) Pointer(w http.ResponseWriter, r *http.Request) {
	var p interaction.Pointer
	if !decodeJSON(w, r, &p) {
		return
	}
	if err := h.svc.SetPointer(r.Context(), p); err != nil {
		writeError(w, "pointer", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
