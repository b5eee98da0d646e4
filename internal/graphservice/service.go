// Package graphservice is the query and command surface shared by the HTTP
// API and the MCP server. It talks to the engine only through its Loop.
package graphservice

import (
	"bytes"
	"context"
	"fmt"

	"github.com/starford/vaultgraph/internal/apperr"
	"github.com/starford/vaultgraph/internal/classify"
	"github.com/starford/vaultgraph/internal/engine"
	"github.com/starford/vaultgraph/internal/graph"
	"github.com/starford/vaultgraph/internal/index"
	"github.com/starford/vaultgraph/internal/interaction"
	"github.com/starford/vaultgraph/internal/physics"
	"github.com/starford/vaultgraph/internal/render"
)

// DefaultSearchLimit caps search results when the caller passes no limit.
const DefaultSearchLimit = index.DefaultSearchLimit

// Searcher is the full-text side of the index.
type Searcher interface {
	Search(query string, limit int) ([]index.SearchResult, error)
}

// Display holds the settings that change which nodes exist.
type Display struct {
	TagNodes bool `json:"tag_nodes"`
}

// SettingsView is the JSON-friendly part of the engine settings.
type SettingsView struct {
	Filters classify.Filters `json:"filters"`
	Forces  physics.Params   `json:"forces"`
	Display Display          `json:"display"`
}

// Service coordinates the frame loop and the optional content index.
type Service struct {
	loop   *engine.Loop
	search Searcher
}

// NewService creates a new graph service. search may be nil when no index
// is configured.
func NewService(loop *engine.Loop, search Searcher) *Service {
	return &Service{loop: loop, search: search}
}

// Snapshot returns the latest published snapshot.
func (s *Service) Snapshot(_ context.Context) *engine.Snapshot {
	return s.loop.Snapshot()
}

// Stats returns graph statistics for the latest snapshot.
func (s *Service) Stats(_ context.Context) graph.Stats {
	return s.loop.Snapshot().Stats
}

// Find returns the nodes whose label contains query.
func (s *Service) Find(ctx context.Context, query string) ([]engine.NodeView, error) {
	var out []engine.NodeView
	err := s.loop.Do(ctx, func(e *engine.Engine) error {
		out = e.Find(query)
		return nil
	})
	return out, err
}

// Neighbors returns the node labelled label and its neighbors.
func (s *Service) Neighbors(ctx context.Context, label string) (engine.NodeView, []engine.NodeView, error) {
	var (
		node engine.NodeView
		nbrs []engine.NodeView
	)
	err := s.loop.Do(ctx, func(e *engine.Engine) error {
		var err error
		node, nbrs, err = e.Neighbors(label)
		return err
	})
	return node, nbrs, err
}

// Search runs a full-text query over document contents.
func (s *Service) Search(_ context.Context, query string, limit int) ([]index.SearchResult, error) {
	if s.search == nil {
		return nil, fmt.Errorf("graphservice: search: no index configured: %w", apperr.ErrUnavailable)
	}
	if query == "" {
		return nil, fmt.Errorf("graphservice: search: empty query: %w", apperr.ErrInvalidArgument)
	}
	if limit <= 0 {
		limit = DefaultSearchLimit
	}
	return s.search.Search(query, limit)
}

// Settings returns the active settings.
func (s *Service) Settings(ctx context.Context) (SettingsView, error) {
	var v SettingsView
	err := s.loop.Do(ctx, func(e *engine.Engine) error {
		cur := e.Settings()
		v = SettingsView{
			Filters: cur.Filters,
			Forces:  cur.Forces,
			Display: Display{TagNodes: cur.TagNodes},
		}
		return nil
	})
	return v, err
}

// SetFilters replaces the node filters.
func (s *Service) SetFilters(ctx context.Context, f classify.Filters) error {
	return s.loop.UpdateSettings(ctx, func(cur *engine.Settings) { cur.Filters = f })
}

// SetForces replaces the physics parameters.
func (s *Service) SetForces(ctx context.Context, p physics.Params) error {
	return s.loop.UpdateSettings(ctx, func(cur *engine.Settings) { cur.Forces = p })
}

// SetDisplay replaces the display settings. Toggling tag nodes rebuilds
// the graph.
func (s *Service) SetDisplay(ctx context.Context, d Display) error {
	return s.loop.UpdateSettings(ctx, func(cur *engine.Settings) { cur.TagNodes = d.TagNodes })
}

// Rebuild schedules a rescan of the vault.
func (s *Service) Rebuild(_ context.Context) {
	s.loop.RequestRebuild()
}

// SetPointer feeds pointer input to the next frame.
func (s *Service) SetPointer(ctx context.Context, p interaction.Pointer) error {
	return s.loop.SetPointer(ctx, p)
}

// Render draws the current layout. The image is produced on the loop
// goroutine and returned as bytes so slow readers never stall frames.
func (s *Service) Render(ctx context.Context, f render.Format, width, height int) ([]byte, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("graphservice: render: size %dx%d: %w", width, height, apperr.ErrInvalidArgument)
	}
	var buf bytes.Buffer
	err := s.loop.Do(ctx, func(e *engine.Engine) error {
		return e.WriteImage(&buf, f, width, height)
	})
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
