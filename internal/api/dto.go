package api

import (
	"github.com/starford/vaultgraph/internal/engine"
	"github.com/starford/vaultgraph/internal/graphservice"
	"github.com/starford/vaultgraph/internal/index"
)

// GraphResponse is the full graph snapshot (aliased from the engine).
type GraphResponse = engine.Snapshot

// NodeView is one node in a response (aliased from the engine).
type NodeView = engine.NodeView

// SettingsResponse is the current settings (aliased from the service layer).
type SettingsResponse = graphservice.SettingsView

// NeighborsResponse is a node and its neighbors.
type NeighborsResponse struct {
	Node      NodeView   `json:"node" validate:"required"`
	Neighbors []NodeView `json:"neighbors" validate:"required"`
}

// NodesResponse wraps a node search.
type NodesResponse struct {
	Nodes []NodeView `json:"nodes" validate:"required"`
}

// SearchResponse wraps content search results.
type SearchResponse struct {
	Results []index.SearchResult `json:"results" validate:"required"`
}

// RebuildResponse acknowledges a scheduled rebuild.
type RebuildResponse struct {
	Status  string `json:"status" example:"scheduled" validate:"required"`
	Version uint64 `json:"version" example:"3" validate:"required"`
}
