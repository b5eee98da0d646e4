package engine

import (
	"github.com/starford/vaultgraph/internal/classify"
	"github.com/starford/vaultgraph/internal/graph"
	"github.com/starford/vaultgraph/internal/models"
)

// NodeView is the read-only projection of one node.
type NodeView struct {
	Index   int      `json:"index"`
	Label   string   `json:"label"`
	Kind    string   `json:"kind"`
	Tags    []string `json:"tags,omitempty"`
	Path    string   `json:"path,omitempty"`
	X       float64  `json:"x"`
	Y       float64  `json:"y"`
	Color   string   `json:"color"`
	Visible bool     `json:"visible"`
	Degree  int      `json:"degree"`
}

// Snapshot is an immutable copy of the engine state, safe to share between
// goroutines.
type Snapshot struct {
	Version uint64        `json:"version"`
	Frame   uint64        `json:"frame"`
	Nodes   []NodeView    `json:"nodes"`
	Edges   []models.Edge `json:"edges"`
	Stats   graph.Stats   `json:"stats"`
	Skipped int           `json:"skipped"`
}

// Snapshot copies the current state.
func (e *Engine) Snapshot() *Snapshot {
	visible := e.Visible()
	s := &Snapshot{
		Version: e.version,
		Frame:   e.frame,
		Nodes:   make([]NodeView, e.graph.Len()),
		Edges:   append([]models.Edge(nil), e.graph.Edges...),
		Stats:   e.stats,
		Skipped: e.skipped,
	}
	for i := range e.graph.Nodes {
		s.Nodes[i] = e.view(i, visible)
	}
	return s
}

func (e *Engine) view(i int, visible []bool) NodeView {
	n := &e.graph.Nodes[i]
	p := e.sim.Position(i)
	return NodeView{
		Index:   i,
		Label:   n.Label,
		Kind:    n.Kind.String(),
		Tags:    n.Tags,
		Path:    n.RelativePath,
		X:       p.X,
		Y:       p.Y,
		Color:   classify.Hex(e.resolver.Color(i, n)),
		Visible: visible[i],
		Degree:  e.graph.Degree[i],
	}
}

// Find returns the first node labelled label, case-insensitively.
func (s *Snapshot) Find(label string) (NodeView, bool) {
	key := graph.NameKey(label)
	for _, n := range s.Nodes {
		if graph.NameKey(n.Label) == key {
			return n, true
		}
	}
	return NodeView{}, false
}
