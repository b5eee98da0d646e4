package graph

import (
	"math"
	"sort"
	"strings"

	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/starford/vaultgraph/internal/models"
)

// InitialRadius is the radius of the circle new layouts start on.
const InitialRadius = 200.0

// Graph is the built node set with its edges and per-node degree.
type Graph struct {
	Nodes  []models.Node
	Edges  []models.Edge
	Degree []int

	undirected *simple.UndirectedGraph
}

// Stats summarises a graph.
type Stats struct {
	Nodes       int `json:"nodes"`
	Edges       int `json:"edges"`
	Documents   int `json:"documents"`
	Attachments int `json:"attachments"`
	Ghosts      int `json:"ghosts"`
	Tags        int `json:"tags"`
	Orphans     int `json:"orphans"`
	Components  int `json:"components"`
}

// Len returns the number of nodes.
func (g *Graph) Len() int { return len(g.Nodes) }

// view returns the undirected adjacency, built on first use.
func (g *Graph) view() *simple.UndirectedGraph {
	if g.undirected != nil {
		return g.undirected
	}
	u := simple.NewUndirectedGraph()
	for i := range g.Nodes {
		u.AddNode(simple.Node(int64(i)))
	}
	for _, e := range g.Edges {
		u.SetEdge(simple.Edge{F: simple.Node(int64(e.Source)), T: simple.Node(int64(e.Target))})
	}
	g.undirected = u
	return u
}

// Neighbors returns the indices adjacent to i in either direction, ascending.
func (g *Graph) Neighbors(i int) []int {
	if i < 0 || i >= len(g.Nodes) {
		return nil
	}
	it := g.view().From(int64(i))
	out := make([]int, 0, it.Len())
	for it.Next() {
		out = append(out, int(it.Node().ID()))
	}
	sort.Ints(out)
	return out
}

// Components returns the connected components, each sorted ascending, ordered
// by their smallest index.
func (g *Graph) Components() [][]int {
	cc := topo.ConnectedComponents(g.view())
	out := make([][]int, 0, len(cc))
	for _, comp := range cc {
		ids := make([]int, len(comp))
		for j, n := range comp {
			ids[j] = int(n.ID())
		}
		sort.Ints(ids)
		out = append(out, ids)
	}
	sort.Slice(out, func(a, b int) bool { return out[a][0] < out[b][0] })
	return out
}

// Find returns the first node whose label matches name case-insensitively.
func (g *Graph) Find(name string) (int, bool) {
	key := NameKey(name)
	for i := range g.Nodes {
		if NameKey(g.Nodes[i].Label) == key {
			return i, true
		}
	}
	return 0, false
}

// Search returns the indices of nodes whose label contains query
// case-insensitively.
func (g *Graph) Search(query string) []int {
	q := strings.ToLower(query)
	var out []int
	for i := range g.Nodes {
		if strings.Contains(strings.ToLower(g.Nodes[i].Label), q) {
			out = append(out, i)
		}
	}
	return out
}

// Stats counts nodes by kind, orphans and components.
func (g *Graph) Stats() Stats {
	s := Stats{Nodes: len(g.Nodes), Edges: len(g.Edges)}
	for i := range g.Nodes {
		switch g.Nodes[i].Kind {
		case models.KindDocument:
			s.Documents++
		case models.KindAttachment:
			s.Attachments++
		case models.KindGhost:
			s.Ghosts++
		case models.KindTag:
			s.Tags++
		}
		if g.Degree[i] == 0 {
			s.Orphans++
		}
	}
	if len(g.Nodes) > 0 {
		s.Components = len(g.Components())
	}
	return s
}

// InitialLayout spreads n points evenly on a circle of the given radius.
// Point i sits at angle 2π/n·i, so no two points coincide for n > 1.
func InitialLayout(n int, radius float64) []r2.Vec {
	out := make([]r2.Vec, n)
	if n == 0 {
		return out
	}
	step := 2 * math.Pi / float64(n)
	for i := range out {
		a := step * float64(i)
		out[i] = r2.Vec{X: radius * math.Cos(a), Y: radius * math.Sin(a)}
	}
	return out
}
