// Package physics runs the force-directed layout: center gravity, per-tag
// clustering, pairwise repulsion and edge springs.
package physics

import (
	"math"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/starford/vaultgraph/internal/graph"
	"github.com/starford/vaultgraph/internal/models"
)

const (
	// RepelCutoff is the squared distance beyond which pairs do not repel.
	RepelCutoff = 25000.0
	// nearFloor is the squared distance below which pairs get a fixed push.
	nearFloor = 0.01
	// tagRepelMultiplier scales repulsion when either node is a tag node.
	tagRepelMultiplier = 2.0
)

// Params are the force coefficients and integration limits.
type Params struct {
	Center   float64 `json:"center" yaml:"center"`
	Repel    float64 `json:"repel" yaml:"repel"`
	Link     float64 `json:"link" yaml:"link"`
	Group    float64 `json:"group" yaml:"group"`
	Tag      float64 `json:"tag" yaml:"tag"`
	Damping  float64 `json:"damping" yaml:"damping"`
	MaxSpeed float64 `json:"max_speed" yaml:"max_speed"`
	MinSpeed float64 `json:"min_speed" yaml:"min_speed"`
}

// DefaultParams returns coefficients that settle a few hundred nodes.
func DefaultParams() Params {
	return Params{
		Center:   0.05,
		Repel:    5000,
		Link:     0.05,
		Group:    0.02,
		Tag:      1.5,
		Damping:  0.9,
		MaxSpeed: 600,
		MinSpeed: 0.5,
	}
}

// Validate checks that coefficients are non-negative, damping is a
// fraction and the speed limits are ordered.
func (p Params) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.Center, validation.Min(0.0)),
		validation.Field(&p.Repel, validation.Min(0.0)),
		validation.Field(&p.Link, validation.Min(0.0)),
		validation.Field(&p.Group, validation.Min(0.0)),
		validation.Field(&p.Tag, validation.Min(0.0)),
		validation.Field(&p.Damping, validation.Min(0.0), validation.Max(1.0)),
		validation.Field(&p.MaxSpeed, validation.Required, validation.Min(0.0)),
		validation.Field(&p.MinSpeed, validation.Min(0.0), validation.Max(p.MaxSpeed).Exclusive()),
	)
}

// Simulator holds positions and velocities parallel to a graph's nodes.
// It is not safe for concurrent use.
type Simulator struct {
	Params Params

	pos     []r2.Vec
	vel     []r2.Vec
	force   []r2.Vec
	isTag   []bool
	primary []string
	edges   []models.Edge
	dragged int
}

// New returns an empty simulator.
func New(p Params) *Simulator {
	return &Simulator{Params: p, dragged: -1}
}

// Reset discards all state and lays g's nodes out on a circle with zero
// velocity. It must be called after every rebuild.
func (s *Simulator) Reset(g *graph.Graph) {
	n := g.Len()
	s.pos = graph.InitialLayout(n, graph.InitialRadius)
	s.vel = make([]r2.Vec, n)
	s.force = make([]r2.Vec, n)
	s.isTag = make([]bool, n)
	s.primary = make([]string, n)
	for i := range g.Nodes {
		s.isTag[i] = g.Nodes[i].IsTag()
		s.primary[i] = g.Nodes[i].PrimaryTag()
	}
	s.edges = g.Edges
	s.dragged = -1
}

// Len returns the number of simulated nodes.
func (s *Simulator) Len() int { return len(s.pos) }

// Positions returns the live position slice. Callers must not retain it
// across Step or Reset.
func (s *Simulator) Positions() []r2.Vec { return s.pos }

// Velocities returns the live velocity slice.
func (s *Simulator) Velocities() []r2.Vec { return s.vel }

// Position returns the position of node i.
func (s *Simulator) Position(i int) r2.Vec { return s.pos[i] }

// Dragged returns the dragged node, if any.
func (s *Simulator) Dragged() (int, bool) { return s.dragged, s.dragged >= 0 }

// SetDragged marks node i as dragged; a negative i releases it.
func (s *Simulator) SetDragged(i int) {
	if i >= len(s.pos) {
		i = -1
	}
	s.dragged = i
}

// Pin places node i at p and stops it.
func (s *Simulator) Pin(i int, p r2.Vec) {
	if i < 0 || i >= len(s.pos) {
		return
	}
	s.pos[i] = p
	s.vel[i] = r2.Vec{}
}

// Step advances the layout by dt. visible masks the nodes that take part;
// nil means all. Step never fails: non-finite velocities are zeroed.
func (s *Simulator) Step(dt float64, visible []bool) {
	n := len(s.pos)
	if n == 0 {
		return
	}
	shown := func(i int) bool { return visible == nil || (i < len(visible) && visible[i]) }
	p := s.Params

	type acc struct {
		sum   r2.Vec
		count int
	}
	groups := make(map[string]*acc)
	for i := 0; i < n; i++ {
		if !shown(i) || s.isTag[i] {
			continue
		}
		a := groups[s.primary[i]]
		if a == nil {
			a = &acc{}
			groups[s.primary[i]] = a
		}
		a.sum = r2.Add(a.sum, s.pos[i])
		a.count++
	}

	for i := 0; i < n; i++ {
		s.force[i] = r2.Vec{}
		if !shown(i) || i == s.dragged {
			continue
		}
		pi := s.pos[i]
		f := r2.Scale(-p.Center, pi)
		if a := groups[s.primary[i]]; a != nil && !s.isTag[i] {
			centroid := r2.Scale(1/float64(a.count), a.sum)
			f = r2.Add(f, r2.Scale(p.Group, r2.Sub(centroid, pi)))
		}
		for j := 0; j < n; j++ {
			if j == i || !shown(j) {
				continue
			}
			f = r2.Add(f, s.repulsion(i, j))
		}
		s.force[i] = f
	}

	for _, e := range s.edges {
		if !shown(e.Source) || !shown(e.Target) {
			continue
		}
		k := p.Link
		if s.isTag[e.Source] || s.isTag[e.Target] {
			k *= p.Tag
		}
		// |delta|·k along the unit direction is delta·k.
		pull := r2.Scale(k, r2.Sub(s.pos[e.Target], s.pos[e.Source]))
		if e.Source != s.dragged {
			s.force[e.Source] = r2.Add(s.force[e.Source], pull)
		}
		if e.Target != s.dragged {
			s.force[e.Target] = r2.Sub(s.force[e.Target], pull)
		}
	}

	for i := 0; i < n; i++ {
		if i == s.dragged {
			s.vel[i] = r2.Vec{}
			continue
		}
		if !finite(s.pos[i]) {
			s.pos[i] = r2.Vec{}
			s.vel[i] = r2.Vec{}
		}
		if !shown(i) {
			if !finite(s.vel[i]) {
				s.vel[i] = r2.Vec{}
			}
			continue
		}
		s.vel[i] = s.limit(r2.Scale(p.Damping, r2.Add(s.vel[i], s.force[i])))
		s.pos[i] = r2.Add(s.pos[i], r2.Scale(dt, s.vel[i]))
	}
}

func (s *Simulator) repulsion(i, j int) r2.Vec {
	delta := r2.Sub(s.pos[i], s.pos[j])
	d2 := r2.Norm2(delta)
	if d2 > RepelCutoff {
		return r2.Vec{}
	}
	if d2 < nearFloor {
		return r2.Vec{X: s.Params.Repel, Y: s.Params.Repel}
	}
	mult := 1.0
	if s.isTag[i] || s.isTag[j] {
		mult = tagRepelMultiplier
	}
	return r2.Scale(s.Params.Repel*mult/d2, r2.Unit(delta))
}

// limit zeroes non-finite and too-slow velocities and clamps fast ones.
func (s *Simulator) limit(v r2.Vec) r2.Vec {
	if !finite(v) {
		return r2.Vec{}
	}
	speed := r2.Norm(v)
	if speed > s.Params.MaxSpeed {
		v = r2.Scale(s.Params.MaxSpeed/speed, v)
		speed = s.Params.MaxSpeed
	}
	if speed < s.Params.MinSpeed {
		return r2.Vec{}
	}
	return v
}

func finite(v r2.Vec) bool {
	return !math.IsNaN(v.X) && !math.IsNaN(v.Y) && !math.IsInf(v.X, 0) && !math.IsInf(v.Y, 0)
}
