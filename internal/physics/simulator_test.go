package physics

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/spatial/r2"
	"pgregory.net/rapid"

	"github.com/starford/vaultgraph/internal/graph"
	"github.com/starford/vaultgraph/internal/models"
)

const dt = 1.0 / 60

func entry(label string, tags []string, links ...string) models.Entry {
	return models.Entry{Kind: models.KindDocument, Label: label, Tags: tags, Links: links}
}

func sample() *graph.Graph {
	return graph.Build([]models.Entry{
		entry("A", []string{"x"}, "B", "C"),
		entry("B", []string{"x"}, "C"),
		entry("C", []string{"y"}, "Ghost"),
		entry("D", nil),
	}, graph.Options{TagNodes: true})
}

func TestReset(t *testing.T) {
	g := sample()
	s := New(DefaultParams())
	s.Reset(g)

	if s.Len() != g.Len() || len(s.Velocities()) != g.Len() {
		t.Fatalf("len = %d/%d, nodes %d", s.Len(), len(s.Velocities()), g.Len())
	}
	want := graph.InitialLayout(g.Len(), graph.InitialRadius)
	for i, p := range s.Positions() {
		if p != want[i] {
			t.Errorf("pos[%d] = %v, want %v", i, p, want[i])
		}
		if s.Velocities()[i] != (r2.Vec{}) {
			t.Errorf("vel[%d] not zero", i)
		}
	}
	if _, ok := s.Dragged(); ok {
		t.Error("reset should release the dragged node")
	}
}

func TestStep_EmptyGraph(t *testing.T) {
	s := New(DefaultParams())
	s.Reset(graph.Build(nil, graph.Options{}))
	s.Step(dt, nil)
	if s.Len() != 0 {
		t.Fatalf("len = %d", s.Len())
	}
}

func TestStep_DraggedNodeFollowsPointer(t *testing.T) {
	s := New(DefaultParams())
	s.Reset(sample())
	const i = 1
	s.SetDragged(i)

	for step := 0; step < 10; step++ {
		pointer := r2.Vec{X: float64(step * 7), Y: -float64(step * 3)}
		s.Pin(i, pointer)
		s.Step(dt, nil)
		if s.Velocities()[i] != (r2.Vec{}) {
			t.Fatalf("step %d: velocity = %v", step, s.Velocities()[i])
		}
		if s.Position(i) != pointer {
			t.Fatalf("step %d: position = %v, want %v", step, s.Position(i), pointer)
		}
	}

	s.SetDragged(-1)
	s.Step(dt, nil)
	if _, ok := s.Dragged(); ok {
		t.Error("node still dragged after release")
	}
}

func TestStep_NonFiniteVelocityHeals(t *testing.T) {
	s := New(DefaultParams())
	s.Reset(sample())
	s.vel[0] = r2.Vec{X: math.NaN(), Y: 1}
	s.vel[1] = r2.Vec{X: math.Inf(1), Y: 0}
	s.vel[2] = r2.Vec{X: math.NaN(), Y: math.NaN()}

	visible := make([]bool, s.Len())
	for i := range visible {
		visible[i] = i != 2
	}
	s.Step(dt, visible)

	for i, v := range s.Velocities() {
		if !finite(v) {
			t.Errorf("vel[%d] = %v still non-finite", i, v)
		}
	}
	for i, p := range s.Positions() {
		if !finite(p) {
			t.Errorf("pos[%d] = %v non-finite", i, p)
		}
	}
}

func TestStep_HiddenNodesStayPut(t *testing.T) {
	s := New(DefaultParams())
	s.Reset(sample())
	before := s.Position(3)
	visible := make([]bool, s.Len())
	for i := range visible {
		visible[i] = i != 3
	}
	for range 20 {
		s.Step(dt, visible)
	}
	if s.Position(3) != before {
		t.Errorf("hidden node moved from %v to %v", before, s.Position(3))
	}
}

func TestRepulsion(t *testing.T) {
	s := New(DefaultParams())
	s.Reset(graph.Build([]models.Entry{entry("a", nil), entry("b", nil)}, graph.Options{}))

	s.pos[0], s.pos[1] = r2.Vec{X: 10}, r2.Vec{}
	f := s.repulsion(0, 1)
	if want := s.Params.Repel / 100; math.Abs(f.X-want) > 1e-9 || f.Y != 0 {
		t.Errorf("repulsion = %v, want (%v, 0)", f, want)
	}

	s.pos[0] = r2.Vec{X: 200}
	if f := s.repulsion(0, 1); f != (r2.Vec{}) {
		t.Errorf("beyond cutoff = %v", f)
	}

	s.pos[0] = r2.Vec{X: 0.01}
	if f := s.repulsion(0, 1); f != (r2.Vec{X: s.Params.Repel, Y: s.Params.Repel}) {
		t.Errorf("near-coincident = %v", f)
	}

	s.isTag[1] = true
	s.pos[0] = r2.Vec{X: 10}
	if f := s.repulsion(0, 1); math.Abs(f.X-2*s.Params.Repel/100) > 1e-9 {
		t.Errorf("tag repulsion = %v", f)
	}
}

func TestLimit(t *testing.T) {
	s := New(DefaultParams())
	if v := s.limit(r2.Vec{X: 6000}); math.Abs(r2.Norm(v)-s.Params.MaxSpeed) > 1e-9 {
		t.Errorf("clamped speed = %v", r2.Norm(v))
	}
	if v := s.limit(r2.Vec{X: 0.1, Y: 0.1}); v != (r2.Vec{}) {
		t.Errorf("slow velocity = %v, want zero", v)
	}
	if v := s.limit(r2.Vec{X: 3, Y: 4}); v != (r2.Vec{X: 3, Y: 4}) {
		t.Errorf("in-range velocity changed: %v", v)
	}
}

func TestStep_LinkedNodesAttract(t *testing.T) {
	p := DefaultParams()
	p.Center, p.Group, p.Repel = 0, 0, 0
	s := New(p)
	s.Reset(graph.Build([]models.Entry{entry("a", nil, "b"), entry("b", nil)}, graph.Options{}))
	before := r2.Norm(r2.Sub(s.pos[0], s.pos[1]))
	for range 30 {
		s.Step(dt, nil)
	}
	if after := r2.Norm(r2.Sub(s.pos[0], s.pos[1])); after >= before {
		t.Errorf("distance %v -> %v, want closer", before, after)
	}
}

func TestStep_Properties(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(0, 12).Draw(t, "n")
		labels := []string{"a", "b", "c", "d", "e", "f", "g", "h", "i", "j", "k", "l"}
		entries := make([]models.Entry, n)
		for i := range entries {
			links := rapid.SliceOfN(rapid.SampledFrom(labels), 0, 3).Draw(t, "links")
			tags := rapid.SliceOfN(rapid.SampledFrom([]string{"x", "y", "z"}), 0, 2).Draw(t, "tags")
			entries[i] = entry(labels[i], tags, links...)
		}
		g := graph.Build(entries, graph.Options{TagNodes: rapid.Bool().Draw(t, "tagNodes")})

		p := DefaultParams()
		p.Repel = rapid.Float64Range(0, 1e6).Draw(t, "repel")
		p.Link = rapid.Float64Range(0, 5).Draw(t, "link")
		s := New(p)
		s.Reset(g)
		if g.Len() > 0 && rapid.Bool().Draw(t, "drag") {
			s.SetDragged(rapid.IntRange(0, g.Len()-1).Draw(t, "dragged"))
		}

		steps := rapid.IntRange(1, 40).Draw(t, "steps")
		for range steps {
			s.Step(dt, nil)
			if s.Len() != g.Len() || len(s.Velocities()) != g.Len() {
				t.Fatalf("lengths %d/%d, nodes %d", s.Len(), len(s.Velocities()), g.Len())
			}
			for i, v := range s.Velocities() {
				if !finite(v) {
					t.Fatalf("vel[%d] non-finite", i)
				}
				if r2.Norm(v) > p.MaxSpeed*(1+1e-9) {
					t.Fatalf("vel[%d] speed %v exceeds %v", i, r2.Norm(v), p.MaxSpeed)
				}
			}
		}
	})
}

func TestParamsValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Params)
		wantErr bool
	}{
		{"defaults", func(*Params) {}, false},
		{"negative repel", func(p *Params) { p.Repel = -1 }, true},
		{"damping above one", func(p *Params) { p.Damping = 1.5 }, true},
		{"zero max speed", func(p *Params) { p.MaxSpeed = 0 }, true},
		{"min speed not below max", func(p *Params) { p.MinSpeed = p.MaxSpeed }, true},
		{"no springs", func(p *Params) { p.Link = 0 }, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := DefaultParams()
			tt.mutate(&p)
			if err := p.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
