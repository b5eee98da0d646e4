package interaction

import (
	"image/color"
	"math"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/starford/vaultgraph/internal/classify"
	"github.com/starford/vaultgraph/internal/graph"
	"github.com/starford/vaultgraph/internal/models"
	"github.com/starford/vaultgraph/internal/physics"
	"github.com/starford/vaultgraph/internal/render"
)

const (
	// DefaultTolerance is the extra hit radius in screen pixels.
	DefaultTolerance = 4.0

	arrowLength = 8.0
	arrowAngle  = math.Pi / 7
	labelGap    = 12.0
	dimFactor   = 0.25
)

// Pointer is the input for one frame, in screen coordinates.
type Pointer struct {
	Pos r2.Vec `json:"pos"`
	// Inside is false when the pointer is outside the view; no hover then.
	Inside bool `json:"inside"`
	// Down reports whether the primary button is held.
	Down bool `json:"down"`
	// Pressed and Released are edges observed this frame.
	Pressed       bool    `json:"pressed"`
	Released      bool    `json:"released"`
	DoubleClicked bool    `json:"double_clicked"`
	Scroll        float64 `json:"scroll"`
}

// Scene is the state a frame reads.
type Scene struct {
	Graph    *graph.Graph
	Sim      *physics.Simulator
	Visible  []bool
	Resolver *classify.Resolver
}

func (s Scene) visible(i int) bool {
	return s.Visible == nil || (i < len(s.Visible) && s.Visible[i])
}

// Controller turns pointer input into drag, activation and hover state.
// It is not safe for concurrent use.
type Controller struct {
	Camera    Camera
	Tolerance float64
	// OnActivate receives the absolute path of a double-clicked document.
	OnActivate func(absPath string)

	hovered   int
	connected map[int]struct{}
}

// NewController returns a controller with no hover and the given camera.
func NewController(cam Camera, onActivate func(absPath string)) *Controller {
	return &Controller{
		Camera:     cam,
		Tolerance:  DefaultTolerance,
		OnActivate: onActivate,
		hovered:    -1,
	}
}

// Reset clears hover state. Call it after a rebuild.
func (c *Controller) Reset() {
	c.hovered = -1
	c.connected = nil
}

// Hovered returns the node under the pointer, if any.
func (c *Controller) Hovered() (int, bool) { return c.hovered, c.hovered >= 0 }

// Connected reports whether i is the hovered node or one of its neighbors.
// It is true for every node when nothing is hovered.
func (c *Controller) Connected(i int) bool {
	if c.connected == nil {
		return true
	}
	_, ok := c.connected[i]
	return ok
}

// Radius returns the world-space radius of node i.
func Radius(style classify.Style, n *models.Node, degree int) float64 {
	if n.IsTag() {
		return style.NodeSize + 2*math.Sqrt(float64(degree))
	}
	return style.NodeSize
}

// ShapeOf returns the shape node n is drawn with.
func ShapeOf(n *models.Node) render.Shape {
	switch n.Kind {
	case models.KindAttachment:
		return render.Square
	case models.KindTag:
		return render.Diamond
	default:
		return render.Circle
	}
}

// HitTest returns the visible node whose disc, widened by Tolerance,
// contains the screen point. Overlaps resolve to the node drawn last.
func (c *Controller) HitTest(s Scene, screen r2.Vec) (int, bool) {
	style := s.Resolver.Style()
	pos := s.Sim.Positions()
	for i := len(pos) - 1; i >= 0; i-- {
		if !s.visible(i) {
			continue
		}
		r := Radius(style, &s.Graph.Nodes[i], s.Graph.Degree[i])*c.Camera.Zoom + c.Tolerance
		if r2.Norm2(r2.Sub(c.Camera.ToScreen(pos[i]), screen)) <= r*r {
			return i, true
		}
	}
	return -1, false
}

// Update applies one frame of pointer input.
func (c *Controller) Update(p Pointer, s Scene) {
	if p.Scroll != 0 {
		c.Camera = c.Camera.ZoomAt(p.Pos, math.Pow(1.1, p.Scroll))
	}

	hit, ok := -1, false
	if p.Inside {
		hit, ok = c.HitTest(s, p.Pos)
	}

	if p.Pressed && ok {
		s.Sim.SetDragged(hit)
	}
	if dragged, dragging := s.Sim.Dragged(); dragging {
		if p.Released || !p.Down {
			s.Sim.SetDragged(-1)
		} else {
			s.Sim.Pin(dragged, c.Camera.ToWorld(p.Pos))
			hit, ok = dragged, true
		}
	}

	if p.DoubleClicked && ok && s.Graph.Nodes[hit].Kind == models.KindDocument && c.OnActivate != nil {
		c.OnActivate(s.Graph.Nodes[hit].AbsolutePath)
	}

	c.setHover(s.Graph, hit, ok)
}

func (c *Controller) setHover(g *graph.Graph, i int, ok bool) {
	if !ok {
		c.Reset()
		return
	}
	if i == c.hovered && c.connected != nil {
		return
	}
	c.hovered = i
	c.connected = map[int]struct{}{i: {}}
	for _, j := range g.Neighbors(i) {
		c.connected[j] = struct{}{}
	}
}

// Draw emits edges, arrowheads, nodes and labels for the visible nodes.
func (c *Controller) Draw(sink render.Sink, s Scene) {
	style := s.Resolver.Style()
	pos := s.Sim.Positions()
	g := s.Graph

	for _, e := range g.Edges {
		if !s.visible(e.Source) || !s.visible(e.Target) {
			continue
		}
		col := style.Edge
		if c.hovered >= 0 && e.Source != c.hovered && e.Target != c.hovered {
			col = dim(col)
		}
		from, to := c.Camera.ToScreen(pos[e.Source]), c.Camera.ToScreen(pos[e.Target])
		sink.Line(from, to, col, style.LineThickness)
		if style.Arrows {
			r := Radius(style, &g.Nodes[e.Target], g.Degree[e.Target]) * c.Camera.Zoom
			c.drawArrow(sink, from, to, r, col, style.LineThickness)
		}
	}

	showAll := c.Camera.Zoom >= style.ZoomThreshold
	for i := range g.Nodes {
		if !s.visible(i) {
			continue
		}
		n := &g.Nodes[i]
		col := s.Resolver.Color(i, n)
		if !c.Connected(i) {
			col = dim(col)
		}
		at := c.Camera.ToScreen(pos[i])
		r := Radius(style, n, g.Degree[i]) * c.Camera.Zoom
		sink.Point(at, col, ShapeOf(n), r)

		if showAll || (c.hovered >= 0 && c.Connected(i)) {
			text := style.Text
			if !c.Connected(i) {
				text = dim(text)
			}
			sink.Text(r2.Add(at, r2.Vec{Y: r + labelGap}), text, n.Label)
		}
	}
}

// drawArrow draws a two-stroke head whose tip touches the target's rim.
func (c *Controller) drawArrow(sink render.Sink, from, to r2.Vec, targetRadius float64, col color.RGBA, width float64) {
	d := r2.Sub(to, from)
	if r2.Norm(d) <= targetRadius {
		return
	}
	u := r2.Unit(d)
	tip := r2.Sub(to, r2.Scale(targetRadius, u))
	back := r2.Scale(-arrowLength, u)
	sink.Line(tip, r2.Add(tip, rotate(back, arrowAngle)), col, width)
	sink.Line(tip, r2.Add(tip, rotate(back, -arrowAngle)), col, width)
}

func rotate(v r2.Vec, a float64) r2.Vec {
	sin, cos := math.Sincos(a)
	return r2.Vec{X: v.X*cos - v.Y*sin, Y: v.X*sin + v.Y*cos}
}

// dim fades a premultiplied color.
func dim(c color.RGBA) color.RGBA {
	return color.RGBA{
		R: uint8(float64(c.R) * dimFactor),
		G: uint8(float64(c.G) * dimFactor),
		B: uint8(float64(c.B) * dimFactor),
		A: uint8(float64(c.A) * dimFactor),
	}
}
