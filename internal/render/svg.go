package render

import (
	"fmt"
	"image/color"
	"io"
	"math"

	svg "github.com/ajstarks/svgo"
	"github.com/lucasb-eyer/go-colorful"
	"gonum.org/v1/gonum/spatial/r2"
)

// SVG draws onto an SVG document. Coordinates are rounded to whole pixels.
type SVG struct {
	canvas *svg.SVG
}

// NewSVG starts a document of the given size filled with bg.
func NewSVG(w io.Writer, width, height int, bg color.RGBA) *SVG {
	canvas := svg.New(w)
	canvas.Start(width, height)
	canvas.Rect(0, 0, width, height, "fill:"+css(bg))
	return &SVG{canvas: canvas}
}

func (s *SVG) Point(at r2.Vec, c color.RGBA, shape Shape, radius float64) {
	x, y, r := px(at.X), px(at.Y), max(1, px(radius))
	style := fill(c)
	switch shape {
	case Square:
		s.canvas.Rect(x-r, y-r, 2*r, 2*r, style)
	case Diamond:
		s.canvas.Polygon([]int{x, x + r, x, x - r}, []int{y - r, y, y + r, y}, style)
	default:
		s.canvas.Circle(x, y, r, style)
	}
}

func (s *SVG) Line(from, to r2.Vec, c color.RGBA, width float64) {
	s.canvas.Line(px(from.X), px(from.Y), px(to.X), px(to.Y),
		fmt.Sprintf("stroke:%s;stroke-opacity:%s;stroke-width:%g", css(c), opacity(c), width))
}

func (s *SVG) Text(at r2.Vec, c color.RGBA, text string) {
	s.canvas.Text(px(at.X), px(at.Y), text,
		fmt.Sprintf("fill:%s;fill-opacity:%s;font-size:11px;font-family:monospace;text-anchor:middle", css(c), opacity(c)))
}

// Close ends the document.
func (s *SVG) Close() error {
	s.canvas.End()
	return nil
}

func px(v float64) int { return int(math.Round(v)) }

func fill(c color.RGBA) string {
	return fmt.Sprintf("fill:%s;fill-opacity:%s", css(c), opacity(c))
}

// css returns the straight (non-premultiplied) color; alpha goes to the
// matching opacity property.
func css(c color.RGBA) string {
	cf, ok := colorful.MakeColor(c)
	if !ok {
		return "#000000"
	}
	return cf.Clamped().Hex()
}

func opacity(c color.RGBA) string {
	return fmt.Sprintf("%.2f", float64(c.A)/255)
}
