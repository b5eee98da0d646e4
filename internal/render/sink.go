// Package render defines the draw-primitive sink the layout engine emits
// into and its SVG, PNG and in-memory implementations.
package render

import (
	"fmt"
	"image/color"
	"io"
	"strings"

	"gonum.org/v1/gonum/spatial/r2"
)

// Shape is the outline a node is drawn with.
type Shape int

// Node shapes.
const (
	Circle Shape = iota
	Square
	Diamond
)

func (s Shape) String() string {
	switch s {
	case Square:
		return "square"
	case Diamond:
		return "diamond"
	default:
		return "circle"
	}
}

// Sink receives screen-space draw primitives.
type Sink interface {
	Point(at r2.Vec, c color.RGBA, shape Shape, radius float64)
	Line(from, to r2.Vec, c color.RGBA, width float64)
	Text(at r2.Vec, c color.RGBA, s string)
}

// Canvas is a Sink backed by an output that must be finalised with Close.
type Canvas interface {
	Sink
	Close() error
}

// Format names an output encoding.
type Format string

// Supported formats.
const (
	FormatSVG Format = "svg"
	FormatPNG Format = "png"
)

// ContentType returns the MIME type of f.
func (f Format) ContentType() string {
	if f == FormatPNG {
		return "image/png"
	}
	return "image/svg+xml"
}

// ParseFormat accepts "svg" or "png" in any case.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(s)); f {
	case FormatSVG, FormatPNG:
		return f, nil
	}
	return "", fmt.Errorf("render: unknown format %q", s)
}

// New returns a canvas of the given size that writes f to w on Close.
func New(f Format, w io.Writer, width, height int, bg color.RGBA) (Canvas, error) {
	switch f {
	case FormatSVG:
		return NewSVG(w, width, height, bg), nil
	case FormatPNG:
		return NewPNG(w, width, height, bg), nil
	}
	return nil, fmt.Errorf("render: unknown format %q", f)
}

// OpKind distinguishes recorded primitives.
type OpKind int

// Recorded primitive kinds.
const (
	OpPoint OpKind = iota
	OpLine
	OpText
)

// Op is one recorded primitive. Fields not used by its kind are zero.
type Op struct {
	Kind  OpKind
	At    r2.Vec
	To    r2.Vec
	Color color.RGBA
	Shape Shape
	Size  float64
	Label string
}

// Recorder keeps every primitive in memory.
type Recorder struct {
	Ops []Op
}

func (r *Recorder) Point(at r2.Vec, c color.RGBA, shape Shape, radius float64) {
	r.Ops = append(r.Ops, Op{Kind: OpPoint, At: at, Color: c, Shape: shape, Size: radius})
}

func (r *Recorder) Line(from, to r2.Vec, c color.RGBA, width float64) {
	r.Ops = append(r.Ops, Op{Kind: OpLine, At: from, To: to, Color: c, Size: width})
}

func (r *Recorder) Text(at r2.Vec, c color.RGBA, s string) {
	r.Ops = append(r.Ops, Op{Kind: OpText, At: at, Color: c, Label: s})
}

// Filter returns the recorded ops of kind k in order.
func (r *Recorder) Filter(k OpKind) []Op {
	var out []Op
	for _, op := range r.Ops {
		if op.Kind == k {
			out = append(out, op)
		}
	}
	return out
}

// Reset drops all recorded ops.
func (r *Recorder) Reset() { r.Ops = r.Ops[:0] }
