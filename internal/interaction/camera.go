// Package interaction maps pointer input onto the layout (hit testing,
// dragging, activation, hover emphasis) and draws frames into a render sink.
package interaction

import (
	"math"

	"gonum.org/v1/gonum/spatial/r2"
)

const (
	minZoom = 0.05
	maxZoom = 8
)

// Camera maps world coordinates to screen: screen = world·Zoom + Offset.
type Camera struct {
	Offset r2.Vec  `json:"offset"`
	Zoom   float64 `json:"zoom"`
}

// Centered returns a unit-zoom camera with the world origin at the middle of
// a width×height screen.
func Centered(width, height float64) Camera {
	return Camera{Offset: r2.Vec{X: width / 2, Y: height / 2}, Zoom: 1}
}

// ToScreen converts a world position.
func (c Camera) ToScreen(p r2.Vec) r2.Vec {
	return r2.Add(r2.Scale(c.Zoom, p), c.Offset)
}

// ToWorld converts a screen position.
func (c Camera) ToWorld(p r2.Vec) r2.Vec {
	return r2.Scale(1/c.Zoom, r2.Sub(p, c.Offset))
}

// ZoomAt scales by factor keeping the world point under screen fixed.
func (c Camera) ZoomAt(screen r2.Vec, factor float64) Camera {
	anchor := c.ToWorld(screen)
	c.Zoom = math.Min(maxZoom, math.Max(minZoom, c.Zoom*factor))
	c.Offset = r2.Sub(screen, r2.Scale(c.Zoom, anchor))
	return c
}

// Fit returns a camera that frames the visible points inside a
// width×height screen with margin pixels on every side. A nil mask means
// every point counts; with nothing to frame the result is Centered.
func Fit(points []r2.Vec, visible []bool, width, height, margin float64) Camera {
	lo := r2.Vec{X: math.Inf(1), Y: math.Inf(1)}
	hi := r2.Vec{X: math.Inf(-1), Y: math.Inf(-1)}
	found := false
	for i, p := range points {
		if visible != nil && (i >= len(visible) || !visible[i]) {
			continue
		}
		lo = r2.Vec{X: math.Min(lo.X, p.X), Y: math.Min(lo.Y, p.Y)}
		hi = r2.Vec{X: math.Max(hi.X, p.X), Y: math.Max(hi.Y, p.Y)}
		found = true
	}
	if !found {
		return Centered(width, height)
	}

	span := r2.Sub(hi, lo)
	zoom := 1.0
	availW, availH := width-2*margin, height-2*margin
	switch {
	case span.X > 0 && span.Y > 0:
		zoom = math.Min(availW/span.X, availH/span.Y)
	case span.X > 0:
		zoom = availW / span.X
	case span.Y > 0:
		zoom = availH / span.Y
	}
	zoom = math.Min(maxZoom, math.Max(minZoom, zoom))

	mid := r2.Scale(0.5, r2.Add(lo, hi))
	return Camera{
		Offset: r2.Sub(r2.Vec{X: width / 2, Y: height / 2}, r2.Scale(zoom, mid)),
		Zoom:   zoom,
	}
}
