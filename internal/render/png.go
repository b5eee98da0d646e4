package render

import (
	"fmt"
	"image/color"
	"io"

	"git.sr.ht/~sbinet/gg"
	"golang.org/x/image/font/basicfont"
	"gonum.org/v1/gonum/spatial/r2"
)

// PNG rasterises primitives with gg and encodes the image on Close.
type PNG struct {
	dc *gg.Context
	w  io.Writer
}

// NewPNG returns a raster canvas of the given size filled with bg.
func NewPNG(w io.Writer, width, height int, bg color.RGBA) *PNG {
	dc := gg.NewContext(width, height)
	dc.SetColor(bg)
	dc.Clear()
	dc.SetFontFace(basicfont.Face7x13)
	return &PNG{dc: dc, w: w}
}

func (p *PNG) Point(at r2.Vec, c color.RGBA, shape Shape, radius float64) {
	p.dc.SetColor(c)
	switch shape {
	case Square:
		p.dc.DrawRectangle(at.X-radius, at.Y-radius, 2*radius, 2*radius)
	case Diamond:
		p.dc.NewSubPath()
		p.dc.MoveTo(at.X, at.Y-radius)
		p.dc.LineTo(at.X+radius, at.Y)
		p.dc.LineTo(at.X, at.Y+radius)
		p.dc.LineTo(at.X-radius, at.Y)
		p.dc.ClosePath()
	default:
		p.dc.DrawCircle(at.X, at.Y, radius)
	}
	p.dc.Fill()
}

func (p *PNG) Line(from, to r2.Vec, c color.RGBA, width float64) {
	p.dc.SetColor(c)
	p.dc.SetLineWidth(width)
	p.dc.DrawLine(from.X, from.Y, to.X, to.Y)
	p.dc.Stroke()
}

func (p *PNG) Text(at r2.Vec, c color.RGBA, s string) {
	p.dc.SetColor(c)
	p.dc.DrawStringAnchored(s, at.X, at.Y, 0.5, 0)
}

// Close encodes the image to the writer.
func (p *PNG) Close() error {
	if err := p.dc.EncodePNG(p.w); err != nil {
		return fmt.Errorf("render: encode png: %w", err)
	}
	return nil
}
