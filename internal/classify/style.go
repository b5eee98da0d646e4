package classify

import (
	"fmt"
	"image/color"

	"github.com/lucasb-eyer/go-colorful"
)

// Group is a custom color rule: nodes matching Value under Type take Color.
type Group struct {
	Type  MatchType
	Value string
	Color color.RGBA
}

// Style carries every visual constant a frame needs. It is plain data
// supplied by the caller; nothing is read from ambient state.
type Style struct {
	NodeSize      float64
	LineThickness float64
	// ZoomThreshold is the camera zoom above which all labels are drawn.
	ZoomThreshold float64
	Arrows        bool

	Ghost      color.RGBA
	Attachment color.RGBA
	Orphan     color.RGBA
	Edge       color.RGBA
	Text       color.RGBA
	Background color.RGBA

	Palette []color.RGBA
	// TagColors overrides the palette for specific tags, keyed
	// case-insensitively.
	TagColors map[string]color.RGBA
	Groups    []Group
}

// DefaultPalette is used when no palette is configured.
var DefaultPalette = []color.RGBA{
	{0x4e, 0x79, 0xa7, 0xff},
	{0xf2, 0x8e, 0x2b, 0xff},
	{0xe1, 0x57, 0x59, 0xff},
	{0x76, 0xb7, 0xb2, 0xff},
	{0x59, 0xa1, 0x4f, 0xff},
	{0xed, 0xc9, 0x48, 0xff},
	{0xb0, 0x7a, 0xa1, 0xff},
	{0xff, 0x9d, 0xa7, 0xff},
	{0x9c, 0x75, 0x5f, 0xff},
	{0xba, 0xb0, 0xac, 0xff},
}

// DefaultStyle returns a dark-background style.
func DefaultStyle() Style {
	return Style{
		NodeSize:      6,
		LineThickness: 1,
		ZoomThreshold: 1.5,
		Ghost:         color.RGBA{0x80, 0x80, 0x80, 0xff},
		Attachment:    color.RGBA{0xd4, 0xa0, 0x17, 0xff},
		Orphan:        color.RGBA{0xa0, 0xa0, 0xa0, 0xff},
		Edge:          color.RGBA{0x5a, 0x5a, 0x5a, 0xff},
		Text:          color.RGBA{0xdc, 0xdc, 0xdc, 0xff},
		Background:    color.RGBA{0x1e, 0x1e, 0x1e, 0xff},
		Palette:       DefaultPalette,
	}
}

// ParseHex parses "#rrggbb" (or "#rgb") into an opaque color.
func ParseHex(s string) (color.RGBA, error) {
	if len(s) == 4 && s[0] == '#' {
		s = string([]byte{'#', s[1], s[1], s[2], s[2], s[3], s[3]})
	}
	c, err := colorful.Hex(s)
	if err != nil {
		return color.RGBA{}, fmt.Errorf("classify: parse color %q: %w", s, err)
	}
	return toRGBA(c), nil
}

// Hex formats c as "#rrggbb".
func Hex(c color.RGBA) string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

// Brighten raises the HSL lightness of c by amount, keeping alpha.
func Brighten(c color.RGBA, amount float64) color.RGBA {
	cf, ok := colorful.MakeColor(c)
	if !ok {
		return c
	}
	h, s, l := cf.Hsl()
	out := toRGBA(colorful.Hsl(h, s, min(1, l+amount)).Clamped())
	out.A = c.A
	return out
}

func toRGBA(c colorful.Color) color.RGBA {
	r, g, b := c.Clamped().RGB255()
	return color.RGBA{R: r, G: g, B: b, A: 0xff}
}
