package classify

import (
	"hash/fnv"
	"image/color"
	"strings"

	"github.com/starford/vaultgraph/internal/models"
)

const tagBrighten = 0.15

// Resolver picks node colors. Results are cached per node index until
// Invalidate is called, which the owner must do after a rebuild or a style
// change.
type Resolver struct {
	style     Style
	match     *Classifier
	tagColors map[string]color.RGBA
	byNode    map[int]color.RGBA
}

// NewResolver returns a resolver that evaluates content and section groups
// through c.
func NewResolver(style Style, c *Classifier) *Resolver {
	r := &Resolver{match: c, byNode: make(map[int]color.RGBA)}
	r.SetStyle(style)
	return r
}

// Style returns the active style.
func (r *Resolver) Style() Style { return r.style }

// SetStyle replaces the style and drops cached colors.
func (r *Resolver) SetStyle(s Style) {
	r.style = s
	r.tagColors = make(map[string]color.RGBA, len(s.TagColors))
	for k, v := range s.TagColors {
		r.tagColors[strings.ToLower(k)] = v
	}
	r.Invalidate()
}

// Invalidate drops cached colors.
func (r *Resolver) Invalidate() {
	clear(r.byNode)
}

// Color returns the fill color of node i.
//
// Priority: ghost color, then the blend of matching custom groups, then the
// attachment color, then a brightened palette slot for tag nodes, then the
// first real tag's override or palette slot, then the orphan color.
func (r *Resolver) Color(i int, n *models.Node) color.RGBA {
	if c, ok := r.byNode[i]; ok {
		return c
	}
	c := r.resolve(n)
	r.byNode[i] = c
	return c
}

func (r *Resolver) resolve(n *models.Node) color.RGBA {
	if !n.Exists() {
		return r.style.Ghost
	}
	if c, ok := r.groupColor(n); ok {
		return c
	}
	if n.IsAttachment() {
		return r.style.Attachment
	}
	if n.IsTag() {
		if c, ok := r.paletteFor(n.Label); ok {
			return Brighten(c, tagBrighten)
		}
		return r.style.Orphan
	}
	for _, tag := range n.Tags {
		if tag == models.OrphanTag || tag == "" {
			continue
		}
		if c, ok := r.tagColors[strings.ToLower(tag)]; ok {
			return c
		}
		if c, ok := r.paletteFor(tag); ok {
			return c
		}
		break
	}
	return r.style.Orphan
}

// groupColor averages the colors of every matching group per channel.
// color.RGBA is alpha-premultiplied, so the mean is too.
func (r *Resolver) groupColor(n *models.Node) (color.RGBA, bool) {
	var sr, sg, sb, sa, count uint32
	for _, g := range r.style.Groups {
		if g.Value == "" || !r.match.Match(n, g.Type, g.Value) {
			continue
		}
		sr += uint32(g.Color.R)
		sg += uint32(g.Color.G)
		sb += uint32(g.Color.B)
		sa += uint32(g.Color.A)
		count++
	}
	if count == 0 {
		return color.RGBA{}, false
	}
	return color.RGBA{
		R: uint8(sr / count),
		G: uint8(sg / count),
		B: uint8(sb / count),
		A: uint8(sa / count),
	}, true
}

func (r *Resolver) paletteFor(tag string) (color.RGBA, bool) {
	if len(r.style.Palette) == 0 {
		return color.RGBA{}, false
	}
	return r.style.Palette[PaletteIndex(tag, len(r.style.Palette))], true
}

// PaletteIndex maps tag to a stable slot in a palette of size n.
func PaletteIndex(tag string, n int) int {
	h := fnv.New64a()
	h.Write([]byte(tag))
	return int(h.Sum64() % uint64(n))
}
