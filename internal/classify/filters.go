// Package classify decides which graph nodes are visible under the current
// filters and which color each node is drawn with.
package classify

import (
	"strings"

	"github.com/starford/vaultgraph/internal/graph"
	"github.com/starford/vaultgraph/internal/models"
	"github.com/starford/vaultgraph/internal/parser"
)

// MatchType selects the node attribute a text query is compared against.
type MatchType string

// Match types shared by the text filters and custom color groups.
const (
	MatchFilename MatchType = "filename"
	MatchTag      MatchType = "tag"
	MatchPath     MatchType = "path"
	MatchContent  MatchType = "content"
	MatchSection  MatchType = "section"
)

// Valid reports whether t is a known match type.
func (t MatchType) Valid() bool {
	switch t {
	case MatchFilename, MatchTag, MatchPath, MatchContent, MatchSection:
		return true
	}
	return false
}

// Filters are the visibility knobs. Empty strings do not restrict.
type Filters struct {
	ShowAttachments bool   `json:"show_attachments" yaml:"show_attachments"`
	ExistingOnly    bool   `json:"existing_only" yaml:"existing_only"`
	ShowOrphans     bool   `json:"show_orphans" yaml:"show_orphans"`
	ShowTags        bool   `json:"show_tags" yaml:"show_tags"`
	Filename        string `json:"filename" yaml:"filename"`
	Tag             string `json:"tag" yaml:"tag"`
	Path            string `json:"path" yaml:"path"`
	Content         string `json:"content" yaml:"content"`
	Section         string `json:"section" yaml:"section"`
}

// DefaultFilters shows everything.
func DefaultFilters() Filters {
	return Filters{ShowAttachments: true, ShowOrphans: true, ShowTags: true}
}

type query struct {
	match MatchType
	text  string
}

func (f Filters) queries() []query {
	return []query{
		{MatchFilename, f.Filename},
		{MatchTag, f.Tag},
		{MatchPath, f.Path},
		{MatchContent, f.Content},
		{MatchSection, f.Section},
	}
}

// ContentSource supplies document bodies by vault-relative path.
type ContentSource interface {
	Body(relPath string) (string, bool)
}

type body struct {
	text     string
	headings []string
	ok       bool
}

// Classifier evaluates visibility. It caches lowered document bodies until
// Invalidate is called and is not safe for concurrent use.
type Classifier struct {
	filters Filters
	content ContentSource
	bodies  map[string]body
}

// NewClassifier returns a classifier reading bodies from content, which may
// be nil when no content or section matching is needed.
func NewClassifier(filters Filters, content ContentSource) *Classifier {
	return &Classifier{
		filters: filters,
		content: content,
		bodies:  make(map[string]body),
	}
}

// Filters returns the active filters.
func (c *Classifier) Filters() Filters { return c.filters }

// SetFilters replaces the active filters.
func (c *Classifier) SetFilters(f Filters) { c.filters = f }

// SetContent swaps the content source and drops cached bodies.
func (c *Classifier) SetContent(content ContentSource) {
	c.content = content
	c.Invalidate()
}

// Invalidate drops cached bodies.
func (c *Classifier) Invalidate() {
	clear(c.bodies)
}

// Visible reports whether n passes every active filter. degree is the
// node's edge count.
func (c *Classifier) Visible(n *models.Node, degree int) bool {
	f := c.filters
	switch {
	case !f.ShowAttachments && n.IsAttachment():
		return false
	case f.ExistingOnly && !n.Exists():
		return false
	case !f.ShowOrphans && degree == 0:
		return false
	case !f.ShowTags && n.IsTag():
		return false
	}
	for _, q := range f.queries() {
		if q.text != "" && !c.Match(n, q.match, q.text) {
			return false
		}
	}
	return true
}

// Mask returns the visibility of every node in g.
func (c *Classifier) Mask(g *graph.Graph) []bool {
	out := make([]bool, g.Len())
	for i := range g.Nodes {
		out[i] = c.Visible(&g.Nodes[i], g.Degree[i])
	}
	return out
}

// Match reports whether n matches text under t, case-insensitively. An
// empty text matches everything. Content and section queries only match
// documents whose body can be read.
func (c *Classifier) Match(n *models.Node, t MatchType, text string) bool {
	if text == "" {
		return true
	}
	q := strings.ToLower(text)
	switch t {
	case MatchFilename:
		return contains(n.Label, q)
	case MatchTag:
		if n.IsTag() {
			return contains(n.Label, q)
		}
		for _, tag := range n.Tags {
			if contains(tag, q) {
				return true
			}
		}
		return false
	case MatchPath:
		return contains(n.RelativePath, q)
	case MatchContent:
		b := c.body(n)
		return b.ok && strings.Contains(b.text, q)
	case MatchSection:
		b := c.body(n)
		if !b.ok {
			return false
		}
		for _, h := range b.headings {
			if strings.Contains(h, q) {
				return true
			}
		}
		return false
	}
	return false
}

func (c *Classifier) body(n *models.Node) body {
	if n.Kind != models.KindDocument || c.content == nil {
		return body{}
	}
	if b, ok := c.bodies[n.RelativePath]; ok {
		return b
	}
	var b body
	if text, ok := c.content.Body(n.RelativePath); ok {
		b.text = strings.ToLower(text)
		b.headings = parser.Headings(b.text)
		b.ok = true
	}
	c.bodies[n.RelativePath] = b
	return b
}

func contains(s, lowerQuery string) bool {
	return strings.Contains(strings.ToLower(s), lowerQuery)
}
