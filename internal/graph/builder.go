// Package graph converts scanned vault entries into a node/edge graph and
// seeds its initial layout.
package graph

import (
	"path"
	"strings"

	"github.com/starford/vaultgraph/internal/models"
)

// Options controls which synthetic nodes Build adds.
type Options struct {
	// TagNodes adds one node per distinct tag and document→tag edges.
	TagNodes bool
}

// Build resolves links between entries and returns the resulting graph.
//
// Node order is deterministic: entries in scan order, then ghost nodes in
// first-seen order, then tag nodes in first-seen order.
func Build(entries []models.Entry, opts Options) *Graph {
	g := &Graph{Nodes: make([]models.Node, 0, len(entries))}

	names := make(map[string]int, len(entries))
	for i, e := range entries {
		g.Nodes = append(g.Nodes, e.Node())
		key := NameKey(e.Label)
		if _, dup := names[key]; !dup {
			names[key] = i
		}
	}

	// One edge per link occurrence, so repeated links weigh more.
	addEdge := func(src, dst int) {
		if src == dst {
			return
		}
		g.Edges = append(g.Edges, models.Edge{Source: src, Target: dst})
	}

	ghosts := make(map[string]int)
	realCount := len(g.Nodes)
	for i := 0; i < realCount; i++ {
		if g.Nodes[i].Kind != models.KindDocument {
			continue
		}
		for _, link := range g.Nodes[i].Links {
			cleaned := CleanLink(link)
			if cleaned == "" {
				continue
			}
			if target, ok := resolve(names, cleaned); ok {
				addEdge(i, target)
				continue
			}
			key := NameKey(cleaned)
			target, ok := ghosts[key]
			if !ok {
				target = len(g.Nodes)
				ghosts[key] = target
				g.Nodes = append(g.Nodes, models.Node{Label: cleaned, Kind: models.KindGhost})
			}
			addEdge(i, target)
		}
	}

	if opts.TagNodes {
		tagIndex := make(map[string]int)
		for i := 0; i < realCount; i++ {
			for _, tag := range g.Nodes[i].Tags {
				if tag == models.OrphanTag {
					continue
				}
				if _, ok := tagIndex[tag]; !ok {
					tagIndex[tag] = len(g.Nodes)
					g.Nodes = append(g.Nodes, models.Node{Label: tag, Kind: models.KindTag})
				}
			}
		}
		for i := 0; i < realCount; i++ {
			if g.Nodes[i].Kind != models.KindDocument {
				continue
			}
			linked := make(map[int]bool, len(g.Nodes[i].Tags))
			for _, tag := range g.Nodes[i].Tags {
				if t, ok := tagIndex[tag]; ok && !linked[t] {
					linked[t] = true
					addEdge(i, t)
				}
			}
		}
	}

	g.Degree = make([]int, len(g.Nodes))
	for _, e := range g.Edges {
		g.Degree[e.Source]++
		g.Degree[e.Target]++
	}
	return g
}

// NameKey normalises a label or link for lookup: trimmed and lowercased.
func NameKey(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// CleanLink strips a heading or block anchor and a trailing .md extension.
func CleanLink(link string) string {
	s, _, _ := strings.Cut(link, "#")
	s = strings.TrimSpace(s)
	if strings.HasSuffix(strings.ToLower(s), ".md") {
		s = strings.TrimSpace(s[:len(s)-len(".md")])
	}
	return s
}

// resolve looks a cleaned link up by full text, then by its last path segment.
func resolve(names map[string]int, cleaned string) (int, bool) {
	if i, ok := names[NameKey(cleaned)]; ok {
		return i, true
	}
	if strings.Contains(cleaned, "/") {
		if i, ok := names[NameKey(path.Base(cleaned))]; ok {
			return i, true
		}
	}
	return 0, false
}
