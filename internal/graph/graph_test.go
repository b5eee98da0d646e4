package graph

import (
	"math"
	"reflect"
	"testing"

	"pgregory.net/rapid"

	"github.com/starford/vaultgraph/internal/models"
)

func doc(label string, tags []string, links ...string) models.Entry {
	if len(tags) == 0 {
		tags = []string{models.OrphanTag}
	}
	return models.Entry{
		Kind:         models.KindDocument,
		Label:        label,
		Tags:         tags,
		Links:        links,
		RelativePath: label + ".md",
		AbsolutePath: "/vault/" + label + ".md",
	}
}

func attachment(name string) models.Entry {
	return models.Entry{
		Kind:         models.KindAttachment,
		Label:        name,
		Tags:         []string{models.AttachmentTag},
		RelativePath: name,
		AbsolutePath: "/vault/" + name,
	}
}

func countKind(g *Graph, k models.NodeKind) int {
	n := 0
	for i := range g.Nodes {
		if g.Nodes[i].Kind == k {
			n++
		}
	}
	return n
}

func TestBuild_ResolvedLink(t *testing.T) {
	g := Build([]models.Entry{doc("A", nil, "B"), doc("B", nil)}, Options{})

	if g.Len() != 2 || countKind(g, models.KindGhost) != 0 {
		t.Fatalf("nodes = %+v", g.Nodes)
	}
	want := []models.Edge{{Source: 0, Target: 1}}
	if !reflect.DeepEqual(g.Edges, want) {
		t.Errorf("edges = %v, want %v", g.Edges, want)
	}
	if !reflect.DeepEqual(g.Degree, []int{1, 1}) {
		t.Errorf("degree = %v", g.Degree)
	}
}

func TestBuild_GhostForMissingTarget(t *testing.T) {
	g := Build([]models.Entry{doc("A", nil, "Missing")}, Options{})

	if g.Len() != 2 {
		t.Fatalf("nodes = %d, want 2", g.Len())
	}
	ghost := g.Nodes[1]
	if ghost.Label != "Missing" || ghost.Exists() || ghost.Kind != models.KindGhost {
		t.Errorf("ghost = %+v", ghost)
	}
	if len(ghost.Tags) != 0 || len(ghost.Links) != 0 || ghost.RelativePath != "" {
		t.Errorf("ghost should carry no data: %+v", ghost)
	}
	if !reflect.DeepEqual(g.Edges, []models.Edge{{Source: 0, Target: 1}}) {
		t.Errorf("edges = %v", g.Edges)
	}
}

func TestBuild_TagNodes(t *testing.T) {
	entries := []models.Entry{
		doc("A", []string{"x", "y"}),
		doc("Lonely", nil),
	}
	g := Build(entries, Options{TagNodes: true})

	if g.Len() != 4 {
		t.Fatalf("nodes = %+v", g.Nodes)
	}
	if g.Nodes[2].Label != "x" || g.Nodes[3].Label != "y" {
		t.Errorf("tag nodes = %q, %q", g.Nodes[2].Label, g.Nodes[3].Label)
	}
	for _, n := range g.Nodes[2:] {
		if !n.IsTag() || !n.Exists() {
			t.Errorf("tag node %q: kind %v", n.Label, n.Kind)
		}
	}
	if _, ok := g.Find(models.OrphanTag); ok {
		t.Error("Orphan must never become a tag node")
	}
	want := []models.Edge{{Source: 0, Target: 2}, {Source: 0, Target: 3}}
	if !reflect.DeepEqual(g.Edges, want) {
		t.Errorf("edges = %v, want %v", g.Edges, want)
	}

	plain := Build(entries, Options{})
	if plain.Len() != 2 || len(plain.Edges) != 0 {
		t.Errorf("without tag nodes: %d nodes, %d edges", plain.Len(), len(plain.Edges))
	}
}

func TestBuild_AttachmentTagNode(t *testing.T) {
	g := Build([]models.Entry{doc("A", []string{"x"}, "pic.png"), attachment("pic.png")}, Options{TagNodes: true})

	i, ok := g.Find(models.AttachmentTag)
	if !ok || !g.Nodes[i].IsTag() {
		t.Fatalf("attachment tag node missing: %+v", g.Nodes)
	}
	if g.Degree[i] != 0 {
		t.Errorf("attachments do not link to tag nodes, degree = %d", g.Degree[i])
	}
	if !reflect.DeepEqual(g.Neighbors(1), []int{0}) {
		t.Errorf("attachment neighbors = %v", g.Neighbors(1))
	}
}

func TestBuild_LinkCleaning(t *testing.T) {
	entries := []models.Entry{
		doc("Src", nil,
			"target",
			" TARGET ",
			"Target#Heading",
			"Target.md",
			"folder/Target",
			"#Local",
			"Src",
			"ghost one",
			"Ghost One#x",
		),
		doc("Target", nil),
	}
	g := Build(entries, Options{})

	toTarget, toGhost := models.Edge{Source: 0, Target: 1}, models.Edge{Source: 0, Target: 2}
	want := []models.Edge{toTarget, toTarget, toTarget, toTarget, toTarget, toGhost, toGhost}
	if !reflect.DeepEqual(g.Edges, want) {
		t.Errorf("edges = %v, want %v", g.Edges, want)
	}
	if g.Len() != 3 || g.Nodes[2].Label != "ghost one" {
		t.Errorf("nodes = %+v", g.Nodes)
	}
}

func TestBuild_DuplicateLabelsFirstWins(t *testing.T) {
	g := Build([]models.Entry{doc("A", nil, "dup"), doc("Dup", nil), doc("dup", nil)}, Options{})
	if !reflect.DeepEqual(g.Edges, []models.Edge{{Source: 0, Target: 1}}) {
		t.Errorf("edges = %v", g.Edges)
	}
}

func TestBuild_RepeatedLinkEdgePerOccurrence(t *testing.T) {
	g := Build([]models.Entry{doc("A", []string{"x", "x"}, "B", "b", "B"), doc("B", nil)}, Options{TagNodes: true})

	ab := models.Edge{Source: 0, Target: 1}
	want := []models.Edge{ab, ab, ab, {Source: 0, Target: 2}}
	if !reflect.DeepEqual(g.Edges, want) {
		t.Errorf("edges = %v, want %v", g.Edges, want)
	}
	if !reflect.DeepEqual(g.Degree, []int{4, 3, 1}) {
		t.Errorf("degree = %v", g.Degree)
	}
	if !reflect.DeepEqual(g.Neighbors(1), []int{0}) {
		t.Errorf("neighbors = %v", g.Neighbors(1))
	}
}

func TestGraph_Components(t *testing.T) {
	entries := []models.Entry{
		doc("A", nil, "B"),
		doc("B", nil),
		doc("C", nil, "D"),
		doc("D", nil),
		doc("E", nil),
	}
	g := Build(entries, Options{})
	want := [][]int{{0, 1}, {2, 3}, {4}}
	if got := g.Components(); !reflect.DeepEqual(got, want) {
		t.Errorf("components = %v, want %v", got, want)
	}

	s := g.Stats()
	if s.Nodes != 5 || s.Edges != 2 || s.Documents != 5 || s.Orphans != 1 || s.Components != 3 {
		t.Errorf("stats = %+v", s)
	}
}

func TestGraph_Search(t *testing.T) {
	g := Build([]models.Entry{doc("Alpha", nil), doc("beta", nil), doc("alphabet", nil)}, Options{})
	if got := g.Search("ALPHA"); !reflect.DeepEqual(got, []int{0, 2}) {
		t.Errorf("search = %v", got)
	}
	if g.Neighbors(-1) != nil || g.Neighbors(99) != nil {
		t.Error("out of range neighbors should be nil")
	}
}

func TestInitialLayout(t *testing.T) {
	if got := InitialLayout(0, 100); len(got) != 0 {
		t.Errorf("n=0: %v", got)
	}
	one := InitialLayout(1, 100)
	if len(one) != 1 || one[0].X != 100 || one[0].Y != 0 {
		t.Errorf("n=1: %v", one)
	}

	pts := InitialLayout(8, 50)
	for i := range pts {
		if r := math.Hypot(pts[i].X, pts[i].Y); math.Abs(r-50) > 1e-9 {
			t.Errorf("point %d radius %v", i, r)
		}
		for j := i + 1; j < len(pts); j++ {
			if pts[i] == pts[j] {
				t.Errorf("points %d and %d coincide", i, j)
			}
		}
	}
}

// genEntries draws a small vault with links into a shared name pool so that
// resolved, ghost and self links all occur.
func genEntries(t *rapid.T) []models.Entry {
	pool := []string{"a", "B", "c", "Dd", "e", "F", "ghost", "Ghost", "x/y"}
	tagPool := []string{"t1", "T2", "proj", models.OrphanTag}
	n := rapid.IntRange(0, 6).Draw(t, "n")
	entries := make([]models.Entry, 0, n)
	for i := 0; i < n; i++ {
		label := rapid.SampledFrom(pool[:6]).Draw(t, "label")
		if rapid.Bool().Draw(t, "attachment") {
			entries = append(entries, attachment(label+".png"))
			continue
		}
		links := rapid.SliceOfN(rapid.SampledFrom(pool), 0, 5).Draw(t, "links")
		tags := rapid.SliceOfN(rapid.SampledFrom(tagPool), 0, 3).Draw(t, "tags")
		entries = append(entries, doc(label, tags, links...))
	}
	return entries
}

func TestBuild_Properties(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		entries := genEntries(t)
		opts := Options{TagNodes: rapid.Bool().Draw(t, "tagNodes")}
		g := Build(entries, opts)

		if len(g.Degree) != g.Len() {
			t.Fatalf("degree len %d, nodes %d", len(g.Degree), g.Len())
		}
		want := make([]int, g.Len())
		for _, e := range g.Edges {
			if e.Source == e.Target {
				t.Fatalf("self edge %v", e)
			}
			want[e.Source]++
			want[e.Target]++
		}
		if !reflect.DeepEqual(g.Degree, want) {
			t.Fatalf("degree = %v, want %v", g.Degree, want)
		}

		ghosts := map[string]bool{}
		for _, n := range g.Nodes {
			if n.Kind != models.KindGhost {
				continue
			}
			key := NameKey(n.Label)
			if ghosts[key] {
				t.Fatalf("duplicate ghost %q", n.Label)
			}
			ghosts[key] = true
		}

		again := Build(entries, opts)
		if !reflect.DeepEqual(again.Nodes, g.Nodes) || !reflect.DeepEqual(again.Edges, g.Edges) {
			t.Fatal("build is not deterministic")
		}
	})
}
