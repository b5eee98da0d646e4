package classify

import (
	"image/color"
	"testing"

	"pgregory.net/rapid"

	"github.com/starford/vaultgraph/internal/models"
)

type mapSource map[string]string

func (m mapSource) Body(rel string) (string, bool) {
	s, ok := m[rel]
	return s, ok
}

var (
	docNode = models.Node{
		Label:        "Project Plan",
		Kind:         models.KindDocument,
		Tags:         []string{"work/Proj", "draft"},
		RelativePath: "notes/Project Plan.md",
	}
	orphanNode = models.Node{
		Label:        "Loose",
		Kind:         models.KindDocument,
		Tags:         []string{models.OrphanTag},
		RelativePath: "Loose.md",
	}
	attachNode = models.Node{
		Label:        "diagram.png",
		Kind:         models.KindAttachment,
		Tags:         []string{models.AttachmentTag},
		RelativePath: "assets/diagram.png",
	}
	ghostNode   = models.Node{Label: "Nowhere", Kind: models.KindGhost}
	tagNode     = models.Node{Label: "proj", Kind: models.KindTag}
	otherTag    = models.Node{Label: "draft", Kind: models.KindTag}
	unreadable  = models.Node{Label: "Gone", Kind: models.KindDocument, Tags: []string{models.OrphanTag}, RelativePath: "Gone.md"}
	testContent = mapSource{
		"notes/Project Plan.md": "# Goals\nShip the Layout engine.\n## Risks\n",
		"Loose.md":              "nothing here",
	}
)

func TestVisible(t *testing.T) {
	tests := []struct {
		name   string
		f      func(*Filters)
		node   models.Node
		degree int
		want   bool
	}{
		{"defaults show document", nil, docNode, 1, true},
		{"hide attachments", func(f *Filters) { f.ShowAttachments = false }, attachNode, 1, false},
		{"hide attachments keeps documents", func(f *Filters) { f.ShowAttachments = false }, docNode, 1, true},
		{"existing only hides ghost", func(f *Filters) { f.ExistingOnly = true }, ghostNode, 1, false},
		{"existing only keeps tag", func(f *Filters) { f.ExistingOnly = true }, tagNode, 1, true},
		{"hide orphans by degree", func(f *Filters) { f.ShowOrphans = false }, docNode, 0, false},
		{"hide orphans keeps linked", func(f *Filters) { f.ShowOrphans = false }, orphanNode, 2, true},
		{"hide tags", func(f *Filters) { f.ShowTags = false }, tagNode, 1, false},
		{"filename substring", func(f *Filters) { f.Filename = "PLAN" }, docNode, 1, true},
		{"filename miss", func(f *Filters) { f.Filename = "zzz" }, docNode, 1, false},
		{"tag on document", func(f *Filters) { f.Tag = "proj" }, docNode, 1, true},
		{"tag miss on document", func(f *Filters) { f.Tag = "proj" }, orphanNode, 1, false},
		{"tag node matches own label", func(f *Filters) { f.Tag = "PROJ" }, tagNode, 1, true},
		{"tag node label miss", func(f *Filters) { f.Tag = "proj" }, otherTag, 1, false},
		{"tag hides ghost", func(f *Filters) { f.Tag = "proj" }, ghostNode, 1, false},
		{"path substring", func(f *Filters) { f.Path = "notes/" }, docNode, 1, true},
		{"path miss", func(f *Filters) { f.Path = "notes/" }, orphanNode, 1, false},
		{"content substring", func(f *Filters) { f.Content = "layout ENGINE" }, docNode, 1, true},
		{"content miss", func(f *Filters) { f.Content = "layout" }, orphanNode, 1, false},
		{"content fails closed on unreadable", func(f *Filters) { f.Content = "x" }, unreadable, 1, false},
		{"content hides attachments", func(f *Filters) { f.Content = "a" }, attachNode, 1, false},
		{"section heading", func(f *Filters) { f.Section = "risk" }, docNode, 1, true},
		{"section ignores body lines", func(f *Filters) { f.Section = "ship" }, docNode, 1, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := DefaultFilters()
			if tt.f != nil {
				tt.f(&f)
			}
			c := NewClassifier(f, testContent)
			n := tt.node
			if got := c.Visible(&n, tt.degree); got != tt.want {
				t.Errorf("Visible = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestClassifier_InvalidateRereadsBodies(t *testing.T) {
	src := mapSource{"Loose.md": "old"}
	c := NewClassifier(Filters{Content: "new"}, src)
	n := orphanNode
	if c.Visible(&n, 1) {
		t.Fatal("should not match before update")
	}
	src["Loose.md"] = "new text"
	if c.Visible(&n, 1) {
		t.Fatal("cached body should still be used")
	}
	c.Invalidate()
	if !c.Visible(&n, 1) {
		t.Fatal("body should be reread after Invalidate")
	}
}

func TestVisible_Monotonic(t *testing.T) {
	nodes := []models.Node{docNode, orphanNode, attachNode, ghostNode, tagNode, otherTag, unreadable}
	words := []string{"", "proj", "plan", "notes", "goals", "risk", "png", "o"}
	rapid.Check(t, func(t *rapid.T) {
		f := Filters{
			ShowAttachments: rapid.Bool().Draw(t, "attachments"),
			ExistingOnly:    rapid.Bool().Draw(t, "existing"),
			ShowOrphans:     rapid.Bool().Draw(t, "orphans"),
			ShowTags:        rapid.Bool().Draw(t, "tags"),
			Filename:        rapid.SampledFrom(words).Draw(t, "filename"),
			Tag:             rapid.SampledFrom(words).Draw(t, "tag"),
			Path:            rapid.SampledFrom(words).Draw(t, "path"),
			Content:         rapid.SampledFrom(words).Draw(t, "content"),
			Section:         rapid.SampledFrom(words).Draw(t, "section"),
		}
		n := rapid.SampledFrom(nodes).Draw(t, "node")
		degree := rapid.IntRange(0, 2).Draw(t, "degree")

		base := NewClassifier(f, testContent).Visible(&n, degree)

		noAttach := f
		noAttach.ShowAttachments = false
		if NewClassifier(noAttach, testContent).Visible(&n, degree) && !base {
			t.Fatal("hiding attachments made a node visible")
		}

		for _, reset := range []func(*Filters){
			func(f *Filters) { f.Filename = "" },
			func(f *Filters) { f.Tag = "" },
			func(f *Filters) { f.Path = "" },
			func(f *Filters) { f.Content = "" },
			func(f *Filters) { f.Section = "" },
		} {
			cleared := f
			reset(&cleared)
			if base && !NewClassifier(cleared, testContent).Visible(&n, degree) {
				t.Fatal("clearing a filter string hid a node")
			}
		}
	})
}

func TestColor_Priority(t *testing.T) {
	red := color.RGBA{0xff, 0, 0, 0xff}
	blue := color.RGBA{0, 0, 0xff, 0xff}
	override := color.RGBA{1, 2, 3, 0xff}

	style := DefaultStyle()
	style.TagColors = map[string]color.RGBA{"DRAFT": override}
	c := NewClassifier(DefaultFilters(), testContent)

	tests := []struct {
		name   string
		groups []Group
		node   models.Node
		want   color.RGBA
	}{
		{"ghost wins over groups", []Group{{MatchFilename, "nowhere", red}}, ghostNode, style.Ghost},
		{"single group", []Group{{MatchFilename, "plan", red}}, docNode, red},
		{"groups blend", []Group{{MatchFilename, "plan", red}, {MatchContent, "goals", blue}}, docNode, color.RGBA{0x7f, 0, 0x7f, 0xff}},
		{"non-matching group ignored", []Group{{MatchPath, "zzz", red}}, attachNode, style.Attachment},
		{"attachment", nil, attachNode, style.Attachment},
		{"orphan", nil, orphanNode, style.Orphan},
		{"tag override case-insensitive", nil, models.Node{Kind: models.KindDocument, Tags: []string{models.OrphanTag, "draft"}}, override},
		{"palette by first real tag", nil, docNode, style.Palette[PaletteIndex("work/Proj", len(style.Palette))]},
		{"tag node brightened", nil, tagNode, Brighten(style.Palette[PaletteIndex("proj", len(style.Palette))], tagBrighten)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := style
			s.Groups = tt.groups
			r := NewResolver(s, c)
			n := tt.node
			if got := r.Color(0, &n); got != tt.want {
				t.Errorf("Color = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestColor_CacheAndInvalidate(t *testing.T) {
	r := NewResolver(DefaultStyle(), NewClassifier(DefaultFilters(), nil))
	n := orphanNode
	first := r.Color(3, &n)

	n.Kind = models.KindGhost
	if got := r.Color(3, &n); got != first {
		t.Errorf("cached color changed without Invalidate: %v", got)
	}
	r.Invalidate()
	if got := r.Color(3, &n); got != r.Style().Ghost {
		t.Errorf("after Invalidate = %v, want ghost color", got)
	}
}

func TestPaletteIndexStable(t *testing.T) {
	for _, tag := range []string{"a", "project", "work/x"} {
		i := PaletteIndex(tag, 7)
		if i < 0 || i >= 7 {
			t.Fatalf("index %d out of range", i)
		}
		if PaletteIndex(tag, 7) != i {
			t.Fatalf("index for %q not stable", tag)
		}
	}
}

func TestParseHex(t *testing.T) {
	c, err := ParseHex("#ff8000")
	if err != nil || c != (color.RGBA{0xff, 0x80, 0x00, 0xff}) {
		t.Errorf("ParseHex = %v, %v", c, err)
	}
	if c, err := ParseHex("#fff"); err != nil || c != (color.RGBA{0xff, 0xff, 0xff, 0xff}) {
		t.Errorf("short form = %v, %v", c, err)
	}
	if _, err := ParseHex("orange"); err == nil {
		t.Error("expected error for non-hex color")
	}
	if Hex(c) != "#ff8000" {
		t.Errorf("Hex = %s", Hex(c))
	}
}

func TestBrighten(t *testing.T) {
	base := color.RGBA{0x40, 0x40, 0x80, 0xff}
	got := Brighten(base, 0.15)
	if int(got.R)+int(got.G)+int(got.B) <= int(base.R)+int(base.G)+int(base.B) {
		t.Errorf("Brighten(%v) = %v, not brighter", base, got)
	}
	if got.A != base.A {
		t.Errorf("alpha changed: %d", got.A)
	}
}
