//go:build !sqlite_fts5

package index

import (
	"strings"
	"testing"
)

func TestFallbackSearch_EscapesWildcards(t *testing.T) {
	db := testDB(t)
	_ = db.UpsertDocument(DocumentRow{Path: "pct.md", Label: "pct", Checksum: "1"}, "grew 100% this year")
	_ = db.UpsertDocument(DocumentRow{Path: "plain.md", Label: "plain", Checksum: "2"}, "grew 1000 this year")
	_ = db.UpsertDocument(DocumentRow{Path: "under.md", Label: "snake_case", Checksum: "3"}, "")

	tests := []struct {
		query string
		want  []string
	}{
		{"100%", []string{"pct.md"}},
		{"snake_case", []string{"under.md"}},
		{"e_c", []string{"under.md"}},
		{"GREW", []string{"pct.md", "plain.md"}},
		{"   ", nil},
	}
	for _, tt := range tests {
		results, err := db.Search(tt.query, 0)
		if err != nil {
			t.Fatalf("%q: %v", tt.query, err)
		}
		var got []string
		for _, r := range results {
			got = append(got, r.Path)
		}
		if strings.Join(got, ",") != strings.Join(tt.want, ",") {
			t.Errorf("Search(%q) = %v, want %v", tt.query, got, tt.want)
		}
	}
}

func TestFallbackSearch_Limit(t *testing.T) {
	db := testDB(t)
	for _, p := range []string{"a.md", "b.md", "c.md"} {
		_ = db.UpsertDocument(DocumentRow{Path: p, Checksum: p}, "shared word")
	}
	results, err := db.Search("shared", 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 2 || results[0].Path != "a.md" {
		t.Errorf("results = %+v", results)
	}
}

func TestSnippet(t *testing.T) {
	long := strings.Repeat("x ", 80) + "needle" + strings.Repeat(" y", 80)
	tests := []struct {
		name, body, query string
		check             func(string) bool
	}{
		{"short body", "a needle here", "needle", func(s string) bool { return s == "a needle here" }},
		{"windowed", long, "NEEDLE", func(s string) bool {
			return strings.HasPrefix(s, "...") && strings.HasSuffix(s, "...") && strings.Contains(s, "needle")
		}},
		{"no match uses head", "first line\nsecond", "label", func(s string) bool { return s == "first line second" }},
		{"utf8 boundary", strings.Repeat("é", 50) + "needle", "needle", func(s string) bool {
			return strings.HasPrefix(s, "...") && strings.HasSuffix(s, "needle") && !strings.ContainsRune(s, '�')
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := snippet(tt.body, tt.query); !tt.check(got) {
				t.Errorf("snippet = %q", got)
			}
		})
	}
}
