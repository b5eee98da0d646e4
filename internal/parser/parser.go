// Package parser extracts front-matter tags, wikilinks, and headings from Markdown content.
package parser

import (
	"bytes"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/starford/vaultgraph/internal/models"
)

const delim = "---"

// A wikilink may span lines; it ends at the first "]]".
var wikilinkRe = regexp.MustCompile(`(?s)\[\[(.*?)\]\]`)

// ErrMalformedFrontMatter is returned when the front-matter block is present
// but cannot be decoded.
var ErrMalformedFrontMatter = errors.New("parser: malformed front matter")

// FrontMatter is the typed subset of document metadata the graph uses.
// Unknown keys are ignored.
type FrontMatter struct {
	Tags []string
}

// UnmarshalYAML picks the tags field out of the mapping, matching the key
// case-insensitively. The value may be a sequence or a comma separated scalar.
func (fm *FrontMatter) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.MappingNode {
		return fmt.Errorf("%w: expected mapping, got kind %d", ErrMalformedFrontMatter, value.Kind)
	}
	for i := 0; i+1 < len(value.Content); i += 2 {
		if !strings.EqualFold(value.Content[i].Value, "tags") {
			continue
		}
		fm.Tags = decodeTags(value.Content[i+1])
		return nil
	}
	return nil
}

func decodeTags(n *yaml.Node) []string {
	if n.Kind == yaml.AliasNode && n.Alias != nil {
		n = n.Alias
	}
	var raw []string
	switch n.Kind {
	case yaml.SequenceNode:
		for _, item := range n.Content {
			if item.Kind == yaml.ScalarNode && item.Tag != "!!null" {
				raw = append(raw, item.Value)
			}
		}
	case yaml.ScalarNode:
		if n.Tag != "!!null" {
			raw = strings.Split(n.Value, ",")
		}
	}
	var out []string
	for _, t := range raw {
		t = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(t), "#"))
		if t != "" {
			out = append(out, t)
		}
	}
	return out
}

// TagsOrOrphan returns the declared tags, or the Orphan tag when there are none.
func (fm FrontMatter) TagsOrOrphan() []string {
	if len(fm.Tags) == 0 {
		return []string{models.OrphanTag}
	}
	return fm.Tags
}

// Result holds the output of parsing a Markdown file.
type Result struct {
	FrontMatter FrontMatter
	Body        string
	Links       []string
	Tags        []string
}

// Parse extracts front matter, body and wikilinks. It never fails: a
// malformed block yields the Orphan tag and the whole input as body.
func Parse(data []byte) *Result {
	fm, body, err := ParseFrontMatter(data)
	if err != nil {
		fm = FrontMatter{}
		body = string(data)
	}
	return &Result{
		FrontMatter: fm,
		Body:        body,
		Links:       ExtractLinks(string(data)),
		Tags:        fm.TagsOrOrphan(),
	}
}

// ParseFrontMatter splits a leading front-matter block from the body. The
// opening delimiter must sit at byte 0; the block ends at the next line equal
// to the delimiter. Without a complete block the whole input is body.
func ParseFrontMatter(data []byte) (FrontMatter, string, error) {
	var fm FrontMatter
	first, rest, ok := cutLine(data)
	if !ok || string(first) != delim {
		return fm, string(data), nil
	}

	var block []byte
	for len(rest) > 0 {
		line, next, _ := cutLine(rest)
		if string(line) == delim {
			if err := yaml.Unmarshal(block, &fm); err != nil {
				if errors.Is(err, ErrMalformedFrontMatter) {
					return FrontMatter{}, string(data), err
				}
				return FrontMatter{}, string(data), fmt.Errorf("%w: %v", ErrMalformedFrontMatter, err)
			}
			return fm, string(next), nil
		}
		block = append(block, rest[:len(rest)-len(next)]...)
		rest = next
	}
	// No closing delimiter, treat everything as body.
	return fm, string(data), nil
}

// cutLine returns the first line without its terminator, the remainder, and
// whether a terminator was found.
func cutLine(data []byte) (line, rest []byte, found bool) {
	i := bytes.IndexByte(data, '\n')
	if i < 0 {
		return bytes.TrimSuffix(data, []byte("\r")), nil, false
	}
	return bytes.TrimSuffix(data[:i], []byte("\r")), data[i+1:], true
}

// ExtractLinks returns every wikilink target in text order. Aliases are
// dropped ([[Target|Alias]] yields Target); empty targets are skipped.
// Repeated links are kept.
func ExtractLinks(text string) []string {
	matches := wikilinkRe.FindAllStringSubmatch(text, -1)
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		target, _, _ := strings.Cut(m[1], "|")
		target = strings.TrimSpace(target)
		if target == "" {
			continue
		}
		out = append(out, target)
	}
	return out
}

// Headings returns the trimmed lines of text that start with a heading marker.
func Headings(text string) []string {
	var out []string
	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "#") {
			out = append(out, trimmed)
		}
	}
	return out
}
