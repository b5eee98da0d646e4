// Package models defines the domain types shared by the scanner, the graph
// builder and the layout engine.
package models

// Reserved tag values.
const (
	// OrphanTag marks a document without front-matter tags. It never produces
	// a tag node.
	OrphanTag = "Orphan"
	// AttachmentTag is the synthetic tag every attachment carries.
	AttachmentTag = "Attachment"
)

// NodeKind is the closed set of node variants.
type NodeKind int

// Node kinds.
const (
	KindDocument NodeKind = iota
	KindAttachment
	KindGhost
	KindTag
)

// String returns the lowercase kind name used in JSON payloads.
func (k NodeKind) String() string {
	switch k {
	case KindDocument:
		return "document"
	case KindAttachment:
		return "attachment"
	case KindGhost:
		return "ghost"
	case KindTag:
		return "tag"
	default:
		return "unknown"
	}
}

// Node is a point in the knowledge graph.
type Node struct {
	Label        string
	Kind         NodeKind
	Tags         []string
	Links        []string
	RelativePath string
	AbsolutePath string
}

// IsAttachment reports whether the node is a non-document file.
func (n *Node) IsAttachment() bool { return n.Kind == KindAttachment }

// IsTag reports whether the node was synthesized for a tag.
func (n *Node) IsTag() bool { return n.Kind == KindTag }

// Exists is false only for ghost nodes (referenced but not on disk).
func (n *Node) Exists() bool { return n.Kind != KindGhost }

// PrimaryTag returns the first tag, or OrphanTag when the list is empty.
func (n *Node) PrimaryTag() string {
	if len(n.Tags) == 0 {
		return OrphanTag
	}
	return n.Tags[0]
}

// Edge is a directed pair of indices into the node slice.
type Edge struct {
	Source int `json:"source"`
	Target int `json:"target"`
}

// Entry is a raw scanner record: a document or an attachment found on disk.
type Entry struct {
	Kind         NodeKind
	Label        string
	Tags         []string
	Links        []string
	RelativePath string
	AbsolutePath string
}

// Node converts the entry into a graph node.
func (e Entry) Node() Node {
	return Node{
		Label:        e.Label,
		Kind:         e.Kind,
		Tags:         e.Tags,
		Links:        e.Links,
		RelativePath: e.RelativePath,
		AbsolutePath: e.AbsolutePath,
	}
}
