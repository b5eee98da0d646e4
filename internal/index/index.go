package index

import "github.com/starford/vaultgraph/internal/classify"

// DocumentIndex is the set of index operations the runtime depends on.
type DocumentIndex interface {
	UpsertDocument(d DocumentRow, body string) error
	DeleteDocument(path string) error
	GetChecksum(path string) (string, error)
	GetDocument(path string) (*DocumentRow, error)
	AllChecksums() (map[string]string, error)
	Count() (int, error)
	Body(path string) (string, bool)
	Search(query string, limit int) ([]SearchResult, error)
	Close() error
}

var (
	_ DocumentIndex          = (*DB)(nil)
	_ classify.ContentSource = (*DB)(nil)
)
