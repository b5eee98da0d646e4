//go:build !sqlite_fts5

package index

import (
	"database/sql"
	"fmt"
	"strings"
	"unicode/utf8"
)

// snippetRadius is the number of bytes kept on each side of a match.
const snippetRadius = 60

func initFTS(_ *sql.DB) error {
	return nil
}

func ftsUpsert(_ *sql.Tx, _, _, _ string, _ []string) error {
	return nil
}

func ftsDelete(_ *sql.Tx, _ string) error {
	return nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// Search matches query as a plain substring of the label, body or tags.
// Results are ordered by path.
func (db *DB) Search(query string, limit int) ([]SearchResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, nil
	}
	like := "%" + likeEscaper.Replace(query) + "%"
	rows, err := db.conn.Query(`
		SELECT path, label, body
		FROM documents
		WHERE label LIKE ?1 ESCAPE '\' OR body LIKE ?1 ESCAPE '\' OR tags LIKE ?1 ESCAPE '\'
		ORDER BY path
		LIMIT ?2
	`, like, searchLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("index: search: %w", err)
	}
	return scanResults(rows, func(body string) string { return snippet(body, query) })
}

// snippet cuts a window of body around the first case-insensitive match
// of query, or the head of body when only the label or tags matched.
func snippet(body, query string) string {
	at := strings.Index(strings.ToLower(body), strings.ToLower(query))
	if at < 0 || at > len(body) {
		at = 0
	}
	start, end := max(0, at-snippetRadius), min(len(body), at+len(query)+snippetRadius)
	for start > 0 && !utf8.RuneStart(body[start]) {
		start--
	}
	for end < len(body) && !utf8.RuneStart(body[end]) {
		end++
	}
	s := strings.Join(strings.Fields(body[start:end]), " ")
	if start > 0 {
		s = "..." + s
	}
	if end < len(body) {
		s += "..."
	}
	return s
}
