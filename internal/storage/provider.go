// Package storage defines the read-only vault file-system abstraction.
package storage

import (
	"io/fs"
	"path"
	"strings"
	"time"
)

// Provider is the interface the scanner and classifier read the vault through.
// All paths are relative to the vault root.
type Provider interface {
	// Root returns the absolute vault root.
	Root() string
	// ReadDir lists a directory, sorted by file name.
	ReadDir(dir string) ([]fs.DirEntry, error)
	// ReadFile returns the raw bytes of a vault file.
	ReadFile(path string) ([]byte, error)
	// Stat returns file metadata.
	Stat(path string) (fs.FileInfo, error)
	// Abs resolves a vault path to an absolute one, rejecting traversal.
	Abs(path string) (string, error)
}

// FileMeta is a lightweight listing record used for incremental indexing.
type FileMeta struct {
	Path      string
	Checksum  string
	UpdatedAt time.Time
}

var attachmentExts = map[string]struct{}{
	".png":  {},
	".jpg":  {},
	".jpeg": {},
	".pdf":  {},
	".gif":  {},
}

// IsAttachment reports whether name has an attachment extension.
func IsAttachment(name string) bool {
	_, ok := attachmentExts[strings.ToLower(path.Ext(name))]
	return ok
}

// IsDocument reports whether name is a Markdown document.
func IsDocument(name string) bool {
	return strings.EqualFold(path.Ext(name), ".md")
}
