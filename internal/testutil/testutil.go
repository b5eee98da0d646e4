// Package testutil provides shared test helpers for setting up vaults and indexes.
package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/starford/vaultgraph/internal/index"
	"github.com/starford/vaultgraph/internal/storage"
)

// TestIndex creates a temporary SQLite index that is automatically cleaned up.
func TestIndex(t *testing.T) *index.DB {
	t.Helper()
	dbFile, err := os.CreateTemp("", "vaultgraph-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	db, err := index.Open(dbFile.Name())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// TestVault creates a temporary vault populated with files (slash-separated
// relative path to content) and returns its root and provider.
func TestVault(t *testing.T, files map[string]string, skipDirs ...string) (string, *storage.FS) {
	t.Helper()
	vaultDir := t.TempDir()
	WriteFiles(t, vaultDir, files)
	store, err := storage.NewFS(vaultDir, skipDirs...)
	if err != nil {
		t.Fatal(err)
	}
	return vaultDir, store
}

// WriteFiles writes files under root, creating parent directories.
func WriteFiles(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		p := filepath.Join(root, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
}
