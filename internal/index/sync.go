package index

import (
	"fmt"
	"log/slog"
	"path"
	"strings"

	"github.com/starford/vaultgraph/internal/parser"
	"github.com/starford/vaultgraph/internal/storage"
)

// Source is the part of the vault the index reads from. *storage.FS
// implements it.
type Source interface {
	List(dir string) ([]storage.FileMeta, error)
	ReadFile(path string) ([]byte, error)
}

// Sync walks the vault and brings the index up to date:
//   - new/changed documents are parsed and upserted
//   - documents removed from disk are deleted from the index
func Sync(db *DB, src Source, logger *slog.Logger) error {
	metas, err := src.List("")
	if err != nil {
		return fmt.Errorf("index: sync: %w", err)
	}

	checksums, err := db.AllChecksums()
	if err != nil {
		return err
	}

	disk := make(map[string]struct{}, len(metas))
	for _, m := range metas {
		disk[m.Path] = struct{}{}

		if checksums[m.Path] == m.Checksum {
			continue
		}

		data, err := src.ReadFile(m.Path)
		if err != nil {
			logger.Warn("sync: read failed", slog.String("path", m.Path), slog.String("error", err.Error()))
			continue
		}
		if err := indexFile(db, m.Path, data); err != nil {
			logger.Warn("sync: index failed", slog.String("path", m.Path), slog.String("error", err.Error()))
		} else {
			logger.Debug("sync: indexed", slog.String("path", m.Path))
		}
	}

	for p := range checksums {
		if _, ok := disk[p]; ok {
			continue
		}
		if err := db.DeleteDocument(p); err != nil {
			logger.Warn("sync: delete failed", slog.String("path", p), slog.String("error", err.Error()))
		} else {
			logger.Debug("sync: removed stale", slog.String("path", p))
		}
	}

	logger.Info("sync: complete", slog.Int("documents", len(metas)))
	return nil
}

// indexFile parses data and upserts it into the DB. The label is the file
// name without extension, as in the graph.
func indexFile(db *DB, rel string, data []byte) error {
	res := parser.Parse(data)
	name := path.Base(rel)
	row := DocumentRow{
		Path:     rel,
		Label:    strings.TrimSuffix(name, path.Ext(name)),
		Checksum: storage.Checksum(data),
		Tags:     res.Tags,
	}
	return db.UpsertDocument(row, string(data))
}
