// Package scanner walks a vault and turns its files into raw graph entries.
package scanner

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"path"
	"strings"

	"github.com/starford/vaultgraph/internal/models"
	"github.com/starford/vaultgraph/internal/parser"
	"github.com/starford/vaultgraph/internal/storage"
)

// Options tunes a scan.
type Options struct {
	// SkipDirs lists directory names that are not descended into.
	SkipDirs []string
	Logger   *slog.Logger
}

// Result is the ordered output of a scan.
type Result struct {
	Entries []models.Entry
	// Skipped counts entries that could not be read.
	Skipped int
}

// Documents returns the number of document entries.
func (r *Result) Documents() int {
	n := 0
	for _, e := range r.Entries {
		if e.Kind == models.KindDocument {
			n++
		}
	}
	return n
}

type walker struct {
	p      storage.Provider
	skip   map[string]struct{}
	logger *slog.Logger
	res    *Result
}

// Scan walks the provider root depth first. Entries come out in traversal
// order: each directory's children sorted by name, subdirectories expanded
// in place. Unreadable files and directories are skipped; only an unreadable
// root or a cancelled context fails the scan.
func Scan(ctx context.Context, p storage.Provider, opts Options) (*Result, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	w := &walker{
		p:      p,
		skip:   make(map[string]struct{}, len(opts.SkipDirs)),
		logger: logger,
		res:    &Result{},
	}
	for _, d := range opts.SkipDirs {
		w.skip[d] = struct{}{}
	}

	entries, err := p.ReadDir("")
	if err != nil {
		return nil, fmt.Errorf("scanner: read root: %w", err)
	}
	if err := w.walkEntries(ctx, "", entries); err != nil {
		return nil, err
	}
	logger.Debug("scanner: done",
		slog.Int("entries", len(w.res.Entries)),
		slog.Int("skipped", w.res.Skipped))
	return w.res, nil
}

func (w *walker) walkDir(ctx context.Context, dir string) error {
	entries, err := w.p.ReadDir(dir)
	if err != nil {
		w.skipped(dir, err)
		return nil
	}
	return w.walkEntries(ctx, dir, entries)
}

func (w *walker) walkEntries(ctx context.Context, dir string, entries []fs.DirEntry) error {
	for _, d := range entries {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("scanner: %w", err)
		}
		rel := path.Join(dir, d.Name())

		isDir := d.IsDir()
		if d.Type()&fs.ModeSymlink != 0 {
			info, err := w.p.Stat(rel)
			if err != nil {
				w.skipped(rel, err)
				continue
			}
			if info.IsDir() {
				// Symlinked directories are not followed to avoid cycles.
				continue
			}
		}

		if isDir {
			if _, ok := w.skip[d.Name()]; ok {
				continue
			}
			if err := w.walkDir(ctx, rel); err != nil {
				return err
			}
			continue
		}

		switch {
		case storage.IsDocument(d.Name()):
			w.addDocument(rel, d.Name())
		case storage.IsAttachment(d.Name()):
			w.addAttachment(rel, d.Name())
		}
	}
	return nil
}

func (w *walker) addDocument(rel, name string) {
	data, err := w.p.ReadFile(rel)
	if err != nil {
		w.skipped(rel, err)
		return
	}
	abs, err := w.p.Abs(rel)
	if err != nil {
		w.skipped(rel, err)
		return
	}
	res := parser.Parse(data)
	w.res.Entries = append(w.res.Entries, models.Entry{
		Kind:         models.KindDocument,
		Label:        strings.TrimSuffix(name, path.Ext(name)),
		Tags:         res.Tags,
		Links:        res.Links,
		RelativePath: rel,
		AbsolutePath: abs,
	})
}

func (w *walker) addAttachment(rel, name string) {
	abs, err := w.p.Abs(rel)
	if err != nil {
		w.skipped(rel, err)
		return
	}
	w.res.Entries = append(w.res.Entries, models.Entry{
		Kind:         models.KindAttachment,
		Label:        name,
		Tags:         []string{models.AttachmentTag},
		RelativePath: rel,
		AbsolutePath: abs,
	})
}

func (w *walker) skipped(rel string, err error) {
	w.res.Skipped++
	w.logger.Debug("scanner: skipped entry", slog.String("path", rel), slog.String("error", err.Error()))
}
