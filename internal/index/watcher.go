package index

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/starford/vaultgraph/internal/storage"
)

// settleDelay is how long the vault must stay quiet before a burst of
// events is considered settled.
const settleDelay = 200 * time.Millisecond

// EventCallback is called for every relevant vault change.
// kind is one of "created", "updated", "deleted"; path is vault-relative
// with forward slashes.
type EventCallback func(kind string, path string)

// WatchOptions configure Watch.
type WatchOptions struct {
	Root     string
	SkipDirs []string
	// DB, when set, is kept in step with document changes and Source must
	// be set too.
	DB       *DB
	Source   Source
	Logger   *slog.Logger
	OnChange EventCallback
	// OnSettled runs on the watcher goroutine once events have been quiet
	// for settleDelay.
	OnSettled func()
}

type watcher struct {
	opts      WatchOptions
	fw        *fsnotify.Watcher
	skip      map[string]struct{}
	logger    *slog.Logger
	reconcile bool
}

// Watch starts an fsnotify watcher on the vault root and processes
// document and attachment changes until ctx is cancelled.
//
// New directories created at runtime are added to the watch list, and
// directories named in SkipDirs are never watched. Rename events trigger a
// reconciliation pass that removes stale index entries once the burst
// settles.
func Watch(ctx context.Context, opts WatchOptions) error {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("index: new watcher: %w", err)
	}
	defer fw.Close()

	w := &watcher{
		opts:   opts,
		fw:     fw,
		skip:   make(map[string]struct{}, len(opts.SkipDirs)),
		logger: logger,
	}
	for _, d := range opts.SkipDirs {
		w.skip[d] = struct{}{}
	}
	if err := w.addDirsRecursive(opts.Root); err != nil {
		return fmt.Errorf("index: watch %s: %w", opts.Root, err)
	}

	logger.Info("watcher: started", slog.String("root", opts.Root))

	var settleTimer *time.Timer
	var settleCh <-chan time.Time

	scheduleSettle := func() {
		if settleTimer == nil {
			settleTimer = time.NewTimer(settleDelay)
			settleCh = settleTimer.C
		} else {
			settleTimer.Reset(settleDelay)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if settleTimer != nil {
				settleTimer.Stop()
			}
			logger.Info("watcher: stopped")
			return nil

		case <-settleCh:
			w.settle()

		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if w.handle(ev) {
				scheduleSettle()
			}

		case watchErr, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}

// handle applies one event and reports whether it touched the graph.
func (w *watcher) handle(ev fsnotify.Event) bool {
	rel, err := filepath.Rel(w.opts.Root, ev.Name)
	if err != nil {
		return false
	}
	rel = filepath.ToSlash(rel)
	if w.skipped(rel) {
		return false
	}

	if ev.Op&fsnotify.Create != 0 {
		if info, statErr := os.Stat(ev.Name); statErr == nil && info.IsDir() {
			if addErr := w.addDirsRecursive(ev.Name); addErr != nil {
				w.logger.Warn("watcher: add new dir failed",
					slog.String("path", rel),
					slog.String("error", addErr.Error()))
			} else {
				w.logger.Debug("watcher: watching new dir", slog.String("path", rel))
			}
			w.indexNewDir(ev.Name)
			return true
		}
	}

	name := path.Base(rel)
	doc := storage.IsDocument(name)
	if !doc && !storage.IsAttachment(name) {
		// A removed directory takes its files with it without per-file events.
		if ev.Op&(fsnotify.Remove|fsnotify.Rename) != 0 {
			w.reconcile = true
			return true
		}
		return false
	}

	switch {
	case ev.Op&(fsnotify.Create|fsnotify.Write) != 0:
		kind := "updated"
		if ev.Op&fsnotify.Create != 0 {
			kind = "created"
		}
		if doc && !w.index(rel) {
			return false
		}
		w.emit(kind, rel)

	case ev.Op&fsnotify.Remove != 0:
		if doc {
			w.remove(rel)
		}
		w.emit("deleted", rel)

	case ev.Op&fsnotify.Rename != 0:
		// fsnotify reports Rename on the old path only; the new path
		// arrives as a Create if it stays inside a watched dir.
		if doc {
			w.remove(rel)
		}
		w.emit("deleted", rel)
		w.reconcile = true

	default:
		return false
	}
	return true
}

func (w *watcher) settle() {
	if w.reconcile && w.opts.DB != nil {
		w.reconcileIndex()
	}
	w.reconcile = false
	if w.opts.OnSettled != nil {
		w.opts.OnSettled()
	}
}

func (w *watcher) emit(kind, rel string) {
	w.logger.Debug("watcher: change", slog.String("path", rel), slog.String("op", kind))
	if w.opts.OnChange != nil {
		w.opts.OnChange(kind, rel)
	}
}

// index upserts rel into the DB, if any. It reports false on failure.
func (w *watcher) index(rel string) bool {
	if w.opts.DB == nil {
		return true
	}
	data, err := w.opts.Source.ReadFile(rel)
	if err != nil {
		w.logger.Warn("watcher: read failed", slog.String("path", rel), slog.String("error", err.Error()))
		return false
	}
	if err := indexFile(w.opts.DB, rel, data); err != nil {
		w.logger.Warn("watcher: index failed", slog.String("path", rel), slog.String("error", err.Error()))
		return false
	}
	return true
}

func (w *watcher) remove(rel string) {
	if w.opts.DB == nil {
		return
	}
	if err := w.opts.DB.DeleteDocument(rel); err != nil {
		w.logger.Warn("watcher: delete failed", slog.String("path", rel), slog.String("error", err.Error()))
	}
}

// reconcileIndex removes index entries without a file on disk and indexes
// on-disk documents that are missing or stale.
func (w *watcher) reconcileIndex() {
	checksums, err := w.opts.DB.AllChecksums()
	if err != nil {
		w.logger.Warn("reconcile: all checksums failed", slog.String("error", err.Error()))
		return
	}
	metas, err := w.opts.Source.List("")
	if err != nil {
		w.logger.Warn("reconcile: list failed", slog.String("error", err.Error()))
		return
	}

	disk := make(map[string]string, len(metas))
	for _, m := range metas {
		disk[m.Path] = m.Checksum
	}

	for p := range checksums {
		if _, ok := disk[p]; ok {
			continue
		}
		if err := w.opts.DB.DeleteDocument(p); err == nil {
			w.logger.Debug("reconcile: removed stale", slog.String("path", p))
			w.emit("deleted", p)
		}
	}

	for p, cs := range disk {
		if checksums[p] == cs {
			continue
		}
		if w.index(p) {
			w.logger.Debug("reconcile: indexed", slog.String("path", p))
			w.emit("created", p)
		}
	}
}

// indexNewDir reports the documents and attachments already present in a
// newly created directory.
func (w *watcher) indexNewDir(dir string) {
	_ = filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if _, ok := w.skip[d.Name()]; ok && p != dir {
				return filepath.SkipDir
			}
			return nil
		}
		rel, relErr := filepath.Rel(w.opts.Root, p)
		if relErr != nil {
			return nil
		}
		rel = filepath.ToSlash(rel)
		switch {
		case storage.IsDocument(d.Name()):
			if w.index(rel) {
				w.emit("created", rel)
			}
		case storage.IsAttachment(d.Name()):
			w.emit("created", rel)
		}
		return nil
	})
}

// skipped reports whether any directory in rel is a skipped one.
func (w *watcher) skipped(rel string) bool {
	if len(w.skip) == 0 {
		return false
	}
	for _, part := range strings.Split(rel, "/") {
		if _, ok := w.skip[part]; ok {
			return true
		}
	}
	return false
}

// addDirsRecursive adds root and all its non-skipped subdirectories to the
// watcher.
func (w *watcher) addDirsRecursive(root string) error {
	return filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if _, ok := w.skip[d.Name()]; ok && p != root {
			return filepath.SkipDir
		}
		return w.fw.Add(p)
	})
}
