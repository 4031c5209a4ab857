// Package watch keeps the metadata graph in sync with a directory of
// local metadata documents.
package watch

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/fsnotify/fsnotify"

	"github.com/opencefadb/opencefadb-cli/internal/core/domain"
	"github.com/opencefadb/opencefadb-cli/internal/core/ports/driving"
	"github.com/opencefadb/opencefadb-cli/internal/logger"
	"github.com/opencefadb/opencefadb-cli/internal/rdfio"
)

// DefaultDebounce is how long changes are collected before a reload.
const DefaultDebounce = 500 * time.Millisecond

// Options configure a Watcher.
type Options struct {
	// Patterns are doublestar globs relative to the directory. Empty
	// watches every RDF suffix.
	Patterns []string

	// Debounce overrides DefaultDebounce.
	Debounce time.Duration

	// Include lists documents outside the directory that are loaded again
	// whenever a change clears the store, such as stored release
	// configurations.
	Include []domain.Document

	// OnReload is called after every reload with the statements loaded
	// and the load error, if any.
	OnReload func(n int, err error)
}

// Watcher reloads metadata documents when they change on disk.
//
// New documents are loaded incrementally. Statements of a modified or
// removed document cannot be retracted one by one, so any such change
// clears the store and reloads the whole directory.
type Watcher struct {
	dir      string
	patterns []string
	debounce time.Duration
	metadata driving.MetadataService
	onReload func(int, error)
	include  []domain.Document

	fsw     *fsnotify.Watcher
	pending map[string]fsnotify.Op
	known   map[string]bool
	rescan  bool
}

// New creates a watcher for dir. Nothing is watched until Run.
func New(metadata driving.MetadataService, dir string, opts Options) (*Watcher, error) {
	dir = filepath.Clean(dir)
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", dir, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s is not a directory", domain.ErrInvalidInput, dir)
	}
	patterns := opts.Patterns
	if len(patterns) == 0 {
		patterns = rdfio.DefaultPatterns
	}
	for _, p := range patterns {
		if !doublestar.ValidatePattern(p) {
			return nil, fmt.Errorf("%w: glob pattern %q", domain.ErrInvalidInput, p)
		}
	}
	debounce := opts.Debounce
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating watcher: %w", err)
	}
	return &Watcher{
		dir:      dir,
		patterns: patterns,
		debounce: debounce,
		metadata: metadata,
		onReload: opts.OnReload,
		include:  opts.Include,
		fsw:      fsw,
		pending:  make(map[string]fsnotify.Op),
		known:    make(map[string]bool),
	}, nil
}

// Run loads the directory, then reloads on change until ctx is done.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.fsw.Close()

	if err := w.addRecursive(w.dir); err != nil {
		return err
	}
	logger.Info("Watching %s", w.dir)
	w.reload(ctx, true)

	ticker := time.NewTicker(w.debounce)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			w.handle(event)

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			logger.Warn("watch: %v", err)

		case <-ticker.C:
			w.flush(ctx)
		}
	}
}

// addRecursive watches dir and every directory below it, skipping
// hidden ones.
func (w *Watcher) addRecursive(root string) error {
	return filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if name := d.Name(); path != root && strings.HasPrefix(name, ".") {
			return filepath.SkipDir
		}
		if err := w.fsw.Add(path); err != nil {
			logger.Warn("Failed to watch %s: %v", path, err)
			return nil
		}
		logger.Debug("watching directory %s", path)
		return nil
	})
}

// Matches reports whether path, below the watched directory, is a
// document the watcher tracks.
func (w *Watcher) Matches(path string) bool {
	rel, err := filepath.Rel(w.dir, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return false
	}
	if !rdfio.IsDocument(rel) {
		return false
	}
	rel = filepath.ToSlash(rel)
	for _, p := range w.patterns {
		if ok, _ := doublestar.Match(p, rel); ok {
			return true
		}
	}
	return false
}

func (w *Watcher) handle(event fsnotify.Event) {
	if event.Has(fsnotify.Create) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if err := w.addRecursive(event.Name); err != nil {
				logger.Warn("Failed to watch %s: %v", event.Name, err)
			}
			// Files created together with the directory produce no events.
			w.rescan = true
			return
		}
	}
	if event.Has(fsnotify.Chmod) && !event.Has(fsnotify.Write) {
		return
	}
	if !w.Matches(event.Name) {
		return
	}
	logger.Debug("watch: %s %s", event.Op, event.Name)
	w.pending[event.Name] |= event.Op
}

// flush applies pending changes. Documents not seen before are loaded
// incrementally; anything touching a known document triggers a reload.
func (w *Watcher) flush(ctx context.Context) {
	if len(w.pending) == 0 && !w.rescan {
		return
	}
	full := w.rescan
	var created []domain.Document
	for path, op := range w.pending {
		if w.known[path] {
			full = true
			continue
		}
		if op.Has(fsnotify.Remove) || op.Has(fsnotify.Rename) {
			continue
		}
		if _, err := os.Stat(path); err != nil {
			continue
		}
		format, err := domain.FormatFromPath(path)
		if err != nil {
			continue
		}
		created = append(created, domain.Document{Path: path, Format: format})
	}
	clear(w.pending)
	w.rescan = false

	if full {
		w.reload(ctx, false)
		return
	}
	if len(created) == 0 {
		return
	}

	sort.Slice(created, func(i, j int) bool { return created[i].Path < created[j].Path })
	for _, d := range created {
		w.known[d.Path] = true
	}
	n, err := w.metadata.Load(ctx, created)
	w.report(n, err)
}

// reload clears the store, unless this is the first load, and loads every
// matching document below the directory. After a clear the included
// documents are loaded first.
func (w *Watcher) reload(ctx context.Context, initial bool) {
	docs, err := rdfio.Discover(w.dir, w.patterns)
	if err != nil {
		w.report(0, err)
		return
	}
	clear(w.known)
	for _, d := range docs {
		w.known[d.Path] = true
	}
	if !initial {
		if err := w.metadata.Clear(ctx); err != nil {
			w.report(0, err)
			return
		}
		docs = append(slices.Clone(w.include), docs...)
	}
	n, err := w.metadata.Load(ctx, docs)
	w.report(n, err)
}

func (w *Watcher) report(n int, err error) {
	var batch *domain.BatchError
	switch {
	case err == nil:
		logger.Info("Loaded %d statements", n)
	case errors.As(err, &batch):
		logger.Warn("Loaded %d statements, %d of %d documents failed", n, len(batch.Failures), batch.Total)
		for _, f := range batch.Failures {
			logger.Warn("  %s: %v", f.ID, f.Err)
		}
	case errors.Is(err, context.Canceled):
		return
	default:
		logger.Error("Reload failed: %v", err)
	}
	if w.onReload != nil {
		w.onReload(n, err)
	}
}
