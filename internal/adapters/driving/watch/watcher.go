// Package watch triggers ingestion when new archives land in the archive tree.
package watch

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/fmrif/osmium-ingest/internal/core/domain"
	"github.com/fmrif/osmium-ingest/internal/core/ports/driving"
	"github.com/fmrif/osmium-ingest/internal/logger"
)

// DefaultSettle is how long an archive must stay unchanged before it is ingested.
const DefaultSettle = 2 * time.Minute

// archiveDepth is the number of path elements in <scanner>/<yyyy>/<mm>/<dd>/<exam>/<file>.
const archiveDepth = 6

// ErrClosed is returned when Run is called on a closed watcher.
var ErrClosed = errors.New("watcher closed")

// Watcher follows the archive tree and ingests archives once their
// transfer has settled.
type Watcher struct {
	root     string
	suffixes []string
	settle   time.Duration
	ingest   driving.IngestService
	now      func() time.Time

	mu      sync.Mutex
	closed  bool
	fsw     *fsnotify.Watcher
	pending map[string]time.Time
}

// New creates a watcher over settings.DataDir. A non-positive settle uses DefaultSettle.
func New(settings domain.Settings, ingest driving.IngestService, settle time.Duration) *Watcher {
	if settle <= 0 {
		settle = DefaultSettle
	}
	return &Watcher{
		root:     settings.DataDir,
		suffixes: settings.ArchiveSuffixes,
		settle:   settle,
		ingest:   ingest,
		now:      time.Now,
		pending:  make(map[string]time.Time),
	}
}

// Run watches until ctx is done or the watcher is closed.
func (w *Watcher) Run(ctx context.Context) error {
	info, err := os.Stat(w.root)
	if err != nil {
		return fmt.Errorf("%w: data directory: %v", domain.ErrInvalidConfig, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%w: data directory %s is not a directory", domain.ErrInvalidConfig, w.root)
	}

	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return ErrClosed
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		w.mu.Unlock()
		return fmt.Errorf("create watcher: %w", err)
	}
	w.fsw = fsw
	w.mu.Unlock()
	defer w.Close() //nolint:errcheck

	if err := w.addTree(w.root, false); err != nil {
		return err
	}
	logger.Info("Watching %s for new archives", w.root)

	poll := max(w.settle/4, 50*time.Millisecond)
	ticker := time.NewTicker(poll)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			w.handleEvent(ev)
		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			logger.Warn("watch error: %v", err)
		case <-ticker.C:
			w.flush(ctx)
		}
	}
}

// Close stops the watcher. It is safe to call more than once.
func (w *Watcher) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return nil
	}
	w.closed = true
	if w.fsw != nil {
		return w.fsw.Close()
	}
	return nil
}

// Pending returns the archives waiting to settle, sorted.
func (w *Watcher) Pending() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]string, 0, len(w.pending))
	for p := range w.pending {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// addTree watches dir and every directory below it. With pickup set, archives
// already present are marked pending; this covers files written into a new
// directory before its watch was registered.
func (w *Watcher) addTree(dir string, pickup bool) error {
	return filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			logger.Debug("skipping %s: %v", p, err)
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			if p != dir && isHidden(d.Name()) {
				return fs.SkipDir
			}
			if err := w.fsw.Add(p); err != nil {
				return fmt.Errorf("watch %s: %w", p, err)
			}
			return nil
		}
		if pickup && p != dir && w.isArchive(p) {
			w.touch(p)
		}
		return nil
	})
}

// handleEvent records archive activity and follows new directories.
func (w *Watcher) handleEvent(ev fsnotify.Event) {
	if isHidden(filepath.Base(ev.Name)) {
		return
	}

	switch {
	case ev.Has(fsnotify.Remove), ev.Has(fsnotify.Rename):
		w.mu.Lock()
		delete(w.pending, ev.Name)
		w.mu.Unlock()
		return
	case ev.Has(fsnotify.Create), ev.Has(fsnotify.Write):
	default:
		return
	}

	info, err := os.Stat(ev.Name)
	if err != nil {
		return
	}
	if info.IsDir() {
		if ev.Has(fsnotify.Create) && w.fsw != nil {
			if err := w.addTree(ev.Name, true); err != nil {
				logger.Warn("%v", err)
			}
		}
		return
	}
	if info.Mode().IsRegular() && w.isArchive(ev.Name) {
		w.touch(ev.Name)
	}
}

func (w *Watcher) touch(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.pending[path] = w.now()
}

// ready removes and returns the archives unchanged for at least the settle time.
func (w *Watcher) ready() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	now := w.now()
	var out []string
	for p, seen := range w.pending {
		if now.Sub(seen) >= w.settle {
			out = append(out, p)
			delete(w.pending, p)
		}
	}
	sort.Strings(out)
	return out
}

// flush ingests every settled archive in one run.
func (w *Watcher) flush(ctx context.Context) {
	archives := w.ready()
	if len(archives) == 0 {
		return
	}
	logger.Info("Ingesting %d settled archive(s)", len(archives))
	report, err := w.ingest.Run(ctx, domain.RunRequest{Archives: archives})
	if err != nil {
		logger.Error("ingest: %v", err)
		return
	}
	logger.Info("Ingested %d, skipped %d, failed %d", report.Ingested, report.Skipped, report.Failed)
}

// isArchive reports whether path sits at archive depth below root and
// carries an archive suffix.
func (w *Watcher) isArchive(path string) bool {
	rel, err := filepath.Rel(w.root, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return false
	}
	if len(strings.Split(filepath.ToSlash(rel), "/")) != archiveDepth {
		return false
	}
	for _, s := range w.suffixes {
		if strings.HasSuffix(path, s) {
			return true
		}
	}
	return false
}

func isHidden(name string) bool {
	return strings.HasPrefix(name, ".")
}
