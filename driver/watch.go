package driver

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/gnoswap-labs/unroll/internal/loader"
	tt "github.com/gnoswap-labs/unroll/internal/types"
)

// DefaultSettle is how long the watcher waits after a change before
// rerunning, so that a burst of writes is handled once.
const DefaultSettle = 100 * time.Millisecond

// Watcher reruns the pass whenever a watched design file changes.
type Watcher struct {
	cache    *Cache
	logger   *zap.Logger
	watcher  *fsnotify.Watcher
	onReport func(*tt.Report)
	settle   time.Duration

	// files are watched through their directory; roots recursively
	files map[string]bool
	roots []string
}

// NewWatcher creates a watcher that hands every fresh report to onReport.
// Runs go through a Cache, so rewrites that leave a file unchanged are
// skipped. Passing a *Cache lets an earlier run seed it.
func NewWatcher(runner Runner, logger *zap.Logger, onReport func(*tt.Report)) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("error creating watcher: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	cache, ok := runner.(*Cache)
	if !ok {
		cache = NewCache(runner)
	}
	return &Watcher{
		cache:    cache,
		logger:   logger,
		watcher:  fw,
		onReport: onReport,
		settle:   DefaultSettle,
		files:    make(map[string]bool),
	}, nil
}

// Add watches paths. Directories are watched recursively. A file is
// watched through its directory, since editors often replace files rather
// than write them in place.
func (w *Watcher) Add(paths ...string) error {
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return fmt.Errorf("error accessing %s: %w", p, err)
		}
		if !info.IsDir() {
			w.files[filepath.Clean(p)] = true
			if err := w.watcher.Add(filepath.Dir(p)); err != nil {
				return fmt.Errorf("error watching %s: %w", p, err)
			}
			continue
		}
		w.roots = append(w.roots, filepath.Clean(p))
		if err := w.addTree(p); err != nil {
			return err
		}
	}
	return nil
}

// Run handles events until ctx is done.
func (w *Watcher) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			w.handleFileEvent(ctx, event)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Error("watch error", zap.Error(err))
		}
	}
}

// addTree watches dir and every directory below it.
func (w *Watcher) addTree(dir string) error {
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return w.watcher.Add(path)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("error adding directory to watcher: %w", err)
	}
	return nil
}

// Close stops watching.
func (w *Watcher) Close() error {
	return w.watcher.Close()
}

func (w *Watcher) handleFileEvent(ctx context.Context, event fsnotify.Event) {
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
		return
	}
	name := filepath.Clean(event.Name)
	if event.Has(fsnotify.Create) && w.underRoot(name) {
		if info, err := os.Stat(name); err == nil && info.IsDir() {
			if err := w.addTree(name); err != nil {
				w.logger.Error("Error watching new directory", zap.String("dir", name), zap.Error(err))
			}
			return
		}
	}
	if !w.relevant(name) {
		return
	}

	select {
	case <-ctx.Done():
		return
	case <-time.After(w.settle):
	}

	report, fresh, err := w.cache.Refresh(name)
	if err != nil {
		w.logger.Error("Error processing file", zap.String("file", name), zap.Error(err))
		return
	}
	if !fresh {
		w.logger.Debug("File unchanged", zap.String("file", name))
		return
	}
	w.onReport(report)
}

func (w *Watcher) relevant(name string) bool {
	if !loader.HasDesignExtension(name) {
		return false
	}
	return w.files[name] || w.underRoot(name)
}

func (w *Watcher) underRoot(name string) bool {
	for _, root := range w.roots {
		if rel, err := filepath.Rel(root, name); err == nil && !strings.HasPrefix(rel, "..") {
			return true
		}
	}
	return false
}
