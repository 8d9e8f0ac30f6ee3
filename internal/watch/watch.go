// Package watch ingests problem files as they appear in a directory tree.
package watch

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/frederic-klein/tspingest/internal/discover"
	"github.com/frederic-klein/tspingest/internal/ingest"
)

// DefaultDebounce is how long the watcher waits for writes to settle.
const DefaultDebounce = 500 * time.Millisecond

// Ingester processes a batch of changed files.
type Ingester interface {
	Run(ctx context.Context, paths []string) (*ingest.Summary, error)
}

// Watcher batches create and write events and hands them to an Ingester.
type Watcher struct {
	root     string
	include  []string
	ingester Ingester
	logger   *zap.Logger
	debounce time.Duration
	fs       *fsnotify.Watcher
}

// New starts watching root and every directory below it. Events are only
// delivered once Run is called.
func New(root string, include []string, ingester Ingester, logger *zap.Logger) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}
	w := &Watcher{
		root:     root,
		include:  include,
		ingester: ingester,
		logger:   logger,
		debounce: DefaultDebounce,
		fs:       fsw,
	}
	if err := w.addTree(root); err != nil {
		fsw.Close()
		return nil, err
	}
	return w, nil
}

// SetDebounce changes the settle delay.
func (w *Watcher) SetDebounce(d time.Duration) {
	w.debounce = d
}

func (w *Watcher) addTree(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if err := w.fs.Add(path); err != nil {
			return fmt.Errorf("watching %s: %w", path, err)
		}
		w.logger.Debug("watching directory", zap.String("path", path))
		return nil
	})
}

// Run delivers batches until ctx is cancelled. It closes the watcher on return.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.fs.Close()

	pending := make(map[string]struct{})
	timer := time.NewTimer(w.debounce)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	w.logger.Info("watching for problem files", zap.String("root", w.root))
	for {
		select {
		case event, ok := <-w.fs.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if event.Op&fsnotify.Create != 0 {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if err := w.addTree(event.Name); err != nil {
						w.logger.Warn("failed to watch new directory", zap.String("path", event.Name), zap.Error(err))
					}
					continue
				}
			}
			if !discover.Matches(event.Name, w.include) {
				continue
			}
			w.logger.Debug("file changed", zap.String("file", event.Name), zap.String("operation", event.Op.String()))
			pending[event.Name] = struct{}{}
			timer.Reset(w.debounce)

		case <-timer.C:
			w.flush(ctx, pending)
			pending = make(map[string]struct{})

		case err, ok := <-w.fs.Errors:
			if !ok {
				return nil
			}
			w.logger.Error("file watcher error", zap.Error(err))

		case <-ctx.Done():
			w.logger.Info("stopping watcher")
			return nil
		}
	}
}

func (w *Watcher) flush(ctx context.Context, pending map[string]struct{}) {
	if len(pending) == 0 {
		return
	}
	paths := make([]string, 0, len(pending))
	for p := range pending {
		// Files removed again before the debounce fired are skipped.
		if _, err := os.Stat(p); err == nil {
			paths = append(paths, p)
		}
	}
	if len(paths) == 0 {
		return
	}
	sort.Strings(paths)

	sum, err := w.ingester.Run(ctx, paths)
	if err != nil {
		w.logger.Error("ingest failed", zap.Strings("files", paths), zap.Error(err))
		return
	}
	w.logger.Info("ingested changes",
		zap.Int("files", len(paths)),
		zap.Int("stored", sum.Stored),
		zap.Int("failed", sum.Failed),
	)
}
