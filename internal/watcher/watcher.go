// Package watcher keeps an index in step with a directory: file changes start
// a debounced load job that stages the new files and rebuilds the index.
package watcher

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/gcbaptista/go-vsr-engine/internal/logger"
)

const defaultDebounce = 500 * time.Millisecond

// Reloader starts a background load of a directory into an index.
// *engine.Engine implements it.
type Reloader interface {
	LoadDirectoryAsync(name, dir string, build bool) (string, error)
}

// Watcher watches a directory tree. fsnotify is not recursive, so every
// directory of the tree gets its own watch, including ones created later.
type Watcher struct {
	dir      string
	index    string
	debounce time.Duration
	reloader Reloader
	fsw      *fsnotify.Watcher
	logger   *slog.Logger

	mu      sync.Mutex
	timer   *time.Timer
	stopped bool // set when Run returns; no reload starts afterwards
	jobs    chan string
}

// New creates a watcher for dir that reloads into the named index.
func New(dir, index string, debounce time.Duration, reloader Reloader) (*Watcher, error) {
	if debounce <= 0 {
		debounce = defaultDebounce
	}

	info, err := os.Stat(dir)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", dir)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}

	w := &Watcher{
		dir:      dir,
		index:    index,
		debounce: debounce,
		reloader: reloader,
		fsw:      fsw,
		logger:   logger.WithComponent("watcher").With("dir", dir, "index", index),
		jobs:     make(chan string, 16),
	}
	if err := w.addTree(dir); err != nil {
		_ = fsw.Close()
		return nil, err
	}
	return w, nil
}

// Jobs delivers the ID of every load job the watcher starts. IDs are dropped
// when nobody reads them.
func (w *Watcher) Jobs() <-chan string {
	return w.jobs
}

// Run loads the directory once, then reloads after every burst of changes until
// ctx is cancelled. A Watcher runs once.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.fsw.Close()
	defer w.stop()

	w.logger.Info("watching directory")
	w.reload()

	for {
		select {
		case event, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			w.handle(event)

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Error("watch error", "error", err)

		case <-ctx.Done():
			w.logger.Info("watcher stopping", "reason", ctx.Err())
			return nil
		}
	}
}

func (w *Watcher) handle(event fsnotify.Event) {
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
		return
	}

	if event.Has(fsnotify.Create) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if err := w.addTree(event.Name); err != nil {
				w.logger.Warn("failed to watch new directory", "path", event.Name, "error", err)
			}
		}
	}

	w.logger.Debug("change detected", "path", event.Name, "op", event.Op.String())
	w.schedule()
}

// schedule restarts the debounce timer
func (w *Watcher) schedule() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, w.reload)
}

// stop waits for a reload in progress and keeps pending timers from starting another.
func (w *Watcher) stop() {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.stopped = true
	if w.timer != nil {
		w.timer.Stop()
	}
}

func (w *Watcher) reload() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.stopped {
		return
	}

	jobID, err := w.reloader.LoadDirectoryAsync(w.index, w.dir, true)
	if err != nil {
		w.logger.Error("failed to start reload", "error", err)
		return
	}
	w.logger.Info("reload started", "job_id", jobID)

	select {
	case w.jobs <- jobID:
	default:
	}
}

func (w *Watcher) addTree(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if err := w.fsw.Add(path); err != nil {
				return fmt.Errorf("failed to watch %s: %w", path, err)
			}
		}
		return nil
	})
}
