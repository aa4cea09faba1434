// Package loader turns a directory tree into raw documents, one per file.
package loader

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"sync/atomic"

	"github.com/bmatcuk/doublestar/v4"
	"golang.org/x/sync/errgroup"

	"github.com/gcbaptista/go-vsr-engine/internal/logger"
	"github.com/gcbaptista/go-vsr-engine/model"
)

// ProgressFunc is called after every file with the number of files read so far.
type ProgressFunc func(done, total int)

// Loader walks a directory and reads every matching file. Document IDs are the
// slash-separated paths relative to the walked root.
type Loader struct {
	includes []string
	excludes []string
	workers  int
	logger   *slog.Logger
}

// New creates a loader. An empty includes list loads every file.
func New(includes, excludes []string, workers int) *Loader {
	if len(includes) == 0 {
		includes = []string{"**/*"}
	}
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	return &Loader{
		includes: includes,
		excludes: excludes,
		workers:  workers,
		logger:   logger.WithComponent("loader"),
	}
}

// File is a file selected for loading.
type File struct {
	Path string // absolute path
	ID   string // path relative to the root, slash-separated
}

// Walk returns the files under root matching the patterns, sorted by ID.
func (l *Loader) Walk(root string) ([]File, error) {
	root, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(root)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", root)
	}

	files := make([]File, 0)
	err = filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		relPath, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		relPath = filepath.ToSlash(relPath)

		if d.IsDir() {
			if relPath != "." && l.shouldExclude(relPath+"/") {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		if l.shouldInclude(relPath) && !l.shouldExclude(relPath) {
			files = append(files, File{Path: path, ID: relPath})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(files, func(i, j int) bool { return files[i].ID < files[j].ID })
	return files, nil
}

// Load reads every file under root in parallel. The result is in Walk order
// regardless of which file finished first. The first read failure cancels the load.
func (l *Loader) Load(ctx context.Context, root string, progress ProgressFunc) ([]model.RawDocument, error) {
	return l.LoadNew(ctx, root, nil, progress)
}

// LoadNew is Load restricted to the files whose ID known does not report.
// A nil known reads every file.
func (l *Loader) LoadNew(ctx context.Context, root string, known func(id string) bool, progress ProgressFunc) ([]model.RawDocument, error) {
	walked, err := l.Walk(root)
	if err != nil {
		return nil, err
	}

	files := walked
	if known != nil {
		files = make([]File, 0, len(walked))
		for _, file := range walked {
			if !known(file.ID) {
				files = append(files, file)
			}
		}
	}

	docs := make([]model.RawDocument, len(files))
	var done atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(l.workers)
	for i, file := range files {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			text, err := ReadText(file.Path)
			if err != nil {
				return fmt.Errorf("failed to read %s: %w", file.ID, err)
			}
			docs[i] = model.RawDocument{ID: file.ID, Text: text}

			n := done.Add(1)
			if progress != nil {
				progress(int(n), len(files))
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	l.logger.Info("directory loaded", "root", root, "files", len(files), "skipped", len(walked)-len(files))
	return docs, nil
}

// ReadText returns the text of a file, extracting visible text from HTML.
func ReadText(path string) (string, error) {
	if IsHTML(path) {
		f, err := os.Open(path) // #nosec G304 -- path comes from walking an operator-chosen directory
		if err != nil {
			return "", err
		}
		defer f.Close()
		return ExtractHTML(f)
	}

	data, err := os.ReadFile(path) // #nosec G304 -- path comes from walking an operator-chosen directory
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func (l *Loader) shouldInclude(path string) bool {
	for _, pattern := range l.includes {
		matched, err := doublestar.Match(pattern, path)
		if err == nil && matched {
			return true
		}
	}
	return false
}

func (l *Loader) shouldExclude(path string) bool {
	for _, pattern := range l.excludes {
		matched, err := doublestar.Match(pattern, path)
		if err == nil && matched {
			return true
		}
	}
	return false
}
