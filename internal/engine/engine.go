package engine

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/gcbaptista/go-vsr-engine/internal/cache"
	"github.com/gcbaptista/go-vsr-engine/internal/jobs"
	"github.com/gcbaptista/go-vsr-engine/internal/logger"
	"github.com/gcbaptista/go-vsr-engine/internal/metrics"
	"github.com/gcbaptista/go-vsr-engine/model"
	"github.com/gcbaptista/go-vsr-engine/store"
)

// Options configure an Engine. Every field is optional.
type Options struct {
	Sources      store.SourceStore // defaults to store.NopSourceStore
	Cache        cache.Cache
	Metrics      *metrics.Metrics
	MaxWorkers   int
	JobRetention time.Duration
	CleanupEvery time.Duration
	LoadWorkers  int // files read concurrently by directory loads
}

// Engine manages multiple named indexes.
// It implements the services.IndexManager, services.AsyncIndexManager and
// services.JobManager interfaces.
type Engine struct {
	mu         sync.RWMutex
	indexes    map[string]*IndexInstance
	sources    store.SourceStore
	cache      cache.Cache
	metrics    *metrics.Metrics
	jobManager *jobs.Manager
	opts       Options
	logger     *slog.Logger
}

// NewEngine creates a new engine orchestrator. Indexes found in the source store
// are registered right away and refilled by restore jobs; see RestoreIndexes.
func NewEngine(opts Options) (*Engine, error) {
	if opts.Sources == nil {
		opts.Sources = store.NopSourceStore{}
	}

	jobManager := jobs.NewManager(jobs.Options{
		MaxWorkers:   opts.MaxWorkers,
		RetainFor:    opts.JobRetention,
		CleanupEvery: opts.CleanupEvery,
		Metrics:      opts.Metrics,
	})
	jobManager.Start()

	eng := &Engine{
		indexes:    make(map[string]*IndexInstance),
		sources:    opts.Sources,
		cache:      opts.Cache,
		metrics:    opts.Metrics,
		jobManager: jobManager,
		opts:       opts,
		logger:     logger.WithComponent("engine"),
	}

	if err := eng.loadIndexesFromStore(); err != nil {
		jobManager.Stop()
		return nil, err
	}
	return eng, nil
}

// ListIndexes returns the names of all indexes, sorted.
func (e *Engine) ListIndexes() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()

	names := make([]string, 0, len(e.indexes))
	for name := range e.indexes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// GetJob retrieves a job by ID
func (e *Engine) GetJob(jobID string) (*model.Job, error) {
	return e.jobManager.GetJob(jobID)
}

// ListJobs lists jobs for an index, optionally filtered by status
func (e *Engine) ListJobs(indexName string, status *model.JobStatus) []*model.Job {
	return e.jobManager.ListJobs(indexName, status)
}

// WaitJob blocks until a job finishes or ctx is done.
func (e *Engine) WaitJob(ctx context.Context, jobID string) (*model.Job, error) {
	return e.jobManager.Wait(ctx, jobID)
}

// GetJobMetrics returns job execution statistics
func (e *Engine) GetJobMetrics() jobs.StatsData {
	return e.jobManager.GetStats()
}

// Close stops the job manager, cancelling running jobs, and closes the cache and
// the source store.
func (e *Engine) Close() error {
	e.jobManager.Stop()

	if e.cache != nil {
		if err := e.cache.Close(); err != nil {
			e.logger.Warn("failed to close cache", "error", err)
		}
	}
	return e.sources.Close()
}
