package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/gcbaptista/go-vsr-engine/internal/errors"
	"github.com/gcbaptista/go-vsr-engine/internal/logger"
	"github.com/gcbaptista/go-vsr-engine/internal/metrics"
	"github.com/gcbaptista/go-vsr-engine/model"
)

// Func is the body of a job. It should return promptly once ctx is cancelled.
type Func func(ctx context.Context, job *model.Job) error

// Options configure a Manager.
type Options struct {
	MaxWorkers   int
	RetainFor    time.Duration    // finished jobs older than this are dropped by cleanup
	CleanupEvery time.Duration    // 0 disables the cleanup routine
	Metrics      *metrics.Metrics // optional Prometheus collectors
}

// Manager handles background job execution and tracking
type Manager struct {
	mu       sync.RWMutex
	jobs     map[string]*model.Job
	done     map[string]chan struct{} // closed when the job reaches a terminal status
	workers  chan struct{}            // limits concurrent jobs
	ctx      context.Context          // cancelled by Stop
	cancel   context.CancelFunc
	stopOnce sync.Once
	wg       sync.WaitGroup
	opts     Options
	stats    *Stats
	logger   *slog.Logger
}

// NewManager creates a new job manager
func NewManager(opts Options) *Manager {
	if opts.MaxWorkers <= 0 {
		opts.MaxWorkers = 1
	}
	if opts.RetainFor <= 0 {
		opts.RetainFor = 24 * time.Hour
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Manager{
		jobs:    make(map[string]*model.Job),
		done:    make(map[string]chan struct{}),
		workers: make(chan struct{}, opts.MaxWorkers),
		ctx:     ctx,
		cancel:  cancel,
		opts:    opts,
		stats:   NewStats(opts.Metrics),
		logger:  logger.WithComponent("jobs"),
	}
}

// Start begins the background cleanup routine
func (m *Manager) Start() {
	m.logger.Info("job manager started", "max_workers", cap(m.workers))
	if m.opts.CleanupEvery > 0 {
		go m.cleanupRoutine()
	}
}

// Stop cancels running jobs and waits for them to return
func (m *Manager) Stop() {
	m.stopOnce.Do(func() {
		m.cancel()
		m.wg.Wait()
		m.logger.Info("job manager stopped")
	})
}

// CreateJob registers a pending job and returns its ID
func (m *Manager) CreateJob(jobType model.JobType, indexName string, metadata map[string]string) string {
	m.mu.Lock()
	defer m.mu.Unlock()

	job := &model.Job{
		ID:        uuid.New().String(),
		Type:      jobType,
		Status:    model.JobStatusPending,
		IndexName: indexName,
		CreatedAt: time.Now(),
		Metadata:  metadata,
	}

	m.jobs[job.ID] = job
	m.done[job.ID] = make(chan struct{})
	m.stats.recordCreated(jobType)
	m.logger.Debug("job created", "job_id", job.ID, "type", job.Type, "index", job.IndexName)
	return job.ID
}

// Submit creates a job and starts it.
func (m *Manager) Submit(jobType model.JobType, indexName string, metadata map[string]string, fn Func) (string, error) {
	jobID := m.CreateJob(jobType, indexName, metadata)
	if err := m.ExecuteJob(jobID, fn); err != nil {
		return jobID, err
	}
	return jobID, nil
}

// GetJob returns a copy of the job
func (m *Manager) GetJob(jobID string) (*model.Job, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	job, exists := m.jobs[jobID]
	if !exists {
		return nil, errors.NewJobNotFoundError(jobID)
	}
	return copyJob(job), nil
}

// ListJobs returns the jobs of an index, oldest first, optionally filtered by status
func (m *Manager) ListJobs(indexName string, status *model.JobStatus) []*model.Job {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]*model.Job, 0)
	for _, job := range m.jobs {
		if job.IndexName != indexName {
			continue
		}
		if status == nil || job.Status == *status {
			result = append(result, copyJob(job))
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result
}

func copyJob(job *model.Job) *model.Job {
	jobCopy := *job
	if job.Progress != nil {
		progressCopy := *job.Progress
		jobCopy.Progress = &progressCopy
	}
	return &jobCopy
}

// ExecuteJob runs a pending job in a goroutine once a worker slot is free.
// It returns without waiting for a slot.
func (m *Manager) ExecuteJob(jobID string, fn Func) error {
	m.mu.Lock()
	job, exists := m.jobs[jobID]
	if !exists {
		m.mu.Unlock()
		return errors.NewJobNotFoundError(jobID)
	}
	if job.Status != model.JobStatusPending {
		m.mu.Unlock()
		return fmt.Errorf("job with ID '%s' is not in pending status (current: %s)", jobID, job.Status)
	}
	if m.ctx.Err() != nil {
		m.mu.Unlock()
		m.finish(jobID, model.JobStatusCancelled, "job manager is shutting down")
		return fmt.Errorf("job manager is shutting down")
	}
	jobType := job.Type
	m.wg.Add(1)
	m.mu.Unlock()

	go func() {
		defer m.wg.Done()

		select {
		case m.workers <- struct{}{}:
		case <-m.ctx.Done():
			m.finish(jobID, model.JobStatusCancelled, "job manager is shutting down")
			return
		}
		defer func() { <-m.workers }()

		if m.ctx.Err() != nil {
			m.finish(jobID, model.JobStatusCancelled, "job manager is shutting down")
			return
		}
		m.start(jobID)
		startTime := time.Now()

		err := fn(m.ctx, m.view(jobID))

		executionTime := time.Since(startTime)
		m.stats.recordDuration(jobType, executionTime)

		switch {
		case err != nil && m.ctx.Err() != nil:
			m.finish(jobID, model.JobStatusCancelled, err.Error())
			m.logger.Warn("job cancelled", "job_id", jobID, "type", jobType, "duration", executionTime)
		case err != nil:
			m.finish(jobID, model.JobStatusFailed, err.Error())
			m.logger.Error("job failed", "job_id", jobID, "type", jobType, "duration", executionTime, "error", err)
		default:
			m.finish(jobID, model.JobStatusCompleted, "")
			m.logger.Info("job completed", "job_id", jobID, "type", jobType, "duration", executionTime)
		}
	}()

	return nil
}

// view returns a copy handed to the job function, so it never races with status updates.
func (m *Manager) view(jobID string) *model.Job {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return copyJob(m.jobs[jobID])
}

func (m *Manager) start(jobID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	job := m.jobs[jobID]
	now := time.Now()
	job.StartedAt = &now
	m.stats.recordTransition(job.Type, job.Status, model.JobStatusRunning)
	job.Status = model.JobStatusRunning
}

// UpdateJobProgress updates the progress of a running job
func (m *Manager) UpdateJobProgress(jobID string, current, total int, message string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	job, exists := m.jobs[jobID]
	if !exists {
		return
	}
	if job.Progress == nil {
		job.Progress = &model.JobProgress{}
	}
	job.Progress.Current = current
	job.Progress.Total = total
	job.Progress.Message = message
}

// finish moves a job to a terminal status and releases its waiters
func (m *Manager) finish(jobID string, status model.JobStatus, errorMsg string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	job, exists := m.jobs[jobID]
	if !exists || job.Status.Finished() {
		return
	}

	m.stats.recordTransition(job.Type, job.Status, status)
	job.Status = status
	if errorMsg != "" {
		job.Error = errorMsg
	}
	now := time.Now()
	job.CompletedAt = &now

	if ch, ok := m.done[jobID]; ok {
		close(ch)
		delete(m.done, jobID)
	}
}

// Wait blocks until the job finishes or ctx is done, and returns the job.
func (m *Manager) Wait(ctx context.Context, jobID string) (*model.Job, error) {
	m.mu.RLock()
	_, exists := m.jobs[jobID]
	ch, pending := m.done[jobID]
	m.mu.RUnlock()

	if !exists {
		return nil, errors.NewJobNotFoundError(jobID)
	}
	if pending {
		select {
		case <-ch:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return m.GetJob(jobID)
}

func (m *Manager) cleanupRoutine() {
	ticker := time.NewTicker(m.opts.CleanupEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.CleanupOldJobs(m.opts.RetainFor)
		case <-m.ctx.Done():
			return
		}
	}
}

// CleanupOldJobs removes finished jobs older than maxAge
func (m *Manager) CleanupOldJobs(maxAge time.Duration) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	cutoff := time.Now().Add(-maxAge)
	cleaned := 0
	for jobID, job := range m.jobs {
		if job.CompletedAt != nil && job.CompletedAt.Before(cutoff) {
			delete(m.jobs, jobID)
			cleaned++
		}
	}

	if cleaned > 0 {
		m.logger.Info("cleaned up old jobs", "count", cleaned)
	}
	return cleaned
}

// GetStats returns current job statistics
func (m *Manager) GetStats() StatsData {
	return m.stats.Snapshot()
}

// GetCurrentWorkload returns the number of pending and running jobs
func (m *Manager) GetCurrentWorkload() int64 {
	return m.stats.Workload()
}
