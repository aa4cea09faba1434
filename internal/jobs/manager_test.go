package jobs

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	internalErrors "github.com/gcbaptista/go-vsr-engine/internal/errors"
	"github.com/gcbaptista/go-vsr-engine/internal/metrics"
	"github.com/gcbaptista/go-vsr-engine/model"
)

func waitFor(t *testing.T, manager *Manager, jobID string) *model.Job {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	job, err := manager.Wait(ctx, jobID)
	require.NoError(t, err)
	return job
}

func TestJobManager_CreateJob(t *testing.T) {
	manager := NewManager(Options{MaxWorkers: 2})
	defer manager.Stop()

	jobID := manager.CreateJob(model.JobTypeBuildIndex, "test-index", map[string]string{
		"operation": "test",
	})
	require.NotEmpty(t, jobID)

	job, err := manager.GetJob(jobID)
	require.NoError(t, err)
	assert.Equal(t, model.JobTypeBuildIndex, job.Type)
	assert.Equal(t, model.JobStatusPending, job.Status)
	assert.Equal(t, "test-index", job.IndexName)
	assert.Equal(t, "test", job.Metadata["operation"])

	_, err = manager.GetJob("missing")
	assert.ErrorIs(t, err, internalErrors.ErrJobNotFound)
}

func TestJobManager_ExecuteJob(t *testing.T) {
	m := metrics.New()
	manager := NewManager(Options{MaxWorkers: 2, Metrics: m})
	manager.Start()
	defer manager.Stop()

	jobID := manager.CreateJob(model.JobTypeLoadDirectory, "test-index", nil)

	err := manager.ExecuteJob(jobID, func(ctx context.Context, job *model.Job) error {
		assert.Equal(t, model.JobStatusRunning, job.Status)
		manager.UpdateJobProgress(job.ID, 50, 100, "Halfway done")
		manager.UpdateJobProgress(job.ID, 100, 100, "Completed")
		return nil
	})
	require.NoError(t, err)

	job := waitFor(t, manager, jobID)
	assert.Equal(t, model.JobStatusCompleted, job.Status)
	require.NotNil(t, job.Progress)
	assert.Equal(t, 100, job.Progress.Current)
	assert.Equal(t, 100.0, job.Progress.Percentage())
	assert.NotNil(t, job.StartedAt)
	assert.NotNil(t, job.CompletedAt)

	err = manager.ExecuteJob(jobID, func(ctx context.Context, job *model.Job) error { return nil })
	assert.Error(t, err, "a finished job cannot run again")

	assert.Equal(t, 1.0, testutil.ToFloat64(m.JobsTotal.WithLabelValues("load_directory", "completed")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.JobsRunning))
}

func TestJobManager_FailedJob(t *testing.T) {
	manager := NewManager(Options{MaxWorkers: 1})
	defer manager.Stop()

	jobID, err := manager.Submit(model.JobTypeBuildIndex, "idx", nil, func(ctx context.Context, job *model.Job) error {
		return errors.New("disk on fire")
	})
	require.NoError(t, err)

	job := waitFor(t, manager, jobID)
	assert.Equal(t, model.JobStatusFailed, job.Status)
	assert.Equal(t, "disk on fire", job.Error)

	stats := manager.GetStats()
	assert.Equal(t, int64(1), stats.JobsFailed)
	assert.Equal(t, 0.0, stats.SuccessRate)
	assert.Equal(t, int64(0), manager.GetCurrentWorkload())
}

func TestJobManager_StopCancelsRunningJobs(t *testing.T) {
	manager := NewManager(Options{MaxWorkers: 1})

	started := make(chan struct{})
	running, err := manager.Submit(model.JobTypeBuildIndex, "idx", nil, func(ctx context.Context, job *model.Job) error {
		close(started)
		<-ctx.Done()
		return ctx.Err()
	})
	require.NoError(t, err)

	queued, err := manager.Submit(model.JobTypeBuildIndex, "idx", nil, func(ctx context.Context, job *model.Job) error {
		return nil
	})
	require.NoError(t, err)

	<-started
	manager.Stop()

	job, err := manager.GetJob(running)
	require.NoError(t, err)
	assert.Equal(t, model.JobStatusCancelled, job.Status)

	job, err = manager.GetJob(queued)
	require.NoError(t, err)
	assert.Equal(t, model.JobStatusCancelled, job.Status)

	_, err = manager.Submit(model.JobTypeBuildIndex, "idx", nil, func(ctx context.Context, job *model.Job) error { return nil })
	assert.Error(t, err)
}

func TestJobManager_ListAndCleanup(t *testing.T) {
	manager := NewManager(Options{MaxWorkers: 2})
	defer manager.Stop()

	first, err := manager.Submit(model.JobTypeBuildIndex, "a", nil, func(ctx context.Context, job *model.Job) error { return nil })
	require.NoError(t, err)
	waitFor(t, manager, first)
	manager.CreateJob(model.JobTypeLoadDirectory, "a", nil)
	manager.CreateJob(model.JobTypeBuildIndex, "b", nil)

	jobs := manager.ListJobs("a", nil)
	require.Len(t, jobs, 2)
	assert.Equal(t, first, jobs[0].ID, "oldest first")

	completed := model.JobStatusCompleted
	assert.Len(t, manager.ListJobs("a", &completed), 1)

	assert.Equal(t, 1, manager.CleanupOldJobs(0))
	assert.Len(t, manager.ListJobs("a", nil), 1, "pending jobs survive cleanup")
}
