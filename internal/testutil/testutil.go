// Package testutil provides utilities and helpers for testing the engine and its API.
package testutil

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gcbaptista/go-vsr-engine/config"
	"github.com/gcbaptista/go-vsr-engine/internal/cache"
	"github.com/gcbaptista/go-vsr-engine/internal/engine"
	"github.com/gcbaptista/go-vsr-engine/internal/metrics"
	"github.com/gcbaptista/go-vsr-engine/model"
	"github.com/gcbaptista/go-vsr-engine/services"
	"github.com/gcbaptista/go-vsr-engine/store"
)

// CreateTestEngine creates an engine backed by a bolt store in a temporary directory,
// an in-memory cache and a private metrics registry. It is closed on cleanup.
func CreateTestEngine(t *testing.T) (*engine.Engine, *metrics.Metrics) {
	t.Helper()

	sources, err := store.OpenDocumentStore(t.TempDir())
	require.NoError(t, err, "Failed to open source store")

	m := metrics.New()
	eng, err := engine.NewEngine(engine.Options{
		Sources:    sources,
		Cache:      cache.NewMemoryCache(0),
		Metrics:    m,
		MaxWorkers: 2,
	})
	require.NoError(t, err, "Failed to create engine")

	t.Cleanup(func() {
		if err := eng.Close(); err != nil {
			t.Logf("Failed to close engine: %v", err)
		}
	})
	return eng, m
}

// CreateTestIndex creates a test index with default settings
func CreateTestIndex(t *testing.T, eng services.IndexManager, indexName string) config.IndexSettings {
	t.Helper()
	settings := config.IndexSettings{Name: indexName}

	err := eng.CreateIndex(settings)
	require.NoError(t, err, "Failed to create test index")

	return settings
}

// TestDocuments is a small corpus: "the" is in every document, "cat" and "dog" in two.
func TestDocuments() []model.RawDocument {
	return []model.RawDocument{
		{ID: "doc1", Text: "the cat sat on the mat"},
		{ID: "doc2", Text: "the dog chased the cat"},
		{ID: "doc3", Text: "the dog slept\nthe end"},
	}
}

// AddTestDocuments stages TestDocuments and builds the index
func AddTestDocuments(t *testing.T, eng services.IndexManager, indexName string) []model.RawDocument {
	t.Helper()
	indexAccessor, err := eng.GetIndex(indexName)
	require.NoError(t, err, "Failed to get index accessor")

	docs := TestDocuments()
	require.NoError(t, indexAccessor.AddDocuments(docs), "Failed to add test documents")

	_, err = indexAccessor.Build()
	require.NoError(t, err, "Failed to build test index")

	return docs
}

// WriteFiles creates files under dir, keyed by slash-separated relative path.
func WriteFiles(t *testing.T, dir string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		path := filepath.Join(dir, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
}

// JobPollingOptions configures job polling behavior
type JobPollingOptions struct {
	Timeout      time.Duration
	PollInterval time.Duration
	LogProgress  bool
}

// DefaultJobPollingOptions returns sensible defaults for job polling
func DefaultJobPollingOptions() JobPollingOptions {
	return JobPollingOptions{
		Timeout:      10 * time.Second,
		PollInterval: 20 * time.Millisecond,
		LogProgress:  false,
	}
}

// WaitForJob polls a job until it reaches a terminal status or times out
func WaitForJob(t *testing.T, jobManager services.JobManager, jobID string, opts JobPollingOptions) *model.Job {
	t.Helper()
	timeout := time.After(opts.Timeout)
	ticker := time.NewTicker(opts.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-timeout:
			t.Fatalf("Job %s did not finish within %v timeout", jobID, opts.Timeout)
			return nil
		case <-ticker.C:
			job, err := jobManager.GetJob(jobID)
			require.NoError(t, err, "Failed to get job status")

			if job.Status.Finished() {
				return job
			}
			if opts.LogProgress && job.Progress != nil {
				t.Logf("Job %s progress: %d/%d - %s",
					jobID,
					job.Progress.Current,
					job.Progress.Total,
					job.Progress.Message)
			}
		}
	}
}

// WaitForJobCompletion waits for a job and fails the test unless it completed
func WaitForJobCompletion(t *testing.T, jobManager services.JobManager, jobID string) *model.Job {
	t.Helper()
	job := WaitForJob(t, jobManager, jobID, DefaultJobPollingOptions())
	require.Equal(t, model.JobStatusCompleted, job.Status, "Job %s finished as %s: %s", jobID, job.Status, job.Error)
	return job
}

// AssertJobCompleted verifies that a job completed successfully
func AssertJobCompleted(t *testing.T, job *model.Job, expectedType model.JobType, expectedIndex string) {
	t.Helper()
	assert.Equal(t, model.JobStatusCompleted, job.Status, "Job should be completed")
	assert.Equal(t, expectedType, job.Type, "Job type should match")
	assert.Equal(t, expectedIndex, job.IndexName, "Job index name should match")
	assert.NotNil(t, job.CompletedAt, "Job should have completion timestamp")
	assert.Empty(t, job.Error, "Job should not have error")
}

// RankTestCase represents a test case for ranked queries
type RankTestCase struct {
	Name          string
	Query         services.RankQuery
	ExpectedCount int
	ExpectedFirst string // Expected first result document ID
}

// RunRankTests runs a suite of ranked queries against an index
func RunRankTests(t *testing.T, searcher services.Searcher, tests []RankTestCase) {
	t.Helper()
	for _, tt := range tests {
		t.Run(tt.Name, func(t *testing.T) {
			results, err := searcher.Rank(t.Context(), tt.Query)
			require.NoError(t, err, "Rank should not fail")

			assert.Equal(t, tt.ExpectedCount, results.Total, "Result count should match")
			if tt.ExpectedFirst != "" && assert.NotEmpty(t, results.Hits) {
				assert.Equal(t, tt.ExpectedFirst, results.Hits[0].DocumentID, "First result should match expected")
			}
		})
	}
}
