package engine

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/gcbaptista/go-vsr-engine/internal/errors"
	"github.com/gcbaptista/go-vsr-engine/internal/indexing"
	"github.com/gcbaptista/go-vsr-engine/internal/loader"
	"github.com/gcbaptista/go-vsr-engine/model"
)

// BuildIndexAsync rebuilds the live index of name from its staged documents.
func (e *Engine) BuildIndexAsync(name string) (string, error) {
	instance, err := e.instance(name)
	if err != nil {
		return "", err
	}

	jobID, err := e.jobManager.Submit(model.JobTypeBuildIndex, name, map[string]string{
		"operation": "build_index",
	}, func(ctx context.Context, job *model.Job) error {
		return e.executeBuildJob(instance, job.ID)
	})
	if err != nil {
		return "", fmt.Errorf("failed to start build index job: %w", err)
	}
	return jobID, nil
}

// executeBuildJob executes the build index job.
func (e *Engine) executeBuildJob(instance *IndexInstance, jobID string) error {
	staged := instance.staging.Size()
	e.jobManager.UpdateJobProgress(jobID, 0, staged, "Building index")

	stats, err := instance.Build()
	if err != nil {
		return fmt.Errorf("failed to build index '%s': %w", instance.Settings().Name, err)
	}

	e.jobManager.UpdateJobProgress(jobID, stats.IndexedDocuments, staged,
		fmt.Sprintf("Generation %d built with %d tokens", stats.Generation, stats.Tokens))
	return nil
}

// LoadDirectoryAsync stages every file under dir that matches the index's include
// and exclude patterns, then builds the index when build is set or the index
// builds automatically.
func (e *Engine) LoadDirectoryAsync(name, dir string, build bool) (string, error) {
	instance, err := e.instance(name)
	if err != nil {
		return "", err
	}

	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return "", errors.NewValidationError("directory", fmt.Sprintf("'%s' is not a readable directory", dir))
	}

	jobID, err := e.jobManager.Submit(model.JobTypeLoadDirectory, name, map[string]string{
		"operation": "load_directory",
		"directory": dir,
		"build":     strconv.FormatBool(build),
	}, func(ctx context.Context, job *model.Job) error {
		return e.executeLoadDirectoryJob(ctx, instance, dir, build, job.ID)
	})
	if err != nil {
		return "", fmt.Errorf("failed to start load directory job: %w", err)
	}
	return jobID, nil
}

// executeLoadDirectoryJob executes the load directory job.
func (e *Engine) executeLoadDirectoryJob(ctx context.Context, instance *IndexInstance, dir string, build bool, jobID string) error {
	instance.loadMu.Lock()
	defer instance.loadMu.Unlock()

	settings := instance.Settings()

	// Files staged by an earlier load keep their content; the corpus is append-only
	staged := func(id string) bool {
		_, ok := instance.staging.Get(id)
		return ok
	}

	l := loader.New(settings.Includes, settings.Excludes, e.opts.LoadWorkers)
	docs, err := l.LoadNew(ctx, dir, staged, func(done, total int) {
		e.jobManager.UpdateJobProgress(jobID, done, total, "Reading files")
	})
	if err != nil {
		return fmt.Errorf("failed to load directory '%s': %w", dir, err)
	}

	bulk := indexing.NewBulkIndexer(instance.indexer, indexing.DefaultBulkIndexingConfig(), func(staged, total int) {
		e.jobManager.UpdateJobProgress(jobID, staged, total, "Staging documents")
	})
	added, err := bulk.BulkAddDocuments(ctx, docs)
	if err != nil {
		return fmt.Errorf("staged %d of %d documents from '%s': %w", added, len(docs), dir, err)
	}

	if (build || settings.AutoBuild) && (added > 0 || instance.Stats().Stale) {
		return e.executeBuildJob(instance, jobID)
	}

	e.jobManager.UpdateJobProgress(jobID, added, len(docs), "Documents staged")
	e.logger.Info("directory staged", "index", settings.Name, "directory", dir, "documents", added)
	return nil
}

// AddDocumentsAsync stages documents in the background.
func (e *Engine) AddDocumentsAsync(name string, docs []model.RawDocument) (string, error) {
	instance, err := e.instance(name)
	if err != nil {
		return "", err
	}

	jobID, err := e.jobManager.Submit(model.JobTypeAddDocuments, name, map[string]string{
		"operation":      "add_documents",
		"document_count": strconv.Itoa(len(docs)),
	}, func(ctx context.Context, job *model.Job) error {
		return e.executeAddDocumentsJob(ctx, instance, docs, job.ID)
	})
	if err != nil {
		return "", fmt.Errorf("failed to start add documents job: %w", err)
	}
	return jobID, nil
}

// executeAddDocumentsJob executes the add documents job.
func (e *Engine) executeAddDocumentsJob(ctx context.Context, instance *IndexInstance, docs []model.RawDocument, jobID string) error {
	e.jobManager.UpdateJobProgress(jobID, 0, len(docs), "Starting document addition")

	bulk := indexing.NewBulkIndexer(instance.indexer, indexing.DefaultBulkIndexingConfig(), func(staged, total int) {
		e.jobManager.UpdateJobProgress(jobID, staged, total, "Staging documents")
	})
	staged, err := bulk.BulkAddDocuments(ctx, docs)
	if err != nil {
		return fmt.Errorf("staged %d of %d documents: %w", staged, len(docs), err)
	}

	if instance.Settings().AutoBuild && staged > 0 {
		return e.executeBuildJob(instance, jobID)
	}

	e.jobManager.UpdateJobProgress(jobID, staged, len(docs), "Documents added successfully")
	return nil
}
