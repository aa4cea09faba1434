package engine

import (
	"context"
	"fmt"

	"github.com/gcbaptista/go-vsr-engine/internal/indexing"
	"github.com/gcbaptista/go-vsr-engine/model"
)

// loadIndexesFromStore registers every index found in the source store and starts
// a restore job for each. Indexes themselves are never stored, so
// restoring means staging the stored text again and building.
func (e *Engine) loadIndexesFromStore() error {
	stored, err := e.sources.Indexes()
	if err != nil {
		return fmt.Errorf("failed to list stored indexes: %w", err)
	}
	if len(stored) == 0 {
		return nil
	}
	e.logger.Info("loading indexes from source store", "count", len(stored))

	e.mu.Lock()
	restorable := make([]*IndexInstance, 0, len(stored))
	for _, settings := range stored {
		instance, err := NewIndexInstance(settings, e.sources, e.cache, e.metrics)
		if err != nil {
			e.logger.Warn("skipping stored index", "index", settings.Name, "error", err)
			continue
		}
		e.indexes[settings.Name] = instance
		restorable = append(restorable, instance)
	}
	e.mu.Unlock()

	for _, instance := range restorable {
		if _, err := e.restoreIndexAsync(instance); err != nil {
			return err
		}
	}
	return nil
}

// restoreIndexAsync stages the stored documents of an index in batches and builds it.
func (e *Engine) restoreIndexAsync(instance *IndexInstance) (string, error) {
	name := instance.Settings().Name

	jobID, err := e.jobManager.Submit(model.JobTypeRestoreIndex, name, map[string]string{
		"operation": "restore_index",
	}, func(ctx context.Context, job *model.Job) error {
		docs, err := e.sources.Documents(name)
		if err != nil {
			return fmt.Errorf("failed to read stored documents of index '%s': %w", name, err)
		}
		if len(docs) == 0 {
			e.jobManager.UpdateJobProgress(job.ID, 0, 0, "No stored documents")
			return nil
		}

		restored, err := restoreInBatches(ctx, instance, docs, func(staged, total int) {
			e.jobManager.UpdateJobProgress(job.ID, staged, total, "Restoring documents")
		})
		if err != nil {
			return fmt.Errorf("restored %d of %d documents of index '%s': %w", restored, len(docs), name, err)
		}

		if _, err := instance.Build(); err != nil {
			return fmt.Errorf("failed to build restored index '%s': %w", name, err)
		}
		e.jobManager.UpdateJobProgress(job.ID, restored, len(docs), "Index restored and built")
		e.logger.Info("index restored", "index", name, "documents", restored)
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("failed to start restore job for index '%s': %w", name, err)
	}
	return jobID, nil
}

func restoreInBatches(ctx context.Context, instance *IndexInstance, docs []model.RawDocument, progress indexing.BulkProgressFunc) (int, error) {
	batchSize := indexing.DefaultBulkIndexingConfig().BatchSize
	restored := 0
	for start := 0; start < len(docs); start += batchSize {
		if err := ctx.Err(); err != nil {
			return restored, err
		}
		end := min(start+batchSize, len(docs))
		if err := instance.restore(docs[start:end]); err != nil {
			return restored, fmt.Errorf("batch starting at %d: %w", start, err)
		}
		restored = end
		progress(restored, len(docs))
	}
	return restored, nil
}
