package indexing

import (
	"context"
	"fmt"

	"github.com/gcbaptista/go-vsr-engine/model"
)

// BulkIndexingConfig contains configuration for bulk indexing operations
type BulkIndexingConfig struct {
	BatchSize int // documents staged per atomic batch
}

// DefaultBulkIndexingConfig returns the defaults for directory loads
func DefaultBulkIndexingConfig() BulkIndexingConfig {
	return BulkIndexingConfig{BatchSize: 500}
}

// BulkProgressFunc receives the number of documents staged so far.
type BulkProgressFunc func(staged, total int)

// BulkIndexer stages large document sets in batches. Every batch is all or nothing;
// a failed batch stops the run and leaves earlier batches staged.
type BulkIndexer struct {
	service  *Service
	config   BulkIndexingConfig
	progress BulkProgressFunc
}

// NewBulkIndexer creates a new bulk indexer. progress may be nil.
func NewBulkIndexer(service *Service, config BulkIndexingConfig, progress BulkProgressFunc) *BulkIndexer {
	if config.BatchSize <= 0 {
		config.BatchSize = DefaultBulkIndexingConfig().BatchSize
	}
	return &BulkIndexer{
		service:  service,
		config:   config,
		progress: progress,
	}
}

// BulkAddDocuments stages docs batch by batch, checking ctx between batches.
// It returns the number of documents staged.
func (bi *BulkIndexer) BulkAddDocuments(ctx context.Context, docs []model.RawDocument) (int, error) {
	staged := 0
	for start := 0; start < len(docs); start += bi.config.BatchSize {
		if err := ctx.Err(); err != nil {
			return staged, err
		}

		end := min(start+bi.config.BatchSize, len(docs))
		if err := bi.service.AddDocuments(docs[start:end]); err != nil {
			return staged, fmt.Errorf("failed to add document batch starting at %d: %w", start, err)
		}
		staged = end

		if bi.progress != nil {
			bi.progress(staged, len(docs))
		}
	}
	return staged, nil
}
