package indexing

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	internalErrors "github.com/gcbaptista/go-vsr-engine/internal/errors"
	"github.com/gcbaptista/go-vsr-engine/internal/logger"
	"github.com/gcbaptista/go-vsr-engine/internal/metrics"
	"github.com/gcbaptista/go-vsr-engine/model"
	"github.com/gcbaptista/go-vsr-engine/store"
)

// parallelParseThreshold is the batch size from which documents are parsed concurrently.
const parallelParseThreshold = 64

// Service appends documents to the staging corpus of a single index and keeps
// their source text in the source store.
// It fulfills the services.Indexer interface.
type Service struct {
	mu        sync.Mutex // serializes batches so duplicate checks and appends are atomic
	indexName string
	corpus    *store.Corpus
	sources   store.SourceStore
	metrics   *metrics.Metrics
	logger    *slog.Logger
}

// NewService creates a new indexing Service. m may be nil.
func NewService(indexName string, corpus *store.Corpus, sources store.SourceStore, m *metrics.Metrics) (*Service, error) {
	if corpus == nil {
		return nil, fmt.Errorf("corpus cannot be nil")
	}
	if sources == nil {
		return nil, fmt.Errorf("source store cannot be nil")
	}
	return &Service{
		indexName: indexName,
		corpus:    corpus,
		sources:   sources,
		metrics:   m,
		logger:    logger.WithComponent("indexing").With("index", indexName),
	}, nil
}

// AddDocuments parses and stages a batch of documents, all or nothing.
// The batch fails if any ID is empty, repeated within the batch or already staged.
// This satisfies the services.Indexer interface.
func (s *Service) AddDocuments(docs []model.RawDocument) error {
	return s.add(docs, true)
}

// Restore stages documents read back from the source store without storing them again.
// Documents already staged are skipped: a client may have added them before the
// restore reached them.
func (s *Service) Restore(docs []model.RawDocument) error {
	return s.add(docs, false)
}

func (s *Service) add(docs []model.RawDocument, persist bool) error {
	if len(docs) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if !persist {
		docs = s.unstaged(docs)
		if len(docs) == 0 {
			return nil
		}
	}

	if err := s.checkIDs(docs); err != nil {
		return err
	}

	parsed, err := parseAll(docs)
	if err != nil {
		return err
	}

	if persist {
		if err := s.sources.AppendDocuments(s.indexName, docs); err != nil {
			return fmt.Errorf("failed to store documents: %w", err)
		}
	}

	for _, doc := range parsed {
		if err := s.corpus.AddDocument(doc); err != nil {
			// checkIDs ran under s.mu, so only a sealed corpus gets here
			return fmt.Errorf("failed to stage document '%s': %w", doc.ID(), err)
		}
	}

	if s.metrics != nil {
		s.metrics.DocumentsAdded.WithLabelValues(s.indexName).Add(float64(len(parsed)))
	}
	s.logger.Debug("documents staged", "count", len(parsed), "persisted", persist, "staged_total", s.corpus.Size())
	return nil
}

func (s *Service) checkIDs(docs []model.RawDocument) error {
	seen := make(map[string]struct{}, len(docs))
	for i, doc := range docs {
		if strings.TrimSpace(doc.ID) == "" {
			return internalErrors.NewValidationError("id", fmt.Sprintf("document at position %d has an empty ID", i))
		}
		if _, dup := seen[doc.ID]; dup {
			return internalErrors.NewDuplicateDocumentError(doc.ID)
		}
		seen[doc.ID] = struct{}{}
		if _, exists := s.corpus.Get(doc.ID); exists {
			return internalErrors.NewDuplicateDocumentError(doc.ID)
		}
	}
	return nil
}

// unstaged drops the documents whose ID is already in the staging corpus. Callers hold s.mu.
func (s *Service) unstaged(docs []model.RawDocument) []model.RawDocument {
	fresh := make([]model.RawDocument, 0, len(docs))
	for _, doc := range docs {
		if _, exists := s.corpus.Get(doc.ID); exists {
			continue
		}
		fresh = append(fresh, doc)
	}
	if skipped := len(docs) - len(fresh); skipped > 0 {
		s.logger.Info("skipped documents staged before restore", "count", skipped)
	}
	return fresh
}

// parseAll tokenizes docs, in parallel for large batches. Output order matches input order.
func parseAll(docs []model.RawDocument) ([]*model.Document, error) {
	parsed := make([]*model.Document, len(docs))

	if len(docs) < parallelParseThreshold {
		for i, raw := range docs {
			doc, err := raw.Parse()
			if err != nil {
				return nil, err
			}
			parsed[i] = doc
		}
		return parsed, nil
	}

	g, _ := errgroup.WithContext(context.Background())
	g.SetLimit(runtime.NumCPU())
	for i, raw := range docs {
		g.Go(func() error {
			doc, err := raw.Parse()
			if err != nil {
				return err
			}
			parsed[i] = doc
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return parsed, nil
}
