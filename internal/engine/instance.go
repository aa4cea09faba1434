package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/gcbaptista/go-vsr-engine/config"
	"github.com/gcbaptista/go-vsr-engine/index"
	"github.com/gcbaptista/go-vsr-engine/internal/cache"
	internalErrors "github.com/gcbaptista/go-vsr-engine/internal/errors"
	"github.com/gcbaptista/go-vsr-engine/internal/indexing"
	"github.com/gcbaptista/go-vsr-engine/internal/logger"
	"github.com/gcbaptista/go-vsr-engine/internal/metrics"
	"github.com/gcbaptista/go-vsr-engine/internal/search"
	"github.com/gcbaptista/go-vsr-engine/internal/spelling"
	"github.com/gcbaptista/go-vsr-engine/model"
	"github.com/gcbaptista/go-vsr-engine/services"
	"github.com/gcbaptista/go-vsr-engine/store"
)

const maxSuggestions = 5

// IndexInstance holds all components and services for a single index.
// Documents are staged into an open corpus; Build seals a copy of it and swaps in
// a new snapshot, so queries never see a half-built index.
// It implements the services.IndexAccessor interface.
type IndexInstance struct {
	mu       sync.RWMutex // guards settings and searcher
	settings config.IndexSettings
	searcher *search.Service

	staging    *store.Corpus
	live       atomic.Pointer[index.Snapshot]
	generation atomic.Uint64
	buildMu    sync.Mutex // one build at a time keeps generations in swap order
	loadMu     sync.Mutex // directory loads check for staged files and stage as one step

	indexer *indexing.Service
	sources store.SourceStore
	cache   cache.Cache      // optional
	metrics *metrics.Metrics // optional
	logger  *slog.Logger
}

// NewIndexInstance creates and initializes a new IndexInstance with an empty live snapshot.
func NewIndexInstance(settings config.IndexSettings, sources store.SourceStore, c cache.Cache, m *metrics.Metrics) (*IndexInstance, error) {
	if settings.Name == "" {
		return nil, internalErrors.NewValidationError("name", "index name cannot be empty in settings")
	}
	if sources == nil {
		sources = store.NopSourceStore{}
	}
	settings.ApplyDefaults()

	staging := store.NewCorpus()
	indexerService, err := indexing.NewService(settings.Name, staging, sources, m)
	if err != nil {
		return nil, fmt.Errorf("failed to create indexer service: %w", err)
	}

	instance := &IndexInstance{
		settings: settings,
		staging:  staging,
		indexer:  indexerService,
		sources:  sources,
		cache:    c,
		metrics:  m,
		logger:   logger.WithComponent("engine").With("index", settings.Name),
	}
	instance.live.Store(index.Empty())

	searchService, err := search.NewService(settings, instance.live.Load, c, m)
	if err != nil {
		return nil, fmt.Errorf("failed to create search service: %w", err)
	}
	instance.searcher = searchService
	return instance, nil
}

// AddDocuments stages documents. With auto_build set, the live index is rebuilt
// right after a successful batch.
// This satisfies a part of the services.IndexAccessor interface.
func (i *IndexInstance) AddDocuments(docs []model.RawDocument) error {
	if err := i.indexer.AddDocuments(docs); err != nil {
		return err
	}
	if i.Settings().AutoBuild && len(docs) > 0 {
		if _, err := i.Build(); err != nil {
			return fmt.Errorf("documents staged but auto build failed: %w", err)
		}
	}
	return nil
}

// restore stages documents read back from the source store.
func (i *IndexInstance) restore(docs []model.RawDocument) error {
	return i.indexer.Restore(docs)
}

// Build indexes every staged document and makes the result live.
// This satisfies a part of the services.IndexAccessor interface.
func (i *IndexInstance) Build() (services.IndexStats, error) {
	i.buildMu.Lock()
	defer i.buildMu.Unlock()

	name := i.Settings().Name
	generation := i.generation.Add(1)
	snap := index.NewSnapshot(i.staging, generation)
	i.live.Store(snap)

	stats := snap.Index.Stats()
	i.logger.Info("index built",
		"generation", generation,
		"documents", stats.Documents,
		"tokens", stats.Tokens,
		"duration", snap.BuildTime)

	if i.metrics != nil {
		i.metrics.IndexBuildsTotal.WithLabelValues(name, "success").Inc()
		i.metrics.IndexBuildDuration.WithLabelValues(name).Observe(snap.BuildTime.Seconds())
		i.metrics.IndexDocuments.WithLabelValues(name).Set(float64(stats.Documents))
		i.metrics.IndexTokens.WithLabelValues(name).Set(float64(stats.Tokens))
	}

	// Keys carry the generation, so stale entries are unreachable already; this only frees them.
	if i.cache != nil {
		if err := i.cache.InvalidateIndex(context.Background(), name); err != nil {
			i.logger.Warn("cache invalidation failed", "error", err)
		}
	}

	return i.Stats(), nil
}

// Snapshot returns the live snapshot.
func (i *IndexInstance) Snapshot() *index.Snapshot {
	return i.live.Load()
}

// Stats summarizes the staging corpus and the live index.
// This satisfies a part of the services.Inspector interface.
func (i *IndexInstance) Stats() services.IndexStats {
	snap := i.live.Load()
	indexStats := snap.Index.Stats()
	staged := i.staging.Size()

	stats := services.IndexStats{
		Name:             i.Settings().Name,
		StagedDocuments:  staged,
		IndexedDocuments: indexStats.Documents,
		Tokens:           indexStats.Tokens,
		Occurrences:      indexStats.Occurrences,
		Generation:       snap.Generation,
		BuildTimeMs:      snap.BuildTime.Milliseconds(),
		Stale:            staged != snap.Corpus.Size(),
	}
	if snap.Generation > 0 {
		builtAt := indexStats.BuiltAt
		stats.BuiltAt = &builtAt
	}
	return stats
}

// TokenDetails describes a token of the live index. Tokens are matched as written.
// This satisfies a part of the services.Inspector interface.
func (i *IndexInstance) TokenDetails(token string) services.TokenDetails {
	idx := i.live.Load().Index
	info := idx.TokenInfo(token)

	details := services.TokenDetails{
		Token:             token,
		Known:             idx.HasToken(token),
		IDF:               info.IDF,
		DocumentFrequency: info.DocumentFrequency(),
		Occurrences:       make([]services.TokenPosting, 0, len(info.Occurrences)),
	}
	for _, occ := range info.Occurrences {
		details.Occurrences = append(details.Occurrences, services.TokenPosting{
			DocumentID: occ.Document.ID(),
			Weight:     occ.Weight,
			Positions:  occ.Positions,
		})
	}
	if !details.Known {
		details.Suggestions = spelling.Suggest(token, idx.Vocabulary(), maxSuggestions)
	}
	return details
}

// DocumentDetails describes a staged document, with its source text when the
// source store still has it.
// This satisfies a part of the services.Inspector interface.
func (i *IndexInstance) DocumentDetails(id string) (services.DocumentDetails, error) {
	name := i.Settings().Name
	doc, ok := i.staging.Get(id)
	if !ok {
		return services.DocumentDetails{}, internalErrors.NewDocumentNotFoundError(id, name)
	}

	_, indexed := i.live.Load().Corpus.Get(id)
	details := services.DocumentDetails{
		ID:            doc.ID(),
		Length:        doc.Len(),
		DistinctTerms: len(doc.DistinctTerms()),
		MaxFrequency:  doc.MaxFrequency(),
		Indexed:       indexed,
	}
	if raw, err := i.sources.Document(name, id); err == nil {
		details.Text = raw.Text
	}
	return details, nil
}

func (i *IndexInstance) search() *search.Service {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.searcher
}

// Boolean delegates to the underlying Searcher service.
func (i *IndexInstance) Boolean(query services.BooleanQuery) (services.BooleanResult, error) {
	return i.search().Boolean(query)
}

// Rank delegates to the underlying Searcher service.
func (i *IndexInstance) Rank(ctx context.Context, query services.RankQuery) (services.RankResult, error) {
	return i.search().Rank(ctx, query)
}

// MultiRank delegates to the underlying Searcher service.
func (i *IndexInstance) MultiRank(ctx context.Context, query services.MultiRankQuery) (services.MultiRankResult, error) {
	return i.search().MultiRank(ctx, query)
}

// Phrase delegates to the underlying Searcher service.
func (i *IndexInstance) Phrase(query services.PhraseQuery) (services.PhraseResult, error) {
	return i.search().Phrase(query)
}

// Context delegates to the underlying Searcher service.
func (i *IndexInstance) Context(query services.ContextQuery) (services.ContextResult, error) {
	return i.search().Context(query)
}

// Settings returns the configuration settings for this index.
// This satisfies a part of the services.IndexAccessor interface.
func (i *IndexInstance) Settings() config.IndexSettings {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.settings
}

// setSettings swaps settings and the searcher that depends on them.
func (i *IndexInstance) setSettings(settings config.IndexSettings) error {
	searchService, err := search.NewService(settings, i.live.Load, i.cache, i.metrics)
	if err != nil {
		return err
	}

	i.mu.Lock()
	defer i.mu.Unlock()
	i.settings = settings
	i.searcher = searchService
	return nil
}

