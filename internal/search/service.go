package search

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/gcbaptista/go-vsr-engine/config"
	"github.com/gcbaptista/go-vsr-engine/index"
	"github.com/gcbaptista/go-vsr-engine/internal/cache"
	internalErrors "github.com/gcbaptista/go-vsr-engine/internal/errors"
	"github.com/gcbaptista/go-vsr-engine/internal/logger"
	"github.com/gcbaptista/go-vsr-engine/internal/metrics"
	"github.com/gcbaptista/go-vsr-engine/internal/tokenizer"
	"github.com/gcbaptista/go-vsr-engine/services"
)

// SnapshotFunc returns the live snapshot of an index.
type SnapshotFunc func() *index.Snapshot

// Service implements the query logic for a single index.
// It fulfills the services.Searcher interface. Every query reads one snapshot,
// so a concurrent rebuild never mixes two index generations in one answer.
type Service struct {
	indexName string
	snapshot  SnapshotFunc
	settings  config.IndexSettings
	cache     cache.Cache      // optional
	metrics   *metrics.Metrics // optional
	logger    *slog.Logger
}

// NewService creates a new search Service. c and m may be nil.
func NewService(settings config.IndexSettings, snapshot SnapshotFunc, c cache.Cache, m *metrics.Metrics) (*Service, error) {
	if snapshot == nil {
		return nil, fmt.Errorf("snapshot source cannot be nil")
	}
	settings.ApplyDefaults()
	return &Service{
		indexName: settings.Name,
		snapshot:  snapshot,
		settings:  settings,
		cache:     c,
		metrics:   m,
		logger:    logger.WithComponent("search").With("index", settings.Name),
	}, nil
}

// Boolean returns the documents containing all or any of the terms, in corpus order.
// Terms are lower-cased like the indexed text.
func (s *Service) Boolean(query services.BooleanQuery) (services.BooleanResult, error) {
	startTime := time.Now()

	operator := strings.ToLower(strings.TrimSpace(query.Operator))
	if operator == "" {
		operator = services.OperatorAnd
	}
	if operator != services.OperatorAnd && operator != services.OperatorOr {
		return services.BooleanResult{}, internalErrors.NewValidationError("operator", "operator must be 'and' or 'or'")
	}

	terms := tokenizer.NormalizeTerms(query.Terms)

	snap := s.snapshot()
	docs := snap.Corpus.DocumentsContainingAll(terms...)
	if operator == services.OperatorOr {
		docs = snap.Corpus.DocumentsContainingAny(terms...)
	}

	ids := make([]string, 0, len(docs))
	for _, doc := range docs {
		ids = append(ids, doc.ID())
	}

	took := time.Since(startTime)
	s.observe(operator, took, len(ids))
	return services.BooleanResult{
		Documents:  ids,
		Total:      len(ids),
		Generation: snap.Generation,
		Took:       took.Milliseconds(),
		QueryId:    uuid.New().String(),
	}, nil
}

// rankedPage is what the cache stores for a ranked query page.
type rankedPage struct {
	Hits  []services.RankedHit `json:"hits"`
	Total int                  `json:"total"`
}

// Rank scores every indexed document against the query by cosine similarity and
// returns one page of the ranking. Query terms are lower-cased.
func (s *Service) Rank(ctx context.Context, query services.RankQuery) (services.RankResult, error) {
	return s.rank(ctx, s.snapshot(), query)
}

func (s *Service) rank(ctx context.Context, snap *index.Snapshot, query services.RankQuery) (services.RankResult, error) {
	startTime := time.Now()

	terms := tokenizer.NormalizeTerms(query.Terms)
	if len(query.Terms) == 0 {
		terms = tokenizer.ParseQuery(query.Query)
	}

	page := query.Page
	if page < 1 {
		page = 1
	}
	pageSize := s.settings.PageSize(query.PageSize)

	result := services.RankResult{
		Hits:       []services.RankedHit{},
		Page:       page,
		PageSize:   pageSize,
		Generation: snap.Generation,
		QueryId:    uuid.New().String(),
	}
	if len(terms) == 0 {
		result.Took = time.Since(startTime).Milliseconds()
		return result, nil
	}

	compute := func() ([]byte, error) {
		return json.Marshal(rankPage(snap.Index, terms, page, pageSize))
	}

	var (
		payload []byte
		err     error
	)
	if s.cache != nil {
		key := cache.Key(s.indexName, snap.Generation, snap.Index.BuiltAt(), terms, page, pageSize)
		payload, result.Cached, err = s.cache.GetOrCompute(ctx, key, compute)
		s.observeCache(result.Cached)
	} else {
		payload, err = compute()
	}
	if err != nil {
		s.observeError("ranked")
		return services.RankResult{}, fmt.Errorf("failed to rank query: %w", err)
	}

	var ranked rankedPage
	if err := json.Unmarshal(payload, &ranked); err != nil {
		s.observeError("ranked")
		return services.RankResult{}, fmt.Errorf("failed to decode ranked page: %w", err)
	}

	result.Hits = ranked.Hits
	result.Total = ranked.Total
	took := time.Since(startTime)
	result.Took = took.Milliseconds()
	s.observe("ranked", took, ranked.Total)
	return result, nil
}

func rankPage(idx *index.InvertedIndex, terms []string, page, pageSize int) rankedPage {
	ranking := idx.CosineSimilarities(terms)

	start := (page - 1) * pageSize
	end := min(start+pageSize, len(ranking))
	hits := make([]services.RankedHit, 0, max(0, end-start))
	for i := start; i < end; i++ {
		hits = append(hits, services.RankedHit{
			Rank:       i + 1,
			DocumentID: ranking[i].Document.ID(),
			Score:      ranking[i].Score,
		})
	}
	return rankedPage{Hits: hits, Total: len(ranking)}
}

// Phrase finds the documents containing the exact phrase, in corpus order.
func (s *Service) Phrase(query services.PhraseQuery) (services.PhraseResult, error) {
	startTime := time.Now()

	window, err := s.window(query.Window)
	if err != nil {
		return services.PhraseResult{}, err
	}

	snap := s.snapshot()
	phrases := snap.Index.Phrases()
	matches := phrases.Matches(strings.Fields(query.Phrase))

	result := services.PhraseResult{
		Hits:       make([]services.PhraseHit, 0, len(matches)),
		Total:      len(matches),
		Generation: snap.Generation,
		QueryId:    uuid.New().String(),
	}
	for _, match := range matches {
		hit := services.PhraseHit{
			DocumentID: match.Document.ID(),
			Positions:  match.Positions,
		}
		if query.Context {
			hit.Contexts = make([]services.PhraseContext, 0, len(match.Positions))
			for _, pos := range match.Positions {
				before, after := phrases.ContextWindow(query.Phrase, match.Document, pos, window)
				hit.Contexts = append(hit.Contexts, services.PhraseContext{Position: pos, Before: before, After: after})
			}
		}
		result.Occurrences += len(match.Positions)
		result.Hits = append(result.Hits, hit)
	}

	took := time.Since(startTime)
	result.Took = took.Milliseconds()
	s.observe("phrase", took, result.Total)
	return result, nil
}

// Context returns the terms around a phrase occurrence of an indexed document.
func (s *Service) Context(query services.ContextQuery) (services.ContextResult, error) {
	startTime := time.Now()

	window, err := s.window(query.Window)
	if err != nil {
		return services.ContextResult{}, err
	}

	snap := s.snapshot()
	doc, ok := snap.Corpus.Get(query.DocumentID)
	if !ok {
		return services.ContextResult{}, internalErrors.NewDocumentNotFoundError(query.DocumentID, s.indexName)
	}
	if query.Position < 0 || query.Position >= doc.Len() {
		return services.ContextResult{}, internalErrors.NewValidationError("position",
			fmt.Sprintf("position must be between 0 and %d", max(0, doc.Len()-1)))
	}

	before, after := snap.Index.Phrases().ContextWindow(query.Phrase, doc, query.Position, window)

	s.observe("context", time.Since(startTime), 1)
	return services.ContextResult{
		DocumentID: doc.ID(),
		Phrase:     query.Phrase,
		Position:   query.Position,
		Before:     before,
		After:      after,
	}, nil
}

func (s *Service) window(requested *int) (int, error) {
	if requested == nil {
		return s.settings.ContextWindow, nil
	}
	if *requested < 0 {
		return 0, internalErrors.NewValidationError("window", "window cannot be negative")
	}
	return *requested, nil
}

func (s *Service) observe(kind string, took time.Duration, results int) {
	if s.metrics == nil {
		return
	}
	outcome := "hit"
	if results == 0 {
		outcome = "zero_result"
	}
	s.metrics.QueriesTotal.WithLabelValues(kind, outcome).Inc()
	s.metrics.QueryLatency.WithLabelValues(kind).Observe(took.Seconds())
	s.metrics.QueryResults.WithLabelValues(kind).Observe(float64(results))
}

func (s *Service) observeError(kind string) {
	if s.metrics != nil {
		s.metrics.QueriesTotal.WithLabelValues(kind, "error").Inc()
	}
}

func (s *Service) observeCache(hit bool) {
	if s.metrics == nil {
		return
	}
	if hit {
		s.metrics.CacheHitsTotal.Inc()
	} else {
		s.metrics.CacheMissesTotal.Inc()
	}
}
