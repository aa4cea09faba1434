package services

import (
	"context"
	"time"

	"github.com/gcbaptista/go-vsr-engine/config"
	"github.com/gcbaptista/go-vsr-engine/internal/spelling"
	"github.com/gcbaptista/go-vsr-engine/model"
)

// Boolean operators
const (
	OperatorAnd = "and"
	OperatorOr  = "or"
)

// BooleanQuery selects the documents containing all (and) or any (or) of the terms.
// Terms are lower-cased before matching.
type BooleanQuery struct {
	Terms    []string `json:"terms"`
	Operator string   `json:"operator"`
}

// BooleanResult lists matching document IDs in corpus order.
type BooleanResult struct {
	Documents  []string `json:"documents"`
	Total      int      `json:"total"`
	Generation uint64   `json:"generation"`
	Took       int64    `json:"took"`     // milliseconds
	QueryId    string   `json:"query_id"` // unique UUID for this query
}

// RankQuery ranks documents against free text by cosine similarity.
// Either Query (split on whitespace) or Terms is used; Terms wins when both are set.
type RankQuery struct {
	Query    string   `json:"query"`
	Terms    []string `json:"terms,omitempty"`
	Page     int      `json:"page"`
	PageSize int      `json:"page_size"`
}

// RankedHit is one ranked document.
type RankedHit struct {
	Rank       int     `json:"rank"` // 1-based position in the full ranking
	DocumentID string  `json:"document_id"`
	Score      float64 `json:"score"`
}

type RankResult struct {
	Hits       []RankedHit `json:"hits"`
	Total      int         `json:"total"`
	Page       int         `json:"page"`
	PageSize   int         `json:"page_size"`
	Generation uint64      `json:"generation"`
	Cached     bool        `json:"cached"`
	Took       int64       `json:"took"`     // milliseconds
	QueryId    string      `json:"query_id"` // unique UUID for this query
}

// NamedRankQuery is one query of a MultiRankQuery.
type NamedRankQuery struct {
	Name  string   `json:"name"`
	Query string   `json:"query"`
	Terms []string `json:"terms,omitempty"`
}

// MultiRankQuery runs several ranked queries against the same index snapshot.
type MultiRankQuery struct {
	Queries  []NamedRankQuery `json:"queries"`
	Page     int              `json:"page,omitempty"`
	PageSize int              `json:"page_size,omitempty"`
}

type MultiRankResult struct {
	Results          map[string]RankResult `json:"results"`
	TotalQueries     int                   `json:"total_queries"`
	ProcessingTimeMs float64               `json:"processing_time_ms"`
}

// PhraseQuery finds the exact phrase. With Context set, every match carries the
// terms around it; Window overrides the index's context window.
type PhraseQuery struct {
	Phrase  string `json:"phrase"`
	Context bool   `json:"context"`
	Window  *int   `json:"window,omitempty"`
}

// PhraseContext is the text around one phrase occurrence.
type PhraseContext struct {
	Position int    `json:"position"`
	Before   string `json:"before"`
	After    string `json:"after"`
}

// PhraseHit holds the phrase start positions within one document.
type PhraseHit struct {
	DocumentID string          `json:"document_id"`
	Positions  []int           `json:"positions"`
	Contexts   []PhraseContext `json:"contexts,omitempty"`
}

type PhraseResult struct {
	Hits        []PhraseHit `json:"hits"`
	Total       int         `json:"total"`       // matching documents
	Occurrences int         `json:"occurrences"` // matches across all documents
	Generation  uint64      `json:"generation"`
	Took        int64       `json:"took"`     // milliseconds
	QueryId     string      `json:"query_id"` // unique UUID for this query
}

// ContextQuery asks for the terms around a known phrase position in a document.
type ContextQuery struct {
	Phrase     string `json:"phrase"`
	DocumentID string `json:"document_id"`
	Position   int    `json:"position"`
	Window     *int   `json:"window,omitempty"`
}

type ContextResult struct {
	DocumentID string `json:"document_id"`
	Phrase     string `json:"phrase"`
	Position   int    `json:"position"`
	Before     string `json:"before"`
	After      string `json:"after"`
}

// TokenPosting is one weighted occurrence of a token.
type TokenPosting struct {
	DocumentID string  `json:"document_id"`
	Weight     float64 `json:"weight"`
	Positions  []int   `json:"positions"`
}

// TokenDetails describes a token of the live index. Unknown tokens carry
// spelling suggestions from the index vocabulary.
type TokenDetails struct {
	Token             string                `json:"token"`
	Known             bool                  `json:"known"`
	IDF               float64               `json:"idf"`
	DocumentFrequency int                   `json:"document_frequency"`
	Occurrences       []TokenPosting        `json:"occurrences"`
	Suggestions       []spelling.Suggestion `json:"suggestions,omitempty"`
}

// DocumentDetails describes a staged document.
type DocumentDetails struct {
	ID            string `json:"id"`
	Length        int    `json:"length"`
	DistinctTerms int    `json:"distinct_terms"`
	MaxFrequency  int    `json:"max_frequency"`
	Indexed       bool   `json:"indexed"` // part of the live index
	Text          string `json:"text,omitempty"`
}

// IndexStats summarizes the staging corpus and the live index of an index.
type IndexStats struct {
	Name             string     `json:"name"`
	StagedDocuments  int        `json:"staged_documents"`
	IndexedDocuments int        `json:"indexed_documents"`
	Tokens           int        `json:"tokens"`
	Occurrences      int        `json:"occurrences"`
	Generation       uint64     `json:"generation"`
	BuiltAt          *time.Time `json:"built_at,omitempty"`
	BuildTimeMs      int64      `json:"build_time_ms"`
	Stale            bool       `json:"stale"` // staged documents not yet in the live index
}

// Indexer defines operations for adding data to an index
type Indexer interface {
	AddDocuments(docs []model.RawDocument) error
}

// Searcher defines operations for querying an index
type Searcher interface {
	Boolean(query BooleanQuery) (BooleanResult, error)
	Rank(ctx context.Context, query RankQuery) (RankResult, error)
	MultiRank(ctx context.Context, query MultiRankQuery) (MultiRankResult, error)
	Phrase(query PhraseQuery) (PhraseResult, error)
	Context(query ContextQuery) (ContextResult, error)
}

// Inspector exposes index internals for debugging and tooling
type Inspector interface {
	TokenDetails(token string) TokenDetails
	DocumentDetails(id string) (DocumentDetails, error)
	Stats() IndexStats
}

type IndexAccessor interface {
	Indexer
	Searcher
	Inspector
	Settings() config.IndexSettings
	// Build seals the staged documents and swaps in a fresh index over them.
	Build() (IndexStats, error)
}

// IndexManager manages the lifecycle of indices
type IndexManager interface {
	CreateIndex(settings config.IndexSettings) error
	GetIndex(name string) (IndexAccessor, error)
	GetIndexSettings(name string) (config.IndexSettings, error)
	DeleteIndex(name string) error
	ListIndexes() []string
}

// AsyncIndexManager runs slow index operations as background jobs.
// Every method returns the ID of the started job.
type AsyncIndexManager interface {
	IndexManager
	BuildIndexAsync(name string) (string, error)
	LoadDirectoryAsync(name, dir string, build bool) (string, error)
	AddDocumentsAsync(name string, docs []model.RawDocument) (string, error)
}

// JobManager defines operations for managing background jobs
type JobManager interface {
	GetJob(jobID string) (*model.Job, error)
	ListJobs(indexName string, status *model.JobStatus) []*model.Job
}
