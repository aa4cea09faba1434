package index

import (
	"iter"
	"math"
	"sort"
	"time"

	"github.com/gcbaptista/go-vsr-engine/model"
)

// DocumentSource provides the documents an index is built from, in a stable order.
// *store.Corpus satisfies it.
type DocumentSource interface {
	Documents() []*model.Document
}

// InvertedIndex maps every distinct token of a corpus to its idf and its weighted
// occurrences. It is built once and is read-only afterwards, so concurrent queries
// need no locking. Rebuilding means building a new InvertedIndex.
type InvertedIndex struct {
	tokens   map[string]*TokenInfo
	docs     []*model.Document
	ordinals map[*model.Document]int
	lengths  []float64 // Euclidean length of each document's weight vector, by ordinal
	builtAt  time.Time
}

// BuiltAt returns when the index was built.
func (ii *InvertedIndex) BuiltAt() time.Time {
	return ii.builtAt
}

// Stats summarizes an index.
type Stats struct {
	Documents   int       `json:"documents"`
	Tokens      int       `json:"tokens"`
	Occurrences int       `json:"occurrences"`
	BuiltAt     time.Time `json:"built_at"`
}

// Build indexes every document of source.
// The first pass counts document frequencies; idf = log(N/df) is computed only once
// they are final. The second pass creates one weighted occurrence per
// (document, distinct token) and accumulates document vector lengths.
// Finally every occurrence list is sorted by weight descending.
func Build(source DocumentSource) *InvertedIndex {
	docs := source.Documents()

	idx := &InvertedIndex{
		tokens:   make(map[string]*TokenInfo),
		docs:     docs,
		ordinals: make(map[*model.Document]int, len(docs)),
		lengths:  make([]float64, len(docs)),
		builtAt:  time.Now(),
	}

	// Pass 1: document frequencies
	df := make(map[string]int)
	for ordinal, doc := range docs {
		idx.ordinals[doc] = ordinal
		for _, term := range doc.DistinctTerms() {
			df[term]++
		}
	}

	n := float64(len(docs))
	for term, count := range df {
		idx.tokens[term] = &TokenInfo{
			IDF:         math.Log(n / float64(count)),
			Occurrences: make([]*TokenOccurrence, 0, count),
		}
	}

	// Pass 2: weighted occurrences and vector lengths
	seq := 0
	for ordinal, doc := range docs {
		sumSquares := 0.0
		for _, term := range doc.DistinctTerms() {
			info := idx.tokens[term]
			occ := &TokenOccurrence{
				Document:  doc,
				Weight:    info.IDF * doc.NormalizedTermFrequency(term),
				Positions: doc.TermPositions(term),
				seq:       seq,
			}
			seq++
			info.Occurrences = append(info.Occurrences, occ)
			sumSquares += occ.Weight * occ.Weight
		}
		idx.lengths[ordinal] = math.Sqrt(sumSquares)
	}

	for _, info := range idx.tokens {
		occurrences := info.Occurrences
		sort.Slice(occurrences, func(i, j int) bool {
			return occurrenceBefore(occurrences[i], occurrences[j])
		})
	}

	return idx
}

// TokenInfo returns the info for token. An unknown token yields an empty info with
// IDF 1 and no occurrences, so it contributes nothing to any ranking.
// The returned value is shared with the index and must not be modified.
func (ii *InvertedIndex) TokenInfo(token string) *TokenInfo {
	if info, ok := ii.tokens[token]; ok {
		return info
	}
	return &TokenInfo{IDF: 1, Occurrences: []*TokenOccurrence{}}
}

// HasToken reports whether token occurs anywhere in the indexed corpus.
func (ii *InvertedIndex) HasToken(token string) bool {
	_, ok := ii.tokens[token]
	return ok
}

// Vocabulary yields every token with its document frequency, in no particular order.
func (ii *InvertedIndex) Vocabulary() iter.Seq2[string, int] {
	return func(yield func(string, int) bool) {
		for token, info := range ii.tokens {
			if !yield(token, info.DocumentFrequency()) {
				return
			}
		}
	}
}

// DocumentLength returns the Euclidean length of doc's weight vector,
// 0 for documents that are not part of this index.
func (ii *InvertedIndex) DocumentLength(doc *model.Document) float64 {
	ordinal, ok := ii.ordinals[doc]
	if !ok {
		return 0
	}
	return ii.lengths[ordinal]
}

// Size returns the number of indexed documents.
func (ii *InvertedIndex) Size() int {
	return len(ii.docs)
}

// Stats returns counts describing the index.
func (ii *InvertedIndex) Stats() Stats {
	occurrences := 0
	for _, info := range ii.tokens {
		occurrences += len(info.Occurrences)
	}
	return Stats{
		Documents:   len(ii.docs),
		Tokens:      len(ii.tokens),
		Occurrences: occurrences,
		BuiltAt:     ii.builtAt,
	}
}
