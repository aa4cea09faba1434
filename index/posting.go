package index

import (
	"github.com/gcbaptista/go-vsr-engine/model"
)

// TokenOccurrence is the posting of one token in one document.
type TokenOccurrence struct {
	Document  *model.Document // shared with the corpus, not owned
	Weight    float64         // idf(token) * normalized tf(token, document)
	Positions []int           // shared view into the document's own position list
	seq       int             // insertion sequence, tie-break for equal weights
}

// TokenInfo holds the idf of a token and its occurrences, ordered by weight descending.
type TokenInfo struct {
	IDF         float64
	Occurrences []*TokenOccurrence
}

// DocumentFrequency returns the number of documents containing the token.
func (ti *TokenInfo) DocumentFrequency() int {
	return len(ti.Occurrences)
}

// SearchResultItem is one ranked document.
type SearchResultItem struct {
	Document *model.Document
	Score    float64
	ordinal  int // corpus position, tie-break for equal scores
}

// occurrenceBefore orders occurrences by weight descending, then insertion sequence.
func occurrenceBefore(a, b *TokenOccurrence) bool {
	if a.Weight != b.Weight {
		return a.Weight > b.Weight
	}
	return a.seq < b.seq
}

// resultBefore orders results by score descending, then corpus order.
func resultBefore(a, b SearchResultItem) bool {
	if a.Score != b.Score {
		return a.Score > b.Score
	}
	return a.ordinal < b.ordinal
}
