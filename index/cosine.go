package index

import (
	"math"
	"sort"

	"github.com/gcbaptista/go-vsr-engine/internal/tokenizer"
)

// QueryWeights returns the weight of every distinct query term. The query is treated
// as a one-shot document: weight = idf(term) * count(term) / maxCount.
// Terms unknown to the index weigh 0.
func (ii *InvertedIndex) QueryWeights(terms []string) map[string]float64 {
	counts, maxCount := tokenizer.CountTerms(tokenizer.NormalizeTerms(terms))
	weights := make(map[string]float64, len(counts))
	if maxCount == 0 {
		return weights
	}
	for term, count := range counts {
		info, ok := ii.tokens[term]
		if !ok {
			weights[term] = 0
			continue
		}
		weights[term] = info.IDF * float64(count) / float64(maxCount)
	}
	return weights
}

// CosineSimilarities ranks the indexed documents against the query terms by the
// cosine of the angle between query and document weight vectors.
// Terms are lower-cased before lookup. Only documents with a positive score are
// returned, fully ordered by score descending with corpus order breaking ties.
func (ii *InvertedIndex) CosineSimilarities(terms []string) []SearchResultItem {
	results := make([]SearchResultItem, 0)

	weights := ii.QueryWeights(terms)
	queryLength := 0.0
	for _, w := range weights {
		queryLength += w * w
	}
	queryLength = math.Sqrt(queryLength)
	if queryLength == 0 {
		return results
	}

	dot := make(map[int]float64)
	for term, qw := range weights {
		if qw == 0 {
			continue
		}
		for _, occ := range ii.tokens[term].Occurrences {
			dot[ii.ordinals[occ.Document]] += occ.Weight * qw
		}
	}

	for ordinal, product := range dot {
		docLength := ii.lengths[ordinal]
		if docLength == 0 || product <= 0 {
			continue
		}
		score := math.Min(product/(docLength*queryLength), 1)
		results = append(results, SearchResultItem{
			Document: ii.docs[ordinal],
			Score:    score,
			ordinal:  ordinal,
		})
	}

	sort.Slice(results, func(i, j int) bool {
		return resultBefore(results[i], results[j])
	})
	return results
}
