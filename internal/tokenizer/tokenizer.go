package tokenizer

import (
	"strings"
)

// SplitLine splits a single line of document text on runs of whitespace.
// Case is preserved; a blank line yields no terms.
func SplitLine(line string) []string {
	fields := strings.Fields(line)
	if fields == nil {
		return make([]string, 0) // Initialize as empty slice, not nil
	}
	return fields
}

// NormalizeTerm lower-cases a query term. Document terms are stored as written,
// so normalization happens only on the query side.
func NormalizeTerm(term string) string {
	return strings.ToLower(strings.TrimSpace(term))
}

// NormalizeTerms lower-cases every term and drops the ones that end up empty.
func NormalizeTerms(terms []string) []string {
	normalized := make([]string, 0, len(terms))
	for _, term := range terms {
		if t := NormalizeTerm(term); t != "" {
			normalized = append(normalized, t)
		}
	}
	return normalized
}

// ParseQuery splits a raw query string on whitespace and normalizes each term.
func ParseQuery(query string) []string {
	return NormalizeTerms(strings.Fields(query))
}

// CountTerms returns the number of occurrences of every term and the highest count,
// treating terms as a one-shot document.
func CountTerms(terms []string) (map[string]int, int) {
	counts := make(map[string]int, len(terms))
	maxCount := 0
	for _, term := range terms {
		counts[term]++
		if counts[term] > maxCount {
			maxCount = counts[term]
		}
	}
	return counts, maxCount
}
