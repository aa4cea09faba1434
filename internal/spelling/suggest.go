package spelling

import (
	"iter"
	"slices"
	"strings"
	"unicode/utf8"
)

// Term lengths, in runes, from which one and two edits are tolerated.
const (
	MinLengthForOneEdit  = 4
	MinLengthForTwoEdits = 7
)

// Suggestion is a vocabulary token close to an unknown term.
type Suggestion struct {
	Token             string `json:"token"`
	Distance          int    `json:"distance"`
	DocumentFrequency int    `json:"document_frequency"`
}

// MaxDistance returns the number of edits tolerated for term. Short terms get
// none: every three-letter word is one edit away from dozens of others.
func MaxDistance(term string) int {
	switch n := utf8.RuneCountInString(term); {
	case n >= MinLengthForTwoEdits:
		return 2
	case n >= MinLengthForOneEdit:
		return 1
	default:
		return 0
	}
}

// Suggest returns up to limit tokens of vocabulary within MaxDistance(term) of
// term, closest first, then the most frequent, then alphabetically. Vocabulary
// yields each token with its document frequency. The term itself is never
// suggested.
func Suggest(term string, vocabulary iter.Seq2[string, int], limit int) []Suggestion {
	maxDistance := MaxDistance(term)
	if maxDistance == 0 || limit <= 0 {
		return nil
	}

	var suggestions []Suggestion
	for token, df := range vocabulary {
		if token == term {
			continue
		}
		if d := Distance(term, token, maxDistance); d <= maxDistance {
			suggestions = append(suggestions, Suggestion{Token: token, Distance: d, DocumentFrequency: df})
		}
	}

	slices.SortFunc(suggestions, func(a, b Suggestion) int {
		if a.Distance != b.Distance {
			return a.Distance - b.Distance
		}
		if a.DocumentFrequency != b.DocumentFrequency {
			return b.DocumentFrequency - a.DocumentFrequency
		}
		return strings.Compare(a.Token, b.Token)
	})

	if len(suggestions) > limit {
		suggestions = suggestions[:limit]
	}
	return suggestions
}
