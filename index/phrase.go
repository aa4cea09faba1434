package index

import (
	"sort"
	"strings"

	"github.com/gcbaptista/go-vsr-engine/internal/tokenizer"
	"github.com/gcbaptista/go-vsr-engine/model"
)

// DefaultContextWindow is the number of terms shown on each side of a phrase match.
const DefaultContextWindow = 5

// PhraseIndex answers exact phrase queries from the positional postings of an
// InvertedIndex. It holds no state of its own.
type PhraseIndex struct {
	idx *InvertedIndex
}

// PhraseMatch lists the start positions of a phrase within one document.
type PhraseMatch struct {
	Document  *model.Document
	Positions []int
}

// posting is a single (document, position) pair of a token.
type posting struct {
	ordinal  int
	position int
}

func (p posting) less(ordinal, position int) bool {
	return p.ordinal < ordinal || (p.ordinal == ordinal && p.position < position)
}

// Phrases returns the phrase search capability of the index.
func (ii *InvertedIndex) Phrases() *PhraseIndex {
	return &PhraseIndex{idx: ii}
}

// SearchPhraseString splits phrase on whitespace and calls SearchPhrase.
func (p *PhraseIndex) SearchPhraseString(phrase string) map[*model.Document][]int {
	return p.SearchPhrase(strings.Fields(phrase))
}

// SearchPhrase returns, for every document containing the terms in this exact order
// at consecutive positions, the positions where the phrase starts.
// An empty phrase or a phrase with a term unknown to the index matches nothing.
func (p *PhraseIndex) SearchPhrase(terms []string) map[*model.Document][]int {
	result := make(map[*model.Document][]int)

	lists := p.postingLists(terms)
	if len(lists) == 0 {
		return result
	}

	for _, start := range mergePostings(lists) {
		doc := p.idx.docs[start.ordinal]
		result[doc] = append(result[doc], start.position)
	}
	return result
}

// Matches is SearchPhrase with the result ordered by corpus position.
func (p *PhraseIndex) Matches(terms []string) []PhraseMatch {
	matches := make([]PhraseMatch, 0)

	lists := p.postingLists(terms)
	if len(lists) == 0 {
		return matches
	}

	for _, start := range mergePostings(lists) {
		doc := p.idx.docs[start.ordinal]
		if n := len(matches); n > 0 && matches[n-1].Document == doc {
			matches[n-1].Positions = append(matches[n-1].Positions, start.position)
			continue
		}
		matches = append(matches, PhraseMatch{Document: doc, Positions: []int{start.position}})
	}
	return matches
}

// postingLists builds one (document, position) list per phrase term, sorted ascending.
// It returns nil as soon as a term is not indexed.
func (p *PhraseIndex) postingLists(terms []string) [][]posting {
	normalized := tokenizer.NormalizeTerms(terms)
	if len(normalized) == 0 || len(normalized) != len(terms) {
		return nil
	}

	lists := make([][]posting, 0, len(normalized))
	for _, term := range normalized {
		info, ok := p.idx.tokens[term]
		if !ok {
			return nil
		}

		list := make([]posting, 0, len(info.Occurrences))
		for _, occ := range info.Occurrences {
			ordinal := p.idx.ordinals[occ.Document]
			for _, pos := range occ.Positions {
				list = append(list, posting{ordinal: ordinal, position: pos})
			}
		}
		sort.Slice(list, func(i, j int) bool {
			return list[i].less(list[j].ordinal, list[j].position)
		})
		lists = append(lists, list)
	}
	return lists
}

// mergePostings walks the k sorted lists with one forward-only pointer each and
// returns the postings of list 0 that start a chain of consecutive positions in the
// same document across all lists.
func mergePostings(lists [][]posting) []posting {
	starts := make([]posting, 0)
	pointers := make([]int, len(lists))

	for ; pointers[0] < len(lists[0]); pointers[0]++ {
		match := true
		for j := 1; j < len(lists); j++ {
			prev := lists[j-1][pointers[j-1]]

			// advance list j to the first posting not before (prev document, prev position + 1)
			for pointers[j] < len(lists[j]) && lists[j][pointers[j]].less(prev.ordinal, prev.position+1) {
				pointers[j]++
			}
			if pointers[j] == len(lists[j]) {
				// targets only grow, so list j can never satisfy a later candidate
				return starts
			}

			cur := lists[j][pointers[j]]
			if cur.ordinal != prev.ordinal || cur.position != prev.position+1 {
				match = false
				break
			}
		}
		if match {
			starts = append(starts, lists[0][pointers[0]])
		}
	}
	return starts
}

// Context returns up to DefaultContextWindow terms before and after the phrase
// occurrence starting at start in doc, each side joined by single spaces.
func (p *PhraseIndex) Context(phrase string, doc *model.Document, start int) (string, string) {
	return p.ContextWindow(phrase, doc, start, DefaultContextWindow)
}

// ContextWindow is Context with a custom number of terms per side.
func (p *PhraseIndex) ContextWindow(phrase string, doc *model.Document, start, window int) (string, string) {
	if doc == nil || window <= 0 || start < 0 || start > doc.Len() {
		return "", ""
	}

	phraseLen := len(strings.Fields(phrase))
	before := doc.Window(start-window, start)
	after := doc.Window(start+phraseLen, start+phraseLen+window)
	return strings.Join(before, " "), strings.Join(after, " ")
}
