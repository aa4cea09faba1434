package index

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gcbaptista/go-vsr-engine/model"
)

func documentByID(t *testing.T, idx *InvertedIndex, id string) *model.Document {
	t.Helper()
	for _, doc := range idx.docs {
		if doc.ID() == id {
			return doc
		}
	}
	t.Fatalf("document %s not indexed", id)
	return nil
}

func TestSearchPhrase(t *testing.T) {
	idx := Build(buildCorpus(t,
		[2]string{"d1", "a b c a b d"},
		[2]string{"d2", "b a c a b"},
		[2]string{"d3", "c d e"},
		[2]string{"d4", "the the the"},
	))
	phrases := idx.Phrases()

	tests := []struct {
		name     string
		terms    []string
		expected map[string][]int
	}{
		{
			name:     "two-term phrase in two documents",
			terms:    []string{"a", "b"},
			expected: map[string][]int{"d1": {0, 3}, "d2": {3}},
		},
		{
			name:     "three-term phrase",
			terms:    []string{"c", "a", "b"},
			expected: map[string][]int{"d1": {2}, "d2": {2}},
		},
		{
			name:     "single term lists every position",
			terms:    []string{"d"},
			expected: map[string][]int{"d1": {5}, "d3": {1}},
		},
		{
			name:     "repeated term overlaps",
			terms:    []string{"the", "the"},
			expected: map[string][]int{"d4": {0, 1}},
		},
		{
			name:     "query terms are lower-cased",
			terms:    []string{"C", "D"},
			expected: map[string][]int{"d3": {0}},
		},
		{
			name:     "phrase does not span documents",
			terms:    []string{"d", "b"},
			expected: map[string][]int{},
		},
		{
			name:     "terms present but never adjacent",
			terms:    []string{"b", "c", "d"},
			expected: map[string][]int{},
		},
		{
			name:     "unknown term",
			terms:    []string{"a", "zeppelin"},
			expected: map[string][]int{},
		},
		{
			name:     "empty phrase",
			terms:    nil,
			expected: map[string][]int{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := phrases.SearchPhrase(tt.terms)
			require.NotNil(t, result)

			got := make(map[string][]int, len(result))
			for doc, positions := range result {
				got[doc.ID()] = positions
			}
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestSearchPhrase_MatchesAreConsecutive(t *testing.T) {
	idx := Build(sampleCorpus(t))
	phrases := idx.Phrases()

	for _, phrase := range [][]string{{"in", "november"}, {"sugarcane", "harvest"}, {"go", "go"}, {"november", "rain", "fell"}} {
		for doc, starts := range phrases.SearchPhrase(phrase) {
			for _, start := range starts {
				for i, term := range phrase {
					got, ok := doc.TermAt(start + i)
					require.True(t, ok)
					assert.Equal(t, term, got, "%v at %d in %s", phrase, start, doc.ID())
				}
			}
		}
	}
}

func TestSearchPhraseString(t *testing.T) {
	idx := Build(buildCorpus(t, [2]string{"d1", "new york times\nnew york post"}))

	result := idx.Phrases().SearchPhraseString("  new   york ")
	require.Len(t, result, 1)
	assert.Equal(t, []int{0, 3}, result[documentByID(t, idx, "d1")])

	assert.Empty(t, idx.Phrases().SearchPhraseString("   "))
}

func TestMatches_CorpusOrder(t *testing.T) {
	idx := Build(buildCorpus(t,
		[2]string{"z", "x y x y"},
		[2]string{"m", "q"},
		[2]string{"a", "x y"},
	))

	matches := idx.Phrases().Matches([]string{"x", "y"})
	require.Len(t, matches, 2)
	assert.Equal(t, "z", matches[0].Document.ID())
	assert.Equal(t, []int{0, 2}, matches[0].Positions)
	assert.Equal(t, "a", matches[1].Document.ID())
	assert.Equal(t, []int{0}, matches[1].Positions)

	assert.Empty(t, idx.Phrases().Matches([]string{"q", "x"}))
}

func TestContext(t *testing.T) {
	idx := Build(buildCorpus(t,
		[2]string{"long", "one two three four five six seven eight nine ten eleven twelve thirteen"},
		[2]string{"short", "alpha beta gamma"},
	))
	phrases := idx.Phrases()

	tests := []struct {
		name           string
		doc            string
		phrase         string
		start          int
		window         int
		expectedBefore string
		expectedAfter  string
	}{
		{
			name:           "full window on both sides",
			doc:            "long",
			phrase:         "seven",
			start:          6,
			window:         DefaultContextWindow,
			expectedBefore: "two three four five six",
			expectedAfter:  "eight nine ten eleven twelve",
		},
		{
			name:           "multi-term phrase skips the phrase itself",
			doc:            "long",
			phrase:         "three four",
			start:          2,
			window:         DefaultContextWindow,
			expectedBefore: "one two",
			expectedAfter:  "five six seven eight nine",
		},
		{
			name:           "truncated at document end",
			doc:            "long",
			phrase:         "twelve",
			start:          11,
			window:         DefaultContextWindow,
			expectedBefore: "seven eight nine ten eleven",
			expectedAfter:  "thirteen",
		},
		{
			name:           "phrase at document start",
			doc:            "short",
			phrase:         "alpha",
			start:          0,
			window:         DefaultContextWindow,
			expectedBefore: "",
			expectedAfter:  "beta gamma",
		},
		{
			name:           "custom window",
			doc:            "long",
			phrase:         "seven",
			start:          6,
			window:         2,
			expectedBefore: "five six",
			expectedAfter:  "eight nine",
		},
		{
			name:   "start out of range",
			doc:    "short",
			phrase: "alpha",
			start:  10,
			window: DefaultContextWindow,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := documentByID(t, idx, tt.doc)
			before, after := phrases.ContextWindow(tt.phrase, doc, tt.start, tt.window)
			assert.Equal(t, tt.expectedBefore, before)
			assert.Equal(t, tt.expectedAfter, after)
		})
	}

	before, after := phrases.Context("seven", documentByID(t, idx, "long"), 6)
	assert.Equal(t, "two three four five six", before)
	assert.Equal(t, "eight nine ten eleven twelve", after)

	before, after = phrases.Context("x", nil, 0)
	assert.Empty(t, before)
	assert.Empty(t, after)
}
