package index

import (
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gcbaptista/go-vsr-engine/model"
	"github.com/gcbaptista/go-vsr-engine/store"
)

func buildCorpus(t *testing.T, docs ...[2]string) *store.Corpus {
	t.Helper()
	corpus := store.NewCorpus()
	for _, d := range docs {
		doc, err := model.Parse(d[0], strings.NewReader(d[1]))
		require.NoError(t, err)
		require.NoError(t, corpus.AddDocument(doc))
	}
	return corpus.Snapshot()
}

func resultIDs(results []SearchResultItem) []string {
	out := make([]string, 0, len(results))
	for _, r := range results {
		out = append(out, r.Document.ID())
	}
	return out
}

func sampleCorpus(t *testing.T) *store.Corpus {
	return buildCorpus(t,
		[2]string{"Reut_1.txt", "november rain fell in november over the harbour"},
		[2]string{"Reut_2.txt", "shipbuilding orders rose in november"},
		[2]string{"Reut_3.txt", "sugarcane harvest and sugarcane prices in brazil"},
		[2]string{"Reut_4.txt", "go go gadget shipbuilding"},
		[2]string{"Reut_5.txt", "daily alternative energy report"},
		[2]string{"Reut_6.txt", ""},
	)
}

func TestBuild_CatDogScenario(t *testing.T) {
	idx := Build(buildCorpus(t,
		[2]string{"doc1", "the cat sat"},
		[2]string{"doc2", "the dog sat"},
	))

	assert.Equal(t, 0.0, idx.TokenInfo("the").IDF)
	assert.InDelta(t, math.Log(2), idx.TokenInfo("cat").IDF, 1e-12)
	assert.Greater(t, idx.TokenInfo("cat").IDF, 0.0)

	results := idx.CosineSimilarities([]string{"cat"})
	require.Len(t, results, 1)
	assert.Equal(t, "doc1", results[0].Document.ID())
	assert.Greater(t, results[0].Score, 0.0)

	assert.Empty(t, idx.CosineSimilarities([]string{"the"}))
}

func TestBuild_IDFCountsDocumentsOnce(t *testing.T) {
	corpus := sampleCorpus(t)
	idx := Build(corpus)
	n := float64(corpus.Size())

	for _, term := range []string{"november", "sugarcane", "go", "shipbuilding", "in"} {
		df := len(corpus.DocumentsContainingAny(term))
		require.Greater(t, df, 0)

		info := idx.TokenInfo(term)
		assert.InDelta(t, math.Log(n/float64(df)), info.IDF, 1e-12, "idf of %q", term)
		assert.Equal(t, df, info.DocumentFrequency(), "one occurrence per document for %q", term)
	}
}

func TestBuild_WeightsAndOrdering(t *testing.T) {
	corpus := sampleCorpus(t)
	idx := Build(corpus)

	for _, term := range []string{"november", "sugarcane", "shipbuilding", "go", "in"} {
		info := idx.TokenInfo(term)
		for i, occ := range info.Occurrences {
			doc := occ.Document
			expected := info.IDF * float64(doc.TermCount(term)) / float64(doc.MaxFrequency())
			assert.InDelta(t, expected, occ.Weight, 1e-12, "weight of %q in %s", term, doc.ID())
			assert.Equal(t, doc.TermPositions(term), occ.Positions)

			if i > 0 {
				assert.LessOrEqual(t, occ.Weight, info.Occurrences[i-1].Weight, "occurrences of %q must be sorted descending", term)
			}
		}
	}
}

func TestTokenInfo_UnknownToken(t *testing.T) {
	idx := Build(sampleCorpus(t))

	info := idx.TokenInfo("zeppelin")
	require.NotNil(t, info)
	assert.Equal(t, 1.0, info.IDF)
	assert.Empty(t, info.Occurrences)
	assert.False(t, idx.HasToken("zeppelin"))
}

func TestCosineSimilarities_Properties(t *testing.T) {
	idx := Build(sampleCorpus(t))

	queries := [][]string{
		{"november", "rain"},
		{"alternative", "daily"},
		{"go", "go", "gadget"},
		{"shipbuilding"},
		{"November", "zeppelin"},
	}

	for _, query := range queries {
		results := idx.CosineSimilarities(query)
		seen := make(map[string]bool)
		for i, r := range results {
			assert.False(t, seen[r.Document.ID()], "duplicate document %s", r.Document.ID())
			seen[r.Document.ID()] = true

			assert.Greater(t, r.Score, 0.0)
			assert.LessOrEqual(t, r.Score, 1.0)
			if i > 0 {
				assert.LessOrEqual(t, r.Score, results[i-1].Score)
			}

			shared := false
			for _, term := range query {
				if r.Document.TermCount(strings.ToLower(term)) > 0 {
					shared = true
				}
			}
			assert.True(t, shared, "%s shares no term with %v", r.Document.ID(), query)
		}
	}
}

func TestCosineSimilarities_ExactScore(t *testing.T) {
	idx := Build(buildCorpus(t,
		[2]string{"a", "x y"},
		[2]string{"b", "y z"},
		[2]string{"c", "z"},
	))

	// idf(x)=log3, idf(y)=log(3/2), idf(z)=log(3/2); every tf is 1
	lx, ly := math.Log(3), math.Log(1.5)
	expectedA := lx / math.Sqrt(lx*lx+ly*ly)

	results := idx.CosineSimilarities([]string{"x"})
	require.Len(t, results, 1)
	assert.Equal(t, "a", results[0].Document.ID())
	assert.InDelta(t, expectedA, results[0].Score, 1e-12)

	// identical vectors score 1
	results = idx.CosineSimilarities([]string{"z"})
	require.Len(t, results, 2)
	assert.Equal(t, "c", results[0].Document.ID())
	assert.InDelta(t, 1.0, results[0].Score, 1e-12)
}

func TestCosineSimilarities_TiesBrokenByCorpusOrder(t *testing.T) {
	idx := Build(buildCorpus(t,
		[2]string{"first", "alpha beta"},
		[2]string{"second", "alpha beta"},
		[2]string{"third", "gamma"},
	))

	results := idx.CosineSimilarities([]string{"alpha"})
	assert.Equal(t, []string{"first", "second"}, resultIDs(results))
}

func TestCosineSimilarities_EmptyInputs(t *testing.T) {
	idx := Build(sampleCorpus(t))

	assert.Empty(t, idx.CosineSimilarities(nil))
	assert.Empty(t, idx.CosineSimilarities([]string{"zeppelin"}))
	assert.Equal(t, 0.0, idx.DocumentLength(idx.docs[5]), "empty document has zero length")

	empty := Build(store.NewCorpus())
	assert.Empty(t, empty.CosineSimilarities([]string{"anything"}))
	assert.Equal(t, 0, empty.Stats().Tokens)
}

func TestBuild_Idempotent(t *testing.T) {
	corpus := sampleCorpus(t)
	first := Build(corpus)
	second := Build(corpus)

	for token, info := range first.tokens {
		other := second.TokenInfo(token)
		assert.Equal(t, info.IDF, other.IDF)
		require.Len(t, other.Occurrences, len(info.Occurrences))
		for i := range info.Occurrences {
			assert.Same(t, info.Occurrences[i].Document, other.Occurrences[i].Document)
		}
	}

	query := []string{"november", "shipbuilding", "go"}
	assert.Equal(t, resultIDs(first.CosineSimilarities(query)), resultIDs(second.CosineSimilarities(query)))
}

func TestStats(t *testing.T) {
	idx := Build(buildCorpus(t,
		[2]string{"d1", "a b a"},
		[2]string{"d2", "b c"},
	))

	stats := idx.Stats()
	assert.Equal(t, 2, stats.Documents)
	assert.Equal(t, 3, stats.Tokens)
	assert.Equal(t, 4, stats.Occurrences)
	assert.False(t, stats.BuiltAt.IsZero())
}

func TestVocabulary(t *testing.T) {
	idx := Build(buildCorpus(t,
		[2]string{"d1", "a b a"},
		[2]string{"d2", "b c"},
	))

	vocabulary := make(map[string]int)
	for token, df := range idx.Vocabulary() {
		vocabulary[token] = df
	}
	assert.Equal(t, map[string]int{"a": 1, "b": 2, "c": 1}, vocabulary)

	seen := 0
	for range idx.Vocabulary() {
		seen++
		break
	}
	assert.Equal(t, 1, seen, "stops when the consumer does")
}
