package index

import (
	"time"

	"github.com/gcbaptista/go-vsr-engine/store"
)

// Snapshot pairs a sealed corpus with the index built over it. Queries read both
// from the same snapshot, so boolean and ranked answers always agree with each other
// even while a newer snapshot is being built.
type Snapshot struct {
	Corpus     *store.Corpus
	Index      *InvertedIndex
	Generation uint64
	BuildTime  time.Duration
}

// NewSnapshot seals a copy of corpus and builds an index over it.
func NewSnapshot(corpus *store.Corpus, generation uint64) *Snapshot {
	start := time.Now()
	sealed := corpus.Snapshot()
	idx := Build(sealed)

	return &Snapshot{
		Corpus:     sealed,
		Index:      idx,
		Generation: generation,
		BuildTime:  time.Since(start),
	}
}

// Empty returns generation 0: an empty corpus with an empty index.
func Empty() *Snapshot {
	return NewSnapshot(store.NewCorpus(), 0)
}
