package store

import (
	"iter"
	"sync"

	internalErrors "github.com/gcbaptista/go-vsr-engine/internal/errors"
	"github.com/gcbaptista/go-vsr-engine/model"
)

// Corpus is an insertion-ordered collection of documents.
// Appends are safe from concurrent loaders; once sealed, the corpus is read-only
// and can be handed to an index.
type Corpus struct {
	mu     sync.RWMutex
	docs   []*model.Document
	byID   map[string]int // document ID -> position in docs
	sealed bool
}

// NewCorpus creates an empty, open corpus.
func NewCorpus() *Corpus {
	return &Corpus{
		docs: make([]*model.Document, 0),
		byID: make(map[string]int),
	}
}

// AddDocument appends doc. Identifiers must be unique within the corpus.
func (c *Corpus) AddDocument(doc *model.Document) error {
	if doc == nil {
		return internalErrors.NewValidationError("document", "document cannot be nil")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.sealed {
		return internalErrors.ErrCorpusSealed
	}
	if _, exists := c.byID[doc.ID()]; exists {
		return internalErrors.NewDuplicateDocumentError(doc.ID())
	}

	c.byID[doc.ID()] = len(c.docs)
	c.docs = append(c.docs, doc)
	return nil
}

// Get returns the document with the given identifier.
func (c *Corpus) Get(id string) (*model.Document, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	i, ok := c.byID[id]
	if !ok {
		return nil, false
	}
	return c.docs[i], true
}

// Size returns the number of documents.
func (c *Corpus) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.docs)
}

// Documents returns the documents in insertion order.
// The slice is a copy; the documents are shared.
func (c *Corpus) Documents() []*model.Document {
	c.mu.RLock()
	defer c.mu.RUnlock()

	docs := make([]*model.Document, len(c.docs))
	copy(docs, c.docs)
	return docs
}

// All iterates over the documents in insertion order.
func (c *Corpus) All() iter.Seq[*model.Document] {
	docs := c.Documents()
	return func(yield func(*model.Document) bool) {
		for _, doc := range docs {
			if !yield(doc) {
				return
			}
		}
	}
}

// DocumentsContainingAll returns the documents in which every term occurs at least once.
// Terms are matched as given; callers normalize query case beforehand.
// An empty term list matches nothing.
func (c *Corpus) DocumentsContainingAll(terms ...string) []*model.Document {
	result := make([]*model.Document, 0)
	if len(terms) == 0 {
		return result
	}

	for doc := range c.All() {
		matchesAll := true
		for _, term := range terms {
			if doc.TermCount(term) == 0 {
				matchesAll = false
				break
			}
		}
		if matchesAll {
			result = append(result, doc)
		}
	}
	return result
}

// DocumentsContainingAny returns the documents in which at least one term occurs.
func (c *Corpus) DocumentsContainingAny(terms ...string) []*model.Document {
	result := make([]*model.Document, 0)
	if len(terms) == 0 {
		return result
	}

	for doc := range c.All() {
		for _, term := range terms {
			if doc.TermCount(term) > 0 {
				result = append(result, doc)
				break
			}
		}
	}
	return result
}

// Seal closes the corpus for further additions.
func (c *Corpus) Seal() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sealed = true
}

// Sealed reports whether the corpus accepts no more documents.
func (c *Corpus) Sealed() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.sealed
}

// Snapshot returns a sealed copy holding the current documents.
// Documents are shared, not copied. The receiver stays open.
func (c *Corpus) Snapshot() *Corpus {
	c.mu.RLock()
	defer c.mu.RUnlock()

	snapshot := &Corpus{
		docs:   make([]*model.Document, len(c.docs)),
		byID:   make(map[string]int, len(c.byID)),
		sealed: true,
	}
	copy(snapshot.docs, c.docs)
	for id, i := range c.byID {
		snapshot.byID[id] = i
	}
	return snapshot
}
