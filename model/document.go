package model

import (
	"bufio"
	"errors"
	"io"
	"sort"

	internalErrors "github.com/gcbaptista/go-vsr-engine/internal/errors"
	"github.com/gcbaptista/go-vsr-engine/internal/tokenizer"
)

// Document is a tokenized text document: its terms in order of occurrence and,
// for every distinct term, the zero-based positions where it occurs.
// A Document is populated exactly once and is read-only afterwards, so it can be
// shared between a corpus, any number of indexes and concurrent queries.
type Document struct {
	id           string
	terms        []string         // all terms in document order, case preserved
	positions    map[string][]int // term -> strictly increasing positions
	maxFrequency int
	read         bool
}

// NewDocument creates an empty document with the given identifier.
// Call Read to populate it.
func NewDocument(id string) *Document {
	return &Document{
		id:        id,
		terms:     make([]string, 0),
		positions: make(map[string][]int),
	}
}

// Parse creates a document with the given identifier and populates it from r.
func Parse(id string, r io.Reader) (*Document, error) {
	doc := NewDocument(id)
	if err := doc.Read(r); err != nil {
		return nil, err
	}
	return doc, nil
}

// Read consumes r line by line and splits every line on runs of whitespace.
// Positions are counted across the whole document, not per line.
// A failure of the underlying reader is reported as a DocumentReadError and
// leaves the document empty.
func (d *Document) Read(r io.Reader) error {
	if d.read {
		return internalErrors.NewValidationError("document", "document '"+d.id+"' has already been read")
	}

	terms := make([]string, 0)
	positions := make(map[string][]int)

	reader := bufio.NewReader(r)
	for {
		line, err := reader.ReadString('\n')
		for _, term := range tokenizer.SplitLine(line) {
			positions[term] = append(positions[term], len(terms))
			terms = append(terms, term)
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return internalErrors.NewDocumentReadError(d.id, err)
		}
	}

	maxFrequency := 0
	for _, p := range positions {
		if len(p) > maxFrequency {
			maxFrequency = len(p)
		}
	}

	d.terms = terms
	d.positions = positions
	d.maxFrequency = maxFrequency
	d.read = true
	return nil
}

// ID returns the document identifier.
func (d *Document) ID() string {
	return d.id
}

// Len returns the number of terms in the document.
func (d *Document) Len() int {
	return len(d.terms)
}

// MaxFrequency returns the highest term count of any term in the document,
// 0 for an empty document.
func (d *Document) MaxFrequency() int {
	return d.maxFrequency
}

// TermCount returns how often term occurs in the document. Matching is case-sensitive.
func (d *Document) TermCount(term string) int {
	return len(d.positions[term])
}

// TermPositions returns the ordered positions of term, or an empty slice.
// The returned slice is shared with the document and must not be modified.
func (d *Document) TermPositions(term string) []int {
	if p, ok := d.positions[term]; ok {
		return p
	}
	return []int{}
}

// NormalizedTermFrequency returns TermCount(term) / max(1, MaxFrequency()).
func (d *Document) NormalizedTermFrequency(term string) float64 {
	maxFrequency := d.maxFrequency
	if maxFrequency < 1 {
		maxFrequency = 1
	}
	return float64(d.TermCount(term)) / float64(maxFrequency)
}

// DistinctTerms returns every distinct term of the document in sorted order.
func (d *Document) DistinctTerms() []string {
	distinct := make([]string, 0, len(d.positions))
	for term := range d.positions {
		distinct = append(distinct, term)
	}
	sort.Strings(distinct)
	return distinct
}

// TermAt returns the term at position pos.
func (d *Document) TermAt(pos int) (string, bool) {
	if pos < 0 || pos >= len(d.terms) {
		return "", false
	}
	return d.terms[pos], true
}

// Window returns a copy of the terms in [from, to), clamped to the document bounds.
func (d *Document) Window(from, to int) []string {
	if from < 0 {
		from = 0
	}
	if to > len(d.terms) {
		to = len(d.terms)
	}
	if from >= to {
		return []string{}
	}
	window := make([]string, to-from)
	copy(window, d.terms[from:to])
	return window
}

// Terms returns a copy of the full term sequence.
func (d *Document) Terms() []string {
	return d.Window(0, len(d.terms))
}
