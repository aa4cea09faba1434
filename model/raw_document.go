package model

import "strings"

// RawDocument is a document as submitted by a collaborator (API client, loader,
// ingestion consumer) before tokenization.
type RawDocument struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// Parse tokenizes the raw text into a Document.
func (r RawDocument) Parse() (*Document, error) {
	return Parse(r.ID, strings.NewReader(r.Text))
}
