// Package ingest stages documents published on a Kafka topic, typically by a
// crawler, into the indexes of the engine.
package ingest

import (
	"encoding/json"
	"fmt"
	"strings"

	internalErrors "github.com/gcbaptista/go-vsr-engine/internal/errors"
	"github.com/gcbaptista/go-vsr-engine/internal/loader"
	"github.com/gcbaptista/go-vsr-engine/model"
)

// Message is one document of the ingest topic. The URL stands in for the ID
// when the publisher sends none.
type Message struct {
	Index       string `json:"index"`
	ID          string `json:"id,omitempty"`
	URL         string `json:"url,omitempty"`
	Text        string `json:"text"`
	ContentType string `json:"content_type,omitempty"`
}

// Decode unmarshals and checks a message value.
func Decode(value []byte) (Message, error) {
	var msg Message
	if err := json.Unmarshal(value, &msg); err != nil {
		return msg, fmt.Errorf("decoding ingest message: %w", err)
	}

	msg.Index = strings.TrimSpace(msg.Index)
	if msg.Index == "" {
		return msg, internalErrors.NewValidationError("index", "ingest message names no index")
	}
	if msg.DocumentID() == "" {
		return msg, internalErrors.NewValidationError("id", "ingest message has neither id nor url")
	}
	return msg, nil
}

// DocumentID is the ID the document is staged under.
func (m Message) DocumentID() string {
	if id := strings.TrimSpace(m.ID); id != "" {
		return id
	}
	return strings.TrimSpace(m.URL)
}

// Document converts the message to a raw document, reducing HTML bodies to their text.
func (m Message) Document() (model.RawDocument, error) {
	text := m.Text
	if m.ContentType != "" && loader.IsHTML(m.ContentType) {
		extracted, err := loader.ExtractHTML(strings.NewReader(m.Text))
		if err != nil {
			return model.RawDocument{}, internalErrors.NewDocumentReadError(m.DocumentID(), err)
		}
		text = extracted
	}
	return model.RawDocument{ID: m.DocumentID(), Text: text}, nil
}
