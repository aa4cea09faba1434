package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/gcbaptista/go-vsr-engine/internal/loader"
	"github.com/gcbaptista/go-vsr-engine/model"
)

// DocumentRequest is one document of an add request. HTML bodies (by content
// type) are reduced to their visible text before staging.
type DocumentRequest struct {
	ID          string `json:"id"`
	Text        string `json:"text"`
	ContentType string `json:"content_type,omitempty"`
}

// AddDocumentsHandler stages a document or an array of documents. The batch is
// staged synchronously unless ?async=true is given.
func (api *API) AddDocumentsHandler(c *gin.Context) {
	indexAccessor, indexName, ok := api.indexAccessor(c)
	if !ok {
		return
	}

	body, err := c.GetRawData()
	if err != nil {
		SendInvalidJSONError(c, err)
		return
	}

	// Check if the body is an array or a single object
	var requests []DocumentRequest
	trimmed := bytes.TrimSpace(body)
	switch {
	case bytes.HasPrefix(trimmed, []byte("[")):
		err = json.Unmarshal(trimmed, &requests)
	case bytes.HasPrefix(trimmed, []byte("{")):
		var single DocumentRequest
		err = json.Unmarshal(trimmed, &single)
		requests = []DocumentRequest{single}
	default:
		err = fmt.Errorf("expecting a document object or an array of documents")
	}
	if err != nil {
		SendInvalidJSONError(c, err)
		return
	}

	docs, err := toRawDocuments(requests)
	if err != nil {
		SendError(c, http.StatusBadRequest, ErrorCodeValidationFailed, err.Error())
		return
	}

	if result := ValidateDocuments(docs); result.HasErrors() {
		SendValidationError(c, result)
		return
	}

	if asyncRequested(c, false) {
		jobID, err := api.engine.AddDocumentsAsync(indexName, docs)
		if err != nil {
			SendJobExecutionError(c, "add documents", err)
			return
		}
		c.JSON(http.StatusAccepted, gin.H{
			"status":         "accepted",
			"message":        fmt.Sprintf("Document addition started for index '%s' (%d documents)", indexName, len(docs)),
			"job_id":         jobID,
			"document_count": len(docs),
		})
		return
	}

	if err := indexAccessor.AddDocuments(docs); err != nil {
		SendEngineError(c, ErrorCodeIndexingFailed, "add documents", err)
		return
	}

	stats := indexAccessor.Stats()
	c.JSON(http.StatusOK, gin.H{
		"message":          fmt.Sprintf("%d document(s) staged in index '%s'", len(docs), indexName),
		"staged_documents": stats.StagedDocuments,
		"stale":            stats.Stale,
	})
}

func toRawDocuments(requests []DocumentRequest) ([]model.RawDocument, error) {
	docs := make([]model.RawDocument, len(requests))
	for i, req := range requests {
		text := req.Text
		if req.ContentType != "" && loader.IsHTML(req.ContentType) {
			extracted, err := loader.ExtractHTML(strings.NewReader(req.Text))
			if err != nil {
				return nil, fmt.Errorf("document at index %d has unreadable HTML: %w", i, err)
			}
			text = extracted
		}
		docs[i] = model.RawDocument{ID: strings.TrimSpace(req.ID), Text: text}
	}
	return docs, nil
}

// GetDocumentHandler retrieves a staged document by ID, with its source text when stored
func (api *API) GetDocumentHandler(c *gin.Context) {
	indexAccessor, _, ok := api.indexAccessor(c)
	if !ok {
		return
	}

	documentID := c.Param("documentId")
	if result := ValidateDocumentID(documentID); result.HasErrors() {
		SendValidationError(c, result)
		return
	}

	details, err := indexAccessor.DocumentDetails(documentID)
	if err != nil {
		SendEngineError(c, ErrorCodeInternalError, "get document", err)
		return
	}

	c.JSON(http.StatusOK, details)
}
