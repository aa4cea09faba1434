package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/gcbaptista/go-vsr-engine/model"
	"github.com/gcbaptista/go-vsr-engine/services"
)

// BooleanSearchHandler handles AND/OR term queries.
// Request Body: services.BooleanQuery
func (api *API) BooleanSearchHandler(c *gin.Context) {
	startTime := time.Now()
	indexAccessor, indexName, ok := api.indexAccessor(c)
	if !ok {
		return
	}

	var req services.BooleanQuery
	if err := c.ShouldBindJSON(&req); err != nil {
		SendError(c, http.StatusBadRequest, ErrorCodeInvalidQuery, "Invalid request body: "+err.Error())
		return
	}

	results, err := indexAccessor.Boolean(req)
	if err != nil {
		SendEngineError(c, ErrorCodeSearchFailed, "boolean search", err)
		return
	}

	searchType := model.SearchTypeAnd
	if strings.EqualFold(strings.TrimSpace(req.Operator), services.OperatorOr) {
		searchType = model.SearchTypeOr
	}
	api.trackSearch(indexName, strings.Join(req.Terms, " "), searchType, startTime, results.Total)

	c.JSON(http.StatusOK, results)
}

// RankHandler ranks the documents of an index against free text.
// Request Body: services.RankQuery
func (api *API) RankHandler(c *gin.Context) {
	startTime := time.Now()
	indexAccessor, indexName, ok := api.indexAccessor(c)
	if !ok {
		return
	}

	var req services.RankQuery
	if err := c.ShouldBindJSON(&req); err != nil {
		SendError(c, http.StatusBadRequest, ErrorCodeInvalidQuery, "Invalid request body: "+err.Error())
		return
	}
	if result := ValidatePagination(req.Page, req.PageSize); result.HasErrors() {
		SendValidationError(c, result)
		return
	}

	results, err := indexAccessor.Rank(c.Request.Context(), req)
	if err != nil {
		SendEngineError(c, ErrorCodeSearchFailed, "rank", err)
		return
	}

	api.trackSearch(indexName, rankQueryText(req.Query, req.Terms), model.SearchTypeRanked, startTime, results.Total)

	c.JSON(http.StatusOK, results)
}

// MultiRankHandler runs several named ranked queries against one snapshot of an index.
// Request Body: services.MultiRankQuery
func (api *API) MultiRankHandler(c *gin.Context) {
	startTime := time.Now()
	indexAccessor, indexName, ok := api.indexAccessor(c)
	if !ok {
		return
	}

	var req services.MultiRankQuery
	if err := c.ShouldBindJSON(&req); err != nil {
		SendError(c, http.StatusBadRequest, ErrorCodeInvalidQuery, "Invalid request body: "+err.Error())
		return
	}
	if result := ValidatePagination(req.Page, req.PageSize); result.HasErrors() {
		SendValidationError(c, result)
		return
	}

	results, err := indexAccessor.MultiRank(c.Request.Context(), req)
	if err != nil {
		SendEngineError(c, ErrorCodeSearchFailed, "multi rank", err)
		return
	}

	// Track each named query as its own event
	for _, namedQuery := range req.Queries {
		api.trackSearch(indexName, rankQueryText(namedQuery.Query, namedQuery.Terms), model.SearchTypeRanked,
			startTime, results.Results[namedQuery.Name].Total)
	}

	c.JSON(http.StatusOK, results)
}

// PhraseHandler finds the exact phrase, optionally with the terms around each match.
// Request Body: services.PhraseQuery
func (api *API) PhraseHandler(c *gin.Context) {
	startTime := time.Now()
	indexAccessor, indexName, ok := api.indexAccessor(c)
	if !ok {
		return
	}

	var req services.PhraseQuery
	if err := c.ShouldBindJSON(&req); err != nil {
		SendError(c, http.StatusBadRequest, ErrorCodeInvalidQuery, "Invalid request body: "+err.Error())
		return
	}
	if result := ValidateWindow(req.Window); result.HasErrors() {
		SendValidationError(c, result)
		return
	}

	results, err := indexAccessor.Phrase(req)
	if err != nil {
		SendEngineError(c, ErrorCodeSearchFailed, "phrase search", err)
		return
	}

	api.trackSearch(indexName, req.Phrase, model.SearchTypePhrase, startTime, results.Total)

	c.JSON(http.StatusOK, results)
}

// ContextHandler returns the terms around a phrase occurrence at a known position.
// Request Body: services.ContextQuery
func (api *API) ContextHandler(c *gin.Context) {
	startTime := time.Now()
	indexAccessor, indexName, ok := api.indexAccessor(c)
	if !ok {
		return
	}

	var req services.ContextQuery
	if err := c.ShouldBindJSON(&req); err != nil {
		SendError(c, http.StatusBadRequest, ErrorCodeInvalidQuery, "Invalid request body: "+err.Error())
		return
	}
	if result := ValidateDocumentID(req.DocumentID); result.HasErrors() {
		SendValidationError(c, result)
		return
	}
	if result := ValidateWindow(req.Window); result.HasErrors() {
		SendValidationError(c, result)
		return
	}

	results, err := indexAccessor.Context(req)
	if err != nil {
		SendEngineError(c, ErrorCodeSearchFailed, "context", err)
		return
	}

	api.trackSearch(indexName, req.Phrase, model.SearchTypeContext, startTime, 1)

	c.JSON(http.StatusOK, results)
}

func rankQueryText(query string, terms []string) string {
	if len(terms) > 0 {
		return strings.Join(terms, " ")
	}
	return query
}
