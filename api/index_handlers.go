package api

import (
	"net/http"
	"os"

	"github.com/gin-gonic/gin"

	"github.com/gcbaptista/go-vsr-engine/config"
)

// CreateIndexHandler handles the request to create a new index.
// Request Body: config.IndexSettings
func (api *API) CreateIndexHandler(c *gin.Context) {
	var settings config.IndexSettings

	// Validate JSON binding
	if result := ValidateJSONBinding(c, &settings); result.HasErrors() {
		SendValidationError(c, result)
		return
	}

	// Validate index settings
	if result := ValidateIndexSettings(&settings); result.HasErrors() {
		SendValidationError(c, result)
		return
	}

	if err := api.engine.CreateIndex(settings); err != nil {
		SendEngineError(c, ErrorCodeIndexingFailed, "create index", err)
		return
	}

	created, err := api.engine.GetIndexSettings(settings.Name)
	if err != nil {
		SendEngineError(c, ErrorCodeInternalError, "get index settings", err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message":  "Index '" + settings.Name + "' created successfully",
		"settings": created,
	})
}

// ListIndexesHandler lists all available indexes.
func (api *API) ListIndexesHandler(c *gin.Context) {
	names := api.engine.ListIndexes()
	c.JSON(http.StatusOK, gin.H{"indexes": names, "count": len(names)})
}

// GetIndexHandler retrieves the settings and statistics of an index.
func (api *API) GetIndexHandler(c *gin.Context) {
	indexAccessor, _, ok := api.indexAccessor(c)
	if !ok {
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"settings": indexAccessor.Settings(),
		"stats":    indexAccessor.Stats(),
	})
}

// DeleteIndexHandler handles deleting an index and its stored documents.
func (api *API) DeleteIndexHandler(c *gin.Context) {
	indexName := c.Param("indexName")

	if err := api.engine.DeleteIndex(indexName); err != nil {
		SendEngineError(c, ErrorCodeIndexingFailed, "delete index", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Index '" + indexName + "' deleted successfully"})
}

// UpdateIndexSettingsHandler applies a partial settings update. Keys missing from
// the body keep their current value. The name cannot change.
func (api *API) UpdateIndexSettingsHandler(c *gin.Context) {
	indexName := c.Param("indexName")

	settings, err := api.engine.GetIndexSettings(indexName)
	if err != nil {
		SendEngineError(c, ErrorCodeInternalError, "get index settings", err)
		return
	}

	// Binding into the current settings only overwrites the keys present
	if err := c.ShouldBindJSON(&settings); err != nil {
		SendInvalidJSONError(c, err)
		return
	}

	if err := api.engine.UpdateIndexSettings(indexName, settings); err != nil {
		SendEngineError(c, ErrorCodeInternalError, "update index settings", err)
		return
	}

	updated, err := api.engine.GetIndexSettings(indexName)
	if err != nil {
		SendEngineError(c, ErrorCodeInternalError, "get index settings", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":  "Settings of index '" + indexName + "' updated successfully",
		"settings": updated,
	})
}

// GetIndexStatsHandler returns statistics for a specific index
func (api *API) GetIndexStatsHandler(c *gin.Context) {
	indexAccessor, _, ok := api.indexAccessor(c)
	if !ok {
		return
	}

	c.JSON(http.StatusOK, indexAccessor.Stats())
}

// GetTokenHandler returns the idf and weighted occurrences of a token in the live index.
// Unknown tokens are answered with known=false rather than 404.
func (api *API) GetTokenHandler(c *gin.Context) {
	indexAccessor, _, ok := api.indexAccessor(c)
	if !ok {
		return
	}

	c.JSON(http.StatusOK, indexAccessor.TokenDetails(c.Param("token")))
}

// BuildIndexHandler swaps in a fresh index over the staged documents. It runs as
// a background job unless ?async=false is given.
func (api *API) BuildIndexHandler(c *gin.Context) {
	indexAccessor, indexName, ok := api.indexAccessor(c)
	if !ok {
		return
	}

	if !asyncRequested(c, true) {
		stats, err := indexAccessor.Build()
		if err != nil {
			SendEngineError(c, ErrorCodeIndexingFailed, "build index", err)
			return
		}
		c.JSON(http.StatusOK, stats)
		return
	}

	jobID, err := api.engine.BuildIndexAsync(indexName)
	if err != nil {
		SendJobExecutionError(c, "build", err)
		return
	}
	sendJobAccepted(c, "Index build started for '"+indexName+"'", jobID)
}

// LoadDirectoryRequest names a directory on the server to stage into an index
type LoadDirectoryRequest struct {
	Directory string `json:"directory" binding:"required"`
	Build     bool   `json:"build"` // rebuild once the files are staged
}

// LoadDirectoryHandler stages every matching file of a server-side directory as a background job.
func (api *API) LoadDirectoryHandler(c *gin.Context) {
	_, indexName, ok := api.indexAccessor(c)
	if !ok {
		return
	}

	var req LoadDirectoryRequest
	if result := ValidateJSONBinding(c, &req); result.HasErrors() {
		SendValidationError(c, result)
		return
	}

	if info, err := os.Stat(req.Directory); err != nil || !info.IsDir() {
		result := &ValidationResult{Valid: true}
		result.AddError("directory", "Directory '"+req.Directory+"' does not exist or is not a directory")
		SendValidationError(c, result)
		return
	}

	jobID, err := api.engine.LoadDirectoryAsync(indexName, req.Directory, req.Build)
	if err != nil {
		SendEngineError(c, ErrorCodeJobExecutionFailed, "load directory", err)
		return
	}
	sendJobAccepted(c, "Loading '"+req.Directory+"' into index '"+indexName+"'", jobID)
}
