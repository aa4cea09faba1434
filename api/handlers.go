package api

import (
	"log/slog"

	"github.com/gin-gonic/gin"

	"github.com/gcbaptista/go-vsr-engine/config"
	"github.com/gcbaptista/go-vsr-engine/internal/analytics"
	"github.com/gcbaptista/go-vsr-engine/internal/jobs"
	"github.com/gcbaptista/go-vsr-engine/internal/logger"
	"github.com/gcbaptista/go-vsr-engine/internal/metrics"
	"github.com/gcbaptista/go-vsr-engine/services"
)

// Engine is everything the HTTP layer needs from the retrieval engine.
// *engine.Engine implements it.
type Engine interface {
	services.AsyncIndexManager
	services.JobManager
	UpdateIndexSettings(name string, settings config.IndexSettings) error
	GetJobMetrics() jobs.StatsData
}

// API holds dependencies for API handlers, primarily the engine.
type API struct {
	engine    Engine
	analytics *analytics.Service
	logger    *slog.Logger
}

// NewAPI creates a new API handler structure.
func NewAPI(engine Engine) *API {
	return &API{
		engine:    engine,
		analytics: analytics.NewService(engine),
		logger:    logger.WithComponent("api"),
	}
}

// SetupRoutes defines all the API routes. m may be nil, in which case neither
// /metrics nor the request metrics middleware is installed.
func SetupRoutes(router *gin.Engine, engine Engine, m *metrics.Metrics) *API {
	apiHandler := NewAPI(engine)

	router.Use(RequestIDMiddleware(), LoggingMiddleware(apiHandler.logger))
	if m != nil {
		router.Use(MetricsMiddleware(m))
		router.GET("/metrics", gin.WrapH(m.Handler()))
	}

	// Health check route
	router.GET("/health", apiHandler.HealthCheckHandler)

	// Analytics route
	router.GET("/analytics", apiHandler.GetAnalyticsHandler)

	// Job management routes
	jobRoutes := router.Group("/jobs")
	{
		jobRoutes.GET("/:jobId", apiHandler.GetJobHandler)         // Get job status by ID
		jobRoutes.GET("/metrics", apiHandler.GetJobMetricsHandler) // Get job performance metrics
	}

	// Index management routes
	indexRoutes := router.Group("/indexes")
	{
		indexRoutes.POST("", apiHandler.CreateIndexHandler)                              // Create a new index
		indexRoutes.GET("", apiHandler.ListIndexesHandler)                               // List all indexes
		indexRoutes.GET("/:indexName", apiHandler.GetIndexHandler)                       // Settings and statistics
		indexRoutes.DELETE("/:indexName", apiHandler.DeleteIndexHandler)                 // Delete an index
		indexRoutes.PATCH("/:indexName/settings", apiHandler.UpdateIndexSettingsHandler) // Update index settings
		indexRoutes.GET("/:indexName/stats", apiHandler.GetIndexStatsHandler)            // Get index statistics
		indexRoutes.GET("/:indexName/jobs", apiHandler.ListJobsHandler)                  // List jobs for an index
		indexRoutes.GET("/:indexName/tokens/:token", apiHandler.GetTokenHandler)         // Inspect a token of the live index

		// Document management routes per index
		docRoutes := indexRoutes.Group("/:indexName/documents")
		{
			docRoutes.PUT("", apiHandler.AddDocumentsHandler)            // Stage documents
			docRoutes.GET("/:documentId", apiHandler.GetDocumentHandler) // Get specific document
		}

		// Index lifecycle
		indexRoutes.POST("/:indexName/_build", apiHandler.BuildIndexHandler)
		indexRoutes.POST("/:indexName/_load", apiHandler.LoadDirectoryHandler)

		// Query routes per index
		indexRoutes.POST("/:indexName/_search", apiHandler.BooleanSearchHandler)
		indexRoutes.POST("/:indexName/_rank", apiHandler.RankHandler)
		indexRoutes.POST("/:indexName/_multi_rank", apiHandler.MultiRankHandler)
		indexRoutes.POST("/:indexName/_phrase", apiHandler.PhraseHandler)
		indexRoutes.POST("/:indexName/_context", apiHandler.ContextHandler)
	}

	return apiHandler
}

// indexAccessor resolves the :indexName parameter and writes the error response
// when it does not name an index.
func (api *API) indexAccessor(c *gin.Context) (services.IndexAccessor, string, bool) {
	indexName := c.Param("indexName")

	if result := ValidateIndexName(indexName); result.HasErrors() {
		SendValidationError(c, result)
		return nil, indexName, false
	}

	indexAccessor, err := api.engine.GetIndex(indexName)
	if err != nil {
		SendEngineError(c, ErrorCodeInternalError, "get index", err)
		return nil, indexName, false
	}
	return indexAccessor, indexName, true
}

// asyncRequested reads the ?async= query flag, falling back to def.
func asyncRequested(c *gin.Context, def bool) bool {
	switch c.Query("async") {
	case "true", "1":
		return true
	case "false", "0":
		return false
	default:
		return def
	}
}
