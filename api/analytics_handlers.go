package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/gcbaptista/go-vsr-engine/model"
)

// GetAnalyticsHandler handles the request to get analytics data
func (api *API) GetAnalyticsHandler(c *gin.Context) {
	dashboard, err := api.analytics.GetDashboardData()
	if err != nil {
		SendInternalError(c, "retrieve analytics data", err)
		return
	}

	c.JSON(http.StatusOK, dashboard)
}

// HealthCheckHandler provides a simple health check endpoint
func (api *API) HealthCheckHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"service":   "go-vsr-engine",
		"indexes":   len(api.engine.ListIndexes()),
		"timestamp": fmt.Sprintf("%d", time.Now().Unix()),
	})
}

// trackSearch records a query for the analytics dashboard without slowing down the response
func (api *API) trackSearch(indexName, query, searchType string, started time.Time, results int) {
	event := model.SearchEvent{
		IndexName:    indexName,
		Query:        query,
		SearchType:   searchType,
		ResponseTime: time.Since(started),
		ResultCount:  results,
	}

	go func() {
		if err := api.analytics.TrackSearchEvent(event); err != nil {
			api.logger.Warn("failed to track search event", "error", err)
		}
	}()
}
