package model

import "time"

// Search types recorded by analytics
const (
	SearchTypeAnd     = "and"
	SearchTypeOr      = "or"
	SearchTypeRanked  = "ranked"
	SearchTypePhrase  = "phrase"
	SearchTypeContext = "context"
)

// SearchEvent represents a single query event for analytics tracking
type SearchEvent struct {
	IndexName    string        `json:"index_name"`
	Query        string        `json:"query"`
	SearchType   string        `json:"search_type"` // "and", "or", "ranked", "phrase", "context"
	ResponseTime time.Duration `json:"response_time"`
	ResultCount  int           `json:"result_count"`
	Timestamp    time.Time     `json:"timestamp"`
}

// PopularSearch represents aggregated data for popular search terms
type PopularSearch struct {
	Query       string `json:"query"`
	SearchCount int    `json:"search_count"`
	TrendChange string `json:"trend_change,omitempty"` // "up", "down", "stable", "new"
}

// IndexUsage represents usage statistics for a specific index
type IndexUsage struct {
	IndexName        string `json:"index_name"`
	StagedDocuments  int    `json:"staged_documents"`
	IndexedDocuments int    `json:"indexed_documents"`
	Tokens           int    `json:"tokens"`
	SearchCount      int    `json:"search_count"`
	ZeroResultCount  int    `json:"zero_result_count"`
}

// ResponseTimeDistribution represents response time distribution buckets
type ResponseTimeDistribution struct {
	Bucket0To25ms     int     `json:"bucket_0_25ms"`
	Bucket25To50ms    int     `json:"bucket_25_50ms"`
	Bucket50To100ms   int     `json:"bucket_50_100ms"`
	Bucket100msPlus   int     `json:"bucket_100ms_plus"`
	Percentage0To25   float64 `json:"percentage_0_25"`
	Percentage25To50  float64 `json:"percentage_25_50"`
	Percentage50To100 float64 `json:"percentage_50_100"`
	Percentage100Plus float64 `json:"percentage_100_plus"`
}

// SearchTypeStats counts queries per search type
type SearchTypeStats struct {
	And     int `json:"and"`
	Or      int `json:"or"`
	Ranked  int `json:"ranked"`
	Phrase  int `json:"phrase"`
	Context int `json:"context"`
}

// SearchPerformanceHourly represents hourly search performance data
type SearchPerformanceHourly struct {
	Hour            int   `json:"hour"`
	SearchCount     int   `json:"search_count"`
	AvgResponseTime int64 `json:"avg_response_time"` // in milliseconds
}

// SystemHealth represents process and index health
type SystemHealth struct {
	MemoryUsage float64 `json:"memory_usage_percent"` // heap in use over memory obtained from the OS
	Goroutines  int     `json:"goroutines"`
	IndexHealth float64 `json:"index_health_percent"` // indexes whose live index covers every staged document
}

// AnalyticsDashboard represents the complete analytics dashboard data
type AnalyticsDashboard struct {
	// Summary metrics
	TotalSearches         int     `json:"total_searches"`
	SearchesChangePercent float64 `json:"searches_change_percent"`
	AvgResponseTime       int64   `json:"avg_response_time"` // in milliseconds
	ResponseTimeChange    string  `json:"response_time_change"`
	ZeroResultRate        float64 `json:"zero_result_rate"` // percent of queries without results
	TotalDocuments        int     `json:"total_documents"`
	ActiveIndexes         int     `json:"active_indexes"`

	// Detailed analytics
	SearchPerformance24h     []SearchPerformanceHourly `json:"search_performance_24h"`
	PopularSearches          []PopularSearch           `json:"popular_searches"`
	IndexUsage               []IndexUsage              `json:"index_usage"`
	ResponseTimeDistribution ResponseTimeDistribution  `json:"response_time_distribution"`
	SearchTypes              SearchTypeStats           `json:"search_types"`
	SystemHealth             SystemHealth              `json:"system_health"`
}
