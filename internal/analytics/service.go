package analytics

import (
	"runtime"
	"sort"
	"sync"
	"time"

	"github.com/gcbaptista/go-vsr-engine/model"
	"github.com/gcbaptista/go-vsr-engine/services"
)

const (
	maxEventsToKeep = 10000 // Keep last 10k events for performance
	popularLimit    = 5
)

// Service implements analytics tracking and reporting. Events live in memory only
// and are lost on restart.
type Service struct {
	mutex        sync.RWMutex
	events       []model.SearchEvent
	indexManager services.IndexManager
	maxEvents    int
	now          func() time.Time
}

// NewService creates a new analytics service
func NewService(indexManager services.IndexManager) *Service {
	return &Service{
		events:       make([]model.SearchEvent, 0),
		indexManager: indexManager,
		maxEvents:    maxEventsToKeep,
		now:          time.Now,
	}
}

// TrackSearchEvent records a new search event. A zero timestamp is set to now.
func (s *Service) TrackSearchEvent(event model.SearchEvent) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if event.Timestamp.IsZero() {
		event.Timestamp = s.now()
	}
	s.events = append(s.events, event)

	// Keep only the latest events to prevent unbounded growth
	if len(s.events) > s.maxEvents {
		s.events = s.events[len(s.events)-s.maxEvents:]
	}
	return nil
}

// GetDashboardData returns complete analytics dashboard data
func (s *Service) GetDashboardData() (model.AnalyticsDashboard, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	now := s.now()
	yesterday := now.Add(-24 * time.Hour)
	dayBefore := yesterday.Add(-24 * time.Hour)
	lastWeek := now.Add(-7 * 24 * time.Hour)

	// Filter events for different time periods
	last24hEvents := filterEventsByTimeRange(s.events, yesterday, now)
	prev24hEvents := filterEventsByTimeRange(s.events, dayBefore, yesterday)
	lastWeekEvents := filterEventsByTimeRange(s.events, lastWeek, now)
	prevWeekEvents := filterEventsByTimeRange(s.events, lastWeek.Add(-7*24*time.Hour), lastWeek)

	usage, totalDocuments, healthy := s.getIndexUsage(lastWeekEvents)

	dashboard := model.AnalyticsDashboard{
		TotalSearches:            len(last24hEvents),
		SearchesChangePercent:    calculateChangePercent(len(last24hEvents), len(prev24hEvents)),
		AvgResponseTime:          calculateAvgResponseTime(last24hEvents),
		ResponseTimeChange:       calculateResponseTimeChange(last24hEvents, prev24hEvents),
		ZeroResultRate:           zeroResultRate(last24hEvents),
		TotalDocuments:           totalDocuments,
		ActiveIndexes:            len(usage),
		SearchPerformance24h:     getHourlyPerformance(last24hEvents),
		PopularSearches:          getPopularSearches(lastWeekEvents, prevWeekEvents),
		IndexUsage:               usage,
		ResponseTimeDistribution: getResponseTimeDistribution(last24hEvents),
		SearchTypes:              getSearchTypeStats(last24hEvents),
		SystemHealth:             getSystemHealth(len(usage), healthy),
	}

	return dashboard, nil
}

// filterEventsByTimeRange returns events in (start, end]
func filterEventsByTimeRange(events []model.SearchEvent, start, end time.Time) []model.SearchEvent {
	filtered := make([]model.SearchEvent, 0)
	for _, event := range events {
		if event.Timestamp.After(start) && !event.Timestamp.After(end) {
			filtered = append(filtered, event)
		}
	}
	return filtered
}

// calculateChangePercent calculates percentage change between current and previous values
func calculateChangePercent(current, previous int) float64 {
	if previous == 0 {
		if current > 0 {
			return 100.0
		}
		return 0.0
	}
	return float64(current-previous) / float64(previous) * 100.0
}

// calculateAvgResponseTime calculates average response time for events in milliseconds
func calculateAvgResponseTime(events []model.SearchEvent) int64 {
	if len(events) == 0 {
		return 0
	}

	var total time.Duration
	for _, event := range events {
		total += event.ResponseTime
	}
	avgDuration := total / time.Duration(len(events))
	return avgDuration.Milliseconds()
}

// calculateResponseTimeChange calculates response time change trend
func calculateResponseTimeChange(current, previous []model.SearchEvent) string {
	currentAvg := calculateAvgResponseTime(current)
	previousAvg := calculateAvgResponseTime(previous)

	if previousAvg == 0 {
		return "stable"
	}

	change := float64(currentAvg-previousAvg) / float64(previousAvg)
	if change > 0.1 {
		return "up"
	} else if change < -0.1 {
		return "down"
	}
	return "stable"
}

func zeroResultRate(events []model.SearchEvent) float64 {
	if len(events) == 0 {
		return 0
	}
	zero := 0
	for _, event := range events {
		if event.ResultCount == 0 {
			zero++
		}
	}
	return float64(zero) / float64(len(events)) * 100
}

// getHourlyPerformance returns hourly search performance for the last 24 hours
func getHourlyPerformance(events []model.SearchEvent) []model.SearchPerformanceHourly {
	hourlyData := make(map[int][]model.SearchEvent)

	for _, event := range events {
		hour := event.Timestamp.Hour()
		hourlyData[hour] = append(hourlyData[hour], event)
	}

	performance := make([]model.SearchPerformanceHourly, 0, 24)
	for hour := 0; hour < 24; hour++ {
		events := hourlyData[hour]
		performance = append(performance, model.SearchPerformanceHourly{
			Hour:            hour,
			SearchCount:     len(events),
			AvgResponseTime: calculateAvgResponseTime(events),
		})
	}

	return performance
}

func countQueries(events []model.SearchEvent) map[string]int {
	queryCounts := make(map[string]int)
	for _, event := range events {
		if event.Query != "" {
			queryCounts[event.Query]++
		}
	}
	return queryCounts
}

// getPopularSearches returns the most popular queries of the week with their
// trend against the week before
func getPopularSearches(events, previous []model.SearchEvent) []model.PopularSearch {
	queryCounts := countQueries(events)
	previousCounts := countQueries(previous)

	popular := make([]model.PopularSearch, 0, len(queryCounts))
	for query, count := range queryCounts {
		popular = append(popular, model.PopularSearch{
			Query:       query,
			SearchCount: count,
			TrendChange: trend(count, previousCounts[query]),
		})
	}

	// Sort by count descending, then query for a stable listing
	sort.Slice(popular, func(i, j int) bool {
		if popular[i].SearchCount != popular[j].SearchCount {
			return popular[i].SearchCount > popular[j].SearchCount
		}
		return popular[i].Query < popular[j].Query
	})

	if len(popular) > popularLimit {
		popular = popular[:popularLimit]
	}
	return popular
}

func trend(current, previous int) string {
	switch {
	case previous == 0:
		return "new"
	case current > previous:
		return "up"
	case current < previous:
		return "down"
	default:
		return "stable"
	}
}

// getIndexUsage returns usage statistics for each index, the number of indexed
// documents and the number of indexes that are not stale
func (s *Service) getIndexUsage(events []model.SearchEvent) ([]model.IndexUsage, int, int) {
	searchCounts := make(map[string]int)
	zeroCounts := make(map[string]int)
	for _, event := range events {
		searchCounts[event.IndexName]++
		if event.ResultCount == 0 {
			zeroCounts[event.IndexName]++
		}
	}

	usage := make([]model.IndexUsage, 0)
	totalDocuments, healthy := 0, 0
	for _, indexName := range s.indexManager.ListIndexes() {
		accessor, err := s.indexManager.GetIndex(indexName)
		if err != nil {
			continue // deleted since listing
		}
		stats := accessor.Stats()

		totalDocuments += stats.IndexedDocuments
		if !stats.Stale {
			healthy++
		}
		usage = append(usage, model.IndexUsage{
			IndexName:        indexName,
			StagedDocuments:  stats.StagedDocuments,
			IndexedDocuments: stats.IndexedDocuments,
			Tokens:           stats.Tokens,
			SearchCount:      searchCounts[indexName],
			ZeroResultCount:  zeroCounts[indexName],
		})
	}

	return usage, totalDocuments, healthy
}

// getResponseTimeDistribution returns response time distribution
func getResponseTimeDistribution(events []model.SearchEvent) model.ResponseTimeDistribution {
	dist := model.ResponseTimeDistribution{}
	total := len(events)

	if total == 0 {
		return dist
	}

	for _, event := range events {
		ms := event.ResponseTime.Milliseconds()
		switch {
		case ms <= 25:
			dist.Bucket0To25ms++
		case ms <= 50:
			dist.Bucket25To50ms++
		case ms <= 100:
			dist.Bucket50To100ms++
		default:
			dist.Bucket100msPlus++
		}
	}

	// Calculate percentages
	dist.Percentage0To25 = float64(dist.Bucket0To25ms) / float64(total) * 100
	dist.Percentage25To50 = float64(dist.Bucket25To50ms) / float64(total) * 100
	dist.Percentage50To100 = float64(dist.Bucket50To100ms) / float64(total) * 100
	dist.Percentage100Plus = float64(dist.Bucket100msPlus) / float64(total) * 100

	return dist
}

// getSearchTypeStats returns statistics for different search types
func getSearchTypeStats(events []model.SearchEvent) model.SearchTypeStats {
	stats := model.SearchTypeStats{}

	for _, event := range events {
		switch event.SearchType {
		case model.SearchTypeAnd:
			stats.And++
		case model.SearchTypeOr:
			stats.Or++
		case model.SearchTypeRanked:
			stats.Ranked++
		case model.SearchTypePhrase:
			stats.Phrase++
		case model.SearchTypeContext:
			stats.Context++
		}
	}

	return stats
}

// getSystemHealth returns current process and index health
func getSystemHealth(indexes, healthy int) model.SystemHealth {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	health := model.SystemHealth{
		Goroutines:  runtime.NumGoroutine(),
		IndexHealth: 100.0,
	}
	if m.Sys > 0 {
		health.MemoryUsage = float64(m.HeapInuse) / float64(m.Sys) * 100
	}
	if indexes > 0 {
		health.IndexHealth = float64(healthy) / float64(indexes) * 100
	}
	return health
}
