package analytics

import (
	"testing"
	"time"

	"github.com/gcbaptista/go-vsr-engine/config"
	"github.com/gcbaptista/go-vsr-engine/internal/engine"
	"github.com/gcbaptista/go-vsr-engine/model"
)

func newTestService(t *testing.T, indexes ...string) (*Service, *engine.Engine, time.Time) {
	t.Helper()
	eng, err := engine.NewEngine(engine.Options{})
	if err != nil {
		t.Fatalf("Failed to create engine: %v", err)
	}
	t.Cleanup(func() { _ = eng.Close() })

	for _, name := range indexes {
		if err := eng.CreateIndex(config.IndexSettings{Name: name}); err != nil {
			t.Fatalf("Failed to create index %s: %v", name, err)
		}
	}

	now := time.Date(2024, 5, 10, 15, 30, 0, 0, time.UTC)
	service := NewService(eng)
	service.now = func() time.Time { return now }
	return service, eng, now
}

func TestAnalyticsService_TrackSearchEvent(t *testing.T) {
	service, _, now := newTestService(t, "test_index")

	event := model.SearchEvent{
		IndexName:    "test_index",
		Query:        "test query",
		SearchType:   model.SearchTypeRanked,
		ResponseTime: 50 * time.Millisecond,
		ResultCount:  10,
	}

	if err := service.TrackSearchEvent(event); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	// Verify event was stored
	if len(service.events) != 1 {
		t.Fatalf("Expected 1 event, got %d", len(service.events))
	}

	storedEvent := service.events[0]
	if storedEvent.IndexName != event.IndexName {
		t.Errorf("Expected IndexName %s, got %s", event.IndexName, storedEvent.IndexName)
	}
	if storedEvent.Query != event.Query {
		t.Errorf("Expected Query %s, got %s", event.Query, storedEvent.Query)
	}
	if !storedEvent.Timestamp.Equal(now) {
		t.Errorf("Expected zero timestamp to be set to %v, got %v", now, storedEvent.Timestamp)
	}
}

func TestAnalyticsService_EventRetention(t *testing.T) {
	service, _, _ := newTestService(t)
	service.maxEvents = 3

	for _, q := range []string{"a", "b", "c", "d", "e"} {
		if err := service.TrackSearchEvent(model.SearchEvent{Query: q}); err != nil {
			t.Fatalf("Failed to track search event: %v", err)
		}
	}

	if len(service.events) != 3 {
		t.Fatalf("Expected 3 retained events, got %d", len(service.events))
	}
	if service.events[0].Query != "c" {
		t.Errorf("Expected oldest retained query 'c', got %s", service.events[0].Query)
	}
}

func TestAnalyticsService_GetDashboardData(t *testing.T) {
	service, eng, now := newTestService(t, "test_index1", "test_index2")

	accessor, err := eng.GetIndex("test_index1")
	if err != nil {
		t.Fatalf("Failed to get index: %v", err)
	}
	if err := accessor.AddDocuments([]model.RawDocument{{ID: "a", Text: "the matrix"}, {ID: "b", Text: "batman"}}); err != nil {
		t.Fatalf("Failed to add documents: %v", err)
	}
	if _, err := accessor.Build(); err != nil {
		t.Fatalf("Failed to build: %v", err)
	}

	events := []model.SearchEvent{
		{IndexName: "test_index1", Query: "matrix", SearchType: model.SearchTypeRanked, ResponseTime: 30 * time.Millisecond, ResultCount: 5, Timestamp: now.Add(-1 * time.Hour)},
		{IndexName: "test_index1", Query: "matrix", SearchType: model.SearchTypePhrase, ResponseTime: 10 * time.Millisecond, ResultCount: 1, Timestamp: now.Add(-2 * time.Hour)},
		{IndexName: "test_index2", Query: "batman", SearchType: model.SearchTypeAnd, ResponseTime: 120 * time.Millisecond, ResultCount: 0, Timestamp: now.Add(-3 * time.Hour)},
		{IndexName: "test_index1", Query: "batman", SearchType: model.SearchTypeOr, ResponseTime: 20 * time.Millisecond, ResultCount: 1, Timestamp: now.Add(-9 * 24 * time.Hour)},
		{IndexName: "test_index1", Query: "batman", SearchType: model.SearchTypeOr, ResponseTime: 20 * time.Millisecond, ResultCount: 1, Timestamp: now.Add(-10 * 24 * time.Hour)},
	}
	for _, event := range events {
		if err := service.TrackSearchEvent(event); err != nil {
			t.Fatalf("Failed to track search event: %v", err)
		}
	}

	dashboard, err := service.GetDashboardData()
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if dashboard.TotalSearches != 3 {
		t.Errorf("Expected 3 searches in the last 24h, got %d", dashboard.TotalSearches)
	}
	if dashboard.AvgResponseTime != 53 {
		t.Errorf("Expected average response time 53ms, got %d", dashboard.AvgResponseTime)
	}
	if dashboard.ActiveIndexes != 2 {
		t.Errorf("Expected 2 active indexes, got %d", dashboard.ActiveIndexes)
	}
	if dashboard.TotalDocuments != 2 {
		t.Errorf("Expected 2 indexed documents, got %d", dashboard.TotalDocuments)
	}
	if len(dashboard.SearchPerformance24h) != 24 {
		t.Errorf("Expected 24 hourly performance entries, got %d", len(dashboard.SearchPerformance24h))
	}
	if got := dashboard.SearchPerformance24h[14].SearchCount; got != 1 {
		t.Errorf("Expected 1 search at 14h, got %d", got)
	}

	if len(dashboard.PopularSearches) != 2 {
		t.Fatalf("Expected 2 popular searches, got %d", len(dashboard.PopularSearches))
	}
	if first := dashboard.PopularSearches[0]; first.Query != "matrix" || first.SearchCount != 2 || first.TrendChange != "new" {
		t.Errorf("Unexpected top search: %+v", first)
	}
	if second := dashboard.PopularSearches[1]; second.Query != "batman" || second.TrendChange != "down" {
		t.Errorf("Unexpected second search: %+v", second)
	}

	expectedTypes := model.SearchTypeStats{Ranked: 1, Phrase: 1, And: 1}
	if dashboard.SearchTypes != expectedTypes {
		t.Errorf("Expected search types %+v, got %+v", expectedTypes, dashboard.SearchTypes)
	}

	if dashboard.ResponseTimeDistribution.Bucket0To25ms != 1 || dashboard.ResponseTimeDistribution.Bucket100msPlus != 1 {
		t.Errorf("Unexpected response time distribution: %+v", dashboard.ResponseTimeDistribution)
	}

	rate := dashboard.ZeroResultRate
	if rate < 33.3 || rate > 33.4 {
		t.Errorf("Expected zero result rate of one third, got %f", rate)
	}

	if len(dashboard.IndexUsage) != 2 || dashboard.IndexUsage[0].SearchCount != 2 || dashboard.IndexUsage[1].ZeroResultCount != 1 {
		t.Errorf("Unexpected index usage: %+v", dashboard.IndexUsage)
	}
	if dashboard.SystemHealth.IndexHealth != 100 {
		t.Errorf("Expected healthy indexes, got %f", dashboard.SystemHealth.IndexHealth)
	}
}
