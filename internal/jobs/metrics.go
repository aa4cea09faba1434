package jobs

import (
	"sync"
	"time"

	"github.com/gcbaptista/go-vsr-engine/internal/metrics"
	"github.com/gcbaptista/go-vsr-engine/model"
)

const durationsKept = 100

// StatsData is a point-in-time copy of the job statistics.
type StatsData struct {
	JobsCreated     int64                     `json:"jobs_created"`
	JobsCompleted   int64                     `json:"jobs_completed"`
	JobsFailed      int64                     `json:"jobs_failed"`
	JobsCancelled   int64                     `json:"jobs_cancelled"`
	SuccessRate     float64                   `json:"success_rate"`
	AverageDuration map[model.JobType]string  `json:"average_duration"`
	JobsByType      map[model.JobType]int64   `json:"jobs_by_type"`
	JobsByStatus    map[model.JobStatus]int64 `json:"jobs_by_status"`
	LastUpdated     time.Time                 `json:"last_updated"`
}

// Stats tracks job counts and recent durations, and mirrors them into the
// Prometheus collectors when those are provided.
type Stats struct {
	mu          sync.RWMutex
	created     int64
	completed   int64
	failed      int64
	cancelled   int64
	byType      map[model.JobType]int64
	byStatus    map[model.JobStatus]int64
	durations   map[model.JobType][]time.Duration // last durationsKept per type
	lastUpdated time.Time
	promMetrics *metrics.Metrics
}

// NewStats creates a statistics tracker. m may be nil.
func NewStats(m *metrics.Metrics) *Stats {
	return &Stats{
		byType:      make(map[model.JobType]int64),
		byStatus:    make(map[model.JobStatus]int64),
		durations:   make(map[model.JobType][]time.Duration),
		lastUpdated: time.Now(),
		promMetrics: m,
	}
}

func (s *Stats) recordCreated(jobType model.JobType) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.created++
	s.byType[jobType]++
	s.byStatus[model.JobStatusPending]++
	s.lastUpdated = time.Now()
}

func (s *Stats) recordTransition(jobType model.JobType, from, to model.JobStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if from != "" && s.byStatus[from] > 0 {
		s.byStatus[from]--
	}
	s.byStatus[to]++
	s.lastUpdated = time.Now()

	switch to {
	case model.JobStatusCompleted:
		s.completed++
	case model.JobStatusFailed:
		s.failed++
	case model.JobStatusCancelled:
		s.cancelled++
	}

	if s.promMetrics == nil {
		return
	}
	if to == model.JobStatusRunning {
		s.promMetrics.JobsRunning.Inc()
	}
	if from == model.JobStatusRunning && to.Finished() {
		s.promMetrics.JobsRunning.Dec()
	}
	if to.Finished() {
		s.promMetrics.JobsTotal.WithLabelValues(string(jobType), string(to)).Inc()
	}
}

func (s *Stats) recordDuration(jobType model.JobType, d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	durations := append(s.durations[jobType], d)
	if len(durations) > durationsKept {
		durations = durations[1:]
	}
	s.durations[jobType] = durations
}

// Snapshot returns a copy of the current statistics.
func (s *Stats) Snapshot() StatsData {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data := StatsData{
		JobsCreated:     s.created,
		JobsCompleted:   s.completed,
		JobsFailed:      s.failed,
		JobsCancelled:   s.cancelled,
		SuccessRate:     1.0,
		AverageDuration: make(map[model.JobType]string, len(s.durations)),
		JobsByType:      make(map[model.JobType]int64, len(s.byType)),
		JobsByStatus:    make(map[model.JobStatus]int64, len(s.byStatus)),
		LastUpdated:     s.lastUpdated,
	}
	if finished := s.completed + s.failed; finished > 0 {
		data.SuccessRate = float64(s.completed) / float64(finished)
	}
	for k, v := range s.byType {
		data.JobsByType[k] = v
	}
	for k, v := range s.byStatus {
		data.JobsByStatus[k] = v
	}
	for jobType, durations := range s.durations {
		if len(durations) == 0 {
			continue
		}
		var total time.Duration
		for _, d := range durations {
			total += d
		}
		data.AverageDuration[jobType] = (total / time.Duration(len(durations))).String()
	}
	return data
}

// Workload returns the number of pending and running jobs.
func (s *Stats) Workload() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.byStatus[model.JobStatusPending] + s.byStatus[model.JobStatusRunning]
}
