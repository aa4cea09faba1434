package search

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	internalErrors "github.com/gcbaptista/go-vsr-engine/internal/errors"
	"github.com/gcbaptista/go-vsr-engine/services"
)

// MultiRank executes multiple named ranked queries in parallel against one snapshot
func (s *Service) MultiRank(ctx context.Context, multiQuery services.MultiRankQuery) (services.MultiRankResult, error) {
	startTime := time.Now()

	if len(multiQuery.Queries) == 0 {
		return services.MultiRankResult{}, internalErrors.NewValidationError("queries", "at least one query is required")
	}
	seen := make(map[string]struct{}, len(multiQuery.Queries))
	for _, nq := range multiQuery.Queries {
		if nq.Name == "" {
			return services.MultiRankResult{}, internalErrors.NewValidationError("name", "each query must have a non-empty name")
		}
		if _, dup := seen[nq.Name]; dup {
			return services.MultiRankResult{}, internalErrors.NewValidationError("name", "duplicate query name '"+nq.Name+"'")
		}
		seen[nq.Name] = struct{}{}
	}

	snap := s.snapshot()

	var mu sync.Mutex
	results := make(map[string]services.RankResult, len(multiQuery.Queries))

	g, gctx := errgroup.WithContext(ctx)
	for _, nq := range multiQuery.Queries {
		g.Go(func() error {
			result, err := s.rank(gctx, snap, services.RankQuery{
				Query:    nq.Query,
				Terms:    nq.Terms,
				Page:     multiQuery.Page,
				PageSize: multiQuery.PageSize,
			})
			if err != nil {
				return fmt.Errorf("error executing query '%s': %w", nq.Name, err)
			}

			mu.Lock()
			results[nq.Name] = result
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return services.MultiRankResult{}, err
	}
	if err := ctx.Err(); err != nil {
		return services.MultiRankResult{}, fmt.Errorf("multi-rank cancelled: %w", err)
	}

	processingTime := time.Since(startTime)
	return services.MultiRankResult{
		Results:          results,
		TotalQueries:     len(multiQuery.Queries),
		ProcessingTimeMs: float64(processingTime.Nanoseconds()) / 1e6,
	}, nil
}
