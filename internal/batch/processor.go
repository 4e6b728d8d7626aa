package batch

import (
	"context"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/junho85/garden10/internal/models"
)

// Job is one participant's unit of work in a reconciliation run.
type Job struct {
	GitHubID string
	Run      func(ctx context.Context) *models.CheckResult
}

// Pool executes per-participant jobs with bounded concurrency. One
// participant's failure or panic never aborts the others; every job yields
// exactly one result, in job order.
type Pool struct {
	workers int
	logger  *logrus.Logger
}

// NewPool creates a pool. Workers defaults to 1, which processes
// participants strictly in sequence to respect the search API rate budget.
func NewPool(workers int, logger *logrus.Logger) *Pool {
	if workers < 1 {
		workers = 1
	}
	return &Pool{
		workers: workers,
		logger:  logger,
	}
}

// Process runs all jobs and returns one result per job.
func (p *Pool) Process(ctx context.Context, jobs []Job) []*models.CheckResult {
	results := make([]*models.CheckResult, len(jobs))

	sem := make(chan struct{}, p.workers)
	var wg sync.WaitGroup

	for i, job := range jobs {
		wg.Add(1)
		sem <- struct{}{}

		go func(i int, job Job) {
			defer wg.Done()
			defer func() { <-sem }()
			defer func() {
				if r := recover(); r != nil {
					p.logger.WithField("github_id", job.GitHubID).Errorf("Job panicked: %v", r)
					results[i] = &models.CheckResult{
						GitHubID: job.GitHubID,
						Status:   models.StatusError,
						Message:  fmt.Sprintf("internal error: %v", r),
					}
				}
			}()

			results[i] = job.Run(ctx)
		}(i, job)
	}

	wg.Wait()
	return results
}
