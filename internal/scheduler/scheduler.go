package scheduler

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/junho85/garden10/internal/config"
	"github.com/junho85/garden10/internal/dateutil"
	"github.com/junho85/garden10/internal/models"
)

// AttendanceService is the reconciliation routine the scheduler drives.
type AttendanceService interface {
	ReconcileDates(ctx context.Context, dates ...time.Time) []*models.BatchResult
}

// Scheduler drives attendance reconciliation across all participants on a
// recurring cadence. It holds no participant state; disabling it leaves
// on-demand reconciliation via the API untouched.
type Scheduler struct {
	svc      AttendanceService
	logger   *logrus.Logger
	enabled  bool
	interval time.Duration
	now      func() time.Time
}

func New(svc AttendanceService, cfg config.SchedulerConfig, logger *logrus.Logger) *Scheduler {
	return &Scheduler{
		svc:      svc,
		logger:   logger,
		enabled:  cfg.Enabled,
		interval: cfg.Interval,
		now:      time.Now,
	}
}

// Start blocks until the context is cancelled. Three triggers feed the same
// idempotent routine: one run immediately, an interval ticker, and a daily
// timer at KST midnight.
func (s *Scheduler) Start(ctx context.Context) {
	if !s.enabled {
		s.logger.Info("Reconciliation scheduler is disabled")
		return
	}

	s.logger.WithField("interval", s.interval).Info("Starting reconciliation scheduler")

	s.run(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	midnight := time.NewTimer(time.Until(dateutil.NextMidnight(s.now())))
	defer midnight.Stop()

	for {
		select {
		case <-ticker.C:
			s.run(ctx)
		case <-midnight.C:
			s.run(ctx)
			midnight.Reset(time.Until(dateutil.NextMidnight(s.now())))
		case <-ctx.Done():
			s.logger.Info("Stopping reconciliation scheduler")
			return
		}
	}
}

// run reconciles yesterday and today. Re-checking both dates on every tick
// absorbs search-index latency and commits made near the KST day boundary
// that were not yet visible on the previous pass.
func (s *Scheduler) run(ctx context.Context) {
	today := dateutil.DateOf(s.now())
	yesterday := today.AddDate(0, 0, -1)

	results := s.svc.ReconcileDates(ctx, yesterday, today)
	for _, r := range results {
		if n := r.ErrorCount(); n > 0 {
			s.logger.WithFields(logrus.Fields{
				"run_id": r.RunID,
				"date":   r.Date,
				"errors": n,
			}).Warn("Reconciliation run finished with errors")
		}
	}
}
