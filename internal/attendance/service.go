package attendance

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/junho85/garden10/internal/batch"
	"github.com/junho85/garden10/internal/config"
	"github.com/junho85/garden10/internal/dateutil"
	"github.com/junho85/garden10/internal/db"
	apperrors "github.com/junho85/garden10/internal/errors"
	"github.com/junho85/garden10/internal/github"
	"github.com/junho85/garden10/internal/models"
)

// GitHubClient defines the commit-search API operations the service needs
type GitHubClient interface {
	SearchCommits(ctx context.Context, githubID string, date time.Time, token string) ([]*models.Commit, error)
	CheckUser(ctx context.Context, githubID string, token string) error
}

// Service is the attendance engine: it ingests commit activity, derives
// per-day attendance records, and aggregates statistics over date ranges.
type Service struct {
	client GitHubClient
	store  db.Store
	cfg    *config.Config
	logger *logrus.Logger
	pool   *batch.Pool
	now    func() time.Time
}

func NewService(client GitHubClient, store db.Store, cfg *config.Config, logger *logrus.Logger) *Service {
	return &Service{
		client: client,
		store:  store,
		cfg:    cfg,
		logger: logger,
		pool:   batch.NewPool(cfg.IngestWorkers, logger),
		now:    time.Now,
	}
}

// tokenFor returns the participant's personal API token, falling back to
// the shared one.
func (s *Service) tokenFor(p *models.Participant) string {
	if p.APIToken != "" {
		return p.APIToken
	}
	return s.cfg.GitHub.Token
}

// CheckUser ingests commit activity and derives attendance for one
// participant on one KST calendar date. Unknown participants short-circuit
// before any external call.
func (s *Service) CheckUser(ctx context.Context, githubID string, date time.Time) (*models.CheckResult, error) {
	participant, err := s.store.GetParticipant(ctx, githubID)
	if err != nil {
		return nil, err
	}
	return s.check(ctx, participant, date), nil
}

// check runs the ingest-then-derive pipeline for one participant. It never
// returns an error: every failure is folded into the result so a batch over
// many participants is never aborted by one of them.
func (s *Service) check(ctx context.Context, p *models.Participant, date time.Time) *models.CheckResult {
	result := &models.CheckResult{
		GitHubID: p.GitHubID,
		Date:     dateutil.FormatDate(date),
	}
	logger := s.logger.WithFields(logrus.Fields{
		"github_id": p.GitHubID,
		"date":      result.Date,
	})

	// Ingestion failures are soft: the search result is treated as empty
	// and derivation still runs against previously stored commits.
	searchFailed := false
	commits, err := s.client.SearchCommits(ctx, p.GitHubID, date, s.tokenFor(p))
	if err != nil {
		logger.WithError(err).Error("Commit search failed")
		result.Status = models.StatusError
		result.Message = err.Error()
		searchFailed = true
		commits = nil
	}

	for _, commit := range commits {
		// Each commit is persisted in its own transaction; one bad row
		// does not block the rest of the batch.
		if err := s.store.UpsertCommit(ctx, commit); err != nil {
			logger.WithError(err).WithField("commit_id", commit.CommitID).Error("Failed to persist commit")
		}
	}

	attendance, err := s.Derive(ctx, p.GitHubID, date)
	if err != nil {
		logger.WithError(err).Error("Failed to derive attendance")
		result.Status = models.StatusError
		result.Message = err.Error()
		return result
	}

	result.CommitCount = attendance.CommitCount
	result.IsAttended = attendance.IsAttended
	if searchFailed {
		return result
	}

	if attendance.CommitCount > 0 {
		result.Status = models.StatusSuccess
	} else {
		result.Status = models.StatusNoCommits
	}
	return result
}

// Derive recomputes one participant's attendance record for one KST
// calendar day from stored commits and overwrites the previous record. It
// is a pure function of the commit store: unchanged commit data yields an
// identical record. No other code path sets is_attended.
func (s *Service) Derive(ctx context.Context, githubID string, date time.Time) (*models.Attendance, error) {
	start, end := dateutil.DayRangeUTC(date)

	count, err := s.store.CountCommitsInRange(ctx, githubID, start, end)
	if err != nil {
		return nil, err
	}

	attendance := &models.Attendance{
		GitHubID:       githubID,
		AttendanceDate: dateutil.DateOf(date),
		CommitCount:    count,
		IsAttended:     count > 0,
	}
	if err := s.store.UpsertAttendance(ctx, attendance); err != nil {
		return nil, err
	}

	return attendance, nil
}

// CheckAll runs ingest-and-derive for every registered participant on one
// date. The batch always carries one entry per participant, mixing
// successes and failures.
func (s *Service) CheckAll(ctx context.Context, date time.Time) (*models.BatchResult, error) {
	participants, err := s.store.ListParticipants(ctx)
	if err != nil {
		return nil, err
	}

	runID := uuid.NewString()
	logger := s.logger.WithFields(logrus.Fields{
		"run_id": runID,
		"date":   dateutil.FormatDate(date),
	})
	logger.WithField("participants", len(participants)).Info("Starting attendance check run")

	jobs := make([]batch.Job, len(participants))
	for i, p := range participants {
		p := p
		jobs[i] = batch.Job{
			GitHubID: p.GitHubID,
			Run: func(ctx context.Context) *models.CheckResult {
				return s.check(ctx, p, date)
			},
		}
	}

	result := &models.BatchResult{
		RunID:   runID,
		Date:    dateutil.FormatDate(date),
		Results: s.pool.Process(ctx, jobs),
	}

	logger.WithFields(logrus.Fields{
		"participants": len(result.Results),
		"errors":       result.ErrorCount(),
	}).Info("Completed attendance check run")

	return result, nil
}

// ReconcileDates runs CheckAll for each date in sequence. Failures are
// logged and carried in the batch results; the next tick retries them.
func (s *Service) ReconcileDates(ctx context.Context, dates ...time.Time) []*models.BatchResult {
	results := make([]*models.BatchResult, 0, len(dates))
	for _, date := range dates {
		result, err := s.CheckAll(ctx, date)
		if err != nil {
			s.logger.WithError(err).WithField("date", dateutil.FormatDate(date)).Error("Reconciliation pass failed")
			continue
		}
		results = append(results, result)
	}
	return results
}

// History returns a participant's stored attendance records in [start, end],
// newest first.
func (s *Service) History(ctx context.Context, githubID string, start, end time.Time) ([]*models.HistoryEntry, error) {
	if _, err := s.store.GetParticipant(ctx, githubID); err != nil {
		return nil, err
	}

	attendances, err := s.store.ListAttendancesBetween(ctx, githubID, start, end)
	if err != nil {
		return nil, err
	}

	entries := make([]*models.HistoryEntry, 0, len(attendances))
	for _, a := range attendances {
		entries = append(entries, &models.HistoryEntry{
			AttendanceDate: a.AttendanceDate.Format(dateutil.DateLayout),
			CommitCount:    a.CommitCount,
			IsAttended:     a.IsAttended,
		})
	}
	return entries, nil
}

// ListCommits returns one page of a participant's stored commits, newest
// first. Messages of commits from private repositories are masked.
func (s *Service) ListCommits(ctx context.Context, githubID string, limit, offset int, from, to *time.Time) (*models.CommitPage, error) {
	if _, err := s.store.GetParticipant(ctx, githubID); err != nil {
		return nil, err
	}

	var since, until *time.Time
	if from != nil {
		start, _ := dateutil.DayRangeUTC(*from)
		since = &start
	}
	if to != nil {
		_, end := dateutil.DayRangeUTC(*to)
		until = &end
	}

	commits, total, err := s.store.ListCommitsWithPagination(ctx, githubID, limit, offset, since, until)
	if err != nil {
		return nil, err
	}

	for _, c := range commits {
		if c.IsPrivate {
			c.Message = "[private commit]"
		}
	}

	page := &models.CommitPage{
		Commits: commits,
		Pagination: models.Pagination{
			Total:   total,
			Page:    1,
			Pages:   1,
			Limit:   limit,
			HasMore: offset+limit < total,
		},
	}
	if limit > 0 {
		page.Pagination.Page = offset/limit + 1
		page.Pagination.Pages = (total + limit - 1) / limit
	}
	return page, nil
}

// RegisterParticipant adds a new participant after confirming the GitHub
// account exists.
func (s *Service) RegisterParticipant(ctx context.Context, githubID string) (*models.Participant, error) {
	_, err := s.store.GetParticipant(ctx, githubID)
	if err == nil {
		return nil, apperrors.NewValidationError("participant already registered: "+githubID, nil)
	}
	if !apperrors.IsParticipantNotFound(err) {
		return nil, err
	}

	if err := s.client.CheckUser(ctx, githubID, s.cfg.GitHub.Token); err != nil {
		if github.IsAuthError(err) {
			return nil, apperrors.NewExternalServiceError("GitHub credential rejected", err)
		}
		return nil, apperrors.NewNotFoundError("GitHub user not found: "+githubID, err)
	}

	participant := &models.Participant{GitHubID: githubID}
	if err := s.store.SaveParticipant(ctx, participant); err != nil {
		return nil, err
	}
	return participant, nil
}

// ListParticipants returns all registered participants in registration order.
func (s *Service) ListParticipants(ctx context.Context) ([]*models.Participant, error) {
	return s.store.ListParticipants(ctx)
}
