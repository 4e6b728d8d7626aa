package db

import (
	"context"
	"time"

	"github.com/junho85/garden10/internal/models"
)

// Store defines the interface for database operations
type Store interface {
	// Participant registry
	GetParticipant(ctx context.Context, githubID string) (*models.Participant, error)
	ListParticipants(ctx context.Context) ([]*models.Participant, error)
	SaveParticipant(ctx context.Context, p *models.Participant) error
	CountParticipants(ctx context.Context) (int, error)

	// Commit operations
	UpsertCommit(ctx context.Context, commit *models.Commit) error
	CountCommitsInRange(ctx context.Context, githubID string, start, end time.Time) (int, error)
	ListCommitsWithPagination(ctx context.Context, githubID string, limit, offset int, since, until *time.Time) ([]*models.Commit, int, error)
	HourlyCommitCounts(ctx context.Context, start, end time.Time) ([]int, error)

	// Attendance operations
	UpsertAttendance(ctx context.Context, attendance *models.Attendance) error
	GetAttendance(ctx context.Context, githubID string, date time.Time) (*models.Attendance, error)
	ListAttendancesBetween(ctx context.Context, githubID string, start, end time.Time) ([]*models.Attendance, error)
	ListAttendancesForDate(ctx context.Context, date time.Time) ([]*models.Attendance, error)
}
