package db

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"time"

	_ "github.com/lib/pq"
	"github.com/pressly/goose/v3"

	apperrors "github.com/junho85/garden10/internal/errors"
	"github.com/junho85/garden10/internal/models"
)

//go:embed migrations/*.sql
var embedMigrations embed.FS

// PostgresStore implements Store on top of a Postgres connection pool.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(connectionString string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", connectionString)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PostgresStore{db: db}, nil
}

func (s *PostgresStore) Migrate() error {
	goose.SetBaseFS(embedMigrations)

	if err := goose.SetDialect("postgres"); err != nil {
		return err
	}

	if err := goose.Up(s.db, "migrations"); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}

// GetParticipant retrieves a participant by GitHub handle
func (s *PostgresStore) GetParticipant(ctx context.Context, githubID string) (*models.Participant, error) {
	query := `
		SELECT id, github_id, COALESCE(github_api_token, ''), created_at, updated_at
		FROM participants
		WHERE github_id = $1`

	var p models.Participant
	err := s.db.QueryRowContext(ctx, query, githubID).Scan(
		&p.ID, &p.GitHubID, &p.APIToken, &p.CreatedAt, &p.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, apperrors.NewParticipantNotFoundError(githubID)
	}
	if err != nil {
		return nil, apperrors.NewPersistenceError("failed to get participant", err)
	}

	return &p, nil
}

// ListParticipants retrieves all participants in registration order
func (s *PostgresStore) ListParticipants(ctx context.Context) ([]*models.Participant, error) {
	query := `
		SELECT id, github_id, COALESCE(github_api_token, ''), created_at, updated_at
		FROM participants
		ORDER BY id`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, apperrors.NewPersistenceError("failed to list participants", err)
	}
	defer rows.Close()

	var participants []*models.Participant
	for rows.Next() {
		var p models.Participant
		if err := rows.Scan(&p.ID, &p.GitHubID, &p.APIToken, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, apperrors.NewPersistenceError("failed to scan participant", err)
		}
		participants = append(participants, &p)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewPersistenceError("error iterating participants", err)
	}

	return participants, nil
}

// SaveParticipant inserts a participant, or refreshes the API token of an
// existing one
func (s *PostgresStore) SaveParticipant(ctx context.Context, p *models.Participant) error {
	query := `
		INSERT INTO participants (github_id, github_api_token, created_at, updated_at)
		VALUES ($1, NULLIF($2, ''), NOW(), NOW())
		ON CONFLICT (github_id) DO UPDATE SET
			github_api_token = NULLIF(EXCLUDED.github_api_token, ''),
			updated_at = NOW()
		RETURNING id, created_at, updated_at`

	err := s.db.QueryRowContext(ctx, query, p.GitHubID, p.APIToken).Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return apperrors.NewPersistenceError("failed to save participant", err)
	}
	return nil
}

func (s *PostgresStore) CountParticipants(ctx context.Context) (int, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM participants").Scan(&count); err != nil {
		return 0, apperrors.NewPersistenceError("failed to count participants", err)
	}
	return count, nil
}

// UpsertCommit persists one commit in its own transaction. The
// (commit_id, repository) pair is unique; a repeated ingestion updates the
// mutable fields and refreshes updated_at. Commit rows are never deleted.
func (s *PostgresStore) UpsertCommit(ctx context.Context, commit *models.Commit) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return apperrors.NewPersistenceError("failed to begin transaction", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO github_commits (github_id, commit_id, repository, message, commit_url, commit_date, is_private)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (commit_id, repository) DO UPDATE SET
			message = EXCLUDED.message,
			commit_url = EXCLUDED.commit_url,
			commit_date = EXCLUDED.commit_date,
			is_private = EXCLUDED.is_private,
			updated_at = NOW()`,
		commit.GitHubID,
		commit.CommitID,
		commit.Repository,
		commit.Message,
		commit.CommitURL,
		commit.CommitDate.UTC(),
		commit.IsPrivate)
	if err != nil {
		return apperrors.NewPersistenceError(fmt.Sprintf("failed to upsert commit %s", commit.CommitID), err)
	}

	if err := tx.Commit(); err != nil {
		return apperrors.NewPersistenceError("failed to commit transaction", err)
	}
	return nil
}

// CountCommitsInRange counts a participant's commits whose UTC timestamp
// falls in [start, end]
func (s *PostgresStore) CountCommitsInRange(ctx context.Context, githubID string, start, end time.Time) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM github_commits
		WHERE github_id = $1 AND commit_date >= $2 AND commit_date <= $3`

	var count int
	err := s.db.QueryRowContext(ctx, query, githubID, start.UTC(), end.UTC()).Scan(&count)
	if err != nil {
		return 0, apperrors.NewPersistenceError("failed to count commits", err)
	}
	return count, nil
}

// ListCommitsWithPagination retrieves commits with pagination and date filtering
func (s *PostgresStore) ListCommitsWithPagination(ctx context.Context, githubID string, limit, offset int, since, until *time.Time) ([]*models.Commit, int, error) {
	baseQuery := `
		SELECT id, github_id, commit_id, repository, message, commit_url,
			commit_date, is_private, created_at, updated_at
		FROM github_commits
		WHERE github_id = $1`

	args := []interface{}{githubID}
	argCount := 1

	if since != nil {
		argCount++
		baseQuery += fmt.Sprintf(" AND commit_date >= $%d", argCount)
		args = append(args, since.UTC())
	}

	if until != nil {
		argCount++
		baseQuery += fmt.Sprintf(" AND commit_date <= $%d", argCount)
		args = append(args, until.UTC())
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM (%s) AS count_query", baseQuery)
	var total int
	if err := s.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, apperrors.NewPersistenceError("failed to get total count", err)
	}

	argCount++
	baseQuery += fmt.Sprintf(" ORDER BY commit_date DESC LIMIT $%d OFFSET $%d", argCount, argCount+1)
	args = append(args, limit, offset)

	rows, err := s.db.QueryContext(ctx, baseQuery, args...)
	if err != nil {
		return nil, 0, apperrors.NewPersistenceError("failed to query commits", err)
	}
	defer rows.Close()

	var commits []*models.Commit
	for rows.Next() {
		var c models.Commit
		if err := rows.Scan(
			&c.ID,
			&c.GitHubID,
			&c.CommitID,
			&c.Repository,
			&c.Message,
			&c.CommitURL,
			&c.CommitDate,
			&c.IsPrivate,
			&c.CreatedAt,
			&c.UpdatedAt,
		); err != nil {
			return nil, 0, apperrors.NewPersistenceError("failed to scan commit", err)
		}
		commits = append(commits, &c)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, apperrors.NewPersistenceError("error iterating commits", err)
	}

	return commits, total, nil
}

// HourlyCommitCounts returns commit counts bucketed by KST hour of day for
// all commits in [start, end]. All 24 buckets are present, zero-filled.
func (s *PostgresStore) HourlyCommitCounts(ctx context.Context, start, end time.Time) ([]int, error) {
	query := `
		SELECT
			EXTRACT(HOUR FROM (commit_date AT TIME ZONE 'UTC') + INTERVAL '9 hours')::int AS hour,
			COUNT(*)
		FROM github_commits
		WHERE commit_date >= $1 AND commit_date <= $2
		GROUP BY hour
		ORDER BY hour`

	rows, err := s.db.QueryContext(ctx, query, start.UTC(), end.UTC())
	if err != nil {
		return nil, apperrors.NewPersistenceError("failed to query hourly commit counts", err)
	}
	defer rows.Close()

	buckets := make([]int, 24)
	for rows.Next() {
		var hour, count int
		if err := rows.Scan(&hour, &count); err != nil {
			return nil, apperrors.NewPersistenceError("failed to scan hourly count", err)
		}
		if hour >= 0 && hour < 24 {
			buckets[hour] = count
		}
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewPersistenceError("error iterating hourly counts", err)
	}

	return buckets, nil
}

// UpsertAttendance persists one derived attendance record in its own
// transaction. The (github_id, attendance_date) pair is unique; derivation
// overwrites the previous record.
func (s *PostgresStore) UpsertAttendance(ctx context.Context, attendance *models.Attendance) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return apperrors.NewPersistenceError("failed to begin transaction", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO attendances (github_id, attendance_date, commit_count, is_attended)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (github_id, attendance_date) DO UPDATE SET
			commit_count = EXCLUDED.commit_count,
			is_attended = EXCLUDED.is_attended,
			updated_at = NOW()`,
		attendance.GitHubID,
		attendance.AttendanceDate.Format("2006-01-02"),
		attendance.CommitCount,
		attendance.IsAttended)
	if err != nil {
		return apperrors.NewPersistenceError("failed to upsert attendance", err)
	}

	if err := tx.Commit(); err != nil {
		return apperrors.NewPersistenceError("failed to commit transaction", err)
	}
	return nil
}

func (s *PostgresStore) GetAttendance(ctx context.Context, githubID string, date time.Time) (*models.Attendance, error) {
	query := `
		SELECT id, github_id, attendance_date, commit_count, is_attended, created_at, updated_at
		FROM attendances
		WHERE github_id = $1 AND attendance_date = $2`

	var a models.Attendance
	err := s.db.QueryRowContext(ctx, query, githubID, date.Format("2006-01-02")).Scan(
		&a.ID, &a.GitHubID, &a.AttendanceDate, &a.CommitCount, &a.IsAttended, &a.CreatedAt, &a.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, apperrors.NewPersistenceError("failed to get attendance", err)
	}

	return &a, nil
}

// ListAttendancesBetween retrieves a participant's attendance records in
// [start, end], newest first
func (s *PostgresStore) ListAttendancesBetween(ctx context.Context, githubID string, start, end time.Time) ([]*models.Attendance, error) {
	query := `
		SELECT id, github_id, attendance_date, commit_count, is_attended, created_at, updated_at
		FROM attendances
		WHERE github_id = $1 AND attendance_date BETWEEN $2 AND $3
		ORDER BY attendance_date DESC`

	rows, err := s.db.QueryContext(ctx, query, githubID, start.Format("2006-01-02"), end.Format("2006-01-02"))
	if err != nil {
		return nil, apperrors.NewPersistenceError("failed to list attendances", err)
	}
	defer rows.Close()

	return scanAttendances(rows)
}

// ListAttendancesForDate retrieves all attendance records for one day
func (s *PostgresStore) ListAttendancesForDate(ctx context.Context, date time.Time) ([]*models.Attendance, error) {
	query := `
		SELECT id, github_id, attendance_date, commit_count, is_attended, created_at, updated_at
		FROM attendances
		WHERE attendance_date = $1
		ORDER BY github_id`

	rows, err := s.db.QueryContext(ctx, query, date.Format("2006-01-02"))
	if err != nil {
		return nil, apperrors.NewPersistenceError("failed to list attendances for date", err)
	}
	defer rows.Close()

	return scanAttendances(rows)
}

func scanAttendances(rows *sql.Rows) ([]*models.Attendance, error) {
	var attendances []*models.Attendance
	for rows.Next() {
		var a models.Attendance
		if err := rows.Scan(&a.ID, &a.GitHubID, &a.AttendanceDate, &a.CommitCount, &a.IsAttended, &a.CreatedAt, &a.UpdatedAt); err != nil {
			return nil, apperrors.NewPersistenceError("failed to scan attendance", err)
		}
		attendances = append(attendances, &a)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewPersistenceError("error iterating attendances", err)
	}
	return attendances, nil
}
