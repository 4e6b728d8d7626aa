package attendance

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/junho85/garden10/internal/errors"
	"github.com/junho85/garden10/internal/models"
)

// markAttendance stores one derived attendance record directly.
func markAttendance(t *testing.T, store *fakeStore, githubID string, day time.Time, commits int) {
	t.Helper()
	err := store.UpsertAttendance(context.Background(), &models.Attendance{
		GitHubID:       githubID,
		AttendanceDate: day,
		CommitCount:    commits,
		IsAttended:     commits > 0,
	})
	require.NoError(t, err)
}

func TestDefaultRange(t *testing.T) {
	store := newFakeStore()
	client := newFakeClient()
	svc := newTestService(t, store, client)

	// Challenge runs 2025-03-10 through 2025-06-17 (100 days).
	tests := []struct {
		name      string
		now       time.Time
		wantStart string
		wantEnd   string
	}{
		{
			name:      "mid-challenge ends today",
			now:       time.Date(2025, 3, 19, 12, 0, 0, 0, time.UTC),
			wantStart: "2025-03-10",
			wantEnd:   "2025-03-19",
		},
		{
			name:      "after challenge clips to challenge end",
			now:       time.Date(2025, 8, 1, 12, 0, 0, 0, time.UTC),
			wantStart: "2025-03-10",
			wantEnd:   "2025-06-17",
		},
		{
			name:      "before challenge floors at start",
			now:       time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC),
			wantStart: "2025-03-10",
			wantEnd:   "2025-03-10",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc.now = func() time.Time { return tt.now }
			start, end := svc.DefaultRange()
			assert.Equal(t, tt.wantStart, start.Format("2006-01-02"))
			assert.Equal(t, tt.wantEnd, end.Format("2006-01-02"))
		})
	}
}

func TestRangeStats_InvalidRange(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(t, store, newFakeClient())

	_, err := svc.RangeStats(context.Background(), date(t, "2025-03-12"), date(t, "2025-03-10"))
	require.Error(t, err)
	assert.True(t, apperrors.IsInvalidInput(err))
}

func TestRangeStats_DenseRangeAndRates(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(t, store, newFakeClient())
	addParticipant(t, store, "alice", "")
	addParticipant(t, store, "bob", "")

	start := date(t, "2025-03-10")
	end := date(t, "2025-03-19")

	// alice attends the first 7 days, bob the first 5. Days without a
	// record must count as absent, not as missing data.
	for i := 0; i < 7; i++ {
		markAttendance(t, store, "alice", start.AddDate(0, 0, i), 1)
	}
	for i := 0; i < 5; i++ {
		markAttendance(t, store, "bob", start.AddDate(0, 0, i), 2)
	}
	// An explicit absent record behaves exactly like no record.
	markAttendance(t, store, "bob", start.AddDate(0, 0, 5), 0)

	stats, err := svc.RangeStats(context.Background(), start, end)
	require.NoError(t, err)

	assert.Equal(t, "2025-03-10", stats.StartDate)
	assert.Equal(t, "2025-03-19", stats.EndDate)
	assert.Equal(t, 10, stats.DaysCompleted)
	assert.Equal(t, 100, stats.TotalDays)
	require.Len(t, stats.Dates, 10)
	assert.Equal(t, "2025-03-10", stats.Dates[0])
	assert.Equal(t, "2025-03-19", stats.Dates[9])

	require.Len(t, stats.Users, 2)
	alice, bob := stats.Users[0], stats.Users[1]
	assert.Equal(t, "alice", alice.GitHubID)
	assert.Equal(t, 1, alice.Rank)
	assert.Equal(t, 70, alice.AttendanceRate)
	assert.Equal(t, 7, alice.AttendedCount)
	assert.Equal(t, 10, alice.TotalDays)
	require.Len(t, alice.Attendance, 10, "one flag per day, absent days included")
	assert.True(t, alice.Attendance[6])
	assert.False(t, alice.Attendance[7])

	assert.Equal(t, "bob", bob.GitHubID)
	assert.Equal(t, 2, bob.Rank)
	assert.Equal(t, 50, bob.AttendanceRate)

	require.Len(t, stats.DailyRates, 10)
	assert.Equal(t, "2025-03-10", stats.DailyRates[0].Date)
	assert.Equal(t, 100, stats.DailyRates[0].Rate, "both attended")
	assert.Equal(t, 50, stats.DailyRates[5].Rate, "only alice attended")
	assert.Equal(t, 0, stats.DailyRates[9].Rate, "nobody attended")

	assert.Equal(t, 12, stats.TotalPresent)
	assert.Equal(t, 8, stats.TotalAbsent)
	assert.Equal(t, 60, stats.OverallAttendanceRate)
}

func TestRangeStats_TiesKeepRegistrationOrder(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(t, store, newFakeClient())
	addParticipant(t, store, "alice", "")
	addParticipant(t, store, "bob", "")
	addParticipant(t, store, "carol", "")

	start := date(t, "2025-03-10")
	end := date(t, "2025-03-12")

	markAttendance(t, store, "alice", start, 1)
	markAttendance(t, store, "bob", end, 3)
	// carol never attends.

	stats, err := svc.RangeStats(context.Background(), start, end)
	require.NoError(t, err)

	require.Len(t, stats.Users, 3)
	assert.Equal(t, "alice", stats.Users[0].GitHubID)
	assert.Equal(t, 1, stats.Users[0].Rank)
	assert.Equal(t, "bob", stats.Users[1].GitHubID)
	assert.Equal(t, 2, stats.Users[1].Rank)
	assert.Equal(t, "carol", stats.Users[2].GitHubID)
	assert.Equal(t, 3, stats.Users[2].Rank)
}

func TestRangeStats_HourlyHistogram(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(t, store, newFakeClient())
	addParticipant(t, store, "alice", "")

	// Local hours: 15:30Z = 00:30 KST, 03:00Z = 12:00 KST, 10:00Z = 19:00 KST.
	for _, c := range []*models.Commit{
		commitAt("alice", "sha1", "alice/garden", time.Date(2025, 3, 9, 15, 30, 0, 0, time.UTC)),
		commitAt("alice", "sha2", "alice/garden", time.Date(2025, 3, 10, 3, 0, 0, 0, time.UTC)),
		commitAt("alice", "sha3", "alice/garden", time.Date(2025, 3, 10, 10, 0, 0, 0, time.UTC)),
		commitAt("alice", "sha4", "alice/other", time.Date(2025, 3, 10, 10, 45, 0, 0, time.UTC)),
	} {
		require.NoError(t, store.UpsertCommit(context.Background(), c))
	}

	day := date(t, "2025-03-10")
	stats, err := svc.RangeStats(context.Background(), day, day)
	require.NoError(t, err)

	require.Len(t, stats.HourlyCommits, 24, "all 24 buckets, zeros included")
	assert.Equal(t, 1, stats.HourlyCommits[0])
	assert.Equal(t, 1, stats.HourlyCommits[12])
	assert.Equal(t, 2, stats.HourlyCommits[19])

	total := 0
	for _, n := range stats.HourlyCommits {
		total += n
	}
	assert.Equal(t, 4, total)
}

func TestRangeStats_EmptyCohort(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(t, store, newFakeClient())

	stats, err := svc.RangeStats(context.Background(), date(t, "2025-03-10"), date(t, "2025-03-10"))
	require.NoError(t, err)

	assert.Empty(t, stats.Users)
	assert.Equal(t, 0, stats.TotalPresent)
	assert.Equal(t, 0, stats.TotalAbsent)
	assert.Equal(t, 0, stats.OverallAttendanceRate, "zero denominator reports 0, not NaN")
	require.Len(t, stats.DailyRates, 1)
	assert.Equal(t, 0, stats.DailyRates[0].Rate)
}

func TestDayStats(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(t, store, newFakeClient())
	addParticipant(t, store, "alice", "")
	addParticipant(t, store, "bob", "")
	addParticipant(t, store, "carol", "")

	day := date(t, "2025-03-10")
	markAttendance(t, store, "alice", day, 4)
	markAttendance(t, store, "bob", day, 1)
	markAttendance(t, store, "carol", day, 0)

	stats, err := svc.DayStats(context.Background(), day)
	require.NoError(t, err)

	assert.Equal(t, "2025-03-10", stats.Date)
	assert.Equal(t, 3, stats.TotalParticipants)
	assert.Equal(t, 2, stats.PresentCount)
	assert.Equal(t, 67, stats.AttendanceRate)
	require.Len(t, stats.PresentUsers, 2)
	assert.Equal(t, "alice", stats.PresentUsers[0].GitHubID)
	assert.Equal(t, 4, stats.PresentUsers[0].CommitCount)
}
