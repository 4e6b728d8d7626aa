package attendance

import (
	"context"
	"math"
	"sort"
	"time"

	"github.com/junho85/garden10/internal/dateutil"
	apperrors "github.com/junho85/garden10/internal/errors"
	"github.com/junho85/garden10/internal/models"
)

// DefaultRange returns the canonical default aggregation range: challenge
// start through today (KST), clipped to the challenge end once it has
// elapsed. Explicitly supplied ranges are never clipped.
func (s *Service) DefaultRange() (start, end time.Time) {
	start = s.cfg.Challenge.StartDate
	end = dateutil.DateOf(s.now())
	if challengeEnd := s.cfg.Challenge.EndDate(); end.After(challengeEnd) {
		end = challengeEnd
	}
	if end.Before(start) {
		end = start
	}
	return start, end
}

// RangeStats aggregates attendance over [start, end] for the whole cohort.
// The range is dense: a missing attendance record counts as an absent day,
// never as missing data.
func (s *Service) RangeStats(ctx context.Context, start, end time.Time) (*models.RangeStats, error) {
	if end.Before(start) {
		return nil, apperrors.NewValidationError("start_date must not be after end_date", nil)
	}

	dates := dateutil.DatesBetween(start, end)
	dateStrs := make([]string, len(dates))
	for i, d := range dates {
		dateStrs[i] = dateutil.FormatDate(d)
	}

	participants, err := s.store.ListParticipants(ctx)
	if err != nil {
		return nil, err
	}

	users := make([]*models.ParticipantStats, 0, len(participants))
	for _, p := range participants {
		attendances, err := s.store.ListAttendancesBetween(ctx, p.GitHubID, start, end)
		if err != nil {
			return nil, err
		}

		attendedByDate := make(map[string]bool, len(attendances))
		for _, a := range attendances {
			attendedByDate[a.AttendanceDate.Format(dateutil.DateLayout)] = a.IsAttended
		}

		flags := make([]bool, len(dateStrs))
		attendedCount := 0
		for i, d := range dateStrs {
			flags[i] = attendedByDate[d]
			if flags[i] {
				attendedCount++
			}
		}

		users = append(users, &models.ParticipantStats{
			GitHubID:       p.GitHubID,
			AttendanceRate: percent(attendedCount, len(dateStrs)),
			AttendedCount:  attendedCount,
			TotalDays:      len(dateStrs),
			Attendance:     flags,
		})
	}

	// Stable sort keeps registration order for equal rates.
	sort.SliceStable(users, func(i, j int) bool {
		return users[i].AttendanceRate > users[j].AttendanceRate
	})
	for i, u := range users {
		u.Rank = i + 1
	}

	dailyRates := make([]*models.DailyRate, len(dateStrs))
	for i, d := range dateStrs {
		presentCount := 0
		for _, u := range users {
			if u.Attendance[i] {
				presentCount++
			}
		}
		dailyRates[i] = &models.DailyRate{
			Date: d,
			Rate: percent(presentCount, len(users)),
		}
	}

	totalPresent := 0
	for _, u := range users {
		totalPresent += u.AttendedCount
	}
	totalPossible := len(users) * len(dateStrs)

	startUTC, _ := dateutil.DayRangeUTC(start)
	_, endUTC := dateutil.DayRangeUTC(end)
	hourly, err := s.store.HourlyCommitCounts(ctx, startUTC, endUTC)
	if err != nil {
		return nil, err
	}

	return &models.RangeStats{
		StartDate:             dateutil.FormatDate(start),
		EndDate:               dateutil.FormatDate(end),
		DaysCompleted:         len(dateStrs),
		TotalDays:             s.cfg.Challenge.TotalDays,
		Dates:                 dateStrs,
		Users:                 users,
		DailyRates:            dailyRates,
		TotalPresent:          totalPresent,
		TotalAbsent:           totalPossible - totalPresent,
		OverallAttendanceRate: percent(totalPresent, totalPossible),
		HourlyCommits:         hourly,
	}, nil
}

// DayStats summarizes cohort attendance for one day.
func (s *Service) DayStats(ctx context.Context, date time.Time) (*models.DayStats, error) {
	total, err := s.store.CountParticipants(ctx)
	if err != nil {
		return nil, err
	}

	attendances, err := s.store.ListAttendancesForDate(ctx, date)
	if err != nil {
		return nil, err
	}

	presentUsers := make([]*models.PresentUser, 0, len(attendances))
	for _, a := range attendances {
		if !a.IsAttended {
			continue
		}
		presentUsers = append(presentUsers, &models.PresentUser{
			GitHubID:    a.GitHubID,
			CommitCount: a.CommitCount,
		})
	}

	return &models.DayStats{
		Date:              dateutil.FormatDate(date),
		TotalParticipants: total,
		PresentCount:      len(presentUsers),
		AttendanceRate:    percent(len(presentUsers), total),
		PresentUsers:      presentUsers,
	}, nil
}

// percent returns numerator/denominator as a whole percentage, rounded to
// the nearest integer. A zero denominator yields 0.
func percent(numerator, denominator int) int {
	if denominator == 0 {
		return 0
	}
	return int(math.Round(float64(numerator) / float64(denominator) * 100))
}
