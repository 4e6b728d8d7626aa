package models

// CheckStatus is the outcome of one participant's ingest-and-derive pass.
type CheckStatus string

const (
	StatusSuccess   CheckStatus = "success"
	StatusNoCommits CheckStatus = "no_commits"
	StatusError     CheckStatus = "error"
)

// CheckResult is the outcome of ingesting and deriving attendance for one
// participant on one date.
type CheckResult struct {
	GitHubID    string      `json:"github_id"`
	Date        string      `json:"date"`
	Status      CheckStatus `json:"status"`
	CommitCount int         `json:"commit_count"`
	IsAttended  bool        `json:"is_attended"`
	Message     string      `json:"message,omitempty"`
}

// BatchResult aggregates per-participant results of one reconciliation run.
// A batch is never all-or-nothing: it always carries one entry per
// registered participant.
type BatchResult struct {
	RunID   string         `json:"run_id"`
	Date    string         `json:"date"`
	Results []*CheckResult `json:"results"`
}

// ErrorCount returns the number of failed entries in the batch.
func (b *BatchResult) ErrorCount() int {
	n := 0
	for _, r := range b.Results {
		if r.Status == StatusError {
			n++
		}
	}
	return n
}

// HistoryEntry is one stored attendance record in a participant's history.
type HistoryEntry struct {
	AttendanceDate string `json:"attendance_date"`
	CommitCount    int    `json:"commit_count"`
	IsAttended     bool   `json:"is_attended"`
}

// ParticipantStats holds one participant's attendance over a date range.
// Attendance has one entry per day in the range, absent days included.
type ParticipantStats struct {
	GitHubID       string `json:"github_id"`
	Rank           int    `json:"rank"`
	AttendanceRate int    `json:"attendance_rate"`
	AttendedCount  int    `json:"attended_count"`
	TotalDays      int    `json:"total_days"`
	Attendance     []bool `json:"attendance"`
}

// DailyRate is the cohort attendance rate for one day.
type DailyRate struct {
	Date string `json:"date"`
	Rate int    `json:"rate"`
}

// RangeStats is the cohort-wide attendance report over a date range.
type RangeStats struct {
	StartDate             string              `json:"start_date"`
	EndDate               string              `json:"end_date"`
	DaysCompleted         int                 `json:"days_completed"`
	TotalDays             int                 `json:"total_days"`
	Dates                 []string            `json:"dates"`
	Users                 []*ParticipantStats `json:"users"`
	DailyRates            []*DailyRate        `json:"daily_rates"`
	TotalPresent          int                 `json:"total_present"`
	TotalAbsent           int                 `json:"total_absent"`
	OverallAttendanceRate int                 `json:"overall_attendance_rate"`
	HourlyCommits         []int               `json:"hourly_commits"`
}

// PresentUser is one attendee in a single day's stats.
type PresentUser struct {
	GitHubID    string `json:"github_id"`
	CommitCount int    `json:"commit_count"`
}

// DayStats is the cohort attendance summary for a single day.
type DayStats struct {
	Date              string         `json:"date"`
	TotalParticipants int            `json:"total_participants"`
	PresentCount      int            `json:"present_count"`
	AttendanceRate    int            `json:"attendance_rate"`
	PresentUsers      []*PresentUser `json:"present_users"`
}

// Pagination describes the window of a paginated commit listing.
type Pagination struct {
	Total   int  `json:"total"`
	Page    int  `json:"page"`
	Pages   int  `json:"pages"`
	Limit   int  `json:"limit"`
	HasMore bool `json:"has_more"`
}

// CommitPage is one page of a participant's stored commits.
type CommitPage struct {
	Commits    []*Commit  `json:"commits"`
	Pagination Pagination `json:"pagination"`
}
