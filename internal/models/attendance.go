package models

import "time"

// Attendance is one participant's derived presence for one KST calendar
// day. It is recomputed from stored commits on every derivation pass;
// IsAttended always equals CommitCount > 0.
type Attendance struct {
	BaseModel
	GitHubID       string    `json:"github_id"`
	AttendanceDate time.Time `json:"attendance_date"`
	CommitCount    int       `json:"commit_count"`
	IsAttended     bool      `json:"is_attended"`
}
