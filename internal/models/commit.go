package models

import "time"

// Commit is one external commit attributed to a participant. A commit is
// uniquely identified by (CommitID, Repository); repeated ingestion updates
// the mutable fields in place.
type Commit struct {
	BaseModel
	GitHubID   string    `json:"github_id"`
	CommitID   string    `json:"commit_id"`
	Repository string    `json:"repository"`
	Message    string    `json:"message"`
	CommitURL  string    `json:"commit_url"`
	CommitDate time.Time `json:"commit_date"`
	IsPrivate  bool      `json:"is_private"`
}
