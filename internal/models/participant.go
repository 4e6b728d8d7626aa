package models

// Participant is a tracked challenge member identified by a GitHub handle.
// APIToken is optional; when empty the shared token from configuration is
// used for ingestion calls.
type Participant struct {
	BaseModel
	GitHubID string `json:"github_id"`
	APIToken string `json:"-"`
}

// ProfileURL returns the participant's GitHub avatar URL.
func (p *Participant) ProfileURL() string {
	return "https://avatars.githubusercontent.com/" + p.GitHubID
}
