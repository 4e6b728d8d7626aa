package api

// UserResponse represents one registered participant
// @Description A tracked challenge participant
type UserResponse struct {
	// GitHub handle of the participant
	GitHubID string `json:"github_id" example:"junho85"`
	// Avatar URL of the participant
	GitHubProfileURL string `json:"github_profile_url" example:"https://avatars.githubusercontent.com/junho85"`
}

// AddUserRequest is the body for registering a participant
type AddUserRequest struct {
	// GitHub handle to register
	GitHubID string `json:"github_id" binding:"required" example:"junho85"`
}

// ErrorResponse is the standard error body
type ErrorResponse struct {
	// Human-readable error message
	Error string `json:"error" example:"invalid date \"2025-13-40\": use YYYY-MM-DD"`
}
