package github

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"

	"github.com/junho85/garden10/internal/dateutil"
	"github.com/junho85/garden10/internal/models"
)

// acceptHeader enables the commit-search endpoint (cloak preview).
const acceptHeader = "application/vnd.github.cloak-preview"

// searchPerPage is the maximum page size the search API allows.
const searchPerPage = 100

// maxSearchPages caps pagination; the search API never returns more than
// 1000 results per query anyway.
const maxSearchPages = 10

// RateLimitInfo holds information about GitHub API rate limits
type RateLimitInfo struct {
	Limit     int
	Remaining int
	ResetTime time.Time
}

// Client calls the GitHub commit-search API. Credentials are supplied per
// call: participants may carry a personal token, everyone else shares the
// common one.
type Client struct {
	baseURL string
	logger  *logrus.Logger

	// The search endpoint has a 30 req/min budget, separate from the core
	// API limit; the limiter keeps us under it across all participants.
	limiter *rate.Limiter

	maxRetries     int
	initialBackoff time.Duration
	maxBackoff     time.Duration

	mu            sync.Mutex
	clients       map[string]*http.Client
	rateLimitInfo RateLimitInfo
}

// ClientOption allows configuring the client
type ClientOption func(*Client)

// WithRetryConfig configures retry behavior
func WithRetryConfig(maxRetries int, initialBackoff, maxBackoff time.Duration) ClientOption {
	return func(c *Client) {
		c.maxRetries = maxRetries
		c.initialBackoff = initialBackoff
		c.maxBackoff = maxBackoff
	}
}

// WithBaseURL overrides the API base URL
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		c.baseURL = baseURL
	}
}

// NewClient creates a new commit-search client
func NewClient(logger *logrus.Logger, opts ...ClientOption) *Client {
	client := &Client{
		baseURL:        "https://api.github.com",
		logger:         logger,
		limiter:        rate.NewLimiter(rate.Every(2*time.Second), 1),
		maxRetries:     3,
		initialBackoff: time.Second,
		maxBackoff:     time.Minute,
		clients:        make(map[string]*http.Client),
	}

	for _, opt := range opts {
		opt(client)
	}

	return client
}

// httpClientFor returns a token-scoped HTTP client. Clients are cached so
// each participant token reuses its transport.
func (c *Client) httpClientFor(token string) *http.Client {
	c.mu.Lock()
	defer c.mu.Unlock()

	if client, ok := c.clients[token]; ok {
		return client
	}

	var client *http.Client
	if token == "" {
		client = &http.Client{}
	} else {
		ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
		client = oauth2.NewClient(context.Background(), ts)
	}
	client.Timeout = 30 * time.Second

	c.clients[token] = client
	return client
}

// updateRateLimitInfo updates the rate limit information from response headers
func (c *Client) updateRateLimitInfo(resp *http.Response) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if limit := resp.Header.Get("X-RateLimit-Limit"); limit != "" {
		c.rateLimitInfo.Limit, _ = strconv.Atoi(limit)
	}
	if remaining := resp.Header.Get("X-RateLimit-Remaining"); remaining != "" {
		c.rateLimitInfo.Remaining, _ = strconv.Atoi(remaining)
	}
	if reset := resp.Header.Get("X-RateLimit-Reset"); reset != "" {
		if resetTime, err := strconv.ParseInt(reset, 10, 64); err == nil {
			c.rateLimitInfo.ResetTime = time.Unix(resetTime, 0)
		}
	}
}

func (c *Client) rateLimit() RateLimitInfo {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.rateLimitInfo
}

// doRequestWithBackoff performs an HTTP request with exponential backoff
func (c *Client) doRequestWithBackoff(req *http.Request, httpClient *http.Client, result interface{}) error {
	var lastErr error
	backoff := c.initialBackoff

	for attempt := 0; attempt < c.maxRetries; attempt++ {
		if err := c.limiter.Wait(req.Context()); err != nil {
			return err
		}

		resp, err := httpClient.Do(req)
		if err != nil {
			lastErr = NewAPIError(0, "request failed", err)
			c.logger.Warnf("Request attempt %d failed: %v", attempt+1, err)
			time.Sleep(backoff)
			backoff = time.Duration(math.Min(float64(backoff*2), float64(c.maxBackoff)))
			continue
		}

		c.updateRateLimitInfo(resp)

		if resp.StatusCode == http.StatusTooManyRequests {
			resp.Body.Close()
			info := c.rateLimit()
			lastErr = &RateLimitError{ResetTime: info.ResetTime, Limit: info.Limit, Remaining: info.Remaining}
			waitTime := time.Until(info.ResetTime)
			if waitTime <= 0 || waitTime > c.maxBackoff {
				waitTime = backoff
			}
			c.logger.Warnf("Rate limit exceeded. Waiting %v before retry", waitTime)
			time.Sleep(waitTime)
			backoff = time.Duration(math.Min(float64(backoff*2), float64(c.maxBackoff)))
			continue
		}

		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = NewAPIError(resp.StatusCode, "failed to read response body", err)
			continue
		}

		if resp.StatusCode != http.StatusOK {
			lastErr = NewAPIError(resp.StatusCode, string(body), nil)
			if resp.StatusCode >= 500 {
				time.Sleep(backoff)
				backoff = time.Duration(math.Min(float64(backoff*2), float64(c.maxBackoff)))
				continue
			}
			return lastErr
		}

		if result != nil {
			if err := json.Unmarshal(body, result); err != nil {
				return NewAPIError(resp.StatusCode, "failed to decode response", err)
			}
		}

		return nil
	}

	return fmt.Errorf("max retries exceeded: %w", lastErr)
}

type searchResponse struct {
	TotalCount        int          `json:"total_count"`
	IncompleteResults bool         `json:"incomplete_results"`
	Items             []searchItem `json:"items"`
}

type searchItem struct {
	SHA    string `json:"sha"`
	Commit struct {
		Message string `json:"message"`
		Author  struct {
			Name  string    `json:"name"`
			Email string    `json:"email"`
			Date  time.Time `json:"date"`
		} `json:"author"`
	} `json:"commit"`
	HTMLURL    string `json:"html_url"`
	Repository struct {
		FullName string `json:"full_name"`
		Private  bool   `json:"private"`
	} `json:"repository"`
}

// SearchCommits queries the commit-search API for all commits authored by
// githubID on the given KST calendar date and returns them normalized, with
// timestamps in UTC. The caller supplies the credential for this call.
func (c *Client) SearchCommits(ctx context.Context, githubID string, date time.Time, token string) ([]*models.Commit, error) {
	if githubID == "" {
		return nil, NewValidationError("github_id", "cannot be empty")
	}

	logger := c.logger.WithFields(logrus.Fields{
		"github_id": githubID,
		"date":      dateutil.FormatDate(date),
	})

	httpClient := c.httpClientFor(token)
	q := fmt.Sprintf("author:%s committer-date:%s", githubID, dateutil.FormatDate(date))

	var commits []*models.Commit
	for page := 1; page <= maxSearchPages; page++ {
		query := url.Values{}
		query.Set("q", q)
		query.Set("per_page", strconv.Itoa(searchPerPage))
		query.Set("page", strconv.Itoa(page))

		req, err := http.NewRequestWithContext(ctx, "GET", c.baseURL+"/search/commits?"+query.Encode(), nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("Accept", acceptHeader)

		var result searchResponse
		if err := c.doRequestWithBackoff(req, httpClient, &result); err != nil {
			logger.WithError(err).Warn("Commit search request failed")
			return nil, err
		}

		for _, item := range result.Items {
			commits = append(commits, &models.Commit{
				GitHubID:   githubID,
				CommitID:   item.SHA,
				Repository: item.Repository.FullName,
				Message:    item.Commit.Message,
				CommitURL:  item.HTMLURL,
				CommitDate: item.Commit.Author.Date.UTC(),
				IsPrivate:  item.Repository.Private,
			})
		}

		if len(result.Items) < searchPerPage || len(commits) >= result.TotalCount {
			break
		}
	}

	logger.WithField("commit_count", len(commits)).Debug("Fetched commits from search API")
	return commits, nil
}

// CheckUser verifies that a GitHub account exists for the given handle.
func (c *Client) CheckUser(ctx context.Context, githubID string, token string) error {
	if githubID == "" {
		return NewValidationError("github_id", "cannot be empty")
	}

	req, err := http.NewRequestWithContext(ctx, "GET", c.baseURL+"/users/"+url.PathEscape(githubID), nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	return c.doRequestWithBackoff(req, c.httpClientFor(token), nil)
}
