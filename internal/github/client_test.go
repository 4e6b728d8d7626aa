package github

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/junho85/garden10/internal/dateutil"
)

func setupTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	return NewClient(logger,
		WithBaseURL(server.URL),
		WithRetryConfig(2, 10*time.Millisecond, 50*time.Millisecond))
}

func searchDate(t *testing.T) time.Time {
	t.Helper()
	d, err := dateutil.ParseDate("2025-03-10")
	require.NoError(t, err)
	return d
}

// searchItemJSON builds one item of a commit-search response.
func searchItemJSON(sha, repo, message string, private bool, date time.Time) map[string]interface{} {
	return map[string]interface{}{
		"sha": sha,
		"commit": map[string]interface{}{
			"message": message,
			"author": map[string]interface{}{
				"name":  "Alice",
				"email": "alice@example.com",
				"date":  date.Format(time.RFC3339),
			},
		},
		"html_url": fmt.Sprintf("https://github.com/%s/commit/%s", repo, sha),
		"repository": map[string]interface{}{
			"full_name": repo,
			"private":   private,
		},
	}
}

func writeSearchResponse(t *testing.T, w http.ResponseWriter, totalCount int, items []map[string]interface{}) {
	t.Helper()
	err := json.NewEncoder(w).Encode(map[string]interface{}{
		"total_count":        totalCount,
		"incomplete_results": false,
		"items":              items,
	})
	require.NoError(t, err)
}

func TestSearchCommits(t *testing.T) {
	commitTime := time.Date(2025, 3, 10, 3, 0, 0, 0, time.UTC)

	var requests int
	client := setupTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		assert.Equal(t, "/search/commits", r.URL.Path)
		assert.Equal(t, "author:alice committer-date:2025-03-10", r.URL.Query().Get("q"))
		assert.Equal(t, "100", r.URL.Query().Get("per_page"))
		assert.Equal(t, "1", r.URL.Query().Get("page"))
		assert.Equal(t, acceptHeader, r.Header.Get("Accept"))
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))

		writeSearchResponse(t, w, 1, []map[string]interface{}{
			searchItemJSON("abc123", "alice/garden", "plant a tree", true, commitTime),
		})
	}))

	commits, err := client.SearchCommits(context.Background(), "alice", searchDate(t), "test-token")
	require.NoError(t, err)
	assert.Equal(t, 1, requests)

	require.Len(t, commits, 1)
	c := commits[0]
	assert.Equal(t, "alice", c.GitHubID)
	assert.Equal(t, "abc123", c.CommitID)
	assert.Equal(t, "alice/garden", c.Repository)
	assert.Equal(t, "plant a tree", c.Message)
	assert.Equal(t, "https://github.com/alice/garden/commit/abc123", c.CommitURL)
	assert.True(t, c.CommitDate.Equal(commitTime))
	assert.Equal(t, time.UTC, c.CommitDate.Location())
	assert.True(t, c.IsPrivate)
}

func TestSearchCommits_NoToken(t *testing.T) {
	client := setupTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get("Authorization"))
		writeSearchResponse(t, w, 0, nil)
	}))

	commits, err := client.SearchCommits(context.Background(), "alice", searchDate(t), "")
	require.NoError(t, err)
	assert.Empty(t, commits)
}

func TestSearchCommits_Paginates(t *testing.T) {
	firstPage := make([]map[string]interface{}, searchPerPage)
	for i := range firstPage {
		firstPage[i] = searchItemJSON(
			fmt.Sprintf("sha%03d", i), "alice/garden", "work", false,
			time.Date(2025, 3, 10, 3, 0, 0, 0, time.UTC))
	}

	var pages []string
	client := setupTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		page := r.URL.Query().Get("page")
		pages = append(pages, page)
		if page == "1" {
			writeSearchResponse(t, w, searchPerPage+1, firstPage)
			return
		}
		writeSearchResponse(t, w, searchPerPage+1, []map[string]interface{}{
			searchItemJSON("sha100", "alice/garden", "work", false,
				time.Date(2025, 3, 10, 4, 0, 0, 0, time.UTC)),
		})
	}))

	commits, err := client.SearchCommits(context.Background(), "alice", searchDate(t), "test-token")
	require.NoError(t, err)

	assert.Equal(t, []string{"1", "2"}, pages)
	assert.Len(t, commits, searchPerPage+1)
}

func TestSearchCommits_EmptyGithubID(t *testing.T) {
	client := setupTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected for empty github_id")
	}))

	_, err := client.SearchCommits(context.Background(), "", searchDate(t), "test-token")
	require.Error(t, err)

	var vErr *ValidationError
	require.True(t, errors.As(err, &vErr))
	assert.Equal(t, "github_id", vErr.Field)
}

func TestSearchCommits_ClientErrorNotRetried(t *testing.T) {
	var requests int
	client := setupTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		w.WriteHeader(http.StatusUnprocessableEntity)
		fmt.Fprint(w, `{"message":"Validation Failed"}`)
	}))

	_, err := client.SearchCommits(context.Background(), "alice", searchDate(t), "test-token")
	require.Error(t, err)
	assert.Equal(t, 1, requests, "4xx responses are terminal")

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusUnprocessableEntity, apiErr.StatusCode)
}

func TestSearchCommits_RetriesServerError(t *testing.T) {
	var requests int
	client := setupTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		if requests == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		writeSearchResponse(t, w, 0, nil)
	}))

	commits, err := client.SearchCommits(context.Background(), "alice", searchDate(t), "test-token")
	require.NoError(t, err)
	assert.Equal(t, 2, requests)
	assert.Empty(t, commits)
}

func TestSearchCommits_ExhaustsRetries(t *testing.T) {
	var requests int
	client := setupTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		w.WriteHeader(http.StatusBadGateway)
	}))

	_, err := client.SearchCommits(context.Background(), "alice", searchDate(t), "test-token")
	require.Error(t, err)
	assert.Equal(t, 2, requests)

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusBadGateway, apiErr.StatusCode)
}

func TestClient_UpdatesRateLimitInfo(t *testing.T) {
	client := setupTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-RateLimit-Limit", "30")
		w.Header().Set("X-RateLimit-Remaining", "29")
		w.Header().Set("X-RateLimit-Reset", "1741590000")
		writeSearchResponse(t, w, 0, nil)
	}))

	_, err := client.SearchCommits(context.Background(), "alice", searchDate(t), "test-token")
	require.NoError(t, err)

	info := client.rateLimit()
	assert.Equal(t, 30, info.Limit)
	assert.Equal(t, 29, info.Remaining)
	assert.Equal(t, time.Unix(1741590000, 0), info.ResetTime)
}

func TestCheckUser(t *testing.T) {
	client := setupTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/users/alice", r.URL.Path)
		fmt.Fprint(w, `{"login":"alice"}`)
	}))

	require.NoError(t, client.CheckUser(context.Background(), "alice", "test-token"))
}

func TestCheckUser_NotFound(t *testing.T) {
	client := setupTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprint(w, `{"message":"Not Found"}`)
	}))

	err := client.CheckUser(context.Background(), "ghost", "test-token")
	require.Error(t, err)

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusNotFound, apiErr.StatusCode)
}

func TestCheckUser_AuthError(t *testing.T) {
	client := setupTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"message":"Bad credentials"}`)
	}))

	err := client.CheckUser(context.Background(), "alice", "bad-token")
	require.Error(t, err)
	assert.True(t, IsAuthError(err))
}

func TestCheckUser_EmptyGithubID(t *testing.T) {
	client := setupTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected for empty github_id")
	}))

	err := client.CheckUser(context.Background(), "", "test-token")
	require.Error(t, err)
}
