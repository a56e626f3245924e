package github

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_ListCommitsPage_RequestShape(t *testing.T) {
	reqs := make(chan *http.Request, 1)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqs <- r.Clone(context.Background())
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[]`))
	}))
	defer server.Close()

	since := time.Date(2015, 1, 2, 3, 4, 5, 0, time.UTC)
	client := NewClient(server.URL, "tok123")

	res := client.ListCommitsPage(context.Background(), "umerkhan95/umerkhan.eu", PageQuery{
		Author:  "umerkhan95",
		Since:   since,
		PerPage: 100,
		Page:    3,
	})
	require.NoError(t, res.Err)
	assert.Empty(t, res.Commits)

	got := <-reqs
	assert.Equal(t, "/repos/umerkhan95/umerkhan.eu/commits", got.URL.Path)
	q := got.URL.Query()
	assert.Equal(t, "umerkhan95", q.Get("author"))
	assert.Equal(t, "2015-01-02T03:04:05Z", q.Get("since"))
	assert.Equal(t, "100", q.Get("per_page"))
	assert.Equal(t, "3", q.Get("page"))
	assert.Equal(t, "Bearer tok123", got.Header.Get("Authorization"))
	assert.Equal(t, "application/vnd.github.v3+json", got.Header.Get("Accept"))
	assert.Equal(t, DefaultUserAgent, got.Header.Get("User-Agent"))
}

func TestClient_ListCommitsPage_Decodes(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode([]map[string]any{
			{
				"sha":      "0123456789abcdef",
				"html_url": "https://github.com/o/r/commit/0123456789abcdef",
				"commit": map[string]any{
					"message": "Add feed\n\ndetails",
					"author":  map[string]any{"name": "Umer", "date": "2024-06-01T10:00:00Z"},
				},
			},
		})
	}))
	defer server.Close()

	client := NewClient(server.URL, "tok")
	res := client.ListCommitsPage(context.Background(), "o/r", PageQuery{PerPage: 100, Page: 1})
	require.NoError(t, res.Err)
	require.Len(t, res.Commits, 1)

	c := res.Commits[0]
	assert.Equal(t, "0123456", c.SHA)
	assert.Equal(t, "Add feed", c.Message)
	assert.Equal(t, "r", c.Repo)
	assert.True(t, c.Date.Equal(time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)))
}

func TestClient_ListCommitsPage_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"message":"API rate limit exceeded"}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "tok")
	res := client.ListCommitsPage(context.Background(), "o/r", PageQuery{PerPage: 100, Page: 2})
	require.Error(t, res.Err)

	var apiErr *APIError
	require.ErrorAs(t, res.Err, &apiErr)
	assert.Equal(t, http.StatusForbidden, apiErr.StatusCode)
	assert.Equal(t, 2, apiErr.Page)
	assert.Equal(t, "API rate limit exceeded", apiErr.Message)
	assert.Contains(t, res.Err.Error(), "o/r page 2: status 403")
}

func TestClient_ListCommitsPage_MalformedBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"not":"a list"}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "tok")
	res := client.ListCommitsPage(context.Background(), "o/r", PageQuery{PerPage: 100, Page: 1})
	require.Error(t, res.Err)
	assert.Contains(t, res.Err.Error(), "decode o/r page 1")
}

func TestClient_NoTokenOmitsAuthorization(t *testing.T) {
	auths := make(chan string, 1)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auths <- r.Header.Get("Authorization")
		_, _ = w.Write([]byte(`[]`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "", WithUserAgent("sitefeed-test"))
	assert.False(t, client.Authenticated())

	res := client.ListCommitsPage(context.Background(), "o/r", PageQuery{PerPage: 1, Page: 1})
	require.NoError(t, res.Err)
	assert.Empty(t, <-auths)
}

func TestClient_RateLimitHonorsContext(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`[]`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "tok", WithRateLimit(0.001))

	// The first request consumes the only burst token.
	res := client.ListCommitsPage(context.Background(), "o/r", PageQuery{PerPage: 1, Page: 1})
	require.NoError(t, res.Err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	res = client.ListCommitsPage(ctx, "o/r", PageQuery{PerPage: 1, Page: 2})
	require.Error(t, res.Err)
	assert.Contains(t, res.Err.Error(), "rate limit wait")
}
