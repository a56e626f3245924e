// Package github pages through the GitHub commits API and assembles the
// commit activity feed grouped by day.
package github

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/umerkhan95/sitefeed/internal/core/logging"
)

const (
	// DefaultUserAgent is sent with every API request.
	DefaultUserAgent = "umer.eu-website"
	// DefaultPerPage is the largest page size GitHub accepts.
	DefaultPerPage = 100

	acceptHeader   = "application/vnd.github.v3+json"
	defaultTimeout = 30 * time.Second
	maxErrorBody   = 512
)

// APIError is returned when GitHub answers with a non-2xx status.
type APIError struct {
	Repo       string
	Page       int
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("github: %s page %d: status %d: %s", e.Repo, e.Page, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("github: %s page %d: status %d", e.Repo, e.Page, e.StatusCode)
}

// PageQuery selects one page of a repository's commit listing.
type PageQuery struct {
	Author  string
	Since   time.Time
	PerPage int
	Page    int
}

// PageResult is the outcome of a single page fetch. Err is set when the page
// could not be retrieved; Commits holds whatever was decoded before that.
type PageResult struct {
	Commits []Commit
	Err     error
}

// Client is a minimal GitHub REST client for the commits endpoint.
type Client struct {
	baseURL   string
	token     string
	userAgent string
	http      *http.Client
	limiter   *rate.Limiter
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) { c.http = hc }
}

// WithRateLimit throttles requests to rps per second. Zero disables throttling.
func WithRateLimit(rps float64) ClientOption {
	return func(c *Client) {
		if rps <= 0 {
			c.limiter = nil
			return
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), 1)
	}
}

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(ua string) ClientOption {
	return func(c *Client) { c.userAgent = ua }
}

// NewClient creates a client for the API rooted at baseURL.
func NewClient(baseURL, token string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL:   strings.TrimRight(baseURL, "/"),
		token:     token,
		userAgent: DefaultUserAgent,
		http:      &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Authenticated reports whether a token is configured.
func (c *Client) Authenticated() bool {
	return c.token != ""
}

// apiCommit is the subset of the commits API payload the feed needs.
type apiCommit struct {
	SHA     string `json:"sha"`
	HTMLURL string `json:"html_url"`
	Commit  struct {
		Message string `json:"message"`
		Author  struct {
			Name string    `json:"name"`
			Date time.Time `json:"date"`
		} `json:"author"`
	} `json:"commit"`
}

// ListCommitsPage fetches one page of commits for repo ("owner/name").
func (c *Client) ListCommitsPage(ctx context.Context, repo string, q PageQuery) PageResult {
	logger := logging.Component("github")

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return PageResult{Err: fmt.Errorf("rate limit wait: %w", err)}
		}
	}

	params := url.Values{}
	if q.Author != "" {
		params.Set("author", q.Author)
	}
	if !q.Since.IsZero() {
		params.Set("since", q.Since.UTC().Format(time.RFC3339))
	}
	params.Set("per_page", strconv.Itoa(q.PerPage))
	params.Set("page", strconv.Itoa(q.Page))

	endpoint := fmt.Sprintf("%s/repos/%s/commits?%s", c.baseURL, repo, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return PageResult{Err: fmt.Errorf("create request: %w", err)}
	}
	req.Header.Set("Accept", acceptHeader)
	req.Header.Set("User-Agent", c.userAgent)
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return PageResult{Err: fmt.Errorf("request %s page %d: %w", repo, q.Page, err)}
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			logger.Debug().Err(err).Str("repo", repo).Msg("close commits response body")
		}
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return PageResult{Err: &APIError{
			Repo:       repo,
			Page:       q.Page,
			StatusCode: resp.StatusCode,
			Message:    apiMessage(body),
		}}
	}

	var raw []apiCommit
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return PageResult{Err: fmt.Errorf("decode %s page %d: %w", repo, q.Page, err)}
	}

	commits := make([]Commit, 0, len(raw))
	for _, rc := range raw {
		commits = append(commits, NormalizeCommit(repo, rc))
	}

	return PageResult{Commits: commits}
}

// apiMessage extracts the "message" field GitHub puts in error bodies.
func apiMessage(body []byte) string {
	var payload struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &payload); err == nil && payload.Message != "" {
		return payload.Message
	}
	return strings.TrimSpace(string(body))
}
