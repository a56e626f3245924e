package geo

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/umerkhan95/sitefeed/internal/core/logging"
)

const (
	// DefaultBaseURL is the public GEO optimizer API.
	DefaultBaseURL = "https://aiseo-geo-api.fly.dev/api/v2"

	defaultTimeout = 2 * time.Minute
	maxErrorBody   = 1024
)

// APIError is returned when the API answers with a non-2xx status.
type APIError struct {
	Endpoint   string
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("geo: %s: status %d: %s", e.Endpoint, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("geo: %s: status %d", e.Endpoint, e.StatusCode)
}

// Client talks to the GEO optimizer REST API.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a client rooted at baseURL. A nil hc uses a client with
// a two minute timeout; audits of large sites are slow.
func NewClient(baseURL string, hc *http.Client) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if hc == nil {
		hc = &http.Client{Timeout: defaultTimeout}
	}
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), http: hc}
}

// Optimize submits an asynchronous optimization job and returns its id.
func (c *Client) Optimize(ctx context.Context, req OptimizeRequest) (string, error) {
	var out struct {
		JobID string `json:"job_id"`
	}
	if err := c.do(ctx, http.MethodPost, "/optimize", req, &out); err != nil {
		return "", fmt.Errorf("start optimization: %w", err)
	}
	if out.JobID == "" {
		return "", fmt.Errorf("start optimization: response has no job_id")
	}
	return out.JobID, nil
}

// Audit runs a synchronous audit of the site.
func (c *Client) Audit(ctx context.Context, req OptimizeRequest) (*AuditReport, error) {
	var out AuditReport
	if err := c.do(ctx, http.MethodPost, "/audit", req, &out); err != nil {
		return nil, fmt.Errorf("audit: %w", err)
	}
	return &out, nil
}

// Job returns the current status of a job.
func (c *Client) Job(ctx context.Context, id string) (*JobSnapshot, error) {
	var out JobSnapshot
	if err := c.do(ctx, http.MethodGet, "/jobs/"+url.PathEscape(id), nil, &out); err != nil {
		return nil, err
	}
	if out.JobID == "" {
		out.JobID = id
	}
	return &out, nil
}

// Results returns the final payload of a completed job.
func (c *Client) Results(ctx context.Context, id string) (*JobResults, error) {
	var out JobResults
	if err := c.do(ctx, http.MethodGet, "/results/"+url.PathEscape(id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Showcase lists recently optimized websites.
func (c *Client) Showcase(ctx context.Context, limit int) (*Showcase, error) {
	path := "/showcase"
	if limit > 0 {
		path += "?limit=" + strconv.Itoa(limit)
	}

	var out Showcase
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Sources lists the research sources behind the optimization guidelines.
func (c *Client) Sources(ctx context.Context) (*Sources, error) {
	var out Sources
	if err := c.do(ctx, http.MethodGet, "/guidelines?view=sources", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		buf, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			logger := logging.Component("geo")
			logger.Debug().Err(err).Str("path", path).Msg("close response body")
		}
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &APIError{Endpoint: method + " " + path, StatusCode: resp.StatusCode, Message: errorMessage(raw)}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

// errorMessage pulls "detail" (FastAPI) or "error" out of an error body.
func errorMessage(body []byte) string {
	var payload struct {
		Detail any    `json:"detail"`
		Error  string `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		if s, ok := payload.Detail.(string); ok && s != "" {
			return s
		}
		if payload.Error != "" {
			return payload.Error
		}
	}
	return strings.TrimSpace(string(body))
}
