package geo

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type capturedRequest struct {
	method string
	path   string
	query  string
	body   string
	ctype  string
}

func newCapturingServer(t *testing.T, status int, response string) (*httptest.Server, <-chan capturedRequest) {
	t.Helper()
	reqs := make(chan capturedRequest, 1)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		reqs <- capturedRequest{
			method: r.Method,
			path:   r.URL.Path,
			query:  r.URL.RawQuery,
			body:   string(body),
			ctype:  r.Header.Get("Content-Type"),
		}
		w.WriteHeader(status)
		_, _ = w.Write([]byte(response))
	}))
	t.Cleanup(server.Close)
	return server, reqs
}

func TestClient_Optimize(t *testing.T) {
	server, reqs := newCapturingServer(t, http.StatusOK, `{"job_id":"abc123"}`)
	client := NewClient(server.URL+"/api/v2/", nil)

	id, err := client.Optimize(context.Background(), OptimizeRequest{URL: "https://example.com", MaxPages: 5})
	require.NoError(t, err)
	assert.Equal(t, "abc123", id)

	got := <-reqs
	assert.Equal(t, http.MethodPost, got.method)
	assert.Equal(t, "/api/v2/optimize", got.path)
	assert.Equal(t, "application/json", got.ctype)
	assert.JSONEq(t, `{"url":"https://example.com","max_pages":5}`, got.body)
}

func TestClient_Optimize_OmitsZeroMaxPages(t *testing.T) {
	server, reqs := newCapturingServer(t, http.StatusOK, `{"job_id":"abc123"}`)
	client := NewClient(server.URL, nil)

	_, err := client.Optimize(context.Background(), OptimizeRequest{URL: "https://example.com"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"url":"https://example.com"}`, (<-reqs).body)
}

func TestClient_Optimize_Errors(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		response string
		contains string
	}{
		{"detail message", http.StatusUnprocessableEntity, `{"detail":"invalid url"}`, "status 422: invalid url"},
		{"plain body", http.StatusInternalServerError, "upstream down", "status 500: upstream down"},
		{"missing job id", http.StatusOK, `{}`, "no job_id"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server, _ := newCapturingServer(t, tt.status, tt.response)
			client := NewClient(server.URL, nil)

			_, err := client.Optimize(context.Background(), OptimizeRequest{URL: "https://example.com"})
			require.Error(t, err)
			assert.Contains(t, err.Error(), "start optimization")
			assert.Contains(t, err.Error(), tt.contains)
		})
	}
}

func TestClient_Job(t *testing.T) {
	server, reqs := newCapturingServer(t, http.StatusOK,
		`{"job_id":"j1","status":"running","industry":"saas","total_chunks":4,"completed_chunks":1,"original_geo_score":42.5}`)
	client := NewClient(server.URL, nil)

	snap, err := client.Job(context.Background(), "j1")
	require.NoError(t, err)

	assert.Equal(t, "/jobs/j1", (<-reqs).path)
	assert.Equal(t, StatusRunning, snap.Status)
	assert.Equal(t, "saas", *snap.Industry)
	assert.Equal(t, 4, *snap.TotalChunks)
	assert.Equal(t, 1, *snap.CompletedChunks)
	assert.InDelta(t, 42.5, *snap.OriginalScore, 1e-9)
	assert.Nil(t, snap.OptimizedScore)
}

func TestClient_Job_FillsMissingID(t *testing.T) {
	server, _ := newCapturingServer(t, http.StatusOK, `{"status":"pending"}`)
	client := NewClient(server.URL, nil)

	snap, err := client.Job(context.Background(), "j9")
	require.NoError(t, err)
	assert.Equal(t, "j9", snap.JobID)
}

func TestClient_Results(t *testing.T) {
	server, reqs := newCapturingServer(t, http.StatusOK, `{"job_id":"j1","final_markdown":"# Done"}`)
	client := NewClient(server.URL, nil)

	res, err := client.Results(context.Background(), "j1")
	require.NoError(t, err)
	assert.Equal(t, "/results/j1", (<-reqs).path)
	assert.Equal(t, "# Done", res.FinalMarkdown)
}

func TestClient_Audit(t *testing.T) {
	server, reqs := newCapturingServer(t, http.StatusOK, `{"url":"https://example.com","geo_score":55}`)
	client := NewClient(server.URL, nil)

	report, err := client.Audit(context.Background(), OptimizeRequest{URL: "https://example.com", MaxPages: 3})
	require.NoError(t, err)

	got := <-reqs
	assert.Equal(t, "/audit", got.path)
	assert.JSONEq(t, `{"url":"https://example.com","max_pages":3}`, got.body)
	assert.InDelta(t, 55.0, *report.Score, 1e-9)
}

func TestClient_Showcase(t *testing.T) {
	payload, err := json.Marshal(Showcase{
		Total: 2,
		Websites: []ShowcaseWebsite{
			{JobID: "a", URL: "https://www.example.com/", OptimizedScore: 80, ImprovementPct: 40},
			{JobID: "b", URL: "https://shop.test", OptimizedScore: 70, ImprovementPct: 20},
		},
	})
	require.NoError(t, err)

	server, reqs := newCapturingServer(t, http.StatusOK, string(payload))
	client := NewClient(server.URL, nil)

	sc, err := client.Showcase(context.Background(), 20)
	require.NoError(t, err)

	got := <-reqs
	assert.Equal(t, "/showcase", got.path)
	assert.Equal(t, "limit=20", got.query)
	assert.Len(t, sc.Websites, 2)
}

func TestClient_Sources(t *testing.T) {
	server, reqs := newCapturingServer(t, http.StatusOK,
		`{"total_sources":1,"total_guidelines":12,"sources":[{"title":"GEO","authors":["A","B"],"url":"https://arxiv.org/x","guidelines_count":12}]}`)
	client := NewClient(server.URL, nil)

	src, err := client.Sources(context.Background())
	require.NoError(t, err)

	got := <-reqs
	assert.Equal(t, "/guidelines", got.path)
	assert.Equal(t, "view=sources", got.query)
	assert.Equal(t, 12, src.TotalGuidelines)
	require.Len(t, src.Sources, 1)
	assert.Equal(t, []string{"A", "B"}, src.Sources[0].Authors)
}

func TestClient_APIErrorType(t *testing.T) {
	server, _ := newCapturingServer(t, http.StatusNotFound, `{"error":"job not found"}`)
	client := NewClient(server.URL, nil)

	_, err := client.Job(context.Background(), "missing")
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusNotFound, apiErr.StatusCode)
	assert.Equal(t, "job not found", apiErr.Message)
	assert.Equal(t, "GET /jobs/missing", apiErr.Endpoint)
}
