// Package geo is a client for the GEO optimizer API: job submission, status
// polling with progress projection, synchronous audits, and the public
// showcase and sources listings.
package geo

import (
	"encoding/json"
	"errors"
	"time"
)

// Status is the remote job status reported by GET /jobs/{id}.
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// DefaultFailureMessage is used when a failed job carries no error_message.
const DefaultFailureMessage = "Optimization failed"

// ErrJobFailed matches every *JobError.
var ErrJobFailed = errors.New("job failed")

// JobError is the terminal error of a job the API reported as failed.
type JobError struct {
	JobID   string
	Message string
}

func (e *JobError) Error() string { return e.Message }

// Is reports whether target is ErrJobFailed.
func (e *JobError) Is(target error) bool { return target == ErrJobFailed }

// OptimizeRequest is the body of POST /optimize and POST /audit.
type OptimizeRequest struct {
	URL      string `json:"url"`
	MaxPages int    `json:"max_pages,omitempty"`
}

// JobSnapshot is one status observation of a job. Optional fields are nil
// when the API omits them.
type JobSnapshot struct {
	JobID           string   `json:"job_id"`
	Status          Status   `json:"status"`
	OriginalScore   *float64 `json:"original_geo_score,omitempty"`
	OptimizedScore  *float64 `json:"optimized_geo_score,omitempty"`
	Industry        *string  `json:"industry,omitempty"`
	TotalChunks     *int     `json:"total_chunks,omitempty"`
	CompletedChunks *int     `json:"completed_chunks,omitempty"`
	ErrorMessage    *string  `json:"error_message,omitempty"`
}

// HasIndustry reports whether classification produced a non-empty industry.
func (s JobSnapshot) HasIndustry() bool {
	return s.Industry != nil && *s.Industry != ""
}

// FailureMessage returns error_message or the default failure text.
func (s JobSnapshot) FailureMessage() string {
	if s.ErrorMessage != nil && *s.ErrorMessage != "" {
		return *s.ErrorMessage
	}
	return DefaultFailureMessage
}

// JobResults is the body of GET /results/{id}.
type JobResults struct {
	JobID         string `json:"job_id"`
	FinalMarkdown string `json:"final_markdown"`
}

// Job is the final outcome of a successful optimization.
type Job struct {
	ID             string   `json:"job_id"`
	Status         Status   `json:"status"`
	OriginalScore  *float64 `json:"original_score,omitempty"`
	OptimizedScore *float64 `json:"optimized_score,omitempty"`
	Improvement    *float64 `json:"improvement,omitempty"`
	Content        string   `json:"optimized_content,omitempty"`
	Error          string   `json:"error,omitempty"`
}

// Improvement returns the percentage change from original to optimized. It
// is nil when either score is missing or the original score is zero.
func Improvement(original, optimized *float64) *float64 {
	if original == nil || optimized == nil || *original == 0 {
		return nil
	}
	v := (*optimized - *original) / *original * 100
	return &v
}

// AuditReport is the synchronous POST /audit response. Known fields are
// decoded; the complete payload is kept in Raw.
type AuditReport struct {
	URL             string          `json:"url"`
	Industry        string          `json:"industry,omitempty"`
	Score           *float64        `json:"geo_score,omitempty"`
	PagesAnalyzed   int             `json:"pages_analyzed,omitempty"`
	Recommendations []string        `json:"recommendations,omitempty"`
	Raw             json.RawMessage `json:"-"`
}

// UnmarshalJSON decodes the known fields and retains the raw document.
func (a *AuditReport) UnmarshalJSON(data []byte) error {
	type plain AuditReport
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*a = AuditReport(p)
	a.Raw = append(json.RawMessage(nil), data...)
	return nil
}

// ShowcaseWebsite is one optimized site in the public showcase.
type ShowcaseWebsite struct {
	JobID              string  `json:"job_id"`
	URL                string  `json:"url"`
	Industry           *string `json:"industry"`
	IndustryConfidence float64 `json:"industry_confidence"`
	OriginalScore      float64 `json:"original_score"`
	OptimizedScore     float64 `json:"optimized_score"`
	ImprovementPct     float64 `json:"improvement_pct"`
	ChunksProcessed    int     `json:"chunks_processed"`
	OptimizedAt        string  `json:"optimized_at"`
}

// optimizedAtLayouts covers RFC 3339 and the zone-less ISO form the API emits.
var optimizedAtLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
}

// OptimizedTime parses OptimizedAt. Zone-less timestamps are read as UTC.
func (w ShowcaseWebsite) OptimizedTime() (time.Time, bool) {
	for _, layout := range optimizedAtLayouts {
		if t, err := time.Parse(layout, w.OptimizedAt); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// Showcase is the body of GET /showcase.
type Showcase struct {
	Total    int               `json:"total"`
	Websites []ShowcaseWebsite `json:"websites"`
}

// Source is one research source behind the optimizer's guidelines.
type Source struct {
	Title           string   `json:"title"`
	Authors         []string `json:"authors"`
	URL             string   `json:"url"`
	GuidelinesCount int      `json:"guidelines_count"`
}

// Sources is the body of GET /guidelines?view=sources.
type Sources struct {
	TotalSources    int      `json:"total_sources"`
	TotalGuidelines int      `json:"total_guidelines"`
	Sources         []Source `json:"sources"`
}
