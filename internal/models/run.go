package models

import (
	"time"
)

// RunStatus represents the status of a pipeline run
type RunStatus string

const (
	RunStatusPending    RunStatus = "pending"
	RunStatusProcessing RunStatus = "processing"
	RunStatusCompleted  RunStatus = "completed"
	RunStatusFailed     RunStatus = "failed"
)

// Run is one execution of the pipeline over a raw directory
type Run struct {
	ID                string     `json:"run_id"`
	Status            RunStatus  `json:"status"`
	IdempotencyKey    string     `json:"idempotency_key,omitempty"`
	RawDir            string     `json:"raw_dir"`
	ProcessedDir      string     `json:"processed_dir"`
	RawFiles          int        `json:"raw_files"`
	RawRecords        int        `json:"raw_records"`
	NormalizedPosts   int        `json:"normalized_posts"`
	SchemaErrors      int        `json:"schema_errors"`
	DuplicatePosts    int        `json:"duplicate_posts"`
	DuplicateComments int        `json:"duplicate_comments"`
	AcceptedPosts     int        `json:"accepted_posts"`
	RejectedPosts     int        `json:"rejected_posts"`
	TotalComments     int        `json:"total_comments"`
	IssueCount        int        `json:"issue_count"`
	MeetsMinPosts     bool       `json:"meets_min_posts"`
	DurationMs        int64      `json:"duration_ms,omitempty"`
	Error             string     `json:"error,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
	StartedAt         *time.Time `json:"started_at,omitempty"`
	CompletedAt       *time.Time `json:"completed_at,omitempty"`
}

// RunResponse is the API response for run status
type RunResponse struct {
	Run
	Issues      []Issue `json:"issues,omitempty"`
	IssueReport string  `json:"issue_report_url,omitempty"`
}

// RunRequest asks for a pipeline run. Empty directories fall back to config.
type RunRequest struct {
	RawDir         string `json:"raw_dir,omitempty"`
	ProcessedDir   string `json:"processed_dir,omitempty"`
	IdempotencyKey string `json:"-"` // From header
}

// Output is everything one run persists to the processed directory
type Output struct {
	Posts      []Post         `json:"posts"`
	Comments   []Comment      `json:"comments"`
	Statistics Statistics     `json:"statistics"`
	Rejected   []RejectedPost `json:"rejected"`
	Issues     []Issue        `json:"issues"`
}
