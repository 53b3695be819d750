package repository

import (
	"context"

	"github.com/forum-corpus-pipeline/internal/models"
)

// Output file names inside the processed directory
const (
	PostsFile      = "merged_posts.json"
	CommentsFile   = "all_comments.json"
	StatisticsFile = "data_statistics.json"
	RejectedFile   = "rejected_posts.json"
	IssuesFile     = "issues.json"

	// FailuresMarker names collector failure reports, which LoadDir skips
	FailuresMarker = "_failures_"
)

// RawRecord is one decoded raw post together with where it came from
type RawRecord struct {
	Source       string
	Record       int
	PlatformHint string
	Post         models.RawPost
}

// RawBatch is everything read from a raw directory
type RawBatch struct {
	Files   int
	Records []RawRecord
	Issues  []models.Issue
}

// RawRepository defines the interface for reading scraped raw files
type RawRepository interface {
	LoadDir(ctx context.Context, dir string) (*RawBatch, error)
	WriteFile(ctx context.Context, dir, name string, v interface{}) (string, error)
}

// OutputRepository defines the interface for the processed collections
type OutputRepository interface {
	Save(ctx context.Context, dir string, out *models.Output) error
	Statistics(ctx context.Context, dir string) (*models.Statistics, error)
	StreamPosts(ctx context.Context, dir string, callback func(*models.Post) error) error
	StreamComments(ctx context.Context, dir string, callback func(*models.Comment) error) error
	StreamRejected(ctx context.Context, dir string, callback func(*models.RejectedPost) error) error
}

// RunRepository defines the interface for pipeline run bookkeeping
type RunRepository interface {
	Create(ctx context.Context, run *models.Run) error
	Update(ctx context.Context, run *models.Run) error
	GetByID(ctx context.Context, id string) (*models.Run, error)
	GetByIdempotencyKey(ctx context.Context, key string) (*models.Run, error)
	List(ctx context.Context) ([]*models.Run, error)
	GetPendingRuns(ctx context.Context) ([]*models.Run, error)
	MarkRunAsProcessing(ctx context.Context, runID string) (bool, error)
	AddIssues(ctx context.Context, runID string, issues []models.Issue) error
	GetIssues(ctx context.Context, runID string, limit int) ([]models.Issue, error)
}

// Repositories holds all repository interfaces
type Repositories struct {
	Raw    RawRepository
	Output OutputRepository
	Run    RunRepository
}

// New creates all repositories. Everything lives on the local file system
// except run bookkeeping, which is kept in memory for the process lifetime.
func New() *Repositories {
	return &Repositories{
		Raw:    NewRawRepo(),
		Output: NewOutputRepo(),
		Run:    NewRunRepo(),
	}
}
