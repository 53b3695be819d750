package service

import (
	"context"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/forum-corpus-pipeline/internal/config"
	"github.com/forum-corpus-pipeline/internal/models"
	"github.com/forum-corpus-pipeline/internal/repository"
)

// PipelineService defines the interface for pipeline execution
type PipelineService interface {
	ProcessRun(ctx context.Context, run *models.Run) error
}

// ExportService defines the interface for export operations
type ExportService interface {
	StreamPosts(ctx context.Context, w http.ResponseWriter, format string) error
	StreamComments(ctx context.Context, w http.ResponseWriter, format string) error
	StreamRejected(ctx context.Context, w http.ResponseWriter, format string) error
	GetCount(ctx context.Context, resource string) (int, error)
	GetStatistics(ctx context.Context) (*models.Statistics, error)
}

// RunService defines the interface for run management
type RunService interface {
	CreateRun(ctx context.Context, req *models.RunRequest) (*models.Run, error)
	StartProcessor(ctx context.Context)
	StopProcessor()
	GetRun(ctx context.Context, id string) (*models.RunResponse, error)
	GetRunByIdempotencyKey(ctx context.Context, key string) (*models.Run, error)
	ListRuns(ctx context.Context) ([]*models.Run, error)
	GetRunIssues(ctx context.Context, id string) ([]models.Issue, error)
	SetPipelineService(pipeline PipelineService)
}

// Services holds all service interfaces
type Services struct {
	Pipeline PipelineService
	Export   ExportService
	Run      RunService
}

// NewServices creates all services
func NewServices(repos *repository.Repositories, cfg *config.Config, log zerolog.Logger) *Services {
	runSvc := newRunService(repos.Run, cfg, log)
	pipelineSvc := newPipelineService(repos, cfg, log)
	exportSvc := newExportService(repos, cfg, log)

	// Wire up run processor to pipeline service
	runSvc.SetPipelineService(pipelineSvc)

	return &Services{
		Pipeline: pipelineSvc,
		Export:   exportSvc,
		Run:      runSvc,
	}
}
