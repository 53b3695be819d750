package mocks

import (
	"context"
	"net/http"
	"sort"

	"github.com/forum-corpus-pipeline/internal/models"
	"github.com/forum-corpus-pipeline/internal/repository"
	"github.com/forum-corpus-pipeline/internal/service"
)

// MockPipelineService is a mock implementation of PipelineService
type MockPipelineService struct {
	ProcessFunc   func(ctx context.Context, run *models.Run) error
	ProcessedRuns []*models.Run
}

// Verify interface compliance
var _ service.PipelineService = (*MockPipelineService)(nil)

func NewMockPipelineService() *MockPipelineService {
	return &MockPipelineService{ProcessedRuns: make([]*models.Run, 0)}
}

func (m *MockPipelineService) ProcessRun(ctx context.Context, run *models.Run) error {
	if m.ProcessFunc != nil {
		return m.ProcessFunc(ctx, run)
	}
	m.ProcessedRuns = append(m.ProcessedRuns, run)
	run.Status = models.RunStatusCompleted
	return nil
}

// MockExportService is a mock implementation of ExportService
type MockExportService struct {
	StreamPostsFunc    func(ctx context.Context, w http.ResponseWriter, format string) error
	StreamCommentsFunc func(ctx context.Context, w http.ResponseWriter, format string) error
	StreamRejectedFunc func(ctx context.Context, w http.ResponseWriter, format string) error
	Counts             map[string]int
	CountError         error
	Stats              *models.Statistics
}

// Verify interface compliance
var _ service.ExportService = (*MockExportService)(nil)

func NewMockExportService() *MockExportService {
	return &MockExportService{
		Counts: map[string]int{
			"posts":    0,
			"comments": 0,
			"rejected": 0,
		},
	}
}

func (m *MockExportService) StreamPosts(ctx context.Context, w http.ResponseWriter, format string) error {
	if m.StreamPostsFunc != nil {
		return m.StreamPostsFunc(ctx, w, format)
	}
	return nil
}

func (m *MockExportService) StreamComments(ctx context.Context, w http.ResponseWriter, format string) error {
	if m.StreamCommentsFunc != nil {
		return m.StreamCommentsFunc(ctx, w, format)
	}
	return nil
}

func (m *MockExportService) StreamRejected(ctx context.Context, w http.ResponseWriter, format string) error {
	if m.StreamRejectedFunc != nil {
		return m.StreamRejectedFunc(ctx, w, format)
	}
	return nil
}

func (m *MockExportService) GetCount(ctx context.Context, resource string) (int, error) {
	if m.CountError != nil {
		return 0, m.CountError
	}
	return m.Counts[resource], nil
}

func (m *MockExportService) GetStatistics(ctx context.Context) (*models.Statistics, error) {
	if m.Stats == nil {
		return nil, repository.ErrNoOutput
	}
	return m.Stats, nil
}

// MockRunService is a mock implementation of RunService
type MockRunService struct {
	Runs     map[string]*models.RunResponse
	Issues   map[string][]models.Issue
	Created  []*models.RunRequest
	Pipeline service.PipelineService
}

// Verify interface compliance
var _ service.RunService = (*MockRunService)(nil)

func NewMockRunService() *MockRunService {
	return &MockRunService{
		Runs:   make(map[string]*models.RunResponse),
		Issues: make(map[string][]models.Issue),
	}
}

func (m *MockRunService) CreateRun(ctx context.Context, req *models.RunRequest) (*models.Run, error) {
	m.Created = append(m.Created, req)
	run := models.Run{
		ID:             "test-run-id",
		Status:         models.RunStatusPending,
		IdempotencyKey: req.IdempotencyKey,
		RawDir:         req.RawDir,
		ProcessedDir:   req.ProcessedDir,
	}
	m.Runs[run.ID] = &models.RunResponse{Run: run}
	return &run, nil
}

func (m *MockRunService) StartProcessor(ctx context.Context) {}

func (m *MockRunService) StopProcessor() {}

func (m *MockRunService) GetRun(ctx context.Context, id string) (*models.RunResponse, error) {
	return m.Runs[id], nil
}

func (m *MockRunService) ListRuns(ctx context.Context) ([]*models.Run, error) {
	out := make([]*models.Run, 0, len(m.Runs))
	for _, run := range m.Runs {
		r := run.Run
		out = append(out, &r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *MockRunService) GetRunByIdempotencyKey(ctx context.Context, key string) (*models.Run, error) {
	for _, run := range m.Runs {
		if run.IdempotencyKey == key {
			return &run.Run, nil
		}
	}
	return nil, nil
}

func (m *MockRunService) GetRunIssues(ctx context.Context, id string) ([]models.Issue, error) {
	return m.Issues[id], nil
}

func (m *MockRunService) SetPipelineService(pipeline service.PipelineService) {
	m.Pipeline = pipeline
}
