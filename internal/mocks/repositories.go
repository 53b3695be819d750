package mocks

import (
	"context"
	"sort"
	"sync"

	"github.com/forum-corpus-pipeline/internal/models"
	"github.com/forum-corpus-pipeline/internal/repository"
)

// MockRawRepository serves a fixed batch instead of reading files
type MockRawRepository struct {
	Batch     *repository.RawBatch
	LoadError error
	Written   map[string]interface{}
	LoadedDir string
}

// Verify interface compliance
var _ repository.RawRepository = (*MockRawRepository)(nil)

func NewMockRawRepository() *MockRawRepository {
	return &MockRawRepository{
		Batch:   &repository.RawBatch{},
		Written: make(map[string]interface{}),
	}
}

func (m *MockRawRepository) LoadDir(ctx context.Context, dir string) (*repository.RawBatch, error) {
	m.LoadedDir = dir
	if m.LoadError != nil {
		return nil, m.LoadError
	}
	return m.Batch, nil
}

func (m *MockRawRepository) WriteFile(ctx context.Context, dir, name string, v interface{}) (string, error) {
	m.Written[name] = v
	return dir + "/" + name, nil
}

// MockOutputRepository keeps the last saved output in memory
type MockOutputRepository struct {
	Saved     map[string]*models.Output
	SaveError error
	ReadError error
}

// Verify interface compliance
var _ repository.OutputRepository = (*MockOutputRepository)(nil)

func NewMockOutputRepository() *MockOutputRepository {
	return &MockOutputRepository{Saved: make(map[string]*models.Output)}
}

func (m *MockOutputRepository) Save(ctx context.Context, dir string, out *models.Output) error {
	if m.SaveError != nil {
		return m.SaveError
	}
	m.Saved[dir] = out
	return nil
}

func (m *MockOutputRepository) get(dir string) (*models.Output, error) {
	if m.ReadError != nil {
		return nil, m.ReadError
	}
	out, ok := m.Saved[dir]
	if !ok {
		return nil, repository.ErrNoOutput
	}
	return out, nil
}

func (m *MockOutputRepository) Statistics(ctx context.Context, dir string) (*models.Statistics, error) {
	out, err := m.get(dir)
	if err != nil {
		return nil, err
	}
	s := out.Statistics
	return &s, nil
}

func (m *MockOutputRepository) StreamPosts(ctx context.Context, dir string, callback func(*models.Post) error) error {
	out, err := m.get(dir)
	if err != nil {
		return err
	}
	for i := range out.Posts {
		if err := callback(&out.Posts[i]); err != nil {
			return err
		}
	}
	return nil
}

func (m *MockOutputRepository) StreamComments(ctx context.Context, dir string, callback func(*models.Comment) error) error {
	out, err := m.get(dir)
	if err != nil {
		return err
	}
	for i := range out.Comments {
		if err := callback(&out.Comments[i]); err != nil {
			return err
		}
	}
	return nil
}

func (m *MockOutputRepository) StreamRejected(ctx context.Context, dir string, callback func(*models.RejectedPost) error) error {
	out, err := m.get(dir)
	if err != nil {
		return err
	}
	for i := range out.Rejected {
		if err := callback(&out.Rejected[i]); err != nil {
			return err
		}
	}
	return nil
}

// MockRunRepository is a mock implementation of RunRepository
type MockRunRepository struct {
	mu              sync.Mutex
	Runs            map[string]*models.Run
	IdempotencyRuns map[string]*models.Run
	Issues          map[string][]models.Issue
	CreateError     error
	UpdateError     error
}

// Verify interface compliance
var _ repository.RunRepository = (*MockRunRepository)(nil)

func NewMockRunRepository() *MockRunRepository {
	return &MockRunRepository{
		Runs:            make(map[string]*models.Run),
		IdempotencyRuns: make(map[string]*models.Run),
		Issues:          make(map[string][]models.Issue),
	}
}

func (m *MockRunRepository) Create(ctx context.Context, run *models.Run) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.CreateError != nil {
		return m.CreateError
	}
	m.Runs[run.ID] = run
	if run.IdempotencyKey != "" {
		m.IdempotencyRuns[run.IdempotencyKey] = run
	}
	return nil
}

func (m *MockRunRepository) Update(ctx context.Context, run *models.Run) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.UpdateError != nil {
		return m.UpdateError
	}
	m.Runs[run.ID] = run
	return nil
}

func (m *MockRunRepository) GetByID(ctx context.Context, id string) (*models.Run, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Runs[id], nil
}

func (m *MockRunRepository) GetByIdempotencyKey(ctx context.Context, key string) (*models.Run, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.IdempotencyRuns[key], nil
}

func (m *MockRunRepository) List(ctx context.Context) ([]*models.Run, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	runs := make([]*models.Run, 0, len(m.Runs))
	for _, run := range m.Runs {
		cp := *run
		runs = append(runs, &cp)
	}
	sort.Slice(runs, func(i, j int) bool { return runs[i].CreatedAt.After(runs[j].CreatedAt) })
	return runs, nil
}

func (m *MockRunRepository) GetPendingRuns(ctx context.Context) ([]*models.Run, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var pending []*models.Run
	for _, run := range m.Runs {
		if run.Status == models.RunStatusPending {
			pending = append(pending, run)
		}
	}
	return pending, nil
}

func (m *MockRunRepository) MarkRunAsProcessing(ctx context.Context, runID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	run, exists := m.Runs[runID]
	if !exists || run.Status != models.RunStatusPending {
		return false, nil
	}
	run.Status = models.RunStatusProcessing
	return true, nil
}

func (m *MockRunRepository) AddIssues(ctx context.Context, runID string, issues []models.Issue) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Issues[runID] = append(m.Issues[runID], issues...)
	return nil
}

func (m *MockRunRepository) GetIssues(ctx context.Context, runID string, limit int) ([]models.Issue, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	issues := m.Issues[runID]
	if limit > 0 && len(issues) > limit {
		return issues[:limit], nil
	}
	return issues, nil
}
