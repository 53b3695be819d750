package repository

import (
	"context"
	"sort"
	"sync"

	"github.com/forum-corpus-pipeline/internal/models"
)

// runRepo keeps pipeline runs in memory
type runRepo struct {
	mu     sync.RWMutex
	runs   map[string]*models.Run
	issues map[string][]models.Issue
}

// NewRunRepo creates a new in-memory run repository
func NewRunRepo() RunRepository {
	return &runRepo{
		runs:   make(map[string]*models.Run),
		issues: make(map[string][]models.Issue),
	}
}

// Create inserts a new run
func (r *runRepo) Create(ctx context.Context, run *models.Run) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *run
	r.runs[run.ID] = &cp
	return nil
}

// Update replaces the stored run status and counters
func (r *runRepo) Update(ctx context.Context, run *models.Run) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *run
	r.runs[run.ID] = &cp
	return nil
}

// GetByID retrieves a run by ID; nil when unknown
func (r *runRepo) GetByID(ctx context.Context, id string) (*models.Run, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	run, ok := r.runs[id]
	if !ok {
		return nil, nil
	}
	cp := *run
	return &cp, nil
}

// GetByIdempotencyKey retrieves a run by idempotency key
func (r *runRepo) GetByIdempotencyKey(ctx context.Context, key string) (*models.Run, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, run := range r.runs {
		if run.IdempotencyKey != "" && run.IdempotencyKey == key {
			cp := *run
			return &cp, nil
		}
	}
	return nil, nil
}

// List returns all runs, newest first
func (r *runRepo) List(ctx context.Context) ([]*models.Run, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*models.Run, 0, len(r.runs))
	for _, run := range r.runs {
		cp := *run
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

// GetPendingRuns returns pending runs, oldest first
func (r *runRepo) GetPendingRuns(ctx context.Context) ([]*models.Run, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*models.Run
	for _, run := range r.runs {
		if run.Status == models.RunStatusPending {
			cp := *run
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// MarkRunAsProcessing moves a pending run to processing. It reports false
// when the run is unknown or was already claimed.
func (r *runRepo) MarkRunAsProcessing(ctx context.Context, runID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	run, ok := r.runs[runID]
	if !ok || run.Status != models.RunStatusPending {
		return false, nil
	}
	run.Status = models.RunStatusProcessing
	return true, nil
}

// AddIssues appends issues recorded for a run
func (r *runRepo) AddIssues(ctx context.Context, runID string, issues []models.Issue) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.issues[runID] = append(r.issues[runID], issues...)
	return nil
}

// GetIssues retrieves issues for a run; limit <= 0 returns all
func (r *runRepo) GetIssues(ctx context.Context, runID string, limit int) ([]models.Issue, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	issues := r.issues[runID]
	if limit > 0 && len(issues) > limit {
		issues = issues[:limit]
	}
	out := make([]models.Issue, len(issues))
	copy(out, issues)
	return out, nil
}
