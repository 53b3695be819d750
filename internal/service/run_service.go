package service

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/forum-corpus-pipeline/internal/config"
	"github.com/forum-corpus-pipeline/internal/models"
	"github.com/forum-corpus-pipeline/internal/repository"
)

const (
	pollInterval = time.Second
	issuePreview = 100
)

// runService is the concrete implementation of RunService
type runService struct {
	runRepo  repository.RunRepository
	pipeline PipelineService
	cfg      *config.Config
	log      zerolog.Logger
	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	running  bool
	mu       sync.Mutex
	// Runs share the processed directory, so only one executes at a time
	sem chan struct{}
}

// newRunService creates a new RunService
func newRunService(runRepo repository.RunRepository, cfg *config.Config, log zerolog.Logger) *runService {
	return &runService{
		runRepo: runRepo,
		cfg:     cfg,
		log:     log.With().Str("service", "run").Logger(),
		sem:     make(chan struct{}, 1),
	}
}

// SetPipelineService sets the pipeline service used to execute runs
func (s *runService) SetPipelineService(pipeline PipelineService) {
	s.pipeline = pipeline
}

// CreateRun queues a new pipeline run. Empty directories fall back to the
// configured ones.
func (s *runService) CreateRun(ctx context.Context, req *models.RunRequest) (*models.Run, error) {
	run := &models.Run{
		ID:             uuid.New().String(),
		Status:         models.RunStatusPending,
		IdempotencyKey: req.IdempotencyKey,
		RawDir:         req.RawDir,
		ProcessedDir:   req.ProcessedDir,
		CreatedAt:      time.Now(),
	}
	if run.RawDir == "" {
		run.RawDir = s.cfg.Pipeline.RawDir
	}
	if run.ProcessedDir == "" {
		run.ProcessedDir = s.cfg.Pipeline.ProcessedDir
	}

	if err := s.runRepo.Create(ctx, run); err != nil {
		return nil, err
	}

	s.log.Info().
		Str("run_id", run.ID).
		Str("raw_dir", run.RawDir).
		Msg("Pipeline run queued")

	return run, nil
}

// StartProcessor starts the background run processor
func (s *runService) StartProcessor(ctx context.Context) {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return
	}
	s.running = true
	s.ctx, s.cancel = context.WithCancel(ctx)
	s.mu.Unlock()

	s.log.Info().Msg("Run processor started")

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			s.log.Info().Msg("Run processor stopping")
			return
		case <-ticker.C:
			s.processPendingRuns()
		}
	}
}

// StopProcessor stops the background run processor and waits for the
// current run to finish
func (s *runService) StopProcessor() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return
	}

	s.cancel()
	s.wg.Wait()
	s.running = false
	s.log.Info().Msg("Run processor stopped")
}

// processPendingRuns starts pending runs one at a time, oldest first
func (s *runService) processPendingRuns() {
	runs, err := s.runRepo.GetPendingRuns(s.ctx)
	if err != nil {
		s.log.Error().Err(err).Msg("Failed to get pending runs")
		return
	}

	for _, run := range runs {
		select {
		case s.sem <- struct{}{}:
		case <-s.ctx.Done():
			return
		}

		marked, err := s.runRepo.MarkRunAsProcessing(s.ctx, run.ID)
		if err != nil || !marked {
			<-s.sem
			continue
		}

		s.wg.Add(1)
		go func(r *models.Run) {
			defer s.wg.Done()
			defer func() { <-s.sem }()

			defer func() {
				if p := recover(); p != nil {
					s.log.Error().
						Interface("panic", p).
						Str("run_id", r.ID).
						Msg("Pipeline run panicked - recovered")
					r.Status = models.RunStatusFailed
					s.runRepo.Update(s.ctx, r)
				}
			}()
			s.processRun(r)
		}(run)
	}
}

func (s *runService) processRun(run *models.Run) {
	select {
	case <-s.ctx.Done():
		s.log.Warn().Str("run_id", run.ID).Msg("Run cancelled due to shutdown")
		return
	default:
	}

	if s.pipeline == nil {
		s.log.Error().Str("run_id", run.ID).Msg("No pipeline service configured")
		return
	}
	if err := s.pipeline.ProcessRun(s.ctx, run); err != nil {
		s.log.Error().Err(err).Str("run_id", run.ID).Msg("Pipeline run failed")
	}
}

// GetRun retrieves a run with a preview of its issues
func (s *runService) GetRun(ctx context.Context, id string) (*models.RunResponse, error) {
	run, err := s.runRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if run == nil {
		return nil, nil
	}

	issues, err := s.runRepo.GetIssues(ctx, id, issuePreview)
	if err != nil {
		s.log.Error().Err(err).Str("run_id", id).Msg("Failed to get run issues")
	}

	response := &models.RunResponse{
		Run:    *run,
		Issues: issues,
	}
	if run.IssueCount > 0 {
		response.IssueReport = "/v1/runs/" + run.ID + "/issues"
	}

	return response, nil
}

// ListRuns returns every known run, newest first
func (s *runService) ListRuns(ctx context.Context) ([]*models.Run, error) {
	return s.runRepo.List(ctx)
}

// GetRunByIdempotencyKey retrieves a run by idempotency key
func (s *runService) GetRunByIdempotencyKey(ctx context.Context, key string) (*models.Run, error) {
	return s.runRepo.GetByIdempotencyKey(ctx, key)
}

// GetRunIssues retrieves all issues recorded for a run
func (s *runService) GetRunIssues(ctx context.Context, id string) ([]models.Issue, error) {
	return s.runRepo.GetIssues(ctx, id, 0)
}
