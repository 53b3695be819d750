package service

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/forum-corpus-pipeline/internal/config"
	"github.com/forum-corpus-pipeline/internal/dedup"
	"github.com/forum-corpus-pipeline/internal/merge"
	"github.com/forum-corpus-pipeline/internal/models"
	"github.com/forum-corpus-pipeline/internal/normalize"
	"github.com/forum-corpus-pipeline/internal/quality"
	"github.com/forum-corpus-pipeline/internal/repository"
	"github.com/forum-corpus-pipeline/internal/stats"
)

// pipelineService is the concrete implementation of PipelineService
type pipelineService struct {
	repos *repository.Repositories
	cfg   *config.Config
	log   zerolog.Logger
	now   func() time.Time
}

// newPipelineService creates a new PipelineService
func newPipelineService(repos *repository.Repositories, cfg *config.Config, log zerolog.Logger) *pipelineService {
	return &pipelineService{
		repos: repos,
		cfg:   cfg,
		log:   log.With().Str("service", "pipeline").Logger(),
		now:   time.Now,
	}
}

// ProcessRun executes one pipeline run over run.RawDir and writes the
// collections into run.ProcessedDir. Only I/O failures are returned;
// per-record problems end up in the run's issues.
func (s *pipelineService) ProcessRun(ctx context.Context, run *models.Run) error {
	startTime := s.now()
	now := startTime
	run.Status = models.RunStatusProcessing
	run.StartedAt = &now
	s.repos.Run.Update(ctx, run)

	s.log.Info().
		Str("run_id", run.ID).
		Str("raw_dir", run.RawDir).
		Str("processed_dir", run.ProcessedDir).
		Msg("Starting pipeline run")

	issues, err := s.execute(ctx, run)

	run.DurationMs = time.Since(startTime).Milliseconds()
	completedAt := s.now()
	run.CompletedAt = &completedAt
	run.IssueCount = len(issues)

	if len(issues) > 0 {
		if addErr := s.repos.Run.AddIssues(ctx, run.ID, issues); addErr != nil {
			s.log.Error().Err(addErr).Str("run_id", run.ID).Msg("Failed to record run issues")
		}
	}

	if err != nil {
		run.Status = models.RunStatusFailed
		run.Error = err.Error()
		event := s.log.Error().Err(err).Str("run_id", run.ID)
		var ioErr *models.IOError
		if errors.As(err, &ioErr) {
			event = event.Str("path", ioErr.Path)
		}
		event.Msg("Pipeline run failed")
	} else {
		run.Status = models.RunStatusCompleted
		s.log.Info().
			Str("run_id", run.ID).
			Int("raw_files", run.RawFiles).
			Int("raw_records", run.RawRecords).
			Int("schema_errors", run.SchemaErrors).
			Int("duplicate_posts", run.DuplicatePosts).
			Int("accepted", run.AcceptedPosts).
			Int("rejected", run.RejectedPosts).
			Int("comments", run.TotalComments).
			Int("issues", run.IssueCount).
			Bool("meets_min_posts", run.MeetsMinPosts).
			Int64("duration_ms", run.DurationMs).
			Msg("Pipeline run completed")
	}

	s.repos.Run.Update(ctx, run)

	return err
}

// execute runs load, normalize, dedup, filter, merge, stats and save.
// Issues gathered before a fatal error are still returned.
func (s *pipelineService) execute(ctx context.Context, run *models.Run) ([]models.Issue, error) {
	pc := s.cfg.Pipeline

	batch, err := s.repos.Raw.LoadDir(ctx, run.RawDir)
	if err != nil {
		return nil, err
	}
	run.RawFiles = batch.Files
	run.RawRecords = len(batch.Records)
	for _, issue := range batch.Issues {
		// Record 0 marks a file that could not be split into records
		if issue.Record > 0 {
			run.RawRecords++
		}
	}
	issues := append([]models.Issue(nil), batch.Issues...)

	normalizer := normalize.New(normalize.Options{
		Platforms:       pc.Platforms,
		AnonymousAuthor: pc.AnonymousAuthor,
		Now:             s.now,
	})

	posts := make([]models.Post, 0, len(batch.Records))
	for _, rec := range batch.Records {
		post, recIssues, err := normalizer.Post(rec.Post, rec.PlatformHint)
		if err != nil {
			var schemaErr *models.SchemaError
			if !errors.As(err, &schemaErr) {
				return issues, err
			}
			run.SchemaErrors++
			issues = append(issues, models.Issue{
				Kind:     models.IssueSchemaError,
				Source:   rec.Source,
				Record:   rec.Record,
				RecordID: string(rec.Post.ID),
				Field:    schemaErr.Field,
				Message:  schemaErr.Message,
				Value:    schemaErr.Value,
			})
			s.log.Debug().
				Str("source", rec.Source).
				Int("record", rec.Record).
				Str("field", schemaErr.Field).
				Msg("Skipping record with schema error")
			continue
		}
		for i := range recIssues {
			recIssues[i].Source = rec.Source
			recIssues[i].Record = rec.Record
		}
		issues = append(issues, recIssues...)
		posts = append(posts, post)
	}
	run.NormalizedPosts = len(posts)

	// Dedup within each platform, then filter, then merge across platforms
	filter := quality.NewFilter(quality.Options{
		MinComments: pc.MinCommentsPerPost,
		DateRange:   pc.DateRange,
	})

	var accepted [][]models.Post
	var rejected []models.RejectedPost
	for _, group := range merge.GroupByPlatform(posts, pc.Platforms) {
		unique, dupIssues := dedup.Posts(group)
		run.DuplicatePosts += len(group) - len(unique)
		issues = append(issues, dupIssues...)

		ok, rej, rejIssues := filter.Partition(unique)
		accepted = append(accepted, ok)
		rejected = append(rejected, rej...)
		issues = append(issues, rejIssues...)
	}

	merged := merge.Merge(accepted...)
	issues = append(issues, merged.Issues...)
	run.DuplicatePosts += merged.DuplicatePosts
	run.DuplicateComments = merged.DuplicateComments
	run.AcceptedPosts = len(merged.Posts)
	run.RejectedPosts = len(rejected)
	run.TotalComments = len(merged.Comments)

	statistics := stats.Compute(merged.Posts, merged.Comments, stats.Options{
		MinPostsRequired: pc.MinPostsRequired,
	})
	run.MeetsMinPosts = statistics.MeetsMinPosts
	if !statistics.MeetsMinPosts {
		s.log.Warn().
			Int("posts", statistics.TotalPosts).
			Int("required", pc.MinPostsRequired).
			Msg("Fewer accepted posts than required")
	}

	out := &models.Output{
		Posts:      merged.Posts,
		Comments:   merged.Comments,
		Statistics: statistics,
		Rejected:   rejected,
		Issues:     issues,
	}
	if err := s.repos.Output.Save(ctx, run.ProcessedDir, out); err != nil {
		return issues, err
	}

	return issues, nil
}
