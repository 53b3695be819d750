package api

import (
	"encoding/csv"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/forum-corpus-pipeline/internal/config"
	"github.com/forum-corpus-pipeline/internal/models"
	"github.com/forum-corpus-pipeline/internal/service"
)

// RunHandler handles pipeline run endpoints
type RunHandler struct {
	services *service.Services
	pipeline config.PipelineConfig
	log      zerolog.Logger
}

// NewRunHandler creates a new RunHandler
func NewRunHandler(services *service.Services, pipeline config.PipelineConfig, log zerolog.Logger) *RunHandler {
	return &RunHandler{
		services: services,
		pipeline: pipeline,
		log:      log.With().Str("handler", "run").Logger(),
	}
}

// CreateRun handles POST /v1/runs
// The body is optional; omitted directories fall back to configuration.
// raw_dir may only name the configured raw directory or one below it, and
// processed_dir may only name the configured output directory, which is
// the one exports read.
func (h *RunHandler) CreateRun(c *gin.Context) {
	ctx := c.Request.Context()

	// Get idempotency key from header
	idempotencyKey := c.GetHeader("Idempotency-Key")

	// Check for existing run with same idempotency key
	if idempotencyKey != "" {
		existing, err := h.services.Run.GetRunByIdempotencyKey(ctx, idempotencyKey)
		if err != nil {
			h.log.Error().Err(err).Msg("Failed to check idempotency key")
		}
		if existing != nil {
			h.log.Info().Str("run_id", existing.ID).Msg("Returning existing run for idempotency key")
			c.JSON(http.StatusOK, existing)
			return
		}
	}

	var req models.RunRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}
	}
	req.IdempotencyKey = idempotencyKey

	if err := resolveRunDirs(h.pipeline, &req); err != nil {
		h.log.Warn().Err(err).Msg("Rejected run directories")
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	run, err := h.services.Run.CreateRun(ctx, &req)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to create run")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create run"})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"run_id":        run.ID,
		"status":        run.Status,
		"raw_dir":       run.RawDir,
		"processed_dir": run.ProcessedDir,
		"message":       "Pipeline run created and queued for processing",
	})
}

// ListRuns handles GET /v1/runs
func (h *RunHandler) ListRuns(c *gin.Context) {
	runs, err := h.services.Run.ListRuns(c.Request.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list runs")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list runs"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"runs": runs, "total": len(runs)})
}

// GetRunStatus handles GET /v1/runs/:run_id
func (h *RunHandler) GetRunStatus(c *gin.Context) {
	ctx := c.Request.Context()
	runID := c.Param("run_id")
	if runID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "run_id is required"})
		return
	}

	run, err := h.services.Run.GetRun(ctx, runID)
	if err != nil {
		h.log.Error().Err(err).Str("run_id", runID).Msg("Failed to get run")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get run status"})
		return
	}
	if run == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "run not found"})
		return
	}

	c.JSON(http.StatusOK, run)
}

// GetRunIssues handles GET /v1/runs/:run_id/issues
func (h *RunHandler) GetRunIssues(c *gin.Context) {
	ctx := c.Request.Context()
	runID := c.Param("run_id")
	if runID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "run_id is required"})
		return
	}

	issues, err := h.services.Run.GetRunIssues(ctx, runID)
	if err != nil {
		h.log.Error().Err(err).Str("run_id", runID).Msg("Failed to get run issues")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get issues"})
		return
	}

	format := c.Query("format")
	if format == "" {
		format = "json"
	}

	if format == "csv" {
		c.Header("Content-Type", "text/csv")
		c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=issues_%s.csv", runID))
		writer := csv.NewWriter(c.Writer)
		writer.Write([]string{"kind", "source", "record", "record_id", "field", "message", "value"})
		for _, issue := range issues {
			value := ""
			if issue.Value != nil {
				value = fmt.Sprintf("%v", issue.Value)
			}
			writer.Write([]string{
				string(issue.Kind),
				issue.Source,
				strconv.Itoa(issue.Record),
				issue.RecordID,
				issue.Field,
				issue.Message,
				value,
			})
		}
		writer.Flush()
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"run_id":      runID,
		"issue_count": len(issues),
		"issues":      issues,
	})
}

var errOutsideRoot = errors.New("outside the configured directory")

// resolveRunDirs rewrites the requested directories to paths under the
// configured roots. Relative raw_dir values are taken as relative to the
// raw root.
func resolveRunDirs(pc config.PipelineConfig, req *models.RunRequest) error {
	raw, err := within(pc.RawDir, req.RawDir)
	if err != nil {
		return fmt.Errorf("raw_dir %q: %w", req.RawDir, err)
	}
	processed, err := within(pc.ProcessedDir, req.ProcessedDir)
	if err == nil && filepath.Clean(processed) != filepath.Clean(pc.ProcessedDir) {
		err = errOutsideRoot
	}
	if err != nil {
		return fmt.Errorf("processed_dir %q: %w", req.ProcessedDir, err)
	}
	req.RawDir, req.ProcessedDir = raw, processed
	return nil
}

// within resolves dir against root and fails when the result leaves root.
// An empty dir is root itself.
func within(root, dir string) (string, error) {
	if strings.TrimSpace(dir) == "" {
		return root, nil
	}
	path := dir
	if !filepath.IsAbs(path) {
		path = filepath.Join(root, path)
	}
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return "", err
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	rel, err := filepath.Rel(absRoot, absPath)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", errOutsideRoot
	}
	return filepath.Clean(path), nil
}
