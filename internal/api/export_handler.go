package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/forum-corpus-pipeline/internal/repository"
	"github.com/forum-corpus-pipeline/internal/service"
)

// ExportHandler handles export endpoints
type ExportHandler struct {
	services *service.Services
	log      zerolog.Logger
}

// NewExportHandler creates a new ExportHandler
func NewExportHandler(services *service.Services, log zerolog.Logger) *ExportHandler {
	return &ExportHandler{
		services: services,
		log:      log.With().Str("handler", "export").Logger(),
	}
}

// StreamExport handles GET /v1/exports?resource=...&format=...
// Streams the processed collection directly to the response
func (h *ExportHandler) StreamExport(c *gin.Context) {
	ctx := c.Request.Context()

	resource := c.Query("resource")
	if resource == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "resource parameter is required (posts, comments, rejected)"})
		return
	}
	if resource != "posts" && resource != "comments" && resource != "rejected" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "resource must be one of: posts, comments, rejected"})
		return
	}

	format := c.Query("format")
	if format == "" {
		format = "json"
	}
	if format != "ndjson" && format != "json" && format != "csv" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "format must be one of: json, ndjson, csv"})
		return
	}

	// CSV only supported for flattened comments
	if format == "csv" && resource != "comments" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "CSV format only supported for comments export"})
		return
	}

	// Fail before streaming starts when there is nothing to export
	if _, err := h.services.Export.GetCount(ctx, resource); err != nil {
		if errors.Is(err, repository.ErrNoOutput) {
			c.JSON(http.StatusNotFound, gin.H{"error": "no processed output yet; run the pipeline first"})
			return
		}
		h.log.Error().Err(err).Str("resource", resource).Msg("Failed to open export")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read processed output"})
		return
	}

	h.log.Info().
		Str("resource", resource).
		Str("format", format).
		Msg("Starting streaming export")

	var err error
	switch resource {
	case "posts":
		err = h.services.Export.StreamPosts(ctx, c.Writer, format)
	case "comments":
		err = h.services.Export.StreamComments(ctx, c.Writer, format)
	case "rejected":
		err = h.services.Export.StreamRejected(ctx, c.Writer, format)
	}

	if err != nil {
		h.log.Error().Err(err).Str("resource", resource).Msg("Export failed")
		// Can't return error JSON after streaming has started
		return
	}
}

// GetStatistics handles GET /v1/statistics
func (h *ExportHandler) GetStatistics(c *gin.Context) {
	stats, err := h.services.Export.GetStatistics(c.Request.Context())
	if errors.Is(err, repository.ErrNoOutput) {
		c.JSON(http.StatusNotFound, gin.H{"error": "no statistics yet; run the pipeline first"})
		return
	}
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to read statistics")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read statistics"})
		return
	}

	c.JSON(http.StatusOK, stats)
}
