package service

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/forum-corpus-pipeline/internal/config"
	"github.com/forum-corpus-pipeline/internal/models"
	"github.com/forum-corpus-pipeline/internal/repository"
)

// exportService is the concrete implementation of ExportService
type exportService struct {
	repos *repository.Repositories
	dir   string
	log   zerolog.Logger
}

// newExportService creates a new ExportService reading the configured
// processed directory
func newExportService(repos *repository.Repositories, cfg *config.Config, log zerolog.Logger) *exportService {
	return &exportService{
		repos: repos,
		dir:   cfg.Pipeline.ProcessedDir,
		log:   log.With().Str("service", "export").Logger(),
	}
}

// StreamPosts streams merged posts in the specified format
func (s *exportService) StreamPosts(ctx context.Context, w http.ResponseWriter, format string) error {
	s.log.Info().Str("format", format).Msg("Starting posts export")

	stream := func(emit func(interface{}) error) error {
		return s.repos.Output.StreamPosts(ctx, s.dir, func(p *models.Post) error { return emit(p) })
	}
	switch format {
	case "ndjson":
		return s.streamNDJSON(w, "posts", stream)
	case "json":
		return s.streamJSON(w, "posts", stream)
	default:
		return fmt.Errorf("unsupported format: %s", format)
	}
}

// StreamComments streams flattened comments in the specified format
func (s *exportService) StreamComments(ctx context.Context, w http.ResponseWriter, format string) error {
	s.log.Info().Str("format", format).Msg("Starting comments export")

	stream := func(emit func(interface{}) error) error {
		return s.repos.Output.StreamComments(ctx, s.dir, func(c *models.Comment) error { return emit(c) })
	}
	switch format {
	case "ndjson":
		return s.streamNDJSON(w, "comments", stream)
	case "json":
		return s.streamJSON(w, "comments", stream)
	case "csv":
		return s.streamCommentsCSV(ctx, w)
	default:
		return fmt.Errorf("unsupported format: %s", format)
	}
}

// StreamRejected streams rejected posts with their reasons
func (s *exportService) StreamRejected(ctx context.Context, w http.ResponseWriter, format string) error {
	s.log.Info().Str("format", format).Msg("Starting rejected posts export")

	stream := func(emit func(interface{}) error) error {
		return s.repos.Output.StreamRejected(ctx, s.dir, func(r *models.RejectedPost) error { return emit(r) })
	}
	switch format {
	case "ndjson":
		return s.streamNDJSON(w, "rejected", stream)
	case "json":
		return s.streamJSON(w, "rejected", stream)
	default:
		return fmt.Errorf("unsupported format: %s", format)
	}
}

func (s *exportService) streamNDJSON(w http.ResponseWriter, name string, stream func(func(interface{}) error) error) error {
	w.Header().Set("Content-Type", "application/x-ndjson")
	w.Header().Set("Content-Disposition", "attachment; filename="+name+".ndjson")

	flusher, _ := w.(http.Flusher)
	count := 0

	err := stream(func(v interface{}) error {
		data, err := json.Marshal(v)
		if err != nil {
			return err
		}
		w.Write(data)
		w.Write([]byte("\n"))
		count++

		// Flush every 100 records for streaming
		if count%100 == 0 && flusher != nil {
			flusher.Flush()
		}
		return nil
	})

	s.log.Info().Str("resource", name).Int("count", count).Msg("Export completed")
	return err
}

func (s *exportService) streamJSON(w http.ResponseWriter, name string, stream func(func(interface{}) error) error) error {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", "attachment; filename="+name+".json")

	w.Write([]byte("["))
	first := true

	err := stream(func(v interface{}) error {
		if !first {
			w.Write([]byte(","))
		}
		first = false

		data, err := json.Marshal(v)
		if err != nil {
			return err
		}
		w.Write(data)
		return nil
	})

	w.Write([]byte("]"))
	return err
}

func (s *exportService) streamCommentsCSV(ctx context.Context, w http.ResponseWriter) error {
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", "attachment; filename=comments.csv")

	writer := csv.NewWriter(w)
	defer writer.Flush()

	writer.Write([]string{"post_id", "post_title", "platform", "author", "content", "upvotes", "created_at"})

	return s.repos.Output.StreamComments(ctx, s.dir, func(c *models.Comment) error {
		return writer.Write([]string{
			c.PostID,
			c.PostTitle,
			c.Platform,
			c.Author,
			c.Content,
			strconv.Itoa(c.Upvotes),
			c.CreatedAt,
		})
	})
}

// GetCount returns count for a resource
func (s *exportService) GetCount(ctx context.Context, resource string) (int, error) {
	count := 0
	var err error
	switch resource {
	case "posts":
		err = s.repos.Output.StreamPosts(ctx, s.dir, func(*models.Post) error { count++; return nil })
	case "comments":
		err = s.repos.Output.StreamComments(ctx, s.dir, func(*models.Comment) error { count++; return nil })
	case "rejected":
		err = s.repos.Output.StreamRejected(ctx, s.dir, func(*models.RejectedPost) error { count++; return nil })
	default:
		return 0, fmt.Errorf("unknown resource: %s", resource)
	}
	return count, err
}

// GetStatistics returns the statistics written by the last run
func (s *exportService) GetStatistics(ctx context.Context) (*models.Statistics, error) {
	return s.repos.Output.Statistics(ctx, s.dir)
}
