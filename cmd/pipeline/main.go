// Command pipeline runs normalize, dedup, filter, merge and statistics once
// over a raw directory and exits. A non-zero exit status means the run could
// not read its input or write its output.
package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/forum-corpus-pipeline/internal/config"
	"github.com/forum-corpus-pipeline/internal/models"
	"github.com/forum-corpus-pipeline/internal/repository"
	"github.com/forum-corpus-pipeline/internal/service"
	"github.com/forum-corpus-pipeline/pkg/logger"
)

func main() {
	log := logger.New()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	log = logger.NewWithWriter(os.Stderr, cfg.Log.Level, cfg.Log.Format == "pretty")

	rawDir := flag.String("raw", cfg.Pipeline.RawDir, "directory with raw platform files")
	outDir := flag.String("out", cfg.Pipeline.ProcessedDir, "directory for processed collections")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	services := service.NewServices(repository.New(), cfg, log)

	run, err := services.Run.CreateRun(ctx, &models.RunRequest{
		RawDir:       *rawDir,
		ProcessedDir: *outDir,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create run")
	}

	if err := services.Pipeline.ProcessRun(ctx, run); err != nil {
		var ioErr *models.IOError
		if errors.As(err, &ioErr) {
			log.Error().Str("op", ioErr.Op).Str("path", ioErr.Path).Msg("Run aborted on I/O failure")
		}
		os.Exit(1)
	}

	if !run.MeetsMinPosts {
		log.Warn().
			Int("accepted", run.AcceptedPosts).
			Int("required", cfg.Pipeline.MinPostsRequired).
			Msg("Corpus is below the required post count")
	}
}
