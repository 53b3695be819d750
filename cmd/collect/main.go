// Command collect discovers candidate threads, fetches them through the
// platform adapters and drops raw files for the pipeline to pick up.
package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/forum-corpus-pipeline/internal/adapter"
	"github.com/forum-corpus-pipeline/internal/config"
	"github.com/forum-corpus-pipeline/internal/discovery"
	"github.com/forum-corpus-pipeline/internal/models"
	"github.com/forum-corpus-pipeline/internal/repository"
	"github.com/forum-corpus-pipeline/pkg/logger"
)

func main() {
	log := logger.New()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	log = logger.NewWithWriter(os.Stderr, cfg.Log.Level, cfg.Log.Format == "pretty")

	outDir := flag.String("out", cfg.Pipeline.RawDir, "directory for raw platform files")
	only := flag.String("seed", "", "only run the seed with this name")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	c := &collector{
		registry: adapter.NewDefaultRegistry(cfg.Collect, log),
		feed:     discovery.NewFeedDiscoverer(cfg.Collect.Keywords, cfg.Collect.RequestTimeout, log),
		raw:      repository.NewRawRepo(),
		log:      log,
		now:      time.Now,
	}

	seeds := cfg.Collect.Seeds
	if *only != "" {
		seeds = filterSeeds(seeds, *only)
	}
	if len(seeds) == 0 {
		log.Fatal().Msg("No discovery seeds configured; set seeds in PIPELINE_CONFIG")
	}

	if err := c.run(ctx, seeds, *outDir); err != nil {
		log.Error().Err(err).Msg("Collection aborted")
		os.Exit(1)
	}
}

var errNoAdapter = errors.New("no adapter for platform; extract the page manually and list the file instead")

type collector struct {
	registry adapter.Registry
	feed     discovery.Discoverer
	raw      repository.RawRepository
	log      zerolog.Logger
	now      func() time.Time
}

// run fetches every candidate sequentially and writes one raw file and one
// failures file per platform. Only write errors abort.
func (c *collector) run(ctx context.Context, seeds []config.Seed, outDir string) error {
	posts := make(map[string][]*models.RawPost)
	failures := make(map[string][]adapter.FailureRecord)
	var order []string
	track := func(platform string) {
		if _, ok := posts[platform]; ok {
			return
		}
		if _, ok := failures[platform]; ok {
			return
		}
		order = append(order, platform)
	}

	for _, seed := range seeds {
		candidates, err := discovery.ForSeed(seed, c.feed).Discover(ctx, seed)
		if err != nil {
			c.log.Warn().Err(err).Str("seed", seed.Name).Msg("Discovery failed")
			continue
		}
		c.log.Info().Str("seed", seed.Name).Int("candidates", len(candidates)).Msg("Discovered candidates")

		for _, cand := range candidates {
			if ctx.Err() != nil {
				break
			}
			platform := cand.Platform
			if platform == "" {
				platform = "unknown"
			}
			track(platform)

			post, err := c.fetch(ctx, cand)
			if err != nil {
				var ff *adapter.FetchFailure
				if !errors.As(err, &ff) {
					ff = &adapter.FetchFailure{Platform: platform, Target: cand.URL, Err: err}
				}
				failures[platform] = append(failures[platform], ff.Record())
				c.log.Warn().Err(err).Str("platform", platform).Str("target", cand.URL).Msg("Fetch failed")
				continue
			}
			posts[platform] = append(posts[platform], post)
			c.log.Debug().Str("platform", platform).Str("title", post.Title).Msg("Fetched")
		}
	}

	stamp := c.now().UTC().Format("20060102_150405")
	for _, platform := range order {
		if len(posts[platform]) > 0 {
			path, err := c.raw.WriteFile(ctx, outDir, platform+"_raw_"+stamp+".json", posts[platform])
			if err != nil {
				return err
			}
			c.log.Info().Str("path", path).Int("posts", len(posts[platform])).Msg("Wrote raw file")
		}
		if len(failures[platform]) > 0 {
			path, err := c.raw.WriteFile(ctx, outDir, platform+repository.FailuresMarker+stamp+".json", failures[platform])
			if err != nil {
				return err
			}
			c.log.Warn().Str("path", path).Int("failures", len(failures[platform])).Msg("Wrote failures file")
		}
	}
	return nil
}

// fetch routes local paths to a FileAdapter and URLs to the platform adapter
func (c *collector) fetch(ctx context.Context, cand discovery.CandidateURL) (*models.RawPost, error) {
	if !strings.HasPrefix(cand.URL, "http://") && !strings.HasPrefix(cand.URL, "https://") {
		return adapter.NewFileAdapter(cand.Platform).Fetch(ctx, cand.URL)
	}
	a, ok := c.registry.Get(cand.Platform)
	if !ok {
		return nil, &adapter.FetchFailure{
			Platform: cand.Platform,
			Target:   cand.URL,
			Err:      errNoAdapter,
		}
	}
	return a.Fetch(ctx, cand.URL)
}

func filterSeeds(seeds []config.Seed, name string) []config.Seed {
	var out []config.Seed
	for _, s := range seeds {
		if s.Name == name {
			out = append(out, s)
		}
	}
	return out
}
