// Package discovery produces candidate thread URLs for the collect command.
// It is optional: a fixed URL list is always a valid Discoverer.
package discovery

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"
	"github.com/rs/zerolog"

	"github.com/forum-corpus-pipeline/internal/config"
	"github.com/forum-corpus-pipeline/internal/models"
)

// CandidateURL is a thread worth fetching
type CandidateURL struct {
	Platform string `json:"platform"`
	URL      string `json:"url"`
	Title    string `json:"title,omitempty"`
	Keyword  string `json:"keyword,omitempty"`
	Seed     string `json:"seed,omitempty"`
}

// Discoverer expands a seed into candidates
type Discoverer interface {
	Discover(ctx context.Context, seed config.Seed) ([]CandidateURL, error)
}

var platformHosts = map[string]string{
	"zhihu.com":  models.PlatformZhihu,
	"v2ex.com":   models.PlatformV2EX,
	"reddit.com": models.PlatformReddit,
	"redd.it":    models.PlatformReddit,
}

// DetectPlatform maps a URL to its platform tag by host, or "" when the
// host is not a known forum
func DetectPlatform(raw string) string {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return ""
	}
	host := strings.ToLower(u.Hostname())
	for suffix, platform := range platformHosts {
		if host == suffix || strings.HasSuffix(host, "."+suffix) {
			return platform
		}
	}
	return ""
}

// StaticDiscoverer returns the URLs listed on the seed itself
type StaticDiscoverer struct{}

func (StaticDiscoverer) Discover(ctx context.Context, seed config.Seed) ([]CandidateURL, error) {
	out := make([]CandidateURL, 0, len(seed.URLs))
	seen := make(map[string]bool, len(seed.URLs))
	for _, raw := range seed.URLs {
		raw = strings.TrimSpace(raw)
		if raw == "" || seen[raw] {
			continue
		}
		seen[raw] = true

		platform := seed.Platform
		if platform == "" {
			platform = DetectPlatform(raw)
		}
		out = append(out, CandidateURL{Platform: platform, URL: raw, Seed: seed.Name})
	}
	return out, nil
}

// FeedDiscoverer reads an RSS or Atom feed and keeps forum threads whose
// title or summary mentions one of the keywords
type FeedDiscoverer struct {
	parser   *gofeed.Parser
	keywords []string
	log      zerolog.Logger
}

// NewFeedDiscoverer creates a FeedDiscoverer. An empty keyword list keeps
// every recognized item.
func NewFeedDiscoverer(keywords []string, timeout time.Duration, log zerolog.Logger) *FeedDiscoverer {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	parser := gofeed.NewParser()
	parser.Client = &http.Client{Timeout: timeout}

	var kws []string
	for _, k := range keywords {
		if k = strings.TrimSpace(k); k != "" {
			kws = append(kws, k)
		}
	}
	return &FeedDiscoverer{
		parser:   parser,
		keywords: kws,
		log:      log.With().Str("component", "feed_discoverer").Logger(),
	}
}

func (d *FeedDiscoverer) Discover(ctx context.Context, seed config.Seed) ([]CandidateURL, error) {
	if seed.FeedURL == "" {
		return nil, fmt.Errorf("seed %q has no feed_url", seed.Name)
	}

	feed, err := d.parser.ParseURLWithContext(seed.FeedURL, ctx)
	if err != nil {
		return nil, fmt.Errorf("parse feed %s: %w", seed.FeedURL, err)
	}

	var out []CandidateURL
	seen := make(map[string]bool)
	skipped := 0
	for _, item := range feed.Items {
		link := strings.TrimSpace(item.Link)
		if link == "" || seen[link] {
			continue
		}

		platform := DetectPlatform(link)
		if platform == "" || (seed.Platform != "" && platform != seed.Platform) {
			skipped++
			continue
		}

		keyword, ok := d.match(item.Title + " " + item.Description)
		if !ok {
			skipped++
			continue
		}

		seen[link] = true
		out = append(out, CandidateURL{
			Platform: platform,
			URL:      link,
			Title:    strings.TrimSpace(item.Title),
			Keyword:  keyword,
			Seed:     seed.Name,
		})
	}

	d.log.Debug().
		Str("feed", seed.FeedURL).
		Int("items", len(feed.Items)).
		Int("candidates", len(out)).
		Int("skipped", skipped).
		Msg("Feed discovered")

	return out, nil
}

func (d *FeedDiscoverer) match(text string) (string, bool) {
	if len(d.keywords) == 0 {
		return "", true
	}
	lower := strings.ToLower(text)
	for _, k := range d.keywords {
		if strings.Contains(lower, strings.ToLower(k)) {
			return k, true
		}
	}
	return "", false
}

// ForSeed picks the discoverer for a seed: feeds go to feed, URL lists to
// the static discoverer
func ForSeed(seed config.Seed, feed Discoverer) Discoverer {
	if seed.FeedURL != "" && feed != nil {
		return feed
	}
	return StaticDiscoverer{}
}
