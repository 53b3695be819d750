// Package adapter turns live pages and API responses into raw post records.
// Every Fetch returns either a complete record or a *FetchFailure.
package adapter

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/forum-corpus-pipeline/internal/config"
	"github.com/forum-corpus-pipeline/internal/models"
)

// Adapter fetches one target for a single platform
type Adapter interface {
	Platform() string
	Fetch(ctx context.Context, target string) (*models.RawPost, error)
}

// FetchFailure marks a target that produced no record
type FetchFailure struct {
	Platform string
	Target   string
	Err      error
}

func (f *FetchFailure) Error() string {
	return fmt.Sprintf("fetch %s %s: %v", f.Platform, f.Target, f.Err)
}

func (f *FetchFailure) Unwrap() error {
	return f.Err
}

// FailureRecord is the JSON shape written to <platform>_failures_<ts>.json
type FailureRecord struct {
	Platform string `json:"platform"`
	Target   string `json:"target"`
	Error    string `json:"error"`
}

// Record converts the failure for persistence
func (f *FetchFailure) Record() FailureRecord {
	msg := ""
	if f.Err != nil {
		msg = f.Err.Error()
	}
	return FailureRecord{Platform: f.Platform, Target: f.Target, Error: msg}
}

func failure(platform, target string, err error) *FetchFailure {
	return &FetchFailure{Platform: platform, Target: target, Err: err}
}

// Registry maps platform tags to adapters
type Registry map[string]Adapter

// NewRegistry indexes adapters by Platform()
func NewRegistry(adapters ...Adapter) Registry {
	r := make(Registry, len(adapters))
	for _, a := range adapters {
		r[strings.ToLower(a.Platform())] = a
	}
	return r
}

// Get returns the adapter for platform, if any
func (r Registry) Get(platform string) (Adapter, bool) {
	a, ok := r[strings.ToLower(strings.TrimSpace(platform))]
	return a, ok
}

// NewDefaultRegistry wires the HTTP-backed adapters with one shared fetcher
func NewDefaultRegistry(cfg config.CollectConfig, log zerolog.Logger) Registry {
	fetcher := NewFetcher(cfg, log)
	return NewRegistry(
		NewV2EXAdapter(fetcher),
		NewRedditAdapter(fetcher),
	)
}

func scrapedAt(now func() time.Time) string {
	return now().UTC().Format(time.RFC3339)
}
