package adapter

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/forum-corpus-pipeline/internal/config"
)

// maxBodySize caps a single page download
const maxBodySize = 10 << 20

// Fetcher is the HTTP client shared by all adapters. Requests are paced by
// a token bucket; transport errors and 5xx responses are retried.
type Fetcher struct {
	client     *http.Client
	limiter    *rate.Limiter
	userAgent  string
	cookie     string
	maxRetries int
	log        zerolog.Logger
}

// NewFetcher creates a Fetcher from the collect settings. A zero interval
// disables pacing.
func NewFetcher(cfg config.CollectConfig, log zerolog.Logger) *Fetcher {
	limit := rate.Inf
	if cfg.RateInterval > 0 {
		limit = rate.Every(cfg.RateInterval)
	}
	burst := cfg.RateBurst
	if burst < 1 {
		burst = 1
	}
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &Fetcher{
		client: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        10,
				IdleConnTimeout:     30 * time.Second,
				MaxIdleConnsPerHost: 2,
			},
		},
		limiter:    rate.NewLimiter(limit, burst),
		userAgent:  cfg.UserAgent,
		cookie:     cfg.Cookie,
		maxRetries: cfg.MaxRetries,
		log:        log.With().Str("component", "fetcher").Logger(),
	}
}

// StatusError is returned for non-2xx responses
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("GET %s: unexpected status %d", e.URL, e.StatusCode)
}

// Get downloads url and returns the body
func (f *Fetcher) Get(ctx context.Context, url string) ([]byte, error) {
	var lastErr error
	for attempt := 0; attempt <= f.maxRetries; attempt++ {
		if err := f.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		body, retry, err := f.do(ctx, url)
		if err == nil {
			return body, nil
		}
		lastErr = err
		if !retry {
			break
		}

		f.log.Warn().
			Err(err).
			Str("url", url).
			Int("attempt", attempt+1).
			Msg("Request failed, retrying")
	}
	return nil, lastErr
}

func (f *Fetcher) do(ctx context.Context, url string) ([]byte, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, false, err
	}
	if f.userAgent != "" {
		req.Header.Set("User-Agent", f.userAgent)
	}
	if f.cookie != "" {
		req.Header.Set("Cookie", f.cookie)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		// context cancellation is final
		return nil, ctx.Err() == nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		return nil, true, &StatusError{URL: url, StatusCode: resp.StatusCode}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, false, &StatusError{URL: url, StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, true, err
	}
	return body, false, nil
}
