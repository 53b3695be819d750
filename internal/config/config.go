package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/forum-corpus-pipeline/internal/models"
)

// Config holds all application configuration
type Config struct {
	// Server configuration
	Server ServerConfig

	// Pipeline thresholds and directories
	Pipeline PipelineConfig

	// Collection (adapter and discovery) settings
	Collect CollectConfig

	// Logging configuration
	Log LogConfig
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

// PipelineConfig holds the settings consumed by normalize, quality and stats
type PipelineConfig struct {
	RawDir             string
	ProcessedDir       string
	MinCommentsPerPost int
	MinPostsRequired   int
	DateRange          DateRange
	Platforms          []string
	AnonymousAuthor    string
}

// DateRange bounds created_at for the quality filter; a zero bound is open
type DateRange struct {
	Start time.Time
	End   time.Time
}

// Contains reports whether t lies inside the range, bounds inclusive.
// End is a calendar day, so the whole day counts.
func (r DateRange) Contains(t time.Time) bool {
	if !r.Start.IsZero() && t.Before(r.Start) {
		return false
	}
	if !r.End.IsZero() && !t.Before(r.End.AddDate(0, 0, 1)) {
		return false
	}
	return true
}

// CollectConfig holds settings for the collaborator layer (adapters, discovery)
type CollectConfig struct {
	RequestTimeout time.Duration
	RateInterval   time.Duration
	RateBurst      int
	MaxRetries     int
	UserAgent      string
	Cookie         string
	Seeds          []Seed
	Keywords       []string
}

// Seed is a discovery starting point: a fixed URL list or a feed
type Seed struct {
	Name     string   `yaml:"name"`
	Platform string   `yaml:"platform"`
	FeedURL  string   `yaml:"feed_url"`
	URLs     []string `yaml:"urls"`
}

// LogConfig holds logging settings
type LogConfig struct {
	Level  string
	Format string // "json" or "pretty"
}

// fileConfig is the optional YAML overlay for list-shaped settings
type fileConfig struct {
	Platforms          []string `yaml:"platforms"`
	MinCommentsPerPost *int     `yaml:"min_comments_per_post"`
	MinPostsRequired   *int     `yaml:"min_posts_required"`
	DateRange          struct {
		Start string `yaml:"start"`
		End   string `yaml:"end"`
	} `yaml:"date_range"`
	Seeds    []Seed   `yaml:"seeds"`
	Keywords []string `yaml:"keywords"`
}

const dateLayout = "2006-01-02"

// Load reads configuration from a .env file (if any), environment variables
// and the optional YAML file named by PIPELINE_CONFIG
func Load() (*Config, error) {
	// Missing .env is fine; the environment may already be populated
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Port:            getEnv("PORT", "8080"),
			ReadTimeout:     getDurationEnv("SERVER_READ_TIMEOUT", 30*time.Second),
			WriteTimeout:    getDurationEnv("SERVER_WRITE_TIMEOUT", 120*time.Second),
			ShutdownTimeout: getDurationEnv("SERVER_SHUTDOWN_TIMEOUT", 30*time.Second),
		},
		Pipeline: PipelineConfig{
			RawDir:             getEnv("RAW_DIR", "./data/raw"),
			ProcessedDir:       getEnv("PROCESSED_DIR", "./data/processed"),
			MinCommentsPerPost: getIntEnv("MIN_COMMENTS_PER_POST", 100),
			MinPostsRequired:   getIntEnv("MIN_POSTS_REQUIRED", 18),
			Platforms:          getListEnv("PLATFORMS", models.DefaultPlatforms),
			AnonymousAuthor:    getEnv("ANONYMOUS_AUTHOR", models.AnonymousAuthor),
		},
		Collect: CollectConfig{
			RequestTimeout: getDurationEnv("REQUEST_TIMEOUT", 30*time.Second),
			RateInterval:   getDurationEnv("REQUEST_INTERVAL", 3*time.Second),
			RateBurst:      getIntEnv("REQUEST_BURST", 1),
			MaxRetries:     getIntEnv("MAX_RETRIES", 3),
			UserAgent:      getEnv("USER_AGENT", "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"),
			Cookie:         getEnv("COOKIE", ""),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
	}

	var err error
	if cfg.Pipeline.DateRange.Start, err = getDateEnv("DATE_RANGE_START"); err != nil {
		return nil, err
	}
	if cfg.Pipeline.DateRange.End, err = getDateEnv("DATE_RANGE_END"); err != nil {
		return nil, err
	}

	if path := os.Getenv("PIPELINE_CONFIG"); path != "" {
		if err := cfg.applyFile(path); err != nil {
			return nil, err
		}
	}

	// Validate required configuration
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// applyFile overlays the YAML pipeline file onto cfg
func (c *Config) applyFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read pipeline config: %w", err)
	}

	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("failed to parse pipeline config %s: %w", path, err)
	}

	if len(fc.Platforms) > 0 {
		c.Pipeline.Platforms = normalizeList(fc.Platforms)
	}
	if fc.MinCommentsPerPost != nil {
		c.Pipeline.MinCommentsPerPost = *fc.MinCommentsPerPost
	}
	if fc.MinPostsRequired != nil {
		c.Pipeline.MinPostsRequired = *fc.MinPostsRequired
	}
	if fc.DateRange.Start != "" {
		t, err := time.Parse(dateLayout, fc.DateRange.Start)
		if err != nil {
			return fmt.Errorf("date_range.start must be YYYY-MM-DD: %w", err)
		}
		c.Pipeline.DateRange.Start = t
	}
	if fc.DateRange.End != "" {
		t, err := time.Parse(dateLayout, fc.DateRange.End)
		if err != nil {
			return fmt.Errorf("date_range.end must be YYYY-MM-DD: %w", err)
		}
		c.Pipeline.DateRange.End = t
	}
	c.Collect.Seeds = append(c.Collect.Seeds, fc.Seeds...)
	c.Collect.Keywords = append(c.Collect.Keywords, fc.Keywords...)
	return nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Pipeline.MinCommentsPerPost < 0 {
		return fmt.Errorf("MIN_COMMENTS_PER_POST must not be negative")
	}
	if c.Pipeline.MinPostsRequired < 0 {
		return fmt.Errorf("MIN_POSTS_REQUIRED must not be negative")
	}
	if len(c.Pipeline.Platforms) == 0 {
		return fmt.Errorf("at least one platform is required")
	}
	r := c.Pipeline.DateRange
	if !r.Start.IsZero() && !r.End.IsZero() && r.End.Before(r.Start) {
		return fmt.Errorf("date range end %s is before start %s",
			r.End.Format(dateLayout), r.Start.Format(dateLayout))
	}
	return nil
}

// Helper functions for environment variable parsing

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getListEnv(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		return normalizeList(strings.Split(value, ","))
	}
	out := make([]string, len(defaultValue))
	copy(out, defaultValue)
	return out
}

func getDateEnv(key string) (time.Time, error) {
	value := os.Getenv(key)
	if value == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(dateLayout, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("%s must be YYYY-MM-DD: %w", key, err)
	}
	return t, nil
}

func normalizeList(values []string) []string {
	var out []string
	for _, v := range values {
		v = strings.ToLower(strings.TrimSpace(v))
		if v != "" {
			out = append(out, v)
		}
	}
	return out
}
