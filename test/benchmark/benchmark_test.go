package benchmark

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/forum-corpus-pipeline/internal/config"
	"github.com/forum-corpus-pipeline/internal/dedup"
	"github.com/forum-corpus-pipeline/internal/merge"
	"github.com/forum-corpus-pipeline/internal/models"
	"github.com/forum-corpus-pipeline/internal/normalize"
	"github.com/forum-corpus-pipeline/internal/quality"
	"github.com/forum-corpus-pipeline/internal/repository"
	"github.com/forum-corpus-pipeline/internal/service"
	"github.com/forum-corpus-pipeline/internal/stats"
)

const (
	benchPosts    = 300
	benchComments = 120
)

var benchNow = time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC)

// rawPosts builds raw records spread over the default platforms; every
// fifth record repeats an earlier one as a re-scrape would
func rawPosts(n int) []models.RawPost {
	out := make([]models.RawPost, 0, n)
	for i := 0; i < n; i++ {
		id := i
		if i%5 == 4 {
			id = i - 1
		}
		platform := models.DefaultPlatforms[id%len(models.DefaultPlatforms)]
		comments := make([]models.RawComment, benchComments)
		for j := range comments {
			comments[j] = models.RawComment{
				Author:    fmt.Sprintf("user%d", j),
				Content:   fmt.Sprintf("<p>reply %d to thread %d</p>", j, id),
				Upvotes:   models.FlexInt(j % 7),
				CreatedAt: "2024-11-20 10:00",
			}
		}
		out = append(out, models.RawPost{
			ID:        models.FlexString(fmt.Sprintf("%d", 100000+id)),
			Platform:  platform,
			Title:     fmt.Sprintf("AI 会取代程序员吗 #%d", id),
			Content:   "讨论 <b>AI</b> 编程工具",
			URL:       fmt.Sprintf("https://example.com/t/%d?utm_source=x", id),
			CreatedAt: "3天前",
			ScrapedAt: "2024-11-20T08:00:00Z",
			Comments:  comments,
		})
	}
	return out
}

func normalized(b *testing.B) []models.Post {
	b.Helper()
	n := normalize.New(normalize.Options{Now: func() time.Time { return benchNow }})
	var posts []models.Post
	for _, raw := range rawPosts(benchPosts) {
		p, _, err := n.Post(raw, "")
		if err != nil {
			b.Fatal(err)
		}
		posts = append(posts, p)
	}
	return posts
}

// BenchmarkNormalize benchmarks raw record normalization
func BenchmarkNormalize(b *testing.B) {
	raws := rawPosts(benchPosts)
	n := normalize.New(normalize.Options{Now: func() time.Time { return benchNow }})

	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		for _, raw := range raws {
			if _, _, err := n.Post(raw, ""); err != nil {
				b.Fatal(err)
			}
		}
	}

	b.ReportMetric(float64(benchPosts*b.N)/b.Elapsed().Seconds(), "posts/sec")
}

// BenchmarkDedupPosts benchmarks first-seen deduplication
func BenchmarkDedupPosts(b *testing.B) {
	posts := normalized(b)

	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		dedup.Posts(posts)
	}
}

// BenchmarkQualityPartition benchmarks the quality filter
func BenchmarkQualityPartition(b *testing.B) {
	posts, _ := dedup.Posts(normalized(b))
	filter := quality.NewFilter(quality.Options{
		MinComments: 100,
		DateRange: config.DateRange{
			Start: time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC),
			End:   time.Date(2025, 12, 31, 0, 0, 0, 0, time.UTC),
		},
	})

	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		filter.Partition(posts)
	}
}

// BenchmarkMergeAndStatistics benchmarks merge plus statistics
func BenchmarkMergeAndStatistics(b *testing.B) {
	groups := merge.GroupByPlatform(normalized(b), models.DefaultPlatforms)

	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		res := merge.Merge(groups...)
		stats.Compute(res.Posts, res.Comments, stats.Options{MinPostsRequired: 18})
	}

	b.ReportMetric(float64(benchPosts*benchComments*b.N)/b.Elapsed().Seconds(), "comments/sec")
}

// BenchmarkPipelineRun benchmarks a full run over files on disk
func BenchmarkPipelineRun(b *testing.B) {
	rawDir := b.TempDir()
	raws := rawPosts(benchPosts)
	for i, platform := range models.DefaultPlatforms {
		var group []models.RawPost
		for j, r := range raws {
			if j%len(models.DefaultPlatforms) == i {
				group = append(group, r)
			}
		}
		data, err := json.Marshal(group)
		if err != nil {
			b.Fatal(err)
		}
		if err := os.WriteFile(filepath.Join(rawDir, platform+"_raw.json"), data, 0o644); err != nil {
			b.Fatal(err)
		}
	}

	cfg := &config.Config{Pipeline: config.PipelineConfig{
		RawDir:             rawDir,
		ProcessedDir:       b.TempDir(),
		MinCommentsPerPost: 100,
		MinPostsRequired:   18,
		Platforms:          models.DefaultPlatforms,
	}}
	services := service.NewServices(repository.New(), cfg, zerolog.Nop())
	ctx := context.Background()

	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		run, err := services.Run.CreateRun(ctx, &models.RunRequest{})
		if err != nil {
			b.Fatal(err)
		}
		if err := services.Pipeline.ProcessRun(ctx, run); err != nil {
			b.Fatal(err)
		}
	}
}
