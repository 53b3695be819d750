package service_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/forum-corpus-pipeline/internal/config"
	"github.com/forum-corpus-pipeline/internal/models"
	"github.com/forum-corpus-pipeline/internal/repository"
	"github.com/forum-corpus-pipeline/internal/service"
)

type pipelineHarness struct {
	services     *service.Services
	repos        *repository.Repositories
	rawDir       string
	processedDir string
}

func newPipelineHarness(t *testing.T) *pipelineHarness {
	t.Helper()

	base := t.TempDir()
	rawDir := filepath.Join(base, "raw")
	processedDir := filepath.Join(base, "processed")
	require.NoError(t, os.MkdirAll(rawDir, 0o755))

	cfg := &config.Config{
		Pipeline: config.PipelineConfig{
			RawDir:             rawDir,
			ProcessedDir:       processedDir,
			MinCommentsPerPost: 100,
			MinPostsRequired:   18,
			Platforms:          models.DefaultPlatforms,
			AnonymousAuthor:    models.AnonymousAuthor,
		},
	}

	repos := repository.New()
	return &pipelineHarness{
		services:     service.NewServices(repos, cfg, zerolog.Nop()),
		repos:        repos,
		rawDir:       rawDir,
		processedDir: processedDir,
	}
}

func (h *pipelineHarness) writeRaw(t *testing.T, name string, v interface{}) {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(h.rawDir, name), data, 0o644))
}

func (h *pipelineHarness) newRun(t *testing.T) *models.Run {
	t.Helper()
	run := &models.Run{
		ID:           "integration-test-run",
		Status:       models.RunStatusPending,
		RawDir:       h.rawDir,
		ProcessedDir: h.processedDir,
		CreatedAt:    time.Now(),
	}
	require.NoError(t, h.repos.Run.Create(context.Background(), run))
	return run
}

func (h *pipelineHarness) readOutput(t *testing.T, name string, v interface{}) {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(h.processedDir, name))
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, v))
}

func rawThread(url string, comments int) map[string]interface{} {
	replies := make([]map[string]interface{}, 0, comments)
	for i := 0; i < comments; i++ {
		replies = append(replies, map[string]interface{}{
			"author":  fmt.Sprintf("用户%d", i),
			"content": fmt.Sprintf("第%d条回答：AI 只是工具", i),
			"upvotes": i,
		})
	}
	return map[string]interface{}{
		"platform": "zhihu",
		"title":    "ChatGPT 会取代程序员吗？",
		"url":      url,
		"comments": replies,
	}
}

func TestProcessRun_RescrapeYieldsOnePost(t *testing.T) {
	h := newPipelineHarness(t)
	h.writeRaw(t, "zhihu_raw.json", []interface{}{rawThread("https://zhihu.com/question/1?foo=bar", 150)})
	h.writeRaw(t, "zhihu_raw_rescrape.json", []interface{}{rawThread("https://zhihu.com/question/1", 150)})

	run := h.newRun(t)
	require.NoError(t, h.services.Pipeline.ProcessRun(context.Background(), run))

	assert.Equal(t, models.RunStatusCompleted, run.Status)
	assert.Equal(t, 2, run.RawFiles)
	assert.Equal(t, 2, run.NormalizedPosts)
	assert.Equal(t, 1, run.DuplicatePosts)
	assert.Equal(t, 1, run.AcceptedPosts)
	assert.Equal(t, 150, run.TotalComments)
	assert.False(t, run.MeetsMinPosts)

	var posts []models.Post
	h.readOutput(t, repository.PostsFile, &posts)
	require.Len(t, posts, 1)
	assert.Equal(t, "zhihu_1", posts[0].ID)
	assert.Equal(t, "https://zhihu.com/question/1", posts[0].URL)

	var comments []models.Comment
	h.readOutput(t, repository.CommentsFile, &comments)
	assert.Len(t, comments, 150)
	assert.Equal(t, "zhihu_1", comments[0].PostID)
	assert.Equal(t, "ChatGPT 会取代程序员吗?", comments[0].PostTitle)

	var stats models.Statistics
	h.readOutput(t, repository.StatisticsFile, &stats)
	assert.Equal(t, 1, stats.TotalPosts)
	assert.Equal(t, 150, stats.TotalComments)
	assert.Equal(t, map[string]int{"zhihu": 1}, stats.ByPlatform)
	assert.Equal(t, 18, stats.MinPostsRequired)
}

func TestProcessRun_RecordErrorsDoNotAbort(t *testing.T) {
	h := newPipelineHarness(t)
	h.writeRaw(t, "v2ex_raw.json", []interface{}{
		map[string]interface{}{"title": "no platform tag, hint from file name", "url": "https://v2ex.com/t/1", "comment_count": 120,
			"comments": []map[string]interface{}{{"content": "有用"}}},
		map[string]interface{}{"platform": "myspace", "title": "unknown platform"},
		map[string]interface{}{"platform": "v2ex", "content": "missing title"},
	})
	require.NoError(t, os.WriteFile(filepath.Join(h.rawDir, "reddit_broken.json"), []byte(`[{"title":`), 0o644))

	run := h.newRun(t)
	require.NoError(t, h.services.Pipeline.ProcessRun(context.Background(), run))

	assert.Equal(t, models.RunStatusCompleted, run.Status)
	assert.Equal(t, 2, run.SchemaErrors)
	assert.Equal(t, 1, run.NormalizedPosts)
	// One embedded comment counts, not the page counter of 120
	assert.Equal(t, 1, run.RejectedPosts)
	assert.Zero(t, run.AcceptedPosts)

	issues, err := h.services.Run.GetRunIssues(context.Background(), run.ID)
	require.NoError(t, err)

	kinds := make(map[models.IssueKind]int)
	for _, issue := range issues {
		kinds[issue.Kind]++
	}
	assert.Equal(t, 2, kinds[models.IssueSchemaError])
	assert.Equal(t, 1, kinds[models.IssueDecodeError])
	assert.Equal(t, 1, kinds[models.IssueQualityRejection])
	assert.Equal(t, len(issues), run.IssueCount)

	var rejected []models.RejectedPost
	h.readOutput(t, repository.RejectedFile, &rejected)
	require.Len(t, rejected, 1)
	assert.Equal(t, "v2ex", rejected[0].Post.Platform)
	assert.True(t, rejected[0].HasReason(models.ReasonBelowMinComments))

	var stored []models.Issue
	h.readOutput(t, repository.IssuesFile, &stored)
	assert.Len(t, stored, len(issues))
	for _, issue := range stored {
		if issue.Kind == models.IssueSchemaError {
			assert.Equal(t, "v2ex_raw.json", issue.Source)
			assert.NotZero(t, issue.Record)
		}
	}
}

func TestProcessRun_MissingRawDir(t *testing.T) {
	h := newPipelineHarness(t)
	run := h.newRun(t)
	run.RawDir = filepath.Join(h.rawDir, "does-not-exist")

	err := h.services.Pipeline.ProcessRun(context.Background(), run)

	var ioErr *models.IOError
	require.True(t, errors.As(err, &ioErr))
	assert.Equal(t, run.RawDir, ioErr.Path)
	assert.Equal(t, models.RunStatusFailed, run.Status)
	assert.NotEmpty(t, run.Error)

	stored, _ := h.repos.Run.GetByID(context.Background(), run.ID)
	require.NotNil(t, stored)
	assert.Equal(t, models.RunStatusFailed, stored.Status)
}

func TestProcessRun_UnwritableOutput(t *testing.T) {
	h := newPipelineHarness(t)
	h.writeRaw(t, "zhihu_raw.json", []interface{}{rawThread("https://zhihu.com/question/9", 100)})

	blocker := filepath.Join(t.TempDir(), "blocker")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o644))

	run := h.newRun(t)
	run.ProcessedDir = filepath.Join(blocker, "processed")

	err := h.services.Pipeline.ProcessRun(context.Background(), run)

	var ioErr *models.IOError
	require.True(t, errors.As(err, &ioErr))
	assert.True(t, strings.HasPrefix(ioErr.Path, blocker))
	assert.Equal(t, models.RunStatusFailed, run.Status)
}

func TestProcessRun_MergesPlatformsInConfiguredOrder(t *testing.T) {
	h := newPipelineHarness(t)
	reddit := rawThread("https://reddit.com/r/programming/comments/abc/x", 100)
	reddit["platform"] = "reddit"
	v2ex := rawThread("https://v2ex.com/t/77", 100)
	v2ex["platform"] = "v2ex"

	h.writeRaw(t, "a_mixed.json", []interface{}{reddit, v2ex, rawThread("https://zhihu.com/question/5", 100)})

	run := h.newRun(t)
	require.NoError(t, h.services.Pipeline.ProcessRun(context.Background(), run))

	var posts []models.Post
	h.readOutput(t, repository.PostsFile, &posts)
	require.Len(t, posts, 3)
	assert.Equal(t, "zhihu", posts[0].Platform)
	assert.Equal(t, "v2ex", posts[1].Platform)
	assert.Equal(t, "reddit", posts[2].Platform)
	assert.Equal(t, 300, run.TotalComments)
}
