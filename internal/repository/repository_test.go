package repository_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/forum-corpus-pipeline/internal/models"
	"github.com/forum-corpus-pipeline/internal/repository"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
}

func TestRawRepo_LoadDirLayouts(t *testing.T) {
	dir := t.TempDir()
	repo := repository.NewRawRepo()
	ctx := context.Background()

	writeFile(t, dir, "a_array.json", `[{"platform":"zhihu","title":"one"},{"platform":"zhihu","title":"two"}]`)
	writeFile(t, dir, "b_object.json", `{"platform":"v2ex","title":"single"}`)
	writeFile(t, dir, "c_wrapped.json", `{"posts":[{"title":"wrapped"}]}`)
	writeFile(t, dir, "d_lines.jsonl", "{\"title\":\"l1\"}\r\n\r\n{\"title\":\"l2\"}\r\n")
	writeFile(t, dir, "e_bom.json", "\xEF\xBB\xBF[{\"title\":\"bom\"}]")
	writeFile(t, dir, "notes.txt", "ignored")
	writeFile(t, dir, "v2ex_failures_20250610_120000.json", `[{"platform":"v2ex","target":"https://www.v2ex.com/t/1","error":"404"}]`)

	batch, err := repo.LoadDir(ctx, dir)
	if err != nil {
		t.Fatalf("LoadDir failed: %v", err)
	}

	if batch.Files != 5 {
		t.Errorf("Expected 5 files, got %d", batch.Files)
	}
	if len(batch.Issues) != 0 {
		t.Errorf("Expected no issues, got %v", batch.Issues)
	}

	var titles []string
	for _, r := range batch.Records {
		titles = append(titles, r.Post.Title)
	}
	want := "one,two,single,wrapped,l1,l2,bom"
	if got := strings.Join(titles, ","); got != want {
		t.Errorf("Expected titles %s, got %s", want, got)
	}

	last := batch.Records[len(batch.Records)-1]
	if last.Source != "e_bom.json" || last.Record != 1 || last.PlatformHint != "e" {
		t.Errorf("Unexpected provenance: %+v", last)
	}
}

func TestRawRepo_LoadDirDecodeErrors(t *testing.T) {
	dir := t.TempDir()
	repo := repository.NewRawRepo()

	writeFile(t, dir, "v2ex_broken.json", `[{"title":"ok"}, {"title":`)
	writeFile(t, dir, "v2ex_lines.jsonl", "{\"title\":\"good\"}\n{not json}\n{\"title\":\"also good\"}\n")
	writeFile(t, dir, "v2ex_empty.json", "   ")
	writeFile(t, dir, "v2ex_types.json", `[{"title":"fine"}, {"title": 12}]`)

	batch, err := repo.LoadDir(context.Background(), dir)
	if err != nil {
		t.Fatalf("decode problems must not fail the load: %v", err)
	}

	if len(batch.Records) != 3 {
		t.Fatalf("Expected 3 records, got %d", len(batch.Records))
	}
	if len(batch.Issues) != 4 {
		t.Fatalf("Expected 4 issues, got %d: %v", len(batch.Issues), batch.Issues)
	}
	for _, issue := range batch.Issues {
		if issue.Kind != models.IssueDecodeError {
			t.Errorf("Expected decode_error, got %s", issue.Kind)
		}
		if issue.Source == "" {
			t.Error("Issue must name its source file")
		}
	}

	// Line numbers survive for JSON-Lines
	for _, issue := range batch.Issues {
		if issue.Source == "v2ex_lines.jsonl" && issue.Record != 2 {
			t.Errorf("Expected bad line 2, got %d", issue.Record)
		}
	}
}

func TestRawRepo_MissingDir(t *testing.T) {
	repo := repository.NewRawRepo()

	_, err := repo.LoadDir(context.Background(), filepath.Join(t.TempDir(), "missing"))
	var ioErr *models.IOError
	if !errors.As(err, &ioErr) {
		t.Fatalf("Expected IOError, got %v", err)
	}
	if !strings.HasSuffix(ioErr.Path, "missing") {
		t.Errorf("IOError should carry the path, got %q", ioErr.Path)
	}
}

func TestPlatformHint(t *testing.T) {
	tests := map[string]string{
		"zhihu_raw.json":           "zhihu",
		"zhihu_raw_rescrape.json":  "zhihu",
		"V2EX-2024.jsonl":          "v2ex",
		"reddit.json":              "reddit",
		"/tmp/raw/reddit_x.ndjson": "reddit",
	}
	for name, want := range tests {
		if got := repository.PlatformHint(name); got != want {
			t.Errorf("PlatformHint(%q) = %q, want %q", name, got, want)
		}
	}
}

func TestOutputRepo_SaveAndStream(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "processed")
	repo := repository.NewOutputRepo()
	ctx := context.Background()

	out := &models.Output{
		Posts: []models.Post{
			{ID: "zhihu_1", Platform: "zhihu", Title: "程序员 & AI", Comments: []models.Comment{}},
			{ID: "v2ex_2", Platform: "v2ex", Title: "topic", Comments: []models.Comment{}},
		},
		Comments: []models.Comment{
			{PostID: "zhihu_1", Platform: "zhihu", Content: "不会"},
		},
		Statistics: models.Statistics{TotalPosts: 2, TotalComments: 1, ByPlatform: map[string]int{"zhihu": 1, "v2ex": 1}},
	}

	if err := repo.Save(ctx, dir, out); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	for _, name := range []string{
		repository.PostsFile, repository.CommentsFile, repository.StatisticsFile,
		repository.RejectedFile, repository.IssuesFile,
	} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Errorf("Expected %s to exist: %v", name, err)
		}
	}

	raw, _ := os.ReadFile(filepath.Join(dir, repository.PostsFile))
	if !strings.Contains(string(raw), "程序员 & AI") {
		t.Error("Non-ASCII text and & should be written unescaped")
	}
	rejected, _ := os.ReadFile(filepath.Join(dir, repository.RejectedFile))
	if strings.TrimSpace(string(rejected)) != "[]" {
		t.Errorf("Empty collections should be [], got %s", rejected)
	}

	var ids []string
	err := repo.StreamPosts(ctx, dir, func(p *models.Post) error {
		ids = append(ids, p.ID)
		return nil
	})
	if err != nil {
		t.Fatalf("StreamPosts failed: %v", err)
	}
	if strings.Join(ids, ",") != "zhihu_1,v2ex_2" {
		t.Errorf("Unexpected stream order: %v", ids)
	}

	stats, err := repo.Statistics(ctx, dir)
	if err != nil {
		t.Fatalf("Statistics failed: %v", err)
	}
	if stats.ByPlatform["zhihu"] != 1 {
		t.Errorf("Unexpected statistics: %+v", stats)
	}

	leftovers, _ := filepath.Glob(filepath.Join(dir, ".*.tmp-*"))
	if len(leftovers) != 0 {
		t.Errorf("Temporary files left behind: %v", leftovers)
	}
}

func TestOutputRepo_NoOutputYet(t *testing.T) {
	repo := repository.NewOutputRepo()

	_, err := repo.Statistics(context.Background(), t.TempDir())
	if !errors.Is(err, repository.ErrNoOutput) {
		t.Errorf("Expected ErrNoOutput, got %v", err)
	}
	err = repo.StreamComments(context.Background(), t.TempDir(), func(*models.Comment) error { return nil })
	if !errors.Is(err, repository.ErrNoOutput) {
		t.Errorf("Expected ErrNoOutput, got %v", err)
	}
}

func TestOutputRepo_UnwritableDir(t *testing.T) {
	base := t.TempDir()
	blocker := filepath.Join(base, "file")
	writeFile(t, base, "file", "x")

	err := repository.NewOutputRepo().Save(context.Background(), filepath.Join(blocker, "out"), &models.Output{})
	var ioErr *models.IOError
	if !errors.As(err, &ioErr) {
		t.Fatalf("Expected IOError, got %v", err)
	}
}

func TestRunRepo_Lifecycle(t *testing.T) {
	repo := repository.NewRunRepo()
	ctx := context.Background()

	run := &models.Run{ID: "run-1", Status: models.RunStatusPending, IdempotencyKey: "key-1", CreatedAt: time.Now()}
	if err := repo.Create(ctx, run); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	run.Status = models.RunStatusCompleted
	if err := repo.Update(ctx, run); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	stored, _ := repo.GetByID(ctx, "run-1")
	if stored == nil || stored.Status != models.RunStatusCompleted {
		t.Fatalf("Expected completed run, got %+v", stored)
	}

	byKey, _ := repo.GetByIdempotencyKey(ctx, "key-1")
	if byKey == nil || byKey.ID != "run-1" {
		t.Errorf("Expected run by idempotency key, got %+v", byKey)
	}
	if missing, _ := repo.GetByIdempotencyKey(ctx, "nope"); missing != nil {
		t.Error("Unknown key should return nil")
	}

	repo.AddIssues(ctx, "run-1", []models.Issue{{Kind: models.IssueSchemaError}, {Kind: models.IssueDecodeError}})
	issues, _ := repo.GetIssues(ctx, "run-1", 1)
	if len(issues) != 1 {
		t.Errorf("Expected limit to apply, got %d issues", len(issues))
	}
	all, _ := repo.GetIssues(ctx, "run-1", 0)
	if len(all) != 2 {
		t.Errorf("Expected 2 issues, got %d", len(all))
	}
}

func TestRunRepo_ClaimPendingOnce(t *testing.T) {
	repo := repository.NewRunRepo()
	ctx := context.Background()
	now := time.Now()

	repo.Create(ctx, &models.Run{ID: "b", Status: models.RunStatusPending, CreatedAt: now})
	repo.Create(ctx, &models.Run{ID: "a", Status: models.RunStatusPending, CreatedAt: now.Add(-time.Minute)})
	repo.Create(ctx, &models.Run{ID: "c", Status: models.RunStatusCompleted, CreatedAt: now})

	pending, _ := repo.GetPendingRuns(ctx)
	if len(pending) != 2 || pending[0].ID != "a" {
		t.Fatalf("Expected pending runs oldest first, got %+v", pending)
	}

	listed, _ := repo.List(ctx)
	if len(listed) != 3 || listed[len(listed)-1].ID != "a" {
		t.Errorf("Expected all runs newest first, got %+v", listed)
	}

	ok, _ := repo.MarkRunAsProcessing(ctx, "a")
	if !ok {
		t.Fatal("First claim should succeed")
	}
	ok, _ = repo.MarkRunAsProcessing(ctx, "a")
	if ok {
		t.Error("Second claim should fail")
	}
	if ok, _ := repo.MarkRunAsProcessing(ctx, "missing"); ok {
		t.Error("Unknown run cannot be claimed")
	}
}
