package dedup

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/forum-corpus-pipeline/internal/models"
)

func post(id, platform, url string, comments int) models.Post {
	return models.Post{
		ID:           id,
		Platform:     platform,
		Title:        "title " + id,
		URL:          url,
		CommentCount: comments,
	}
}

func TestPosts(t *testing.T) {
	tests := []struct {
		name       string
		input      []models.Post
		wantIDs    []string
		wantIssues int
	}{
		{
			name:    "empty input",
			input:   nil,
			wantIDs: []string{},
		},
		{
			name: "no duplicates keeps order",
			input: []models.Post{
				post("zhihu_2", "zhihu", "https://zhihu.com/question/2", 100),
				post("zhihu_1", "zhihu", "https://zhihu.com/question/1", 100),
				post("v2ex_1", "v2ex", "https://v2ex.com/t/1", 100),
			},
			wantIDs: []string{"zhihu_2", "zhihu_1", "v2ex_1"},
		},
		{
			name: "query string and trailing slash ignored",
			input: []models.Post{
				post("zhihu_1", "zhihu", "https://zhihu.com/question/1?foo=bar", 150),
				post("zhihu_1", "zhihu", "https://zhihu.com/question/1/", 150),
				post("zhihu_1", "zhihu", "https://www.zhihu.com/question/1", 150),
			},
			wantIDs: []string{"zhihu_1"},
		},
		{
			name: "same url on different platforms is not a duplicate",
			input: []models.Post{
				post("zhihu_a", "zhihu", "https://example.com/x", 1),
				post("v2ex_a", "v2ex", "https://example.com/x", 1),
			},
			wantIDs: []string{"zhihu_a", "v2ex_a"},
		},
		{
			name: "posts without url dedup on id",
			input: []models.Post{
				post("v2ex_9", "v2ex", "", 1),
				post("v2ex_9", "v2ex", "", 1),
				post("v2ex_10", "v2ex", "", 1),
			},
			wantIDs: []string{"v2ex_9", "v2ex_10"},
		},
		{
			name: "conflicting duplicate reported",
			input: []models.Post{
				post("zhihu_1", "zhihu", "https://zhihu.com/question/1", 150),
				post("zhihu_1", "zhihu", "https://zhihu.com/question/1", 180),
			},
			wantIDs:    []string{"zhihu_1"},
			wantIssues: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, issues := Posts(tt.input)

			ids := make([]string, 0, len(got))
			for _, p := range got {
				ids = append(ids, p.ID)
			}
			assert.Equal(t, tt.wantIDs, ids)
			assert.Len(t, issues, tt.wantIssues)
			assert.LessOrEqual(t, len(got), len(tt.input))
		})
	}
}

// First-seen wins even when the later scrape carries fresher data. A
// rescrape with a higher comment_count is discarded; callers that need the
// latest values must order inputs newest-first.
func TestPostsFirstSeenWinsOnConflict(t *testing.T) {
	older := post("zhihu_1", "zhihu", "https://zhihu.com/question/1", 150)
	older.ScrapedAt = "2024-01-01T00:00:00Z"
	newer := post("zhihu_1", "zhihu", "https://zhihu.com/question/1", 220)
	newer.ScrapedAt = "2024-06-01T00:00:00Z"

	got, issues := Posts([]models.Post{older, newer})
	require.Len(t, got, 1)
	assert.Equal(t, 150, got[0].CommentCount)
	assert.Equal(t, "2024-01-01T00:00:00Z", got[0].ScrapedAt)

	require.Len(t, issues, 1)
	assert.Equal(t, models.IssueDuplicateConflict, issues[0].Kind)
	assert.Equal(t, "comment_count", issues[0].Field)
}

func TestPostsTimestampDifferencesAreNotConflicts(t *testing.T) {
	a := post("v2ex_1", "v2ex", "https://v2ex.com/t/1", 10)
	a.CreatedAt = "2024-01-01T00:00:00Z"
	b := a
	b.CreatedAt = "2024-01-02T00:00:00Z"
	b.ScrapedAt = "2024-01-03T00:00:00Z"

	got, issues := Posts([]models.Post{a, b})
	assert.Len(t, got, 1)
	assert.Empty(t, issues)
}

func TestPostsNoSharedKeys(t *testing.T) {
	var input []models.Post
	for i := 0; i < 50; i++ {
		url := fmt.Sprintf("https://v2ex.com/t/%d", i%7)
		if i%2 == 0 {
			url += "?p=2"
		}
		input = append(input, post(fmt.Sprintf("v2ex_%d", i%7), "v2ex", url, i))
	}

	got, _ := Posts(input)
	assert.Len(t, got, 7)

	keys := make(map[string]bool)
	for _, p := range got {
		k := PostKey(p)
		assert.False(t, keys[k], "duplicate key %q", k)
		keys[k] = true
	}
}

func TestComments(t *testing.T) {
	input := []models.Comment{
		{PostID: "zhihu_1", Author: "a", Content: "同意", Upvotes: 3},
		{PostID: "zhihu_1", Author: "b", Content: "同意"},
		{PostID: "zhihu_1", Author: "a", Content: "同意", Upvotes: 5},
		{PostID: "zhihu_2", Author: "a", Content: "同意"},
		{PostID: "zhihu_1", Author: "a", Content: "同意 "},
	}

	got, dropped := Comments(input)
	require.Len(t, got, 4)
	assert.Equal(t, 1, dropped)
	assert.Equal(t, 3, got[0].Upvotes)
	assert.Equal(t, "b", got[1].Author)
	assert.Equal(t, "zhihu_2", got[2].PostID)
	// Exact match only; whitespace variants are the normalizer's job
	assert.Equal(t, "同意 ", got[3].Content)
}
