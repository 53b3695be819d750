package stats

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/forum-corpus-pipeline/internal/models"
)

func TestComputeSyntheticCollection(t *testing.T) {
	posts := []models.Post{
		{ID: "zhihu_1", Platform: "zhihu", CreatedAt: "2023-03-01T00:00:00Z", CommentCount: 120, Language: "zh"},
		{ID: "zhihu_2", Platform: "zhihu", CreatedAt: "2023-11-20T08:30:00Z", CommentCount: 100, Language: "zh"},
		{ID: "v2ex_1", Platform: "v2ex", CreatedAt: "2024-02-14T00:00:00Z", CommentCount: 155, Language: "zh"},
	}
	comments := []models.Comment{
		{PostID: "zhihu_1", Platform: "zhihu"},
		{PostID: "zhihu_2", Platform: "zhihu"},
		{PostID: "v2ex_1", Platform: "v2ex"},
		{PostID: "v2ex_1", Platform: "v2ex"},
	}

	s := Compute(posts, comments, Options{MinPostsRequired: 18})

	assert.Equal(t, 3, s.TotalPosts)
	assert.Equal(t, 4, s.TotalComments)
	assert.Equal(t, map[string]int{"zhihu": 2, "v2ex": 1}, s.ByPlatform)
	assert.Equal(t, map[string]int{"2023": 2, "2024": 1}, s.ByYear)
	assert.Equal(t, models.CommentCountStats{Min: 100, Mean: 125, Max: 155}, s.CommentCountStats)
	assert.Equal(t, map[string]int{"zhihu": 2, "v2ex": 2}, s.CommentsByPlatform)
	assert.Equal(t, map[string]int{"zh": 3}, s.ByLanguage)
	assert.Equal(t, 1.33, s.AvgCommentsPerPost)
	assert.Equal(t, "2023-03-01T00:00:00Z", s.DateRange.Earliest)
	assert.Equal(t, "2024-02-14T00:00:00Z", s.DateRange.Latest)
	assert.Zero(t, s.UnparseableDates)
	assert.False(t, s.MeetsMinPosts)
}

func TestComputeBucketsUnparseableDates(t *testing.T) {
	posts := []models.Post{
		{Platform: "v2ex", CreatedAt: "2024-01-01"},
		{Platform: "v2ex", CreatedAt: "上个月某天"},
		{Platform: "reddit", CreatedAt: ""},
	}

	s := Compute(posts, nil, Options{MinPostsRequired: 3})

	assert.Equal(t, map[string]int{"2024": 1}, s.ByYear)
	assert.Equal(t, 2, s.UnparseableDates)
	assert.Len(t, s.ByYear, 1)
	assert.True(t, s.MeetsMinPosts)
}

func TestComputeEmpty(t *testing.T) {
	s := Compute(nil, nil, Options{})

	assert.Zero(t, s.TotalPosts)
	assert.NotNil(t, s.ByPlatform)
	assert.NotNil(t, s.ByYear)
	assert.Equal(t, models.CommentCountStats{}, s.CommentCountStats)
	assert.Empty(t, s.DateRange.Earliest)
	assert.True(t, s.MeetsMinPosts)
}
