package models

// Statistics is the content of data_statistics.json
type Statistics struct {
	TotalPosts         int               `json:"total_posts"`
	TotalComments      int               `json:"total_comments"`
	ByPlatform         map[string]int    `json:"by_platform"`
	ByYear             map[string]int    `json:"by_year"`
	CommentCountStats  CommentCountStats `json:"comment_count_stats"`
	UnparseableDates   int               `json:"unparseable_dates"` // UNPARSEABLE_DATE bucket
	CommentsByPlatform map[string]int    `json:"comments_by_platform"`
	ByLanguage         map[string]int    `json:"by_language"`
	AvgCommentsPerPost float64           `json:"avg_comments_per_post"`
	DateRange          DateSpan          `json:"date_range"`
	MinPostsRequired   int               `json:"min_posts_required"`
	MeetsMinPosts      bool              `json:"meets_min_posts"`
}

// CommentCountStats summarizes Post.CommentCount over the collection
type CommentCountStats struct {
	Min  int     `json:"min"`
	Mean float64 `json:"mean"`
	Max  int     `json:"max"`
}

// DateSpan is the earliest and latest parseable created_at (RFC3339)
type DateSpan struct {
	Earliest string `json:"earliest"`
	Latest   string `json:"latest"`
}
