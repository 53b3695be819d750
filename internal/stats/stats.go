// Package stats computes the collection summary written to
// data_statistics.json.
package stats

import (
	"math"
	"strconv"
	"time"

	"github.com/forum-corpus-pipeline/internal/dates"
	"github.com/forum-corpus-pipeline/internal/models"
)

// Options configures Compute
type Options struct {
	MinPostsRequired int
}

// Compute tallies posts and comments. Posts whose created_at cannot be
// parsed are counted in UnparseableDates instead of a year.
func Compute(posts []models.Post, comments []models.Comment, opts Options) models.Statistics {
	s := models.Statistics{
		TotalPosts:         len(posts),
		TotalComments:      len(comments),
		ByPlatform:         make(map[string]int),
		ByYear:             make(map[string]int),
		CommentsByPlatform: make(map[string]int),
		ByLanguage:         make(map[string]int),
		MinPostsRequired:   opts.MinPostsRequired,
	}

	var earliest, latest time.Time
	sum := 0
	for i, p := range posts {
		s.ByPlatform[p.Platform]++
		if p.Language != "" {
			s.ByLanguage[p.Language]++
		}

		if t, ok := dates.ParseAbsolute(p.CreatedAt); ok {
			s.ByYear[strconv.Itoa(t.UTC().Year())]++
			if earliest.IsZero() || t.Before(earliest) {
				earliest = t
			}
			if latest.IsZero() || t.After(latest) {
				latest = t
			}
		} else {
			s.UnparseableDates++
		}

		sum += p.CommentCount
		if i == 0 || p.CommentCount < s.CommentCountStats.Min {
			s.CommentCountStats.Min = p.CommentCount
		}
		if p.CommentCount > s.CommentCountStats.Max {
			s.CommentCountStats.Max = p.CommentCount
		}
	}
	for _, c := range comments {
		s.CommentsByPlatform[c.Platform]++
	}

	if len(posts) > 0 {
		s.CommentCountStats.Mean = round2(float64(sum) / float64(len(posts)))
		s.AvgCommentsPerPost = round2(float64(len(comments)) / float64(len(posts)))
	}
	if !earliest.IsZero() {
		s.DateRange = models.DateSpan{Earliest: dates.Format(earliest), Latest: dates.Format(latest)}
	}
	s.MeetsMinPosts = len(posts) >= opts.MinPostsRequired

	return s
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
