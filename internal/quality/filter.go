// Package quality partitions posts into accepted and rejected sets.
package quality

import (
	"fmt"
	"strings"

	"github.com/forum-corpus-pipeline/internal/config"
	"github.com/forum-corpus-pipeline/internal/dates"
	"github.com/forum-corpus-pipeline/internal/models"
)

// Options holds the thresholds a Filter applies
type Options struct {
	MinComments int
	DateRange   config.DateRange
}

// Filter classifies posts. It never modifies the posts it is given.
type Filter struct {
	opts Options
}

// NewFilter creates a filter for the given thresholds
func NewFilter(opts Options) *Filter {
	return &Filter{opts: opts}
}

// Check returns every reason the post fails, or nil when it is accepted
func (f *Filter) Check(p models.Post) []models.RejectionReason {
	var reasons []models.RejectionReason

	// Thread must carry enough discussion
	if p.CommentCount < f.opts.MinComments {
		reasons = append(reasons, models.ReasonBelowMinComments)
	}

	if strings.TrimSpace(p.Title) == "" || !hasContent(p.Comments) {
		reasons = append(reasons, models.ReasonEmptyContent)
	}

	// Unreadable dates are bucketed by statistics, not rejected here
	if t, ok := dates.ParseAbsolute(p.CreatedAt); ok && !f.opts.DateRange.Contains(t) {
		reasons = append(reasons, models.ReasonOutOfRangeDate)
	}

	if p.IsRelevant != nil && !*p.IsRelevant {
		reasons = append(reasons, models.ReasonMarkedIrrelevant)
	}

	return reasons
}

// Partition splits posts into accepted and rejected, preserving order in
// both. Each rejection is also reported as a quality_rejection issue.
func (f *Filter) Partition(posts []models.Post) ([]models.Post, []models.RejectedPost, []models.Issue) {
	accepted := make([]models.Post, 0, len(posts))
	rejected := make([]models.RejectedPost, 0)
	var issues []models.Issue

	for _, p := range posts {
		reasons := f.Check(p)
		if len(reasons) == 0 {
			accepted = append(accepted, p)
			continue
		}
		rejected = append(rejected, models.RejectedPost{Post: p, Reasons: reasons})
		issues = append(issues, models.Issue{
			Kind:     models.IssueQualityRejection,
			RecordID: p.ID,
			Message:  fmt.Sprintf("rejected: %s", joinReasons(reasons)),
			Value:    reasons,
		})
	}
	return accepted, rejected, issues
}

func hasContent(comments []models.Comment) bool {
	for _, c := range comments {
		if strings.TrimSpace(c.Content) != "" {
			return true
		}
	}
	return false
}

func joinReasons(reasons []models.RejectionReason) string {
	parts := make([]string, len(reasons))
	for i, r := range reasons {
		parts[i] = string(r)
	}
	return strings.Join(parts, ", ")
}
