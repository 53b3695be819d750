// Package dedup collapses repeated posts and comments across scrapes.
// The first occurrence of a key always wins; later duplicates are dropped
// whole, never merged field by field.
package dedup

import (
	"fmt"
	"strings"

	"github.com/forum-corpus-pipeline/internal/models"
	"github.com/forum-corpus-pipeline/internal/normalize"
)

// PostKey is the equality key for posts: platform plus canonical URL.
// Posts without a URL fall back to their id.
func PostKey(p models.Post) string {
	if u := normalize.CanonicalURL(p.URL); u != "" {
		return p.Platform + "\x00" + u
	}
	return p.Platform + "\x00id:" + p.ID
}

// CommentKey is the equality key for comments. Content is compared
// exactly; it is expected to be cleaned already.
func CommentKey(c models.Comment) string {
	return c.PostID + "\x00" + c.Author + "\x00" + c.Content
}

// Posts removes duplicate posts, preserving first-seen order. A
// duplicate_conflict issue is reported when a dropped duplicate disagrees
// with the kept record on a compared field.
func Posts(posts []models.Post) ([]models.Post, []models.Issue) {
	out := make([]models.Post, 0, len(posts))
	seen := make(map[string]int, len(posts))
	var issues []models.Issue

	for _, p := range posts {
		key := PostKey(p)
		idx, dup := seen[key]
		if !dup {
			seen[key] = len(out)
			out = append(out, p)
			continue
		}
		if fields := conflictingFields(out[idx], p); len(fields) > 0 {
			issues = append(issues, models.Issue{
				Kind:     models.IssueDuplicateConflict,
				RecordID: out[idx].ID,
				Field:    strings.Join(fields, ","),
				Message:  fmt.Sprintf("duplicate of %s differs on %s; first-seen kept", out[idx].ID, strings.Join(fields, ", ")),
				Value:    p.ID,
			})
		}
	}
	return out, issues
}

// Comments removes duplicate comments, preserving first-seen order, and
// returns how many were dropped.
func Comments(comments []models.Comment) ([]models.Comment, int) {
	out := make([]models.Comment, 0, len(comments))
	seen := make(map[string]bool, len(comments))
	for _, c := range comments {
		key := CommentKey(c)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, c)
	}
	return out, len(comments) - len(out)
}

// conflictingFields lists the non-key fields on which b disagrees with a.
// Timestamps are not compared: re-scrapes routinely differ there.
func conflictingFields(a, b models.Post) []string {
	var fields []string
	if a.ID != b.ID {
		fields = append(fields, "id")
	}
	if a.Title != b.Title {
		fields = append(fields, "title")
	}
	if a.Content != b.Content {
		fields = append(fields, "content")
	}
	if a.Author != b.Author {
		fields = append(fields, "author")
	}
	if a.CommentCount != b.CommentCount {
		fields = append(fields, "comment_count")
	}
	if a.Upvotes != b.Upvotes {
		fields = append(fields, "upvotes")
	}
	if !sameRelevance(a.IsRelevant, b.IsRelevant) {
		fields = append(fields, "is_relevant")
	}
	return fields
}

func sameRelevance(a, b *bool) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
