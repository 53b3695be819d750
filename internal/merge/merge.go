// Package merge combines per-platform post groups into the unified posts
// and flattened comments collections.
package merge

import (
	"strings"

	"github.com/forum-corpus-pipeline/internal/dedup"
	"github.com/forum-corpus-pipeline/internal/models"
)

// Result is one unified collection
type Result struct {
	Posts             []models.Post
	Comments          []models.Comment
	Issues            []models.Issue
	DuplicatePosts    int
	DuplicateComments int
}

// Merge concatenates groups in the order given, deduplicates posts across
// them and flattens embedded comments. Blank or repeated comments are
// dropped from both the flattened list and the post that embeds them.
//
// Dedup runs again on the combined input, so merging an already merged
// collection returns it unchanged.
func Merge(groups ...[]models.Post) Result {
	var all []models.Post
	for _, g := range groups {
		all = append(all, g...)
	}

	posts, issues := dedup.Posts(all)

	var flat []models.Comment
	droppedComments := 0
	for i, p := range posts {
		if len(p.Comments) == 0 {
			continue
		}
		kept := make([]models.Comment, 0, len(p.Comments))
		for _, c := range p.Comments {
			if strings.TrimSpace(c.Content) == "" {
				continue
			}
			c.PostID = p.ID
			c.PostTitle = p.Title
			c.Platform = p.Platform
			kept = append(kept, c)
		}
		blank := len(p.Comments) - len(kept)
		kept, dropped := dedup.Comments(kept)
		droppedComments += dropped

		// Embedded comments and comment_count follow what gets flattened
		if removed := blank + dropped; removed > 0 {
			p.Comments = kept
			p.CommentCount = max(p.CommentCount-removed, len(kept))
			posts[i] = p
		}
		flat = append(flat, kept...)
	}
	comments, crossPost := dedup.Comments(flat)
	droppedComments += crossPost

	return Result{
		Posts:             posts,
		Comments:          comments,
		Issues:            issues,
		DuplicatePosts:    len(all) - len(posts),
		DuplicateComments: droppedComments,
	}
}

// GroupByPlatform splits posts into per-platform groups following order.
// Platforms missing from order follow in first-seen order. Within a group
// the input order is kept.
func GroupByPlatform(posts []models.Post, order []string) [][]models.Post {
	index := make(map[string]int, len(order))
	groups := make([][]models.Post, 0, len(order))
	for _, platform := range order {
		if _, ok := index[platform]; ok {
			continue
		}
		index[platform] = len(groups)
		groups = append(groups, nil)
	}
	for _, p := range posts {
		i, ok := index[p.Platform]
		if !ok {
			i = len(groups)
			index[p.Platform] = i
			groups = append(groups, nil)
		}
		groups[i] = append(groups[i], p)
	}

	out := groups[:0]
	for _, g := range groups {
		if len(g) > 0 {
			out = append(out, g)
		}
	}
	return out
}
