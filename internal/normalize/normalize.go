// Package normalize maps platform-specific raw records onto the unified
// Post/Comment schema.
package normalize

import (
	"strconv"
	"strings"
	"time"

	"github.com/forum-corpus-pipeline/internal/dates"
	"github.com/forum-corpus-pipeline/internal/models"
)

// Options configures a Normalizer. Now defaults to time.Now and is the
// backfill value for records without a timestamp.
type Options struct {
	Platforms       []string
	AnonymousAuthor string
	Now             func() time.Time
}

// Normalizer converts RawPost records into Posts. It holds no mutable state.
type Normalizer struct {
	platforms map[string]bool
	anonymous string
	now       func() time.Time
}

// New creates a Normalizer for the given options
func New(opts Options) *Normalizer {
	platforms := make(map[string]bool, len(opts.Platforms))
	for _, p := range opts.Platforms {
		platforms[strings.ToLower(strings.TrimSpace(p))] = true
	}
	if len(platforms) == 0 {
		for _, p := range models.DefaultPlatforms {
			platforms[p] = true
		}
	}
	anonymous := opts.AnonymousAuthor
	if anonymous == "" {
		anonymous = models.AnonymousAuthor
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Normalizer{platforms: platforms, anonymous: anonymous, now: now}
}

// Post normalizes one raw post. platformHint fills in a missing platform tag
// (typically derived from the source file name).
//
// It returns a *models.SchemaError when the platform is missing or not
// recognized, or when the title is empty after cleaning. Dropped comments and
// unreadable dates come back as issues; they never fail the record.
func (n *Normalizer) Post(raw models.RawPost, platformHint string) (models.Post, []models.Issue, error) {
	platform := strings.ToLower(strings.TrimSpace(raw.Platform))
	if platform == "" {
		platform = strings.ToLower(strings.TrimSpace(platformHint))
	}
	if platform == "" {
		return models.Post{}, nil, &models.SchemaError{Field: "platform", Message: "platform tag is missing"}
	}
	if !n.platforms[platform] {
		return models.Post{}, nil, &models.SchemaError{
			Platform: platform,
			Field:    "platform",
			Message:  "platform is not recognized",
			Value:    platform,
		}
	}

	// Titles and authors are plain text whenever the record declares a format
	format := ParseFormat(raw.ContentFormat)
	plain := format
	if plain == FormatHTML {
		plain = FormatText
	}

	title := Clean(raw.Title, plain)
	if title == "" {
		return models.Post{}, nil, &models.SchemaError{
			Platform: platform,
			Field:    "title",
			Message:  "title is required",
			Value:    raw.URL,
		}
	}

	var issues []models.Issue
	canonical := CanonicalURL(raw.URL)
	content := Clean(raw.Content, format)

	post := models.Post{
		ID:            PostID(platform, string(raw.ID), canonical, title),
		Platform:      platform,
		PostType:      strings.ToLower(strings.TrimSpace(raw.PostType)),
		Title:         title,
		Content:       content,
		ContentFormat: FormatText,
		Author:        n.author(raw.Author, plain),
		URL:           canonical,
		Subreddit:     strings.TrimSpace(raw.Subreddit),
		Node:          strings.TrimSpace(raw.Node),
		Upvotes:       int(raw.Upvotes),
		IsRelevant:    raw.IsRelevant,
		RelevanceNote: strings.TrimSpace(raw.RelevanceNote),
	}
	if post.Upvotes == 0 && raw.Metadata != nil {
		post.Upvotes = int(raw.Metadata.UpvoteCount)
	}

	now := n.now()
	ref := now
	if raw.ScrapedAt != "" {
		if t, ok := dates.Parse(raw.ScrapedAt, now); ok {
			post.ScrapedAt = dates.Format(t)
			ref = t
		} else {
			post.ScrapedAt = strings.TrimSpace(raw.ScrapedAt)
		}
	}

	var state timestampState
	post.CreatedAt, state = n.timestamp(raw.CreatedAt, ref, now)
	post.DateBackfilled = state == backfilled || raw.DateBackfilled
	if state == unparseable {
		issues = append(issues, models.Issue{
			Kind:     models.IssueUnparseableDate,
			RecordID: post.ID,
			Field:    "created_at",
			Message:  "created_at could not be parsed; kept as-is",
			Value:    raw.CreatedAt,
		})
	}

	post.Comments = make([]models.Comment, 0, len(raw.Comments))
	seen := make(map[string]bool, len(raw.Comments))
	for i, rc := range raw.Comments {
		c, ok := n.comment(rc, post, format, ref, now)
		field := "comments[" + strconv.Itoa(i) + "].content"
		if !ok {
			issues = append(issues, models.Issue{
				Kind:     models.IssueEmptyComment,
				RecordID: post.ID,
				Field:    field,
				Message:  "comment content is empty; excluded",
			})
			continue
		}
		key := c.Author + "\x00" + c.Content
		if seen[key] {
			issues = append(issues, models.Issue{
				Kind:     models.IssueDuplicateComment,
				RecordID: post.ID,
				Field:    field,
				Message:  "comment repeats an earlier one by the same author; excluded",
				Value:    c.Author,
			})
			continue
		}
		seen[key] = true
		post.Comments = append(post.Comments, c)
	}

	counted := 0
	if raw.CommentCount != nil {
		counted = int(*raw.CommentCount)
	} else if raw.Metadata != nil {
		counted = int(raw.Metadata.CommentCount)
	}

	// Embedded comments are authoritative; the counter is only used when
	// nothing was extracted.
	if len(raw.Comments) > 0 {
		post.CommentCount = len(post.Comments)
	} else {
		post.CommentCount = counted
	}

	post.ReportedCommentCount = int(raw.ReportedCommentCount)
	if post.ReportedCommentCount == 0 {
		post.ReportedCommentCount = counted
	}
	if post.ReportedCommentCount == 0 {
		post.ReportedCommentCount = post.CommentCount
	}

	post.Language = strings.ToLower(strings.TrimSpace(raw.Language))
	if post.Language == "" {
		post.Language = detectLanguage(platform, title+" "+content)
	}

	return post, issues, nil
}

// comment normalizes one embedded reply; ok is false when its content is empty
func (n *Normalizer) comment(rc models.RawComment, post models.Post, format string, ref, now time.Time) (models.Comment, bool) {
	if f := ParseFormat(rc.ContentFormat); f != "" {
		format = f
	}
	authorFormat := FormatText
	if format == "" {
		authorFormat = ""
	}
	content := Clean(rc.Content, format)
	if content == "" {
		return models.Comment{}, false
	}
	src := rc.CreatedAt
	if strings.TrimSpace(src) == "" {
		src = rc.CreatedAtText
	}
	created, _ := n.timestamp(src, ref, now)
	return models.Comment{
		PostID:    post.ID,
		PostTitle: post.Title,
		Platform:  post.Platform,
		Author:    n.author(rc.Author, authorFormat),
		Content:   content,
		Upvotes:   int(rc.Upvotes),
		CreatedAt: created,
	}, true
}

type timestampState int

const (
	parsed timestampState = iota
	backfilled
	unparseable
)

// timestamp resolves raw against ref. Empty input is backfilled with now;
// unreadable input is kept verbatim.
func (n *Normalizer) timestamp(raw string, ref, now time.Time) (string, timestampState) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return dates.Format(now), backfilled
	}
	if t, ok := dates.Parse(raw, ref); ok {
		return dates.Format(t), parsed
	}
	return raw, unparseable
}

func (n *Normalizer) author(raw, format string) string {
	if a := Clean(raw, format); a != "" {
		return a
	}
	return n.anonymous
}
