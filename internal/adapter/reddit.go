package adapter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/forum-corpus-pipeline/internal/models"
)

const redditBaseURL = "https://www.reddit.com"

// RedditAdapter reads a thread through the public .json endpoint
type RedditAdapter struct {
	fetcher *Fetcher
	now     func() time.Time
}

// NewRedditAdapter creates a RedditAdapter
func NewRedditAdapter(fetcher *Fetcher) *RedditAdapter {
	return &RedditAdapter{fetcher: fetcher, now: time.Now}
}

func (a *RedditAdapter) Platform() string { return models.PlatformReddit }

type redditListing struct {
	Data struct {
		Children []redditChild `json:"children"`
	} `json:"data"`
}

type redditChild struct {
	Kind string      `json:"kind"`
	Data redditThing `json:"data"`
}

type redditThing struct {
	ID          string  `json:"id"`
	Title       string  `json:"title"`
	Selftext    string  `json:"selftext"`
	Body        string  `json:"body"`
	Author      string  `json:"author"`
	Subreddit   string  `json:"subreddit"`
	Permalink   string  `json:"permalink"`
	Score       int     `json:"score"`
	NumComments int     `json:"num_comments"`
	CreatedUTC  float64 `json:"created_utc"`
}

// Fetch downloads <target>.json: the first listing holds the post, the
// second its top-level comments
func (a *RedditAdapter) Fetch(ctx context.Context, target string) (*models.RawPost, error) {
	endpoint, err := redditJSONURL(target)
	if err != nil {
		return nil, failure(models.PlatformReddit, target, err)
	}

	body, err := a.fetcher.Get(ctx, endpoint)
	if err != nil {
		return nil, failure(models.PlatformReddit, target, err)
	}

	var listings []redditListing
	if err := json.Unmarshal(body, &listings); err != nil {
		return nil, failure(models.PlatformReddit, target, fmt.Errorf("decode listing: %w", err))
	}
	post, err := redditPost(listings)
	if err != nil {
		return nil, failure(models.PlatformReddit, target, err)
	}
	post.ScrapedAt = scrapedAt(a.now)
	return post, nil
}

func redditJSONURL(target string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(target))
	if err != nil || u.Host == "" {
		return "", fmt.Errorf("invalid reddit url %q", target)
	}
	u.RawQuery = ""
	u.Fragment = ""
	u.Path = strings.TrimSuffix(u.Path, "/")
	if !strings.HasSuffix(u.Path, ".json") {
		u.Path += ".json"
	}
	return u.String(), nil
}

func redditPost(listings []redditListing) (*models.RawPost, error) {
	if len(listings) == 0 || len(listings[0].Data.Children) == 0 {
		return nil, errors.New("listing has no post")
	}
	head := listings[0].Data.Children[0]
	if head.Kind != "t3" {
		return nil, fmt.Errorf("expected post (t3), got %q", head.Kind)
	}
	t := head.Data
	if strings.TrimSpace(t.Title) == "" {
		return nil, errors.New("post has no title")
	}

	count := models.FlexInt(t.NumComments)
	post := &models.RawPost{
		ID:                   models.FlexString(t.ID),
		Platform:             models.PlatformReddit,
		PostType:             "post",
		Title:                t.Title,
		Content:              t.Selftext,
		ContentFormat:        models.FormatText,
		Author:               t.Author,
		URL:                  redditBaseURL + t.Permalink,
		CreatedAt:            unixTime(t.CreatedUTC),
		Subreddit:            t.Subreddit,
		Upvotes:              models.FlexInt(max(t.Score, 0)),
		CommentCount:         &count,
		ReportedCommentCount: count,
		Comments:             []models.RawComment{},
	}

	if len(listings) > 1 {
		for _, child := range listings[1].Data.Children {
			// "more" stubs carry no content
			if child.Kind != "t1" {
				continue
			}
			post.Comments = append(post.Comments, models.RawComment{
				Author:    child.Data.Author,
				Content:   child.Data.Body,
				Upvotes:   models.FlexInt(max(child.Data.Score, 0)),
				CreatedAt: unixTime(child.Data.CreatedUTC),
				Platform:  models.PlatformReddit,
			})
		}
	}
	return post, nil
}

func unixTime(sec float64) string {
	if sec <= 0 {
		return ""
	}
	return time.Unix(int64(sec), 0).UTC().Format(time.RFC3339)
}
