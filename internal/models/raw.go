package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Content formats a raw record can declare. Records without one have their
// text sniffed for markup.
const (
	FormatText = "text"
	FormatHTML = "html"
)

// RawPost is the pre-normalization shape produced by a platform adapter or
// authored by hand. It accepts the field variants seen across platforms,
// and a previously normalized Post decodes into it without loss.
type RawPost struct {
	ID                   FlexString   `json:"id"`
	Platform             string       `json:"platform"`
	PostType             string       `json:"post_type"`
	Title                string       `json:"title"`
	Content              string       `json:"content"`
	ContentFormat        string       `json:"content_format,omitempty"`
	Author               string       `json:"author"`
	URL                  string       `json:"url"`
	CreatedAt            string       `json:"created_at"`
	DateBackfilled       bool         `json:"date_backfilled"`
	ScrapedAt            string       `json:"scraped_at"`
	Subreddit            string       `json:"subreddit"`
	Node                 string       `json:"node"`
	Upvotes              FlexInt      `json:"upvotes"`
	CommentCount         *FlexInt     `json:"comment_count"`
	ReportedCommentCount FlexInt      `json:"reported_comment_count"`
	Metadata             *RawMetadata `json:"metadata,omitempty"`
	Comments             []RawComment `json:"comments"`
	Language             string       `json:"language"`
	IsRelevant           *bool        `json:"is_relevant"`
	RelevanceNote        string       `json:"relevance_note"`
}

// RawMetadata holds page counters some scrapers nest under "metadata"
type RawMetadata struct {
	ViewCount    FlexInt `json:"view_count"`
	FollowCount  FlexInt `json:"follow_count"`
	UpvoteCount  FlexInt `json:"upvote_count"`
	CommentCount FlexInt `json:"comment_count"`
}

// RawComment is a reply as extracted from the page. An empty ContentFormat
// inherits the post's.
type RawComment struct {
	Author        string  `json:"author"`
	Content       string  `json:"content"`
	ContentFormat string  `json:"content_format,omitempty"`
	Upvotes       FlexInt `json:"upvotes"`
	CreatedAt     string  `json:"created_at"`
	CreatedAtText string  `json:"created_at_text"`
	Platform      string  `json:"platform"`
	PostID        string  `json:"post_id"`
}

// FlexString decodes a JSON string or number into a string
type FlexString string

func (s *FlexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*s = ""
		return nil
	}
	if data[0] == '"' {
		var v string
		if err := json.Unmarshal(data, &v); err != nil {
			return err
		}
		*s = FlexString(v)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("id must be a string or number: %w", err)
	}
	*s = FlexString(n.String())
	return nil
}

// FlexInt decodes counters that pages render as numbers or as text
// such as "1,234", "1.2k" or "3.5万". Negative and unreadable values become 0.
type FlexInt int

func (n *FlexInt) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*n = 0
		return nil
	}
	if data[0] == '"' {
		var v string
		if err := json.Unmarshal(data, &v); err != nil {
			return err
		}
		*n = FlexInt(ParseCount(v))
		return nil
	}
	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("counter must be a number: %w", err)
	}
	if f < 0 {
		f = 0
	}
	*n = FlexInt(int(f))
	return nil
}

// ParseCount reads a human-rendered counter, returning 0 when unreadable
func ParseCount(s string) int {
	s = strings.TrimSpace(strings.ReplaceAll(s, ",", ""))
	if s == "" {
		return 0
	}
	mult := 1.0
	lower := strings.ToLower(s)
	switch {
	case strings.HasSuffix(lower, "k"):
		mult, s = 1000, s[:len(s)-1]
	case strings.HasSuffix(s, "万"):
		mult, s = 10000, strings.TrimSuffix(s, "万")
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || f < 0 {
		return 0
	}
	return int(math.Round(f * mult))
}
