package models

// Supported platform tags
const (
	PlatformZhihu  = "zhihu"
	PlatformV2EX   = "v2ex"
	PlatformReddit = "reddit"
)

// DefaultPlatforms is the recognized platform set, in merge order
var DefaultPlatforms = []string{PlatformZhihu, PlatformV2EX, PlatformReddit}

// AnonymousAuthor is the sentinel used when a page exposes no author
const AnonymousAuthor = "anonymous"

// Post is a top-level discussion thread in the unified schema
type Post struct {
	ID                   string    `json:"id"`
	Platform             string    `json:"platform"`
	PostType             string    `json:"post_type,omitempty"`
	Title                string    `json:"title"`
	Content              string    `json:"content"`
	ContentFormat        string    `json:"content_format,omitempty"`
	Author               string    `json:"author"`
	URL                  string    `json:"url"`
	CreatedAt            string    `json:"created_at"`
	DateBackfilled       bool      `json:"date_backfilled,omitempty"`
	ScrapedAt            string    `json:"scraped_at,omitempty"`
	Subreddit            string    `json:"subreddit,omitempty"`
	Node                 string    `json:"node,omitempty"`
	Upvotes              int       `json:"upvotes"`
	CommentCount         int       `json:"comment_count"`
	ReportedCommentCount int       `json:"reported_comment_count,omitempty"`
	Comments             []Comment `json:"comments"`
	Language             string    `json:"language"`
	IsRelevant           *bool     `json:"is_relevant,omitempty"`
	RelevanceNote        string    `json:"relevance_note,omitempty"`
}

// Clone returns a copy whose comment slice can be modified independently
func (p Post) Clone() Post {
	cp := p
	if p.Comments != nil {
		cp.Comments = make([]Comment, len(p.Comments))
		copy(cp.Comments, p.Comments)
	}
	if p.IsRelevant != nil {
		v := *p.IsRelevant
		cp.IsRelevant = &v
	}
	return cp
}

// Raw converts the post back into the raw shape, the same way decoding its
// JSON form would. Feeding the result to the normalizer yields this post.
func (p Post) Raw() RawPost {
	count := FlexInt(p.CommentCount)
	raw := RawPost{
		ID:                   FlexString(p.ID),
		Platform:             p.Platform,
		PostType:             p.PostType,
		Title:                p.Title,
		Content:              p.Content,
		ContentFormat:        p.ContentFormat,
		Author:               p.Author,
		URL:                  p.URL,
		CreatedAt:            p.CreatedAt,
		DateBackfilled:       p.DateBackfilled,
		ScrapedAt:            p.ScrapedAt,
		Subreddit:            p.Subreddit,
		Node:                 p.Node,
		Upvotes:              FlexInt(p.Upvotes),
		CommentCount:         &count,
		ReportedCommentCount: FlexInt(p.ReportedCommentCount),
		Comments:             make([]RawComment, 0, len(p.Comments)),
		Language:             p.Language,
		IsRelevant:           p.IsRelevant,
		RelevanceNote:        p.RelevanceNote,
	}
	for _, c := range p.Comments {
		raw.Comments = append(raw.Comments, RawComment{
			Author:    c.Author,
			Content:   c.Content,
			Upvotes:   FlexInt(c.Upvotes),
			CreatedAt: c.CreatedAt,
			Platform:  c.Platform,
			PostID:    c.PostID,
		})
	}
	return raw
}
