package adapter

import (
	"bytes"
	"context"
	"errors"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/forum-corpus-pipeline/internal/models"
)

var (
	v2exTopicID    = regexp.MustCompile(`/t/(\d+)`)
	v2exReplyCount = regexp.MustCompile(`(\d+)\s*条回复`)
	digits         = regexp.MustCompile(`\d+`)
)

// V2EXAdapter scrapes a V2EX topic page
type V2EXAdapter struct {
	fetcher *Fetcher
	now     func() time.Time
}

// NewV2EXAdapter creates a V2EXAdapter
func NewV2EXAdapter(fetcher *Fetcher) *V2EXAdapter {
	return &V2EXAdapter{fetcher: fetcher, now: time.Now}
}

func (a *V2EXAdapter) Platform() string { return models.PlatformV2EX }

// Fetch downloads and parses the topic page at target
func (a *V2EXAdapter) Fetch(ctx context.Context, target string) (*models.RawPost, error) {
	body, err := a.fetcher.Get(ctx, target)
	if err != nil {
		return nil, failure(models.PlatformV2EX, target, err)
	}
	post, err := parseV2EXTopic(body, target)
	if err != nil {
		return nil, failure(models.PlatformV2EX, target, err)
	}
	post.ScrapedAt = scrapedAt(a.now)
	return post, nil
}

func parseV2EXTopic(body []byte, target string) (*models.RawPost, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, err
	}

	title := strings.TrimSpace(doc.Find("h1").First().Text())
	if title == "" {
		return nil, errors.New("topic title not found")
	}

	post := &models.RawPost{
		Platform: models.PlatformV2EX,
		PostType: "topic",
		Title:    title,
		URL:      target,
		Comments: []models.RawComment{},
	}
	if m := v2exTopicID.FindStringSubmatch(target); m != nil {
		post.ID = models.FlexString(m[1])
	}

	// Content stays as markup; the normalizer sanitizes it
	if html, err := doc.Find("div.topic_content").First().Html(); err == nil {
		post.Content = html
		post.ContentFormat = models.FormatHTML
	}

	header := doc.Find("div.header").First()
	post.Author = strings.TrimSpace(header.Find("small.gray a").First().Text())
	if post.Author == "" {
		post.Author = strings.TrimSpace(doc.Find("a.dark").First().Text())
	}
	post.CreatedAt = timeOf(header.Find("small.gray span").First())
	if post.CreatedAt == "" {
		post.CreatedAt = timeOf(doc.Find("span.ago").First())
	}
	if href, ok := header.Find(`a[href^="/go/"]`).First().Attr("href"); ok {
		post.Node = strings.TrimPrefix(href, "/go/")
	}

	doc.Find("span.gray").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if m := v2exReplyCount.FindStringSubmatch(s.Text()); m != nil {
			post.ReportedCommentCount = models.FlexInt(models.ParseCount(m[1]))
			return false
		}
		return true
	})

	doc.Find(`div.cell[id^="r_"]`).Each(func(_ int, cell *goquery.Selection) {
		c := models.RawComment{
			Author:        strings.TrimSpace(cell.Find("strong a").First().Text()),
			Content:       strings.TrimSpace(cell.Find("div.reply_content").First().Text()),
			ContentFormat: models.FormatText,
			CreatedAt:     timeOf(cell.Find("span.ago").First()),
			Platform:      models.PlatformV2EX,
		}
		if thanks := digits.FindString(cell.Find("span.small.fade").First().Text()); thanks != "" {
			c.Upvotes = models.FlexInt(models.ParseCount(thanks))
		}
		post.Comments = append(post.Comments, c)
	})

	return post, nil
}

// timeOf prefers the absolute timestamp in the title attribute over the
// relative text ("3 天前")
func timeOf(s *goquery.Selection) string {
	if t, ok := s.Attr("title"); ok && strings.TrimSpace(t) != "" {
		return strings.TrimSpace(t)
	}
	return strings.TrimSpace(s.Text())
}
