package normalize

import (
	"html"
	"regexp"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	xhtml "golang.org/x/net/html"
	"golang.org/x/net/html/atom"
	"golang.org/x/text/unicode/norm"

	"github.com/forum-corpus-pipeline/internal/models"
)

// Aliases of the formats a raw record can declare
const (
	FormatText = models.FormatText
	FormatHTML = models.FormatHTML
)

var (
	blockBreak   = regexp.MustCompile(`(?i)<br\s*/?>|</(?:p|div|li|blockquote|pre|h[1-6])>`)
	controlChars = regexp.MustCompile(`[\x00-\x08\x0b\x0c\x0e-\x1f\x7f]`)
	spaceRun     = regexp.MustCompile(`\s+`)

	stripPolicy = bluemonday.StrictPolicy()
)

// CleanText turns scraped text of unknown format into a single normalized
// line. Markup is removed only when LooksLikeMarkup finds real HTML.
func CleanText(s string) string {
	return Clean(s, "")
}

// Clean normalizes s as the given format. FormatText is never stripped,
// FormatHTML always is, and any other value falls back to sniffing.
// Control characters are dropped, the result is NFKC-folded and
// whitespace runs collapse to one space.
func Clean(s, format string) string {
	if s == "" {
		return ""
	}
	switch format {
	case FormatText:
	case FormatHTML:
		s = stripMarkup(s)
	default:
		if LooksLikeMarkup(s) {
			s = stripMarkup(s)
		}
	}
	s = controlChars.ReplaceAllString(s, "")
	s = norm.NFKC.String(s)
	s = spaceRun.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// ParseFormat maps a declared content format onto FormatText, FormatHTML
// or "" for unknown.
func ParseFormat(v string) string {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "":
		return ""
	case FormatHTML, "markup":
		return FormatHTML
	default:
		return FormatText
	}
}

// LooksLikeMarkup reports whether s holds a tag naming a known HTML element,
// or an HTML comment. Angle brackets in prose or generics such as
// Map<String, Integer> do not count.
func LooksLikeMarkup(s string) bool {
	if !strings.Contains(s, "<") {
		return false
	}
	z := xhtml.NewTokenizer(strings.NewReader(s))
	for {
		switch z.Next() {
		case xhtml.ErrorToken:
			return false
		case xhtml.DoctypeToken:
			return true
		case xhtml.CommentToken:
			// stray "</" and "<?" also tokenize as comments
			if strings.Contains(s, "<!--") {
				return true
			}
		case xhtml.StartTagToken, xhtml.EndTagToken, xhtml.SelfClosingTagToken:
			name, _ := z.TagName()
			if atom.Lookup(name) != 0 {
				return true
			}
		}
	}
}

func stripMarkup(s string) string {
	s = blockBreak.ReplaceAllString(s, " ")
	return html.UnescapeString(stripPolicy.Sanitize(s))
}
