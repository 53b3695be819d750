package normalize

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/google/uuid"

	"github.com/forum-corpus-pipeline/internal/models"
)

var nativeIDPatterns = map[string][]*regexp.Regexp{
	models.PlatformZhihu: {
		regexp.MustCompile(`/question/(\d+)`),
		regexp.MustCompile(`zhuanlan\.zhihu\.com/(p/\d+)`),
	},
	models.PlatformV2EX: {
		regexp.MustCompile(`/t/(\d+)`),
	},
	models.PlatformReddit: {
		regexp.MustCompile(`/comments/([a-z0-9]+)`),
	},
}

// CanonicalURL strips query string and fragment, lowercases scheme and host,
// drops a leading "www.", upgrades http to https and removes trailing slashes.
// Calling it on its own output returns the same string.
func CanonicalURL(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		if i := strings.IndexAny(raw, "?#"); i >= 0 {
			raw = raw[:i]
		}
		return strings.TrimRight(raw, "/")
	}
	scheme := strings.ToLower(u.Scheme)
	if scheme == "http" || scheme == "" {
		scheme = "https"
	}
	host := strings.TrimPrefix(strings.ToLower(u.Host), "www.")
	path := strings.TrimRight(u.EscapedPath(), "/")
	return scheme + "://" + host + path
}

// PostID builds the composite "{platform}_{native_id}". The native id comes
// from the record, then from the platform's URL shape, then from a
// name-based UUID over the canonical URL (or the title when no URL exists).
// An id that already carries the platform prefix is returned unchanged.
func PostID(platform, rawID, canonicalURL, title string) string {
	prefix := platform + "_"
	rawID = strings.TrimSpace(rawID)
	if rawID != "" {
		if strings.HasPrefix(rawID, prefix) {
			return rawID
		}
		return prefix + rawID
	}
	if native := nativeIDFromURL(platform, canonicalURL); native != "" {
		return prefix + native
	}
	seed := canonicalURL
	if seed == "" {
		seed = platform + "\x00" + title
	}
	return prefix + uuid.NewSHA1(uuid.NameSpaceURL, []byte(seed)).String()
}

func nativeIDFromURL(platform, canonicalURL string) string {
	if canonicalURL == "" {
		return ""
	}
	for _, re := range nativeIDPatterns[platform] {
		if m := re.FindStringSubmatch(canonicalURL); m != nil {
			return strings.ReplaceAll(m[1], "/", "")
		}
	}
	return ""
}
