// Package dates reads the many created_at renderings found on forum pages
// and writes them back as RFC3339.
package dates

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"
)

var layouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05 -0700",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
	"2006/01/02 15:04:05",
	"2006/01/02",
}

type relativeUnit struct {
	pattern *regexp.Regexp
	step    func(now time.Time, n int) time.Time
}

func back(d time.Duration) func(time.Time, int) time.Time {
	return func(now time.Time, n int) time.Time { return now.Add(-time.Duration(n) * d) }
}

var relativeUnits = []relativeUnit{
	{regexp.MustCompile(`(\d+)\s*秒前`), back(time.Second)},
	{regexp.MustCompile(`(\d+)\s*分钟前`), back(time.Minute)},
	{regexp.MustCompile(`(\d+)\s*小时前`), back(time.Hour)},
	{regexp.MustCompile(`(\d+)\s*天前`), back(24 * time.Hour)},
	{regexp.MustCompile(`(\d+)\s*周前`), back(7 * 24 * time.Hour)},
	{regexp.MustCompile(`(\d+)\s*个?月前`), func(now time.Time, n int) time.Time { return now.AddDate(0, -n, 0) }},
	{regexp.MustCompile(`(\d+)\s*年前`), func(now time.Time, n int) time.Time { return now.AddDate(-n, 0, 0) }},
	{regexp.MustCompile(`(?i)(\d+)\s*(?:seconds?|secs?)\s+ago`), back(time.Second)},
	{regexp.MustCompile(`(?i)(\d+)\s*(?:minutes?|mins?)\s+ago`), back(time.Minute)},
	{regexp.MustCompile(`(?i)(\d+)\s*(?:hours?|hrs?)\s+ago`), back(time.Hour)},
	{regexp.MustCompile(`(?i)(\d+)\s*days?\s+ago`), back(24 * time.Hour)},
	{regexp.MustCompile(`(?i)(\d+)\s*weeks?\s+ago`), back(7 * 24 * time.Hour)},
	{regexp.MustCompile(`(?i)(\d+)\s*months?\s+ago`), func(now time.Time, n int) time.Time { return now.AddDate(0, -n, 0) }},
	{regexp.MustCompile(`(?i)(\d+)\s*years?\s+ago`), func(now time.Time, n int) time.Time { return now.AddDate(-n, 0, 0) }},
}

var embeddedDate = regexp.MustCompile(`(\d{4})[-/](\d{1,2})[-/](\d{1,2})`)

// Parse reads s as an absolute or relative timestamp. Relative forms
// ("3天前", "2 hours ago", "刚刚") are resolved against now.
func Parse(s string, now time.Time) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	if s == "刚刚" || strings.EqualFold(s, "just now") {
		return now, true
	}
	for _, u := range relativeUnits {
		if m := u.pattern.FindStringSubmatch(s); m != nil {
			n, err := strconv.Atoi(m[1])
			if err != nil {
				continue
			}
			return u.step(now, n), true
		}
	}
	return ParseAbsolute(s)
}

// ParseAbsolute reads s without resolving relative forms
func ParseAbsolute(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range layouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t, true
		}
	}
	if t, err := dateparse.ParseIn(s, time.UTC); err == nil {
		return t, true
	}
	// Last resort: a date embedded in surrounding text
	if m := embeddedDate.FindStringSubmatch(s); m != nil {
		y, _ := strconv.Atoi(m[1])
		mo, _ := strconv.Atoi(m[2])
		d, _ := strconv.Atoi(m[3])
		if mo >= 1 && mo <= 12 && d >= 1 && d <= 31 {
			return time.Date(y, time.Month(mo), d, 0, 0, 0, 0, time.UTC), true
		}
	}
	return time.Time{}, false
}

// Format renders t as RFC3339 in UTC
func Format(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}
