package domain

import (
	"strconv"
	"strings"
	"time"
)

var postedLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	time.RFC1123Z,
	time.RFC1123,
	time.RFC822Z,
	time.RFC822,
	"Mon, 2 Jan 2006 15:04:05 -0700",
	"Mon, 2 Jan 2006 15:04:05 MST",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"Jan 2, 2006",
	"January 2, 2006",
	"02 Jan 2006",
}

// ParsePosted parses the date formats upstreams hand us. ok is false when the
// value is empty or matches nothing; callers treat that as "unknown".
func ParsePosted(s string) (t time.Time, ok bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range postedLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	// epoch ms/seconds as a string
	if n, err := strconv.ParseInt(s, 10, 64); err == nil && n > 0 {
		if n >= 1_000_000_000_000 {
			return time.UnixMilli(n).UTC(), true
		}
		return time.Unix(n, 0).UTC(), true
	}
	return time.Time{}, false
}

// FormatPosted is the canonical postedDate representation in the artifact.
func FormatPosted(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}
