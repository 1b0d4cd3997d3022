package source

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/jobradar/jobradar/internal/domain"
)

var agoRe = regexp.MustCompile(`(?i)(\d+)\+?\s*(minute|min|hour|hr|day|week|month)s?\s+ago`)

// RelativePosted turns labels like "Posted 3 Days Ago" or "2 weeks ago" into
// an RFC3339 date relative to now. Anything else comes back unchanged.
func RelativePosted(label string, now time.Time) string {
	l := strings.ToLower(strings.TrimSpace(label))
	switch {
	case l == "":
		return ""
	case strings.Contains(l, "today"), strings.Contains(l, "just now"):
		return domain.FormatPosted(now)
	case strings.Contains(l, "yesterday"):
		return domain.FormatPosted(now.AddDate(0, 0, -1))
	}

	m := agoRe.FindStringSubmatch(l)
	if m == nil {
		return label
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return label
	}
	switch m[2] {
	case "minute", "min", "hour", "hr":
		return domain.FormatPosted(now)
	case "day":
		return domain.FormatPosted(now.AddDate(0, 0, -n))
	case "week":
		return domain.FormatPosted(now.AddDate(0, 0, -7*n))
	default:
		return domain.FormatPosted(now.AddDate(0, -n, 0))
	}
}
