package source

import (
	"strings"

	"github.com/jobradar/jobradar/internal/domain"
)

// Collector accumulates an adapter's output: it tracks which ids were seen
// (for paging), applies the role filter and fills fallbacks.
type Collector struct {
	match    Matcher
	fb       Fallbacks
	seen     map[string]bool
	jobs     []domain.JobRecord
	Rejected int
}

func NewCollector(match Matcher, fb Fallbacks) *Collector {
	return &Collector{match: match, fb: fb, seen: map[string]bool{}}
}

// Add offers one raw record. It reports whether the id had not been seen
// before in this fetch, whether or not the record passed the filter.
// Records without an id or title are ignored.
func (c *Collector) Add(j domain.JobRecord) bool {
	j.ID = strings.TrimSpace(j.ID)
	if j.ID == "" || CleanText(j.Title) == "" {
		return false
	}
	if c.seen[j.ID] {
		return false
	}
	c.seen[j.ID] = true

	if c.match != nil && !c.match.Matches(CleanText(j.Title)) {
		c.Rejected++
		return true
	}
	c.fb.Apply(&j)
	c.jobs = append(c.jobs, j)
	return true
}

func (c *Collector) Jobs() []domain.JobRecord {
	return c.jobs
}

// Seen is the number of distinct ids offered so far.
func (c *Collector) Seen() int {
	return len(c.seen)
}
