// Package source defines the contract every upstream adapter implements and
// the helpers they share.
package source

import (
	"context"
	"time"

	"github.com/jobradar/jobradar/internal/domain"
	"github.com/jobradar/jobradar/internal/fetch"
)

// Adapter fetches one upstream and returns its target-role postings. It has
// no side effects beyond network I/O; a total upstream failure is an error
// and the caller decides what to do with it.
type Adapter interface {
	Name() string
	Fetch(ctx context.Context) ([]domain.JobRecord, error)
}

// Fetcher is the retrieval capability adapters are given.
type Fetcher interface {
	Text(ctx context.Context, url string, header map[string]string) (string, error)
	Do(ctx context.Context, r fetch.Request) ([]byte, error)
}

// Matcher is the role filter an adapter applies before returning a record.
type Matcher interface {
	Matches(title string) bool
}

// MatchFunc adapts a plain function to Matcher.
type MatchFunc func(title string) bool

func (f MatchFunc) Matches(title string) bool { return f(title) }

// DefaultLocation is used when neither the record nor the source config
// provides one.
const DefaultLocation = "India"

// Fallbacks fills fields an upstream left empty.
type Fallbacks struct {
	Location   string
	Department string
	Type       string
	// Now stamps postedDate when the upstream gave none.
	Now func() time.Time
}

// Apply fills the empty non-identity fields of j in place.
func (f Fallbacks) Apply(j *domain.JobRecord) {
	j.Title = CleanText(j.Title)
	j.Location = NormalizeLocation(j.Location)
	if j.Location == "" {
		j.Location = FirstNonEmpty(f.Location, DefaultLocation)
	}
	j.Department = CleanText(j.Department)
	if j.Department == "" {
		j.Department = f.Department
	}
	j.Type = CleanText(j.Type)
	if j.Type == "" {
		j.Type = FirstNonEmpty(f.Type, "Full time")
	}
	if t, ok := domain.ParsePosted(j.PostedDate); ok {
		j.PostedDate = domain.FormatPosted(t)
	} else if j.PostedDate == "" {
		now := time.Now
		if f.Now != nil {
			now = f.Now
		}
		j.PostedDate = domain.FormatPosted(now())
	}
}

// Sleep waits d or until ctx is done.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
