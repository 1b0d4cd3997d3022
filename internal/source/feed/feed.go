// Package feed reads postings from an XML feed: either RSS/Atom or a plain
// list of XML records with one child element per field.
package feed

import (
	"context"
	"fmt"
	"strings"

	"github.com/mmcdole/gofeed"
	"github.com/sirupsen/logrus"

	"github.com/jobradar/jobradar/internal/domain"
	"github.com/jobradar/jobradar/internal/source"
)

const (
	FormatRSS     = "rss"
	FormatRecords = "records"
)

type Config struct {
	Key    string
	URL    string
	Header map[string]string
	// Format is FormatRSS (default) or FormatRecords.
	Format string
	// RecordTag names the element wrapping one posting (FormatRecords).
	RecordTag string
	// Fields maps a JobRecord field (id, title, url, location, department,
	// type, posted) to the child element holding it. Unset fields fall back
	// to DefaultFields.
	Fields    map[string]string
	Fallbacks source.Fallbacks
}

type Scraper struct {
	cfg   Config
	f     source.Fetcher
	match source.Matcher
}

func New(cfg Config, f source.Fetcher, match source.Matcher) *Scraper {
	if cfg.Format == "" {
		cfg.Format = FormatRSS
	}
	if cfg.RecordTag == "" {
		cfg.RecordTag = "job"
	}
	return &Scraper{cfg: cfg, f: f, match: match}
}

func (s *Scraper) Name() string { return s.cfg.Key }

func (s *Scraper) Fetch(ctx context.Context) ([]domain.JobRecord, error) {
	body, err := s.f.Text(ctx, s.cfg.URL, s.cfg.Header)
	if err != nil {
		return nil, fmt.Errorf("feed get: %w", err)
	}

	var raw []domain.JobRecord
	switch s.cfg.Format {
	case FormatRSS:
		raw, err = s.parseRSS(body)
	case FormatRecords:
		raw, err = parseRecords(body, s.cfg.RecordTag, s.cfg.Fields)
	default:
		err = fmt.Errorf("unknown feed format %q", s.cfg.Format)
	}
	if err != nil {
		return nil, err
	}

	c := source.NewCollector(s.match, s.cfg.Fallbacks)
	for _, j := range raw {
		c.Add(j)
	}
	logrus.WithField("source", s.cfg.Key).Infof("[feed] items=%d kept=%d rejected=%d", len(raw), len(c.Jobs()), c.Rejected)
	return c.Jobs(), nil
}

func (s *Scraper) parseRSS(body string) ([]domain.JobRecord, error) {
	parsed, err := gofeed.NewParser().ParseString(body)
	if err != nil {
		return nil, fmt.Errorf("feed parse: %w", err)
	}

	out := make([]domain.JobRecord, 0, len(parsed.Items))
	for _, it := range parsed.Items {
		if it == nil {
			continue
		}
		link := strings.TrimSpace(it.Link)
		id := strings.TrimSpace(it.GUID)
		if id == "" || strings.Contains(id, "://") {
			id = source.IDFromURL(source.FirstNonEmpty(id, link))
		}

		var posted string
		switch {
		case it.PublishedParsed != nil:
			posted = domain.FormatPosted(*it.PublishedParsed)
		case it.UpdatedParsed != nil:
			posted = domain.FormatPosted(*it.UpdatedParsed)
		default:
			posted = source.FirstNonEmpty(it.Published, it.Updated)
		}

		var dept string
		if len(it.Categories) > 0 {
			dept = it.Categories[0]
		}

		out = append(out, domain.JobRecord{
			ID:         id,
			Title:      it.Title,
			URL:        link,
			Location:   it.Custom["location"],
			Department: source.FirstNonEmpty(it.Custom["department"], dept),
			Type:       it.Custom["type"],
			PostedDate: posted,
		})
	}
	return out, nil
}
