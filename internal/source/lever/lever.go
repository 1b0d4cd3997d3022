// Package lever reads a company's postings from the public Lever postings
// API.
package lever

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/jobradar/jobradar/internal/domain"
	"github.com/jobradar/jobradar/internal/source"
)

const DefaultAPIBase = "https://api.lever.co"

type Config struct {
	Key     string
	Company string // api.lever.co/v0/postings/<company>
	// APIBase overrides DefaultAPIBase.
	APIBase   string
	Fallbacks source.Fallbacks
}

type Scraper struct {
	cfg   Config
	f     source.Fetcher
	match source.Matcher
}

func New(cfg Config, f source.Fetcher, match source.Matcher) *Scraper {
	if cfg.APIBase == "" {
		cfg.APIBase = DefaultAPIBase
	}
	return &Scraper{cfg: cfg, f: f, match: match}
}

func (s *Scraper) Name() string { return s.cfg.Key }

type posting struct {
	ID         string `json:"id"`
	Text       string `json:"text"` // title
	HostedURL  string `json:"hostedUrl"`
	CreatedAt  int64  `json:"createdAt"` // ms epoch
	Categories struct {
		Location   string `json:"location"`
		Team       string `json:"team"`
		Department string `json:"department"`
		Commitment string `json:"commitment"`
	} `json:"categories"`
	WorkplaceType string `json:"workplaceType"`
}

func (s *Scraper) Fetch(ctx context.Context) ([]domain.JobRecord, error) {
	company := strings.Trim(strings.TrimSpace(s.cfg.Company), "/")
	if company == "" {
		return nil, fmt.Errorf("lever: empty company")
	}
	endpoint := fmt.Sprintf("%s/v0/postings/%s?mode=json", strings.TrimRight(s.cfg.APIBase, "/"), url.PathEscape(company))

	body, err := s.f.Text(ctx, endpoint, map[string]string{"Accept": "application/json"})
	if err != nil {
		return nil, fmt.Errorf("lever get postings: %w", err)
	}

	var postings []posting
	if err := json.Unmarshal([]byte(body), &postings); err != nil {
		return nil, fmt.Errorf("lever decode: %w", err)
	}

	c := source.NewCollector(s.match, s.cfg.Fallbacks)
	for _, p := range postings {
		var posted string
		if p.CreatedAt > 0 {
			posted = domain.FormatPosted(time.UnixMilli(p.CreatedAt))
		}
		loc := p.Categories.Location
		if loc == "" && strings.EqualFold(p.WorkplaceType, "remote") {
			loc = "Remote"
		}
		c.Add(domain.JobRecord{
			ID:         source.FirstNonEmpty(p.ID, source.IDFromURL(p.HostedURL)),
			Title:      p.Text,
			URL:        p.HostedURL,
			Location:   loc,
			Department: source.FirstNonEmpty(p.Categories.Team, p.Categories.Department),
			Type:       p.Categories.Commitment,
			PostedDate: posted,
		})
	}

	logrus.WithField("source", s.cfg.Key).Infof("[lever] company=%s postings=%d kept=%d", company, len(postings), len(c.Jobs()))
	return c.Jobs(), nil
}
