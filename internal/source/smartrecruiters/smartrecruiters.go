// Package smartrecruiters reads a company's postings from the public
// SmartRecruiters postings API, page by page.
package smartrecruiters

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/samber/lo"
	"github.com/sirupsen/logrus"

	"github.com/jobradar/jobradar/internal/domain"
	"github.com/jobradar/jobradar/internal/source"
)

const (
	DefaultAPIBase  = "https://api.smartrecruiters.com"
	DefaultJobsBase = "https://jobs.smartrecruiters.com"
	DefaultPageSize = 100
	DefaultMaxPages = 10
	PageDelay       = 250 * time.Millisecond
)

type Config struct {
	Key     string
	Company string // jobs.smartrecruiters.com/<company>
	// APIBase overrides DefaultAPIBase.
	APIBase   string
	PageSize  int
	MaxPages  int
	Fallbacks source.Fallbacks
}

type Scraper struct {
	cfg       Config
	f         source.Fetcher
	match     source.Matcher
	pageDelay time.Duration
}

func New(cfg Config, f source.Fetcher, match source.Matcher) *Scraper {
	if cfg.APIBase == "" {
		cfg.APIBase = DefaultAPIBase
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = DefaultPageSize
	}
	if cfg.MaxPages <= 0 {
		cfg.MaxPages = DefaultMaxPages
	}
	return &Scraper{cfg: cfg, f: f, match: match, pageDelay: PageDelay}
}

func (s *Scraper) Name() string { return s.cfg.Key }

type postingsResponse struct {
	Content    []posting `json:"content"`
	TotalFound int       `json:"totalFound"`
}

type posting struct {
	ID           string `json:"id"`
	UUID         string `json:"uuid"`
	RefNumber    string `json:"refNumber"`
	Name         string `json:"name"`
	ReleasedDate string `json:"releasedDate"`
	Location     struct {
		City    string `json:"city"`
		Region  string `json:"region"`
		Country string `json:"country"`
		Remote  bool   `json:"remote"`
	} `json:"location"`
	Department struct {
		Label string `json:"label"`
	} `json:"department"`
	TypeOfEmployment struct {
		Label string `json:"label"`
	} `json:"typeOfEmployment"`
}

func (p posting) location() string {
	parts := lo.Compact([]string{
		strings.TrimSpace(p.Location.City),
		strings.TrimSpace(p.Location.Region),
		strings.ToUpper(strings.TrimSpace(p.Location.Country)),
	})
	if len(parts) == 0 && p.Location.Remote {
		return "Remote"
	}
	return strings.Join(parts, ", ")
}

func (s *Scraper) Fetch(ctx context.Context) ([]domain.JobRecord, error) {
	company := strings.Trim(strings.TrimSpace(s.cfg.Company), "/")
	if company == "" {
		return nil, fmt.Errorf("smartrecruiters: empty company")
	}
	base := fmt.Sprintf("%s/v1/companies/%s/postings", strings.TrimRight(s.cfg.APIBase, "/"), url.PathEscape(company))
	log := logrus.WithField("source", s.cfg.Key)

	c := source.NewCollector(s.match, s.cfg.Fallbacks)
	pages := 0

	for page := 0; page < s.cfg.MaxPages; page++ {
		if page > 0 {
			if err := source.Sleep(ctx, s.pageDelay); err != nil {
				log.Warnf("[smartrecruiters] page=%d wait: %v; keeping %d jobs", page, err, len(c.Jobs()))
				break
			}
		}

		offset := page * s.cfg.PageSize
		u := fmt.Sprintf("%s?limit=%d&offset=%d", base, s.cfg.PageSize, offset)
		body, err := s.f.Text(ctx, u, map[string]string{"Accept": "application/json"})
		if err != nil {
			if page == 0 {
				return nil, fmt.Errorf("smartrecruiters get postings: %w", err)
			}
			log.Warnf("[smartrecruiters] page=%d err=%v; keeping %d jobs", page, err, len(c.Jobs()))
			break
		}
		pages++

		var pr postingsResponse
		if err := json.Unmarshal([]byte(body), &pr); err != nil {
			if page == 0 {
				return nil, fmt.Errorf("smartrecruiters decode: %w", err)
			}
			log.Warnf("[smartrecruiters] page=%d decode err=%v", page, err)
			break
		}
		if len(pr.Content) == 0 {
			break
		}

		fresh := 0
		for _, p := range pr.Content {
			id := source.FirstNonEmpty(p.ID, p.UUID, p.RefNumber)
			if c.Add(domain.JobRecord{
				ID:         id,
				Title:      p.Name,
				URL:        fmt.Sprintf("%s/%s/%s", DefaultJobsBase, url.PathEscape(company), url.PathEscape(id)),
				Location:   p.location(),
				Department: p.Department.Label,
				Type:       p.TypeOfEmployment.Label,
				PostedDate: p.ReleasedDate,
			}) {
				fresh++
			}
		}
		if fresh == 0 {
			break
		}
		if pr.TotalFound > 0 && offset+s.cfg.PageSize >= pr.TotalFound {
			break
		}
	}

	log.Infof("[smartrecruiters] company=%s pages=%d seen=%d kept=%d", company, pages, c.Seen(), len(c.Jobs()))
	return c.Jobs(), nil
}
