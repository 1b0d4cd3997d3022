// Package workday pages through a company's Workday job board using the
// board's JSON search endpoint.
package workday

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/jobradar/jobradar/internal/domain"
	"github.com/jobradar/jobradar/internal/fetch"
	"github.com/jobradar/jobradar/internal/source"
)

const (
	DefaultPageSize = 20
	DefaultMaxPages = 5
	// PageDelay paces consecutive page requests to one board.
	PageDelay = 500 * time.Millisecond
)

type Config struct {
	Key string
	// BoardURL is the public board, e.g.
	// https://acme.wd5.myworkdayjobs.com/en-US/External
	BoardURL string
	// Endpoint overrides the jobs endpoint derived from BoardURL.
	Endpoint   string
	SearchText string
	PageSize   int
	MaxPages   int
	Fallbacks  source.Fallbacks
}

type Scraper struct {
	cfg       Config
	f         source.Fetcher
	match     source.Matcher
	pageDelay time.Duration
}

func New(cfg Config, f source.Fetcher, match source.Matcher) *Scraper {
	if cfg.PageSize <= 0 {
		cfg.PageSize = DefaultPageSize
	}
	if cfg.MaxPages <= 0 {
		cfg.MaxPages = DefaultMaxPages
	}
	return &Scraper{cfg: cfg, f: f, match: match, pageDelay: PageDelay}
}

func (s *Scraper) Name() string { return s.cfg.Key }

type wdRequest struct {
	AppliedFacets map[string]any `json:"appliedFacets"`
	Limit         int            `json:"limit"`
	Offset        int            `json:"offset"`
	SearchText    string         `json:"searchText"`
}

type wdResponse struct {
	Total       int         `json:"total"`
	JobPostings []wdPosting `json:"jobPostings"`
}

type wdPosting struct {
	Title         string   `json:"title"`
	ExternalPath  string   `json:"externalPath"`
	ExternalURL   string   `json:"externalUrl"`
	LocationsText string   `json:"locationsText"`
	PostedOn      string   `json:"postedOn"`
	PostedOnDate  string   `json:"postedOnDate"`
	JobReqID      string   `json:"jobRequisitionId"`
	BulletFields  []string `json:"bulletFields"`
	TimeType      string   `json:"timeType"`
}

func (s *Scraper) Fetch(ctx context.Context) ([]domain.JobRecord, error) {
	b, err := parseBoardURL(s.cfg.BoardURL)
	if err != nil {
		return nil, fmt.Errorf("workday board: %w", err)
	}
	endpoint := source.FirstNonEmpty(s.cfg.Endpoint, b.jobsEndpoint())
	log := logrus.WithField("source", s.cfg.Key)

	header := map[string]string{
		"Accept":          "application/json",
		"Content-Type":    "application/json",
		"Origin":          fmt.Sprintf("%s://%s", b.Scheme, b.Host),
		"Referer":         b.Root,
		"Accept-Language": source.FirstNonEmpty(b.Locale, "en-US"),
	}

	now := time.Now
	if s.cfg.Fallbacks.Now != nil {
		now = s.cfg.Fallbacks.Now
	}

	c := source.NewCollector(s.match, s.cfg.Fallbacks)
	total := 0
	pages := 0

	for page := 0; page < s.cfg.MaxPages; page++ {
		if page > 0 {
			if err := source.Sleep(ctx, s.pageDelay); err != nil {
				log.Warnf("[workday] page=%d wait: %v; keeping %d jobs", page, err, len(c.Jobs()))
				break
			}
		}

		payload, _ := json.Marshal(wdRequest{
			AppliedFacets: map[string]any{},
			Limit:         s.cfg.PageSize,
			Offset:        page * s.cfg.PageSize,
			SearchText:    s.cfg.SearchText,
		})
		data, err := s.f.Do(ctx, fetch.Request{Method: "POST", URL: endpoint, Header: header, Body: payload})
		if err != nil {
			if page == 0 {
				return nil, fmt.Errorf("workday post jobs: %w", err)
			}
			// later pages failing still leaves a usable partial list
			log.Warnf("[workday] page=%d err=%v; keeping %d jobs", page, err, len(c.Jobs()))
			break
		}
		pages++

		var jr wdResponse
		if err := json.Unmarshal(data, &jr); err != nil {
			if page == 0 {
				return nil, fmt.Errorf("workday decode: %w", err)
			}
			log.Warnf("[workday] page=%d decode err=%v", page, err)
			break
		}
		if jr.Total > 0 && total == 0 {
			total = jr.Total
		}
		if len(jr.JobPostings) == 0 {
			break
		}

		fresh := 0
		for _, p := range jr.JobPostings {
			link := b.jobURL(p.ExternalURL, p.ExternalPath)
			var bullet string
			if len(p.BulletFields) > 0 {
				bullet = p.BulletFields[0]
			}
			if c.Add(domain.JobRecord{
				ID:         source.FirstNonEmpty(p.JobReqID, bullet, source.IDFromURL(link)),
				Title:      p.Title,
				URL:        link,
				Location:   p.LocationsText,
				Type:       p.TimeType,
				PostedDate: source.FirstNonEmpty(p.PostedOnDate, source.RelativePosted(p.PostedOn, now())),
			}) {
				fresh++
			}
		}
		if fresh == 0 {
			break
		}
		if total > 0 && (page+1)*s.cfg.PageSize >= total {
			break
		}
	}

	log.Infof("[workday] tenant=%s site=%s pages=%d seen=%d kept=%d", b.Tenant, b.Site, pages, c.Seen(), len(c.Jobs()))
	return c.Jobs(), nil
}
