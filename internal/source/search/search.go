// Package search scrapes a paged HTML search-results page that lists
// postings from many companies.
package search

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/sirupsen/logrus"

	"github.com/jobradar/jobradar/internal/domain"
	"github.com/jobradar/jobradar/internal/source"
)

const (
	DefaultPageSize = 25
	DefaultMaxPages = 4
	// PageDelay paces consecutive result pages.
	PageDelay = 750 * time.Millisecond
)

// Selectors locate a posting card and its fields. Empty fields fall back to
// DefaultSelectors.
type Selectors struct {
	Card     string `yaml:"card" mapstructure:"card"`
	Title    string `yaml:"title" mapstructure:"title"`
	Link     string `yaml:"link" mapstructure:"link"`
	Company  string `yaml:"company" mapstructure:"company"`
	Location string `yaml:"location" mapstructure:"location"`
	Posted   string `yaml:"posted" mapstructure:"posted"`
	// IDAttr is read from the card; the value's last ':'-separated part
	// is the id.
	IDAttr string `yaml:"id_attr" mapstructure:"id_attr"`
}

var DefaultSelectors = Selectors{
	Card:     "li div.base-card, li div.job-search-card",
	Title:    ".base-search-card__title",
	Link:     "a.base-card__full-link",
	Company:  ".base-search-card__subtitle",
	Location: ".job-search-card__location",
	Posted:   "time",
	IDAttr:   "data-entity-urn",
}

func (s Selectors) withDefaults() Selectors {
	d := DefaultSelectors
	return Selectors{
		Card:     source.FirstNonEmpty(s.Card, d.Card),
		Title:    source.FirstNonEmpty(s.Title, d.Title),
		Link:     source.FirstNonEmpty(s.Link, d.Link),
		Company:  source.FirstNonEmpty(s.Company, d.Company),
		Location: source.FirstNonEmpty(s.Location, d.Location),
		Posted:   source.FirstNonEmpty(s.Posted, d.Posted),
		IDAttr:   source.FirstNonEmpty(s.IDAttr, d.IDAttr),
	}
}

type Config struct {
	Key string
	// URLTemplate may contain {query}, {page} (1-based) and {offset}.
	URLTemplate string
	Query       string
	PageSize    int
	MaxPages    int
	Selectors   Selectors
	Header      map[string]string
	Fallbacks   source.Fallbacks
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
	cfg.Selectors = cfg.Selectors.withDefaults()
	return &Scraper{cfg: cfg, f: f, match: match, pageDelay: PageDelay}
}

func (s *Scraper) Name() string { return s.cfg.Key }

func (s *Scraper) now() time.Time {
	if s.cfg.Fallbacks.Now != nil {
		return s.cfg.Fallbacks.Now()
	}
	return time.Now()
}

func (s *Scraper) pageURL(page int) string {
	r := strings.NewReplacer(
		"{query}", url.QueryEscape(s.cfg.Query),
		"{page}", strconv.Itoa(page+1),
		"{offset}", strconv.Itoa(page*s.cfg.PageSize),
	)
	return r.Replace(s.cfg.URLTemplate)
}

func (s *Scraper) Fetch(ctx context.Context) ([]domain.JobRecord, error) {
	if strings.TrimSpace(s.cfg.URLTemplate) == "" {
		return nil, fmt.Errorf("search: empty url template")
	}
	log := logrus.WithField("source", s.cfg.Key)
	c := source.NewCollector(s.match, s.cfg.Fallbacks)
	pages := 0

	for page := 0; page < s.cfg.MaxPages; page++ {
		if page > 0 {
			if err := source.Sleep(ctx, s.pageDelay); err != nil {
				log.Warnf("[search] page=%d wait: %v; keeping %d jobs", page+1, err, len(c.Jobs()))
				break
			}
		}

		pu := s.pageURL(page)
		body, err := s.f.Text(ctx, pu, s.cfg.Header)
		if err != nil {
			if page == 0 {
				return nil, fmt.Errorf("search get: %w", err)
			}
			log.Warnf("[search] page=%d err=%v; keeping %d jobs", page+1, err, len(c.Jobs()))
			break
		}
		pages++

		doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
		if err != nil {
			return nil, fmt.Errorf("search parse html: %w", err)
		}

		cards := doc.Find(s.cfg.Selectors.Card)
		if cards.Length() == 0 {
			break
		}

		fresh := 0
		cards.Each(func(_ int, card *goquery.Selection) {
			if c.Add(s.cardRecord(pu, card)) {
				fresh++
			}
		})
		if fresh == 0 {
			break
		}
	}

	log.Infof("[search] pages=%d seen=%d kept=%d rejected=%d", pages, c.Seen(), len(c.Jobs()), c.Rejected)
	return c.Jobs(), nil
}

func (s *Scraper) cardRecord(pageURL string, card *goquery.Selection) domain.JobRecord {
	sel := s.cfg.Selectors

	text := func(q string) string {
		return source.CleanText(card.Find(q).First().Text())
	}

	href, _ := card.Find(sel.Link).First().Attr("href")
	if href == "" {
		// cards that are themselves links
		href, _ = card.Attr("href")
	}
	link := source.CanonicalURL(source.AbsoluteURL(pageURL, href))

	id := ""
	if v, ok := card.Attr(sel.IDAttr); ok {
		v = strings.TrimSpace(v)
		id = v[strings.LastIndex(v, ":")+1:]
	}
	if id == "" {
		id = source.IDFromURL(link)
	}

	postedNode := card.Find(sel.Posted).First()
	posted, ok := postedNode.Attr("datetime")
	if !ok || strings.TrimSpace(posted) == "" {
		posted = source.RelativePosted(source.CleanText(postedNode.Text()), s.now())
	}

	return domain.JobRecord{
		ID:         id,
		Title:      text(sel.Title),
		URL:        link,
		Location:   text(sel.Location),
		Department: text(sel.Company),
		PostedDate: posted,
	}
}
