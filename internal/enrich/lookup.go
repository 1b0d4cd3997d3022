package enrich

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/gosimple/slug"

	"github.com/jobradar/jobradar/internal/fetch"
)

// Fetcher is the retrieval capability the page lookup needs.
type Fetcher interface {
	Text(ctx context.Context, url string, header map[string]string) (string, error)
}

// PageConfig describes a third-party salary page. URLTemplate contains
// {slug}; the selectors point at the elements holding the figures.
type PageConfig struct {
	URLTemplate string
	MinSelector string
	MaxSelector string
	Header      map[string]string
}

// PageLookup scrapes one page per company.
type PageLookup struct {
	cfg PageConfig
	f   Fetcher
}

func NewPageLookup(cfg PageConfig, f Fetcher) *PageLookup {
	return &PageLookup{cfg: cfg, f: f}
}

func (p *PageLookup) Lookup(ctx context.Context, company string) (Estimate, error) {
	s := slug.Make(company)
	if s == "" {
		return Estimate{}, ErrNoData
	}
	u := strings.ReplaceAll(p.cfg.URLTemplate, "{slug}", url.PathEscape(s))

	body, err := p.f.Text(ctx, u, p.cfg.Header)
	if err != nil {
		var se *fetch.StatusError
		if errors.As(err, &se) && se.Code == http.StatusNotFound {
			return Estimate{}, ErrNoData
		}
		return Estimate{}, fmt.Errorf("lookup %s: %w", company, err)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return Estimate{}, fmt.Errorf("lookup %s parse: %w", company, err)
	}

	maxV, ok := ParseAmount(doc.Find(p.cfg.MaxSelector).First().Text())
	if !ok || maxV <= 0 {
		return Estimate{}, ErrNoData
	}
	est := Estimate{Max: maxV, Source: SourceFallback}
	if p.cfg.MinSelector != "" {
		if minV, ok := ParseAmount(doc.Find(p.cfg.MinSelector).First().Text()); ok && minV <= maxV {
			est.Min = minV
		}
	}
	return est, nil
}

var amountRe = regexp.MustCompile(`(\d[\d,]*(?:\.\d+)?)\s*(crores?|cr|lakhs?|lpa|l|k|m)?\b`)

// ParseAmount reads the first figure in s, honouring Indian and western
// magnitude suffixes ("25.5 L", "1.2 Cr", "180K").
func ParseAmount(s string) (int64, bool) {
	m := amountRe.FindStringSubmatch(strings.ToLower(s))
	if m == nil {
		return 0, false
	}
	f, err := strconv.ParseFloat(strings.ReplaceAll(m[1], ",", ""), 64)
	if err != nil {
		return 0, false
	}
	switch m[2] {
	case "cr", "crore", "crores":
		f *= 1e7
	case "l", "lakh", "lakhs", "lpa":
		f *= 1e5
	case "k":
		f *= 1e3
	case "m":
		f *= 1e6
	}
	return int64(f + 0.5), true
}
