// Package greenhouse reads a company's postings from the public Greenhouse
// job board API.
package greenhouse

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/jobradar/jobradar/internal/domain"
	"github.com/jobradar/jobradar/internal/source"
)

const DefaultAPIBase = "https://boards-api.greenhouse.io"

type Config struct {
	Key   string
	Board string // boards.greenhouse.io/<board>
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

type boardResponse struct {
	Jobs []boardJob `json:"jobs"`
}

type boardJob struct {
	ID             json.Number `json:"id"`
	Title          string      `json:"title"`
	AbsoluteURL    string      `json:"absolute_url"`
	UpdatedAt      string      `json:"updated_at"`
	FirstPublished string      `json:"first_published"`
	Location       struct {
		Name string `json:"name"`
	} `json:"location"`
	Departments []struct {
		Name string `json:"name"`
	} `json:"departments"`
	Metadata []struct {
		Name  string `json:"name"`
		Value any    `json:"value"`
	} `json:"metadata"`
}

func (s *Scraper) Fetch(ctx context.Context) ([]domain.JobRecord, error) {
	board := strings.Trim(strings.TrimSpace(s.cfg.Board), "/")
	if board == "" {
		return nil, fmt.Errorf("greenhouse: empty board")
	}
	endpoint := fmt.Sprintf("%s/v1/boards/%s/jobs", strings.TrimRight(s.cfg.APIBase, "/"), url.PathEscape(board))

	body, err := s.f.Text(ctx, endpoint, map[string]string{"Accept": "application/json"})
	if err != nil {
		return nil, fmt.Errorf("greenhouse get board: %w", err)
	}

	var res boardResponse
	dec := json.NewDecoder(strings.NewReader(body))
	dec.UseNumber()
	if err := dec.Decode(&res); err != nil {
		return nil, fmt.Errorf("greenhouse decode: %w", err)
	}

	c := source.NewCollector(s.match, s.cfg.Fallbacks)
	for _, j := range res.Jobs {
		var dept string
		if len(j.Departments) > 0 {
			dept = j.Departments[0].Name
		}
		c.Add(domain.JobRecord{
			ID:         source.FirstNonEmpty(j.ID.String(), source.IDFromURL(j.AbsoluteURL)),
			Title:      j.Title,
			URL:        j.AbsoluteURL,
			Location:   j.Location.Name,
			Department: dept,
			Type:       metadataString(j, "employment type", "job type"),
			PostedDate: source.FirstNonEmpty(j.FirstPublished, j.UpdatedAt),
		})
	}

	logrus.WithField("source", s.cfg.Key).Infof("[greenhouse] board=%s jobs=%d kept=%d", board, len(res.Jobs), len(c.Jobs()))
	return c.Jobs(), nil
}

// metadataString returns the first custom field whose name matches one of
// names (case-insensitive) and holds a string or number.
func metadataString(j boardJob, names ...string) string {
	for _, m := range j.Metadata {
		for _, n := range names {
			if !strings.EqualFold(strings.TrimSpace(m.Name), n) {
				continue
			}
			switch v := m.Value.(type) {
			case string:
				return v
			case float64:
				return strconv.FormatFloat(v, 'f', -1, 64)
			}
		}
	}
	return ""
}
