package search

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jobradar/jobradar/internal/fetch"
	"github.com/jobradar/jobradar/internal/source"
)

var now = time.Date(2026, 10, 18, 0, 0, 0, 0, time.UTC)

func card(id int, title, company string) string {
	return fmt.Sprintf(`<li><div class="base-card" data-entity-urn="urn:li:jobPosting:%d">
  <a class="base-card__full-link" href="/jobs/view/%d?trackingId=abc&utm_source=x"></a>
  <h3 class="base-search-card__title"> %s </h3>
  <h4 class="base-search-card__subtitle"><a>%s</a></h4>
  <span class="job-search-card__location">Pune, Maharashtra, India</span>
  <time datetime="2026-10-1%d">%d days ago</time>
</div></li>`, id, id, title, company, id%10, id%10)
}

func newScraper(tmpl string, maxPages int) *Scraper {
	s := New(Config{
		Key:         "broad",
		URLTemplate: tmpl,
		Query:       "senior software engineer",
		MaxPages:    maxPages,
		Fallbacks:   source.Fallbacks{Now: func() time.Time { return now }},
	}, fetch.New(fetch.Options{}), nil)
	s.pageDelay = 0
	return s
}

func TestFetch_Pages(t *testing.T) {
	var calls atomic.Int32
	var queries []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		queries = append(queries, r.URL.Query().Get("keywords"))
		start, _ := strconv.Atoi(r.URL.Query().Get("start"))
		if start >= 50 {
			return
		}
		var b strings.Builder
		b.WriteString("<ul>")
		b.WriteString(card(start+1, "Senior Backend Engineer", "Initech"))
		b.WriteString(card(start+2, "Senior Platform Engineer", "Hooli"))
		b.WriteString("</ul>")
		_, _ = w.Write([]byte(b.String()))
	}))
	defer srv.Close()

	jobs, err := newScraper(srv.URL+"/search?keywords={query}&start={offset}", 10).Fetch(context.Background())
	require.NoError(t, err)

	assert.EqualValues(t, 3, calls.Load(), "third page is empty")
	require.Len(t, jobs, 4)
	assert.Equal(t, "senior software engineer", queries[0])

	j := jobs[0]
	assert.Equal(t, "1", j.ID)
	assert.Equal(t, "Senior Backend Engineer", j.Title)
	assert.Equal(t, "Initech", j.Department)
	assert.Equal(t, "Pune, Maharashtra, India", j.Location)
	assert.Equal(t, srv.URL+"/jobs/view/1?trackingId=abc", j.URL)
	assert.Equal(t, "2026-10-11T00:00:00Z", j.PostedDate)
}

func TestFetch_StopsOnRepeatedPage(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		_, _ = w.Write([]byte("<ul>" + card(7, "Senior SRE", "Umbrella") + "</ul>"))
	}))
	defer srv.Close()

	jobs, err := newScraper(srv.URL+"/?p={page}", 10).Fetch(context.Background())
	require.NoError(t, err)
	assert.Len(t, jobs, 1)
	assert.EqualValues(t, 2, calls.Load())
}

// pagedBoard serves two fresh cards per ?p= page.
func pagedBoard(t *testing.T, onRequest func()) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		onRequest()
		p, _ := strconv.Atoi(r.URL.Query().Get("p"))
		_, _ = w.Write([]byte("<ul>" + card(p*10+1, "Senior SRE", "Umbrella") + card(p*10+2, "Senior SDE", "Hooli") + "</ul>"))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestFetch_PacesPages(t *testing.T) {
	var mu sync.Mutex
	var at []time.Time
	srv := pagedBoard(t, func() {
		mu.Lock()
		at = append(at, time.Now())
		mu.Unlock()
	})

	s := newScraper(srv.URL+"/?p={page}", 3)
	s.pageDelay = 20 * time.Millisecond
	jobs, err := s.Fetch(context.Background())
	require.NoError(t, err)
	assert.Len(t, jobs, 6)

	require.Len(t, at, 3)
	for i := 1; i < len(at); i++ {
		assert.GreaterOrEqual(t, at[i].Sub(at[i-1]), s.pageDelay, "page %d requested early", i)
	}
}

func TestFetch_DeadlineDuringPageWaitKeepsPartial(t *testing.T) {
	var calls atomic.Int32
	srv := pagedBoard(t, func() { calls.Add(1) })

	s := newScraper(srv.URL+"/?p={page}", 3)
	s.pageDelay = time.Second
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	jobs, err := s.Fetch(ctx)
	require.NoError(t, err)
	assert.Len(t, jobs, 2)
	assert.EqualValues(t, 1, calls.Load())
}

func TestFetch_CustomSelectorsAndRelativeDates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<div class="results">
<article class="job"><a class="t" href="https://jobs.example.org/p/senior-dev-991">Senior Developer</a>
<span class="co">Vandelay</span><span class="when">3 days ago</span></article>
</div>`))
	}))
	defer srv.Close()

	s := New(Config{
		Key:         "broad",
		URLTemplate: srv.URL + "/?q={query}",
		MaxPages:    1,
		Selectors:   Selectors{Card: "article.job", Title: "a.t", Link: "a.t", Company: ".co", Posted: ".when"},
		Fallbacks:   source.Fallbacks{Now: func() time.Time { return now }},
	}, fetch.New(fetch.Options{}), nil)

	jobs, err := s.Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.Equal(t, "senior-dev-991", jobs[0].ID)
	assert.Equal(t, "Vandelay", jobs[0].Department)
	assert.Equal(t, "India", jobs[0].Location)
	assert.Equal(t, "2026-10-15T00:00:00Z", jobs[0].PostedDate)
}

func TestFetch_FirstPageDown(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	_, err := newScraper(srv.URL+"/?p={page}", 3).Fetch(context.Background())
	assert.ErrorIs(t, err, fetch.ErrStatus)
}

func TestPageURL(t *testing.T) {
	s := New(Config{URLTemplate: "https://x.test/s?q={query}&page={page}&start={offset}", Query: "a b", PageSize: 10}, nil, nil)
	assert.Equal(t, "https://x.test/s?q=a+b&page=3&start=20", s.pageURL(2))
}
