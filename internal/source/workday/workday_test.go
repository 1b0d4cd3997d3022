package workday

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jobradar/jobradar/internal/fetch"
	"github.com/jobradar/jobradar/internal/source"
)

const boardURL = "https://acme.wd5.myworkdayjobs.com/en-US/External"

var now = time.Date(2026, 10, 18, 6, 0, 0, 0, time.UTC)

// board serves postings by offset; page decides what each request returns.
func newBoard(t *testing.T, page func(req wdRequest) (int, wdResponse)) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		assert.Equal(t, http.MethodPost, r.Method)
		var req wdRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		code, res := page(req)
		w.WriteHeader(code)
		_ = json.NewEncoder(w).Encode(res)
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

func posting(n int) wdPosting {
	return wdPosting{
		Title:         fmt.Sprintf("Senior Software Engineer %d", n),
		ExternalPath:  fmt.Sprintf("/job/Bangalore/Senior-Software-Engineer_JR-%d", n),
		LocationsText: "Bangalore, India",
		PostedOn:      "Posted 2 Days Ago",
		BulletFields:  []string{fmt.Sprintf("JR-%d", n)},
	}
}

func newScraper(endpoint string, maxPages int) *Scraper {
	s := New(Config{
		Key:       "acme",
		BoardURL:  boardURL,
		Endpoint:  endpoint,
		PageSize:  2,
		MaxPages:  maxPages,
		Fallbacks: source.Fallbacks{Now: func() time.Time { return now }},
	}, fetch.New(fetch.Options{}), nil)
	s.pageDelay = 0
	return s
}

func TestFetch_StopsWhenPageHasNothingNew(t *testing.T) {
	srv, calls := newBoard(t, func(req wdRequest) (int, wdResponse) {
		return 200, wdResponse{JobPostings: []wdPosting{posting(1), posting(2)}}
	})

	jobs, err := newScraper(srv.URL, 10).Fetch(context.Background())
	require.NoError(t, err)
	assert.Len(t, jobs, 2)
	assert.EqualValues(t, 2, calls.Load())

	assert.Equal(t, "JR-1", jobs[0].ID)
	assert.Equal(t, boardURL+"/job/Bangalore/Senior-Software-Engineer_JR-1", jobs[0].URL)
	assert.Equal(t, "Bangalore, India", jobs[0].Location)
	assert.Equal(t, "2026-10-16T06:00:00Z", jobs[0].PostedDate)
}

func TestFetch_PageCeiling(t *testing.T) {
	srv, calls := newBoard(t, func(req wdRequest) (int, wdResponse) {
		return 200, wdResponse{JobPostings: []wdPosting{posting(req.Offset), posting(req.Offset + 1)}}
	})

	jobs, err := newScraper(srv.URL, 3).Fetch(context.Background())
	require.NoError(t, err)
	assert.Len(t, jobs, 6)
	assert.EqualValues(t, 3, calls.Load())
}

func TestFetch_StopsAtTotal(t *testing.T) {
	srv, calls := newBoard(t, func(req wdRequest) (int, wdResponse) {
		res := wdResponse{JobPostings: []wdPosting{posting(req.Offset)}}
		if req.Offset+1 < 3 {
			res.JobPostings = append(res.JobPostings, posting(req.Offset+1))
		}
		if req.Offset == 0 {
			res.Total = 3
		}
		return 200, res
	})

	jobs, err := newScraper(srv.URL, 10).Fetch(context.Background())
	require.NoError(t, err)
	assert.Len(t, jobs, 3)
	assert.EqualValues(t, 2, calls.Load())
}

func TestFetch_EmptyPage(t *testing.T) {
	srv, calls := newBoard(t, func(req wdRequest) (int, wdResponse) {
		if req.Offset > 0 {
			return 200, wdResponse{}
		}
		return 200, wdResponse{JobPostings: []wdPosting{posting(1), posting(2)}}
	})

	jobs, err := newScraper(srv.URL, 10).Fetch(context.Background())
	require.NoError(t, err)
	assert.Len(t, jobs, 2)
	assert.EqualValues(t, 2, calls.Load())
}

func TestFetch_FirstPageFailureIsError(t *testing.T) {
	srv, _ := newBoard(t, func(req wdRequest) (int, wdResponse) {
		return http.StatusServiceUnavailable, wdResponse{}
	})

	_, err := newScraper(srv.URL, 3).Fetch(context.Background())
	assert.ErrorIs(t, err, fetch.ErrStatus)
}

func TestFetch_LaterPageFailureKeepsPartial(t *testing.T) {
	srv, _ := newBoard(t, func(req wdRequest) (int, wdResponse) {
		if req.Offset > 0 {
			return http.StatusTooManyRequests, wdResponse{}
		}
		return 200, wdResponse{JobPostings: []wdPosting{posting(1), posting(2)}}
	})

	jobs, err := newScraper(srv.URL, 3).Fetch(context.Background())
	require.NoError(t, err)
	assert.Len(t, jobs, 2)
}

func TestFetch_PacesPages(t *testing.T) {
	var mu sync.Mutex
	var at []time.Time
	srv, _ := newBoard(t, func(req wdRequest) (int, wdResponse) {
		mu.Lock()
		at = append(at, time.Now())
		mu.Unlock()
		return 200, wdResponse{JobPostings: []wdPosting{posting(req.Offset), posting(req.Offset + 1)}}
	})

	s := newScraper(srv.URL, 3)
	s.pageDelay = 20 * time.Millisecond
	_, err := s.Fetch(context.Background())
	require.NoError(t, err)

	require.Len(t, at, 3)
	for i := 1; i < len(at); i++ {
		assert.GreaterOrEqual(t, at[i].Sub(at[i-1]), s.pageDelay, "page %d requested early", i)
	}
}

func TestFetch_DeadlineDuringPageWaitKeepsPartial(t *testing.T) {
	srv, calls := newBoard(t, func(req wdRequest) (int, wdResponse) {
		return 200, wdResponse{JobPostings: []wdPosting{posting(req.Offset), posting(req.Offset + 1)}}
	})

	s := newScraper(srv.URL, 3)
	s.pageDelay = time.Second
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	jobs, err := s.Fetch(ctx)
	require.NoError(t, err)
	assert.Len(t, jobs, 2)
	assert.EqualValues(t, 1, calls.Load())
}

func TestParseBoardURL(t *testing.T) {
	b, err := parseBoardURL(boardURL)
	require.NoError(t, err)
	assert.Equal(t, "acme", b.Tenant)
	assert.Equal(t, "External", b.Site)
	assert.Equal(t, "en-US", b.Locale)
	assert.Equal(t, "https://acme.wd5.myworkdayjobs.com/wday/cxs/acme/External/jobs", b.jobsEndpoint())

	_, err = parseBoardURL("https://localhost/External")
	assert.Error(t, err)
}
