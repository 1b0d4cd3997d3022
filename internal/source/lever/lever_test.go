package lever

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jobradar/jobradar/internal/fetch"
	"github.com/jobradar/jobradar/internal/source"
)

const postingsJSON = `[
  {
    "id": "5f1c2a8e-0b7a-4d0f-9d3e-1a2b3c4d5e6f",
    "text": "Backend Engineer",
    "hostedUrl": "https://jobs.lever.co/initech/5f1c2a8e-0b7a-4d0f-9d3e-1a2b3c4d5e6f",
    "createdAt": 1760400000000,
    "categories": {"location": "Pune, India", "team": "Platform", "commitment": "Full-time"}
  },
  {
    "id": "8a7b6c5d-0000-1111-2222-333344445555",
    "text": "Office Manager",
    "hostedUrl": "https://jobs.lever.co/initech/8a7b6c5d-0000-1111-2222-333344445555",
    "createdAt": 1760400000000,
    "categories": {"location": "Pune, India", "team": "Workplace"}
  },
  {
    "id": "",
    "text": "Software Engineer II",
    "hostedUrl": "https://jobs.lever.co/initech/c0ffee00-1234",
    "workplaceType": "remote",
    "categories": {"department": "Engineering"}
  }
]`

func TestFetch(t *testing.T) {
	var gotPath, gotMode string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath, gotMode = r.URL.Path, r.URL.Query().Get("mode")
		_, _ = w.Write([]byte(postingsJSON))
	}))
	defer srv.Close()

	match := source.MatchFunc(func(title string) bool { return strings.Contains(title, "Engineer") })
	s := New(Config{Key: "initech", Company: "initech", APIBase: srv.URL, Fallbacks: source.Fallbacks{Department: "Initech"}}, fetch.New(fetch.Options{}), match)

	jobs, err := s.Fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "/v0/postings/initech", gotPath)
	assert.Equal(t, "json", gotMode)
	require.Len(t, jobs, 2)

	assert.Equal(t, "5f1c2a8e-0b7a-4d0f-9d3e-1a2b3c4d5e6f", jobs[0].ID)
	assert.Equal(t, "Pune, India", jobs[0].Location)
	assert.Equal(t, "Platform", jobs[0].Department)
	assert.Equal(t, "Full-time", jobs[0].Type)
	assert.Equal(t, "2025-10-14T00:00:00Z", jobs[0].PostedDate)

	assert.Equal(t, "c0ffee00-1234", jobs[1].ID, "id falls back to the url tail")
	assert.Equal(t, "Remote", jobs[1].Location)
	assert.Equal(t, "Engineering", jobs[1].Department)
}

func TestFetch_Errors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.Contains(r.URL.Path, "gone") {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(`{"ok":false}`))
	}))
	defer srv.Close()

	f := fetch.New(fetch.Options{})
	_, err := New(Config{Key: "x", Company: "gone", APIBase: srv.URL}, f, nil).Fetch(context.Background())
	assert.ErrorIs(t, err, fetch.ErrStatus)

	_, err = New(Config{Key: "x", Company: "initech", APIBase: srv.URL}, f, nil).Fetch(context.Background())
	assert.ErrorContains(t, err, "lever decode")

	_, err = New(Config{Key: "x"}, f, nil).Fetch(context.Background())
	assert.Error(t, err)
}
