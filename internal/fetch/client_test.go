package fetch

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_Text_FollowsRelativeRedirects(t *testing.T) {
	var gotUA, gotHeader string
	mux := http.NewServeMux()
	mux.HandleFunc("/start", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/middle", http.StatusFound)
	})
	mux.HandleFunc("/middle", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Location", "end?x=1")
		w.WriteHeader(http.StatusMovedPermanently)
	})
	mux.HandleFunc("/end", func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		gotHeader = r.Header.Get("X-Test")
		_, _ = io.WriteString(w, "done "+r.URL.Query().Get("x"))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := New(Options{UserAgent: "test-agent"})
	body, err := c.Text(context.Background(), srv.URL+"/start", map[string]string{"X-Test": "yes"})

	require.NoError(t, err)
	assert.Equal(t, "done 1", body)
	assert.Equal(t, "test-agent", gotUA)
	assert.Equal(t, "yes", gotHeader)
}

func TestClient_Text_TooManyRedirects(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/loop", http.StatusFound)
	}))
	defer srv.Close()

	_, err := New(Options{}).Text(context.Background(), srv.URL, nil)

	assert.ErrorIs(t, err, ErrTooManyRedirects)
}

func TestClient_Text_NonSuccessStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "slow down", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	_, err := New(Options{}).Text(context.Background(), srv.URL, nil)

	require.ErrorIs(t, err, ErrStatus)
	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusTooManyRequests, se.Code)
}

func TestClient_Do_PostKeepsBodyOn307(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/a", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/b", http.StatusTemporaryRedirect)
	})
	mux.HandleFunc("/b", func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		_, _ = io.WriteString(w, r.Method+":"+string(b))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	out, err := New(Options{}).Do(context.Background(), Request{
		Method: http.MethodPost,
		URL:    srv.URL + "/a",
		Body:   []byte(`{"limit":20}`),
	})

	require.NoError(t, err)
	assert.Equal(t, `POST:{"limit":20}`, string(out))
}

func TestClient_Do_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	_, err := New(Options{Timeout: 50 * time.Millisecond}).Text(context.Background(), srv.URL, nil)

	require.Error(t, err)
	assert.True(t, errors.Is(err, context.DeadlineExceeded) || strings.Contains(err.Error(), "deadline"))
}

func TestClient_RejectsNonHTTPScheme(t *testing.T) {
	_, err := New(Options{}).Text(context.Background(), "file:///etc/passwd", nil)
	assert.Error(t, err)
}
