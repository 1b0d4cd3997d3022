package enrich

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jobradar/jobradar/internal/fetch"
)

func TestPageLookup(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/salaries/hooli-labs":
			_, _ = w.Write([]byte(`<div class="range"><span class="lo">₹ 28.5 L</span><span class="hi">₹1.1 Cr</span></div>`))
		case "/salaries/empty":
			_, _ = w.Write([]byte(`<div class="range"></div>`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	p := NewPageLookup(PageConfig{
		URLTemplate: srv.URL + "/salaries/{slug}",
		MinSelector: ".lo",
		MaxSelector: ".hi",
	}, fetch.New(fetch.Options{}))

	est, err := p.Lookup(context.Background(), "Hooli Labs")
	require.NoError(t, err)
	assert.Equal(t, int64(2_850_000), est.Min)
	assert.Equal(t, int64(11_000_000), est.Max)

	_, err = p.Lookup(context.Background(), "Empty")
	assert.ErrorIs(t, err, ErrNoData)

	_, err = p.Lookup(context.Background(), "Nobody")
	assert.ErrorIs(t, err, ErrNoData, "404 means no data, not a failure")
}

func TestParseAmount(t *testing.T) {
	cases := []struct {
		in   string
		want int64
		ok   bool
	}{
		{"₹ 25,00,000", 2_500_000, true},
		{"25.5 L", 2_550_000, true},
		{"12 LPA", 1_200_000, true},
		{"1.2 Cr", 12_000_000, true},
		{"$180K", 180_000, true},
		{"USD 1.5M per year", 1_500_000, true},
		{"4,500,000", 4_500_000, true},
		{"n/a", 0, false},
	}
	for _, c := range cases {
		got, ok := ParseAmount(c.in)
		assert.Equal(t, c.ok, ok, c.in)
		assert.Equal(t, c.want, got, c.in)
	}
}
