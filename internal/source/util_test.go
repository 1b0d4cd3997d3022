package source

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/jobradar/jobradar/internal/domain"
)

func TestIDFromURL(t *testing.T) {
	assert.Equal(t, "JR-1234", IDFromURL("https://careers.example.com/job/Bengaluru/Senior-Engineer/JR-1234/?utm_source=x#apply"))
	assert.Equal(t, "abc def", IDFromURL("https://example.com/jobs/abc%20def"))
	assert.Equal(t, "https://example.com/", IDFromURL("https://example.com/"))
}

func TestCanonicalURL_DropsTracking(t *testing.T) {
	got := CanonicalURL("HTTPS://Example.com/jobs/1?utm_campaign=a&b=2&gclid=z#frag")
	assert.Equal(t, "https://example.com/jobs/1?b=2", got)
}

func TestAbsoluteURL(t *testing.T) {
	assert.Equal(t, "https://example.com/jobs/9", AbsoluteURL("https://example.com/search?q=x", "/jobs/9"))
	assert.Equal(t, "https://other.com/x", AbsoluteURL("https://example.com", "https://other.com/x"))
	assert.Equal(t, "", AbsoluteURL("https://example.com", "  "))
}

func TestNormalizeLocation(t *testing.T) {
	assert.Equal(t, "Bengaluru, Karnataka, India", NormalizeLocation("Location:  Bengaluru, Karnataka, karnataka,, India"))
	assert.Equal(t, "", NormalizeLocation("   "))
}

func TestFallbacks_Apply(t *testing.T) {
	fixed := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	f := Fallbacks{Department: "Acme", Now: func() time.Time { return fixed }}

	j := domain.JobRecord{ID: "1", Title: "  Senior Engineer "}
	f.Apply(&j)

	assert.Equal(t, "Senior Engineer", j.Title)
	assert.Equal(t, DefaultLocation, j.Location)
	assert.Equal(t, "Acme", j.Department)
	assert.Equal(t, "Full time", j.Type)
	assert.Equal(t, "2024-06-01T00:00:00Z", j.PostedDate)
}

func TestFallbacks_Apply_KeepsUnparseableDate(t *testing.T) {
	j := domain.JobRecord{ID: "1", PostedDate: "Posted 30+ Days Ago"}
	Fallbacks{}.Apply(&j)
	assert.Equal(t, "Posted 30+ Days Ago", j.PostedDate)
}

func TestFallbacks_Apply_NormalizesDate(t *testing.T) {
	j := domain.JobRecord{ID: "1", PostedDate: "Tue, 05 Mar 2024 10:00:00 +0000"}
	Fallbacks{}.Apply(&j)
	assert.Equal(t, "2024-03-05T10:00:00Z", j.PostedDate)
}
