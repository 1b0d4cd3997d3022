// Package dedup removes postings from a broad search that a company-specific
// source already covers.
package dedup

import (
	"strings"
	"unicode"

	"github.com/samber/lo"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/jobradar/jobradar/internal/domain"
)

// NormalizeTitle folds a title for comparison: accents stripped, lower case,
// single spaces.
func NormalizeTitle(title string) string {
	// a Chain keeps state, so each call builds its own
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	if folded, _, err := transform.String(t, title); err == nil {
		title = folded
	} else {
		title = norm.NFC.String(title)
	}
	return strings.ToLower(strings.Join(strings.Fields(title), " "))
}

// Covered is a set of normalized titles.
type Covered map[string]struct{}

// CoveredTitles collects the normalized titles of every job in the given
// primary sources.
func CoveredTitles(primaries ...[]domain.JobRecord) Covered {
	c := Covered{}
	for _, jobs := range primaries {
		for _, j := range jobs {
			if t := NormalizeTitle(j.Title); t != "" {
				c[t] = struct{}{}
			}
		}
	}
	return c
}

func (c Covered) Has(title string) bool {
	_, ok := c[NormalizeTitle(title)]
	return ok
}

// RemoveCovered returns the jobs whose normalized title is not in c, and how
// many were dropped.
func RemoveCovered(jobs []domain.JobRecord, c Covered) ([]domain.JobRecord, int) {
	if len(c) == 0 {
		return jobs, 0
	}
	kept := lo.Reject(jobs, func(j domain.JobRecord, _ int) bool {
		return c.Has(j.Title)
	})
	return kept, len(jobs) - len(kept)
}
