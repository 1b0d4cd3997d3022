// Package merge combines a source's freshly fetched jobs with the jobs it
// retained from earlier runs.
package merge

import (
	"sort"
	"strings"
	"time"

	"github.com/jobradar/jobradar/internal/domain"
)

const day = 24 * time.Hour

// Merge overlays fresh onto the previous records that are still inside the
// retention window and returns the result newest first.
//
// Previous records dated before now-windowDays, or whose postedDate does not
// parse, are dropped. A fresh record always replaces a previous record with
// the same id, regardless of its age. Records without a usable date sort
// after dated ones; ties break on id.
func Merge(previous, fresh []domain.JobRecord, windowDays int, now time.Time) []domain.JobRecord {
	cutoff := now.Add(-time.Duration(windowDays) * day)

	byID := make(map[string]domain.JobRecord, len(previous)+len(fresh))
	for _, j := range previous {
		id := key(j)
		if id == "" {
			continue
		}
		t, ok := domain.ParsePosted(j.PostedDate)
		if !ok || t.Before(cutoff) {
			continue
		}
		byID[id] = j
	}
	for _, j := range fresh {
		id := key(j)
		if id == "" {
			continue
		}
		byID[id] = j
	}

	out := make([]domain.JobRecord, 0, len(byID))
	for _, j := range byID {
		out = append(out, j)
	}
	Sort(out)
	return out
}

// Sort orders jobs by postedDate descending. Unknown dates go last and equal
// dates fall back to id so repeated runs produce identical output.
func Sort(jobs []domain.JobRecord) {
	type dated struct {
		job domain.JobRecord
		t   time.Time
		ok  bool
	}
	ds := make([]dated, len(jobs))
	for i, j := range jobs {
		t, ok := domain.ParsePosted(j.PostedDate)
		ds[i] = dated{job: j, t: t, ok: ok}
	}

	sort.SliceStable(ds, func(a, b int) bool {
		da, db := ds[a], ds[b]
		switch {
		case da.ok && !db.ok:
			return true
		case !da.ok && db.ok:
			return false
		case da.ok && db.ok && !da.t.Equal(db.t):
			return da.t.After(db.t)
		}
		return key(da.job) < key(db.job)
	})

	for i := range ds {
		jobs[i] = ds[i].job
	}
}

func key(j domain.JobRecord) string {
	return strings.TrimSpace(j.ID)
}
