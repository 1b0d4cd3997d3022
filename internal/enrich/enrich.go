// Package enrich annotates postings with a compensation estimate for the
// hiring company and drops postings from companies below a threshold.
package enrich

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
	"unicode"

	"github.com/dustin/go-humanize"
	"github.com/gosimple/slug"
	"github.com/samber/lo"
	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"
	"golang.org/x/sync/errgroup"

	"github.com/jobradar/jobradar/internal/domain"
)

const (
	SourceCurated  = "curated"
	SourceFallback = "fallback-lookup"

	DefaultConcurrency = 5
	// BatchDelay paces consecutive batches of fallback lookups.
	BatchDelay = time.Second
)

// ErrNoData means the company has no usable compensation figure.
var ErrNoData = errors.New("no compensation data")

// Estimate is a yearly compensation range. Min is zero when unknown.
type Estimate struct {
	Min    int64  `yaml:"min" mapstructure:"min"`
	Max    int64  `yaml:"max" mapstructure:"max"`
	Source string `yaml:"-" mapstructure:"-"`
}

// Lookup resolves one company the slow way.
type Lookup interface {
	Lookup(ctx context.Context, company string) (Estimate, error)
}

type Options struct {
	// MinCompensation drops postings whose company's Max is lower. Zero
	// disables the threshold.
	MinCompensation int64
	Currency        string
	Concurrency     int
}

// Stats counts how each distinct company was resolved.
type Stats struct {
	Curated   int
	Cached    int
	Fetched   int
	NoData    int
	Errors    int
	Annotated int
	Dropped   int
	// DroppedIDs are the postings removed for falling under the threshold.
	DroppedIDs []string
}

// Results returns the per-outcome lookup counts.
func (s Stats) Results() map[string]int {
	return map[string]int{
		"curated": s.Curated,
		"cached":  s.Cached,
		"fetched": s.Fetched,
		"no_data": s.NoData,
		"error":   s.Errors,
	}
}

type Stage struct {
	curated    map[string]Estimate
	keys       []string // curated keys, longest first
	lookup     Lookup
	cache      *Cache
	opts       Options
	cb         *gobreaker.CircuitBreaker
	batchDelay time.Duration
}

// NewStage builds a stage. curated maps company names to known ranges;
// lookup and cache may be nil to disable the fallback path.
func NewStage(curated map[string]Estimate, lookup Lookup, cache *Cache, opts Options) *Stage {
	if opts.Concurrency <= 0 {
		opts.Concurrency = DefaultConcurrency
	}
	if opts.Currency == "" {
		opts.Currency = "INR"
	}

	table := make(map[string]Estimate, len(curated))
	for name, est := range curated {
		if n := NormalizeName(name); n != "" {
			est.Source = SourceCurated
			table[n] = est
		}
	}
	keys := lo.Keys(table)
	sort.Slice(keys, func(i, j int) bool {
		if len(keys[i]) != len(keys[j]) {
			return len(keys[i]) > len(keys[j])
		}
		return keys[i] < keys[j]
	})

	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "compensation-lookup",
		Timeout: 2 * time.Minute,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			return c.ConsecutiveFailures >= 3
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, ErrNoData)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logrus.Warnf("[enrich] breaker %s: %s -> %s", name, from, to)
		},
	})

	return &Stage{
		curated:    table,
		keys:       keys,
		lookup:     lookup,
		cache:      cache,
		opts:       opts,
		cb:         cb,
		batchDelay: BatchDelay,
	}
}

var companySuffixes = []string{
	" private limited", " pvt. ltd.", " pvt ltd", " pvt. ltd", " limited", " ltd.", " ltd",
	" inc.", " inc", " llc", " corporation", " corp.", " corp",
}

// NormalizeName lower-cases, collapses whitespace and strips legal suffixes.
func NormalizeName(name string) string {
	n := strings.ToLower(strings.Join(strings.Fields(name), " "))
	n = strings.TrimRight(n, " ,")
	for _, suf := range companySuffixes {
		if strings.HasSuffix(n, suf) {
			n = strings.TrimRight(strings.TrimSuffix(n, suf), " ,")
			break
		}
	}
	return n
}

func (s *Stage) curatedFor(name string) (Estimate, bool) {
	if est, ok := s.curated[name]; ok {
		return est, true
	}
	words := " " + wordsOf(name) + " "
	for _, k := range s.keys {
		if kw := wordsOf(k); kw != "" && strings.Contains(words, " "+kw+" ") {
			return s.curated[k], true
		}
	}
	return Estimate{}, false
}

// wordsOf keeps only letter and digit runs, so "Google, India" and
// "google india" compare equal word for word.
func wordsOf(s string) string {
	return strings.Join(strings.FieldsFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	}), " ")
}

// Resolve returns an estimate for each company that has one, keyed by
// NormalizeName. Companies without data are absent from the map.
func (s *Stage) Resolve(ctx context.Context, companies []string) (map[string]Estimate, Stats) {
	var st Stats
	out := map[string]Estimate{}

	names := lo.Uniq(lo.FilterMap(companies, func(c string, _ int) (string, bool) {
		n := NormalizeName(c)
		return n, n != ""
	}))
	sort.Strings(names)

	var pending []string
	for _, n := range names {
		if est, ok := s.curatedFor(n); ok {
			out[n] = est
			st.Curated++
			continue
		}
		if key := slug.Make(n); s.cache != nil && key != "" {
			if e, ok := s.cache.Get(key); ok {
				out[n] = entryEstimate(e)
				st.Cached++
				continue
			}
		}
		pending = append(pending, n)
	}

	if s.lookup == nil {
		st.NoData += len(pending)
		return out, st
	}

	type result struct {
		est Estimate
		err error
	}
	for start := 0; start < len(pending); start += s.opts.Concurrency {
		if start > 0 {
			select {
			case <-ctx.Done():
			case <-time.After(s.batchDelay):
			}
		}
		batch := pending[start:min(start+s.opts.Concurrency, len(pending))]
		results := make([]result, len(batch))

		var g errgroup.Group
		g.SetLimit(s.opts.Concurrency)
		for i, name := range batch {
			g.Go(func() error {
				v, err := s.cb.Execute(func() (interface{}, error) {
					return s.lookup.Lookup(ctx, name)
				})
				if err != nil {
					results[i] = result{err: err}
					return nil
				}
				results[i] = result{est: v.(Estimate)}
				return nil
			})
		}
		_ = g.Wait()

		for i, name := range batch {
			r := results[i]
			switch {
			case r.err == nil:
				r.est.Source = SourceFallback
				out[name] = r.est
				st.Fetched++
				if key := slug.Make(name); s.cache != nil && key != "" {
					s.cache.Put(key, estimateEntry(r.est))
				}
			case errors.Is(r.err, ErrNoData), errors.Is(r.err, gobreaker.ErrOpenState), errors.Is(r.err, gobreaker.ErrTooManyRequests):
				st.NoData++
			default:
				logrus.Debugf("[enrich] lookup %q: %v", name, r.err)
				st.Errors++
			}
		}
	}
	return out, st
}

// Apply resolves every distinct department in jobs, annotates the postings
// that have data and removes those under the threshold. Postings without
// data pass through untouched.
func (s *Stage) Apply(ctx context.Context, jobs []domain.JobRecord) ([]domain.JobRecord, Stats) {
	ests, st := s.Resolve(ctx, lo.Map(jobs, func(j domain.JobRecord, _ int) string { return j.Department }))

	out := make([]domain.JobRecord, 0, len(jobs))
	for _, j := range jobs {
		est, ok := ests[NormalizeName(j.Department)]
		if !ok {
			out = append(out, j)
			continue
		}
		if s.opts.MinCompensation > 0 && est.Max < s.opts.MinCompensation {
			st.Dropped++
			st.DroppedIDs = append(st.DroppedIDs, j.ID)
			continue
		}
		j.SalaryRange = FormatRange(est, s.opts.Currency)
		j.SalarySource = est.Source
		st.Annotated++
		out = append(out, j)
	}
	return out, st
}

// FormatRange renders est as e.g. "INR 2,500,000 - 4,000,000".
func FormatRange(est Estimate, currency string) string {
	if est.Min > 0 && est.Min < est.Max {
		return fmt.Sprintf("%s %s - %s", currency, humanize.Comma(est.Min), humanize.Comma(est.Max))
	}
	return fmt.Sprintf("up to %s %s", currency, humanize.Comma(est.Max))
}

func entryEstimate(e CacheEntry) Estimate {
	est := Estimate{Max: e.MaxValue, Source: SourceFallback}
	if e.MinValue != nil {
		est.Min = *e.MinValue
	}
	return est
}

func estimateEntry(est Estimate) CacheEntry {
	e := CacheEntry{MaxValue: est.Max, Source: SourceFallback}
	if est.Min > 0 {
		m := est.Min
		e.MinValue = &m
	}
	return e
}
