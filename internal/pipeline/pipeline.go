// Package pipeline runs one aggregation pass: fetch every source, filter,
// enrich, merge with the previous artifact and publish.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/jobradar/jobradar/internal/artifact"
	"github.com/jobradar/jobradar/internal/dedup"
	"github.com/jobradar/jobradar/internal/domain"
	"github.com/jobradar/jobradar/internal/enrich"
	"github.com/jobradar/jobradar/internal/merge"
	"github.com/jobradar/jobradar/internal/metrics"
	"github.com/jobradar/jobradar/internal/source"
	"github.com/jobradar/jobradar/internal/store"
)

// DefaultAdapterTimeout bounds one adapter's whole fetch.
const DefaultAdapterTimeout = 3 * time.Minute

// ErrRunInProgress is returned when Run is called while another run is
// still going.
var ErrRunInProgress = errors.New("a run is already in progress")

// Source is one configured upstream together with its adapter.
type Source struct {
	Key        string
	Name       string
	TargetRole string
	CareersURL string
	Adapter    source.Adapter
	// Primary sources define the titles dedup sources must not repeat.
	Primary bool
	Dedup   bool
	Enrich  bool
}

// Enricher annotates and thresholds postings.
type Enricher interface {
	Apply(ctx context.Context, jobs []domain.JobRecord) ([]domain.JobRecord, enrich.Stats)
}

// Recorder stores run history.
type Recorder interface {
	RecordRun(ctx context.Context, r store.Run) error
}

type Options struct {
	Sources        []Source
	Writer         artifact.Writer
	WindowDays     int
	AdapterTimeout time.Duration

	Enricher Enricher      // nil disables enrichment
	Cache    *enrich.Cache // saved after each run when set
	History  Recorder      // nil disables history
	Metrics  *metrics.Metrics
	// MetricsTextfile, when set, receives the registry after every run.
	MetricsTextfile string
	// OnFinish is called once per run, after history and metrics.
	OnFinish func(Result, error)
	Now      func() time.Time
}

type Pipeline struct {
	opts Options
	mu   sync.Mutex
}

// Result summarizes a finished run.
type Result struct {
	RunID     string
	Artifact  artifact.Artifact
	Sources   []store.SourceRun
	TotalJobs int
	Duration  time.Duration
}

func New(opts Options) *Pipeline {
	if opts.AdapterTimeout <= 0 {
		opts.AdapterTimeout = DefaultAdapterTimeout
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Pipeline{opts: opts}
}

type outcome struct {
	jobs []domain.JobRecord
	err  error
}

// Run performs one pass. Source failures are logged and recovered; only
// failing to publish the artifact is returned as an error.
func (p *Pipeline) Run(ctx context.Context) (Result, error) {
	if !p.mu.TryLock() {
		return Result{}, ErrRunInProgress
	}
	defer p.mu.Unlock()

	runID := uuid.NewString()
	started := p.opts.Now()
	log := logrus.WithField("run_id", runID)
	log.Infof("[pipeline] run started sources=%d", len(p.opts.Sources))

	prev := artifact.Load(p.opts.Writer.Path)
	outcomes := p.fetchAll(ctx, log)

	var lookups enrich.Stats
	now := p.opts.Now()
	merged := make(map[string][]domain.JobRecord, len(p.opts.Sources))
	report := make([]store.SourceRun, len(p.opts.Sources))

	process := func(i int, covered dedup.Covered) {
		s := p.opts.Sources[i]
		o := outcomes[i]
		fresh := o.jobs
		previous := prev.Jobs(s.Key)

		if s.Dedup {
			var removedFresh, removedPrev int
			fresh, removedFresh = dedup.RemoveCovered(fresh, covered)
			previous, removedPrev = dedup.RemoveCovered(previous, covered)
			if removedFresh+removedPrev > 0 {
				log.Infof("[dedup] source=%s removed fresh=%d retained=%d", s.Key, removedFresh, removedPrev)
			}
		}
		if s.Enrich && p.opts.Enricher != nil && len(fresh) > 0 {
			var st enrich.Stats
			fresh, st = p.opts.Enricher.Apply(ctx, fresh)
			lookups = addStats(lookups, st)
			// a posting now known to be under the threshold must not come
			// back from the previous artifact
			if len(st.DroppedIDs) > 0 {
				drop := make(map[string]struct{}, len(st.DroppedIDs))
				for _, id := range st.DroppedIDs {
					drop[id] = struct{}{}
				}
				previous = lo.Reject(previous, func(j domain.JobRecord, _ int) bool {
					_, ok := drop[j.ID]
					return ok
				})
			}
			log.Infof("[enrich] source=%s annotated=%d dropped=%d", s.Key, st.Annotated, st.Dropped)
		}

		merged[s.Key] = merge.Merge(previous, fresh, p.opts.WindowDays, now)

		report[i] = store.SourceRun{Key: s.Key, Fetched: len(o.jobs), Merged: len(merged[s.Key])}
		if o.err != nil {
			report[i].Error = o.err.Error()
		}
		log.Infof("[merge] source=%s fresh=%d previous=%d merged=%d", s.Key, len(fresh), len(previous), len(merged[s.Key]))
	}

	// everything that is not deduplicated goes first so the covered set
	// reflects the primaries' final lists
	for i, s := range p.opts.Sources {
		if !s.Dedup {
			process(i, nil)
		}
	}
	var primaries [][]domain.JobRecord
	for _, s := range p.opts.Sources {
		if s.Primary {
			primaries = append(primaries, merged[s.Key])
		}
	}
	covered := dedup.CoveredTitles(primaries...)
	for i, s := range p.opts.Sources {
		if s.Dedup {
			process(i, covered)
		}
	}

	results := make(map[string]domain.SourceResult, len(p.opts.Sources))
	for _, s := range p.opts.Sources {
		results[s.Key] = domain.SourceResult{
			Name:       s.Name,
			TargetRole: s.TargetRole,
			CareersURL: s.CareersURL,
			Jobs:       merged[s.Key],
		}
	}

	res := Result{RunID: runID, Sources: report}
	a, werr := p.opts.Writer.Write(ctx, results)
	res.Artifact = a
	res.Duration = p.opts.Now().Sub(started)

	if p.opts.Cache != nil {
		if err := p.opts.Cache.Save(); err != nil {
			log.Warnf("[enrich] %v", err)
		}
	}

	var failed []error
	for i, o := range outcomes {
		if o.err != nil {
			failed = append(failed, fmt.Errorf("%s: %w", p.opts.Sources[i].Key, o.err))
		}
	}
	if err := errors.Join(failed...); err != nil {
		log.Warnf("[pipeline] %d of %d sources failed, previous records kept:\n%v", len(failed), len(outcomes), err)
	}

	res.TotalJobs = lo.SumBy(report, func(r store.SourceRun) int { return r.Merged })
	p.finish(ctx, log, res, started, lookups, werr)

	if werr != nil {
		werr = fmt.Errorf("publish artifact: %w", werr)
	} else {
		log.Infof("[pipeline] run finished jobs=%d in %s", res.TotalJobs, res.Duration.Round(time.Millisecond))
	}
	if p.opts.OnFinish != nil {
		p.opts.OnFinish(res, werr)
	}
	return res, werr
}

// fetchAll runs every adapter concurrently and waits for all of them.
// A failing adapter never cancels its siblings.
func (p *Pipeline) fetchAll(ctx context.Context, log *logrus.Entry) []outcome {
	outcomes := make([]outcome, len(p.opts.Sources))

	var g errgroup.Group
	for i, s := range p.opts.Sources {
		g.Go(func() error {
			fctx, cancel := context.WithTimeout(ctx, p.opts.AdapterTimeout)
			defer cancel()
			defer func() {
				if r := recover(); r != nil {
					log.WithField("source", s.Key).Errorf("[fetch] panic: %v\n%s", r, debug.Stack())
					outcomes[i] = outcome{err: fmt.Errorf("adapter panic: %v", r)}
				}
			}()

			t0 := time.Now()
			jobs, err := s.Adapter.Fetch(fctx)
			if err != nil {
				log.WithField("source", s.Key).Warnf("[fetch] failed after %s: %v", time.Since(t0).Round(time.Millisecond), err)
				outcomes[i] = outcome{err: err}
				return nil
			}
			log.WithField("source", s.Key).Infof("[fetch] jobs=%d in %s", len(jobs), time.Since(t0).Round(time.Millisecond))
			outcomes[i] = outcome{jobs: jobs}
			return nil
		})
	}
	_ = g.Wait()
	return outcomes
}

func (p *Pipeline) finish(ctx context.Context, log *logrus.Entry, res Result, started time.Time, lookups enrich.Stats, werr error) {
	status, errText := store.StatusOK, ""
	if werr != nil {
		status, errText = store.StatusFailed, werr.Error()
	}

	if m := p.opts.Metrics; m != nil {
		for _, r := range res.Sources {
			m.FetchedJobs.WithLabelValues(r.Key).Set(float64(r.Fetched))
			m.MergedJobs.WithLabelValues(r.Key).Set(float64(r.Merged))
			if r.Error != "" {
				m.SourceFailures.WithLabelValues(r.Key).Inc()
			}
		}
		m.AddLookups(lookups.Results())
		m.ObserveRun(res.Duration, werr == nil, p.opts.Now())
		if p.opts.MetricsTextfile != "" {
			if err := m.WriteTextfile(p.opts.MetricsTextfile); err != nil {
				log.Warnf("[metrics] %v", err)
			}
		}
	}

	if p.opts.History != nil {
		err := p.opts.History.RecordRun(ctx, store.Run{
			ID:         res.RunID,
			StartedAt:  started,
			FinishedAt: started.Add(res.Duration),
			Status:     status,
			Error:      errText,
			TotalJobs:  res.TotalJobs,
			Sources:    res.Sources,
		})
		if err != nil {
			log.Warnf("[history] %v", err)
		}
	}
}

func addStats(a, b enrich.Stats) enrich.Stats {
	return enrich.Stats{
		Curated:   a.Curated + b.Curated,
		Cached:    a.Cached + b.Cached,
		Fetched:   a.Fetched + b.Fetched,
		NoData:    a.NoData + b.NoData,
		Errors:    a.Errors + b.Errors,
		Annotated: a.Annotated + b.Annotated,
		Dropped:   a.Dropped + b.Dropped,
	}
}
