package pipeline

import (
	"context"
	"fmt"

	"github.com/jobradar/jobradar/internal/artifact"
	"github.com/jobradar/jobradar/internal/config"
	"github.com/jobradar/jobradar/internal/enrich"
	"github.com/jobradar/jobradar/internal/fetch"
	"github.com/jobradar/jobradar/internal/filter"
	"github.com/jobradar/jobradar/internal/metrics"
	"github.com/jobradar/jobradar/internal/source"
	"github.com/jobradar/jobradar/internal/source/feed"
	"github.com/jobradar/jobradar/internal/source/greenhouse"
	"github.com/jobradar/jobradar/internal/source/lever"
	"github.com/jobradar/jobradar/internal/source/smartrecruiters"
	"github.com/jobradar/jobradar/internal/source/search"
	"github.com/jobradar/jobradar/internal/source/workday"
	"github.com/jobradar/jobradar/internal/store"
)

// Built is a pipeline wired from configuration plus the resources it owns.
type Built struct {
	*Pipeline
	History *store.DB
	Metrics *metrics.Metrics
}

func (b *Built) Close() error {
	return b.History.Close()
}

// Build wires adapters, the enrichment stage, history and metrics from cfg.
// onFinish may be nil.
func Build(ctx context.Context, cfg *config.Config, m *metrics.Metrics, onFinish func(Result, error)) (*Built, error) {
	roles, err := filter.CompileSet(cfg.RoleRules())
	if err != nil {
		return nil, err
	}

	client := fetch.New(fetch.Options{
		Timeout:   cfg.HTTP.Timeout,
		UserAgent: cfg.HTTP.UserAgent,
		Limiter:   fetch.NewHostLimiter(cfg.HTTP.RatePerSecond, cfg.HTTP.Burst),
	})

	var sources []Source
	for _, sc := range cfg.EnabledSources() {
		match, ok := roles[sc.Role]
		if !ok {
			return nil, fmt.Errorf("source %s: unknown role %q", sc.Key, sc.Role)
		}
		a, err := NewAdapter(sc, client, match)
		if err != nil {
			return nil, fmt.Errorf("source %s: %w", sc.Key, err)
		}
		sources = append(sources, Source{
			Key:        sc.Key,
			Name:       sc.Name,
			TargetRole: sc.TargetRole,
			CareersURL: sc.CareersURL,
			Adapter:    a,
			Primary:    sc.Primary,
			Dedup:      sc.Dedup,
			Enrich:     sc.Enrich,
		})
	}

	cache := enrich.LoadCache(cfg.CachePath, cfg.Enrich.CacheTTL, nil)
	var lookup enrich.Lookup
	if l := cfg.Enrich.Lookup; l.URLTemplate != "" {
		lookup = enrich.NewPageLookup(enrich.PageConfig{
			URLTemplate: l.URLTemplate,
			MinSelector: l.MinSelector,
			MaxSelector: l.MaxSelector,
			Header:      l.Header,
		}, client)
	}
	stage := enrich.NewStage(cfg.Enrich.Curated, lookup, cache, enrich.Options{
		MinCompensation: cfg.Enrich.MinCompensation,
		Currency:        cfg.Enrich.Currency,
		Concurrency:     cfg.Enrich.Concurrency,
	})

	b := &Built{Metrics: m}
	opts := Options{
		Sources:         sources,
		Writer:          artifact.Writer{Path: cfg.OutputPath},
		WindowDays:      cfg.WindowDays,
		AdapterTimeout:  cfg.AdapterTimeout,
		Enricher:        stage,
		Cache:           cache,
		Metrics:         m,
		MetricsTextfile: cfg.MetricsTextfile,
		OnFinish:        onFinish,
	}
	if cfg.HistoryPath != "" {
		db, err := store.Open(ctx, cfg.HistoryPath)
		if err != nil {
			return nil, err
		}
		b.History = db
		opts.History = db
	}
	b.Pipeline = New(opts)
	return b, nil
}

// NewAdapter builds the adapter for one configured source.
func NewAdapter(sc config.Source, f source.Fetcher, match source.Matcher) (source.Adapter, error) {
	fb := source.Fallbacks{
		Location:   sc.Location,
		Department: sc.Department,
		Type:       sc.Type,
	}
	// per-company sources name the company when the upstream names no team
	if fb.Department == "" && sc.Kind != config.KindSearch {
		fb.Department = sc.Name
	}

	switch sc.Kind {
	case config.KindFeed:
		return feed.New(feed.Config{
			Key:       sc.Key,
			URL:       sc.URL,
			Header:    sc.Header,
			Format:    sc.Format,
			RecordTag: sc.RecordTag,
			Fields:    sc.Fields,
			Fallbacks: fb,
		}, f, match), nil
	case config.KindGreenhouse:
		return greenhouse.New(greenhouse.Config{
			Key:       sc.Key,
			Board:     sc.Board,
			APIBase:   sc.APIBase,
			Fallbacks: fb,
		}, f, match), nil
	case config.KindLever:
		return lever.New(lever.Config{
			Key:       sc.Key,
			Company:   sc.Board,
			APIBase:   sc.APIBase,
			Fallbacks: fb,
		}, f, match), nil
	case config.KindSmartRecruiters:
		return smartrecruiters.New(smartrecruiters.Config{
			Key:       sc.Key,
			Company:   sc.Board,
			APIBase:   sc.APIBase,
			PageSize:  sc.PageSize,
			MaxPages:  sc.MaxPages,
			Fallbacks: fb,
		}, f, match), nil
	case config.KindWorkday:
		return workday.New(workday.Config{
			Key:        sc.Key,
			BoardURL:   sc.URL,
			Endpoint:   sc.Endpoint,
			SearchText: sc.SearchText,
			PageSize:   sc.PageSize,
			MaxPages:   sc.MaxPages,
			Fallbacks:  fb,
		}, f, match), nil
	case config.KindSearch:
		return search.New(search.Config{
			Key:         sc.Key,
			URLTemplate: sc.URL,
			Query:       sc.Query,
			PageSize:    sc.PageSize,
			MaxPages:    sc.MaxPages,
			Selectors:   sc.Selectors,
			Header:      sc.Header,
			Fallbacks:   fb,
		}, f, match), nil
	}
	return nil, fmt.Errorf("unknown kind %q", sc.Kind)
}
