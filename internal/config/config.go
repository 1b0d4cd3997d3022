// Package config loads the pipeline configuration: a YAML file read through
// viper, JOBRADAR_* environment overrides, an optional sources file and
// built-in defaults.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"

	"github.com/jobradar/jobradar/internal/enrich"
	"github.com/jobradar/jobradar/internal/filter"
	"github.com/jobradar/jobradar/internal/source/search"
)

const (
	KindFeed            = "feed"
	KindGreenhouse      = "greenhouse"
	KindLever           = "lever"
	KindSmartRecruiters = "smartrecruiters"
	KindWorkday         = "workday"
	KindSearch          = "search"
)

type Source struct {
	Key        string `yaml:"key" mapstructure:"key" validate:"required"`
	Name       string `yaml:"name" mapstructure:"name" validate:"required"`
	Kind       string `yaml:"kind" mapstructure:"kind" validate:"required,oneof=feed greenhouse lever smartrecruiters workday search"`
	TargetRole string `yaml:"target_role" mapstructure:"target_role"`
	CareersURL string `yaml:"careers_url" mapstructure:"careers_url" validate:"omitempty,url"`
	// Role names the role-filter class applied to this source.
	Role     string `yaml:"role" mapstructure:"role" validate:"required"`
	Disabled bool   `yaml:"disabled" mapstructure:"disabled"`

	// Primary sources feed the cross-source dedup covered set; Dedup
	// sources are filtered against it.
	Primary bool `yaml:"primary" mapstructure:"primary"`
	Dedup   bool `yaml:"dedup" mapstructure:"dedup"`
	Enrich  bool `yaml:"enrich" mapstructure:"enrich"`

	// feed, search
	URL    string            `yaml:"url" mapstructure:"url"`
	Header map[string]string `yaml:"header" mapstructure:"header"`
	// feed
	Format    string            `yaml:"format" mapstructure:"format" validate:"omitempty,oneof=rss records"`
	RecordTag string            `yaml:"record_tag" mapstructure:"record_tag"`
	Fields    map[string]string `yaml:"fields" mapstructure:"fields"`
	// greenhouse, lever, smartrecruiters: the company's board identifier
	Board   string `yaml:"board" mapstructure:"board"`
	APIBase string `yaml:"api_base" mapstructure:"api_base"`
	// workday
	Endpoint   string `yaml:"endpoint" mapstructure:"endpoint"`
	SearchText string `yaml:"search_text" mapstructure:"search_text"`
	// workday, search, smartrecruiters
	MaxPages int `yaml:"max_pages" mapstructure:"max_pages" validate:"gte=0,lte=100"`
	PageSize int `yaml:"page_size" mapstructure:"page_size" validate:"gte=0,lte=200"`
	// search
	Query     string           `yaml:"query" mapstructure:"query"`
	Selectors search.Selectors `yaml:"selectors" mapstructure:"selectors"`

	// fallbacks
	Location   string `yaml:"location" mapstructure:"location"`
	Department string `yaml:"department" mapstructure:"department"`
	Type       string `yaml:"type" mapstructure:"type"`
}

type Lookup struct {
	URLTemplate string            `mapstructure:"url_template"`
	MinSelector string            `mapstructure:"min_selector"`
	MaxSelector string            `mapstructure:"max_selector"`
	Header      map[string]string `mapstructure:"header"`
}

type Enrich struct {
	MinCompensation int64                      `mapstructure:"min_compensation" validate:"gte=0"`
	Currency        string                     `mapstructure:"currency"`
	CacheTTL        time.Duration              `mapstructure:"cache_ttl"`
	Concurrency     int                        `mapstructure:"concurrency" validate:"gte=0,lte=50"`
	Curated         map[string]enrich.Estimate `mapstructure:"curated"`
	Lookup          Lookup                     `mapstructure:"lookup"`
}

type HTTP struct {
	Timeout   time.Duration `mapstructure:"timeout" validate:"gt=0"`
	UserAgent string        `mapstructure:"user_agent"`
	// RatePerSecond caps requests per upstream host; zero disables.
	RatePerSecond float64 `mapstructure:"rate_per_second" validate:"gte=0"`
	Burst         int     `mapstructure:"burst" validate:"gte=0"`
}

type Log struct {
	Level  string `mapstructure:"level" validate:"oneof=trace debug info warn warning error"`
	Format string `mapstructure:"format" validate:"oneof=text json"`
	File   string `mapstructure:"file"`
}

type Serve struct {
	Addr        string   `mapstructure:"addr" validate:"required"`
	Schedule    string   `mapstructure:"schedule"`
	CORSOrigins []string `mapstructure:"cors_origins"`
}

type Config struct {
	WindowDays      int    `mapstructure:"window_days" validate:"gte=0,lte=365"`
	OutputPath      string `mapstructure:"output_path" validate:"required"`
	CachePath       string `mapstructure:"cache_path"`
	HistoryPath     string `mapstructure:"history_path"`
	MetricsTextfile string `mapstructure:"metrics_textfile"`
	SourcesFile     string `mapstructure:"sources_file"`
	// AdapterTimeout bounds one adapter's whole fetch, all pages included.
	AdapterTimeout time.Duration `mapstructure:"adapter_timeout" validate:"gt=0"`

	Log    Log    `mapstructure:"log"`
	HTTP   HTTP   `mapstructure:"http"`
	Serve  Serve  `mapstructure:"serve"`
	Enrich Enrich `mapstructure:"enrich"`

	// Roles overrides or adds role classes on top of filter.DefaultRules.
	Roles   map[string]filter.Rule `mapstructure:"roles"`
	Sources []Source               `mapstructure:"sources" validate:"dive"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("window_days", 7)
	v.SetDefault("output_path", "public/data/jobs.json")
	v.SetDefault("cache_path", "data/compensation-cache.json")
	v.SetDefault("history_path", "")
	v.SetDefault("metrics_textfile", "")
	v.SetDefault("sources_file", "")
	v.SetDefault("adapter_timeout", 3*time.Minute)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("log.file", "")

	v.SetDefault("http.timeout", 30*time.Second)
	v.SetDefault("http.user_agent", "")
	v.SetDefault("http.rate_per_second", 2.0)
	v.SetDefault("http.burst", 2)

	v.SetDefault("serve.addr", ":8080")
	v.SetDefault("serve.schedule", "")

	v.SetDefault("enrich.min_compensation", 0)
	v.SetDefault("enrich.currency", "INR")
	v.SetDefault("enrich.cache_ttl", enrich.DefaultTTL)
	v.SetDefault("enrich.concurrency", enrich.DefaultConcurrency)
	v.SetDefault("enrich.lookup.url_template", "")
	v.SetDefault("enrich.lookup.min_selector", "")
	v.SetDefault("enrich.lookup.max_selector", "")
}

// Load reads path (optional), applies environment overrides and the sources
// file, and validates the result. A .env file in the working directory is
// loaded first when present.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		logrus.Warnf("[config] .env: %v", err)
	}

	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix("JOBRADAR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	if cfg.SourcesFile != "" {
		if err := OverlaySources(&cfg, cfg.SourcesFile); err != nil {
			return nil, err
		}
	}

	cfg = Normalize(cfg)
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// RoleRules returns the built-in role classes with the configured ones
// layered on top.
func (c Config) RoleRules() map[string]filter.Rule {
	rules := filter.DefaultRules()
	for name, r := range c.Roles {
		rules[strings.ToLower(strings.TrimSpace(name))] = r
	}
	return rules
}

// EnabledSources returns the sources that are not disabled, in file order.
func (c Config) EnabledSources() []Source {
	out := make([]Source, 0, len(c.Sources))
	for _, s := range c.Sources {
		if !s.Disabled {
			out = append(out, s)
		}
	}
	return out
}
