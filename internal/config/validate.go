package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/jobradar/jobradar/internal/filter"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Normalize trims identifiers and lower-cases enum-like fields.
func Normalize(cfg Config) Config {
	out := cfg
	out.Sources = make([]Source, len(cfg.Sources))
	for i, s := range cfg.Sources {
		s.Key = strings.TrimSpace(s.Key)
		s.Name = strings.TrimSpace(s.Name)
		s.Kind = strings.ToLower(strings.TrimSpace(s.Kind))
		s.Role = strings.ToLower(strings.TrimSpace(s.Role))
		s.Format = strings.ToLower(strings.TrimSpace(s.Format))
		if s.Name == "" {
			s.Name = s.Key
		}
		out.Sources[i] = s
	}
	out.Log.Level = strings.ToLower(strings.TrimSpace(out.Log.Level))
	out.Log.Format = strings.ToLower(strings.TrimSpace(out.Log.Format))
	return out
}

// Validate checks struct tags and the cross-field rules tags cannot
// express. All problems are reported together.
func Validate(cfg Config) error {
	var errs []string

	if err := validate.Struct(cfg); err != nil {
		var ves validator.ValidationErrors
		if !errors.As(err, &ves) {
			return fmt.Errorf("config validation: %w", err)
		}
		for _, fe := range ves {
			errs = append(errs, fieldMessage(fe))
		}
	}

	rules := cfg.RoleRules()
	if _, err := filter.CompileSet(rules); err != nil {
		errs = append(errs, err.Error())
	}

	seen := map[string]bool{}
	for i, s := range cfg.Sources {
		where := fmt.Sprintf("sources[%d] (%s)", i, s.Key)
		if s.Key != "" && seen[s.Key] {
			errs = append(errs, fmt.Sprintf("%s: duplicate key", where))
		}
		seen[s.Key] = true

		if _, ok := rules[s.Role]; s.Role != "" && !ok {
			errs = append(errs, fmt.Sprintf("%s: unknown role %q", where, s.Role))
		}
		if s.Primary && s.Dedup {
			errs = append(errs, fmt.Sprintf("%s: a source cannot be both primary and dedup", where))
		}

		switch s.Kind {
		case KindFeed:
			if s.URL == "" {
				errs = append(errs, fmt.Sprintf("%s: feed needs url", where))
			}
		case KindGreenhouse, KindLever, KindSmartRecruiters:
			if s.Board == "" {
				errs = append(errs, fmt.Sprintf("%s: %s needs board", where, s.Kind))
			}
		case KindWorkday:
			if s.URL == "" {
				errs = append(errs, fmt.Sprintf("%s: workday needs url (the public board)", where))
			}
		case KindSearch:
			if s.URL == "" {
				errs = append(errs, fmt.Sprintf("%s: search needs url (a template)", where))
			}
		}
	}

	if cfg.Enrich.Lookup.URLTemplate != "" {
		if !strings.Contains(cfg.Enrich.Lookup.URLTemplate, "{slug}") {
			errs = append(errs, "enrich.lookup.url_template must contain {slug}")
		}
		if cfg.Enrich.Lookup.MaxSelector == "" {
			errs = append(errs, "enrich.lookup.max_selector is required with url_template")
		}
	}

	if len(errs) > 0 {
		return errors.New("config validation failed:\n- " + strings.Join(errs, "\n- "))
	}
	return nil
}

func fieldMessage(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.Index(ns, "."); i >= 0 {
		ns = ns[i+1:]
	}
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", ns)
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s], got %q", ns, fe.Param(), fmt.Sprint(fe.Value()))
	default:
		return fmt.Sprintf("%s failed %s=%s (value %v)", ns, fe.Tag(), fe.Param(), fe.Value())
	}
}
