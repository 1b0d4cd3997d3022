// Package filter decides whether a posting title is a target role for a
// source class.
package filter

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// Rule is the configuration of one source class. Every pattern is a
// case-insensitive regular expression matched against the title.
type Rule struct {
	// Require: at least one must match. Empty means no requirement.
	Require []string `yaml:"require" mapstructure:"require"`
	// Forbid: any match rejects the title.
	Forbid []string `yaml:"forbid" mapstructure:"forbid"`
	// SeniorTechnical additionally requires a seniority marker and a
	// technical marker somewhere in the title.
	SeniorTechnical bool `yaml:"senior_technical" mapstructure:"senior_technical"`
	// Exclude lists non-target disciplines; same veto semantics as Forbid.
	Exclude []string `yaml:"exclude" mapstructure:"exclude"`
}

var (
	seniorityRe = regexp.MustCompile(`(?i)\b(senior|sr\.?|staff|principal|lead|smts|lmts|member of technical staff|sde\s*(ii|iii|2|3)|engineer\s*(ii|iii|iv))\b`)
	technicalRe = regexp.MustCompile(`(?i)\b(engineer|engineering|developer|sde|swe|programmer|architect|technical staff|backend|back-end|platform|infrastructure)\b`)
)

// Matcher is a compiled Rule. It is immutable and safe for concurrent use.
type Matcher struct {
	require         []*regexp.Regexp
	veto            []*regexp.Regexp
	seniorTechnical bool
}

func Compile(r Rule) (*Matcher, error) {
	m := &Matcher{seniorTechnical: r.SeniorTechnical}

	var err error
	if m.require, err = compileAll(r.Require); err != nil {
		return nil, fmt.Errorf("require: %w", err)
	}
	forbid, err := compileAll(r.Forbid)
	if err != nil {
		return nil, fmt.Errorf("forbid: %w", err)
	}
	exclude, err := compileAll(r.Exclude)
	if err != nil {
		return nil, fmt.Errorf("exclude: %w", err)
	}
	m.veto = append(forbid, exclude...)
	return m, nil
}

// Matches reports whether title qualifies. Vetoes are checked before
// requirements, so a title that hits both is rejected.
func (m *Matcher) Matches(title string) bool {
	title = strings.TrimSpace(title)
	if title == "" {
		return false
	}
	for _, re := range m.veto {
		if re.MatchString(title) {
			return false
		}
	}
	if m.seniorTechnical && !LooksSeniorTechnical(title) {
		return false
	}
	if len(m.require) == 0 {
		return true
	}
	for _, re := range m.require {
		if re.MatchString(title) {
			return true
		}
	}
	return false
}

// LooksSeniorTechnical is the secondary rule used by broad cross-company
// searches.
func LooksSeniorTechnical(title string) bool {
	return seniorityRe.MatchString(title) && technicalRe.MatchString(title)
}

func compileAll(patterns []string) ([]*regexp.Regexp, error) {
	out := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		re, err := regexp.Compile("(?i)" + p)
		if err != nil {
			return nil, fmt.Errorf("pattern %q: %w", p, err)
		}
		out = append(out, re)
	}
	return out, nil
}

// Set maps source class names to compiled matchers.
type Set map[string]*Matcher

// CompileSet compiles every rule. Classes are compiled in name order so the
// first bad pattern reported is stable.
func CompileSet(rules map[string]Rule) (Set, error) {
	names := make([]string, 0, len(rules))
	for name := range rules {
		names = append(names, name)
	}
	sort.Strings(names)

	set := make(Set, len(rules))
	for _, name := range names {
		m, err := Compile(rules[name])
		if err != nil {
			return nil, fmt.Errorf("role %q: %w", name, err)
		}
		set[name] = m
	}
	return set, nil
}

// Matches applies the class's matcher. Unknown classes match nothing.
func (s Set) Matches(title, class string) bool {
	m, ok := s[class]
	if !ok {
		return false
	}
	return m.Matches(title)
}
