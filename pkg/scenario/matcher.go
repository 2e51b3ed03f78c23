package scenario

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/gobwas/glob"

	"github.com/entrhq/extverify/pkg/browser"
)

// MatchKind selects how a dialog message is compared
type MatchKind string

const (
	MatchContains MatchKind = "contains"
	MatchEquals   MatchKind = "equals"
	MatchGlob     MatchKind = "glob"
	MatchRegexp   MatchKind = "regexp"
)

// MatcherSpec is the serializable form of a dialog message matcher.
type MatcherSpec struct {
	Kind    MatchKind `yaml:"kind" json:"kind"`
	Pattern string    `yaml:"pattern" json:"pattern"`
}

// Contains matches messages containing text.
func Contains(text string) MatcherSpec { return MatcherSpec{Kind: MatchContains, Pattern: text} }

// Equals matches messages equal to text.
func Equals(text string) MatcherSpec { return MatcherSpec{Kind: MatchEquals, Pattern: text} }

// Glob matches messages against a shell-style pattern.
func Glob(pattern string) MatcherSpec { return MatcherSpec{Kind: MatchGlob, Pattern: pattern} }

// Regexp matches messages against a regular expression.
func Regexp(expr string) MatcherSpec { return MatcherSpec{Kind: MatchRegexp, Pattern: expr} }

// Build compiles the spec. An empty kind means contains.
func (m MatcherSpec) Build() (browser.MessageMatcher, error) {
	switch m.Kind {
	case "", MatchContains:
		return containsMatcher(m.Pattern), nil
	case MatchEquals:
		return equalsMatcher(m.Pattern), nil
	case MatchGlob:
		g, err := glob.Compile(m.Pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid glob %q: %w", m.Pattern, err)
		}
		return &globMatcher{pattern: m.Pattern, g: g}, nil
	case MatchRegexp:
		re, err := regexp.Compile(m.Pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid regexp %q: %w", m.Pattern, err)
		}
		return regexpMatcher{re}, nil
	}
	return nil, fmt.Errorf("unknown matcher kind %q", m.Kind)
}

func (m MatcherSpec) String() string {
	kind := m.Kind
	if kind == "" {
		kind = MatchContains
	}
	return fmt.Sprintf("%s %q", kind, m.Pattern)
}

type containsMatcher string

func (m containsMatcher) Match(message string) bool { return strings.Contains(message, string(m)) }
func (m containsMatcher) String() string            { return fmt.Sprintf("contains %q", string(m)) }

type equalsMatcher string

func (m equalsMatcher) Match(message string) bool { return message == string(m) }
func (m equalsMatcher) String() string            { return fmt.Sprintf("equals %q", string(m)) }

type globMatcher struct {
	pattern string
	g       glob.Glob
}

func (m *globMatcher) Match(message string) bool { return m.g.Match(message) }
func (m *globMatcher) String() string            { return fmt.Sprintf("glob %q", m.pattern) }

type regexpMatcher struct {
	re *regexp.Regexp
}

func (m regexpMatcher) Match(message string) bool { return m.re.MatchString(message) }
func (m regexpMatcher) String() string            { return fmt.Sprintf("regexp %q", m.re.String()) }
