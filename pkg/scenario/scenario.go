package scenario

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"regexp"

	"gopkg.in/yaml.v3"

	"github.com/entrhq/extverify/pkg/browser"
)

var namePattern = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]*$`)

// Scenario is a named, ordered list of steps run against one session.
type Scenario struct {
	Name        string `yaml:"name" json:"name"`
	Description string `yaml:"description,omitempty" json:"description,omitempty"`

	// RequiresExtension marks scenarios that need the extension loaded
	RequiresExtension bool `yaml:"requires_extension,omitempty" json:"requires_extension,omitempty"`

	Steps []Step `yaml:"steps" json:"steps"`
}

// Validate checks the scenario and each of its steps.
func (s *Scenario) Validate() error {
	if s == nil {
		return errors.New("scenario is nil")
	}
	if !namePattern.MatchString(s.Name) {
		return fmt.Errorf("invalid scenario name %q (lowercase letters, digits, '-' and '_')", s.Name)
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("scenario %s has no steps", s.Name)
	}

	armed := false
	for i, step := range s.Steps {
		if err := step.Validate(); err != nil {
			return fmt.Errorf("scenario %s: step %d: %w", s.Name, i+1, err)
		}
		switch step.Kind {
		case KindDialog:
			if armed {
				return fmt.Errorf("scenario %s: step %d: %w", s.Name, i+1, browser.ErrHandlerArmed)
			}
			armed = true
		case KindClick:
			armed = false
		}
	}
	if armed {
		return fmt.Errorf("scenario %s: dialog handler is never followed by a click", s.Name)
	}
	return nil
}

// Scopes returns the distinct outermost scopes the scenario's targets are
// searched in, in first-use order.
func (s *Scenario) Scopes() []browser.LocatorSpec {
	var (
		seen   = make(map[string]bool)
		scopes []browser.LocatorSpec
	)
	for _, step := range s.Steps {
		if step.Target == nil || step.Target.Scope == nil {
			continue
		}
		root := *step.Target.Scope
		for root.Scope != nil {
			root = *root.Scope
		}
		if key := root.String(); !seen[key] {
			seen[key] = true
			scopes = append(scopes, root)
		}
	}
	return scopes
}

// LoadFile reads a scenario definition from a YAML file.
func LoadFile(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return Parse(data)
}

// Parse decodes and validates a YAML scenario definition. Unknown fields
// are rejected.
func Parse(data []byte) (*Scenario, error) {
	var sc Scenario
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&sc); err != nil {
		return nil, fmt.Errorf("failed to parse scenario: %w", err)
	}
	if err := sc.Validate(); err != nil {
		return nil, err
	}
	return &sc, nil
}
