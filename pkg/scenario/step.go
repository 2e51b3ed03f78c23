package scenario

import (
	"errors"
	"fmt"
	"time"

	"github.com/entrhq/extverify/pkg/browser"
)

// StepKind identifies what a step does
type StepKind string

const (
	KindNavigate    StepKind = "navigate"
	KindExpect      StepKind = "expect"
	KindClick       StepKind = "click"
	KindDialog      StepKind = "dialog"
	KindAssertText  StepKind = "assert_text"
	KindAssertStyle StepKind = "assert_style"
	KindScreenshot  StepKind = "screenshot"
	KindPause       StepKind = "pause"
)

// Step is one action or check of a scenario. Which fields apply depends on
// Kind; Validate reports missing ones.
type Step struct {
	Kind        StepKind `yaml:"kind" json:"kind"`
	Description string   `yaml:"description,omitempty" json:"description,omitempty"`

	// navigate
	URL       string `yaml:"url,omitempty" json:"url,omitempty"`
	WaitUntil string `yaml:"wait_until,omitempty" json:"wait_until,omitempty"`

	// Target is the element of expect, click, assert_* and element screenshots
	Target    *browser.LocatorSpec  `yaml:"target,omitempty" json:"target,omitempty"`
	Condition browser.WaitCondition `yaml:"condition,omitempty" json:"condition,omitempty"`

	// Timeout bounds the step's wait; 0 uses the run default for the kind
	Timeout time.Duration `yaml:"timeout,omitempty" json:"timeout,omitempty"`

	// click
	Button    string   `yaml:"button,omitempty" json:"button,omitempty"`
	Modifiers []string `yaml:"modifiers,omitempty" json:"modifiers,omitempty"`

	// dialog
	Match    *MatcherSpec `yaml:"match,omitempty" json:"match,omitempty"`
	Response string       `yaml:"response,omitempty" json:"response,omitempty"`

	// assert_text and assert_style
	Expected string `yaml:"expected,omitempty" json:"expected,omitempty"`
	Contains bool   `yaml:"contains,omitempty" json:"contains,omitempty"`
	Property string `yaml:"property,omitempty" json:"property,omitempty"`

	// screenshot
	Path     string `yaml:"path,omitempty" json:"path,omitempty"`
	FullPage bool   `yaml:"full_page,omitempty" json:"full_page,omitempty"`

	// pause
	Duration time.Duration `yaml:"duration,omitempty" json:"duration,omitempty"`
}

// Navigate loads url and waits for the load event.
func Navigate(url string) Step {
	return Step{Kind: KindNavigate, URL: url}
}

// NavigateUntil loads url and waits for the given load state
// (load, domcontentloaded, networkidle, commit).
func NavigateUntil(url, waitUntil string) Step {
	return Step{Kind: KindNavigate, URL: url, WaitUntil: waitUntil}
}

// ExpectVisible waits until target is visible.
func ExpectVisible(target browser.LocatorSpec, timeout time.Duration) Step {
	return Step{Kind: KindExpect, Target: &target, Condition: browser.Visible, Timeout: timeout}
}

// ExpectAttached waits until target is in the DOM.
func ExpectAttached(target browser.LocatorSpec, timeout time.Duration) Step {
	return Step{Kind: KindExpect, Target: &target, Condition: browser.Attached, Timeout: timeout}
}

// Click resolves target as visible and left-clicks it.
func Click(target browser.LocatorSpec) Step {
	return Step{Kind: KindClick, Target: &target}
}

// RightClick resolves target as visible and right-clicks it.
func RightClick(target browser.LocatorSpec) Step {
	return Step{Kind: KindClick, Target: &target, Button: "right"}
}

// RegisterDialog arms a one-shot handler answering the next dialog with
// response. The next click step waits for the dialog to be handled.
func RegisterDialog(match MatcherSpec, response string) Step {
	return Step{Kind: KindDialog, Match: &match, Response: response}
}

// AssertText checks the rendered text of target equals expected.
func AssertText(target browser.LocatorSpec, expected string) Step {
	return Step{Kind: KindAssertText, Target: &target, Expected: expected}
}

// AssertTextContains checks the rendered text of target contains expected.
func AssertTextContains(target browser.LocatorSpec, expected string) Step {
	return Step{Kind: KindAssertText, Target: &target, Expected: expected, Contains: true}
}

// AssertStyle checks a computed style property of target.
func AssertStyle(target browser.LocatorSpec, property, expected string) Step {
	return Step{Kind: KindAssertStyle, Target: &target, Property: property, Expected: expected}
}

// Screenshot captures target to path.
func Screenshot(target browser.LocatorSpec, path string) Step {
	return Step{Kind: KindScreenshot, Target: &target, Path: path}
}

// PageScreenshot captures the page to path.
func PageScreenshot(path string, fullPage bool) Step {
	return Step{Kind: KindScreenshot, Path: path, FullPage: fullPage}
}

// Pause waits for d, letting injected UI settle.
func Pause(d time.Duration) Step {
	return Step{Kind: KindPause, Duration: d}
}

// Describe returns a copy of s with a description.
func (s Step) Describe(description string) Step {
	s.Description = description
	return s
}

// WithTimeout returns a copy of s with an explicit timeout.
func (s Step) WithTimeout(d time.Duration) Step {
	s.Timeout = d
	return s
}

// Validate checks that the fields the step's kind needs are set.
func (s Step) Validate() error {
	if s.Timeout < 0 {
		return errors.New("timeout cannot be negative")
	}

	needTarget := func() error {
		if s.Target == nil {
			return fmt.Errorf("%s requires a target", s.Kind)
		}
		return s.Target.Validate()
	}

	switch s.Kind {
	case KindNavigate:
		if s.URL == "" {
			return errors.New("navigate requires a url")
		}
	case KindExpect:
		if err := needTarget(); err != nil {
			return err
		}
		if s.Condition != "" && !s.Condition.Valid() {
			return fmt.Errorf("unknown condition %q", s.Condition)
		}
	case KindClick:
		if err := needTarget(); err != nil {
			return err
		}
		switch s.Button {
		case "", "left", "right", "middle":
		default:
			return fmt.Errorf("unknown mouse button %q", s.Button)
		}
	case KindDialog:
		if s.Match == nil {
			return errors.New("dialog requires a match")
		}
		if _, err := s.Match.Build(); err != nil {
			return err
		}
	case KindAssertText:
		if err := needTarget(); err != nil {
			return err
		}
	case KindAssertStyle:
		if err := needTarget(); err != nil {
			return err
		}
		if s.Property == "" {
			return errors.New("assert_style requires a property")
		}
	case KindScreenshot:
		if s.Path == "" {
			return errors.New("screenshot requires a path")
		}
		if s.Target != nil {
			return s.Target.Validate()
		}
	case KindPause:
		if s.Duration <= 0 {
			return errors.New("pause requires a positive duration")
		}
	default:
		return fmt.Errorf("unknown step kind %q", s.Kind)
	}
	return nil
}

// String describes the step for progress output.
func (s Step) String() string {
	if s.Description != "" {
		return s.Description
	}

	switch s.Kind {
	case KindNavigate:
		return "navigate to " + s.URL
	case KindExpect:
		cond := s.Condition
		if cond == "" {
			cond = browser.Visible
		}
		return fmt.Sprintf("expect %s to be %s", s.Target, cond)
	case KindClick:
		if s.Button != "" && s.Button != "left" {
			return fmt.Sprintf("%s-click %s", s.Button, s.Target)
		}
		return "click " + s.Target.String()
	case KindDialog:
		return fmt.Sprintf("answer dialog %s with %q", s.Match, s.Response)
	case KindAssertText:
		op := "equals"
		if s.Contains {
			op = "contains"
		}
		return fmt.Sprintf("assert text of %s %s %q", s.Target, op, s.Expected)
	case KindAssertStyle:
		return fmt.Sprintf("assert %s of %s is %q", s.Property, s.Target, s.Expected)
	case KindScreenshot:
		if s.Target != nil {
			return fmt.Sprintf("screenshot %s to %s", s.Target, s.Path)
		}
		return "screenshot page to " + s.Path
	case KindPause:
		return "pause " + s.Duration.String()
	}
	return string(s.Kind)
}
