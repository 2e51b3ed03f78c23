package browser

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/playwright-community/playwright-go"
)

// LocatorSpec is a logical description of a UI target. Exactly one of Role,
// Text or Selector must be set. Scope, when set, is resolved first and the
// target is searched only inside it; scoping to a shadow host searches the
// host's shadow tree.
type LocatorSpec struct {
	// Role is an ARIA role ("button", "heading", ...), optionally narrowed by Name
	Role string `yaml:"role,omitempty" json:"role,omitempty"`

	// Name is the accessible name matched together with Role
	Name string `yaml:"name,omitempty" json:"name,omitempty"`

	// Text matches elements by visible text
	Text string `yaml:"text,omitempty" json:"text,omitempty"`

	// Selector is a CSS selector
	Selector string `yaml:"selector,omitempty" json:"selector,omitempty"`

	// Exact disables substring and case-insensitive matching of Name and Text
	Exact bool `yaml:"exact,omitempty" json:"exact,omitempty"`

	// First picks the first match instead of requiring a unique one
	First bool `yaml:"first,omitempty" json:"first,omitempty"`

	// Scope is the scoping root to search within
	Scope *LocatorSpec `yaml:"scope,omitempty" json:"scope,omitempty"`
}

// BySelector returns a spec matching a CSS selector.
func BySelector(selector string) LocatorSpec {
	return LocatorSpec{Selector: selector}
}

// ByRole returns a spec matching an ARIA role with the given accessible name.
func ByRole(role, name string) LocatorSpec {
	return LocatorSpec{Role: role, Name: name}
}

// ByText returns a spec matching visible text.
func ByText(text string) LocatorSpec {
	return LocatorSpec{Text: text}
}

// Within returns a copy of s scoped to scope.
func (s LocatorSpec) Within(scope LocatorSpec) LocatorSpec {
	s.Scope = &scope
	return s
}

// FirstMatch returns a copy of s that picks the first match.
func (s LocatorSpec) FirstMatch() LocatorSpec {
	s.First = true
	return s
}

// ExactMatch returns a copy of s with exact name/text matching.
func (s LocatorSpec) ExactMatch() LocatorSpec {
	s.Exact = true
	return s
}

// Validate checks s and all of its scopes.
func (s LocatorSpec) Validate() error {
	set := 0
	for _, v := range []string{s.Role, s.Text, s.Selector} {
		if v != "" {
			set++
		}
	}
	if set != 1 {
		return fmt.Errorf("%w: exactly one of role, text or selector is required (got %d)", ErrInvalidSpec, set)
	}
	if s.Name != "" && s.Role == "" {
		return fmt.Errorf("%w: name %q requires a role", ErrInvalidSpec, s.Name)
	}
	if s.Scope != nil {
		if err := s.Scope.Validate(); err != nil {
			return fmt.Errorf("scope: %w", err)
		}
	}
	return nil
}

// String renders the spec as a Playwright-like selector chain.
func (s LocatorSpec) String() string {
	links := s.chain()
	parts := make([]string, 0, len(links))
	for _, link := range links {
		parts = append(parts, link.describe())
	}
	return strings.Join(parts, " >> ")
}

func (s LocatorSpec) describe() string {
	var b strings.Builder
	switch {
	case s.Role != "":
		b.WriteString("role=" + s.Role)
		if s.Name != "" {
			fmt.Fprintf(&b, "[name=%q]", s.Name)
		}
	case s.Text != "":
		fmt.Fprintf(&b, "text=%q", s.Text)
	default:
		b.WriteString("css=" + s.Selector)
	}
	if s.Exact {
		b.WriteString("[exact]")
	}
	if s.First {
		b.WriteString(" >> nth=0")
	}
	return b.String()
}

// chain flattens the scope list, outermost scope first. Links have no Scope.
func (s LocatorSpec) chain() []LocatorSpec {
	var links []LocatorSpec
	for cur := &s; cur != nil; cur = cur.Scope {
		link := *cur
		link.Scope = nil
		links = append(links, link)
	}
	for i, j := 0, len(links)-1; i < j; i, j = i+1, j-1 {
		links[i], links[j] = links[j], links[i]
	}
	return links
}

func (s LocatorSpec) locate(page playwright.Page, parent playwright.Locator) playwright.Locator {
	var name interface{}
	if s.Name != "" {
		name = s.Name
	}
	exact := playwright.Bool(s.Exact)

	var loc playwright.Locator
	switch {
	case s.Role != "" && parent == nil:
		loc = page.GetByRole(playwright.AriaRole(s.Role), playwright.PageGetByRoleOptions{Name: name, Exact: exact})
	case s.Role != "":
		loc = parent.GetByRole(playwright.AriaRole(s.Role), playwright.LocatorGetByRoleOptions{Name: name, Exact: exact})
	case s.Text != "" && parent == nil:
		loc = page.GetByText(s.Text, playwright.PageGetByTextOptions{Exact: exact})
	case s.Text != "":
		loc = parent.GetByText(s.Text, playwright.LocatorGetByTextOptions{Exact: exact})
	case parent == nil:
		loc = page.Locator(s.Selector)
	default:
		loc = parent.Locator(s.Selector)
	}

	if s.First {
		loc = loc.First()
	}
	return loc
}

// Resolve resolves spec on page and waits until the target reaches cond.
// Scopes are resolved outermost first and must be attached before the search
// descends into them; all stages share one deadline of timeout. Every call
// builds a fresh locator chain, so repeated calls observe the current DOM.
func Resolve(page playwright.Page, spec LocatorSpec, cond WaitCondition, timeout time.Duration) (*Element, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	if !cond.Valid() {
		return nil, fmt.Errorf("%w: unknown wait condition %q", ErrInvalidSpec, cond)
	}
	if timeout <= 0 {
		timeout = DefaultResolveTimeout
	}

	start := time.Now()
	deadline := start.Add(timeout)
	links := spec.chain()

	var (
		loc  playwright.Locator
		path []string
	)
	for i, link := range links {
		loc = link.locate(page, loc)
		path = append(path, link.describe())

		stage, want := "scope", Attached
		if i == len(links)-1 {
			stage, want = "target", cond
		}

		timeoutErr := func(err error) *TimeoutError {
			return &TimeoutError{
				Spec:      strings.Join(path, " >> "),
				Stage:     stage,
				Condition: want,
				Timeout:   timeout,
				Elapsed:   time.Since(start),
				Err:       err,
			}
		}

		// A zero Playwright timeout means "wait forever"
		remaining := time.Until(deadline)
		if remaining < time.Millisecond {
			return nil, timeoutErr(nil)
		}

		err := loc.WaitFor(playwright.LocatorWaitForOptions{
			State:   want.state(),
			Timeout: millis(remaining),
		})
		if err != nil {
			if errors.Is(err, playwright.ErrTimeout) {
				return nil, timeoutErr(err)
			}
			return nil, fmt.Errorf("resolve %s: %w", spec, err)
		}
	}

	return &Element{Spec: spec, Locator: loc}, nil
}

// Element is a resolved UI target. It wraps a live locator, so every
// operation acts on the element currently matching the spec.
type Element struct {
	Spec    LocatorSpec
	Locator playwright.Locator
}

// ClickOptions configures element clicking behavior.
type ClickOptions struct {
	// Button specifies which mouse button to use (left, right, middle)
	Button string

	// Modifiers are keys held during the click (Alt, Control, Meta, Shift)
	Modifiers []string

	// ClickCount is the number of times to click (1 for single, 2 for double)
	ClickCount int

	// Timeout for actionability checks (0 means the session default)
	Timeout time.Duration
}

// Click clicks the element.
func (e *Element) Click(opts ClickOptions) error {
	clickOpts := playwright.LocatorClickOptions{}

	if opts.Button != "" {
		button := playwright.MouseButton(opts.Button)
		clickOpts.Button = &button
	}
	for _, mod := range opts.Modifiers {
		clickOpts.Modifiers = append(clickOpts.Modifiers, playwright.KeyboardModifier(mod))
	}
	if opts.ClickCount > 0 {
		clickOpts.ClickCount = playwright.Int(opts.ClickCount)
	}
	if opts.Timeout > 0 {
		clickOpts.Timeout = millis(opts.Timeout)
	}

	start := time.Now()
	if err := e.Locator.Click(clickOpts); err != nil {
		if errors.Is(err, playwright.ErrTimeout) {
			return &TimeoutError{Spec: e.Spec.String(), Stage: "click", Timeout: opts.Timeout, Elapsed: time.Since(start), Err: err}
		}
		return fmt.Errorf("click %s failed: %w", e.Spec, err)
	}
	return nil
}

// Text returns the rendered text of the element.
func (e *Element) Text() (string, error) {
	text, err := e.Locator.InnerText()
	if err != nil {
		return "", fmt.Errorf("read text of %s: %w", e.Spec, err)
	}
	return text, nil
}

// CSS returns the computed value of a style property.
func (e *Element) CSS(property string) (string, error) {
	value, err := e.Locator.Evaluate(`(el, prop) => getComputedStyle(el).getPropertyValue(prop)`, property)
	if err != nil {
		return "", fmt.Errorf("read style %s of %s: %w", property, e.Spec, err)
	}
	str, ok := value.(string)
	if !ok {
		return "", fmt.Errorf("read style %s of %s: unexpected result %T", property, e.Spec, value)
	}
	return str, nil
}

// Screenshot captures the element's bounding box as PNG.
func (e *Element) Screenshot() ([]byte, error) {
	data, err := e.Locator.Screenshot()
	if err != nil {
		return nil, fmt.Errorf("screenshot of %s failed: %w", e.Spec, err)
	}
	return data, nil
}

// Markup returns the element's serialized markup. For a shadow host this is
// the content of its shadow root, which page-level markup does not include.
func (e *Element) Markup() (string, error) {
	value, err := e.Locator.Evaluate(`el => el.shadowRoot ? el.shadowRoot.innerHTML : el.outerHTML`, nil)
	if err != nil {
		return "", fmt.Errorf("read markup of %s: %w", e.Spec, err)
	}
	str, _ := value.(string)
	return str, nil
}

func (e *Element) String() string {
	return e.Spec.String()
}
