package browsertest

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/playwright-community/playwright-go"
)

const (
	pollInterval     = 5 * time.Millisecond
	defaultWaitMilli = 1000
)

// locatorAPI lets Locator embed the interface and still define its own
// Locator method.
type locatorAPI = playwright.Locator

// Locator is a fake playwright.Locator bound to a selector chain.
type Locator struct {
	locatorAPI

	page *Page
	path string
}

// Path returns the selector chain of the locator.
func (l *Locator) Path() string {
	return l.path
}

func (l *Locator) child(sub string) playwright.Locator {
	return &Locator{page: l.page, path: l.path + " >> " + sub}
}

func (l *Locator) Locator(selectorOrLocator interface{}, options ...playwright.LocatorLocatorOptions) playwright.Locator {
	return l.child(fmt.Sprintf("css=%v", selectorOrLocator))
}

func (l *Locator) GetByRole(role playwright.AriaRole, options ...playwright.LocatorGetByRoleOptions) playwright.Locator {
	var (
		name  interface{}
		exact *bool
	)
	if len(options) > 0 {
		name, exact = options[0].Name, options[0].Exact
	}
	return l.child(rolePath(role, name, exact))
}

func (l *Locator) GetByText(text interface{}, options ...playwright.LocatorGetByTextOptions) playwright.Locator {
	var exact *bool
	if len(options) > 0 {
		exact = options[0].Exact
	}
	return l.child(textPath(text, exact))
}

func (l *Locator) First() playwright.Locator {
	return l.child("nth=0")
}

func (l *Locator) WaitFor(options ...playwright.LocatorWaitForOptions) error {
	state := playwright.WaitForSelectorStateVisible
	ms := float64(defaultWaitMilli)
	if len(options) > 0 {
		if options[0].State != nil {
			state = options[0].State
		}
		if options[0].Timeout != nil {
			ms = *options[0].Timeout
		}
	}

	l.page.mu.Lock()
	l.page.waits[l.path]++
	l.page.mu.Unlock()

	_, err := l.await(state, ms)
	return err
}

func (l *Locator) await(state *playwright.WaitForSelectorState, ms float64) (*Element, error) {
	deadline := time.Now().Add(time.Duration(ms * float64(time.Millisecond)))
	for {
		el, ok := l.page.lookup(l.path)
		if ok && (*state != *playwright.WaitForSelectorStateVisible || el.Visible) {
			return el, nil
		}
		if !time.Now().Before(deadline) {
			return nil, fmt.Errorf("%w: Timeout %.0fms exceeded waiting for %s to be %s",
				playwright.ErrTimeout, ms, l.path, *state)
		}
		time.Sleep(pollInterval)
	}
}

func (l *Locator) element() (*Element, error) {
	el, ok := l.page.lookup(l.path)
	if !ok {
		return nil, fmt.Errorf("%w: no element matches %s", playwright.ErrTimeout, l.path)
	}
	return el, nil
}

func (l *Locator) Click(options ...playwright.LocatorClickOptions) error {
	var opts playwright.LocatorClickOptions
	if len(options) > 0 {
		opts = options[0]
	}
	ms := float64(defaultWaitMilli)
	if opts.Timeout != nil {
		ms = *opts.Timeout
	}

	el, err := l.await(playwright.WaitForSelectorStateVisible, ms)
	if err != nil {
		return err
	}

	l.page.mu.Lock()
	l.page.clicks[l.path] = append(l.page.clicks[l.path], opts)
	l.page.mu.Unlock()

	if el.OnClick != nil {
		el.OnClick(l.page, opts)
	}
	return nil
}

func (l *Locator) InnerText(options ...playwright.LocatorInnerTextOptions) (string, error) {
	el, err := l.element()
	if err != nil {
		return "", err
	}
	return el.Text, nil
}

func (l *Locator) Evaluate(expression string, arg interface{}, options ...playwright.LocatorEvaluateOptions) (interface{}, error) {
	el, err := l.element()
	if err != nil {
		return nil, err
	}
	switch {
	case strings.Contains(expression, "getComputedStyle"):
		prop, _ := arg.(string)
		return el.Styles[prop], nil
	case strings.Contains(expression, "shadowRoot"), strings.Contains(expression, "outerHTML"):
		return el.Markup, nil
	}
	return nil, errors.New("browsertest: unsupported expression")
}

func (l *Locator) Screenshot(options ...playwright.LocatorScreenshotOptions) ([]byte, error) {
	if l.page.ScreenshotErr != nil {
		return nil, l.page.ScreenshotErr
	}
	if _, err := l.element(); err != nil {
		return nil, err
	}
	return PNG(), nil
}

// Dialog is a fake playwright.Dialog.
type Dialog struct {
	playwright.Dialog

	mu        sync.Mutex
	kind      string
	message   string
	response  string
	accepted  bool
	dismissed bool
}

// NewDialog returns an unanswered dialog.
func NewDialog(kind, message string) *Dialog {
	return &Dialog{kind: kind, message: message}
}

func (d *Dialog) Type() string    { return d.kind }
func (d *Dialog) Message() string { return d.message }

func (d *Dialog) Accept(promptText ...string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.accepted || d.dismissed {
		return errors.New("browsertest: dialog already handled")
	}
	d.accepted = true
	if len(promptText) > 0 {
		d.response = promptText[0]
	}
	return nil
}

func (d *Dialog) Dismiss() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.accepted || d.dismissed {
		return errors.New("browsertest: dialog already handled")
	}
	d.dismissed = true
	return nil
}

// Accepted reports whether the dialog was accepted and with which text.
func (d *Dialog) Accepted() (bool, string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.accepted, d.response
}

// Dismissed reports whether the dialog was dismissed.
func (d *Dialog) Dismissed() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.dismissed
}
