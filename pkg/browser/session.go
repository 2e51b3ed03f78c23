package browser

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/playwright-community/playwright-go"
)

// NewPageSession wraps a page whose browser the caller owns. Releasing the
// session detaches its dialog gate and leaves the page open.
func NewPageSession(page playwright.Page) *Session {
	return &Session{
		ID:        uuid.NewString(),
		Page:      page,
		CreatedAt: time.Now(),
		dialogs:   AttachDialogGate(page),
	}
}

// NavigateOptions configures page navigation behavior.
type NavigateOptions struct {
	// WaitUntil specifies when to consider navigation successful
	// Valid values: "load", "domcontentloaded", "networkidle", "commit"
	WaitUntil string

	// Timeout for the navigation (0 means the session default)
	Timeout time.Duration
}

// Navigate navigates the session's page to the specified URL.
func (s *Session) Navigate(url string, opts NavigateOptions) error {
	gotoOpts := playwright.PageGotoOptions{}

	if opts.WaitUntil != "" {
		waitUntil := playwright.WaitUntilState(opts.WaitUntil)
		gotoOpts.WaitUntil = &waitUntil
	}

	if opts.Timeout > 0 {
		gotoOpts.Timeout = millis(opts.Timeout)
	}

	start := time.Now()
	if _, err := s.Page.Goto(url, gotoOpts); err != nil {
		if errors.Is(err, playwright.ErrTimeout) {
			return &TimeoutError{
				Spec:    url,
				Stage:   "navigate",
				Timeout: opts.Timeout,
				Elapsed: time.Since(start),
				Err:     err,
			}
		}
		return fmt.Errorf("navigation to %s failed: %w", url, err)
	}
	return nil
}

// Resolve resolves spec on the session's page. See the package-level Resolve.
func (s *Session) Resolve(spec LocatorSpec, cond WaitCondition, timeout time.Duration) (*Element, error) {
	return Resolve(s.Page, spec, cond, timeout)
}

// RegisterDialog arms a one-shot handler for the next dialog on the page.
func (s *Session) RegisterDialog(matcher MessageMatcher, response string) (*DialogHandler, error) {
	return RegisterOnce(s, matcher, response)
}

// Screenshot captures the page as PNG. fullPage captures the whole
// scrollable page instead of the viewport.
func (s *Session) Screenshot(fullPage bool) ([]byte, error) {
	data, err := s.Page.Screenshot(playwright.PageScreenshotOptions{
		FullPage: playwright.Bool(fullPage),
	})
	if err != nil {
		return nil, fmt.Errorf("page screenshot failed: %w", err)
	}
	return data, nil
}

// Content returns the serialized markup of the page.
func (s *Session) Content() (string, error) {
	content, err := s.Page.Content()
	if err != nil {
		return "", fmt.Errorf("page content failed: %w", err)
	}
	return content, nil
}

// URL returns the current page URL.
func (s *Session) URL() string {
	return s.Page.URL()
}

func (s *Session) close() error {
	if s.released {
		return nil
	}
	s.released = true

	var errs []error
	if s.dialogs != nil {
		s.dialogs.Detach()
	}
	if s.Context != nil {
		if err := s.Context.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close context: %w", err))
		}
	}
	if s.Browser != nil {
		if err := s.Browser.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close browser: %w", err))
		}
	}
	if s.generatedProfile && s.ProfileDir != "" {
		if err := os.RemoveAll(s.ProfileDir); err != nil {
			errs = append(errs, fmt.Errorf("remove profile: %w", err))
		}
	}
	return errors.Join(errs...)
}
