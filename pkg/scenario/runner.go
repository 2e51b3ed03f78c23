package scenario

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/entrhq/extverify/pkg/browser"
	"github.com/entrhq/extverify/pkg/logging"
)

// scopeMarkupTimeout bounds the lookup of each scope root while capturing
// failure diagnostics
const scopeMarkupTimeout = 500 * time.Millisecond

// SessionProvider hands out browser sessions. *browser.SessionManager
// implements it.
type SessionProvider interface {
	Acquire(cfg browser.Config) (*browser.Session, error)
	Release(session *browser.Session) error
}

// Runner executes scenarios one at a time, each against a fresh session.
type Runner struct {
	provider  SessionProvider
	config    *RunConfig
	artifacts *ArtifactWriter
	reporter  *Reporter
	logger    *logging.Logger
	retry     RetryPolicy

	mu     sync.Mutex
	status Status
}

// NewRunner creates a runner. The configuration is validated.
func NewRunner(provider SessionProvider, config *RunConfig) (*Runner, error) {
	if provider == nil {
		return nil, errors.New("session provider is required")
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	verbosity, _ := ParseVerbosity(config.Logging.Verbosity)

	return &Runner{
		provider:  provider,
		config:    config,
		artifacts: NewArtifactWriter(config.OutputDir, config.DiagnosticsDir, config.Artifacts),
		reporter:  NewReporter(verbosity),
		retry:     retryPolicyFor(config),
		status:    StatusPending,
	}, nil
}

// SetLogger attaches a file logger.
func (r *Runner) SetLogger(logger *logging.Logger) {
	r.logger = logger
}

// Reporter returns the console reporter, for redirecting its output.
func (r *Runner) Reporter() *Reporter {
	return r.reporter
}

// SetRetryPolicy replaces the navigation retry policy.
func (r *Runner) SetRetryPolicy(policy RetryPolicy) {
	if policy == nil {
		policy = NoRetry{}
	}
	r.retry = policy
}

// Status returns the state of the current or last run.
func (r *Runner) Status() Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.status
}

func (r *Runner) setStatus(s Status) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.status = s
}

// run is the state of one scenario execution.
type run struct {
	session *browser.Session
	result  *Result

	// pending is the dialog handler the next click waits for
	pending *browser.DialogHandler
}

// Run executes the scenario's steps in order against a new session and
// stops at the first failure. The session is released on every exit path.
//
// The returned Result is non-nil once the scenario is valid. On failure the
// returned error is the step's original error, wrapped with the step
// position; failure diagnostics are captured before the session closes.
func (r *Runner) Run(ctx context.Context, sc *Scenario) (*Result, error) {
	if err := sc.Validate(); err != nil {
		return nil, err
	}

	r.mu.Lock()
	if r.status == StatusRunning {
		r.mu.Unlock()
		return nil, errors.New("a scenario is already running")
	}
	r.status = StatusRunning
	r.mu.Unlock()

	start := time.Now()
	result := &Result{
		Scenario:  sc.Name,
		Status:    StatusRunning,
		StartTime: start,
	}

	r.reporter.Header(sc.Name, sc.Description)
	r.logger.Infof("Starting scenario %s (%d steps)", sc.Name, len(sc.Steps))

	if sc.RequiresExtension && r.config.Browser.ExtensionPath == "" {
		return r.finish(result, sc, nil, &browser.LaunchError{Reason: fmt.Sprintf("scenario %s requires an extension path", sc.Name)})
	}

	session, err := r.provider.Acquire(r.config.Browser)
	if err != nil {
		return r.finish(result, sc, nil, err)
	}
	result.SessionID = session.ID

	defer func() {
		if relErr := r.provider.Release(session); relErr != nil {
			r.logger.Warnf("Releasing session %s failed: %v", session.ID, relErr)
			result.diagnosticError(fmt.Errorf("release session: %w", relErr))
		}
	}()

	state := &run{session: session, result: result}

	for i, step := range sc.Steps {
		if err := ctx.Err(); err != nil {
			return r.finish(result, sc, session, fmt.Errorf("scenario canceled before step %d: %w", i+1, err))
		}

		r.reporter.Step(step.String())
		stepStart := time.Now()

		err := r.execute(ctx, state, step)
		if err == nil {
			err = session.Dialogs().TakeUnhandled()
		}

		record := StepRecord{
			Index:       i + 1,
			Kind:        step.Kind,
			Description: step.String(),
			Status:      StatusSucceeded,
			Duration:    time.Since(stepStart),
		}
		if err != nil {
			record.Status = StatusFailed
			record.Error = err.Error()
		}
		result.Steps = append(result.Steps, record)

		if err != nil {
			r.logger.Errorf("Step %d (%s) failed: %v", i+1, step.Kind, err)
			return r.finish(result, sc, session, fmt.Errorf("step %d (%s): %w", i+1, step, err))
		}
		r.reporter.StepDone(record.Duration)
		r.logger.Debugf("Step %d (%s) done in %s", i+1, step.Kind, record.Duration)
	}

	if state.pending != nil && !state.pending.Consumed() {
		return r.finish(result, sc, session, fmt.Errorf("dialog handler %s was never triggered", state.pending.Matcher()))
	}

	// Dialogs are delivered asynchronously and may trail the last step
	session.Dialogs().Detach()
	if err := session.Dialogs().TakeUnhandled(); err != nil {
		r.logger.Errorf("Dialog raised after the last step: %v", err)
		return r.finish(result, sc, session, fmt.Errorf("after step %d: %w", len(sc.Steps), err))
	}

	return r.finish(result, sc, session, nil)
}

func (r *Runner) execute(ctx context.Context, state *run, step Step) error {
	session := state.session
	timeout := step.Timeout
	if timeout == 0 {
		timeout = r.config.Timeouts.Resolve
	}

	switch step.Kind {
	case KindNavigate:
		navTimeout := step.Timeout
		if navTimeout == 0 {
			navTimeout = r.config.Timeouts.Navigation
		}
		attempt := 0
		return r.retry.Do(ctx, func() error {
			attempt++
			if attempt > 1 {
				r.reporter.Warningf("retrying navigation to %s (attempt %d)", step.URL, attempt)
				r.logger.Warnf("Retrying navigation to %s (attempt %d)", step.URL, attempt)
			}
			return session.Navigate(step.URL, browser.NavigateOptions{WaitUntil: step.WaitUntil, Timeout: navTimeout})
		})

	case KindExpect:
		cond := step.Condition
		if cond == "" {
			cond = browser.Visible
		}
		_, err := session.Resolve(*step.Target, cond, timeout)
		return err

	case KindClick:
		el, err := session.Resolve(*step.Target, browser.Visible, timeout)
		if err != nil {
			return err
		}
		if err := el.Click(browser.ClickOptions{Button: step.Button, Modifiers: step.Modifiers, Timeout: timeout}); err != nil {
			return err
		}
		return r.awaitDialog(state)

	case KindDialog:
		matcher, err := step.Match.Build()
		if err != nil {
			return err
		}
		h, err := session.RegisterDialog(matcher, step.Response)
		if err != nil {
			return err
		}
		state.pending = h
		return nil

	case KindAssertText:
		el, err := session.Resolve(*step.Target, browser.Visible, timeout)
		if err != nil {
			return err
		}
		text, err := el.Text()
		if err != nil {
			return err
		}
		text = strings.TrimSpace(text)
		if (step.Contains && strings.Contains(text, step.Expected)) || (!step.Contains && text == step.Expected) {
			return nil
		}
		subject := "text of " + step.Target.String()
		if step.Contains {
			subject = "text (contains) of " + step.Target.String()
		}
		return &browser.AssertionError{Subject: subject, Expected: step.Expected, Actual: text}

	case KindAssertStyle:
		el, err := session.Resolve(*step.Target, browser.Visible, timeout)
		if err != nil {
			return err
		}
		value, err := el.CSS(step.Property)
		if err != nil {
			return err
		}
		if strings.TrimSpace(value) != step.Expected {
			return &browser.AssertionError{
				Subject:  fmt.Sprintf("%s of %s", step.Property, step.Target),
				Expected: step.Expected,
				Actual:   value,
			}
		}
		return nil

	case KindScreenshot:
		var (
			data []byte
			err  error
		)
		if step.Target != nil {
			var el *browser.Element
			el, err = session.Resolve(*step.Target, browser.Visible, timeout)
			if err != nil {
				return err
			}
			data, err = el.Screenshot()
		} else {
			data, err = session.Screenshot(step.FullPage)
		}
		if err != nil {
			return err
		}
		path, err := r.artifacts.WriteEvidence(step.Path, data)
		if err != nil {
			return err
		}
		state.result.Artifacts = append(state.result.Artifacts, path)
		r.reporter.Verbosef("screenshot saved to %s", path)
		return nil

	case KindPause:
		timer := time.NewTimer(step.Duration)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
			return nil
		}
	}

	return fmt.Errorf("unknown step kind %q", step.Kind)
}

// awaitDialog completes a click that was preceded by a dialog step: the
// click and the dialog's resolution form one step.
func (r *Runner) awaitDialog(state *run) error {
	h := state.pending
	if h == nil {
		return nil
	}
	state.pending = nil

	if err := h.Await(r.config.Timeouts.Dialog); err != nil {
		return err
	}
	r.reporter.Verbosef("dialog %q answered", h.Message())
	r.logger.Infof("Dialog %q answered", h.Message())
	return nil
}

// finish moves the run to its terminal state, writes diagnostics (on
// failure) and summaries, and reports. runErr is returned unchanged.
func (r *Runner) finish(result *Result, sc *Scenario, session *browser.Session, runErr error) (*Result, error) {
	if runErr != nil {
		result.Status = StatusFailed
		result.Error = runErr.Error()
		if session != nil {
			r.captureDiagnostics(result, sc, session)
		}
	} else {
		result.Status = StatusSucceeded
		if n := len(result.Artifacts); n > 0 {
			result.Artifact = result.Artifacts[n-1]
		}
	}

	result.EndTime = time.Now()
	result.Duration = result.EndTime.Sub(result.StartTime)

	written, err := r.artifacts.WriteAll(result)
	if err != nil {
		r.logger.Warnf("Writing run artifacts failed: %v", err)
		result.diagnosticError(err)
	}
	for _, path := range written {
		r.reporter.Verbosef("wrote %s", path)
	}

	if runErr != nil {
		r.reporter.Errorf("%v", runErr)
		r.reporter.Markup("page outline", result.Outline)
		r.logger.Errorf("Scenario %s failed: %v", result.Scenario, runErr)
	} else {
		r.reporter.Successf("scenario %s succeeded", result.Scenario)
		r.logger.Infof("Scenario %s succeeded in %s", result.Scenario, result.Duration)
	}
	r.reporter.Summary(result)

	r.setStatus(result.Status)
	return result, runErr
}

// captureDiagnostics saves the failed page: a full-page screenshot, its raw
// markup, a cleaned outline and the shadow markup of the scenario's scope
// roots. Capture failures are recorded on the result only.
func (r *Runner) captureDiagnostics(result *Result, sc *Scenario, session *browser.Session) {
	save := func(name string, data []byte) {
		path, err := r.artifacts.WriteDiagnostic(name, data)
		if err != nil {
			r.logger.Warnf("Saving %s failed: %v", name, err)
			result.diagnosticError(err)
			return
		}
		result.Diagnostics = append(result.Diagnostics, path)
	}

	if png, err := session.Screenshot(true); err != nil {
		r.logger.Warnf("Failure screenshot failed: %v", err)
		result.diagnosticError(err)
	} else {
		save(ErrorScreenshotFile, png)
	}

	content, err := session.Content()
	if err != nil {
		r.logger.Warnf("Reading page content failed: %v", err)
		result.diagnosticError(err)
	} else {
		save(PageContentFile, []byte(content))

		if r.config.Artifacts.Outline {
			if outline, err := browser.OutlineMarkup(content, 0); err != nil {
				result.diagnosticError(err)
			} else {
				result.Outline = outline.HTML
				save(PageOutlineFile, []byte(outline.HTML))
			}
		}
	}

	if shadow := r.scopeMarkup(result, sc, session); shadow != "" {
		save(ShadowContentFile, []byte(shadow))
	}
}

// scopeMarkup collects the markup of each scope root the scenario uses.
// Page content does not include shadow trees, so this is the only record of
// the extension's UI at the time of failure.
func (r *Runner) scopeMarkup(result *Result, sc *Scenario, session *browser.Session) string {
	var b strings.Builder
	for _, scope := range sc.Scopes() {
		el, err := session.Resolve(scope, browser.Attached, scopeMarkupTimeout)
		if err != nil {
			r.logger.Debugf("Scope %s not attached at failure: %v", scope, err)
			continue
		}
		markup, err := el.Markup()
		if err != nil {
			result.diagnosticError(err)
			continue
		}
		fmt.Fprintf(&b, "<!-- %s -->\n%s\n", scope, markup)
	}
	return b.String()
}
