package browser

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrNotInitialized is returned when a session is requested before Initialize.
	ErrNotInitialized = errors.New("session manager not initialized")

	// ErrHandlerArmed is returned when a dialog handler is registered while
	// another one is still waiting for its dialog.
	ErrHandlerArmed = errors.New("a dialog handler is already armed")

	// ErrInvalidSpec is returned for locator specs that do not name exactly one
	// way of finding an element.
	ErrInvalidSpec = errors.New("invalid locator spec")
)

// LaunchError reports that a session could not be started.
type LaunchError struct {
	Reason string
	Err    error
}

func (e *LaunchError) Error() string {
	if e.Err == nil {
		return "launch failed: " + e.Reason
	}
	return fmt.Sprintf("launch failed: %s: %v", e.Reason, e.Err)
}

func (e *LaunchError) Unwrap() error { return e.Err }

// TimeoutError reports that a wait did not complete within its budget.
// Stage names the part of the wait that expired ("scope", "target", "dialog",
// "navigate").
type TimeoutError struct {
	Spec      string
	Stage     string
	Condition WaitCondition
	Timeout   time.Duration
	Elapsed   time.Duration
	Err       error
}

func (e *TimeoutError) Error() string {
	msg := fmt.Sprintf("timed out after %s (budget %s) waiting for %s", e.Elapsed.Round(time.Millisecond), e.Timeout, e.Spec)
	if e.Condition != "" {
		msg += " to be " + string(e.Condition)
	}
	if e.Stage != "" {
		msg += " [" + e.Stage + "]"
	}
	return msg
}

func (e *TimeoutError) Unwrap() error { return e.Err }

// AssertionError reports an observed value that did not match the expectation.
type AssertionError struct {
	Subject  string
	Expected string
	Actual   string
}

func (e *AssertionError) Error() string {
	return fmt.Sprintf("assertion failed for %s: expected %q, got %q", e.Subject, e.Expected, e.Actual)
}

// DialogMismatchError reports a dialog whose message failed its matcher.
type DialogMismatchError struct {
	Expected string
	Message  string
}

func (e *DialogMismatchError) Error() string {
	return fmt.Sprintf("dialog message %q does not match %s", e.Message, e.Expected)
}

// UnhandledDialogError reports a dialog raised while no handler was armed.
type UnhandledDialogError struct {
	Type    string
	Message string
}

func (e *UnhandledDialogError) Error() string {
	return fmt.Sprintf("unhandled %s dialog: %q", e.Type, e.Message)
}
