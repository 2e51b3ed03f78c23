package browser

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/playwright-community/playwright-go"
)

// MessageMatcher decides whether a dialog message is the expected one.
type MessageMatcher interface {
	Match(message string) bool
	String() string
}

// DialogGate routes native dialogs of one page to one-shot handlers.
//
// A gate owns the page's only dialog listener for the lifetime of a session.
// Each dialog is delivered to the currently armed handler, which is
// deregistered in the same step; a dialog arriving with no armed handler is
// dismissed and recorded as unhandled so the runner can fail on it.
type DialogGate struct {
	mu        sync.Mutex
	page      playwright.Page
	armed     *DialogHandler
	unhandled []error
	listener  func(playwright.Dialog)
	detached  bool
}

// AttachDialogGate installs a gate on page.
func AttachDialogGate(page playwright.Page) *DialogGate {
	g := &DialogGate{page: page}
	g.listener = g.dispatch
	page.OnDialog(g.listener)
	return g
}

// RegisterOnce arms a handler for the next dialog. It must be called before
// the action that raises the dialog; dialogs are never matched retroactively.
func (g *DialogGate) RegisterOnce(matcher MessageMatcher, response string) (*DialogHandler, error) {
	if matcher == nil {
		return nil, errors.New("dialog matcher is required")
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if g.detached {
		return nil, errors.New("dialog gate is detached")
	}
	if g.armed != nil {
		return nil, fmt.Errorf("%w (expecting %s)", ErrHandlerArmed, g.armed.matcher)
	}

	h := &DialogHandler{
		gate:     g,
		matcher:  matcher,
		response: response,
		done:     make(chan struct{}),
	}
	g.armed = h
	return h, nil
}

// Armed returns the handler waiting for a dialog, or nil.
func (g *DialogGate) Armed() *DialogHandler {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.armed
}

// TakeUnhandled returns the dialogs that arrived with no armed handler since
// the last call, as *UnhandledDialogError values joined into one error.
func (g *DialogGate) TakeUnhandled() error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if len(g.unhandled) == 0 {
		return nil
	}
	errs := g.unhandled
	g.unhandled = nil
	if len(errs) == 1 {
		return errs[0]
	}
	return errors.Join(errs...)
}

// Detach removes the gate's listener. A handler still armed is resolved
// with an error.
func (g *DialogGate) Detach() {
	g.mu.Lock()
	if g.detached {
		g.mu.Unlock()
		return
	}
	g.detached = true
	armed := g.armed
	g.armed = nil
	g.mu.Unlock()

	g.page.RemoveListener("dialog", g.listener)
	if armed != nil {
		armed.resolve("", errors.New("session released before the dialog was raised"))
	}
}

func (g *DialogGate) dispatch(dialog playwright.Dialog) {
	g.mu.Lock()
	handler := g.armed
	g.armed = nil
	if handler != nil {
		handler.claimed = true
	} else {
		g.unhandled = append(g.unhandled, &UnhandledDialogError{
			Type:    dialog.Type(),
			Message: dialog.Message(),
		})
	}
	g.mu.Unlock()

	if handler == nil {
		// Left open, the dialog would block the page
		_ = dialog.Dismiss()
		return
	}
	handler.handle(dialog)
}

// expire disarms h unless a dialog has already claimed it.
func (g *DialogGate) expire(h *DialogHandler) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if h.claimed {
		return false
	}
	if g.armed == h {
		g.armed = nil
	}
	return true
}

// DialogHandler is a one-shot subscription to the next dialog of a page.
type DialogHandler struct {
	gate     *DialogGate
	matcher  MessageMatcher
	response string

	// claimed is guarded by gate.mu
	claimed bool

	once    sync.Once
	done    chan struct{}
	err     error
	message string
}

// Matcher returns the handler's message matcher.
func (h *DialogHandler) Matcher() MessageMatcher {
	return h.matcher
}

// Consumed reports whether the handler has been resolved.
func (h *DialogHandler) Consumed() bool {
	select {
	case <-h.done:
		return true
	default:
		return false
	}
}

// Message returns the message of the dialog the handler received, or "" while
// it is still waiting.
func (h *DialogHandler) Message() string {
	if !h.Consumed() {
		return ""
	}
	return h.message
}

// Await blocks until the handler has resolved its dialog or timeout elapses.
// It returns a *DialogMismatchError when the message failed the matcher and
// a *TimeoutError when no dialog arrived; in the latter case the handler is
// disarmed. A dialog that arrived before the deadline is always waited for.
func (h *DialogHandler) Await(timeout time.Duration) error {
	if timeout <= 0 {
		timeout = DefaultDialogTimeout
	}

	start := time.Now()
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-h.done:
		return h.err
	case <-timer.C:
		if h.gate.expire(h) {
			h.resolve("", &TimeoutError{
				Spec:    "dialog matching " + h.matcher.String(),
				Stage:   "dialog",
				Timeout: timeout,
				Elapsed: time.Since(start),
			})
		}
		<-h.done
		return h.err
	}
}

func (h *DialogHandler) handle(dialog playwright.Dialog) {
	message := dialog.Message()

	if !h.matcher.Match(message) {
		_ = dialog.Dismiss()
		h.resolve(message, &DialogMismatchError{
			Expected: h.matcher.String(),
			Message:  message,
		})
		return
	}

	if err := dialog.Accept(h.response); err != nil {
		h.resolve(message, fmt.Errorf("accept dialog %q: %w", message, err))
		return
	}
	h.resolve(message, nil)
}

func (h *DialogHandler) resolve(message string, err error) {
	h.once.Do(func() {
		h.message = message
		h.err = err
		close(h.done)
	})
}

// RegisterOnce arms a one-shot dialog handler on the session's page.
func RegisterOnce(session *Session, matcher MessageMatcher, response string) (*DialogHandler, error) {
	if session == nil || session.dialogs == nil {
		return nil, errors.New("session has no dialog gate")
	}
	return session.dialogs.RegisterOnce(matcher, response)
}
