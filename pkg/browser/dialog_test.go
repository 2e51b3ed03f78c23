package browser

import (
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/entrhq/extverify/pkg/browser/browsertest"
)

type containsMatcher string

func (m containsMatcher) Match(message string) bool { return strings.Contains(message, string(m)) }
func (m containsMatcher) String() string            { return "contains " + string(m) }

const folderPrompt = "Enter a name for the new folder"

func TestDialogGate_AcceptsMatchingDialogOnce(t *testing.T) {
	defer goleak.VerifyNone(t)

	page := browsertest.NewPage()
	session := NewPageSession(page)

	h, err := session.RegisterDialog(containsMatcher(folderPrompt), "My Test Folder")
	require.NoError(t, err)
	assert.Same(t, h, session.Dialogs().Armed())

	first := page.RaiseDialog("prompt", folderPrompt)
	require.NoError(t, h.Await(time.Second))

	accepted, response := first.Accepted()
	assert.True(t, accepted)
	assert.Equal(t, "My Test Folder", response)
	assert.True(t, h.Consumed())
	assert.Equal(t, folderPrompt, h.Message())
	assert.Nil(t, session.Dialogs().Armed(), "handler must deregister when it fires")

	// A second dialog finds nothing armed
	second := page.RaiseDialog("prompt", folderPrompt)
	assert.True(t, second.Dismissed())
	accepted, _ = second.Accepted()
	assert.False(t, accepted)

	var unhandled *UnhandledDialogError
	require.ErrorAs(t, session.Dialogs().TakeUnhandled(), &unhandled)
	assert.Equal(t, "prompt", unhandled.Type)
	assert.NoError(t, session.Dialogs().TakeUnhandled(), "unhandled dialogs are reported once")

	require.NoError(t, session.close())
	assert.Zero(t, page.DialogListeners())
}

func TestDialogGate_MismatchDismissesAndFails(t *testing.T) {
	defer goleak.VerifyNone(t)

	page := browsertest.NewPage()
	session := NewPageSession(page)

	h, err := session.RegisterDialog(containsMatcher(folderPrompt), "My Test Folder")
	require.NoError(t, err)

	d := page.RaiseDialog("prompt", "Delete everything?")
	assert.True(t, d.Dismissed())

	err = h.Await(time.Second)
	var mismatch *DialogMismatchError
	require.ErrorAs(t, err, &mismatch)
	assert.Equal(t, "Delete everything?", mismatch.Message)
	assert.Equal(t, "contains "+folderPrompt, mismatch.Expected)
	assert.NoError(t, session.Dialogs().TakeUnhandled(), "a mismatch is not an unhandled dialog")
}

func TestDialogGate_AwaitTimeoutDisarms(t *testing.T) {
	defer goleak.VerifyNone(t)

	page := browsertest.NewPage()
	session := NewPageSession(page)

	h, err := session.RegisterDialog(containsMatcher(folderPrompt), "x")
	require.NoError(t, err)

	err = h.Await(30 * time.Millisecond)
	var timeoutErr *TimeoutError
	require.ErrorAs(t, err, &timeoutErr)
	assert.Equal(t, "dialog", timeoutErr.Stage)
	assert.Nil(t, session.Dialogs().Armed())

	// A late dialog must not reach the expired handler
	late := page.RaiseDialog("prompt", folderPrompt)
	assert.True(t, late.Dismissed())
	assert.Error(t, session.Dialogs().TakeUnhandled())
	assert.ErrorAs(t, h.Await(time.Second), &timeoutErr, "the outcome is fixed once resolved")
}

// slowDialog holds Accept open until release is closed.
type slowDialog struct {
	*browsertest.Dialog
	entered chan struct{}
	release chan struct{}
}

func (d *slowDialog) Accept(promptText ...string) error {
	close(d.entered)
	<-d.release
	return d.Dialog.Accept(promptText...)
}

func TestDialogGate_AwaitWaitsForClaimedDialog(t *testing.T) {
	defer goleak.VerifyNone(t)

	page := browsertest.NewPage()
	session := NewPageSession(page)

	h, err := session.RegisterDialog(containsMatcher(folderPrompt), "My Test Folder")
	require.NoError(t, err)

	d := &slowDialog{
		Dialog:  browsertest.NewDialog("prompt", folderPrompt),
		entered: make(chan struct{}),
		release: make(chan struct{}),
	}
	delivered := make(chan struct{})
	go func() {
		defer close(delivered)
		page.Deliver(d)
	}()
	<-d.entered

	result := make(chan error, 1)
	go func() { result <- h.Await(10 * time.Millisecond) }()

	select {
	case err := <-result:
		t.Fatalf("Await returned before the dialog was answered: %v", err)
	case <-time.After(50 * time.Millisecond):
	}

	close(d.release)
	require.NoError(t, <-result, "a dialog claimed before the deadline is not a timeout")
	<-delivered

	accepted, response := d.Accepted()
	assert.True(t, accepted)
	assert.Equal(t, "My Test Folder", response)
}

func TestDialogGate_RecordsDialogDuringDetach(t *testing.T) {
	page := browsertest.NewPage()
	session := NewPageSession(page)

	var late *browsertest.Dialog
	page.BeforeRemoveListener = func(p *browsertest.Page) {
		late = p.RaiseDialog("alert", "Saved")
	}

	session.Dialogs().Detach()

	require.NotNil(t, late)
	assert.True(t, late.Dismissed())
	var unhandled *UnhandledDialogError
	require.ErrorAs(t, session.Dialogs().TakeUnhandled(), &unhandled)
	assert.Equal(t, "Saved", unhandled.Message)
}

func TestDialogGate_SingleArmedHandler(t *testing.T) {
	page := browsertest.NewPage()
	session := NewPageSession(page)

	_, err := session.RegisterDialog(containsMatcher("a"), "")
	require.NoError(t, err)
	_, err = session.RegisterDialog(containsMatcher("b"), "")
	assert.ErrorIs(t, err, ErrHandlerArmed)

	_, err = session.RegisterDialog(nil, "")
	assert.Error(t, err)
}

func TestDialogGate_DetachResolvesArmedHandler(t *testing.T) {
	page := browsertest.NewPage()
	session := NewPageSession(page)

	h, err := session.RegisterDialog(containsMatcher("a"), "")
	require.NoError(t, err)

	require.NoError(t, session.close())
	assert.True(t, h.Consumed())
	assert.Error(t, h.Await(time.Second))

	_, err = session.RegisterDialog(containsMatcher("a"), "")
	assert.Error(t, err)
}

func TestDialogGate_ConcurrentDialogsDeliverOnce(t *testing.T) {
	defer goleak.VerifyNone(t)

	page := browsertest.NewPage()
	session := NewPageSession(page)

	h, err := session.RegisterDialog(containsMatcher(folderPrompt), "My Test Folder")
	require.NoError(t, err)

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		accepted int
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			d := page.RaiseDialog("prompt", folderPrompt)
			if ok, _ := d.Accepted(); ok {
				mu.Lock()
				accepted++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	require.NoError(t, h.Await(time.Second))
	assert.Equal(t, 1, accepted)

	unhandled := session.Dialogs().TakeUnhandled()
	require.Error(t, unhandled)
	var target *UnhandledDialogError
	assert.True(t, errors.As(unhandled, &target))
}

func TestRegisterOnce_RequiresGate(t *testing.T) {
	_, err := RegisterOnce(&Session{}, containsMatcher("a"), "")
	assert.Error(t, err)

	_, err = RegisterOnce(nil, containsMatcher("a"), "")
	assert.Error(t, err)
}
