package browsertest

import (
	"sync"

	"github.com/playwright-community/playwright-go"
)

// BrowserType is a fake Chromium launcher whose persistent contexts wrap a
// fake page.
type BrowserType struct {
	playwright.BrowserType

	mu       sync.Mutex
	launches []PersistentLaunch

	// Page is the page of every launched context; a fresh one when nil
	Page *Page

	// LaunchErr fails every launch
	LaunchErr error
}

// PersistentLaunch records one LaunchPersistentContext call.
type PersistentLaunch struct {
	UserDataDir string
	Options     playwright.BrowserTypeLaunchPersistentContextOptions
	Context     *Context
}

// Launches returns the recorded persistent launches.
func (b *BrowserType) Launches() []PersistentLaunch {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]PersistentLaunch(nil), b.launches...)
}

func (b *BrowserType) LaunchPersistentContext(userDataDir string, options ...playwright.BrowserTypeLaunchPersistentContextOptions) (playwright.BrowserContext, error) {
	if b.LaunchErr != nil {
		return nil, b.LaunchErr
	}

	page := b.Page
	if page == nil {
		page = NewPage()
	}
	ctx := &Context{page: page}

	launch := PersistentLaunch{UserDataDir: userDataDir, Context: ctx}
	if len(options) > 0 {
		launch.Options = options[0]
	}

	b.mu.Lock()
	b.launches = append(b.launches, launch)
	b.mu.Unlock()
	return ctx, nil
}

// Context is a fake browser context holding a single page.
type Context struct {
	playwright.BrowserContext

	mu     sync.Mutex
	page   *Page
	closed int

	// CloseErr fails Close
	CloseErr error
}

// Closed returns how many times Close was called.
func (c *Context) Closed() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func (c *Context) Pages() []playwright.Page {
	return []playwright.Page{c.page}
}

func (c *Context) NewPage() (playwright.Page, error) {
	return c.page, nil
}

func (c *Context) Close(options ...playwright.BrowserContextCloseOptions) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed++
	return c.CloseErr
}
