// Package browsertest provides in-memory fakes of the Playwright page,
// locator and dialog interfaces for tests that must not start a browser.
//
// Elements are registered under the selector chain a locator builds, in the
// same format browser.LocatorSpec.String renders, for example
//
//	css=#ai-companion-sidebar >> role=button[name="Bookmarks"]
//
// Only the methods the harness calls are implemented; any other method
// panics through the nil embedded interface.
package browsertest

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"slices"
	"sync"
	"time"

	"github.com/playwright-community/playwright-go"
)

// Element is a fake DOM element.
type Element struct {
	// Visible reports whether the element has a box; attached is implied
	Visible bool

	// Text is returned by InnerText
	Text string

	// Styles maps CSS properties to computed values
	Styles map[string]string

	// Markup is returned for markup evaluations
	Markup string

	// OnClick runs synchronously inside Click
	OnClick func(p *Page, opts playwright.LocatorClickOptions)
}

// Page is a fake playwright.Page.
type Page struct {
	playwright.Page

	mu             sync.Mutex
	elements       map[string]*Element
	waits          map[string]int
	clicks         map[string][]playwright.LocatorClickOptions
	dialogHandlers []func(playwright.Dialog)
	removed        int
	url            string
	visited        []string
	defaultTimeout float64

	// GotoErrs are returned by successive Goto calls; nil entries succeed
	GotoErrs []error

	// Markup is returned by Content
	Markup string

	// ContentErr fails Content
	ContentErr error

	// ScreenshotErr fails page and element screenshots
	ScreenshotErr error

	// BeforeRemoveListener runs inside RemoveListener while the listeners
	// are still registered
	BeforeRemoveListener func(p *Page)
}

// NewPage returns an empty fake page at about:blank.
func NewPage() *Page {
	return &Page{
		elements: make(map[string]*Element),
		waits:    make(map[string]int),
		clicks:   make(map[string][]playwright.LocatorClickOptions),
		url:      "about:blank",
	}
}

// Add attaches el under path.
func (p *Page) Add(path string, el *Element) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.elements[path] = el
}

// AddAfter attaches el under path once d has elapsed.
func (p *Page) AddAfter(d time.Duration, path string, el *Element) {
	time.AfterFunc(d, func() { p.Add(path, el) })
}

// Remove detaches the element under path.
func (p *Page) Remove(path string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.elements, path)
}

// WaitCount returns how many times a locator for path was waited on.
func (p *Page) WaitCount(path string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.waits[path]
}

// Clicks returns the recorded clicks on path.
func (p *Page) Clicks(path string) []playwright.LocatorClickOptions {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]playwright.LocatorClickOptions(nil), p.clicks[path]...)
}

// Visited returns the URLs passed to Goto, in order.
func (p *Page) Visited() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.visited...)
}

// DialogListeners returns the number of registered dialog listeners.
func (p *Page) DialogListeners() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.dialogHandlers)
}

// DefaultTimeout returns the value passed to SetDefaultTimeout.
func (p *Page) DefaultTimeout() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.defaultTimeout
}

// RaiseDialog delivers a new dialog to the registered listeners and returns
// it once they have run.
func (p *Page) RaiseDialog(kind, message string) *Dialog {
	d := NewDialog(kind, message)
	p.Deliver(d)
	return d
}

// Deliver runs the registered dialog listeners on d. With no listener the
// dialog is dismissed, as Playwright does.
func (p *Page) Deliver(d playwright.Dialog) {
	p.mu.Lock()
	handlers := slices.Clone(p.dialogHandlers)
	p.mu.Unlock()

	if len(handlers) == 0 {
		_ = d.Dismiss()
		return
	}
	for _, h := range handlers {
		h(d)
	}
}

func (p *Page) lookup(path string) (*Element, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	el, ok := p.elements[path]
	return el, ok
}

func (p *Page) locator(path string) playwright.Locator {
	return &Locator{page: p, path: path}
}

func (p *Page) Locator(selector string, options ...playwright.PageLocatorOptions) playwright.Locator {
	return p.locator("css=" + selector)
}

func (p *Page) GetByRole(role playwright.AriaRole, options ...playwright.PageGetByRoleOptions) playwright.Locator {
	var (
		name  interface{}
		exact *bool
	)
	if len(options) > 0 {
		name, exact = options[0].Name, options[0].Exact
	}
	return p.locator(rolePath(role, name, exact))
}

func (p *Page) GetByText(text interface{}, options ...playwright.PageGetByTextOptions) playwright.Locator {
	var exact *bool
	if len(options) > 0 {
		exact = options[0].Exact
	}
	return p.locator(textPath(text, exact))
}

func (p *Page) OnDialog(fn func(playwright.Dialog)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.dialogHandlers = append(p.dialogHandlers, fn)
}

// RemoveListener drops every listener of the event; the fake cannot compare
// function values.
func (p *Page) RemoveListener(name string, handler interface{}) {
	if name != "dialog" {
		return
	}
	if p.BeforeRemoveListener != nil {
		p.BeforeRemoveListener(p)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.dialogHandlers = nil
	p.removed++
}

func (p *Page) Goto(url string, options ...playwright.PageGotoOptions) (playwright.Response, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.visited = append(p.visited, url)
	if len(p.GotoErrs) > 0 {
		err := p.GotoErrs[0]
		p.GotoErrs = p.GotoErrs[1:]
		if err != nil {
			return nil, err
		}
	}
	p.url = url
	return nil, nil
}

func (p *Page) URL() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.url
}

func (p *Page) SetDefaultTimeout(timeout float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.defaultTimeout = timeout
}

func (p *Page) Screenshot(options ...playwright.PageScreenshotOptions) ([]byte, error) {
	if p.ScreenshotErr != nil {
		return nil, p.ScreenshotErr
	}
	return PNG(), nil
}

func (p *Page) Content() (string, error) {
	if p.ContentErr != nil {
		return "", p.ContentErr
	}
	return p.Markup, nil
}

// PNG returns a small valid PNG image.
func PNG() []byte {
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	for x := 0; x < 4; x++ {
		for y := 0; y < 4; y++ {
			img.Set(x, y, color.RGBA{R: 0x33, G: 0x66, B: 0x99, A: 0xff})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		panic(err)
	}
	return buf.Bytes()
}

func rolePath(role playwright.AriaRole, name interface{}, exact *bool) string {
	path := "role=" + string(role)
	if s, ok := name.(string); ok && s != "" {
		path += fmt.Sprintf("[name=%q]", s)
	}
	if exact != nil && *exact {
		path += "[exact]"
	}
	return path
}

func textPath(text interface{}, exact *bool) string {
	path := fmt.Sprintf("text=%q", fmt.Sprint(text))
	if exact != nil && *exact {
		path += "[exact]"
	}
	return path
}
