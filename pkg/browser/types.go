package browser

import (
	"time"

	"github.com/playwright-community/playwright-go"
)

// Session is an owned automation context with exactly one active page.
type Session struct {
	// ID is the unique identifier for this session
	ID string

	// Browser is set for ephemeral sessions only. Persistent sessions are
	// owned by their context.
	Browser playwright.Browser

	// Context is the browser context the page lives in
	Context playwright.BrowserContext

	// Page is the single active page
	Page playwright.Page

	// ProfileDir is the user data directory of a persistent session
	ProfileDir string

	// Persistent is true when the session was launched with a user data
	// directory (required for extensions)
	Persistent bool

	// Headless indicates if the browser is running in headless mode
	Headless bool

	// CreatedAt is the timestamp when the session was created
	CreatedAt time.Time

	dialogs          *DialogGate
	generatedProfile bool
	released         bool
}

// Dialogs returns the session's dialog gate.
func (s *Session) Dialogs() *DialogGate {
	return s.dialogs
}

// Config configures a new browser session.
type Config struct {
	// ExtensionPath is the unpacked extension directory. When set, the session
	// uses a persistent profile with the extension force-loaded.
	ExtensionPath string `yaml:"extension_path" json:"extension_path" mapstructure:"extension_path"`

	// Headless controls whether the browser runs without a visible window
	Headless bool `yaml:"headless" json:"headless" mapstructure:"headless"`

	// ProfileDir is the user data directory for persistent sessions. Empty
	// means a fresh directory is generated per session and removed on release.
	ProfileDir string `yaml:"profile_dir" json:"profile_dir" mapstructure:"profile_dir"`

	// Channel selects the browser distribution ("chromium", "chrome", ...)
	Channel string `yaml:"channel" json:"channel" mapstructure:"channel"`

	// Viewport sets the initial viewport size
	Viewport *Viewport `yaml:"viewport" json:"viewport" mapstructure:"viewport"`

	// DefaultTimeout applies to page operations that have no explicit timeout
	DefaultTimeout time.Duration `yaml:"default_timeout" json:"default_timeout" mapstructure:"default_timeout"`

	// Args are extra browser command line arguments
	Args []string `yaml:"args" json:"args" mapstructure:"args"`

	// SlowMo slows every engine operation down, for watching headed runs
	SlowMo time.Duration `yaml:"slow_mo" json:"slow_mo" mapstructure:"slow_mo"`
}

// Viewport represents the browser viewport dimensions.
type Viewport struct {
	Width  int `yaml:"width" json:"width" mapstructure:"width"`
	Height int `yaml:"height" json:"height" mapstructure:"height"`
}

// WaitCondition is the state a resolved element must reach.
type WaitCondition string

const (
	// Attached means present in the DOM, visible or not
	Attached WaitCondition = "attached"

	// Visible means attached with a non-empty bounding box and not hidden
	Visible WaitCondition = "visible"
)

// Valid reports whether c is a known condition.
func (c WaitCondition) Valid() bool {
	return c == Attached || c == Visible
}

func (c WaitCondition) state() *playwright.WaitForSelectorState {
	state := playwright.WaitForSelectorState(c)
	return &state
}

// Default values for sessions and waits
const (
	DefaultTimeout        = 30 * time.Second
	DefaultResolveTimeout = 5 * time.Second
	DefaultDialogTimeout  = 10 * time.Second
	DefaultViewportWidth  = 1280
	DefaultViewportHeight = 720
	launchTimeout         = 60 * time.Second
)

func millis(d time.Duration) *float64 {
	return playwright.Float(float64(d.Milliseconds()))
}
