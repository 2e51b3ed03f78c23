package browser

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/playwright-community/playwright-go"

	"github.com/entrhq/extverify/pkg/logging"
)

// SessionManager owns the Playwright driver and the lifecycle of every
// session it hands out.
type SessionManager struct {
	mu          sync.RWMutex
	sessions    map[string]*Session
	playwright  *playwright.Playwright
	chromium    playwright.BrowserType
	skipInstall bool
	initialized bool
	logger      *logging.Logger
}

// NewSessionManager creates a new session manager.
func NewSessionManager() *SessionManager {
	return &SessionManager{
		sessions:    make(map[string]*Session),
		initialized: false,
	}
}

// SetSkipInstall disables the browser download step in Initialize, for
// environments where the driver and Chromium are preinstalled.
func (m *SessionManager) SetSkipInstall(skip bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.skipInstall = skip
}

// SetLogger attaches a file logger. A nil logger disables logging.
func (m *SessionManager) SetLogger(logger *logging.Logger) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.logger = logger
}

// Initialize installs (unless skipped) and starts the Playwright driver.
// It must be called before acquiring any session. Repeated calls are no-ops.
func (m *SessionManager) Initialize() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.initialized {
		return nil
	}

	// Driver chatter would interleave with the progress output on stdout
	opts := &playwright.RunOptions{
		Browsers: []string{"chromium"},
		Verbose:  false,
		Stdout:   io.Discard,
		Stderr:   io.Discard,
	}

	if !m.skipInstall {
		m.logger.Infof("Installing Playwright driver and Chromium")
		if err := playwright.Install(opts); err != nil {
			return &LaunchError{Reason: "install playwright", Err: err}
		}
	}

	pw, err := playwright.Run(opts)
	if err != nil {
		return &LaunchError{Reason: "start playwright driver", Err: err}
	}

	m.playwright = pw
	m.chromium = pw.Chromium
	m.initialized = true
	m.logger.Infof("Playwright driver started")
	return nil
}

// Acquire launches a new session. With cfg.ExtensionPath set the session is
// a persistent profile with the extension loaded, otherwise an ephemeral
// browser context.
func (m *SessionManager) Acquire(cfg Config) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.initialized {
		return nil, &LaunchError{Reason: "acquire session", Err: ErrNotInitialized}
	}

	cfg = withDefaults(cfg)

	var (
		session *Session
		err     error
	)
	if cfg.ExtensionPath != "" {
		session, err = m.launchPersistent(cfg)
	} else {
		session, err = m.launchEphemeral(cfg)
	}
	if err != nil {
		m.logger.Errorf("Session launch failed: %v", err)
		return nil, err
	}

	session.Page.SetDefaultTimeout(float64(cfg.DefaultTimeout.Milliseconds()))
	session.dialogs = AttachDialogGate(session.Page)

	m.sessions[session.ID] = session
	m.logger.Infof("Session %s acquired (persistent=%t, headless=%t, profile=%q)",
		session.ID, session.Persistent, session.Headless, session.ProfileDir)
	return session, nil
}

// Release closes every resource held by the session: the dialog gate, the
// context, the browser of an ephemeral session, and a generated profile
// directory. Releasing twice is a no-op.
func (m *SessionManager) Release(session *Session) error {
	if session == nil {
		return nil
	}

	m.mu.Lock()
	delete(m.sessions, session.ID)
	m.mu.Unlock()

	err := session.close()
	if err != nil {
		m.logger.Warnf("Session %s released with errors: %v", session.ID, err)
	} else {
		m.logger.Infof("Session %s released", session.ID)
	}
	return err
}

// WithSession acquires a session, runs fn with it and releases the session
// on every exit path, including a panic inside fn. A release failure is
// reported only when fn itself succeeded.
func (m *SessionManager) WithSession(cfg Config, fn func(*Session) error) (err error) {
	session, err := m.Acquire(cfg)
	if err != nil {
		return err
	}

	defer func() {
		if relErr := m.Release(session); relErr != nil && err == nil {
			err = fmt.Errorf("release session: %w", relErr)
		}
	}()

	return fn(session)
}

// ActiveSessions returns the number of sessions not yet released.
func (m *SessionManager) ActiveSessions() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Shutdown closes all sessions and stops Playwright.
func (m *SessionManager) Shutdown() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var errs []error
	for id, session := range m.sessions {
		if err := session.close(); err != nil {
			errs = append(errs, fmt.Errorf("session %s: %w", id, err))
		}
		delete(m.sessions, id)
	}

	if m.initialized && m.playwright != nil {
		if err := m.playwright.Stop(); err != nil {
			errs = append(errs, fmt.Errorf("failed to stop playwright: %w", err))
		}
	}
	m.initialized = false
	m.chromium = nil

	return errors.Join(errs...)
}

func (m *SessionManager) launchPersistent(cfg Config) (*Session, error) {
	extensionPath, err := validateExtension(cfg.ExtensionPath)
	if err != nil {
		return nil, err
	}

	profileDir := cfg.ProfileDir
	generated := false
	if profileDir == "" {
		profileDir = filepath.Join(os.TempDir(), "extverify-profile-"+uuid.NewString())
		generated = true
	}
	if err := os.MkdirAll(profileDir, 0700); err != nil {
		return nil, &LaunchError{Reason: "create profile directory", Err: err}
	}

	cleanupProfile := func() {
		if generated {
			_ = os.RemoveAll(profileDir)
		}
	}

	context, err := m.chromium.LaunchPersistentContext(profileDir, persistentOptions(cfg, extensionPath))
	if err != nil {
		cleanupProfile()
		return nil, &LaunchError{Reason: "launch persistent context", Err: err}
	}

	// A persistent context opens with a blank page; reuse it so the session
	// keeps a single active page.
	var page playwright.Page
	if pages := context.Pages(); len(pages) > 0 {
		page = pages[0]
	} else {
		page, err = context.NewPage()
		if err != nil {
			_ = context.Close()
			cleanupProfile()
			return nil, &LaunchError{Reason: "create page", Err: err}
		}
	}

	return &Session{
		ID:               uuid.NewString(),
		Context:          context,
		Page:             page,
		ProfileDir:       profileDir,
		Persistent:       true,
		Headless:         cfg.Headless,
		CreatedAt:        time.Now(),
		generatedProfile: generated,
	}, nil
}

func (m *SessionManager) launchEphemeral(cfg Config) (*Session, error) {
	browser, err := m.chromium.Launch(launchOptions(cfg))
	if err != nil {
		return nil, &LaunchError{Reason: "launch browser", Err: err}
	}

	context, err := browser.NewContext(playwright.BrowserNewContextOptions{
		Viewport: &playwright.Size{
			Width:  cfg.Viewport.Width,
			Height: cfg.Viewport.Height,
		},
	})
	if err != nil {
		_ = browser.Close()
		return nil, &LaunchError{Reason: "create context", Err: err}
	}

	page, err := context.NewPage()
	if err != nil {
		_ = context.Close()
		_ = browser.Close()
		return nil, &LaunchError{Reason: "create page", Err: err}
	}

	return &Session{
		ID:        uuid.NewString(),
		Browser:   browser,
		Context:   context,
		Page:      page,
		Headless:  cfg.Headless,
		CreatedAt: time.Now(),
	}, nil
}

// validateExtension checks that path is an unpacked extension directory and
// returns its absolute form, which Chromium requires for --load-extension.
func validateExtension(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", &LaunchError{Reason: "resolve extension path", Err: err}
	}

	info, err := os.Stat(abs)
	if err != nil {
		return "", &LaunchError{Reason: "extension path " + abs, Err: err}
	}
	if !info.IsDir() {
		return "", &LaunchError{Reason: fmt.Sprintf("extension path %s is not a directory", abs)}
	}
	if _, err := os.Stat(filepath.Join(abs, "manifest.json")); err != nil {
		return "", &LaunchError{Reason: fmt.Sprintf("extension path %s has no manifest.json", abs), Err: err}
	}

	return abs, nil
}

func withDefaults(cfg Config) Config {
	if cfg.Viewport == nil {
		cfg.Viewport = &Viewport{
			Width:  DefaultViewportWidth,
			Height: DefaultViewportHeight,
		}
	}
	if cfg.DefaultTimeout <= 0 {
		cfg.DefaultTimeout = DefaultTimeout
	}
	return cfg
}

func persistentOptions(cfg Config, extensionPath string) playwright.BrowserTypeLaunchPersistentContextOptions {
	args := []string{
		"--disable-extensions-except=" + extensionPath,
		"--load-extension=" + extensionPath,
	}
	args = append(args, cfg.Args...)

	opts := playwright.BrowserTypeLaunchPersistentContextOptions{
		Headless: playwright.Bool(cfg.Headless),
		Args:     args,
		// Playwright passes --disable-extensions by default
		IgnoreDefaultArgs: []string{"--disable-extensions"},
		Timeout:           millis(launchTimeout),
		Viewport: &playwright.Size{
			Width:  cfg.Viewport.Width,
			Height: cfg.Viewport.Height,
		},
	}
	if cfg.Channel != "" {
		opts.Channel = playwright.String(cfg.Channel)
	}
	if cfg.SlowMo > 0 {
		opts.SlowMo = millis(cfg.SlowMo)
	}
	return opts
}

func launchOptions(cfg Config) playwright.BrowserTypeLaunchOptions {
	opts := playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(cfg.Headless),
		Args:     cfg.Args,
		Timeout:  millis(launchTimeout),
	}
	if cfg.Channel != "" {
		opts.Channel = playwright.String(cfg.Channel)
	}
	if cfg.SlowMo > 0 {
		opts.SlowMo = millis(cfg.SlowMo)
	}
	return opts
}
