// Package browser drives a Chromium instance through Playwright for
// verifying the UI a browser extension injects into pages.
//
// # Architecture
//
// The package is built around four pieces:
//
// 1. SessionManager: owns the Playwright driver and hands out sessions
// 2. Session: one browser context with exactly one active page
// 3. Resolve: bounded-wait element resolution that can descend into a shadow host
// 4. DialogGate: one-shot interception of native alert/confirm/prompt dialogs
//
// # Session Lifecycle
//
//  1. Initialize: install (optional) and start the Playwright driver
//  2. Acquire: launch a persistent profile when an extension must be loaded,
//     an ephemeral context otherwise
//  3. Use: navigate, resolve elements, arm dialog handlers
//  4. Release: close the context and remove a generated profile directory
//
// WithSession wraps steps 2 to 4 so the release happens on every exit path.
//
// # Extensions
//
// Chromium only loads unpacked extensions into a persistent context. The
// manager launches one with --load-extension and removes Playwright's default
// --disable-extensions. When no profile directory is configured a fresh one
// is generated per session, so runs do not share extension storage.
//
// # Shadow DOM
//
// A LocatorSpec with a Scope resolves the scope first and then searches
// inside it. Playwright's role, text and CSS engines pierce open shadow
// roots, so scoping to the extension's host element searches its isolated
// subtree:
//
//	host := browser.BySelector("#ai-companion-sidebar")
//	el, err := session.Resolve(browser.ByRole("button", "Bookmarks").Within(host), browser.Visible, 5*time.Second)
//
// # Dialogs
//
// Dialogs are delivered to a handler armed before the triggering action:
//
//	h, err := session.RegisterDialog(matcher, "My Test Folder")
//	err = el.Click(browser.ClickOptions{})
//	err = h.Await(10 * time.Second)
//
// A dialog that arrives with no armed handler is dismissed and reported by
// DialogGate.TakeUnhandled.
package browser
