// Package builtin holds the verification scenarios shipped with extverify.
package builtin

import (
	"fmt"
	"sort"
	"time"

	"github.com/entrhq/extverify/pkg/browser"
	"github.com/entrhq/extverify/pkg/scenario"
)

// Extension contract
const (
	// SidebarHost is the element the content script attaches its shadow root to
	SidebarHost = "#ai-companion-sidebar"

	// PinnedSection is the pinned conversations section of the options page
	PinnedSection = `[data-ai-companion-section-id="history.pinned"]`

	// NewFolderPrompt is the prompt shown when creating a folder or subfolder
	NewFolderPrompt = "Enter a name for the new folder"
)

// Defaults of the shipped scenarios
const (
	DefaultBookmarksURL = "https://chat.openai.com/"
	DefaultOptionsURL   = "http://localhost:5173/src/options/index.html?view=history"
	DefaultSettle       = 15 * time.Second
	DefaultEvidence     = "verification.png"
)

// BookmarksOptions configures the bookmarks bubble scenario
type BookmarksOptions struct {
	// URL is a page the content script runs on
	URL string

	// Settle is the wait after load for the injected UI to render; 0 skips it
	Settle time.Duration

	// HostTimeout bounds the wait for the sidebar host to attach
	HostTimeout time.Duration

	// Evidence is the screenshot path of the sidebar host
	Evidence string
}

// Bookmarks verifies that the bookmarks bubble in the injected sidebar opens
// the bookmarks panel.
func Bookmarks(opts BookmarksOptions) *scenario.Scenario {
	if opts.URL == "" {
		opts.URL = DefaultBookmarksURL
	}
	if opts.HostTimeout <= 0 {
		opts.HostTimeout = 10 * time.Second
	}
	if opts.Evidence == "" {
		opts.Evidence = DefaultEvidence
	}

	host := browser.BySelector(SidebarHost)

	steps := []scenario.Step{
		scenario.NavigateUntil(opts.URL, "networkidle"),
	}
	if opts.Settle > 0 {
		steps = append(steps, scenario.Pause(opts.Settle).Describe("wait for the injected UI to settle"))
	}
	steps = append(steps,
		scenario.ExpectAttached(host, opts.HostTimeout).Describe("sidebar host is attached"),
		scenario.ExpectVisible(browser.ByRole("button", "Bookmarks").Within(host), 5*time.Second),
		scenario.Click(browser.ByRole("button", "Bookmarks").Within(host)),
		scenario.ExpectVisible(browser.ByText("Latest bookmarks").Within(host), 5*time.Second).
			Describe("bookmarks panel is shown"),
		scenario.Screenshot(host, opts.Evidence),
	)

	return &scenario.Scenario{
		Name:              "bookmarks",
		Description:       "Bookmarks bubble opens the bookmarks panel inside the sidebar",
		RequiresExtension: true,
		Steps:             steps,
	}
}

// FoldersOptions configures the folder tree scenario
type FoldersOptions struct {
	// URL is the options page showing the history view
	URL string

	// Folder and Subfolder are the names typed into the prompts
	Folder    string
	Subfolder string

	// Indent is the expected padding-left of a subfolder label
	Indent string

	// Evidence is the screenshot path of the pinned section
	Evidence string
}

// Folders verifies creating a folder and a nested subfolder through the
// options page, both named through prompt dialogs, and that the subfolder
// is indented.
func Folders(opts FoldersOptions) *scenario.Scenario {
	if opts.URL == "" {
		opts.URL = DefaultOptionsURL
	}
	if opts.Folder == "" {
		opts.Folder = "My Test Folder"
	}
	if opts.Subfolder == "" {
		opts.Subfolder = "My Subfolder"
	}
	if opts.Indent == "" {
		opts.Indent = "12px"
	}
	if opts.Evidence == "" {
		opts.Evidence = DefaultEvidence
	}

	section := browser.BySelector(PinnedSection)
	folder := browser.ByRole("button", opts.Folder)
	subfolder := browser.ByRole("button", opts.Subfolder)
	newSubfolder := browser.ByRole("button", "New subfolder")

	return &scenario.Scenario{
		Name:        "folders",
		Description: "Folder and subfolder creation in the pinned history section",
		Steps: []scenario.Step{
			scenario.Navigate(opts.URL).WithTimeout(60 * time.Second),
			scenario.ExpectVisible(section, 20*time.Second).Describe("pinned section is visible"),
			scenario.RegisterDialog(scenario.Contains(NewFolderPrompt), opts.Folder),
			scenario.Click(browser.ByRole("button", "New").Within(section)),
			scenario.ExpectVisible(folder, 0),
			scenario.RightClick(folder),
			scenario.ExpectVisible(newSubfolder, 0),
			scenario.RegisterDialog(scenario.Contains(NewFolderPrompt), opts.Subfolder),
			scenario.Click(newSubfolder),
			scenario.ExpectVisible(subfolder, 0),
			scenario.AssertStyle(browser.BySelector("span").FirstMatch().Within(subfolder), "padding-left", opts.Indent).
				Describe("subfolder is indented"),
			scenario.Screenshot(section, opts.Evidence),
		},
	}
}

// Names lists the built-in scenarios.
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Lookup returns a built-in scenario with default options.
func Lookup(name string) (*scenario.Scenario, error) {
	build, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("unknown scenario %q (available: %v)", name, Names())
	}
	return build(), nil
}

var registry = map[string]func() *scenario.Scenario{
	"bookmarks": func() *scenario.Scenario { return Bookmarks(BookmarksOptions{Settle: DefaultSettle}) },
	"folders":   func() *scenario.Scenario { return Folders(FoldersOptions{}) },
}
