package builtin

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/playwright-community/playwright-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/entrhq/extverify/pkg/browser"
	"github.com/entrhq/extverify/pkg/browser/browsertest"
	"github.com/entrhq/extverify/pkg/scenario"
)

type pageProvider struct {
	page     *browsertest.Page
	released int
}

func (p *pageProvider) Acquire(browser.Config) (*browser.Session, error) {
	return browser.NewPageSession(p.page), nil
}

func (p *pageProvider) Release(session *browser.Session) error {
	session.Dialogs().Detach()
	p.released++
	return nil
}

func run(t *testing.T, page *browsertest.Page, sc *scenario.Scenario) (*scenario.RunConfig, *scenario.Result, error) {
	t.Helper()
	cfg := scenario.DefaultRunConfig()
	cfg.OutputDir = t.TempDir()
	cfg.Browser.ExtensionPath = "/opt/extension"
	cfg.Timeouts.Dialog = 200 * time.Millisecond

	runner, err := scenario.NewRunner(&pageProvider{page: page}, cfg)
	require.NoError(t, err)
	runner.Reporter().SetOutput(&bytes.Buffer{}, true)

	result, err := runner.Run(context.Background(), sc)
	return cfg, result, err
}

func TestBuiltins_Validate(t *testing.T) {
	for _, name := range Names() {
		t.Run(name, func(t *testing.T) {
			sc, err := Lookup(name)
			require.NoError(t, err)
			assert.NoError(t, sc.Validate())
			assert.Equal(t, name, sc.Name)
		})
	}
}

func TestLookup(t *testing.T) {
	assert.Equal(t, []string{"bookmarks", "folders"}, Names())

	_, err := Lookup("history")
	assert.ErrorContains(t, err, `unknown scenario "history"`)

	sc, err := Lookup("bookmarks")
	require.NoError(t, err)
	assert.True(t, sc.RequiresExtension)
	assert.Equal(t, scenario.KindPause, sc.Steps[1].Kind, "the shipped bookmarks scenario waits for the UI to settle")
}

func TestBookmarks_Steps(t *testing.T) {
	sc := Bookmarks(BookmarksOptions{})

	kinds := make([]scenario.StepKind, 0, len(sc.Steps))
	for _, step := range sc.Steps {
		kinds = append(kinds, step.Kind)
	}
	assert.Equal(t, []scenario.StepKind{
		scenario.KindNavigate,
		scenario.KindExpect,
		scenario.KindExpect,
		scenario.KindClick,
		scenario.KindExpect,
		scenario.KindScreenshot,
	}, kinds)

	assert.Equal(t, DefaultBookmarksURL, sc.Steps[0].URL)
	assert.Equal(t, "networkidle", sc.Steps[0].WaitUntil)
	assert.Equal(t, browser.Attached, sc.Steps[1].Condition)
	assert.Equal(t, 10*time.Second, sc.Steps[1].Timeout)
	assert.Equal(t, `css=#ai-companion-sidebar >> role=button[name="Bookmarks"]`, sc.Steps[3].Target.String())
	assert.Equal(t, DefaultEvidence, sc.Steps[5].Path)
}

func TestFolders_Steps(t *testing.T) {
	sc := Folders(FoldersOptions{Folder: "Work", Subfolder: "Drafts"})

	var dialogs []string
	for i, step := range sc.Steps {
		if step.Kind == scenario.KindDialog {
			dialogs = append(dialogs, step.Response)
			require.Less(t, i+1, len(sc.Steps))
			assert.Equal(t, scenario.KindClick, sc.Steps[i+1].Kind, "a dialog is armed right before the click that raises it")
		}
	}
	assert.Equal(t, []string{"Work", "Drafts"}, dialogs)
	assert.False(t, sc.RequiresExtension)
	assert.Equal(t, scenario.KindNavigate, sc.Steps[0].Kind)
	assert.Equal(t, DefaultOptionsURL, sc.Steps[0].URL)
	assert.Equal(t, 60*time.Second, sc.Steps[0].Timeout)
}

const (
	sidebarPath   = "css=#ai-companion-sidebar"
	bookmarksPath = `css=#ai-companion-sidebar >> role=button[name="Bookmarks"]`
	latestPath    = `css=#ai-companion-sidebar >> text="Latest bookmarks"`
)

func TestBookmarks_Run(t *testing.T) {
	page := browsertest.NewPage()
	page.AddAfter(20*time.Millisecond, sidebarPath, &browsertest.Element{Visible: true})
	page.Add(bookmarksPath, &browsertest.Element{
		Visible: true,
		OnClick: func(p *browsertest.Page, _ playwright.LocatorClickOptions) {
			p.AddAfter(20*time.Millisecond, latestPath, &browsertest.Element{Visible: true, Text: "Latest bookmarks"})
		},
	})

	sc := Bookmarks(BookmarksOptions{URL: "https://chat.example.test/", Evidence: "bubble.png"})
	cfg, result, err := run(t, page, sc)
	require.NoError(t, err)

	assert.True(t, result.Succeeded())
	assert.Equal(t, filepath.Join(cfg.OutputDir, "bubble.png"), result.Artifact)
	assert.FileExists(t, result.Artifact)
	assert.Equal(t, []string{"https://chat.example.test/"}, page.Visited())
	assert.Len(t, page.Clicks(bookmarksPath), 1)
}

func TestBookmarks_SidebarMissing(t *testing.T) {
	page := browsertest.NewPage()
	page.Markup = "<html><body><main>chat</main></body></html>"

	sc := Bookmarks(BookmarksOptions{URL: "https://chat.example.test/", HostTimeout: 100 * time.Millisecond})
	cfg, result, err := run(t, page, sc)

	var timeout *browser.TimeoutError
	require.ErrorAs(t, err, &timeout)
	assert.Equal(t, sidebarPath, timeout.Spec)
	assert.Equal(t, browser.Attached, timeout.Condition)

	assert.Empty(t, result.Artifact)
	assert.FileExists(t, filepath.Join(cfg.OutputDir, scenario.ErrorScreenshotFile))
	assert.FileExists(t, filepath.Join(cfg.OutputDir, scenario.PageContentFile))
	assert.NoFileExists(t, filepath.Join(cfg.OutputDir, scenario.ShadowContentFile), "a missing host has no shadow markup")
}

// optionsPage fakes the history view of the options page: "New" prompts for
// a folder name, right-clicking a folder offers "New subfolder", which
// prompts again and renders an indented child.
func optionsPage(indent string) (*browsertest.Page, *[]*browsertest.Dialog) {
	var dialogs []*browsertest.Dialog
	section := `css=` + PinnedSection

	addSubfolder := func(p *browsertest.Page, _ playwright.LocatorClickOptions) {
		d := p.RaiseDialog("prompt", NewFolderPrompt)
		dialogs = append(dialogs, d)
		if ok, name := d.Accepted(); ok {
			button := fmt.Sprintf("role=button[name=%q]", name)
			p.Add(button, &browsertest.Element{Visible: true})
			p.Add(button+" >> css=span >> nth=0", &browsertest.Element{
				Visible: true,
				Styles:  map[string]string{"padding-left": indent},
			})
		}
	}

	openMenu := func(p *browsertest.Page, opts playwright.LocatorClickOptions) {
		if opts.Button != nil && string(*opts.Button) == "right" {
			p.Add(`role=button[name="New subfolder"]`, &browsertest.Element{Visible: true, OnClick: addSubfolder})
		}
	}

	page := browsertest.NewPage()
	page.Add(section, &browsertest.Element{Visible: true, Markup: "<ul></ul>"})
	page.Add(section+` >> role=button[name="New"]`, &browsertest.Element{
		Visible: true,
		OnClick: func(p *browsertest.Page, _ playwright.LocatorClickOptions) {
			d := p.RaiseDialog("prompt", NewFolderPrompt)
			dialogs = append(dialogs, d)
			if ok, name := d.Accepted(); ok {
				p.Add(fmt.Sprintf("role=button[name=%q]", name), &browsertest.Element{Visible: true, OnClick: openMenu})
			}
		},
	})
	return page, &dialogs
}

func TestFolders_Run(t *testing.T) {
	page, dialogs := optionsPage("12px")

	cfg, result, err := run(t, page, Folders(FoldersOptions{URL: "http://localhost:5173/options"}))
	require.NoError(t, err)
	assert.True(t, result.Succeeded())

	require.Len(t, *dialogs, 2)
	for i, want := range []string{"My Test Folder", "My Subfolder"} {
		accepted, text := (*dialogs)[i].Accepted()
		assert.True(t, accepted)
		assert.Equal(t, want, text)
	}

	clicks := page.Clicks(`role=button[name="My Test Folder"]`)
	require.Len(t, clicks, 1)
	require.NotNil(t, clicks[0].Button)
	assert.Equal(t, "right", string(*clicks[0].Button))

	assert.Equal(t, filepath.Join(cfg.OutputDir, DefaultEvidence), result.Artifact)
}

func TestFolders_WrongIndent(t *testing.T) {
	page, _ := optionsPage("0px")

	_, result, err := run(t, page, Folders(FoldersOptions{URL: "http://localhost:5173/options"}))

	var assertion *browser.AssertionError
	require.ErrorAs(t, err, &assertion)
	assert.Equal(t, "12px", assertion.Expected)
	assert.Equal(t, "0px", assertion.Actual)
	assert.Equal(t, scenario.StatusFailed, result.Status)
	assert.Len(t, result.Steps, 11)
}
