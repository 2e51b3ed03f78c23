package scenario

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/entrhq/extverify/pkg/browser"
)

func TestStep_Validate(t *testing.T) {
	button := browser.ByRole("button", "New")

	tests := []struct {
		name    string
		step    Step
		wantErr string
	}{
		{name: "navigate", step: Navigate("https://example.test/")},
		{name: "navigate without url", step: Step{Kind: KindNavigate}, wantErr: "requires a url"},
		{name: "expect", step: ExpectVisible(button, time.Second)},
		{name: "expect without target", step: Step{Kind: KindExpect}, wantErr: "expect requires a target"},
		{name: "expect unknown condition", step: Step{Kind: KindExpect, Target: &button, Condition: "hidden"}, wantErr: "unknown condition"},
		{name: "invalid target", step: Click(browser.LocatorSpec{}), wantErr: "invalid locator spec"},
		{name: "right click", step: RightClick(button)},
		{name: "unknown button", step: Step{Kind: KindClick, Target: &button, Button: "back"}, wantErr: "unknown mouse button"},
		{name: "dialog", step: RegisterDialog(Contains("name"), "x")},
		{name: "dialog without match", step: Step{Kind: KindDialog}, wantErr: "requires a match"},
		{name: "dialog bad regexp", step: RegisterDialog(Regexp("("), ""), wantErr: "invalid regexp"},
		{name: "assert style without property", step: Step{Kind: KindAssertStyle, Target: &button}, wantErr: "requires a property"},
		{name: "page screenshot", step: PageScreenshot("page.png", true)},
		{name: "screenshot without path", step: Step{Kind: KindScreenshot}, wantErr: "requires a path"},
		{name: "pause", step: Pause(time.Second)},
		{name: "pause without duration", step: Step{Kind: KindPause}, wantErr: "positive duration"},
		{name: "negative timeout", step: ExpectVisible(button, -time.Second), wantErr: "cannot be negative"},
		{name: "unknown kind", step: Step{Kind: "hover"}, wantErr: "unknown step kind"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.step.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestStep_String(t *testing.T) {
	host := browser.BySelector("#ai-companion-sidebar")
	bookmarks := browser.ByRole("button", "Bookmarks").Within(host)

	tests := []struct {
		step Step
		want string
	}{
		{Navigate("https://chat.openai.com/"), "navigate to https://chat.openai.com/"},
		{ExpectAttached(host, 0), "expect css=#ai-companion-sidebar to be attached"},
		{Click(bookmarks), `click css=#ai-companion-sidebar >> role=button[name="Bookmarks"]`},
		{RightClick(host), "right-click css=#ai-companion-sidebar"},
		{RegisterDialog(Contains("folder"), "A"), `answer dialog contains "folder" with "A"`},
		{AssertStyle(host, "padding-left", "12px"), `assert padding-left of css=#ai-companion-sidebar is "12px"`},
		{PageScreenshot("page.png", false), "screenshot page to page.png"},
		{Pause(2 * time.Second), "pause 2s"},
		{Pause(time.Second).Describe("settle"), "settle"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.step.String())
		})
	}
}

func TestScenario_Validate(t *testing.T) {
	button := browser.ByRole("button", "New")

	tests := []struct {
		name    string
		sc      *Scenario
		wantErr string
	}{
		{
			name: "valid",
			sc:   &Scenario{Name: "folders", Steps: []Step{RegisterDialog(Contains("name"), "A"), Click(button)}},
		},
		{name: "nil", sc: nil, wantErr: "nil"},
		{name: "bad name", sc: &Scenario{Name: "My Scenario", Steps: []Step{Click(button)}}, wantErr: "invalid scenario name"},
		{name: "no steps", sc: &Scenario{Name: "empty"}, wantErr: "has no steps"},
		{
			name:    "invalid step",
			sc:      &Scenario{Name: "bad-step", Steps: []Step{Click(button), {Kind: KindNavigate}}},
			wantErr: "step 2",
		},
		{
			name:    "two dialogs without a click",
			sc:      &Scenario{Name: "armed", Steps: []Step{RegisterDialog(Contains("a"), ""), RegisterDialog(Contains("b"), ""), Click(button)}},
			wantErr: browser.ErrHandlerArmed.Error(),
		},
		{
			name:    "trailing dialog",
			sc:      &Scenario{Name: "trailing", Steps: []Step{Click(button), RegisterDialog(Contains("a"), "")}},
			wantErr: "never followed by a click",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.sc.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestScenario_Scopes(t *testing.T) {
	host := browser.BySelector("#ai-companion-sidebar")
	section := browser.BySelector(".panel").Within(host)
	other := browser.BySelector("#options")

	sc := &Scenario{
		Name: "scopes",
		Steps: []Step{
			ExpectAttached(host, 0),
			Click(browser.ByRole("button", "Bookmarks").Within(host)),
			ExpectVisible(browser.ByText("Latest").Within(section), 0),
			Click(browser.ByRole("button", "Save").Within(other)),
			PageScreenshot("page.png", false),
		},
	}

	scopes := sc.Scopes()
	require.Len(t, scopes, 2)
	assert.Equal(t, "css=#ai-companion-sidebar", scopes[0].String())
	assert.Equal(t, "css=#options", scopes[1].String())
}

const folderYAML = `
name: folders
description: Folder creation
steps:
  - kind: dialog
    match: {kind: contains, pattern: "new folder"}
    response: My Test Folder
  - kind: navigate
    url: http://localhost:5173/src/options/index.html?view=history
    timeout: 60s
  - kind: click
    target:
      role: button
      name: New
      scope: {selector: '[data-ai-companion-section-id="history.pinned"]'}
  - kind: expect
    target: {role: button, name: My Test Folder}
    condition: attached
    timeout: 1500ms
  - kind: assert_style
    target: {selector: span, first: true, scope: {role: button, name: My Test Folder}}
    property: padding-left
    expected: 12px
  - kind: screenshot
    path: verification.png
    full_page: true
`

func TestParse(t *testing.T) {
	sc, err := Parse([]byte(folderYAML))
	require.NoError(t, err)

	assert.Equal(t, "folders", sc.Name)
	require.Len(t, sc.Steps, 6)

	assert.Equal(t, KindDialog, sc.Steps[0].Kind)
	assert.Equal(t, MatchContains, sc.Steps[0].Match.Kind)
	assert.Equal(t, "My Test Folder", sc.Steps[0].Response)

	assert.Equal(t, 60*time.Second, sc.Steps[1].Timeout)

	click := sc.Steps[2]
	require.NotNil(t, click.Target)
	assert.Equal(t, `css=[data-ai-companion-section-id="history.pinned"] >> role=button[name="New"]`, click.Target.String())

	assert.Equal(t, browser.Attached, sc.Steps[3].Condition)
	assert.Equal(t, 1500*time.Millisecond, sc.Steps[3].Timeout)

	style := sc.Steps[4]
	assert.Equal(t, `role=button[name="My Test Folder"] >> css=span >> nth=0`, style.Target.String())

	assert.True(t, sc.Steps[5].FullPage)
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{
			name:    "unknown field",
			yaml:    "name: x\nsteps:\n  - kind: navigate\n    url: a\n    wait: 3s\n",
			wantErr: "failed to parse scenario",
		},
		{
			name:    "malformed",
			yaml:    "name: [x",
			wantErr: "failed to parse scenario",
		},
		{
			name:    "invalid step",
			yaml:    "name: x\nsteps:\n  - kind: click\n",
			wantErr: "click requires a target",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "folders.yaml")
	require.NoError(t, os.WriteFile(path, []byte(folderYAML), 0644))

	sc, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "folders", sc.Name)

	_, err = LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
