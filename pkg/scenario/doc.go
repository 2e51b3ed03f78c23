// Package scenario runs ordered verification steps against a browser
// session and records their evidence.
//
// A Scenario is a list of Steps: navigate, expect, click, dialog,
// assert_text, assert_style, screenshot and pause. Scenarios are built in
// Go with the step constructors or loaded from YAML:
//
//	name: bookmarks-bubble
//	requires_extension: true
//	steps:
//	  - kind: navigate
//	    url: https://chat.openai.com/
//	    wait_until: networkidle
//	  - kind: expect
//	    target: {selector: "#ai-companion-sidebar"}
//	    condition: attached
//	    timeout: 10s
//	  - kind: click
//	    target:
//	      role: button
//	      name: Bookmarks
//	      scope: {selector: "#ai-companion-sidebar"}
//	  - kind: screenshot
//	    target: {selector: "#ai-companion-sidebar"}
//	    path: verification.png
//
// # Execution
//
// Runner.Run acquires one session, executes the steps strictly in order and
// stops at the first failure. A dialog step arms a one-shot handler and the
// next click step does not complete until that dialog has been answered. A
// dialog nobody armed for fails the step during which it appeared.
//
// On failure the runner saves error.png, page_content.html,
// page_outline.html and the shadow markup of every scope root before the
// session is released. summary.json, summary.md and optionally evidence.pdf
// are written after every run.
package scenario
