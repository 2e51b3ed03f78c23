package browser

import (
	"strings"
	"testing"
)

func TestOutlineMarkup(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		maxLength int
		wantTitle string
		wantHTML  []string
		wantNot   []string
		truncated bool
	}{
		{
			name: "scripts styles and comments removed",
			input: `<html>
				<head>
					<title>History</title>
					<script>window.secret = 1</script>
					<style>.x { color: red }</style>
				</head>
				<body>
					<!-- build 42 -->
					<div id="ai-companion-sidebar" class="host" style="position: fixed"></div>
				</body>
			</html>`,
			wantTitle: "History",
			wantHTML:  []string{`<div id="ai-companion-sidebar">`},
			wantNot:   []string{"<script", "window.secret", "color: red", "build 42", "class=", "style="},
		},
		{
			name:     "locator attributes kept",
			input:    `<section data-ai-companion-section-id="history.pinned"><button role="button" aria-label="New" onclick="go()">New</button></section>`,
			wantHTML: []string{`data-ai-companion-section-id="history.pinned"`, `aria-label="New"`, `role="button"`, ">New</button>"},
			wantNot:  []string{"onclick"},
		},
		{
			name:     "whitespace collapsed",
			input:    "<p>  Latest \n\n  bookmarks  </p>",
			wantHTML: []string{"<p>Latest bookmarks</p>"},
		},
		{
			name:     "void elements not closed",
			input:    `<input type="text" placeholder="Folder name"><br>`,
			wantHTML: []string{`<input type="text" placeholder="Folder name">`},
			wantNot:  []string{"</input>", "</br>"},
		},
		{
			name:      "truncated",
			input:     "<ul>" + strings.Repeat("<li>bookmark entry</li>", 200) + "</ul>",
			maxLength: 300,
			wantHTML:  []string{"<!-- outline truncated -->"},
			truncated: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := OutlineMarkup(tt.input, tt.maxLength)
			if err != nil {
				t.Fatalf("OutlineMarkup() error = %v", err)
			}
			if out.Title != tt.wantTitle {
				t.Errorf("Title = %q, want %q", out.Title, tt.wantTitle)
			}
			if out.Truncated != tt.truncated {
				t.Errorf("Truncated = %v, want %v", out.Truncated, tt.truncated)
			}
			for _, want := range tt.wantHTML {
				if !strings.Contains(out.HTML, want) {
					t.Errorf("HTML missing %q\n%s", want, out.HTML)
				}
			}
			for _, not := range tt.wantNot {
				if strings.Contains(out.HTML, not) {
					t.Errorf("HTML should not contain %q\n%s", not, out.HTML)
				}
			}
		})
	}
}

func TestOutlineMarkup_DefaultLength(t *testing.T) {
	out, err := OutlineMarkup("<p>x</p>", 0)
	if err != nil {
		t.Fatalf("OutlineMarkup() error = %v", err)
	}
	if out.Truncated {
		t.Error("small document should not be truncated")
	}
}
