package scenario

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/alecthomas/chroma/v2/quick"
	"github.com/charmbracelet/lipgloss"
)

// Verbosity controls how much progress the Reporter prints
type Verbosity int

const (
	// VerbosityQuiet shows only warnings, errors and the final summary
	VerbosityQuiet Verbosity = iota
	// VerbosityNormal shows each step (default)
	VerbosityNormal
	// VerbosityVerbose adds step timings and artifact paths
	VerbosityVerbose
	// VerbosityDebug adds the DOM outline of a failed page
	VerbosityDebug
)

// ParseVerbosity parses quiet, normal, verbose or debug.
func ParseVerbosity(s string) (Verbosity, error) {
	switch s {
	case "quiet":
		return VerbosityQuiet, nil
	case "", "normal":
		return VerbosityNormal, nil
	case "verbose":
		return VerbosityVerbose, nil
	case "debug":
		return VerbosityDebug, nil
	}
	return VerbosityNormal, fmt.Errorf("invalid logging verbosity: %s (must be 'quiet', 'normal', 'verbose', or 'debug')", s)
}

var (
	salmonPink = lipgloss.Color("#FFB3BA")
	mintGreen  = lipgloss.Color("#A8E6CF")
	amber      = lipgloss.Color("#FFD580")
	mutedGray  = lipgloss.Color("#6B7280")

	headerStyle  = lipgloss.NewStyle().Bold(true)
	stepStyle    = lipgloss.NewStyle().Foreground(salmonPink)
	successStyle = lipgloss.NewStyle().Foreground(mintGreen).Bold(true)
	warnStyle    = lipgloss.NewStyle().Foreground(amber)
	errorStyle   = lipgloss.NewStyle().Foreground(salmonPink).Bold(true)
	detailStyle  = lipgloss.NewStyle().Foreground(mutedGray)
)

// Reporter prints run progress to the console
type Reporter struct {
	level  Verbosity
	writer io.Writer
	plain  bool

	stepCount int
}

// NewReporter creates a reporter writing to stdout.
func NewReporter(level Verbosity) *Reporter {
	return &Reporter{level: level, writer: os.Stdout}
}

// SetOutput redirects output. Plain output drops styling and highlighting,
// for pipes and log files.
func (r *Reporter) SetOutput(w io.Writer, plain bool) {
	r.writer = w
	r.plain = plain
}

func (r *Reporter) render(style lipgloss.Style, s string) string {
	if r.plain {
		return s
	}
	return style.Render(s)
}

func (r *Reporter) println(style lipgloss.Style, s string) {
	fmt.Fprintln(r.writer, r.render(style, s))
}

// Header prints the scenario banner
func (r *Reporter) Header(name, description string) {
	if r.level < VerbosityNormal {
		return
	}
	rule := strings.Repeat("=", 70)
	fmt.Fprintln(r.writer)
	r.println(headerStyle, rule)
	r.println(headerStyle, "  Scenario: "+name)
	if description != "" {
		r.println(detailStyle, "  "+description)
	}
	r.println(headerStyle, rule)
	r.stepCount = 0
}

// Step prints a numbered step
func (r *Reporter) Step(message string) {
	if r.level < VerbosityNormal {
		return
	}
	r.stepCount++
	r.println(stepStyle, fmt.Sprintf("[%d] %s", r.stepCount, message))
}

// StepDone prints the timing of a completed step
func (r *Reporter) StepDone(d time.Duration) {
	if r.level < VerbosityVerbose {
		return
	}
	r.println(detailStyle, fmt.Sprintf("    done in %s", d.Round(time.Millisecond)))
}

// Successf prints a success message with checkmark
func (r *Reporter) Successf(format string, args ...interface{}) {
	if r.level < VerbosityNormal {
		return
	}
	r.println(successStyle, "✓ "+fmt.Sprintf(format, args...))
}

// Infof prints an informational message
func (r *Reporter) Infof(format string, args ...interface{}) {
	if r.level < VerbosityNormal {
		return
	}
	fmt.Fprintln(r.writer, fmt.Sprintf(format, args...))
}

// Warningf prints a warning message
func (r *Reporter) Warningf(format string, args ...interface{}) {
	r.println(warnStyle, "⚠ Warning: "+fmt.Sprintf(format, args...))
}

// Errorf prints an error message
func (r *Reporter) Errorf(format string, args ...interface{}) {
	r.println(errorStyle, "✗ Error: "+fmt.Sprintf(format, args...))
}

// Verbosef prints detailed information (only in verbose mode)
func (r *Reporter) Verbosef(format string, args ...interface{}) {
	if r.level < VerbosityVerbose {
		return
	}
	r.println(detailStyle, "→ "+fmt.Sprintf(format, args...))
}

// Debugf prints debug information (only in debug mode)
func (r *Reporter) Debugf(format string, args ...interface{}) {
	if r.level < VerbosityDebug {
		return
	}
	r.println(detailStyle, "[DEBUG] "+fmt.Sprintf(format, args...))
}

// Markup prints page markup, highlighted unless output is plain (only in
// debug mode).
func (r *Reporter) Markup(title, markup string) {
	if r.level < VerbosityDebug || markup == "" {
		return
	}
	r.println(detailStyle, "[DEBUG] "+title+":")
	if r.plain {
		fmt.Fprintln(r.writer, markup)
		return
	}
	if err := quick.Highlight(r.writer, markup+"\n", "html", "terminal256", "monokai"); err != nil {
		fmt.Fprintln(r.writer, markup)
	}
}

// Summary prints the final run summary
func (r *Reporter) Summary(result *Result) {
	rule := strings.Repeat("=", 70)
	fmt.Fprintln(r.writer)
	r.println(headerStyle, rule)
	r.println(headerStyle, "  VERIFICATION SUMMARY")
	r.println(headerStyle, rule)

	fmt.Fprint(r.writer, "  Status: ")
	switch result.Status {
	case StatusSucceeded:
		r.println(successStyle, "✓ SUCCEEDED")
	case StatusFailed:
		r.println(errorStyle, "✗ FAILED")
	default:
		fmt.Fprintln(r.writer, result.Status)
	}

	fmt.Fprintf(r.writer, "  Scenario: %s\n", result.Scenario)
	fmt.Fprintf(r.writer, "  Duration: %s\n", result.Duration.Round(time.Millisecond))
	fmt.Fprintf(r.writer, "  Steps: %d\n", len(result.Steps))

	if result.Artifact != "" {
		fmt.Fprintf(r.writer, "  Artifact: %s\n", result.Artifact)
	}
	if result.Error != "" {
		fmt.Fprintf(r.writer, "  Error: %s\n", r.render(errorStyle, result.Error))
	}
	if len(result.Diagnostics) > 0 {
		fmt.Fprintln(r.writer, "  Diagnostics:")
		for _, path := range result.Diagnostics {
			fmt.Fprintf(r.writer, "    • %s\n", path)
		}
	}
	if r.level >= VerbosityVerbose {
		for _, msg := range result.DiagnosticErrors {
			r.println(warnStyle, "    ⚠ "+msg)
		}
	}
	r.println(headerStyle, rule)
}
