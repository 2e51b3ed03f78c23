package scenario

import (
	"fmt"
	"time"

	"github.com/entrhq/extverify/pkg/browser"
)

// RunConfig represents the configuration for verification runs
type RunConfig struct {
	// Browser session settings (extension, headless, profile)
	Browser browser.Config `yaml:"browser" json:"browser" mapstructure:"browser"`

	// OutputDir receives summaries and screenshots with relative paths
	OutputDir string `yaml:"output_dir" json:"output_dir" mapstructure:"output_dir"`

	// DiagnosticsDir receives failure artifacts (defaults to OutputDir)
	DiagnosticsDir string `yaml:"diagnostics_dir" json:"diagnostics_dir" mapstructure:"diagnostics_dir"`

	// Per-wait budgets
	Timeouts TimeoutConfig `yaml:"timeouts" json:"timeouts" mapstructure:"timeouts"`

	// NavigationRetries is the number of extra navigation attempts; 0 disables retrying
	NavigationRetries int           `yaml:"navigation_retries" json:"navigation_retries" mapstructure:"navigation_retries"`
	RetryDelay        time.Duration `yaml:"retry_delay" json:"retry_delay" mapstructure:"retry_delay"`

	// Artifacts configuration
	Artifacts ArtifactConfig `yaml:"artifacts" json:"artifacts" mapstructure:"artifacts"`

	// Logging configuration
	Logging LoggingConfig `yaml:"logging" json:"logging" mapstructure:"logging"`
}

// TimeoutConfig holds the default budgets of steps that do not set their own
type TimeoutConfig struct {
	Resolve    time.Duration `yaml:"resolve" json:"resolve" mapstructure:"resolve"`
	Dialog     time.Duration `yaml:"dialog" json:"dialog" mapstructure:"dialog"`
	Navigation time.Duration `yaml:"navigation" json:"navigation" mapstructure:"navigation"`
}

// ArtifactConfig defines which run artifacts are generated
type ArtifactConfig struct {
	// Summary writes summary.json and summary.md after every run
	Summary bool `yaml:"summary" json:"summary" mapstructure:"summary"`

	// PDF bundles the PNG artifacts of a run into evidence.pdf
	PDF bool `yaml:"pdf" json:"pdf" mapstructure:"pdf"`

	// Outline writes a cleaned DOM outline next to the raw page markup on failure
	Outline bool `yaml:"outline" json:"outline" mapstructure:"outline"`
}

// LoggingConfig defines logging configuration
type LoggingConfig struct {
	// Verbosity controls console output: quiet, normal, verbose, debug
	Verbosity string `yaml:"verbosity" json:"verbosity" mapstructure:"verbosity"`

	// Level is the file log threshold: debug, info, warn, error
	Level string `yaml:"level" json:"level" mapstructure:"level"`

	// Dir overrides the log directory (default ~/.extverify/logs)
	Dir string `yaml:"dir" json:"dir" mapstructure:"dir"`
}

// Validate validates the configuration and fills in derived defaults.
func (c *RunConfig) Validate() error {
	if c.OutputDir == "" {
		return fmt.Errorf("output directory is required")
	}
	if c.DiagnosticsDir == "" {
		c.DiagnosticsDir = c.OutputDir
	}

	if c.Timeouts.Resolve < 0 || c.Timeouts.Dialog < 0 || c.Timeouts.Navigation < 0 {
		return fmt.Errorf("timeouts cannot be negative")
	}
	if c.NavigationRetries < 0 {
		return fmt.Errorf("navigation_retries cannot be negative")
	}
	if c.RetryDelay < 0 {
		return fmt.Errorf("retry_delay cannot be negative")
	}
	if c.Browser.DefaultTimeout < 0 {
		return fmt.Errorf("browser default_timeout cannot be negative")
	}

	if c.Logging.Verbosity == "" {
		c.Logging.Verbosity = "normal"
	}
	if _, err := ParseVerbosity(c.Logging.Verbosity); err != nil {
		return err
	}

	return nil
}

// DefaultRunConfig returns a configuration suitable for most runs
func DefaultRunConfig() *RunConfig {
	return &RunConfig{
		Browser: browser.Config{
			Headless:       true,
			DefaultTimeout: browser.DefaultTimeout,
		},
		OutputDir: "verification",
		Timeouts: TimeoutConfig{
			Resolve:    browser.DefaultResolveTimeout,
			Dialog:     browser.DefaultDialogTimeout,
			Navigation: 60 * time.Second,
		},
		RetryDelay: 2 * time.Second,
		Artifacts: ArtifactConfig{
			Summary: true,
			Outline: true,
		},
		Logging: LoggingConfig{
			Verbosity: "normal",
			Level:     "info",
		},
	}
}
