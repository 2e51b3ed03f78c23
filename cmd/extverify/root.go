package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/entrhq/extverify/pkg/browser"
	"github.com/entrhq/extverify/pkg/logging"
	"github.com/entrhq/extverify/pkg/scenario"
)

const envPrefix = "EXTVERIFY"

// providerFunc opens the session provider of one invocation and returns the
// function that shuts it down.
type providerFunc func(cfg *scenario.RunConfig, logger *logging.Logger) (scenario.SessionProvider, func() error, error)

// app carries the state of one CLI invocation
type app struct {
	v       *viper.Viper
	cfgFile string
	noColor bool
	config  *scenario.RunConfig

	openProvider providerFunc
	openLogger   func(cfg *scenario.RunConfig) *logging.Logger
}

func newApp() *app {
	return &app{
		v:            viper.New(),
		openProvider: openSessionManager,
		openLogger:   openFileLogger,
	}
}

// command builds the root command with all subcommands attached.
func (a *app) command() *cobra.Command {
	root := &cobra.Command{
		Use:   "extverify",
		Short: "Verify a browser extension's UI in a real Chromium",
		Long: `extverify launches Chromium with an unpacked extension, runs a verification
scenario against it and saves a screenshot as evidence. When a step fails the
page screenshot, its markup and the extension's shadow markup are saved next
to the evidence and the command exits with status 1.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.loadConfig()
		},
	}
	root.SetVersionTemplate("{{printf \"extverify %s\\n\" .Version}}")

	flags := root.PersistentFlags()
	flags.StringVarP(&a.cfgFile, "config", "c", "", "config file (default is ./extverify.yaml)")
	flags.BoolVar(&a.noColor, "no-color", false, "disable styled output")

	flags.StringP("extension", "e", "", "path to the unpacked extension directory")
	flags.Bool("headless", true, "run the browser without a window")
	flags.String("profile-dir", "", "browser profile directory (default: fresh per run)")
	flags.String("channel", "", "browser channel (chromium, chrome, msedge)")
	flags.Duration("slow-mo", 0, "delay every browser operation, for watching headed runs")

	flags.StringP("output", "o", "", "directory for evidence and summaries")
	flags.String("diagnostics-dir", "", "directory for failure diagnostics (default: output directory)")
	flags.Duration("resolve-timeout", 0, "default wait for elements")
	flags.Duration("dialog-timeout", 0, "wait for a dialog after the click that raises it")
	flags.Duration("navigation-timeout", 0, "wait for page loads")
	flags.Int("retries", 0, "extra navigation attempts")
	flags.Bool("pdf", false, "bundle screenshots into evidence.pdf")

	flags.StringP("verbosity", "v", "", "console output: quiet, normal, verbose, debug")
	flags.String("log-level", "", "file log level: debug, info, warn, error")
	flags.String("log-dir", "", "log directory (default ~/.extverify/logs)")

	for key, flag := range flagKeys {
		_ = a.v.BindPFlag(key, flags.Lookup(flag))
	}

	root.AddCommand(
		a.bookmarksCommand(),
		a.foldersCommand(),
		a.runCommand(),
		a.listCommand(),
		a.validateCommand(),
		versionCommand(),
	)

	return root
}

// flagKeys maps configuration keys to the flags that override them
var flagKeys = map[string]string{
	"browser.extension_path": "extension",
	"browser.headless":       "headless",
	"browser.profile_dir":    "profile-dir",
	"browser.channel":        "channel",
	"browser.slow_mo":        "slow-mo",
	"output_dir":             "output",
	"diagnostics_dir":        "diagnostics-dir",
	"timeouts.resolve":       "resolve-timeout",
	"timeouts.dialog":        "dialog-timeout",
	"timeouts.navigation":    "navigation-timeout",
	"navigation_retries":     "retries",
	"artifacts.pdf":          "pdf",
	"logging.verbosity":      "verbosity",
	"logging.level":          "log-level",
	"logging.dir":            "log-dir",
}

// setDefaults registers every configuration key, so that environment
// variables reach keys that no file sets.
func setDefaults(v *viper.Viper) {
	d := scenario.DefaultRunConfig()

	v.SetDefault("browser.extension_path", d.Browser.ExtensionPath)
	v.SetDefault("browser.headless", d.Browser.Headless)
	v.SetDefault("browser.profile_dir", d.Browser.ProfileDir)
	v.SetDefault("browser.channel", d.Browser.Channel)
	v.SetDefault("browser.default_timeout", d.Browser.DefaultTimeout)
	v.SetDefault("browser.slow_mo", d.Browser.SlowMo)
	v.SetDefault("browser.args", []string{})

	v.SetDefault("output_dir", d.OutputDir)
	v.SetDefault("diagnostics_dir", d.DiagnosticsDir)
	v.SetDefault("timeouts.resolve", d.Timeouts.Resolve)
	v.SetDefault("timeouts.dialog", d.Timeouts.Dialog)
	v.SetDefault("timeouts.navigation", d.Timeouts.Navigation)
	v.SetDefault("navigation_retries", d.NavigationRetries)
	v.SetDefault("retry_delay", d.RetryDelay)

	v.SetDefault("artifacts.summary", d.Artifacts.Summary)
	v.SetDefault("artifacts.pdf", d.Artifacts.PDF)
	v.SetDefault("artifacts.outline", d.Artifacts.Outline)

	v.SetDefault("logging.verbosity", d.Logging.Verbosity)
	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.dir", d.Logging.Dir)
}

// loadConfig merges defaults, the config file, EXTVERIFY_* variables and
// flags, in increasing precedence.
func (a *app) loadConfig() error {
	v := a.v
	setDefaults(v)

	if a.cfgFile != "" {
		v.SetConfigFile(a.cfgFile)
	} else {
		v.AddConfigPath(".")
		v.SetConfigName("extverify")
		v.SetConfigType("yaml")
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg scenario.RunConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	a.config = &cfg
	return nil
}

// plainOutput reports whether w should receive unstyled output.
func (a *app) plainOutput(w io.Writer) bool {
	if a.noColor || os.Getenv("NO_COLOR") != "" {
		return true
	}
	f, ok := w.(*os.File)
	if !ok {
		return true
	}
	return !isatty.IsTerminal(f.Fd()) && !isatty.IsCygwinTerminal(f.Fd())
}

func openFileLogger(cfg *scenario.RunConfig) *logging.Logger {
	if cfg.Logging.Dir != "" {
		logging.SetDirectory(cfg.Logging.Dir)
	}

	// On error the logger falls back to stderr
	logger, _ := logging.NewLogger("extverify")
	if level, err := logging.ParseLevel(cfg.Logging.Level); err == nil {
		logger.SetLevel(level)
	}
	return logger
}

// openSessionManager starts Playwright. PLAYWRIGHT_PREINSTALLED skips the
// driver and browser download.
func openSessionManager(cfg *scenario.RunConfig, logger *logging.Logger) (scenario.SessionProvider, func() error, error) {
	manager := browser.NewSessionManager()
	manager.SetLogger(logger.With("browser"))
	manager.SetSkipInstall(os.Getenv("PLAYWRIGHT_PREINSTALLED") != "")

	if err := manager.Initialize(); err != nil {
		return nil, nil, err
	}
	return manager, manager.Shutdown, nil
}
