package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/entrhq/extverify/pkg/scenario"
	"github.com/entrhq/extverify/pkg/scenario/builtin"
)

func (a *app) bookmarksCommand() *cobra.Command {
	var opts builtin.BookmarksOptions

	cmd := &cobra.Command{
		Use:   "bookmarks",
		Short: "Verify the bookmarks bubble opens the bookmarks panel",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runScenario(cmd, builtin.Bookmarks(opts))
		},
	}

	cmd.Flags().StringVar(&opts.URL, "url", builtin.DefaultBookmarksURL, "page the content script runs on")
	cmd.Flags().DurationVar(&opts.Settle, "settle", builtin.DefaultSettle, "wait after load for the injected UI (0 disables)")
	cmd.Flags().DurationVar(&opts.HostTimeout, "host-timeout", 10*time.Second, "wait for the sidebar host to attach")
	cmd.Flags().StringVar(&opts.Evidence, "evidence", builtin.DefaultEvidence, "screenshot path, relative to the output directory")

	return cmd
}

func (a *app) foldersCommand() *cobra.Command {
	var opts builtin.FoldersOptions

	cmd := &cobra.Command{
		Use:   "folders",
		Short: "Verify folder and subfolder creation on the options page",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runScenario(cmd, builtin.Folders(opts))
		},
	}

	cmd.Flags().StringVar(&opts.URL, "url", builtin.DefaultOptionsURL, "options page showing the history view")
	cmd.Flags().StringVar(&opts.Folder, "folder", "My Test Folder", "name typed into the folder prompt")
	cmd.Flags().StringVar(&opts.Subfolder, "subfolder", "My Subfolder", "name typed into the subfolder prompt")
	cmd.Flags().StringVar(&opts.Indent, "indent", "12px", "expected padding-left of the subfolder label")
	cmd.Flags().StringVar(&opts.Evidence, "evidence", builtin.DefaultEvidence, "screenshot path, relative to the output directory")

	return cmd
}

func (a *app) runCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "run <scenario.yaml>",
		Short: "Run a scenario defined in YAML",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sc, err := scenario.LoadFile(args[0])
			if err != nil {
				return err
			}
			return a.runScenario(cmd, sc)
		},
	}
}

func (a *app) listCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the built-in scenarios",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			for _, name := range builtin.Names() {
				sc, err := builtin.Lookup(name)
				if err != nil {
					return err
				}
				fmt.Fprintf(w, "%s\t%d steps\t%s\n", sc.Name, len(sc.Steps), sc.Description)
			}
			return w.Flush()
		},
	}
}

func (a *app) validateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <scenario.yaml>...",
		Short: "Check scenario files without starting a browser",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			failed := 0
			for _, path := range args {
				sc, err := scenario.LoadFile(path)
				if err != nil {
					failed++
					fmt.Fprintf(cmd.ErrOrStderr(), "✗ %s: %v\n", path, err)
					continue
				}
				fmt.Fprintf(cmd.OutOrStdout(), "✓ %s: %s (%d steps)\n", path, sc.Name, len(sc.Steps))
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d scenario files are invalid", failed, len(args))
			}
			return nil
		},
	}
}

func versionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		// The version needs no configuration
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "extverify %s\n", version)
		},
	}
}

// runScenario runs sc in a fresh session and reports the outcome. A failed
// verification is returned as an error so the process exits with status 1.
func (a *app) runScenario(cmd *cobra.Command, sc *scenario.Scenario) error {
	logger := a.openLogger(a.config)
	defer logger.Close()

	out := cmd.OutOrStdout()

	provider, shutdown, err := a.openProvider(a.config, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := shutdown(); err != nil {
			logger.Warnf("Shutting down the browser driver failed: %v", err)
		}
	}()

	runner, err := scenario.NewRunner(provider, a.config)
	if err != nil {
		return err
	}
	runner.SetLogger(logger.With("runner"))
	runner.Reporter().SetOutput(out, a.plainOutput(out))

	result, err := runner.Run(cmd.Context(), sc)
	if err != nil {
		if result != nil && len(result.Diagnostics) > 0 {
			fmt.Fprintf(cmd.ErrOrStderr(), "Diagnostics saved to %s\n", a.config.DiagnosticsDir)
		}
		if path := logger.LogPath(); path != "" {
			fmt.Fprintf(cmd.ErrOrStderr(), "Log: %s\n", path)
		}
		return fmt.Errorf("verification %s failed: %w", sc.Name, err)
	}
	return nil
}
