package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/ArionMiles/budgify/internal/pipeline"
	"github.com/ArionMiles/budgify/internal/plugins"
	"github.com/ArionMiles/budgify/pkg/client"
	"github.com/ArionMiles/budgify/pkg/entries"
)

func newStatusCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:         "status",
		Short:       "Check the configuration, statements, rules and sinks",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{"skip_config": "true"},
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !a.runStatus(cmd) {
				return errors.New("configuration issues detected")
			}
			return nil
		},
	}
}

// runStatus prints one line per check and reports whether all passed.
func (a *app) runStatus(cmd *cobra.Command) bool {
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "=== Budgify Status ===")
	fmt.Fprintln(out)

	allGood := true
	fail := func(format string, args ...any) {
		fmt.Fprintf(out, "✗ "+format+"\n", args...)
		allGood = false
	}

	fmt.Fprintf(out, "Config (%s): ", a.configPath)
	if err := a.load(cmd); err != nil {
		fail("%v", err)
		printFinalStatus(out, false)
		return false
	}
	if a.cfg.Path == "" {
		fmt.Fprintln(out, "⚠ Not found, using defaults")
	} else {
		fmt.Fprintln(out, "✓ Loaded")
	}

	a.checkStatements(out, fail)

	fmt.Fprintf(out, "Category rules: ")
	if n := len(a.cfg.Rules.Rules()); n == 0 {
		fmt.Fprintln(out, "⚠ None, everything will be uncategorized")
	} else {
		fmt.Fprintf(out, "✓ %d categories\n", n)
	}

	if path := a.cfg.ManualPath(); path != "" {
		fmt.Fprintf(out, "Manual entries (%s): ", path)
		if txns, err := entries.LoadManual(path); err != nil {
			fail("%v", err)
		} else {
			fmt.Fprintf(out, "✓ %d entries\n", len(txns))
		}
	}
	if len(a.cfg.Recurring) > 0 {
		fmt.Fprint(out, "Recurring schedules: ")
		if txns, err := entries.ExpandRecurring(a.cfg.Recurring); err != nil {
			fail("%v", err)
		} else {
			fmt.Fprintf(out, "✓ %d schedules, %d occurrences\n", len(a.cfg.Recurring), len(txns))
		}
	}

	a.checkSinks(cmd.Context(), out, fail)

	printFinalStatus(out, allGood)
	return allGood
}

func (a *app) checkStatements(out io.Writer, fail func(string, ...any)) {
	fmt.Fprintf(out, "Source dir (%s): ", a.cfg.SourceDir)
	paths, err := pipeline.Discover(a.cfg.SourceDir)
	if err != nil {
		fail("%v", err)
		return
	}
	fmt.Fprintf(out, "✓ %d statement files\n", len(paths))
	for _, p := range paths {
		name, err := a.registry.Match(p, a.cfg.Loaders)
		switch {
		case errors.Is(err, plugins.ErrNoLoader):
			fmt.Fprintf(out, "  ⚠ %s: no loader matches\n", p)
		case err != nil:
			fmt.Fprint(out, "  ")
			fail("%s: %v", p, err)
		default:
			fmt.Fprintf(out, "  ✓ %s → %s\n", p, name)
		}
	}
}

func (a *app) checkSinks(ctx context.Context, out io.Writer, fail func(string, ...any)) {
	names := a.cfg.SinkNames()
	scopes, err := a.registry.Scopes(names...)
	if err != nil {
		fmt.Fprint(out, "Sinks: ")
		fail("%v", err)
		return
	}
	if len(scopes) > 0 {
		a.checkGoogle(out, fail)
	}

	fmt.Fprintln(out)
	fmt.Fprintln(out, "Sinks:")
	for _, name := range names {
		fmt.Fprintf(out, "  %s: ", name)
		sinks, err := pipeline.OpenSinks(ctx, a.registry, a.cfg, pipeline.OpenOptions{Only: []string{name}}, a.logger)
		if err != nil {
			fail("%v", err)
			continue
		}
		readable := sinks.Source != nil
		if err := sinks.Close(); err != nil {
			fail("%v", err)
			continue
		}
		if readable {
			fmt.Fprintln(out, "✓ Ready (ledger source)")
		} else {
			fmt.Fprintln(out, "✓ Ready")
		}
	}
}

func (a *app) checkGoogle(out io.Writer, fail func(string, ...any)) {
	fmt.Fprintf(out, "Google credentials (%s): ", a.cfg.Google.CredentialsFile)
	if _, err := os.Stat(a.cfg.Google.CredentialsFile); err != nil {
		fail("Not found")
		return
	}
	fmt.Fprintln(out, "✓ Found")

	fmt.Fprintf(out, "OAuth token (%s): ", a.cfg.Google.TokenFile)
	tok, err := client.TokenFromFile(a.cfg.Google.TokenFile)
	switch {
	case errors.Is(err, os.ErrNotExist):
		fmt.Fprintln(out, "⚠ Not found (fine for service accounts; otherwise run an import to authenticate)")
	case err != nil:
		fail("%v", err)
	case tok.Expiry.Before(time.Now()):
		fmt.Fprintln(out, "⚠ Expired (will refresh on next run)")
	default:
		fmt.Fprintf(out, "✓ Valid (expires: %s)\n", tok.Expiry.Format(time.RFC3339))
	}
}

func printFinalStatus(out io.Writer, allGood bool) {
	fmt.Fprintln(out)
	if allGood {
		fmt.Fprintln(out, "Status: ✓ Ready to run")
		fmt.Fprintln(out)
		fmt.Fprintln(out, "Run 'budgify import' to import statements.")
	} else {
		fmt.Fprintln(out, "Status: ✗ Configuration issues detected")
		fmt.Fprintln(out)
		fmt.Fprintln(out, "Fix the issues above, then run 'budgify status' again.")
	}
}
