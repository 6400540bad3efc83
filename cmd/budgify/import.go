package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/ArionMiles/budgify/internal/pipeline"
	"github.com/ArionMiles/budgify/pkg/api"
)

type importFlags struct {
	dir             string
	bank            string
	files           []string
	month           string
	includePayments bool
	manualFile      string
	sinks           []string
}

func newImportCommand(a *app) *cobra.Command {
	var f importFlags

	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import statement files and write every configured sink",
		Long: "Import loads the statements in the source directory (or the files given with --file), " +
			"categorizes them, merges them into the ledger and writes each sink in order.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			opts, err := f.options(a, cmd)
			if err != nil {
				return err
			}

			r, sinks, err := a.runner(cmd.Context(), f.sinks, nil)
			if err != nil {
				return err
			}
			defer sinks.Close()

			report, err := r.Run(cmd.Context(), opts)
			report.Print(cmd.OutOrStdout())
			if err != nil {
				return err
			}
			if err := report.SinkErr(); err != nil {
				return err
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&f.dir, "dir", "", "statement directory (defaults to source_dir)")
	cmd.Flags().StringVar(&f.bank, "bank", "", "loader to use for --file, skipping file name matching")
	cmd.Flags().StringSliceVar(&f.files, "file", nil, "statement file to import (repeatable)")
	cmd.Flags().StringVar(&f.month, "month", "", "only import rows from this month (YYYY-MM)")
	cmd.Flags().BoolVar(&f.includePayments, "include-payments", false, "keep card payment rows")
	cmd.Flags().StringVar(&f.manualFile, "manual-file", "", "manual transactions YAML file (defaults to manual_file)")
	cmd.Flags().StringSliceVar(&f.sinks, "sink", nil, "only write these sinks (repeatable)")
	cmd.MarkFlagsMutuallyExclusive("dir", "file")

	return cmd
}

func (f *importFlags) options(a *app, cmd *cobra.Command) (pipeline.Options, error) {
	opts := a.options()
	if f.dir != "" {
		opts.Dir = f.dir
	}
	if f.bank != "" && len(f.files) == 0 {
		return opts, errors.New("--bank requires --file")
	}
	if f.bank != "" {
		if _, err := a.registry.GetLoader(f.bank); err != nil {
			return opts, err
		}
	}
	for _, path := range f.files {
		opts.Files = append(opts.Files, pipeline.Input{Path: path, Loader: f.bank})
	}
	if cmd.Flags().Changed("include-payments") {
		opts.IncludePayments = f.includePayments
	}
	if f.manualFile != "" {
		opts.ManualFile = f.manualFile
	}
	if f.month != "" {
		p, err := parseMonth(f.month)
		if err != nil {
			return opts, err
		}
		opts.Month = p
	}
	return opts, nil
}

func parseMonth(s string) (api.Period, error) {
	t, err := time.Parse("2006-01", s)
	if err != nil {
		return api.Period{}, fmt.Errorf("invalid --month %q: want YYYY-MM", s)
	}
	return api.Period{Year: t.Year(), Month: int(t.Month())}, nil
}
