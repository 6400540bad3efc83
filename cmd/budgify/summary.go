package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/ArionMiles/budgify/pkg/aggregate"
	"github.com/ArionMiles/budgify/pkg/api"
)

func newSummaryCommand(a *app) *cobra.Command {
	var (
		params aggregate.Params
		period string
		top    int
	)

	cmd := &cobra.Command{
		Use:       "summary overview|category|period|merchant",
		Short:     "Summarize the persisted ledger",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"overview", "category", "period", "merchant"},
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cobra.OnlyValidArgs(cmd, args); err != nil {
				return err
			}
			f, err := params.Filter()
			if err != nil {
				return err
			}

			r, sinks, err := a.hydrated(cmd.Context(), nil)
			if err != nil {
				return err
			}
			defer sinks.Close()

			txns, err := aggregate.Select(r.Store().Snapshot().Transactions(), f)
			if err != nil {
				return err
			}
			return printSummary(cmd.OutOrStdout(), args[0], txns, period, top)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&params.StartDate, "start", "", "first date, YYYY-MM-DD")
	flags.StringVar(&params.EndDate, "end", "", "last date, YYYY-MM-DD")
	flags.StringVar(&params.Category, "category", "", "only this category")
	flags.StringSliceVar(&params.ExcludeCategories, "exclude-category", nil, "drop these categories (repeatable)")
	flags.StringVar(&params.Merchant, "merchant", "", "merchant or description substring")
	flags.StringVar(&params.MerchantRegex, "merchant-regex", "", "merchant or description regular expression")
	flags.StringVar(&params.MinAmount, "min", "", "minimum amount")
	flags.StringVar(&params.MaxAmount, "max", "", "maximum amount")
	flags.StringVar(&params.Provider, "provider", "", "only this provider")
	flags.StringVar(&period, "period", string(aggregate.Month), "period granularity: day, week, month, quarter or year")
	flags.IntVar(&top, "top", 15, "merchants to show, 0 for all")

	return cmd
}

func printSummary(out io.Writer, kind string, txns []api.Transaction, period string, top int) error {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	defer w.Flush()

	switch kind {
	case "overview":
		o := aggregate.ComputeOverview(txns)
		fmt.Fprintf(w, "Total\t%s\n", money(o.Total))
		fmt.Fprintf(w, "Count\t%d\n", o.Count)
		if o.Mean != nil {
			fmt.Fprintf(w, "Average\t%s\n", money(*o.Mean))
			fmt.Fprintf(w, "First\t%s\n", o.Earliest)
			fmt.Fprintf(w, "Last\t%s\n", o.Latest)
		}
	case "category":
		fmt.Fprintln(w, "CATEGORY\tTOTAL\tCOUNT")
		for _, g := range aggregate.ByCategory(txns) {
			fmt.Fprintf(w, "%s\t%s\t%d\n", g.Key, money(g.Total), g.Count)
		}
	case "merchant":
		fmt.Fprintln(w, "MERCHANT\tTOTAL\tCOUNT")
		for _, g := range aggregate.ByMerchant(txns, top) {
			fmt.Fprintf(w, "%s\t%s\t%d\n", g.Key, money(g.Total), g.Count)
		}
	case "period":
		g, err := aggregate.ParseGranularity(period)
		if err != nil {
			return err
		}
		periods, err := aggregate.ByPeriod(txns, g)
		if err != nil {
			return err
		}
		fmt.Fprintln(w, "PERIOD\tTOTAL\tCOUNT")
		for _, p := range periods {
			fmt.Fprintf(w, "%s\t%s\t%d\n", p.Period, money(p.Total), p.Count)
		}
	default:
		return fmt.Errorf("unknown summary %q", kind)
	}
	return nil
}

func money(d decimal.Decimal) string {
	return aggregate.Round2(d).StringFixed(2)
}
