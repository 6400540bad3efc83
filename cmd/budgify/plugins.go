package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newPluginsCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:         "plugins",
		Short:       "List the registered loaders and sinks",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{"skip_config": "true"},
		RunE: func(cmd *cobra.Command, _ []string) error {
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			defer w.Flush()

			fmt.Fprintln(w, "LOADER\tDESCRIPTION")
			for _, p := range a.registry.ListLoaders() {
				fmt.Fprintf(w, "%s\t%s\n", p.Name(), p.Description())
			}
			fmt.Fprintln(w)
			fmt.Fprintln(w, "SINK\tDESCRIPTION\tSCOPES")
			for _, p := range a.registry.ListSinks() {
				fmt.Fprintf(w, "%s\t%s\t%s\n", p.Name(), p.Description(), strings.Join(p.RequiredScopes(), ","))
			}
			return nil
		},
	}
}
