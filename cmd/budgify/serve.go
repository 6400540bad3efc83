package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/ArionMiles/budgify/internal/metrics"
	"github.com/ArionMiles/budgify/internal/pipeline"
	"github.com/ArionMiles/budgify/internal/server"
)

func newServeCommand(a *app) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the dashboard API over the persisted ledger",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if addr != "" {
				a.cfg.Server.Addr = addr
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return a.serve(ctx)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (defaults to server.addr)")
	return cmd
}

func (a *app) serve(ctx context.Context) error {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	r, sinks, err := a.runner(ctx, nil, m)
	if err != nil {
		return err
	}
	defer sinks.Close()

	n, err := r.Hydrate(ctx)
	if err != nil {
		return err
	}
	a.logger.Info("ledger loaded", "count", n)

	srv := server.New(r.Store(), server.Config{
		Addr:              a.cfg.Server.Addr,
		Password:          a.cfg.Server.Password,
		ExcludeCategories: a.cfg.Server.ExcludeCategories,
		Metrics:           m,
		Import: func(ctx context.Context) (*pipeline.Report, error) {
			return r.Run(ctx, a.options())
		},
	}, a.logger.With("component", "server"))
	return srv.Start(ctx)
}
