package main

import (
	"context"

	"github.com/ArionMiles/budgify/internal/metrics"
	"github.com/ArionMiles/budgify/internal/pipeline"
)

// readableSinks returns the sinks to open when only the ledger is needed:
// the configured ledger source, or every sink that needs no Google client.
func (a *app) readableSinks() []string {
	if a.cfg.LedgerSource != "" {
		return []string{a.cfg.LedgerSource}
	}
	var names []string
	for _, name := range a.cfg.SinkNames() {
		p, err := a.registry.GetSink(name)
		if err != nil || len(p.RequiredScopes()) > 0 {
			continue
		}
		names = append(names, name)
	}
	return names
}

// hydrated builds a runner over the readable sinks and loads the persisted
// ledger into its store.
func (a *app) hydrated(ctx context.Context, m *metrics.Metrics) (*pipeline.Runner, *pipeline.Sinks, error) {
	r, sinks, err := a.runner(ctx, a.readableSinks(), m)
	if err != nil {
		return nil, nil, err
	}
	if _, err := r.Hydrate(ctx); err != nil {
		sinks.Close()
		return nil, nil, err
	}
	return r, sinks, nil
}
