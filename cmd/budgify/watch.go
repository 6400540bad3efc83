package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"slices"
	"strings"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/ArionMiles/budgify/internal/pipeline"
)

func newWatchCommand(a *app) *cobra.Command {
	var interval time.Duration

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Import now and again whenever statements change in the source dir",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			r, sinks, err := a.runner(ctx, nil, nil)
			if err != nil {
				return err
			}
			defer sinks.Close()

			watcher, err := fsnotify.NewWatcher()
			if err != nil {
				return fmt.Errorf("creating watcher: %w", err)
			}
			defer watcher.Close()
			if err := watcher.Add(a.cfg.SourceDir); err != nil {
				return fmt.Errorf("watching %s: %w", a.cfg.SourceDir, err)
			}

			out := cmd.OutOrStdout()
			importOnce := func() {
				report, err := r.Run(ctx, a.options())
				report.Print(out)
				if err != nil && !errors.Is(err, context.Canceled) {
					a.logger.Error("import failed", "error", err)
				}
			}

			importOnce()
			a.logger.Info("watching for statements", "dir", a.cfg.SourceDir, "interval", interval)
			return debounce(ctx, watcher.Events, watcher.Errors, interval, a.logger, importOnce)
		},
	}
	cmd.Flags().DurationVar(&interval, "interval", 2*time.Second, "quiet period after the last change before importing")
	return cmd
}

// debounce calls fn once events have been quiet for interval. Only changes
// to statement files count. It returns when ctx is done or a channel closes.
func debounce(ctx context.Context, events <-chan fsnotify.Event, errs <-chan error, interval time.Duration, logger *slog.Logger, fn func()) error {
	if logger == nil {
		logger = slog.Default()
	}
	timer := time.NewTimer(interval)
	timer.Stop()

	for {
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			if !relevant(ev) {
				continue
			}
			logger.Debug("statement changed", "file", ev.Name, "op", ev.Op.String())
			timer.Reset(interval)
		case err, ok := <-errs:
			if !ok {
				return nil
			}
			logger.Warn("watcher error", "error", err)
		case <-timer.C:
			fn()
		}
	}
}

func relevant(ev fsnotify.Event) bool {
	if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Rename) {
		return false
	}
	name := filepath.Base(ev.Name)
	if strings.HasPrefix(name, ".") {
		return false
	}
	return slices.Contains(pipeline.Extensions, strings.ToLower(filepath.Ext(name)))
}

