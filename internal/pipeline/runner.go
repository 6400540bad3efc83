// Package pipeline runs imports: it loads statement files, categorizes and
// merges the candidates into the ledger store, then writes every sink.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ArionMiles/budgify/internal/metrics"
	"github.com/ArionMiles/budgify/internal/plugins"
	"github.com/ArionMiles/budgify/pkg/api"
	"github.com/ArionMiles/budgify/pkg/categorize"
	"github.com/ArionMiles/budgify/pkg/entries"
	"github.com/ArionMiles/budgify/pkg/ledger"
)

// ErrAllFilesFailed is returned when at least one file was attempted and
// none could be loaded.
var ErrAllFilesFailed = errors.New("all statement files failed")

// Extensions lists the statement file extensions picked up from a directory.
var Extensions = []string{".csv", ".xlsx", ".xls"}

// Config wires a Runner.
type Config struct {
	Registry *plugins.Registry
	Rules    *categorize.RuleSet
	// Sinks are written in order after every merge.
	Sinks []api.Sink
	// Source is the ledger of record. Years touched by an import are read
	// from it again before every merge. Without one, sinks only receive
	// month scoped writes. Optional.
	Source api.LedgerSource
	// Store receives the merged ledger. A new empty store is used when nil.
	Store *ledger.Store
	// Loaders maps file name tokens to loader names.
	Loaders map[string]string
	Metrics *metrics.Metrics
}

// Runner executes import runs. Runs against the same store are serialized.
type Runner struct {
	registry *plugins.Registry
	rules    *categorize.RuleSet
	sinks    []api.Sink
	source   api.LedgerSource
	store    *ledger.Store
	loaders  map[string]string
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

// Input is one file to import. An empty Loader is resolved from the file name.
type Input struct {
	Path   string
	Loader string
}

// Options scope a single run.
type Options struct {
	// Files are imported as given. When empty, Dir is scanned.
	Files []Input
	Dir   string
	// Month restricts statement rows to one month. Zero means no filter.
	Month           api.Period
	IncludePayments bool
	ManualFile      string
	Recurring       []entries.Recurring
}

// New creates a runner.
func New(cfg Config, logger *slog.Logger) (*Runner, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Registry == nil {
		return nil, errors.New("pipeline: registry is required")
	}
	if cfg.Rules == nil {
		cfg.Rules = categorize.NewRuleSet()
	}
	if cfg.Store == nil {
		cfg.Store = ledger.NewStore(nil)
	}

	return &Runner{
		registry: cfg.Registry,
		rules:    cfg.Rules,
		sinks:    cfg.Sinks,
		source:   cfg.Source,
		store:    cfg.Store,
		loaders:  cfg.Loaders,
		metrics:  cfg.Metrics,
		logger:   logger,
	}, nil
}

// Store returns the ledger store the runner merges into.
func (r *Runner) Store() *ledger.Store {
	return r.store
}

// Discover lists the statement files directly inside dir, sorted by name.
// Hidden files and unknown extensions are ignored.
func Discover(dir string) ([]string, error) {
	des, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading source dir: %w", err)
	}
	var paths []string
	for _, e := range des {
		name := e.Name()
		if e.IsDir() || strings.HasPrefix(name, ".") {
			continue
		}
		if !slices.Contains(Extensions, strings.ToLower(filepath.Ext(name))) {
			continue
		}
		paths = append(paths, filepath.Join(dir, name))
	}
	slices.Sort(paths)
	return paths, nil
}

// Hydrate reads every year the ledger source holds into the store. Sources
// that cannot list years are skipped. It returns the ledger size.
func (r *Runner) Hydrate(ctx context.Context) (int, error) {
	lister, ok := r.source.(api.YearLister)
	if !ok {
		return r.store.Snapshot().Len(), nil
	}
	years, err := lister.Years(ctx)
	if err != nil {
		return 0, fmt.Errorf("listing ledger years: %w", err)
	}
	next, err := r.store.Update(func(cur *ledger.Ledger) (*ledger.Ledger, error) {
		return r.refresh(ctx, cur, years)
	})
	if err != nil {
		return 0, err
	}
	r.metrics.LedgerSize(next.Len())
	r.logger.Info("ledger hydrated", "years", years, "count", next.Len())
	return next.Len(), nil
}

// refresh re-reads years from the source and lays cur over them, so rows
// edited in the ledger of record win over the in-memory copy while rows
// only held in memory are kept. Must run inside Store.Update.
func (r *Runner) refresh(ctx context.Context, cur *ledger.Ledger, years []int) (*ledger.Ledger, error) {
	if r.source == nil || len(years) == 0 {
		return cur, nil
	}
	var persisted []api.Transaction
	for _, y := range years {
		rows, err := r.source.Load(ctx, api.Period{Year: y})
		if err != nil {
			return nil, fmt.Errorf("reading %d ledger: %w", y, err)
		}
		persisted = append(persisted, rows...)
	}
	base, _ := ledger.New(persisted...).Merge(cur.Transactions())
	return base, nil
}

// Run imports opts and writes the sinks. The returned report is never nil.
// The error is ErrAllFilesFailed, a supplement or ledger source error, or
// ctx's error; sink failures are only recorded in the report.
func (r *Runner) Run(ctx context.Context, opts Options) (*Report, error) {
	report := &Report{
		RunID:     uuid.NewString(),
		StartedAt: time.Now(),
	}
	ctx = api.WithRunID(ctx, report.RunID)
	logger := r.logger.With("run_id", report.RunID)
	defer func() {
		report.Duration = time.Since(report.StartedAt)
		r.metrics.Run(report.Duration, report.LedgerSize)
	}()

	inputs, err := r.inputs(opts)
	if err != nil {
		return report, err
	}
	logger.Info("import started", "files", len(inputs), "month", monthLabel(opts.Month))

	var candidates []api.Transaction
	for _, in := range inputs {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		res, txns := r.loadFile(in, opts, logger)
		report.Files = append(report.Files, res)
		report.Loaded += res.Loaded
		report.Skipped += res.Payments + len(res.RowErrors) + res.OutOfPeriod
		candidates = append(candidates, txns...)
	}

	if len(inputs) > 0 && len(report.FailedFiles()) == len(inputs) {
		return report, ErrAllFilesFailed
	}

	supplements, err := r.supplements(opts, report)
	if err != nil {
		return report, err
	}
	candidates = append(candidates, supplements...)
	candidates = r.rules.Apply(candidates)

	var stats ledger.MergeStats
	next, err := r.store.Update(func(cur *ledger.Ledger) (*ledger.Ledger, error) {
		base, err := r.refresh(ctx, cur, years(candidates))
		if err != nil {
			return nil, err
		}
		merged, st := base.Merge(base.Reconcile(candidates))
		stats = st
		return merged, nil
	})
	if err != nil {
		return report, err
	}
	report.Added = stats.Added
	report.Duplicates = stats.Duplicates
	report.LedgerSize = next.Len()
	r.metrics.Merge(stats.Added, stats.Duplicates)
	logger.Info("ledger merged", "added", stats.Added, "duplicates", stats.Duplicates, "count", next.Len())

	periods := targetPeriods(candidates, opts.Month, r.source != nil)
	if r.source == nil && opts.Month.Year == 0 && len(periods) > 0 {
		logger.Warn("no ledger source, writing touched months only", "periods", len(periods))
	}
	for _, sink := range r.sinks {
		report.Sinks = append(report.Sinks, r.writeSink(ctx, sink, next, periods, logger))
	}

	logger.Info("import finished",
		"loaded", report.Loaded,
		"skipped", report.Skipped,
		"added", report.Added,
		"failed_files", len(report.FailedFiles()),
	)
	return report, nil
}

func (r *Runner) inputs(opts Options) ([]Input, error) {
	if len(opts.Files) > 0 {
		return opts.Files, nil
	}
	if opts.Dir == "" {
		return nil, nil
	}
	paths, err := Discover(opts.Dir)
	if err != nil {
		return nil, err
	}
	inputs := make([]Input, 0, len(paths))
	for _, p := range paths {
		inputs = append(inputs, Input{Path: p})
	}
	return inputs, nil
}

func (r *Runner) loadFile(in Input, opts Options, logger *slog.Logger) (FileResult, []api.Transaction) {
	res := FileResult{Path: in.Path, Loader: in.Loader}
	defer func() {
		r.metrics.File(res.Loader, res.Err, len(res.RowErrors))
	}()

	if res.Loader == "" {
		name, err := r.registry.Match(in.Path, r.loaders)
		if err != nil {
			logger.Warn("skipping file", "file", in.Path, "error", err)
			res.fail(err)
			return res, nil
		}
		res.Loader = name
	}

	ld, err := r.registry.CreateLoader(res.Loader)
	if err != nil {
		res.fail(err)
		return res, nil
	}
	out, err := ld.Load(in.Path, opts.IncludePayments)
	if err != nil {
		logger.Error("loading file failed", "file", in.Path, "loader", res.Loader, "error", err)
		res.fail(err)
		return res, nil
	}

	txns := out.Transactions
	if opts.Month.Year != 0 {
		kept := txns[:0:0]
		for _, t := range txns {
			if opts.Month.Contains(t.Date) {
				kept = append(kept, t)
			}
		}
		res.OutOfPeriod = len(txns) - len(kept)
		txns = kept
	}
	res.Loaded = len(txns)
	res.Payments = out.Payments
	res.RowErrors = out.RowErrors

	for _, re := range out.RowErrors {
		logger.Warn("row skipped", "file", in.Path, "line", re.Line, "error", re.Err)
	}
	logger.Info("file loaded", "file", in.Path, "loader", res.Loader, "count", res.Loaded, "payments", res.Payments)
	return res, txns
}

func (r *Runner) supplements(opts Options, report *Report) ([]api.Transaction, error) {
	var out []api.Transaction
	if opts.ManualFile != "" {
		manual, err := entries.LoadManual(opts.ManualFile)
		if err != nil {
			return nil, err
		}
		report.Manual = len(manual)
		out = append(out, manual...)
	}
	if len(opts.Recurring) > 0 {
		recurring, err := entries.ExpandRecurring(opts.Recurring)
		if err != nil {
			return nil, err
		}
		report.Recurring = len(recurring)
		out = append(out, recurring...)
	}
	if opts.Month.Year != 0 {
		kept := out[:0]
		for _, t := range out {
			if opts.Month.Contains(t.Date) {
				kept = append(kept, t)
			}
		}
		out = kept
	}
	return out, nil
}

func (r *Runner) writeSink(ctx context.Context, sink api.Sink, l *ledger.Ledger, periods []api.Period, logger *slog.Logger) SinkResult {
	res := SinkResult{Sink: sink.Name()}
	for _, p := range periods {
		start := time.Now()
		err := sink.Append(ctx, l.Period(p), p)
		r.metrics.SinkWrite(sink.Name(), err, time.Since(start))
		if err != nil {
			logger.Error("sink write failed", "sink", sink.Name(), "period", p.Label(), "error", err)
			res.Err = fmt.Errorf("writing %s: %w", p.Label(), err)
			res.Error = res.Err.Error()
			return res
		}
		res.Periods = append(res.Periods, p.Label())
	}
	logger.Info("sink written", "sink", sink.Name(), "periods", res.Periods)
	return res
}

// targetPeriods returns the periods a run rewrites: the month of a month
// scoped run, otherwise every year the candidates touch. Without a ledger
// source the store cannot hold the whole year, so years are narrowed to the
// months the candidates touch. No candidates means no writes.
func targetPeriods(candidates []api.Transaction, month api.Period, whole bool) []api.Period {
	if len(candidates) == 0 {
		return nil
	}
	if month.Year != 0 {
		return []api.Period{month}
	}
	if !whole {
		var out []api.Period
		for _, t := range candidates {
			p := api.Period{Year: t.Date.Year, Month: int(t.Date.Month)}
			if !slices.Contains(out, p) {
				out = append(out, p)
			}
		}
		slices.SortFunc(out, func(a, b api.Period) int {
			if a.Year != b.Year {
				return a.Year - b.Year
			}
			return a.Month - b.Month
		})
		return out
	}
	ys := years(candidates)
	out := make([]api.Period, 0, len(ys))
	for _, y := range ys {
		out = append(out, api.Period{Year: y})
	}
	return out
}

func years(txns []api.Transaction) []int {
	var ys []int
	for _, t := range txns {
		if !slices.Contains(ys, t.Date.Year) {
			ys = append(ys, t.Date.Year)
		}
	}
	slices.Sort(ys)
	return ys
}

func monthLabel(p api.Period) string {
	if p.Year == 0 {
		return ""
	}
	return p.Label()
}
