package pipeline

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/ArionMiles/budgify/pkg/api"
)

// FileResult is the outcome of loading one statement file.
type FileResult struct {
	Path   string `json:"path"`
	Loader string `json:"loader,omitempty"`
	// Loaded counts transactions kept from the file.
	Loaded int `json:"loaded"`
	// Payments counts payment rows the loader dropped.
	Payments int `json:"payments"`
	// OutOfPeriod counts transactions dropped by a month filter.
	OutOfPeriod int            `json:"out_of_period,omitempty"`
	RowErrors   []api.RowError `json:"row_errors,omitempty"`
	Err         error          `json:"-"`
	Error       string         `json:"error,omitempty"`
}

func (f *FileResult) fail(err error) {
	f.Err = err
	f.Error = err.Error()
}

// SinkResult is the outcome of writing one sink.
type SinkResult struct {
	Sink    string   `json:"sink"`
	Periods []string `json:"periods"`
	Err     error    `json:"-"`
	Error   string   `json:"error,omitempty"`
}

// Report summarizes one import run.
type Report struct {
	RunID     string        `json:"run_id"`
	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration_ns"`

	Files []FileResult `json:"files"`
	// Manual and Recurring count supplement entries joining the pool.
	Manual    int `json:"manual"`
	Recurring int `json:"recurring"`

	Loaded     int `json:"loaded"`
	Skipped    int `json:"skipped"`
	Duplicates int `json:"duplicates"`
	Added      int `json:"added"`
	LedgerSize int `json:"ledger_size"`

	Sinks []SinkResult `json:"sinks"`
}

// FailedFiles returns the files that could not be loaded.
func (r *Report) FailedFiles() []FileResult {
	var out []FileResult
	for _, f := range r.Files {
		if f.Err != nil {
			out = append(out, f)
		}
	}
	return out
}

// SinkErr joins the sink failures, or returns nil.
func (r *Report) SinkErr() error {
	var errs []error
	for _, s := range r.Sinks {
		if s.Err != nil {
			errs = append(errs, fmt.Errorf("sink %s: %w", s.Sink, s.Err))
		}
	}
	return errors.Join(errs...)
}

// Print writes a human readable report with one line per file error and
// row error.
func (r *Report) Print(w io.Writer) {
	fmt.Fprintf(w, "Run %s (%s)\n", r.RunID, r.Duration.Round(time.Millisecond))
	for _, f := range r.Files {
		if f.Err != nil {
			fmt.Fprintf(w, "  ✗ %s: %v\n", f.Path, f.Err)
			continue
		}
		fmt.Fprintf(w, "  ✓ %s [%s] loaded %d, payments %d", f.Path, f.Loader, f.Loaded, f.Payments)
		if f.OutOfPeriod > 0 {
			fmt.Fprintf(w, ", outside month %d", f.OutOfPeriod)
		}
		fmt.Fprintln(w)
		for _, re := range f.RowErrors {
			fmt.Fprintf(w, "      row %v\n", &re)
		}
	}
	if r.Manual > 0 || r.Recurring > 0 {
		fmt.Fprintf(w, "  manual %d, recurring %d\n", r.Manual, r.Recurring)
	}
	fmt.Fprintf(w, "Loaded %d, skipped %d, duplicates %d, added %d, ledger %d\n",
		r.Loaded, r.Skipped, r.Duplicates, r.Added, r.LedgerSize)
	for _, s := range r.Sinks {
		if s.Err != nil {
			fmt.Fprintf(w, "  ✗ sink %s: %v\n", s.Sink, s.Err)
		} else {
			fmt.Fprintf(w, "  ✓ sink %s %v\n", s.Sink, s.Periods)
		}
	}
}
