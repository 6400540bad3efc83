// Package sheets implements a sink that writes the yearly ledger to a Google
// Spreadsheet with Summary, AllData and month tabs.
package sheets

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"sync"
	"time"

	"github.com/avast/retry-go"
	"golang.org/x/time/rate"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"github.com/ArionMiles/budgify/pkg/api"
	"github.com/ArionMiles/budgify/pkg/writer"
	"github.com/ArionMiles/budgify/pkg/writer/batch"
)

// Name is the sink key.
const Name = "sheets"

// Default configuration values.
const (
	DefaultBatchSize       = 500
	DefaultWritesPerMinute = 60
	DefaultRetryDelay      = 60 * time.Second
	DefaultRetryAttempts   = 3
)

// Config holds configuration for the Sheets sink.
type Config struct {
	// SpreadsheetID is an existing spreadsheet to write to. When empty a
	// spreadsheet titled "Budget <year>" is created per year.
	SpreadsheetID string
	// Title overrides the title of created spreadsheets. %d is the year.
	Title string
	// BatchSize is the number of rows sent per values update.
	BatchSize int
	// WritesPerMinute caps API write calls.
	WritesPerMinute int
	// RetryDelay is the wait before retrying a rate limited call.
	RetryDelay time.Duration
	// RetryAttempts is the number of tries per call.
	RetryAttempts uint
}

// Writer writes the ledger to Google Sheets.
type Writer struct {
	client  *sheets.Service
	config  Config
	limiter *rate.Limiter
	logger  *slog.Logger

	mu  sync.Mutex
	ids map[int]string
}

// New creates a new Sheets writer. Extra client options are appended after
// the HTTP client, so tests can point the service at a fake endpoint.
func New(ctx context.Context, httpClient *http.Client, cfg Config, logger *slog.Logger, opts ...option.ClientOption) (*Writer, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	if cfg.WritesPerMinute <= 0 {
		cfg.WritesPerMinute = DefaultWritesPerMinute
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = DefaultRetryDelay
	}
	if cfg.RetryAttempts == 0 {
		cfg.RetryAttempts = DefaultRetryAttempts
	}
	if cfg.Title == "" {
		cfg.Title = "Budget %d"
	}

	client, err := sheets.NewService(ctx, append([]option.ClientOption{option.WithHTTPClient(httpClient)}, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("creating sheets service: %w", err)
	}

	w := &Writer{
		client:  client,
		config:  cfg,
		limiter: rate.NewLimiter(rate.Every(time.Minute/time.Duration(cfg.WritesPerMinute)), 1),
		logger:  logger,
		ids:     make(map[int]string),
	}

	logger.Info("sheets writer initialized",
		"spreadsheet_id", cfg.SpreadsheetID,
		"batch_size", cfg.BatchSize,
		"writes_per_minute", cfg.WritesPerMinute,
	)
	return w, nil
}

// Name implements api.Sink.
func (w *Writer) Name() string { return Name }

// SpreadsheetID returns the spreadsheet used for year, or "" before the
// first append.
func (w *Writer) SpreadsheetID(year int) string {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.config.SpreadsheetID != "" {
		return w.config.SpreadsheetID
	}
	return w.ids[year]
}

// Append implements api.Sink. A yearly period rewrites every tab; a month
// period rewrites that month's tab only, since AllData and Summary cannot be
// rebuilt from a single month.
func (w *Writer) Append(ctx context.Context, txns []api.Transaction, period api.Period) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	id, err := w.spreadsheet(ctx, period.Year)
	if err != nil {
		return err
	}

	rows := writer.InPeriod(txns, period)
	var tabs []writer.Tab
	if period.Month == 0 {
		if tabs, err = writer.Tabs(rows); err != nil {
			return err
		}
	} else {
		tabs = writer.MonthTabs(rows)
		if len(tabs) == 0 {
			tabs = []writer.Tab{{
				Name: writer.MonthTab(period.Year, time.Month(period.Month)),
				Rows: [][]any{writer.MonthHeader},
			}}
		}
	}

	if err := w.ensureTabs(ctx, id, tabs); err != nil {
		return err
	}
	if err := w.clear(ctx, id, tabs); err != nil {
		return err
	}
	for _, tab := range tabs {
		if err := w.writeTab(ctx, id, tab); err != nil {
			return err
		}
	}

	w.logger.Info("wrote transactions to spreadsheet",
		"spreadsheet_id", id,
		"period", period.Label(),
		"count", len(rows),
		"tabs", len(tabs),
	)
	return nil
}

// spreadsheet returns the id to write year to, creating one when needed.
func (w *Writer) spreadsheet(ctx context.Context, year int) (string, error) {
	if w.config.SpreadsheetID != "" {
		return w.config.SpreadsheetID, nil
	}
	if id, ok := w.ids[year]; ok {
		return id, nil
	}

	title := fmt.Sprintf(w.config.Title, year)
	var created *sheets.Spreadsheet
	err := w.call(ctx, func() error {
		var err error
		created, err = w.client.Spreadsheets.Create(&sheets.Spreadsheet{
			Properties: &sheets.SpreadsheetProperties{Title: title},
		}).Context(ctx).Do()
		return err
	})
	if err != nil {
		return "", fmt.Errorf("creating spreadsheet: %w", err)
	}

	w.ids[year] = created.SpreadsheetId
	w.logger.Warn("created new spreadsheet, set spreadsheet_id to reuse it",
		"title", title,
		"spreadsheet_id", created.SpreadsheetId,
	)
	return created.SpreadsheetId, nil
}

func (w *Writer) ensureTabs(ctx context.Context, id string, tabs []writer.Tab) error {
	var ss *sheets.Spreadsheet
	err := w.call(ctx, func() error {
		var err error
		ss, err = w.client.Spreadsheets.Get(id).Fields("sheets.properties.title").Context(ctx).Do()
		return err
	})
	if err != nil {
		return fmt.Errorf("getting spreadsheet %s: %w", id, err)
	}

	existing := make([]string, 0, len(ss.Sheets))
	for _, s := range ss.Sheets {
		if s.Properties != nil {
			existing = append(existing, s.Properties.Title)
		}
	}

	var requests []*sheets.Request
	for _, tab := range tabs {
		if slices.Contains(existing, tab.Name) {
			continue
		}
		requests = append(requests, &sheets.Request{
			AddSheet: &sheets.AddSheetRequest{Properties: &sheets.SheetProperties{Title: tab.Name}},
		})
	}
	if len(requests) == 0 {
		return nil
	}

	err = w.call(ctx, func() error {
		_, err := w.client.Spreadsheets.BatchUpdate(id, &sheets.BatchUpdateSpreadsheetRequest{Requests: requests}).Context(ctx).Do()
		return err
	})
	if err != nil {
		return fmt.Errorf("adding tabs: %w", err)
	}
	w.logger.Debug("added tabs", "count", len(requests))
	return nil
}

func (w *Writer) clear(ctx context.Context, id string, tabs []writer.Tab) error {
	ranges := make([]string, len(tabs))
	for i, tab := range tabs {
		ranges[i] = quote(tab.Name)
	}
	err := w.call(ctx, func() error {
		_, err := w.client.Spreadsheets.Values.BatchClear(id, &sheets.BatchClearValuesRequest{Ranges: ranges}).Context(ctx).Do()
		return err
	})
	if err != nil {
		return fmt.Errorf("clearing tabs: %w", err)
	}
	return nil
}

// writeTab sends the rows of tab in BatchSize chunks.
func (w *Writer) writeTab(ctx context.Context, id string, tab writer.Tab) error {
	next := 1
	flush := func(ctx context.Context, rows [][]any) error {
		vr := &sheets.ValueRange{
			Range:  fmt.Sprintf("%s!A%d", quote(tab.Name), next),
			Values: rows,
		}
		err := w.call(ctx, func() error {
			_, err := w.client.Spreadsheets.Values.BatchUpdate(id, &sheets.BatchUpdateValuesRequest{
				ValueInputOption: "USER_ENTERED",
				Data:             []*sheets.ValueRange{vr},
			}).Context(ctx).Do()
			return err
		})
		if err != nil {
			return fmt.Errorf("writing %s: %w", vr.Range, err)
		}
		next += len(rows)
		return nil
	}

	bw := batch.New(flush, batch.Config{BatchSize: w.config.BatchSize}, w.logger.With("component", "sheets_batch", "tab", tab.Name))
	return bw.Write(ctx, tab.Rows)
}

// call waits for the write quota and retries rate limited requests.
func (w *Writer) call(ctx context.Context, fn func() error) error {
	return retry.Do(
		func() error {
			if err := w.limiter.Wait(ctx); err != nil {
				return err
			}
			return fn()
		},
		retry.Context(ctx),
		retry.RetryIf(func(err error) bool {
			var apiErr *googleapi.Error
			if errors.As(err, &apiErr) && apiErr.Code == http.StatusTooManyRequests {
				w.logger.Warn("rate limited, will retry", "error", err)
				return true
			}
			return false
		}),
		retry.Attempts(w.config.RetryAttempts),
		retry.Delay(w.config.RetryDelay),
		retry.DelayType(retry.FixedDelay),
		retry.LastErrorOnly(true),
	)
}

func quote(tab string) string {
	return "'" + tab + "'"
}
