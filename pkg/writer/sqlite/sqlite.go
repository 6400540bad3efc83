// Package sqlite provides a SQLite store for the ledger. Rows are keyed by
// the transaction identity hash, so appending the same ledger twice leaves
// one row per transaction.
package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"cloud.google.com/go/civil"
	"github.com/golang-migrate/migrate/v4"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ArionMiles/budgify/pkg/api"
	"github.com/ArionMiles/budgify/pkg/writer"

	_ "modernc.org/sqlite"
)

// Name is the sink key.
const Name = "sqlite"

//go:embed migrations/*.sql
var migrationsFS embed.FS

const upsertSQL = `
INSERT INTO transactions (identity_hash, date, description, merchant, amount, category, provider, raw_source)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(identity_hash) DO UPDATE SET
	category = excluded.category,
	updated_at = CURRENT_TIMESTAMP`

// Config holds the SQLite store configuration.
type Config struct {
	// Path is the database file. Its directory is created if needed.
	Path string
}

// Run is one recorded append.
type Run struct {
	ID        string
	Period    string
	Count     int
	CreatedAt string
}

// Writer persists transactions to SQLite.
type Writer struct {
	db     *sql.DB
	path   string
	logger *slog.Logger
}

// New opens the database and applies pending migrations.
func New(cfg Config, logger *slog.Logger) (*Writer, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Path == "" {
		return nil, errors.New("sqlite sink: path is required")
	}
	if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o750); err != nil {
		return nil, fmt.Errorf("creating db directory: %w", err)
	}

	if err := runMigrations(cfg.Path); err != nil {
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	db, err := sql.Open("sqlite", cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite database: %w", err)
	}
	// A single connection keeps writers from tripping over SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	logger.Info("sqlite writer initialized", "path", cfg.Path)
	return &Writer{db: db, path: cfg.Path, logger: logger}, nil
}

// runMigrations uses its own connection because closing the migrator closes
// the database it was given.
func runMigrations(path string) error {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return fmt.Errorf("opening migration database: %w", err)
	}
	defer db.Close()

	driver, err := migratesqlite.WithInstance(db, &migratesqlite.Config{})
	if err != nil {
		return fmt.Errorf("creating sqlite driver: %w", err)
	}
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("creating iofs source: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "sqlite", driver)
	if err != nil {
		return fmt.Errorf("creating migrate instance: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}
	return nil
}

// Name implements api.Sink.
func (w *Writer) Name() string { return Name }

// Append implements api.Sink. Every transaction of the period is upserted in
// a single database transaction and the append is logged in import_runs.
func (w *Writer) Append(ctx context.Context, txns []api.Transaction, period api.Period) error {
	rows := writer.InPeriod(txns, period)

	tx, err := w.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx, upsertSQL)
	if err != nil {
		return fmt.Errorf("preparing upsert: %w", err)
	}
	defer stmt.Close()

	for i, t := range rows {
		_, err := stmt.ExecContext(ctx,
			t.Identity().Hash(),
			t.Date.String(),
			t.Description,
			t.Merchant,
			t.Amount.String(),
			t.Category,
			t.Provider,
			t.RawSource,
		)
		if err != nil {
			return fmt.Errorf("upserting transaction %d: %w", i, err)
		}
	}

	runID := api.RunID(ctx)
	if runID == "" {
		runID = uuid.NewString()
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO import_runs (id, period, row_count) VALUES (?, ?, ?)
		 ON CONFLICT(id, period) DO UPDATE SET row_count = excluded.row_count`,
		runID, period.Label(), len(rows),
	)
	if err != nil {
		return fmt.Errorf("recording import run: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}

	w.logger.Debug("wrote transactions to sqlite", "run_id", runID, "period", period.Label(), "count", len(rows))
	return nil
}

// Load implements api.LedgerSource. Rows come back in date order, then in
// the order they were first written.
func (w *Writer) Load(ctx context.Context, period api.Period) ([]api.Transaction, error) {
	start, end := bounds(period)
	rows, err := w.db.QueryContext(ctx, `
		SELECT date, description, merchant, amount, category, provider, raw_source
		FROM transactions
		WHERE date >= ? AND date <= ?
		ORDER BY date, id`, start.String(), end.String())
	if err != nil {
		return nil, fmt.Errorf("querying transactions: %w", err)
	}
	defer rows.Close()

	var txns []api.Transaction
	for rows.Next() {
		var (
			t      api.Transaction
			date   string
			amount string
		)
		if err := rows.Scan(&date, &t.Description, &t.Merchant, &amount, &t.Category, &t.Provider, &t.RawSource); err != nil {
			return nil, fmt.Errorf("scanning transaction: %w", err)
		}
		if t.Date, err = civil.ParseDate(date); err != nil {
			return nil, fmt.Errorf("parsing stored date %q: %w", date, err)
		}
		if t.Amount, err = decimal.NewFromString(amount); err != nil {
			return nil, fmt.Errorf("parsing stored amount %q: %w", amount, err)
		}
		txns = append(txns, t)
	}
	return txns, rows.Err()
}

// Years implements api.YearLister.
func (w *Writer) Years(ctx context.Context) ([]int, error) {
	rows, err := w.db.QueryContext(ctx,
		`SELECT DISTINCT CAST(substr(date, 1, 4) AS INTEGER) FROM transactions ORDER BY 1`)
	if err != nil {
		return nil, fmt.Errorf("querying years: %w", err)
	}
	defer rows.Close()

	var years []int
	for rows.Next() {
		var y int
		if err := rows.Scan(&y); err != nil {
			return nil, err
		}
		years = append(years, y)
	}
	return years, rows.Err()
}

// Runs returns the most recent appends, newest first.
func (w *Writer) Runs(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := w.db.QueryContext(ctx,
		`SELECT id, period, row_count, created_at FROM import_runs ORDER BY created_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying import runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		if err := rows.Scan(&r.ID, &r.Period, &r.Count, &r.CreatedAt); err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// Close closes the database.
func (w *Writer) Close() error {
	if w.db == nil {
		return nil
	}
	w.logger.Info("closed sqlite database", "path", w.path)
	return w.db.Close()
}

func bounds(p api.Period) (civil.Date, civil.Date) {
	if p.Month == 0 {
		return civil.Date{Year: p.Year, Month: time.January, Day: 1},
			civil.Date{Year: p.Year, Month: time.December, Day: 31}
	}
	start := civil.Date{Year: p.Year, Month: time.Month(p.Month), Day: 1}
	return start, civil.DateOf(start.In(time.UTC).AddDate(0, 1, -1))
}
