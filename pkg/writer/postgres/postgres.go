// Package postgres provides a PostgreSQL store for the ledger.
package postgres

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"cloud.google.com/go/civil"
	"github.com/avast/retry-go"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/ArionMiles/budgify/pkg/api"
	"github.com/ArionMiles/budgify/pkg/writer"
	"github.com/ArionMiles/budgify/pkg/writer/batch"
)

// Name is the sink key.
const Name = "postgres"

//go:embed 001_create_transactions.sql
var migrationSQL string

const upsertSQL = `
	INSERT INTO transactions (
		identity_hash, date, description, merchant, amount, category, provider, raw_source
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	ON CONFLICT (identity_hash) DO UPDATE SET
		category = EXCLUDED.category,
		updated_at = NOW()`

// Config holds the PostgreSQL writer configuration.
type Config struct {
	Host     string
	Port     int
	Database string
	User     string
	Password string
	SSLMode  string

	// BatchSize is the number of transactions sent per database transaction.
	BatchSize int

	// MaxPoolSize is the maximum number of connections in the pool.
	MaxPoolSize int

	// ConnectAttempts is how many times to try reaching the database on
	// startup.
	ConnectAttempts uint
	// ConnectDelay is the wait between connection attempts.
	ConnectDelay time.Duration
}

// Writer writes transactions to a PostgreSQL database.
type Writer struct {
	pool      *pgxpool.Pool
	logger    *slog.Logger
	batchSize int
}

// New creates a new PostgreSQL writer.
func New(cfg Config, logger *slog.Logger) (*Writer, error) {
	if logger == nil {
		logger = slog.Default()
	}

	// Set defaults
	if cfg.Port == 0 {
		cfg.Port = 5432
	}
	if cfg.SSLMode == "" {
		cfg.SSLMode = "disable"
	}
	if cfg.BatchSize == 0 {
		cfg.BatchSize = 100
	}
	if cfg.MaxPoolSize == 0 {
		cfg.MaxPoolSize = 10
	}
	if cfg.ConnectAttempts == 0 {
		cfg.ConnectAttempts = 3
	}
	if cfg.ConnectDelay == 0 {
		cfg.ConnectDelay = time.Second
	}

	connStr := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Database, cfg.SSLMode,
	)

	poolConfig, err := pgxpool.ParseConfig(connStr)
	if err != nil {
		return nil, fmt.Errorf("parsing connection string: %w", err)
	}

	poolConfig.MaxConns = int32(cfg.MaxPoolSize)
	poolConfig.MinConns = 1
	poolConfig.MaxConnLifetime = 1 * time.Hour
	poolConfig.MaxConnIdleTime = 30 * time.Minute
	poolConfig.HealthCheckPeriod = 1 * time.Minute

	pool, err := pgxpool.NewWithConfig(context.Background(), poolConfig)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	err = retry.Do(
		func() error {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return pool.Ping(ctx)
		},
		retry.Attempts(cfg.ConnectAttempts),
		retry.Delay(cfg.ConnectDelay),
		retry.OnRetry(func(n uint, err error) {
			logger.Warn("database not ready, retrying", "attempt", n+1, "error", err)
		}),
		retry.LastErrorOnly(true),
	)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	logger.Info("connected to PostgreSQL",
		"host", cfg.Host,
		"port", cfg.Port,
		"database", cfg.Database,
	)

	w := &Writer{
		pool:      pool,
		logger:    logger,
		batchSize: cfg.BatchSize,
	}

	if err := w.runMigrations(context.Background()); err != nil {
		pool.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return w, nil
}

// runMigrations runs the database migrations.
func (w *Writer) runMigrations(ctx context.Context) error {
	w.logger.Info("running database migrations")

	if _, err := w.pool.Exec(ctx, migrationSQL); err != nil {
		return fmt.Errorf("executing migration: %w", err)
	}

	w.logger.Info("migrations completed successfully")
	return nil
}

// Name implements api.Sink.
func (w *Writer) Name() string { return Name }

// Append implements api.Sink. Transactions are upserted on their identity
// hash in chunks of BatchSize, each chunk in its own database transaction.
func (w *Writer) Append(ctx context.Context, txns []api.Transaction, period api.Period) error {
	rows := writer.InPeriod(txns, period)

	bw := batch.New(w.writeBatch, batch.Config{BatchSize: w.batchSize}, w.logger.With("component", "postgres_batch"))
	if err := bw.Write(ctx, rows); err != nil {
		return err
	}

	w.logger.Info("wrote transaction batch",
		"run_id", api.RunID(ctx),
		"period", period.Label(),
		"count", bw.Flushed(),
	)
	return nil
}

// writeBatch writes a batch of transactions to the database.
func (w *Writer) writeBatch(ctx context.Context, transactions []api.Transaction) error {
	if len(transactions) == 0 {
		return nil
	}

	tx, err := w.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	b := &pgx.Batch{}
	for _, t := range transactions {
		b.Queue(upsertSQL,
			t.Identity().Hash(),
			t.Date.In(time.UTC),
			t.Description,
			t.Merchant,
			t.Amount.String(),
			t.Category,
			t.Provider,
			t.RawSource,
		)
	}

	results := tx.SendBatch(ctx, b)
	for i := range transactions {
		if _, err := results.Exec(); err != nil {
			results.Close()
			return fmt.Errorf("upserting transaction %d: %w", i, err)
		}
	}
	if err := results.Close(); err != nil {
		return fmt.Errorf("closing batch: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// Load implements api.LedgerSource.
func (w *Writer) Load(ctx context.Context, period api.Period) ([]api.Transaction, error) {
	start := civil.Date{Year: period.Year, Month: time.January, Day: 1}
	end := civil.Date{Year: period.Year + 1, Month: time.January, Day: 1}
	if period.Month != 0 {
		start.Month = time.Month(period.Month)
		end = civil.DateOf(start.In(time.UTC).AddDate(0, 1, 0))
	}

	rows, err := w.pool.Query(ctx, `
		SELECT date::text, description, merchant, amount::text, category, provider, raw_source
		FROM transactions
		WHERE date >= $1 AND date < $2
		ORDER BY date, id`, start.In(time.UTC), end.In(time.UTC))
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
	rows, err := w.pool.Query(ctx,
		`SELECT DISTINCT EXTRACT(YEAR FROM date)::int AS y FROM transactions ORDER BY y`)
	if err != nil {
		return nil, fmt.Errorf("querying years: %w", err)
	}
	years, err := pgx.CollectRows(rows, pgx.RowTo[int])
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("collecting years: %w", err)
	}
	return years, nil
}

// Close closes the database connection pool.
func (w *Writer) Close() error {
	if w.pool != nil {
		w.pool.Close()
		w.logger.Info("closed PostgreSQL connection pool")
	}
	return nil
}
