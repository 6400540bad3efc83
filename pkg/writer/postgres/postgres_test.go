package postgres

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"

	"github.com/ArionMiles/budgify/pkg/api"
)

func testConfig(t *testing.T) Config {
	t.Helper()
	// Skip if no test database available
	if os.Getenv("TEST_POSTGRES_HOST") == "" {
		t.Skip("TEST_POSTGRES_HOST not set, skipping integration test")
	}
	return Config{
		Host:     os.Getenv("TEST_POSTGRES_HOST"),
		Database: os.Getenv("TEST_POSTGRES_DB"),
		User:     os.Getenv("TEST_POSTGRES_USER"),
		Password: os.Getenv("TEST_POSTGRES_PASSWORD"),
	}
}

// uniqueProvider keeps rows written by one test run apart from earlier runs.
func uniqueProvider() string {
	return fmt.Sprintf("test-%d", time.Now().UnixNano())
}

// TestNewWriter_ConnectionFailure tests that the writer returns an error when connection fails.
func TestNewWriter_ConnectionFailure(t *testing.T) {
	cfg := Config{
		Host:            "nonexistent-host",
		Port:            5432,
		Database:        "budgify",
		User:            "budgify",
		Password:        "password",
		SSLMode:         "disable",
		ConnectAttempts: 1,
	}

	_, err := New(cfg, slog.New(slog.NewTextHandler(os.Stdout, nil)))
	if err == nil {
		t.Error("expected error when connecting to nonexistent host, got nil")
	}
}

// TestNewWriter_Defaults tests that default values are set correctly.
func TestNewWriter_Defaults(t *testing.T) {
	writer, err := New(testConfig(t), slog.New(slog.NewTextHandler(os.Stdout, nil)))
	if err != nil {
		t.Fatalf("failed to create writer: %v", err)
	}
	defer writer.Close()

	if writer.batchSize != 100 {
		t.Errorf("expected default batchSize=100, got %d", writer.batchSize)
	}
}

// TestAppend_Idempotent tests that appending the same ledger twice stores each row once.
func TestAppend_Idempotent(t *testing.T) {
	cfg := testConfig(t)
	cfg.BatchSize = 2

	writer, err := New(cfg, slog.New(slog.NewTextHandler(os.Stdout, nil)))
	if err != nil {
		t.Fatalf("failed to create writer: %v", err)
	}
	defer writer.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	provider := uniqueProvider()
	year := 1900 + int(time.Now().UnixNano()%100)
	var txns []api.Transaction
	for i := 0; i < 5; i++ {
		txns = append(txns, api.Transaction{
			Date:        civil.Date{Year: year, Month: time.March, Day: i + 1},
			Description: fmt.Sprintf("Merchant %d", i),
			Amount:      decimal.NewFromInt(int64(10 * (i + 1))),
			Category:    "test",
			Provider:    provider,
		})
	}

	period := api.Period{Year: year}
	for range 2 {
		if err := writer.Append(ctx, txns, period); err != nil {
			t.Fatalf("append failed: %v", err)
		}
	}

	got, err := writer.Load(ctx, period)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	count := 0
	for _, g := range got {
		if g.Provider == provider {
			count++
		}
	}
	if count != len(txns) {
		t.Errorf("expected %d rows, got %d", len(txns), count)
	}
}

// TestAppend_RefreshesCategory tests that a re-append updates the stored category.
func TestAppend_RefreshesCategory(t *testing.T) {
	writer, err := New(testConfig(t), slog.New(slog.NewTextHandler(os.Stdout, nil)))
	if err != nil {
		t.Fatalf("failed to create writer: %v", err)
	}
	defer writer.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	txn := api.Transaction{
		Date:        civil.Date{Year: 1899, Month: time.July, Day: 4},
		Description: "NETFLIX.COM",
		Amount:      decimal.RequireFromString("15.99"),
		Category:    api.Uncategorized,
		Provider:    uniqueProvider(),
	}
	period := api.Period{Year: 1899, Month: 7}
	if err := writer.Append(ctx, []api.Transaction{txn}, period); err != nil {
		t.Fatalf("append failed: %v", err)
	}
	txn.Category = "subscriptions"
	if err := writer.Append(ctx, []api.Transaction{txn}, period); err != nil {
		t.Fatalf("append failed: %v", err)
	}

	got, err := writer.Load(ctx, period)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	for _, g := range got {
		if g.Provider != txn.Provider {
			continue
		}
		if g.Category != "subscriptions" {
			t.Errorf("expected category subscriptions, got %s", g.Category)
		}
		if !g.Amount.Equal(txn.Amount) {
			t.Errorf("expected amount %s, got %s", txn.Amount, g.Amount)
		}
		return
	}
	t.Error("transaction not found after append")
}
