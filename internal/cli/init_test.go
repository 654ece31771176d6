package cli

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"expenses/internal/config"
	"expenses/internal/core"
)

func testConfig(t *testing.T) *config.Config {
	return &config.Config{
		Port:         "8081",
		SQLiteDBPath: filepath.Join(t.TempDir(), "data", "expenses.db"),
		WeekStart:    "monday",
		Timezone:     "UTC",
		LogLevel:     "info",
		LogFormat:    "text",
	}
}

func TestOpenServiceIsReady(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t)

	svc, err := OpenService(ctx, cfg)
	if err != nil {
		t.Fatalf("open service: %v", err)
	}
	defer svc.Close()

	if err := svc.Add(ctx, decimal.NewFromInt(3), "Books", nil); err != nil {
		t.Fatalf("add: %v", err)
	}
	rows, err := svc.ListFiltered(ctx, core.WindowWeek)
	if err != nil || len(rows) != 1 {
		t.Fatalf("expected one row this week, got %d (err=%v)", len(rows), err)
	}

	// Reopening runs the schema step again without losing data.
	svc.Close()
	svc, err = OpenService(ctx, cfg)
	if err != nil {
		t.Fatalf("reopen service: %v", err)
	}
	defer svc.Close()
	if rows, _ := svc.ListAll(ctx); len(rows) != 1 {
		t.Fatalf("expected row to survive reopen, got %d", len(rows))
	}
}

func TestSetupLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := SetupLogger(testConfig(t), "cli", &buf)
	logger.Info("hello")
	if !strings.Contains(buf.String(), "component=cli") {
		t.Fatalf("unexpected log output: %s", buf.String())
	}
}
