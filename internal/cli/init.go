// Package cli provides common process initialization utilities shared by
// cmd/expenses and cmd/expensectl.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/joho/godotenv"

	"expenses/internal/config"
	applog "expenses/internal/log"
	"expenses/internal/services"
	"expenses/internal/storage"
)

// LoadEnvFile loads the .env file for local development.
// Errors are ignored silently as this is optional in production.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// LoadConfig loads configuration and validates it.
func LoadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// SetupLogger builds the application logger from cfg, writes to out,
// and installs it as the slog default.
func SetupLogger(cfg *config.Config, component string, out io.Writer) *applog.Logger {
	if out == nil {
		out = os.Stdout
	}
	logger := applog.New(applog.Config{
		Level:     cfg.Level(),
		Format:    cfg.LogFormat,
		Component: component,
		Output:    out,
	})
	applog.SetDefault(logger)
	return logger
}

// OpenService opens the SQLite store, ensures the schema, and returns the
// ready-to-use expense service.
func OpenService(ctx context.Context, cfg *config.Config) (*services.ExpenseService, error) {
	repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
	if err != nil {
		return nil, fmt.Errorf("open store %s: %w", cfg.SQLiteDBPath, err)
	}

	svc := services.NewExpenseService(repo, services.Options{
		Location:  cfg.Location(),
		WeekStart: cfg.Weekday(),
	})
	if err := svc.EnsureSchema(ctx); err != nil {
		svc.Close()
		return nil, err
	}
	return svc, nil
}
