package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/shopspring/decimal"

	"expenses/internal/core"
	applog "expenses/internal/log"

	_ "modernc.org/sqlite"
)

type SQLiteRepository struct {
	db      *sql.DB
	path    string
	queries *Queries
}

// NewSQLiteRepository opens (creating if needed) the database at dbPath.
// The schema is not touched until EnsureSchema is called.
func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", withPragmas(dbPath))
	if err != nil {
		return nil, wrap("open sqlite database", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, wrap("ping database", err)
	}

	return &SQLiteRepository{
		db:      db,
		path:    dbPath,
		queries: New(db),
	}, nil
}

func withPragmas(dbPath string) string {
	sep := "?"
	if strings.Contains(dbPath, "?") {
		sep = "&"
	}
	return dbPath + sep + "_pragma=busy_timeout(5000)"
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping checks that the database is reachable.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return wrap("ping database", r.db.PingContext(ctx))
}

// Insert stores a validated draft in a single statement.
func (r *SQLiteRepository) Insert(ctx context.Context, d core.Draft) (int64, error) {
	note := sql.NullString{}
	if d.Note != nil {
		note = sql.NullString{String: *d.Note, Valid: true}
	}
	id, err := r.queries.CreateExpense(ctx, CreateExpenseParams{
		Amount:   d.Amount.InexactFloat64(),
		Category: d.Category,
		Note:     note,
		Date:     d.Date,
	})
	if err != nil {
		return 0, wrap("insert expense", err)
	}

	slog.InfoContext(ctx, "Expense saved to SQLite",
		applog.FieldExpenseID, id,
		"category", d.Category,
		"amount", d.Amount.String(),
		"date", d.Date)

	return id, nil
}

// ListAll returns every expense, newest id first.
func (r *SQLiteRepository) ListAll(ctx context.Context) ([]core.Expense, error) {
	rows, err := r.queries.ListExpenses(ctx)
	if err != nil {
		return nil, wrap("list expenses", err)
	}

	expenses := make([]core.Expense, len(rows))
	for i, e := range rows {
		if math.IsInf(e.Amount, 0) || math.IsNaN(e.Amount) {
			return nil, wrap("list expenses", fmt.Errorf("expense %d: non-finite amount", e.ID))
		}
		expenses[i] = core.Expense{
			ID:       e.ID,
			Amount:   decimal.NewFromFloat(e.Amount),
			Category: e.Category,
			Date:     e.Date.String,
		}
		if e.Note.Valid && e.Note.String != "" {
			note := e.Note.String
			expenses[i].Note = &note
		}
	}

	return expenses, nil
}

// Delete removes the expense with the given id. A missing id is not an error.
func (r *SQLiteRepository) Delete(ctx context.Context, id int64) error {
	n, err := r.queries.DeleteExpense(ctx, id)
	if err != nil {
		return wrap("delete expense", err)
	}

	if n == 0 {
		slog.DebugContext(ctx, "Delete matched no expense", applog.FieldExpenseID, id)
		return nil
	}
	slog.InfoContext(ctx, "Expense deleted", applog.FieldExpenseID, id)
	return nil
}

// Count returns the number of stored expenses.
func (r *SQLiteRepository) Count(ctx context.Context) (int64, error) {
	n, err := r.queries.CountExpenses(ctx)
	if err != nil {
		return 0, wrap("count expenses", err)
	}
	return n, nil
}
