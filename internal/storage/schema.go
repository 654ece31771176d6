package storage

import (
	"context"
	"log/slog"
)

const expensesTable = "expenses"

// columns added after the first release, in the order they appeared
var driftColumns = []struct {
	name string
	decl string
}{
	// Nullable: SQLite cannot add a NOT NULL column without a default.
	{name: "date", decl: "TEXT"},
}

// EnsureSchema creates the expenses table when missing and upgrades tables
// created by older releases. It is safe to call on every start.
func (r *SQLiteRepository) EnsureSchema(ctx context.Context) error {
	if err := RunMigrations(r.path); err != nil {
		return wrap("ensure schema", err)
	}

	cols, err := r.queries.TableColumns(ctx, expensesTable)
	if err != nil {
		return wrap("inspect expenses table", err)
	}
	present := make(map[string]bool, len(cols))
	for _, c := range cols {
		present[c.Name] = true
	}

	for _, c := range driftColumns {
		if present[c.name] {
			continue
		}
		if err := r.queries.AddColumn(ctx, expensesTable, c.name, c.decl); err != nil {
			return wrap("add column "+c.name, err)
		}
		slog.InfoContext(ctx, "Upgraded expenses table", "column", c.name)
	}

	return nil
}
