package storage

import (
	"context"
	"database/sql"
)

// DBTX is satisfied by *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(context.Context, string, ...any) (sql.Result, error)
	QueryContext(context.Context, string, ...any) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...any) *sql.Row
}

// Queries holds the statements issued against the expenses table.
type Queries struct {
	db DBTX
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx}
}

// Expense is a row of the expenses table.
type Expense struct {
	ID       int64
	Amount   float64
	Category string
	Note     sql.NullString
	Date     sql.NullString
}

type CreateExpenseParams struct {
	Amount   float64
	Category string
	Note     sql.NullString
	Date     string
}

const createExpense = `INSERT INTO expenses (amount, category, note, date) VALUES (?, ?, ?, ?)`

func (q *Queries) CreateExpense(ctx context.Context, arg CreateExpenseParams) (int64, error) {
	res, err := q.db.ExecContext(ctx, createExpense, arg.Amount, arg.Category, arg.Note, arg.Date)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

const listExpenses = `SELECT id, amount, category, note, date FROM expenses ORDER BY id DESC`

func (q *Queries) ListExpenses(ctx context.Context) ([]Expense, error) {
	rows, err := q.db.QueryContext(ctx, listExpenses)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Expense
	for rows.Next() {
		var i Expense
		if err := rows.Scan(&i.ID, &i.Amount, &i.Category, &i.Note, &i.Date); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const deleteExpense = `DELETE FROM expenses WHERE id = ?`

func (q *Queries) DeleteExpense(ctx context.Context, id int64) (int64, error) {
	res, err := q.db.ExecContext(ctx, deleteExpense, id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const countExpenses = `SELECT COUNT(*) FROM expenses`

func (q *Queries) CountExpenses(ctx context.Context) (int64, error) {
	var n int64
	err := q.db.QueryRowContext(ctx, countExpenses).Scan(&n)
	return n, err
}

// ColumnInfo is a row of PRAGMA table_info.
type ColumnInfo struct {
	CID        int64
	Name       string
	Type       string
	NotNull    bool
	Default    sql.NullString
	PrimaryKey int64
}

func (q *Queries) TableColumns(ctx context.Context, table string) ([]ColumnInfo, error) {
	// PRAGMA arguments cannot be bound; callers only pass package constants.
	rows, err := q.db.QueryContext(ctx, "PRAGMA table_info("+table+")")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []ColumnInfo
	for rows.Next() {
		var i ColumnInfo
		if err := rows.Scan(&i.CID, &i.Name, &i.Type, &i.NotNull, &i.Default, &i.PrimaryKey); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

func (q *Queries) AddColumn(ctx context.Context, table, column, decl string) error {
	_, err := q.db.ExecContext(ctx, "ALTER TABLE "+table+" ADD COLUMN "+column+" "+decl)
	return err
}
