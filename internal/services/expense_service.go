package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"

	"expenses/internal/core"
	applog "expenses/internal/log"
)

// ErrSchemaNotReady is returned by store operations invoked before EnsureSchema succeeded.
var ErrSchemaNotReady = errors.New("schema not ready: call EnsureSchema first")

// Store is the persistence port the service drives.
type Store interface {
	EnsureSchema(ctx context.Context) error
	Insert(ctx context.Context, d core.Draft) (int64, error)
	ListAll(ctx context.Context) ([]core.Expense, error)
	Delete(ctx context.Context, id int64) error
	Close() error
}

// Options tunes the time-dependent behavior of the service.
type Options struct {
	// Now returns the current instant. Defaults to time.Now.
	Now func() time.Time
	// Location is used for midnight alignment of windows. Defaults to time.Local.
	Location *time.Location
	// WeekStart is the first day of the week window. Defaults to Sunday.
	WeekStart time.Weekday
}

// ExpenseService is the function surface presentation layers call into.
type ExpenseService struct {
	store     Store
	now       func() time.Time
	loc       *time.Location
	weekStart time.Weekday
	ready     atomic.Bool
}

func NewExpenseService(store Store, opts Options) *ExpenseService {
	s := &ExpenseService{
		store:     store,
		now:       opts.Now,
		loc:       opts.Location,
		weekStart: opts.WeekStart,
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.loc == nil {
		s.loc = time.Local
	}
	return s
}

// EnsureSchema prepares the store. It must run once before any other call.
func (s *ExpenseService) EnsureSchema(ctx context.Context) error {
	if err := s.store.EnsureSchema(ctx); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	s.ready.Store(true)
	return nil
}

// Add validates and stores a new expense stamped with the current instant.
// Validation failures are reported before any storage access.
func (s *ExpenseService) Add(ctx context.Context, amount decimal.Decimal, category string, note *string) error {
	draft, err := core.NewDraft(amount, category, note, s.now())
	if err != nil {
		slog.WarnContext(ctx, "Rejected expense",
			"error", err,
			applog.FieldAmount, amount.String(),
			applog.FieldCategory, category,
			applog.FieldOperation, applog.OpValidate)
		return err
	}
	if !s.ready.Load() {
		return ErrSchemaNotReady
	}

	if _, err := s.store.Insert(ctx, draft); err != nil {
		return fmt.Errorf("save expense: %w", err)
	}
	return nil
}

// ListAll returns every expense, most recently added first.
func (s *ExpenseService) ListAll(ctx context.Context) ([]core.Expense, error) {
	if !s.ready.Load() {
		return nil, ErrSchemaNotReady
	}
	rows, err := s.store.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	return rows, nil
}

// ListFiltered returns the expenses inside window, filtered over the full listing.
func (s *ExpenseService) ListFiltered(ctx context.Context, window core.Window) ([]core.Expense, error) {
	window, err := core.ParseWindow(string(window))
	if err != nil {
		return nil, err
	}
	rows, err := s.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	if window == core.WindowAll {
		return rows, nil
	}

	filtered := core.FilterByWindow(rows, window, s.now().In(s.loc), s.weekStart)
	slog.DebugContext(ctx, "Filtered expenses",
		applog.FieldWindow, string(window),
		"total", len(rows),
		applog.FieldCount, len(filtered))
	return filtered, nil
}

// Remove deletes the expense with id; unknown ids are ignored.
func (s *ExpenseService) Remove(ctx context.Context, id int64) error {
	if !s.ready.Load() {
		return ErrSchemaNotReady
	}
	if id <= 0 {
		return nil
	}
	if err := s.store.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete expense: %w", err)
	}
	return nil
}

// Ping reports whether the schema is ready and the store reachable.
func (s *ExpenseService) Ping(ctx context.Context) error {
	if !s.ready.Load() {
		return ErrSchemaNotReady
	}
	if p, ok := s.store.(interface{ Ping(context.Context) error }); ok {
		return p.Ping(ctx)
	}
	return nil
}

// Location returns the zone used for window alignment and display.
func (s *ExpenseService) Location() *time.Location {
	return s.loc
}

// Close releases the underlying store.
func (s *ExpenseService) Close() error {
	if s.store == nil {
		return nil
	}
	if err := s.store.Close(); err != nil {
		return fmt.Errorf("close expense service: %w", err)
	}
	return nil
}
