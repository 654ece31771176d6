package services

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/shopspring/decimal"

	"expenses/internal/core"
	"expenses/internal/storage"
)

// fakeStore records calls and serves canned rows.
type fakeStore struct {
	rows    []core.Expense
	inserts int
	deletes []int64
	err     error
}

func (f *fakeStore) EnsureSchema(ctx context.Context) error { return f.err }
func (f *fakeStore) Insert(ctx context.Context, d core.Draft) (int64, error) {
	if f.err != nil {
		return 0, f.err
	}
	f.inserts++
	id := int64(len(f.rows) + 1)
	f.rows = append([]core.Expense{{ID: id, Amount: d.Amount, Category: d.Category, Note: d.Note, Date: d.Date}}, f.rows...)
	return id, nil
}
func (f *fakeStore) ListAll(ctx context.Context) ([]core.Expense, error) { return f.rows, f.err }
func (f *fakeStore) Delete(ctx context.Context, id int64) error {
	f.deletes = append(f.deletes, id)
	return f.err
}
func (f *fakeStore) Close() error { return nil }

func fixedClock(t time.Time) func() time.Time { return func() time.Time { return t } }

func newSQLiteService(t *testing.T, now time.Time) *ExpenseService {
	t.Helper()
	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "expenses.db"))
	if err != nil {
		t.Fatalf("open repository: %v", err)
	}
	svc := NewExpenseService(repo, Options{Now: fixedClock(now), Location: time.UTC})
	t.Cleanup(func() { svc.Close() })
	if err := svc.EnsureSchema(context.Background()); err != nil {
		t.Fatalf("ensure schema: %v", err)
	}
	return svc
}

func strPtr(s string) *string { return &s }

func TestAddThenListScenario(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 10, 15, 12, 0, 0, 0, time.UTC)
	svc := newSQLiteService(t, now)

	if err := svc.Add(ctx, decimal.RequireFromString("12.50"), "Food", strPtr("lunch")); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := svc.Add(ctx, decimal.NewFromInt(40), "Rent", nil); err != nil {
		t.Fatalf("add: %v", err)
	}

	got, err := svc.ListAll(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(got))
	}
	if got[0].Category != "Rent" || got[1].Category != "Food" {
		t.Fatalf("expected most recent first, got %q then %q", got[0].Category, got[1].Category)
	}
	if got[0].ID <= got[1].ID {
		t.Fatalf("ids not strictly decreasing: %d, %d", got[0].ID, got[1].ID)
	}
	if got[0].Note != nil {
		t.Fatalf("expected absent note, got %q", *got[0].Note)
	}
	if got[1].NoteText() != "lunch" {
		t.Fatalf("expected note lunch, got %q", got[1].NoteText())
	}
	if !got[1].Amount.Equal(decimal.RequireFromString("12.50")) || !got[0].Amount.Equal(decimal.NewFromInt(40)) {
		t.Fatalf("amounts not preserved: %s, %s", got[1].Amount, got[0].Amount)
	}
	if got[0].Date != core.FormatTimestamp(now) {
		t.Fatalf("expected date stamped at %s, got %s", core.FormatTimestamp(now), got[0].Date)
	}
}

func TestAddRejectsInvalidInputWithoutWriting(t *testing.T) {
	ctx := context.Background()
	svc := newSQLiteService(t, time.Now())

	cases := []struct {
		amount   decimal.Decimal
		category string
	}{
		{decimal.Zero, "Food"},
		{decimal.NewFromInt(-5), "Food"},
		{decimal.NewFromInt(5), ""},
		{decimal.NewFromInt(5), "   "},
	}
	for _, tc := range cases {
		err := svc.Add(ctx, tc.amount, tc.category, nil)
		if !core.IsValidation(err) {
			t.Fatalf("amount=%s category=%q: expected validation error, got %v", tc.amount, tc.category, err)
		}
	}
	got, err := svc.ListAll(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected no rows, got %d", len(got))
	}
}

func TestAddRejectsAmountsOutsideFloatRange(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 10, 15, 12, 0, 0, 0, time.UTC)
	svc := newSQLiteService(t, now)

	for _, raw := range []string{"1e400", "1e-400"} {
		err := svc.Add(ctx, decimal.RequireFromString(raw), "Food", nil)
		if !errors.Is(err, core.ErrInvalidAmount) || !core.IsValidation(err) {
			t.Fatalf("%s: expected amount ValidationError, got %v", raw, err)
		}
	}
	if err := svc.Add(ctx, decimal.RequireFromString("1e308"), "Food", nil); err != nil {
		t.Fatalf("large finite amount: %v", err)
	}

	rows, err := svc.ListAll(ctx)
	if err != nil {
		t.Fatalf("list after extreme amounts: %v", err)
	}
	if len(rows) != 1 || rows[0].Amount.InexactFloat64() != 1e308 {
		t.Fatalf("unexpected rows: %+v", rows)
	}
}

func TestValidationHappensBeforeStorage(t *testing.T) {
	store := &fakeStore{err: errors.New("disk on fire")}
	svc := NewExpenseService(store, Options{})

	// Schema never became ready and the store is broken; validation still wins.
	err := svc.Add(context.Background(), decimal.Zero, "Food", nil)
	if !errors.Is(err, core.ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}
	if store.inserts != 0 {
		t.Fatalf("store touched on invalid input")
	}
}

func TestOperationsRequireSchema(t *testing.T) {
	svc := NewExpenseService(&fakeStore{}, Options{})
	ctx := context.Background()

	if err := svc.Add(ctx, decimal.NewFromInt(1), "Food", nil); !errors.Is(err, ErrSchemaNotReady) {
		t.Fatalf("add: expected ErrSchemaNotReady, got %v", err)
	}
	if _, err := svc.ListAll(ctx); !errors.Is(err, ErrSchemaNotReady) {
		t.Fatalf("list: expected ErrSchemaNotReady, got %v", err)
	}
	if err := svc.Remove(ctx, 1); !errors.Is(err, ErrSchemaNotReady) {
		t.Fatalf("remove: expected ErrSchemaNotReady, got %v", err)
	}
}

func TestEnsureSchemaFailurePropagates(t *testing.T) {
	boom := errors.New("boom")
	svc := NewExpenseService(&fakeStore{err: boom}, Options{})
	if err := svc.EnsureSchema(context.Background()); !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
}

func TestRemove(t *testing.T) {
	ctx := context.Background()
	svc := newSQLiteService(t, time.Now())

	for _, c := range []string{"A", "B", "C"} {
		if err := svc.Add(ctx, decimal.NewFromInt(1), c, nil); err != nil {
			t.Fatalf("add: %v", err)
		}
	}
	before, _ := svc.ListAll(ctx)

	if err := svc.Remove(ctx, 9999); err != nil {
		t.Fatalf("remove missing id: %v", err)
	}
	if after, _ := svc.ListAll(ctx); len(after) != len(before) {
		t.Fatalf("row count changed on missing id: %d -> %d", len(before), len(after))
	}

	target := before[1].ID
	if err := svc.Remove(ctx, target); err != nil {
		t.Fatalf("remove: %v", err)
	}
	after, _ := svc.ListAll(ctx)
	if len(after) != len(before)-1 {
		t.Fatalf("expected %d rows, got %d", len(before)-1, len(after))
	}
	for _, e := range after {
		if e.ID == target {
			t.Fatalf("removed id %d still listed", target)
		}
	}
}

func TestListFiltered(t *testing.T) {
	ctx := context.Background()
	// Wednesday
	now := time.Date(2025, 10, 15, 12, 0, 0, 0, time.UTC)
	store := &fakeStore{rows: []core.Expense{
		{ID: 4, Category: "today", Date: core.FormatTimestamp(now)},
		{ID: 3, Category: "legacy", Date: ""},
		{ID: 2, Category: "garbage", Date: "yesterday-ish"},
		{ID: 1, Category: "old", Date: core.FormatTimestamp(now.AddDate(0, 0, -8))},
	}}
	svc := NewExpenseService(store, Options{Now: fixedClock(now), Location: time.UTC})
	if err := svc.EnsureSchema(ctx); err != nil {
		t.Fatalf("ensure schema: %v", err)
	}

	all, err := svc.ListAll(ctx)
	if err != nil {
		t.Fatalf("list all: %v", err)
	}
	filteredAll, err := svc.ListFiltered(ctx, core.WindowAll)
	if err != nil {
		t.Fatalf("list filtered all: %v", err)
	}
	if len(filteredAll) != len(all) {
		t.Fatalf("all window differs from ListAll: %d vs %d", len(filteredAll), len(all))
	}

	week, err := svc.ListFiltered(ctx, core.WindowWeek)
	if err != nil {
		t.Fatalf("list week: %v", err)
	}
	if len(week) != 2 || week[0].Category != "today" || week[1].Category != "legacy" {
		t.Fatalf("unexpected week rows: %+v", week)
	}

	month, err := svc.ListFiltered(ctx, core.WindowMonth)
	if err != nil {
		t.Fatalf("list month: %v", err)
	}
	if len(month) != 3 || month[2].Category != "old" {
		t.Fatalf("unexpected month rows: %+v", month)
	}

	if _, err := svc.ListFiltered(ctx, core.Window("decade")); !errors.Is(err, core.ErrUnknownWindow) {
		t.Fatalf("expected ErrUnknownWindow, got %v", err)
	}
}

func TestListFilteredHonorsWeekStart(t *testing.T) {
	ctx := context.Background()
	// Sunday evening: a Monday-start week began six days ago.
	now := time.Date(2025, 10, 19, 20, 0, 0, 0, time.UTC)
	store := &fakeStore{rows: []core.Expense{
		{ID: 1, Date: core.FormatTimestamp(time.Date(2025, 10, 13, 9, 0, 0, 0, time.UTC))},
	}}

	sunday := NewExpenseService(store, Options{Now: fixedClock(now), Location: time.UTC, WeekStart: time.Sunday})
	monday := NewExpenseService(store, Options{Now: fixedClock(now), Location: time.UTC, WeekStart: time.Monday})
	for _, svc := range []*ExpenseService{sunday, monday} {
		if err := svc.EnsureSchema(ctx); err != nil {
			t.Fatalf("ensure schema: %v", err)
		}
	}

	if rows, _ := sunday.ListFiltered(ctx, core.WindowWeek); len(rows) != 0 {
		t.Fatalf("sunday week should exclude monday 13th, got %d rows", len(rows))
	}
	if rows, _ := monday.ListFiltered(ctx, core.WindowWeek); len(rows) != 1 {
		t.Fatalf("monday week should include monday 13th, got %d rows", len(rows))
	}
}

func TestListFilteredAlignsToLocalMidnight(t *testing.T) {
	ctx := context.Background()
	rome, err := time.LoadLocation("Europe/Rome")
	if err != nil {
		t.Fatalf("load location: %v", err)
	}
	// Wednesday 00:30 in Rome is still Tuesday evening in UTC.
	now := time.Date(2025, 10, 15, 0, 30, 0, 0, rome)
	store := &fakeStore{rows: []core.Expense{
		{ID: 3, Category: "after-sunday-midnight", Date: core.FormatTimestamp(time.Date(2025, 10, 12, 0, 15, 0, 0, rome))},
		{ID: 2, Category: "before-sunday-midnight", Date: core.FormatTimestamp(time.Date(2025, 10, 11, 23, 50, 0, 0, rome))},
		{ID: 1, Category: "after-month-midnight", Date: core.FormatTimestamp(time.Date(2025, 10, 1, 0, 10, 0, 0, rome))},
	}}

	local := NewExpenseService(store, Options{Now: fixedClock(now), Location: rome})
	utc := NewExpenseService(store, Options{Now: fixedClock(now), Location: time.UTC})
	for _, svc := range []*ExpenseService{local, utc} {
		if err := svc.EnsureSchema(ctx); err != nil {
			t.Fatalf("ensure schema: %v", err)
		}
	}

	categories := func(rows []core.Expense) []string {
		var out []string
		for _, r := range rows {
			out = append(out, r.Category)
		}
		return out
	}

	week, err := local.ListFiltered(ctx, core.WindowWeek)
	if err != nil {
		t.Fatalf("list week: %v", err)
	}
	if got := categories(week); len(got) != 1 || got[0] != "after-sunday-midnight" {
		t.Fatalf("unexpected local week rows: %v", got)
	}

	month, err := local.ListFiltered(ctx, core.WindowMonth)
	if err != nil {
		t.Fatalf("list month: %v", err)
	}
	if got := categories(month); len(got) != 3 {
		t.Fatalf("unexpected local month rows: %v", got)
	}

	// Aligned to UTC midnight the rows just after local midnight fall outside.
	if rows, _ := utc.ListFiltered(ctx, core.WindowWeek); len(rows) != 0 {
		t.Fatalf("utc week should be empty, got %v", categories(rows))
	}
	rows, _ := utc.ListFiltered(ctx, core.WindowMonth)
	if got := categories(rows); len(got) != 2 || got[1] != "before-sunday-midnight" {
		t.Fatalf("unexpected utc month rows: %v", got)
	}
}

func TestExpenseService_Close(t *testing.T) {
	svc := &ExpenseService{}
	if err := svc.Close(); err != nil {
		t.Fatalf("Close should not return error with nil store: %v", err)
	}
}

func TestPing(t *testing.T) {
	ctx := context.Background()
	svc := newSQLiteService(t, time.Now())
	if err := svc.Ping(ctx); err != nil {
		t.Fatalf("ping: %v", err)
	}
	if err := NewExpenseService(&fakeStore{}, Options{}).Ping(ctx); !errors.Is(err, ErrSchemaNotReady) {
		t.Fatalf("expected ErrSchemaNotReady, got %v", err)
	}
}
