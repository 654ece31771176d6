package core

import (
	"errors"
	"math"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type (
	// Expense is one recorded transaction as it is persisted.
	Expense struct {
		ID       int64
		Amount   decimal.Decimal
		Category string
		Note     *string // nil when absent, never empty
		Date     string  // canonical timestamp; empty for legacy rows without a date
	}

	// Draft is a validated expense that has not been stored yet.
	Draft struct {
		Amount   decimal.Decimal
		Category string
		Note     *string
		Date     string
	}
)

var (
	ErrInvalidAmount = errors.New("invalid amount")
	ErrEmptyCategory = errors.New("empty category")
	ErrUnknownWindow = errors.New("unknown window")
)

// ValidationError reports input that was rejected before touching storage.
type ValidationError struct {
	Field string
	Err   error
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Err.Error()
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// IsValidation reports whether err carries a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// ValidateAmount checks the amount > 0 invariant. Amounts are stored as REAL,
// so the value must also stay positive and finite as a float64.
func ValidateAmount(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return &ValidationError{Field: "amount", Err: ErrInvalidAmount}
	}
	if f := amount.InexactFloat64(); math.IsInf(f, 0) || f <= 0 {
		return &ValidationError{Field: "amount", Err: ErrInvalidAmount}
	}
	return nil
}

// NormalizeNote trims the note and maps blank input to nil.
func NormalizeNote(note *string) *string {
	if note == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*note)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

// NewDraft validates the user input and stamps the creation instant.
func NewDraft(amount decimal.Decimal, category string, note *string, now time.Time) (Draft, error) {
	if err := ValidateAmount(amount); err != nil {
		return Draft{}, err
	}
	category = strings.TrimSpace(category)
	if category == "" {
		return Draft{}, &ValidationError{Field: "category", Err: ErrEmptyCategory}
	}
	return Draft{
		Amount:   amount,
		Category: category,
		Note:     NormalizeNote(note),
		Date:     FormatTimestamp(now),
	}, nil
}

// HasDate reports whether the expense carries a creation timestamp.
func (e Expense) HasDate() bool {
	return strings.TrimSpace(e.Date) != ""
}

// NoteText returns the note or an empty string when absent.
func (e Expense) NoteText() string {
	if e.Note == nil {
		return ""
	}
	return *e.Note
}

// DisplayAmount formats the amount with two decimals.
func (e Expense) DisplayAmount() string {
	return e.Amount.StringFixed(2)
}

// LocalDay renders the creation date as a calendar day in loc.
// Missing or unparseable dates render as an empty string.
func (e Expense) LocalDay(loc *time.Location) string {
	if !e.HasDate() {
		return ""
	}
	t, err := ParseTimestamp(e.Date)
	if err != nil {
		return ""
	}
	if loc == nil {
		loc = time.Local
	}
	return t.In(loc).Format("2006-01-02")
}
