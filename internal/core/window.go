package core

import (
	"strings"
	"time"
)

// Window names a date range used to subset stored expenses.
type Window string

const (
	WindowAll   Window = "all"
	WindowWeek  Window = "week"
	WindowMonth Window = "month"
)

// Windows lists the supported windows in display order.
var Windows = []Window{WindowAll, WindowWeek, WindowMonth}

// TimestampLayout is the canonical, lexically sortable UTC form of Expense.Date.
const TimestampLayout = "2006-01-02T15:04:05.000Z07:00"

// legacy layouts that older rows or hand edits may carry
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04",
	"2006-01-02",
}

// ParseWindow maps a user supplied name to a Window; an empty name means all.
func ParseWindow(s string) (Window, error) {
	switch w := Window(strings.ToLower(strings.TrimSpace(s))); w {
	case "":
		return WindowAll, nil
	case WindowAll, WindowWeek, WindowMonth:
		return w, nil
	default:
		return "", &ValidationError{Field: "window", Err: ErrUnknownWindow}
	}
}

// FormatTimestamp renders t in the canonical layout, always in UTC.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

// ParseTimestamp parses a stored date. Values without a zone are read as UTC.
func ParseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	var lastErr error
	for _, layout := range timestampLayouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			return t, nil
		}
		lastErr = err
	}
	return time.Time{}, lastErr
}

// ComputeWindowBounds returns the inclusive [start, end] range of w at instant now.
// Midnights are taken in now's location. WindowAll yields a zero start.
func ComputeWindowBounds(w Window, now time.Time, weekStart time.Weekday) (start, end time.Time) {
	y, m, d := now.Date()
	loc := now.Location()
	switch w {
	case WindowWeek:
		offset := (int(now.Weekday()) - int(weekStart) + 7) % 7
		start = time.Date(y, m, d-offset, 0, 0, 0, 0, loc)
	case WindowMonth:
		start = time.Date(y, m, 1, 0, 0, 0, 0, loc)
	}
	return start, now
}

// FilterByWindow keeps the expenses whose date falls within w, preserving order.
//
// Expenses without a date are always kept; expenses whose date does not
// parse are dropped.
func FilterByWindow(rows []Expense, w Window, now time.Time, weekStart time.Weekday) []Expense {
	if w == WindowAll || w == "" {
		return rows
	}
	start, end := ComputeWindowBounds(w, now, weekStart)
	out := make([]Expense, 0, len(rows))
	for _, e := range rows {
		if !e.HasDate() {
			out = append(out, e)
			continue
		}
		t, err := ParseTimestamp(e.Date)
		if err != nil {
			continue
		}
		if t.Before(start) || t.After(end) {
			continue
		}
		out = append(out, e)
	}
	return out
}
