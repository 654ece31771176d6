package core

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func TestParseAmount(t *testing.T) {
	cases := []struct {
		in  string
		out string
		ok  bool
	}{
		{"1", "1", true},
		{"12.50", "12.5", true},
		{"12,50", "12.5", true},
		{" 2.50 ", "2.5", true},
		{"0.01", "0.01", true},
		{"-1", "", false},
		{"0", "", false},
		{"0.00", "", false},
		{"abc", "", false},
		{"1.2.3", "", false},
		{"NaN", "", false},
		{"Inf", "", false},
		{"", "", false},
		{"1e400", "", false},
		{"1e-400", "", false},
		{"1e308", "1e308", true},
	}
	for _, tc := range cases {
		got, err := ParseAmount(tc.in)
		if tc.ok {
			if err != nil || !got.Equal(decimal.RequireFromString(tc.out)) {
				t.Fatalf("%q expected %s, got %s (err=%v)", tc.in, tc.out, got, err)
			}
			continue
		}
		if !errors.Is(err, ErrInvalidAmount) {
			t.Fatalf("%q expected ErrInvalidAmount, got %v", tc.in, err)
		}
	}
}
