package money

import (
	"errors"
	"math"
	"testing"

	"github.com/shopspring/decimal"
)

func TestFromDecimal(t *testing.T) {
	tests := []struct {
		in   string
		want Cents
	}{
		{"12.34", 1234},
		{"0.01", 1},
		{"100", 10000},
		{"0.005", 1},
		{"0.004", 0},
		{"-20.50", -2050},
		{"999999.99", MaxAmount},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := FromDecimal(decimal.RequireFromString(tt.in)); got != tt.want {
				t.Errorf("FromDecimal(%s) = %d, want %d", tt.in, got, tt.want)
			}
		})
	}
}

func TestFromDecimal_SumIsExact(t *testing.T) {
	// 0.1 + 0.2 in floating point is not 0.3; in cents it must be.
	a := FromDecimal(decimal.RequireFromString("0.1"))
	b := FromDecimal(decimal.RequireFromString("0.2"))
	if a+b != 30 {
		t.Errorf("0.1 + 0.2 = %d cents, want 30", a+b)
	}
}

func TestParseDecimal(t *testing.T) {
	c, err := ParseDecimal("$1,234.56")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c != 123456 {
		t.Errorf("ParseDecimal = %d, want 123456", c)
	}

	for _, in := range []string{"abc", "  "} {
		if _, err := ParseDecimal(in); err == nil {
			t.Errorf("ParseDecimal(%q): expected an error", in)
		}
	}
}

func TestDecimal(t *testing.T) {
	if got := Cents(1234).Decimal().StringFixed(2); got != "12.34" {
		t.Errorf("Decimal() = %s, want 12.34", got)
	}
	if got := Cents(1234).Dollars(); math.Abs(got-12.34) > 0.0001 {
		t.Errorf("Dollars() = %v, want 12.34", got)
	}
}

func TestFormat(t *testing.T) {
	tests := []struct {
		in   Cents
		want string
	}{
		{0, "$0.00"},
		{5, "$0.05"},
		{1234, "$12.34"},
		{123456, "$1,234.56"},
		{MaxAmount, "$999,999.99"},
		{-2000, "-$20.00"},
	}
	for _, tt := range tests {
		if got := Format(tt.in); got != tt.want {
			t.Errorf("Format(%d) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestCompact(t *testing.T) {
	tests := []struct {
		in   Cents
		want string
	}{
		{99999, "$999.99"},
		{150000, "$1.5K"},
		{230000000, "$2.3M"},
		{-100000, "-$1.0K"},
	}
	for _, tt := range tests {
		if got := Compact(tt.in); got != tt.want {
			t.Errorf("Compact(%d) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestValidateRange(t *testing.T) {
	for _, c := range []Cents{1, MaxAmount} {
		if err := ValidateRange(c, 1, MaxAmount); err != nil {
			t.Errorf("ValidateRange(%d): unexpected error %v", c, err)
		}
	}
	for _, c := range []Cents{0, MaxAmount + 1} {
		if err := ValidateRange(c, 1, MaxAmount); !errors.Is(err, ErrOutOfRange) {
			t.Errorf("ValidateRange(%d) = %v, want ErrOutOfRange", c, err)
		}
	}
}

func TestPercent(t *testing.T) {
	if got := Percent(500, 1000); got != 50 {
		t.Errorf("Percent(500, 1000) = %v, want 50", got)
	}
	if Percent(500, 0) != 0 || Percent(500, -10) != 0 {
		t.Error("expected 0 for a non-positive total")
	}
}
