// Package money holds the integer minor-unit representation used for every
// amount in the system and the conversions at its edges.
package money

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Cents is an amount in minor currency units. Arithmetic on Cents is exact.
type Cents int64

// MaxAmount is the largest amount accepted for a single expense or budget ($999,999.99).
const MaxAmount Cents = 99_999_999

// ErrOutOfRange is returned by ValidateRange.
var ErrOutOfRange = errors.New("amount out of range")

var printer = message.NewPrinter(language.English)

// FromDecimal converts a decimal amount in major units to Cents, rounding
// half away from zero at the second decimal place.
func FromDecimal(d decimal.Decimal) Cents {
	return Cents(d.Shift(2).Round(0).IntPart())
}

// ParseDecimal parses a human-entered amount such as "1,234.56" or "$12".
func ParseDecimal(s string) (Cents, error) {
	cleaned := strings.NewReplacer("$", "", ",", "", " ", "").Replace(strings.TrimSpace(s))
	if cleaned == "" {
		return 0, fmt.Errorf("parse amount %q: empty", s)
	}
	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return 0, fmt.Errorf("parse amount %q: %w", s, err)
	}
	return FromDecimal(d), nil
}

// Decimal returns the amount in major units.
func (c Cents) Decimal() decimal.Decimal {
	return decimal.New(int64(c), -2)
}

// Dollars returns the amount in major units as a float. Display only.
func (c Cents) Dollars() float64 {
	return c.Decimal().InexactFloat64()
}

// Abs returns the absolute value.
func (c Cents) Abs() Cents {
	if c < 0 {
		return -c
	}
	return c
}

// Format renders c as "$1,234.56"; negative amounts render as "-$1,234.56".
func Format(c Cents) string {
	sign := ""
	if c < 0 {
		sign = "-"
	}
	abs := int64(c.Abs())
	return fmt.Sprintf("%s$%s.%02d", sign, printer.Sprintf("%d", abs/100), abs%100)
}

// Compact renders large amounts with a K or M suffix ("$1.5K", "$2.3M").
func Compact(c Cents) string {
	abs := c.Abs()
	sign := ""
	if c < 0 {
		sign = "-"
	}
	switch {
	case abs >= 100_000_000:
		return sign + "$" + abs.Decimal().Div(decimal.NewFromInt(1_000_000)).StringFixed(1) + "M"
	case abs >= 100_000:
		return sign + "$" + abs.Decimal().Div(decimal.NewFromInt(1_000)).StringFixed(1) + "K"
	default:
		return Format(c)
	}
}

// ValidateRange reports an ErrOutOfRange error unless min <= c <= max.
func ValidateRange(c, min, max Cents) error {
	if c < min || c > max {
		return fmt.Errorf("%w: %s must be between %s and %s", ErrOutOfRange, Format(c), Format(min), Format(max))
	}
	return nil
}

// Percent returns part as a percentage of whole, or 0 when whole is not positive.
func Percent(part, whole Cents) float64 {
	if whole <= 0 {
		return 0
	}
	return float64(part) * 100 / float64(whole)
}
