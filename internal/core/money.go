// Package core provides money parsing and handling utilities.
//
// Amounts are kept as integer cents; conversions to and from text and
// percentages go through shopspring/decimal.
package core

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

var ErrInvalidAmount = errors.New("invalid amount")

type Money struct {
	Cents int64
}

var hundred = decimal.NewFromInt(100)

// NewMoneyFromDecimal rounds d half away from zero to whole cents. Amounts
// whose cents do not fit in an int64 fail with ErrInvalidAmount.
func NewMoneyFromDecimal(d decimal.Decimal) (Money, error) {
	cents := d.Mul(hundred).Round(0)
	if !cents.BigInt().IsInt64() {
		return Money{}, ErrInvalidAmount
	}
	return Money{Cents: cents.IntPart()}, nil
}

// Reais is a convenience constructor for whole amounts.
func Reais(units int64) Money {
	return Money{Cents: units * 100}
}

// ParseDecimalToCents converts a decimal string to cents with half-up rounding.
//
// Both dot (12.34) and comma (12,34) decimal separators are accepted. The
// result must be strictly positive.
//
// Examples:
//
//	ParseDecimalToCents("12.34") -> 1234, nil
//	ParseDecimalToCents("12,34") -> 1234, nil
//	ParseDecimalToCents("1.005") -> 101, nil
func ParseDecimalToCents(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" || strings.HasPrefix(s, "+") || strings.HasPrefix(s, "-") {
		return 0, ErrInvalidAmount
	}
	s = strings.ReplaceAll(s, ",", ".")
	if strings.Count(s, ".") > 1 || strings.ContainsAny(s, "eE") {
		return 0, ErrInvalidAmount
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, ErrInvalidAmount
	}
	m, err := NewMoneyFromDecimal(d)
	if err != nil || m.Cents <= 0 {
		return 0, ErrInvalidAmount
	}
	return m.Cents, nil
}

// ParseBRL parses an amount written the Brazilian way ("1.234,56") or with a
// plain dot decimal separator ("1234.56"). A leading "R$" is ignored.
func ParseBRL(s string) (Money, error) {
	s = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(s), "R$"))
	if strings.Contains(s, ",") {
		s = strings.ReplaceAll(s, ".", "")
	}
	cents, err := ParseDecimalToCents(s)
	if err != nil {
		return Money{}, err
	}
	return Money{Cents: cents}, nil
}

func (m Money) Validate() error {
	if m.Cents <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

func (m Money) Add(o Money) Money { return Money{Cents: m.Cents + o.Cents} }
func (m Money) Sub(o Money) Money { return Money{Cents: m.Cents - o.Cents} }

func (m Money) IsZero() bool     { return m.Cents == 0 }
func (m Money) IsPositive() bool { return m.Cents > 0 }
func (m Money) IsNegative() bool { return m.Cents < 0 }

// Decimal returns the amount in currency units.
func (m Money) Decimal() decimal.Decimal {
	return decimal.New(m.Cents, -2)
}

// String renders the amount with two decimals and a dot separator.
func (m Money) String() string {
	return m.Decimal().StringFixed(2)
}

// Percent returns m as a percentage of total, rounded to two decimals.
// A non-positive total yields zero.
func (m Money) Percent(total Money) decimal.Decimal {
	if total.Cents <= 0 {
		return decimal.Zero
	}
	return decimal.NewFromInt(m.Cents).Mul(hundred).Div(decimal.NewFromInt(total.Cents)).Round(2)
}

// BRL formats the amount as Brazilian Real, e.g. "R$ 1.234,56".
func (m Money) BRL() string {
	cents := m.Cents
	neg := cents < 0
	if neg {
		cents = -cents
	}
	units := strconv.FormatInt(cents/100, 10)
	var b strings.Builder
	for i, r := range units {
		if i > 0 && (len(units)-i)%3 == 0 {
			b.WriteByte('.')
		}
		b.WriteRune(r)
	}
	out := fmt.Sprintf("R$ %s,%02d", b.String(), cents%100)
	if neg {
		return "-" + out
	}
	return out
}

func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalJSON accepts a JSON number or a quoted decimal string.
func (m *Money) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*m = Money{}
		return nil
	}
	var d decimal.Decimal
	if err := d.UnmarshalJSON(data); err != nil {
		return ErrInvalidAmount
	}
	v, err := NewMoneyFromDecimal(d)
	if err != nil {
		return err
	}
	*m = v
	return nil
}
