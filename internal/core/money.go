// Package core provides money parsing and handling utilities.
//
// Amounts are held as integer cents. Parsing and formatting go through
// shopspring/decimal so no float arithmetic touches stored values.
package core

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// MaxAmountCents is the largest accepted amount, 9,999,999,999.99. Sums of
// per-user transactions stay far below the int64 range.
const MaxAmountCents = 999_999_999_999

const (
	maxIntegerDigits = 10
	minExponent      = -20
)

var maxAmount = decimal.New(MaxAmountCents, 0)

type Money struct {
	Cents int64
}

// ParseAmount converts a decimal string to Money.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators and rounds
// half away from zero to two fractional digits. Negative values are rejected;
// zero is a valid amount.
//
// Examples:
//
//	ParseAmount("12.34")  -> 1234 cents
//	ParseAmount("12,345") -> 1235 cents
//	ParseAmount("0")      -> 0 cents
//	ParseAmount("-1")     -> ErrInvalidAmount
func ParseAmount(s string) (Money, error) {
	s = strings.TrimSpace(strings.ReplaceAll(s, ",", "."))
	if s == "" {
		return Money{}, ErrInvalidAmount
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Money{}, ErrInvalidAmount
	}
	return FromDecimal(d)
}

// FromDecimal rounds d to cents. Negative values and values above
// MaxAmountCents fail. The magnitude is checked on the exponent before
// rounding, which would otherwise expand the coefficient.
func FromDecimal(d decimal.Decimal) (Money, error) {
	if d.IsNegative() {
		return Money{}, fmt.Errorf("%w: negative amount", ErrInvalidAmount)
	}
	if d.IsZero() {
		return Money{}, nil
	}
	exp := int(d.Exponent())
	if exp < minExponent || d.NumDigits()+exp > maxIntegerDigits {
		return Money{}, fmt.Errorf("%w: amount out of range", ErrInvalidAmount)
	}
	cents := d.Round(2).Shift(2)
	if cents.GreaterThan(maxAmount) {
		return Money{}, fmt.Errorf("%w: amount above %s", ErrInvalidAmount, Money{Cents: MaxAmountCents})
	}
	return Money{Cents: cents.IntPart()}, nil
}

func (m Money) Validate() error {
	if m.Cents < 0 {
		return ErrInvalidAmount
	}
	return nil
}

func (m Money) Decimal() decimal.Decimal {
	return decimal.New(m.Cents, -2)
}

// String renders the amount with exactly two fractional digits, e.g. "749.50".
func (m Money) String() string {
	return m.Decimal().StringFixed(2)
}

// Signed renders the amount prefixed with + for income and - for expense.
func (m Money) Signed(d Direction) string {
	abs := m
	if abs.Cents < 0 {
		abs.Cents = -abs.Cents
	}
	if d == Income {
		return "+" + abs.String()
	}
	return "-" + abs.String()
}

func (m Money) Add(o Money) Money {
	return Money{Cents: m.Cents + o.Cents}
}

func (m Money) Sub(o Money) Money {
	return Money{Cents: m.Cents - o.Cents}
}
