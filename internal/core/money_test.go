package core

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestParseAmount(t *testing.T) {
	cases := []struct {
		in  string
		out int64
		ok  bool
	}{
		{"1", 100, true},
		{"1.0", 100, true},
		{"1.23", 123, true},
		{"1,23", 123, true},
		{"0.01", 1, true},
		{"1.005", 101, true}, // half away from zero
		{"1.004", 100, true},
		{" 2.50 ", 250, true},
		{"0", 0, true},
		{"1000.00", 100000, true},
		{"-1", 0, false},
		{"-0.01", 0, false},
		{"abc", 0, false},
		{"1.2.3", 0, false},
		{"", 0, false},
		{"9999999999.99", MaxAmountCents, true},
		{"9999999999.994", MaxAmountCents, true},
		{"9999999999.995", 0, false},
		{"10000000000", 0, false},
		{"92233720368547758.07", 0, false},
		{"1e10", 0, false},
		{"5e2", 50000, true},
		{"0e100", 0, true},
	}
	for _, tc := range cases {
		got, err := ParseAmount(tc.in)
		if tc.ok {
			if err != nil || got.Cents != tc.out {
				t.Fatalf("%q expected %d, got %d (err=%v)", tc.in, tc.out, got.Cents, err)
			}
		} else if err == nil {
			t.Fatalf("%q expected error", tc.in)
		}
	}
}

func TestMoneyFormatting(t *testing.T) {
	cases := []struct {
		m      Money
		plain  string
		income string
		spent  string
	}{
		{Money{Cents: 74950}, "749.50", "+749.50", "-749.50"},
		{Money{Cents: 0}, "0.00", "+0.00", "-0.00"},
		{Money{Cents: 5}, "0.05", "+0.05", "-0.05"},
		{Money{Cents: -2550}, "-25.50", "+25.50", "-25.50"},
	}
	for _, tc := range cases {
		if got := tc.m.String(); got != tc.plain {
			t.Errorf("String(%d) = %q, want %q", tc.m.Cents, got, tc.plain)
		}
		if got := tc.m.Signed(Income); got != tc.income {
			t.Errorf("Signed(%d, income) = %q, want %q", tc.m.Cents, got, tc.income)
		}
		if got := tc.m.Signed(Expense); got != tc.spent {
			t.Errorf("Signed(%d, expense) = %q, want %q", tc.m.Cents, got, tc.spent)
		}
	}
}

func TestMoneyValidate(t *testing.T) {
	if err := (Money{Cents: 0}).Validate(); err != nil {
		t.Fatalf("expected zero to be valid, got %v", err)
	}
	if err := (Money{Cents: -1}).Validate(); err != ErrInvalidAmount {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}
}

func TestFromDecimal_HugeExponentsFailFast(t *testing.T) {
	for _, in := range []string{"1e20000000", "1e2000000000", "1e-2000000000", "-1e2000000000"} {
		d, err := decimal.NewFromString(in)
		if err != nil {
			t.Fatalf("NewFromString(%q): %v", in, err)
		}
		start := time.Now()
		_, err = FromDecimal(d)
		if !errors.Is(err, ErrInvalidAmount) {
			t.Fatalf("FromDecimal(%s) error = %v, want ErrInvalidAmount", in, err)
		}
		if elapsed := time.Since(start); elapsed > 100*time.Millisecond {
			t.Fatalf("FromDecimal(%s) took %v", in, elapsed)
		}
	}
}

func TestMaxAmountSumsDoNotOverflow(t *testing.T) {
	top, err := ParseAmount("9999999999.99")
	if err != nil {
		t.Fatalf("ParseAmount(max): %v", err)
	}
	var total Money
	for i := 0; i < 1000; i++ {
		total = total.Add(top)
	}
	if want := "9999999999990.00"; total.String() != want {
		t.Fatalf("sum of 1000 max amounts = %s, want %s", total, want)
	}

	txs := []Transaction{
		{Direction: Income, Amount: top},
		{Direction: Income, Amount: top},
	}
	if got, want := Balance(txs).String(), "19999999999.98"; got != want {
		t.Fatalf("Balance(two max incomes) = %s, want %s", got, want)
	}
}
