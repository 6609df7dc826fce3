package core

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestTransactionValidate(t *testing.T) {
	good := Transaction{
		Direction:   Expense,
		Amount:      Money{Cents: 100},
		Description: "ok",
		Date:        NewDate(2025, 1, 1),
	}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	zeroAmount := good
	zeroAmount.Amount = Money{}
	if err := zeroAmount.Validate(); err != nil {
		t.Fatalf("zero amount should be valid, got %v", err)
	}

	bads := []struct {
		tx   Transaction
		want error
	}{
		{Transaction{Direction: "transfer", Amount: Money{Cents: 1}, Date: NewDate(2025, 1, 1)}, ErrInvalidInput},
		{Transaction{Direction: Income, Amount: Money{Cents: -1}, Date: NewDate(2025, 1, 1)}, ErrInvalidAmount},
		{Transaction{Direction: Income, Amount: Money{Cents: 1}, Date: NewDate(2025, 1, 1), Description: strings.Repeat("x", 201)}, ErrInvalidInput},
	}
	for i, tc := range bads {
		if err := tc.tx.Validate(); !errors.Is(err, tc.want) {
			t.Fatalf("case %d expected %v, got %v", i, tc.want, err)
		}
	}
	if err := (Transaction{Direction: Income}).Validate(); err == nil {
		t.Fatal("expected error for zero date")
	}
}

func TestTransactionView(t *testing.T) {
	v := Transaction{Direction: Expense, Amount: Money{Cents: 25050}, Date: NewDate(2024, time.March, 10)}.View()
	if v.SignedAmount != "-250.50" || v.DisplayDate != "10/03/2024" || v.MonthKey != "2024-03" {
		t.Fatalf("unexpected view %+v", v)
	}
	v = Transaction{Direction: Income, Amount: Money{Cents: 100000}, Date: NewDate(2024, time.March, 5)}.View()
	if v.SignedAmount != "+1000.00" {
		t.Fatalf("SignedAmount = %q", v.SignedAmount)
	}
}

func TestNamedEntityValidate(t *testing.T) {
	if err := (Account{Name: "Checking"}).Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if err := (Account{Name: "   "}).Validate(); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
	if err := (CategoryGroup{Name: "Salary", Direction: Income}).Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if err := (CategoryGroup{Name: "Salary"}).Validate(); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for missing direction, got %v", err)
	}
	if err := (User{Username: "ana", Role: "root"}).Validate(); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for role, got %v", err)
	}
}
