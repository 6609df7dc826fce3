package core

import (
	"fmt"
	"time"
)

const (
	dateLayout     = "2006-01-02"
	monthKeyLayout = "2006-01"
	displayLayout  = "02/01/2006"
)

// Date is a calendar date without time component, held at UTC midnight.
type Date struct {
	time.Time
}

// MonthKey identifies a calendar month, rendered as YYYY-MM.
type MonthKey struct {
	Year  int
	Month time.Month
}

// NewDate creates a new Date from year, month, day
func NewDate(year int, month time.Month, day int) Date {
	return Date{Time: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates t to its calendar date in t's own location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return NewDate(y, m, d)
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return Date{}, fmt.Errorf("%w: %q", ErrInvalidDateFormat, s)
	}
	return Date{Time: t}, nil
}

func (d Date) Validate() error {
	if d.IsZero() {
		return fmt.Errorf("%w: missing date", ErrInvalidDateFormat)
	}
	return nil
}

// String renders YYYY-MM-DD.
func (d Date) String() string {
	return d.Format(dateLayout)
}

// Display renders the localized DD/MM/YYYY form.
func (d Date) Display() string {
	return d.Format(displayLayout)
}

// AddDays returns the date n days later (earlier for negative n).
func (d Date) AddDays(n int) Date {
	return Date{Time: d.Time.AddDate(0, 0, n)}
}

// Between reports whether from <= d <= to.
func (d Date) Between(from, to Date) bool {
	return !d.Before(from.Time) && !d.After(to.Time)
}

// ParseMonthKey parses a YYYY-MM month key.
func ParseMonthKey(s string) (MonthKey, error) {
	if len(s) != len(monthKeyLayout) {
		return MonthKey{}, fmt.Errorf("%w: month key %q, want YYYY-MM", ErrInvalidDateFormat, s)
	}
	t, err := time.Parse(monthKeyLayout, s)
	if err != nil {
		return MonthKey{}, fmt.Errorf("%w: month key %q, want YYYY-MM", ErrInvalidDateFormat, s)
	}
	return MonthKey{Year: t.Year(), Month: t.Month()}, nil
}

func MonthKeyOf(d Date) MonthKey {
	return MonthKey{Year: d.Year(), Month: d.Month()}
}

func (k MonthKey) String() string {
	return fmt.Sprintf("%04d-%02d", k.Year, int(k.Month))
}

// Range returns the first and last calendar day of the month, both inclusive.
func (k MonthKey) Range() (first, last Date) {
	first = NewDate(k.Year, k.Month, 1)
	// Day 0 of the following month normalizes to the last day of this one,
	// which also covers leap February and the December to January rollover.
	last = NewDate(k.Year, k.Month+1, 0)
	return first, last
}

// Next returns the following month.
func (k MonthKey) Next() MonthKey {
	first, _ := k.Range()
	return MonthKeyOf(Date{Time: first.AddDate(0, 1, 0)})
}
