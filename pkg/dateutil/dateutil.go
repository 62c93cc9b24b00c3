// Package dateutil holds calendar helpers for tax-year arithmetic.
package dateutil

import (
	"time"
)

// TaxYear returns the calendar tax year containing t. Individual filers
// use calendar years, so this is the year of t in its own location.
func TaxYear(t time.Time) int {
	return t.Year()
}

// CurrentTaxYear is TaxYear(time.Now()).
func CurrentTaxYear() int {
	return TaxYear(time.Now())
}

// InTaxYear reports whether t falls inside the given tax year.
func InTaxYear(t time.Time, year int) bool {
	start := BeginningOfYear(time.Date(year, 1, 1, 0, 0, 0, 0, t.Location()))
	return !t.Before(start) && !t.After(EndOfYear(start))
}

// EndOfYear returns the last day of the year for a given date
func EndOfYear(date time.Time) time.Time {
	return time.Date(date.Year(), 12, 31, 23, 59, 59, 999999999, date.Location())
}

// BeginningOfYear returns the first day of the year for a given date
func BeginningOfYear(date time.Time) time.Time {
	return time.Date(date.Year(), 1, 1, 0, 0, 0, 0, date.Location())
}
