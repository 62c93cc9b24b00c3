package domain

import "errors"

// Sentinel errors shared by the engine and every repository backend.
// Callers match them with errors.Is; context is added by wrapping.
var (
	// ErrNotFound means a tax year, filing status, deduction row, bracket
	// set or stored estimate does not exist. It is never defaulted.
	ErrNotFound = errors.New("not found")

	// ErrBracketGap means no bracket covers a taxable-income value, which
	// points at malformed reference data rather than bad user input.
	ErrBracketGap = errors.New("no tax bracket covers taxable income")

	// ErrInvalidInput covers negative amounts where only non-negative ones
	// are meaningful and filing statuses missing from the catalog.
	ErrInvalidInput = errors.New("invalid input")

	// ErrInvalidReferenceData flags rate constants or bracket schedules
	// that violate their invariants.
	ErrInvalidReferenceData = errors.New("invalid reference data")
)
