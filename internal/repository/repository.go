// Package repository defines the storage boundary of the estimate engine.
//
// The engine depends only on ReferenceData. Backends (memory, sqlite,
// postgres) implement the full Repository and are chosen at runtime through
// a Registry, so calculation code never knows which one is active.
// Missing records are reported by wrapping domain.ErrNotFound.
package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/rpgo/estimated-tax/internal/domain"
	"github.com/shopspring/decimal"
)

// ReferenceData is the read-only, year-scoped lookup the engine consumes.
type ReferenceData interface {
	GetTaxYearConfig(ctx context.Context, year int) (domain.TaxYearConfig, error)
	// ListTaxYears returns seeded years, newest first.
	ListTaxYears(ctx context.Context) ([]int, error)
	// ListFilingStatuses returns the catalog ordered by ID.
	ListFilingStatuses(ctx context.Context) ([]domain.FilingStatus, error)
	GetStandardDeduction(ctx context.Context, year int, status domain.FilingStatusCode) (decimal.Decimal, error)
	// GetTaxBrackets returns the schedule sorted ascending by MinIncome.
	// An empty schedule is reported as not found.
	GetTaxBrackets(ctx context.Context, year int, status domain.FilingStatusCode) ([]domain.TaxBracket, error)
}

// ReferenceWriter materializes reference documents into a backend.
// Writes for a year or status that has not been seeded fail with ErrNotFound.
type ReferenceWriter interface {
	PutTaxYearConfig(ctx context.Context, cfg domain.TaxYearConfig) error
	PutFilingStatus(ctx context.Context, status domain.FilingStatus) error
	PutStandardDeduction(ctx context.Context, deduction domain.StandardDeduction) error
	// ReplaceTaxBrackets deletes the schedule for (year, status) and inserts
	// the given brackets, so reloading the same data is idempotent.
	ReplaceTaxBrackets(ctx context.Context, year int, status domain.FilingStatusCode, brackets []domain.TaxBracket) error
}

// EstimateStore persists computed estimates under caller-assigned IDs.
type EstimateStore interface {
	SaveEstimate(ctx context.Context, estimate *domain.Estimate) error
	GetEstimate(ctx context.Context, id uuid.UUID) (*domain.Estimate, error)
	// ListEstimates returns estimates oldest first, optionally for one year.
	ListEstimates(ctx context.Context, year *int) ([]domain.Estimate, error)
	DeleteEstimate(ctx context.Context, id uuid.UUID) error
}

// Repository is the full contract every backend implements.
type Repository interface {
	ReferenceData
	ReferenceWriter
	EstimateStore
	Close() error
}
