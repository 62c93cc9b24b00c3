// Package memory is an in-process repository backend. It is the default for
// the CLI and for tests; nothing survives Close.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/rpgo/estimated-tax/internal/domain"
	"github.com/rpgo/estimated-tax/internal/repository"
	"github.com/shopspring/decimal"
)

// BackendName is the registry key for this backend.
const BackendName = "memory"

type scheduleKey struct {
	year   int
	status domain.FilingStatusCode
}

// Store keeps reference data and estimates in maps guarded by one RWMutex.
// Every getter returns copies so callers cannot mutate stored state.
type Store struct {
	mu         sync.RWMutex
	years      map[int]domain.TaxYearConfig
	statuses   map[domain.FilingStatusCode]domain.FilingStatus
	deductions map[scheduleKey]decimal.Decimal
	brackets   map[scheduleKey][]domain.TaxBracket
	estimates  map[uuid.UUID]domain.Estimate
}

var _ repository.Repository = (*Store)(nil)

// New returns an empty store.
func New() *Store {
	return &Store{
		years:      make(map[int]domain.TaxYearConfig),
		statuses:   make(map[domain.FilingStatusCode]domain.FilingStatus),
		deductions: make(map[scheduleKey]decimal.Decimal),
		brackets:   make(map[scheduleKey][]domain.TaxBracket),
		estimates:  make(map[uuid.UUID]domain.Estimate),
	}
}

// Factory registers the memory backend with a repository.Registry.
type Factory struct{}

func (Factory) Backend() string { return BackendName }

func (Factory) Open(ctx context.Context, _ repository.DBConfig) (repository.Repository, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return New(), nil
}

func (s *Store) Close() error { return nil }

func (s *Store) GetTaxYearConfig(ctx context.Context, year int) (domain.TaxYearConfig, error) {
	if err := ctx.Err(); err != nil {
		return domain.TaxYearConfig{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	cfg, ok := s.years[year]
	if !ok {
		return domain.TaxYearConfig{}, fmt.Errorf("tax year %d: %w", year, domain.ErrNotFound)
	}
	return cfg, nil
}

func (s *Store) ListTaxYears(ctx context.Context) ([]int, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	years := make([]int, 0, len(s.years))
	for y := range s.years {
		years = append(years, y)
	}
	sort.Sort(sort.Reverse(sort.IntSlice(years)))
	return years, nil
}

func (s *Store) ListFilingStatuses(ctx context.Context) ([]domain.FilingStatus, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.FilingStatus, 0, len(s.statuses))
	for _, fs := range s.statuses {
		out = append(out, fs)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) GetStandardDeduction(ctx context.Context, year int, status domain.FilingStatusCode) (decimal.Decimal, error) {
	if err := ctx.Err(); err != nil {
		return decimal.Zero, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	amount, ok := s.deductions[scheduleKey{year, status}]
	if !ok {
		return decimal.Zero, fmt.Errorf("standard deduction %d/%s: %w", year, status, domain.ErrNotFound)
	}
	return amount, nil
}

func (s *Store) GetTaxBrackets(ctx context.Context, year int, status domain.FilingStatusCode) ([]domain.TaxBracket, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	stored := s.brackets[scheduleKey{year, status}]
	if len(stored) == 0 {
		return nil, fmt.Errorf("tax brackets %d/%s: %w", year, status, domain.ErrNotFound)
	}
	return cloneBrackets(stored), nil
}

func (s *Store) PutTaxYearConfig(ctx context.Context, cfg domain.TaxYearConfig) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.years[cfg.TaxYear] = cfg
	return nil
}

func (s *Store) PutFilingStatus(ctx context.Context, status domain.FilingStatus) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for code, existing := range s.statuses {
		if existing.ID == status.ID && code != status.Code {
			return fmt.Errorf("%w: filing status id %d already used by %s", domain.ErrInvalidReferenceData, status.ID, code)
		}
	}
	s.statuses[status.Code] = status
	return nil
}

func (s *Store) PutStandardDeduction(ctx context.Context, d domain.StandardDeduction) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkScheduleKey(d.TaxYear, d.FilingStatus); err != nil {
		return err
	}
	s.deductions[scheduleKey{d.TaxYear, d.FilingStatus}] = d.Amount
	return nil
}

func (s *Store) ReplaceTaxBrackets(ctx context.Context, year int, status domain.FilingStatusCode, brackets []domain.TaxBracket) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkScheduleKey(year, status); err != nil {
		return err
	}
	sorted := cloneBrackets(brackets)
	for i := range sorted {
		sorted[i].TaxYear = year
		sorted[i].FilingStatus = status
	}
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].MinIncome.LessThan(sorted[j].MinIncome) })
	s.brackets[scheduleKey{year, status}] = sorted
	return nil
}

// checkScheduleKey must be called with the write lock held.
func (s *Store) checkScheduleKey(year int, status domain.FilingStatusCode) error {
	if _, ok := s.years[year]; !ok {
		return fmt.Errorf("tax year %d: %w", year, domain.ErrNotFound)
	}
	if _, ok := s.statuses[status]; !ok {
		return fmt.Errorf("filing status %s: %w", status, domain.ErrNotFound)
	}
	return nil
}

func (s *Store) SaveEstimate(ctx context.Context, e *domain.Estimate) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if e == nil || e.ID == uuid.Nil {
		return fmt.Errorf("%w: estimate must have an id", domain.ErrInvalidInput)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.estimates[e.ID] = cloneEstimate(*e)
	return nil
}

func (s *Store) GetEstimate(ctx context.Context, id uuid.UUID) (*domain.Estimate, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.estimates[id]
	if !ok {
		return nil, fmt.Errorf("estimate %s: %w", id, domain.ErrNotFound)
	}
	out := cloneEstimate(e)
	return &out, nil
}

func (s *Store) ListEstimates(ctx context.Context, year *int) ([]domain.Estimate, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Estimate, 0, len(s.estimates))
	for _, e := range s.estimates {
		if year != nil && e.Input.TaxYear != *year {
			continue
		}
		out = append(out, cloneEstimate(e))
	}
	// UUIDv7 ids sort by creation time
	sort.Slice(out, func(i, j int) bool { return out[i].ID.String() < out[j].ID.String() })
	return out, nil
}

func (s *Store) DeleteEstimate(ctx context.Context, id uuid.UUID) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.estimates[id]; !ok {
		return fmt.Errorf("estimate %s: %w", id, domain.ErrNotFound)
	}
	delete(s.estimates, id)
	return nil
}

func cloneBrackets(in []domain.TaxBracket) []domain.TaxBracket {
	out := make([]domain.TaxBracket, len(in))
	for i, b := range in {
		if b.MaxIncome != nil {
			hi := *b.MaxIncome
			b.MaxIncome = &hi
		}
		out[i] = b
	}
	return out
}

func cloneDecimal(d *decimal.Decimal) *decimal.Decimal {
	if d == nil {
		return nil
	}
	v := *d
	return &v
}

func cloneEstimate(e domain.Estimate) domain.Estimate {
	in := &e.Input
	in.ExpectedDeduction = cloneDecimal(in.ExpectedDeduction)
	in.ExpectedQBIDeduction = cloneDecimal(in.ExpectedQBIDeduction)
	in.ExpectedAMT = cloneDecimal(in.ExpectedAMT)
	in.ExpectedCredits = cloneDecimal(in.ExpectedCredits)
	in.ExpectedOtherTaxes = cloneDecimal(in.ExpectedOtherTaxes)
	in.ExpectedWithholding = cloneDecimal(in.ExpectedWithholding)
	in.PriorYearTax = cloneDecimal(in.PriorYearTax)
	in.SEIncome = cloneDecimal(in.SEIncome)
	in.ExpectedCRPPayments = cloneDecimal(in.ExpectedCRPPayments)
	in.ExpectedWages = cloneDecimal(in.ExpectedWages)
	return e
}
