package calculation

import (
	"context"
	"sync"

	"github.com/rpgo/estimated-tax/internal/domain"
)

// DefaultBatchWorkers bounds how many estimates a batch computes at once.
const DefaultBatchWorkers = 8

// BatchResult is the outcome of one input in a batch, at the input's index.
// Exactly one of Result and Err is set.
type BatchResult struct {
	Index  int
	Input  domain.TaxEstimateInput
	Result *domain.TaxEstimateResult
	Err    error
}

// ComputeBatch runs ComputeEstimate for every input concurrently and returns
// the outcomes in input order. A failing input does not stop the others.
func (e *Engine) ComputeBatch(ctx context.Context, inputs []domain.TaxEstimateInput, workers int) []BatchResult {
	if workers <= 0 {
		workers = DefaultBatchWorkers
	}

	results := make([]BatchResult, len(inputs))
	var wg sync.WaitGroup
	semaphore := make(chan struct{}, workers)

	for i := range inputs {
		wg.Add(1)
		go func(index int) {
			defer wg.Done()
			semaphore <- struct{}{}
			defer func() { <-semaphore }()

			result, err := e.ComputeEstimate(ctx, inputs[index])
			results[index] = BatchResult{Index: index, Input: inputs[index], Result: result, Err: err}
		}(i)
	}

	wg.Wait()
	return results
}
