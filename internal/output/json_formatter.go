package output

import (
	"encoding/json"

	"github.com/rpgo/estimated-tax/internal/domain"
)

// JSONFormatter serializes the estimates as pretty-printed JSON.
type JSONFormatter struct{}

func (j JSONFormatter) Name() string { return "json" }

func (j JSONFormatter) Format(estimates []domain.Estimate) ([]byte, error) {
	if estimates == nil {
		estimates = []domain.Estimate{}
	}
	return json.MarshalIndent(estimates, "", "  ")
}
