package output

import (
	"fmt"
	"io"
	"strings"

	"github.com/rpgo/estimated-tax/internal/domain"
)

// LookupFormatter resolves a format name or alias, failing with
// ErrUnsupportedFormat and the list of valid names.
func LookupFormatter(format string) (Formatter, error) {
	if f := GetFormatterByName(format); f != nil {
		return f, nil
	}
	// enrich error with available formatters and aliases
	return nil, fmt.Errorf("%w: %q. Try one of: %s (aliases: %s)", ErrUnsupportedFormat, format, strings.Join(AvailableFormatterNames(), ", "), strings.Join(AvailableFormatAliases(), ", "))
}

// GenerateReport renders estimates with the named formatter and writes them to w.
func GenerateReport(w io.Writer, estimates []domain.Estimate, format string) error {
	f, err := LookupFormatter(format)
	if err != nil {
		return err
	}
	data, err := f.Format(estimates)
	if err != nil {
		return fmt.Errorf("failed to format %s report: %w", f.Name(), err)
	}
	_, err = w.Write(data)
	return err
}
