package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rpgo/estimated-tax/internal/config"
	"github.com/rpgo/estimated-tax/internal/domain"
	"github.com/rpgo/estimated-tax/internal/output"
	"github.com/rpgo/estimated-tax/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const singleInput = "tax_year: 2025\n" +
	"filing_status: S\n" +
	"expected_agi: 60000\n" +
	"expected_deduction: 15000\n" +
	"expected_withholding: 0\n"

// isolate clears TAXEST_* variables and returns flags that point the
// command at a missing env file.
func isolate(t *testing.T) []string {
	t.Helper()
	for _, key := range []string{config.EnvBackend, config.EnvDSN, config.EnvLogLevel, config.EnvLogFormat} {
		t.Setenv(key, "")
		require.NoError(t, os.Unsetenv(key))
	}
	return []string{"--env-file", filepath.Join(t.TempDir(), "missing.env")}
}

func run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	err := Run(context.Background(), append(isolate(t), args...), &stdout, &stderr)
	return stdout.String(), stderr.String(), err
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func sqliteFlags(t *testing.T) []string {
	t.Helper()
	return []string{"--backend", "sqlite", "--dsn", filepath.Join(t.TempDir(), "taxest.db")}
}

func TestCalculate_MemoryBackend(t *testing.T) {
	stdout, _, err := run(t, "calculate", "-i", writeFile(t, "in.yaml", singleInput))
	require.NoError(t, err)

	assert.Contains(t, stdout, "1040-ES ESTIMATE 2025  Single (S)")
	assert.Contains(t, stdout, "Total Estimated Tax:     $5,161.50")
	assert.Contains(t, stdout, "Quarterly Installment:   $1,290.38")
	assert.NotContains(t, stdout, "Estimate ID:")
}

func TestCalculate_WarnsForPastYear(t *testing.T) {
	past := strings.Replace(singleInput, "2025", "2024", 1)
	_, stderr, err := run(t, "calculate", "-i", writeFile(t, "in.yaml", past))
	require.NoError(t, err)
	assert.Contains(t, stderr, "tax year 2024 has already ended")
}

func TestCalculate_FormatsAndReportDir(t *testing.T) {
	dir := t.TempDir()
	stdout, _, err := run(t, "--log-level", "error", "calculate",
		"-i", writeFile(t, "in.yaml", singleInput), "-f", "json-pretty", "--report-dir", dir)
	require.NoError(t, err)

	var estimates []domain.Estimate
	require.NoError(t, json.Unmarshal([]byte(stdout), &estimates))
	require.Len(t, estimates, 1)
	assert.Equal(t, "5161.5", estimates[0].Result.CalculatedTotalTax.String())

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.True(t, strings.HasSuffix(entries[0].Name(), ".json"))
}

func TestCalculate_Errors(t *testing.T) {
	input := writeFile(t, "in.yaml", singleInput)

	tests := []struct {
		name     string
		args     []string
		target   error
		exitCode int
	}{
		{"unknown format", []string{"calculate", "-i", input, "-f", "pdf"}, output.ErrUnsupportedFormat, 2},
		{"invalid input", []string{"calculate", "-i", writeFile(t, "bad.yaml", "tax_year: 2025\nfiling_status: XX\nexpected_agi: 1\n")}, domain.ErrInvalidInput, 2},
		{"missing year", []string{"calculate", "-i", writeFile(t, "old.yaml", "tax_year: 1999\nfiling_status: S\nexpected_agi: 1\n")}, domain.ErrNotFound, 1},
		{"unknown backend", []string{"--backend", "mongo", "calculate", "-i", input}, repository.ErrUnknownBackend, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := run(t, tt.args...)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.target)
			assert.Equal(t, tt.exitCode, ExitCode(err))
		})
	}
}

func TestBatch(t *testing.T) {
	csv := "tax_year,filing_status,expected_agi,expected_deduction\n" +
		"2025,S,60000,15000\n" +
		"1999,S,60000,15000\n" +
		"2025,MFJ,130000,\n"
	input := writeFile(t, "batch.csv", csv)

	t.Run("stops at first failed row", func(t *testing.T) {
		_, _, err := run(t, "batch", "-i", input)
		var rowErr *config.RowError
		require.True(t, errors.As(err, &rowErr))
		assert.Equal(t, 2, rowErr.Row)
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("keep going", func(t *testing.T) {
		stdout, stderr, err := run(t, "batch", "-i", input, "--keep-going", "--workers", "2")
		require.EqualError(t, err, "1 of 3 rows failed")
		assert.Contains(t, stderr, "row 2")

		lines := strings.Split(strings.TrimSpace(stdout), "\n")
		require.Len(t, lines, 3)
		assert.True(t, strings.HasPrefix(lines[0], "id,tax_year,filing_status"))
		assert.Contains(t, lines[1], ",2025,S,")
		assert.Contains(t, lines[2], ",2025,MFJ,")
	})
}

func TestReferenceCommands(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want []string
	}{
		{"years", []string{"reference", "years"}, []string{"2024", "2025", "$176,100.00", "92.35%"}},
		{"statuses", []string{"reference", "statuses"}, []string{"MFJ", "Qualifying Surviving Spouse"}},
		{"brackets", []string{"reference", "brackets", "-y", "2025", "-s", "s"}, []string{"$11,925.00", "$1,192.50", "12.00%"}},
		{"deduction", []string{"reference", "deduction", "-y", "2025", "-s", "mfj"}, []string{"2025 Married Filing Jointly standard deduction: $30,000.00"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stdout, _, err := run(t, tt.args...)
			require.NoError(t, err)
			for _, want := range tt.want {
				assert.Contains(t, stdout, want)
			}
		})
	}

	_, _, err := run(t, "reference", "deduction", "-y", "2025", "-s", "joint")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestSavedEstimates_SQLite(t *testing.T) {
	db := sqliteFlags(t)
	input := writeFile(t, "in.yaml", singleInput)
	quiet := append([]string{"--log-level", "error"}, db...)

	_, _, err := run(t, append(quiet, "calculate", "-i", input)...)
	require.ErrorIs(t, err, domain.ErrNotFound, "an unseeded database has no reference data")

	stdout, _, err := run(t, append(quiet, "seed")...)
	require.NoError(t, err)
	assert.Contains(t, stdout, "seeded sqlite backend: 2 tax years, 5 filing statuses, 10 standard deductions")

	stdout, _, err = run(t, append(quiet, "calculate", "-i", input, "--save", "-f", "json")...)
	require.NoError(t, err)
	var saved []domain.Estimate
	require.NoError(t, json.Unmarshal([]byte(stdout), &saved))
	require.Len(t, saved, 1)
	id := saved[0].ID.String()

	stdout, _, err = run(t, append(quiet, "estimates", "list")...)
	require.NoError(t, err)
	assert.Contains(t, stdout, id)

	stdout, _, err = run(t, append(quiet, "estimates", "list", "--year", "2024")...)
	require.NoError(t, err)
	assert.NotContains(t, stdout, id)

	stdout, _, err = run(t, append(quiet, "estimates", "show", id)...)
	require.NoError(t, err)
	assert.Contains(t, stdout, "ESTIMATED TAX WORKSHEET")
	assert.Contains(t, stdout, "Payment required: yes")

	stdout, _, err = run(t, append(quiet, "estimates", "recalculate", id, "--replace", "-f", "json")...)
	require.NoError(t, err)
	var fresh []domain.Estimate
	require.NoError(t, json.Unmarshal([]byte(stdout), &fresh))
	require.Len(t, fresh, 1)
	assert.NotEqual(t, id, fresh[0].ID.String())
	assert.True(t, saved[0].Result.CalculatedTotalTax.Equal(fresh[0].Result.CalculatedTotalTax))

	_, _, err = run(t, append(quiet, "estimates", "show", id)...)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	stdout, _, err = run(t, append(quiet, "estimates", "delete", fresh[0].ID.String())...)
	require.NoError(t, err)
	assert.Contains(t, stdout, "deleted "+fresh[0].ID.String())

	_, _, err = run(t, append(quiet, "estimates", "delete", "not-a-uuid")...)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.Equal(t, 2, ExitCode(err))
}

func TestBackendFromEnvFile(t *testing.T) {
	isolate(t)
	dir := t.TempDir()
	envFile := filepath.Join(dir, ".env")
	dsn := filepath.Join(dir, "env.db")
	require.NoError(t, os.WriteFile(envFile, []byte("TAXEST_BACKEND=sqlite\nTAXEST_DSN="+dsn+"\n"), 0o600))

	var stdout bytes.Buffer
	err := Run(context.Background(), []string{"--env-file", envFile, "seed"}, &stdout, &bytes.Buffer{})
	require.NoError(t, err)
	assert.Contains(t, stdout.String(), "seeded sqlite backend")

	_, err = os.Stat(dsn)
	assert.NoError(t, err)
}

func TestExample(t *testing.T) {
	stdout, _, err := run(t, "example", "--year", "2025")
	require.NoError(t, err)
	assert.Contains(t, stdout, "tax_year: 2025")

	out := filepath.Join(t.TempDir(), "example.yaml")
	_, _, err = run(t, "--backend", "mongo", "example", "--year", "2025", "--out", out)
	require.NoError(t, err, "example never opens a repository")

	stdout, _, err = run(t, "--log-level", "error", "calculate", "-i", out)
	require.NoError(t, err)
	assert.Contains(t, stdout, "Self-Employment Tax:")
}

func TestExitCode(t *testing.T) {
	assert.Equal(t, 0, ExitCode(nil))
	assert.Equal(t, 1, ExitCode(errors.New("boom")))
	assert.Equal(t, 2, ExitCode(&config.RowError{Row: 3, Err: domain.ErrInvalidInput}))
}
