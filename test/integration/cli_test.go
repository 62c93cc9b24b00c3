package integration

import (
	"bytes"
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rpgo/estimated-tax/internal/cli"
	"github.com/rpgo/estimated-tax/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	for _, key := range []string{config.EnvBackend, config.EnvDSN, config.EnvLogLevel, config.EnvLogFormat} {
		t.Setenv(key, "")
		require.NoError(t, os.Unsetenv(key))
	}
	base := []string{"--env-file", filepath.Join(t.TempDir(), "none.env"), "--log-level", "error"}

	var stdout bytes.Buffer
	err := cli.Run(context.Background(), append(base, args...), &stdout, &bytes.Buffer{})
	return stdout.String(), err
}

func TestCLI_CalculateWorksheet(t *testing.T) {
	stdout, err := runCLI(t, "calculate", "-i", "../testdata/self_employed.yaml", "-f", "worksheet")
	require.NoError(t, err)

	for _, want := range []string{
		"SELF-EMPLOYMENT TAX AND DEDUCTION WORKSHEET",
		"$46,175.00",
		"$4,575.48",
		"$41,822.48",
		"$2,955.62",
		"Payment required: yes",
	} {
		assert.Contains(t, stdout, want)
	}
}

func TestCLI_BatchAcrossBackends(t *testing.T) {
	outputs := map[string][][]string{}
	for _, flags := range [][]string{
		{"--backend", "memory"},
		{"--backend", "sqlite", "--dsn", filepath.Join(t.TempDir(), "batch.db")},
	} {
		if flags[1] == "sqlite" {
			_, err := runCLI(t, append(flags, "seed")...)
			require.NoError(t, err)
		}
		stdout, err := runCLI(t, append(flags, "batch", "-i", "../testdata/batch.csv", "--save")...)
		require.NoError(t, err)

		records, err := csv.NewReader(strings.NewReader(stdout)).ReadAll()
		require.NoError(t, err)
		require.Len(t, records, 6)
		// ids are fresh per run
		for _, rec := range records[1:] {
			assert.NotEmpty(t, rec[0])
			rec[0] = ""
		}
		outputs[flags[1]] = records
	}
	assert.Equal(t, outputs["memory"], outputs["sqlite"])
}

func TestCLI_SavedEstimatesPersist(t *testing.T) {
	db := []string{"--backend", "sqlite", "--dsn", filepath.Join(t.TempDir(), "saved.db")}

	_, err := runCLI(t, append(db, "seed")...)
	require.NoError(t, err)
	_, err = runCLI(t, append(db, "calculate", "-i", "../testdata/wage_earner.yaml", "--save")...)
	require.NoError(t, err)
	_, err = runCLI(t, append(db, "batch", "-i", "../testdata/batch.csv", "--save")...)
	require.NoError(t, err)

	stdout, err := runCLI(t, append(db, "estimates", "list", "--year", "2025")...)
	require.NoError(t, err)
	records, err := csv.NewReader(strings.NewReader(stdout)).ReadAll()
	require.NoError(t, err)
	assert.Len(t, records, 7)

	// reseeding leaves saved estimates alone
	_, err = runCLI(t, append(db, "seed")...)
	require.NoError(t, err)
	stdout, err = runCLI(t, append(db, "estimates", "list")...)
	require.NoError(t, err)
	assert.Equal(t, 7, strings.Count(stdout, "\n"))
}

func TestCLI_SeedFromDirectory(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"tax_years.yaml", "filing_statuses.yaml", "standard_deductions.yaml", "tax_brackets.csv"} {
		data, err := os.ReadFile(filepath.Join("..", "..", "internal", "refdata", "data", name))
		require.NoError(t, err)
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), data, 0o600))
	}

	db := []string{"--backend", "sqlite", "--dsn", filepath.Join(t.TempDir(), "dir.db")}
	stdout, err := runCLI(t, append(db, "seed", "--data-dir", dir)...)
	require.NoError(t, err)
	assert.Contains(t, stdout, "2 tax years")

	stdout, err = runCLI(t, append(db, "reference", "deduction", "-y", "2024", "-s", "HOH")...)
	require.NoError(t, err)
	assert.Contains(t, stdout, "$21,900.00")
}
