package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrJamesThe3rd/walletsync/internal/wallet"
)

func run(t *testing.T, dir string, args ...string) (string, error) {
	t.Helper()

	a := &app{}
	cmd := rootCmd(a)

	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs(append([]string{"--config", filepath.Join(dir, "missing.yaml")}, args...))

	err := cmd.Execute()
	require.NoError(t, a.shutdown())

	return out.String(), err
}

func setup(t *testing.T) string {
	t.Helper()

	dir := t.TempDir()
	t.Setenv("WALLETSYNC_DATA_DIR", dir)
	t.Setenv("WALLETSYNC_PASSPHRASE", "correct horse battery staple")
	t.Setenv("WALLETSYNC_LOG_LEVEL", "error")

	return dir
}

// tableRows returns the trimmed cells of every bordered table row in out.
func tableRows(out string) [][]string {
	var rows [][]string

	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, "│") {
			continue
		}

		parts := strings.Split(strings.Trim(line, "│"), "│")
		for i, p := range parts {
			parts[i] = strings.TrimSpace(p)
		}

		rows = append(rows, parts)
	}

	return rows
}

func TestCLI_OfflineRoundTrip(t *testing.T) {
	dir := setup(t)

	out, err := run(t, dir, "wallet", "create", "Main", "--currency", "eur")
	require.NoError(t, err)
	assert.Contains(t, out, "created wallet Main")

	out, err = run(t, dir, "tx", "add", "-a", "12.5", "-d", "Coffee", "--date", "2026-03-02")
	require.NoError(t, err)
	assert.Contains(t, out, "€ 12.50")

	out, err = run(t, dir, "tx", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "Coffee")
	assert.Contains(t, out, "pending")

	out, err = run(t, dir, "tx", "summary", "--from", "2026-03-01", "--to", "2026-03-31")
	require.NoError(t, err)
	assert.Contains(t, out, "1 transactions")
	assert.Contains(t, tableRows(out), []string{"expense", "€ 12.50"})

	out, err = run(t, dir, "status")
	require.NoError(t, err)
	assert.Contains(t, out, "logged out")
	assert.Contains(t, tableRows(out), []string{"Main", "1", "0", "never"})
}

func TestCLI_CreateRejectsInvalidWallet(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{name: "BlankName", args: []string{"wallet", "create", "  "}, want: "name is required"},
		{name: "BadCurrency", args: []string{"wallet", "create", "Main", "--currency", "euro"}, want: "currency must be an ISO 4217 code"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := setup(t)

			_, err := run(t, dir, tt.args...)
			require.ErrorIs(t, err, wallet.ErrInvalid)
			assert.ErrorContains(t, err, tt.want)

			out, err := run(t, dir, "status")
			require.NoError(t, err)
			assert.Contains(t, out, "wallets:  0 pending")
		})
	}
}

func TestCLI_TxRequiresWallet(t *testing.T) {
	dir := setup(t)

	_, err := run(t, dir, "tx", "list")
	assert.ErrorContains(t, err, "no wallet selected")
}

func TestCLI_RequiresPassphrase(t *testing.T) {
	dir := setup(t)
	t.Setenv("WALLETSYNC_PASSPHRASE", "")

	_, err := run(t, dir, "wallet", "list")
	assert.ErrorContains(t, err, "WALLETSYNC_PASSPHRASE")
}

func TestCLI_WrongPassphraseCannotReadStore(t *testing.T) {
	dir := setup(t)

	_, err := run(t, dir, "wallet", "create", "Main")
	require.NoError(t, err)

	t.Setenv("WALLETSYNC_PASSPHRASE", "something else entirely")

	out, err := run(t, dir, "wallet", "list")
	require.NoError(t, err)
	assert.NotContains(t, out, "Main")
}

func TestCLI_WalletSelection(t *testing.T) {
	dir := setup(t)

	for _, name := range []string{"Main", "Travel"} {
		_, err := run(t, dir, "wallet", "create", name)
		require.NoError(t, err)
	}

	_, err := run(t, dir, "wallet", "use", "travel")
	require.NoError(t, err)

	out, err := run(t, dir, "wallet", "list")
	require.NoError(t, err)

	current := map[string]string{}
	for _, row := range tableRows(out) {
		current[row[2]] = row[0]
	}

	assert.Equal(t, "*", current["Travel"])
	assert.Empty(t, current["Main"])

	_, err = run(t, dir, "wallet", "use", "nope")
	assert.ErrorContains(t, err, "wallet not found")
}

func TestDateRange(t *testing.T) {
	start, end, err := dateRange("2026-01-01", "2026-01-31")
	require.NoError(t, err)
	assert.Equal(t, "2026-01-01", start.Format("2006-01-02"))
	assert.Equal(t, "2026-01-31T23:59:59.999Z", end.Format("2006-01-02T15:04:05.000Z07:00"))

	_, _, err = dateRange("01/02/2026", "")
	assert.ErrorContains(t, err, "expected YYYY-MM-DD")
}

func TestCLI_ImportIsIdempotent(t *testing.T) {
	dir := setup(t)

	statement := filepath.Join(dir, "statement.csv")
	require.NoError(t, os.WriteFile(statement, []byte("Date,Description,Amount\n2026-03-01,Coffee,-3.20\n2026-03-02,Salary,2000\n"), 0o600))

	_, err := run(t, dir, "wallet", "create", "Main")
	require.NoError(t, err)

	out, err := run(t, dir, "tx", "import", statement)
	require.NoError(t, err)
	assert.Contains(t, out, "generic statement (UTF-8): 2 lines, 2 new")

	out, err = run(t, dir, "tx", "import", statement)
	require.NoError(t, err)
	assert.Contains(t, out, "2 lines, 0 new")

	out, err = run(t, dir, "tx", "list")
	require.NoError(t, err)
	assert.Equal(t, 1, strings.Count(out, "Coffee"))
}
