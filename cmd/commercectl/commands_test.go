package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vde76ru/module-sub000/tests/testutil"
)

func writeConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "commerce.toml")
	body := "[database]\ndriver = \"sqlite\"\nsqlite_path = \"" + filepath.ToSlash(filepath.Join(dir, "ctl.db")) + "\"\n"
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestOutboxStats(t *testing.T) {
	cfg := writeConfig(t)

	out, err := execute(t, "--config", cfg, "--migrate", "outbox", "stats")
	require.NoError(t, err)
	var stats map[string]int64
	require.NoError(t, json.Unmarshal([]byte(out), &stats))
	assert.Zero(t, stats["total"])
}

func TestPricesRecalc_EmptyTenant(t *testing.T) {
	cfg := writeConfig(t)

	out, err := execute(t, "--config", cfg, "--migrate", "--tenant", testutil.TestTenantID().String(), "prices", "recalc")
	require.NoError(t, err)
	var result map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	assert.EqualValues(t, 0, result["processed"])
}

func TestArgumentErrors(t *testing.T) {
	cfg := writeConfig(t)
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"missing tenant", []string{"sync", testutil.TestTenantID().String()}, "--tenant is required"},
		{"bad tenant", []string{"--tenant", "acme", "procurement", "run", testutil.TestTenantID().String()}, "invalid tenant id"},
		{"bad supplier", []string{"--tenant", testutil.TestTenantID().String(), "--migrate", "sync", "acme"}, "invalid supplier id"},
		{"retry without id", []string{"--migrate", "outbox", "retry"}, "entry id required"},
		{"missing config", []string{"--config", filepath.Join(t.TempDir(), "none.toml"), "outbox", "stats"}, "error reading config file"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := append([]string{"--config", cfg}, tt.args...)
			_, err := execute(t, args...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestRetryUnknownEntry(t *testing.T) {
	cfg := writeConfig(t)

	_, err := execute(t, "--config", cfg, "--migrate", "outbox", "retry", testutil.TestTenantID().String())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}
