package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const labelsJSON = `[
  {"id": "123", "drugName": "Aspirin", "genericName": "acetylsalicylic-acid", "labeler": "Test Pharma",
   "fields": {"indicationsAndUsage": "Pain relief", "dosageAndAdministration": "325mg daily"}},
  {"id": "456", "drugName": "Ibuprofen", "genericName": "ibuprofen", "labeler": "Other Labs",
   "fields": {"indicationsAndUsage": "Fever"}}
]`

func setupEnv(t *testing.T) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "labels.json")
	require.NoError(t, os.WriteFile(path, []byte(labelsJSON), 0o600))

	t.Setenv("CATALOG_SOURCE", "file")
	t.Setenv("CATALOG_FILE", path)
	t.Setenv("REDIS_ENABLED", "false")
	t.Setenv("GENERATION_PROVIDER", "none")
	t.Setenv("DB_DRIVER", "postgres")
}

func run(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	cmd := newRootCmd(strings.NewReader(stdin), &stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func TestSearchCommand(t *testing.T) {
	setupEnv(t)

	out, _, err := run(t, "", "search", "--labeler", "Other Labs")
	require.NoError(t, err)

	var page struct {
		Drugs []struct {
			ID string `json:"id"`
		} `json:"drugs"`
		Total int `json:"total"`
		Limit int `json:"limit"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &page))
	assert.Equal(t, 1, page.Total)
	assert.Equal(t, 20, page.Limit)
	require.Len(t, page.Drugs, 1)
	assert.Equal(t, "456", page.Drugs[0].ID)
}

func TestEnhanceCommand_Fallback(t *testing.T) {
	setupEnv(t)

	out, stderr, err := run(t, "", "enhance", "Aspirin", "--generic", "acetylsalicylic-acid")
	require.NoError(t, err)
	assert.Contains(t, stderr, "source: fallback")

	var content map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &content))
	assert.Equal(t, "Aspirin (acetylsalicylic-acid) - Prescription Info", content["seoTitle"])
}

func TestEnhanceCommand_NotFound(t *testing.T) {
	setupEnv(t)

	_, _, err := run(t, "", "enhance", "Nonexistent")
	assert.ErrorContains(t, err, "not_found")
}

func TestWarmCommand(t *testing.T) {
	setupEnv(t)

	out, _, err := run(t, "", "warm")
	require.NoError(t, err)

	var stats map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &stats))
	assert.EqualValues(t, 2, stats["total"])
	assert.EqualValues(t, 2, stats["fallback"])
}

func TestMCPCommand_StdoutIsProtocolOnly(t *testing.T) {
	setupEnv(t)

	stdin := `{"jsonrpc":"2.0","id":1,"method":"tools/list"}` + "\n"
	out, _, err := run(t, stdin, "mcp")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 1)

	var resp struct {
		ID     int `json:"id"`
		Result struct {
			Tools []struct {
				Name string `json:"name"`
			} `json:"tools"`
		} `json:"result"`
	}
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &resp))
	assert.Equal(t, 1, resp.ID)
	assert.Len(t, resp.Result.Tools, 3)
}
