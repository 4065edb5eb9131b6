package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func setupEnv(t *testing.T) string {
	t.Helper()
	logger = zap.NewNop()
	dir := t.TempDir()
	t.Setenv("RAW_DIR", filepath.Join(dir, "raw"))
	t.Setenv("DATA_DIR", filepath.Join(dir, "data"))
	t.Setenv("GRAPHS_DIR", filepath.Join(dir, "graphs"))
	t.Setenv("REFRESH_INTERVAL", "0s")
	return dir
}

func TestHealth(t *testing.T) {
	setupEnv(t)
	a, err := newApp()
	require.NoError(t, err)

	resp, err := newServer(a).Test(httptest.NewRequest(http.MethodGet, "/health", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = newServer(a).Test(httptest.NewRequest(http.MethodGet, "/api/v1/series?station=JUL2", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestCompileWithoutRawExports(t *testing.T) {
	setupEnv(t)

	cmd := &cobra.Command{}
	cmd.SetContext(context.Background())
	assert.Error(t, runCompile(cmd, nil))
}

func TestFetchWithoutSource(t *testing.T) {
	setupEnv(t)

	cmd := &cobra.Command{}
	cmd.SetContext(context.Background())
	assert.Error(t, runFetch(cmd, []string{"JUL2"}))
}

func TestExportNeedsPath(t *testing.T) {
	setupEnv(t)
	t.Setenv("WORKBOOK_PATH", "none")

	cmd := &cobra.Command{}
	cmd.SetContext(context.Background())
	assert.ErrorContains(t, runExport(cmd, nil), "no workbook path")
}

func TestExportWritesNoCharts(t *testing.T) {
	dir := setupEnv(t)
	t.Setenv("STATIONS", "JUL2")
	t.Setenv("PRECIPITATION_FILE", "none")

	raw := "station_code,measure_date,HS,TA_30MIN_MEAN,DW_30MIN_MEAN\n" +
		"JUL2,2010-01-01 12:00:00+00:00,80,-2,100\n" +
		"JUL2,2010-01-02 12:00:00+00:00,82,-3,110\n"
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "raw"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "raw", "JUL2.csv"), []byte(raw), 0o644))

	exportPath = filepath.Join(dir, "out", "aggregates.xlsx")
	defer func() { exportPath = "" }()

	cmd := &cobra.Command{}
	cmd.SetContext(context.Background())
	require.NoError(t, runCompile(cmd, nil))
	require.NoError(t, runExport(cmd, nil))

	assert.FileExists(t, exportPath)
	assert.NoDirExists(t, filepath.Join(dir, "graphs"))
}

func TestCommandsRegistered(t *testing.T) {
	for _, name := range []string{"compile", "plot", "run", "fetch", "export", "serve"} {
		cmd, _, err := rootCmd.Find([]string{name})
		require.NoError(t, err)
		assert.Equal(t, name, cmd.Name())
	}
}
