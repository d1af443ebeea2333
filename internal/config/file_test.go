package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/redhat-data-and-ai/smokecheck/internal/errors"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "smokecheck.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadWithFile_FileSuppliesEverything(t *testing.T) {
	clearConfigEnv(t)
	path := writeConfigFile(t, `
host: https://adb-789.azuredatabricks.net
warehouse_id: warehouse-789
table: sales.daily_totals
catalog: corporate
min_rows: 10
timeout_seconds: 120
max_retries: 2
skip_existence: true
log_level: warn
auth:
  token: dapi-file-token
`)

	cfg, err := LoadWithFile(path)
	require.NoError(t, err)

	assert.Equal(t, "https://adb-789.azuredatabricks.net", cfg.Workspace.Host)
	assert.Equal(t, "warehouse-789", cfg.Workspace.WarehouseID)
	assert.Equal(t, "sales.daily_totals", cfg.Check.Table)
	assert.Equal(t, "corporate", cfg.Check.DefaultCatalog)
	assert.Equal(t, int64(10), cfg.Check.MinRows)
	assert.Equal(t, 120, cfg.Check.TimeoutSeconds)
	assert.Equal(t, 2, cfg.Workspace.MaxRetries)
	assert.True(t, cfg.Check.SkipExistence)
	assert.Equal(t, "warn", cfg.LogLevel)
	assert.Equal(t, AuthModeStaticToken, cfg.AuthMode())
}

func TestLoadWithFile_EnvironmentWinsOverFile(t *testing.T) {
	clearConfigEnv(t)
	path := writeConfigFile(t, `
host: https://adb-789.azuredatabricks.net
warehouse_id: warehouse-789
table: sales.daily_totals
min_rows: 10
auth:
  token: dapi-file-token
`)
	t.Setenv("SMOKE_TEST_TABLE_NAME", "sales.hourly_totals")
	t.Setenv("SMOKE_TEST_MIN_ROWS", "99")

	cfg, err := LoadWithFile(path)
	require.NoError(t, err)

	assert.Equal(t, "sales.hourly_totals", cfg.Check.Table)
	assert.Equal(t, int64(99), cfg.Check.MinRows)
	// Untouched values still come from the file
	assert.Equal(t, "https://adb-789.azuredatabricks.net", cfg.Workspace.Host)
}

func TestLoadWithFile_ZeroValuesAreExplicit(t *testing.T) {
	clearConfigEnv(t)
	path := writeConfigFile(t, `
host: https://adb-789.azuredatabricks.net
warehouse_id: warehouse-789
table: sales.daily_totals
min_rows: 0
auth:
  token: dapi-file-token
`)

	cfg, err := LoadWithFile(path)
	require.NoError(t, err)

	// An explicit zero is kept, it does not fall back to the default of 1
	assert.Equal(t, int64(0), cfg.Check.MinRows)
}

func TestLoadWithFile_MissingFile(t *testing.T) {
	clearConfigEnv(t)

	cfg, err := LoadWithFile(filepath.Join(t.TempDir(), "nope.yaml"))

	require.Error(t, err)
	assert.Nil(t, cfg)
	appErr, ok := err.(*errors.AppError)
	require.True(t, ok)
	assert.Equal(t, errors.ErrConfigFile, appErr.Code)
	assert.Equal(t, errors.ExitConnectionFailure, errors.ExitCodeFor(err))
}

func TestLoadWithFile_MalformedYAML(t *testing.T) {
	clearConfigEnv(t)
	path := writeConfigFile(t, "host: [unclosed")

	cfg, err := LoadWithFile(path)

	require.Error(t, err)
	assert.Nil(t, cfg)
	assert.Equal(t, errors.ErrConfigFile, err.(*errors.AppError).Code)
}

func TestLoadWithFile_FileValuesStillValidated(t *testing.T) {
	clearConfigEnv(t)
	path := writeConfigFile(t, `
host: https://adb-789.azuredatabricks.net
warehouse_id: warehouse-789
table: sales.daily_totals
min_rows: -3
timeout_seconds: 0
auth:
  token: dapi-file-token
`)

	cfg, err := LoadWithFile(path)

	require.Error(t, err)
	assert.Nil(t, cfg)
	details := err.(*errors.AppError).Details
	assert.Contains(t, details, "SMOKE_TEST_MIN_ROWS")
	assert.Contains(t, details, "SMOKE_TEST_TIMEOUT_SECONDS")
}

func TestLoad_UsesConfigFileFromEnvironment(t *testing.T) {
	clearConfigEnv(t)
	path := writeConfigFile(t, `
host: https://adb-789.azuredatabricks.net
warehouse_id: warehouse-789
table: sales.daily_totals
auth:
  token: dapi-file-token
`)
	t.Setenv("SMOKE_CONFIG_FILE", path)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "warehouse-789", cfg.Workspace.WarehouseID)
}
