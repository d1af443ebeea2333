package config

import (
	"os"
	"strconv"
	"time"

	"github.com/redhat-data-and-ai/smokecheck/internal/errors"
)

// Defaults applied when the environment and config file leave a value unset
const (
	DefaultCatalog        = "hive_metastore"
	DefaultMinRows        = int64(1)
	DefaultTimeoutSeconds = 300
	DefaultMaxRetries     = 3
	DefaultAuthorityHost  = "https://login.microsoftonline.com"
)

// Config holds the full validation run configuration
type Config struct {
	Workspace WorkspaceConfig
	Auth      AuthConfig
	Check     CheckConfig
	LogLevel  string
}

// WorkspaceConfig holds Databricks workspace connection configuration
type WorkspaceConfig struct {
	Host        string // Workspace base URL
	WarehouseID string // SQL warehouse that runs the counting statement
	MaxRetries  int    // Transport-level retry budget
}

// AuthConfig holds credentials for one of the supported authentication modes
type AuthConfig struct {
	Token         string // Static bearer token (PAT or pre-issued OAuth token)
	ClientID      string // Entra application client ID
	TenantID      string // Entra tenant ID
	ClientSecret  string // Entra client secret
	AuthorityHost string // Token authority, overridable for sovereign clouds and tests
}

// CheckConfig holds the table validation parameters
type CheckConfig struct {
	Table          string // Raw table identifier, resolved at query time
	DefaultCatalog string // Catalog assumed for schema.table identifiers
	MinRows        int64  // Minimum row count for the deployment to pass
	TimeoutSeconds int    // Overall bound on the counting statement
	SkipExistence  bool   // Skip the table listing step and go straight to counting
}

// AuthMode identifies which authentication strategy the configuration selects
type AuthMode string

const (
	AuthModeStaticToken AuthMode = "static_token"
	AuthModeOAuth       AuthMode = "oauth_client_credentials"
	AuthModeNone        AuthMode = "none"
)

// Load loads configuration from the environment, honoring the optional
// config file named by SMOKE_CONFIG_FILE. Every violation is collected so a
// single failed run reports all missing keys at once.
func Load() (*Config, error) {
	return LoadWithFile(os.Getenv("SMOKE_CONFIG_FILE"))
}

// LoadWithFile loads configuration with an explicit config file path.
// Precedence: environment variables over file values over defaults.
// Loading never touches the network.
func LoadWithFile(path string) (*Config, error) {
	cfg := defaultConfig()

	if path != "" {
		fileCfg, err := loadFile(path)
		if err != nil {
			return nil, err
		}
		applyFile(cfg, fileCfg)
	}

	v := errors.NewValidator()
	applyEnv(cfg, v)
	validate(cfg, v)

	if v.HasErrors() {
		return nil, v.ToAppError()
	}
	return cfg, nil
}

func defaultConfig() *Config {
	return &Config{
		Workspace: WorkspaceConfig{
			MaxRetries: DefaultMaxRetries,
		},
		Auth: AuthConfig{
			AuthorityHost: DefaultAuthorityHost,
		},
		Check: CheckConfig{
			DefaultCatalog: DefaultCatalog,
			MinRows:        DefaultMinRows,
			TimeoutSeconds: DefaultTimeoutSeconds,
		},
		LogLevel: "info",
	}
}

// applyEnv overlays environment values onto the config. Unset keys keep
// whatever the file or the defaults supplied.
func applyEnv(cfg *Config, v *errors.Validator) {
	setEnvString(&cfg.Workspace.Host, "DATABRICKS_HOST", "DATABRICKS_WORKSPACE_URL")
	setEnvString(&cfg.Workspace.WarehouseID, "DATABRICKS_WAREHOUSE_ID", "WAREHOUSE_ID")
	setEnvInt(v, &cfg.Workspace.MaxRetries, "SMOKE_TEST_MAX_RETRIES", 0)

	setEnvString(&cfg.Auth.Token, "DATABRICKS_TOKEN")
	setEnvString(&cfg.Auth.ClientID, "AZURE_CLIENT_ID")
	setEnvString(&cfg.Auth.TenantID, "AZURE_TENANT_ID")
	setEnvString(&cfg.Auth.ClientSecret, "AZURE_CLIENT_SECRET")
	setEnvString(&cfg.Auth.AuthorityHost, "AZURE_AUTHORITY_HOST")

	setEnvString(&cfg.Check.Table, "SMOKE_TEST_TABLE_NAME", "SMOKE_TABLE")
	setEnvString(&cfg.Check.DefaultCatalog, "SMOKE_TEST_CATALOG")
	setEnvInt64(v, &cfg.Check.MinRows, "SMOKE_TEST_MIN_ROWS", 0)
	setEnvInt(v, &cfg.Check.TimeoutSeconds, "SMOKE_TEST_TIMEOUT_SECONDS", 1)
	setEnvBool(v, &cfg.Check.SkipExistence, "SMOKE_TEST_SKIP_EXISTENCE")

	setEnvString(&cfg.LogLevel, "LOG_LEVEL")
}

// validate checks the merged configuration, collecting every violation
func validate(cfg *Config, v *errors.Validator) {
	v.RequiredEnv("DATABRICKS_HOST", cfg.Workspace.Host).
		ValidateURL("DATABRICKS_HOST", cfg.Workspace.Host).
		ValidateURL("AZURE_AUTHORITY_HOST", cfg.Auth.AuthorityHost).
		RequiredEnv("SMOKE_TEST_TABLE_NAME", cfg.Check.Table).
		RequiredEnv("DATABRICKS_WAREHOUSE_ID", cfg.Workspace.WarehouseID)

	// Range checks on merged values catch out-of-range settings coming from
	// the config file, which skips the per-variable parsing above
	if cfg.Check.MinRows < 0 {
		v.AddError("SMOKE_TEST_MIN_ROWS", "integer_range", "must be an integer >= 0", cfg.Check.MinRows)
	}
	if cfg.Check.TimeoutSeconds < 1 {
		v.AddError("SMOKE_TEST_TIMEOUT_SECONDS", "integer_range", "must be an integer >= 1", cfg.Check.TimeoutSeconds)
	}
	if cfg.Workspace.MaxRetries < 0 {
		v.AddError("SMOKE_TEST_MAX_RETRIES", "integer_range", "must be an integer >= 0", cfg.Workspace.MaxRetries)
	}

	switch cfg.AuthMode() {
	case AuthModeStaticToken:
		// Static token needs nothing else
	case AuthModeOAuth:
		v.RequiredEnv("AZURE_CLIENT_ID", cfg.Auth.ClientID).
			RequiredEnv("AZURE_TENANT_ID", cfg.Auth.TenantID).
			RequiredEnv("AZURE_CLIENT_SECRET", cfg.Auth.ClientSecret)
	default:
		v.AddError("authentication", "required",
			"no credentials configured: set DATABRICKS_TOKEN or AZURE_CLIENT_ID, AZURE_TENANT_ID and AZURE_CLIENT_SECRET")
	}
}

// AuthMode returns the authentication strategy the configuration selects.
// A static token wins when both modes are configured.
func (c *Config) AuthMode() AuthMode {
	if c.Auth.Token != "" {
		return AuthModeStaticToken
	}
	if c.Auth.ClientID != "" || c.Auth.TenantID != "" || c.Auth.ClientSecret != "" {
		return AuthModeOAuth
	}
	return AuthModeNone
}

// AuthModeDescription returns a description of the selected authentication mode
func (c *Config) AuthModeDescription() string {
	switch c.AuthMode() {
	case AuthModeStaticToken:
		return "Static token"
	case AuthModeOAuth:
		return "OAuth client credentials"
	default:
		return "Not configured"
	}
}

// QueryTimeout returns the overall bound on the counting statement
func (c *Config) QueryTimeout() time.Duration {
	return time.Duration(c.Check.TimeoutSeconds) * time.Second
}

// getEnvWithAliases returns the first set value among the canonical key and
// its aliases
func getEnvWithAliases(key string, aliases ...string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	for _, alias := range aliases {
		if value := os.Getenv(alias); value != "" {
			return value
		}
	}
	return ""
}

func setEnvString(target *string, key string, aliases ...string) {
	if value := getEnvWithAliases(key, aliases...); value != "" {
		*target = value
	}
}

func setEnvInt(v *errors.Validator, target *int, key string, min int) {
	raw := os.Getenv(key)
	if raw == "" {
		return
	}
	before := len(v.GetErrors())
	v.ValidateIntString(key, raw, min)
	if len(v.GetErrors()) == before {
		parsed, _ := strconv.Atoi(raw)
		*target = parsed
	}
}

func setEnvInt64(v *errors.Validator, target *int64, key string, min int) {
	raw := os.Getenv(key)
	if raw == "" {
		return
	}
	before := len(v.GetErrors())
	v.ValidateIntString(key, raw, min)
	if len(v.GetErrors()) == before {
		parsed, _ := strconv.ParseInt(raw, 10, 64)
		*target = parsed
	}
}

func setEnvBool(v *errors.Validator, target *bool, key string) {
	raw := os.Getenv(key)
	if raw == "" {
		return
	}
	before := len(v.GetErrors())
	v.ValidateBoolString(key, raw)
	if len(v.GetErrors()) == before {
		parsed, _ := strconv.ParseBool(raw)
		*target = parsed
	}
}
