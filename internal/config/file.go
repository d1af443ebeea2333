package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/redhat-data-and-ai/smokecheck/internal/errors"
)

// FileAuthConfig is the external YAML format for the auth section
type FileAuthConfig struct {
	Token         string `yaml:"token"`
	ClientID      string `yaml:"client_id"`
	TenantID      string `yaml:"tenant_id"`
	ClientSecret  string `yaml:"client_secret"`
	AuthorityHost string `yaml:"authority_host"`
}

// FileConfig is the external YAML format for the optional config file.
// Pointer fields distinguish "unset" from an explicit zero value.
type FileConfig struct {
	Host           string         `yaml:"host"`
	WarehouseID    string         `yaml:"warehouse_id"`
	Table          string         `yaml:"table"`
	Catalog        string         `yaml:"catalog"`
	MinRows        *int64         `yaml:"min_rows"`
	TimeoutSeconds *int           `yaml:"timeout_seconds"`
	MaxRetries     *int           `yaml:"max_retries"`
	SkipExistence  *bool          `yaml:"skip_existence"`
	LogLevel       string         `yaml:"log_level"`
	Auth           FileAuthConfig `yaml:"auth"`
}

// loadFile reads and parses the optional YAML config file.
// The file must exist once a path is given.
func loadFile(path string) (*FileConfig, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, errors.NewError(errors.ErrConfigFile,
			fmt.Sprintf("config file not found: %s", path))
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.NewErrorWithCause(errors.ErrConfigFile,
			fmt.Sprintf("failed to read config file %s", path), err)
	}

	var fileCfg FileConfig
	if err := yaml.Unmarshal(data, &fileCfg); err != nil {
		return nil, errors.NewErrorWithCause(errors.ErrConfigFile,
			fmt.Sprintf("failed to parse config file YAML %s", path), err)
	}

	return &fileCfg, nil
}

// applyFile overlays file values onto the defaults. Environment variables
// applied afterwards still win over everything here.
func applyFile(cfg *Config, fileCfg *FileConfig) {
	if fileCfg.Host != "" {
		cfg.Workspace.Host = fileCfg.Host
	}
	if fileCfg.WarehouseID != "" {
		cfg.Workspace.WarehouseID = fileCfg.WarehouseID
	}
	if fileCfg.MaxRetries != nil {
		cfg.Workspace.MaxRetries = *fileCfg.MaxRetries
	}

	if fileCfg.Auth.Token != "" {
		cfg.Auth.Token = fileCfg.Auth.Token
	}
	if fileCfg.Auth.ClientID != "" {
		cfg.Auth.ClientID = fileCfg.Auth.ClientID
	}
	if fileCfg.Auth.TenantID != "" {
		cfg.Auth.TenantID = fileCfg.Auth.TenantID
	}
	if fileCfg.Auth.ClientSecret != "" {
		cfg.Auth.ClientSecret = fileCfg.Auth.ClientSecret
	}
	if fileCfg.Auth.AuthorityHost != "" {
		cfg.Auth.AuthorityHost = fileCfg.Auth.AuthorityHost
	}

	if fileCfg.Table != "" {
		cfg.Check.Table = fileCfg.Table
	}
	if fileCfg.Catalog != "" {
		cfg.Check.DefaultCatalog = fileCfg.Catalog
	}
	if fileCfg.MinRows != nil {
		cfg.Check.MinRows = *fileCfg.MinRows
	}
	if fileCfg.TimeoutSeconds != nil {
		cfg.Check.TimeoutSeconds = *fileCfg.TimeoutSeconds
	}
	if fileCfg.SkipExistence != nil {
		cfg.Check.SkipExistence = *fileCfg.SkipExistence
	}

	if fileCfg.LogLevel != "" {
		cfg.LogLevel = fileCfg.LogLevel
	}
}
