package main

import (
	"fmt"

	"github.com/elee1766/chatrelay/src/config"
	"github.com/spf13/afero"
)

// loadConfig loads the configuration from the default locations, or from
// --config in place of the user config, then applies CLI flags.
func loadConfig(fs afero.Fs, cli *CLI) (*config.Config, error) {
	precedence := config.GetConfigPaths()
	if cli.Config != "" {
		exists, err := afero.Exists(fs, cli.Config)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", errConfig, err)
		}
		if !exists {
			return nil, fmt.Errorf("%w: config file %s not found", errConfig, cli.Config)
		}
		precedence.UserConfig = cli.Config
	}

	cfg, err := config.NewLoader(fs, precedence).Load()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errConfig, err)
	}

	overrideConfigFromCLI(cfg, cli)

	if err := config.NewValidator().Validate(cfg); err != nil {
		return nil, fmt.Errorf("%w: %w", errConfig, err)
	}
	return cfg, nil
}

// overrideConfigFromCLI overrides configuration values with CLI flags
func overrideConfigFromCLI(cfg *config.Config, cli *CLI) {
	if cli.APIKey != "" {
		cfg.API.APIKey = cli.APIKey
	}
	if cli.Provider != "" {
		cfg.API.Provider = cli.Provider
	}
	if cli.BaseURL != "" {
		cfg.API.BaseURL = cli.BaseURL
	}
	if cli.Model != "" {
		cfg.Chat.Model = cli.Model
	}
	if cli.Port != 0 {
		cfg.Server.Port = cli.Port
	}
	if cli.Storage != "" {
		cfg.Storage.Backend = cli.Storage
	}
	if cli.LogLevel != "" {
		cfg.Observability.Logging.Level = cli.LogLevel
	}
	if cli.LogFormat != "" {
		cfg.Observability.Logging.Format = cli.LogFormat
	}
}

// serverURL picks an explicit --server value or the local configured port.
func serverURL(explicit string, cfg *config.Config) string {
	if explicit != "" {
		return explicit
	}
	return fmt.Sprintf("http://localhost:%d", cfg.Server.Port)
}
