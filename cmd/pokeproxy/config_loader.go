package main

import (
	"github.com/vyrodovalexey/pokeproxy/internal/config"
	"github.com/vyrodovalexey/pokeproxy/internal/observability"
)

// resolveConfigPath resolves the configuration file location, checking the
// common install locations when the given path is relative.
func resolveConfigPath(path string, logger observability.Logger) string {
	resolved, err := config.ResolveConfigPath(path)
	if err != nil {
		fatalWithSync(logger, "failed to resolve configuration path",
			observability.String("config", path),
			observability.Error(err),
		)
		return "" // unreachable in production; allows test to continue
	}
	return resolved
}

// loadAndValidateConfig loads and validates the configuration.
func loadAndValidateConfig(configPath string, logger observability.Logger) *config.Config {
	logger.Info("starting pokeproxy",
		observability.String("version", version),
		observability.String("config", configPath),
	)

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		fatalWithSync(logger, "failed to load configuration", observability.Error(err))
		return nil // unreachable in production; allows test to continue
	}

	if err := config.ValidateConfig(cfg); err != nil {
		fatalWithSync(logger, "invalid configuration", observability.Error(err))
		return nil
	}

	logger.Info("configuration loaded",
		observability.String("address", cfg.Server.Address()),
		observability.String("upstream", cfg.Upstream.BaseURL),
		observability.String("allowed_origin", cfg.CORS.AllowedOrigin),
		observability.Bool("metrics_enabled", cfg.Observability.Metrics.Enabled),
		observability.Bool("tracing_enabled", cfg.Observability.Tracing.Enabled),
	)

	return cfg
}
