// Package providers contains dependency injection providers for the racing notes server.
package providers

import (
	"github.com/samber/do/v2"

	"github.com/racingnotes/racingnotes-server/internal/config"
	"github.com/racingnotes/racingnotes-server/internal/logger"
	"github.com/racingnotes/racingnotes-server/internal/metrics"
)

// ProvideConfig provides the application configuration.
func ProvideConfig(i do.Injector) (*config.Config, error) {
	loader := do.MustInvoke[*config.Loader](i)
	return loader.Load()
}

// ProvideLogger provides the structured logger.
func ProvideLogger(i do.Injector) (*logger.Logger, error) {
	cfg := do.MustInvoke[*config.Config](i)
	loader := do.MustInvoke[*config.Loader](i)
	build := do.MustInvoke[BuildInfo](i)

	log := logger.New(logger.Config{
		Level:       logger.ParseLevel(cfg.Logger.Level),
		AddSource:   cfg.App.Environment == "development",
		Environment: cfg.App.Environment,
	})

	log.Info("Starting Racing Notes server",
		"version", build.Version,
		"environment", cfg.App.Environment,
		"log_level", cfg.Logger.Level,
		"data_dir", cfg.App.DataDir,
		"config_file", loader.ConfigFile(),
	)

	return log, nil
}

// ProvideMetrics provides the Prometheus collectors, or nil when metrics are disabled.
func ProvideMetrics(i do.Injector) (*metrics.Metrics, error) {
	cfg := do.MustInvoke[*config.Config](i)
	if !cfg.Metrics.Enabled {
		return nil, nil
	}
	return metrics.New()
}
