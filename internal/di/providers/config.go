// Package providers contains dependency injection providers for the feed server.
package providers

import (
	"github.com/samber/do/v2"

	"github.com/pixivrss/pixivrss-server/internal/config"
	"github.com/pixivrss/pixivrss-server/internal/logger"
)

// ProvideConfig provides the application configuration.
func ProvideConfig(i do.Injector) (*config.Config, error) {
	return config.LoadConfig()
}

// ProvideLogger provides the structured logger.
func ProvideLogger(i do.Injector) (*logger.Logger, error) {
	cfg := do.MustInvoke[*config.Config](i)

	log := logger.New(logger.Config{
		Level:       logger.ParseLevel(cfg.Logger.Level),
		AddSource:   cfg.App.Environment == "development",
		Environment: cfg.App.Environment,
		File:        cfg.Logger.File,
		MaxSizeMB:   cfg.Logger.MaxSizeMB,
		MaxBackups:  cfg.Logger.MaxBackups,
	})

	log.Info("Starting pixiv RSS server",
		"version", Version,
		"environment", cfg.App.Environment,
		"log_level", cfg.Logger.Level,
		"log_file", cfg.Logger.File,
		"pixiv_base_url", cfg.Pixiv.BaseURL,
	)

	return log, nil
}
