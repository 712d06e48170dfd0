// Package di provides dependency injection configuration for the feed server.
package di

import (
	"github.com/samber/do/v2"

	"github.com/pixivrss/pixivrss-server/internal/config"
	"github.com/pixivrss/pixivrss-server/internal/di/providers"
	"github.com/pixivrss/pixivrss-server/internal/logger"
	"github.com/pixivrss/pixivrss-server/internal/service"
)

// NewContainer creates and configures the DI container with all providers.
func NewContainer() *do.RootScope {
	injector := do.New()

	// Core infrastructure
	do.Provide(injector, providers.ProvideConfig)
	do.Provide(injector, providers.ProvideLogger)

	// Upstream
	do.Provide(injector, providers.ProvidePixivClient)

	// Business services
	do.Provide(injector, providers.ProvideFeedService)

	// Server
	do.Provide(injector, providers.ProvideHTTPServer)

	return injector
}

// Bootstrap initializes all services, starting the HTTP server.
func Bootstrap(injector *do.RootScope) error {
	if _, err := do.Invoke[*config.Config](injector); err != nil {
		return err
	}
	_ = do.MustInvoke[*logger.Logger](injector)
	_ = do.MustInvoke[*providers.PixivClientHandle](injector)
	_ = do.MustInvoke[*service.FeedService](injector)

	// Server
	if _, err := do.Invoke[*providers.HTTPServerHandle](injector); err != nil {
		return err
	}

	return nil
}
