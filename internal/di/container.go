// Package di provides dependency injection configuration for the racing notes server.
package di

import (
	"github.com/samber/do/v2"

	"github.com/racingnotes/racingnotes-server/internal/api"
	"github.com/racingnotes/racingnotes-server/internal/auth"
	"github.com/racingnotes/racingnotes-server/internal/cache"
	"github.com/racingnotes/racingnotes-server/internal/config"
	"github.com/racingnotes/racingnotes-server/internal/di/providers"
	"github.com/racingnotes/racingnotes-server/internal/logger"
	"github.com/racingnotes/racingnotes-server/internal/media"
	"github.com/racingnotes/racingnotes-server/internal/metrics"
	"github.com/racingnotes/racingnotes-server/internal/service"
)

// NewContainer creates and configures the DI container with all providers.
// Nothing is constructed until it is invoked.
func NewContainer(loader *config.Loader, build providers.BuildInfo) *do.RootScope {
	injector := do.New()

	do.ProvideValue(injector, loader)
	do.ProvideValue(injector, build)

	// Core infrastructure
	do.Provide(injector, providers.ProvideConfig)
	do.Provide(injector, providers.ProvideLogger)
	do.Provide(injector, providers.ProvideMetrics)

	// Persistence
	do.Provide(injector, providers.ProvideStore)
	do.Provide(injector, providers.ProvideBlobStorage)
	do.Provide(injector, providers.ProvideSearchIndex)
	do.Provide(injector, providers.ProvideCache)

	// Media
	do.Provide(injector, providers.ProvideMediaPipeline)

	// Business services
	do.Provide(injector, providers.ProvideSSEManager)
	do.Provide(injector, providers.ProvideShareTokens)
	do.Provide(injector, providers.ProvideReadModelService)
	do.Provide(injector, providers.ProvideSearchService)
	do.Provide(injector, providers.ProvideNoteService)
	do.Provide(injector, providers.ProvideSweeper)
	do.Provide(injector, providers.ProvideServices)

	// Workers
	do.Provide(injector, providers.ProvideSweeperWorker)

	// Server
	do.Provide(injector, providers.ProvideHTTPServer)

	return injector
}

// Bootstrap initializes everything the API server needs and starts it.
func Bootstrap(injector *do.RootScope) error {
	if _, err := do.Invoke[*config.Config](injector); err != nil {
		return err
	}
	_ = do.MustInvoke[*logger.Logger](injector)
	_ = do.MustInvoke[*metrics.Metrics](injector)

	for _, invoke := range []func() error{
		invokeErr[*providers.StoreHandle](injector),
		invokeErr[*providers.BlobStorage](injector),
		invokeErr[*providers.SearchIndexHandle](injector),
		invokeErr[*cache.Cache](injector),
		invokeErr[*media.Pipeline](injector),
		invokeErr[*providers.SSEManagerHandle](injector),
		invokeErr[*auth.ShareTokens](injector),
		invokeErr[*service.ReadModelService](injector),
		invokeErr[*service.SearchService](injector),
		invokeErr[*service.NoteService](injector),
		invokeErr[*service.Sweeper](injector),
		invokeErr[*api.Services](injector),
	} {
		if err := invoke(); err != nil {
			return err
		}
	}

	// Repopulate the index in the background if a mapping change emptied it.
	providers.TriggerSearchReindexIfNeeded(injector)

	if err := invokeErr[*providers.SweeperWorker](injector)(); err != nil {
		return err
	}
	return invokeErr[*providers.HTTPServerHandle](injector)()
}

func invokeErr[T any](injector do.Injector) func() error {
	return func() error {
		_, err := do.Invoke[T](injector)
		return err
	}
}
