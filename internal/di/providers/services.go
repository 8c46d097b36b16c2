package providers

import (
	"github.com/samber/do/v2"

	"github.com/racingnotes/racingnotes-server/internal/api"
	"github.com/racingnotes/racingnotes-server/internal/auth"
	"github.com/racingnotes/racingnotes-server/internal/cache"
	"github.com/racingnotes/racingnotes-server/internal/config"
	"github.com/racingnotes/racingnotes-server/internal/logger"
	"github.com/racingnotes/racingnotes-server/internal/media"
	"github.com/racingnotes/racingnotes-server/internal/metrics"
	"github.com/racingnotes/racingnotes-server/internal/service"
)

// ProvideCache provides the query cache shared by the read services.
func ProvideCache(i do.Injector) (*cache.Cache, error) {
	m := do.MustInvoke[*metrics.Metrics](i)

	var opts []cache.Option
	if m != nil {
		opts = append(opts, cache.WithObserver(m))
	}
	return cache.New(cacheCleanupInterval, opts...), nil
}

// ProvideShareTokens provides the PASETO share link issuer. The key comes from
// config or is generated once into the data dir.
func ProvideShareTokens(i do.Injector) (*auth.ShareTokens, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	keyHex := cfg.Share.KeyHex
	if keyHex == "" {
		generated, err := auth.LoadOrGenerateKey(cfg.App.DataDir)
		if err != nil {
			return nil, err
		}
		keyHex = generated
	}

	log.Info("Share key loaded", "link_ttl", cfg.Share.TTL)

	return auth.NewShareTokens(keyHex, cfg.Share.TTL)
}

// ProvideReadModelService provides the read model refresher.
func ProvideReadModelService(i do.Injector) (*service.ReadModelService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	m := do.MustInvoke[*metrics.Metrics](i)
	log := do.MustInvoke[*logger.Logger](i)
	return service.NewReadModelService(storeHandle.Store, m, log.WithComponent("readmodel")), nil
}

// ProvideSearchService provides the fuzzy search service.
func ProvideSearchService(i do.Injector) (*service.SearchService, error) {
	cfg := do.MustInvoke[*config.Config](i)
	indexHandle := do.MustInvoke[*SearchIndexHandle](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)
	c := do.MustInvoke[*cache.Cache](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewSearchService(indexHandle.Index, storeHandle.Store, c, cfg.Cache.FeedTTL, log.WithComponent("search")), nil
}

// ProvideNoteService provides the note service.
func ProvideNoteService(i do.Injector) (*service.NoteService, error) {
	cfg := do.MustInvoke[*config.Config](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)
	pipeline := do.MustInvoke[*media.Pipeline](i)
	storage := do.MustInvoke[*BlobStorage](i)
	c := do.MustInvoke[*cache.Cache](i)
	readModel := do.MustInvoke[*service.ReadModelService](i)
	searchService := do.MustInvoke[*service.SearchService](i)
	m := do.MustInvoke[*metrics.Metrics](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewNoteService(
		storeHandle.Store,
		pipeline,
		storage.Client,
		c,
		readModel,
		searchService,
		cfg.Cache.FeedTTL,
		m,
		log.WithComponent("notes"),
	), nil
}

// ProvideSweeper provides the blob reconciliation sweeper.
func ProvideSweeper(i do.Injector) (*service.Sweeper, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	storage := do.MustInvoke[*BlobStorage](i)
	m := do.MustInvoke[*metrics.Metrics](i)
	log := do.MustInvoke[*logger.Logger](i)
	return service.NewSweeper(storeHandle.Store, storage.Client, m, log.WithComponent("sweeper")), nil
}

// ProvideServices groups every service the API needs.
func ProvideServices(i do.Injector) (*api.Services, error) {
	cfg := do.MustInvoke[*config.Config](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)
	c := do.MustInvoke[*cache.Cache](i)
	tokens := do.MustInvoke[*auth.ShareTokens](i)
	readModel := do.MustInvoke[*service.ReadModelService](i)
	notes := do.MustInvoke[*service.NoteService](i)
	events := do.MustInvoke[*SSEManagerHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	st := storeHandle.Store
	reference := service.NewReferenceService(st, c, cfg.Cache.ReferenceTTL, log.WithComponent("reference"))
	engagement := service.NewEngagementService(st, c, readModel, log.WithComponent("engagement"))

	notes.SetEventEmitter(events.Manager)
	reference.SetEventEmitter(events.Manager)
	engagement.SetEventEmitter(events.Manager)

	return &api.Services{
		Notes:       notes,
		Reference:   reference,
		Tags:        service.NewTagService(st, c, cfg.Cache.ReferenceTTL, log.WithComponent("tags")),
		Engagement:  engagement,
		Preferences: service.NewPreferencesService(st, log.WithComponent("preferences")),
		Stats:       service.NewStatsService(st, c, cfg.Cache.FeedTTL, log.WithComponent("stats")),
		Share:       service.NewShareService(tokens, notes, log.WithComponent("share")),
		Search:      do.MustInvoke[*service.SearchService](i),
		ReadModel:   readModel,
		Sweeper:     do.MustInvoke[*service.Sweeper](i),
	}, nil
}
