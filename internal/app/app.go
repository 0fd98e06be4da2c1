// Package app wires configuration, stores, caches and providers into the
// services shared by the API server and the labelctl CLI.
package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/zatekoja/druglabels/backend/internal/adapters/cache"
	"github.com/zatekoja/druglabels/backend/internal/adapters/catalog"
	"github.com/zatekoja/druglabels/backend/internal/adapters/database"
	"github.com/zatekoja/druglabels/backend/internal/api/tools"
	"github.com/zatekoja/druglabels/backend/internal/application/services"
	"github.com/zatekoja/druglabels/backend/internal/domain/providers"
	"github.com/zatekoja/druglabels/backend/internal/domain/repositories"
	"github.com/zatekoja/druglabels/backend/internal/infrastructure/clients/gemini"
	"github.com/zatekoja/druglabels/backend/internal/infrastructure/clients/openai"
	"github.com/zatekoja/druglabels/backend/internal/infrastructure/clients/redis"
	"github.com/zatekoja/druglabels/backend/internal/infrastructure/clients/sqldb"
	"github.com/zatekoja/druglabels/backend/internal/infrastructure/observability"
	"github.com/zatekoja/druglabels/backend/pkg/config"
)

// Provider names accepted by GENERATION_PROVIDER
const (
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"
	ProviderNone   = "none"
)

// App holds the wired components of the drug label backend
type App struct {
	Config      *config.Config
	Metrics     *observability.Metrics
	Catalog     *catalog.MemoryCatalog
	Cache       providers.CacheProvider
	Enhancement *services.EnhancementService
	Warming     *services.EnhancementWarmingService
	Tools       *tools.Adapter

	closers []func() error
}

// New loads the catalog and wires every component. A failing record store
// aborts startup; a missing cache or model provider degrades instead.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	a := &App{Config: cfg}

	metrics, err := observability.InitMetrics()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize metrics: %w", err)
	}
	a.Metrics = metrics

	store, err := a.openStore(ctx)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.Catalog, err = catalog.Load(ctx, store)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to load drug labels: %w", err)
	}
	log.Info().Int("records", a.Catalog.Len()).Str("source", cfg.Catalog.Source).Msg("Drug label catalog loaded")

	a.Cache, err = a.openCache(ctx)
	if err != nil {
		a.Close()
		return nil, err
	}

	generator, err := a.openGenerator(ctx)
	if err != nil {
		a.Close()
		return nil, err
	}

	contentCache := services.NewContentCache(a.Cache, metrics)
	gateway := services.NewModelGateway(generator, contentCache, services.GenerationPolicy(cfg.Generation), metrics)
	a.Enhancement = services.NewEnhancementService(a.Catalog, gateway, contentCache, metrics)
	a.Warming = services.NewEnhancementWarmingService(a.Catalog, a.Enhancement)

	a.Tools, err = tools.NewAdapter(a.Enhancement, a.Catalog, cfg.Tools)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to build tool catalog: %w", err)
	}
	return a, nil
}

// Close releases clients in reverse order of creation
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

func (a *App) openStore(ctx context.Context) (repositories.DrugLabelStore, error) {
	if a.Config.Catalog.Source == "file" {
		return database.NewFileStore(a.Config.Catalog.FilePath), nil
	}

	client, err := sqldb.NewClient(ctx, &a.Config.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to record store: %w", err)
	}
	a.closers = append(a.closers, client.Close)
	log.Info().Str("driver", client.Driver()).Msg("Record store connected")
	return database.NewDrugLabelAdapter(client), nil
}

// openCache prefers Redis and falls back to the in-process LRU
func (a *App) openCache(ctx context.Context) (providers.CacheProvider, error) {
	if a.Config.Redis.Enabled {
		client, err := redis.NewClient(ctx, &a.Config.Redis)
		if err == nil {
			a.closers = append(a.closers, client.Close)
			log.Info().Str("addr", a.Config.Redis.RedisAddr()).Msg("Redis cache initialized")
			return cache.NewRedisAdapter(client), nil
		}
		log.Warn().Err(err).Msg("Redis unavailable, using in-memory cache")
	}

	memory, err := cache.NewMemoryAdapter(a.Config.Cache.MemorySize)
	if err != nil {
		return nil, fmt.Errorf("failed to create memory cache: %w", err)
	}
	log.Info().Int("size", a.Config.Cache.MemorySize).Msg("In-memory cache initialized")
	return memory, nil
}

// openGenerator returns nil when generation is disabled or has no credential
func (a *App) openGenerator(ctx context.Context) (providers.TextGenerator, error) {
	cfg := a.Config
	if cfg.Generation.Provider == ProviderNone || cfg.GenerationCredential() == "" {
		log.Warn().Str("provider", cfg.Generation.Provider).Msg("Text generation disabled; serving template content")
		return nil, nil
	}

	switch cfg.Generation.Provider {
	case ProviderGemini:
		client, err := gemini.NewClient(ctx, &cfg.Gemini)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize Gemini client: %w", err)
		}
		a.closers = append(a.closers, client.Close)
		log.Info().Str("model", client.Name()).Msg("Gemini text generation enabled")
		return client, nil
	default:
		client, err := openai.NewClient(&cfg.OpenAI)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize OpenAI client: %w", err)
		}
		a.closers = append(a.closers, func() error {
			client.Close()
			return nil
		})
		log.Info().Str("model", client.Name()).Msg("OpenAI text generation enabled")
		return client, nil
	}
}
